// Package property implements the reactive property graph behind a model.
//
// A [Store] holds two kinds of properties:
//
//   - parameters: externally settable values guarded by a [Validator]
//   - outputs: read-only values computed by a pure function from declared
//     dependencies, recomputed lazily when a dependency changes
//
// Dependencies are plain names. They may be other properties or opaque keys
// such as "time" or "table:atoms" that the owner invalidates explicitly with
// [Store.Invalidate].
//
// Observers run synchronously in definition order after a change commits.
// An observer may call Set; that call is validated immediately and applied
// once the current notification pass is over. Observer failures never roll
// back committed values; they are collected into an [ObserverError].
//
// A Store is not safe for concurrent use.
package property
