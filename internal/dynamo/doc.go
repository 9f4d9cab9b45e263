// Package dynamo provides the primitives shared by every layer of the
// simulation engine.
//
// It defines the numeric state vector used by the integrators and the error
// taxonomy the engine reports to its callers:
//
//   - [State]: flat vector of float64 values (positions, velocities, grid cells)
//   - [System]: a first-order system dX/dt = f(X, t)
//   - [Integrator]: advances a [System] by one fixed step
//
// # Errors
//
// Validation failures ([InvalidValueError], [SchemaMismatchError],
// [CapabilityMismatchError], [DuplicateDefinitionError]) are returned
// synchronously and leave model state untouched. [FatalIntegrationError]
// halts a run and is not recoverable without a reset. Every typed error
// unwraps to a sentinel so callers can use errors.Is:
//
//	if errors.Is(err, dynamo.ErrInvalidValue) {
//	    // revert the form field
//	}
package dynamo
