package property

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/san-kum/labsim/internal/dynamo"
	"github.com/san-kum/labsim/internal/logging"
)

type Kind int

const (
	KindParameter Kind = iota
	KindOutput
)

func (k Kind) String() string {
	if k == KindOutput {
		return "output"
	}
	return "parameter"
}

// Period classifies how a value is logged on export.
type Period int

const (
	PerTick Period = iota
	PerRun
)

func (p Period) String() string {
	if p == PerRun {
		return "perRun"
	}
	return "perTick"
}

// Description is the metadata attached to a property.
type Description struct {
	Label  string
	Unit   string
	Period Period
}

// Info is a read-only view of a property definition.
type Info struct {
	Name        string
	Kind        Kind
	Description Description
	Deps        []string
}

// Observer is invoked after a property value (or description) changes.
type Observer func() error

// Handle identifies a registered observer.
type Handle struct {
	name string
	id   uint64
	desc bool
}

// ObserverError collects the failures of individual observers during one
// notification pass.
type ObserverError struct {
	Errs []error
}

func (e *ObserverError) Error() string {
	return fmt.Sprintf("%d observer(s) failed: %v", len(e.Errs), errors.Join(e.Errs...))
}

func (e *ObserverError) Unwrap() []error { return e.Errs }

type entry struct {
	index    int
	name     string
	kind     Kind
	desc     Description
	validate Validator
	deps     []string
	compute  func() any

	value    any
	hasValue bool
	dirty    bool
}

type registered struct {
	id uint64
	fn Observer
}

type Store struct {
	entries    map[string]*entry
	order      []*entry
	dependents map[string][]*entry

	observers     map[string][]registered
	descObservers map[string][]registered
	nextID        uint64

	notifying bool
	pending   []func() []error

	baseline map[string]any
	log      logging.Logger
}

type Option func(*Store)

func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.log = l }
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		entries:       make(map[string]*entry),
		dependents:    make(map[string][]*entry),
		observers:     make(map[string][]registered),
		descObservers: make(map[string][]registered),
		log:           logging.Noop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefineParameter registers a settable property. The initial value must
// satisfy validate.
func (s *Store) DefineParameter(name string, desc Description, validate Validator, initial any) error {
	if _, ok := s.entries[name]; ok {
		return &dynamo.DuplicateDefinitionError{Name: name}
	}
	if validate == nil {
		validate = Any()
	}
	v, err := validate(initial)
	if err != nil {
		return &dynamo.InvalidValueError{Property: name, Value: initial, Reason: err.Error()}
	}
	s.add(&entry{name: name, kind: KindParameter, desc: desc, validate: validate, value: v, hasValue: true})
	return nil
}

// DefineOutput registers a derived property computed by fn from deps.
func (s *Store) DefineOutput(name string, desc Description, deps []string, fn func() any) error {
	if _, ok := s.entries[name]; ok {
		return &dynamo.DuplicateDefinitionError{Name: name}
	}
	if fn == nil {
		return fmt.Errorf("output %q: nil compute function", name)
	}
	e := &entry{name: name, kind: KindOutput, desc: desc, deps: append([]string(nil), deps...), compute: fn, dirty: true}
	s.add(e)
	for _, d := range e.deps {
		s.dependents[d] = append(s.dependents[d], e)
	}
	return nil
}

func (s *Store) add(e *entry) {
	e.index = len(s.order)
	s.entries[e.name] = e
	s.order = append(s.order, e)
}

func (s *Store) Has(name string) bool {
	_, ok := s.entries[name]
	return ok
}

// Names returns all property names in definition order.
func (s *Store) Names() []string {
	names := make([]string, len(s.order))
	for i, e := range s.order {
		names[i] = e.name
	}
	return names
}

func (s *Store) Info(name string) (Info, bool) {
	e, ok := s.entries[name]
	if !ok {
		return Info{}, false
	}
	return Info{Name: e.name, Kind: e.kind, Description: e.desc, Deps: append([]string(nil), e.deps...)}, true
}

// Get returns the current value of name, recomputing dirty outputs.
func (s *Store) Get(name string) (any, error) {
	e, ok := s.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", dynamo.ErrUnknownProperty, name)
	}
	return s.current(e), nil
}

// Float returns a numeric property as float64, or 0 when absent or not numeric.
func (s *Store) Float(name string) float64 {
	v, err := s.Get(name)
	if err != nil {
		return 0
	}
	f, _ := dynamo.ToFloat(v)
	return f
}

func (s *Store) Bool(name string) bool {
	v, err := s.Get(name)
	if err != nil {
		return false
	}
	b, _ := v.(bool)
	return b
}

func (s *Store) current(e *entry) any {
	if e.kind == KindOutput && (e.dirty || !e.hasValue) {
		e.value = e.compute()
		e.hasValue = true
		e.dirty = false
	}
	return e.value
}

// Set assigns a single parameter. See SetAll.
func (s *Store) Set(name string, v any) error {
	return s.SetAll(map[string]any{name: v})
}

// SetAll assigns several parameters atomically. Every value is validated
// before any is applied; the first failure is returned and nothing changes.
// Observer failures are returned as *ObserverError after the values commit.
func (s *Store) SetAll(values map[string]any) error {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	normalized := make(map[string]any, len(values))
	for _, name := range names {
		e, ok := s.entries[name]
		if !ok {
			return &dynamo.InvalidValueError{Property: name, Value: values[name], Reason: "not defined", Wrapped: dynamo.ErrUnknownProperty}
		}
		if e.kind != KindParameter {
			return &dynamo.InvalidValueError{Property: name, Value: values[name], Reason: "output properties are read-only"}
		}
		v, err := e.validate(values[name])
		if err != nil {
			return &dynamo.InvalidValueError{Property: name, Value: values[name], Reason: err.Error()}
		}
		normalized[name] = v
	}

	return s.run(func() []error { return s.apply(normalized) })
}

func (s *Store) apply(values map[string]any) []error {
	var changed []string
	for name, v := range values {
		e := s.entries[name]
		if equal(e.value, v) {
			continue
		}
		e.value = v
		changed = append(changed, name)
	}
	return s.propagate(changed)
}

// Invalidate marks every output depending on keys dirty and notifies the
// observers of outputs whose value changed.
func (s *Store) Invalidate(keys ...string) error {
	return s.run(func() []error { return s.propagate(keys) })
}

// Restore overwrites parameter values without validation, marks every
// output dirty, and notifies observers of whatever changed. It is used to
// roll the store back to a snapshot taken with Values.
func (s *Store) Restore(values map[string]any) error {
	return s.run(func() []error {
		var changed []string
		for name, v := range values {
			e, ok := s.entries[name]
			if !ok || e.kind != KindParameter || equal(e.value, v) {
				continue
			}
			e.value = v
			changed = append(changed, name)
		}
		for _, e := range s.order {
			if e.kind == KindOutput {
				changed = append(changed, e.name)
			}
		}
		return s.propagate(changed)
	})
}

// Values returns a copy of every parameter value.
func (s *Store) Values() map[string]any {
	out := make(map[string]any)
	for _, e := range s.order {
		if e.kind == KindParameter {
			out[e.name] = e.value
		}
	}
	return out
}

// run executes op now, or queues it when called from inside an observer.
func (s *Store) run(op func() []error) error {
	if s.notifying {
		s.pending = append(s.pending, op)
		return nil
	}
	errs := op()
	for len(s.pending) > 0 {
		next := s.pending[0]
		s.pending = s.pending[1:]
		errs = append(errs, next()...)
	}
	if len(errs) > 0 {
		return &ObserverError{Errs: errs}
	}
	return nil
}

// propagate dirties dependents of keys (transitively) and notifies the
// observers of each property whose value changed, in definition order.
func (s *Store) propagate(keys []string) []error {
	touched := make(map[*entry]bool)
	prev := make(map[*entry]any)
	hadValue := make(map[*entry]bool)

	queue := append([]string(nil), keys...)
	for len(queue) > 0 {
		k := queue[0]
		queue = queue[1:]
		if e, ok := s.entries[k]; ok && !touched[e] {
			touched[e] = true
			if e.kind == KindOutput {
				prev[e], hadValue[e] = e.value, e.hasValue && !e.dirty
				e.dirty = true
			}
		}
		for _, dep := range s.dependents[k] {
			if touched[dep] {
				continue
			}
			touched[dep] = true
			prev[dep], hadValue[dep] = dep.value, dep.hasValue && !dep.dirty
			dep.dirty = true
			queue = append(queue, dep.name)
		}
	}

	notify := make([]*entry, 0, len(touched))
	for e := range touched {
		if len(s.observers[e.name]) == 0 {
			continue
		}
		if e.kind == KindOutput {
			v := s.current(e)
			if hadValue[e] && equal(prev[e], v) {
				continue
			}
		}
		notify = append(notify, e)
	}
	sort.Slice(notify, func(i, j int) bool { return notify[i].index < notify[j].index })

	var errs []error
	for _, e := range notify {
		errs = append(errs, s.fire(e.name, s.observers[e.name])...)
	}
	return errs
}

func (s *Store) fire(name string, list []registered) []error {
	s.notifying = true
	defer func() { s.notifying = false }()

	var errs []error
	for _, r := range append([]registered(nil), list...) {
		if err := call(name, r.fn); err != nil {
			s.log.Warn(context.Background(), "observer failed",
				logging.String("property", name), logging.Err(err))
			errs = append(errs, err)
		}
	}
	return errs
}

func call(name string, fn Observer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("observer of %q panicked: %v", name, r)
		}
	}()
	if ferr := fn(); ferr != nil {
		return fmt.Errorf("observer of %q: %w", name, ferr)
	}
	return nil
}

func (s *Store) AddObserver(name string, fn Observer) Handle {
	s.nextID++
	s.observers[name] = append(s.observers[name], registered{id: s.nextID, fn: fn})
	return Handle{name: name, id: s.nextID}
}

func (s *Store) AddDescriptionObserver(name string, fn Observer) Handle {
	s.nextID++
	s.descObservers[name] = append(s.descObservers[name], registered{id: s.nextID, fn: fn})
	return Handle{name: name, id: s.nextID, desc: true}
}

func (s *Store) RemoveObserver(h Handle) {
	reg := s.observers
	if h.desc {
		reg = s.descObservers
	}
	list := reg[h.name]
	for i, r := range list {
		if r.id == h.id {
			reg[h.name] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// SetDescription replaces the metadata of name and fires its description
// observers when it actually changed.
func (s *Store) SetDescription(name string, desc Description) error {
	e, ok := s.entries[name]
	if !ok {
		return fmt.Errorf("%w: %q", dynamo.ErrUnknownProperty, name)
	}
	if e.desc == desc {
		return nil
	}
	e.desc = desc
	return s.run(func() []error { return s.fire(name, s.descObservers[name]) })
}

// Freeze captures the current value of every per-run property as the run
// baseline.
func (s *Store) Freeze() {
	s.baseline = make(map[string]any)
	for _, e := range s.order {
		if e.desc.Period == PerRun {
			s.baseline[e.name] = s.current(e)
		}
	}
}

// Baseline returns the value name had at the last Freeze.
func (s *Store) Baseline(name string) (any, bool) {
	v, ok := s.baseline[name]
	return v, ok
}

func (s *Store) Frozen() bool { return s.baseline != nil }

func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}
