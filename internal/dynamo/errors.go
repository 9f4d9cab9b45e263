package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for model operations.
var (
	// ErrInvalidValue indicates a value rejected by a property validator.
	ErrInvalidValue = errors.New("dynamo: invalid value")

	// ErrUnknownProperty indicates a property name that was never defined.
	ErrUnknownProperty = errors.New("dynamo: unknown property")

	// ErrSchemaMismatch indicates table data that does not fit the table schema.
	ErrSchemaMismatch = errors.New("dynamo: schema mismatch")

	// ErrCapabilityMismatch indicates an operation that needs a disabled capability.
	ErrCapabilityMismatch = errors.New("dynamo: capability not enabled")

	// ErrDuplicateDefinition indicates a property name defined twice.
	ErrDuplicateDefinition = errors.New("dynamo: duplicate definition")

	// ErrFatalIntegration indicates corrupted state detected while stepping.
	ErrFatalIntegration = errors.New("dynamo: fatal integration error")

	// ErrHalted indicates a tick on a model halted by a fatal error.
	ErrHalted = errors.New("dynamo: model halted, reset required")

	// ErrInvalidState indicates a state vector containing NaN or Inf.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")
)

type InvalidValueError struct {
	Property string
	Value    any
	Reason   string
	Wrapped  error
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value %v for %q: %s", e.Value, e.Property, e.Reason)
}

func (e *InvalidValueError) Unwrap() []error {
	if e.Wrapped != nil {
		return []error{ErrInvalidValue, e.Wrapped}
	}
	return []error{ErrInvalidValue}
}

type SchemaMismatchError struct {
	Table  string
	Column string
	Reason string
}

func (e *SchemaMismatchError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("table %q: %s", e.Table, e.Reason)
	}
	return fmt.Sprintf("table %q column %q: %s", e.Table, e.Column, e.Reason)
}

func (e *SchemaMismatchError) Unwrap() error { return ErrSchemaMismatch }

// CapabilityMismatchError is returned when data for a capability-gated
// column or table is supplied while the capability is disabled.
type CapabilityMismatchError struct {
	Capability string
	Table      string
	Column     string
}

func (e *CapabilityMismatchError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("table %q requires capability %q", e.Table, e.Capability)
	}
	return fmt.Sprintf("column %q of table %q requires capability %q", e.Column, e.Table, e.Capability)
}

func (e *CapabilityMismatchError) Unwrap() error { return ErrCapabilityMismatch }

type DuplicateDefinitionError struct {
	Name string
}

func (e *DuplicateDefinitionError) Error() string {
	return fmt.Sprintf("property %q already defined", e.Name)
}

func (e *DuplicateDefinitionError) Unwrap() error { return ErrDuplicateDefinition }

// FatalIntegrationError wraps a failure detected while stepping. The model
// that produced it refuses further ticks until it is reset.
type FatalIntegrationError struct {
	Step    int
	Time    float64
	Reason  string
	Wrapped error
}

func (e *FatalIntegrationError) Error() string {
	return StepError{Time: e.Time, Step: e.Step, Message: e.Reason}.Error()
}

func (e *FatalIntegrationError) Unwrap() []error {
	if e.Wrapped != nil {
		return []error{ErrFatalIntegration, e.Wrapped}
	}
	return []error{ErrFatalIntegration}
}
