package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for engine operations. Returned errors wrap these with the
// offending name or version; test with errors.Is.
var (
	ErrDataModifierNotFound         = errors.New("data modifier not registered")
	ErrBusinessLogicNotFound        = errors.New("business logic not registered")
	ErrBusinessLogicAlreadyExecuted = errors.New("business logic already executed")
	ErrNoCheckpointAvailable        = errors.New("no checkpoint available")
	ErrNotCallableDirectly          = errors.New("registered function called directly")
	ErrFrozenState                  = errors.New("model data is read-only, it can only be modified with a data modifier")
	ErrRollbackOutOfRange           = errors.New("rollback out of range")
)

// Role names the kind of registered function.
type Role string

const (
	RoleDataModifier  Role = "data modifier"
	RoleBusinessLogic Role = "business logic"
	RoleAnalysis      Role = "analysis"
)

// NotCallableError is returned by Guard.Call.
type NotCallableError struct {
	Role Role
	Name string
}

func (e *NotCallableError) Error() string {
	verb := "committed"
	if e.Role == RoleBusinessLogic {
		verb = "dispatched"
	}
	return fmt.Sprintf("%s %q should be %s, not called directly", e.Role, e.Name, verb)
}

func (e *NotCallableError) Unwrap() error {
	return ErrNotCallableDirectly
}

// StepError wraps a failure returned by a data modifier or a business logic
// procedure.
type StepError struct {
	Role Role
	Name string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Role, e.Name, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// AnalysisError wraps a failure returned by an analysis.
type AnalysisError struct {
	Name string
	Err  error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis %s failed: %v", e.Name, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}
