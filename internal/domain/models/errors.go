package models

import (
	"errors"
	"fmt"
)

// ErrorKind groups domain errors by how callers should react to them.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindNotFound   ErrorKind = "not_found"
	KindConflict   ErrorKind = "conflict"
	KindDependency ErrorKind = "dependency"
)

// Error is the typed error returned by the engine services. Two errors are
// considered equal by errors.Is when their codes match, so sentinels below can
// be compared against errors carrying a more specific message.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrValidation             = &Error{Kind: KindValidation, Code: "validation_failed", Message: "validation failed"}
	ErrInvalidConversionValue = &Error{Kind: KindValidation, Code: "invalid_conversion_value", Message: "conversion_to_kg must be greater than zero"}
	ErrInvalidTargetMode      = &Error{Kind: KindValidation, Code: "invalid_target_mode", Message: "operation not applicable to batch target mode"}
	ErrInvalidAnimalID        = &Error{Kind: KindValidation, Code: "invalid_animal_id", Message: "animal id is malformed"}

	ErrUnknownUnit        = &Error{Kind: KindNotFound, Code: "unknown_unit", Message: "unknown weight unit"}
	ErrCategoryNotFound   = &Error{Kind: KindNotFound, Code: "category_not_found", Message: "category not found"}
	ErrBatchNotFound      = &Error{Kind: KindNotFound, Code: "batch_not_found", Message: "batch not found"}
	ErrConversionNotFound = &Error{Kind: KindNotFound, Code: "conversion_not_found", Message: "conversion not found"}
	ErrFactorNotFound     = &Error{Kind: KindNotFound, Code: "factor_not_found", Message: "factor not found"}
	ErrAnimalNotFound     = &Error{Kind: KindNotFound, Code: "animal_not_found", Message: "animal not found"}
	ErrAnimalNotLinked    = &Error{Kind: KindNotFound, Code: "animal_not_linked", Message: "animal is not linked to batch"}

	ErrDuplicateUnit     = &Error{Kind: KindConflict, Code: "duplicate_unit", Message: "unit symbol already exists"}
	ErrDuplicateCategory = &Error{Kind: KindConflict, Code: "duplicate_category", Message: "category name already exists"}
	ErrProtectedDefault  = &Error{Kind: KindConflict, Code: "protected_default", Message: "default entries cannot be deleted"}

	ErrDependency = &Error{Kind: KindDependency, Code: "dependency_failed", Message: "collaborator unavailable"}
)

// Errorf derives a new error from a sentinel, keeping its kind and code.
func Errorf(base *Error, format string, args ...any) *Error {
	return &Error{Kind: base.Kind, Code: base.Code, Message: fmt.Sprintf(format, args...)}
}

// Dependency wraps a collaborator failure.
func Dependency(name string, err error) *Error {
	return &Error{Kind: KindDependency, Code: ErrDependency.Code, Message: name + " unavailable", Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or an empty kind.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
