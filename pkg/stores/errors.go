package stores

import (
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrorClass classifies store failures so callers can branch without
// inspecting driver errors.
type ErrorClass string

const (
	// ClassNotFound is the absence signal: no row has the requested id.
	ClassNotFound ErrorClass = "not_found"

	// ClassConstraint indicates a NOT NULL, CHECK or type constraint rejected a write.
	ClassConstraint ErrorClass = "constraint"

	// ClassLocked indicates the database stayed locked past the busy timeout.
	// No retry is attempted.
	ClassLocked ErrorClass = "locked"

	// ClassInternal covers every other failure.
	ClassInternal ErrorClass = "internal"
)

// ErrNotFound matches, via errors.Is, every not-found error returned by the store.
var ErrNotFound = &StoreError{Class: ClassNotFound, Message: "record not found"}

// StoreError is a classified store failure.
type StoreError struct {
	Class   ErrorClass
	Message string

	// Entity is the table the operation targeted, if known.
	Entity string

	// ID is the record id the operation targeted, 0 when not applicable.
	ID int64

	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	switch {
	case e.Err != nil && e.Entity != "":
		return fmt.Sprintf("[%s] %s (%s): %v", e.Class, e.Message, e.Entity, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("[%s] %s: %v", e.Class, e.Message, e.Err)
	case e.Entity != "" && e.ID != 0:
		return fmt.Sprintf("[%s] %s: %s %d", e.Class, e.Message, e.Entity, e.ID)
	default:
		return fmt.Sprintf("[%s] %s", e.Class, e.Message)
	}
}

// Unwrap returns the underlying driver error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is reports a match when target is a *StoreError of the same class.
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	if !ok {
		return false
	}
	return e.Class == t.Class
}

// ErrorClass exposes the class as a plain string for instrumentation.
func (e *StoreError) ErrorClass() string {
	return string(e.Class)
}

// ClassOf returns the class of the first StoreError in err's chain.
// Unclassified errors report ClassInternal; a nil error reports "".
func ClassOf(err error) ErrorClass {
	if err == nil {
		return ""
	}
	var se *StoreError
	if errors.As(err, &se) {
		return se.Class
	}
	return ClassInternal
}

// IsNotFound reports whether err is the absence signal.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func notFound(entity string, id int64) error {
	return &StoreError{
		Class:   ClassNotFound,
		Message: "record not found",
		Entity:  entity,
		ID:      id,
	}
}

// wrapError classifies a driver error. message describes the failed step.
func wrapError(entity, message string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{
		Class:   classifyDriverError(err),
		Message: message,
		Entity:  entity,
		Err:     err,
	}
}

// classifyDriverError maps SQLite result codes onto an ErrorClass.
// Extended result codes carry the primary code in the low byte.
func classifyDriverError(err error) ErrorClass {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return ClassInternal
	}
	switch serr.Code() & 0xff {
	case sqlite3.SQLITE_CONSTRAINT, sqlite3.SQLITE_MISMATCH:
		return ClassConstraint
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return ClassLocked
	default:
		return ClassInternal
	}
}
