package statesync

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrNotInitialized is returned when a State is used before its model exists.
	ErrNotInitialized = errors.New("initialize state first")

	// ErrMissingHandler is returned when a binding names a handler the target does not have.
	ErrMissingHandler = errors.New("handler does not exist")

	// ErrNilTarget is returned when syncing or binding without a target.
	ErrNilTarget = errors.New("target cannot be nil")

	// ErrNilEntity is returned when syncing or binding without an entity.
	ErrNilEntity = errors.New("entity cannot be nil")

	// ErrNotModelLike is returned when a model-kind entity cannot report attribute values.
	ErrNotModelLike = errors.New("entity does not implement Get")

	// ErrInvalidOption is returned when an untyped option has the wrong type.
	ErrInvalidOption = errors.New("invalid option")

	// ErrDestroyed is returned when binding to an object that was already destroyed.
	ErrDestroyed = errors.New("object is destroyed")
)

// HandlerError wraps an error from resolving or invoking a bound handler.
type HandlerError struct {
	// Handler is the handler name as written in the binding map.
	Handler string

	// Event is the event name the handler was bound to.
	Event string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %q for event %q: %v", e.Handler, e.Event, e.Err)
}

// Unwrap returns the underlying error.
func (e *HandlerError) Unwrap() error {
	return e.Err
}

// OptionError reports an untyped option whose value has an unexpected type.
type OptionError struct {
	Key  string
	Want string
	Got  any
}

func (e *OptionError) Error() string {
	return fmt.Sprintf("option %q: expected %s, got %T", e.Key, e.Want, e.Got)
}

func (e *OptionError) Unwrap() error {
	return ErrInvalidOption
}
