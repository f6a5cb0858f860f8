package behavior

import (
	"errors"
	"fmt"
)

// Configuration errors returned by Attach and by wrapped serializers.
var (
	// ErrMissingStateClass is returned when Config.State is nil.
	ErrMissingStateClass = errors.New("must provide a state definition")

	// ErrInvalidMapOption is returned for a mapOptions value that is not true, a string or a function.
	ErrInvalidMapOption = errors.New("invalid mapOption value, expecting true, string or function")

	// ErrStateModelExists is returned when the view already has a state model.
	ErrStateModelExists = errors.New("view already contains a state model")

	// ErrStateNotExtensible is returned when serialized data holds a non-map "state" value.
	ErrStateNotExtensible = errors.New("'state' already defined and not extensible")

	// ErrAttributeDefined is returned when a state attribute collides with serialized data.
	ErrAttributeDefined = errors.New("attribute already defined")
)

// MapOptionError reports the state option whose mapping is invalid.
type MapOptionError struct {
	Key   string
	Value any
}

func (e *MapOptionError) Error() string {
	return fmt.Sprintf("mapOptions[%q] = %T: %v", e.Key, e.Value, ErrInvalidMapOption)
}

func (e *MapOptionError) Unwrap() error {
	return ErrInvalidMapOption
}

// AttributeError reports a state attribute that is already present in serialized data.
type AttributeError struct {
	Attribute string
}

func (e *AttributeError) Error() string {
	return fmt.Sprintf("attribute %q already defined", e.Attribute)
}

func (e *AttributeError) Unwrap() error {
	return ErrAttributeDefined
}
