package view

import (
	"errors"
	"fmt"
)

// ErrConfiguration is matched by every *ConfigurationError via errors.Is.
var ErrConfiguration = errors.New("configuration error")

// ErrCoercion is matched by every *DataCoercionError via errors.Is.
var ErrCoercion = errors.New("data coercion error")

// ConfigurationError reports a caller wiring mistake, such as an unknown
// filter operator or a sort spec without a field. It is never caused by
// record contents and always fails the whole query.
type ConfigurationError struct {
	Op     string
	Detail string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Op, e.Detail)
}

// Is reports whether target is ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func configErrorf(op, format string, args ...any) error {
	return &ConfigurationError{Op: op, Detail: fmt.Sprintf(format, args...)}
}

// DataCoercionError reports a record field whose value could not be turned
// into its string form. The controller recovers from it locally.
type DataCoercionError struct {
	Field string
	Err   error
}

func (e *DataCoercionError) Error() string {
	return fmt.Sprintf("field %q: cannot convert to string: %v", e.Field, e.Err)
}

func (e *DataCoercionError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrCoercion.
func (e *DataCoercionError) Is(target error) bool {
	return target == ErrCoercion
}
