package auth

import (
	"errors"
	"fmt"
)

// ErrUnknownType indicates an auth config with an unrecognized discriminator
var ErrUnknownType = errors.New("unknown auth type")

// UnknownTypeError is returned by Parse for an unrecognized "type"
type UnknownTypeError struct {
	Type string
}

// Error implements the error interface
func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown auth type %q (must be %q or %q)", e.Type, KindQueryParameter, KindBearerToken)
}

// Unwrap allows errors.Is(err, ErrUnknownType)
func (e *UnknownTypeError) Unwrap() error {
	return ErrUnknownType
}
