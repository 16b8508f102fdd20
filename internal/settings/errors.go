package settings

import (
	"errors"
	"fmt"

	"github.com/settingskit/settingskit/internal/models"
)

// ErrNotFound is returned when no definition exists for a requested key.
var ErrNotFound = errors.New("setting not found")

// ErrNotCustomizable is returned by user-scoped writes against a definition
// whose per-user overrides are disabled. The check applies at write time
// only: an override written while a definition was customizable keeps being
// honored on reads even after the flag is toggled off.
var ErrNotCustomizable = errors.New("setting is not user customizable")

// ErrDuplicateKey is returned when creating a definition whose key already
// exists.
var ErrDuplicateKey = errors.New("setting key already exists")

// DecodeError reports a stored value that could not be decoded as its
// definition's type. In practice only json-typed values can fail to decode.
type DecodeError struct {
	Type models.Type
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s value: %v", e.Type, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
