package extension

import (
	"errors"
	"fmt"
)

// ErrUnknownExtension is returned when an operation references an
// extension ID that was never discovered.
var ErrUnknownExtension = errors.New("unknown extension")

// ErrDependencyCycle is returned when enabling an extension whose
// requirement chain loops back on itself.
var ErrDependencyCycle = errors.New("extension dependency cycle")

// ErrStaticRootRequired is returned from NewManager when no static asset
// root is configured. This is fatal at construction time: the manager
// cannot install assets without it.
var ErrStaticRootRequired = errors.New("static asset root must be configured")

// RegistrationNotFoundError is returned by a RegistrationRepository when
// no record exists for the requested extension ID.
type RegistrationNotFoundError struct {
	ID string
}

func (e *RegistrationNotFoundError) Error() string {
	return fmt.Sprintf("no registration record for extension %q", e.ID)
}

// InstallExtensionError reports a failed one-time install side effect
// (asset copy or schema migration). The extension stays in Registered
// state; the enclosing enable is aborted.
type InstallExtensionError struct {
	ID  string
	Err error
}

func (e *InstallExtensionError) Error() string {
	return fmt.Sprintf("installing extension %q: %v", e.ID, e.Err)
}

func (e *InstallExtensionError) Unwrap() error { return e.Err }

// EnablingExtensionError reports a failed enable. It wraps the cause,
// typically an InstallExtensionError.
type EnablingExtensionError struct {
	ID  string
	Err error
}

func (e *EnablingExtensionError) Error() string {
	return fmt.Sprintf("enabling extension %q: %v", e.ID, e.Err)
}

func (e *EnablingExtensionError) Unwrap() error { return e.Err }

// DisablingExtensionError is reserved for future use: the current disable
// path has no failure point once shutdown begins.
type DisablingExtensionError struct {
	ID  string
	Err error
}

func (e *DisablingExtensionError) Error() string {
	return fmt.Sprintf("disabling extension %q: %v", e.ID, e.Err)
}

func (e *DisablingExtensionError) Unwrap() error { return e.Err }
