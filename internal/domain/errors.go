package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors returned as structured failures, not panics. Callers
// match them with errors.Is.
var (
	// ErrAlreadyScheduled is returned when a deactivation timer is
	// already armed. Arming does not reset the running timer.
	ErrAlreadyScheduled = errors.New("deactivation timer already armed")

	// ErrNotScheduled is returned by a cancel when no timer is armed.
	ErrNotScheduled = errors.New("no deactivation timer armed")

	// ErrNotActive is returned by operations that require blocking to be
	// active, such as arming the deactivation timer.
	ErrNotActive = errors.New("blocking not active")

	// ErrAlreadyExists is returned when a site is already in the block list.
	ErrAlreadyExists = errors.New("site already in block list")

	// ErrNotFound is returned when a site or schedule does not exist.
	ErrNotFound = errors.New("not found")

	// ErrMutationInFlight rejects a second apply/revert while a
	// privileged hosts mutation is still running. Requests are rejected,
	// never queued, so two writers can never interleave on the hosts file.
	ErrMutationInFlight = errors.New("hosts mutation already in flight")

	// ErrImportParse aborts an import; prior state is left untouched.
	ErrImportParse = errors.New("snapshot could not be parsed")
)

// MutationKind classifies a hosts mutation failure.
type MutationKind string

const (
	// MutationIO covers file read/write/copy failures.
	MutationIO MutationKind = "io"
	// MutationPermission covers a denied or dismissed privilege prompt.
	MutationPermission MutationKind = "permission"
)

// MutationError is a failed hosts-file mutation. The controller surfaces
// it to observers and never retries on its own.
type MutationError struct {
	Kind MutationKind
	Op   string // "apply" or "revert"
	Err  error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("hosts %s failed (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

// NewIOError wraps a file-level failure.
func NewIOError(op string, err error) *MutationError {
	return &MutationError{Kind: MutationIO, Op: op, Err: err}
}

// NewPermissionError wraps a denied privilege escalation.
func NewPermissionError(op string, err error) *MutationError {
	return &MutationError{Kind: MutationPermission, Op: op, Err: err}
}

// IsPermission reports whether err is a privilege-escalation failure.
func IsPermission(err error) bool {
	var me *MutationError
	return errors.As(err, &me) && me.Kind == MutationPermission
}
