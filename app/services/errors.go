package services

import "errors"

var (
	// ErrNotPersisted is returned by attachment operations on a model the
	// backend has not stored yet.
	ErrNotPersisted = errors.New("services: model is not saved yet")

	// ErrUnknownPhoto is returned when a photo id is not in the set.
	ErrUnknownPhoto = errors.New("services: photo not in set")

	// ErrNotConfirmed is returned when a destructive action was declined.
	ErrNotConfirmed = errors.New("services: action not confirmed")

	// ErrBusy is returned by a set configured to reject concurrent mutations.
	ErrBusy = errors.New("services: another change is in progress")

	// ErrSystemCategory is returned on rename/delete of a built-in category.
	ErrSystemCategory = errors.New("services: system category cannot be changed")

	// ErrUnknownCategory is returned when a category id does not exist.
	ErrUnknownCategory = errors.New("services: category not found")

	// ErrNoEditBuffer is returned when no spec row is open for editing.
	ErrNoEditBuffer = errors.New("services: no spec is being edited")

	// ErrIndexOutOfRange is returned for a spec position outside the list.
	ErrIndexOutOfRange = errors.New("services: index out of range")
)

// ConfirmFunc asks the operator to approve a destructive action described
// by prompt. A nil ConfirmFunc never approves.
type ConfirmFunc func(prompt string) bool

func confirmed(confirm ConfirmFunc, prompt string) bool {
	return confirm != nil && confirm(prompt)
}

// AlwaysConfirm approves every prompt; used for --yes.
func AlwaysConfirm(string) bool { return true }
