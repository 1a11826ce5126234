package board

import "errors"

// State is a phase of the day-switch state machine.
type State int

const (
	// StateClean means the current day's pending state matches the server.
	StateClean State = iota
	// StateDirty means the current day has unsaved changes.
	StateDirty
	// StateSaving means a batch save is in flight.
	StateSaving
	// StateConfirmingDiscard means a day change is waiting on save-or-discard.
	StateConfirmingDiscard
)

func (s State) String() string {
	switch s {
	case StateClean:
		return "clean"
	case StateDirty:
		return "dirty"
	case StateSaving:
		return "saving"
	case StateConfirmingDiscard:
		return "confirming_discard"
	}
	return "unknown"
}

var (
	// ErrNotOpen is returned before Open has loaded the board.
	ErrNotOpen = errors.New("board is not open")
	// ErrSaveInProgress is returned while a save is in flight.
	ErrSaveInProgress = errors.New("a save is already in progress")
	// ErrConfirmationPending is returned while a day change awaits save-or-discard.
	ErrConfirmationPending = errors.New("a day change is waiting for save or discard")
	// ErrNoDayChange is returned when resolving a day change that was never requested.
	ErrNoDayChange = errors.New("no day change is pending")
	// ErrMissingTeacher aborts a save that cannot attribute an operation to a teacher.
	ErrMissingTeacher = errors.New("cannot determine the teacher for this save")
	// ErrInvalidDay rejects navigation outside Monday to Saturday.
	ErrInvalidDay = errors.New("day must be between 0 (Monday) and 5 (Saturday)")
)
