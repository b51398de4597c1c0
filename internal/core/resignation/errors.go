package resignation

import (
	"errors"
	"fmt"
)

var (
	ErrMissingField              = errors.New("resignation: missing required field")
	ErrWeekendNotAllowed         = errors.New("resignation: intended last working day falls on a weekend")
	ErrHolidayNotAllowed         = errors.New("resignation: intended last working day falls on a public holiday")
	ErrDuplicateActiveRequest    = errors.New("resignation: a pending or approved request already exists")
	ErrInvalidExitDate           = errors.New("resignation: exit date must be a valid date after today")
	ErrInvalidStateTransition    = errors.New("resignation: invalid state transition")
	ErrNotFoundOrUnauthorized    = errors.New("resignation: not found or unauthorized")
	ErrInterviewNotYetEligible   = errors.New("resignation: exit interview requires an approved resignation")
	ErrInterviewAlreadyCompleted = errors.New("resignation: exit interview already completed")
	ErrResignationNotFound       = errors.New("resignation: not found")
	ErrInvalidID                 = errors.New("resignation: invalid id")
	ErrInvalidActor              = errors.New("resignation: invalid actor")
	ErrForbiddenRole             = errors.New("resignation: role not permitted")
	ErrInvalidStatus             = errors.New("resignation: invalid status")
	ErrInvalidPageSize           = errors.New("resignation: invalid page size")
	ErrInvalidPageToken          = errors.New("resignation: invalid page token")
	ErrStatusChangedConcurrently = errors.New("resignation: status changed concurrently")
)

// StateTransitionError は Pending 以外の申請への承認・却下を表します。
// errors.Is(err, ErrInvalidStateTransition) が成立します。
type StateTransitionError struct {
	Current Status
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("resignation: invalid state transition: resignation is already %s", e.Current)
}

// Is は ErrInvalidStateTransition との比較を可能にします。
func (e *StateTransitionError) Is(target error) bool {
	return target == ErrInvalidStateTransition
}

func newStateTransitionError(current Status) error {
	return &StateTransitionError{Current: current}
}
