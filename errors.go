package smr

import (
	"errors"
	"fmt"
)

var (
	// ErrEngineClosed is returned when registering on a closed engine.
	ErrEngineClosed = errors.New("smr: engine closed")

	// ErrParticipantsActive is returned by Close while handles remain
	// registered.
	ErrParticipantsActive = errors.New("smr: participants still registered")
)

// TooManyParticipantsError indicates the configured participant limit was
// reached. Registration can be retried after another handle deregisters.
type TooManyParticipantsError struct {
	Limit int
}

func (e *TooManyParticipantsError) Error() string {
	return fmt.Sprintf("smr: participant limit %d reached", e.Limit)
}
