package workflow

import (
	"errors"
	"fmt"

	"github.com/openkcm/compliance-hub/internal/errs"
)

var (
	ErrInvalidTransition = errors.New("invalid tenant lifecycle transition")
	ErrUnknownState      = errors.New("tenant statuses do not map to a lifecycle state")
)

// NewTransitionError names the refused event and the state it was fired in.
func NewTransitionError(event Event, from State) error {
	return errs.Wrapf(ErrInvalidTransition, fmt.Sprintf("%s is not allowed in %s", event, from))
}
