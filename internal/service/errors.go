package service

import (
	"errors"
	"fmt"

	"github.com/nick-dorsch/taskflow/pkg/models"
)

var (
	ErrNotFound          = errors.New("task not found")
	ErrIllegalTransition = errors.New("illegal status transition")
)

// TransitionError describes a rejected status change.
type TransitionError struct {
	ID     int
	From   models.TaskStatus
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("task %d: %s", e.ID, e.Reason)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrIllegalTransition
}

func notFound(id int) error {
	return fmt.Errorf("%w: %d", ErrNotFound, id)
}
