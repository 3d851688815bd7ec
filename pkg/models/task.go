package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "TODO"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusDone       TaskStatus = "DONE"
)

// Statuses lists every status in lifecycle order.
var Statuses = []TaskStatus{TaskStatusTodo, TaskStatusInProgress, TaskStatusDone}

var (
	ErrInvalidTitle  = errors.New("task title cannot be empty")
	ErrInvalidStatus = errors.New("invalid task status")
)

// displayLayout matches the short created-at form shown in listings.
const displayLayout = "2006-01-02 15:04"

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

// ParseTaskStatus accepts a status name in any case, e.g. "in_progress".
func ParseTaskStatus(s string) (TaskStatus, error) {
	status := TaskStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return status, nil
}

// Task is a unit of work. Identity and creation time are fixed once the task
// is built; title, description and status change only through the setters.
type Task struct {
	id          int
	title       string
	description string
	status      TaskStatus
	createdAt   time.Time
}

// NewTask builds a fresh TODO task stamped with the current time.
func NewTask(id int, title, description string) (*Task, error) {
	return RestoreTask(id, title, description, TaskStatusTodo, time.Now())
}

// RestoreTask rebuilds a task from stored values, keeping status and
// creation time exactly as given.
func RestoreTask(id int, title, description string, status TaskStatus, createdAt time.Time) (*Task, error) {
	t, err := normalizeTitle(title)
	if err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return &Task{
		id:          id,
		title:       t,
		description: strings.TrimSpace(description),
		status:      status,
		createdAt:   createdAt,
	}, nil
}

func normalizeTitle(title string) (string, error) {
	t := strings.TrimSpace(title)
	if t == "" {
		return "", ErrInvalidTitle
	}
	return t, nil
}

func (t Task) ID() int              { return t.id }
func (t Task) Title() string        { return t.title }
func (t Task) Description() string  { return t.description }
func (t Task) Status() TaskStatus   { return t.status }
func (t Task) CreatedAt() time.Time { return t.createdAt }

func (t *Task) SetTitle(title string) error {
	normalized, err := normalizeTitle(title)
	if err != nil {
		return err
	}
	t.title = normalized
	return nil
}

func (t *Task) SetDescription(description string) {
	t.description = strings.TrimSpace(description)
}

// SetStatus assigns the status without checking transitions; the service
// layer owns the state machine.
func (t *Task) SetStatus(status TaskStatus) {
	t.status = status
}

// Equal reports whether both tasks share an id.
func (t Task) Equal(other Task) bool {
	return t.id == other.id
}

func (t Task) FormattedCreatedAt() string {
	return t.createdAt.Format(displayLayout)
}

func (t Task) String() string {
	return fmt.Sprintf("[%d] %s (Status: %s, Created: %s)", t.id, t.title, t.status, t.FormattedCreatedAt())
}
