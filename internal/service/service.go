// Package service owns the task collection: it assigns ids, enforces the
// status lifecycle and forwards every mutation to the configured store.
package service

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/nick-dorsch/taskflow/internal/store"
	"github.com/nick-dorsch/taskflow/pkg/models"
)

// Service is safe for concurrent use. Each operation, persistence included,
// runs under a single lock.
//
// A failed persist is logged and otherwise ignored: the in-memory collection
// stays authoritative and the operation still returns its result.
type Service struct {
	mu     sync.Mutex
	tasks  []*models.Task
	nextID int
	store  store.Store
	logger *log.Logger
}

// New builds a service. A nil store keeps everything in memory; otherwise the
// stored collection is loaded and id assignment resumes after the highest id.
func New(ctx context.Context, st store.Store, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	s := &Service{nextID: 1, store: st, logger: logger}
	if st == nil {
		return s
	}

	for _, t := range st.LoadAll(ctx) {
		task := t
		s.tasks = append(s.tasks, &task)
		if task.ID() >= s.nextID {
			s.nextID = task.ID() + 1
		}
	}
	logger.Debug("service ready", "count", len(s.tasks), "next_id", s.nextID)
	return s
}

func (s *Service) Add(ctx context.Context, title, description string) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := models.NewTask(s.nextID, title, description)
	if err != nil {
		return models.Task{}, err
	}
	s.nextID++
	s.tasks = append(s.tasks, task)
	s.persist(ctx)
	return *task, nil
}

// List returns a snapshot of every task in insertion order.
func (s *Service) List(ctx context.Context) []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(func(*models.Task) bool { return true })
}

func (s *Service) Get(ctx context.Context, id int) (models.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, t := s.find(id); t != nil {
		return *t, true
	}
	return models.Task{}, false
}

// Start moves a TODO task to IN_PROGRESS.
func (s *Service) Start(ctx context.Context, id int) (models.Task, error) {
	return s.mutate(ctx, id, func(t *models.Task) error {
		switch t.Status() {
		case models.TaskStatusDone:
			return &TransitionError{ID: id, From: t.Status(), Reason: "cannot move a completed task back to in-progress"}
		case models.TaskStatusInProgress:
			return &TransitionError{ID: id, From: t.Status(), Reason: "already in progress"}
		}
		t.SetStatus(models.TaskStatusInProgress)
		return nil
	})
}

// Complete moves a TODO or IN_PROGRESS task to DONE.
func (s *Service) Complete(ctx context.Context, id int) (models.Task, error) {
	return s.mutate(ctx, id, func(t *models.Task) error {
		if t.Status() == models.TaskStatusDone {
			return &TransitionError{ID: id, From: t.Status(), Reason: "already completed"}
		}
		t.SetStatus(models.TaskStatusDone)
		return nil
	})
}

func (s *Service) Rename(ctx context.Context, id int, title string) (models.Task, error) {
	return s.mutate(ctx, id, func(t *models.Task) error {
		return t.SetTitle(title)
	})
}

func (s *Service) Describe(ctx context.Context, id int, description string) (models.Task, error) {
	return s.mutate(ctx, id, func(t *models.Task) error {
		t.SetDescription(description)
		return nil
	})
}

// Delete removes the task and returns it.
func (s *Service) Delete(ctx context.Context, id int) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, t := s.find(id)
	if t == nil {
		return models.Task{}, notFound(id)
	}
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	s.persist(ctx)
	return *t, nil
}

func (s *Service) FilterByStatus(ctx context.Context, status models.TaskStatus) []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(func(t *models.Task) bool { return t.Status() == status })
}

func (s *Service) Count(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Stats counts tasks per status. Every status is present, zero or not.
type Stats struct {
	Total    int                       `json:"total"`
	ByStatus map[models.TaskStatus]int `json:"by_status"`
}

func (s *Service) Stats(ctx context.Context) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{Total: len(s.tasks), ByStatus: make(map[models.TaskStatus]int, len(models.Statuses))}
	for _, status := range models.Statuses {
		stats.ByStatus[status] = 0
	}
	for _, t := range s.tasks {
		stats.ByStatus[t.Status()]++
	}
	return stats
}

// mutate applies fn to the task with the given id. The change is kept and
// persisted only when fn succeeds.
func (s *Service) mutate(ctx context.Context, id int, fn func(*models.Task) error) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, t := s.find(id)
	if t == nil {
		return models.Task{}, notFound(id)
	}

	updated := *t
	if err := fn(&updated); err != nil {
		return *t, err
	}
	*t = updated
	s.persist(ctx)
	return updated, nil
}

func (s *Service) find(id int) (int, *models.Task) {
	for i, t := range s.tasks {
		if t.ID() == id {
			return i, t
		}
	}
	return -1, nil
}

func (s *Service) snapshot(keep func(*models.Task) bool) []models.Task {
	out := make([]models.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if keep(t) {
			out = append(out, *t)
		}
	}
	return out
}

func (s *Service) persist(ctx context.Context) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveAll(ctx, s.snapshot(func(*models.Task) bool { return true })); err != nil {
		s.logger.Error("failed to persist tasks", "count", len(s.tasks), "err", err)
	}
}
