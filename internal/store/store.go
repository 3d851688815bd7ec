// Package store defines the persistence boundary for the task collection.
package store

import (
	"context"
	"sync"

	"github.com/nick-dorsch/taskflow/pkg/models"
)

// Store durably keeps a flat, ordered collection of tasks.
//
// SaveAll overwrites the whole backing store. LoadAll never fails: a missing,
// empty or corrupt store loads as an empty collection.
type Store interface {
	SaveAll(ctx context.Context, tasks []models.Task) error
	LoadAll(ctx context.Context) []models.Task
}

// Memory is an in-process Store, mostly useful in tests.
type Memory struct {
	mu    sync.Mutex
	tasks []models.Task
	saves int

	// SaveErr, when set, is returned by every SaveAll call and the
	// stored collection is left untouched.
	SaveErr error
}

func NewMemory(tasks ...models.Task) *Memory {
	return &Memory{tasks: append([]models.Task(nil), tasks...)}
}

func (m *Memory) SaveAll(ctx context.Context, tasks []models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saves++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.tasks = append(m.tasks[:0:0], tasks...)
	return nil
}

func (m *Memory) LoadAll(ctx context.Context) []models.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Task{}, m.tasks...)
}

// Saves returns how many times SaveAll was called, failed calls included.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
