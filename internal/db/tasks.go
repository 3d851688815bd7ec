package db

import (
	"context"
	"fmt"

	"github.com/nick-dorsch/taskflow/pkg/models"
)

// SaveAll replaces the stored collection in one transaction. Row positions
// follow the slice order.
func (db *DB) SaveAll(ctx context.Context, tasks []models.Task) error {
	if err := db.replaceAll(ctx, tasks); err != nil {
		return err
	}

	db.triggerChange(ctx)
	return nil
}

func (db *DB) replaceAll(ctx context.Context, tasks []models.Task) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := writeTasks(ctx, tx, tasks); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tasks: %w", err)
	}
	return nil
}

func writeTasks(ctx context.Context, exec executor, tasks []models.Task) error {
	if _, err := exec.ExecContext(ctx, `DELETE FROM tasks`); err != nil {
		return fmt.Errorf("failed to clear tasks: %w", err)
	}

	for i, t := range tasks {
		_, err := exec.ExecContext(ctx, `
			INSERT INTO tasks (id, position, title, description, status, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			t.ID(), i, t.Title(), t.Description(), string(t.Status()), models.FormatTimestamp(t.CreatedAt()))
		if err != nil {
			return fmt.Errorf("failed to insert task %d: %w", t.ID(), err)
		}
	}
	return nil
}

// LoadAll returns the stored tasks in position order. Read failures and
// invalid rows are logged and yield an empty collection.
func (db *DB) LoadAll(ctx context.Context) []models.Task {
	tasks, err := readTasks(ctx, db.DB)
	if err != nil {
		db.logger.Warn("failed to load tasks from database, starting fresh", "path", db.path, "err", err)
		return []models.Task{}
	}

	db.logger.Debug("loaded tasks", "path", db.path, "count", len(tasks))
	return tasks
}

func readTasks(ctx context.Context, exec executor) ([]models.Task, error) {
	rows, err := exec.QueryContext(ctx, `
		SELECT id, title, description, status, created_at
		FROM tasks
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		var r models.Record
		var status, createdAt string
		if err := rows.Scan(&r.ID, &r.Title, &r.Description, &status, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		r.Status = models.TaskStatus(status)
		if r.CreatedAt, err = models.ParseTimestamp(createdAt); err != nil {
			return nil, fmt.Errorf("task %d: %w", r.ID, err)
		}

		t, err := models.FromRecord(r)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return tasks, nil
}

// Count returns the number of stored tasks.
func (db *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return n, nil
}
