package db

import (
	"context"
	"fmt"

	"github.com/nick-dorsch/taskflow/internal/store/jsonfile"
)

// EnableAutoSnapshot sets up a hook that exports a snapshot to path after
// every successful write. Export failures are logged, never returned.
func (db *DB) EnableAutoSnapshot(path string) {
	db.SetOnChange(func(ctx context.Context) {
		if err := db.ExportSnapshot(ctx, path); err != nil {
			db.logger.Warn("failed to export snapshot", "path", path, "err", err)
		}
	})
}

// ExportSnapshot writes every stored task to path in the tasks file format.
func (db *DB) ExportSnapshot(ctx context.Context, path string) error {
	tasks, err := readTasks(ctx, db.DB)
	if err != nil {
		return err
	}

	if err := jsonfile.New(path, db.logger).SaveAll(ctx, tasks); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	db.logger.Debug("exported snapshot", "path", path, "count", len(tasks))
	return nil
}

// ImportSnapshot replaces the stored tasks with the contents of a snapshot
// file and returns how many were imported. A missing or corrupt snapshot
// imports as empty.
func (db *DB) ImportSnapshot(ctx context.Context, path string) (int, error) {
	tasks := jsonfile.New(path, db.logger).LoadAll(ctx)

	if err := db.replaceAll(ctx, tasks); err != nil {
		return 0, fmt.Errorf("failed to import snapshot: %w", err)
	}

	db.logger.Info("imported snapshot", "path", path, "count", len(tasks))
	db.triggerChange(ctx)
	return len(tasks), nil
}
