package db

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nick-dorsch/taskflow/internal/store/jsonfile"
	"github.com/nick-dorsch/taskflow/pkg/models"
)

func TestExportSnapshot(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	created := time.Date(2026, 10, 19, 9, 30, 0, 0, time.Local)
	tasks := []models.Task{
		mustTask(t, 1, "Buy milk", models.TaskStatusDone, created),
		mustTask(t, 2, "Write report", models.TaskStatusTodo, created),
	}
	if err := db.SaveAll(ctx, tasks); err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "out", "snapshot.json")
	if err := db.ExportSnapshot(ctx, path); err != nil {
		t.Fatalf("ExportSnapshot failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read snapshot: %v", err)
	}
	text := string(data)
	for _, want := range []string{`"title": "Buy milk"`, `"status": "DONE"`, `"createdAt": "2026-10-19T09:30:00"`} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %s in snapshot:\n%s", want, text)
		}
	}

	decoded, err := jsonfile.Decode(data)
	if err != nil {
		t.Fatalf("Snapshot is not a valid tasks file: %v", err)
	}
	if len(decoded) != 2 || decoded[0].ID() != 1 || decoded[1].ID() != 2 {
		t.Errorf("Unexpected snapshot contents: %v", decoded)
	}
}

func TestImportSnapshot(t *testing.T) {
	source := openTestDB(t)
	ctx := context.Background()
	now := time.Now()

	tasks := []models.Task{
		mustTask(t, 3, "three", models.TaskStatusInProgress, now),
		mustTask(t, 9, "nine", models.TaskStatusTodo, now),
	}
	if err := source.SaveAll(ctx, tasks); err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := source.ExportSnapshot(ctx, path); err != nil {
		t.Fatalf("ExportSnapshot failed: %v", err)
	}

	target := openTestDB(t)
	n, err := target.ImportSnapshot(ctx, path)
	if err != nil {
		t.Fatalf("ImportSnapshot failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 imported, got %d", n)
	}

	loaded := target.LoadAll(ctx)
	if len(loaded) != 2 || loaded[0].ID() != 3 || loaded[1].ID() != 9 {
		t.Fatalf("Unexpected imported tasks: %v", loaded)
	}
	if loaded[0].Status() != models.TaskStatusInProgress {
		t.Errorf("Expected IN_PROGRESS, got %s", loaded[0].Status())
	}
}

func TestImportSnapshotCorrupt(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := os.WriteFile(path, []byte("not json"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	n, err := db.ImportSnapshot(ctx, path)
	if err != nil {
		t.Fatalf("ImportSnapshot failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected nothing imported, got %d", n)
	}
}
