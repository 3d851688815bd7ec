package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/server"
	"github.com/nick-dorsch/taskflow/internal/service"
	"github.com/nick-dorsch/taskflow/internal/store/jsonfile"
	"github.com/nick-dorsch/taskflow/pkg/models"
)

// setup isolates a test from the caller's working directory and environment.
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, key := range []string{
		"TASKFLOW_BACKEND", "TASKFLOW_DATA_DIR", "TASKFLOW_TASKS_FILE", "TASKFLOW_DB_PATH",
		"TASKFLOW_SNAPSHOT", "TASKFLOW_SNAPSHOT_PATH", "TASKFLOW_LOG_LEVEL", "TASKFLOW_WEB_ADDR",
	} {
		t.Setenv(key, "")
	}
	return dir
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := execute(args, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, "", args...)
	if err != nil {
		t.Fatalf("execute %v failed: %v\noutput: %s", args, err, out)
	}
	return out
}

func TestOneShotCommandsPersistJSON(t *testing.T) {
	setup(t)

	out := mustRun(t, "add", "Buy milk", "two", "liters")
	if !strings.Contains(out, "Task created successfully!") {
		t.Fatalf("unexpected add output: %s", out)
	}

	if _, err := os.Stat(filepath.Join(".taskflow", "tasks.json")); err != nil {
		t.Fatalf("expected tasks file to be written: %v", err)
	}

	mustRun(t, "start", "1")
	out = mustRun(t, "show", "1")
	if !strings.Contains(out, "Buy milk") || !strings.Contains(out, "IN_PROGRESS") || !strings.Contains(out, "two liters") {
		t.Errorf("unexpected show output: %s", out)
	}

	out = mustRun(t, "add", "Second")
	if !strings.Contains(out, "[2] Second") {
		t.Errorf("expected id 2 after reload, got: %s", out)
	}
}

func TestOneShotCommandFailure(t *testing.T) {
	setup(t)

	out, err := run(t, "", "complete", "42")
	if !errors.Is(err, errReported) {
		t.Fatalf("expected reported error, got %v", err)
	}
	if !strings.Contains(out, "Error: task not found: 42") {
		t.Errorf("unexpected output: %s", out)
	}

	out, err = run(t, "", "frobnicate")
	if !errors.Is(err, errReported) {
		t.Fatalf("expected reported error, got %v", err)
	}
	if !strings.Contains(out, "Unknown command: frobnicate.") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestMemoryBackendForgets(t *testing.T) {
	setup(t)

	mustRun(t, "--backend", "memory", "add", "gone soon")
	out := mustRun(t, "--backend", "memory", "list")
	if !strings.Contains(out, "No tasks found.") {
		t.Errorf("expected empty list from a fresh memory backend, got: %s", out)
	}
	if _, err := os.Stat(".taskflow"); !os.IsNotExist(err) {
		t.Errorf("memory backend should not touch the data dir: %v", err)
	}
}

func TestInitJSON(t *testing.T) {
	setup(t)

	out := mustRun(t, "init")
	if !strings.Contains(out, "✓ TaskFlow initialized successfully") {
		t.Errorf("unexpected init output: %s", out)
	}

	content, err := os.ReadFile(filepath.Join(".taskflow", ".gitignore"))
	if err != nil {
		t.Fatalf("failed to read .gitignore: %v", err)
	}
	if string(content) != "*.db*\n*.tmp\n" {
		t.Errorf(".gitignore content mismatch: got %q", string(content))
	}

	data, err := os.ReadFile(filepath.Join(".taskflow", "tasks.json"))
	if err != nil {
		t.Fatalf("expected tasks file: %v", err)
	}
	if strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("expected empty task array, got %q", string(data))
	}
}

func TestInitKeepsExistingTasksFile(t *testing.T) {
	setup(t)

	mustRun(t, "add", "keep me")
	out := mustRun(t, "init")
	if strings.Contains(out, "Created tasks file") {
		t.Errorf("init should not recreate an existing tasks file: %s", out)
	}

	out = mustRun(t, "list")
	if !strings.Contains(out, "keep me") {
		t.Errorf("expected task to survive init, got: %s", out)
	}
}

func TestInitSQLiteImportsSnapshot(t *testing.T) {
	setup(t)

	snapshot := filepath.Join(".taskflow", "snapshot.json")
	created := time.Date(2024, 5, 1, 8, 0, 0, 0, time.Local)
	first, err := models.RestoreTask(1, "from snapshot", "", models.TaskStatusDone, created)
	if err != nil {
		t.Fatal(err)
	}
	second, err := models.RestoreTask(5, "another", "", models.TaskStatusTodo, created)
	if err != nil {
		t.Fatal(err)
	}
	if err := jsonfile.New(snapshot, log.New(bytes.NewBuffer(nil))).SaveAll(context.Background(), []models.Task{*first, *second}); err != nil {
		t.Fatalf("failed to write snapshot: %v", err)
	}

	out := mustRun(t, "--backend", "sqlite", "init")
	if !strings.Contains(out, "✓ Imported 2 task(s)") {
		t.Errorf("expected snapshot import, got: %s", out)
	}
	if _, err := os.Stat(filepath.Join(".taskflow", "taskflow.db")); err != nil {
		t.Errorf("database file was not created: %v", err)
	}

	out = mustRun(t, "--backend", "sqlite", "add", "after import")
	if !strings.Contains(out, "[6] after import") {
		t.Errorf("expected ids to resume after 5, got: %s", out)
	}

	out = mustRun(t, "--backend", "sqlite", "init")
	if strings.Contains(out, "Imported") {
		t.Errorf("init should not import into a non-empty database: %s", out)
	}
}

func TestSQLiteAutoSnapshot(t *testing.T) {
	setup(t)

	mustRun(t, "--backend", "sqlite", "add", "snap me")

	data, err := os.ReadFile(filepath.Join(".taskflow", "snapshot.json"))
	if err != nil {
		t.Fatalf("expected snapshot after write: %v", err)
	}
	if !strings.Contains(string(data), "snap me") {
		t.Errorf("snapshot missing task: %s", data)
	}

	mustRun(t, "--backend", "sqlite", "--no-snapshot", "add", "unsnapped")
	data, err = os.ReadFile(filepath.Join(".taskflow", "snapshot.json"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "unsnapped") {
		t.Errorf("snapshot should not update with --no-snapshot: %s", data)
	}
}

func TestREPLCommand(t *testing.T) {
	setup(t)

	out, err := run(t, "add \"Write report\"\nlist\nexit\n", "repl")
	if err != nil {
		t.Fatalf("repl failed: %v", err)
	}
	for _, want := range []string{"TaskFlow - Task Manager", "Task created successfully!", "Write report", "Goodbye!"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output: %s", want, out)
		}
	}
}

func TestNoArgsUsesMenu(t *testing.T) {
	setup(t)

	original := runMenu
	t.Cleanup(func() { runMenu = original })

	runMenu = func() (string, error) { return "status", nil }
	out := mustRun(t)
	if !strings.Contains(out, "Total: 0 task(s)") {
		t.Errorf("expected status output from menu choice, got: %s", out)
	}

	runMenu = func() (string, error) { return "", nil }
	if out := mustRun(t); out != "" {
		t.Errorf("expected no output when the menu is dismissed, got: %s", out)
	}

	runMenu = func() (string, error) { return "", errors.New("no tty") }
	if _, err := run(t, ""); err == nil || !strings.Contains(err.Error(), "no tty") {
		t.Errorf("expected menu error, got %v", err)
	}
}

func TestBoardAndMCPUseService(t *testing.T) {
	setup(t)
	mustRun(t, "add", "visible")

	originalBoard, originalMCP := runBoard, serveMCP
	t.Cleanup(func() { runBoard, serveMCP = originalBoard, originalMCP })

	var boardCount int
	runBoard = func(ctx context.Context, svc *service.Service) error {
		boardCount = svc.Count(ctx)
		return nil
	}
	mustRun(t, "board")
	if boardCount != 1 {
		t.Errorf("expected board to see 1 task, got %d", boardCount)
	}

	var tools int
	serveMCP = func(s *server.MCPServer) error {
		if s.GetTool("add_task") != nil {
			tools++
		}
		return nil
	}
	mustRun(t, "mcp")
	if tools == 0 {
		t.Error("expected mcp server with registered tools")
	}
}

func TestHelpAndVersion(t *testing.T) {
	setup(t)

	out := mustRun(t, "help")
	for _, want := range []string{"Usage: taskflow", "Available commands:", "-backend", "-data-dir", "-no-snapshot"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in help output: %s", want, out)
		}
	}

	out = mustRun(t, "version")
	if out != "taskflow dev\n" {
		t.Errorf("unexpected version output: %q", out)
	}
}

func TestInvalidConfig(t *testing.T) {
	setup(t)

	_, err := run(t, "", "--backend", "postgres", "list")
	if err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Errorf("expected invalid config error, got %v", err)
	}

	_, err = run(t, "", "--bogus")
	if err == nil {
		t.Error("expected error for unknown flag")
	}
}
