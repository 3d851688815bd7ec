// Package jsonfile stores the task collection as a flat JSON array on disk.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	embedschema "github.com/nick-dorsch/taskflow/embed/jsonschema"
	"github.com/nick-dorsch/taskflow/pkg/models"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

var tasksSchema = jsonschema.MustCompileString(embedschema.TasksURL, embedschema.Tasks)

// Store implements store.Store on top of a single JSON file.
type Store struct {
	path   string
	logger *log.Logger
}

func New(path string, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{path: path, logger: logger}
}

func (s *Store) Path() string {
	return s.path
}

// SaveAll replaces the file contents atomically using a temporary file in the
// same directory.
func (s *Store) SaveAll(ctx context.Context, tasks []models.Task) error {
	records := make([]models.Record, 0, len(tasks))
	for _, t := range tasks {
		records = append(records, t.Record())
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal tasks: %w", err)
	}
	data = append(data, '\n')

	return writeAtomic(s.path, data)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create tasks directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if tempFile != nil {
			tempFile.Close()
			os.Remove(tempFile.Name())
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		return fmt.Errorf("failed to write tasks: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	filename := tempFile.Name()
	tempFile = nil

	if err := os.Rename(filename, path); err != nil {
		os.Remove(filename)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// LoadAll reads the file. A missing or blank file is an empty collection;
// unreadable or invalid content is logged and also treated as empty.
func (s *Store) LoadAll(ctx context.Context) []models.Task {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []models.Task{}
	}
	if err != nil {
		s.logger.Warn("failed to read tasks file, starting fresh", "path", s.path, "err", err)
		return []models.Task{}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return []models.Task{}
	}

	tasks, err := Decode(data)
	if err != nil {
		s.logger.Warn("failed to parse tasks file, starting fresh", "path", s.path, "err", err)
		return []models.Task{}
	}

	s.logger.Debug("loaded tasks", "path", s.path, "count", len(tasks))
	return tasks
}

// Decode validates data against the tasks schema and rebuilds every record.
func Decode(data []byte) ([]models.Task, error) {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	if err := tasksSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	var records []models.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}

	tasks := make([]models.Task, 0, len(records))
	seen := make(map[int]bool, len(records))
	for _, r := range records {
		if seen[r.ID] {
			return nil, fmt.Errorf("duplicate task id %d", r.ID)
		}
		seen[r.ID] = true

		t, err := models.FromRecord(r)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, nil
}
