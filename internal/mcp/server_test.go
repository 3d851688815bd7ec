package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/nick-dorsch/taskflow/internal/service"
	"github.com/nick-dorsch/taskflow/internal/store"
	"github.com/nick-dorsch/taskflow/pkg/models"
)

type taskJSON struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

func newTestService() *service.Service {
	return service.New(context.Background(), nil, log.New(io.Discard))
}

func call(t *testing.T, s *server.MCPServer, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	tool := s.GetTool(name)
	if tool == nil {
		t.Fatalf("Tool %s not found", name)
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := tool.Handler(context.Background(), req)
	if err != nil {
		t.Fatalf("Handler %s failed: %v", name, err)
	}
	return result
}

func text(result *mcp.CallToolResult) string {
	return result.Content[0].(mcp.TextContent).Text
}

func taskFrom(t *testing.T, result *mcp.CallToolResult) taskJSON {
	t.Helper()
	if result.IsError {
		t.Fatalf("Tool returned error: %s", text(result))
	}
	var resp struct {
		Message string   `json:"message"`
		Task    taskJSON `json:"task"`
	}
	if err := json.Unmarshal([]byte(text(result)), &resp); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	return resp.Task
}

func TestServerInitialization(t *testing.T) {
	s := NewServer(newTestService(), "test")
	stdio := server.NewStdioServer(s)

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go func() {
		_ = stdio.Listen(ctx, inR, outW)
		outW.Close()
	}()

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}

	rawReq := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params":  initReq.Params,
	}

	data, err := json.Marshal(rawReq)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}

	go func() {
		inW.Write(append(data, '\n'))
	}()

	lines := make(chan []byte, 1)
	go func() {
		line, _ := bufio.NewReader(outR).ReadBytes('\n')
		lines <- line
	}()

	var line []byte
	select {
	case line = <-lines:
	case <-ctx.Done():
		t.Fatal("Expected response from server, got none")
	}

	var resp struct {
		ID     int `json:"id"`
		Result struct {
			ServerInfo struct {
				Name    string `json:"name"`
				Version string `json:"version"`
			} `json:"serverInfo"`
		} `json:"result"`
	}
	if err := json.Unmarshal(line, &resp); err != nil {
		t.Fatalf("Failed to unmarshal response: %v\nOutput: %s", err, line)
	}

	if resp.ID != 1 {
		t.Errorf("Expected id 1, got %v", resp.ID)
	}
	if resp.Result.ServerInfo.Name != ServerName {
		t.Errorf("Expected server name %s, got %v", ServerName, resp.Result.ServerInfo.Name)
	}
	if resp.Result.ServerInfo.Version != "test" {
		t.Errorf("Expected version test, got %v", resp.Result.ServerInfo.Version)
	}
}

func TestToolHandlers(t *testing.T) {
	svc := newTestService()
	s := NewServer(svc, "test")
	ctx := context.Background()

	t.Run("add_task", func(t *testing.T) {
		task := taskFrom(t, call(t, s, "add_task", map[string]interface{}{
			"title":       "  Buy milk ",
			"description": "two liters",
		}))
		if task.ID != 1 || task.Title != "Buy milk" || task.Status != "TODO" {
			t.Errorf("Unexpected task: %+v", task)
		}
		if svc.Count(ctx) != 1 {
			t.Errorf("Expected 1 task in service, got %d", svc.Count(ctx))
		}
	})

	t.Run("add_task blank title", func(t *testing.T) {
		result := call(t, s, "add_task", map[string]interface{}{"title": "   "})
		if !result.IsError {
			t.Fatal("Expected tool error for blank title")
		}
		if !strings.Contains(text(result), models.ErrInvalidTitle.Error()) {
			t.Errorf("Unexpected error text: %s", text(result))
		}
	})

	t.Run("start and complete", func(t *testing.T) {
		task := taskFrom(t, call(t, s, "start_task", map[string]interface{}{"id": float64(1)}))
		if task.Status != "IN_PROGRESS" {
			t.Errorf("Expected IN_PROGRESS, got %s", task.Status)
		}

		task = taskFrom(t, call(t, s, "complete_task", map[string]interface{}{"id": 1}))
		if task.Status != "DONE" {
			t.Errorf("Expected DONE, got %s", task.Status)
		}

		result := call(t, s, "complete_task", map[string]interface{}{"id": 1})
		if !result.IsError || !strings.Contains(text(result), "already completed") {
			t.Errorf("Expected illegal transition error, got %s", text(result))
		}

		result = call(t, s, "start_task", map[string]interface{}{"id": 1})
		if !result.IsError || !strings.Contains(text(result), "cannot move a completed task back to in-progress") {
			t.Errorf("Expected illegal transition error, got %s", text(result))
		}
	})

	t.Run("invalid ids", func(t *testing.T) {
		for _, id := range []interface{}{1.9, float64(0), -2, "abc", nil} {
			result := call(t, s, "get_task", map[string]interface{}{"id": id})
			if !result.IsError || text(result) != "id must be a positive integer" {
				t.Errorf("id %v: expected invalid id error, got %s", id, text(result))
			}
		}

		result := call(t, s, "delete_task", map[string]interface{}{"id": 1.9})
		if !result.IsError {
			t.Fatalf("Expected fractional id to be rejected, got %s", text(result))
		}
		if result := call(t, s, "get_task", map[string]interface{}{"id": 1}); result.IsError {
			t.Errorf("Expected task 1 to survive, got %s", text(result))
		}
	})

	t.Run("rename and describe", func(t *testing.T) {
		task := taskFrom(t, call(t, s, "rename_task", map[string]interface{}{"id": 1, "title": "Buy oat milk"}))
		if task.Title != "Buy oat milk" {
			t.Errorf("Expected renamed title, got %s", task.Title)
		}

		task = taskFrom(t, call(t, s, "describe_task", map[string]interface{}{"id": 1}))
		if task.Description != "" {
			t.Errorf("Expected cleared description, got %q", task.Description)
		}
	})

	t.Run("list_tasks", func(t *testing.T) {
		taskFrom(t, call(t, s, "add_task", map[string]interface{}{"title": "Write report"}))

		var resp struct {
			Tasks []taskJSON `json:"tasks"`
		}
		result := call(t, s, "list_tasks", map[string]interface{}{})
		if err := json.Unmarshal([]byte(text(result)), &resp); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if len(resp.Tasks) != 2 || resp.Tasks[0].ID != 1 || resp.Tasks[1].ID != 2 {
			t.Errorf("Unexpected tasks: %+v", resp.Tasks)
		}

		result = call(t, s, "list_tasks", map[string]interface{}{"status": "todo"})
		resp.Tasks = nil
		if err := json.Unmarshal([]byte(text(result)), &resp); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if len(resp.Tasks) != 1 || resp.Tasks[0].Title != "Write report" {
			t.Errorf("Unexpected filtered tasks: %+v", resp.Tasks)
		}

		result = call(t, s, "list_tasks", map[string]interface{}{"status": "someday"})
		if !result.IsError {
			t.Error("Expected error for unknown status")
		}
	})

	t.Run("get_task", func(t *testing.T) {
		result := call(t, s, "get_task", map[string]interface{}{"id": 2})
		var task taskJSON
		if err := json.Unmarshal([]byte(text(result)), &task); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if task.Title != "Write report" {
			t.Errorf("Unexpected task: %+v", task)
		}

		result = call(t, s, "get_task", map[string]interface{}{"id": 99})
		if !result.IsError || text(result) != "task not found: 99" {
			t.Errorf("Expected not found error, got %s", text(result))
		}

		result = call(t, s, "get_task", map[string]interface{}{})
		if !result.IsError {
			t.Error("Expected error for missing id")
		}
	})

	t.Run("task_stats", func(t *testing.T) {
		var stats service.Stats
		result := call(t, s, "task_stats", map[string]interface{}{})
		if err := json.Unmarshal([]byte(text(result)), &stats); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if stats.Total != 2 || stats.ByStatus[models.TaskStatusDone] != 1 || stats.ByStatus[models.TaskStatusTodo] != 1 {
			t.Errorf("Unexpected stats: %+v", stats)
		}
	})

	t.Run("delete_task", func(t *testing.T) {
		task := taskFrom(t, call(t, s, "delete_task", map[string]interface{}{"id": 1}))
		if task.ID != 1 {
			t.Errorf("Expected deleted task 1, got %d", task.ID)
		}
		if _, ok := svc.Get(ctx, 1); ok {
			t.Error("Task 1 still present after delete")
		}

		result := call(t, s, "delete_task", map[string]interface{}{"id": 1})
		if !result.IsError {
			t.Error("Expected not found error on second delete")
		}
	})
}

func TestToolsPersistThroughService(t *testing.T) {
	mem := store.NewMemory()
	svc := service.New(context.Background(), mem, log.New(io.Discard))
	s := NewServer(svc, "test")

	taskFrom(t, call(t, s, "add_task", map[string]interface{}{"title": "persisted"}))
	taskFrom(t, call(t, s, "start_task", map[string]interface{}{"id": 1}))

	stored := mem.LoadAll(context.Background())
	if len(stored) != 1 || stored[0].Status() != models.TaskStatusInProgress {
		t.Errorf("Unexpected stored tasks: %v", stored)
	}
}
