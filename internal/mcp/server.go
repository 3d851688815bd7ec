package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/nick-dorsch/taskflow/internal/service"
	"github.com/nick-dorsch/taskflow/pkg/models"
)

const ServerName = "taskflow"

// NewServer creates a new MCP server exposing the task service as tools.
func NewServer(svc *service.Service, version string) *server.MCPServer {
	s := server.NewMCPServer(ServerName, version)

	s.AddTool(mcp.NewTool("add_task",
		mcp.WithDescription("Create a new task in TODO status."),
		mcp.WithString("title", mcp.Description("Task title (must not be blank)"), mcp.Required()),
		mcp.WithString("description", mcp.Description("Optional task description")),
	), addTaskHandler(svc))

	s.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List tasks in creation order, optionally filtered by status."),
		mcp.WithString("status", mcp.Description("Filter by status (TODO|IN_PROGRESS|DONE)")),
	), listTasksHandler(svc))

	s.AddTool(mcp.NewTool("get_task",
		mcp.WithDescription("Get a single task by id."),
		mcp.WithNumber("id", mcp.Description("Task id"), mcp.Required()),
	), getTaskHandler(svc))

	s.AddTool(mcp.NewTool("start_task",
		mcp.WithDescription("Move a TODO task to IN_PROGRESS."),
		mcp.WithNumber("id", mcp.Description("Task id"), mcp.Required()),
	), taskOpHandler(svc.Start, "Task started"))

	s.AddTool(mcp.NewTool("complete_task",
		mcp.WithDescription("Mark a TODO or IN_PROGRESS task as DONE."),
		mcp.WithNumber("id", mcp.Description("Task id"), mcp.Required()),
	), taskOpHandler(svc.Complete, "Task completed"))

	s.AddTool(mcp.NewTool("delete_task",
		mcp.WithDescription("Delete a task."),
		mcp.WithNumber("id", mcp.Description("Task id"), mcp.Required()),
	), taskOpHandler(svc.Delete, "Task deleted"))

	s.AddTool(mcp.NewTool("rename_task",
		mcp.WithDescription("Change a task's title."),
		mcp.WithNumber("id", mcp.Description("Task id"), mcp.Required()),
		mcp.WithString("title", mcp.Description("New title (must not be blank)"), mcp.Required()),
	), renameTaskHandler(svc))

	s.AddTool(mcp.NewTool("describe_task",
		mcp.WithDescription("Set a task's description. An empty description clears it."),
		mcp.WithNumber("id", mcp.Description("Task id"), mcp.Required()),
		mcp.WithString("description", mcp.Description("New description")),
	), describeTaskHandler(svc))

	s.AddTool(mcp.NewTool("task_stats",
		mcp.WithDescription("Count tasks per status."),
	), taskStatsHandler(svc))

	return s
}

// Serve starts the MCP server on stdio.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func taskResult(message string, task models.Task) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]any{"message": message, "task": task})
}

// requireID reads the id argument, rejecting missing, fractional or
// non-positive values.
func requireID(request mcp.CallToolRequest) (int, error) {
	raw, err := request.RequireFloat("id")
	if err != nil || raw <= 0 || raw != math.Trunc(raw) {
		return 0, fmt.Errorf("id must be a positive integer")
	}
	return int(raw), nil
}

func addTaskHandler(svc *service.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		title := mcp.ParseString(request, "title", "")
		description := mcp.ParseString(request, "description", "")

		task, err := svc.Add(ctx, title, description)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return taskResult("Task created", task)
	}
}

func listTasksHandler(svc *service.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]any)
		raw, ok := args["status"].(string)
		if !ok || raw == "" {
			return jsonResult(map[string]any{"tasks": svc.List(ctx)})
		}

		status, err := models.ParseTaskStatus(raw)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{"tasks": svc.FilterByStatus(ctx, status)})
	}
}

func getTaskHandler(svc *service.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := requireID(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		task, ok := svc.Get(ctx, id)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("%v: %d", service.ErrNotFound, id)), nil
		}
		return jsonResult(task)
	}
}

func taskOpHandler(op func(context.Context, int) (models.Task, error), message string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := requireID(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		task, err := op(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return taskResult(message, task)
	}
}

func renameTaskHandler(svc *service.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := requireID(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		task, err := svc.Rename(ctx, id, mcp.ParseString(request, "title", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return taskResult("Task renamed", task)
	}
}

func describeTaskHandler(svc *service.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := requireID(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		task, err := svc.Describe(ctx, id, mcp.ParseString(request, "description", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return taskResult("Description updated", task)
	}
}

func taskStatsHandler(svc *service.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(svc.Stats(ctx))
	}
}
