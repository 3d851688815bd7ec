package repl

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nick-dorsch/taskflow/internal/service"
	"github.com/nick-dorsch/taskflow/pkg/models"
)

var (
	errUsage         = errors.New("usage")
	errInvalidID     = errors.New("invalid task id")
	errInvalidStatus = errors.New("invalid status")
)

const (
	ruleWidth     = 70
	titleMaxWidth = 24
)

type command struct {
	name    string
	aliases []string
	usage   string
	summary string
	minArgs int
	// maxArgs is the number of fields the argument text is split into;
	// the last one keeps any remaining words.
	maxArgs int
	run     func(ctx context.Context, r *REPL, args []string) error
}

var commands []*command

func init() {
	commands = []*command{
		{name: "add", usage: "add <title> [description]", summary: "Create a new task", minArgs: 1, maxArgs: 2, run: runAdd},
		{name: "list", usage: "list", summary: "List all tasks", run: runList},
		{name: "start", usage: "start <id>", summary: "Move a task to IN_PROGRESS", minArgs: 1, maxArgs: 1, run: runStart},
		{name: "complete", usage: "complete <id>", summary: "Mark a task as complete", minArgs: 1, maxArgs: 1, run: runComplete},
		{name: "delete", aliases: []string{"rm"}, usage: "delete <id>", summary: "Delete a task", minArgs: 1, maxArgs: 1, run: runDelete},
		{name: "filter", usage: "filter <status> (TODO, IN_PROGRESS, DONE)", summary: "Filter tasks by status (TODO, IN_PROGRESS, DONE)", minArgs: 1, maxArgs: 1, run: runFilter},
		{name: "show", usage: "show <id>", summary: "Show one task with its description", minArgs: 1, maxArgs: 1, run: runShow},
		{name: "rename", usage: "rename <id> <title>", summary: "Change a task's title", minArgs: 2, maxArgs: 2, run: runRename},
		{name: "describe", usage: "describe <id> [description]", summary: "Set or clear a task's description", minArgs: 1, maxArgs: 2, run: runDescribe},
		{name: "status", usage: "status", summary: "Show task counts per status", run: runStatus},
		{name: "help", usage: "help", summary: "Show this help message", run: runHelp},
	}
}

func lookup(name string) (*command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
		for _, a := range c.aliases {
			if a == name {
				return c, true
			}
		}
	}
	return nil, false
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, errInvalidID
	}
	return id, nil
}

func runAdd(ctx context.Context, r *REPL, args []string) error {
	description := ""
	if len(args) > 1 {
		description = args[1]
	}
	task, err := r.svc.Add(ctx, args[0], description)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, "Task created successfully!")
	r.printTask(task)
	return nil
}

func runList(ctx context.Context, r *REPL, args []string) error {
	tasks := r.svc.List(ctx)
	if len(tasks) == 0 {
		fmt.Fprintln(r.out, "No tasks found.")
		return nil
	}
	r.printTable(tasks)
	fmt.Fprintf(r.out, "Total: %d task(s)\n", len(tasks))
	return nil
}

func runStart(ctx context.Context, r *REPL, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	task, err := r.svc.Start(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, "Task started!")
	r.printTask(task)
	return nil
}

func runComplete(ctx context.Context, r *REPL, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	task, err := r.svc.Complete(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, "Task marked as complete!")
	r.printTask(task)
	return nil
}

func runDelete(ctx context.Context, r *REPL, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	task, err := r.svc.Delete(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, "Task deleted!")
	r.printTask(task)
	return nil
}

func runFilter(ctx context.Context, r *REPL, args []string) error {
	status, err := models.ParseTaskStatus(args[0])
	if err != nil {
		return errInvalidStatus
	}

	tasks := r.svc.FilterByStatus(ctx, status)
	if len(tasks) == 0 {
		fmt.Fprintf(r.out, "No tasks found with status: %s\n", status)
		return nil
	}
	r.printTable(tasks)
	fmt.Fprintf(r.out, "Found: %d task(s) with status %s\n", len(tasks), status)
	return nil
}

func runShow(ctx context.Context, r *REPL, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	task, ok := r.svc.Get(ctx, id)
	if !ok {
		return fmt.Errorf("%w: %d", service.ErrNotFound, id)
	}
	r.printTask(task)
	if task.Description() != "" {
		fmt.Fprintf(r.out, "  Description: %s\n", task.Description())
	}
	return nil
}

func runRename(ctx context.Context, r *REPL, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	task, err := r.svc.Rename(ctx, id, args[1])
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, "Task renamed!")
	r.printTask(task)
	return nil
}

func runDescribe(ctx context.Context, r *REPL, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	description := ""
	if len(args) > 1 {
		description = args[1]
	}
	task, err := r.svc.Describe(ctx, id, description)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, "Description updated!")
	r.printTask(task)
	return nil
}

func runStatus(ctx context.Context, r *REPL, args []string) error {
	stats := r.svc.Stats(ctx)
	for _, status := range models.Statuses {
		fmt.Fprintf(r.out, "  %-12s %d\n", status, stats.ByStatus[status])
	}
	fmt.Fprintf(r.out, "Total: %d task(s)\n", stats.Total)
	return nil
}

func runHelp(ctx context.Context, r *REPL, args []string) error {
	fmt.Fprintln(r.out, "Available commands:")
	for _, c := range commands {
		fmt.Fprintf(r.out, "  %-28s - %s\n", c.usage, c.summary)
	}
	fmt.Fprintf(r.out, "  %-28s - %s\n", "exit", "Exit the application")
	return nil
}

func (r *REPL) printTask(task models.Task) {
	fmt.Fprintln(r.out, "  "+task.String())
}

func (r *REPL) printTable(tasks []models.Task) {
	rule := strings.Repeat("─", ruleWidth)
	fmt.Fprintln(r.out, rule)
	fmt.Fprintf(r.out, "%-5s %-25s %-15s %-20s\n", "ID", "Title", "Status", "Created")
	fmt.Fprintln(r.out, rule)
	for _, t := range tasks {
		fmt.Fprintf(r.out, "%-5d %-25s %-15s %-20s\n", t.ID(), truncate(t.Title(), titleMaxWidth), t.Status(), t.FormattedCreatedAt())
	}
	fmt.Fprintln(r.out, rule)
}

// truncate shortens text to at most limit runes, ending in "...".
func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit-3]) + "..."
}
