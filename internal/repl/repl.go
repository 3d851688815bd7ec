// Package repl is the line-oriented command interface to the task service.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/nick-dorsch/taskflow/internal/service"
)

const Prompt = "taskflow> "

var errUnterminatedQuote = errors.New("unterminated quote")

var bannerStyle = lipgloss.NewStyle().
	Border(lipgloss.DoubleBorder()).
	Padding(0, 4)

// REPL reads commands from in and writes results to out.
type REPL struct {
	svc *service.Service
	in  io.Reader
	out io.Writer
}

func New(svc *service.Service, in io.Reader, out io.Writer) *REPL {
	return &REPL{svc: svc, in: in, out: out}
}

// Run prints the banner and processes lines until exit, quit or end of input.
func (r *REPL) Run(ctx context.Context) error {
	fmt.Fprintln(r.out, bannerStyle.Render("TaskFlow - Task Manager\nType 'help' for commands"))

	scanner := bufio.NewScanner(r.in)
	for {
		fmt.Fprint(r.out, "\n"+Prompt)
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			fmt.Fprintln(r.out, "Goodbye!")
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if quit := r.Execute(ctx, scanner.Text()); quit {
			return nil
		}
	}
}

// Execute runs one input line. Failures are printed, never returned; the
// result reports whether the session should end.
func (r *REPL) Execute(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	name, rest := line, ""
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		name, rest = line[:i], line[i+1:]
	}
	name = strings.ToLower(name)

	if name == "exit" || name == "quit" {
		fmt.Fprintln(r.out, "Goodbye!")
		return true
	}

	cmd, ok := lookup(name)
	if !ok {
		fmt.Fprintf(r.out, "Unknown command: %s. Type 'help' for available commands.\n", name)
		return false
	}

	args, err := splitN(rest, cmd.maxArgs)
	if err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)
		return false
	}
	_ = r.run(ctx, cmd, args)
	return false
}

// RunCommand runs a single command with arguments that are already split,
// as they arrive from the process command line. Arguments past the
// command's last slot are joined into it.
func (r *REPL) RunCommand(ctx context.Context, name string, args []string) error {
	name = strings.ToLower(name)
	cmd, ok := lookup(name)
	if !ok {
		fmt.Fprintf(r.out, "Unknown command: %s. Type 'help' for available commands.\n", name)
		return fmt.Errorf("unknown command %q", name)
	}

	if cmd.maxArgs > 0 && len(args) > cmd.maxArgs {
		last := strings.Join(args[cmd.maxArgs-1:], " ")
		args = append(args[:cmd.maxArgs-1:cmd.maxArgs-1], last)
	}
	return r.run(ctx, cmd, args)
}

func (r *REPL) run(ctx context.Context, cmd *command, args []string) error {
	if len(args) < cmd.minArgs {
		fmt.Fprintf(r.out, "Usage: %s\n", cmd.usage)
		return errUsage
	}
	if err := cmd.run(ctx, r, args); err != nil {
		fmt.Fprintf(r.out, "Error: %s\n", message(err))
		return err
	}
	return nil
}

// message returns the text shown to the user for err.
func message(err error) string {
	switch {
	case errors.Is(err, errInvalidID):
		return "Invalid task ID. Please provide a number."
	case errors.Is(err, errInvalidStatus):
		return "Invalid status. Use: TODO, IN_PROGRESS, or DONE"
	default:
		return err.Error()
	}
}

// splitN splits s into at most n fields. A field may be wrapped in double
// quotes to include whitespace. The last field takes the rest of the line,
// with surrounding quotes removed when it is a single quoted string.
// n <= 0 means no limit.
func splitN(s string, n int) ([]string, error) {
	var fields []string
	rest := strings.TrimSpace(s)
	for rest != "" {
		if n > 0 && len(fields) == n-1 {
			fields = append(fields, unquote(rest))
			break
		}

		field, remaining, err := nextField(rest)
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
		rest = strings.TrimLeft(remaining, " \t")
	}
	return fields, nil
}

func nextField(s string) (field, rest string, err error) {
	if s[0] == '"' {
		end := strings.IndexByte(s[1:], '"')
		if end < 0 {
			return "", "", errUnterminatedQuote
		}
		return s[1 : end+1], s[end+2:], nil
	}
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i], s[i:], nil
	}
	return s, "", nil
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' && !strings.Contains(s[1:len(s)-1], `"`) {
		return s[1 : len(s)-1]
	}
	return s
}
