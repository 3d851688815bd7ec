package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/nick-dorsch/taskflow/internal/config"
	"github.com/nick-dorsch/taskflow/internal/db"
	"github.com/nick-dorsch/taskflow/internal/logging"
	"github.com/nick-dorsch/taskflow/internal/mcp"
	"github.com/nick-dorsch/taskflow/internal/repl"
	"github.com/nick-dorsch/taskflow/internal/server"
	"github.com/nick-dorsch/taskflow/internal/service"
	"github.com/nick-dorsch/taskflow/internal/store"
	"github.com/nick-dorsch/taskflow/internal/store/jsonfile"
	"github.com/nick-dorsch/taskflow/internal/ui"
)

var version = "dev"

// errReported marks failures whose message was already printed.
var errReported = errors.New("command failed")

// Overridden in tests.
var (
	runMenu  = ui.RunMenu
	runBoard = ui.RunBoard
	serveMCP = mcp.Serve
)

const usageHeader = `Usage: taskflow [flags] [command] [arguments]

Running taskflow with no command opens the launcher menu.

Commands:
  repl        Start the interactive prompt
  board       Open the interactive status board
  web         Serve the web board and JSON API
  mcp         Serve the task tools over MCP on stdio
  init        Create the data directory and storage
  version     Print the version
  help        Show this help

Any task command below also runs once from the command line,
e.g. taskflow add "Buy milk" "two liters".

`

func main() {
	if err := execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

type app struct {
	cfg    *config.Config
	logger *log.Logger
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func execute(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fset := flag.NewFlagSet("taskflow", flag.ContinueOnError)
	fset.SetOutput(stderr)
	fset.Usage = func() { printUsage(stderr, fset) }

	cfg, rest, err := config.Load(fset, args)
	if err != nil {
		return err
	}

	logOpts := logging.DefaultOptions()
	logOpts.Level = cfg.LogLevel
	logOpts.Output = stderr

	a := &app{
		cfg:    cfg,
		logger: logging.New(logOpts),
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}
	if cfg.ConfigFile != "" {
		a.logger.Debug("loaded config file", "path", cfg.ConfigFile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var command string
	if len(rest) == 0 {
		selected, err := runMenu()
		if err != nil {
			return fmt.Errorf("running menu: %w", err)
		}
		if selected == "" {
			return nil
		}
		command = selected
	} else {
		command, rest = rest[0], rest[1:]
	}

	switch command {
	case "help", "-h", "--help":
		printUsage(stdout, fset)
		return nil
	case "version":
		fmt.Fprintf(stdout, "taskflow %s\n", version)
		return nil
	case "init":
		return a.runInit(ctx)
	}

	svc, closeStore, err := a.openService(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	switch command {
	case "repl":
		return repl.New(svc, a.stdin, a.stdout).Run(ctx)
	case "board":
		return runBoard(ctx, svc)
	case "web":
		return a.runWeb(ctx, svc)
	case "mcp":
		return serveMCP(mcp.NewServer(svc, version))
	default:
		if err := repl.New(svc, a.stdin, a.stdout).RunCommand(ctx, command, rest); err != nil {
			return fmt.Errorf("%w: %v", errReported, err)
		}
		return nil
	}
}

func printUsage(w io.Writer, fset *flag.FlagSet) {
	fmt.Fprint(w, usageHeader)
	_ = repl.New(nil, nil, w).RunCommand(context.Background(), "help", nil)
	fmt.Fprintln(w, "\nFlags:")
	fset.SetOutput(w)
	fset.PrintDefaults()
}

// openService builds the configured store and the service on top of it. The
// returned func releases the store.
func (a *app) openService(ctx context.Context) (*service.Service, func(), error) {
	var (
		st      store.Store
		closeFn = func() {}
	)

	switch a.cfg.Backend {
	case config.BackendJSON:
		st = jsonfile.New(a.cfg.TasksFile, a.logger)
	case config.BackendSQLite:
		database, err := a.openDB(ctx)
		if err != nil {
			return nil, nil, err
		}
		if a.cfg.Snapshot {
			database.EnableAutoSnapshot(a.cfg.SnapshotPath)
		}
		st = database
		closeFn = func() {
			if err := database.Close(); err != nil {
				a.logger.Warn("failed to close database", "err", err)
			}
		}
	case config.BackendMemory:
		st = store.NewMemory()
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", a.cfg.Backend)
	}

	a.logger.Debug("opening task store", "backend", a.cfg.Backend)
	return service.New(ctx, st, a.logger), closeFn, nil
}

func (a *app) openDB(ctx context.Context) (*db.DB, error) {
	database, err := db.Open(a.cfg.DBPath, a.logger)
	if err != nil {
		return nil, err
	}
	if err := database.Init(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return database, nil
}

func (a *app) runInit(ctx context.Context) error {
	dataDir := a.cfg.DataDir
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", dataDir, err)
	}
	fmt.Fprintf(a.stdout, "✓ Created %s/ directory\n", dataDir)

	gitignorePath := filepath.Join(dataDir, ".gitignore")
	if err := os.WriteFile(gitignorePath, []byte("*.db*\n*.tmp\n"), 0644); err != nil {
		return fmt.Errorf("failed to create .gitignore: %w", err)
	}
	fmt.Fprintf(a.stdout, "✓ Created %s\n", gitignorePath)

	switch a.cfg.Backend {
	case config.BackendJSON:
		if _, err := os.Stat(a.cfg.TasksFile); errors.Is(err, os.ErrNotExist) {
			if err := jsonfile.New(a.cfg.TasksFile, a.logger).SaveAll(ctx, nil); err != nil {
				return fmt.Errorf("failed to create tasks file: %w", err)
			}
			fmt.Fprintf(a.stdout, "✓ Created tasks file at %s\n", a.cfg.TasksFile)
		}

	case config.BackendSQLite:
		database, err := a.openDB(ctx)
		if err != nil {
			return err
		}
		defer database.Close()
		fmt.Fprintf(a.stdout, "✓ Initialized database at %s\n", a.cfg.DBPath)

		if a.cfg.Snapshot {
			if err := a.restoreSnapshot(ctx, database); err != nil {
				return err
			}
		}
	}

	fmt.Fprintln(a.stdout, "✓ TaskFlow initialized successfully")
	return nil
}

// restoreSnapshot fills an empty database from the snapshot file, if one
// exists. A database that already holds tasks is left alone.
func (a *app) restoreSnapshot(ctx context.Context, database *db.DB) error {
	if _, err := os.Stat(a.cfg.SnapshotPath); err != nil {
		return nil
	}

	count, err := database.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		a.logger.Info("database not empty, skipping snapshot import", "count", count)
		return nil
	}

	n, err := database.ImportSnapshot(ctx, a.cfg.SnapshotPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "✓ Imported %d task(s) from %s\n", n, a.cfg.SnapshotPath)
	return nil
}

func (a *app) runWeb(ctx context.Context, svc *service.Service) error {
	srv := server.NewServer(svc, a.logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(a.cfg.Web.Addr)
	}()
	fmt.Fprintf(a.stdout, "Serving TaskFlow on %s (Ctrl+C to stop)\n", a.cfg.Web.Addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down web server: %w", err)
	}
	return nil
}
