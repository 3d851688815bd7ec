// Package config resolves taskflow settings from defaults, a TOML file, the
// environment and command-line flags, in that order of priority.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"

	DefaultBackend    = BackendJSON
	DefaultDataDir    = ".taskflow"
	DefaultLogLevel   = "warn"
	DefaultWebAddr    = ":8000"
	DefaultConfigName = "config.toml"
)

var validate = validator.New()

type Config struct {
	Backend      string    `toml:"backend" validate:"required,oneof=json sqlite memory"`
	DataDir      string    `toml:"data_dir" validate:"required"`
	TasksFile    string    `toml:"tasks_file" validate:"required"`
	DBPath       string    `toml:"db_path" validate:"required"`
	Snapshot     bool      `toml:"snapshot"`
	SnapshotPath string    `toml:"snapshot_path" validate:"required_if=Snapshot true"`
	LogLevel     string    `toml:"log_level" validate:"required,oneof=debug info warn error"`
	Web          WebConfig `toml:"web"`

	// ConfigFile is the TOML file that was applied, if any.
	ConfigFile string `toml:"-"`
}

type WebConfig struct {
	Addr string `toml:"addr" validate:"required"`
}

func setDefaults(cfg *Config) {
	cfg.Backend = DefaultBackend
	cfg.DataDir = DefaultDataDir
	cfg.Snapshot = true
	cfg.LogLevel = DefaultLogLevel
	cfg.Web.Addr = DefaultWebAddr
}

// flagValues holds the raw global flags before they are merged.
type flagValues struct {
	configFile   string
	backend      string
	dataDir      string
	tasksFile    string
	dbPath       string
	snapshotPath string
	noSnapshot   bool
	logLevel     string
	addr         string
}

// registerFlags defines the global flags on fset.
func registerFlags(fset *flag.FlagSet, v *flagValues) {
	fset.StringVar(&v.configFile, "config", "", "Path to a TOML config file")
	fset.StringVar(&v.backend, "backend", "", "Storage backend: json, sqlite or memory")
	fset.StringVar(&v.dataDir, "data-dir", "", "Directory for taskflow data")
	fset.StringVar(&v.tasksFile, "tasks-file", "", "Path to the JSON tasks file")
	fset.StringVar(&v.dbPath, "db", "", "Path to the SQLite database")
	fset.StringVar(&v.snapshotPath, "snapshot", "", "Path to the JSON snapshot kept next to the SQLite database")
	fset.BoolVar(&v.noSnapshot, "no-snapshot", false, "Disable the JSON snapshot for the SQLite backend")
	fset.StringVar(&v.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	fset.StringVar(&v.addr, "addr", "", "Listen address for the web server")
}

// Load parses the global flags in args and returns the resolved config along
// with the remaining positional arguments.
func Load(fset *flag.FlagSet, args []string) (*Config, []string, error) {
	if fset == nil {
		fset = flag.NewFlagSet("taskflow", flag.ContinueOnError)
	}

	var fv flagValues
	registerFlags(fset, &fv)
	if err := fset.Parse(args); err != nil {
		return nil, nil, fmt.Errorf("parsing flags: %w", err)
	}
	set := make(map[string]bool)
	fset.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg := &Config{}
	setDefaults(cfg)

	configFile := fv.configFile
	explicit := set["config"]
	if !explicit {
		dataDir := DefaultDataDir
		if set["data-dir"] {
			dataDir = fv.dataDir
		} else if v := os.Getenv("TASKFLOW_DATA_DIR"); v != "" {
			dataDir = v
		}
		configFile = filepath.Join(dataDir, DefaultConfigName)
	}
	if err := loadConfigFile(cfg, configFile, explicit); err != nil {
		return nil, nil, fmt.Errorf("loading config file %s: %w", configFile, err)
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, nil, err
	}

	applyFlags(cfg, &fv, set)
	finalize(cfg)

	if err := validate.Struct(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, fset.Args(), nil
}

// loadConfigFile decodes path into cfg. A missing file is an error only when
// it was asked for explicitly.
func loadConfigFile(cfg *Config, path string, required bool) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return nil
		}
		return err
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return err
	}
	cfg.ConfigFile = path
	return nil
}

func loadFromEnv(cfg *Config) error {
	strs := []struct {
		key    string
		target *string
	}{
		{"TASKFLOW_BACKEND", &cfg.Backend},
		{"TASKFLOW_DATA_DIR", &cfg.DataDir},
		{"TASKFLOW_TASKS_FILE", &cfg.TasksFile},
		{"TASKFLOW_DB_PATH", &cfg.DBPath},
		{"TASKFLOW_SNAPSHOT_PATH", &cfg.SnapshotPath},
		{"TASKFLOW_LOG_LEVEL", &cfg.LogLevel},
		{"TASKFLOW_WEB_ADDR", &cfg.Web.Addr},
	}
	for _, s := range strs {
		if v := os.Getenv(s.key); v != "" {
			*s.target = v
		}
	}

	if v := os.Getenv("TASKFLOW_SNAPSHOT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TASKFLOW_SNAPSHOT: %w", err)
		}
		cfg.Snapshot = b
	}
	return nil
}

func applyFlags(cfg *Config, fv *flagValues, set map[string]bool) {
	if set["backend"] {
		cfg.Backend = fv.backend
	}
	if set["data-dir"] {
		cfg.DataDir = fv.dataDir
	}
	if set["tasks-file"] {
		cfg.TasksFile = fv.tasksFile
	}
	if set["db"] {
		cfg.DBPath = fv.dbPath
	}
	if set["snapshot"] {
		cfg.SnapshotPath = fv.snapshotPath
	}
	if set["no-snapshot"] {
		cfg.Snapshot = !fv.noSnapshot
	}
	if set["log-level"] {
		cfg.LogLevel = fv.logLevel
	}
	if set["addr"] {
		cfg.Web.Addr = fv.addr
	}
}

// finalize fills paths that default to locations inside DataDir.
func finalize(cfg *Config) {
	if cfg.TasksFile == "" {
		cfg.TasksFile = filepath.Join(cfg.DataDir, "tasks.json")
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, "taskflow.db")
	}
	if cfg.SnapshotPath == "" {
		cfg.SnapshotPath = filepath.Join(cfg.DataDir, "snapshot.json")
	}
}
