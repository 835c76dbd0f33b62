// Package config loads and saves okanban's TOML user configuration.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/okanban/okanban/internal/logging"
)

var log = logging.ForComponent(logging.CompCLI)

// FileName is the config file's name within the data directory.
const FileName = "config.toml"

// Config is okanban's user-facing configuration.
type Config struct {
	// WorktreesDir is the base directory new task worktrees are created
	// under: {worktrees_dir}/{repo_slug}/{branch_dir}, where branch_dir is
	// the branch with "/" and spaces replaced by "-". Defaults to
	// {data_dir}/worktrees.
	WorktreesDir string `toml:"worktrees_dir"`

	// TmuxSocket is the control socket name MuxDriver pins every
	// invocation to.
	TmuxSocket string `toml:"tmux_socket"`

	// AgentCommand is the coding-agent binary AgentDriver launches.
	AgentCommand string `toml:"agent_command"`

	// PollIntervalSeconds is loaded and saved with the rest of the file,
	// but the status probe loop does not read it: its base tick is a
	// fixed 3 seconds.
	PollIntervalSeconds int `toml:"poll_interval_seconds"`

	// MaxTasksBeforeScaling is the live-task count above which the probe
	// loop starts throttling via a rate limiter instead of polling every
	// task every tick.
	MaxTasksBeforeScaling int `toml:"max_tasks_before_scaling"`

	// LogLevel is "debug", "info", "warn", or "error".
	LogLevel string `toml:"log_level"`
}

// Default returns the configuration used when no config.toml exists yet,
// rooted at dataDir.
func Default(dataDir string) Config {
	return Config{
		WorktreesDir:          filepath.Join(dataDir, "worktrees"),
		TmuxSocket:            "opencode-kanban",
		AgentCommand:          "opencode",
		PollIntervalSeconds:   3,
		MaxTasksBeforeScaling: 20,
		LogLevel:              "info",
	}
}

// Path returns the config file path within dataDir.
func Path(dataDir string) string {
	return filepath.Join(dataDir, FileName)
}

// Load reads config.toml from dataDir, returning Default(dataDir) with
// zero-value fields filled in if the file does not yet exist.
func Load(dataDir string) (Config, error) {
	cfg := Default(dataDir)

	path := Path(dataDir)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	var onDisk Config
	if _, err := toml.DecodeFile(path, &onDisk); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}

	applyOverrides(&cfg, onDisk)
	return cfg, nil
}

// applyOverrides copies every non-zero field of onDisk over defaults,
// so a config.toml only naming one field doesn't blank out the rest.
func applyOverrides(defaults *Config, onDisk Config) {
	if onDisk.WorktreesDir != "" {
		defaults.WorktreesDir = onDisk.WorktreesDir
	}
	if onDisk.TmuxSocket != "" {
		defaults.TmuxSocket = onDisk.TmuxSocket
	}
	if onDisk.AgentCommand != "" {
		defaults.AgentCommand = onDisk.AgentCommand
	}
	if onDisk.PollIntervalSeconds != 0 {
		defaults.PollIntervalSeconds = onDisk.PollIntervalSeconds
	}
	if onDisk.MaxTasksBeforeScaling != 0 {
		defaults.MaxTasksBeforeScaling = onDisk.MaxTasksBeforeScaling
	}
	if onDisk.LogLevel != "" {
		defaults.LogLevel = onDisk.LogLevel
	}
}

// Save writes cfg to dataDir/config.toml, creating dataDir if needed.
func Save(dataDir string, cfg Config) error {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return fmt.Errorf("config: mkdir %s: %w", dataDir, err)
	}

	var buf bytes.Buffer
	buf.WriteString("# okanban configuration\n\n")

	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}

	path := Path(dataDir)
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}

	log.Debug("saved config", "path", path)
	return nil
}
