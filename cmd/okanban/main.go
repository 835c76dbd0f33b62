// Command okanban is a terminal-resident kanban board that orchestrates
// a per-task development environment: a git worktree, a multiplexer
// session, and a coding-agent process, one triple per card.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"github.com/okanban/okanban/internal/config"
	"github.com/okanban/okanban/internal/logging"
	"github.com/okanban/okanban/internal/muxdriver"
	"github.com/okanban/okanban/internal/orchestrator"
	"github.com/okanban/okanban/internal/store"
)

const schemaVersion = 1

func main() {
	project, args := extractProjectFlag(os.Args[1:])

	if len(args) > 0 {
		switch args[0] {
		case "version", "--version", "-v":
			fmt.Println("okanban (dev build)")
			return
		case "help", "--help", "-h":
			printHelp()
			return
		case "task":
			requireProject(project)
			os.Exit(handleTask(project, args[1:]))
		case "category":
			requireProject(project)
			os.Exit(handleCategory(project, args[1:]))
		case "board":
			requireProject(project)
			os.Exit(handleBoard(project, args[1:]))
		}
	}

	printHelp()
	os.Exit(exitUsage)
}

func printHelp() {
	fmt.Println("Usage: okanban --project <name> <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  task {list,create,move,archive,show}")
	fmt.Println("  category {list,create,update,delete}")
	fmt.Println("  board")
	fmt.Println()
	fmt.Println("Global flags:")
	fmt.Println("  --project <name>   project name (required; selects the data directory)")
	fmt.Println()
	fmt.Println("task/category flags (given after the subcommand):")
	fmt.Println("  --json             emit the stable JSON envelope instead of human text")
	fmt.Println("  --quiet            suppress human-readable success output")
}

// extractProjectFlag pulls --project/-p out of args wherever it appears,
// the same way the teacher's extractProfileFlag lifts -p/--profile
// ahead of subcommand dispatch.
func extractProjectFlag(args []string) (string, []string) {
	var project string
	var remaining []string

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case strings.HasPrefix(arg, "--project="):
			project = strings.TrimPrefix(arg, "--project=")
		case strings.HasPrefix(arg, "-p="):
			project = strings.TrimPrefix(arg, "-p=")
		case arg == "--project" || arg == "-p":
			if i+1 < len(args) {
				project = args[i+1]
				i++
			}
		default:
			remaining = append(remaining, arg)
		}
	}
	return project, remaining
}

func requireProject(project string) {
	if project == "" {
		fmt.Fprintln(os.Stderr, "Error: --project <name> is required")
		os.Exit(exitUsage)
	}
}

// baseDataDir is the root every project's data directory lives under.
func baseDataDir() string {
	if env := os.Getenv("OKANBAN_DATA_DIR"); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".okanban"
	}
	return filepath.Join(home, ".okanban")
}

// projectDataDir resolves --project <name> to its data directory,
// creating it if it does not yet exist.
func projectDataDir(project string) (string, error) {
	dir := filepath.Join(baseDataDir(), "projects", project)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("okanban: create data dir %s: %w", dir, err)
	}
	return dir, nil
}

// app bundles everything a subcommand needs: the wired Orchestrator, the
// Store it owns (closed on Close), and the project's config.
type app struct {
	orch *orchestrator.Orchestrator
	st   *store.Store
	cfg  config.Config
}

func (a *app) Close() {
	_ = a.st.Close()
}

// openApp loads config, opens the Store, and wires an Orchestrator for
// project. Every subcommand handler starts here.
func openApp(project string) (*app, error) {
	dataDir, err := projectDataDir(project)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(dataDir)
	if err != nil {
		return nil, err
	}

	logging.Init(logging.Config{
		LogDir: filepath.Join(dataDir, "logs"),
		Level:  cfg.LogLevel,
		Debug:  os.Getenv("OKANBAN_DEBUG") != "",
	})

	st, err := store.Open(filepath.Join(dataDir, "okanban.db"))
	if err != nil {
		return nil, err
	}

	mux := muxdriver.New(cfg.TmuxSocket)
	orch := orchestrator.New(st, mux, orchestrator.Config{
		WorktreesDir: cfg.WorktreesDir,
		AgentCommand: cfg.AgentCommand,
	})

	return &app{orch: orch, st: st, cfg: cfg}, nil
}

// insideMultiplexer reports whether the current process is attached to
// a multiplexer session, the precondition the board subcommand needs
// (the opposite check from a TUI that refuses to nest: the board is
// meant to live inside the same socket its task sessions share).
func insideMultiplexer() bool {
	if os.Getenv("TMUX") == "" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}
