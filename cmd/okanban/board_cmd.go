package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/okanban/okanban/internal/dbwatch"
	"github.com/okanban/okanban/internal/logging"
	"github.com/okanban/okanban/internal/ui"
)

var log = logging.ForComponent(logging.CompCLI)

// handleBoard launches the interactive kanban board. It requires the
// calling terminal to already be inside a multiplexer session: the
// board and every task's session share one socket, and attaching from
// outside the multiplexer would have nothing to switch-client into.
func handleBoard(project string, args []string) int {
	if !insideMultiplexer() {
		fmt.Fprintln(os.Stderr, "Error: okanban board must be run inside a multiplexer session.")
		fmt.Fprintln(os.Stderr, "Start one first, e.g.: tmux new-session -s okanban")
		return exitUsage
	}

	a, err := openApp(project)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitIO
	}
	defer a.Close()

	// Startup reconciliation (spec.md §4.G.3): before the board renders
	// anything, resolve every task's true status against external state
	// so a prior crash never leaves a stale status on screen.
	if err := a.orch.Reconcile(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: startup reconciliation failed: %v\n", err)
		return exitIO
	}

	dataDir, err := projectDataDir(project)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitIO
	}

	var watcher *dbwatch.Watcher
	if w, err := dbwatch.New(filepath.Join(dataDir, "okanban.db")); err == nil {
		watcher = w
		defer watcher.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if watcher != nil {
		go watcher.Run(ctx)
	}
	go func() {
		if err := a.orch.RunProbeLoop(ctx, a.cfg.MaxTasksBeforeScaling); err != nil && ctx.Err() == nil {
			log.Warn("board: probe loop exited", "error", err)
		}
	}()

	model := ui.New(a.orch, watcher)
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: board exited: %v\n", err)
		return exitIO
	}
	return exitOK
}
