// Package orchestrator implements the Orchestrator described in spec.md
// §4.G: the single-writer state machine that turns a kanban card into a
// git worktree, a tmux session, and a running coding-agent process, and
// keeps their observed status in sync with the Store.
//
// Every exported operation here is meant to run behind a single
// goroutine (or a mutex-serialized caller) per data directory: the
// Store already serializes its own writes transactionally, but the
// multi-step pipelines in this package are not atomic across their
// external side effects, so two concurrent creations for the same
// branch must be prevented at this layer, not the Store's.
package orchestrator

import (
	"github.com/okanban/okanban/internal/agentdriver"
	"github.com/okanban/okanban/internal/gitdriver"
	"github.com/okanban/okanban/internal/logging"
	"github.com/okanban/okanban/internal/muxdriver"
	"github.com/okanban/okanban/internal/statusprobe"
	"github.com/okanban/okanban/internal/store"
)

var log = logging.ForComponent(logging.CompOrchestrator)

// Config configures the Orchestrator's external-effect boundaries. It is
// intentionally narrow: everything else lives in internal/config.Config
// and is read by the caller before constructing this.
type Config struct {
	WorktreesDir string
	AgentCommand string
}

// Orchestrator wires the Store to the three drivers and the status
// prober, and serializes the multi-step operations that touch more than
// one of them.
type Orchestrator struct {
	store  *store.Store
	mux    *muxdriver.Driver
	agent  *agentdriver.Driver
	probe  *statusprobe.Probe
	locks  *branchLocks
	config Config
}

// New builds an Orchestrator. mux and agent are already-constructed
// drivers (the caller owns their lifecycle, e.g. the tmux socket path);
// gitdriver has no per-instance state and is called directly as package
// functions.
func New(st *store.Store, mux *muxdriver.Driver, cfg Config) *Orchestrator {
	agent := agentdriver.New(mux, cfg.AgentCommand)
	return &Orchestrator{
		store:  st,
		mux:    mux,
		agent:  agent,
		probe:  statusprobe.New(mux),
		locks:  newBranchLocks(),
		config: cfg,
	}
}

// mapGitError classifies a gitdriver error onto the Orchestrator's
// taxonomy for a given pipeline step.
func mapGitError(step string, err error) error {
	if err == nil {
		return nil
	}
	if gitdriver.IsWorktreeExists(err) {
		return newErr(KindConflict, step, "worktree path already exists", err)
	}
	if gitdriver.IsTransient(err) {
		return newErr(KindExternalTransient, step, "git operation failed transiently", err)
	}
	return newErr(KindExternalFatal, step, "git operation failed", err)
}

func mapStoreError(step string, err error) error {
	if err == nil {
		return nil
	}
	if store.IsConflict(err) {
		return newErr(KindConflict, step, "store conflict", err)
	}
	if store.IsNotFound(err) {
		return newErr(KindNotFound, step, "store record not found", err)
	}
	if store.IsInvariant(err) {
		return newErr(KindInvariant, step, "store invariant violated", err)
	}
	return newErr(KindIO, step, "store operation failed", err)
}
