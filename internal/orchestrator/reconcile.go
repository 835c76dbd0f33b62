package orchestrator

import (
	"os"

	"github.com/okanban/okanban/internal/model"
)

// Reconcile runs the startup reconciliation pass (spec.md §4.G.3): for
// every non-archived task with a tmux session name recorded, it
// determines the task's true current status without ever recreating a
// session, mutating git state, or deleting a row. Running it twice in a
// row against unchanged external state produces identical results
// (spec.md §8 property 7).
func (o *Orchestrator) Reconcile() error {
	tasks, err := o.store.ListTasks()
	if err != nil {
		return mapStoreError("Reconcile", err)
	}

	for _, task := range tasks {
		if task.Archived || task.TmuxSessionName == "" {
			continue
		}
		status, statusErr := o.reconcileOne(task)
		if err := o.store.UpdateTaskStatus(task.ID, status, model.SourceReconcile, statusErr); err != nil {
			log.Warn("reconcile: failed to persist status", "task_id", task.ID, "error", err)
		}
	}
	return nil
}

func (o *Orchestrator) reconcileOne(task *model.Task) (model.Status, string) {
	if task.WorktreePath == "" {
		return model.StatusBroken, "worktree path not recorded"
	}
	if _, err := os.Stat(task.WorktreePath); os.IsNotExist(err) {
		return model.StatusBroken, "worktree missing on disk"
	}

	repo, err := o.store.GetRepo(task.RepoID)
	if err != nil {
		return model.StatusUnavailable, "repo record not found"
	}
	if _, err := os.Stat(repo.Path); os.IsNotExist(err) {
		return model.StatusUnavailable, "repo path missing on disk"
	}

	if !o.mux.Exists(task.TmuxSessionName) {
		return model.StatusDead, ""
	}

	return o.probe.Classify(task.TmuxSessionName), ""
}
