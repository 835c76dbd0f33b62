package orchestrator

import "github.com/okanban/okanban/internal/gitdriver"

// DeleteOptions selects which external cleanup steps DeleteTask
// performs before removing the Task row. Each is independent: any
// combination is valid, including all false (row-only delete).
type DeleteOptions struct {
	KillSession   bool
	RemoveWorktree bool
	DeleteBranch  bool
}

// DeleteReport records the outcome of each requested cleanup step.
// Errors here are non-fatal to the overall operation: DeleteTask always
// attempts every requested step and only withholds the row delete if at
// least one step failed.
type DeleteReport struct {
	SessionKilled    bool
	WorktreeRemoved  bool
	BranchDeleted    bool
	RowDeleted       bool
	Errors           []string
}

// DeleteTask removes a task's external resources in a fixed order
// (session, then worktree, then branch), accumulating any step errors
// into the report and continuing regardless. The Task row itself is
// only deleted once every requested step has completed without error;
// otherwise the row is retained so a retry can pick up where it left
// off (spec.md §4.G.2).
func (o *Orchestrator) DeleteTask(taskID string, opts DeleteOptions) (*DeleteReport, error) {
	task, err := o.store.GetTask(taskID)
	if err != nil {
		return nil, mapStoreError("DeleteTask", err)
	}

	release, ok := o.locks.tryAcquire(task.RepoID, task.Branch)
	if !ok {
		return nil, newErr(KindConflict, "DeleteTask", "another operation is already in progress for this repo and branch", nil)
	}
	defer release()

	repo, err := o.store.GetRepo(task.RepoID)
	if err != nil {
		return nil, mapStoreError("DeleteTask", err)
	}

	report := &DeleteReport{}
	allOK := true

	if opts.KillSession && task.TmuxSessionName != "" {
		if err := o.mux.Kill(task.TmuxSessionName); err != nil {
			report.Errors = append(report.Errors, "kill_session: "+err.Error())
			allOK = false
		} else {
			report.SessionKilled = true
		}
	}

	if opts.RemoveWorktree && task.WorktreePath != "" {
		if err := gitdriver.RemoveWorktree(repo.Path, task.WorktreePath, true); err != nil {
			report.Errors = append(report.Errors, "remove_worktree: "+err.Error())
			allOK = false
		} else {
			report.WorktreeRemoved = true
		}
	}

	if opts.DeleteBranch {
		if err := gitdriver.DeleteBranch(repo.Path, task.Branch); err != nil {
			report.Errors = append(report.Errors, "delete_branch: "+err.Error())
			allOK = false
		} else {
			report.BranchDeleted = true
		}
	}

	if !allOK {
		return report, newErr(KindExternalFatal, "DeleteTask", "one or more cleanup steps failed; task row retained", nil)
	}

	if err := o.store.DeleteTask(taskID); err != nil {
		report.Errors = append(report.Errors, "delete_row: "+err.Error())
		return report, mapStoreError("DeleteTask", err)
	}
	report.RowDeleted = true

	return report, nil
}
