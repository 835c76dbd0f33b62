package orchestrator

import (
	"encoding/json"
	"os"

	"github.com/okanban/okanban/internal/model"
)

// AttachSummary is the short "what am I walking into" summary surfaced
// alongside a successful attach, grounded on the original implementation's
// attach popup (title, repo, branch, session, worktree, and the agent's
// cached todo checklist). Rendering it is the UI layer's concern; the
// Orchestrator only assembles it, since it already holds every field.
type AttachSummary struct {
	Title        string
	RepoName     string
	Branch       string
	SessionName  string
	WorktreePath string
	Todos        []string
}

// AttachResult pairs the (possibly respawned) task with its summary.
type AttachResult struct {
	Task    *model.Task
	Summary *AttachSummary
}

// AttachTask brings a task's session to the foreground, lazily
// respawning it if it has died since it was last observed (spec.md
// §4.G.4). broken and unavailable tasks refuse to attach: the caller
// must run repair steps (re-creating the worktree, re-registering the
// repo) before a session can exist to attach to.
func (o *Orchestrator) AttachTask(taskID string) (*AttachResult, error) {
	task, err := o.store.GetTask(taskID)
	if err != nil {
		return nil, mapStoreError("AttachTask", err)
	}

	release, ok := o.locks.tryAcquire(task.RepoID, task.Branch)
	if !ok {
		return nil, newErr(KindConflict, "AttachTask", "a creation or deletion is already in progress for this repo and branch", nil)
	}
	defer release()

	if task.WorktreePath == "" {
		return nil, newErr(KindConflict, "AttachTask", "task has no worktree recorded", nil)
	}
	if _, statErr := os.Stat(task.WorktreePath); os.IsNotExist(statErr) {
		if err := o.store.UpdateTaskStatus(task.ID, model.StatusBroken, model.SourceReconcile, "worktree missing on disk"); err != nil {
			log.Warn("attach: failed to persist broken status", "task_id", task.ID, "error", err)
		}
		return nil, newErr(KindConflict, "AttachTask", "worktree is missing; task is broken and must be repaired first", nil)
	}

	repo, err := o.store.GetRepo(task.RepoID)
	if err != nil {
		return nil, mapStoreError("AttachTask", err)
	}
	if _, statErr := os.Stat(repo.Path); os.IsNotExist(statErr) {
		if err := o.store.UpdateTaskStatus(task.ID, model.StatusUnavailable, model.SourceReconcile, "repo path missing on disk"); err != nil {
			log.Warn("attach: failed to persist unavailable status", "task_id", task.ID, "error", err)
		}
		return nil, newErr(KindConflict, "AttachTask", "repo path is missing; task is unavailable", nil)
	}

	if task.TmuxSessionName != "" && o.mux.Exists(task.TmuxSessionName) {
		if err := o.mux.SwitchClient(task.TmuxSessionName); err != nil {
			return nil, newErr(KindExternalFatal, "AttachTask", "switch_client failed", err)
		}
		return &AttachResult{Task: task, Summary: buildAttachSummary(task, repo.Name)}, nil
	}

	sessionName := task.TmuxSessionName
	if sessionName == "" {
		return nil, newErr(KindConflict, "AttachTask", "task has no session name recorded", nil)
	}

	if err := o.mux.Create(sessionName, task.WorktreePath, ""); err != nil {
		return nil, newErr(KindExternalFatal, "AttachTask.respawn", "session recreation failed", err)
	}

	if task.OpencodeSessionID != "" {
		if err := o.agent.Resume(sessionName, task.WorktreePath, task.OpencodeSessionID); err != nil {
			log.Warn("attach: resume failed", "session", sessionName, "error", err)
		}
	} else {
		if err := o.agent.Launch(sessionName, task.WorktreePath); err != nil {
			log.Warn("attach: launch failed", "session", sessionName, "error", err)
		}
	}

	if err := o.store.UpdateTaskRuntime(task.ID, sessionName, task.WorktreePath, task.OpencodeSessionID); err != nil {
		return nil, mapStoreError("AttachTask.respawn", err)
	}

	if err := o.mux.SwitchClient(sessionName); err != nil {
		return nil, newErr(KindExternalFatal, "AttachTask", "switch_client failed", err)
	}

	refreshed, err := o.store.GetTask(task.ID)
	if err != nil {
		return nil, mapStoreError("AttachTask", err)
	}
	return &AttachResult{Task: refreshed, Summary: buildAttachSummary(refreshed, repo.Name)}, nil
}

// buildAttachSummary renders task.SessionTodoJSON (a cached opaque blob
// the agent driver may populate from agent-reported progress) as a plain
// checklist. An empty or unparseable blob yields no todos rather than an
// error: the summary is cosmetic, never load-bearing.
func buildAttachSummary(task *model.Task, repoName string) *AttachSummary {
	var todos []string
	if task.SessionTodoJSON != "" {
		_ = json.Unmarshal([]byte(task.SessionTodoJSON), &todos)
	}
	return &AttachSummary{
		Title:        task.Title,
		RepoName:     repoName,
		Branch:       task.Branch,
		SessionName:  task.TmuxSessionName,
		WorktreePath: task.WorktreePath,
		Todos:        todos,
	}
}
