package orchestrator

import (
	"github.com/okanban/okanban/internal/model"
	"github.com/okanban/okanban/internal/store"
)

// GetTask returns a single task by id.
func (o *Orchestrator) GetTask(taskID string) (*model.Task, error) {
	t, err := o.store.GetTask(taskID)
	if err != nil {
		return nil, mapStoreError("GetTask", err)
	}
	return t, nil
}

// ListTasks returns every task, including archived ones; callers filter.
func (o *Orchestrator) ListTasks() ([]*model.Task, error) {
	tasks, err := o.store.ListTasks()
	if err != nil {
		return nil, mapStoreError("ListTasks", err)
	}
	return tasks, nil
}

// Snapshot returns the full board view (repos, categories, tasks) the
// board UI and `task list` both render from.
func (o *Orchestrator) Snapshot() (*store.Snapshot, error) {
	snap, err := o.store.Snapshot()
	if err != nil {
		return nil, mapStoreError("Snapshot", err)
	}
	return snap, nil
}
