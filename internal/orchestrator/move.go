package orchestrator

// MoveTask relocates a task to categoryID at position, renumbering both
// the source and destination categories (spec.md §4.G.6). It is a thin
// wrapper: the Store already performs the move transactionally, so the
// Orchestrator's only job is exposing it behind the same typed-error
// boundary as every other operation.
func (o *Orchestrator) MoveTask(taskID, categoryID string, position int) error {
	if err := o.store.MoveTask(taskID, categoryID, position); err != nil {
		return mapStoreError("MoveTask", err)
	}
	return nil
}

// ReorderWithinCategory applies a full new ordering for one category.
func (o *Orchestrator) ReorderWithinCategory(categoryID string, orderedIDs []string) error {
	if err := o.store.ReorderWithinCategory(categoryID, orderedIDs); err != nil {
		return mapStoreError("ReorderWithinCategory", err)
	}
	return nil
}

// SetArchived archives or unarchives a task, idempotently.
func (o *Orchestrator) SetArchived(taskID string, archived bool) (bool, error) {
	wasNoop, err := o.store.SetArchived(taskID, archived)
	if err != nil {
		return false, mapStoreError("SetArchived", err)
	}
	return wasNoop, nil
}
