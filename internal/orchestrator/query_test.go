package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTaskReturnsCreatedTask(t *testing.T) {
	requireGit(t)
	requireTmux(t)
	o, _, _ := testOrchestrator(t)

	repoDir := t.TempDir()
	initTestRepo(t, repoDir)

	created, err := o.CreateTask(CreateInput{Title: "query me", RepoPath: repoDir, Branch: "feature/query"})
	require.NoError(t, err)

	fetched, err := o.GetTask(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, "query me", fetched.Title)
}

func TestGetTaskNotFound(t *testing.T) {
	o, _, _ := testOrchestrator(t)

	_, err := o.GetTask("does-not-exist")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestListTasksIncludesEveryCreatedTask(t *testing.T) {
	requireGit(t)
	requireTmux(t)
	o, _, _ := testOrchestrator(t)

	repoDir := t.TempDir()
	initTestRepo(t, repoDir)

	a, err := o.CreateTask(CreateInput{Title: "first", RepoPath: repoDir, Branch: "feature/first"})
	require.NoError(t, err)
	b, err := o.CreateTask(CreateInput{Title: "second", RepoPath: repoDir, Branch: "feature/second"})
	require.NoError(t, err)

	tasks, err := o.ListTasks()
	require.NoError(t, err)

	var ids []string
	for _, tk := range tasks {
		ids = append(ids, tk.ID)
	}
	assert.Contains(t, ids, a.ID)
	assert.Contains(t, ids, b.ID)
}

func TestSnapshotReturnsReposCategoriesAndTasks(t *testing.T) {
	requireGit(t)
	requireTmux(t)
	o, _, _ := testOrchestrator(t)

	repoDir := t.TempDir()
	initTestRepo(t, repoDir)

	task, err := o.CreateTask(CreateInput{Title: "snap", RepoPath: repoDir, Branch: "feature/snap"})
	require.NoError(t, err)

	snap, err := o.Snapshot()
	require.NoError(t, err)
	assert.NotEmpty(t, snap.Categories)
	assert.NotEmpty(t, snap.Repos)

	found := false
	for _, tk := range snap.Tasks {
		if tk.ID == task.ID {
			found = true
		}
	}
	assert.True(t, found)
}
