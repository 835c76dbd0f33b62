package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okanban/okanban/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "okanban.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenSeedsDefaultCategories(t *testing.T) {
	s := openTestStore(t)

	cats, err := s.ListCategories()
	require.NoError(t, err)
	require.Len(t, cats, 3)
	assert.Equal(t, "todo", cats[0].Slug)
	assert.Equal(t, "in-progress", cats[1].Slug)
	assert.Equal(t, "done", cats[2].Slug)
	assert.Equal(t, 0, cats[0].Position)
	assert.Equal(t, 1, cats[1].Position)
	assert.Equal(t, 2, cats[2].Position)
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "okanban.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	cats, err := s2.ListCategories()
	require.NoError(t, err)
	assert.Len(t, cats, 3, "re-opening must not duplicate seeded categories")
}

func mustRepo(t *testing.T, s *Store, path string) *model.Repo {
	t.Helper()
	r := &model.Repo{Path: path, Name: filepath.Base(path), DefaultBase: "main"}
	require.NoError(t, s.CreateRepo(r))
	return r
}

func TestCreateRepoRejectsDuplicatePath(t *testing.T) {
	s := openTestStore(t)
	mustRepo(t, s, "/repos/foo")

	err := s.CreateRepo(&model.Repo{Path: "/repos/foo", Name: "foo"})
	require.Error(t, err)
	assert.True(t, IsConflict(err))
}

func TestCreateCategoryValidatesLength(t *testing.T) {
	s := openTestStore(t)
	longName := ""
	for i := 0; i < model.MaxCategoryNameLen+1; i++ {
		longName += "a"
	}
	err := s.CreateCategory(&model.Category{Name: longName, Slug: "too-long"})
	require.Error(t, err)
	assert.True(t, IsInvariant(err))
}

func TestCreateCategoryAppendsAtEnd(t *testing.T) {
	s := openTestStore(t)
	c := &model.Category{Name: "Review", Slug: "review"}
	require.NoError(t, s.CreateCategory(c))
	assert.Equal(t, 3, c.Position)
}

func TestDeleteCategoryRejectsLastRemaining(t *testing.T) {
	s := openTestStore(t)
	cats, err := s.ListCategories()
	require.NoError(t, err)

	repo := mustRepo(t, s, "/repos/x")
	for _, c := range cats[1:] {
		require.NoError(t, s.DeleteCategory(c.ID))
	}
	_ = repo

	remaining, err := s.ListCategories()
	require.NoError(t, err)
	require.Len(t, remaining, 1)

	err = s.DeleteCategory(remaining[0].ID)
	require.Error(t, err)
	assert.True(t, IsInvariant(err))
}

func TestDeleteCategoryRejectsNonEmpty(t *testing.T) {
	s := openTestStore(t)
	repo := mustRepo(t, s, "/repos/x")
	todo, err := s.GetCategoryBySlug("todo")
	require.NoError(t, err)

	task := &model.Task{Title: "t1", RepoID: repo.ID, Branch: "feature/a", CategoryID: todo.ID}
	require.NoError(t, s.CreateTask(task))

	err = s.DeleteCategory(todo.ID)
	require.Error(t, err)
	assert.True(t, IsInvariant(err))
}

func TestDeleteCategoryRenumbersPositions(t *testing.T) {
	s := openTestStore(t)
	cats, err := s.ListCategories()
	require.NoError(t, err)

	require.NoError(t, s.DeleteCategory(cats[1].ID)) // remove "in-progress"

	remaining, err := s.ListCategories()
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	assert.Equal(t, 0, remaining[0].Position)
	assert.Equal(t, 1, remaining[1].Position)
}

func TestCreateTaskRejectsDuplicateBranch(t *testing.T) {
	s := openTestStore(t)
	repo := mustRepo(t, s, "/repos/x")
	todo, err := s.GetCategoryBySlug("todo")
	require.NoError(t, err)

	task1 := &model.Task{Title: "t1", RepoID: repo.ID, Branch: "feature/a", CategoryID: todo.ID}
	require.NoError(t, s.CreateTask(task1))

	task2 := &model.Task{Title: "t2", RepoID: repo.ID, Branch: "feature/a", CategoryID: todo.ID}
	err = s.CreateTask(task2)
	require.Error(t, err)
	assert.True(t, IsConflict(err))
}

func TestCreateTaskRejectsUnresolvedForeignKeys(t *testing.T) {
	s := openTestStore(t)
	todo, err := s.GetCategoryBySlug("todo")
	require.NoError(t, err)

	task := &model.Task{Title: "t1", RepoID: "missing-repo", Branch: "feature/a", CategoryID: todo.ID}
	err = s.CreateTask(task)
	require.Error(t, err)
	assert.True(t, IsInvariant(err))
}

func TestCreateTaskAssignsContiguousPositions(t *testing.T) {
	s := openTestStore(t)
	repo := mustRepo(t, s, "/repos/x")
	todo, err := s.GetCategoryBySlug("todo")
	require.NoError(t, err)

	for i, branch := range []string{"a", "b", "c"} {
		task := &model.Task{Title: branch, RepoID: repo.ID, Branch: branch, CategoryID: todo.ID}
		require.NoError(t, s.CreateTask(task))
		assert.Equal(t, i, task.Position)
	}
}

func TestMoveTaskAcrossCategoriesRenumbersBoth(t *testing.T) {
	s := openTestStore(t)
	repo := mustRepo(t, s, "/repos/x")
	todo, err := s.GetCategoryBySlug("todo")
	require.NoError(t, err)
	inProgress, err := s.GetCategoryBySlug("in-progress")
	require.NoError(t, err)

	var tasks []*model.Task
	for _, branch := range []string{"a", "b", "c"} {
		task := &model.Task{Title: branch, RepoID: repo.ID, Branch: branch, CategoryID: todo.ID}
		require.NoError(t, s.CreateTask(task))
		tasks = append(tasks, task)
	}

	require.NoError(t, s.MoveTask(tasks[1].ID, inProgress.ID, 0))

	remainingTodo, err := s.listTasksInCategory(todo.ID)
	require.NoError(t, err)
	require.Len(t, remainingTodo, 2)
	assert.Equal(t, 0, remainingTodo[0].Position)
	assert.Equal(t, 1, remainingTodo[1].Position)

	movedList, err := s.listTasksInCategory(inProgress.ID)
	require.NoError(t, err)
	require.Len(t, movedList, 1)
	assert.Equal(t, tasks[1].ID, movedList[0].ID)
	assert.Equal(t, 0, movedList[0].Position)
}

func (s *Store) listTasksInCategory(categoryID string) ([]*model.Task, error) {
	all, err := s.ListTasks()
	if err != nil {
		return nil, err
	}
	var out []*model.Task
	for _, t := range all {
		if t.CategoryID == categoryID {
			out = append(out, t)
		}
	}
	return out, nil
}

func TestUpdateTaskStatusIfNewerDropsStaleSamples(t *testing.T) {
	s := openTestStore(t)
	repo := mustRepo(t, s, "/repos/x")
	todo, err := s.GetCategoryBySlug("todo")
	require.NoError(t, err)

	task := &model.Task{Title: "t1", RepoID: repo.ID, Branch: "a", CategoryID: todo.ID}
	require.NoError(t, s.CreateTask(task))

	stale := task.CreatedAt.Add(-time.Hour)
	written, err := s.UpdateTaskStatusIfNewer(task.ID, model.StatusRunning, model.SourceProbe, "", stale)
	require.NoError(t, err)
	assert.False(t, written)

	got, err := s.GetTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusUnknown, got.TmuxStatus)
}

func TestUpdateTaskStatusIfNewerAppliesFreshSamples(t *testing.T) {
	s := openTestStore(t)
	repo := mustRepo(t, s, "/repos/x")
	todo, err := s.GetCategoryBySlug("todo")
	require.NoError(t, err)

	task := &model.Task{Title: "t1", RepoID: repo.ID, Branch: "a", CategoryID: todo.ID}
	require.NoError(t, s.CreateTask(task))

	fresh := time.Now().UTC().Add(time.Second)
	written, err := s.UpdateTaskStatusIfNewer(task.ID, model.StatusRunning, model.SourceProbe, "", fresh)
	require.NoError(t, err)
	assert.True(t, written)

	got, err := s.GetTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRunning, got.TmuxStatus)
}

func TestUpdateTaskStatusIfNewerCoalescesNoopTransition(t *testing.T) {
	s := openTestStore(t)
	repo := mustRepo(t, s, "/repos/x")
	todo, err := s.GetCategoryBySlug("todo")
	require.NoError(t, err)

	task := &model.Task{Title: "t1", RepoID: repo.ID, Branch: "a", CategoryID: todo.ID}
	require.NoError(t, s.CreateTask(task))

	fresh := time.Now().UTC().Add(time.Second)
	_, err = s.UpdateTaskStatusIfNewer(task.ID, model.StatusRunning, model.SourceProbe, "", fresh)
	require.NoError(t, err)

	afterFirst, err := s.GetTask(task.ID)
	require.NoError(t, err)

	again := fresh.Add(time.Second)
	_, err = s.UpdateTaskStatusIfNewer(task.ID, model.StatusRunning, model.SourceProbe, "", again)
	require.NoError(t, err)

	afterSecond, err := s.GetTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, afterFirst.UpdatedAt, afterSecond.UpdatedAt, "repeated identical status must not bump updated_at")
}

func TestSetArchivedIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	repo := mustRepo(t, s, "/repos/x")
	todo, err := s.GetCategoryBySlug("todo")
	require.NoError(t, err)

	task := &model.Task{Title: "t1", RepoID: repo.ID, Branch: "a", CategoryID: todo.ID}
	require.NoError(t, s.CreateTask(task))

	noop, err := s.SetArchived(task.ID, true)
	require.NoError(t, err)
	assert.False(t, noop)

	noop, err = s.SetArchived(task.ID, true)
	require.NoError(t, err)
	assert.True(t, noop)
}

func TestSnapshotIsConsistent(t *testing.T) {
	s := openTestStore(t)
	repo := mustRepo(t, s, "/repos/x")
	todo, err := s.GetCategoryBySlug("todo")
	require.NoError(t, err)

	task := &model.Task{Title: "t1", RepoID: repo.ID, Branch: "a", CategoryID: todo.ID}
	require.NoError(t, s.CreateTask(task))

	snap, err := s.Snapshot()
	require.NoError(t, err)
	assert.Len(t, snap.Repos, 1)
	assert.Len(t, snap.Categories, 3)
	assert.Len(t, snap.Tasks, 1)

	byCat := snap.TasksByCategory()
	assert.Len(t, byCat[todo.ID], 1)
}

func TestSessionNameTaken(t *testing.T) {
	s := openTestStore(t)
	repo := mustRepo(t, s, "/repos/x")
	todo, err := s.GetCategoryBySlug("todo")
	require.NoError(t, err)

	task := &model.Task{Title: "t1", RepoID: repo.ID, Branch: "a", CategoryID: todo.ID}
	require.NoError(t, s.CreateTask(task))
	require.NoError(t, s.UpdateTaskRuntime(task.ID, "ok-repo-a", "/w/repo/a", ""))

	taken, err := s.SessionNameTaken("ok-repo-a", "some-other-id")
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = s.SessionNameTaken("ok-repo-a", task.ID)
	require.NoError(t, err)
	assert.False(t, taken, "excluding the owning task itself must report not-taken")
}
