package orchestrator

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/okanban/okanban/internal/gitdriver"
	"github.com/okanban/okanban/internal/model"
	"github.com/okanban/okanban/internal/store"
)

// CreateInput describes a new task's creation request. Exactly one of
// CategoryID / CategorySlug may be set; both empty falls back to the
// default category (spec.md §4.G.1 step 2).
type CreateInput struct {
	Title    string
	RepoPath string // absolute path to an existing local git repo
	Branch   string // new branch name

	CategoryID   string
	CategorySlug string

	BaseRef string // optional; falls back to repo.DefaultBase, then git detection

	SwitchClient bool // whether to attach the caller's tmux client after creation
}

// compensation is one already-completed step's undo action, pushed onto
// a stack and unwound in reverse order on any hard failure.
type compensation struct {
	name string
	undo func()
}

// CreateTask runs the full creation pipeline (spec.md §4.G.1): resolve
// repo and category, resolve the base ref, compute a collision-free
// worktree path and session name, create the Task row, create the git
// worktree, create the tmux session, and launch the agent. Any hard
// failure unwinds every already-completed step in reverse order.
func (o *Orchestrator) CreateTask(in CreateInput) (*model.Task, error) {
	if in.Title == "" {
		return nil, newErr(KindUsage, "CreateTask", "title is required", nil)
	}
	if in.Branch == "" {
		return nil, newErr(KindUsage, "CreateTask", "branch is required", nil)
	}
	if in.CategoryID != "" && in.CategorySlug != "" {
		return nil, newErr(KindUsage, "CreateTask", "category_id and category_slug are mutually exclusive", nil)
	}

	repo, err := o.resolveRepoForCreate(in.RepoPath)
	if err != nil {
		return nil, err
	}

	release, ok := o.locks.tryAcquire(repo.ID, in.Branch)
	if !ok {
		return nil, newErr(KindConflict, "CreateTask", "another operation is already in progress for this repo and branch", nil)
	}
	defer release()

	if exists, err := o.store.TaskExistsForBranch(repo.ID, in.Branch); err != nil {
		return nil, mapStoreError("CreateTask", err)
	} else if exists {
		return nil, newErr(KindConflict, "CreateTask", "a task already exists for this repo and branch", nil)
	}

	category, err := o.resolveCategoryForCreate(in.CategoryID, in.CategorySlug)
	if err != nil {
		return nil, err
	}

	baseRef, err := o.resolveBaseRef(repo, in.BaseRef)
	if err != nil {
		return nil, err
	}

	worktreePath := o.computeWorktreePath(repo, in.Branch)
	sessionName := model.DisambiguateSessionName(model.SessionName(repo.Name, in.Branch), func(candidate string) bool {
		taken, _ := o.store.SessionNameTaken(candidate, "")
		return taken
	})

	var stack []compensation
	unwind := func() {
		for i := len(stack) - 1; i >= 0; i-- {
			step := stack[i]
			log.Warn("unwinding creation step", "step", step.name)
			step.undo()
		}
	}

	task := &model.Task{
		ID:         uuid.NewString(),
		Title:      in.Title,
		RepoID:     repo.ID,
		Branch:     in.Branch,
		CategoryID: category.ID,
	}
	if err := o.store.CreateTask(task); err != nil {
		return nil, mapStoreError("CreateTask", err)
	}
	taskID := task.ID
	stack = append(stack, compensation{"insert task row", func() {
		if err := o.store.DeleteTask(taskID); err != nil {
			log.Warn("compensation: delete task row failed", "task_id", taskID, "error", err)
		}
	}})

	// Fetch is best-effort and never aborts the pipeline; a failure here
	// is logged and creation proceeds offline against the local ref.
	if err := gitdriver.Fetch(repo.Path); err != nil {
		log.Warn("fetch failed, proceeding offline", "repo", repo.Path, "error", err)
	}

	if err := gitdriver.CreateWorktree(repo.Path, worktreePath, in.Branch, baseRef); err != nil {
		unwind()
		return nil, mapGitError("CreateTask.create_worktree", err)
	}
	stack = append(stack, compensation{"create worktree", func() {
		if err := gitdriver.RemoveWorktree(repo.Path, worktreePath, true); err != nil {
			log.Warn("compensation: remove worktree failed", "path", worktreePath, "error", err)
		}
	}})

	if err := o.mux.Create(sessionName, worktreePath, ""); err != nil {
		unwind()
		return nil, newErr(KindExternalFatal, "CreateTask.create_session", "tmux session creation failed", err)
	}
	stack = append(stack, compensation{"create tmux session", func() {
		if err := o.mux.Kill(sessionName); err != nil {
			log.Warn("compensation: kill session failed", "session", sessionName, "error", err)
		}
	}})

	// Agent launch is not compensated: it's idempotent from the
	// session's point of view (killing the session above already tears
	// it down), and a launch failure alone shouldn't discard a perfectly
	// good worktree and session.
	if err := o.agent.Launch(sessionName, worktreePath); err != nil {
		log.Warn("agent launch failed", "session", sessionName, "error", err)
	}

	if err := o.store.UpdateTaskRuntime(taskID, sessionName, worktreePath, ""); err != nil {
		unwind()
		return nil, mapStoreError("CreateTask.update_runtime", err)
	}

	if in.SwitchClient {
		if err := o.mux.SwitchClient(sessionName); err != nil {
			log.Warn("switch-client failed", "session", sessionName, "error", err)
		}
	}

	created, err := o.store.GetTask(taskID)
	if err != nil {
		return nil, mapStoreError("CreateTask", err)
	}
	return created, nil
}

// resolveRepoForCreate registers repoPath as a new Repo if it isn't
// already known, detecting its default branch and remote URL.
func (o *Orchestrator) resolveRepoForCreate(repoPath string) (*model.Repo, error) {
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, newErr(KindUsage, "CreateTask.resolve_repo", "invalid repo path", err)
	}
	if !gitdriver.IsValidRepo(abs) {
		return nil, newErr(KindUsage, "CreateTask.resolve_repo", "not a git repository: "+abs, nil)
	}

	existing, err := o.store.GetRepoByPath(abs)
	if err == nil {
		return existing, nil
	}
	if !store.IsNotFound(err) {
		return nil, mapStoreError("CreateTask.resolve_repo", err)
	}

	defaultBase, err := gitdriver.DetectDefaultBranch(abs)
	if err != nil {
		return nil, mapGitError("CreateTask.resolve_repo", err)
	}
	remoteURL, _ := gitdriver.GetRemoteURL(abs)

	repo := &model.Repo{
		ID:          uuid.NewString(),
		Path:        abs,
		Name:        gitdriver.RepoDisplayName(abs),
		DefaultBase: defaultBase,
		RemoteURL:   remoteURL,
	}
	if err := o.store.CreateRepo(repo); err != nil {
		return nil, mapStoreError("CreateTask.resolve_repo", err)
	}
	return repo, nil
}

// resolveCategoryForCreate resolves exactly one selector, falling back
// to the "todo" seed category and then the first category by position.
func (o *Orchestrator) resolveCategoryForCreate(categoryID, categorySlug string) (*model.Category, error) {
	switch {
	case categoryID != "":
		c, err := o.store.GetCategory(categoryID)
		if err != nil {
			return nil, mapStoreError("CreateTask.resolve_category", err)
		}
		return c, nil
	case categorySlug != "":
		c, err := o.store.GetCategoryBySlug(categorySlug)
		if err != nil {
			return nil, mapStoreError("CreateTask.resolve_category", err)
		}
		return c, nil
	}

	if c, err := o.store.GetCategoryBySlug(model.DefaultCategorySlug); err == nil {
		return c, nil
	}
	c, err := o.store.FirstCategoryByPosition()
	if err != nil {
		return nil, mapStoreError("CreateTask.resolve_category", err)
	}
	return c, nil
}

// resolveBaseRef prefers an explicit ref, then the repo's cached default
// branch, then a live git detection.
func (o *Orchestrator) resolveBaseRef(repo *model.Repo, explicit string) (string, error) {
	if explicit != "" {
		if err := gitdriver.ValidateBranchName(explicit); err != nil {
			return "", mapGitError("CreateTask.resolve_base_ref", err)
		}
		return explicit, nil
	}
	if repo.DefaultBase != "" {
		return repo.DefaultBase, nil
	}
	detected, err := gitdriver.DetectDefaultBranch(repo.Path)
	if err != nil {
		return "", mapGitError("CreateTask.resolve_base_ref", err)
	}
	return detected, nil
}

// computeWorktreePath builds {worktrees_dir}/{repo_slug}/{branch_dir},
// disambiguating with a numeric suffix on filesystem collision. A repo
// name with no alphanumeric characters falls back to the name itself.
func (o *Orchestrator) computeWorktreePath(repo *model.Repo, branch string) string {
	repoDir := model.Slugify(repo.Name)
	if repoDir == "" {
		repoDir = repo.Name
	}
	base := filepath.Join(o.config.WorktreesDir, repoDir, model.WorktreeDirName(branch))
	return model.DisambiguatePath(base, func(candidate string) bool {
		_, err := os.Stat(candidate)
		return err == nil
	})
}
