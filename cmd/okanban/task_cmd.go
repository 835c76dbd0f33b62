package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/okanban/okanban/internal/model"
	"github.com/okanban/okanban/internal/orchestrator"
)

func handleTask(project string, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: okanban task {list,create,move,archive,show} [options]")
		return exitUsage
	}

	switch args[0] {
	case "list":
		return taskList(project, args[1:])
	case "create":
		return taskCreate(project, args[1:])
	case "move":
		return taskMove(project, args[1:])
	case "archive":
		return taskArchive(project, args[1:])
	case "show":
		return taskShow(project, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown task subcommand %q\n", args[0])
		return exitUsage
	}
}

func taskList(project string, args []string) int {
	fs := flag.NewFlagSet("task list", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "emit JSON envelope")
	quiet := fs.Bool("quiet", false, "suppress human output")
	includeArchived := fs.Bool("archived", false, "include archived tasks")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	a, err := openApp(project)
	if err != nil {
		return newOutput("task list", project, *jsonOut, *quiet).Fail(err)
	}
	defer a.Close()
	out := newOutput("task list", project, *jsonOut, *quiet)

	tasks, err := a.orch.ListTasks()
	if err != nil {
		return out.Fail(err)
	}
	if !*includeArchived {
		tasks = filterArchived(tasks)
	}

	out.Data(tasks, func() {
		for _, t := range tasks {
			fmt.Printf("%s  %-10s  %-20s  %s\n", t.ID[:8], t.TmuxStatus, t.Title, t.Branch)
		}
	})
	return exitOK
}

func filterArchived(tasks []*model.Task) []*model.Task {
	var out []*model.Task
	for _, t := range tasks {
		if !t.Archived {
			out = append(out, t)
		}
	}
	return out
}

func taskCreate(project string, args []string) int {
	fs := flag.NewFlagSet("task create", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "emit JSON envelope")
	quiet := fs.Bool("quiet", false, "suppress human output")
	title := fs.String("title", "", "task title")
	repoPath := fs.String("repo", "", "path to an existing local git repository")
	branch := fs.String("branch", "", "new branch name")
	baseRef := fs.String("base-ref", "", "base ref to branch from (defaults to repo default)")
	categoryID := fs.String("category-id", "", "target category id")
	categorySlug := fs.String("category-slug", "", "target category slug")
	switchClient := fs.Bool("attach", false, "switch the calling terminal to the new session")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	out := newOutput("task create", project, *jsonOut, *quiet)

	if *categoryID != "" && *categorySlug != "" {
		return out.Fail(usageErrorf("--category-id and --category-slug are mutually exclusive"))
	}

	a, err := openApp(project)
	if err != nil {
		return out.Fail(err)
	}
	defer a.Close()

	task, err := a.orch.CreateTask(orchestrator.CreateInput{
		Title:        *title,
		RepoPath:     *repoPath,
		Branch:       *branch,
		BaseRef:      *baseRef,
		CategoryID:   *categoryID,
		CategorySlug: *categorySlug,
		SwitchClient: *switchClient,
	})
	if err != nil {
		return out.Fail(err)
	}

	out.Data(task, func() {
		fmt.Printf("created task %s (%s) on %s\n", task.ID, task.Title, task.Branch)
	})
	return exitOK
}

func taskMove(project string, args []string) int {
	fs := flag.NewFlagSet("task move", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "emit JSON envelope")
	quiet := fs.Bool("quiet", false, "suppress human output")
	taskID := fs.String("id", "", "task id")
	categoryID := fs.String("category-id", "", "target category id")
	categorySlug := fs.String("category-slug", "", "target category slug")
	position := fs.Int("position", 0, "target 0-indexed position within the category")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	out := newOutput("task move", project, *jsonOut, *quiet)

	if *categoryID != "" && *categorySlug != "" {
		return out.Fail(usageErrorf("--category-id and --category-slug are mutually exclusive"))
	}
	if *taskID == "" {
		return out.Fail(usageErrorf("--id is required"))
	}

	a, err := openApp(project)
	if err != nil {
		return out.Fail(err)
	}
	defer a.Close()

	targetCategoryID := *categoryID
	if targetCategoryID == "" && *categorySlug != "" {
		cats, err := a.orch.ListCategories()
		if err != nil {
			return out.Fail(err)
		}
		for _, c := range cats {
			if c.Slug == *categorySlug {
				targetCategoryID = c.ID
				break
			}
		}
		if targetCategoryID == "" {
			return out.Fail(notFoundErrorf("no category with slug %q", *categorySlug))
		}
	}
	if targetCategoryID == "" {
		return out.Fail(usageErrorf("one of --category-id or --category-slug is required"))
	}

	if err := a.orch.MoveTask(*taskID, targetCategoryID, *position); err != nil {
		return out.Fail(err)
	}

	task, err := a.orch.GetTask(*taskID)
	if err != nil {
		return out.Fail(err)
	}
	out.Data(task, func() {
		fmt.Printf("moved task %s to category %s at position %d\n", task.ID, task.CategoryID, task.Position)
	})
	return exitOK
}

func taskArchive(project string, args []string) int {
	fs := flag.NewFlagSet("task archive", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "emit JSON envelope")
	quiet := fs.Bool("quiet", false, "suppress human output")
	taskID := fs.String("id", "", "task id")
	unarchive := fs.Bool("unarchive", false, "restore a previously archived task")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	out := newOutput("task archive", project, *jsonOut, *quiet)
	if *taskID == "" {
		return out.Fail(usageErrorf("--id is required"))
	}

	a, err := openApp(project)
	if err != nil {
		return out.Fail(err)
	}
	defer a.Close()

	wasNoop, err := a.orch.SetArchived(*taskID, !*unarchive)
	if err != nil {
		return out.Fail(err)
	}

	out.Data(map[string]interface{}{"task_id": *taskID, "archived": !*unarchive, "was_noop": wasNoop}, func() {
		verb := "archived"
		if *unarchive {
			verb = "unarchived"
		}
		fmt.Printf("%s task %s\n", verb, *taskID)
	})
	return exitOK
}

func taskShow(project string, args []string) int {
	fs := flag.NewFlagSet("task show", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "emit JSON envelope")
	quiet := fs.Bool("quiet", false, "suppress human output")
	taskID := fs.String("id", "", "task id")
	attach := fs.Bool("attach", false, "also switch the calling terminal to the task's session")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	out := newOutput("task show", project, *jsonOut, *quiet)
	if *taskID == "" {
		return out.Fail(usageErrorf("--id is required"))
	}

	a, err := openApp(project)
	if err != nil {
		return out.Fail(err)
	}
	defer a.Close()

	if *attach {
		result, err := a.orch.AttachTask(*taskID)
		if err != nil {
			return out.Fail(err)
		}
		out.Data(result, func() {
			printAttachSummary(result.Summary)
		})
		return exitOK
	}

	task, err := a.orch.GetTask(*taskID)
	if err != nil {
		return out.Fail(err)
	}
	out.Data(task, func() {
		fmt.Printf("%s  %s\n", task.ID, task.Title)
		fmt.Printf("  branch:   %s\n", task.Branch)
		fmt.Printf("  status:   %s (%s)\n", task.TmuxStatus, task.StatusSource)
		fmt.Printf("  worktree: %s\n", task.WorktreePath)
		fmt.Printf("  session:  %s\n", task.TmuxSessionName)
	})
	return exitOK
}

func printAttachSummary(s *orchestrator.AttachSummary) {
	if s == nil {
		return
	}
	fmt.Printf("%s — %s (%s)\n", s.Title, s.RepoName, s.Branch)
	fmt.Printf("  session:  %s\n", s.SessionName)
	fmt.Printf("  worktree: %s\n", s.WorktreePath)
	if len(s.Todos) > 0 {
		fmt.Println("  todo:")
		for _, t := range s.Todos {
			fmt.Printf("    - %s\n", t)
		}
	}
}
