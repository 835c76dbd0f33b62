package main

import (
	"flag"
	"fmt"
	"os"
)

func handleCategory(project string, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: okanban category {list,create,update,delete} [options]")
		return exitUsage
	}

	switch args[0] {
	case "list":
		return categoryList(project, args[1:])
	case "create":
		return categoryCreate(project, args[1:])
	case "update":
		return categoryUpdate(project, args[1:])
	case "delete":
		return categoryDelete(project, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown category subcommand %q\n", args[0])
		return exitUsage
	}
}

func categoryList(project string, args []string) int {
	fs := flag.NewFlagSet("category list", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "emit JSON envelope")
	quiet := fs.Bool("quiet", false, "suppress human output")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	out := newOutput("category list", project, *jsonOut, *quiet)

	a, err := openApp(project)
	if err != nil {
		return out.Fail(err)
	}
	defer a.Close()

	cats, err := a.orch.ListCategories()
	if err != nil {
		return out.Fail(err)
	}

	out.Data(cats, func() {
		for _, c := range cats {
			fmt.Printf("%d  %-20s  %s\n", c.Position, c.Name, c.Slug)
		}
	})
	return exitOK
}

func categoryCreate(project string, args []string) int {
	fs := flag.NewFlagSet("category create", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "emit JSON envelope")
	quiet := fs.Bool("quiet", false, "suppress human output")
	name := fs.String("name", "", "category display name")
	slug := fs.String("slug", "", "category slug (derived from name if omitted)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	out := newOutput("category create", project, *jsonOut, *quiet)

	a, err := openApp(project)
	if err != nil {
		return out.Fail(err)
	}
	defer a.Close()

	cat, err := a.orch.CreateCategory(*name, *slug)
	if err != nil {
		return out.Fail(err)
	}

	out.Data(cat, func() {
		fmt.Printf("created category %s (%s)\n", cat.Name, cat.Slug)
	})
	return exitOK
}

func categoryUpdate(project string, args []string) int {
	fs := flag.NewFlagSet("category update", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "emit JSON envelope")
	quiet := fs.Bool("quiet", false, "suppress human output")
	id := fs.String("id", "", "category id")
	name := fs.String("name", "", "new display name")
	slug := fs.String("slug", "", "new slug")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	out := newOutput("category update", project, *jsonOut, *quiet)
	if *id == "" {
		return out.Fail(usageErrorf("--id is required"))
	}

	a, err := openApp(project)
	if err != nil {
		return out.Fail(err)
	}
	defer a.Close()

	cat, err := a.orch.UpdateCategory(*id, *name, *slug)
	if err != nil {
		return out.Fail(err)
	}

	out.Data(cat, func() {
		fmt.Printf("updated category %s (%s)\n", cat.Name, cat.Slug)
	})
	return exitOK
}

func categoryDelete(project string, args []string) int {
	fs := flag.NewFlagSet("category delete", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "emit JSON envelope")
	quiet := fs.Bool("quiet", false, "suppress human output")
	id := fs.String("id", "", "category id")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	out := newOutput("category delete", project, *jsonOut, *quiet)
	if *id == "" {
		return out.Fail(usageErrorf("--id is required"))
	}

	a, err := openApp(project)
	if err != nil {
		return out.Fail(err)
	}
	defer a.Close()

	if err := a.orch.DeleteCategory(*id); err != nil {
		return out.Fail(err)
	}

	out.Data(map[string]string{"id": *id}, func() {
		fmt.Printf("deleted category %s\n", *id)
	})
	return exitOK
}
