package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/vmcmoto/motoportal/app/models"
)

// Read-only views of the portal's other sections. They use the public API
// and need no login.

func bindListQuery(fs *pflag.FlagSet, q *models.ListQuery) {
	fs.IntVar(&q.Skip, "skip", 0, "entries to skip")
	fs.IntVar(&q.Limit, "limit", 0, "page size (1-200, backend default when unset)")
	fs.StringVar(&q.Search, "q", "", "search query")
}

// motoadmin sections
func newSectionsCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "sections",
		Short: "Show which portal sections are visible",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			vis, err := app.kern.Repo.Sections(cmd.Context())
			if err != nil {
				return err
			}
			names := make([]string, 0, len(vis))
			for name := range vis {
				names = append(names, name)
			}
			sort.Strings(names)
			out := cmd.OutOrStdout()
			for _, name := range names {
				fmt.Fprintf(out, "%-14s  %s\n", name, visibility(vis[name]))
			}
			return nil
		},
	}
}

func newNewsCmd(app *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "news",
		Short: "Read published news",
	}

	// motoadmin news list [--q] [--skip] [--limit]
	var q models.ListQuery
	list := &cobra.Command{
		Use:   "list",
		Short: "List published news, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := app.kern.Repo.ListNews(cmd.Context(), q)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "No news.")
				return nil
			}
			for _, n := range items {
				fmt.Fprintf(out, "%-6d  %-10s  %s\n", n.ID, day(n.PublishedAt), n.Title)
			}
			return nil
		},
	}
	bindListQuery(list.Flags(), &q)
	cmd.AddCommand(list)

	// motoadmin news get ID
	cmd.AddCommand(&cobra.Command{
		Use:   "get ID",
		Short: "Show one news item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			n, err := app.kern.Repo.GetNews(cmd.Context(), id)
			if err != nil {
				return err
			}
			printArticle(cmd.OutOrStdout(), n, "")
			return nil
		},
	})
	return cmd
}

func newRegulationsCmd(app *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "regulations",
		Short: "Read published regulations",
	}

	// motoadmin regulations list [--category] [--q] [--skip] [--limit]
	var q models.ListQuery
	list := &cobra.Command{
		Use:   "list",
		Short: "List published regulations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := app.kern.Repo.ListRegulations(cmd.Context(), q)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "No regulations.")
				return nil
			}
			for _, r := range items {
				fmt.Fprintf(out, "%-6d  %-10s  %-14s  %s\n", r.ID, day(r.PublishedAt), r.Category, r.Title)
			}
			return nil
		},
	}
	bindListQuery(list.Flags(), &q)
	list.Flags().StringVar(&q.Category, "category", "", "only this category")
	cmd.AddCommand(list)

	// motoadmin regulations get ID
	cmd.AddCommand(&cobra.Command{
		Use:   "get ID",
		Short: "Show one regulation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			r, err := app.kern.Repo.GetRegulation(cmd.Context(), id)
			if err != nil {
				return err
			}
			printArticle(cmd.OutOrStdout(), r.News, r.Category)
			return nil
		},
	})
	return cmd
}

func newEmployeesCmd(app *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "employees",
		Short: "Read the staff directory",
	}

	// motoadmin employees list [--position] [--q] [--skip] [--limit]
	var q models.ListQuery
	list := &cobra.Command{
		Use:   "list",
		Short: "List active employees in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			staff, err := app.kern.Repo.ListEmployees(cmd.Context(), q)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(staff) == 0 {
				fmt.Fprintln(out, "No employees.")
				return nil
			}
			for _, e := range staff {
				fmt.Fprintf(out, "%-6d  %-30s  %s\n", e.ID, e.FullName(), e.Position)
			}
			return nil
		},
	}
	bindListQuery(list.Flags(), &q)
	list.Flags().StringVar(&q.Position, "position", "", "position contains this text")
	cmd.AddCommand(list)

	// motoadmin employees get ID
	cmd.AddCommand(&cobra.Command{
		Use:   "get ID",
		Short: "Show one employee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			e, err := app.kern.Repo.GetEmployee(cmd.Context(), id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "#%d  %s\n", e.ID, e.FullName())
			fmt.Fprintf(out, "Position: %s\n", e.Position)
			if e.Email != "" {
				fmt.Fprintf(out, "Email:    %s\n", e.Email)
			}
			if e.Phone != "" {
				fmt.Fprintf(out, "Phone:    %s\n", e.Phone)
			}
			if e.Description != "" {
				fmt.Fprintf(out, "\n%s\n", e.Description)
			}
			return nil
		},
	})
	return cmd
}

func printArticle(out io.Writer, n models.News, category string) {
	fmt.Fprintf(out, "#%d  %s\n", n.ID, n.Title)
	fmt.Fprintf(out, "Published: %s\n", day(n.PublishedAt))
	if category != "" {
		fmt.Fprintf(out, "Category:  %s\n", category)
	}
	if n.Author != "" {
		fmt.Fprintf(out, "Author:    %s\n", n.Author)
	}
	fmt.Fprintf(out, "Photos:    %d\n", len(n.Photos))
	fmt.Fprintf(out, "Documents: %d\n", len(n.Documents))
	fmt.Fprintf(out, "\n%s\n", n.Content)
}

func visibility(visible bool) string {
	if visible {
		return "visible"
	}
	return "hidden"
}
