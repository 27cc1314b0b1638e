package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/vmcmoto/motoportal/app/models"
	"github.com/vmcmoto/motoportal/app/services"
	"github.com/vmcmoto/motoportal/pkg/collection"
)

func newModelsCmd(app *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List and edit catalog models",
	}
	cmd.AddCommand(newModelsListCmd(app))
	cmd.AddCommand(newModelsGetCmd(app))
	cmd.AddCommand(newModelsFilterCmd(app))
	cmd.AddCommand(newModelsVideosCmd(app))
	cmd.AddCommand(newModelsCreateCmd(app))
	cmd.AddCommand(newModelsUpdateCmd(app))
	cmd.AddCommand(newModelsDeleteCmd(app))
	return cmd
}

// motoadmin models list [--q] [--category]
func newModelsListCmd(app *cli) *cobra.Command {
	var query, category string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List models, optionally matching a search query or a category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				list []models.Model
				err  error
			)
			switch {
			case category != "":
				list, err = app.kern.Categories.Models(cmd.Context(), category)
				if err == nil && strings.TrimSpace(query) != "" {
					list = collection.Filter(list, func(m models.Model) bool {
						return collection.ContainsFold(query, m.Name, m.Description)
					})
				}
			case strings.TrimSpace(query) != "":
				list, err = app.kern.Repo.SearchModels(cmd.Context(), query)
			default:
				list, err = app.kern.Repo.ListModels(cmd.Context())
			}
			if err != nil {
				return err
			}
			printModels(cmd, list)
			return nil
		},
	}
	cmd.Flags().StringVar(&query, "q", "", "search query")
	cmd.Flags().StringVar(&category, "category", "", "only models of this category id")
	return cmd
}

// motoadmin models filter --spec NAME=VALUE...
func newModelsFilterCmd(app *cli) *cobra.Command {
	var specs map[string]string
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "List active models whose specs contain the given values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(specs) == 0 {
				return fmt.Errorf("at least one --spec NAME=VALUE is required")
			}
			res, err := app.kern.Repo.FilterModels(cmd.Context(), specs)
			if err != nil {
				return err
			}
			printModels(cmd, res.Models)
			return nil
		},
	}
	cmd.Flags().StringToStringVar(&specs, "spec", nil, "spec name and the text its value must contain (repeatable)")
	return cmd
}

// motoadmin models videos ID
func newModelsVideosCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "videos ID",
		Short: "List a model's video links",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			list, err := app.kern.Repo.ListVideos(cmd.Context(), id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No videos.")
				return nil
			}
			for i, v := range list {
				fmt.Fprintf(out, "%2d. %-30s  %-8s  %s\n", i+1, v.Title, v.VideoType, v.URL)
			}
			return nil
		},
	}
}

// motoadmin models get ID
func newModelsGetCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show one model with its photos and specs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			m, err := app.kern.Repo.GetModel(cmd.Context(), id)
			if err != nil {
				return err
			}
			printModel(cmd, m)
			return nil
		},
	}
}

// motoadmin models create --name ...
func newModelsCreateCmd(app *cli) *cobra.Command {
	var form services.Form
	cmd := &cobra.Command{
		Use:         "create",
		Short:       "Create a model",
		Args:        cobra.NoArgs,
		Annotations: adminOnly(),
		RunE: func(cmd *cobra.Command, args []string) error {
			ed := app.kern.Editor()
			ed.Form = form
			m, err := ed.Save(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created model %d (%s).\n", m.ID, m.Name)
			return nil
		},
	}
	form.IsActive = true
	bindForm(cmd.Flags(), &form)
	return cmd
}

// motoadmin models update ID ...
func newModelsUpdateCmd(app *cli) *cobra.Command {
	var flags services.Form
	cmd := &cobra.Command{
		Use:         "update ID",
		Short:       "Change fields of a model; unset flags keep their value",
		Args:        cobra.ExactArgs(1),
		Annotations: adminOnly(),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ed := app.kern.Editor()
			if err := ed.Load(cmd.Context(), id); err != nil {
				return err
			}
			applyChanged(cmd.Flags(), &ed.Form, flags)

			m, err := ed.Save(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated model %d (%s).\n", m.ID, m.Name)
			return nil
		},
	}
	bindForm(cmd.Flags(), &flags)
	return cmd
}

// motoadmin models delete ID [--yes]
func newModelsDeleteCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:         "delete ID",
		Short:       "Delete a model with its photos and specs",
		Args:        cobra.ExactArgs(1),
		Annotations: adminOnly(),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ed := app.kern.Editor()
			if err := ed.Load(cmd.Context(), id); err != nil {
				return err
			}
			if err := ed.Delete(cmd.Context(), app.confirm(cmd)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted model %d.\n", id)
			return nil
		},
	}
}

func bindForm(fs *pflag.FlagSet, f *services.Form) {
	fs.StringVar(&f.Name, "name", f.Name, "model name")
	fs.StringVar(&f.Category, "category", f.Category, "category id or name")
	fs.StringVar(&f.Description, "description", f.Description, "short description")
	fs.StringVar(&f.FullDescription, "full-description", f.FullDescription, "full description")
	fs.StringArrayVar(&f.Features, "feature", f.Features, "feature line (repeatable)")
	fs.StringVar(&f.SalesScript, "sales-script", f.SalesScript, "sales script")
	fs.BoolVar(&f.IsActive, "active", f.IsActive, "show the model on the portal")
	fs.IntVar(&f.SortOrder, "sort-order", f.SortOrder, "position in listings")
}

func applyChanged(fs *pflag.FlagSet, dst *services.Form, src services.Form) {
	if fs.Changed("name") {
		dst.Name = src.Name
	}
	if fs.Changed("category") {
		dst.Category = src.Category
	}
	if fs.Changed("description") {
		dst.Description = src.Description
	}
	if fs.Changed("full-description") {
		dst.FullDescription = src.FullDescription
	}
	if fs.Changed("feature") {
		dst.Features = src.Features
	}
	if fs.Changed("sales-script") {
		dst.SalesScript = src.SalesScript
	}
	if fs.Changed("active") {
		dst.IsActive = src.IsActive
	}
	if fs.Changed("sort-order") {
		dst.SortOrder = src.SortOrder
	}
}

func printModels(cmd *cobra.Command, list []models.Model) {
	out := cmd.OutOrStdout()
	if len(list) == 0 {
		fmt.Fprintln(out, "No models.")
		return
	}
	fmt.Fprintf(out, "%-6s  %-40s  %-14s  %s\n", "ID", "NAME", "CATEGORY", "ACTIVE")
	fmt.Fprintln(out, rule(72))
	for _, m := range list {
		fmt.Fprintf(out, "%-6d  %-40s  %-14s  %s\n", m.ID, m.Name, m.Category, yesNo(m.IsActive))
	}
}

func printModel(cmd *cobra.Command, m models.Model) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "#%d  %s\n", m.ID, m.Name)
	fmt.Fprintf(out, "Category:    %s\n", m.Category)
	fmt.Fprintf(out, "Active:      %s\n", yesNo(m.IsActive))
	fmt.Fprintf(out, "Description: %s\n", m.Description)
	if len(m.Features) > 0 {
		fmt.Fprintln(out, "Features:")
		for _, f := range m.Features {
			fmt.Fprintf(out, "  - %s\n", f)
		}
	}
	fmt.Fprintf(out, "Photos:      %d\n", len(m.Photos))
	fmt.Fprintf(out, "Specs:       %d\n", len(m.Specs))
}
