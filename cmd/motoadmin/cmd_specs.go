package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vmcmoto/motoportal/app/models"
	"github.com/vmcmoto/motoportal/app/services"
	"github.com/vmcmoto/motoportal/pkg/sheet"
)

func newSpecsCmd(app *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "specs",
		Short: "Manage the technical specs of a model",
	}
	cmd.AddCommand(newSpecsListCmd(app))
	cmd.AddCommand(newSpecsImportCmd(app))
	cmd.AddCommand(newSpecsTemplateCmd())
	cmd.AddCommand(newSpecsExportCmd(app))
	cmd.AddCommand(newSpecsAddCmd(app))
	cmd.AddCommand(newSpecsEditCmd(app))
	cmd.AddCommand(newSpecsDeleteCmd(app))
	return cmd
}

func (a *cli) specSet(ctx context.Context, arg string, opts ...services.SpecOption) (*services.SpecSet, error) {
	id, err := parseID(arg)
	if err != nil {
		return nil, err
	}
	set := services.NewSpecSet(a.kern.Repo, id, nil, append(opts, services.WithSpecEvents(a.kern.Bus))...)
	if err := set.Load(ctx); err != nil {
		return nil, err
	}
	return set, nil
}

// motoadmin specs list ID [--q] [--grouped]
func newSpecsListCmd(app *cli) *cobra.Command {
	var (
		query   string
		grouped bool
	)
	cmd := &cobra.Command{
		Use:   "list ID",
		Short: "List specs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := app.specSet(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if grouped {
				printSpecGroups(cmd, set.Groups(query))
				return nil
			}
			printSpecs(cmd, set.Filter(query))
			return nil
		},
	}
	cmd.Flags().StringVar(&query, "q", "", "filter by name or value")
	cmd.Flags().BoolVar(&grouped, "grouped", false, "group by category")
	return cmd
}

// motoadmin specs import ID FILE
func newSpecsImportCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:         "import ID FILE",
		Short:       "Add specs from an .xlsx or .csv file; existing names are kept",
		Args:        cobra.ExactArgs(2),
		Annotations: adminOnly(),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			parsed, err := sheet.ReadSpecs(f, args[1])
			if err != nil {
				return err
			}
			set, err := app.specSet(cmd.Context(), args[0], services.WithPersistOnMerge())
			if err != nil {
				return err
			}

			res, err := set.Merge(cmd.Context(), parsed.Rows)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Added %d, kept %d existing, skipped %d incomplete row(s).\n",
				len(res.Added), len(res.Duplicates), parsed.Skipped+res.Blank)
			for _, name := range res.Duplicates {
				fmt.Fprintf(out, "  exists: %s\n", name)
			}
			return err
		},
	}
}

// motoadmin specs template FILE
func newSpecsTemplateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "template FILE",
		Short: "Write an .xlsx import template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var buf bytes.Buffer
			if err := sheet.WriteTemplate(&buf); err != nil {
				return err
			}
			if err := os.WriteFile(args[0], buf.Bytes(), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Template written to %s.\n", args[0])
			return nil
		},
	}
}

// motoadmin specs export ID FILE
func newSpecsExportCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "export ID FILE",
		Short: "Write the specs of a model to .xlsx or .csv",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := app.specSet(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			specs := set.Specs()
			if len(specs) == 0 {
				return errors.New("the model has no specs")
			}
			var buf bytes.Buffer
			if err := sheet.WriteSpecs(&buf, args[1], specs); err != nil {
				return err
			}
			if err := os.WriteFile(args[1], buf.Bytes(), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d spec(s) to %s.\n", len(specs), args[1])
			return nil
		},
	}
}

type specFlags struct {
	name, value, unit, category string
}

func (f *specFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "spec name")
	cmd.Flags().StringVar(&f.value, "value", "", "spec value")
	cmd.Flags().StringVar(&f.unit, "unit", "", "unit, e.g. hp")
	cmd.Flags().StringVar(&f.category, "category", "", "group, defaults to other")
}

// apply copies the flags the operator set onto sp.
func (f *specFlags) apply(cmd *cobra.Command, sp *models.Spec) {
	fs := cmd.Flags()
	if fs.Changed("name") {
		sp.Name = f.name
	}
	if fs.Changed("value") {
		sp.Value = f.value
	}
	if fs.Changed("unit") {
		sp.Unit = f.unit
	}
	if fs.Changed("category") {
		sp.Category = f.category
	}
}

// motoadmin specs add ID --name --value [--unit --category]
func newSpecsAddCmd(app *cli) *cobra.Command {
	var f specFlags
	cmd := &cobra.Command{
		Use:         "add ID",
		Short:       "Add one spec",
		Args:        cobra.ExactArgs(1),
		Annotations: adminOnly(),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := app.specSet(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			set.Add()
			buf, _ := set.Buffer()
			f.apply(cmd, &buf)
			if err := set.SetBuffer(buf); err != nil {
				return err
			}
			return commitAndSync(cmd, set)
		},
	}
	f.bind(cmd)
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

// motoadmin specs edit ID INDEX ...
func newSpecsEditCmd(app *cli) *cobra.Command {
	var f specFlags
	cmd := &cobra.Command{
		Use:         "edit ID INDEX",
		Short:       "Change the spec at INDEX (1-based, as listed)",
		Args:        cobra.ExactArgs(2),
		Annotations: adminOnly(),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := app.specSet(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			i, err := parsePosition(args[1])
			if err != nil {
				return err
			}
			if err := set.Edit(i); err != nil {
				return err
			}
			buf, _ := set.Buffer()
			f.apply(cmd, &buf)
			if err := set.SetBuffer(buf); err != nil {
				return err
			}
			return commitAndSync(cmd, set)
		},
	}
	f.bind(cmd)
	return cmd
}

// motoadmin specs delete ID INDEX
func newSpecsDeleteCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:         "delete ID INDEX",
		Short:       "Delete the spec at INDEX (1-based, as listed)",
		Args:        cobra.ExactArgs(2),
		Annotations: adminOnly(),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := app.specSet(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			i, err := parsePosition(args[1])
			if err != nil {
				return err
			}
			if err := set.Delete(i); err != nil {
				return err
			}
			done, err := set.Sync(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d spec(s).\n", len(done.Delete))
			return nil
		},
	}
}

func commitAndSync(cmd *cobra.Command, set *services.SpecSet) error {
	ok, err := set.Commit()
	if err != nil {
		return err
	}
	if !ok {
		set.Cancel()
		return errors.New("name and value are both required")
	}
	done, err := set.Sync(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved: %d created, %d updated.\n", len(done.Create), len(done.Update))
	return nil
}

func printSpecs(cmd *cobra.Command, specs []models.Spec) {
	out := cmd.OutOrStdout()
	if len(specs) == 0 {
		fmt.Fprintln(out, "No specs.")
		return
	}
	fmt.Fprintf(out, "%-4s  %-32s  %-20s  %-8s  %s\n", "#", "NAME", "VALUE", "UNIT", "CATEGORY")
	fmt.Fprintln(out, rule(80))
	for i, sp := range specs {
		fmt.Fprintf(out, "%-4d  %-32s  %-20s  %-8s  %s\n", i+1, sp.Name, sp.Value, sp.Unit, sp.GroupKey())
	}
}

func printSpecGroups(cmd *cobra.Command, groups []services.SpecGroup) {
	out := cmd.OutOrStdout()
	if len(groups) == 0 {
		fmt.Fprintln(out, "No specs.")
		return
	}
	for _, g := range groups {
		fmt.Fprintf(out, "[%s]\n", g.Category)
		for _, sp := range g.Specs {
			fmt.Fprintf(out, "  %-32s  %s %s\n", sp.Name, sp.Value, sp.Unit)
		}
	}
}
