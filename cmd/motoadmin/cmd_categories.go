package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCategoriesCmd(app *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "categories",
		Short:       "Manage catalog categories",
		Annotations: adminOnly(),
	}

	// motoadmin categories list
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List categories with their model counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cats, err := app.kern.Categories.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-20s  %-30s  %6s  %s\n", "ID", "NAME", "MODELS", "SYSTEM")
			fmt.Fprintln(out, rule(70))
			for _, c := range cats {
				fmt.Fprintf(out, "%-20s  %-30s  %6d  %s\n", c.ID, c.Name, c.Count, yesNo(c.System))
			}
			return nil
		},
	})

	// motoadmin categories add NAME
	cmd.AddCommand(&cobra.Command{
		Use:   "add NAME",
		Short: "Add a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.kern.Categories.Add(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added category %s (%s).\n", c.ID, c.Name)
			return nil
		},
	})

	// motoadmin categories rename ID NAME
	cmd.AddCommand(&cobra.Command{
		Use:   "rename ID NAME",
		Short: "Rename a custom category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.kern.Categories.Rename(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Category %s is now %s.\n", c.ID, c.Name)
			return nil
		},
	})

	// motoadmin categories delete ID [--yes]
	cmd.AddCommand(&cobra.Command{
		Use:   "delete ID",
		Short: "Delete a custom category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.kern.Categories.Delete(cmd.Context(), args[0], app.confirm(cmd)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted category %s.\n", args[0])
			return nil
		},
	})
	return cmd
}
