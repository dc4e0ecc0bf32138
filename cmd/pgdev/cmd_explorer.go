package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fairyhunter13/pgdeveloper/internal/domain"
)

func (c *cli) introspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "introspect",
		Short: "Refresh the cached structure and search index of a profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start := time.Now()
			snap, err := c.core.Services.Intro.Introspect(cmd.Context(), c.profile)
			if err != nil {
				return err
			}
			return c.print(cmd, snap, func() {
				tables := 0
				for _, sc := range snap.Schemas {
					tables += len(sc.Tables)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %d schemas, %d tables %s\n",
					successStyle.Render("introspected "+snap.ConnectionName+":"),
					len(snap.Schemas), tables,
					mutedStyle.Render(fmt.Sprintf("(%s)", time.Since(start).Round(time.Millisecond))))
			})
		},
	}
}

func (c *cli) treeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Print the database explorer tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			root, err := c.core.Services.Intro.Tree(cmd.Context(), c.profile)
			if err != nil {
				return err
			}
			return c.print(cmd, root, func() { renderTree(cmd.OutOrStdout(), root) })
		},
	}
}

func (c *cli) searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search TEXT",
		Short: "Find tables, views, functions and procedures by name",
		Long:  "Search matches indexed object names. Without --profile every introspected connection is searched.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, results, err := c.core.Services.Intro.Search(cmd.Context(), c.profile, args[0])
			if err != nil {
				return err
			}
			return c.print(cmd, results, func() {
				if len(results) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("No results"))
					return
				}
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					editor := c.core.Services.Intro.EditorFor(domain.SidebarItem{Type: r.Type, Schema: r.Schema, Name: r.Name})
					rows = append(rows, []string{r.Schema, r.Name, r.Type, editor})
				}
				renderTable(cmd.OutOrStdout(), []string{"SCHEMA", "NAME", "TYPE", "EDITOR"}, rows)
			})
		},
	}
}
