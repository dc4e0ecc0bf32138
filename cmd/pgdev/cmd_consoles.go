package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func (c *cli) consolesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "consoles",
		Aliases: []string{"console"},
		Short:   "Manage the SQL consoles of the workspace",
	}
	cmd.AddCommand(
		c.consolesListCmd(),
		c.consolesNewCmd(),
		c.consolesShowCmd(),
		c.consolesRenameCmd(),
		c.consolesCloseCmd(),
		c.consolesImportCmd(),
	)
	return cmd
}

// consoleConnection is --profile, or the active profile.
func (c *cli) consoleConnection() string {
	if c.profile != "" {
		return c.profile
	}
	return c.core.DS.ActiveName()
}

func (c *cli) consolesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List open consoles in tab order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			consoles := c.core.Services.Workspace.List()
			return c.print(cmd, consoles, func() {
				rows := make([][]string, 0, len(consoles))
				for _, cs := range consoles {
					rows = append(rows, []string{cs.ID, cs.Name, cs.ConnectionName})
				}
				renderTable(cmd.OutOrStdout(), []string{"ID", "NAME", "CONNECTION"}, rows)
			})
		},
	}
}

func (c *cli) consolesNewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Open an empty console bound to --profile or the active profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cs, err := c.core.Services.Workspace.Create(c.consoleConnection())
			if err != nil {
				return err
			}
			return c.print(cmd, cs, func() { fmt.Fprintln(cmd.OutOrStdout(), cs.ID) })
		},
	}
}

func (c *cli) consolesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Print the SQL text of a console",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cs, err := c.core.Services.Workspace.Get(args[0])
			if err != nil {
				return err
			}
			return c.print(cmd, cs, func() {
				fmt.Fprintln(cmd.OutOrStdout(), titleStyle.Render(cs.Name)+" "+mutedStyle.Render(cs.ConnectionName))
				fmt.Fprintln(cmd.OutOrStdout(), cs.Content)
			})
		},
	}
}

func (c *cli) consolesRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename ID NAME",
		Short: "Rename a console",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cs, err := c.core.Services.Workspace.Rename(args[0], args[1])
			if err != nil {
				return err
			}
			return c.print(cmd, cs, func() { fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("renamed to "+cs.Name)) })
		},
	}
}

func (c *cli) consolesCloseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close ID",
		Short: "Close a console and delete its text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.core.Services.Workspace.Close(args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("closed "+args[0]))
			return nil
		},
	}
}

func (c *cli) consolesImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Open a console holding the text of a .sql file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			cs, err := c.core.Services.Workspace.Import(filepath.Base(args[0]), data, c.consoleConnection())
			if err != nil {
				return err
			}
			return c.print(cmd, cs, func() { fmt.Fprintln(cmd.OutOrStdout(), cs.ID) })
		},
	}
}
