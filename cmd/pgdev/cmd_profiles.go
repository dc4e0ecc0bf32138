package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fairyhunter13/pgdeveloper/internal/adapter/profilestore"
	"github.com/fairyhunter13/pgdeveloper/internal/domain"
)

func (c *cli) profilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "profiles",
		Aliases: []string{"profile"},
		Short:   "Manage connection profiles",
	}
	cmd.AddCommand(
		c.profilesListCmd(),
		c.profilesAddCmd(),
		c.profilesRemoveCmd(),
		c.profilesUseCmd(),
		c.profilesTestCmd(),
		c.profilesExportCmd(),
		c.profilesImportCmd(),
	)
	return cmd
}

func (c *cli) profilesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List connection profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			views := c.core.Services.Profiles.List()
			return c.print(cmd, views, func() {
				if len(views) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("no profiles; add one with: pgdev profiles add NAME --host HOST --database DB --user USER"))
					return
				}
				rows := make([][]string, 0, len(views))
				for _, v := range views {
					active := ""
					if v.Active {
						active = "*"
					}
					rows = append(rows, []string{active, v.Name, v.Host, strconv.Itoa(v.Port), v.Database, v.Username, strconv.FormatBool(v.UseSSL)})
				}
				renderTable(cmd.OutOrStdout(), []string{"", "NAME", "HOST", "PORT", "DATABASE", "USER", "SSL"}, rows)
			})
		},
	}
}

func (c *cli) profilesAddCmd() *cobra.Command {
	var p domain.ConnectionProfile
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add or replace a connection profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p.Name = args[0]
			if p.Password == "" {
				p.Password = os.Getenv("PGPASSWORD")
			}
			if err := c.core.Services.Profiles.Save(p); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("saved "+p.String()))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&p.Host, "host", "localhost", "server host")
	f.IntVar(&p.Port, "port", 5432, "server port")
	f.StringVarP(&p.Database, "database", "d", "", "database name")
	f.StringVarP(&p.Username, "user", "U", "", "user name")
	f.StringVar(&p.Password, "password", "", "password (default: $PGPASSWORD)")
	f.BoolVar(&p.UseSSL, "ssl", false, "require SSL")
	_ = cmd.MarkFlagRequired("database")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func (c *cli) profilesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm NAME",
		Aliases: []string{"remove"},
		Short:   "Remove a connection profile and its cached structure",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.core.Services.Profiles.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("removed "+args[0]))
			return nil
		},
	}
}

func (c *cli) profilesUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use NAME",
		Short: "Make a profile the default for later commands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.core.Services.Profiles.Activate(args[0]); err != nil {
				return err
			}
			if err := saveActive(c.core.Cfg, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), c.core.Services.Profiles.Info())
			return nil
		},
	}
}

func (c *cli) profilesTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test [NAME]",
		Short: "Check that a profile accepts connections",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := c.profile
			if len(args) == 1 {
				name = args[0]
			}
			ok, err := c.core.Services.Profiles.Test(cmd.Context(), name)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: profile %q is unreachable", domain.ErrConnection, name)
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("connection ok"))
			return nil
		},
	}
}

func (c *cli) profilesExportCmd() *cobra.Command {
	var withPasswords bool
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the saved profiles as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				w = f
			}
			return profilestore.ExportYAML(w, c.core.Services.Profiles.Saved(), withPasswords)
		},
	}
	cmd.Flags().BoolVar(&withPasswords, "passwords", false, "include passwords")
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func (c *cli) profilesImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Save every profile of a YAML file written by export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			profiles, err := profilestore.ImportYAML(f)
			if err != nil {
				return err
			}
			n, err := c.core.Services.Profiles.Import(profiles)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("imported %d profiles", n)))
			return nil
		},
	}
}
