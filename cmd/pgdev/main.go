// Command pgdev is the terminal client of pgdeveloper. It runs the same use
// cases as the daemon in process, against the same profiles file, cache and
// workspace.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fairyhunter13/pgdeveloper/internal/adapter/observability"
	"github.com/fairyhunter13/pgdeveloper/internal/app"
	"github.com/fairyhunter13/pgdeveloper/internal/config"
)

type cli struct {
	core    *app.Core
	verbose bool
	asJSON  bool
	profile string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	root, c := newRootCmd()
	err := root.ExecuteContext(ctx)
	c.close()
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error:")+" "+err.Error())
		os.Exit(1)
	}
}

func newRootCmd() (*cobra.Command, *cli) {
	c := &cli{}
	root := &cobra.Command{
		Use:           "pgdev",
		Short:         "PostgreSQL developer console",
		Long:          "pgdev manages connection profiles, runs SQL and browses database objects.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.open(cmd)
		},
	}
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log debug output to stderr")
	root.PersistentFlags().BoolVar(&c.asJSON, "json", false, "print JSON instead of tables")
	root.PersistentFlags().StringVarP(&c.profile, "profile", "p", "", "connection profile (default: the active profile)")

	root.AddCommand(
		c.profilesCmd(),
		c.queryCmd(),
		c.introspectCmd(),
		c.treeCmd(),
		c.searchCmd(),
		c.consolesCmd(),
	)
	return root, c
}

func (c *cli) open(cmd *cobra.Command) error {
	if c.core != nil {
		return nil
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(observability.SetupCLILogger(cmd.ErrOrStderr(), c.verbose))
	core, err := app.Build(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	c.core = core
	restoreActive(core)
	return nil
}

func (c *cli) close() {
	if c.core != nil {
		c.core.Close()
		c.core = nil
	}
}

// print writes v as JSON when --json is set and calls human otherwise.
func (c *cli) print(cmd *cobra.Command, v any, human func()) error {
	if c.asJSON {
		return writeJSON(cmd.OutOrStdout(), v)
	}
	human()
	return nil
}
