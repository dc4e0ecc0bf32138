package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fairyhunter13/pgdeveloper/internal/domain"
)

func (c *cli) queryCmd() *cobra.Command {
	var inline string
	cmd := &cobra.Command{
		Use:   "query [FILE]",
		Short: "Run SQL from -e, a file or stdin",
		Example: `  pgdev query -e "SELECT now()"
  pgdev query report.sql
  echo "SELECT 1" | pgdev query --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readSQL(cmd.InOrStdin(), inline, args)
			if err != nil {
				return err
			}
			res, err := c.core.Services.Query.Execute(cmd.Context(), c.profile, text, "")
			if err != nil {
				return err
			}
			return c.print(cmd, res, func() { renderResult(cmd.OutOrStdout(), res) })
		},
	}
	cmd.Flags().StringVarP(&inline, "execute", "e", "", "SQL text to run")
	return cmd
}

// readSQL picks the statement text: -e wins, then the file argument, then
// stdin.
func readSQL(stdin io.Reader, inline string, args []string) (string, error) {
	var text string
	switch {
	case strings.TrimSpace(inline) != "":
		text = inline
	case len(args) == 1 && args[0] != "-":
		b, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("op=cli.query: %w", err)
		}
		text = string(b)
	default:
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("op=cli.query: %w", err)
		}
		text = string(b)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("op=cli.query: %w: no SQL given", domain.ErrInvalidArgument)
	}
	return text, nil
}
