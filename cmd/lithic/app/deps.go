package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/lithic/internal/deps"
	"github.com/agentstation/lithic/pkg/errors"
)

// newDepsCommand reports whether the configured generator and formatter
// can be found.
func (a *App) newDepsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check that the generator and formatter are installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			statuses := deps.CheckAll(cmd.Context(),
				deps.Dependency{Name: "generator", Command: a.config.Generator},
				deps.Dependency{Name: "formatter", Command: a.config.Formatter},
			)

			out := cmd.OutOrStdout()
			for _, s := range statuses {
				switch {
				case s.Err != nil:
					fmt.Fprintf(out, "✗ %-10s %s: %v\n", s.Dependency.Name, s.Dependency.Command, s.Err)
				default:
					fmt.Fprintf(out, "✓ %-10s %s\n", s.Dependency.Name, s.Path)
				}
			}

			if missing := deps.Missing(statuses); len(missing) > 0 {
				return errors.NewValidationError("dependencies", len(missing), "required tools are missing")
			}
			return nil
		},
	}
}
