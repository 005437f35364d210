package commands

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newPlanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <manifest>",
		Short: "Preview the changes a manifest would make",
		Long: `Preview the changes applying a manifest would make, without issuing a
single mutating call.

Lookups still hit the server, so the plan reflects real current state.
Entities that would be created are reported with synthesized records;
the changed flags match exactly what a subsequent apply would report.`,
		Example: `  # Preview a manifest
  foremanctl plan site.yaml --server https://foreman.example.com -u admin

  # Journal the plan alongside real runs
  foremanctl plan site.yaml --journal runs.db`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			log.Info().Str("manifest", path).Msg("Planning manifest")

			r, err := newRunner(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer r.close()

			outcomes, runErr := r.runManifest(cmd.Context(), path)
			if err := printOutcomes(outcomes); err != nil {
				return err
			}
			return runErr
		},
	}

	return cmd
}
