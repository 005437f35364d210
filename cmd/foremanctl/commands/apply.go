package commands

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newApplyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply <manifest>",
		Short: "Reconcile a manifest against the server",
		Long: `Reconcile every entry of a manifest against the server.

This command:
  - Loads and validates the manifest
  - Looks up each entity's current server state
  - Resolves name references to server ids
  - Issues only the create, update and delete calls needed to converge
  - Journals the run and per-entry results when --journal is set`,
		Example: `  # Apply a manifest
  foremanctl apply site.yaml --server https://foreman.example.com -u admin

  # Apply and journal the run
  foremanctl apply site.yaml --journal runs.db

  # Machine-readable results
  foremanctl apply site.yaml --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			log.Info().Str("manifest", path).Msg("Applying manifest")

			r, err := newRunner(cmd.Context(), false)
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
