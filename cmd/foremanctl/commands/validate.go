package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/foremanctl/foremanctl/pkg/engine"
	"github.com/foremanctl/foremanctl/pkg/manifest"
	"github.com/foremanctl/foremanctl/pkg/modules"
)

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <manifest>",
		Short: "Validate a manifest without contacting the server",
		Long: `Validate a manifest offline.

This command checks:
  - YAML syntax and schema version
  - That every entry names a known resource
  - That every entry's state is native or a verb the resource accepts
  - That every entry carries the resource's name field`,
		Example: `  # Validate a manifest
  foremanctl validate site.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			log.Info().Str("manifest", path).Msg("Validating manifest")

			m, err := manifest.NewLoader().Load(path)
			if err != nil {
				return err
			}

			registry, err := modules.Builtin()
			if err != nil {
				return err
			}

			for i, entry := range m.Entries {
				def, err := registry.Get(entry.Resource)
				if err != nil {
					return fmt.Errorf("entry %d: %w", i+1, err)
				}
				if !stateAllowed(entry.State, def.Verbs) {
					return fmt.Errorf("entry %d: resource %s does not accept state %q",
						i+1, entry.Resource, entry.State)
				}
				if name, ok := entry.Entity[def.NameField].(string); !ok || name == "" {
					return fmt.Errorf("entry %d: missing %q field", i+1, def.NameField)
				}
			}

			fmt.Printf("%s: %d entries, OK\n", path, len(m.Entries))
			return nil
		},
	}

	return cmd
}

func stateAllowed(state string, verbs []string) bool {
	switch state {
	case engine.StatePresent, engine.StatePresentWithDefaults, engine.StateAbsent:
		return true
	}
	for _, verb := range verbs {
		if verb == state {
			return true
		}
	}
	return false
}
