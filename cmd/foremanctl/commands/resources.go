package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/foremanctl/foremanctl/pkg/modules"
)

func newResourcesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resources",
		Short: "List the resource types foremanctl can reconcile",
		Example: `  # List reconcilable resources
  foremanctl resources`,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := modules.Builtin()
			if err != nil {
				return err
			}

			names := registry.Resources()
			if jsonOutput {
				data, err := json.MarshalIndent(names, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			for _, name := range names {
				def, err := registry.Get(name)
				if err != nil {
					return err
				}
				line := name
				if len(def.Verbs) > 0 {
					line += fmt.Sprintf(" (verbs: %s)", strings.Join(def.Verbs, ", "))
				}
				fmt.Println(line)
			}
			return nil
		},
	}

	return cmd
}
