package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foremanctl/foremanctl/pkg/stores"
)

func newRunsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the run journal",
		Long: `Inspect past reconciliation runs recorded in the SQLite journal.

Requires --journal pointing at the journal used by apply or plan.`,
	}

	cmd.AddCommand(newRunsListCommand())
	cmd.AddCommand(newRunsShowCommand())

	return cmd
}

func newRunsListCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		Example: `  # Show the last 20 runs
  foremanctl runs list --journal runs.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openJournal(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit, 0)
			if err != nil {
				return err
			}

			if jsonOutput {
				data, err := json.MarshalIndent(runs, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			for _, run := range runs {
				mode := "apply"
				if run.DryRun {
					mode = "plan"
				}
				fmt.Printf("%s  %s  %-9s  %s  %s\n",
					run.ID, run.StartedAt.Format("2006-01-02 15:04:05"),
					run.Status, mode, run.ManifestPath)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")

	return cmd
}

func newRunsShowCommand() *cobra.Command {
	var changedOnly bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the per-entry results of a run",
		Example: `  # Show every result of a run
  foremanctl runs show 4f6c... --journal runs.db

  # Only the entries that changed
  foremanctl runs show 4f6c... --journal runs.db --changed`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := args[0]

			store, err := openJournal(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.GetRun(cmd.Context(), runID)
			if err != nil {
				return err
			}

			var results []*stores.Result
			if changedOnly {
				results, err = store.ListChangedResults(cmd.Context(), runID)
			} else {
				results, err = store.ListResultsByRun(cmd.Context(), runID)
			}
			if err != nil {
				return err
			}

			if jsonOutput {
				payload := struct {
					Run     *stores.Run      `json:"run"`
					Results []*stores.Result `json:"results"`
				}{run, results}
				data, err := json.MarshalIndent(payload, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			fmt.Printf("run %s (%s) %s\n", run.ID, run.Status, run.ManifestPath)
			for _, res := range results {
				marker := " "
				if res.Changed {
					marker = "~"
				}
				if res.Error != nil {
					marker = "!"
				}
				line := fmt.Sprintf("%s %s/%s: %s", marker, res.Resource, res.EntityName, res.Operation)
				if res.Diff != nil {
					line += " " + *res.Diff
				}
				if res.Error != nil {
					line += " error: " + *res.Error
				}
				fmt.Println(line)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&changedOnly, "changed", false, "only show entries that changed")

	return cmd
}

// openJournal opens the journal named by --journal for read access.
func openJournal(ctx context.Context) (stores.Store, error) {
	if journalPath == "" {
		return nil, fmt.Errorf("--journal is required")
	}
	store, err := stores.NewSQLiteStore(stores.Config{Path: journalPath})
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}
