package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/flatfind-sg/flatfind-cli/internal/scorer"
)

var runsCmd = &cobra.Command{
	Use:   "runs [RUN_ID]",
	Short: "List saved score runs, or show one run's ranking",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("fetch"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		if len(args) == 1 {
			run, err := st.GetScoreRun(ctx, args[0])
			if err != nil {
				return err
			}
			results, err := scorer.LoadRunResults(run)
			if err != nil {
				return err
			}
			fmt.Printf("Run:         %s\n", run.ID)
			fmt.Printf("Created:     %s\n", run.CreatedAt.Format("2006-01-02 15:04:05"))
			fmt.Printf("Flat type:   %s\n", run.FlatType)
			fmt.Printf("Towns:       %s\n", strings.Join(run.Towns, ", "))
			fmt.Printf("Fingerprint: %s\n\n", run.Fingerprint)
			return writeResultTable(os.Stdout, results)
		}

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := st.ListScoreRuns(ctx, limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No saved runs.")
			return nil
		}

		fmt.Printf("%-36s %-20s %-10s %s\n", "ID", "Created", "Flat Type", "Towns")
		for _, r := range runs {
			fmt.Printf("%-36s %-20s %-10s %s\n",
				r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.FlatType, strings.Join(r.Towns, ", "))
		}
		return nil
	},
}

func init() {
	runsCmd.Flags().Int("limit", 0, "maximum number of runs to list (0=store default)")
	rootCmd.AddCommand(runsCmd)
}
