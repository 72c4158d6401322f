package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var townsCmd = &cobra.Command{
	Use:   "towns",
	Short: "List HDB towns present in the resale dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var towns []string
		if local, _ := cmd.Flags().GetBool("local"); local {
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
			towns, err = st.DistinctTowns(ctx)
			if err != nil {
				return err
			}
		} else {
			var err error
			towns, err = newResaleClient().Towns(ctx)
			if err != nil {
				return err
			}
		}

		for _, town := range towns {
			fmt.Println(town)
		}
		return nil
	},
}

func init() {
	townsCmd.Flags().Bool("local", false, "list towns from the local store instead of the API")
	rootCmd.AddCommand(townsCmd)
}
