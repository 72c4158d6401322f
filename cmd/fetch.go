package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch resale transactions from data.gov.sg into the store",
	Long: `Pages through the data.gov.sg resale price dataset for the given
towns and flat type and upserts the rows into the local store.

Examples:
  # Fetch 4 ROOM transactions for two towns
  flatfind fetch --towns "ANG MO KIO,BEDOK" --flat-type "4 ROOM"

  # Fetch every town
  flatfind fetch --all --flat-type "4 ROOM"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("fetch"); err != nil {
			return err
		}

		flatType, _ := cmd.Flags().GetString("flat-type")
		if flatType == "" {
			return eris.New("fetch: --flat-type is required")
		}
		flatType = strings.ToUpper(flatType)

		client := newResaleClient()

		var towns []string
		if all, _ := cmd.Flags().GetBool("all"); all {
			var err error
			towns, err = client.Towns(ctx)
			if err != nil {
				return err
			}
		} else {
			raw, _ := cmd.Flags().GetString("towns")
			towns = splitAndTrim(raw)
			if len(towns) == 0 {
				return eris.New("fetch: --towns or --all is required")
			}
		}

		log := zap.L().With(zap.String("command", "fetch"))
		log.Info("fetching resale transactions",
			zap.Strings("towns", towns),
			zap.String("flat_type", flatType),
		)

		rows, err := client.FetchTowns(ctx, towns, flatType)
		if err != nil {
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

		n, err := st.UpsertListings(ctx, rows)
		if err != nil {
			return err
		}

		log.Info("fetch complete", zap.Int("fetched", len(rows)), zap.Int("upserted", n))
		fmt.Printf("Upserted %d of %d fetched rows\n", n, len(rows))
		return nil
	},
}

func splitAndTrim(s string) []string {
	var result []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, strings.ToUpper(p))
		}
	}
	return result
}

func init() {
	fetchCmd.Flags().String("towns", "", "comma-separated towns (e.g. \"ANG MO KIO,BEDOK\")")
	fetchCmd.Flags().String("flat-type", "", "flat type (e.g. \"4 ROOM\")")
	fetchCmd.Flags().Bool("all", false, "fetch every town in the dataset")
	rootCmd.AddCommand(fetchCmd)
}
