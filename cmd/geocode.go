package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/flatfind-sg/flatfind-cli/internal/geocode"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode BLOCK STREET",
	Short: "Resolve a block address to coordinates and amenity distances",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("geocode"); err != nil {
			return err
		}

		block := args[0]
		street := strings.Join(args[1:], " ")
		town, _ := cmd.Flags().GetString("town")

		env := initCore()
		pt, err := env.Index.Lookup(block, street, town)
		if err != nil {
			return err
		}
		if pt == nil {
			return eris.Errorf("geocode: no match for block %s %s", block, street)
		}

		fmt.Printf("Block:   %s %s\n", strings.ToUpper(strings.TrimSpace(block)), strings.ToUpper(street))
		fmt.Printf("Lat/Lng: %.6f, %.6f\n", pt.Lat, pt.Lng)

		if skip, _ := cmd.Flags().GetBool("no-distances"); skip {
			return nil
		}

		d, err := env.Engine.DistancesFor(geocode.ExactKey(block, street, town), *pt)
		if err != nil {
			return err
		}
		fmt.Printf("MRT:      %.0f m\n", d.Transit)
		fmt.Printf("School:   %.0f m\n", d.School)
		fmt.Printf("Hospital: %.0f m\n", d.Hospital)
		return nil
	},
}

func init() {
	geocodeCmd.Flags().String("town", "", "town for exact matching (falls back to block+street)")
	geocodeCmd.Flags().Bool("no-distances", false, "skip amenity distance lookup")
	rootCmd.AddCommand(geocodeCmd)
}
