package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/flatfind-sg/flatfind-cli/internal/dataset"
	"github.com/flatfind-sg/flatfind-cli/internal/scorer"
	"github.com/flatfind-sg/flatfind-cli/internal/store"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Rank candidate flats by proximity and affordability",
	Long: `Groups stored (or imported) resale transactions down to the cheapest
recent sale per block, geocodes each block, measures distances to the
amenity sets, and ranks the candidates with a weighted score.

Examples:
  # Rank 4 ROOM flats in two towns from the local store
  flatfind score --towns "ANG MO KIO,BEDOK" --flat-type "4 ROOM"

  # Rank candidates from a downloaded file with a buyer profile
  flatfind score --input resale.csv --age 35 --income 120000

  # Export the ranking to a spreadsheet and persist the run
  flatfind score --towns BEDOK --flat-type "4 ROOM" --format xlsx --output ranking.xlsx --save`,
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.String("towns", "", "comma-separated towns to score")
	f.String("flat-type", "", "flat type filter (e.g. \"4 ROOM\")")
	f.String("input", "", "score from a local CSV/XLSX file instead of the store")
	f.Int("recent-months", 0, "recency window for the cheapest sale per block (default from config)")
	f.String("weights", "", "YAML weights file (overrides config)")
	f.Float64("age", 0, "buyer age for affordability scoring")
	f.Float64("income", 0, "buyer annual income for affordability scoring")
	f.Float64("budget", 0, "buyer down payment budget")
	f.Int("limit", 0, "maximum number of results (0=all)")
	f.String("output", "", "output file path (default: stdout)")
	f.String("format", "table", "output format: table, csv, or xlsx")
	f.Bool("save", false, "persist the run to the store")

	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("score"); err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	if format != "table" && format != "csv" && format != "xlsx" {
		return eris.Errorf("score: --format must be table, csv, or xlsx (got %q)", format)
	}
	outputPath, _ := cmd.Flags().GetString("output")
	if format == "xlsx" && outputPath == "" {
		return eris.New("score: --format xlsx requires --output")
	}

	save, _ := cmd.Flags().GetBool("save")
	input, _ := cmd.Flags().GetString("input")
	flatType, _ := cmd.Flags().GetString("flat-type")
	flatType = strings.ToUpper(strings.TrimSpace(flatType))
	towns := splitAndTrim(mustString(cmd, "towns"))

	log := zap.L().With(zap.String("command", "score"))

	var st store.Store
	if input == "" || save {
		var err error
		st, err = openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}
	}

	rows, err := loadScoreRows(ctx, st, input, towns, flatType)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("No transactions matched. Run 'flatfind fetch' or 'flatfind import' first.")
		return nil
	}

	recentMonths, _ := cmd.Flags().GetInt("recent-months")
	if recentMonths <= 0 {
		recentMonths = cfg.Resale.RecentMonths
	}
	cheapest := dataset.CheapestRecent(rows, recentMonths, time.Now())

	cands := make([]scorer.Candidate, 0, len(cheapest))
	for _, row := range cheapest {
		cands = append(cands, scorer.CandidateFromRow(row))
	}

	weights, err := resolveWeights(cmd)
	if err != nil {
		return err
	}
	profile := profileFromFlags(cmd)

	log.Info("scoring candidates",
		zap.Int("transactions", len(rows)),
		zap.Int("candidates", len(cands)),
		zap.Int("recent_months", recentMonths),
		zap.Bool("profile", profile != nil),
	)

	env := initCore()
	results, err := env.Scorer.ScoreBatch(ctx, cands, weights, profile)
	if err != nil {
		return err
	}

	if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	if err := outputResults(results, format, outputPath); err != nil {
		return err
	}

	if save {
		run, err := scorer.SaveRun(ctx, st, cands, weights, profile, flatType, towns, results)
		if err != nil {
			return err
		}
		fmt.Printf("Saved run %s\n", run.ID)
	}

	return nil
}

func mustString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}

func loadScoreRows(ctx context.Context, st store.Store, input string, towns []string, flatType string) ([]dataset.FlatRow, error) {
	if input != "" {
		rows, err := dataset.ReadFile(input)
		if err != nil {
			return nil, err
		}
		return filterRows(rows, towns, flatType), nil
	}
	return st.ListListings(ctx, store.ListingFilter{Towns: towns, FlatType: flatType})
}

func filterRows(rows []dataset.FlatRow, towns []string, flatType string) []dataset.FlatRow {
	if len(towns) == 0 && flatType == "" {
		return rows
	}
	townSet := make(map[string]bool, len(towns))
	for _, t := range towns {
		townSet[t] = true
	}
	var out []dataset.FlatRow
	for _, r := range rows {
		if flatType != "" && r.FlatType != flatType {
			continue
		}
		if len(townSet) > 0 && !townSet[r.Town] {
			continue
		}
		out = append(out, r)
	}
	return out
}

func resolveWeights(cmd *cobra.Command) (scorer.Weights, error) {
	if path := mustString(cmd, "weights"); path != "" {
		return scorer.LoadWeightsFile(path)
	}
	return cfg.Weights()
}

func profileFromFlags(cmd *cobra.Command) *scorer.Profile {
	age, _ := cmd.Flags().GetFloat64("age")
	income, _ := cmd.Flags().GetFloat64("income")
	budget, _ := cmd.Flags().GetFloat64("budget")
	if age <= 0 && income <= 0 && budget <= 0 {
		return nil
	}
	p := &scorer.Profile{}
	if age > 0 {
		p.Age = &age
	}
	if income > 0 {
		p.IncomePerAnnum = &income
	}
	if budget > 0 {
		p.DownPaymentBudget = &budget
	}
	return p
}

var resultHeader = []string{"rank", "composite_key", "score", "d_mrt_m", "d_school_m", "d_hospital_m", "afford_score"}

func resultRow(rank int, r scorer.ScoreResult) []string {
	affordCol := ""
	if r.AffordabilityScore != nil {
		affordCol = fmt.Sprintf("%d", *r.AffordabilityScore)
	}
	return []string{
		fmt.Sprintf("%d", rank),
		r.Key,
		fmt.Sprintf("%.1f", r.Score),
		fmt.Sprintf("%.0f", r.Distances.Transit),
		fmt.Sprintf("%.0f", r.Distances.School),
		fmt.Sprintf("%.0f", r.Distances.Hospital),
		affordCol,
	}
}

func outputResults(results []scorer.ScoreResult, format, outputPath string) error {
	if format == "xlsx" {
		return writeResultXLSX(outputPath, results)
	}

	w := os.Stdout
	if outputPath != "" {
		var err error
		w, err = os.Create(outputPath)
		if err != nil {
			return eris.Wrapf(err, "score: create output file %s", outputPath)
		}
		defer w.Close() //nolint:errcheck
	}

	if format == "csv" {
		return writeResultCSV(w, results)
	}
	return writeResultTable(w, results)
}

func writeResultCSV(w *os.File, results []scorer.ScoreResult) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(resultHeader); err != nil {
		return eris.Wrap(err, "score: write CSV header")
	}
	for i, r := range results {
		if err := cw.Write(resultRow(i+1, r)); err != nil {
			return eris.Wrap(err, "score: write CSV row")
		}
	}
	return nil
}

func writeResultTable(w *os.File, results []scorer.ScoreResult) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, "No results.")
		return err
	}

	header := fmt.Sprintf("%-5s %-55s %7s %8s %9s %10s %7s\n",
		"Rank", "Candidate", "Score", "MRT", "School", "Hospital", "Afford")
	if _, err := fmt.Fprint(w, header); err != nil {
		return eris.Wrap(err, "score: write table header")
	}
	if _, err := fmt.Fprintln(w, strings.Repeat("-", 106)); err != nil {
		return eris.Wrap(err, "score: write table separator")
	}

	for i, r := range results {
		key := r.Key
		if len(key) > 55 {
			key = key[:52] + "..."
		}
		affordCol := "-"
		if r.AffordabilityScore != nil {
			affordCol = fmt.Sprintf("%d", *r.AffordabilityScore)
		}
		line := fmt.Sprintf("%-5d %-55s %7.1f %7.0fm %8.0fm %9.0fm %7s\n",
			i+1, key, r.Score, r.Distances.Transit, r.Distances.School, r.Distances.Hospital, affordCol)
		if _, err := fmt.Fprint(w, line); err != nil {
			return eris.Wrap(err, "score: write table row")
		}
	}
	return nil
}

func writeResultXLSX(path string, results []scorer.ScoreResult) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Ranking")
	if err != nil {
		return eris.Wrap(err, "score: add sheet")
	}

	hr := sheet.AddRow()
	for _, h := range resultHeader {
		hr.AddCell().SetString(h)
	}
	for i, r := range results {
		row := sheet.AddRow()
		for _, cell := range resultRow(i+1, r) {
			row.AddCell().SetString(cell)
		}
	}

	if err := file.Save(path); err != nil {
		return eris.Wrapf(err, "score: save %s", path)
	}
	return nil
}
