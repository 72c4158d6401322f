package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/flatfind-sg/flatfind-cli/internal/dataset"
	"github.com/flatfind-sg/flatfind-cli/internal/proximity"
	"github.com/flatfind-sg/flatfind-cli/internal/scorer"
)

func TestSplitAndTrim(t *testing.T) {
	assert.Equal(t, []string{"ANG MO KIO", "BEDOK"}, splitAndTrim(" ang mo kio , BEDOK ,"))
	assert.Nil(t, splitAndTrim(""))
	assert.Nil(t, splitAndTrim(" , ,"))
}

func TestFilterRows(t *testing.T) {
	rows := []dataset.FlatRow{
		{Town: "BEDOK", FlatType: "4 ROOM", Block: "1"},
		{Town: "BEDOK", FlatType: "3 ROOM", Block: "2"},
		{Town: "ANG MO KIO", FlatType: "4 ROOM", Block: "3"},
	}

	assert.Len(t, filterRows(rows, nil, ""), 3)

	out := filterRows(rows, []string{"BEDOK"}, "4 ROOM")
	require.Len(t, out, 1)
	assert.Equal(t, "1", out[0].Block)

	out = filterRows(rows, nil, "4 ROOM")
	assert.Len(t, out, 2)
}

func newScoreFlagCmd() *cobra.Command {
	cmd := &cobra.Command{}
	f := cmd.Flags()
	f.Float64("age", 0, "")
	f.Float64("income", 0, "")
	f.Float64("budget", 0, "")
	return cmd
}

func TestProfileFromFlags(t *testing.T) {
	cmd := newScoreFlagCmd()
	assert.Nil(t, profileFromFlags(cmd))

	require.NoError(t, cmd.Flags().Set("age", "35"))
	require.NoError(t, cmd.Flags().Set("income", "120000"))
	p := profileFromFlags(cmd)
	require.NotNil(t, p)
	require.NotNil(t, p.Age)
	assert.Equal(t, 35.0, *p.Age)
	require.NotNil(t, p.IncomePerAnnum)
	assert.Equal(t, 120000.0, *p.IncomePerAnnum)
	assert.Nil(t, p.DownPaymentBudget)
}

func sampleResults() []scorer.ScoreResult {
	seven := 7
	return []scorer.ScoreResult{
		{Key: "309__NEAR%20RD__4%20ROOM__2024-03__0", Score: 81.5,
			Distances: proximity.Distances{Transit: 111, School: 556, Hospital: 2224}, AffordabilityScore: &seven},
		{Key: "500__FAR%20RD__4%20ROOM__2024-01__0", Score: 33.2,
			Distances: proximity.Distances{Transit: 17000, School: 15000, Hospital: 16000}},
	}
}

func TestWriteResultCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, writeResultCSV(f, sampleResults()))
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(resultHeader, ","), lines[0])
	assert.Contains(t, lines[1], "81.5")
	assert.Contains(t, lines[1], ",7")
	assert.True(t, strings.HasSuffix(lines[2], ","), "missing afford score should leave the column empty")
}

func TestWriteResultTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, writeResultTable(f, sampleResults()))
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Rank")
	assert.Contains(t, string(data), "81.5")
}

func TestWriteResultXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, writeResultXLSX(path, sampleResults()))

	file, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, file.Sheets, 1)
	sheet := file.Sheets[0]
	assert.Equal(t, "Ranking", sheet.Name)
	require.GreaterOrEqual(t, len(sheet.Rows), 3)
	assert.Equal(t, "rank", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "81.5", sheet.Rows[1].Cells[2].String())
}
