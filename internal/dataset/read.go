package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
)

// ReadFile loads resale rows from a CSV or XLSX file, dispatching on
// the extension.
func ReadFile(path string) ([]FlatRow, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ReadXLSXFile(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open %s", path)
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV parses resale rows from CSV. The first record is a header;
// columns are matched by name so export column order does not matter.
func ReadCSV(r io.Reader) ([]FlatRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "dataset: read csv")
	}
	return rowsFromRecords(records)
}

// ReadXLSXFile parses resale rows from the first sheet of an XLSX
// file, treating the first row as the header.
func ReadXLSXFile(path string) ([]FlatRow, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open xlsx %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("dataset: xlsx %s has no sheets", path)
	}

	sheet := f.Sheets[0]
	records := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		records = append(records, cells)
	}
	return rowsFromRecords(records)
}

func rowsFromRecords(records [][]string) ([]FlatRow, error) {
	if len(records) == 0 {
		return nil, eris.New("dataset: empty input")
	}

	header := records[0]
	town := columnIndex(header, "town")
	block := columnIndex(header, "block", "blk_no")
	street := columnIndex(header, "street_name", "street")
	flatType := columnIndex(header, "flat_type")
	month := columnIndex(header, "month")
	price := columnIndex(header, "resale_price")
	lease := columnIndex(header, "remaining_lease")

	for name, idx := range map[string]int{
		"town": town, "block": block, "street_name": street,
		"flat_type": flatType, "month": month, "resale_price": price,
	} {
		if idx < 0 {
			return nil, eris.Errorf("dataset: missing required column %q", name)
		}
	}

	rows := make([]FlatRow, 0, len(records)-1)
	skipped := 0
	for _, rec := range records[1:] {
		row := FlatRow{
			Town:        normU(field(rec, town)),
			Block:       normU(field(rec, block)),
			StreetName:  normU(field(rec, street)),
			FlatType:    normU(field(rec, flatType)),
			Month:       strings.TrimSpace(field(rec, month)),
			ResalePrice: strings.TrimSpace(field(rec, price)),
		}
		if lease >= 0 {
			row.RemainingLease = strings.TrimSpace(field(rec, lease))
		}
		if !row.Complete() {
			skipped++
			continue
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, eris.New("dataset: no usable rows")
	}
	if skipped > 0 {
		zap.L().Debug("skipped incomplete resale rows", zap.Int("skipped", skipped))
	}
	return rows, nil
}

func columnIndex(header []string, names ...string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		for _, name := range names {
			if h == name {
				return i
			}
		}
	}
	return -1
}

func field(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return rec[idx]
}
