// Package geocode resolves HDB address keys to WGS84 coordinates using a
// static block-coordinate dataset produced by the offline geocoding job.
// Lookups probe an exact block|street|town index first, then fall back to a
// loose block|street index.
package geocode

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/flatfind-sg/flatfind-cli/internal/geo"
)

// Index maps normalized address keys to coordinates. It is built at most once
// per instance and is read-only afterwards, so lookups need no locking.
type Index struct {
	path string

	once     sync.Once
	buildErr error
	exact    map[string]geo.Point
	loose    map[string]geo.Point
}

// NewIndex creates an Index backed by the block-coordinate CSV at path.
// The file is not read until the first Build or Resolve call.
func NewIndex(path string) *Index {
	return &Index{path: path}
}

// Build reads and indexes the dataset. It is idempotent: the first call does
// the work and subsequent calls return the same outcome without re-reading.
func (ix *Index) Build() error {
	ix.once.Do(func() {
		f, err := os.Open(ix.path)
		if err != nil {
			ix.buildErr = eris.Wrapf(err, "geocode: open dataset %s", ix.path)
			return
		}
		defer f.Close() //nolint:errcheck

		ix.exact, ix.loose, ix.buildErr = parseDataset(f)
		if ix.buildErr == nil {
			zap.L().Info("geocode: index built",
				zap.String("path", ix.path),
				zap.Int("exact_entries", len(ix.exact)),
				zap.Int("loose_entries", len(ix.loose)),
			)
		}
	})
	return ix.buildErr
}

// Resolve returns the coordinate for an address key, or nil when neither the
// exact nor the loose index has it. An unresolved address is not an error;
// the only error condition is a failed lazy build.
func (ix *Index) Resolve(key AddressKey) (*geo.Point, error) {
	if err := ix.Build(); err != nil {
		return nil, err
	}
	for _, s := range ix.strategies(key) {
		if pt, ok := s.probe(); ok {
			return &pt, nil
		}
	}
	return nil, nil
}

// Lookup resolves a raw block/street/town triple.
func (ix *Index) Lookup(block, street, town string) (*geo.Point, error) {
	return ix.Resolve(AddressKey{Block: block, Street: street, Town: town})
}

// lookupStrategy is one step of the resolution chain. Keeping the chain as an
// explicit ordered list makes the exact-before-loose precedence testable.
type lookupStrategy struct {
	name  string
	probe func() (geo.Point, bool)
}

func (ix *Index) strategies(key AddressKey) []lookupStrategy {
	k := key.Normalized()
	var out []lookupStrategy
	if k.Town != "" {
		out = append(out, lookupStrategy{
			name: "exact",
			probe: func() (geo.Point, bool) {
				pt, ok := ix.exact[ExactKey(k.Block, k.Street, k.Town)]
				return pt, ok
			},
		})
	}
	out = append(out, lookupStrategy{
		name: "loose",
		probe: func() (geo.Point, bool) {
			pt, ok := ix.loose[LooseKey(k.Block, k.Street)]
			return pt, ok
		},
	})
	return out
}

// ExactSize returns the number of exact (three-part) entries.
func (ix *Index) ExactSize() int { return len(ix.exact) }

// LooseSize returns the number of loose (two-part) entries.
func (ix *Index) LooseSize() int { return len(ix.loose) }

// Reset discards the built state so the next call rebuilds from disk.
// Intended for tests and for reloading a refreshed dataset file.
func (ix *Index) Reset() {
	ix.once = sync.Once{}
	ix.buildErr = nil
	ix.exact = nil
	ix.loose = nil
}

// parseDataset reads the block-coordinate CSV. Rows with a missing block or
// street or non-finite coordinates are skipped; missing required headers or an
// empty file abort the build.
func parseDataset(r io.Reader) (exact, loose map[string]geo.Point, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, nil, eris.Wrap(err, "geocode: dataset is empty or unreadable")
	}

	iBlk := columnIndex(header, "blk_no", "block")
	iStreet := columnIndex(header, "street", "street_name")
	iTown := columnIndex(header, "town", "estate", "bldg_contract_town")
	iLat := columnIndex(header, "lat")
	iLng := columnIndex(header, "lng")

	if iBlk < 0 || iStreet < 0 || iLat < 0 || iLng < 0 {
		return nil, nil, eris.New("geocode: dataset is missing required columns: blk_no/block, street/street_name, lat, lng")
	}

	exact = make(map[string]geo.Point)
	loose = make(map[string]geo.Point)
	var skipped int

	for {
		rec, rerr := cr.Read()
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			// Malformed row, not a structural failure.
			skipped++
			continue
		}

		blk := Norm(field(rec, iBlk))
		street := Norm(field(rec, iStreet))
		lat, latErr := strconv.ParseFloat(strings.TrimSpace(field(rec, iLat)), 64)
		lng, lngErr := strconv.ParseFloat(strings.TrimSpace(field(rec, iLng)), 64)

		if blk == "" || street == "" || latErr != nil || lngErr != nil {
			skipped++
			continue
		}
		pt := geo.Point{Lat: lat, Lng: lng}
		if !pt.Valid() {
			skipped++
			continue
		}

		if iTown >= 0 {
			if town := Norm(field(rec, iTown)); town != "" {
				exact[ExactKey(blk, street, town)] = pt
			}
		}

		// First-seen wins on duplicate loose keys. A block/street pair shared
		// across towns keeps the earlier town's coordinate; accepted
		// approximation for the fallback path.
		lk := LooseKey(blk, street)
		if _, dup := loose[lk]; !dup {
			loose[lk] = pt
		}
	}

	if len(loose) == 0 {
		return nil, nil, eris.New("geocode: dataset produced no usable rows")
	}
	if skipped > 0 {
		zap.L().Debug("geocode: skipped malformed rows", zap.Int("count", skipped))
	}
	return exact, loose, nil
}

func columnIndex(header []string, names ...string) int {
	for i, h := range header {
		h = strings.TrimSpace(h)
		for _, n := range names {
			if strings.EqualFold(h, n) {
				return i
			}
		}
	}
	return -1
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}
