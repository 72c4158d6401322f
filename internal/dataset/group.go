package dataset

import (
	"sort"
	"time"

	"go.uber.org/zap"
)

type blockAgg struct {
	bestRecent *FlatRow
	bestAll    *FlatRow
}

// pickStrategy selects a representative row from an aggregate. The
// strategies run in declared order; the first non-nil result wins.
type pickStrategy struct {
	name string
	pick func(*blockAgg) *FlatRow
}

var pickStrategies = []pickStrategy{
	{name: "cheapest-recent", pick: func(a *blockAgg) *FlatRow { return a.bestRecent }},
	{name: "cheapest-ever", pick: func(a *blockAgg) *FlatRow { return a.bestAll }},
}

// CheapestRecent reduces transaction rows to one representative per
// block (block|street|town): the cheapest sale within the trailing
// recentMonths window ending at now, or the cheapest sale ever when
// the block has no transaction inside the window. Rows with
// unparseable prices are dropped. Output is sorted by group key so
// repeated runs over the same input produce identical slices.
func CheapestRecent(rows []FlatRow, recentMonths int, now time.Time) []FlatRow {
	anchor := CurrentMonth(now)
	groups := make(map[string]*blockAgg)
	var order []string

	for i := range rows {
		r := &rows[i]
		price, ok := r.Price()
		if !ok {
			continue
		}

		key := r.GroupKey()
		ag := groups[key]
		if ag == nil {
			ag = &blockAgg{}
			groups[key] = ag
			order = append(order, key)
		}

		if ag.bestAll == nil || mustPrice(ag.bestAll) > price {
			ag.bestAll = r
		}
		if WithinRecentMonths(r.Month, anchor, recentMonths) {
			if ag.bestRecent == nil || mustPrice(ag.bestRecent) > price {
				ag.bestRecent = r
			}
		}
	}

	sort.Strings(order)

	out := make([]FlatRow, 0, len(groups))
	for _, key := range order {
		ag := groups[key]
		for _, s := range pickStrategies {
			if pick := s.pick(ag); pick != nil {
				out = append(out, *pick)
				break
			}
		}
	}

	zap.L().Debug("grouped resale rows",
		zap.Int("input", len(rows)),
		zap.Int("blocks", len(out)),
		zap.Int("recent_months", recentMonths))
	return out
}

// mustPrice is only called on rows that already passed a Price check.
func mustPrice(r *FlatRow) float64 {
	v, _ := r.Price()
	return v
}
