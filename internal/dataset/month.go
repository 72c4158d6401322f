package dataset

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MonthKey converts "YYYY-MM" into an ordered integer (year*100+month).
// Malformed input maps to 0, which sorts before every real month.
func MonthKey(ym string) int {
	parts := strings.SplitN(ym, "-", 2)
	if len(parts) != 2 {
		return 0
	}
	y, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0
	}
	return y*100 + m
}

// AddMonths shifts a "YYYY-MM" value by delta months, normalizing
// overflow the way time.Date does.
func AddMonths(ym string, delta int) string {
	parts := strings.SplitN(ym, "-", 2)
	if len(parts) != 2 {
		return ym
	}
	y, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return ym
	}
	d := time.Date(y, time.Month(m+delta), 1, 0, 0, 0, 0, time.UTC)
	return fmt.Sprintf("%04d-%02d", d.Year(), int(d.Month()))
}

// CurrentMonth formats now as "YYYY-MM".
func CurrentMonth(now time.Time) string {
	return fmt.Sprintf("%04d-%02d", now.Year(), int(now.Month()))
}

// WithinRecentMonths reports whether month falls inside the inclusive
// window of recentMonths months ending at anchor. recentMonths <= 0
// means no window at all, so every month qualifies.
func WithinRecentMonths(month, anchor string, recentMonths int) bool {
	if recentMonths <= 0 {
		return true
	}
	start := AddMonths(anchor, -recentMonths+1)
	k := MonthKey(month)
	return k >= MonthKey(start) && k <= MonthKey(anchor)
}
