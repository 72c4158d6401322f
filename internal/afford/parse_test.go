package afford

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"$500,000", 500000, true},
		{"500000", 500000, true},
		{"SGD 432,100.50", 432100.50, true},
		{"", 0, false},
		{"n/a", 0, false},
		{"...", 0, false},
	}
	for _, tt := range tests {
		got := ParseCurrency(tt.in)
		if !tt.ok {
			assert.Nil(t, got, "input %q", tt.in)
			continue
		}
		require.NotNil(t, got, "input %q", tt.in)
		assert.InDelta(t, tt.want, *got, 1e-9)
	}
}

func TestParseRemainingLeaseYears(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"70 years 03 months", 70, true},
		{"61 years", 61, true},
		{"95", 95, true},
		{"  88 years 11 months  ", 88, true},
		{"", 0, false},
		{"freehold", 0, false},
	}
	for _, tt := range tests {
		got := ParseRemainingLeaseYears(tt.in)
		if !tt.ok {
			assert.Nil(t, got, "input %q", tt.in)
			continue
		}
		require.NotNil(t, got, "input %q", tt.in)
		assert.InDelta(t, tt.want, *got, 1e-9)
	}
}
