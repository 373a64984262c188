package importer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocaleNumber(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
		ok    bool
	}{
		{"negative currency with space", "-$ 200,00", -200.00, true},
		{"minus after currency symbol", "$ -200,00", -200.00, true},
		{"quoted currency cell", `"-$ 200,00"`, -200.00, true},
		{"plain comma decimal", "1234,56", 1234.56, true},
		{"thousands dot with comma decimal", "$ 1.234,56", 1234.56, true},
		{"plain integer", "3", 3, true},
		{"euro symbol", "€ 12,50", 12.50, true},
		{"accounting negative", "(150,25)", -150.25, true},
		{"empty", "", 0, false},
		{"whitespace only", "   ", 0, false},
		{"no digits", "$ --", 0, false},
		{"garbage", "abc", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLocaleNumber(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseAmbiguousDate_Disambiguation(t *testing.T) {
	now := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)

	// First group >12: must be the day
	got, ok := ParseAmbiguousDate("15/12/2025 23:59:59", now)
	require.True(t, ok)
	assert.Equal(t, 15, got.Day())
	assert.Equal(t, time.December, got.Month())
	assert.Equal(t, 2025, got.Year())

	// Second group >12: second is the day
	got, ok = ParseAmbiguousDate("9/15/2025 08:00:00", now)
	require.True(t, ok)
	assert.Equal(t, 15, got.Day())
	assert.Equal(t, time.September, got.Month())

	// Both groups <=12: month-first default
	got, ok = ParseAmbiguousDate("2/9/2025 12:18:21", now)
	require.True(t, ok)
	assert.Equal(t, time.February, got.Month())
	assert.Equal(t, 9, got.Day())
	assert.Equal(t, 12, got.Hour())
	assert.Equal(t, 18, got.Minute())
	assert.Equal(t, 21, got.Second())
}

func TestParseAmbiguousDate_ContractYearCorrection(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	// More than 30 days in the future: shifted back exactly one year
	got, ok := ParseAmbiguousDate("15/9/2025 10:00:00", now)
	require.True(t, ok)
	assert.Equal(t, 2024, got.Year())
	assert.Equal(t, time.September, got.Month())
	assert.Equal(t, 15, got.Day())

	// Within 30 days of now: unchanged
	got, ok = ParseAmbiguousDate("15/6/2025 10:00:00", now)
	require.True(t, ok)
	assert.Equal(t, 2025, got.Year())

	// In the past: unchanged
	got, ok = ParseAmbiguousDate("15/1/2025 10:00:00", now)
	require.True(t, ok)
	assert.Equal(t, 2025, got.Year())
}

func TestParseAmbiguousDate_Invalid(t *testing.T) {
	now := time.Now()

	for _, input := range []string{
		"",
		"not a date",
		"15-12-2025 10:00:00",
		"15/12 10:00:00",
		"31/2/2025 10:00:00", // rolls over
		"15/12/2025 10",      // truncated time
		"a/b/c 10:00:00",
	} {
		_, ok := ParseAmbiguousDate(input, now)
		assert.False(t, ok, "input %q should not parse", input)
	}
}

func TestParseAmbiguousDate_DateOnly(t *testing.T) {
	now := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)

	got, ok := ParseAmbiguousDate("15/11/2025", now)
	require.True(t, ok)
	assert.Equal(t, 0, got.Hour())
	assert.Equal(t, 15, got.Day())
}

func TestParseAmbiguousDate_TwoDigitYear(t *testing.T) {
	now := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)

	got, ok := ParseAmbiguousDate("15/11/25 09:30:00", now)
	require.True(t, ok)
	assert.Equal(t, 2025, got.Year())
}
