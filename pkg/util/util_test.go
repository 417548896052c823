package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"":        0,
		"45":      45 * time.Minute,
		"PT1H30M": 90 * time.Minute,
		"PT15M":   15 * time.Minute,
		"1h15m":   75 * time.Minute,
	}
	for in, want := range cases {
		got, err := ParseDuration(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"P1D", "PT", "soon"} {
		_, err := ParseDuration(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseMinutes(t *testing.T) {
	n, err := ParseMinutes("PT1H")
	require.NoError(t, err)
	assert.Equal(t, 60, n)
}

func TestParseWhen(t *testing.T) {
	now := time.Date(2024, 1, 10, 22, 0, 0, 0, time.UTC)

	got, err := ParseWhen("2024-01-10T09:00:00Z", now, time.UTC)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)))

	got, err = ParseWhen("2024-02-01 14:30", now, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 1, 14, 30, 0, 0, time.UTC), got)

	got, err = ParseWhen("tomorrow", now, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseWhen("next tuesday", now, time.UTC)
	assert.Error(t, err)
}

func TestLabels(t *testing.T) {
	start := time.Date(2024, 1, 10, 9, 5, 0, 0, time.UTC)
	assert.Equal(t, "09:05 AM", ClockLabel(start, time.UTC))
	assert.Equal(t, "9:05 AM - 10:20 AM", RangeLabel(start, start.Add(75*time.Minute), time.UTC))
	assert.Equal(t, "15m", MinutesLabel(15))
}

func TestSameDay(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	a := time.Date(2024, 1, 10, 20, 0, 0, 0, time.UTC)
	b := time.Date(2024, 1, 11, 1, 0, 0, 0, time.UTC)
	assert.False(t, SameDay(a, b, time.UTC))
	assert.True(t, SameDay(a, b, tokyo))
}
