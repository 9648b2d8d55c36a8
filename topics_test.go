package main

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayOrdinal(t *testing.T) {
	tests := []struct {
		name     string
		date     time.Time
		expected int64
	}{
		{"first day", time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC), 1},
		{"unix epoch", time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), 719163},
		{"before epoch", time.Date(1969, 12, 31, 23, 59, 0, 0, time.UTC), 719162},
		{"leap day", time.Date(2000, 2, 29, 12, 0, 0, 0, time.UTC), 730179},
		{"late in the day", time.Date(2026, 10, 17, 23, 59, 59, 0, time.UTC), 739906},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DayOrdinal(tt.date))
		})
	}
}

func TestRotationIndexInRangeAndStable(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for n := 1; n <= 13; n++ {
		for day := 0; day < 400; day++ {
			date := start.AddDate(0, 0, day)
			idx := RotationIndex(date, n)
			require.GreaterOrEqual(t, idx, 0)
			require.Less(t, idx, n)

			later := date.Add(17 * time.Hour)
			require.Equal(t, idx, RotationIndex(later, n), "same calendar date must give same index")
		}
	}
}

func TestRotationAdvancesDaily(t *testing.T) {
	topics := []string{"a", "b", "c", "d"}
	day := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)

	first := RotationIndex(day, len(topics))
	next := RotationIndex(day.AddDate(0, 0, 1), len(topics))

	assert.Equal(t, (first+1)%len(topics), next)
	assert.Equal(t, topics[first], PickForDate(topics, day))
	assert.Equal(t, PickForDate(topics, day), RotationSelector{}.Pick(topics, day))
}

func TestPickRandom(t *testing.T) {
	topics := []string{"one", "two", "three"}
	rng := rand.New(rand.NewSource(42))

	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		topic := PickRandom(topics, rng)
		assert.Contains(t, topics, topic)
		seen[topic] = true
	}
	assert.Len(t, seen, len(topics), "every topic should eventually be drawn")

	single := NewRandomSelector(1)
	assert.Equal(t, "only", single.Pick([]string{"only"}, time.Now()))
}
