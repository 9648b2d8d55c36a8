package main

import (
	"math/rand"
	"time"
)

// DefaultTopics is used when the configuration lists no topics
var DefaultTopics = []string{
	"best budget monitor stand",
	"laptop stand for posture",
	"ergonomic keyboard for students",
	"desk chair for back pain under $150",
	"compact standing desk for dorm",
	"best desk lamp for studying",
	"ergonomic mouse for small hands",
	"desk organization ideas for small desks",
}

// unixEpochOrdinal is the day number of 1970-01-01 counting 0001-01-01 as day 1
const unixEpochOrdinal = 719163

// TopicSelector picks the subject of the next post
type TopicSelector interface {
	Pick(topics []string, now time.Time) string
}

// RandomSelector draws uniformly; repeats across runs are possible
type RandomSelector struct {
	rng *rand.Rand
}

// NewRandomSelector creates a selector seeded from seed
func NewRandomSelector(seed int64) *RandomSelector {
	return &RandomSelector{rng: rand.New(rand.NewSource(seed))}
}

func (s *RandomSelector) Pick(topics []string, _ time.Time) string {
	return PickRandom(topics, s.rng)
}

// RotationSelector advances one topic per calendar day
type RotationSelector struct{}

func (RotationSelector) Pick(topics []string, now time.Time) string {
	return PickForDate(topics, now)
}

// PickRandom returns a uniformly chosen topic. topics must be non-empty.
func PickRandom(topics []string, rng *rand.Rand) string {
	return topics[rng.Intn(len(topics))]
}

// PickForDate returns the topic for the calendar date of t. topics must be non-empty.
func PickForDate(topics []string, t time.Time) string {
	return topics[RotationIndex(t, len(topics))]
}

// RotationIndex maps the calendar date of t onto [0, n)
func RotationIndex(t time.Time, n int) int {
	return int(DayOrdinal(t) % int64(n))
}

// DayOrdinal returns the proleptic Gregorian day number of t's calendar date,
// with 0001-01-01 as day 1
func DayOrdinal(t time.Time) int64 {
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	days := midnight.Unix() / 86400
	if midnight.Unix()%86400 < 0 {
		days--
	}
	return days + unixEpochOrdinal
}
