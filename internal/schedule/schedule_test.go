package schedule

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/focusd/site_block/internal/domain"
)

// mondayAt returns a timestamp on a known Monday at the given wall time.
// 2024-01-01 was a Monday.
func mondayAt(hour, minute int) time.Time {
	return time.Date(2024, 1, 1, hour, minute, 0, 0, time.UTC)
}

func workWindow() domain.Schedule {
	return domain.Schedule{
		ID:          "s1",
		Name:        "Morning focus",
		StartHour:   9,
		StartMinute: 0,
		EndHour:     10,
		EndMinute:   0,
		Days:        []int{1}, // Monday
		Enabled:     true,
	}
}

func TestShouldBlock_HalfOpenInterval(t *testing.T) {
	schedules := []domain.Schedule{workWindow()}

	tests := []struct {
		name     string
		now      time.Time
		expected bool
	}{
		{name: "inside window", now: mondayAt(9, 30), expected: true},
		{name: "start boundary inclusive", now: mondayAt(9, 0), expected: true},
		{name: "end boundary exclusive", now: mondayAt(10, 0), expected: false},
		{name: "one minute before start", now: mondayAt(8, 59), expected: false},
		{name: "wrong weekday", now: mondayAt(9, 30).AddDate(0, 0, 1), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ShouldBlock(schedules, tt.now))
		})
	}
}

func TestShouldBlock_DisabledScheduleNeverMatches(t *testing.T) {
	s := workWindow()
	s.Enabled = false

	assert.False(t, ShouldBlock([]domain.Schedule{s}, mondayAt(9, 30)))
}

func TestShouldBlock_EmptyCollection(t *testing.T) {
	assert.False(t, ShouldBlock(nil, mondayAt(9, 30)))
	assert.False(t, ShouldBlock([]domain.Schedule{}, mondayAt(9, 30)))
}

// TestShouldBlock_NoMidnightWraparound verifies that a window whose start
// is at or after its end never matches. This is a documented limitation,
// not something to silently fix.
func TestShouldBlock_NoMidnightWraparound(t *testing.T) {
	s := workWindow()
	s.StartHour = 22
	s.EndHour = 6

	assert.False(t, ShouldBlock([]domain.Schedule{s}, mondayAt(23, 0)))
	assert.False(t, ShouldBlock([]domain.Schedule{s}, mondayAt(3, 0)))

	// Degenerate zero-length window.
	s.StartHour, s.EndHour = 9, 9
	assert.False(t, ShouldBlock([]domain.Schedule{s}, mondayAt(9, 0)))
}

// TestShouldBlock_OrderIndependent shuffles the collection and checks the
// result never changes: evaluation is a boolean OR.
func TestShouldBlock_OrderIndependent(t *testing.T) {
	schedules := []domain.Schedule{
		{ID: "a", StartHour: 7, EndHour: 8, Days: []int{1}, Enabled: true},
		{ID: "b", StartHour: 9, EndHour: 10, Days: []int{1}, Enabled: true},
		{ID: "c", StartHour: 14, EndHour: 18, Days: []int{2, 3}, Enabled: true},
		{ID: "d", StartHour: 9, EndHour: 17, Days: []int{1}, Enabled: false},
	}
	now := mondayAt(9, 30)

	want := ShouldBlock(schedules, now)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		rng.Shuffle(len(schedules), func(a, b int) {
			schedules[a], schedules[b] = schedules[b], schedules[a]
		})
		assert.Equal(t, want, ShouldBlock(schedules, now))
	}
}

func TestShouldBlock_MultipleDays(t *testing.T) {
	s := workWindow()
	s.Days = []int{1, 2, 3, 4, 5}

	// Wednesday inside the window.
	wednesday := mondayAt(9, 15).AddDate(0, 0, 2)
	assert.True(t, ShouldBlock([]domain.Schedule{s}, wednesday))

	// Sunday is not in the set.
	sunday := mondayAt(9, 15).AddDate(0, 0, 6)
	assert.False(t, ShouldBlock([]domain.Schedule{s}, sunday))
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(workWindow()))

	tests := []struct {
		name   string
		mutate func(*domain.Schedule)
	}{
		{name: "hour above range", mutate: func(s *domain.Schedule) { s.StartHour = 24 }},
		{name: "negative hour", mutate: func(s *domain.Schedule) { s.EndHour = -1 }},
		{name: "minute above range", mutate: func(s *domain.Schedule) { s.StartMinute = 60 }},
		{name: "no days", mutate: func(s *domain.Schedule) { s.Days = nil }},
		{name: "day above range", mutate: func(s *domain.Schedule) { s.Days = []int{7} }},
		{name: "negative day", mutate: func(s *domain.Schedule) { s.Days = []int{-1} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := workWindow()
			tt.mutate(&s)
			assert.Error(t, Validate(s))
		})
	}
}

// Inverted windows are valid (they just never match).
func TestValidate_InvertedWindowAllowed(t *testing.T) {
	s := workWindow()
	s.StartHour, s.EndHour = 22, 6
	assert.NoError(t, Validate(s))
}
