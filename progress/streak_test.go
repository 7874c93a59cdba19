package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cppla/spiritfit/models"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func completed(days ...string) []models.SessionRecord {
	out := make([]models.SessionRecord, 0, len(days))
	for _, d := range days {
		at := date(d).Add(20 * time.Hour)
		out = append(out, models.SessionRecord{SessionDate: date(d), CompletedAt: &at})
	}
	return out
}

func TestCalculateStreak(t *testing.T) {
	cases := []struct {
		name     string
		sessions []models.SessionRecord
		today    string
		want     Streak
	}{
		{"empty", nil, "2024-01-05", Streak{}},
		{"single today", completed("2024-01-05"), "2024-01-05", Streak{1, 1}},
		{"gap then today", completed("2024-01-01", "2024-01-02", "2024-01-03", "2024-01-05"), "2024-01-05", Streak{1, 3}},
		{"today and yesterday then older run", completed("2024-01-01", "2024-01-05", "2024-01-06"), "2024-01-06", Streak{2, 2}},
		{"grace day", completed("2024-01-03", "2024-01-04"), "2024-01-05", Streak{2, 2}},
		{"lapsed", completed("2024-01-02", "2024-01-03"), "2024-01-05", Streak{0, 2}},
		{"duplicate date", completed("2024-01-04", "2024-01-05", "2024-01-05"), "2024-01-05", Streak{2, 2}},
		{"unsorted input", completed("2024-01-05", "2024-01-03", "2024-01-04"), "2024-01-05", Streak{3, 3}},
		{"future date is not active", completed("2024-01-07"), "2024-01-05", Streak{0, 1}},
		{"current is longest", completed("2024-01-01", "2024-01-03", "2024-01-04", "2024-01-05"), "2024-01-05", Streak{3, 3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CalculateStreak(tc.sessions, date(tc.today)))
		})
	}
}

func TestCalculateStreakIgnoresIncompleteSessions(t *testing.T) {
	sessions := completed("2024-01-04")
	sessions = append(sessions, models.SessionRecord{SessionDate: date("2024-01-05"), WorshipCompleted: true})
	assert.Equal(t, Streak{1, 1}, CalculateStreak(sessions, date("2024-01-05")))
}

func TestStreakMonotonicity(t *testing.T) {
	// Every subset of a two-week window, against a few "today" values.
	base := date("2024-03-01")
	for mask := 0; mask < 1<<14; mask += 37 {
		var dates []time.Time
		for i := 0; i < 14; i++ {
			if mask&(1<<i) != 0 {
				dates = append(dates, base.AddDate(0, 0, i))
			}
		}
		for _, offset := range []int{13, 14, 15, 20} {
			s := StreakFromDates(dates, base.AddDate(0, 0, offset))
			assert.GreaterOrEqual(t, s.Current, 0)
			assert.GreaterOrEqual(t, s.Longest, s.Current, "mask=%b offset=%d", mask, offset)
		}
	}
}

func TestDayUsesViewerZone(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	instant := time.Date(2024, 1, 4, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, date("2024-01-05"), Day(instant, tokyo))
	assert.Equal(t, date("2024-01-04"), Day(instant, time.UTC))
	assert.Equal(t, date("2024-01-04"), Day(instant, nil))
	assert.Equal(t, 1, DaysBetween(date("2024-01-05"), date("2024-01-04")))
}

func TestLoadLocationFallback(t *testing.T) {
	assert.Equal(t, time.UTC, LoadLocation("", time.UTC))
	assert.Equal(t, time.UTC, LoadLocation("Not/AZone", time.UTC))
}

func TestRollup(t *testing.T) {
	sessions := completed("2024-01-04", "2024-01-05")
	sessions[0].DurationMinutes = 15
	sessions[1].DurationMinutes = 20
	sessions = append(sessions, models.SessionRecord{SessionDate: date("2024-01-06"), DurationMinutes: 5})

	p := Rollup(7, sessions, date("2024-01-06"))
	assert.Equal(t, uint(7), p.UserID)
	assert.Equal(t, 2, p.CurrentStreak)
	assert.Equal(t, 2, p.LongestStreak)
	assert.Equal(t, 2, p.TotalSessions)
	assert.Equal(t, 40, p.TotalMinutes)
	if assert.NotNil(t, p.LastSessionDate) {
		assert.Equal(t, date("2024-01-05"), *p.LastSessionDate)
	}
}

func TestActiveStreakLapses(t *testing.T) {
	last := date("2024-01-05")
	row := models.UserProgress{CurrentStreak: 5, LastSessionDate: &last}

	assert.Equal(t, 5, ActiveStreak(row, date("2024-01-05")))
	assert.Equal(t, 5, ActiveStreak(row, date("2024-01-06")))
	assert.Equal(t, 0, ActiveStreak(row, date("2024-01-07")))
	assert.Equal(t, 0, ActiveStreak(row, date("2024-01-15")))
	assert.Equal(t, 5, ActiveStreak(row, date("2024-01-04")))
	assert.Equal(t, 0, ActiveStreak(models.UserProgress{CurrentStreak: 3}, date("2024-01-05")))
}
