package progress

import (
	"sort"
	"time"

	"github.com/cppla/spiritfit/models"
)

// Streak is the pair of derived streak counters.
type Streak struct {
	Current int `json:"current_streak"`
	Longest int `json:"longest_streak"`
}

// CalculateStreak derives the streak from a user's session log. Only sessions
// with a CompletedAt count. today is the viewer's calendar day (see Day).
func CalculateStreak(sessions []models.SessionRecord, today time.Time) Streak {
	dates := make([]time.Time, 0, len(sessions))
	for _, s := range sessions {
		if s.CompletedAt != nil {
			dates = append(dates, s.SessionDate)
		}
	}
	return StreakFromDates(dates, today)
}

// StreakFromDates computes the streak over completed session dates.
//
// The current streak is the run of consecutive days containing the most recent
// date, and only counts while that date is today or yesterday. A repeated date
// neither extends nor breaks a run.
func StreakFromDates(dates []time.Time, today time.Time) Streak {
	if len(dates) == 0 {
		return Streak{}
	}
	days := make([]int64, len(dates))
	for i, d := range dates {
		days[i] = dayNumber(d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] > days[j] })

	gap := dayNumber(today) - days[0]
	active := gap == 0 || gap == 1

	run, longest := 1, 1
	first, inFirst := 0, true
	for i := 1; i < len(days); i++ {
		switch days[i-1] - days[i] {
		case 0:
			continue
		case 1:
			run++
		default:
			if inFirst {
				first, inFirst = run, false
			}
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	if inFirst {
		first = run
	}

	s := Streak{Longest: longest}
	if active {
		s.Current = first
	}
	if s.Current > s.Longest {
		s.Longest = s.Current
	}
	return s
}

// ActiveStreak reads a stored progress row as of today. The row is only
// rewritten when its owner is active, so a last session older than
// yesterday means the run has lapsed.
func ActiveStreak(p models.UserProgress, today time.Time) int {
	if p.LastSessionDate == nil || DaysBetween(today, *p.LastSessionDate) > 1 {
		return 0
	}
	return p.CurrentStreak
}

// Rollup recomputes a user's progress row from the full session log.
func Rollup(userID uint, sessions []models.SessionRecord, today time.Time) models.UserProgress {
	p := models.UserProgress{UserID: userID}
	streak := CalculateStreak(sessions, today)
	p.CurrentStreak = streak.Current
	p.LongestStreak = streak.Longest

	for i := range sessions {
		s := sessions[i]
		// minutes accrue per phase, so unfinished days count too
		p.TotalMinutes += s.DurationMinutes
		if s.CompletedAt == nil {
			continue
		}
		p.TotalSessions++
		if p.LastSessionDate == nil || s.SessionDate.After(*p.LastSessionDate) {
			d := s.SessionDate
			p.LastSessionDate = &d
		}
	}
	return p
}
