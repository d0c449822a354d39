package models

import (
	"strconv"
	"time"
)

// EpisodesPerSeason is the fixed number of weekly episodes in a season.
const EpisodesPerSeason = 4

// Season is a month-long competitive period made of four episodes.
type Season struct {
	ID        string    `db:"id" json:"id"`
	Ordinal   int       `db:"ordinal" json:"ordinal"`
	Name      string    `db:"name" json:"name"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// DateWindow is an inclusive-start, exclusive-end time range.
type DateWindow struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w DateWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Window returns the season's approval window. The end date counts as a full day.
func (s Season) Window() DateWindow {
	return DateWindow{Start: truncateDay(s.StartDate), End: truncateDay(s.EndDate).AddDate(0, 0, 1)}
}

// LengthDays counts calendar days from start to end, both inclusive.
func (s Season) LengthDays() int {
	days := int(truncateDay(s.EndDate).Sub(truncateDay(s.StartDate)).Hours()/24) + 1
	if days < 0 {
		return 0
	}
	return days
}

// EpisodeWindows splits the season into four consecutive slices. The last slice
// absorbs any remainder so the slices cover the whole season.
func (s Season) EpisodeWindows() [EpisodesPerSeason]DateWindow {
	var windows [EpisodesPerSeason]DateWindow
	whole := s.Window()
	length := s.LengthDays()
	slice := length / EpisodesPerSeason
	if slice < 1 {
		slice = 1
	}
	cursor := whole.Start
	for i := 0; i < EpisodesPerSeason; i++ {
		end := cursor.AddDate(0, 0, slice)
		if i == EpisodesPerSeason-1 || end.After(whole.End) {
			end = whole.End
		}
		windows[i] = DateWindow{Start: cursor, End: end}
		cursor = end
	}
	return windows
}

// RewardReason tags the ledger row written when a student completes the season.
func (s Season) RewardReason() string {
	return "season:" + strconv.Itoa(s.Ordinal) + " completion"
}

// SeasonFilter defines filters supported by list endpoints.
type SeasonFilter struct {
	IsActive *bool
	PageRequest
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
