package models

import "time"

// StreakRecord is the synced coding-practice summary for a student in a season.
type StreakRecord struct {
	ID               string     `db:"id" json:"id"`
	StudentID        string     `db:"student_id" json:"student_id"`
	SeasonID         string     `db:"season_id" json:"season_id"`
	CurrentStreak    int        `db:"current_streak" json:"current_streak"`
	LongestStreak    int        `db:"longest_streak" json:"longest_streak"`
	SeasonStreakDays int        `db:"season_streak_days" json:"season_streak_days"`
	LastSyncedAt     *time.Time `db:"last_synced_at" json:"last_synced_at,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// ProviderActivity is what the coding-practice provider reports for a handle.
type ProviderActivity struct {
	Handle        string `json:"handle"`
	CurrentStreak int    `json:"current_streak"`
	ActiveToday   bool   `json:"active_today"`
	TotalSolved   int    `json:"total_solved"`
}

// ApplyActivity folds one successful provider sync into the record.
//
// The season counter is bumped once per successful sync that reports activity,
// not once per calendar day, so several syncs on one day count several times.
func (r *StreakRecord) ApplyActivity(a ProviderActivity, now time.Time) {
	r.CurrentStreak = a.CurrentStreak
	if a.CurrentStreak > r.LongestStreak {
		r.LongestStreak = a.CurrentStreak
	}
	if a.ActiveToday {
		r.SeasonStreakDays++
	}
	synced := now
	r.LastSyncedAt = &synced
}
