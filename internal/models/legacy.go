package models

import "time"

// LegacyScore is the lifetime, non-decreasing accumulator of season results.
type LegacyScore struct {
	ID                  string    `db:"id" json:"id"`
	StudentID           string    `db:"student_id" json:"student_id"`
	TotalPoints         int       `db:"total_points" json:"total_points"`
	AscensionBonusTotal int       `db:"ascension_bonus_total" json:"ascension_bonus_total"`
	SeasonsCompleted    int       `db:"seasons_completed" json:"seasons_completed"`
	HighestSeasonScore  int       `db:"highest_season_score" json:"highest_season_score"`
	LastSeasonScore     int       `db:"last_season_score" json:"last_season_score"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// ApplySeasonResult folds one finalized season total into the legacy record and
// returns the ascension bonus awarded. It must run at most once per season.
func (l *LegacyScore) ApplySeasonResult(seasonTotal int) int {
	if seasonTotal < 0 {
		seasonTotal = 0
	}
	bonus := 0
	if l.LastSeasonScore > 0 && seasonTotal > l.LastSeasonScore {
		bonus = AscensionBonus
	}
	l.TotalPoints += seasonTotal + bonus
	l.AscensionBonusTotal += bonus
	l.SeasonsCompleted++
	if seasonTotal > l.HighestSeasonScore {
		l.HighestSeasonScore = seasonTotal
	}
	l.LastSeasonScore = seasonTotal
	return bonus
}
