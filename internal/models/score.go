package models

import "time"

// Category caps. They sum to MaxSeasonScore.
const (
	LearningScoreCap   = 100
	NetworkingScoreCap = 200
	CodingScoreCap     = 100
	CareerScoreCap     = 800
	OutcomeScoreCap    = 300
	MaxSeasonScore     = LearningScoreCap + NetworkingScoreCap + CodingScoreCap + CareerScoreCap + OutcomeScoreCap

	pointsPerNetworkingTask = 100
	pointsPerCareerType     = 200

	// AscensionBonus is added to the legacy total when a season beats the previous one.
	AscensionBonus = 5

	// DefaultStreakGraceDays is how many missed days still earn the full coding score.
	DefaultStreakGraceDays = 2
)

// SeasonScore is the unique (student, season) score record.
type SeasonScore struct {
	ID              string     `db:"id" json:"id"`
	StudentID       string     `db:"student_id" json:"student_id"`
	SeasonID        string     `db:"season_id" json:"season_id"`
	LearningScore   int        `db:"learning_score" json:"learning_score"`
	NetworkingScore int        `db:"networking_score" json:"networking_score"`
	CodingScore     int        `db:"coding_score" json:"coding_score"`
	CareerScore     int        `db:"career_score" json:"career_score"`
	OutcomeScore    int        `db:"outcome_score" json:"outcome_score"`
	TotalScore      int        `db:"total_score" json:"total_score"`
	SeasonCompleted bool       `db:"season_completed" json:"season_completed"`
	CompletedAt     *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// ScoreBreakdown holds the five category sub-scores.
type ScoreBreakdown struct {
	Learning   int `json:"learning"`
	Networking int `json:"networking"`
	Coding     int `json:"coding"`
	Career     int `json:"career"`
	Outcome    int `json:"outcome"`
}

// Total sums the categories after clamping each to its cap.
func (b ScoreBreakdown) Total() int {
	c := b.Clamped()
	return c.Learning + c.Networking + c.Coding + c.Career + c.Outcome
}

// Clamped bounds each category to [0, cap].
func (b ScoreBreakdown) Clamped() ScoreBreakdown {
	return ScoreBreakdown{
		Learning:   clamp(b.Learning, LearningScoreCap),
		Networking: clamp(b.Networking, NetworkingScoreCap),
		Coding:     clamp(b.Coding, CodingScoreCap),
		Career:     clamp(b.Career, CareerScoreCap),
		Outcome:    clamp(b.Outcome, OutcomeScoreCap),
	}
}

// Apply writes a clamped breakdown and its total onto the score record.
func (s *SeasonScore) Apply(b ScoreBreakdown) {
	c := b.Clamped()
	s.LearningScore = c.Learning
	s.NetworkingScore = c.Networking
	s.CodingScore = c.Coding
	s.CareerScore = c.Career
	s.OutcomeScore = c.Outcome
	s.TotalScore = c.Total()
}

// Breakdown returns the stored sub-scores.
func (s SeasonScore) Breakdown() ScoreBreakdown {
	return ScoreBreakdown{
		Learning:   s.LearningScore,
		Networking: s.NetworkingScore,
		Coding:     s.CodingScore,
		Career:     s.CareerScore,
		Outcome:    s.OutcomeScore,
	}
}

// Consistent checks the stored total against the caps and the sub-score sum.
func (s SeasonScore) Consistent() bool {
	b := s.Breakdown()
	if b != b.Clamped() {
		return false
	}
	return s.TotalScore == b.Total() && s.TotalScore >= 0 && s.TotalScore <= MaxSeasonScore
}

// LearningScoreFor awards the full category when at least one certificate was approved.
func LearningScoreFor(approved int) int {
	if approved > 0 {
		return LearningScoreCap
	}
	return 0
}

// NetworkingScoreFor awards points per distinct approved networking sub-task.
func NetworkingScoreFor(distinctTasks int) int {
	return clamp(distinctTasks*pointsPerNetworkingTask, NetworkingScoreCap)
}

// CareerScoreFor awards points per distinct approved career submission type.
func CareerScoreFor(distinctTypes int) int {
	return clamp(distinctTypes*pointsPerCareerType, CareerScoreCap)
}

// CodingScoreFor is a step function of the share of season days with an active streak.
// A streak within graceDays of the full season length counts as 100%.
func CodingScoreFor(streakDays, seasonDays, graceDays int) int {
	if seasonDays <= 0 || streakDays <= 0 {
		return 0
	}
	if graceDays < 0 {
		graceDays = 0
	}
	if streakDays >= seasonDays-graceDays {
		return CodingScoreCap
	}
	// compare cross-multiplied so the boundaries stay exact
	switch {
	case streakDays*100 >= seasonDays*80:
		return 80
	case streakDays*100 >= seasonDays*60:
		return 60
	case streakDays*100 >= seasonDays*40:
		return 40
	case streakDays*100 >= seasonDays*20:
		return 20
	default:
		return 0
	}
}

// SeasonCreditsFor converts a season total into spendable reward credits.
func SeasonCreditsFor(total int) int {
	if total <= 0 {
		return 0
	}
	return total / 10
}

// SeasonOutcome is the externally verified outcome score (placement, internship).
type SeasonOutcome struct {
	StudentID  string    `db:"student_id" json:"student_id"`
	SeasonID   string    `db:"season_id" json:"season_id"`
	Score      int       `db:"score" json:"score"`
	Note       string    `db:"note" json:"note"`
	RecordedBy string    `db:"recorded_by" json:"recorded_by"`
	RecordedAt time.Time `db:"recorded_at" json:"recorded_at"`
}

func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
