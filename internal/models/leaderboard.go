package models

import (
	"sort"
	"time"
)

// PodiumSize is the number of ranked podium slots per season.
const PodiumSize = 3

// Rank titles.
const (
	RankTitleTopPerformer = "top_performer"
	RankTitleElite        = "elite"
)

// PercentileBucket labels the standing of completed students outside the podium.
type PercentileBucket string

const (
	BucketTop10   PercentileBucket = "top_10"
	BucketTop25   PercentileBucket = "top_25"
	BucketTop50   PercentileBucket = "top_50"
	BucketBelow50 PercentileBucket = "below_50"
)

// Position statuses.
const (
	PositionPodium     = "podium"
	PositionPercentile = "percentile"
	PositionNotRanked  = "not_ranked"
)

// LeaderboardEntry is one podium slot for a season.
type LeaderboardEntry struct {
	ID        string    `db:"id" json:"id"`
	SeasonID  string    `db:"season_id" json:"season_id"`
	Rank      int       `db:"rank" json:"rank"`
	StudentID string    `db:"student_id" json:"student_id"`
	Score     int       `db:"score" json:"score"`
	RankTitle string    `db:"rank_title" json:"rank_title"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// PercentileBracket records the bucket of a completed student outside the podium.
type PercentileBracket struct {
	ID        string           `db:"id" json:"id"`
	SeasonID  string           `db:"season_id" json:"season_id"`
	StudentID string           `db:"student_id" json:"student_id"`
	Position  int              `db:"position" json:"position"`
	Bucket    PercentileBucket `db:"bucket" json:"bucket"`
	Score     int              `db:"score" json:"score"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

// RankTitleFor returns the podium label for rank.
func RankTitleFor(rank int) string {
	if rank == 1 {
		return RankTitleTopPerformer
	}
	return RankTitleElite
}

// BucketFor maps a 1-based overall position into a percentile bucket. Boundaries
// are inclusive: position/total <= 0.5 is top_50.
func BucketFor(position, total int) PercentileBucket {
	if total <= 0 {
		return BucketBelow50
	}
	switch {
	case position*100 <= total*10:
		return BucketTop10
	case position*100 <= total*25:
		return BucketTop25
	case position*100 <= total*50:
		return BucketTop50
	default:
		return BucketBelow50
	}
}

// SortStandings orders completed scores by total descending, then student id ascending.
func SortStandings(scores []SeasonScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].TotalScore != scores[j].TotalScore {
			return scores[i].TotalScore > scores[j].TotalScore
		}
		return scores[i].StudentID < scores[j].StudentID
	})
}

// Ranking is the partition of a season's completed students.
type Ranking struct {
	Podium   []LeaderboardEntry
	Brackets []PercentileBracket
}

// BuildRanking partitions completed scores into podium entries and percentile
// brackets. Scores that are not completed are ignored.
func BuildRanking(seasonID string, scores []SeasonScore, now time.Time) Ranking {
	completed := make([]SeasonScore, 0, len(scores))
	for _, s := range scores {
		if s.SeasonCompleted {
			completed = append(completed, s)
		}
	}
	SortStandings(completed)

	total := len(completed)
	ranking := Ranking{}
	if total == 0 {
		return ranking
	}
	for i, s := range completed {
		position := i + 1
		if position <= PodiumSize {
			ranking.Podium = append(ranking.Podium, LeaderboardEntry{
				SeasonID:  seasonID,
				Rank:      position,
				StudentID: s.StudentID,
				Score:     s.TotalScore,
				RankTitle: RankTitleFor(position),
				CreatedAt: now,
			})
			continue
		}
		ranking.Brackets = append(ranking.Brackets, PercentileBracket{
			SeasonID:  seasonID,
			StudentID: s.StudentID,
			Position:  position,
			Bucket:    BucketFor(position, total),
			Score:     s.TotalScore,
			CreatedAt: now,
		})
	}
	return ranking
}

// LeaderboardPosition is a student's standing in a season as exposed to the UI.
type LeaderboardPosition struct {
	SeasonID  string           `json:"season_id"`
	StudentID string           `json:"student_id"`
	Status    string           `json:"status"`
	Rank      int              `json:"rank,omitempty"`
	RankTitle string           `json:"rank_title,omitempty"`
	Bucket    PercentileBucket `json:"bucket,omitempty"`
	Score     int              `json:"score"`
}

// PodiumPosition builds a position from a podium entry.
func PodiumPosition(e LeaderboardEntry) LeaderboardPosition {
	return LeaderboardPosition{SeasonID: e.SeasonID, StudentID: e.StudentID, Status: PositionPodium, Rank: e.Rank, RankTitle: e.RankTitle, Score: e.Score}
}

// BracketPosition builds a position from a percentile bracket.
func BracketPosition(b PercentileBracket) LeaderboardPosition {
	return LeaderboardPosition{SeasonID: b.SeasonID, StudentID: b.StudentID, Status: PositionPercentile, Bucket: b.Bucket, Score: b.Score}
}

// UnrankedPosition is returned for students without a row in the season.
func UnrankedPosition(seasonID, studentID string) LeaderboardPosition {
	return LeaderboardPosition{SeasonID: seasonID, StudentID: studentID, Status: PositionNotRanked}
}

// Standing is one row of a full season standings export.
type Standing struct {
	Position    int    `db:"position" json:"position"`
	StudentID   string `db:"student_id" json:"student_id"`
	StudentName string `db:"student_name" json:"student_name"`
	Score       int    `db:"score" json:"score"`
	Label       string `db:"label" json:"label"`
}
