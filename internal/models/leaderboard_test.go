package models

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completedScore(student string, total int) SeasonScore {
	return SeasonScore{StudentID: student, SeasonID: "season-1", TotalScore: total, SeasonCompleted: true}
}

func TestBucketBoundaries(t *testing.T) {
	assert.Equal(t, BucketTop10, BucketFor(1, 10))
	assert.Equal(t, BucketTop25, BucketFor(2, 10))
	assert.Equal(t, BucketTop50, BucketFor(5, 10), "0.5 is inclusive")
	assert.Equal(t, BucketBelow50, BucketFor(6, 10), "0.6 falls below 50")
	assert.Equal(t, BucketTop25, BucketFor(25, 100))
	assert.Equal(t, BucketTop50, BucketFor(26, 100))
	assert.Equal(t, BucketBelow50, BucketFor(1, 0))
}

func TestBuildRankingTieBreaksOnStudentID(t *testing.T) {
	scores := []SeasonScore{completedScore("stu-b", 1500), completedScore("stu-a", 1500), completedScore("stu-c", 900)}
	ranking := BuildRanking("season-1", scores, time.Now())

	require.Len(t, ranking.Podium, 3)
	assert.Equal(t, "stu-a", ranking.Podium[0].StudentID)
	assert.Equal(t, RankTitleTopPerformer, ranking.Podium[0].RankTitle)
	assert.Equal(t, "stu-b", ranking.Podium[1].StudentID)
	assert.Equal(t, RankTitleElite, ranking.Podium[1].RankTitle)
	assert.Equal(t, 3, ranking.Podium[2].Rank)
	assert.Empty(t, ranking.Brackets)
}

func TestBuildRankingPartitionsEveryCompletedStudent(t *testing.T) {
	var scores []SeasonScore
	for i := 0; i < 10; i++ {
		scores = append(scores, completedScore(fmt.Sprintf("stu-%02d", i), 1000-i*10))
	}
	scores = append(scores, SeasonScore{StudentID: "stu-x", TotalScore: 1500})

	ranking := BuildRanking("season-1", scores, time.Now())
	assert.Len(t, ranking.Podium, 3)
	assert.Len(t, ranking.Brackets, 7)

	seen := map[string]int{}
	for _, e := range ranking.Podium {
		seen[e.StudentID]++
	}
	for _, b := range ranking.Brackets {
		seen[b.StudentID]++
	}
	assert.Len(t, seen, 10)
	for student, n := range seen {
		assert.Equal(t, 1, n, student)
	}
	assert.NotContains(t, seen, "stu-x")

	// position 6 of 10
	sixth := ranking.Brackets[2]
	assert.Equal(t, 6, sixth.Position)
	assert.Equal(t, BucketBelow50, sixth.Bucket)
	fifth := ranking.Brackets[1]
	assert.Equal(t, BucketTop50, fifth.Bucket)
	fourth := ranking.Brackets[0]
	assert.Equal(t, BucketTop50, fourth.Bucket)
}

func TestBuildRankingEmpty(t *testing.T) {
	ranking := BuildRanking("season-1", nil, time.Now())
	assert.Empty(t, ranking.Podium)
	assert.Empty(t, ranking.Brackets)
}

func TestBuildRankingFewerThanPodium(t *testing.T) {
	ranking := BuildRanking("season-1", []SeasonScore{completedScore("solo", 10)}, time.Now())
	require.Len(t, ranking.Podium, 1)
	assert.Equal(t, 1, ranking.Podium[0].Rank)
}

func TestLeaderboardPositionKeepsZeroScore(t *testing.T) {
	pos := BracketPosition(PercentileBracket{SeasonID: "season-1", StudentID: "stu-9", Position: 9, Bucket: BucketBelow50, Score: 0})

	raw, err := json.Marshal(pos)
	require.NoError(t, err)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Contains(t, body, "score")
	assert.Equal(t, float64(0), body["score"])
	assert.NotContains(t, body, "rank")
}
