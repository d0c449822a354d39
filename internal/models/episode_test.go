package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEpisodeTask(t *testing.T) {
	task, err := ParseEpisodeTask(2, "career_linkedin")
	require.NoError(t, err)
	assert.Equal(t, TaskCareerLinkedIn, task)

	_, err = ParseEpisodeTask(1, "career_linkedin")
	assert.Error(t, err, "task from another ordinal")

	_, err = ParseEpisodeTask(1, "leetcode")
	assert.Error(t, err)

	_, err = ParseEpisodeTask(5, "coding_streak")
	assert.Error(t, err)
}

func TestEveryOrdinalHasTasks(t *testing.T) {
	for ordinal := 1; ordinal <= EpisodesPerSeason; ordinal++ {
		tasks, err := TasksForOrdinal(ordinal)
		require.NoError(t, err)
		assert.NotEmpty(t, tasks)
		for _, task := range tasks {
			parsed, err := ParseEpisodeTask(ordinal, string(task))
			require.NoError(t, err)
			assert.Equal(t, task, parsed)
		}
	}
	_, err := TasksForOrdinal(0)
	assert.Error(t, err)
}

func TestMarkTaskTransitionsOnce(t *testing.T) {
	p := &EpisodeProgress{Status: EpisodeStatusUnlocked}
	first := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	assert.True(t, p.MarkTask(TaskLearningCertificate, first))
	assert.Equal(t, EpisodeStatusInProgress, p.Status)
	require.NotNil(t, p.StartedAt)
	assert.Equal(t, first, *p.StartedAt)

	assert.False(t, p.MarkTask(TaskLearningCertificate, first.Add(time.Hour)), "setting a set flag is a no-op")
	assert.True(t, p.MarkTask(TaskCodingStreak, first.Add(time.Hour)))
	assert.Equal(t, first, *p.StartedAt, "started_at is recorded once")
}

func TestMarkTaskFromLocked(t *testing.T) {
	p := &EpisodeProgress{Status: EpisodeStatusLocked}
	p.MarkTask(TaskCareerResume, time.Now())
	assert.Equal(t, EpisodeStatusInProgress, p.Status)
}

func TestSatisfiedRequiresAllTasks(t *testing.T) {
	now := time.Now()
	p := &EpisodeProgress{Status: EpisodeStatusUnlocked}
	p.MarkTask(TaskCareerResume, now)
	p.MarkTask(TaskCareerLinkedIn, now)
	assert.False(t, p.Satisfied(2))
	p.MarkTask(TaskNetworkingConnect, now)
	assert.True(t, p.Satisfied(2))
	assert.False(t, p.Satisfied(1))
}

func TestCompleteIsTerminal(t *testing.T) {
	p := &EpisodeProgress{Status: EpisodeStatusInProgress}
	assert.True(t, p.Complete(time.Now()))
	assert.False(t, p.Complete(time.Now()))
	assert.Equal(t, EpisodeStatusCompleted, p.Status)
}

func TestInitialStatus(t *testing.T) {
	assert.Equal(t, EpisodeStatusUnlocked, InitialStatus(1))
	for _, ordinal := range []int{2, 3, 4} {
		assert.Equal(t, EpisodeStatusLocked, InitialStatus(ordinal))
	}
}

func TestTaskFlags(t *testing.T) {
	p := &EpisodeProgress{}
	p.MarkTask(TaskSocialImpact, time.Now())
	flags := p.TaskFlags(4)
	assert.Len(t, flags, 3)
	assert.True(t, flags[TaskSocialImpact])
	assert.False(t, flags[TaskCareerApplication])
}
