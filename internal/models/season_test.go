package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSeasonWindowAndLength(t *testing.T) {
	s := Season{Ordinal: 3, StartDate: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), EndDate: time.Date(2026, 3, 28, 18, 0, 0, 0, time.UTC)}
	assert.Equal(t, 28, s.LengthDays())

	w := s.Window()
	assert.True(t, w.Contains(time.Date(2026, 3, 28, 23, 59, 0, 0, time.UTC)))
	assert.False(t, w.Contains(time.Date(2026, 3, 29, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "season:3 completion", s.RewardReason())
}

func TestEpisodeWindowsCoverSeason(t *testing.T) {
	s := Season{StartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), EndDate: time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)}
	windows := s.EpisodeWindows()
	assert.Equal(t, s.Window().Start, windows[0].Start)
	assert.Equal(t, s.Window().End, windows[3].End)
	for i := 1; i < EpisodesPerSeason; i++ {
		assert.Equal(t, windows[i-1].End, windows[i].Start)
	}
	assert.Equal(t, time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC), windows[0].End)
}
