package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyActivityCountsEverySync(t *testing.T) {
	r := &StreakRecord{}
	now := time.Date(2026, 3, 5, 8, 0, 0, 0, time.UTC)

	r.ApplyActivity(ProviderActivity{CurrentStreak: 4, ActiveToday: true}, now)
	r.ApplyActivity(ProviderActivity{CurrentStreak: 4, ActiveToday: true}, now.Add(2*time.Hour))

	// Known ambiguity: two syncs on the same calendar day count as two streak days.
	assert.Equal(t, 2, r.SeasonStreakDays)
	assert.Equal(t, 4, r.LongestStreak)

	r.ApplyActivity(ProviderActivity{CurrentStreak: 0, ActiveToday: false}, now.Add(24*time.Hour))
	assert.Equal(t, 2, r.SeasonStreakDays)
	assert.Equal(t, 0, r.CurrentStreak)
	assert.Equal(t, 4, r.LongestStreak)
}
