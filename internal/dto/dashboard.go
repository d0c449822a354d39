package dto

import "github.com/ms-lokesh/cohort-summit-api/internal/models"

// StudentDashboard is the student-facing home view.
type StudentDashboard struct {
	Season      *models.Season              `json:"season,omitempty"`
	Progress    *SeasonProgressView         `json:"progress,omitempty"`
	Score       *models.SeasonScore         `json:"score,omitempty"`
	Legacy      *models.LegacyScore         `json:"legacy,omitempty"`
	Wallet      *models.RewardWallet        `json:"wallet,omitempty"`
	Position    *models.LeaderboardPosition `json:"position,omitempty"`
	EquippedTag string                      `json:"equipped_title,omitempty"`
}
