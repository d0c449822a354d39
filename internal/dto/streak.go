package dto

import "github.com/ms-lokesh/cohort-summit-api/internal/models"

// StreakSyncResult reports a single student sync. Warnings are non-fatal.
type StreakSyncResult struct {
	StudentID string               `json:"student_id"`
	Synced    bool                 `json:"synced"`
	Record    *models.StreakRecord `json:"record,omitempty"`
	Warnings  []string             `json:"warnings,omitempty"`
}

// StreakSyncSummary aggregates a season-wide sync.
type StreakSyncSummary struct {
	SeasonID string   `json:"season_id"`
	Queued   int      `json:"queued"`
	Synced   int      `json:"synced"`
	Failed   int      `json:"failed"`
	Warnings []string `json:"warnings,omitempty"`
}
