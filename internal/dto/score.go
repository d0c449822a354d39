package dto

import "github.com/ms-lokesh/cohort-summit-api/internal/models"

// FinalizeStatus describes the outcome of a finalize call.
type FinalizeStatus string

const (
	FinalizeStatusFinalized        FinalizeStatus = "finalized"
	FinalizeStatusAlreadyFinalized FinalizeStatus = "already_finalized"
	FinalizeStatusNotComplete      FinalizeStatus = "not_complete"
)

// FinalizeResult is returned by manual and automatic season finalization.
type FinalizeResult struct {
	Status            FinalizeStatus      `json:"status"`
	CompletedEpisodes int                 `json:"completed_episodes"`
	Score             *models.SeasonScore `json:"score,omitempty"`
	CreditsAwarded    int                 `json:"credits_awarded,omitempty"`
	AscensionBonus    int                 `json:"ascension_bonus,omitempty"`
}

// RecordOutcomeRequest stores the externally verified outcome score.
type RecordOutcomeRequest struct {
	Score int    `json:"score" validate:"min=0,max=300"`
	Note  string `json:"note" validate:"max=500"`
}
