package dto

import (
	"time"

	"github.com/ms-lokesh/cohort-summit-api/internal/models"
)

// ApproveTaskRequest is the mentor approval signal for one episode task.
type ApproveTaskRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	Task      string `json:"task" validate:"required"`
}

// TaskState is one task flag in a progress view.
type TaskState struct {
	Task      models.EpisodeTask `json:"task"`
	Completed bool               `json:"completed"`
}

// EpisodeProgressView is the read shape of an episode's progress for a student.
type EpisodeProgressView struct {
	EpisodeID   string               `json:"episode_id"`
	Ordinal     int                  `json:"ordinal"`
	Status      models.EpisodeStatus `json:"status"`
	Tasks       []TaskState          `json:"tasks"`
	StartedAt   *time.Time           `json:"started_at,omitempty"`
	CompletedAt *time.Time           `json:"completed_at,omitempty"`
}

// SeasonProgressView lists the four episodes for a student in a season.
type SeasonProgressView struct {
	SeasonID       string                `json:"season_id"`
	StudentID      string                `json:"student_id"`
	CurrentEpisode *int                  `json:"current_episode,omitempty"`
	Episodes       []EpisodeProgressView `json:"episodes"`
}

// TaskCompletionResult describes the effect of a task approval.
type TaskCompletionResult struct {
	Progress         EpisodeProgressView `json:"progress"`
	Changed          bool                `json:"changed"`
	EpisodeCompleted bool                `json:"episode_completed"`
	UnlockedEpisode  *int                `json:"unlocked_episode,omitempty"`
	Finalize         *FinalizeResult     `json:"finalize,omitempty"`
}
