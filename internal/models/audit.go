package models

import "time"

// Audit actions recorded for successful administrative and reviewer requests.
const (
	AuditActionEpisodeApprove     = "EPISODE_APPROVE"
	AuditActionScoreFinalize      = "SCORE_FINALIZE"
	AuditActionOutcomeSet         = "OUTCOME_SET"
	AuditActionSeasonActivate     = "SEASON_ACTIVATE"
	AuditActionSeasonDeactivate   = "SEASON_DEACTIVATE"
	AuditActionLeaderboardRebuild = "LEADERBOARD_REBUILD"
	AuditActionTitleCreate        = "TITLE_CREATE"
)

// Audit resources.
const (
	AuditResourceEpisode     = "episode"
	AuditResourceSeason      = "season"
	AuditResourceScore       = "season_score"
	AuditResourceLeaderboard = "leaderboard"
	AuditResourceTitle       = "title"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
