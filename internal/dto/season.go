package dto

import "time"

// CreateSeasonRequest creates a season with its four episodes.
type CreateSeasonRequest struct {
	Ordinal   int       `json:"ordinal" validate:"required,min=1"`
	Name      string    `json:"name" validate:"required,max=120"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
	IsActive  bool      `json:"is_active"`
}

// UpdateSeasonRequest edits the mutable fields of a season.
type UpdateSeasonRequest struct {
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
	IsActive  *bool     `json:"is_active"`
}

// EnrollmentResult reports how many progress rows an enrollment step created.
type EnrollmentResult struct {
	SeasonID  string `json:"season_id"`
	StudentID string `json:"student_id"`
	Created   int    `json:"created"`
}
