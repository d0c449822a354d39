package models

import "time"

// Student is the cohort member profile owned by the accounts collaborator.
type Student struct {
	ID           string    `db:"id" json:"id"`
	FullName     string    `db:"full_name" json:"full_name"`
	Email        string    `db:"email" json:"email"`
	CodingHandle *string   `db:"coding_handle" json:"coding_handle,omitempty"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
