package models

import (
	"fmt"
	"time"
)

// Episode is one weekly slice of a season.
type Episode struct {
	ID        string    `db:"id" json:"id"`
	SeasonID  string    `db:"season_id" json:"season_id"`
	Ordinal   int       `db:"ordinal" json:"ordinal"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// IsLast reports whether the episode closes its season.
func (e Episode) IsLast() bool {
	return e.Ordinal == EpisodesPerSeason
}

// EpisodeStatus is the progression state of a student within an episode.
type EpisodeStatus string

const (
	EpisodeStatusLocked     EpisodeStatus = "locked"
	EpisodeStatusUnlocked   EpisodeStatus = "unlocked"
	EpisodeStatusInProgress EpisodeStatus = "in_progress"
	EpisodeStatusCompleted  EpisodeStatus = "completed"
)

// AtLeastUnlocked reports whether the status admits task work.
func (s EpisodeStatus) AtLeastUnlocked() bool {
	return s == EpisodeStatusUnlocked || s == EpisodeStatusInProgress || s == EpisodeStatusCompleted
}

// EpisodeTask identifies one required deliverable of an episode.
type EpisodeTask string

const (
	TaskLearningCertificate EpisodeTask = "learning_certificate"
	TaskCodingStreak        EpisodeTask = "coding_streak"

	TaskCareerResume      EpisodeTask = "career_resume"
	TaskCareerLinkedIn    EpisodeTask = "career_linkedin"
	TaskNetworkingConnect EpisodeTask = "networking_connect"

	TaskCareerOutreach    EpisodeTask = "career_outreach"
	TaskNetworkingEvent   EpisodeTask = "networking_event"
	TaskCodingStreakWeek3 EpisodeTask = "coding_streak_week3"

	TaskCareerApplication EpisodeTask = "career_application"
	TaskSocialImpact      EpisodeTask = "social_impact"
	TaskCodingStreakWeek4 EpisodeTask = "coding_streak_week4"
)

// EpisodeProgress is the unique (student, episode) state record.
type EpisodeProgress struct {
	ID        string        `db:"id" json:"id"`
	StudentID string        `db:"student_id" json:"student_id"`
	EpisodeID string        `db:"episode_id" json:"episode_id"`
	Status    EpisodeStatus `db:"status" json:"status"`

	LearningCertificateDone bool `db:"learning_certificate_done" json:"-"`
	CodingStreakDone        bool `db:"coding_streak_done" json:"-"`
	CareerResumeDone        bool `db:"career_resume_done" json:"-"`
	CareerLinkedInDone      bool `db:"career_linkedin_done" json:"-"`
	NetworkingConnectDone   bool `db:"networking_connect_done" json:"-"`
	CareerOutreachDone      bool `db:"career_outreach_done" json:"-"`
	NetworkingEventDone     bool `db:"networking_event_done" json:"-"`
	CodingStreakWeek3Done   bool `db:"coding_streak_week3_done" json:"-"`
	CareerApplicationDone   bool `db:"career_application_done" json:"-"`
	SocialImpactDone        bool `db:"social_impact_done" json:"-"`
	CodingStreakWeek4Done   bool `db:"coding_streak_week4_done" json:"-"`

	StartedAt   *time.Time `db:"started_at" json:"started_at,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

type taskBinding struct {
	ordinal int
	flag    func(p *EpisodeProgress) *bool
}

var taskBindings = map[EpisodeTask]taskBinding{
	TaskLearningCertificate: {1, func(p *EpisodeProgress) *bool { return &p.LearningCertificateDone }},
	TaskCodingStreak:        {1, func(p *EpisodeProgress) *bool { return &p.CodingStreakDone }},
	TaskCareerResume:        {2, func(p *EpisodeProgress) *bool { return &p.CareerResumeDone }},
	TaskCareerLinkedIn:      {2, func(p *EpisodeProgress) *bool { return &p.CareerLinkedInDone }},
	TaskNetworkingConnect:   {2, func(p *EpisodeProgress) *bool { return &p.NetworkingConnectDone }},
	TaskCareerOutreach:      {3, func(p *EpisodeProgress) *bool { return &p.CareerOutreachDone }},
	TaskNetworkingEvent:     {3, func(p *EpisodeProgress) *bool { return &p.NetworkingEventDone }},
	TaskCodingStreakWeek3:   {3, func(p *EpisodeProgress) *bool { return &p.CodingStreakWeek3Done }},
	TaskCareerApplication:   {4, func(p *EpisodeProgress) *bool { return &p.CareerApplicationDone }},
	TaskSocialImpact:        {4, func(p *EpisodeProgress) *bool { return &p.SocialImpactDone }},
	TaskCodingStreakWeek4:   {4, func(p *EpisodeProgress) *bool { return &p.CodingStreakWeek4Done }},
}

// episodeTasks lists the required tasks per ordinal in display order. The completion
// predicate of an ordinal is the conjunction of its tasks.
var episodeTasks = map[int][]EpisodeTask{
	1: {TaskLearningCertificate, TaskCodingStreak},
	2: {TaskCareerResume, TaskCareerLinkedIn, TaskNetworkingConnect},
	3: {TaskCareerOutreach, TaskNetworkingEvent, TaskCodingStreakWeek3},
	4: {TaskCareerApplication, TaskSocialImpact, TaskCodingStreakWeek4},
}

func init() {
	seen := 0
	for ordinal := 1; ordinal <= EpisodesPerSeason; ordinal++ {
		tasks, ok := episodeTasks[ordinal]
		if !ok || len(tasks) == 0 {
			panic(fmt.Sprintf("models: episode ordinal %d has no tasks", ordinal))
		}
		for _, task := range tasks {
			binding, ok := taskBindings[task]
			if !ok || binding.ordinal != ordinal {
				panic(fmt.Sprintf("models: task %q is not bound to ordinal %d", task, ordinal))
			}
			seen++
		}
	}
	if seen != len(taskBindings) {
		panic("models: task bindings and episode task lists disagree")
	}
}

// ValidOrdinal reports whether n is an episode ordinal.
func ValidOrdinal(n int) bool {
	return n >= 1 && n <= EpisodesPerSeason
}

// TasksForOrdinal returns the required tasks for an episode ordinal.
func TasksForOrdinal(ordinal int) ([]EpisodeTask, error) {
	tasks, ok := episodeTasks[ordinal]
	if !ok {
		return nil, fmt.Errorf("episode ordinal %d out of range", ordinal)
	}
	out := make([]EpisodeTask, len(tasks))
	copy(out, tasks)
	return out, nil
}

// ParseEpisodeTask resolves a raw task identifier against an episode ordinal.
func ParseEpisodeTask(ordinal int, raw string) (EpisodeTask, error) {
	if !ValidOrdinal(ordinal) {
		return "", fmt.Errorf("episode ordinal %d out of range", ordinal)
	}
	task := EpisodeTask(raw)
	binding, ok := taskBindings[task]
	if !ok {
		return "", fmt.Errorf("unknown task %q", raw)
	}
	if binding.ordinal != ordinal {
		return "", fmt.Errorf("task %q does not belong to episode %d", raw, ordinal)
	}
	return task, nil
}

// TaskDone reports the flag for task.
func (p *EpisodeProgress) TaskDone(task EpisodeTask) bool {
	binding, ok := taskBindings[task]
	if !ok {
		return false
	}
	return *binding.flag(p)
}

// MarkTask sets the flag for task and moves a not-yet-started record to in_progress.
// It returns false when the flag was already set.
func (p *EpisodeProgress) MarkTask(task EpisodeTask, now time.Time) bool {
	binding, ok := taskBindings[task]
	if !ok {
		return false
	}
	flag := binding.flag(p)
	if *flag {
		return false
	}
	*flag = true
	if p.Status == EpisodeStatusLocked || p.Status == EpisodeStatusUnlocked || p.Status == "" {
		p.Status = EpisodeStatusInProgress
	}
	if p.StartedAt == nil {
		started := now
		p.StartedAt = &started
	}
	return true
}

// Satisfied evaluates the completion predicate for the episode ordinal.
func (p *EpisodeProgress) Satisfied(ordinal int) bool {
	tasks, ok := episodeTasks[ordinal]
	if !ok {
		return false
	}
	for _, task := range tasks {
		if !p.TaskDone(task) {
			return false
		}
	}
	return true
}

// Complete stamps completion. It returns false if the record was already completed.
func (p *EpisodeProgress) Complete(now time.Time) bool {
	if p.Status == EpisodeStatusCompleted {
		return false
	}
	p.Status = EpisodeStatusCompleted
	completed := now
	p.CompletedAt = &completed
	return true
}

// TaskFlags returns the ordinal's task flags keyed by task identifier.
func (p *EpisodeProgress) TaskFlags(ordinal int) map[EpisodeTask]bool {
	tasks := episodeTasks[ordinal]
	flags := make(map[EpisodeTask]bool, len(tasks))
	for _, task := range tasks {
		flags[task] = p.TaskDone(task)
	}
	return flags
}

// InitialStatus is the status a fresh progress row receives for an ordinal.
func InitialStatus(ordinal int) EpisodeStatus {
	if ordinal == 1 {
		return EpisodeStatusUnlocked
	}
	return EpisodeStatusLocked
}

// EpisodeProgressDetail joins progress with its episode.
type EpisodeProgressDetail struct {
	EpisodeProgress
	SeasonID       string `db:"season_id" json:"season_id"`
	EpisodeOrdinal int    `db:"episode_ordinal" json:"episode_ordinal"`
}
