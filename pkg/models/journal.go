package models

import "time"

// JobEvent is one status transition recorded in the journal
type JobEvent struct {
	At       time.Time `json:"at"`
	Status   JobStatus `json:"status"`
	Progress int       `json:"progress"`
	Epoch    int       `json:"epoch,omitempty"`
	Loss     *float64  `json:"loss,omitempty"`
}

// JobJournal is the on-disk record of the training job a session started.
// It lets a later run find and keep watching the job.
type JobJournal struct {
	SessionID   string            `json:"session_id"`
	CreatedAt   time.Time         `json:"created_at"`
	LastSavedAt time.Time         `json:"last_saved_at"`
	ServiceHash string            `json:"service_hash"`
	Domain      string            `json:"domain,omitempty"`
	Entities    int               `json:"entities"`
	Intents     int               `json:"intents"`
	Config      TrainingConfig    `json:"config"`
	JobID       string            `json:"job_id,omitempty"`
	Latest      TrainingJob       `json:"latest"`
	Events      []JobEvent        `json:"events"`
	Registry    *RegistrySnapshot `json:"registry,omitempty"`
}

// Finished reports whether the journaled job reached a terminal state
func (j *JobJournal) Finished() bool {
	return j.JobID != "" && j.Latest.Status.IsTerminal()
}
