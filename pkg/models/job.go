package models

import "fmt"

// JobStatus is the lifecycle state reported by the training service
type JobStatus string

const (
	StatusQueued        JobStatus = "queued"
	StatusInitializing  JobStatus = "initializing"
	StatusPreparingData JobStatus = "preparing_data"
	StatusRunning       JobStatus = "running"
	StatusEvaluating    JobStatus = "evaluating"
	StatusSaving        JobStatus = "saving"
	StatusCompleted     JobStatus = "completed"
	StatusFailed        JobStatus = "failed"
	StatusStopped       JobStatus = "stopped"
)

// IsTerminal reports whether no further transitions can happen
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusStopped
}

// IsStoppable reports whether the service accepts a stop request in this state
func (s JobStatus) IsStoppable() bool {
	return s == StatusRunning || s == StatusInitializing || s == StatusPreparingData
}

// TrainingJob is one status snapshot of a remote training job.
// The service owns it; the client only ever replaces it wholesale.
type TrainingJob struct {
	JobID       string    `json:"job_id,omitempty"`
	Status      JobStatus `json:"status"`
	Progress    int       `json:"progress"`
	Epoch       int       `json:"epoch,omitempty"`
	TotalEpochs int       `json:"total_epochs,omitempty"`
	Loss        *float64  `json:"loss,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// Summary renders the one-line status shown under the progress bar
func (j TrainingJob) Summary(configuredEpochs int) string {
	var line string
	switch {
	case j.Status == StatusCompleted:
		line = "✓ Training completed successfully!"
	case j.Status == StatusFailed:
		msg := j.Error
		if msg == "" {
			msg = "Unknown error"
		}
		line = "✗ Training failed: " + msg
	case j.Status == StatusStopped:
		line = "⏹ Training stopped by user"
	default:
		total := j.TotalEpochs
		if total == 0 {
			total = configuredEpochs
		}
		line = fmt.Sprintf("Epoch %d/%d", j.Epoch, total)
	}
	if j.Loss != nil && *j.Loss != 0 {
		line += fmt.Sprintf(" Loss: %.4f", *j.Loss)
	}
	return line
}

// JobSummary is one entry of the registry's per-job listing
type JobSummary struct {
	Status      JobStatus `json:"status"`
	Progress    int       `json:"progress"`
	Epoch       int       `json:"epoch"`
	TotalEpochs int       `json:"total_epochs"`
	Loss        *float64  `json:"loss,omitempty"`
	CreatedAt   string    `json:"created_at"`
}

// RegistrySnapshot aggregates every job the service knows about
type RegistrySnapshot struct {
	Total     int                   `json:"total_jobs"`
	Running   int                   `json:"running_jobs"`
	Completed int                   `json:"completed_jobs"`
	Failed    int                   `json:"failed_jobs"`
	Stopped   int                   `json:"stopped_jobs"`
	Jobs      map[string]JobSummary `json:"jobs,omitempty"`
}

// String renders the counters line of the training view
func (r RegistrySnapshot) String() string {
	return fmt.Sprintf("Total: %d  Running: %d  Completed: %d  Failed: %d  Stopped: %d",
		r.Total, r.Running, r.Completed, r.Failed, r.Stopped)
}

// ViewKind tags whether a job view is assumed or confirmed by the service
type ViewKind int

const (
	// ViewNone means no job has been started in this session
	ViewNone ViewKind = iota
	// ViewOptimistic is the locally assumed state right after a successful start
	ViewOptimistic
	// ViewConfirmed is a snapshot returned by the service
	ViewConfirmed
)

func (k ViewKind) String() string {
	switch k {
	case ViewOptimistic:
		return "optimistic"
	case ViewConfirmed:
		return "confirmed"
	default:
		return "none"
	}
}

// JobView is the client's best-known state of the active job
type JobView struct {
	Kind ViewKind
	Job  TrainingJob
}

// Active reports whether a job exists and has not reached a terminal state
func (v JobView) Active() bool {
	return v.Kind != ViewNone && !v.Job.Status.IsTerminal()
}
