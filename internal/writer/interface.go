package writer

import "github.com/lamim/nlpforge/pkg/models"

// Writer records training status snapshots for a session
type Writer interface {
	// WriteSnapshot appends one confirmed status snapshot
	WriteSnapshot(job models.TrainingJob) error

	// Close flushes and closes the writer
	Close() error
}
