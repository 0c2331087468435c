package checkpoint

import (
	"fmt"

	"github.com/lamim/nlpforge/pkg/models"
)

// ValidateJournal verifies a journal can be resumed against the configured service
func ValidateJournal(j *models.JobJournal, serviceURL string) error {
	expectedHash := computeServiceHash(serviceURL)
	if j.ServiceHash != expectedHash {
		return fmt.Errorf("journal service mismatch: job was started against a different service (hash: %s vs %s)", j.ServiceHash, expectedHash)
	}

	if j.JobID == "" {
		return fmt.Errorf("journal has no submitted job, nothing to resume")
	}

	if j.Finished() {
		return fmt.Errorf("job %s already %s, nothing to resume", j.JobID, j.Latest.Status)
	}

	return nil
}

// GetLastEvent returns the most recent recorded transition
func GetLastEvent(j *models.JobJournal) (models.JobEvent, bool) {
	if len(j.Events) == 0 {
		return models.JobEvent{}, false
	}
	return j.Events[len(j.Events)-1], true
}

// GetCompletedEpochs returns the last epoch the service reported
func GetCompletedEpochs(j *models.JobJournal) int {
	return j.Latest.Epoch
}

// GetTotalEpochs returns the configured epoch count
func GetTotalEpochs(j *models.JobJournal) int {
	if j.Latest.TotalEpochs > 0 {
		return j.Latest.TotalEpochs
	}
	return j.Config.Epochs
}

// GetProgressPercentage returns the last reported progress, clamped to 0-100
func GetProgressPercentage(j *models.JobJournal) float64 {
	p := j.Latest.Progress
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	return float64(p)
}
