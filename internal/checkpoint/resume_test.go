package checkpoint

import (
	"strings"
	"testing"

	"github.com/lamim/nlpforge/pkg/models"
)

func journal(status models.JobStatus) *models.JobJournal {
	return &models.JobJournal{
		SessionID:   "s1",
		ServiceHash: computeServiceHash(testServiceURL),
		JobID:       "job-1",
		Config:      models.DefaultTrainingConfig(),
		Latest:      models.TrainingJob{JobID: "job-1", Status: status},
	}
}

func TestValidateJournal(t *testing.T) {
	if err := ValidateJournal(journal(models.StatusRunning), testServiceURL); err != nil {
		t.Errorf("Expected running journal to be resumable: %v", err)
	}

	err := ValidateJournal(journal(models.StatusRunning), "http://elsewhere:9000")
	if err == nil || !strings.Contains(err.Error(), "mismatch") {
		t.Errorf("Expected service mismatch error, got %v", err)
	}

	err = ValidateJournal(journal(models.StatusCompleted), testServiceURL)
	if err == nil || !strings.Contains(err.Error(), "nothing to resume") {
		t.Errorf("Expected finished error, got %v", err)
	}

	j := journal(models.StatusRunning)
	j.JobID = ""
	if err := ValidateJournal(j, testServiceURL); err == nil {
		t.Error("Expected error for journal without a job")
	}
}

func TestGetLastEvent(t *testing.T) {
	j := journal(models.StatusRunning)
	if _, ok := GetLastEvent(j); ok {
		t.Error("Expected no event")
	}

	j.Events = []models.JobEvent{
		{Status: models.StatusRunning, Epoch: 1},
		{Status: models.StatusRunning, Epoch: 2},
	}
	ev, ok := GetLastEvent(j)
	if !ok || ev.Epoch != 2 {
		t.Errorf("Expected epoch 2 event, got %+v", ev)
	}
}

func TestGetProgressPercentage(t *testing.T) {
	tests := []struct {
		progress int
		expected float64
	}{
		{0, 0.0},
		{45, 45.0},
		{100, 100.0},
		{140, 100.0},
		{-5, 0.0},
	}

	for _, tt := range tests {
		j := journal(models.StatusRunning)
		j.Latest.Progress = tt.progress
		if got := GetProgressPercentage(j); got != tt.expected {
			t.Errorf("progress %d: expected %.1f, got %.1f", tt.progress, tt.expected, got)
		}
	}
}

func TestGetEpochs(t *testing.T) {
	j := journal(models.StatusRunning)
	j.Config.Epochs = 5
	j.Latest.Epoch = 2

	if got := GetTotalEpochs(j); got != 5 {
		t.Errorf("Expected total from config 5, got %d", got)
	}
	j.Latest.TotalEpochs = 7
	if got := GetTotalEpochs(j); got != 7 {
		t.Errorf("Expected reported total 7, got %d", got)
	}
	if got := GetCompletedEpochs(j); got != 2 {
		t.Errorf("Expected 2 completed epochs, got %d", got)
	}
}
