package training

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lamim/nlpforge/internal/api"
	"github.com/lamim/nlpforge/internal/apperr"
	"github.com/lamim/nlpforge/pkg/models"
)

type fakeService struct {
	mu sync.Mutex

	startErr   error
	startCalls int
	lastStart  api.StartTrainingRequest

	statuses    []models.TrainingJob
	statusCalls int
	statusErr   error

	stopMsg   string
	stopErr   error
	stopCalls int
	stopped   bool

	registryCalls int
}

func (f *fakeService) StartTraining(ctx context.Context, req api.StartTrainingRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls++
	f.lastStart = req
	if f.startErr != nil {
		return "", f.startErr
	}
	return "job-1", nil
}

func (f *fakeService) GetTrainingStatus(ctx context.Context, jobID string) (models.TrainingJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if f.statusErr != nil {
		return models.TrainingJob{}, f.statusErr
	}
	if f.stopped {
		return models.TrainingJob{JobID: jobID, Status: models.StatusStopped, Progress: 40}, nil
	}
	if len(f.statuses) == 0 {
		return models.TrainingJob{JobID: jobID, Status: models.StatusRunning}, nil
	}
	i := f.statusCalls - 1
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	job := f.statuses[i]
	job.JobID = jobID
	return job, nil
}

func (f *fakeService) StopTraining(ctx context.Context, jobID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
	if f.stopErr != nil {
		return "", f.stopErr
	}
	f.stopped = true
	return f.stopMsg, nil
}

func (f *fakeService) ListTrainingJobs(ctx context.Context) (models.RegistrySnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registryCalls++
	return models.RegistrySnapshot{Total: 1, Running: 1}, nil
}

func (f *fakeService) counts() (start, status, stop int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startCalls, f.statusCalls, f.stopCalls
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newController(svc Service, statusInterval time.Duration) *Controller {
	return NewController(svc, Options{StatusInterval: statusInterval, RegistryInterval: 5 * time.Millisecond}, discardLogger())
}

func entities() []models.NamedItem {
	return []models.NamedItem{{Name: "PRODUCT", Description: "an item"}}
}

func TestStart_OptimisticThenConfirmed(t *testing.T) {
	svc := &fakeService{statuses: []models.TrainingJob{
		{Status: models.StatusRunning, Progress: 10, Epoch: 1, TotalEpochs: 3},
		{Status: models.StatusRunning, Progress: 55, Epoch: 2, TotalEpochs: 3},
		{Status: models.StatusCompleted, Progress: 100, Epoch: 3, TotalEpochs: 3},
	}}
	c := newController(svc, 5*time.Millisecond)
	defer c.Close()

	var mu sync.Mutex
	var seen []models.JobView
	c.OnSnapshot(func(v models.JobView) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, v)
	})

	jobID, err := c.Start(context.Background(), entities(), nil, models.DefaultTrainingConfig())
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	final, err := c.Wait(ctx)
	require.NoError(t, err)

	assert.Equal(t, models.ViewConfirmed, final.Kind)
	assert.Equal(t, models.StatusCompleted, final.Job.Status)
	assert.False(t, final.Active())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 4)
	assert.Equal(t, models.ViewOptimistic, seen[0].Kind)
	assert.Equal(t, models.StatusRunning, seen[0].Job.Status)
	assert.Equal(t, 0, seen[0].Job.Progress)
	assert.Equal(t, []int{10, 55, 100}, []int{seen[1].Job.Progress, seen[2].Job.Progress, seen[3].Job.Progress})

	// nil intents are sent as an empty list
	assert.NotNil(t, svc.lastStart.Intents)
}

func TestStart_RejectsWhileActive(t *testing.T) {
	svc := &fakeService{}
	c := newController(svc, time.Hour)
	defer c.Close()

	_, err := c.Start(context.Background(), entities(), nil, models.DefaultTrainingConfig())
	require.NoError(t, err)

	_, err = c.Start(context.Background(), entities(), nil, models.DefaultTrainingConfig())
	assert.ErrorIs(t, err, apperr.ErrJobAlreadyActive)

	start, _, _ := svc.counts()
	assert.Equal(t, 1, start)
}

func TestStart_InvalidConfigNeverSent(t *testing.T) {
	svc := &fakeService{}
	c := newController(svc, time.Hour)
	defer c.Close()

	cfg := models.DefaultTrainingConfig()
	cfg.Epochs = 0
	_, err := c.Start(context.Background(), entities(), nil, cfg)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	start, _, _ := svc.counts()
	assert.Equal(t, 0, start)
	assert.Equal(t, models.ViewNone, c.View().Kind)
}

func TestStart_SubmissionErrorLeavesState(t *testing.T) {
	remote := &api.APIError{Message: "Training service not available", StatusCode: 503}
	svc := &fakeService{startErr: remote}
	c := newController(svc, time.Hour)
	defer c.Close()

	_, err := c.Start(context.Background(), entities(), nil, models.DefaultTrainingConfig())
	require.ErrorIs(t, err, apperr.ErrSubmission)
	var apiErr *api.APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, models.JobView{}, c.View())
	assert.Nil(t, c.PollDone())
}

func TestStop_NoJob(t *testing.T) {
	svc := &fakeService{}
	c := newController(svc, time.Hour)
	defer c.Close()

	_, err := c.Stop(context.Background())
	assert.ErrorIs(t, err, apperr.ErrStop)
	_, _, stop := svc.counts()
	assert.Equal(t, 0, stop)
}

func TestStop_TerminalJobNoNetworkCall(t *testing.T) {
	svc := &fakeService{statuses: []models.TrainingJob{{Status: models.StatusCompleted, Progress: 100}}}
	c := newController(svc, 5*time.Millisecond)
	defer c.Close()

	_, err := c.Start(context.Background(), entities(), nil, models.DefaultTrainingConfig())
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = c.Wait(ctx)
	require.NoError(t, err)

	before := c.View()
	_, err = c.Stop(context.Background())
	assert.ErrorIs(t, err, apperr.ErrStop)
	assert.Equal(t, before, c.View())

	_, _, stop := svc.counts()
	assert.Equal(t, 0, stop)
}

func TestStop_RefreshesImmediately(t *testing.T) {
	svc := &fakeService{stopMsg: "Training stopped"}
	c := newController(svc, time.Hour)
	defer c.Close()

	_, err := c.Start(context.Background(), entities(), nil, models.DefaultTrainingConfig())
	require.NoError(t, err)

	msg, err := c.Stop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Training stopped", msg)

	view := c.View()
	assert.Equal(t, models.ViewConfirmed, view.Kind)
	assert.Equal(t, models.StatusStopped, view.Job.Status)

	// The status poller is stopped once the refresh shows a terminal state
	select {
	case <-c.PollDone():
	case <-time.After(2 * time.Second):
		t.Fatal("status poller still running")
	}
	_, status, stop := svc.counts()
	assert.Equal(t, 1, stop)
	assert.Equal(t, 1, status)
}

func TestStop_NotStoppableNoNetworkCall(t *testing.T) {
	for _, status := range []models.JobStatus{models.StatusQueued, models.StatusEvaluating, models.StatusSaving} {
		t.Run(string(status), func(t *testing.T) {
			svc := &fakeService{}
			c := newController(svc, time.Hour)
			defer c.Close()

			c.view = models.JobView{Kind: models.ViewConfirmed, Job: models.TrainingJob{JobID: "job-1", Status: status, Progress: 90}}
			before := c.View()

			_, err := c.Stop(context.Background())
			assert.ErrorIs(t, err, apperr.ErrStop)
			assert.Equal(t, before, c.View())

			_, _, stop := svc.counts()
			assert.Equal(t, 0, stop)
		})
	}
}

func TestStop_RefusedByService(t *testing.T) {
	svc := &fakeService{
		stopErr:  apperr.Stop("Training job already completed", nil),
		statuses: []models.TrainingJob{{Status: models.StatusCompleted, Progress: 100}},
	}
	c := newController(svc, time.Hour)
	defer c.Close()

	_, err := c.Start(context.Background(), entities(), nil, models.DefaultTrainingConfig())
	require.NoError(t, err)

	msg, err := c.Stop(context.Background())
	require.ErrorIs(t, err, apperr.ErrStop)
	assert.Empty(t, msg)
	assert.Equal(t, "Failed to stop training: Training job already completed", apperr.UserMessage(err))

	// The refusal is followed by a refresh showing the real state
	view := c.View()
	assert.Equal(t, models.ViewConfirmed, view.Kind)
	assert.Equal(t, models.StatusCompleted, view.Job.Status)
	select {
	case <-c.PollDone():
	case <-time.After(2 * time.Second):
		t.Fatal("status poller still running")
	}
}

func TestStop_RemoteFailure(t *testing.T) {
	svc := &fakeService{stopErr: &api.APIError{Message: "Job not found", StatusCode: 404}}
	c := newController(svc, time.Hour)
	defer c.Close()

	_, err := c.Start(context.Background(), entities(), nil, models.DefaultTrainingConfig())
	require.NoError(t, err)

	_, err = c.Stop(context.Background())
	assert.ErrorIs(t, err, apperr.ErrStop)
	assert.Equal(t, models.ViewOptimistic, c.View().Kind)
}

func TestPollFailureKeepsLastView(t *testing.T) {
	svc := &fakeService{statusErr: errors.New("connection reset")}
	c := newController(svc, 5*time.Millisecond)
	defer c.Close()

	_, err := c.Start(context.Background(), entities(), nil, models.DefaultTrainingConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	view, err := c.Wait(ctx)
	assert.ErrorIs(t, err, apperr.ErrPollFailure)
	assert.Equal(t, models.ViewOptimistic, view.Kind)
	assert.True(t, view.Active())
}

func TestApply_TerminalIsFinal(t *testing.T) {
	c := newController(&fakeService{}, time.Hour)
	defer c.Close()

	c.view = models.JobView{Kind: models.ViewConfirmed, Job: models.TrainingJob{JobID: "job-1", Status: models.StatusStopped}}
	c.apply(models.TrainingJob{JobID: "job-1", Status: models.StatusRunning, Progress: 50})
	assert.Equal(t, models.StatusStopped, c.View().Job.Status)

	c.apply(models.TrainingJob{JobID: "other", Status: models.StatusCompleted})
	assert.Equal(t, "job-1", c.View().Job.JobID)
}

func TestApply_ReplacesWholeSnapshot(t *testing.T) {
	c := newController(&fakeService{}, time.Hour)
	defer c.Close()

	_, err := c.Start(context.Background(), entities(), nil, models.DefaultTrainingConfig())
	require.NoError(t, err)
	require.Equal(t, models.DefaultTrainingConfig().Epochs, c.View().Job.TotalEpochs)

	c.apply(models.TrainingJob{JobID: "job-1", Status: models.StatusRunning, Progress: 20, Epoch: 2})
	view := c.View()
	assert.Equal(t, models.ViewConfirmed, view.Kind)
	assert.Equal(t, models.TrainingJob{JobID: "job-1", Status: models.StatusRunning, Progress: 20, Epoch: 2}, view.Job)
	assert.Equal(t, 0, view.Job.TotalEpochs)
}

func TestRegistryAndReset(t *testing.T) {
	svc := &fakeService{}
	c := newController(svc, time.Hour)
	defer c.Close()

	got := make(chan models.RegistrySnapshot, 16)
	c.OnRegistry(func(s models.RegistrySnapshot) {
		select {
		case got <- s:
		default:
		}
	})

	require.NoError(t, c.WatchRegistry())
	require.NoError(t, c.WatchRegistry())

	select {
	case snap := <-got:
		assert.Equal(t, 1, snap.Running)
	case <-time.After(2 * time.Second):
		t.Fatal("no registry snapshot")
	}
	_, ok := c.Registry()
	assert.True(t, ok)

	_, err := c.Start(context.Background(), entities(), nil, models.DefaultTrainingConfig())
	require.NoError(t, err)

	c.Reset()
	assert.Equal(t, models.ViewNone, c.View().Kind)
	_, ok = c.Registry()
	assert.False(t, ok)

	// A new job can be started after reset
	_, err = c.Start(context.Background(), entities(), nil, models.DefaultTrainingConfig())
	assert.NoError(t, err)
}
