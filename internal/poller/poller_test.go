package poller

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

	"github.com/lamim/nlpforge/internal/apperr"
	"github.com/lamim/nlpforge/pkg/models"
)

const tick = 5 * time.Millisecond

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type step struct {
	job models.TrainingJob
	err error
}

// scriptedStatus replays a fixed sequence of results and records call counts
type scriptedStatus struct {
	mu       sync.Mutex
	script   []step
	calls    int
	inFlight int
	maxIn    int
	delay    time.Duration
}

func (f *scriptedStatus) GetTrainingStatus(ctx context.Context, jobID string) (models.TrainingJob, error) {
	f.mu.Lock()
	i := f.calls
	f.calls++
	f.inFlight++
	if f.inFlight > f.maxIn {
		f.maxIn = f.inFlight
	}
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
	if i >= len(f.script) {
		i = len(f.script) - 1
	}
	s := f.script[i]
	s.job.JobID = jobID
	return s.job, s.err
}

func (f *scriptedStatus) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recorder struct {
	mu   sync.Mutex
	jobs []models.TrainingJob
}

func (r *recorder) add(job models.TrainingJob) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
}

func (r *recorder) snapshot() []models.TrainingJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.TrainingJob(nil), r.jobs...)
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not finish")
	}
}

func TestStatusPoller_StopsOnTerminal(t *testing.T) {
	fetcher := &scriptedStatus{script: []step{
		{job: models.TrainingJob{Status: models.StatusRunning, Progress: 10}},
		{job: models.TrainingJob{Status: models.StatusRunning, Progress: 55}},
		{job: models.TrainingJob{Status: models.StatusCompleted, Progress: 100}},
	}}
	rec := &recorder{}

	p := NewStatusPoller(fetcher, "job-1", tick, rec.add, testLogger())
	require.NoError(t, p.Start(context.Background()))
	waitDone(t, p.Done())

	// No further queries after the terminal snapshot
	time.Sleep(4 * tick)
	assert.Equal(t, 3, fetcher.Calls())
	assert.Equal(t, StateStopped, p.State())
	assert.NoError(t, p.Err())

	jobs := rec.snapshot()
	require.Len(t, jobs, 3)
	assert.Equal(t, []int{10, 55, 100}, []int{jobs[0].Progress, jobs[1].Progress, jobs[2].Progress})
	assert.Equal(t, models.StatusCompleted, jobs[2].Status)
}

func TestStatusPoller_FailFast(t *testing.T) {
	boom := errors.New("connection refused")
	fetcher := &scriptedStatus{script: []step{
		{job: models.TrainingJob{Status: models.StatusRunning, Progress: 10}},
		{err: boom},
		{job: models.TrainingJob{Status: models.StatusRunning, Progress: 90}},
	}}
	rec := &recorder{}

	p := NewStatusPoller(fetcher, "job-1", tick, rec.add, testLogger())
	require.NoError(t, p.Start(context.Background()))
	waitDone(t, p.Done())

	time.Sleep(4 * tick)
	assert.Equal(t, 2, fetcher.Calls(), "no retry after a failure")
	assert.Len(t, rec.snapshot(), 1, "last good snapshot stays the latest")

	err := p.Err()
	require.ErrorIs(t, err, apperr.ErrPollFailure)
	assert.ErrorIs(t, err, boom)
}

func TestStatusPoller_OneRequestInFlight(t *testing.T) {
	fetcher := &scriptedStatus{
		delay: 3 * tick,
		script: []step{
			{job: models.TrainingJob{Status: models.StatusPreparingData}},
			{job: models.TrainingJob{Status: models.StatusRunning}},
			{job: models.TrainingJob{Status: models.StatusEvaluating}},
			{job: models.TrainingJob{Status: models.StatusStopped}},
		},
	}

	p := NewStatusPoller(fetcher, "job-1", tick, func(models.TrainingJob) {}, testLogger())
	require.NoError(t, p.Start(context.Background()))
	waitDone(t, p.Done())

	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()
	assert.Equal(t, 1, fetcher.maxIn)
	assert.Equal(t, 4, fetcher.calls)
}

// blockingStatus holds each query until released
type blockingStatus struct {
	started chan struct{}
	release chan struct{}
}

func (f *blockingStatus) GetTrainingStatus(ctx context.Context, jobID string) (models.TrainingJob, error) {
	f.started <- struct{}{}
	<-f.release
	return models.TrainingJob{JobID: jobID, Status: models.StatusRunning, Progress: 40}, nil
}

func TestStatusPoller_ResultAfterStopDiscarded(t *testing.T) {
	fetcher := &blockingStatus{started: make(chan struct{}, 1), release: make(chan struct{})}
	rec := &recorder{}

	p := NewStatusPoller(fetcher, "job-1", tick, rec.add, testLogger())
	require.NoError(t, p.Start(context.Background()))

	<-fetcher.started
	p.Stop()
	close(fetcher.release)
	waitDone(t, p.Done())

	assert.Empty(t, rec.snapshot())
	assert.Equal(t, StateStopped, p.State())
	assert.NoError(t, p.Err())
}

func TestStatusPoller_Lifecycle(t *testing.T) {
	fetcher := &scriptedStatus{script: []step{{job: models.TrainingJob{Status: models.StatusRunning}}}}
	p := NewStatusPoller(fetcher, "job-1", time.Hour, func(models.TrainingJob) {}, testLogger())

	assert.Equal(t, StateIdle, p.State())
	require.NoError(t, p.Start(context.Background()))
	assert.Equal(t, StatePolling, p.State())
	assert.ErrorIs(t, p.Start(context.Background()), ErrAlreadyStarted)

	p.Stop()
	p.Stop()
	waitDone(t, p.Done())
	assert.Equal(t, 0, fetcher.Calls())
}

func TestStatusPoller_StopBeforeStart(t *testing.T) {
	p := NewStatusPoller(&scriptedStatus{}, "job-1", tick, func(models.TrainingJob) {}, testLogger())
	p.Stop()
	waitDone(t, p.Done())
	assert.ErrorIs(t, p.Start(context.Background()), ErrAlreadyStarted)
}

func TestStatusPoller_ParentContextCancel(t *testing.T) {
	fetcher := &scriptedStatus{script: []step{{job: models.TrainingJob{Status: models.StatusRunning}}}}
	ctx, cancel := context.WithCancel(context.Background())

	p := NewStatusPoller(fetcher, "job-1", tick, func(models.TrainingJob) {}, testLogger())
	require.NoError(t, p.Start(ctx))
	cancel()
	waitDone(t, p.Done())

	assert.Equal(t, StateStopped, p.State())
	assert.NoError(t, p.Err())
}

type scriptedRegistry struct {
	mu    sync.Mutex
	calls int
	fail  map[int]bool
}

func (f *scriptedRegistry) ListTrainingJobs(ctx context.Context) (models.RegistrySnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if f.fail[i] {
		return models.RegistrySnapshot{}, errors.New("503 service unavailable")
	}
	return models.RegistrySnapshot{Total: i, Running: 1}, nil
}

func TestRegistryPoller_SkipsFailures(t *testing.T) {
	fetcher := &scriptedRegistry{fail: map[int]bool{1: true}}

	var mu sync.Mutex
	var snaps []models.RegistrySnapshot
	p := NewRegistryPoller(fetcher, tick, func(s models.RegistrySnapshot) {
		mu.Lock()
		defer mu.Unlock()
		snaps = append(snaps, s)
	}, testLogger())

	require.NoError(t, p.Start(context.Background()))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(snaps) >= 3
	}, 2*time.Second, tick)

	p.Stop()
	waitDone(t, p.Done())

	assert.Equal(t, 1, p.Failures())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 0, snaps[0].Total)
	assert.Equal(t, 2, snaps[1].Total, "failed cycle skipped, next one applied")
}

func TestRegistryPoller_KeepsRunningAfterTerminalJobs(t *testing.T) {
	fetcher := &scriptedRegistry{}
	p := NewRegistryPoller(fetcher, tick, func(models.RegistrySnapshot) {}, testLogger())

	require.NoError(t, p.Start(context.Background()))
	require.Eventually(t, func() bool {
		fetcher.mu.Lock()
		defer fetcher.mu.Unlock()
		return fetcher.calls >= 5
	}, 2*time.Second, tick)
	assert.Equal(t, StatePolling, p.State())

	p.Stop()
	waitDone(t, p.Done())
	assert.Equal(t, StateStopped, p.State())
}
