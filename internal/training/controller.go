// Package training owns the lifecycle of the one training job a session
// may run: submission, status tracking, stop requests and the registry view.
package training

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lamim/nlpforge/internal/api"
	"github.com/lamim/nlpforge/internal/apperr"
	"github.com/lamim/nlpforge/internal/metrics"
	"github.com/lamim/nlpforge/internal/poller"
	"github.com/lamim/nlpforge/pkg/models"
)

// Service is the subset of the service client the controller needs
type Service interface {
	StartTraining(ctx context.Context, req api.StartTrainingRequest) (string, error)
	GetTrainingStatus(ctx context.Context, jobID string) (models.TrainingJob, error)
	StopTraining(ctx context.Context, jobID string) (string, error)
	ListTrainingJobs(ctx context.Context) (models.RegistrySnapshot, error)
}

// Options holds the poll intervals
type Options struct {
	StatusInterval   time.Duration
	RegistryInterval time.Duration
}

// Controller tracks the session's training job. The job view is only
// replaced wholesale, either by Start (optimistic) or by a status result
// (confirmed). Observers run on the poller goroutine and must not call
// Reset or Close.
type Controller struct {
	svc     Service
	opts    Options
	logger  *slog.Logger
	metrics *metrics.Collector

	baseCtx context.Context
	cancel  context.CancelFunc

	mu             sync.Mutex
	view           models.JobView
	starting       bool
	registry       models.RegistrySnapshot
	hasRegistry    bool
	statusPoller   *poller.StatusPoller
	registryPoller *poller.RegistryPoller
	onSnapshot     []func(models.JobView)
	onRegistry     []func(models.RegistrySnapshot)
}

// NewController creates a controller with no job
func NewController(svc Service, opts Options, logger *slog.Logger) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		svc:     svc,
		opts:    opts,
		logger:  logger,
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// SetMetrics attaches a metrics collector
func (c *Controller) SetMetrics(m *metrics.Collector) {
	c.metrics = m
}

// OnSnapshot registers an observer for every new job view
func (c *Controller) OnSnapshot(fn func(models.JobView)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onSnapshot = append(c.onSnapshot, fn)
}

// OnRegistry registers an observer for every registry snapshot
func (c *Controller) OnRegistry(fn func(models.RegistrySnapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRegistry = append(c.onRegistry, fn)
}

// Start submits a training job and begins polling its status.
// It fails with JobAlreadyActive while a non-terminal job exists, with a
// validation error for a bad config (nothing is sent), and with a
// submission error when the service rejects the request; in every failure
// case the current view is left untouched.
func (c *Controller) Start(ctx context.Context, entities, intents []models.NamedItem, cfg models.TrainingConfig) (string, error) {
	c.mu.Lock()
	if c.view.Active() {
		jobID := c.view.Job.JobID
		c.mu.Unlock()
		return "", apperr.JobAlreadyActive(jobID)
	}
	if c.starting {
		c.mu.Unlock()
		return "", apperr.JobAlreadyActive("(pending)")
	}
	c.starting = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.starting = false
		c.mu.Unlock()
	}()

	if err := cfg.Validate(); err != nil {
		return "", apperr.Validation("%v", err)
	}

	if entities == nil {
		entities = []models.NamedItem{}
	}
	if intents == nil {
		intents = []models.NamedItem{}
	}

	c.logger.Info("Submitting training job",
		"entities", len(entities),
		"intents", len(intents),
		"model_base", cfg.ModelBase,
		"epochs", cfg.Epochs)

	jobID, err := c.svc.StartTraining(ctx, api.StartTrainingRequest{
		Entities: entities,
		Intents:  intents,
		Config:   cfg,
	})
	c.metrics.IncrementTrainingStart(err == nil)
	if err != nil {
		c.logger.Error("Training submission failed", "error", err)
		return "", apperr.Submission(err)
	}

	view := models.JobView{
		Kind: models.ViewOptimistic,
		Job: models.TrainingJob{
			JobID:       jobID,
			Status:      models.StatusRunning,
			Progress:    0,
			TotalEpochs: cfg.Epochs,
		},
	}

	sp := poller.NewStatusPoller(c.svc, jobID, c.opts.StatusInterval, c.apply, c.logger)
	sp.SetMetrics(c.metrics)

	c.mu.Lock()
	previous := c.statusPoller
	c.view = view
	c.statusPoller = sp
	observers := c.snapshotObservers()
	c.mu.Unlock()

	if previous != nil {
		previous.Stop()
	}
	c.logger.Info("Training job started", "job_id", jobID)
	notify(observers, view)

	if err := sp.Start(c.baseCtx); err != nil {
		return jobID, fmt.Errorf("failed to start status poller: %w", err)
	}
	return jobID, nil
}

// apply is the single result handler for status snapshots. A result
// replaces the view whole. Results for a job other than the current one are
// dropped, and a terminal view is never replaced by a non-terminal one.
func (c *Controller) apply(job models.TrainingJob) {
	c.mu.Lock()
	if c.view.Kind == models.ViewNone || job.JobID != c.view.Job.JobID {
		c.mu.Unlock()
		c.logger.Debug("Dropping status for inactive job", "job_id", job.JobID)
		return
	}
	if c.view.Kind == models.ViewConfirmed && c.view.Job.Status.IsTerminal() && !job.Status.IsTerminal() {
		c.mu.Unlock()
		c.logger.Debug("Dropping stale status after terminal state", "job_id", job.JobID, "status", job.Status)
		return
	}
	view := models.JobView{Kind: models.ViewConfirmed, Job: job}
	c.view = view
	observers := c.snapshotObservers()
	c.mu.Unlock()

	c.metrics.SetTrainingProgress(job)
	c.logger.Debug("Training status", "job_id", job.JobID, "status", job.Status, "progress", job.Progress, "epoch", job.Epoch)
	notify(observers, view)
}

// Stop asks the service to stop the current job and returns its message.
// With no job, or a job in a state the service will not stop (queued,
// evaluating, saving or terminal), it fails with a stop error without
// contacting the service. A refusal from the service is a stop error too.
// After any answer the status is refreshed immediately instead of waiting
// for the next poll.
func (c *Controller) Stop(ctx context.Context) (string, error) {
	c.mu.Lock()
	view := c.view
	c.mu.Unlock()

	if view.Kind == models.ViewNone {
		return "", apperr.Stop("no training job to stop", nil)
	}
	jobID := view.Job.JobID
	if view.Job.Status.IsTerminal() {
		return "", apperr.Stop(fmt.Sprintf("training job %s already %s", jobID, view.Job.Status), nil)
	}
	if !view.Job.Status.IsStoppable() {
		return "", apperr.Stop(fmt.Sprintf("training job %s is %s and cannot be stopped now", jobID, view.Job.Status), nil)
	}

	msg, err := c.svc.StopTraining(ctx, jobID)
	if err != nil {
		c.logger.Error("Stop request failed", "job_id", jobID, "error", err)
		if apperr.KindOf(err) == apperr.KindStop {
			// Refused: the job moved on since the last poll
			c.refresh(ctx, jobID)
			return "", err
		}
		return "", apperr.Stop(fmt.Sprintf("could not stop job %s", jobID), err)
	}
	c.logger.Info("Stop requested", "job_id", jobID, "message", msg)

	c.refresh(ctx, jobID)
	return msg, nil
}

// refresh applies one out-of-band status query through the result handler
// and stops the status poller once the job is terminal
func (c *Controller) refresh(ctx context.Context, jobID string) {
	job, err := c.svc.GetTrainingStatus(ctx, jobID)
	if err != nil {
		c.logger.Warn("Status refresh after stop failed", "job_id", jobID, "error", err)
		return
	}
	c.apply(job)

	if job.Status.IsTerminal() {
		c.mu.Lock()
		sp := c.statusPoller
		c.mu.Unlock()
		if sp != nil && sp.JobID() == jobID {
			sp.Stop()
		}
	}
}

// View returns the current job view
func (c *Controller) View() models.JobView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// Registry returns the latest registry snapshot, if one has arrived
func (c *Controller) Registry() (models.RegistrySnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry, c.hasRegistry
}

// Wait blocks until status polling for the current job ends or ctx is done,
// then returns the final view and the poll failure, if any.
func (c *Controller) Wait(ctx context.Context) (models.JobView, error) {
	c.mu.Lock()
	sp := c.statusPoller
	c.mu.Unlock()

	if sp == nil {
		return c.View(), nil
	}
	select {
	case <-sp.Done():
		return c.View(), sp.Err()
	case <-ctx.Done():
		return c.View(), ctx.Err()
	}
}

// PollDone returns a channel closed when status polling ends, or nil without a job
func (c *Controller) PollDone() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.statusPoller == nil {
		return nil
	}
	return c.statusPoller.Done()
}

// WatchRegistry starts the registry poller if it is not already running
func (c *Controller) WatchRegistry() error {
	c.mu.Lock()
	if c.registryPoller != nil && c.registryPoller.State() == poller.StatePolling {
		c.mu.Unlock()
		return nil
	}
	rp := poller.NewRegistryPoller(c.svc, c.opts.RegistryInterval, c.applyRegistry, c.logger)
	rp.SetMetrics(c.metrics)
	c.registryPoller = rp
	c.mu.Unlock()

	return rp.Start(c.baseCtx)
}

// StopRegistry stops the registry poller
func (c *Controller) StopRegistry() {
	c.mu.Lock()
	rp := c.registryPoller
	c.registryPoller = nil
	c.mu.Unlock()

	if rp != nil {
		rp.Stop()
	}
}

func (c *Controller) applyRegistry(snap models.RegistrySnapshot) {
	c.mu.Lock()
	c.registry = snap
	c.hasRegistry = true
	observers := append([]func(models.RegistrySnapshot){}, c.onRegistry...)
	c.mu.Unlock()

	c.metrics.SetRegistry(snap)
	for _, fn := range observers {
		fn(snap)
	}
}

// Reset stops both pollers and forgets the job
func (c *Controller) Reset() {
	c.mu.Lock()
	sp := c.statusPoller
	rp := c.registryPoller
	c.statusPoller = nil
	c.registryPoller = nil
	c.mu.Unlock()

	// Pollers first: once Stop returns no handler can repopulate the state
	if sp != nil {
		sp.Stop()
	}
	if rp != nil {
		rp.Stop()
	}

	c.mu.Lock()
	c.view = models.JobView{}
	c.registry = models.RegistrySnapshot{}
	c.hasRegistry = false
	c.mu.Unlock()
}

// Close resets the controller and releases its background context
func (c *Controller) Close() {
	c.Reset()
	c.cancel()
}

func (c *Controller) snapshotObservers() []func(models.JobView) {
	return append([]func(models.JobView){}, c.onSnapshot...)
}

func notify(observers []func(models.JobView), view models.JobView) {
	for _, fn := range observers {
		fn(view)
	}
}
