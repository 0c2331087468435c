// Package poller runs the two fixed-interval loops of the training view:
// one tracking a single job until it ends, one refreshing the job registry.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/lamim/nlpforge/internal/apperr"
	"github.com/lamim/nlpforge/internal/metrics"
	"github.com/lamim/nlpforge/pkg/models"
)

// State is the lifecycle of a poller
type State int

const (
	StateIdle State = iota
	StatePolling
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	default:
		return "stopped"
	}
}

// ErrAlreadyStarted is returned when Start is called twice
var ErrAlreadyStarted = errors.New("poller already started")

// StatusFetcher fetches one job status snapshot
type StatusFetcher interface {
	GetTrainingStatus(ctx context.Context, jobID string) (models.TrainingJob, error)
}

// StatusPoller queries one job's status at a fixed interval until the job
// reaches a terminal state, a query fails, or Stop is called.
//
// At most one query is in flight; the next tick is armed only after the
// previous result has been handled. The handler runs with the poller's
// lock held, so it must not call Stop on the same poller.
type StatusPoller struct {
	fetcher  StatusFetcher
	jobID    string
	interval time.Duration
	onResult func(models.TrainingJob)
	logger   *slog.Logger
	metrics  *metrics.Collector

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// NewStatusPoller creates an idle poller for jobID
func NewStatusPoller(fetcher StatusFetcher, jobID string, interval time.Duration, onResult func(models.TrainingJob), logger *slog.Logger) *StatusPoller {
	return &StatusPoller{
		fetcher:  fetcher,
		jobID:    jobID,
		interval: interval,
		onResult: onResult,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// SetMetrics attaches a metrics collector
func (p *StatusPoller) SetMetrics(m *metrics.Collector) {
	p.metrics = m
}

// JobID returns the tracked job
func (p *StatusPoller) JobID() string { return p.jobID }

// Start moves Idle → Polling and launches the loop
func (p *StatusPoller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateIdle {
		return ErrAlreadyStarted
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.state = StatePolling

	p.logger.Debug("Status poller started", "job_id", p.jobID, "interval", p.interval)
	go p.run(ctx)
	return nil
}

// Stop cancels polling. Once Stop returns, no further result reaches the handler.
func (p *StatusPoller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case StateIdle:
		close(p.done)
	case StatePolling:
		p.cancel()
	default:
		return
	}
	p.state = StateStopped
	p.logger.Debug("Status poller stopped", "job_id", p.jobID)
}

// State returns the current lifecycle state
func (p *StatusPoller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Done is closed when polling has ended for any reason
func (p *StatusPoller) Done() <-chan struct{} {
	return p.done
}

// Err returns the poll failure that ended polling, if any
func (p *StatusPoller) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// finish marks the loop as ended and releases Done waiters
func (p *StatusPoller) finish() {
	p.mu.Lock()
	p.state = StateStopped
	p.mu.Unlock()
	close(p.done)
}

func (p *StatusPoller) run(ctx context.Context) {
	defer p.finish()

	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		job, err := p.fetcher.GetTrainingStatus(ctx, p.jobID)
		if !p.handle(ctx, job, err) {
			return
		}
		timer.Reset(p.interval)
	}
}

// handle applies one result and reports whether polling continues
func (p *StatusPoller) handle(ctx context.Context, job models.TrainingJob, err error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StatePolling || ctx.Err() != nil {
		p.metrics.IncrementPollDiscarded(metrics.PollerStatus)
		return false
	}

	if err != nil {
		p.metrics.IncrementPoll(metrics.PollerStatus, false)
		p.err = apperr.PollFailure(p.jobID, err)
		p.state = StateStopped
		p.cancel()
		p.logger.Error("Status poll failed, polling stopped", "job_id", p.jobID, "error", err)
		return false
	}

	p.metrics.IncrementPoll(metrics.PollerStatus, true)
	p.onResult(job)

	if job.Status.IsTerminal() {
		p.state = StateStopped
		p.cancel()
		p.logger.Info("Training job finished", "job_id", p.jobID, "status", job.Status)
		return false
	}
	return true
}
