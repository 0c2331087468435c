package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lamim/nlpforge/internal/metrics"
	"github.com/lamim/nlpforge/pkg/models"
)

// RegistryFetcher fetches the service's job counters
type RegistryFetcher interface {
	ListTrainingJobs(ctx context.Context) (models.RegistrySnapshot, error)
}

// RegistryPoller refreshes the registry snapshot at a fixed interval.
// A failed cycle is logged and skipped; the timer always re-arms.
type RegistryPoller struct {
	fetcher  RegistryFetcher
	interval time.Duration
	onResult func(models.RegistrySnapshot)
	logger   *slog.Logger
	metrics  *metrics.Collector

	mu       sync.Mutex
	state    State
	cancel   context.CancelFunc
	done     chan struct{}
	failures int
}

// NewRegistryPoller creates an idle registry poller
func NewRegistryPoller(fetcher RegistryFetcher, interval time.Duration, onResult func(models.RegistrySnapshot), logger *slog.Logger) *RegistryPoller {
	return &RegistryPoller{
		fetcher:  fetcher,
		interval: interval,
		onResult: onResult,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// SetMetrics attaches a metrics collector
func (p *RegistryPoller) SetMetrics(m *metrics.Collector) {
	p.metrics = m
}

// Start launches the loop; it runs until Stop or ctx is cancelled
func (p *RegistryPoller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateIdle {
		return ErrAlreadyStarted
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.state = StatePolling
	go p.run(ctx)
	return nil
}

// Stop cancels polling. Once Stop returns, no further result reaches the handler.
func (p *RegistryPoller) Stop() {
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
}

// State returns the current lifecycle state
func (p *RegistryPoller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Failures returns how many cycles have failed so far
func (p *RegistryPoller) Failures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures
}

// Done is closed when the loop has exited
func (p *RegistryPoller) Done() <-chan struct{} {
	return p.done
}

// finish marks the loop as ended and releases Done waiters
func (p *RegistryPoller) finish() {
	p.mu.Lock()
	p.state = StateStopped
	p.mu.Unlock()
	close(p.done)
}

func (p *RegistryPoller) run(ctx context.Context) {
	defer p.finish()

	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		snap, err := p.fetcher.ListTrainingJobs(ctx)
		if !p.handle(ctx, snap, err) {
			return
		}
		timer.Reset(p.interval)
	}
}

func (p *RegistryPoller) handle(ctx context.Context, snap models.RegistrySnapshot, err error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StatePolling || ctx.Err() != nil {
		p.metrics.IncrementPollDiscarded(metrics.PollerRegistry)
		return false
	}
	if err != nil {
		p.failures++
		p.metrics.IncrementPoll(metrics.PollerRegistry, false)
		p.logger.Warn("Registry poll failed, skipping cycle", "error", err, "failures", p.failures)
		return true
	}

	p.metrics.IncrementPoll(metrics.PollerRegistry, true)
	p.onResult(snap)
	return true
}
