package training

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lamim/nlpforge/internal/metrics"
	"github.com/lamim/nlpforge/internal/poller"
	"github.com/lamim/nlpforge/pkg/models"
)

// Follow polls a job this process did not start until it reaches a
// terminal state, a poll fails, or ctx is done. onJob sees every snapshot
// on the poller goroutine. It returns the last snapshot received.
func Follow(ctx context.Context, fetcher poller.StatusFetcher, jobID string, interval time.Duration, onJob func(models.TrainingJob), m *metrics.Collector, logger *slog.Logger) (models.TrainingJob, error) {
	var (
		mu   sync.Mutex
		last = models.TrainingJob{JobID: jobID}
	)
	sp := poller.NewStatusPoller(fetcher, jobID, interval, func(job models.TrainingJob) {
		mu.Lock()
		last = job
		mu.Unlock()
		m.SetTrainingProgress(job)
		if onJob != nil {
			onJob(job)
		}
	}, logger)
	sp.SetMetrics(m)

	if err := sp.Start(ctx); err != nil {
		return last, err
	}
	<-sp.Done()

	mu.Lock()
	defer mu.Unlock()
	if err := ctx.Err(); err != nil {
		return last, err
	}
	return last, sp.Err()
}
