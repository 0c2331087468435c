package orchestrator

import (
	"context"
	"errors"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/lamim/nlpforge/pkg/models"
)

var errInterrupted = errors.New("watch interrupted")

// watch renders the job's progress until status polling ends, the user
// interrupts, or ctx is done. It returns the last view and the poll
// failure, if polling ended with one. An interrupt only stops the
// rendering; the pollers keep running.
func (o *Orchestrator) watch(ctx context.Context) (models.JobView, error) {
	done := o.controller.PollDone()
	if done == nil {
		return o.controller.View(), nil
	}

	epochs := o.session.TrainingConfig().Epochs
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(o.out),
		progressbar.OptionSetDescription("Waiting for status"),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetRenderBlankState(true),
	)

	g, gctx := errgroup.WithContext(ctx)
	finished := make(chan struct{})

	var (
		final   models.JobView
		pollErr error
	)
	g.Go(func() error {
		defer close(finished)
		final, pollErr = o.controller.Wait(gctx)
		return nil
	})
	g.Go(func() error {
		for {
			o.render(bar, epochs)
			select {
			case <-o.updates:
			case <-finished:
				o.render(bar, epochs)
				return nil
			case <-o.interrupt:
				return errInterrupted
			case <-gctx.Done():
				return nil
			}
		}
	})

	err := g.Wait()
	o.printf("\n")

	switch {
	case errors.Is(err, errInterrupted):
		view := o.controller.View()
		o.printf("Stopped watching; job %s keeps running.\n", view.Job.JobID)
		return view, nil
	case ctx.Err() != nil:
		return o.controller.View(), ctx.Err()
	}

	if final.Kind != models.ViewNone {
		o.printf("%s\n", final.Job.Summary(epochs))
	}
	if pollErr != nil {
		o.logger.Error("Status polling ended with an error", "job_id", final.Job.JobID, "error", pollErr)
		return final, pollErr
	}
	o.logger.Info("Training job finished", "job_id", final.Job.JobID, "status", final.Job.Status)
	return final, nil
}

// render draws the current view and registry counters onto the bar
func (o *Orchestrator) render(bar *progressbar.ProgressBar, epochs int) {
	view := o.controller.View()
	if view.Kind == models.ViewNone {
		return
	}
	desc := view.Job.Summary(epochs)
	if snap, ok := o.controller.Registry(); ok {
		desc += " | " + snap.String()
	}
	bar.Describe(desc)
	_ = bar.Set(clampProgress(view.Job.Progress))
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
