package main

import (
	"context"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"

	"github.com/lamim/nlpforge/internal/training"
	"github.com/lamim/nlpforge/pkg/models"
)

// followJob polls a job by id, drawing a progress bar until it ends
func followJob(ctx context.Context, rt *app, jobID string, configuredEpochs int, onJob func(models.TrainingJob)) (models.TrainingJob, error) {
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(os.Stdout),
		progressbar.OptionSetDescription(fmt.Sprintf("Waiting for job %s", jobID)),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetRenderBlankState(true),
	)

	job, err := training.Follow(ctx, rt.client, jobID, rt.cfg.Polling.StatusInterval(), func(job models.TrainingJob) {
		if onJob != nil {
			onJob(job)
		}
		bar.Describe(job.Summary(configuredEpochs))
		p := job.Progress
		if p > 100 {
			p = 100
		}
		if p < 0 {
			p = 0
		}
		_ = bar.Set(p)
	}, rt.metrics, rt.logger)
	fmt.Println()
	return job, err
}
