package orchestrator

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/lamim/nlpforge/internal/apperr"
	"github.com/lamim/nlpforge/internal/prompt"
	"github.com/lamim/nlpforge/internal/wizard"
	"github.com/lamim/nlpforge/pkg/models"
)

const (
	actConfigure = "train:configure"
	actStart     = "train:start"
	actWatch     = "train:watch"
	actStop      = "train:stop"
)

func (o *Orchestrator) trainingStep(ctx context.Context) error {
	if err := o.controller.WatchRegistry(); err != nil {
		o.logger.Warn("Failed to start registry poller", "error", err)
	}

	o.printf("\n── Step 4: Training ──\n")
	o.printTrainingState()

	view := o.controller.View()
	var options []prompt.Option
	if view.Active() {
		options = append(options,
			prompt.Opt(actWatch, "Watch progress"),
			prompt.Opt(actStop, "Stop training"))
	} else {
		label := "Start training"
		if view.Kind != models.ViewNone {
			label = "Start a new training job"
		}
		options = append(options,
			prompt.Opt(actConfigure, "Configure training"),
			prompt.Opt(actStart, label))
	}
	options = append(options, o.navOptions()...)

	choice, err := o.prompt.Select(ctx, "What next?", options)
	if err != nil {
		return err
	}

	switch choice {
	case actConfigure:
		return o.configureTraining(ctx)
	case actStart:
		return o.startTraining(ctx)
	case actWatch:
		return o.watchInteractive(ctx)
	case actStop:
		o.stopTraining(ctx)
	default:
		return o.navigate(ctx, choice)
	}
	return nil
}

func (o *Orchestrator) printTrainingState() {
	cfg := o.session.TrainingConfig()
	o.printf("Config: %s, %d epochs, batch %d, lr %g, split %.2f, max length %d\n",
		cfg.ModelBase, cfg.Epochs, cfg.BatchSize, cfg.LearningRate, cfg.TrainTestSplit, cfg.MaxSequenceLength)
	o.printf("Data: %d entities, %d intents\n", o.session.Entities().Len(), o.session.Intents().Len())

	view := o.controller.View()
	if view.Kind != models.ViewNone {
		o.printf("Job %s (%s): %s %d%%\n", view.Job.JobID, view.Kind, view.Job.Status, view.Job.Progress)
		o.printf("  %s\n", view.Job.Summary(cfg.Epochs))
	}
	if snap, ok := o.controller.Registry(); ok {
		o.printf("Jobs on service: %s\n", snap)
	}
}

// startTraining submits the job and follows it until polling ends
func (o *Orchestrator) startTraining(ctx context.Context) error {
	if _, err := o.submit(ctx); err != nil {
		o.report(err)
		return nil
	}
	return o.watchInteractive(ctx)
}

// watchInteractive follows the job and reports a lost status feed as a
// recoverable error, keeping the wizard on the training step
func (o *Orchestrator) watchInteractive(ctx context.Context) error {
	_, err := o.watch(ctx)
	if err != nil && ctx.Err() == nil {
		o.report(err)
		return nil
	}
	return err
}

func (o *Orchestrator) submit(ctx context.Context) (string, error) {
	cfg := o.session.TrainingConfig()
	o.printf("Starting training on %s...\n", cfg.ModelBase)
	jobID, err := o.controller.Start(ctx, o.session.Entities().Items(), o.session.Intents().Items(), cfg)
	if err != nil {
		return "", err
	}
	o.printf("✓ Training job %s started\n", jobID)
	return jobID, nil
}

func (o *Orchestrator) stopTraining(ctx context.Context) {
	msg, err := o.controller.Stop(ctx)
	if err != nil {
		o.report(err)
		return
	}
	if msg == "" {
		msg = "Stop requested"
	}
	o.printf("✓ %s\n", msg)
	view := o.controller.View()
	o.printf("  %s\n", view.Job.Summary(o.session.TrainingConfig().Epochs))
}

// configureTraining collects every option; the config is replaced only if all are valid
func (o *Orchestrator) configureTraining(ctx context.Context) error {
	cfg := o.session.TrainingConfig()

	bases := make([]prompt.Option, len(models.ModelBases))
	for i, b := range models.ModelBases {
		bases[i] = prompt.Opt(string(b), string(b))
	}
	base, err := o.prompt.Select(ctx, "Base model", bases)
	if err != nil {
		return err
	}
	cfg.ModelBase = models.ModelBase(base)

	ints := []struct {
		title string
		dst   *int
	}{
		{"Epochs", &cfg.Epochs},
		{"Batch size", &cfg.BatchSize},
		{"Max sequence length", &cfg.MaxSequenceLength},
	}
	for _, f := range ints {
		v, err := o.prompt.Input(ctx, f.title, strconv.Itoa(*f.dst), validatePositiveInt)
		if err != nil {
			return err
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			o.report(apperr.Validation("%s must be a whole number", f.title))
			return nil
		}
		*f.dst = n
	}

	floats := []struct {
		title string
		dst   *float64
		check func(string) error
	}{
		{"Learning rate", &cfg.LearningRate, validatePositiveFloat},
		{"Train/test split", &cfg.TrainTestSplit, validateFraction},
	}
	for _, f := range floats {
		v, err := o.prompt.Input(ctx, f.title, strconv.FormatFloat(*f.dst, 'g', -1, 64), f.check)
		if err != nil {
			return err
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			o.report(apperr.Validation("%s must be a number", f.title))
			return nil
		}
		*f.dst = x
	}

	if err := o.session.SetTrainingConfig(cfg); err != nil {
		o.report(err)
		return nil
	}
	o.logger.Info("Training config updated", "model_base", cfg.ModelBase, "epochs", cfg.Epochs, "batch_size", cfg.BatchSize)
	return nil
}

func validatePositiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return fmt.Errorf("enter a positive whole number")
	}
	return nil
}

func validatePositiveFloat(s string) error {
	x, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || x <= 0 {
		return fmt.Errorf("enter a positive number")
	}
	return nil
}

func validateFraction(s string) error {
	x, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || x <= 0 || x >= 1 {
		return fmt.Errorf("enter a number between 0 and 1")
	}
	return nil
}

// RunTraining starts a job for a session already on the training step
// without prompting. With follow set it renders progress until polling
// ends; otherwise it returns right after submission. Used by the train
// command.
func (o *Orchestrator) RunTraining(ctx context.Context, follow bool) (models.JobView, error) {
	if o.session.Step() != wizard.StepTraining {
		return models.JobView{}, apperr.Validation("session is on step %s, not %s", o.session.Step(), wizard.StepTraining)
	}

	if _, err := o.submit(ctx); err != nil {
		return o.controller.View(), err
	}
	if !follow {
		return o.controller.View(), nil
	}

	if err := o.controller.WatchRegistry(); err != nil {
		o.logger.Warn("Failed to start registry poller", "error", err)
	}
	defer o.controller.StopRegistry()
	return o.watch(ctx)
}
