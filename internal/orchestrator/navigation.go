package orchestrator

import (
	"context"
	"fmt"
	"strconv"

	"github.com/lamim/nlpforge/internal/prompt"
	"github.com/lamim/nlpforge/internal/wizard"
)

const (
	actForward = "nav:forward"
	actBack    = "nav:back"
	actGoTo    = "nav:goto"
	actHome    = "nav:home"
	actReset   = "nav:reset"
	actQuit    = "nav:quit"
)

// navOptions lists the navigation choices valid on the current step
func (o *Orchestrator) navOptions() []prompt.Option {
	step := o.session.Step()
	var opts []prompt.Option
	if o.session.Reached() > step {
		opts = append(opts, prompt.Opt(actForward, fmt.Sprintf("Continue to %s", step+1)))
	}
	if step > wizard.StepSetup {
		opts = append(opts, prompt.Opt(actBack, fmt.Sprintf("Back to %s", step-1)))
	}
	if step > wizard.StepAnalysis {
		opts = append(opts, prompt.Opt(actGoTo, "Jump to an earlier step"))
	}
	if step > wizard.StepSetup {
		opts = append(opts, prompt.Opt(actHome, "Home"))
	}
	opts = append(opts,
		prompt.Opt(actReset, "Start over"),
		prompt.Opt(actQuit, "Quit"))
	return opts
}

// navigate applies a navigation choice
func (o *Orchestrator) navigate(ctx context.Context, choice string) error {
	from := o.session.Step()
	switch choice {
	case actForward:
		if err := o.session.Forward(); err != nil {
			o.report(err)
			return nil
		}
	case actBack:
		o.session.Back()
	case actGoTo:
		if err := o.goTo(ctx); err != nil {
			return err
		}
	case actHome:
		o.session.Home()
		if o.cfg.Wizard.HomePolicy == wizard.HomeClear {
			o.resetJob()
		}
	case actReset:
		ok, err := o.prompt.Confirm(ctx, "Discard everything and start over?")
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		o.session.Reset()
		o.resetJob()
	case actQuit:
		return errQuit
	default:
		return fmt.Errorf("unknown choice %q", choice)
	}

	if to := o.session.Step(); to != from {
		o.leaveStep(from, to)
	}
	return nil
}

func (o *Orchestrator) goTo(ctx context.Context) error {
	current := o.session.Step()
	var opts []prompt.Option
	for s := wizard.StepSetup; s < current; s++ {
		opts = append(opts, prompt.Opt(strconv.Itoa(int(s)), fmt.Sprintf("%d. %s", s, s)))
	}
	choice, err := o.prompt.Select(ctx, "Jump to step", opts)
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(choice)
	if err != nil {
		return fmt.Errorf("invalid step %q", choice)
	}
	if err := o.session.GoTo(wizard.Step(n)); err != nil {
		o.report(err)
	}
	return nil
}

// leaveStep releases what the step being left owned. The registry poller
// lives only while the training step is shown; the job itself keeps running.
func (o *Orchestrator) leaveStep(from, to wizard.Step) {
	o.logger.Debug("Step changed", "from", from, "to", to)
	if from == wizard.StepTraining {
		o.controller.StopRegistry()
	}
	o.questionCur.End()
	o.entityCursor.End()
	o.intentCursor.End()
}

// resetJob discards the tracked training job
func (o *Orchestrator) resetJob() {
	if o.controller.View().Active() {
		o.logger.Info("Discarding tracked job; it keeps running on the service", "job_id", o.controller.View().Job.JobID)
	}
	o.controller.Reset()
}
