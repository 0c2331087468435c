// Package orchestrator drives the wizard: it turns user choices into editor
// operations, checks the step gates, calls the service and hands the
// training step to the job controller.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/lamim/nlpforge/internal/api"
	"github.com/lamim/nlpforge/internal/apperr"
	"github.com/lamim/nlpforge/internal/checkpoint"
	"github.com/lamim/nlpforge/internal/config"
	"github.com/lamim/nlpforge/internal/editor"
	"github.com/lamim/nlpforge/internal/prompt"
	"github.com/lamim/nlpforge/internal/training"
	"github.com/lamim/nlpforge/internal/wizard"
	"github.com/lamim/nlpforge/internal/writer"
	"github.com/lamim/nlpforge/pkg/models"
)

// errQuit ends the wizard loop without an error
var errQuit = errors.New("quit")

// Service is the part of the service client used by the wizard steps
type Service interface {
	AnalyzeProblem(ctx context.Context, problem string, provider models.LLMProvider) (*api.Analysis, error)
	GenerateEntitiesIntents(ctx context.Context, req api.GenerateRequest) (*api.GenerateResponse, error)
	GetPresets(ctx context.Context) (map[string]models.Preset, error)
}

// Options holds the orchestrator's collaborators. Journal, StatusLog,
// SessionMgr and Interrupt are optional.
type Options struct {
	Config     *config.Config
	Service    Service
	Controller *training.Controller
	Session    *wizard.Session
	Prompter   prompt.Prompter
	Out        io.Writer
	SessionMgr *writer.SessionManager
	Journal    *checkpoint.Manager
	StatusLog  writer.Writer
	// Interrupt ends a progress watch early and returns to the training menu
	Interrupt <-chan struct{}
	Logger    *slog.Logger
}

// Orchestrator runs the interactive wizard
type Orchestrator struct {
	cfg        *config.Config
	svc        Service
	controller *training.Controller
	session    *wizard.Session
	prompt     prompt.Prompter
	out        io.Writer
	sessionMgr *writer.SessionManager
	journal    *checkpoint.Manager
	statusLog  writer.Writer
	interrupt  <-chan struct{}
	logger     *slog.Logger

	presets      map[string]models.Preset
	questionCur  editor.EditCursor
	entityCursor editor.EditCursor
	intentCursor editor.EditCursor
	updates      chan struct{}
}

// New creates an orchestrator and subscribes it to the controller's snapshots
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		cfg:        opts.Config,
		svc:        opts.Service,
		controller: opts.Controller,
		session:    opts.Session,
		prompt:     opts.Prompter,
		out:        opts.Out,
		sessionMgr: opts.SessionMgr,
		journal:    opts.Journal,
		statusLog:  opts.StatusLog,
		interrupt:  opts.Interrupt,
		logger:     opts.Logger,
		updates:    make(chan struct{}, 1),
	}
	if o.out == nil {
		o.out = io.Discard
	}

	o.controller.OnSnapshot(o.onSnapshot)
	o.controller.OnRegistry(o.onRegistry)
	return o
}

// Session returns the wizard session being driven
func (o *Orchestrator) Session() *wizard.Session {
	return o.session
}

// Run loops over the wizard steps until the user quits or ctx is done
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("Starting wizard",
		"service", o.cfg.Service.BaseURL,
		"provider", o.session.Provider(),
		"home_policy", o.cfg.Wizard.HomePolicy)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var err error
		switch o.session.Step() {
		case wizard.StepSetup:
			err = o.setupStep(ctx)
		case wizard.StepAnalysis:
			err = o.analysisStep(ctx)
		case wizard.StepRefinement:
			err = o.refinementStep(ctx)
		case wizard.StepTraining:
			err = o.trainingStep(ctx)
		}

		switch {
		case err == nil:
		case errors.Is(err, errQuit), errors.Is(err, prompt.ErrAborted):
			o.logger.Info("Wizard finished", "step", o.session.Step())
			return nil
		default:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
	}
}

// onSnapshot runs for every job view. The optimistic view is delivered
// synchronously from Start on the wizard goroutine; confirmed views arrive
// from the status poller.
func (o *Orchestrator) onSnapshot(view models.JobView) {
	switch view.Kind {
	case models.ViewOptimistic:
		if o.journal != nil {
			cfg := o.session.TrainingConfig()
			if err := o.journal.MarkSubmitted(view.Job.JobID, o.session.Domain(),
				o.session.Entities().Len(), o.session.Intents().Len(), cfg); err != nil {
				o.logger.Warn("Failed to journal submitted job", "job_id", view.Job.JobID, "error", err)
			}
		}
	case models.ViewConfirmed:
		if o.journal != nil {
			o.journal.RecordView(view)
		}
		if o.statusLog != nil {
			if err := o.statusLog.WriteSnapshot(view.Job); err != nil {
				o.logger.Warn("Failed to write status log", "error", err)
			}
		}
	}
	o.signal()
}

func (o *Orchestrator) onRegistry(snap models.RegistrySnapshot) {
	if o.journal != nil {
		o.journal.RecordRegistry(snap)
	}
	o.signal()
}

// signal wakes the progress view without blocking the poller
func (o *Orchestrator) signal() {
	select {
	case o.updates <- struct{}{}:
	default:
	}
}

func (o *Orchestrator) printf(format string, args ...any) {
	fmt.Fprintf(o.out, format, args...)
}

// report prints a recoverable error; the wizard stays on the current step
func (o *Orchestrator) report(err error) {
	o.logger.Debug("Step error", "step", o.session.Step(), "kind", apperr.KindOf(err), "error", err)
	o.printf("✗ %s\n", apperr.UserMessage(err))
}

// remote wraps a failed service call unless it is already classified
func remote(err error, message string) error {
	if apperr.KindOf(err) != "" {
		return err
	}
	return apperr.Remote(err, message)
}
