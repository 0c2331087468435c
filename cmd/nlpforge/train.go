package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lamim/nlpforge/internal/apperr"
	"github.com/lamim/nlpforge/internal/orchestrator"
	"github.com/lamim/nlpforge/internal/wizard"
)

var (
	sessionFile string
	detach      bool
)

func newTrainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Start training from a saved wizard session",
		Long: `Start a training job from a session.toml written by the wizard and follow
its progress. The session must have completed the Refinement step.`,
		RunE: runTrain,
	}

	cmd.Flags().StringVar(&sessionFile, "session", "", "Path to a saved session.toml (required)")
	cmd.Flags().BoolVar(&detach, "detach", false, "Submit the job and exit without following it")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func runTrain(cmd *cobra.Command, args []string) error {
	rt, err := loadApp()
	if err != nil {
		return err
	}

	session, err := wizard.LoadFile(sessionFile, rt.cfg.Wizard.HomePolicy, rt.cfg.Training)
	if err != nil {
		return fmt.Errorf("failed to load session: %s", apperr.UserMessage(err))
	}
	if session.Reached() != wizard.StepTraining {
		return fmt.Errorf("session %s stops at step %s; finish the wizard first", sessionFile, session.Reached())
	}
	// A file saved after going back still holds finished data
	for session.Step() < wizard.StepTraining {
		if err := session.Forward(); err != nil {
			return fmt.Errorf("session %s: %s", sessionFile, apperr.UserMessage(err))
		}
	}

	sr, err := rt.openSession("", os.Stderr)
	if err != nil {
		return err
	}
	defer sr.Close()

	if err := session.SaveFile(sr.sessionMgr.GetWizardPath()); err != nil {
		sr.logger.Warn("Failed to copy session file", "error", err)
	}

	ctx, interrupt, stop := signalContext()
	defer stop()
	sr.serveMetrics(ctx)

	controller := sr.newController()
	defer controller.Close()

	orch := orchestrator.New(orchestrator.Options{
		Config:     sr.cfg,
		Service:    sr.client,
		Controller: controller,
		Session:    session,
		Out:        os.Stdout,
		SessionMgr: sr.sessionMgr,
		Journal:    sr.journal,
		StatusLog:  sr.statusLog,
		Interrupt:  interrupt,
		Logger:     sr.logger,
	})

	view, err := orch.RunTraining(ctx, !detach)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Printf("Stopped following job %s. Resume with:\n  nlpforge sessions resume %s\n",
				view.Job.JobID, sr.sessionMgr.GetSessionName())
			return nil
		}
		return errors.New(apperr.UserMessage(err))
	}

	if view.Active() {
		fmt.Printf("Job %s is running. Follow it with:\n  nlpforge sessions resume %s\n",
			view.Job.JobID, sr.sessionMgr.GetSessionName())
	}
	return nil
}
