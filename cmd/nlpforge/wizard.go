package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lamim/nlpforge/internal/apperr"
	"github.com/lamim/nlpforge/internal/orchestrator"
	"github.com/lamim/nlpforge/internal/prompt"
	"github.com/lamim/nlpforge/internal/wizard"
)

var (
	resumeSession string
	skipHealth    bool
	saveSession   bool
)

func newWizardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wizard",
		Short: "Run the interactive model builder",
		Long: `Run the four-step wizard (Setup, Analysis, Refinement, Training).
Answers are saved to session.toml in the session directory so a later
'nlpforge train --session' or 'nlpforge wizard --resume' can pick them up.`,
		RunE: runWizard,
	}

	cmd.Flags().StringVar(&resumeSession, "resume", "", "Continue a previous session (e.g. session_2025-10-30T14-30-00)")
	cmd.Flags().BoolVar(&skipHealth, "skip-health-check", false, "Do not check the service before starting")
	cmd.Flags().BoolVar(&saveSession, "save-session", true, "Save wizard answers to the session directory on exit")
	return cmd
}

func runWizard(cmd *cobra.Command, args []string) error {
	rt, err := loadApp()
	if err != nil {
		return err
	}

	sr, err := rt.openSession(resumeSession, os.Stderr)
	if err != nil {
		return err
	}
	defer sr.Close()

	ctx, interrupt, stop := signalContext()
	defer stop()
	sr.serveMetrics(ctx)

	if !skipHealth {
		if err := checkHealth(ctx, sr.app); err != nil {
			return err
		}
	}

	session, err := sr.loadWizardSession()
	if err != nil {
		return err
	}

	controller := sr.newController()
	defer controller.Close()

	orch := orchestrator.New(orchestrator.Options{
		Config:     sr.cfg,
		Service:    sr.client,
		Controller: controller,
		Session:    session,
		Prompter:   prompt.NewForm(os.Stdin, os.Stdout),
		Out:        os.Stdout,
		SessionMgr: sr.sessionMgr,
		Journal:    sr.journal,
		StatusLog:  sr.statusLog,
		Interrupt:  interrupt,
		Logger:     sr.logger,
	})

	runErr := orch.Run(ctx)

	if saveSession {
		path := sr.sessionMgr.GetWizardPath()
		if err := session.SaveFile(path); err != nil {
			sr.logger.Error("Failed to save wizard session", "error", err)
		} else {
			fmt.Printf("Session saved to %s\n", path)
		}
	}

	if view := controller.View(); view.Active() {
		fmt.Printf("Training job %s is still running. Follow it with:\n  nlpforge sessions resume %s\n",
			view.Job.JobID, sr.sessionMgr.GetSessionName())
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			sr.logger.Warn("Wizard interrupted", "session_dir", sr.sessionMgr.GetSessionName())
			return nil
		}
		return fmt.Errorf("wizard failed: %w", runErr)
	}
	return nil
}

// loadWizardSession restores saved answers when resuming, or starts fresh
func (sr *sessionRuntime) loadWizardSession() (*wizard.Session, error) {
	policy := sr.cfg.Wizard.HomePolicy
	if resumeSession != "" {
		path := sr.sessionMgr.GetWizardPath()
		if _, err := os.Stat(path); err == nil {
			session, err := wizard.LoadFile(path, policy, sr.cfg.Training)
			if err != nil {
				return nil, fmt.Errorf("failed to load wizard session: %w", err)
			}
			sr.logger.Info("Restored wizard session", "path", path, "step", session.Step())
			return session, nil
		}
	}
	return wizard.NewSession(policy, sr.cfg.Wizard.LLMProvider, sr.cfg.Training), nil
}

// checkHealth fails fast when the service is unreachable
func checkHealth(ctx context.Context, rt *app) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := rt.client.Health(ctx); err != nil {
		return fmt.Errorf("service at %s is not healthy: %s", rt.cfg.Service.BaseURL, apperr.UserMessage(err))
	}
	rt.logger.Debug("Service healthy", "service", rt.cfg.Service.BaseURL)
	return nil
}
