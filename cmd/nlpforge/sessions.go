package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lamim/nlpforge/internal/apperr"
	"github.com/lamim/nlpforge/internal/checkpoint"
	"github.com/lamim/nlpforge/internal/writer"
	"github.com/lamim/nlpforge/pkg/models"
)

func newSessionsCmd() *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage session directories",
		Long:  "List, inspect and resume the session directories written by the wizard and train commands",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all session directories",
		RunE:  listSessions,
	}

	inspectCmd := &cobra.Command{
		Use:   "inspect <session-dir>",
		Short: "Inspect a session's job journal",
		Args:  cobra.ExactArgs(1),
		RunE:  inspectSession,
	}

	resumeCmd := &cobra.Command{
		Use:   "resume <session-dir>",
		Short: "Resume following a session's training job",
		Long:  "Reload the job journal of a session and keep polling its training job until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE:  runSessionResume,
	}

	sessionsCmd.AddCommand(listCmd)
	sessionsCmd.AddCommand(inspectCmd)
	sessionsCmd.AddCommand(resumeCmd)
	return sessionsCmd
}

// quietLogger is used while reading journals for listings
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func listSessions(cmd *cobra.Command, args []string) error {
	rt, err := loadApp()
	if err != nil {
		return err
	}
	outputDir := rt.cfg.Wizard.OutputDir

	sessions, err := writer.ListSessions(outputDir)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("No session directories found.")
		return nil
	}

	fmt.Println("Available sessions:")
	fmt.Println()
	fmt.Printf("%-30s %-10s %-14s %-12s %s\n", "SESSION", "ANSWERS", "JOB", "STATUS", "PROGRESS")
	fmt.Println(strings.Repeat("-", 80))

	for _, name := range sessions {
		dir := filepath.Join(outputDir, name)

		answers := "No"
		if _, err := os.Stat(filepath.Join(dir, "session.toml")); err == nil {
			answers = "Yes"
		}

		jobID, status, progress := "-", "-", "-"
		if j, err := checkpoint.Load(dir, quietLogger()); err == nil && j.JobID != "" {
			jobID = shortID(j.JobID)
			status = string(j.Latest.Status)
			progress = fmt.Sprintf("%.0f%%", checkpoint.GetProgressPercentage(j))
		}
		fmt.Printf("%-30s %-10s %-14s %-12s %s\n", name, answers, jobID, status, progress)
	}
	return nil
}

func inspectSession(cmd *cobra.Command, args []string) error {
	rt, err := loadApp()
	if err != nil {
		return err
	}
	name := args[0]

	dir, err := sessionDir(rt.cfg.Wizard.OutputDir, name)
	if err != nil {
		return err
	}

	j, err := checkpoint.Load(dir, quietLogger())
	if err != nil {
		return fmt.Errorf("failed to load job journal: %w", err)
	}

	fmt.Printf("Job Journal for: %s\n", name)
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Session ID:          %s\n", j.SessionID)
	fmt.Printf("Created At:          %s\n", j.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Last Saved At:       %s\n", j.LastSavedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Service Hash:        %s\n", j.ServiceHash)
	fmt.Printf("Domain:              %s\n", j.Domain)
	fmt.Printf("Training Data:       %d entities, %d intents\n", j.Entities, j.Intents)
	fmt.Println()

	fmt.Println("Training Config:")
	fmt.Printf("  Base Model:        %s\n", j.Config.ModelBase)
	fmt.Printf("  Epochs:            %d\n", j.Config.Epochs)
	fmt.Printf("  Batch Size:        %d\n", j.Config.BatchSize)
	fmt.Printf("  Learning Rate:     %g\n", j.Config.LearningRate)
	fmt.Printf("  Train/Test Split:  %.2f\n", j.Config.TrainTestSplit)
	fmt.Printf("  Max Length:        %d\n", j.Config.MaxSequenceLength)
	fmt.Println()

	if j.JobID == "" {
		fmt.Println("No training job was started in this session.")
		return nil
	}

	fmt.Println("Job:")
	fmt.Printf("  ID:                %s\n", j.JobID)
	fmt.Printf("  Status:            %s\n", j.Latest.Status)
	fmt.Printf("  Progress:          %.0f%%\n", checkpoint.GetProgressPercentage(j))
	fmt.Printf("  Epochs:            %d / %d\n", checkpoint.GetCompletedEpochs(j), checkpoint.GetTotalEpochs(j))
	fmt.Printf("  Summary:           %s\n", j.Latest.Summary(j.Config.Epochs))
	if ev, ok := checkpoint.GetLastEvent(j); ok {
		fmt.Printf("  Last Change:       %s (%s)\n", ev.At.Format("2006-01-02 15:04:05"), ev.Status)
	}
	if j.Registry != nil {
		fmt.Printf("  Service Jobs:      %s\n", j.Registry)
	}
	fmt.Println()

	if j.Finished() {
		fmt.Println("This job has finished.")
	} else {
		fmt.Println("To keep following this job, run:")
		fmt.Printf("  nlpforge sessions resume %s\n", name)
	}
	return nil
}

func runSessionResume(cmd *cobra.Command, args []string) error {
	rt, err := loadApp()
	if err != nil {
		return err
	}
	name := args[0]

	dir, err := sessionDir(rt.cfg.Wizard.OutputDir, name)
	if err != nil {
		return err
	}

	j, err := checkpoint.Load(dir, quietLogger())
	if err != nil {
		return fmt.Errorf("failed to load job journal: %w", err)
	}
	if err := checkpoint.ValidateJournal(j, rt.cfg.Service.BaseURL); err != nil {
		return fmt.Errorf("journal validation failed: %w", err)
	}

	sr, err := rt.openSession(name, os.Stderr)
	if err != nil {
		return err
	}
	defer sr.Close()

	fmt.Printf("Resuming job %s from %s\n", j.JobID, name)
	fmt.Printf("Last known: %s, %.0f%%\n\n", j.Latest.Status, checkpoint.GetProgressPercentage(j))

	ctx, _, stop := signalContext()
	defer stop()
	sr.serveMetrics(ctx)

	job, err := followJob(ctx, sr.app, j.JobID, j.Config.Epochs, func(job models.TrainingJob) {
		sr.journal.RecordView(models.JobView{Kind: models.ViewConfirmed, Job: job})
		if err := sr.statusLog.WriteSnapshot(job); err != nil {
			sr.logger.Warn("Failed to write status log", "error", err)
		}
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return errors.New(apperr.UserMessage(err))
	}
	fmt.Println(job.Summary(j.Config.Epochs))
	return nil
}

// sessionDir validates a session name and returns its directory
func sessionDir(outputDir, name string) (string, error) {
	if err := writer.ValidateSessionPath(outputDir, name); err != nil {
		return "", fmt.Errorf("invalid session directory: %w", err)
	}
	dir := filepath.Join(outputDir, name)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return "", fmt.Errorf("session directory not found: %s", name)
	}
	return dir, nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
