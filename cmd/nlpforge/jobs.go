package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lamim/nlpforge/internal/apperr"
	"github.com/lamim/nlpforge/pkg/models"
)

var watchStatus bool

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the problem presets offered by the service",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadApp()
			if err != nil {
				return err
			}
			presets, err := rt.client.GetPresets(cmd.Context())
			if err != nil {
				return errors.New(apperr.UserMessage(err))
			}

			keys := make([]string, 0, len(presets))
			for k := range presets {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tNAME\tSUBTITLE\tTAGS")
			for _, k := range keys {
				p := presets[k]
				fmt.Fprintf(w, "%s\t%s %s\t%s\t%s\n", k, p.Icon, p.Name, p.Subtitle, strings.Join(p.Tags, ", "))
			}
			return w.Flush()
		},
	}
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the service is reachable and healthy",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadApp()
			if err != nil {
				return err
			}
			if err := checkHealth(cmd.Context(), rt); err != nil {
				return err
			}
			fmt.Printf("✓ %s is healthy\n", rt.cfg.Service.BaseURL)
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the status of a training job",
		Args:  cobra.ExactArgs(1),
		RunE:  runStatus,
	}
	cmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "Keep polling until the job finishes")
	return cmd
}

func runStatus(cmd *cobra.Command, args []string) error {
	rt, err := loadApp()
	if err != nil {
		return err
	}
	jobID := args[0]

	if !watchStatus {
		job, err := rt.client.GetTrainingStatus(cmd.Context(), jobID)
		if err != nil {
			return errors.New(apperr.UserMessage(err))
		}
		printJob(job, 0)
		return nil
	}

	ctx, _, stop := signalContext()
	defer stop()
	rt.serveMetrics(ctx)

	job, err := followJob(ctx, rt, jobID, 0, nil)
	if err != nil && !errors.Is(err, context.Canceled) {
		return errors.New(apperr.UserMessage(err))
	}
	printJob(job, 0)
	return nil
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <job-id>",
		Short: "Stop a running training job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadApp()
			if err != nil {
				return err
			}
			jobID := args[0]

			msg, err := rt.client.StopTraining(cmd.Context(), jobID)
			if err != nil {
				if apperr.KindOf(err) != apperr.KindStop {
					err = apperr.Stop(fmt.Sprintf("could not stop job %s", jobID), err)
				}
				return errors.New(apperr.UserMessage(err))
			}
			fmt.Printf("✓ %s\n", msg)

			if job, err := rt.client.GetTrainingStatus(cmd.Context(), jobID); err == nil {
				printJob(job, 0)
			}
			return nil
		},
	}
}

func newJobsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "List training jobs known to the service",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadApp()
			if err != nil {
				return err
			}
			snap, err := rt.client.ListTrainingJobs(cmd.Context())
			if err != nil {
				return errors.New(apperr.UserMessage(err))
			}
			printRegistry(snap)
			return nil
		},
	}
}

func printJob(job models.TrainingJob, configuredEpochs int) {
	fmt.Printf("Job:       %s\n", job.JobID)
	fmt.Printf("Status:    %s\n", job.Status)
	fmt.Printf("Progress:  %d%%\n", job.Progress)
	fmt.Printf("           %s\n", job.Summary(configuredEpochs))
}

func printRegistry(snap models.RegistrySnapshot) {
	fmt.Println(snap.String())
	if len(snap.Jobs) == 0 {
		return
	}

	ids := make([]string, 0, len(snap.Jobs))
	for id := range snap.Jobs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return snap.Jobs[ids[i]].CreatedAt > snap.Jobs[ids[j]].CreatedAt
	})

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "JOB\tSTATUS\tPROGRESS\tEPOCH\tLOSS\tCREATED")
	for _, id := range ids {
		j := snap.Jobs[id]
		loss := "-"
		if j.Loss != nil {
			loss = fmt.Sprintf("%.4f", *j.Loss)
		}
		fmt.Fprintf(w, "%s\t%s\t%d%%\t%d/%d\t%s\t%s\n", id, j.Status, j.Progress, j.Epoch, j.TotalEpochs, loss, j.CreatedAt)
	}
	_ = w.Flush()
}
