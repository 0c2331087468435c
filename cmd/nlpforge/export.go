package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lamim/nlpforge/internal/apperr"
	"github.com/lamim/nlpforge/internal/export"
	"github.com/lamim/nlpforge/internal/wizard"
)

var (
	exportSession string
	exportOut     string
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the entities and intents of a saved session as CSV",
		RunE:  runExport,
	}

	cmd.Flags().StringVar(&exportSession, "session", "", "Path to a saved session.toml (required)")
	cmd.Flags().StringVar(&exportOut, "out", "", "Output directory (defaults to the session file's directory)")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	rt, err := loadApp()
	if err != nil {
		return err
	}

	session, err := wizard.LoadFile(exportSession, rt.cfg.Wizard.HomePolicy, rt.cfg.Training)
	if err != nil {
		return fmt.Errorf("failed to load session: %s", apperr.UserMessage(err))
	}

	out := exportOut
	if out == "" {
		out = filepath.Dir(exportSession)
	}

	written := 0
	for _, f := range []struct {
		name   string
		render func() (string, error)
	}{
		{export.EntitiesFilename, func() (string, error) { return export.Entities(session.Entities().Items()) }},
		{export.IntentsFilename, func() (string, error) { return export.Intents(session.Intents().Items()) }},
	} {
		content, err := f.render()
		if err != nil {
			fmt.Println(apperr.UserMessage(err))
			continue
		}
		path, err := export.WriteFile(out, f.name, content)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Wrote %s\n", path)
		written++
	}

	if written == 0 {
		return fmt.Errorf("nothing exported from %s", exportSession)
	}
	return nil
}
