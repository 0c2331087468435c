package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/lamim/nlpforge/internal/prompt"
	"github.com/lamim/nlpforge/pkg/models"
)

const (
	actAnalyze  = "setup:analyze"
	actProblem  = "setup:problem"
	actPreset   = "setup:preset"
	actProvider = "setup:provider"
)

// problemPreviewWidth is the terminal width the problem header is cut to
const problemPreviewWidth = 100

func (o *Orchestrator) setupStep(ctx context.Context) error {
	o.printf("\n── Step 1: Setup ──\n")
	o.printf("LLM provider: %s\n", o.session.Provider().Label())
	if problem := strings.TrimSpace(o.session.Problem()); problem != "" {
		o.printf("Problem: %s\n", runewidth.Truncate(problem, problemPreviewWidth, "…"))
	} else {
		o.printf("Problem: (not set)\n")
	}

	options := []prompt.Option{
		prompt.Opt(actProblem, "Edit problem statement"),
		prompt.Opt(actPreset, "Use a preset"),
		prompt.Opt(actProvider, "Choose LLM provider"),
		prompt.Opt(actAnalyze, "Analyze problem"),
	}
	options = append(options, o.navOptions()...)

	choice, err := o.prompt.Select(ctx, "What next?", options)
	if err != nil {
		return err
	}

	switch choice {
	case actProblem:
		text, err := o.prompt.Text(ctx, "Describe the problem your NLP model should solve", o.session.Problem())
		if err != nil {
			return err
		}
		o.session.SetProblem(text)
	case actPreset:
		return o.choosePreset(ctx)
	case actProvider:
		return o.chooseProvider(ctx)
	case actAnalyze:
		o.analyze(ctx)
	default:
		return o.navigate(ctx, choice)
	}
	return nil
}

// analyze checks the setup gate locally before calling the service
func (o *Orchestrator) analyze(ctx context.Context) {
	if err := o.session.ValidateSetup(); err != nil {
		o.report(err)
		return
	}

	provider := o.session.Provider()
	o.printf("Analyzing problem with %s...\n", provider.Label())
	analysis, err := o.svc.AnalyzeProblem(ctx, strings.TrimSpace(o.session.Problem()), provider)
	if err != nil {
		o.logger.Error("Problem analysis failed", "provider", provider, "error", err)
		o.report(remote(err, "Failed to analyze problem. Please try again."))
		return
	}

	if err := o.session.CompleteSetup(analysis.Domain, analysis.Questions); err != nil {
		o.report(err)
		return
	}
	o.logger.Info("Problem analyzed", "domain", analysis.Domain, "questions", len(analysis.Questions))
}

func (o *Orchestrator) chooseProvider(ctx context.Context) error {
	opts := make([]prompt.Option, len(models.Providers))
	for i, p := range models.Providers {
		opts[i] = prompt.Opt(string(p), p.Label())
	}
	choice, err := o.prompt.Select(ctx, "LLM provider", opts)
	if err != nil {
		return err
	}
	if err := o.session.SetProvider(models.LLMProvider(choice)); err != nil {
		o.report(err)
	}
	return nil
}

func (o *Orchestrator) choosePreset(ctx context.Context) error {
	presets, err := o.loadPresets(ctx)
	if err != nil {
		o.report(err)
		return nil
	}
	if len(presets) == 0 {
		o.printf("No presets available.\n")
		return nil
	}

	keys := make([]string, 0, len(presets))
	for k := range presets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	opts := make([]prompt.Option, 0, len(keys))
	for _, k := range keys {
		p := presets[k]
		label := strings.TrimSpace(fmt.Sprintf("%s %s", p.Icon, p.Name))
		if p.Subtitle != "" {
			label += " · " + p.Subtitle
		}
		opts = append(opts, prompt.Opt(k, label))
	}

	choice, err := o.prompt.Select(ctx, "Preset", opts)
	if err != nil {
		return err
	}
	o.session.SelectPreset(choice)
	if models.PresetProblem(choice) == "" {
		o.printf("Preset %q has no canned problem statement; edit the problem to describe it.\n", choice)
	}
	return nil
}

// loadPresets fetches the preset catalogue once per run
func (o *Orchestrator) loadPresets(ctx context.Context) (map[string]models.Preset, error) {
	if o.presets != nil {
		return o.presets, nil
	}
	presets, err := o.svc.GetPresets(ctx)
	if err != nil {
		o.logger.Warn("Failed to load presets", "error", err)
		return nil, remote(err, "Failed to load presets")
	}
	o.presets = presets
	return presets, nil
}
