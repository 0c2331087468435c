package orchestrator

import (
	"context"
	"fmt"
	"strconv"

	"github.com/lamim/nlpforge/internal/apperr"
	"github.com/lamim/nlpforge/internal/editor"
	"github.com/lamim/nlpforge/internal/export"
	"github.com/lamim/nlpforge/internal/prompt"
	"github.com/lamim/nlpforge/pkg/models"
)

const (
	actAddEntity    = "refine:add-entity"
	actEditEntity   = "refine:edit-entity"
	actRemoveEntity = "refine:remove-entity"
	actAddIntent    = "refine:add-intent"
	actEditIntent   = "refine:edit-intent"
	actRemoveIntent = "refine:remove-intent"
	actExportEntity = "refine:export-entities"
	actExportIntent = "refine:export-intents"
	actProceedTrain = "refine:proceed"
	entityKind      = "entity"
	intentKind      = "intent"
)

// namedList bundles a refinement list with its edit cursor
type namedList struct {
	kind   string
	list   *editor.List[models.NamedItem]
	cursor *editor.EditCursor
}

func (o *Orchestrator) entities() namedList {
	return namedList{kind: entityKind, list: o.session.Entities(), cursor: &o.entityCursor}
}

func (o *Orchestrator) intents() namedList {
	return namedList{kind: intentKind, list: o.session.Intents(), cursor: &o.intentCursor}
}

func (o *Orchestrator) refinementStep(ctx context.Context) error {
	o.printf("\n── Step 3: Refinement ──\n")
	o.printNamed("Entities", o.session.Entities().Items())
	o.printNamed("Intents", o.session.Intents().Items())

	options := []prompt.Option{prompt.Opt(actAddEntity, "Add entity")}
	if o.session.Entities().Len() > 0 {
		options = append(options,
			prompt.Opt(actEditEntity, "Edit entity"),
			prompt.Opt(actRemoveEntity, "Remove entity"))
	}
	options = append(options, prompt.Opt(actAddIntent, "Add intent"))
	if o.session.Intents().Len() > 0 {
		options = append(options,
			prompt.Opt(actEditIntent, "Edit intent"),
			prompt.Opt(actRemoveIntent, "Remove intent"))
	}
	options = append(options,
		prompt.Opt(actExportEntity, "Export entities to CSV"),
		prompt.Opt(actExportIntent, "Export intents to CSV"),
		prompt.Opt(actProceedTrain, "Proceed to training"))
	options = append(options, o.navOptions()...)

	choice, err := o.prompt.Select(ctx, "What next?", options)
	if err != nil {
		return err
	}

	switch choice {
	case actAddEntity:
		return o.addNamed(ctx, o.entities())
	case actEditEntity:
		return o.pickNamed(ctx, o.entities(), "Edit which entity?", o.editNamed)
	case actRemoveEntity:
		return o.pickNamed(ctx, o.entities(), "Remove which entity?", o.removeNamed)
	case actAddIntent:
		return o.addNamed(ctx, o.intents())
	case actEditIntent:
		return o.pickNamed(ctx, o.intents(), "Edit which intent?", o.editNamed)
	case actRemoveIntent:
		return o.pickNamed(ctx, o.intents(), "Remove which intent?", o.removeNamed)
	case actExportEntity:
		o.exportCSV(export.EntitiesFilename, func() (string, error) {
			return export.Entities(o.session.Entities().Items())
		})
	case actExportIntent:
		o.exportCSV(export.IntentsFilename, func() (string, error) {
			return export.Intents(o.session.Intents().Items())
		})
	case actProceedTrain:
		for _, warning := range duplicateNameWarnings(o.session.Entities().Items(), o.session.Intents().Items()) {
			o.printf("! %s\n", warning)
		}
		if err := o.session.CompleteRefinement(); err != nil {
			o.report(err)
		}
	default:
		return o.navigate(ctx, choice)
	}
	return nil
}

func (o *Orchestrator) printNamed(title string, items []models.NamedItem) {
	o.printf("%s (%d):\n", title, len(items))
	if len(items) == 0 {
		o.printf("  (none)\n")
	}
	for i, it := range items {
		if it.Description != "" {
			o.printf("  %d. %s: %s\n", i+1, it.Name, it.Description)
		} else {
			o.printf("  %d. %s\n", i+1, it.Name)
		}
	}
}

func (o *Orchestrator) addNamed(ctx context.Context, nl namedList) error {
	items := nl.list.Add()
	return o.editNamed(ctx, nl, len(items)-1)
}

func (o *Orchestrator) pickNamed(ctx context.Context, nl namedList, title string, fn func(context.Context, namedList, int) error) error {
	items := nl.list.Items()
	opts := make([]prompt.Option, len(items))
	for i, it := range items {
		opts[i] = prompt.Opt(strconv.Itoa(i), fmt.Sprintf("%d. %s", i+1, it.Name))
	}
	choice, err := o.prompt.Select(ctx, title, opts)
	if err != nil {
		return err
	}
	i, err := strconv.Atoi(choice)
	if err != nil {
		return fmt.Errorf("invalid %s %q", nl.kind, choice)
	}
	return fn(ctx, nl, i)
}

// editNamed puts one item into edit mode and collects its fields
func (o *Orchestrator) editNamed(ctx context.Context, nl namedList, i int) error {
	items := nl.list.Items()
	if i < 0 || i >= len(items) {
		o.report(apperr.IndexOutOfRange(i, len(items)))
		return nil
	}
	nl.cursor.Begin(i)
	defer nl.cursor.End()

	name, err := o.prompt.Input(ctx, fmt.Sprintf("%s name", nl.kind), items[i].Name, nil)
	if err != nil {
		return err
	}
	if _, err := nl.list.Update(i, editor.FieldName, name); err != nil {
		o.report(err)
		return nil
	}

	desc, err := o.prompt.Input(ctx, fmt.Sprintf("%s description", nl.kind), items[i].Description, nil)
	if err != nil {
		return err
	}
	if _, err := nl.list.Update(i, editor.FieldDescription, desc); err != nil {
		o.report(err)
	}
	return nil
}

func (o *Orchestrator) removeNamed(_ context.Context, nl namedList, i int) error {
	if _, err := nl.list.Remove(i); err != nil {
		o.report(err)
		return nil
	}
	nl.cursor.Removed(i)
	return nil
}

// exportCSV renders a list and writes it into the session directory
func (o *Orchestrator) exportCSV(filename string, render func() (string, error)) {
	content, err := render()
	if err != nil {
		o.report(err)
		return
	}
	path, err := export.WriteFile(o.exportDir(), filename, content)
	if err != nil {
		o.logger.Error("CSV export failed", "file", filename, "error", err)
		o.report(err)
		return
	}
	o.logger.Info("Exported CSV", "path", path)
	o.printf("✓ Exported %s\n", path)
}

func (o *Orchestrator) exportDir() string {
	if o.sessionMgr != nil {
		return o.sessionMgr.GetSessionDir()
	}
	return o.cfg.Wizard.OutputDir
}
