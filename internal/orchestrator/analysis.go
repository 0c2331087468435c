package orchestrator

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/lamim/nlpforge/internal/api"
	"github.com/lamim/nlpforge/internal/apperr"
	"github.com/lamim/nlpforge/internal/editor"
	"github.com/lamim/nlpforge/internal/prompt"
)

const (
	actAnswerAll      = "analysis:answer-all"
	actAnswer         = "analysis:answer"
	actEditQuestion   = "analysis:edit-question"
	actAddQuestion    = "analysis:add-question"
	actRemoveQuestion = "analysis:remove-question"
	actDomain         = "analysis:domain"
	actGenerate       = "analysis:generate"
)

func (o *Orchestrator) analysisStep(ctx context.Context) error {
	o.printf("\n── Step 2: Analysis ──\n")
	o.printf("Domain: %s\n", o.session.Domain())
	questions := o.session.Questions().Items()
	for i, q := range questions {
		mark := " "
		if q.Answered() {
			mark = "✓"
		}
		o.printf(" %s Q%d. %s\n", mark, i+1, q.Question)
		if q.Answered() {
			o.printf("      %s\n", q.Answer)
		}
	}

	var options []prompt.Option
	if len(o.session.UnansweredQuestions()) > 0 {
		options = append(options, prompt.Opt(actAnswerAll, "Answer unanswered questions"))
	}
	if len(questions) > 0 {
		options = append(options,
			prompt.Opt(actAnswer, "Answer a question"),
			prompt.Opt(actEditQuestion, "Edit a question"),
			prompt.Opt(actRemoveQuestion, "Remove a question"))
	}
	options = append(options,
		prompt.Opt(actAddQuestion, "Add a question"),
		prompt.Opt(actDomain, "Edit domain"),
		prompt.Opt(actGenerate, "Generate entities & intents"))
	options = append(options, o.navOptions()...)

	choice, err := o.prompt.Select(ctx, "What next?", options)
	if err != nil {
		return err
	}

	switch choice {
	case actAnswerAll:
		return o.answerUnanswered(ctx)
	case actAnswer:
		return o.withQuestion(ctx, "Answer which question?", func(i int) error {
			return o.editQuestionField(ctx, i, editor.FieldAnswer)
		})
	case actEditQuestion:
		return o.withQuestion(ctx, "Edit which question?", func(i int) error {
			return o.editQuestionField(ctx, i, editor.FieldQuestion)
		})
	case actRemoveQuestion:
		return o.withQuestion(ctx, "Remove which question?", func(i int) error {
			if _, err := o.session.Questions().Remove(i); err != nil {
				o.report(err)
			}
			o.questionCur.Removed(i)
			return nil
		})
	case actAddQuestion:
		items := o.session.Questions().Add()
		return o.editQuestionField(ctx, len(items)-1, editor.FieldQuestion)
	case actDomain:
		domain, err := o.prompt.Input(ctx, "Domain", o.session.Domain(), nil)
		if err != nil {
			return err
		}
		if err := o.session.SetDomain(domain); err != nil {
			o.report(err)
		}
	case actGenerate:
		o.generate(ctx)
	default:
		return o.navigate(ctx, choice)
	}
	return nil
}

// withQuestion asks which question to act on, then runs fn with its index
func (o *Orchestrator) withQuestion(ctx context.Context, title string, fn func(int) error) error {
	items := o.session.Questions().Items()
	opts := make([]prompt.Option, len(items))
	for i, q := range items {
		opts[i] = prompt.Opt(strconv.Itoa(i), fmt.Sprintf("Q%d. %s", i+1, q.Question))
	}
	choice, err := o.prompt.Select(ctx, title, opts)
	if err != nil {
		return err
	}
	i, err := strconv.Atoi(choice)
	if err != nil {
		return fmt.Errorf("invalid question %q", choice)
	}
	return fn(i)
}

func (o *Orchestrator) editQuestionField(ctx context.Context, i int, field string) error {
	items := o.session.Questions().Items()
	if i < 0 || i >= len(items) {
		o.report(apperr.IndexOutOfRange(i, len(items)))
		return nil
	}
	o.questionCur.Begin(i)
	defer o.questionCur.End()

	var title, initial string
	if field == editor.FieldAnswer {
		title = fmt.Sprintf("Q%d. %s", i+1, items[i].Question)
		initial = items[i].Answer
	} else {
		title = fmt.Sprintf("Question %d", i+1)
		initial = items[i].Question
	}

	value, err := o.prompt.Text(ctx, title, initial)
	if err != nil {
		return err
	}
	if _, err := o.session.Questions().Update(i, field, value); err != nil {
		o.report(err)
	}
	return nil
}

func (o *Orchestrator) answerUnanswered(ctx context.Context) error {
	for _, n := range o.session.UnansweredQuestions() {
		if err := o.editQuestionField(ctx, n-1, editor.FieldAnswer); err != nil {
			return err
		}
	}
	return nil
}

// generate checks the analysis gate locally before calling the service
func (o *Orchestrator) generate(ctx context.Context) {
	if err := o.session.ValidateAnalysis(); err != nil {
		o.report(err)
		if missing := o.session.UnansweredQuestions(); len(missing) > 0 {
			labels := make([]string, len(missing))
			for i, n := range missing {
				labels[i] = "Q" + strconv.Itoa(n)
			}
			o.printf("  Unanswered: %s\n", strings.Join(labels, ", "))
		}
		return
	}

	req := api.GenerateRequest{
		Problem:     o.session.Problem(),
		Domain:      o.session.Domain(),
		Questions:   o.session.Questions().Items(),
		LLMProvider: o.session.Provider(),
	}
	o.printf("Generating entities and intents with %s...\n", req.LLMProvider.Label())
	resp, err := o.svc.GenerateEntitiesIntents(ctx, req)
	if err != nil {
		o.logger.Error("Entity/intent generation failed", "error", err)
		o.report(remote(err, "Failed to generate entities and intents. Please try again."))
		return
	}

	if err := o.session.CompleteAnalysis(resp.Entities, resp.Intents); err != nil {
		o.report(err)
		return
	}
	o.logger.Info("Entities and intents generated", "entities", len(resp.Entities), "intents", len(resp.Intents))
}
