package wizard

import (
	"fmt"
	"strings"

	"github.com/lamim/nlpforge/internal/apperr"
	"github.com/lamim/nlpforge/internal/editor"
	"github.com/lamim/nlpforge/pkg/models"
)

// Step is a position in the four-step workflow
type Step int

const (
	StepSetup Step = iota + 1
	StepAnalysis
	StepRefinement
	StepTraining
)

var stepNames = map[Step]string{
	StepSetup:      "Setup",
	StepAnalysis:   "Analysis",
	StepRefinement: "Refinement",
	StepTraining:   "Training",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Step(%d)", int(s))
}

// HomePolicy decides what the home action does with accumulated data
type HomePolicy string

const (
	// HomeRetain jumps to Setup and keeps every field (observed behavior)
	HomeRetain HomePolicy = "retain"
	// HomeClear jumps to Setup and discards the session like Reset
	HomeClear HomePolicy = "clear"
)

// Valid reports whether p is a known policy
func (p HomePolicy) Valid() bool {
	return p == HomeRetain || p == HomeClear
}

// Session holds every field collected by the wizard and the current step.
// Transitions are methods; gates are checked before the step moves.
type Session struct {
	step           Step
	reached        Step
	policy         HomePolicy
	provider       models.LLMProvider
	preset         string
	problem        string
	domain         string
	questions      *editor.List[models.QAItem]
	entities       *editor.List[models.NamedItem]
	intents        *editor.List[models.NamedItem]
	trainingConfig models.TrainingConfig
	defaults       models.TrainingConfig
}

// NewSession creates a session on the Setup step
func NewSession(policy HomePolicy, provider models.LLMProvider, trainingDefaults models.TrainingConfig) *Session {
	if !policy.Valid() {
		policy = HomeRetain
	}
	if !provider.Valid() {
		provider = models.DefaultProvider
	}
	s := &Session{
		policy:   policy,
		provider: provider,
		defaults: trainingDefaults,
	}
	s.clear()
	return s
}

func (s *Session) clear() {
	s.step = StepSetup
	s.reached = StepSetup
	s.preset = ""
	s.problem = ""
	s.domain = ""
	s.questions = editor.NewQuestions(nil)
	s.entities = editor.NewNamedItems(nil)
	s.intents = editor.NewNamedItems(nil)
	s.trainingConfig = s.defaults
}

// Step returns the current step
func (s *Session) Step() Step { return s.step }

// Provider returns the selected LLM provider
func (s *Session) Provider() models.LLMProvider { return s.provider }

// Preset returns the selected preset key, if any
func (s *Session) Preset() string { return s.preset }

// Problem returns the problem statement
func (s *Session) Problem() string { return s.problem }

// Domain returns the identified domain
func (s *Session) Domain() string { return s.domain }

// Questions returns the clarification editor
func (s *Session) Questions() *editor.List[models.QAItem] { return s.questions }

// Entities returns the entity editor
func (s *Session) Entities() *editor.List[models.NamedItem] { return s.entities }

// Intents returns the intent editor
func (s *Session) Intents() *editor.List[models.NamedItem] { return s.intents }

// TrainingConfig returns the training configuration
func (s *Session) TrainingConfig() models.TrainingConfig { return s.trainingConfig }

// SetProvider selects the LLM provider
func (s *Session) SetProvider(p models.LLMProvider) error {
	if !p.Valid() {
		return apperr.Validation("unknown LLM provider %q", p)
	}
	s.provider = p
	return nil
}

// SetProblem replaces the problem statement
func (s *Session) SetProblem(problem string) {
	s.problem = problem
}

// SelectPreset records the preset and fills in its canned problem statement
func (s *Session) SelectPreset(key string) {
	s.preset = key
	if text := models.PresetProblem(key); text != "" {
		s.problem = text
	}
}

// SetDomain replaces the domain; blank input is rejected and the old value kept
func (s *Session) SetDomain(domain string) error {
	trimmed := strings.TrimSpace(domain)
	if trimmed == "" {
		return apperr.Validation("Domain cannot be empty.")
	}
	s.domain = trimmed
	return nil
}

// SetTrainingConfig validates and stores the training configuration
func (s *Session) SetTrainingConfig(cfg models.TrainingConfig) error {
	if err := cfg.Validate(); err != nil {
		return apperr.Validation("%v", err)
	}
	s.trainingConfig = cfg
	return nil
}

// ValidateSetup is the Setup → Analysis gate
func (s *Session) ValidateSetup() error {
	if strings.TrimSpace(s.problem) == "" {
		return apperr.Validation("Please enter a problem statement first.")
	}
	return nil
}

// CompleteSetup applies the analysis result and moves to Analysis
func (s *Session) CompleteSetup(domain string, questions []models.QAItem) error {
	if s.step != StepSetup {
		return apperr.Validation("cannot complete setup from step %s", s.step)
	}
	if err := s.ValidateSetup(); err != nil {
		return err
	}
	s.domain = domain
	s.questions = editor.NewQuestions(questions)
	// Later steps were built from the old questions
	s.step = StepAnalysis
	s.reached = StepAnalysis
	return nil
}

// UnansweredQuestions returns the 1-based numbers of questions with blank answers
func (s *Session) UnansweredQuestions() []int {
	var missing []int
	for i, q := range s.questions.Items() {
		if !q.Answered() {
			missing = append(missing, i+1)
		}
	}
	return missing
}

// ValidateAnalysis is the Analysis → Refinement gate
func (s *Session) ValidateAnalysis() error {
	missing := s.UnansweredQuestions()
	if len(missing) > 0 {
		return apperr.Validation("Please answer all questions before proceeding.").
			WithDetails("unanswered", missing)
	}
	return nil
}

// CompleteAnalysis stores generated entities/intents and moves to Refinement
func (s *Session) CompleteAnalysis(entities, intents []models.NamedItem) error {
	if s.step != StepAnalysis {
		return apperr.Validation("cannot complete analysis from step %s", s.step)
	}
	if err := s.ValidateAnalysis(); err != nil {
		return err
	}
	s.entities = editor.NewNamedItems(entities)
	s.intents = editor.NewNamedItems(intents)
	s.step = StepRefinement
	s.reached = StepRefinement
	return nil
}

// CompleteRefinement moves to Training. Empty entity and intent lists are allowed.
func (s *Session) CompleteRefinement() error {
	if s.step != StepRefinement {
		return apperr.Validation("cannot complete refinement from step %s", s.step)
	}
	s.advanceTo(StepTraining)
	return nil
}

func (s *Session) advanceTo(step Step) {
	s.step = step
	if step > s.reached {
		s.reached = step
	}
}

// Reached returns the furthest step this session has been on
func (s *Session) Reached() Step { return s.reached }

// Forward resumes a step visited earlier without re-running the remote call
// that produced its data. The current step's gate still applies.
func (s *Session) Forward() error {
	if s.step >= s.reached {
		return apperr.Validation("step %s has not been reached yet", s.step+1)
	}
	switch s.step {
	case StepSetup:
		if err := s.ValidateSetup(); err != nil {
			return err
		}
	case StepAnalysis:
		if err := s.ValidateAnalysis(); err != nil {
			return err
		}
	}
	s.step++
	return nil
}

// Back moves one step backward without touching any data
func (s *Session) Back() Step {
	if s.step > StepSetup {
		s.step--
	}
	return s.step
}

// GoTo jumps directly to an earlier (or the current) step
func (s *Session) GoTo(step Step) error {
	if step < StepSetup || step > s.step {
		return apperr.Validation("cannot jump from %s to %s", s.step, step)
	}
	s.step = step
	return nil
}

// Home jumps to Setup, clearing data only under HomeClear
func (s *Session) Home() {
	if s.policy == HomeClear {
		s.clear()
		return
	}
	s.step = StepSetup
}

// Reset discards all session data and returns to Setup
func (s *Session) Reset() {
	s.clear()
}
