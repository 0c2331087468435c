package wizard

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/lamim/nlpforge/internal/editor"
	"github.com/lamim/nlpforge/pkg/models"
)

// SessionData is the on-disk form of a wizard session. Step and Reached
// record where the user was; a file without them is treated as finished.
type SessionData struct {
	Step        int                   `toml:"step,omitempty"`
	Reached     int                   `toml:"reached,omitempty"`
	LLMProvider models.LLMProvider    `toml:"llm_provider"`
	Preset      string                `toml:"preset,omitempty"`
	Problem     string                `toml:"problem"`
	Domain      string                `toml:"domain"`
	Questions   []models.QAItem       `toml:"questions"`
	Entities    []models.NamedItem    `toml:"entities"`
	Intents     []models.NamedItem    `toml:"intents"`
	Training    models.TrainingConfig `toml:"training"`
}

// Data captures the session's fields
func (s *Session) Data() SessionData {
	return SessionData{
		Step:        int(s.step),
		Reached:     int(s.reached),
		LLMProvider: s.provider,
		Preset:      s.preset,
		Problem:     s.problem,
		Domain:      s.domain,
		Questions:   s.questions.Items(),
		Entities:    s.entities.Items(),
		Intents:     s.intents.Items(),
		Training:    s.trainingConfig,
	}
}

// FromData rebuilds a session from saved data. The step gates are checked
// again: the furthest step is capped at the first gate the data fails, so
// a hand-edited file cannot skip validation and a file saved mid-wizard
// comes back where it was left. Only an invalid training config is an error.
func FromData(d SessionData, policy HomePolicy, trainingDefaults models.TrainingConfig) (*Session, error) {
	s := NewSession(policy, d.LLMProvider, trainingDefaults)
	s.preset = d.Preset
	s.problem = d.Problem
	s.domain = d.Domain
	s.questions = editor.NewQuestions(d.Questions)
	s.entities = editor.NewNamedItems(d.Entities)
	s.intents = editor.NewNamedItems(d.Intents)

	training := d.Training
	if training == (models.TrainingConfig{}) {
		training = trainingDefaults
	}
	if err := s.SetTrainingConfig(training); err != nil {
		return nil, err
	}

	reached := Step(d.Reached)
	if reached < StepSetup || reached > StepTraining {
		reached = StepTraining
	}
	if limit := s.gatedReach(); reached > limit {
		reached = limit
	}
	step := Step(d.Step)
	if step < StepSetup || step > reached {
		step = reached
	}
	s.reached = reached
	s.step = step
	return s, nil
}

// gatedReach returns the furthest step the current data passes the gates for
func (s *Session) gatedReach() Step {
	if s.ValidateSetup() != nil {
		return StepSetup
	}
	if s.ValidateAnalysis() != nil {
		return StepAnalysis
	}
	return StepTraining
}

// SaveFile writes the session to path as TOML
func (s *Session) SaveFile(path string) error {
	data, err := toml.Marshal(s.Data())
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// LoadFile reads a session file written by SaveFile (or by hand)
func LoadFile(path string, policy HomePolicy, trainingDefaults models.TrainingConfig) (*Session, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	var d SessionData
	if err := toml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	s, err := FromData(d, policy, trainingDefaults)
	if err != nil {
		return nil, fmt.Errorf("invalid session file: %w", err)
	}
	return s, nil
}
