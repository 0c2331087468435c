package models

import (
	"fmt"
	"strings"
)

// LLMProvider identifies which LLM backs the remote analysis/generation calls
type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderClaude LLMProvider = "claude"
	ProviderQwen   LLMProvider = "qwen"
)

// DefaultProvider is the provider selected when a session starts
const DefaultProvider = ProviderClaude

// Providers lists every supported provider in display order
var Providers = []LLMProvider{ProviderOpenAI, ProviderClaude, ProviderQwen}

// Valid reports whether p is a supported provider
func (p LLMProvider) Valid() bool {
	for _, known := range Providers {
		if p == known {
			return true
		}
	}
	return false
}

// Label returns the human-readable provider and model name
func (p LLMProvider) Label() string {
	switch p {
	case ProviderOpenAI:
		return "OpenAI (GPT-4)"
	case ProviderClaude:
		return "Claude (Sonnet 4)"
	case ProviderQwen:
		return "Qwen (Qwen 2.5)"
	default:
		return string(p)
	}
}

// QAItem is a clarification question and the user's answer
type QAItem struct {
	Question string `json:"question" toml:"question"`
	Answer   string `json:"answer" toml:"answer"`
}

// Answered reports whether the trimmed answer is non-empty
func (q QAItem) Answered() bool {
	return strings.TrimSpace(q.Answer) != ""
}

// NamedItem is an entity or intent definition
type NamedItem struct {
	Name        string `json:"name" toml:"name"`
	Description string `json:"description" toml:"description"`
}

// Preset is a canned problem template offered by the service
type Preset struct {
	Name     string   `json:"name"`
	Icon     string   `json:"icon"`
	Subtitle string   `json:"subtitle"`
	Tags     []string `json:"tags"`
}

// presetProblems holds the problem statement filled in when a known preset is picked
var presetProblems = map[string]string{
	"manufacturing": "I need an NLP model to process procurement documents and identify rebate recovery opportunities.",
	"ma":            "I need an NLP model for M&A due diligence that can analyze customer, vendor, and employment contracts.",
	"pharma":        "I need an NLP model for pharmaceutical operations that can process clinical trial data and adverse event reports.",
}

// PresetProblem returns the problem statement for a preset key, or "" for unknown keys
func PresetProblem(key string) string {
	return presetProblems[key]
}

// ModelBase is a supported base checkpoint for training
type ModelBase string

const (
	ModelDistilBERTUncased ModelBase = "distilbert-base-uncased"
	ModelDistilBERTCased   ModelBase = "distilbert-base-cased"
	ModelDistilBERTMulti   ModelBase = "distilbert-base-multilingual-cased"
)

// ModelBases lists the supported base checkpoints
var ModelBases = []ModelBase{ModelDistilBERTUncased, ModelDistilBERTCased, ModelDistilBERTMulti}

// TrainingConfig is the configuration sent with a start-training request
type TrainingConfig struct {
	ModelBase         ModelBase `json:"model_base" toml:"model_base"`
	Epochs            int       `json:"epochs" toml:"epochs"`
	BatchSize         int       `json:"batch_size" toml:"batch_size"`
	LearningRate      float64   `json:"learning_rate" toml:"learning_rate"`
	TrainTestSplit    float64   `json:"train_test_split" toml:"train_test_split"`
	MaxSequenceLength int       `json:"max_sequence_length" toml:"max_sequence_length"`
}

// DefaultTrainingConfig returns the configuration the training step starts with
func DefaultTrainingConfig() TrainingConfig {
	return TrainingConfig{
		ModelBase:         ModelDistilBERTUncased,
		Epochs:            10,
		BatchSize:         16,
		LearningRate:      2e-5,
		TrainTestSplit:    0.8,
		MaxSequenceLength: 128,
	}
}

// Validate checks every option against its allowed range
func (c TrainingConfig) Validate() error {
	validBase := false
	for _, b := range ModelBases {
		if c.ModelBase == b {
			validBase = true
			break
		}
	}
	if !validBase {
		return fmt.Errorf("model_base must be one of %v (got %q)", ModelBases, c.ModelBase)
	}
	if c.Epochs < 1 {
		return fmt.Errorf("epochs must be a positive integer (got %d)", c.Epochs)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch_size must be a positive integer (got %d)", c.BatchSize)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning_rate must be positive (got %g)", c.LearningRate)
	}
	if c.TrainTestSplit <= 0 || c.TrainTestSplit >= 1 {
		return fmt.Errorf("train_test_split must be between 0 and 1 exclusive (got %g)", c.TrainTestSplit)
	}
	if c.MaxSequenceLength < 1 {
		return fmt.Errorf("max_sequence_length must be a positive integer (got %d)", c.MaxSequenceLength)
	}
	return nil
}
