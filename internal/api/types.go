package api

import (
	"encoding/json"

	"github.com/lamim/nlpforge/pkg/models"
)

// Endpoint names, used for rate limiting, metrics and logs
const (
	EndpointAnalyze  = "analyze-problem"
	EndpointGenerate = "generate-entities-intents"
	EndpointStart    = "start-training"
	EndpointStatus   = "training-status"
	EndpointStop     = "training-stop"
	EndpointJobs     = "training-jobs"
	EndpointPresets  = "presets"
	EndpointHealth   = "health"
)

// AnalyzeRequest is the body of POST /api/analyze-problem
type AnalyzeRequest struct {
	Problem     string             `json:"problem"`
	LLMProvider models.LLMProvider `json:"llm_provider"`
}

// AnalyzeResponse is the raw analyze-problem response before validation
type AnalyzeResponse struct {
	Domain    string                  `json:"domain"`
	Questions *[]models.QuestionInput `json:"questions"`
}

// Analysis is a validated analyze-problem result with normalized questions
type Analysis struct {
	Domain    string
	Questions []models.QAItem
}

// GenerateRequest is the body of POST /api/generate-entities-intents
type GenerateRequest struct {
	Problem     string             `json:"problem"`
	Domain      string             `json:"domain"`
	Questions   []models.QAItem    `json:"questions"`
	LLMProvider models.LLMProvider `json:"llm_provider"`
}

// GenerateResponse holds the proposed entities and intents
type GenerateResponse struct {
	Entities []models.NamedItem `json:"entities"`
	Intents  []models.NamedItem `json:"intents"`
}

// StartTrainingRequest is the body of POST /api/start-training
type StartTrainingRequest struct {
	Entities []models.NamedItem    `json:"entities"`
	Intents  []models.NamedItem    `json:"intents"`
	Config   models.TrainingConfig `json:"config"`
}

// StartTrainingResponse carries the id of the accepted job
type StartTrainingResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status,omitempty"`
}

// StopResponse is the body of POST /api/training-stop/{jobId}.
// The service answers 200 even when it refuses; Status tells the two apart.
type StopResponse struct {
	JobID   string           `json:"job_id"`
	Status  models.JobStatus `json:"status"`
	Message string           `json:"message"`
}

// HealthResponse is the body of GET /api/health
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse represents the service's error body: {"detail": ...}.
// Detail is a string for handled errors and a list for request validation errors.
type ErrorResponse struct {
	Detail json.RawMessage `json:"detail"`
}

// Message returns the detail as display text
func (e ErrorResponse) Message() string {
	if len(e.Detail) == 0 || string(e.Detail) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Detail, &s); err == nil {
		return s
	}
	return string(e.Detail)
}
