package wizard

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lamim/nlpforge/internal/apperr"
	"github.com/lamim/nlpforge/internal/editor"
	"github.com/lamim/nlpforge/pkg/models"
)

func newSession(policy HomePolicy) *Session {
	return NewSession(policy, models.ProviderClaude, models.DefaultTrainingConfig())
}

// toRefinement walks a fresh session to the Refinement step
func toRefinement(t *testing.T, s *Session) {
	t.Helper()
	s.SetProblem("Route support tickets")
	require.NoError(t, s.CompleteSetup("Customer Support", []models.QAItem{{Question: "Channels?", Answer: "email"}}))
	require.NoError(t, s.CompleteAnalysis(
		[]models.NamedItem{{Name: "ORDER_ID", Description: "order number"}},
		[]models.NamedItem{{Name: "track_order", Description: "where is my order"}},
	))
}

func TestNewSession_Defaults(t *testing.T) {
	s := NewSession("bogus", "bogus", models.DefaultTrainingConfig())
	assert.Equal(t, StepSetup, s.Step())
	assert.Equal(t, models.ProviderClaude, s.Provider())
	assert.Equal(t, models.DefaultTrainingConfig(), s.TrainingConfig())
}

func TestSetupGate_BlankProblemRejected(t *testing.T) {
	for _, problem := range []string{"", " ", "\t\n", "   \r\n  "} {
		s := newSession(HomeRetain)
		s.SetProblem(problem)

		err := s.CompleteSetup("d", nil)
		assert.ErrorIs(t, err, apperr.ErrValidation, "problem %q", problem)
		assert.Equal(t, StepSetup, s.Step())
	}
}

func TestSetupGate_NonBlankAdvances(t *testing.T) {
	s := newSession(HomeRetain)
	s.SetProblem("  classify emails ")

	require.NoError(t, s.CompleteSetup("Email", []models.QAItem{{Question: "q"}}))
	assert.Equal(t, StepAnalysis, s.Step())
	assert.Equal(t, "Email", s.Domain())
	assert.Equal(t, 1, s.Questions().Len())
}

func TestAnalysisGate_SingleBlankAnswerBlocks(t *testing.T) {
	s := newSession(HomeRetain)
	s.SetProblem("p")
	require.NoError(t, s.CompleteSetup("d", []models.QAItem{
		{Question: "q1", Answer: "a"},
		{Question: "q2", Answer: "   "},
		{Question: "q3", Answer: "c"},
	}))

	err := s.CompleteAnalysis(nil, nil)
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, StepAnalysis, s.Step())
	assert.Equal(t, []int{2}, s.UnansweredQuestions())

	_, err = s.Questions().Update(1, editor.FieldAnswer, "b")
	require.NoError(t, err)
	require.NoError(t, s.CompleteAnalysis(nil, nil))
	assert.Equal(t, StepRefinement, s.Step())
}

func TestAnalysisGate_NoQuestionsPasses(t *testing.T) {
	s := newSession(HomeRetain)
	s.SetProblem("p")
	require.NoError(t, s.CompleteSetup("d", nil))
	assert.NoError(t, s.CompleteAnalysis(nil, nil))
}

func TestRefinementGate_EmptyListsAllowed(t *testing.T) {
	s := newSession(HomeRetain)
	s.SetProblem("p")
	require.NoError(t, s.CompleteSetup("d", nil))
	require.NoError(t, s.CompleteAnalysis(nil, nil))

	require.NoError(t, s.CompleteRefinement())
	assert.Equal(t, StepTraining, s.Step())
}

func TestBack_KeepsForwardData(t *testing.T) {
	s := newSession(HomeRetain)
	toRefinement(t, s)

	assert.Equal(t, StepAnalysis, s.Back())
	assert.Equal(t, StepSetup, s.Back())
	assert.Equal(t, StepSetup, s.Back())

	assert.Equal(t, 1, s.Entities().Len())
	assert.Equal(t, "email", s.Questions().Items()[0].Answer)

	require.NoError(t, s.Forward())
	require.NoError(t, s.Forward())
	assert.Equal(t, StepRefinement, s.Step())
	assert.Error(t, s.Forward())
}

func TestForward_StillGated(t *testing.T) {
	s := newSession(HomeRetain)
	toRefinement(t, s)
	s.Back()

	_, err := s.Questions().Update(0, editor.FieldAnswer, "")
	require.NoError(t, err)
	assert.ErrorIs(t, s.Forward(), apperr.ErrValidation)
	assert.Equal(t, StepAnalysis, s.Step())
}

func TestGoTo_OnlyBackward(t *testing.T) {
	s := newSession(HomeRetain)
	toRefinement(t, s)

	require.NoError(t, s.GoTo(StepSetup))
	assert.Equal(t, StepSetup, s.Step())
	assert.Error(t, s.GoTo(StepAnalysis))
	assert.Error(t, s.GoTo(0))
}

func TestHome_RetainKeepsData(t *testing.T) {
	s := newSession(HomeRetain)
	toRefinement(t, s)

	s.Home()
	assert.Equal(t, StepSetup, s.Step())
	assert.Equal(t, "Route support tickets", s.Problem())
	assert.Equal(t, 1, s.Intents().Len())
}

func TestHome_ClearDiscardsData(t *testing.T) {
	s := newSession(HomeClear)
	toRefinement(t, s)

	s.Home()
	assert.Equal(t, StepSetup, s.Step())
	assert.Empty(t, s.Problem())
	assert.Equal(t, 0, s.Intents().Len())
	assert.Equal(t, StepSetup, s.Reached())
}

func TestReset(t *testing.T) {
	s := newSession(HomeRetain)
	toRefinement(t, s)

	s.Reset()
	assert.Equal(t, StepSetup, s.Step())
	assert.Empty(t, s.Domain())
	assert.Equal(t, 0, s.Questions().Len())
}

func TestSelectPreset_FillsProblem(t *testing.T) {
	s := newSession(HomeRetain)
	s.SelectPreset("manufacturing")
	assert.Contains(t, s.Problem(), "rebate recovery")

	s.SetProblem("custom")
	s.SelectPreset("unknown-key")
	assert.Equal(t, "custom", s.Problem())
	assert.Equal(t, "unknown-key", s.Preset())
}

func TestSetDomain_BlankKeepsOld(t *testing.T) {
	s := newSession(HomeRetain)
	require.NoError(t, s.SetDomain(" Retail "))
	assert.ErrorIs(t, s.SetDomain("  "), apperr.ErrValidation)
	assert.Equal(t, "Retail", s.Domain())
}

func TestSetTrainingConfig_Invalid(t *testing.T) {
	s := newSession(HomeRetain)
	cfg := models.DefaultTrainingConfig()
	cfg.TrainTestSplit = 1.5
	assert.ErrorIs(t, s.SetTrainingConfig(cfg), apperr.ErrValidation)
	assert.Equal(t, models.DefaultTrainingConfig(), s.TrainingConfig())
}

func TestSessionFile_RoundTrip(t *testing.T) {
	s := newSession(HomeRetain)
	toRefinement(t, s)
	require.NoError(t, s.CompleteRefinement())

	path := filepath.Join(t.TempDir(), "session.toml")
	require.NoError(t, s.SaveFile(path))

	loaded, err := LoadFile(path, HomeRetain, models.DefaultTrainingConfig())
	require.NoError(t, err)
	assert.Equal(t, StepTraining, loaded.Step())
	assert.Equal(t, s.Data(), loaded.Data())
}

func TestFromData_CapsAtFailingGate(t *testing.T) {
	// A file without step fields is treated as finished, then capped
	s, err := FromData(SessionData{Problem: "p", Questions: []models.QAItem{{Question: "q"}}}, HomeRetain, models.DefaultTrainingConfig())
	require.NoError(t, err)
	assert.Equal(t, StepAnalysis, s.Step())
	assert.Equal(t, StepAnalysis, s.Reached())

	s, err = FromData(SessionData{}, HomeRetain, models.DefaultTrainingConfig())
	require.NoError(t, err)
	assert.Equal(t, StepSetup, s.Step())

	// A hand-edited step beyond the data is capped too
	s, err = FromData(SessionData{Step: 4, Reached: 4, Problem: "p"}, HomeRetain, models.DefaultTrainingConfig())
	require.NoError(t, err)
	assert.Equal(t, StepTraining, s.Reached())

	s, err = FromData(SessionData{Step: 4, Reached: 4}, HomeRetain, models.DefaultTrainingConfig())
	require.NoError(t, err)
	assert.Equal(t, StepSetup, s.Reached())
}

func TestFromData_InvalidTrainingConfig(t *testing.T) {
	cfg := models.DefaultTrainingConfig()
	cfg.Epochs = -1
	_, err := FromData(SessionData{Training: cfg}, HomeRetain, models.DefaultTrainingConfig())
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSessionFile_RoundTripMidWizard(t *testing.T) {
	dir := t.TempDir()

	// Step 1 with a blank problem
	s := newSession(HomeRetain)
	path := filepath.Join(dir, "setup.toml")
	require.NoError(t, s.SaveFile(path))
	loaded, err := LoadFile(path, HomeRetain, models.DefaultTrainingConfig())
	require.NoError(t, err)
	assert.Equal(t, StepSetup, loaded.Step())
	assert.Equal(t, StepSetup, loaded.Reached())

	// Step 2 with an unanswered question
	s = newSession(HomeRetain)
	s.SetProblem("Route support tickets")
	require.NoError(t, s.CompleteSetup("Customer Support", []models.QAItem{{Question: "Channels?"}}))
	path = filepath.Join(dir, "analysis.toml")
	require.NoError(t, s.SaveFile(path))
	loaded, err = LoadFile(path, HomeRetain, models.DefaultTrainingConfig())
	require.NoError(t, err)
	assert.Equal(t, StepAnalysis, loaded.Step())
	assert.Equal(t, StepAnalysis, loaded.Reached())
	assert.Equal(t, s.Data(), loaded.Data())

	// Step 3 stays on Refinement
	s = newSession(HomeRetain)
	toRefinement(t, s)
	path = filepath.Join(dir, "refinement.toml")
	require.NoError(t, s.SaveFile(path))
	loaded, err = LoadFile(path, HomeRetain, models.DefaultTrainingConfig())
	require.NoError(t, err)
	assert.Equal(t, StepRefinement, loaded.Step())

	// Gone back to Setup after finishing: the step is kept, reach too
	s = newSession(HomeRetain)
	toRefinement(t, s)
	require.NoError(t, s.CompleteRefinement())
	s.Home()
	path = filepath.Join(dir, "home.toml")
	require.NoError(t, s.SaveFile(path))
	loaded, err = LoadFile(path, HomeRetain, models.DefaultTrainingConfig())
	require.NoError(t, err)
	assert.Equal(t, StepSetup, loaded.Step())
	assert.Equal(t, StepTraining, loaded.Reached())
	assert.Equal(t, s.Data(), loaded.Data())
}

func TestCompleteSetup_ReanalysisLowersReach(t *testing.T) {
	s := newSession(HomeRetain)
	toRefinement(t, s)
	require.NoError(t, s.CompleteRefinement())
	s.Home()

	s.SetProblem("Classify invoices")
	require.NoError(t, s.CompleteSetup("Finance", []models.QAItem{{Question: "Vendors?", Answer: "many"}}))
	assert.Equal(t, StepAnalysis, s.Step())
	assert.Equal(t, StepAnalysis, s.Reached())

	// The old entities cannot be reached without generating again
	assert.ErrorIs(t, s.Forward(), apperr.ErrValidation)
}
