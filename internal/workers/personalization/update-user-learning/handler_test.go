package updateuserlearning

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "storefront-workers/internal/common/errors"
	"storefront-workers/internal/common/logger"
	"storefront-workers/internal/models"
)

type fakeLearner struct {
	prefs        models.UserPreferences
	calls        int
	lastMessage  string
	lastAnalysis *models.QueryAnalysis
}

func (f *fakeLearner) UpdateUserLearning(_ context.Context, _ *models.UserContext, message string, analysis *models.QueryAnalysis) models.UserPreferences {
	f.calls++
	f.lastMessage = message
	f.lastAnalysis = analysis
	return f.prefs
}

type fakeProfiles struct {
	user *models.UserContext
	err  error
}

func (f *fakeProfiles) GetUserContext(_ context.Context, _ string) (*models.UserContext, error) {
	return f.user, f.err
}

func TestExecuteUpdatesPreferences(t *testing.T) {
	learner := &fakeLearner{prefs: models.UserPreferences{
		Interactions: 6,
		Categories:   map[string]int{"laptop": 3},
	}}
	profiles := &fakeProfiles{user: &models.UserContext{UserID: "u-42"}}
	h := NewHandler(LoadConfig(), learner, profiles, logger.NewTestLogger(t))

	output, err := h.Execute(context.Background(), &Input{
		UserID:  "u-42",
		Message: "hp laptop under 50,000",
		Analysis: models.QueryAnalysis{
			Filters:    models.QueryFilters{Category: "laptop"},
			UserIntent: models.IntentShopping,
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 6, output.Preferences.Interactions)
	assert.Equal(t, 3, output.Preferences.Categories["laptop"])
	assert.Equal(t, 1, learner.calls)
	assert.Equal(t, "hp laptop under 50,000", learner.lastMessage)
	require.NotNil(t, learner.lastAnalysis)
	assert.Equal(t, "laptop", learner.lastAnalysis.Filters.Category)
}

func TestExecuteMissingUserID(t *testing.T) {
	h := NewHandler(LoadConfig(), &fakeLearner{}, &fakeProfiles{}, logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{Message: "anything"})

	assert.ErrorIs(t, err, ErrMissingUserID)
}

func TestExecuteProfileLookupFailure(t *testing.T) {
	profiles := &fakeProfiles{err: errors.New("connection refused")}
	learner := &fakeLearner{}
	h := NewHandler(LoadConfig(), learner, profiles, logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{UserID: "u-42", Message: "anything"})

	assert.ErrorIs(t, err, ErrProfileLookup)
	assert.Zero(t, learner.calls)
}

func TestExecuteKeepsStoreErrorCode(t *testing.T) {
	storeErr := stderrors.NewQueryExecutionFailedError("users", errors.New("connection refused"))
	profiles := &fakeProfiles{err: storeErr}
	h := NewHandler(LoadConfig(), &fakeLearner{}, profiles, logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{UserID: "u-42", Message: "anything"})

	require.ErrorIs(t, err, ErrProfileLookup)
	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodeQueryExecutionFailed, stdErr.Code)
	assert.Positive(t, stderrors.GetRetryCount(stdErr.Code))
}
