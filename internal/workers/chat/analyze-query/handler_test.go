package analyzequery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-workers/internal/common/logger"
	"storefront-workers/internal/models"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	return NewHandler(LoadConfig(), logger.NewTestLogger(t))
}

func TestExecuteShoppingQuery(t *testing.T) {
	h := newTestHandler(t)

	output, err := h.Execute(&Input{Message: "I want an HP laptop under 50,000"})

	require.NoError(t, err)
	assert.Equal(t, models.IntentShopping, output.Analysis.UserIntent)
	assert.Equal(t, "laptop", output.Analysis.Filters.Category)
	assert.Equal(t, "hp", output.Analysis.Filters.Brand)
	require.NotNil(t, output.Analysis.Filters.MaxPrice)
	assert.Equal(t, 50000.0, *output.Analysis.Filters.MaxPrice)
	assert.True(t, output.ShoppingSignal)
}

func TestExecuteGreeting(t *testing.T) {
	h := newTestHandler(t)

	output, err := h.Execute(&Input{Message: "jambo!"})

	require.NoError(t, err)
	assert.Equal(t, models.IntentGreeting, output.Analysis.UserIntent)
	assert.Equal(t, 0.9, output.Analysis.Confidence)
}

func TestExecuteEmptyMessage(t *testing.T) {
	h := newTestHandler(t)

	tests := []string{"", "   ", "\n\t"}
	for _, msg := range tests {
		_, err := h.Execute(&Input{Message: msg})
		assert.ErrorIs(t, err, ErrEmptyMessage, "message %q", msg)
	}
}

func TestExecuteSignalImplication(t *testing.T) {
	h := newTestHandler(t)

	messages := []string{
		"show me fridges",
		"nike sneakers under 5,000",
		"a tablet between 10,000 and 25,000",
	}
	for _, msg := range messages {
		output, err := h.Execute(&Input{Message: msg})
		require.NoError(t, err)
		if output.Analysis.IsProductQuery {
			assert.True(t, output.ShoppingSignal, "message %q", msg)
		}
	}
}
