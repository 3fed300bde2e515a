package coach

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/vitals/internal/model"
	"github.com/sells-group/vitals/pkg/anthropic"
)

// mockClient implements anthropic.Completer for testing.
type mockClient struct {
	mock.Mock
}

func (m *mockClient) Complete(ctx context.Context, p anthropic.Prompt) (*anthropic.Reply, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.Reply), args.Error(1)
}

func insights(n int) []model.SmartInsight {
	out := make([]model.SmartInsight, n)
	for i := range out {
		out[i] = model.SmartInsight{
			ID: fmt.Sprintf("i%d", i), Type: model.InsightWarning, Priority: 90 - i,
			Message: fmt.Sprintf("finding %d", i),
		}
	}
	return out
}

func TestBrief_EmptySkipsAPI(t *testing.T) {
	mc := new(mockClient)
	got, err := New(mc, "claude-haiku-4-5-20251001", 0).Brief(context.Background(), "Ana", nil)
	require.NoError(t, err)
	assert.Equal(t, NothingNotable, got)
	mc.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestBrief(t *testing.T) {
	mc := new(mockClient)
	mc.On("Complete", mock.Anything, mock.MatchedBy(func(p anthropic.Prompt) bool {
		return p.Model == "claude-haiku-4-5-20251001" &&
			p.MaxTokens == defaultMaxTokens &&
			p.System == systemPrompt && p.CacheTTL == "1h" &&
			strings.Contains(p.User, "Today's findings for Ana")
	})).Return(&anthropic.Reply{
		Text:       "  Great sleep streak.  ",
		StopReason: "end_turn",
		Usage:      anthropic.TokenUsage{InputTokens: 200, OutputTokens: 30},
	}, nil)

	got, err := New(mc, "claude-haiku-4-5-20251001", 0).Brief(context.Background(), "Ana", insights(2))
	require.NoError(t, err)
	assert.Equal(t, "Great sleep streak.", got)
	mc.AssertExpectations(t)
}

func TestBrief_APIError(t *testing.T) {
	mc := new(mockClient)
	mc.On("Complete", mock.Anything, mock.Anything).Return(nil, errors.New("overloaded"))

	_, err := New(mc, "m", 100).Brief(context.Background(), "Ana", insights(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "coach: brief")
}

func TestBrief_EmptyResponse(t *testing.T) {
	mc := new(mockClient)
	mc.On("Complete", mock.Anything, mock.Anything).Return(&anthropic.Reply{}, nil)

	_, err := New(mc, "m", 100).Brief(context.Background(), "Ana", insights(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")
}

func TestPrompt_CapsItems(t *testing.T) {
	p := Prompt("", insights(10))
	assert.True(t, strings.HasPrefix(p, "Today's findings for the user:\n"))
	assert.Equal(t, maxBriefItems, strings.Count(p, "\n- "))
	assert.Contains(t, p, "- [warning, priority 90] finding 0")
	assert.NotContains(t, p, "finding 7")
}
