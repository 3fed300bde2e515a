// Package coach turns the ranked insight list into a short daily briefing
// written by Claude.
package coach

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/vitals/internal/model"
	"github.com/sells-group/vitals/pkg/anthropic"
)

// NothingNotable is returned without an API call when there are no insights.
const NothingNotable = "Nothing notable today. Keep up your routine and check back tomorrow."

const (
	defaultMaxTokens = 512
	maxBriefItems    = 7
)

const systemPrompt = `You are a supportive health coach writing a short daily briefing.
You receive a ranked list of findings about the user's health metrics, goals and habits.
Write at most four sentences. Lead with the most important finding. Be specific and
encouraging, never alarmist. Do not give medical diagnoses. Do not invent numbers that
are not in the findings.`

// Coach writes briefings through an Anthropic client.
type Coach struct {
	client    anthropic.Completer
	model     string
	maxTokens int64
}

// New creates a Coach. A non-positive maxTokens uses the default.
func New(client anthropic.Completer, model string, maxTokens int64) *Coach {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Coach{client: client, model: model, maxTokens: maxTokens}
}

// Brief summarizes insights for userName. Insights are expected in ranked
// order; only the first few are sent.
func (c *Coach) Brief(ctx context.Context, userName string, insights []model.SmartInsight) (string, error) {
	if len(insights) == 0 {
		return NothingNotable, nil
	}

	resp, err := c.client.Complete(ctx, anthropic.Prompt{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    systemPrompt,
		CacheTTL:  "1h",
		User:      Prompt(userName, insights),
	})
	if err != nil {
		return "", eris.Wrap(err, "coach: brief")
	}
	resp.Usage.LogCost(c.model, "brief")

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", eris.New("coach: empty response")
	}
	zap.L().Debug("coach: brief written",
		zap.Int("insights", len(insights)),
		zap.String("stop_reason", resp.StopReason),
	)
	return text, nil
}

// Prompt renders the user message: one bullet per insight, highest ranked
// first.
func Prompt(userName string, insights []model.SmartInsight) string {
	if userName == "" {
		userName = "the user"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Today's findings for %s:\n", userName)
	for i, in := range insights {
		if i == maxBriefItems {
			break
		}
		fmt.Fprintf(&b, "- [%s, priority %d] %s\n", in.Type, in.Priority, in.Message)
	}
	return b.String()
}
