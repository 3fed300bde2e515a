package insight

import (
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/vitals/internal/model"
)

var printer = message.NewPrinter(language.English)

// sprintf formats with locale-aware digit grouping ("15,234").
func sprintf(format string, args ...any) string {
	return printer.Sprintf(format, args...)
}

// slug lowercases s and replaces runs of non-alphanumerics with "-".
func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// makeID joins slugged parts into an insight id.
func makeID(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := slug(p); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "-")
}

func clampPriority(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func roundPriority(v float64) int {
	return clampPriority(int(math.Round(v)))
}

// newInsight builds an insight stamped with the context's generation time.
func newInsight(gctx *model.GeneratorContext, source string, typ model.InsightType, insightID, emoji, msg string, priority int, action model.InsightAction) model.SmartInsight {
	return model.SmartInsight{
		ID:        insightID,
		Type:      typ,
		Emoji:     emoji,
		Message:   msg,
		Priority:  clampPriority(priority),
		Action:    action,
		Timestamp: gctx.Clock(),
		Source:    source,
	}
}

func navigate(path string) model.InsightAction {
	return model.InsightAction{Type: model.ActionNavigate, Path: path}
}

func modal(data map[string]any) model.InsightAction {
	return model.InsightAction{Type: model.ActionModal, Data: data}
}

// metricLabel returns the lowercase display name used inside sentences.
func metricLabel(name string) string {
	switch name {
	case model.MetricHRV:
		return "HRV"
	case model.MetricRecoveryScore:
		return "recovery"
	case model.MetricSleepDuration:
		return "sleep"
	default:
		return strings.ToLower(name)
	}
}

func habitTitle(h model.Habit) string {
	if h.Title != "" {
		return h.Title
	}
	return h.ID
}
