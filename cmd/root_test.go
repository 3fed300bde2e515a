package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/vitals/internal/config"
	"github.com/sells-group/vitals/internal/insight"
	"github.com/sells-group/vitals/internal/model"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"insights", "habits", "prefs", "import", "export", "brief", "serve"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "vitals", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestInsightsCommand_Flags(t *testing.T) {
	for _, name := range []string{"user", "snapshot", "prefs", "now", "max", "min-priority", "sources", "json"} {
		assert.NotNil(t, insightsCmd.Flags().Lookup(name), "insights should have --%s flag", name)
	}
	assert.Equal(t, "-1", insightsCmd.Flags().Lookup("min-priority").DefValue)
}

func TestHabitsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range habitsCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["scores"])
	assert.True(t, names["recommend"])
	assert.NotNil(t, habitScoresCmd.Flags().Lookup("snapshot"))
	assert.NotNil(t, habitRecommendCmd.Flags().Lookup("user"))
}

func TestPrefsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range prefsCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"show", "mute", "unmute", "override", "enable", "disable"} {
		assert.True(t, names[name], "prefs should have subcommand %q", name)
	}
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestPipelineOptions(t *testing.T) {
	orig := cfg
	t.Cleanup(func() { cfg = orig })

	cfg = nil
	assert.Equal(t, insight.DefaultOptions(), pipelineOptions(0, -1, nil))

	cfg = &config.Config{Insights: config.InsightsConfig{
		MaxInsights:    5,
		MinPriority:    40,
		EnabledSources: []string{"trend"},
	}}
	opts := pipelineOptions(0, -1, nil)
	assert.Equal(t, 5, opts.MaxInsights)
	require.NotNil(t, opts.MinPriority)
	assert.Equal(t, 40, *opts.MinPriority)
	assert.Equal(t, []string{"trend"}, opts.EnabledSources)

	opts = pipelineOptions(3, 0, []string{"quality", "goal"})
	assert.Equal(t, 3, opts.MaxInsights)
	require.NotNil(t, opts.MinPriority)
	assert.Equal(t, 0, *opts.MinPriority)
	assert.Equal(t, []string{"quality", "goal"}, opts.EnabledSources)
}

func TestSourceFlags_Clock(t *testing.T) {
	f := sourceFlags{}
	now, err := f.clock()
	require.NoError(t, err)
	assert.True(t, now.IsZero())

	f.now = "2024-07-01T12:00:00Z"
	now, err = f.clock()
	require.NoError(t, err)
	assert.True(t, now.Equal(time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)))

	f.now = "yesterday"
	_, err = f.clock()
	assert.Error(t, err)
}

func TestSourceFlags_LoadRequiresUserOrSnapshot(t *testing.T) {
	_, err := (&sourceFlags{}).load(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--user or --snapshot")
}

func TestParseInsightType(t *testing.T) {
	typ, err := parseInsightType("habit_risk")
	require.NoError(t, err)
	assert.Equal(t, model.InsightHabitRisk, typ)

	_, err = parseInsightType("gossip")
	assert.Error(t, err)
}

func TestPrintInsights(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printInsights(&buf, nil))
	assert.Equal(t, "No insights.\n", buf.String())

	buf.Reset()
	require.NoError(t, printInsights(&buf, []model.SmartInsight{
		{ID: "quality-fair", Type: model.InsightWarning, Source: "quality", Emoji: "⚠️", Message: "Data quality is fair", Priority: 80},
	}))
	out := buf.String()
	assert.Contains(t, out, "PRIORITY")
	assert.Contains(t, out, "quality-fair")
	assert.Contains(t, out, "Data quality is fair")
}
