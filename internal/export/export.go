// Package export writes insight and habit score reports as CSV or XLSX and
// reads metric observations back from the same tabular formats.
package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/vitals/internal/model"
)

// InsightHeader is the column order of insight reports.
var InsightHeader = []string{"id", "type", "source", "priority", "emoji", "message", "action_type", "action_path", "timestamp"}

// ScoreHeader is the column order of habit score reports.
var ScoreHeader = []string{"habit_id", "overall_score", "grade", "consistency", "streak_stability", "trend", "completion_rate", "recommendation"}

// MetricHeader is the column order of metric files.
var MetricHeader = []string{"id", "metric_name", "value", "unit", "measurement_date", "source", "confidence"}

func insightRow(in model.SmartInsight) []string {
	return []string{
		in.ID,
		string(in.Type),
		in.Source,
		strconv.Itoa(in.Priority),
		in.Emoji,
		in.Message,
		string(in.Action.Type),
		in.Action.Path,
		in.Timestamp.UTC().Format(time.RFC3339),
	}
}

func scoreRow(s model.HabitQualityScore) []string {
	return []string{
		s.HabitID,
		formatFloat(s.OverallScore),
		string(s.Grade),
		formatFloat(s.Factors.Consistency),
		formatFloat(s.Factors.StreakStability),
		formatFloat(s.Factors.Trend),
		formatFloat(s.Factors.CompletionRate),
		s.Recommendation,
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 1, 64)
}

// WriteInsightsCSV writes a header row and one row per insight.
func WriteInsightsCSV(w io.Writer, insights []model.SmartInsight) error {
	rows := make([][]string, 0, len(insights)+1)
	rows = append(rows, InsightHeader)
	for _, in := range insights {
		rows = append(rows, insightRow(in))
	}
	return writeCSV(w, rows, "insights")
}

// WriteScoresCSV writes a header row and one row per habit score.
func WriteScoresCSV(w io.Writer, scores []model.HabitQualityScore) error {
	rows := make([][]string, 0, len(scores)+1)
	rows = append(rows, ScoreHeader)
	for _, s := range scores {
		rows = append(rows, scoreRow(s))
	}
	return writeCSV(w, rows, "scores")
}

func writeCSV(w io.Writer, rows [][]string, what string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return eris.Wrapf(err, "export: write %s csv", what)
	}
	return nil
}

// ReadMetricsCSV parses metric observations from CSV with a MetricHeader
// header row. Columns are matched by name; id, unit, source and confidence
// are optional.
func ReadMetricsCSV(r io.Reader) ([]model.MetricObservation, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "export: read metrics csv")
	}
	return parseMetricRows(rows)
}

func parseMetricRows(rows [][]string) ([]model.MetricObservation, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	col := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		col[name] = i
	}
	for _, required := range []string{"metric_name", "value", "measurement_date"} {
		if _, ok := col[required]; !ok {
			return nil, eris.Errorf("export: metrics: missing column %q", required)
		}
	}
	get := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	out := make([]model.MetricObservation, 0, len(rows)-1)
	for n, row := range rows[1:] {
		line := n + 2
		value, err := strconv.ParseFloat(get(row, "value"), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "export: metrics line %d: value", line)
		}
		at, err := time.Parse(time.RFC3339, get(row, "measurement_date"))
		if err != nil {
			return nil, eris.Wrapf(err, "export: metrics line %d: measurement_date", line)
		}
		o := model.MetricObservation{
			ID:              get(row, "id"),
			MetricName:      get(row, "metric_name"),
			Value:           value,
			Unit:            get(row, "unit"),
			MeasurementDate: at,
			Source:          get(row, "source"),
		}
		if c := get(row, "confidence"); c != "" {
			conf, err := strconv.ParseFloat(c, 64)
			if err != nil {
				return nil, eris.Wrapf(err, "export: metrics line %d: confidence", line)
			}
			o.Confidence = &conf
		}
		out = append(out, o)
	}
	return out, nil
}
