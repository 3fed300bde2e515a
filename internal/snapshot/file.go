package snapshot

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/vitals/internal/model"
)

// File is the on-disk YAML form of one user's data.
type File struct {
	UserID         string                    `yaml:"user_id"`
	Now            time.Time                 `yaml:"now,omitempty"`
	WindowDays     int                       `yaml:"window_days,omitempty"`
	Metrics        []model.MetricObservation `yaml:"metrics"`
	Habits         []model.Habit             `yaml:"habits"`
	Completions    []model.HabitCompletion   `yaml:"completions"`
	Goals          []model.Goal              `yaml:"goals"`
	ChallengeGoals []model.Goal              `yaml:"challenge_goals"`
	Challenges     []model.Challenge         `yaml:"challenges"`
	Trainer        *model.TrainerData        `yaml:"trainer,omitempty"`
	Quality        *model.QualityData        `yaml:"quality,omitempty"`
}

// ReadFile parses a snapshot file without deriving anything.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "snapshot: read %s", path)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "snapshot: parse %s", path)
	}
	return &f, nil
}

// LoadFile reads a snapshot file into a GeneratorContext. now overrides the
// file's own timestamp when non-zero.
func LoadFile(path string, now time.Time) (*model.GeneratorContext, error) {
	f, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return f.Context(now), nil
}

// Context builds the generator context for the file's data.
func (f *File) Context(now time.Time) *model.GeneratorContext {
	if now.IsZero() {
		now = f.Now
	}
	if now.IsZero() {
		now = time.Now()
	}
	p := Parts{
		UserID:      f.UserID,
		Now:         now,
		Metrics:     f.Metrics,
		Habits:      f.Habits,
		Completions: f.Completions,
		Goals:       f.Goals,
		Challenges:  f.ChallengeGoals,
		WindowDays:  f.WindowDays,
		TrainerData: f.Trainer,
		QualityData: f.Quality,
	}
	if len(f.Challenges) > 0 {
		p.ChallengeData = &model.ChallengeData{Challenges: f.Challenges}
	}
	return Build(p)
}

// LoadPreferencesFile reads insight preferences from YAML. Keys absent from
// the file keep their defaults.
func LoadPreferencesFile(path string) (*model.InsightPreferences, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "snapshot: read preferences %s", path)
	}
	var prefs model.InsightPreferences
	if err := yaml.Unmarshal(data, &prefs); err != nil {
		return nil, eris.Wrapf(err, "snapshot: parse preferences %s", path)
	}
	prefs = prefs.WithDefaults()
	return &prefs, nil
}
