package models

import "time"

// GlobalSettings carries profile-wide execution hints.
type GlobalSettings struct {
	// GlobalTimeout is the total wall-clock allowance for the whole run in
	// seconds. Nil means unbounded.
	GlobalTimeout *float64 `yaml:"global_timeout"`

	// Rows and Columns are advisory sizing hints for the dataset. Zero means
	// "use everything"; they are passed through to the engine untouched.
	Rows    int `yaml:"rows"`
	Columns int `yaml:"columns"`
}

// TaskSpec is one raw task entry as written in a profile document. Exactly one
// of Family or Algorithm must be present at minimum; a family entry may
// additionally carry an algorithm override and parameter overrides.
type TaskSpec struct {
	Family     string         `yaml:"family"`
	Algorithm  string         `yaml:"algorithm"`
	Parameters map[string]any `yaml:"parameters"`

	// TimeoutSec is an optional per-task deadline in seconds.
	TimeoutSec *float64 `yaml:"timeout"`
}

// Profile is a parsed profile document. It is immutable once loaded; the
// validator reads it, it is never written back.
type Profile struct {
	Name     string         `yaml:"name"`
	Settings GlobalSettings `yaml:"global_settings"`
	Tasks    []TaskSpec     `yaml:"tasks"`
}

// GlobalTimeout returns the global budget as a duration, or nil when
// unbounded. An explicit zero is a real (empty) budget, not unbounded.
func (p *Profile) GlobalTimeout() *time.Duration {
	if p.Settings.GlobalTimeout == nil {
		return nil
	}
	d := time.Duration(*p.Settings.GlobalTimeout * float64(time.Second))
	return &d
}

// ValidatedTask is a task entry after validation: family resolved (or empty
// for a standalone algorithm), algorithm id fixed, and parameters merged over
// the schema defaults. Index is the zero-based position in the profile; order
// is semantically meaningful and preserved through the whole pipeline.
type ValidatedTask struct {
	Index     int
	Family    string
	Algorithm string
	Params    map[string]any

	// Timeout is the per-task deadline, 0 when the task declared none.
	Timeout time.Duration
}
