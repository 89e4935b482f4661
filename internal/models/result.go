package models

import "time"

// TaskStatus is the terminal status of a single profiling task.
type TaskStatus string

const (
	// StatusSuccess means the engine completed the task and returned results.
	StatusSuccess TaskStatus = "success"

	// StatusFailed means the engine reported an execution error.
	StatusFailed TaskStatus = "failed"

	// StatusTimedOut means the task's deadline expired before completion.
	StatusTimedOut TaskStatus = "timed_out"

	// StatusSkipped means the task was never dispatched because the global
	// time budget was exhausted before its turn.
	StatusSkipped TaskStatus = "skipped"
)

// TaskResult is the outcome of one validated task. Exactly one TaskResult is
// produced per ValidatedTask, in profile order.
type TaskResult struct {
	Task       ValidatedTask  `json:"-"`
	Index      int            `json:"index"`
	Family     string         `json:"family,omitempty"`
	Algorithm  string         `json:"algorithm"`
	Status     TaskStatus     `json:"status"`
	Instances  map[string]int `json:"instances,omitempty"`
	Error      string         `json:"error,omitempty"`
	ElapsedSec float64        `json:"elapsed_sec"`
	Elapsed    time.Duration  `json:"-"`
}

// Verdict summarizes a whole run.
type Verdict string

const (
	VerdictAllSucceeded Verdict = "all_succeeded"
	VerdictPartial      Verdict = "partial"
	VerdictAllFailed    Verdict = "all_failed"
)

// ProfileReport is the ordered collection of per-task outcomes for one run.
// Results match the profile's task order exactly; rendering is left to
// external consumers.
type ProfileReport struct {
	ProfileName      string       `json:"profile_name"`
	RunID            string       `json:"run_id,omitempty"`
	Verdict          Verdict      `json:"verdict"`
	Results          []TaskResult `json:"results"`
	StartedAt        time.Time    `json:"started_at"`
	EndedAt          time.Time    `json:"ended_at"`
	TotalDurationSec float64      `json:"total_duration_sec"`
}
