// Package report merges per-task outcomes into a single profile report.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dataprof/dataprof/internal/models"
)

// Aggregator collects task results for one run. Recording a result for a
// task index that is already present replaces it, so merging the same result
// twice leaves the report unchanged.
type Aggregator struct {
	profileName string
	runID       string
	startedAt   time.Time
	results     map[int]models.TaskResult
}

// NewAggregator starts an empty report for a profile run.
func NewAggregator(profileName, runID string) *Aggregator {
	return &Aggregator{
		profileName: profileName,
		runID:       runID,
		startedAt:   time.Now().UTC(),
		results:     make(map[int]models.TaskResult),
	}
}

// Record merges one task result into the report, keyed by task index.
func (a *Aggregator) Record(res models.TaskResult) {
	a.results[res.Index] = res
}

// Finalize produces the report. Results are ordered by task index. An empty
// run has no failures, so it finalizes as all succeeded.
func (a *Aggregator) Finalize() models.ProfileReport {
	indices := make([]int, 0, len(a.results))
	for idx := range a.results {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	results := make([]models.TaskResult, 0, len(indices))
	for _, idx := range indices {
		results = append(results, a.results[idx])
	}

	endedAt := time.Now().UTC()
	return models.ProfileReport{
		ProfileName:      a.profileName,
		RunID:            a.runID,
		Verdict:          verdict(results),
		Results:          results,
		StartedAt:        a.startedAt,
		EndedAt:          endedAt,
		TotalDurationSec: endedAt.Sub(a.startedAt).Seconds(),
	}
}

func verdict(results []models.TaskResult) models.Verdict {
	succeeded := 0
	for _, r := range results {
		if r.Status == models.StatusSuccess {
			succeeded++
		}
	}
	switch {
	case succeeded == len(results):
		return models.VerdictAllSucceeded
	case succeeded == 0:
		return models.VerdictAllFailed
	default:
		return models.VerdictPartial
	}
}

// Write saves a report as indented JSON.
func Write(path string, rep models.ProfileReport) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
