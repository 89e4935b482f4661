// Package executor drives a validated profile against an engine. Tasks run
// sequentially under a global time budget; once the budget is spent the rest
// of the plan is skipped without touching the engine.
package executor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dataprof/dataprof/internal/dataset"
	"github.com/dataprof/dataprof/internal/engine"
	"github.com/dataprof/dataprof/internal/history"
	"github.com/dataprof/dataprof/internal/models"
	"github.com/dataprof/dataprof/internal/report"
)

// State tracks where the orchestrator is in its lifecycle.
type State string

const (
	StateIdle            State = "idle"
	StateRunning         State = "running"
	StateCompleted       State = "completed"
	StateBudgetExhausted State = "budget_exhausted"
)

// Orchestrator executes profile tasks one at a time. The history store is
// optional; a nil store disables run recording. With checkResults set, a
// task whose identical run already succeeded is answered from the store
// instead of being dispatched again.
type Orchestrator struct {
	engine       engine.Engine
	store        *history.Store
	checkResults bool
	state        State
}

// NewOrchestrator creates an idle orchestrator around an engine.
func NewOrchestrator(eng engine.Engine, store *history.Store, checkResults bool) *Orchestrator {
	return &Orchestrator{
		engine:       eng,
		store:        store,
		checkResults: checkResults,
		state:        StateIdle,
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	return o.state
}

// Run executes the tasks in order against the dataset and returns the merged
// report. A nil globalTimeout means unbounded; an explicit zero budget skips
// every task. A task failure never aborts the run; only budget exhaustion or
// context cancellation stops engine invocations, and then by skipping the
// remaining tasks.
func (o *Orchestrator) Run(ctx context.Context, profileName string, tasks []models.ValidatedTask, ds dataset.Handle, globalTimeout *time.Duration) (models.ProfileReport, error) {
	runID := history.NewRunID()
	agg := report.NewAggregator(profileName, runID)
	o.state = StateRunning

	budget := "unbounded"
	if globalTimeout != nil {
		budget = globalTimeout.String()
	}
	slog.Info("run started",
		"profile", profileName,
		"run_id", runID,
		"tasks", len(tasks),
		"global_timeout", budget)

	start := time.Now()
	current := ds
	exhausted := false

	for _, task := range tasks {
		remaining := time.Duration(0)
		if globalTimeout != nil {
			remaining = *globalTimeout - time.Since(start)
			if remaining <= 0 {
				exhausted = true
			}
		}

		if exhausted || ctx.Err() != nil {
			reason := "global time budget exhausted"
			if !exhausted {
				reason = "run cancelled"
			}
			slog.Warn("task skipped",
				"index", task.Index,
				"algorithm", task.Algorithm,
				"reason", reason)
			agg.Record(skippedResult(task, reason))
			continue
		}

		res, output := o.runTask(ctx, runID, profileName, task, current, remaining)
		agg.Record(res)

		if res.Status == models.StatusSuccess && output != nil {
			slog.Info("dataset replaced",
				"index", task.Index,
				"algorithm", task.Algorithm,
				"path", output.Path)
			current = *output
		}
	}

	if exhausted {
		o.state = StateBudgetExhausted
	} else {
		o.state = StateCompleted
	}

	rep := agg.Finalize()
	slog.Info("run finished",
		"profile", profileName,
		"run_id", runID,
		"verdict", rep.Verdict,
		"state", o.state,
		"duration", time.Since(start))
	return rep, nil
}

// runTask executes one task with the effective deadline and classifies the
// outcome. The returned handle is non-nil when the task produced a
// replacement dataset.
func (o *Orchestrator) runTask(ctx context.Context, runID, profileName string, task models.ValidatedTask, ds dataset.Handle, remaining time.Duration) (models.TaskResult, *dataset.Handle) {
	// Standalone tasks rewrite the dataset, so their results are never
	// reused from the history.
	if o.checkResults && o.store != nil && task.Family != "" {
		if rec, ok := o.store.LastSuccessFor(task, ds); ok {
			slog.Info("task result reused",
				"index", task.Index,
				"algorithm", task.Algorithm,
				"record", rec.ID)
			res := models.TaskResult{
				Task:       task,
				Index:      task.Index,
				Family:     task.Family,
				Algorithm:  task.Algorithm,
				Status:     models.StatusSuccess,
				Instances:  rec.Instances,
				Elapsed:    time.Duration(rec.ElapsedSec * float64(time.Second)),
				ElapsedSec: rec.ElapsedSec,
			}
			return res, nil
		}
	}

	deadline := effectiveDeadline(remaining, task.Timeout)

	var recordID string
	if o.store != nil {
		id, err := o.store.AddRun(runID, profileName, task, ds)
		if err != nil {
			slog.Warn("history record failed", "index", task.Index, "error", err)
		} else {
			recordID = id
		}
	}

	slog.Info("task started",
		"index", task.Index,
		"family", task.Family,
		"algorithm", task.Algorithm,
		"deadline", deadline)

	taskStart := time.Now()
	resp, err := o.engine.Run(ctx, engine.Request{
		Family:    task.Family,
		Algorithm: task.Algorithm,
		Dataset:   ds,
		Params:    task.Params,
		Deadline:  deadline,
	})
	elapsed := time.Since(taskStart)

	res := models.TaskResult{
		Task:       task,
		Index:      task.Index,
		Family:     task.Family,
		Algorithm:  task.Algorithm,
		Elapsed:    elapsed,
		ElapsedSec: elapsed.Seconds(),
	}

	var output *dataset.Handle
	switch {
	case err == nil:
		res.Status = models.StatusSuccess
		res.Instances = resp.Instances
		output = resp.OutputDataset
	case errors.Is(err, engine.ErrTimeout):
		res.Status = models.StatusTimedOut
		res.Error = err.Error()
	default:
		res.Status = models.StatusFailed
		res.Error = err.Error()
	}

	slog.Info("task finished",
		"index", task.Index,
		"algorithm", task.Algorithm,
		"status", res.Status,
		"elapsed", elapsed)

	if recordID != "" {
		var herr error
		if res.Status == models.StatusSuccess {
			herr = o.store.MarkSuccess(recordID, res.Instances, elapsed)
		} else {
			herr = o.store.MarkFailure(recordID, res.Status, res.Error, elapsed)
		}
		if herr != nil {
			slog.Warn("history update failed", "index", task.Index, "error", herr)
		}
	}

	return res, output
}

func skippedResult(task models.ValidatedTask, reason string) models.TaskResult {
	return models.TaskResult{
		Task:      task,
		Index:     task.Index,
		Family:    task.Family,
		Algorithm: task.Algorithm,
		Status:    models.StatusSkipped,
		Error:     reason,
	}
}

// effectiveDeadline bounds a task by both the remaining budget and its own
// timeout. Zero values mean unbounded on that side.
func effectiveDeadline(remaining, taskTimeout time.Duration) time.Duration {
	switch {
	case remaining <= 0:
		return taskTimeout
	case taskTimeout <= 0:
		return remaining
	case taskTimeout < remaining:
		return taskTimeout
	default:
		return remaining
	}
}
