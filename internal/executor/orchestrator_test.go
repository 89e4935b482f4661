package executor_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dataprof/dataprof/internal/dataset"
	"github.com/dataprof/dataprof/internal/engine"
	"github.com/dataprof/dataprof/internal/executor"
	"github.com/dataprof/dataprof/internal/history"
	"github.com/dataprof/dataprof/internal/models"
)

// fakeEngine scripts per-call outcomes and records every request it sees.
type fakeEngine struct {
	outcomes []func(req engine.Request) (*engine.Response, error)
	requests []engine.Request
	sleep    time.Duration
}

func (f *fakeEngine) Run(ctx context.Context, req engine.Request) (*engine.Response, error) {
	f.requests = append(f.requests, req)
	if f.sleep > 0 {
		time.Sleep(f.sleep)
	}
	if len(f.outcomes) == 0 {
		return &engine.Response{Instances: map[string]int{}}, nil
	}
	next := f.outcomes[0]
	f.outcomes = f.outcomes[1:]
	return next(req)
}

func (f *fakeEngine) Close(ctx context.Context) error { return nil }

func succeed(instances map[string]int) func(engine.Request) (*engine.Response, error) {
	return func(engine.Request) (*engine.Response, error) {
		return &engine.Response{Instances: instances}, nil
	}
}

func fail(msg string) func(engine.Request) (*engine.Response, error) {
	return func(engine.Request) (*engine.Response, error) {
		return nil, fmt.Errorf("%s", msg)
	}
}

func timeOut() func(engine.Request) (*engine.Response, error) {
	return func(req engine.Request) (*engine.Response, error) {
		return nil, fmt.Errorf("%s: %w", req.Algorithm, engine.ErrTimeout)
	}
}

func testHandle(t *testing.T) dataset.Handle {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644); err != nil {
		t.Fatalf("writing dataset: %v", err)
	}
	h, err := dataset.New(path, ",", true, 1, 2)
	if err != nil {
		t.Fatalf("creating handle: %v", err)
	}
	return h
}

func budget(d time.Duration) *time.Duration {
	return &d
}

func tasks(n int) []models.ValidatedTask {
	out := make([]models.ValidatedTask, n)
	for i := range out {
		out[i] = models.ValidatedTask{
			Index:     i,
			Family:    "fd",
			Algorithm: "hyfd",
			Params:    map[string]any{},
		}
	}
	return out
}

func TestRunFailureDoesNotAbort(t *testing.T) {
	eng := &fakeEngine{outcomes: []func(engine.Request) (*engine.Response, error){
		succeed(map[string]int{"fd": 3}),
		fail("engine exploded"),
		timeOut(),
		succeed(nil),
	}}
	orch := executor.NewOrchestrator(eng, nil, false)

	rep, err := orch.Run(context.Background(), "demo", tasks(4), testHandle(t), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := []models.TaskStatus{
		models.StatusSuccess,
		models.StatusFailed,
		models.StatusTimedOut,
		models.StatusSuccess,
	}
	for i, st := range want {
		if rep.Results[i].Status != st {
			t.Errorf("task %d: expected %s, got %s", i, st, rep.Results[i].Status)
		}
	}
	if rep.Verdict != models.VerdictPartial {
		t.Errorf("expected partial verdict, got %s", rep.Verdict)
	}
	if len(eng.requests) != 4 {
		t.Errorf("expected 4 engine calls, got %d", len(eng.requests))
	}
	if orch.State() != executor.StateCompleted {
		t.Errorf("expected completed state, got %s", orch.State())
	}
}

func TestRunZeroBudgetSkipsEverything(t *testing.T) {
	eng := &fakeEngine{}
	orch := executor.NewOrchestrator(eng, nil, false)

	// An explicit zero budget is exhausted before the first task starts.
	rep, err := orch.Run(context.Background(), "demo", tasks(3), testHandle(t), budget(0))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(eng.requests) != 0 {
		t.Fatalf("engine must not be invoked, saw %d calls", len(eng.requests))
	}
	for i, r := range rep.Results {
		if r.Status != models.StatusSkipped {
			t.Errorf("task %d: expected skipped, got %s", i, r.Status)
		}
	}
	if rep.Verdict != models.VerdictAllFailed {
		t.Errorf("expected all failed verdict, got %s", rep.Verdict)
	}
	if orch.State() != executor.StateBudgetExhausted {
		t.Errorf("expected budget exhausted state, got %s", orch.State())
	}
}

func TestRunBudgetExhaustionMidRun(t *testing.T) {
	eng := &fakeEngine{sleep: 50 * time.Millisecond}
	orch := executor.NewOrchestrator(eng, nil, false)

	rep, err := orch.Run(context.Background(), "demo", tasks(5), testHandle(t), budget(60*time.Millisecond))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(eng.requests) >= 5 {
		t.Errorf("expected some tasks to be skipped, engine saw %d calls", len(eng.requests))
	}
	last := rep.Results[len(rep.Results)-1]
	if last.Status != models.StatusSkipped {
		t.Errorf("final task should be skipped, got %s", last.Status)
	}
	if orch.State() != executor.StateBudgetExhausted {
		t.Errorf("expected budget exhausted state, got %s", orch.State())
	}
}

func TestRunUnboundedWithoutGlobalTimeout(t *testing.T) {
	eng := &fakeEngine{}
	orch := executor.NewOrchestrator(eng, nil, false)

	if _, err := orch.Run(context.Background(), "demo", tasks(2), testHandle(t), nil); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	for i, req := range eng.requests {
		if req.Deadline != 0 {
			t.Errorf("request %d: expected unbounded deadline, got %v", i, req.Deadline)
		}
	}
}

func TestRunEffectiveDeadline(t *testing.T) {
	eng := &fakeEngine{}
	orch := executor.NewOrchestrator(eng, nil, false)

	plan := tasks(2)
	plan[0].Timeout = 10 * time.Millisecond
	plan[1].Timeout = time.Hour

	if _, err := orch.Run(context.Background(), "demo", plan, testHandle(t), budget(time.Minute)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := eng.requests[0].Deadline; got != 10*time.Millisecond {
		t.Errorf("task 0: per-task timeout should win, got %v", got)
	}
	if got := eng.requests[1].Deadline; got <= 0 || got > time.Minute {
		t.Errorf("task 1: remaining budget should win, got %v", got)
	}
}

func TestRunDatasetHandOff(t *testing.T) {
	dir := t.TempDir()
	replacement := filepath.Join(dir, "sorted.csv")
	if err := os.WriteFile(replacement, []byte("a,b\n2,1\n"), 0o644); err != nil {
		t.Fatalf("writing replacement dataset: %v", err)
	}

	eng := &fakeEngine{outcomes: []func(engine.Request) (*engine.Response, error){
		func(req engine.Request) (*engine.Response, error) {
			out, err := req.Dataset.Derive(replacement)
			if err != nil {
				return nil, err
			}
			return &engine.Response{Instances: map[string]int{}, OutputDataset: &out}, nil
		},
		succeed(nil),
	}}
	orch := executor.NewOrchestrator(eng, nil, false)

	plan := tasks(2)
	plan[0].Family = ""
	plan[0].Algorithm = "order"

	if _, err := orch.Run(context.Background(), "demo", plan, testHandle(t), nil); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := eng.requests[1].Dataset.Path; got != replacement {
		t.Errorf("second task should see the replacement dataset, got %q", got)
	}
}

func TestRunCancelledContextSkipsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	eng := &fakeEngine{outcomes: []func(engine.Request) (*engine.Response, error){
		func(engine.Request) (*engine.Response, error) {
			cancel()
			return &engine.Response{}, nil
		},
	}}
	orch := executor.NewOrchestrator(eng, nil, false)

	rep, err := orch.Run(ctx, "demo", tasks(3), testHandle(t), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(eng.requests) != 1 {
		t.Errorf("expected 1 engine call before cancellation, got %d", len(eng.requests))
	}
	for _, r := range rep.Results[1:] {
		if r.Status != models.StatusSkipped {
			t.Errorf("task %d: expected skipped after cancel, got %s", r.Index, r.Status)
		}
	}
}

func TestRunReusesPriorSuccess(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "history.json"))
	if err != nil {
		t.Fatalf("opening history: %v", err)
	}
	ds := testHandle(t)

	plan := tasks(1)
	plan = append(plan, models.ValidatedTask{
		Index:     1,
		Algorithm: "order",
		Params:    map[string]any{},
	})

	first := &fakeEngine{outcomes: []func(engine.Request) (*engine.Response, error){
		succeed(map[string]int{"fd": 7}),
		succeed(nil),
	}}
	orch := executor.NewOrchestrator(first, store, true)
	if _, err := orch.Run(context.Background(), "demo", plan, ds, nil); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	if len(first.requests) != 2 {
		t.Fatalf("first run: expected 2 engine calls, got %d", len(first.requests))
	}

	second := &fakeEngine{outcomes: []func(engine.Request) (*engine.Response, error){
		succeed(nil),
	}}
	orch = executor.NewOrchestrator(second, store, true)
	rep, err := orch.Run(context.Background(), "demo", plan, ds, nil)
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	// The fd task is answered from the history; the standalone task still
	// runs because it rewrites the dataset.
	if len(second.requests) != 1 {
		t.Fatalf("second run: expected 1 engine call, got %d", len(second.requests))
	}
	if got := second.requests[0].Algorithm; got != "order" {
		t.Errorf("second run should only dispatch the standalone task, got %q", got)
	}
	if rep.Results[0].Status != models.StatusSuccess {
		t.Errorf("reused task: expected success, got %s", rep.Results[0].Status)
	}
	if rep.Results[0].Instances["fd"] != 7 {
		t.Errorf("reused task should carry the recorded instances, got %v", rep.Results[0].Instances)
	}
}

func TestRunCheckResultsIgnoresChangedParams(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "history.json"))
	if err != nil {
		t.Fatalf("opening history: %v", err)
	}
	ds := testHandle(t)

	plan := tasks(1)
	eng := &fakeEngine{outcomes: []func(engine.Request) (*engine.Response, error){
		succeed(map[string]int{"fd": 3}),
	}}
	orch := executor.NewOrchestrator(eng, store, true)
	if _, err := orch.Run(context.Background(), "demo", plan, ds, nil); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}

	changed := tasks(1)
	changed[0].Params = map[string]any{"error": 0.1}
	eng2 := &fakeEngine{outcomes: []func(engine.Request) (*engine.Response, error){
		succeed(nil),
	}}
	orch = executor.NewOrchestrator(eng2, store, true)
	if _, err := orch.Run(context.Background(), "demo", changed, ds, nil); err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if len(eng2.requests) != 1 {
		t.Errorf("changed parameters must dispatch again, engine saw %d calls", len(eng2.requests))
	}
}
