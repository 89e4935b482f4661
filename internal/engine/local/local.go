// Package local runs the profiling engine binary as a subprocess. Each
// request is serialized to JSON on stdin and the result is read back from
// stdout, so the engine binary stays replaceable without recompiling.
package local

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dataprof/dataprof/internal/engine"
)

// Engine invokes a profiling binary per request.
type Engine struct {
	binary string
	args   []string
}

// New creates a local engine around the given binary. Extra args are passed
// before the JSON payload is written to stdin.
func New(binary string, args ...string) *Engine {
	return &Engine{binary: binary, args: args}
}

// result is the wire format the engine binary writes to stdout.
type result struct {
	Instances  map[string]int `json:"instances"`
	OutputPath string         `json:"output_path,omitempty"`
}

// Run executes the binary for one request. The deadline is enforced with a
// context timeout; a deadline hit kills the subprocess and reports ErrTimeout.
func (e *Engine) Run(ctx context.Context, req engine.Request) (*engine.Response, error) {
	if req.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Deadline)
		defer cancel()
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	cmd := exec.CommandContext(ctx, e.binary, e.args...)
	cmd.Stdin = bytes.NewReader(payload)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("opening stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("opening stderr pipe: %w", err)
	}

	slog.Debug("invoking engine binary",
		"binary", e.binary,
		"algorithm", req.Algorithm,
		"deadline", req.Deadline)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting engine binary: %w", err)
	}

	var stdout, stderr bytes.Buffer
	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(&stdout, stdoutPipe)
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(&stderr, stderrPipe)
		return err
	})
	drainErr := g.Wait()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%s after %v: %w", req.Algorithm, req.Deadline, engine.ErrTimeout)
		}
		return nil, fmt.Errorf("engine binary failed: %w: %s", err, firstLine(stderr.String()))
	}
	if drainErr != nil {
		return nil, fmt.Errorf("reading engine output: %w", drainErr)
	}

	var res result
	if err := json.Unmarshal(stdout.Bytes(), &res); err != nil {
		return nil, fmt.Errorf("decoding engine output: %w", err)
	}

	resp := &engine.Response{Instances: res.Instances}
	if res.OutputPath != "" {
		out, err := req.Dataset.Derive(res.OutputPath)
		if err != nil {
			return nil, fmt.Errorf("deriving output dataset: %w", err)
		}
		resp.OutputDataset = &out
	}
	return resp, nil
}

// Close is a no-op: the local engine holds no resources between runs.
func (e *Engine) Close(ctx context.Context) error {
	return nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
