// Package engine defines the boundary to the profiling engine. Engines take a
// fully validated task plus a dataset handle and return the discovered
// instance counts. Implementations live in subpackages: local runs the engine
// binary as a subprocess, modal runs it inside a remote sandbox.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/dataprof/dataprof/internal/dataset"
)

// ErrTimeout reports that a run was cut off by its deadline. Callers classify
// the task as timed out rather than failed when errors.Is matches this.
var ErrTimeout = errors.New("engine run timed out")

// Request describes a single profiling run.
type Request struct {
	Family    string         `json:"family,omitempty"`
	Algorithm string         `json:"algorithm"`
	Dataset   dataset.Handle `json:"dataset"`
	Params    map[string]any `json:"parameters"`

	// Deadline bounds the run. Zero means unbounded.
	Deadline time.Duration `json:"-"`
}

// Response carries the outcome of a successful run. Transform algorithms set
// OutputDataset, which replaces the input handle for subsequent tasks.
type Response struct {
	Instances     map[string]int  `json:"instances"`
	OutputDataset *dataset.Handle `json:"output_dataset,omitempty"`
}

// Engine executes profiling requests.
type Engine interface {
	// Run executes one request and blocks until it finishes or the deadline
	// fires. A deadline hit returns an error matching ErrTimeout.
	Run(ctx context.Context, req Request) (*Response, error)

	// Close releases any resources held by the engine.
	Close(ctx context.Context) error
}
