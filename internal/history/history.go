// Package history keeps a JSON file of past profiling runs. Records are
// matched on algorithm, parameters and dataset fingerprint, so a later run
// can tell whether an identical task already succeeded.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dataprof/dataprof/internal/dataset"
	"github.com/dataprof/dataprof/internal/models"
)

// Record is one task execution in the history file.
type Record struct {
	ID         string         `json:"id"`
	RunID      string         `json:"run_id"`
	Profile    string         `json:"profile"`
	Family     string         `json:"family,omitempty"`
	Algorithm  string         `json:"algorithm"`
	Params     map[string]any `json:"parameters"`
	DataHash   string         `json:"data_hash"`
	Rows       int            `json:"rows"`
	Cols       int            `json:"cols"`
	Status     string         `json:"status"`
	Instances  map[string]int `json:"instances,omitempty"`
	Error      string         `json:"error,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	FinishedAt time.Time      `json:"finished_at,omitempty"`
	ElapsedSec float64        `json:"elapsed_sec,omitempty"`
}

// filePayload is the on-disk shape of the history file.
type filePayload struct {
	Runs []Record `json:"runs"`
}

// Store reads and appends history records. All methods are safe for
// concurrent use; every mutation is flushed to disk before returning.
type Store struct {
	path string

	mu   sync.Mutex
	runs []Record
}

// Open loads the history file at path, creating an empty store when the file
// does not exist yet.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}

	var payload filePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parsing history: %w", err)
	}
	s.runs = payload.Runs
	return s, nil
}

// NewRunID returns a fresh identifier grouping the records of one
// orchestrator run.
func NewRunID() string {
	return uuid.NewString()
}

// AddRun appends a pending record for a task and returns its record ID.
func (s *Store) AddRun(runID, profileName string, task models.ValidatedTask, ds dataset.Handle) (string, error) {
	rec := Record{
		ID:        uuid.NewString(),
		RunID:     runID,
		Profile:   profileName,
		Family:    task.Family,
		Algorithm: task.Algorithm,
		Params:    task.Params,
		DataHash:  ds.Hash,
		Rows:      ds.Rows,
		Cols:      ds.Cols,
		Status:    "pending",
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, rec)
	if err := s.saveLocked(); err != nil {
		return "", err
	}
	return rec.ID, nil
}

// MarkSuccess finalizes a pending record with its instance counts.
func (s *Store) MarkSuccess(recordID string, instances map[string]int, elapsed time.Duration) error {
	return s.finish(recordID, string(models.StatusSuccess), elapsed, func(r *Record) {
		r.Instances = instances
	})
}

// MarkFailure finalizes a pending record with a terminal status and error.
func (s *Store) MarkFailure(recordID string, status models.TaskStatus, errMsg string, elapsed time.Duration) error {
	return s.finish(recordID, string(status), elapsed, func(r *Record) {
		r.Error = errMsg
	})
}

func (s *Store) finish(recordID, status string, elapsed time.Duration, apply func(*Record)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.runs {
		if s.runs[i].ID != recordID {
			continue
		}
		s.runs[i].Status = status
		s.runs[i].FinishedAt = time.Now().UTC()
		s.runs[i].ElapsedSec = elapsed.Seconds()
		apply(&s.runs[i])
		return s.saveLocked()
	}
	return fmt.Errorf("history record %s not found", recordID)
}

// TasksByRunID returns the records belonging to one run, in insertion order.
func (s *Store) TasksByRunID(runID string) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Record
	for _, r := range s.runs {
		if r.RunID == runID {
			out = append(out, r)
		}
	}
	return out
}

// LastSuccessFor returns the most recent successful record matching the task
// and dataset fingerprint, or false if none exists.
func (s *Store) LastSuccessFor(task models.ValidatedTask, ds dataset.Handle) (Record, bool) {
	key, err := paramsKey(task.Params)
	if err != nil {
		return Record{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.runs) - 1; i >= 0; i-- {
		r := s.runs[i]
		if r.Status != string(models.StatusSuccess) {
			continue
		}
		if r.Algorithm != task.Algorithm || r.DataHash != ds.Hash {
			continue
		}
		if r.Rows != ds.Rows || r.Cols != ds.Cols {
			continue
		}
		rkey, err := paramsKey(r.Params)
		if err != nil || rkey != key {
			continue
		}
		return r, true
	}
	return Record{}, false
}

// saveLocked writes the history file. Callers must hold s.mu.
func (s *Store) saveLocked() error {
	data, err := json.MarshalIndent(filePayload{Runs: s.runs}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating history directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing history: %w", err)
	}
	return nil
}

// paramsKey canonicalizes a parameter map for comparison. JSON object keys
// marshal in sorted order, so equal maps always produce equal keys.
func paramsKey(params map[string]any) (string, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
