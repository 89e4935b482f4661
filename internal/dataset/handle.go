// Package dataset defines the handle passed to the profiling engine. The
// engine reads and parses the file itself; this layer only identifies the
// dataset and carries its framing options and sizing hints.
package dataset

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Handle identifies one dataset file together with its CSV framing and the
// advisory row/column limits from the profile's global settings. Tasks treat
// the handle as read-only input; the one exception is the standalone ordering
// task, whose output handle explicitly replaces the handle for all tasks
// after it.
type Handle struct {
	Path      string `json:"path"`
	Delimiter string `json:"delimiter"`
	HasHeader bool   `json:"has_header"`

	// Rows and Cols limit how much of the dataset the engine considers.
	// Zero means unlimited.
	Rows int `json:"rows,omitempty"`
	Cols int `json:"cols,omitempty"`

	// Hash is the hex SHA-256 of the file contents, used to key run history.
	Hash string `json:"hash,omitempty"`
}

// New builds a handle for the file at path, resolving it to an absolute path
// and hashing its contents.
func New(path, delimiter string, hasHeader bool, rows, cols int) (Handle, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Handle{}, fmt.Errorf("resolving dataset path: %w", err)
	}

	hash, err := hashFile(abs)
	if err != nil {
		return Handle{}, fmt.Errorf("hashing dataset: %w", err)
	}

	return Handle{
		Path:      abs,
		Delimiter: delimiter,
		HasHeader: hasHeader,
		Rows:      rows,
		Cols:      cols,
		Hash:      hash,
	}, nil
}

// Derive returns a copy of h pointing at a new file, keeping the framing and
// sizing hints. Used when a task emits a reordered dataset.
func (h Handle) Derive(path string) (Handle, error) {
	return New(path, h.Delimiter, h.HasHeader, h.Rows, h.Cols)
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
