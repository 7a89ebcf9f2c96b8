package pipeline

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

// RunState holds the per-run scoped resources: a short run identifier,
// the start timestamp used for duration reporting, and a temp directory
// released on every exit path.
type RunState struct {
	ID      string
	Start   time.Time
	TempDir string
}

// NewRunState allocates a run identifier and the scoped temp directory.
func NewRunState() (*RunState, error) {
	id := uuid.NewString()[:8]
	dir, err := os.MkdirTemp("", "crosbuild-"+id+"-")
	if err != nil {
		return nil, fmt.Errorf("creating temp directory: %w", err)
	}
	return &RunState{
		ID:      id,
		Start:   time.Now(),
		TempDir: dir,
	}, nil
}

// Elapsed returns the wall time since the run started.
func (s *RunState) Elapsed() time.Duration {
	return time.Since(s.Start).Round(time.Second)
}

// Cleanup releases the scoped temp directory. Safe to call more than
// once.
func (s *RunState) Cleanup() {
	if s.TempDir != "" {
		os.RemoveAll(s.TempDir)
		s.TempDir = ""
	}
}
