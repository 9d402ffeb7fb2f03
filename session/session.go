// Package session owns the per-job working directory and its manifest,
// the durable checkpoint that makes a crashed job resumable from the last
// persisted segment instead of re-generating from scratch.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/francisoalfonso/LaLigaFantasySpain-sub003/models"
)

// Composition statuses recorded in the manifest.
const (
	CompositionPending   = "pending"
	CompositionComposing = "composing"
	CompositionDone      = "done"
	CompositionFailed    = "failed"
)

// SegmentCheckpoint is one segment's durable record: completed segments
// are never re-generated on resume.
type SegmentCheckpoint struct {
	Order     int                   `json:"order"`
	Role      string                `json:"role"`
	Dialogue  string                `json:"dialogue"`
	Duration  float64               `json:"duration"`
	File      string                `json:"file"` // relative to the session dir
	Completed bool                  `json:"completed"`
	Attempts  models.AttemptHistory `json:"attempts"`
}

// Manifest is the session's checkpoint document.
type Manifest struct {
	JobID       string              `json:"job_id"`
	Request     models.JobRequest   `json:"request"`
	Segments    []SegmentCheckpoint `json:"segments"`
	Composition string              `json:"composition"`
	OutputFile  string              `json:"output_file,omitempty"`
	Duration    float64             `json:"duration,omitempty"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// TotalCost sums attempt costs across all segments, failed attempts
// included.
func (m *Manifest) TotalCost() float64 {
	var total float64
	for _, s := range m.Segments {
		total += s.Attempts.TotalCost()
	}
	return total
}

// Session is one job's working directory.
type Session struct {
	Dir      string
	Manifest *Manifest
}

const manifestName = "manifest.json"

// Open creates (or re-opens) the session for a job. An existing manifest
// is loaded as-is so the caller can resume; otherwise a fresh one is
// initialized with one pending checkpoint per requested segment.
func Open(workdir, jobID string, req models.JobRequest) (*Session, error) {
	dir := filepath.Join(workdir, jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	s := &Session{Dir: dir}
	path := filepath.Join(dir, manifestName)
	if data, err := os.ReadFile(path); err == nil {
		var m Manifest
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("corrupt manifest %s: %w", path, err)
		}
		s.Manifest = &m
		return s, nil
	}

	m := &Manifest{
		JobID:       jobID,
		Request:     req,
		Composition: CompositionPending,
	}
	for i := 0; i < req.SegmentCount; i++ {
		m.Segments = append(m.Segments, SegmentCheckpoint{
			Order: i,
			Role:  models.RoleForIndex(i, req.SegmentCount),
		})
	}
	s.Manifest = m
	if err := s.Save(); err != nil {
		return nil, err
	}
	return s, nil
}

// Save writes the manifest atomically (temp file + rename) so a crash
// mid-write never leaves a truncated checkpoint.
func (s *Session) Save() error {
	s.Manifest.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(s.Manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	path := filepath.Join(s.Dir, manifestName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename manifest: %w", err)
	}
	return nil
}

// SegmentPath is the canonical location of segment i's media file.
func (s *Session) SegmentPath(i int) string {
	return filepath.Join(s.Dir, fmt.Sprintf("segment_%02d.mp4", i))
}

// OutputPath is the final composed artifact location.
func (s *Session) OutputPath() string {
	return filepath.Join(s.Dir, "final.mp4")
}

// CompleteSegment checkpoints a finished segment.
func (s *Session) CompleteSegment(i int, dialogue string, duration float64, attempts models.AttemptHistory) error {
	if i < 0 || i >= len(s.Manifest.Segments) {
		return fmt.Errorf("segment index %d out of range", i)
	}
	c := &s.Manifest.Segments[i]
	c.Dialogue = dialogue
	c.Duration = duration
	c.File = filepath.Base(s.SegmentPath(i))
	c.Completed = true
	c.Attempts = attempts
	return s.Save()
}

// FailSegment records a terminal segment failure with its audit trail.
func (s *Session) FailSegment(i int, attempts models.AttemptHistory) error {
	if i < 0 || i >= len(s.Manifest.Segments) {
		return fmt.Errorf("segment index %d out of range", i)
	}
	s.Manifest.Segments[i].Attempts = attempts
	s.Manifest.Segments[i].Completed = false
	return s.Save()
}

// IsSegmentComplete reports whether segment i survived a previous run.
func (s *Session) IsSegmentComplete(i int) bool {
	if i < 0 || i >= len(s.Manifest.Segments) {
		return false
	}
	c := s.Manifest.Segments[i]
	if !c.Completed || c.File == "" {
		return false
	}
	_, err := os.Stat(filepath.Join(s.Dir, c.File))
	return err == nil
}

// SetComposition updates the composition phase checkpoint.
func (s *Session) SetComposition(status, outputFile string, duration float64) error {
	s.Manifest.Composition = status
	if outputFile != "" {
		s.Manifest.OutputFile = outputFile
	}
	if duration > 0 {
		s.Manifest.Duration = duration
	}
	return s.Save()
}

// Cleanup removes temporary per-segment artifacts, keeping the manifest
// and the final output. Safe to call once the composition result exists.
func (s *Session) Cleanup() error {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		name := e.Name()
		if name == manifestName || name == filepath.Base(s.OutputPath()) {
			continue
		}
		if err := os.Remove(filepath.Join(s.Dir, name)); err != nil {
			return err
		}
	}
	return nil
}
