package session

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/francisoalfonso/LaLigaFantasySpain-sub003/models"
)

func testReq() models.JobRequest {
	return models.JobRequest{
		ContentType:  models.ContentTypeChollo,
		PlayerName:   "Robert Lewandowski",
		Team:         "Barcelona",
		SegmentCount: 3,
	}
}

func TestOpenInitializesCheckpoints(t *testing.T) {
	s, err := Open(t.TempDir(), "job-1", testReq())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(s.Manifest.Segments) != 3 {
		t.Fatalf("segments = %d, want 3", len(s.Manifest.Segments))
	}
	wantRoles := []string{models.SegmentRoleHook, models.SegmentRoleBody, models.SegmentRoleClose}
	for i, c := range s.Manifest.Segments {
		if c.Order != i || c.Role != wantRoles[i] || c.Completed {
			t.Errorf("checkpoint %d = %+v", i, c)
		}
	}
	if s.Manifest.Composition != CompositionPending {
		t.Errorf("composition = %q", s.Manifest.Composition)
	}
	if _, err := os.Stat(filepath.Join(s.Dir, "manifest.json")); err != nil {
		t.Errorf("manifest not persisted: %v", err)
	}
}

func TestReopenLoadsPersistedState(t *testing.T) {
	workdir := t.TempDir()
	s, err := Open(workdir, "job-1", testReq())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := os.WriteFile(s.SegmentPath(0), []byte("mp4"), 0o644); err != nil {
		t.Fatalf("write segment: %v", err)
	}
	attempts := models.AttemptHistory{{Attempt: 1, Outcome: "success", CostUSD: 0.30}}
	if err := s.CompleteSegment(0, "hola misters", 8.0, attempts); err != nil {
		t.Fatalf("CompleteSegment: %v", err)
	}

	re, err := Open(workdir, "job-1", models.JobRequest{}) // request ignored on resume
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if !re.IsSegmentComplete(0) {
		t.Error("segment 0 lost across reopen")
	}
	if re.IsSegmentComplete(1) || re.IsSegmentComplete(2) {
		t.Error("pending segments reported complete")
	}
	c := re.Manifest.Segments[0]
	if c.Dialogue != "hola misters" || c.Duration != 8.0 || len(c.Attempts) != 1 {
		t.Errorf("checkpoint = %+v", c)
	}
	if re.Manifest.Request.PlayerName != "Robert Lewandowski" {
		t.Errorf("request not persisted: %+v", re.Manifest.Request)
	}
}

func TestIsSegmentCompleteRequiresFile(t *testing.T) {
	s, err := Open(t.TempDir(), "job-1", testReq())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := os.WriteFile(s.SegmentPath(1), []byte("mp4"), 0o644); err != nil {
		t.Fatalf("write segment: %v", err)
	}
	if err := s.CompleteSegment(1, "texto", 8, nil); err != nil {
		t.Fatalf("CompleteSegment: %v", err)
	}
	if !s.IsSegmentComplete(1) {
		t.Fatal("completed segment with file must report complete")
	}
	// checkpoint says complete but the file vanished: must regenerate
	if err := os.Remove(s.SegmentPath(1)); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if s.IsSegmentComplete(1) {
		t.Error("missing file must invalidate the checkpoint")
	}
}

func TestManifestTotalCost(t *testing.T) {
	s, err := Open(t.TempDir(), "job-1", testReq())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.Manifest.Segments[0].Attempts = models.AttemptHistory{
		{Attempt: 1, Outcome: "failure", CostUSD: 0.30},
		{Attempt: 2, Outcome: "success", CostUSD: 0.30},
	}
	s.Manifest.Segments[1].Attempts = models.AttemptHistory{
		{Attempt: 1, Outcome: "success", CostUSD: 0.30},
	}
	if got := s.Manifest.TotalCost(); math.Abs(got-0.90) > 1e-9 {
		t.Errorf("TotalCost = %f, want 0.90 (failed attempts count)", got)
	}
}

func TestFailSegmentKeepsAuditTrail(t *testing.T) {
	s, err := Open(t.TempDir(), "job-1", testReq())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	attempts := models.AttemptHistory{
		{Attempt: 1, Outcome: "failure", Category: "CONTENT_POLICY", CostUSD: 0.30},
	}
	if err := s.FailSegment(2, attempts); err != nil {
		t.Fatalf("FailSegment: %v", err)
	}
	re, err := Open(filepath.Dir(s.Dir), "job-1", models.JobRequest{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	c := re.Manifest.Segments[2]
	if c.Completed || len(c.Attempts) != 1 || c.Attempts[0].Category != "CONTENT_POLICY" {
		t.Errorf("failed checkpoint = %+v", c)
	}
}

func TestSegmentIndexBounds(t *testing.T) {
	s, err := Open(t.TempDir(), "job-1", testReq())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.CompleteSegment(3, "", 0, nil); err == nil {
		t.Error("out-of-range complete must fail")
	}
	if err := s.FailSegment(-1, nil); err == nil {
		t.Error("out-of-range fail must fail")
	}
	if s.IsSegmentComplete(99) {
		t.Error("out-of-range segment reported complete")
	}
}

func TestCleanupKeepsManifestAndOutput(t *testing.T) {
	s, err := Open(t.TempDir(), "job-1", testReq())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for _, name := range []string{"segment_00.mp4", "composed.mp4", "captions.ass", "card.png", "final.mp4"} {
		if err := os.WriteFile(filepath.Join(s.Dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := s.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	if len(names) != 2 {
		t.Fatalf("left after cleanup: %v", names)
	}
	for _, n := range names {
		if n != "manifest.json" && n != "final.mp4" {
			t.Errorf("unexpected survivor %q", n)
		}
	}
}
