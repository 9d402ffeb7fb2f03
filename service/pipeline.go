package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/francisoalfonso/LaLigaFantasySpain-sub003/compose"
	"github.com/francisoalfonso/LaLigaFantasySpain-sub003/config"
	"github.com/francisoalfonso/LaLigaFantasySpain-sub003/models"
	"github.com/francisoalfonso/LaLigaFantasySpain-sub003/session"
	"github.com/francisoalfonso/LaLigaFantasySpain-sub003/veo3"
)

// Pipeline runs one job end to end: sequential segment generation, then
// concat -> caption burn-in -> overlay. It holds no database handle; the
// processor wires persistence in through the callbacks, which keeps the
// whole pipeline runnable in tests against fakes.
type Pipeline struct {
	Orchestrator *veo3.Orchestrator
	Concat       *compose.Concatenator
	Captions     *compose.CaptionEngine
	Overlay      *compose.OverlayEngine
	VEO3         config.VEO3Config
	PipelineCfg  config.PipelineConfig

	// optional observers
	OnProgress     func(percent int, message string)
	OnSegmentStart func(index int)
	OnSegment      func(index int, cp session.SegmentCheckpoint)
	OnSegmentFail  func(index int, attempts models.AttemptHistory)
}

// PipelineResult is the terminal artifact summary.
type PipelineResult struct {
	OutputPath   string
	Duration     float64
	TotalCostUSD float64
	Segments     []session.SegmentCheckpoint
}

func (p *Pipeline) progress(percent int, message string) {
	if p.OnProgress != nil {
		p.OnProgress(percent, message)
	}
}

// Run executes the job against an opened session. Segments already
// checkpointed as complete are not regenerated, which is what makes a
// crashed job resumable.
func (p *Pipeline) Run(ctx context.Context, req models.JobRequest, sess *session.Session) (*PipelineResult, error) {
	total := req.SegmentCount
	if total < 1 {
		return nil, fmt.Errorf("segment count must be >= 1")
	}

	// generation is sequential: the provider rate-limits by account, and
	// segment i+1's frame-continuity contract references segment i
	for i := 0; i < total; i++ {
		if sess.IsSegmentComplete(i) {
			log.Printf("[pipeline] job %s segment %d already complete, skipping", sess.Manifest.JobID, i)
			continue
		}
		p.progress(i*60/total, fmt.Sprintf("generating segment %d/%d", i+1, total))
		if p.OnSegmentStart != nil {
			p.OnSegmentStart(i)
		}

		result, err := p.Orchestrator.GenerateSegment(ctx, req, i, sess.SegmentPath(i))
		if err != nil {
			if ferr := sess.FailSegment(i, result.History); ferr != nil {
				log.Printf("[pipeline] checkpoint failure record failed: %v", ferr)
			}
			if p.OnSegmentFail != nil {
				p.OnSegmentFail(i, result.History)
			}
			return nil, err
		}

		duration, err := p.Concat.Probe(ctx, result.Path)
		if err != nil {
			log.Printf("[pipeline] probe of segment %d failed, assuming %ds: %v", i, p.VEO3.SegmentSeconds, err)
			duration = float64(p.VEO3.SegmentSeconds)
		}
		if err := sess.CompleteSegment(i, result.Prompt.SpokenDialogue, duration, result.History); err != nil {
			return nil, fmt.Errorf("checkpoint segment %d: %w", i, err)
		}
		if p.OnSegment != nil {
			p.OnSegment(i, sess.Manifest.Segments[i])
		}
	}

	// composition failures are never retried automatically: they mean a
	// corrupt segment or a tooling problem, both operator territory
	if err := sess.SetComposition(session.CompositionComposing, "", 0); err != nil {
		return nil, err
	}

	p.progress(65, "concatenating segments")
	var segmentPaths []string
	var dialogue []compose.DialogueSegment
	for i, cp := range sess.Manifest.Segments {
		segmentPaths = append(segmentPaths, sess.SegmentPath(i))
		dialogue = append(dialogue, compose.DialogueSegment{Text: cp.Dialogue, Duration: cp.Duration})
	}
	composedPath := filepath.Join(sess.Dir, "composed.mp4")
	if err := p.Concat.Concat(ctx, segmentPaths, p.PipelineCfg.OutroPath, composedPath); err != nil {
		_ = sess.SetComposition(session.CompositionFailed, "", 0)
		return nil, err
	}

	p.progress(80, "burning captions")
	cues := p.Captions.BuildCues(dialogue)
	assPath := filepath.Join(sess.Dir, "captions.ass")
	if err := os.WriteFile(assPath, []byte(p.Captions.RenderASS(cues)), 0o644); err != nil {
		_ = sess.SetComposition(session.CompositionFailed, "", 0)
		return nil, fmt.Errorf("write caption track: %w", err)
	}
	captionedPath := filepath.Join(sess.Dir, "captioned.mp4")
	if err := p.Captions.Burn(ctx, composedPath, assPath, captionedPath); err != nil {
		_ = sess.SetComposition(session.CompositionFailed, "", 0)
		return nil, err
	}

	p.progress(90, "compositing overlay")
	outPath := sess.OutputPath()
	if req.PlayerName != "" {
		spec := p.Overlay.SpecFor(req.PlayerName, req.Team, req.PriceM,
			req.Stats.Goals, req.Stats.Assists, req.Stats.Rating,
			overlayStart(sess.Manifest.Segments), overlayVisible(sess.Manifest.Segments))
		cardPath := filepath.Join(sess.Dir, "card.png")
		if err := p.Overlay.RenderCard(spec, cardPath); err != nil {
			_ = sess.SetComposition(session.CompositionFailed, "", 0)
			return nil, err
		}
		if err := p.Overlay.Composite(ctx, captionedPath, cardPath, spec, outPath); err != nil {
			_ = sess.SetComposition(session.CompositionFailed, "", 0)
			return nil, err
		}
	} else {
		if err := os.Rename(captionedPath, outPath); err != nil {
			_ = sess.SetComposition(session.CompositionFailed, "", 0)
			return nil, fmt.Errorf("finalize output: %w", err)
		}
	}

	duration, err := p.Concat.Probe(ctx, outPath)
	if err != nil {
		_ = sess.SetComposition(session.CompositionFailed, "", 0)
		return nil, err
	}
	if err := sess.SetComposition(session.CompositionDone, filepath.Base(outPath), duration); err != nil {
		return nil, err
	}
	p.progress(95, "composition done")

	return &PipelineResult{
		OutputPath:   outPath,
		Duration:     duration,
		TotalCostUSD: sess.Manifest.TotalCost(),
		Segments:     sess.Manifest.Segments,
	}, nil
}

// overlayStart places the stats card right after the hook segment.
func overlayStart(segments []session.SegmentCheckpoint) float64 {
	if len(segments) == 0 {
		return 0
	}
	return segments[0].Duration
}

// overlayVisible keeps the card up through the body segments.
func overlayVisible(segments []session.SegmentCheckpoint) float64 {
	if len(segments) <= 2 {
		return 4
	}
	var v float64
	for _, s := range segments[1 : len(segments)-1] {
		v += s.Duration
	}
	if v <= 0 {
		v = 4
	}
	return v
}
