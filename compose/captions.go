package compose

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/francisoalfonso/LaLigaFantasySpain-sub003/config"
)

// DialogueSegment is one segment's spoken text and measured duration.
type DialogueSegment struct {
	Text     string
	Duration float64
}

// Cue is one timed caption. Times are absolute on the composition
// timeline. For word-level cues only the active word is shown, true
// karaoke style.
type Cue struct {
	Start     float64
	End       float64
	Text      string
	WordLevel bool
}

// CaptionEngine derives timed cues from dialogue and burns them into the
// composed video as an ASS track.
type CaptionEngine struct {
	cfg    config.CaptionsConfig
	ffmpeg string
	runner Runner
}

func NewCaptionEngine(cfg config.CaptionsConfig, pipeline config.PipelineConfig) *CaptionEngine {
	return &CaptionEngine{cfg: cfg, ffmpeg: pipeline.FFmpegPath, runner: execRunner{}}
}

// NewCaptionEngineForTests injects a fake runner.
func NewCaptionEngineForTests(cfg config.CaptionsConfig, ffmpeg string, runner Runner) *CaptionEngine {
	return &CaptionEngine{cfg: cfg, ffmpeg: ffmpeg, runner: runner}
}

// Spoken number phrases are compacted before timing so a chunk boundary
// can never split one, and captions read "5.5M" instead of a verbose
// phrase.
var (
	reCommaDecimal = regexp.MustCompile(`(?i)\b(\d+)\s+coma\s+(\d+)\s+(millones|million[s]?)\b`)
	reMillions     = regexp.MustCompile(`(?i)\b(\d+(?:[.,]\d+)?)\s+(millones|million[s]?)\b`)
	rePercent      = regexp.MustCompile(`(?i)\b(\d+(?:[.,]\d+)?)\s+por\s+ciento\b`)
	rePointsPerM   = regexp.MustCompile(`(?i)\bpuntos\s+por\s+millon\b`)
)

// CompactNumbers rewrites multi-word numeric phrases into single tokens.
// Deterministic; applied to dialogue text before any timing split.
func CompactNumbers(text string) string {
	out := reCommaDecimal.ReplaceAllString(text, "$1.${2}M")
	out = reMillions.ReplaceAllStringFunc(out, func(m string) string {
		parts := reMillions.FindStringSubmatch(m)
		return strings.ReplaceAll(parts[1], ",", ".") + "M"
	})
	out = rePercent.ReplaceAllString(out, "$1%")
	out = rePointsPerM.ReplaceAllString(out, "pts/M")
	return out
}

// BuildCues derives the cue list for the ordered dialogue segments. Each
// segment's duration is divided evenly across its words (word mode) or its
// fixed-size word chunks (phrase mode). Cues are non-overlapping and
// monotonically increasing, and each segment's cues end exactly at the
// segment boundary.
func (e *CaptionEngine) BuildCues(segments []DialogueSegment) []Cue {
	var cues []Cue
	offset := 0.0

	for _, seg := range segments {
		words := strings.Fields(CompactNumbers(seg.Text))
		if len(words) == 0 || seg.Duration <= 0 {
			offset += seg.Duration
			continue
		}

		if e.cfg.Mode == "word" {
			per := seg.Duration / float64(len(words))
			for i, w := range words {
				start := offset + float64(i)*per
				end := start + per
				if i == len(words)-1 {
					end = offset + seg.Duration
				}
				cues = append(cues, Cue{Start: start, End: end, Text: w, WordLevel: true})
			}
		} else {
			chunks := chunkWords(words, e.cfg.MaxWordsPerChunk)
			start := offset
			for i, chunk := range chunks {
				share := seg.Duration * float64(len(chunk)) / float64(len(words))
				end := start + share
				if i == len(chunks)-1 {
					end = offset + seg.Duration
				}
				cues = append(cues, Cue{Start: start, End: end, Text: strings.Join(chunk, " ")})
				start = end
			}
		}
		offset += seg.Duration
	}
	return cues
}

// chunkWords splits words into runs of at most max words.
func chunkWords(words []string, max int) [][]string {
	if max <= 0 {
		max = 8
	}
	var chunks [][]string
	for len(words) > 0 {
		n := max
		if len(words) < n {
			n = len(words)
		}
		chunks = append(chunks, words[:n])
		words = words[n:]
	}
	return chunks
}

// RenderASS produces the subtitle track for the cue list.
func (e *CaptionEngine) RenderASS(cues []Cue) string {
	var b strings.Builder
	b.WriteString("[Script Info]\n")
	b.WriteString("ScriptType: v4.00+\n")
	b.WriteString("PlayResX: 1080\n")
	b.WriteString("PlayResY: 1920\n")
	b.WriteString("WrapStyle: 2\n\n")

	b.WriteString("[V4+ Styles]\n")
	b.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, OutlineColour, BackColour, Bold, Outline, Shadow, Alignment, MarginL, MarginR, MarginV\n")
	fmt.Fprintf(&b, "Style: Default,%s,%d,&H00FFFFFF,&H00000000,&H7F000000,-1,4,1,2,60,60,%d\n\n",
		e.cfg.FontName, e.cfg.FontSize, e.cfg.MarginVertical)

	b.WriteString("[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, c := range cues {
		text := strings.ReplaceAll(c.Text, "\n", " ")
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n", assTime(c.Start), assTime(c.End), text)
	}
	return b.String()
}

// assTime formats seconds as ASS H:MM:SS.cc.
func assTime(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	cs := int(sec*100 + 0.5)
	h := cs / 360000
	m := (cs / 6000) % 60
	s := (cs / 100) % 60
	c := cs % 100
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, c)
}

// Burn renders the subtitle track into the video as a final pass.
func (e *CaptionEngine) Burn(ctx context.Context, videoPath, assPath, outPath string) error {
	args := []string{
		"-y",
		"-i", videoPath,
		"-vf", fmt.Sprintf("ass=%s", assPath),
		"-c:a", "copy",
		outPath,
	}
	res, err := e.runner.Run(ctx, e.ffmpeg, args...)
	if err != nil {
		return stageError("captions", "subtitle burn-in failed", e.ffmpeg, args, res, err)
	}
	return nil
}
