package compose

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/francisoalfonso/LaLigaFantasySpain-sub003/config"
)

// Concatenator joins ordered segment files into one continuous video.
//
// Direct stream concatenation, no cross-fade and no audio fade: adjacent
// segments are authored so the last frame of segment i and the first frame
// of segment i+1 are near-identical, which makes a hard cut imperceptible.
// Correctness of the cut lives upstream in the prompt discipline, not here.
type Concatenator struct {
	ffmpeg  string
	ffprobe string
	runner  Runner
}

func NewConcatenator(cfg config.PipelineConfig) *Concatenator {
	return &Concatenator{ffmpeg: cfg.FFmpegPath, ffprobe: cfg.FFprobePath, runner: execRunner{}}
}

// NewConcatenatorForTests injects a fake runner.
func NewConcatenatorForTests(ffmpeg, ffprobe string, runner Runner) *Concatenator {
	return &Concatenator{ffmpeg: ffmpeg, ffprobe: ffprobe, runner: runner}
}

// Concat joins segmentPaths (plus an optional outro) into outPath using the
// concat demuxer with stream copy.
func (c *Concatenator) Concat(ctx context.Context, segmentPaths []string, outroPath, outPath string) error {
	if len(segmentPaths) == 0 {
		return &StageError{Stage: "concat", Message: "no segments to concatenate"}
	}
	inputs := append([]string{}, segmentPaths...)
	if outroPath != "" {
		if _, err := os.Stat(outroPath); err != nil {
			return &StageError{Stage: "concat", Message: fmt.Sprintf("outro not found: %s", outroPath), Err: err}
		}
		inputs = append(inputs, outroPath)
	}

	listPath := strings.TrimSuffix(outPath, filepath.Ext(outPath)) + "_list.txt"
	var list strings.Builder
	for _, p := range inputs {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		fmt.Fprintf(&list, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return &StageError{Stage: "concat", Message: "write concat list", Err: err}
	}
	defer os.Remove(listPath)

	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		outPath,
	}
	res, err := c.runner.Run(ctx, c.ffmpeg, args...)
	if err != nil {
		return stageError("concat", "ffmpeg concat failed", c.ffmpeg, args, res, err)
	}
	return nil
}

// Probe returns a media file's duration in seconds via ffprobe.
func (c *Concatenator) Probe(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
	res, err := c.runner.Run(ctx, c.ffprobe, args...)
	if err != nil {
		return 0, stageError("probe", "ffprobe failed", c.ffprobe, args, res, err)
	}
	out := strings.TrimSpace(res.Stdout)
	d, perr := strconv.ParseFloat(out, 64)
	if perr != nil {
		return 0, &StageError{Stage: "probe", Message: fmt.Sprintf("unparseable duration %q", out), Err: perr}
	}
	return d, nil
}
