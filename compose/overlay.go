package compose

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"

	"github.com/francisoalfonso/LaLigaFantasySpain-sub003/config"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// OverlaySpec places one animated stats card on the composition timeline.
// Times are absolute seconds on the final video, not segment-relative, so
// placement is independent of how many segments preceded it.
type OverlaySpec struct {
	PlayerName string
	Team       string
	PriceM     float64
	Goals      int
	Assists    int
	Rating     float64

	StartSeconds   float64
	VisibleSeconds float64
	SlideSeconds   float64
	RestingX       int
	RestingY       int
	CardWidth      int
	CardHeight     int
}

// Overlay visibility states. Transitions are purely time-driven.
type OverlayState string

const (
	OverlayHidden    OverlayState = "HIDDEN"
	OverlaySlidingIn OverlayState = "SLIDING_IN"
	OverlayHeld      OverlayState = "HELD"
)

// StateAt returns the card's state at timestamp t.
func (s OverlaySpec) StateAt(t float64) OverlayState {
	switch {
	case t < s.StartSeconds:
		return OverlayHidden
	case t >= s.StartSeconds+s.VisibleSeconds:
		return OverlayHidden
	case t < s.StartSeconds+s.SlideSeconds:
		return OverlaySlidingIn
	default:
		return OverlayHeld
	}
}

// XAt returns the card's horizontal position at timestamp t: linear
// interpolation from fully off-screen left to the resting position over
// the slide duration, then steady. Removal at the window end is a hard
// cut, no fade.
func (s OverlaySpec) XAt(t float64) float64 {
	offscreen := float64(-s.CardWidth)
	switch s.StateAt(t) {
	case OverlayHidden:
		return offscreen
	case OverlaySlidingIn:
		progress := (t - s.StartSeconds) / s.SlideSeconds
		return offscreen + progress*(float64(s.RestingX)-offscreen)
	default:
		return float64(s.RestingX)
	}
}

// FilterExpr builds the ffmpeg overlay filter for the spec: time-gated via
// between(t,..) and sliding via the same linear interpolation XAt uses.
func (s OverlaySpec) FilterExpr() string {
	end := s.StartSeconds + s.VisibleSeconds
	slideEnd := s.StartSeconds + s.SlideSeconds
	xExpr := fmt.Sprintf("if(lt(t\\,%.3f)\\,%d+((t-%.3f)/%.3f)*(%d-%d)\\,%d)",
		slideEnd, -s.CardWidth, s.StartSeconds, s.SlideSeconds, s.RestingX, -s.CardWidth, s.RestingX)
	return fmt.Sprintf("overlay=x='%s':y=%d:enable='between(t\\,%.3f\\,%.3f)'",
		xExpr, s.RestingY, s.StartSeconds, end)
}

// OverlayEngine renders the stats card image and composites it into the
// video.
type OverlayEngine struct {
	cfg    config.OverlayConfig
	ffmpeg string
	runner Runner
}

func NewOverlayEngine(cfg config.OverlayConfig, pipeline config.PipelineConfig) *OverlayEngine {
	return &OverlayEngine{cfg: cfg, ffmpeg: pipeline.FFmpegPath, runner: execRunner{}}
}

// NewOverlayEngineForTests injects a fake runner.
func NewOverlayEngineForTests(cfg config.OverlayConfig, ffmpeg string, runner Runner) *OverlayEngine {
	return &OverlayEngine{cfg: cfg, ffmpeg: ffmpeg, runner: runner}
}

// SpecFor fills an OverlaySpec from the engine config plus the card data
// and time window.
func (e *OverlayEngine) SpecFor(playerName, team string, priceM float64, goals, assists int, rating float64, start, visible float64) OverlaySpec {
	return OverlaySpec{
		PlayerName:     playerName,
		Team:           team,
		PriceM:         priceM,
		Goals:          goals,
		Assists:        assists,
		Rating:         rating,
		StartSeconds:   start,
		VisibleSeconds: visible,
		SlideSeconds:   e.cfg.SlideSeconds,
		RestingX:       e.cfg.RestingX,
		RestingY:       e.cfg.RestingY,
		CardWidth:      e.cfg.CardWidth,
		CardHeight:     e.cfg.CardHeight,
	}
}

// RenderCard draws the fixed-size stats card PNG at cardPath.
func (e *OverlayEngine) RenderCard(spec OverlaySpec, cardPath string) error {
	w, h := spec.CardWidth, spec.CardHeight
	img := image.NewRGBA(image.Rect(0, 0, w, h))

	bg := color.RGBA{R: 16, G: 24, B: 48, A: 235}
	accent := color.RGBA{R: 255, G: 200, B: 40, A: 255}
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}

	draw.Draw(img, img.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)
	// accent strip down the left edge
	draw.Draw(img, image.Rect(0, 0, 6, h), &image.Uniform{C: accent}, image.Point{}, draw.Src)

	line := h / 6
	drawLabel(img, 16, line, spec.PlayerName, white)
	drawLabel(img, 16, line*2, spec.Team, accent)
	drawLabel(img, 16, line*3, fmt.Sprintf("Precio: %.1fM", spec.PriceM), white)
	drawLabel(img, 16, line*4, fmt.Sprintf("G %d  A %d", spec.Goals, spec.Assists), white)
	drawLabel(img, 16, line*5, fmt.Sprintf("Rating %.1f", spec.Rating), white)

	f, err := os.Create(cardPath)
	if err != nil {
		return &StageError{Stage: "overlay", Message: "create card file", Err: err}
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return &StageError{Stage: "overlay", Message: "encode card png", Err: err}
	}
	return nil
}

func drawLabel(img *image.RGBA, x, y int, text string, col color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// Composite overlays the rendered card onto the video per the spec's time
// window and slide animation.
func (e *OverlayEngine) Composite(ctx context.Context, videoPath, cardPath string, spec OverlaySpec, outPath string) error {
	args := []string{
		"-y",
		"-i", videoPath,
		"-i", cardPath,
		"-filter_complex", spec.FilterExpr(),
		"-c:a", "copy",
		outPath,
	}
	res, err := e.runner.Run(ctx, e.ffmpeg, args...)
	if err != nil {
		return stageError("overlay", "overlay compositing failed", e.ffmpeg, args, res, err)
	}
	return nil
}
