package compose

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/francisoalfonso/LaLigaFantasySpain-sub003/config"
)

func wordEngine() *CaptionEngine {
	return NewCaptionEngineForTests(config.CaptionsConfig{Mode: "word"}, "ffmpeg", &fakeRunner{})
}

func phraseEngine(maxWords int) *CaptionEngine {
	return NewCaptionEngineForTests(config.CaptionsConfig{Mode: "phrase", MaxWordsPerChunk: maxWords}, "ffmpeg", &fakeRunner{})
}

func TestCompactNumbers(t *testing.T) {
	cases := []struct{ in, want string }{
		{"5 coma 5 millones", "5.5M"},
		{"chollo a 5 coma 5 millones de euros", "chollo a 5.5M de euros"},
		{"5.5 millones", "5.5M"},
		{"7,5 millones", "7.5M"},
		{"12 millones", "12M"},
		{"20 por ciento mas", "20% mas"},
		{"1.4 puntos por millon", "1.4 pts/M"},
		{"sin numeros aqui", "sin numeros aqui"},
	}
	for _, tc := range cases {
		if got := CompactNumbers(tc.in); got != tc.want {
			t.Errorf("CompactNumbers(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestBuildCuesWordMode(t *testing.T) {
	cues := wordEngine().BuildCues([]DialogueSegment{{Text: "hola que tal misters", Duration: 8}})
	if len(cues) != 4 {
		t.Fatalf("cue count = %d, want 4", len(cues))
	}
	for i, c := range cues {
		if !c.WordLevel || strings.Contains(c.Text, " ") {
			t.Errorf("cue %d is not a single karaoke word: %+v", i, c)
		}
		if math.Abs((c.End-c.Start)-2.0) > 1e-9 {
			t.Errorf("cue %d span = %f, want 2.0", i, c.End-c.Start)
		}
	}
	if cues[len(cues)-1].End != 8 {
		t.Errorf("last cue end = %f, want segment boundary 8", cues[len(cues)-1].End)
	}
}

func TestBuildCuesMonotonicAcrossSegments(t *testing.T) {
	segs := []DialogueSegment{
		{Text: "uno dos tres", Duration: 8},
		{Text: "cuatro cinco", Duration: 7.5},
		{Text: "seis siete ocho nueve", Duration: 8.2},
	}
	cues := wordEngine().BuildCues(segs)
	total := 8 + 7.5 + 8.2

	prevEnd := 0.0
	for i, c := range cues {
		if c.Start < prevEnd-1e-9 {
			t.Errorf("cue %d overlaps previous: start=%f prevEnd=%f", i, c.Start, prevEnd)
		}
		if c.End <= c.Start {
			t.Errorf("cue %d not forward: %+v", i, c)
		}
		prevEnd = c.End
	}
	if math.Abs(cues[len(cues)-1].End-total) > 1e-9 {
		t.Errorf("final cue end = %f, want %f", cues[len(cues)-1].End, total)
	}
}

func TestBuildCuesPhraseMode(t *testing.T) {
	// 10 words, chunks of 4: 4+4+2 with proportional time shares
	text := "a b c d e f g h i j"
	cues := phraseEngine(4).BuildCues([]DialogueSegment{{Text: text, Duration: 10}})
	if len(cues) != 3 {
		t.Fatalf("cue count = %d, want 3", len(cues))
	}
	wantSpans := []float64{4, 4, 2}
	for i, c := range cues {
		if got := c.End - c.Start; math.Abs(got-wantSpans[i]) > 1e-9 {
			t.Errorf("chunk %d span = %f, want %f", i, got, wantSpans[i])
		}
		if words := len(strings.Fields(c.Text)); words > 4 {
			t.Errorf("chunk %d has %d words, cap is 4", i, words)
		}
		if c.WordLevel {
			t.Errorf("phrase mode cue %d marked word-level", i)
		}
	}
	if cues[2].End != 10 {
		t.Errorf("last chunk end = %f, want 10", cues[2].End)
	}
}

func TestBuildCuesSkipsEmptySegments(t *testing.T) {
	cues := wordEngine().BuildCues([]DialogueSegment{
		{Text: "  ", Duration: 8},
		{Text: "hola", Duration: 8},
	})
	if len(cues) != 1 {
		t.Fatalf("cue count = %d, want 1", len(cues))
	}
	// the silent segment still advances the timeline
	if cues[0].Start != 8 || cues[0].End != 16 {
		t.Errorf("cue = %+v, want start=8 end=16", cues[0])
	}
}

func TestBuildCuesCompactsBeforeTiming(t *testing.T) {
	cues := wordEngine().BuildCues([]DialogueSegment{{Text: "chollo a 5 coma 5 millones", Duration: 8}})
	// "5 coma 5 millones" collapses into one token, so three cues total
	if len(cues) != 3 {
		t.Fatalf("cue count = %d, want 3: %+v", len(cues), cues)
	}
	if cues[2].Text != "5.5M" {
		t.Errorf("compacted token = %q, want 5.5M", cues[2].Text)
	}
}

func TestRenderASS(t *testing.T) {
	e := NewCaptionEngineForTests(config.CaptionsConfig{
		Mode: "word", FontName: "Arial", FontSize: 96, MarginVertical: 280,
	}, "ffmpeg", &fakeRunner{})
	out := e.RenderASS([]Cue{
		{Start: 0, End: 2, Text: "hola"},
		{Start: 2, End: 4.5, Text: "misters"},
	})
	for _, want := range []string{
		"PlayResX: 1080",
		"PlayResY: 1920",
		"Style: Default,Arial,96",
		"Dialogue: 0,0:00:00.00,0:00:02.00,Default,,0,0,0,,hola",
		"Dialogue: 0,0:00:02.00,0:00:04.50,Default,,0,0,0,,misters",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("ASS output missing %q:\n%s", want, out)
		}
	}
}

func TestASSTime(t *testing.T) {
	cases := []struct {
		sec  float64
		want string
	}{
		{0, "0:00:00.00"},
		{2.5, "0:00:02.50"},
		{61.07, "0:01:01.07"},
		{3661.999, "1:01:02.00"},
		{-1, "0:00:00.00"},
	}
	for _, tc := range cases {
		if got := assTime(tc.sec); got != tc.want {
			t.Errorf("assTime(%f) = %q, want %q", tc.sec, got, tc.want)
		}
	}
}

func TestBurnArgs(t *testing.T) {
	runner := &fakeRunner{}
	e := NewCaptionEngineForTests(config.CaptionsConfig{Mode: "word"}, "ffmpeg", runner)
	if err := e.Burn(context.Background(), "in.mp4", "subs.ass", "out.mp4"); err != nil {
		t.Fatalf("Burn: %v", err)
	}
	args := strings.Join(runner.calls[0].args, " ")
	for _, want := range []string{"-vf ass=subs.ass", "-c:a copy", "out.mp4"} {
		if !strings.Contains(args, want) {
			t.Errorf("args %q missing %q", args, want)
		}
	}
}
