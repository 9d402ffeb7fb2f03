package config

import (
	"testing"
	"time"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.VEO3.AspectRatio != "9:16" || cfg.VEO3.SegmentSeconds != 8 {
		t.Errorf("veo3 defaults = %+v", cfg.VEO3)
	}
	if cfg.VEO3.MaxAttempts != 5 || cfg.VEO3.NicknameFallthrough != "skip" {
		t.Errorf("retry defaults = %+v", cfg.VEO3)
	}
	if cfg.Captions.Mode != "word" || cfg.Captions.MaxWordsPerChunk != 8 {
		t.Errorf("captions defaults = %+v", cfg.Captions)
	}
	if cfg.Pipeline.FFmpegPath != "ffmpeg" || cfg.Pipeline.FFprobePath != "ffprobe" {
		t.Errorf("pipeline defaults = %+v", cfg.Pipeline)
	}
	if cfg.Overlay.SlideSeconds != 0.5 {
		t.Errorf("overlay defaults = %+v", cfg.Overlay)
	}
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.VEO3.MaxAttempts = 3
	cfg.Captions.Mode = "phrase"
	ApplyDefaults(cfg)
	if cfg.VEO3.MaxAttempts != 3 {
		t.Errorf("explicit max_attempts overwritten: %d", cfg.VEO3.MaxAttempts)
	}
	if cfg.Captions.Mode != "phrase" {
		t.Errorf("explicit mode overwritten: %q", cfg.Captions.Mode)
	}
}

func TestValidate(t *testing.T) {
	good := &Config{}
	ApplyDefaults(good)
	good.VEO3.APIBase = "https://api.kie.ai"
	if err := Validate(good); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing api base", func(c *Config) { c.VEO3.APIBase = "" }},
		{"bad captions mode", func(c *Config) { c.Captions.Mode = "paragraph" }},
		{"bad fallthrough", func(c *Config) { c.VEO3.NicknameFallthrough = "maybe" }},
		{"zero attempts", func(c *Config) { c.VEO3.MaxAttempts = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{}
			ApplyDefaults(cfg)
			cfg.VEO3.APIBase = "https://api.kie.ai"
			tc.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("want validation error")
			}
		})
	}
}

func TestDurationHelpers(t *testing.T) {
	v := VEO3Config{
		PollIntervalSeconds: 10,
		PollTimeoutMinutes:  10,
		SubmitFloorSeconds:  6,
		RetryBackoffSeconds: 30,
	}
	if v.PollInterval() != 10*time.Second {
		t.Errorf("PollInterval = %v", v.PollInterval())
	}
	if v.PollTimeout() != 10*time.Minute {
		t.Errorf("PollTimeout = %v", v.PollTimeout())
	}
	if v.SubmitFloor() != 6*time.Second {
		t.Errorf("SubmitFloor = %v", v.SubmitFloor())
	}
	if v.RetryBackoff() != 30*time.Second {
		t.Errorf("RetryBackoff = %v", v.RetryBackoff())
	}
}
