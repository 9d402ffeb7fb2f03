package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Config is loaded once at startup and treated as read-only afterwards.
// Component packages receive the sub-structs they need at construction
// instead of reaching for the global.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	MySQL struct {
		DSN string `yaml:"dsn"`
	} `yaml:"mysql"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
	} `yaml:"redis"`
	MinIO struct {
		Endpoint  string `yaml:"endpoint"`
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
		Bucket    string `yaml:"bucket"`
		UseSSL    bool   `yaml:"use_ssl"`
		Domain    string `yaml:"domain"`
	} `yaml:"minio"`
	VEO3     VEO3Config     `yaml:"veo3"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Captions CaptionsConfig `yaml:"captions"`
	Overlay  OverlayConfig  `yaml:"overlay"`
}

// VEO3Config drives the generation provider adapter and the retry loop.
type VEO3Config struct {
	APIBase             string  `yaml:"api_base"`
	APIKey              string  `yaml:"api_key"`
	IdentitySeed        int     `yaml:"identity_seed"`
	ReferenceImageURL   string  `yaml:"reference_image_url"`
	AspectRatio         string  `yaml:"aspect_ratio"`
	SegmentSeconds      int     `yaml:"segment_seconds"`
	PollIntervalSeconds int     `yaml:"poll_interval_seconds"`
	PollTimeoutMinutes  int     `yaml:"poll_timeout_minutes"`
	SubmitFloorSeconds  int     `yaml:"submit_floor_seconds"`
	MaxAttempts         int     `yaml:"max_attempts"`
	RetryBackoffSeconds int     `yaml:"retry_backoff_seconds"`
	CostPerAttemptUSD   float64 `yaml:"cost_per_attempt_usd"`
	PromptMaxChars      int     `yaml:"prompt_max_chars"`
	DialogueMaxChars    int     `yaml:"dialogue_max_chars"`
	// skip: an entity with no nickname mapping falls through to the
	// role-descriptor rung. fail: the ladder stops there.
	NicknameFallthrough string `yaml:"nickname_fallthrough"`
}

// PipelineConfig holds filesystem and tooling paths for composition.
type PipelineConfig struct {
	Workdir     string `yaml:"workdir"`
	OutroPath   string `yaml:"outro_path"`
	FFmpegPath  string `yaml:"ffmpeg_path"`
	FFprobePath string `yaml:"ffprobe_path"`
}

type CaptionsConfig struct {
	Mode             string `yaml:"mode"` // word | phrase
	MaxWordsPerChunk int    `yaml:"max_words_per_chunk"`
	FontName         string `yaml:"font_name"`
	FontSize         int    `yaml:"font_size"`
	MarginVertical   int    `yaml:"margin_vertical"`
}

type OverlayConfig struct {
	CardWidth    int     `yaml:"card_width"`
	CardHeight   int     `yaml:"card_height"`
	SlideSeconds float64 `yaml:"slide_seconds"`
	RestingX     int     `yaml:"resting_x"`
	RestingY     int     `yaml:"resting_y"`
}

var AppConfig *Config

// InitConfig loads config/config.yaml, applies defaults and env overrides.
func InitConfig() {
	f, err := os.Open("config/config.yaml")
	if err != nil {
		log.Fatalf("open config failed: %v", err)
	}
	defer f.Close()
	cfg := &Config{}
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		log.Fatalf("parse config failed: %v", err)
	}
	ApplyDefaults(cfg)
	// API key never lives in the YAML file
	if v := os.Getenv("KIE_API_KEY"); v != "" {
		cfg.VEO3.APIKey = v
	}
	if err := Validate(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	AppConfig = cfg
}

// ApplyDefaults fills zero values with the documented defaults.
func ApplyDefaults(cfg *Config) {
	v := &cfg.VEO3
	if v.AspectRatio == "" {
		v.AspectRatio = "9:16"
	}
	if v.SegmentSeconds == 0 {
		v.SegmentSeconds = 8
	}
	if v.PollIntervalSeconds == 0 {
		v.PollIntervalSeconds = 10
	}
	if v.PollTimeoutMinutes == 0 {
		v.PollTimeoutMinutes = 10
	}
	if v.SubmitFloorSeconds == 0 {
		v.SubmitFloorSeconds = 6
	}
	if v.MaxAttempts == 0 {
		v.MaxAttempts = 5
	}
	if v.RetryBackoffSeconds == 0 {
		v.RetryBackoffSeconds = 30
	}
	if v.CostPerAttemptUSD == 0 {
		v.CostPerAttemptUSD = 0.30
	}
	if v.PromptMaxChars == 0 {
		v.PromptMaxChars = 2000
	}
	if v.DialogueMaxChars == 0 {
		v.DialogueMaxChars = 500
	}
	if v.NicknameFallthrough == "" {
		v.NicknameFallthrough = "skip"
	}

	p := &cfg.Pipeline
	if p.Workdir == "" {
		p.Workdir = "output/sessions"
	}
	if p.FFmpegPath == "" {
		p.FFmpegPath = "ffmpeg"
	}
	if p.FFprobePath == "" {
		p.FFprobePath = "ffprobe"
	}

	c := &cfg.Captions
	if c.Mode == "" {
		c.Mode = "word"
	}
	if c.MaxWordsPerChunk == 0 {
		c.MaxWordsPerChunk = 8
	}
	if c.FontName == "" {
		c.FontName = "Arial"
	}
	if c.FontSize == 0 {
		c.FontSize = 64
	}
	if c.MarginVertical == 0 {
		c.MarginVertical = 320
	}

	o := &cfg.Overlay
	if o.CardWidth == 0 {
		o.CardWidth = 320
	}
	if o.CardHeight == 0 {
		o.CardHeight = 180
	}
	if o.SlideSeconds == 0 {
		o.SlideSeconds = 0.5
	}
	if o.RestingX == 0 {
		o.RestingX = 40
	}
	if o.RestingY == 0 {
		o.RestingY = 200
	}
}

// Validate rejects configurations the pipeline cannot run with.
func Validate(cfg *Config) error {
	if cfg.VEO3.APIBase == "" {
		return fmt.Errorf("veo3.api_base is required")
	}
	if cfg.Captions.Mode != "word" && cfg.Captions.Mode != "phrase" {
		return fmt.Errorf("captions.mode must be word or phrase, got %q", cfg.Captions.Mode)
	}
	if cfg.VEO3.NicknameFallthrough != "skip" && cfg.VEO3.NicknameFallthrough != "fail" {
		return fmt.Errorf("veo3.nickname_fallthrough must be skip or fail, got %q", cfg.VEO3.NicknameFallthrough)
	}
	if cfg.VEO3.MaxAttempts < 1 {
		return fmt.Errorf("veo3.max_attempts must be >= 1")
	}
	return nil
}

// PollInterval returns the status poll spacing as a duration.
func (v VEO3Config) PollInterval() time.Duration {
	return time.Duration(v.PollIntervalSeconds) * time.Second
}

// PollTimeout returns the overall per-task poll deadline.
func (v VEO3Config) PollTimeout() time.Duration {
	return time.Duration(v.PollTimeoutMinutes) * time.Minute
}

// SubmitFloor returns the minimum spacing between provider submissions.
func (v VEO3Config) SubmitFloor() time.Duration {
	return time.Duration(v.SubmitFloorSeconds) * time.Second
}

// RetryBackoff returns the same-prompt retry delay.
func (v VEO3Config) RetryBackoff() time.Duration {
	return time.Duration(v.RetryBackoffSeconds) * time.Second
}
