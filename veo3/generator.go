// Package veo3 drives the KIE-hosted VEO3 video generation API: prompt
// submission, status polling, result download, and the content-policy
// retry loop around them.
package veo3

import "context"

// Status of a provider-side generation task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether polling can stop.
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// SubmitOptions carries the fixed generation parameters. The identity seed
// and reference image keep the presenter consistent across segments.
type SubmitOptions struct {
	AspectRatio       string
	DurationSeconds   int
	IdentitySeed      int
	ReferenceImageURL string
}

// PollResult is one status snapshot of a provider task.
type PollResult struct {
	Status       Status
	ResultURL    string
	ErrorMessage string
}

// Generator is the provider-facing interface. The retry orchestrator only
// talks to this, so tests inject a fake.
type Generator interface {
	// Submit sends a generation request and returns the provider task ID.
	Submit(ctx context.Context, prompt string, opts SubmitOptions) (string, error)

	// Poll returns the current status of a task.
	Poll(ctx context.Context, taskID string) (PollResult, error)

	// Download persists a finished task's result to destPath.
	Download(ctx context.Context, resultURL, destPath string) error
}
