package veo3

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/francisoalfonso/LaLigaFantasySpain-sub003/config"
	"github.com/francisoalfonso/LaLigaFantasySpain-sub003/models"
	"github.com/francisoalfonso/LaLigaFantasySpain-sub003/prompts"
)

// Attempt loop states.
type State string

const (
	StateComposing       State = "COMPOSING"
	StateSubmitted       State = "SUBMITTED"
	StatePolling         State = "POLLING"
	StateSucceeded       State = "SUCCEEDED"
	StateFailedRetryable State = "FAILED_RETRYABLE"
	StateFailedTerminal  State = "FAILED_TERMINAL"
)

// SegmentResult is the outcome of one segment's attempt loop. History is
// populated on success and failure alike so accrued cost is never lost.
type SegmentResult struct {
	Path    string
	Prompt  prompts.Prompt
	History models.AttemptHistory
}

// Orchestrator drives submit -> poll -> classify -> mutate -> resubmit for
// one segment at a time. It blocks its caller for the full generation
// duration; cancellation comes in through the context.
type Orchestrator struct {
	gen        Generator
	composer   *prompts.Composer
	mutator    *prompts.Mutator
	classifier prompts.Classifier
	cfg        config.VEO3Config

	pollInterval time.Duration
	pollTimeout  time.Duration

	// injectable for tests
	sleep func(ctx context.Context, d time.Duration) error
}

func NewOrchestrator(gen Generator, composer *prompts.Composer, mutator *prompts.Mutator, classifier prompts.Classifier, cfg config.VEO3Config) *Orchestrator {
	return &Orchestrator{
		gen:          gen,
		composer:     composer,
		mutator:      mutator,
		classifier:   classifier,
		cfg:          cfg,
		pollInterval: cfg.PollInterval(),
		pollTimeout:  cfg.PollTimeout(),
		sleep:        sleepCtx,
	}
}

// NewOrchestratorForTests injects poll timing and the backoff sleeper.
func NewOrchestratorForTests(gen Generator, composer *prompts.Composer, mutator *prompts.Mutator, classifier prompts.Classifier, cfg config.VEO3Config,
	pollInterval, pollTimeout time.Duration, sleep func(ctx context.Context, d time.Duration) error) *Orchestrator {
	return &Orchestrator{
		gen:          gen,
		composer:     composer,
		mutator:      mutator,
		classifier:   classifier,
		cfg:          cfg,
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
		sleep:        sleep,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// GenerateSegment runs the bounded attempt loop for one segment and
// persists the winning result at destPath.
//
// Content-policy rejections escalate the mutation ladder; rate limits and
// timeouts retry the same prompt after a backoff. Every attempt accrues
// cost regardless of outcome. Exceeding the attempt bound yields a
// *MutationExhaustedError whose history has exactly MaxAttempts records.
func (o *Orchestrator) GenerateSegment(ctx context.Context, req models.JobRequest, segIndex int, destPath string) (SegmentResult, error) {
	prompt, err := o.composer.Compose(req, segIndex)
	if err != nil {
		// fail fast, before any network call and before any cost accrues
		return SegmentResult{}, fmt.Errorf("compose segment %d: %w", segIndex, err)
	}

	history := models.AttemptHistory{}
	for {
		if len(history) >= o.cfg.MaxAttempts {
			return SegmentResult{History: history}, &MutationExhaustedError{SegmentIndex: segIndex, History: history}
		}

		attemptStart := time.Now()
		record := models.AttemptRecord{
			Attempt:  len(history) + 1,
			Prompt:   prompt.Text,
			Strategy: prompt.Strategy,
			CostUSD:  o.cfg.CostPerAttemptUSD,
		}
		log.Printf("[veo3] segment %d attempt %d state=%s (strategy=%s)", segIndex, record.Attempt, StateComposing, prompt.Strategy)

		var failureText string
		taskID, err := o.gen.Submit(ctx, prompt.Text, SubmitOptions{
			AspectRatio:       o.cfg.AspectRatio,
			DurationSeconds:   o.cfg.SegmentSeconds,
			IdentitySeed:      o.cfg.IdentitySeed,
			ReferenceImageURL: o.cfg.ReferenceImageURL,
		})
		if err != nil {
			failureText = err.Error()
		} else {
			log.Printf("[veo3] segment %d task %s state=%s", segIndex, taskID, StateSubmitted)
			res, perr := o.waitForResult(ctx, taskID)
			switch {
			case perr == nil:
				if derr := o.gen.Download(ctx, res.ResultURL, destPath); derr != nil {
					record.Outcome = "failure"
					record.Error = derr.Error()
					record.ElapsedMs = time.Since(attemptStart).Milliseconds()
					history = append(history, record)
					return SegmentResult{History: history}, &TerminalError{
						SegmentIndex: segIndex,
						Category:     prompts.CategoryUnknown,
						Message:      derr.Error(),
						History:      history,
					}
				}
				record.Outcome = "success"
				record.ElapsedMs = time.Since(attemptStart).Milliseconds()
				history = append(history, record)
				log.Printf("[veo3] segment %d state=%s after %d attempt(s)", segIndex, StateSucceeded, len(history))
				return SegmentResult{Path: destPath, Prompt: prompt, History: history}, nil
			default:
				failureText = perr.Error()
			}
		}

		// the provider has no cancel endpoint; polling just stops, and the
		// attempt's cost stays on the books
		if ctx.Err() != nil {
			record.Outcome = "failure"
			record.Error = "cancelled: " + ctx.Err().Error()
			record.ElapsedMs = time.Since(attemptStart).Milliseconds()
			history = append(history, record)
			return SegmentResult{History: history}, fmt.Errorf("segment %d cancelled: %w", segIndex, ctx.Err())
		}

		cls := o.classifier.Classify(failureText, prompt.Text)
		record.Outcome = "failure"
		record.Category = cls.Category
		record.Triggers = cls.TriggerValues()
		record.Error = failureText
		record.ElapsedMs = time.Since(attemptStart).Milliseconds()
		history = append(history, record)

		switch cls.Category {
		case prompts.CategoryContentPolicy:
			if len(history) >= o.cfg.MaxAttempts {
				return SegmentResult{History: history}, &MutationExhaustedError{SegmentIndex: segIndex, History: history}
			}
			next, merr := o.mutator.Mutate(prompt, cls)
			if errors.Is(merr, prompts.ErrNoStrategyAvailable) {
				return SegmentResult{History: history}, &MutationExhaustedError{SegmentIndex: segIndex, History: history}
			}
			if merr != nil {
				return SegmentResult{History: history}, fmt.Errorf("segment %d mutate: %w", segIndex, merr)
			}
			log.Printf("[veo3] segment %d rejected by content policy (triggers=%v), escalating to %s",
				segIndex, record.Triggers, next.Strategy)
			prompt = next

		case prompts.CategoryRateLimit, prompts.CategoryTimeout:
			if len(history) >= o.cfg.MaxAttempts {
				return SegmentResult{History: history}, &MutationExhaustedError{SegmentIndex: segIndex, History: history}
			}
			log.Printf("[veo3] segment %d state=%s (%s), backing off %s and retrying same prompt",
				segIndex, StateFailedRetryable, cls.Category, o.cfg.RetryBackoff())
			if err := o.sleep(ctx, o.cfg.RetryBackoff()); err != nil {
				return SegmentResult{History: history}, fmt.Errorf("segment %d cancelled during backoff: %w", segIndex, err)
			}

		default:
			log.Printf("[veo3] segment %d state=%s (%s)", segIndex, StateFailedTerminal, cls.Category)
			return SegmentResult{History: history}, &TerminalError{
				SegmentIndex: segIndex,
				Category:     cls.Category,
				Message:      failureText,
				History:      history,
			}
		}
	}
}

// waitForResult polls the task at the configured interval until terminal,
// the poll timeout elapses, or the context is cancelled.
func (o *Orchestrator) waitForResult(ctx context.Context, taskID string) (PollResult, error) {
	log.Printf("[veo3] task %s state=%s (interval=%s timeout=%s)", taskID, StatePolling, o.pollInterval, o.pollTimeout)
	timeout := time.After(o.pollTimeout)
	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			return PollResult{}, fmt.Errorf("polling timeout after %s for task %s", o.pollTimeout, taskID)
		case <-ctx.Done():
			return PollResult{}, fmt.Errorf("polling cancelled: %w", ctx.Err())
		case <-ticker.C:
			res, err := o.gen.Poll(ctx, taskID)
			if err != nil {
				// transient poll errors are retried until the deadline
				log.Printf("[veo3] poll error for task %s (retrying): %v", taskID, err)
				continue
			}
			if !res.Status.IsTerminal() {
				continue
			}
			if res.Status == StatusSucceeded {
				return res, nil
			}
			return PollResult{}, fmt.Errorf("generation failed: %s", res.ErrorMessage)
		}
	}
}
