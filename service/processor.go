package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/francisoalfonso/LaLigaFantasySpain-sub003/compose"
	"github.com/francisoalfonso/LaLigaFantasySpain-sub003/config"
	"github.com/francisoalfonso/LaLigaFantasySpain-sub003/models"
	"github.com/francisoalfonso/LaLigaFantasySpain-sub003/prompts"
	"github.com/francisoalfonso/LaLigaFantasySpain-sub003/session"
	"github.com/francisoalfonso/LaLigaFantasySpain-sub003/veo3"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

// Cancel registry: jobID -> cancelFunc for the running pipeline. The HTTP
// API cancels through here; the provider has no cancel endpoint, so
// cancellation only stops local polling.
var jobCancelRegistry = struct {
	sync.RWMutex
	m map[string]context.CancelFunc
}{
	m: make(map[string]context.CancelFunc),
}

func registerJobCancel(jobID string, cancel context.CancelFunc) {
	jobCancelRegistry.Lock()
	defer jobCancelRegistry.Unlock()
	jobCancelRegistry.m[jobID] = cancel
}

func unregisterJobCancel(jobID string) {
	jobCancelRegistry.Lock()
	defer jobCancelRegistry.Unlock()
	delete(jobCancelRegistry.m, jobID)
}

// CancelJob cancels a running job's local polling. Reports whether a
// running job was found.
func CancelJob(jobID string) bool {
	jobCancelRegistry.Lock()
	defer jobCancelRegistry.Unlock()
	if cancel, ok := jobCancelRegistry.m[jobID]; ok {
		cancel()
		delete(jobCancelRegistry.m, jobID)
		return true
	}
	return false
}

// Processor consumes video jobs from the queue.
type Processor struct {
	DB  *gorm.DB
	gen veo3.Generator
}

func NewProcessor(db *gorm.DB) *Processor {
	// one shared client so every concurrent job sits behind the same
	// account-level submission floor
	return &Processor{
		DB:  db,
		gen: veo3.NewClient(config.AppConfig.VEO3),
	}
}

// StartProcessor launches the asynq consumer.
func (p *Processor) StartProcessor(concurrency int) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     config.AppConfig.Redis.Addr,
			Password: config.AppConfig.Redis.Password,
		},
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeGenerateVideo, p.HandleGenerateVideoTask)

	log.Printf("Starting video processor with concurrency %d...", concurrency)
	go func() {
		if err := srv.Run(mux); err != nil {
			log.Fatalf("could not run asynq server: %v", err)
		}
	}()
}

// HandleGenerateVideoTask runs one job end to end.
func (p *Processor) HandleGenerateVideoTask(ctx context.Context, t *asynq.Task) error {
	var payload VideoTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	job, err := models.GetVideoJobByID(p.DB, payload.JobID)
	if err != nil {
		return fmt.Errorf("job not found: %v", err)
	}
	log.Printf("Processing job %s | type=%s player=%s", job.ID, job.Request.ContentType, job.Request.PlayerName)

	if err := job.UpdateStatus(p.DB, models.JobStatusProcessing, "pipeline started", ""); err != nil {
		log.Printf("UpdateStatus processing failed: %v", err)
	}

	sess, err := session.Open(config.AppConfig.Pipeline.Workdir, job.ID, job.Request)
	if err != nil {
		job.UpdateStatus(p.DB, models.JobStatusFailed, "", fmt.Sprintf("session open failed: %v", err))
		return nil
	}
	if job.SessionDir == "" {
		p.DB.Model(job).Update("session_dir", sess.Dir)
	}

	segments, err := p.ensureSegmentRows(job)
	if err != nil {
		job.UpdateStatus(p.DB, models.JobStatusFailed, "", fmt.Sprintf("segment rows: %v", err))
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	registerJobCancel(job.ID, cancel)
	defer unregisterJobCancel(job.ID)

	pipeline := p.buildPipeline(job, segments)
	result, err := pipeline.Run(runCtx, job.Request, sess)
	if err != nil {
		p.recordFailure(job, sess, err)
		return nil // business failure: no asynq-level retry
	}

	videoURL, err := UploadVideo(result.OutputPath, job.ID)
	if err != nil {
		job.UpdateStatus(p.DB, models.JobStatusFailed, "", fmt.Sprintf("upload failed: %v", err))
		return nil
	}

	if err := job.MarkFinished(p.DB, videoURL, result.Duration, result.TotalCostUSD); err != nil {
		log.Printf("MarkFinished failed: %v", err)
	}
	if err := sess.Cleanup(); err != nil {
		log.Printf("session cleanup failed (non-fatal): %v", err)
	}
	log.Printf("Job %s finished: %.1fs, %.2f USD, %s", job.ID, result.Duration, result.TotalCostUSD, videoURL)
	return nil
}

// buildPipeline assembles the per-job pipeline with DB-backed observers.
func (p *Processor) buildPipeline(job *models.VideoJob, segments []models.Segment) *Pipeline {
	cfg := config.AppConfig
	composer := prompts.NewComposer(cfg.VEO3)
	mutator := prompts.NewMutator(composer, cfg.VEO3)
	classifier := prompts.NewPatternClassifier()
	orchestrator := veo3.NewOrchestrator(p.gen, composer, mutator, classifier, cfg.VEO3)

	return &Pipeline{
		Orchestrator: orchestrator,
		Concat:       compose.NewConcatenator(cfg.Pipeline),
		Captions:     compose.NewCaptionEngine(cfg.Captions, cfg.Pipeline),
		Overlay:      compose.NewOverlayEngine(cfg.Overlay, cfg.Pipeline),
		VEO3:         cfg.VEO3,
		PipelineCfg:  cfg.Pipeline,
		OnProgress: func(percent int, message string) {
			if err := job.UpdateProgress(p.DB, percent, message); err != nil {
				log.Printf("progress update failed: %v", err)
			}
		},
		OnSegmentStart: func(index int) {
			if index >= len(segments) {
				return
			}
			if err := segments[index].MarkProcessing(p.DB); err != nil {
				log.Printf("segment %d DB update failed: %v", index, err)
			}
		},
		OnSegment: func(index int, cp session.SegmentCheckpoint) {
			if index >= len(segments) {
				return
			}
			seg := segments[index]
			path := cp.File
			if err := seg.MarkCompleted(p.DB, path, cp.Duration, cp.Attempts); err != nil {
				log.Printf("segment %d DB update failed: %v", index, err)
			}
		},
		OnSegmentFail: func(index int, attempts models.AttemptHistory) {
			if index >= len(segments) {
				return
			}
			if err := segments[index].MarkFailed(p.DB, attempts); err != nil {
				log.Printf("segment %d DB update failed: %v", index, err)
			}
		},
	}
}

// ensureSegmentRows creates the per-segment DB rows on first run and
// returns them ordered.
func (p *Processor) ensureSegmentRows(job *models.VideoJob) ([]models.Segment, error) {
	existing, err := models.GetSegmentsByJobID(p.DB, job.ID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}
	var rows []models.Segment
	now := time.Now()
	for i := 0; i < job.Request.SegmentCount; i++ {
		dialogue := ""
		if i < len(job.Request.Dialogues) {
			dialogue = job.Request.Dialogues[i]
		}
		rows = append(rows, models.Segment{
			ID:        uuid.NewString(),
			JobId:     job.ID,
			Order:     i,
			Role:      models.RoleForIndex(i, job.Request.SegmentCount),
			Status:    models.SegmentStatusPending,
			Dialogue:  dialogue,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	if err := models.BatchCreateSegments(p.DB, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// recordFailure writes the structured forensic report: every attempt, its
// prompt variant and classified cause, plus accrued cost.
func (p *Processor) recordFailure(job *models.VideoJob, sess *session.Session, runErr error) {
	status := models.JobStatusFailed
	if errors.Is(runErr, context.Canceled) {
		status = models.JobStatusCancelled
	}

	report := map[string]interface{}{
		"error":          runErr.Error(),
		"total_cost_usd": sess.Manifest.TotalCost(),
	}
	var exhausted *veo3.MutationExhaustedError
	var terminal *veo3.TerminalError
	switch {
	case errors.As(runErr, &exhausted):
		report["category"] = "MUTATION_EXHAUSTED"
		report["segment"] = exhausted.SegmentIndex
		report["attempts"] = exhausted.History
	case errors.As(runErr, &terminal):
		report["category"] = terminal.Category
		report["segment"] = terminal.SegmentIndex
		report["attempts"] = terminal.History
	default:
		var stage *compose.StageError
		if errors.As(runErr, &stage) {
			report["category"] = "SUBPROCESS_FAILURE"
			report["stage"] = stage.Stage
			report["command_log"] = stage.Log
		}
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		reportJSON = []byte(runErr.Error())
	}
	if err := job.UpdateStatus(p.DB, status, "", string(reportJSON)); err != nil {
		log.Printf("failure status update failed: %v", err)
	}
	log.Printf("Job %s failed: %v (accrued cost %.2f USD)", job.ID, runErr, sess.Manifest.TotalCost())
}
