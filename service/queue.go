package service

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/francisoalfonso/LaLigaFantasySpain-sub003/config"

	"github.com/hibiken/asynq"
)

const (
	TypeGenerateVideo = "video:generate"
)

type VideoTaskPayload struct {
	JobID string `json:"job_id"`
}

var QueueClient *asynq.Client

// InitQueue connects the asynq producer.
func InitQueue() {
	QueueClient = asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.Redis.Addr,
		Password: config.AppConfig.Redis.Password,
	})
}

// EnqueueVideoJob queues one end-to-end production run.
func EnqueueVideoJob(jobID string) error {
	payload, err := json.Marshal(VideoTaskPayload{JobID: jobID})
	if err != nil {
		return fmt.Errorf("marshal payload failed: %w", err)
	}

	task := asynq.NewTask(TypeGenerateVideo, payload,
		asynq.MaxRetry(0),             // the pipeline owns its own retry policy
		asynq.Timeout(60*time.Minute), // several minutes per segment, sequential
		asynq.Retention(24*time.Hour), // keep results in Redis for inspection
	)

	info, err := QueueClient.Enqueue(task)
	if err != nil {
		return fmt.Errorf("enqueue failed: %w", err)
	}

	log.Printf("[Queue] video job enqueued: job=%s asynq=%s", jobID, info.ID)
	return nil
}
