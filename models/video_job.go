package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Job statuses, shared by the API and the worker.
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusSuccess    = "finished"
	JobStatusFailed     = "failed"
	JobStatusCancelled  = "cancelled"
)

// Content types a job can be created with.
const (
	ContentTypeChollo       = "chollo" // bargain analysis
	ContentTypePrediction   = "prediction"
	ContentTypeBreakingNews = "breaking_news"
	ContentTypeAnalysis     = "analysis"
	ContentTypeDocumentary  = "documentary"
)

// JobRequest is the structured content payload a job is created from.
// Immutable after creation; prompt mutations never touch it.
type JobRequest struct {
	ContentType    string   `json:"content_type"`
	PlayerName     string   `json:"player_name"`
	Team           string   `json:"team"`
	Position       string   `json:"position"`
	PriceM         float64  `json:"price_m"`     // fantasy price in millions
	ValueRatio     float64  `json:"value_ratio"` // points per million
	Stats          JobStats `json:"stats"`
	Narrative      string   `json:"narrative"` // free narrative angle
	Dialogues      []string `json:"dialogues"` // one per segment
	SegmentCount   int      `json:"segment_count"`
	ViralStructure bool     `json:"viral_structure"`
}

type JobStats struct {
	Goals   int     `json:"goals"`
	Assists int     `json:"assists"`
	Games   int     `json:"games"`
	Rating  float64 `json:"rating"`
}

// VideoJob is one end-to-end shorts production run.
type VideoJob struct {
	ID           string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Request      JobRequest `gorm:"type:json" json:"request"`
	Status       string     `json:"status"`
	Progress     int        `json:"progress"`
	Message      string     `json:"message"`
	Error        string     `json:"error"`
	SessionDir   string     `json:"sessionDir"`
	VideoUrl     string     `json:"videoUrl"`
	Duration     float64    `json:"duration"`
	TotalCostUSD float64    `json:"totalCostUsd"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	FinishedAt   time.Time  `json:"finishedAt"`
}

func (VideoJob) TableName() string {
	return "video_job"
}

// Go struct -> JSON string for the DB column.
func (r JobRequest) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// JSON string from the DB column -> Go struct.
func (r *JobRequest) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New(fmt.Sprint("failed to unmarshal JSON value:", value))
	}
	return json.Unmarshal(bytes, r)
}

func CreateVideoJob(db *gorm.DB, j *VideoJob) error {
	now := time.Now()
	j.CreatedAt = now
	j.UpdatedAt = now
	return db.Create(j).Error
}

func GetVideoJobByID(db *gorm.DB, id string) (*VideoJob, error) {
	var job VideoJob
	if err := db.First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func ListVideoJobs(db *gorm.DB, limit int) ([]VideoJob, error) {
	var jobs []VideoJob
	if limit <= 0 {
		limit = 50
	}
	err := db.Order("created_at DESC").Limit(limit).Find(&jobs).Error
	return jobs, err
}

// UpdateStatus writes status plus optional message/error in one shot.
func (j *VideoJob) UpdateStatus(db *gorm.DB, status string, message, errMsg string) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if message != "" {
		updates["message"] = message
	}
	if errMsg != "" {
		updates["error"] = errMsg
	}
	if status == JobStatusSuccess || status == JobStatusFailed || status == JobStatusCancelled {
		updates["finished_at"] = time.Now()
	}
	return db.Model(j).Updates(updates).Error
}

// UpdateProgress bumps the progress percentage and message.
func (j *VideoJob) UpdateProgress(db *gorm.DB, progress int, message string) error {
	return db.Model(j).Updates(map[string]interface{}{
		"progress":   progress,
		"message":    message,
		"updated_at": time.Now(),
	}).Error
}

// MarkFinished records the terminal success state with its artifacts.
func (j *VideoJob) MarkFinished(db *gorm.DB, videoURL string, duration, totalCost float64) error {
	return db.Model(j).Updates(map[string]interface{}{
		"status":         JobStatusSuccess,
		"progress":       100,
		"message":        "video ready",
		"video_url":      videoURL,
		"duration":       duration,
		"total_cost_usd": totalCost,
		"updated_at":     time.Now(),
		"finished_at":    time.Now(),
	}).Error
}
