package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

const (
	SegmentStatusPending    = "pending"
	SegmentStatusProcessing = "processing"
	SegmentStatusCompleted  = "completed"
	SegmentStatusFailed     = "failed"
)

// Narrative roles inside a composition.
const (
	SegmentRoleHook  = "hook"
	SegmentRoleBody  = "body"
	SegmentRoleClose = "close"
)

// AttemptRecord is one generation attempt's audit entry. Append-only per
// segment; returned to the caller on success and terminal failure alike.
type AttemptRecord struct {
	Attempt   int      `json:"attempt"`
	Prompt    string   `json:"prompt"`
	Strategy  string   `json:"strategy"` // mutation strategy applied, "none" for attempt 1
	Outcome   string   `json:"outcome"`  // success | failure
	Category  string   `json:"category,omitempty"`
	Triggers  []string `json:"triggers,omitempty"`
	ElapsedMs int64    `json:"elapsed_ms"`
	CostUSD   float64  `json:"cost_usd"`
	Error     string   `json:"error,omitempty"`
}

type AttemptHistory []AttemptRecord

func (h AttemptHistory) Value() (driver.Value, error) {
	return json.Marshal(h)
}

func (h *AttemptHistory) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New(fmt.Sprint("failed to unmarshal JSON value:", value))
	}
	return json.Unmarshal(bytes, h)
}

// TotalCost sums the accrued cost of every attempt, failed ones included.
func (h AttemptHistory) TotalCost() float64 {
	var total float64
	for _, a := range h {
		total += a.CostUSD
	}
	return total
}

// Segment is one generated clip of a job. Immutable once completed.
type Segment struct {
	ID       string  `gorm:"primaryKey;type:varchar(64)" json:"id"`
	JobId    string  `gorm:"index" json:"jobId"`
	Order    int     `json:"order"`
	Role     string  `json:"role"`
	Status   string  `json:"status"`
	Dialogue string  `json:"dialogue"`
	Duration float64 `json:"duration"`
	// LocalPath is session-scoped and therefore transient; StorageUrl is
	// the durable location.
	LocalPath  string         `json:"localPath"`
	StorageUrl string         `json:"storageUrl"`
	CostUSD    float64        `json:"costUsd"`
	Attempts   AttemptHistory `gorm:"type:json" json:"attempts"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

func (Segment) TableName() string {
	return "segment"
}

func BatchCreateSegments(db *gorm.DB, segments []Segment) error {
	if len(segments) == 0 {
		return nil
	}
	return db.Create(&segments).Error
}

func GetSegmentsByJobID(db *gorm.DB, jobID string) ([]Segment, error) {
	var segments []Segment
	err := db.Where("job_id = ?", jobID).Order("`order` ASC").Find(&segments).Error
	return segments, err
}

// MarkCompleted records the generated artifact for one segment.
func (s *Segment) MarkCompleted(db *gorm.DB, localPath string, duration float64, attempts AttemptHistory) error {
	return db.Model(s).Updates(map[string]interface{}{
		"status":     SegmentStatusCompleted,
		"local_path": localPath,
		"duration":   duration,
		"attempts":   attempts,
		"cost_usd":   attempts.TotalCost(),
		"updated_at": time.Now(),
	}).Error
}

// MarkProcessing flags the row while generation of this segment is in
// flight.
func (s *Segment) MarkProcessing(db *gorm.DB) error {
	return db.Model(s).Updates(map[string]interface{}{
		"status":     SegmentStatusProcessing,
		"updated_at": time.Now(),
	}).Error
}

// MarkFailed records a terminal per-segment failure with its audit trail.
func (s *Segment) MarkFailed(db *gorm.DB, attempts AttemptHistory) error {
	return db.Model(s).Updates(map[string]interface{}{
		"status":     SegmentStatusFailed,
		"attempts":   attempts,
		"cost_usd":   attempts.TotalCost(),
		"updated_at": time.Now(),
	}).Error
}

// RoleForIndex assigns hook/body/close by position in the composition.
func RoleForIndex(index, total int) string {
	switch {
	case index == 0:
		return SegmentRoleHook
	case index == total-1:
		return SegmentRoleClose
	default:
		return SegmentRoleBody
	}
}
