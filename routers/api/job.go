package api

import (
	"log"
	"net/http"
	"time"

	"github.com/francisoalfonso/LaLigaFantasySpain-sub003/models"
	"github.com/francisoalfonso/LaLigaFantasySpain-sub003/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var validContentTypes = map[string]bool{
	models.ContentTypeChollo:       true,
	models.ContentTypePrediction:   true,
	models.ContentTypeBreakingNews: true,
	models.ContentTypeAnalysis:     true,
	models.ContentTypeDocumentary:  true,
}

// CreateVideoJob validates the content request, persists the job and
// enqueues the production run.
func CreateVideoJob(c *gin.Context) {
	var req models.JobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !validContentTypes[req.ContentType] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown content_type: " + req.ContentType})
		return
	}
	if req.PlayerName == "" && req.Narrative == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "player_name or narrative is required"})
		return
	}
	if req.SegmentCount <= 0 {
		req.SegmentCount = 3
	}
	if req.SegmentCount > 10 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "segment_count must be <= 10"})
		return
	}
	if len(req.Dialogues) > 0 && len(req.Dialogues) != req.SegmentCount {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dialogues must match segment_count when provided"})
		return
	}

	job := models.VideoJob{
		ID:      uuid.NewString(),
		Request: req,
		Status:  models.JobStatusPending,
		Message: "video job created",
	}
	if err := models.CreateVideoJob(models.GormDB, &job); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create job failed: " + err.Error()})
		return
	}

	if err := service.EnqueueVideoJob(job.ID); err != nil {
		log.Printf("enqueue failed for job %s: %v", job.ID, err)
		c.JSON(http.StatusOK, gin.H{
			"job_id":  job.ID,
			"message": "job created but enqueue failed, resume it manually",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id":  job.ID,
		"message": "video job queued",
	})
}

// GetVideoJob returns one job with its segments.
func GetVideoJob(c *gin.Context) {
	jobID := c.Param("job_id")
	job, err := models.GetVideoJobByID(models.GormDB, jobID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found: " + err.Error()})
		return
	}
	segments, err := models.GetSegmentsByJobID(models.GormDB, jobID)
	if err != nil {
		log.Printf("load segments for %s failed: %v", jobID, err)
	}
	c.JSON(http.StatusOK, gin.H{"job": job, "segments": segments})
}

// ListVideoJobs returns recent jobs, newest first.
func ListVideoJobs(c *gin.Context) {
	jobs, err := models.ListVideoJobs(models.GormDB, 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// CancelVideoJob stops a running job's polling. Provider-side tasks keep
// running (no cancel endpoint exists); accrued cost stays recorded.
func CancelVideoJob(c *gin.Context) {
	jobID := c.Param("job_id")
	job, err := models.GetVideoJobByID(models.GormDB, jobID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found: " + err.Error()})
		return
	}

	cancelled := service.CancelJob(jobID)
	if !cancelled && job.Status == models.JobStatusPending {
		// never started; just mark it
		if err := job.UpdateStatus(models.GormDB, models.JobStatusCancelled, "cancelled before start", ""); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		cancelled = true
	}
	c.JSON(http.StatusOK, gin.H{"job_id": jobID, "cancelled": cancelled})
}

// ResumeVideoJob re-enqueues a failed or cancelled job. The worker resumes
// from the session manifest, skipping completed segments.
func ResumeVideoJob(c *gin.Context) {
	jobID := c.Param("job_id")
	job, err := models.GetVideoJobByID(models.GormDB, jobID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found: " + err.Error()})
		return
	}
	if job.Status != models.JobStatusFailed && job.Status != models.JobStatusCancelled {
		c.JSON(http.StatusConflict, gin.H{"error": "only failed or cancelled jobs can be resumed, status is " + job.Status})
		return
	}

	if err := job.UpdateStatus(models.GormDB, models.JobStatusPending, "resume requested", ""); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := service.EnqueueVideoJob(jobID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "enqueue failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"job_id": jobID, "message": "job re-enqueued", "resumed_at": time.Now()})
}

// GetJobSegments returns the per-segment records including attempt
// histories, the full forensic trail.
func GetJobSegments(c *gin.Context) {
	jobID := c.Param("job_id")
	segments, err := models.GetSegmentsByJobID(models.GormDB, jobID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"segments": segments})
}
