package api

import (
	"net/http"
	"time"

	"github.com/francisoalfonso/LaLigaFantasySpain-sub003/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// JobProgressWebSocket pushes job progress from the DB: the worker writes
// status/progress there, this handler only subscribes and forwards.
func JobProgressWebSocket(c *gin.Context) {
	jobID := c.Param("job_id")
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "websocket upgrade failed"})
		return
	}
	defer conn.Close()

	job, err := models.GetVideoJobByID(models.GormDB, jobID)
	if err != nil {
		conn.WriteJSON(map[string]interface{}{"error": "job not found: " + err.Error()})
		return
	}
	_ = conn.WriteJSON(job)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	prevStatus := job.Status
	prevProgress := job.Progress

	for range ticker.C {
		cur, err := models.GetVideoJobByID(models.GormDB, jobID)
		if err != nil {
			continue
		}

		if cur.Status != prevStatus || cur.Progress != prevProgress {
			if err := conn.WriteJSON(cur); err != nil {
				break
			}
			prevStatus = cur.Status
			prevProgress = cur.Progress
		}

		if cur.Status == models.JobStatusSuccess || cur.Status == models.JobStatusFailed || cur.Status == models.JobStatusCancelled {
			_ = conn.WriteJSON(cur)
			break
		}
	}
}
