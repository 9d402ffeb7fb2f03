package routers

import (
	"github.com/francisoalfonso/LaLigaFantasySpain-sub003/routers/api"

	"github.com/gin-gonic/gin"
)

func InitRouter() *gin.Engine {
	r := gin.Default()
	r.Static("/static", "./static")
	v1 := r.Group("/v1/api")
	{
		v1.POST("/videos", api.CreateVideoJob)
		v1.GET("/videos", api.ListVideoJobs)
		v1.GET("/videos/:job_id", api.GetVideoJob)
		v1.DELETE("/videos/:job_id", api.CancelVideoJob)
		v1.POST("/videos/:job_id/resume", api.ResumeVideoJob)
		v1.GET("/videos/:job_id/segments", api.GetJobSegments)
	}
	r.GET("/videos/:job_id/wss", api.JobProgressWebSocket)
	return r
}
