package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"cvstudio/internal/adapt"
	"cvstudio/internal/database"
	"cvstudio/internal/pdf"
	"cvstudio/internal/storage"
)

// TaskEnqueuer 是处理器用到的 *asynq.Client 子集。
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Deps 携带处理器所需的全部依赖。
type Deps struct {
	Store          *database.Store
	Renderer       *pdf.Renderer
	RenderDefaults pdf.Params
	Objects        storage.ObjectStore
	Queue          TaskEnqueuer
	Redis          *redis.Client
	Gateway        *adapt.Gateway
	ClamdAddr      string
	// AdaptClientLimit 限制每个客户端 IP 每小时的改写次数；0 表示不限制。
	AdaptClientLimit int
	AllowedOrigins   []string
	Logger           *slog.Logger
}

// RegisterRoutes 注册 /v1 下的业务路由。
func RegisterRoutes(router *gin.Engine, deps Deps) {
	cvHandler := NewCVHandler(deps.Store)
	pdfHandler := NewPDFHandler(deps)
	adaptHandler := NewAdaptHandler(deps.Store, deps.Gateway, deps.Redis, deps.AdaptClientLimit)

	v1 := router.Group("/v1")
	{
		cvs := v1.Group("/cvs")
		{
			cvs.GET("", cvHandler.ListCVs)
			cvs.POST("", cvHandler.CreateCV)
			cvs.GET("/:id", cvHandler.GetCV)
			cvs.PUT("/:id", cvHandler.ReplaceCV)
			cvs.DELETE("/:id", pdfHandler.DeleteCV)
			cvs.GET("/:id/timeline", cvHandler.GetTimeline)
			cvs.GET("/:id/timeline/:category", cvHandler.GetTimeline)
			cvs.GET("/:id/skills", cvHandler.GetSkills)
			cvs.GET("/:id/preview", cvHandler.Preview)

			cvs.GET("/:id/pdf", pdfHandler.RenderPDF)
			cvs.POST("/:id/pdf", pdfHandler.RenderPDFWithPhoto)
			cvs.POST("/:id/photo", pdfHandler.UploadPhoto)
			cvs.POST("/:id/render", pdfHandler.EnqueueRender)
			cvs.GET("/:id/download-link", pdfHandler.GetDownloadLink)
		}

		v1.POST("/adapt", adaptHandler.Adapt)
		v1.DELETE("/adapt/sessions/:session_id", adaptHandler.ClearSession)

		if deps.Redis != nil {
			wsHandler := NewWsHandler(deps.Redis, deps.Logger, deps.AllowedOrigins)
			v1.GET("/ws", wsHandler.HandleConnection)
		}
	}
}
