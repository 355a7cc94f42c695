package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"cvstudio/internal/adapt"
	"cvstudio/internal/api/middleware"
	"cvstudio/internal/database"
	"cvstudio/internal/resume"
)

const adaptRateWindow = time.Hour

// AdaptHandler 对外提供改写网关。
type AdaptHandler struct {
	store       *database.Store
	gateway     *adapt.Gateway
	redisClient *redis.Client
	clientLimit int
}

func NewAdaptHandler(store *database.Store, gateway *adapt.Gateway, redisClient *redis.Client, clientLimit int) *AdaptHandler {
	return &AdaptHandler{store: store, gateway: gateway, redisClient: redisClient, clientLimit: clientLimit}
}

type adaptRequest struct {
	CVID      uint             `json:"cv_id"`
	CV        *resume.CV       `json:"cv"`
	Posting   adapt.JobPosting `json:"posting"`
	SessionID string           `json:"session_id" binding:"omitempty,max=64"`
	Locale    string           `json:"locale"`
}

// Adapt 根据职位描述改写简历；同一 session 的历史对话会一并发送。
func (h *AdaptHandler) Adapt(c *gin.Context) {
	log := middleware.LoggerFromContext(c)
	if h.gateway == nil || !h.gateway.Enabled() {
		Fail(c, log, adapt.ErrDisabled, "adaptation disabled")
		return
	}

	var req adaptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	loc, err := resume.ParseLocale(req.Locale)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	if !h.allow(c, log) {
		return
	}

	cv, ok := h.resolveCV(c, req)
	if !ok {
		return
	}

	result, err := h.gateway.Adapt(c.Request.Context(), adapt.Request{
		SessionID: strings.TrimSpace(req.SessionID),
		CV:        cv,
		Posting:   req.Posting,
		Locale:    loc,
	})
	if err != nil {
		Fail(c, log, err, "failed to adapt cv")
		return
	}
	c.JSON(http.StatusOK, result)
}

// ClearSession 清除一个改写会话的历史。
func (h *AdaptHandler) ClearSession(c *gin.Context) {
	if h.gateway == nil {
		Fail(c, middleware.LoggerFromContext(c), adapt.ErrDisabled, "adaptation disabled")
		return
	}
	if err := h.gateway.ClearSession(c.Request.Context(), c.Param("session_id")); err != nil {
		Fail(c, middleware.LoggerFromContext(c), err, "failed to clear session")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdaptHandler) resolveCV(c *gin.Context, req adaptRequest) (resume.CV, bool) {
	switch {
	case req.CV != nil && req.CVID != 0:
		BadRequest(c, "cv and cv_id are mutually exclusive")
		return resume.CV{}, false
	case req.CV != nil:
		cv := *req.CV
		cv.Sanitize()
		if err := cv.Validate(); err != nil {
			Fail(c, middleware.LoggerFromContext(c), err, "failed to validate cv")
			return cv, false
		}
		return cv, true
	case req.CVID != 0:
		cv, err := h.store.Get(c.Request.Context(), req.CVID)
		if err != nil {
			Fail(c, middleware.LoggerFromContext(c), err, "failed to query cv")
			return resume.CV{}, false
		}
		return *cv, true
	default:
		BadRequest(c, "cv or cv_id is required")
		return resume.CV{}, false
	}
}

func (h *AdaptHandler) allow(c *gin.Context, log *slog.Logger) bool {
	if h.redisClient == nil || h.clientLimit <= 0 {
		return true
	}
	key := fmt.Sprintf("adapt_rate:%s", c.ClientIP())
	count, err := incrWithTTL(c.Request.Context(), h.redisClient, key, adaptRateWindow)
	if err != nil {
		// Redis 不可用时放行，由网关自身的速率限制兜底。
		log.Warn("adapt rate counter failed", slog.Any("error", err))
		return true
	}
	if count > int64(h.clientLimit) {
		TooManyRequests(c, "too many adaptation requests")
		return false
	}
	return true
}
