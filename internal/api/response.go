package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"cvstudio/internal/adapt"
	"cvstudio/internal/database"
	"cvstudio/internal/pdf"
	"cvstudio/internal/resume"
)

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func BadRequest(c *gin.Context, msg string)      { Error(c, http.StatusBadRequest, msg) }
func NotFound(c *gin.Context, msg string)        { Error(c, http.StatusNotFound, msg) }
func Conflict(c *gin.Context, msg string)        { Error(c, http.StatusConflict, msg) }
func TooManyRequests(c *gin.Context, msg string) { Error(c, http.StatusTooManyRequests, msg) }
func Internal(c *gin.Context, msg string)        { Error(c, http.StatusInternalServerError, msg) }

// Invalid 返回被拒绝 CV 的字段列表。
func Invalid(c *gin.Context, err *resume.ValidationError) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid cv", "fields": err.Fields})
}

// Fail 把领域错误映射为响应；未知错误记录日志，
// 并以 msg 返回 500。
func Fail(c *gin.Context, log *slog.Logger, err error, msg string) {
	var verr *resume.ValidationError
	switch {
	case errors.As(err, &verr):
		Invalid(c, verr)
	case errors.Is(err, database.ErrNotFound):
		NotFound(c, "cv not found")
	case errors.Is(err, pdf.ErrInvalidOptions), errors.Is(err, pdf.ErrUnknownBackend):
		BadRequest(c, err.Error())
	case errors.Is(err, pdf.ErrUnsupportedText):
		Error(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, adapt.ErrEmptyPosting):
		BadRequest(c, err.Error())
	case errors.Is(err, adapt.ErrPostingUnavailable):
		Error(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, adapt.ErrDisabled):
		Error(c, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, adapt.ErrInvalidResponse):
		Error(c, http.StatusBadGateway, "completion service returned an invalid cv")
	default:
		log.Error(msg, slog.Any("error", err))
		Internal(c, msg)
	}
}
