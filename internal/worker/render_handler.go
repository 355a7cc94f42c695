package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"cvstudio/internal/database"
	"cvstudio/internal/errcode"
	"cvstudio/internal/pdf"
	"cvstudio/internal/storage"
	"cvstudio/internal/tasks"
)

// RenderTaskHandler 负责消费 cv:render 任务。
type RenderTaskHandler struct {
	store       *database.Store
	objects     storage.ObjectStore
	redisClient *redis.Client
	renderer    *pdf.Renderer
	defaults    pdf.Params
	logger      *slog.Logger
}

// NewRenderTaskHandler 创建任务处理器。defaults 用于填充任务未指定的选项。
func NewRenderTaskHandler(
	store *database.Store,
	objects storage.ObjectStore,
	redisClient *redis.Client,
	renderer *pdf.Renderer,
	defaults pdf.Params,
	logger *slog.Logger,
) *RenderTaskHandler {
	return &RenderTaskHandler{
		store:       store,
		objects:     objects,
		redisClient: redisClient,
		renderer:    renderer,
		defaults:    defaults,
		logger:      logger,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *RenderTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	payload, err := tasks.ParseCVRenderPayload(t)
	if err != nil {
		log.Error("invalid task payload", slog.Any("error", err))
		return err
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Uint64("cv_id", uint64(payload.CVID)),
	)
	log.Info("starting cv render task")

	cv, err := h.store.Get(ctx, payload.CVID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			log.Warn("cv not found, skipping task")
			return nil
		}
		log.Error("load cv failed", slog.Any("error", err))
		return err
	}

	defer func() {
		if retErr == nil || (!isFinalAsynqAttempt(ctx) && !errors.Is(retErr, asynq.SkipRetry)) {
			return
		}
		if err := h.store.SetRenderStatus(ctx, cv.ID, database.RenderStatusFailed); err != nil {
			log.Error("mark render failed", slog.Any("error", err))
		}
		notify := RenderNotifyMessage{
			Status:        NotifyError,
			CVID:          cv.ID,
			CorrelationID: payload.CorrelationID,
			ErrorCode:     errcode.SystemError,
			ErrorMessage:  strings.TrimSpace(retErr.Error()),
		}
		if err := PublishNotify(ctx, h.redisClient, notify); err != nil {
			log.Error("publish render error notification failed", slog.Any("error", err))
		}
	}()

	opts, err := payload.Options.WithDefaults(h.defaults).Options()
	if err != nil {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	info, err := h.store.RenderInfo(ctx, cv.ID)
	if err != nil {
		return err
	}

	var warnings []pdf.Warning
	if info.PhotoKey != "" {
		photo, err := h.objects.Get(ctx, info.PhotoKey, int64(h.renderer.MaxPhotoBytes()))
		switch {
		case err == nil:
			opts.Photo = photo
		case storage.IsNoSuchKey(err):
			log.Warn("photo object missing, rendering without it", slog.String("photo_key", info.PhotoKey))
			warnings = append(warnings, pdf.Warning{Code: errcode.ResourceMissing, Message: "photo object missing"})
		default:
			log.Error("load photo failed", slog.Any("error", err))
			return err
		}
	}

	result, err := h.renderer.Render(ctx, *cv, opts)
	if err != nil {
		// 参数类错误重试无意义
		if errors.Is(err, pdf.ErrInvalidOptions) || errors.Is(err, pdf.ErrUnknownBackend) || errors.Is(err, pdf.ErrUnsupportedText) {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	}
	warnings = append(warnings, result.Warnings...)

	objectKey := storage.PDFKey(cv.ID)
	if err := h.objects.Put(ctx, objectKey, result.PDF, "application/pdf"); err != nil {
		log.Error("upload pdf failed", slog.Any("error", err))
		return err
	}
	if err := h.store.SetRenderResult(ctx, cv.ID, objectKey); err != nil {
		log.Error("update cv render result failed", slog.Any("error", err))
		return err
	}
	if info.PdfObjectKey != "" && info.PdfObjectKey != objectKey {
		if err := h.objects.Delete(ctx, info.PdfObjectKey); err != nil {
			log.Warn("delete previous pdf failed", slog.Any("error", err))
		}
	}

	notify := RenderNotifyMessage{
		Status:        NotifyCompleted,
		CVID:          cv.ID,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     errcode.OK,
		Filename:      result.Filename,
		Warnings:      warnings,
	}
	if len(warnings) > 0 {
		notify.ErrorCode = errcode.ResourceMissing
		notify.ErrorMessage = warnings[0].Message
		log.Warn("pdf rendered with warnings", slog.Int("warning_count", len(warnings)))
	}
	if err := PublishNotify(ctx, h.redisClient, notify); err != nil {
		log.Error("publish redis notification failed", slog.Any("error", err))
		return err
	}

	log.Info("cv render task completed", slog.String("object_key", objectKey), slog.String("backend", result.Backend))
	return nil
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
