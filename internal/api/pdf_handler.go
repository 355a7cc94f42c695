package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cvstudio/internal/api/middleware"
	"cvstudio/internal/database"
	"cvstudio/internal/pdf"
	"cvstudio/internal/storage"
	"cvstudio/internal/tasks"
)

const downloadLinkTTL = 5 * time.Minute

// PDFHandler 负责同步渲染、异步渲染任务、照片与下载链接。
type PDFHandler struct {
	store     *database.Store
	renderer  *pdf.Renderer
	defaults  pdf.Params
	objects   storage.ObjectStore
	queue     TaskEnqueuer
	clamdAddr string
}

// NewPDFHandler 构造 PDFHandler。
func NewPDFHandler(deps Deps) *PDFHandler {
	return &PDFHandler{
		store:     deps.Store,
		renderer:  deps.Renderer,
		defaults:  deps.RenderDefaults,
		objects:   deps.Objects,
		queue:     deps.Queue,
		clamdAddr: deps.ClamdAddr,
	}
}

func (h *PDFHandler) options(c *gin.Context) (pdf.Params, pdf.Options, bool) {
	var params pdf.Params
	if err := c.ShouldBindQuery(&params); err != nil {
		BadRequest(c, "invalid render options: "+err.Error())
		return params, pdf.Options{}, false
	}
	params = params.WithDefaults(h.defaults)
	opts, err := params.Options()
	if err != nil {
		BadRequest(c, err.Error())
		return params, opts, false
	}
	return params, opts, true
}

// RenderPDF 同步渲染并直接返回 PDF。
func (h *PDFHandler) RenderPDF(c *gin.Context) {
	id, ok := cvID(c)
	if !ok {
		return
	}
	_, opts, ok := h.options(c)
	if !ok {
		return
	}
	h.render(c, id, opts)
}

// RenderPDFWithPhoto 渲染时嵌入 multipart 的 "photo" 字段。
func (h *PDFHandler) RenderPDFWithPhoto(c *gin.Context) {
	id, ok := cvID(c)
	if !ok {
		return
	}
	_, opts, ok := h.options(c)
	if !ok {
		return
	}
	photo, ok := readPhoto(c, "photo", int64(h.renderer.MaxPhotoBytes()), h.clamdAddr)
	if !ok {
		return
	}
	opts.Photo = photo
	h.render(c, id, opts)
}

func (h *PDFHandler) render(c *gin.Context, id uint, opts pdf.Options) {
	log := middleware.LoggerFromContext(c)

	cv, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		Fail(c, log, err, "failed to query cv")
		return
	}

	result, err := h.renderer.Render(c.Request.Context(), *cv, opts)
	if err != nil {
		Fail(c, log, err, "failed to render pdf")
		return
	}

	for _, w := range result.Warnings {
		c.Writer.Header().Add("X-Render-Warning", fmt.Sprintf("%d %s", w.Code, w.Message))
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, "application/pdf", result.PDF)
}

// UploadPhoto 校验并保存简历照片，替换旧照片。
func (h *PDFHandler) UploadPhoto(c *gin.Context) {
	id, ok := cvID(c)
	if !ok {
		return
	}
	log := middleware.LoggerFromContext(c)
	ctx := c.Request.Context()

	info, err := h.store.RenderInfo(ctx, id)
	if err != nil {
		Fail(c, log, err, "failed to query cv")
		return
	}

	raw, ok := readPhoto(c, "photo", int64(h.renderer.MaxPhotoBytes()), h.clamdAddr)
	if !ok {
		return
	}
	photo, err := pdf.PreparePhoto(raw, h.renderer.MaxPhotoBytes())
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	key := storage.PhotoKey(id, "jpg")
	if err := h.objects.Put(ctx, key, photo.Data, photo.MIME()); err != nil {
		Fail(c, log, err, "failed to upload photo")
		return
	}
	if err := h.store.SetPhotoKey(ctx, id, key); err != nil {
		Fail(c, log, err, "failed to save photo")
		return
	}
	if info.PhotoKey != "" {
		if err := h.objects.Delete(ctx, info.PhotoKey); err != nil {
			log.Warn("delete previous photo failed", slog.Any("error", err))
		}
	}

	c.JSON(http.StatusCreated, gin.H{"photo_key": key, "width": photo.Width, "height": photo.Height})
}

// EnqueueRender 投递异步渲染任务，结果通过 WebSocket 推送。
func (h *PDFHandler) EnqueueRender(c *gin.Context) {
	id, ok := cvID(c)
	if !ok {
		return
	}
	params, _, ok := h.options(c)
	if !ok {
		return
	}
	log := middleware.LoggerFromContext(c)
	ctx := c.Request.Context()

	if _, err := h.store.RenderInfo(ctx, id); err != nil {
		Fail(c, log, err, "failed to query cv")
		return
	}

	correlationID := middleware.GetCorrelationID(c)
	task, err := tasks.NewCVRenderTask(tasks.CVRenderPayload{CVID: id, CorrelationID: correlationID, Options: params})
	if err != nil {
		Fail(c, log, err, "failed to create task")
		return
	}
	info, err := h.queue.Enqueue(task)
	if err != nil {
		Fail(c, log, err, "failed to enqueue render")
		return
	}
	if err := h.store.SetRenderStatus(ctx, id, database.RenderStatusPending); err != nil {
		Fail(c, log, err, "failed to update render status")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message":        "render request accepted",
		"task_id":        info.ID,
		"correlation_id": correlationID,
	})
}

// GetDownloadLink 返回最近一次异步渲染结果的限时下载链接。
func (h *PDFHandler) GetDownloadLink(c *gin.Context) {
	id, ok := cvID(c)
	if !ok {
		return
	}
	log := middleware.LoggerFromContext(c)
	ctx := c.Request.Context()

	cv, err := h.store.Get(ctx, id)
	if err != nil {
		Fail(c, log, err, "failed to query cv")
		return
	}
	info, err := h.store.RenderInfo(ctx, id)
	if err != nil {
		Fail(c, log, err, "failed to query cv")
		return
	}
	if info.PdfObjectKey == "" {
		Conflict(c, "pdf not ready")
		return
	}

	url, err := h.objects.PresignedURL(ctx, info.PdfObjectKey, downloadLinkTTL, pdf.Filename(cv.Personal.Name, info.PhotoKey != ""))
	if err != nil {
		if storage.IsNoSuchKey(err) {
			Conflict(c, "pdf not ready")
			return
		}
		Fail(c, log, err, "failed to generate download link")
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url, "status": info.RenderStatus, "expires_in": int(downloadLinkTTL.Seconds())})
}

// DeleteCV 删除 CV 及其所有已存储对象。
func (h *PDFHandler) DeleteCV(c *gin.Context) {
	id, ok := cvID(c)
	if !ok {
		return
	}
	log := middleware.LoggerFromContext(c)
	ctx := c.Request.Context()

	if err := h.store.Delete(ctx, id); err != nil {
		Fail(c, log, err, "failed to delete cv")
		return
	}
	for _, prefix := range storage.CVPrefixes(id) {
		if err := h.objects.DeletePrefix(ctx, prefix); err != nil {
			log.Warn("delete cv objects failed", slog.String("prefix", prefix), slog.Any("error", err))
		}
	}
	c.Status(http.StatusNoContent)
}
