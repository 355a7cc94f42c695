package pdf

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"cvstudio/internal/errcode"
	"cvstudio/internal/metrics"
	"cvstudio/internal/resume"
)

// Backend 把排好版的 Document 转成 PDF 字节。
type Backend interface {
	Name() string
	Render(ctx context.Context, doc *Document) ([]byte, error)
}

// Result 是一次完成的渲染。
type Result struct {
	PDF      []byte    `json:"-"`
	Filename string    `json:"filename"`
	Backend  string    `json:"backend"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// Renderer 持有已注册的后端并限制并发渲染数。
// 可并发使用。
type Renderer struct {
	logger         *slog.Logger
	backends       map[string]Backend
	defaultBackend string
	maxPhotoBytes  int
	slots          *semaphore.Weighted
}

type RendererOption func(*Renderer)

// WithBackend 以 b 的名称注册 b。
func WithBackend(b Backend) RendererOption {
	return func(r *Renderer) { r.backends[b.Name()] = b }
}

func WithDefaultBackend(name string) RendererOption {
	return func(r *Renderer) { r.defaultBackend = name }
}

func WithMaxPhotoBytes(n int) RendererOption {
	return func(r *Renderer) {
		if n > 0 {
			r.maxPhotoBytes = n
		}
	}
}

// WithConcurrency 限制同时进行的渲染数；n <= 0 时使用 GOMAXPROCS。
func WithConcurrency(n int) RendererOption {
	return func(r *Renderer) {
		if n > 0 {
			r.slots = semaphore.NewWeighted(int64(n))
		}
	}
}

// NewRenderer 返回默认注册 fpdf 后端的渲染器。
func NewRenderer(logger *slog.Logger, opts ...RendererOption) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Renderer{
		logger:         logger,
		backends:       map[string]Backend{BackendFPDF: NewFPDFBackend()},
		defaultBackend: BackendFPDF,
		maxPhotoBytes:  DefaultMaxPhotoBytes,
		slots:          semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Backends 列出已注册的后端名称。
func (r *Renderer) Backends() []string {
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MaxPhotoBytes 是照片大小上限。
func (r *Renderer) MaxPhotoBytes() int { return r.maxPhotoBytes }

// Render 为 cv 生成一份 PDF，cv 应已通过校验。
// 照片无效时记为警告，文档照常渲染但不含照片；
// 其他失败均返回 *RenderError，且不返回任何字节。
func (r *Renderer) Render(ctx context.Context, cv resume.CV, opts Options) (*Result, error) {
	opts, err := opts.normalize()
	if err != nil {
		return nil, err
	}

	name := opts.Backend
	if name == "" {
		name = r.defaultBackend
	}
	backend, ok := r.backends[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}

	if err := r.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("wait for render slot: %w", err)
	}
	defer r.slots.Release(1)

	log := r.logger.With(slog.String("backend", name), slog.Uint64("cv_id", uint64(cv.ID)))

	var (
		warnings []Warning
		photo    *Photo
	)
	if opts.Photo != nil {
		photo, err = PreparePhoto(opts.Photo, r.maxPhotoBytes)
		if err != nil {
			log.Warn("photo skipped", slog.Any("error", err))
			warnings = append(warnings, Warning{Code: errcode.ResourceMissing, Message: "photo skipped: " + err.Error()})
			photo = nil
		}
	}

	doc := BuildDocument(cv, opts, photo)

	start := time.Now()
	data, err := backend.Render(ctx, doc)
	if err == nil && !bytes.HasPrefix(data, []byte("%PDF")) {
		err = ErrEmptyOutput
	}
	if err != nil {
		metrics.ObserveRender(name, "error", time.Since(start))
		log.Error("render failed", slog.Any("error", err))
		return nil, &RenderError{Backend: name, Err: err}
	}
	metrics.ObserveRender(name, "ok", time.Since(start))

	return &Result{
		PDF:      data,
		Filename: Filename(cv.Personal.Name, photo != nil),
		Backend:  name,
		Warnings: warnings,
	}, nil
}

// Filename 形如 "CV_{name}.pdf"，姓名中的空格替换为下划线。
func Filename(name string, withPhoto bool) string {
	base := "CV"
	if name = strings.TrimSpace(name); name != "" {
		base += "_" + strings.ReplaceAll(name, " ", "_")
	}
	if withPhoto {
		base += "_with_photo"
	}
	return base + ".pdf"
}
