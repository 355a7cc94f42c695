package pdf

import (
	"log/slog"

	"cvstudio/internal/config"
)

// customFontName 是配置字体在 PDF 中的族名。
const customFontName = "custom"

// NewRendererFromConfig 注册 fpdf、rod、chromedp 三个后端并应用配置的限制。
// 配置了字体文件时，fpdf 后端优先使用它，内置字体作为后备。
func NewRendererFromConfig(cfg config.RenderConfig, logger *slog.Logger) (*Renderer, error) {
	native := NewFPDFBackend()
	if cfg.FontFile != "" {
		fam, err := LoadFontFamily(customFontName, cfg.FontFile, cfg.FontBoldFile, cfg.FontItalicFile)
		if err != nil {
			return nil, err
		}
		native.Fonts = []*FontFamily{fam}
	}
	return NewRenderer(logger,
		WithBackend(native),
		WithBackend(NewRodBackend(cfg.ChromiumBin, cfg.BrowserTimeout)),
		WithBackend(NewChromedpBackend(cfg.ChromiumBin, cfg.BrowserTimeout)),
		WithDefaultBackend(cfg.Backend),
		WithMaxPhotoBytes(cfg.MaxPhotoBytes),
		WithConcurrency(cfg.Concurrency),
	), nil
}

// DefaultParams 是请求未指定时使用的参数。
func DefaultParams(cfg config.RenderConfig) Params {
	return Params{
		Variant:  cfg.Variant,
		PageSize: cfg.PageSize,
		Locale:   cfg.Locale,
		Backend:  cfg.Backend,
		MarginMM: cfg.MarginMM,
	}
}
