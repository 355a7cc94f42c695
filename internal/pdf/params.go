package pdf

import (
	"fmt"

	"cvstudio/internal/resume"
)

// Params 是 Options 的字符串形式，用于查询参数、任务
// 载荷以及命令行参数。
type Params struct {
	Variant  string  `json:"variant,omitempty" form:"variant"`
	PageSize string  `json:"page_size,omitempty" form:"page_size"`
	Locale   string  `json:"locale,omitempty" form:"locale"`
	Backend  string  `json:"backend,omitempty" form:"backend"`
	MarginMM float64 `json:"margin_mm,omitempty" form:"margin_mm"`
}

// WithDefaults 用 d 填充空字段。
func (p Params) WithDefaults(d Params) Params {
	if p.Variant == "" {
		p.Variant = d.Variant
	}
	if p.PageSize == "" {
		p.PageSize = d.PageSize
	}
	if p.Locale == "" {
		p.Locale = d.Locale
	}
	if p.Backend == "" {
		p.Backend = d.Backend
	}
	if p.MarginMM == 0 {
		p.MarginMM = d.MarginMM
	}
	return p
}

// Options 解析 p，Photo 留空。
func (p Params) Options() (Options, error) {
	size, err := ParsePageSize(p.PageSize)
	if err != nil {
		return Options{}, err
	}
	variant, err := ParseVariant(p.Variant)
	if err != nil {
		return Options{}, err
	}
	loc, err := resume.ParseLocale(p.Locale)
	if err != nil {
		return Options{}, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	if p.MarginMM < 0 {
		return Options{}, fmt.Errorf("%w: margins must not be negative", ErrInvalidOptions)
	}

	opts := Options{PageSize: size, Variant: variant, Locale: loc, Backend: p.Backend}
	if p.MarginMM > 0 {
		opts.Margins = UniformMargins(p.MarginMM)
	}
	return opts, nil
}
