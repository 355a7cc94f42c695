package pdf

import (
	"errors"
	"fmt"
	"strings"

	"cvstudio/internal/resume"
)

// ErrInvalidOptions 表示渲染选项无法生成页面。
var ErrInvalidOptions = errors.New("invalid render options")

// PageSize 是以毫米计的固定纸张规格。
type PageSize struct {
	Name     string  `json:"name"`
	WidthMM  float64 `json:"width_mm"`
	HeightMM float64 `json:"height_mm"`
}

var (
	PageA4     = PageSize{Name: "A4", WidthMM: 210, HeightMM: 297}
	PageA5     = PageSize{Name: "A5", WidthMM: 148, HeightMM: 210}
	PageLetter = PageSize{Name: "Letter", WidthMM: 215.9, HeightMM: 279.4}
	PageLegal  = PageSize{Name: "Legal", WidthMM: 215.9, HeightMM: 355.6}
)

var pageSizes = []PageSize{PageA4, PageA5, PageLetter, PageLegal}

// ParsePageSize 不区分大小写；名称为空时返回 A4。
func ParsePageSize(name string) (PageSize, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return PageA4, nil
	}
	for _, p := range pageSizes {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return PageSize{}, fmt.Errorf("%w: unknown page size %q", ErrInvalidOptions, name)
}

// WidthIn 与 HeightIn 供浏览器后端使用。
func (p PageSize) WidthIn() float64  { return p.WidthMM / 25.4 }
func (p PageSize) HeightIn() float64 { return p.HeightMM / 25.4 }

// Margins 是以毫米计的页边距。
type Margins struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// UniformMargins 把四边都设为 mm。
func UniformMargins(mm float64) Margins {
	return Margins{Top: mm, Right: mm, Bottom: mm, Left: mm}
}

// DefaultMargins 四边均为 20 mm。
var DefaultMargins = UniformMargins(20)

func (m Margins) isZero() bool { return m == Margins{} }

// Variant 决定文档的分栏结构。
type Variant string

const (
	VariantTwoColumn    Variant = "two-column"
	VariantSingleColumn Variant = "single-column"
)

// ParseVariant 接受 "two-column"/"single-column" 以及简写 "two"/"single"。
func ParseVariant(raw string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "two-column", "two", "2":
		return VariantTwoColumn, nil
	case "single-column", "single", "1":
		return VariantSingleColumn, nil
	default:
		return "", fmt.Errorf("%w: unknown layout variant %q", ErrInvalidOptions, raw)
	}
}

// Options 配置单次渲染。
type Options struct {
	PageSize PageSize
	Margins  Margins
	// Photo 是待嵌入的原始图片。nil 表示没有照片；
	// 非 nil 的空切片视为校验失败的照片。
	Photo   []byte
	Variant Variant
	Locale  resume.Locale
	// Backend 指定已注册的后端；为空时使用渲染器默认值。
	Backend string
}

const minContentMM = 60

func (o Options) normalize() (Options, error) {
	if o.PageSize == (PageSize{}) {
		o.PageSize = PageA4
	}
	if o.Margins.isZero() {
		o.Margins = DefaultMargins
	}
	if o.Variant == "" {
		o.Variant = VariantTwoColumn
	}
	if o.Locale == "" {
		o.Locale = resume.DefaultLocale
	}

	m := o.Margins
	if m.Top < 0 || m.Right < 0 || m.Bottom < 0 || m.Left < 0 {
		return o, fmt.Errorf("%w: margins must not be negative", ErrInvalidOptions)
	}
	if o.PageSize.WidthMM-m.Left-m.Right < minContentMM || o.PageSize.HeightMM-m.Top-m.Bottom < minContentMM {
		return o, fmt.Errorf("%w: margins leave less than %dmm of content on %s", ErrInvalidOptions, minContentMM, o.PageSize.Name)
	}
	if o.Variant != VariantTwoColumn && o.Variant != VariantSingleColumn {
		return o, fmt.Errorf("%w: unknown layout variant %q", ErrInvalidOptions, o.Variant)
	}
	return o, nil
}
