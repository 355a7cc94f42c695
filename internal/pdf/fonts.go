package pdf

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/image/font/sfnt"
)

// 内置 DejaVu Sans Condensed，覆盖拉丁、希腊、西里尔字母；中日韩文字需另行配置字体。
var (
	//go:embed fonts/DejaVuSansCondensed.ttf
	dejaVuRegular []byte
	//go:embed fonts/DejaVuSansCondensed-Bold.ttf
	dejaVuBold []byte
	//go:embed fonts/DejaVuSansCondensed-Oblique.ttf
	dejaVuItalic []byte
)

// DefaultFontName 是内置字体在 PDF 中注册的族名。
const DefaultFontName = "dejavu"

// ErrUnsupportedText 表示文本中存在所有已注册字体都无法绘制的字符。
var ErrUnsupportedText = errors.New("text has characters no font can draw")

// UnsupportedTextError 列出无法绘制的字符，按首次出现的顺序排列。
type UnsupportedTextError struct {
	Runes []rune
}

func (e *UnsupportedTextError) Error() string {
	quoted := make([]string, 0, len(e.Runes))
	for _, r := range e.Runes {
		quoted = append(quoted, fmt.Sprintf("%q (U+%04X)", r, r))
	}
	return fmt.Sprintf("%v: %s", ErrUnsupportedText, strings.Join(quoted, ", "))
}

func (e *UnsupportedTextError) Is(target error) bool {
	return target == ErrUnsupportedText
}

// FontFamily 是一组 TrueType 字体数据。Bold、Italic 为空时退回 Regular。
type FontFamily struct {
	Name    string
	Regular []byte
	Bold    []byte
	Italic  []byte

	once sync.Once
	face *sfnt.Font
	err  error
}

var defaultFamily = &FontFamily{
	Name:    DefaultFontName,
	Regular: dejaVuRegular,
	Bold:    dejaVuBold,
	Italic:  dejaVuItalic,
}

// DefaultFontFamily 返回内置字体。
func DefaultFontFamily() *FontFamily { return defaultFamily }

// LoadFontFamily 从磁盘读取 TTF 文件；bold 与 italic 可以为空。
func LoadFontFamily(name, regular, bold, italic string) (*FontFamily, error) {
	if name == "" || strings.EqualFold(name, DefaultFontName) {
		return nil, fmt.Errorf("font family name %q is reserved or empty", name)
	}
	fam := &FontFamily{Name: strings.ToLower(name)}
	for _, f := range []struct {
		path string
		dst  *[]byte
	}{{regular, &fam.Regular}, {bold, &fam.Bold}, {italic, &fam.Italic}} {
		if f.path == "" {
			continue
		}
		data, err := os.ReadFile(f.path)
		if err != nil {
			return nil, fmt.Errorf("read font file: %w", err)
		}
		*f.dst = data
	}
	if len(fam.Regular) == 0 {
		return nil, errors.New("font family needs a regular face")
	}
	if _, err := fam.parsed(); err != nil {
		return nil, err
	}
	return fam, nil
}

func (f *FontFamily) parsed() (*sfnt.Font, error) {
	f.once.Do(func() {
		f.face, f.err = sfnt.Parse(f.Regular)
		if f.err != nil {
			f.err = fmt.Errorf("parse font %s: %w", f.Name, f.err)
		}
	})
	return f.face, f.err
}

func (f *FontFamily) bold() []byte {
	if len(f.Bold) > 0 {
		return f.Bold
	}
	return f.Regular
}

func (f *FontFamily) italic() []byte {
	if len(f.Italic) > 0 {
		return f.Italic
	}
	return f.Regular
}

// Missing 返回 text 中本字体没有字形的字符（空白与控制字符除外）。
// fpdf 的 CID 映射只覆盖基本多文种平面，平面外的字符一律视为缺失。
func (f *FontFamily) Missing(text string) []rune {
	face, err := f.parsed()
	var (
		buf     sfnt.Buffer
		missing []rune
		seen    map[rune]bool
	)
	for _, r := range text {
		if unicode.IsSpace(r) || unicode.IsControl(r) || seen[r] {
			continue
		}
		covered := false
		if err == nil && r <= 0xFFFF {
			idx, gerr := face.GlyphIndex(&buf, r)
			covered = gerr == nil && idx != 0
		}
		if !covered {
			if seen == nil {
				seen = make(map[rune]bool)
			}
			seen[r] = true
			missing = append(missing, r)
		}
	}
	return missing
}
