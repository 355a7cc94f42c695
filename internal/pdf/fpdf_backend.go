package pdf

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/go-pdf/fpdf"
)

// BackendFPDF 是原生后端的名称。
const BackendFPDF = "fpdf"

const (
	columnGutter = 8.0
	photoBoxW    = 25.0
	photoBoxH    = 31.0
	chipPadding  = 2.0
	chipGap      = 2.0
	chipsPerRow  = 3
	bulletIndent = 4.0
)

type textStyle struct {
	style  string
	size   float64
	height float64
	color  [3]int
}

var (
	accent = [3]int{31, 58, 95}
	ink    = [3]int{33, 33, 33}
	grey   = [3]int{102, 102, 102}

	styleName     = textStyle{style: "B", size: 20, height: 9, color: ink}
	styleHeadline = textStyle{size: 12, height: 6, color: grey}
	styleContact  = textStyle{size: 9.5, height: 5, color: grey}
	styleSummary  = textStyle{size: 10, height: 5, color: ink}
	styleHeading  = textStyle{style: "B", size: 11, height: 7, color: accent}
	styleTitle    = textStyle{style: "B", size: 10.5, height: 5.5, color: ink}
	styleText     = textStyle{size: 10, height: 5, color: ink}
	styleMuted    = textStyle{style: "I", size: 9, height: 4.6, color: grey}
	styleChip     = textStyle{size: 9, height: 6, color: ink}
)

// FPDFBackend 直接用 go-pdf/fpdf 绘制 Document，不做任何 I/O，相同输入得到相同字节。
//
// 文本使用嵌入的 Unicode 字体。Fonts 按顺序尝试，内置字体总是最后一个候选；
// 某段文本没有任何字体能完整绘制时渲染失败并返回 *UnsupportedTextError。
type FPDFBackend struct {
	// Compress 控制内容流压缩；关闭后文本以 UTF-16BE 明文出现在输出中。
	Compress bool
	Fonts    []*FontFamily
}

func NewFPDFBackend() *FPDFBackend {
	return &FPDFBackend{Compress: true}
}

func (b *FPDFBackend) Name() string { return BackendFPDF }

func (b *FPDFBackend) families() []*FontFamily {
	families := slices.Clone(b.Fonts)
	if !slices.Contains(families, DefaultFontFamily()) {
		families = append(families, DefaultFontFamily())
	}
	return families
}

// Render 分两遍排版：先测量每一列并分配到各页，
// 再按顺序输出各页。
func (b *FPDFBackend) Render(ctx context.Context, doc *Document) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: doc.Page.WidthMM, Ht: doc.Page.HeightMM},
	})
	m := doc.Margins
	pdf.SetMargins(m.Left, m.Top, m.Right)
	pdf.SetAutoPageBreak(false, m.Bottom)
	pdf.SetCompression(b.Compress)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(doc.Created)
	pdf.SetModificationDate(doc.Created)

	families := b.families()
	for _, fam := range families {
		pdf.AddUTF8FontFromBytes(fam.Name, "", fam.Regular)
		pdf.AddUTF8FontFromBytes(fam.Name, "B", fam.bold())
		pdf.AddUTF8FontFromBytes(fam.Name, "I", fam.italic())
	}
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("register fonts: %w", err)
	}

	l := &fpdfLayout{
		pdf:      pdf,
		families: families,
		doc:      doc,
		left:     m.Left,
		top:      m.Top,
		bottom:   doc.Page.HeightMM - m.Bottom,
		width:    doc.Page.WidthMM - m.Left - m.Right,
	}
	pdf.SetTitle(doc.Title, true)
	pdf.SetAuthor(doc.Author, true)
	pdf.SetCreator("cvstudio", false)

	headerBottom := l.layoutHeader()
	l.layoutColumns(headerBottom)
	if len(l.unsupported) > 0 {
		return nil, &UnsupportedTextError{Runes: l.unsupported}
	}
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("layout document: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.emit()

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

type drawOp struct {
	page   int
	x, y   float64
	w      float64
	text   string
	family string
	style  textStyle
	// chip 绘制带边框的单元格，rule 在标题下画线。
	chip bool
	rule bool
}

type fpdfLayout struct {
	pdf         *fpdf.Fpdf
	families    []*FontFamily
	unsupported []rune
	doc         *Document
	left        float64
	top         float64
	bottom      float64
	width       float64
	ops         []drawOp
	pages       int
	photo       *drawOp
}

func (l *fpdfLayout) use(s textStyle, family string) {
	l.pdf.SetFont(family, s.style, s.size)
}

// familyFor 选出第一个能完整绘制 text 的字体；都不能时记录缺失字符，并返回首选字体以便继续排版。
func (l *fpdfLayout) familyFor(text string) string {
	var missing []rune
	for i, fam := range l.families {
		m := fam.Missing(text)
		if len(m) == 0 {
			return fam.Name
		}
		if i == 0 {
			missing = m
			continue
		}
		missing = slices.DeleteFunc(missing, func(r rune) bool { return !slices.Contains(m, r) })
	}
	for _, r := range missing {
		if !slices.Contains(l.unsupported, r) {
			l.unsupported = append(l.unsupported, r)
		}
	}
	return l.families[0].Name
}

// lines 选择字体并按宽度折行。
func (l *fpdfLayout) lines(s textStyle, text string, width float64) ([]string, string) {
	family := l.familyFor(text)
	l.use(s, family)
	width -= 2 * l.pdf.GetCellMargin()
	var out []string
	for _, para := range strings.Split(text, "\n") {
		out = append(out, l.wrap(strings.Fields(para), width)...)
	}
	if len(out) == 0 {
		out = []string{""}
	}
	return out, family
}

func (l *fpdfLayout) wrap(words []string, width float64) []string {
	var lines []string
	line := ""
	for _, word := range words {
		candidate := word
		if line != "" {
			candidate = line + " " + word
		}
		if l.pdf.GetStringWidth(candidate) <= width {
			line = candidate
			continue
		}
		if line != "" {
			lines = append(lines, line)
		}
		// 超宽的词按字符强制断开
		for runes := []rune(word); len(runes) > 1 && l.pdf.GetStringWidth(word) > width; runes = []rune(word) {
			cut := len(runes) - 1
			for cut > 1 && l.pdf.GetStringWidth(string(runes[:cut])) > width {
				cut--
			}
			lines = append(lines, string(runes[:cut]))
			word = string(runes[cut:])
		}
		line = word
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}

// layoutHeader 在第 0 页放置页眉并返回其底边位置。
func (l *fpdfLayout) layoutHeader() float64 {
	h := l.doc.Header
	textWidth := l.width
	if h.Photo != nil {
		textWidth -= photoBoxW + columnGutter
	}

	y := l.top
	add := func(s textStyle, text string) {
		if text == "" {
			return
		}
		lines, family := l.lines(s, text, textWidth)
		for _, line := range lines {
			l.ops = append(l.ops, drawOp{page: 0, x: l.left, y: y, w: textWidth, text: line, family: family, style: s})
			y += s.height
		}
	}

	add(styleName, h.Name)
	add(styleHeadline, h.Headline)
	for _, c := range h.Contact {
		add(styleContact, c)
	}
	if h.Summary != "" {
		y += 2
		add(styleSummary, h.Summary)
	}

	if h.Photo != nil {
		w, ph := fitBox(float64(h.Photo.Width), float64(h.Photo.Height), photoBoxW, photoBoxH)
		l.photo = &drawOp{page: 0, x: l.left + l.width - w, y: l.top, w: w, style: textStyle{height: ph}}
		if bottom := l.top + ph; bottom > y {
			y = bottom
		}
	}

	y += 3
	l.ops = append(l.ops, drawOp{page: 0, x: l.left, y: y, w: l.width, rule: true, style: textStyle{color: accent}})
	l.pages = 1
	return y + 4
}

type cursor struct {
	page int
	y    float64
}

func (l *fpdfLayout) layoutColumns(startY float64) {
	cols := l.doc.Columns
	var total float64
	for _, c := range cols {
		total += c.Weight
	}
	usable := l.width - columnGutter*float64(len(cols)-1)

	x := l.left
	for _, col := range cols {
		w := usable
		if total > 0 {
			w = usable * col.Weight / total
		}
		cur := &cursor{page: 0, y: startY}
		for i, block := range col.Blocks {
			var next *Block
			if i+1 < len(col.Blocks) {
				next = &col.Blocks[i+1]
			}
			l.layoutBlock(cur, x, w, block, next)
		}
		x += w + columnGutter
	}
}

// reserve 在 h 放不下时把光标移到新页。
func (l *fpdfLayout) reserve(cur *cursor, h float64) {
	if cur.y+h <= l.bottom {
		return
	}
	cur.page++
	cur.y = l.top
	if cur.page+1 > l.pages {
		l.pages = cur.page + 1
	}
}

func (l *fpdfLayout) place(cur *cursor, x, w float64, s textStyle, text, family string) {
	l.reserve(cur, s.height)
	l.ops = append(l.ops, drawOp{page: cur.page, x: x, y: cur.y, w: w, text: text, family: family, style: s})
	cur.y += s.height
}

func (l *fpdfLayout) layoutBlock(cur *cursor, x, w float64, b Block, next *Block) {
	switch b.Kind {
	case KindHeading:
		// 标题与其后第一行保持在同一页
		keep := styleHeading.height + 2 + styleTitle.height
		if next != nil && next.Kind == KindChips {
			keep = styleHeading.height + 2 + styleChip.height
		}
		l.reserve(cur, keep)
		if cur.y > l.top+0.01 {
			cur.y += 2
		}
		l.ops = append(l.ops, drawOp{page: cur.page, x: x, y: cur.y, w: w, text: b.Text, family: l.familyFor(b.Text), style: styleHeading})
		cur.y += styleHeading.height
		l.ops = append(l.ops, drawOp{page: cur.page, x: x, y: cur.y, w: w, rule: true, style: textStyle{color: accent}})
		cur.y += 2
	case KindTitle, KindText, KindMuted:
		s := styleText
		switch b.Kind {
		case KindTitle:
			s = styleTitle
		case KindMuted:
			s = styleMuted
		}
		lines, family := l.lines(s, b.Text, w)
		for _, line := range lines {
			l.place(cur, x, w, s, line, family)
		}
	case KindBullets:
		const bullet = "•"
		bulletFamily := l.familyFor(bullet)
		for _, item := range b.Items {
			lines, family := l.lines(styleText, item, w-bulletIndent)
			for i, line := range lines {
				l.reserve(cur, styleText.height)
				if i == 0 {
					l.ops = append(l.ops, drawOp{page: cur.page, x: x, y: cur.y, w: bulletIndent, text: bullet, family: bulletFamily, style: styleText})
				}
				l.ops = append(l.ops, drawOp{page: cur.page, x: x + bulletIndent, y: cur.y, w: w - bulletIndent, text: line, family: family, style: styleText})
				cur.y += styleText.height
			}
		}
	case KindChips:
		l.layoutChips(cur, x, w, b.Items)
	case KindSpacer:
		cur.y += 2.5
	}
}

// layoutChips 每行最多放 chipsPerRow 个带边框单元格，
// 宽度不足时提前换行。
func (l *fpdfLayout) layoutChips(cur *cursor, x, w float64, items []string) {
	rowX, inRow := x, 0
	l.reserve(cur, styleChip.height)
	for _, text := range items {
		family := l.familyFor(text)
		l.use(styleChip, family)
		cw := l.pdf.GetStringWidth(text) + 2*chipPadding
		if cw > w {
			cw = w
		}
		if inRow > 0 && (inRow == chipsPerRow || rowX+cw > x+w) {
			cur.y += styleChip.height + chipGap/2
			l.reserve(cur, styleChip.height)
			rowX, inRow = x, 0
		}
		l.ops = append(l.ops, drawOp{page: cur.page, x: rowX, y: cur.y, w: cw, text: text, family: family, style: styleChip, chip: true})
		rowX += cw + chipGap
		inRow++
	}
	cur.y += styleChip.height + chipGap
}

func (l *fpdfLayout) emit() {
	pdf := l.pdf
	for page := 0; page < l.pages; page++ {
		pdf.AddPage()
		if page == 0 && l.photo != nil {
			opts := fpdf.ImageOptions{ImageType: "JPG"}
			pdf.RegisterImageOptionsReader("photo", opts, bytes.NewReader(l.doc.Header.Photo.Data))
			pdf.ImageOptions("photo", l.photo.x, l.photo.y, l.photo.w, l.photo.style.height, false, opts, 0, "")
		}
		for _, op := range l.ops {
			if op.page != page {
				continue
			}
			c := op.style.color
			switch {
			case op.rule:
				pdf.SetDrawColor(c[0], c[1], c[2])
				pdf.SetLineWidth(0.3)
				pdf.Line(op.x, op.y, op.x+op.w, op.y)
			case op.chip:
				l.use(op.style, op.family)
				pdf.SetDrawColor(grey[0], grey[1], grey[2])
				pdf.SetLineWidth(0.2)
				pdf.SetTextColor(c[0], c[1], c[2])
				pdf.SetXY(op.x, op.y)
				pdf.CellFormat(op.w, op.style.height, op.text, "1", 0, "C", false, 0, "")
			default:
				l.use(op.style, op.family)
				pdf.SetTextColor(c[0], c[1], c[2])
				pdf.SetXY(op.x, op.y)
				pdf.CellFormat(op.w, op.style.height, op.text, "", 0, "L", false, 0, "")
			}
		}
	}
}

// fitBox 按比例缩放 w×h 使其放入 maxW×maxH。
func fitBox(w, h, maxW, maxH float64) (float64, float64) {
	if w <= 0 || h <= 0 {
		return maxW, maxH
	}
	scale := maxW / w
	if s := maxH / h; s < scale {
		scale = s
	}
	return w * scale, h * scale
}
