package pdf

import (
	"strings"
	"time"

	"cvstudio/internal/resume"
)

// BlockKind 决定块的绘制方式，其值同时用作 CSS class。
type BlockKind string

const (
	KindHeading BlockKind = "heading"
	KindTitle   BlockKind = "title"
	KindText    BlockKind = "text"
	KindMuted   BlockKind = "muted"
	KindBullets BlockKind = "bullets"
	KindChips   BlockKind = "chips"
	KindSpacer  BlockKind = "spacer"
)

// ContactSeparator 连接页眉联系方式行中的各字段。
const ContactSeparator = "  •  "

// EntrySeparator 连接条目行中的职位、机构与时间段。
const EntrySeparator = " — "

// Block 是一列中的一个内容单元。
type Block struct {
	Kind  BlockKind
	Text  string
	Items []string
}

// Column 是纵向排列的一组块。Weight 是其占内容宽度的比例。
type Column struct {
	Weight float64
	Blocks []Block
}

// Header 是第一页顶部通栏的块。
type Header struct {
	Name     string
	Headline string
	Contact  []string
	Summary  string
	Photo    *Photo
}

// Document 是一份 CV 与后端无关的版面。
type Document struct {
	Title   string
	Author  string
	Created time.Time
	Page    PageSize
	Margins Margins
	Variant Variant
	Locale  resume.Locale
	Header  Header
	Columns []Column
}

// Headings 按列顺序返回所有标题块的文本。
func (d *Document) Headings() []string {
	var out []string
	for _, col := range d.Columns {
		for _, b := range col.Blocks {
			if b.Kind == KindHeading {
				out = append(out, b.Text)
			}
		}
	}
	return out
}

// BuildDocument 按 opts 排版 cv。opts 必须已规范化，
// photo 必须已校验；photo 为 nil 时不放图片。
func BuildDocument(cv resume.CV, opts Options, photo *Photo) *Document {
	labels := resume.LabelsFor(opts.Locale)
	p := cv.Personal

	doc := &Document{
		Title:   "CV " + strings.TrimSpace(p.Name),
		Author:  strings.TrimSpace(p.Name),
		Created: cv.UpdatedAt.UTC(),
		Page:    opts.PageSize,
		Margins: opts.Margins,
		Variant: opts.Variant,
		Locale:  opts.Locale,
		Header: Header{
			Name:     strings.TrimSpace(p.Name),
			Headline: strings.TrimSpace(p.Headline),
			Contact:  contactLines(cv),
			Summary:  strings.TrimSpace(p.Summary),
			Photo:    photo,
		},
	}

	sections := resume.Partition(cv.Entries)
	related := resume.RelatedSkills(cv.Skills)

	experience := experienceBlocks(sections.Experience, related, labels, opts.Locale)
	projects := projectBlocks(sections.Projects, labels, opts.Locale)
	education := educationBlocks(sections.Education, labels)

	switch opts.Variant {
	case VariantSingleColumn:
		var blocks []Block
		blocks = appendSection(blocks, labels.Heading(labels.Experience), experience)
		blocks = appendSection(blocks, labels.Heading(labels.Projects), projects)
		blocks = appendSection(blocks, labels.Heading(labels.Education), education)
		blocks = appendSection(blocks, labels.Heading(labels.Skills), groupedSkillBlocks(cv.Skills))
		doc.Columns = []Column{{Weight: 1, Blocks: blocks}}
	default:
		var left, right []Block
		left = appendSection(left, labels.Heading(labels.Skills), chipBlocks(cv.Skills))
		left = appendSection(left, labels.Heading(labels.Projects), projects)
		left = appendSection(left, labels.Heading(labels.Education), education)
		right = appendSection(right, labels.Heading(labels.Experience), experience)
		doc.Columns = []Column{{Weight: 1.2, Blocks: left}, {Weight: 2, Blocks: right}}
	}

	return doc
}

// contactLines 第一行由所在地与邮箱组成，第二行由电话与
// LinkedIn 组成，第三行由网站与社交链接组成。
func contactLines(cv resume.CV) []string {
	p := cv.Personal
	links := []string{p.Website}
	for _, l := range cv.Links {
		links = append(links, l.URL)
	}

	var lines []string
	for _, fields := range [][]string{
		{p.Location, p.Email},
		{p.Phone, p.LinkedIn},
		links,
	} {
		if line := joinNonEmpty(fields, ContactSeparator); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func appendSection(blocks []Block, heading string, body []Block) []Block {
	if len(body) == 0 {
		return blocks
	}
	blocks = append(blocks, Block{Kind: KindHeading, Text: heading})
	return append(blocks, body...)
}

func experienceBlocks(entries []resume.TimelineEntry, related map[string][]string, labels resume.Labels, loc resume.Locale) []Block {
	var blocks []Block
	for i, e := range entries {
		if i > 0 {
			blocks = append(blocks, Block{Kind: KindSpacer})
		}
		blocks = append(blocks, Block{
			Kind: KindTitle,
			Text: joinNonEmpty([]string{e.Title, e.Organization, resume.FormatPeriod(e, loc)}, EntrySeparator),
		})
		blocks = appendText(blocks, KindMuted, joinNonEmpty([]string{e.Subtitle, e.Location}, ContactSeparator))
		blocks = appendText(blocks, KindText, e.Description)
		blocks = appendBullets(blocks, e.Bullets)
		if skills := related[e.Ref]; len(skills) > 0 {
			blocks = append(blocks, Block{Kind: KindMuted, Text: labels.RelatedSkills + " " + strings.Join(skills, ", ")})
		}
	}
	return blocks
}

func projectBlocks(entries []resume.TimelineEntry, labels resume.Labels, loc resume.Locale) []Block {
	var blocks []Block
	for i, e := range entries {
		if i > 0 {
			blocks = append(blocks, Block{Kind: KindSpacer})
		}
		blocks = append(blocks, Block{
			Kind: KindTitle,
			Text: joinNonEmpty([]string{e.Title, e.Organization}, EntrySeparator),
		})
		blocks = appendText(blocks, KindMuted, joinNonEmpty([]string{e.Subtitle, resume.FormatPeriod(e, loc)}, ContactSeparator))
		blocks = appendText(blocks, KindText, e.Description)
		blocks = appendBullets(blocks, e.Bullets)
		if resume.HasText(e.Tech) {
			blocks = append(blocks, Block{Kind: KindMuted, Text: labels.Tech + " " + strings.TrimSpace(e.Tech)})
		}
	}
	return blocks
}

func educationBlocks(entries []resume.TimelineEntry, labels resume.Labels) []Block {
	var blocks []Block
	for i, e := range entries {
		if i > 0 {
			blocks = append(blocks, Block{Kind: KindSpacer})
		}
		blocks = append(blocks, Block{Kind: KindTitle, Text: strings.TrimSpace(e.Title)})
		blocks = appendText(blocks, KindText, joinNonEmpty([]string{e.Organization, e.Location}, ContactSeparator))
		blocks = appendText(blocks, KindMuted, resume.EducationYear(e))
		if resume.HasText(e.Grade) {
			blocks = append(blocks, Block{Kind: KindMuted, Text: labels.Grade + " " + strings.TrimSpace(e.Grade)})
		}
		blocks = appendBullets(blocks, e.Bullets)
	}
	return blocks
}

func chipBlocks(groups []resume.SkillGroup) []Block {
	flat := resume.FlattenSkills(groups)
	if len(flat) == 0 {
		return nil
	}
	return []Block{{Kind: KindChips, Items: flat}}
}

func groupedSkillBlocks(groups []resume.SkillGroup) []Block {
	var blocks []Block
	for _, g := range resume.GroupedSkills(groups) {
		text := strings.Join(g.Items, ", ")
		if g.Category != "" {
			text = g.Category + ": " + text
		}
		blocks = append(blocks, Block{Kind: KindText, Text: text})
	}
	return blocks
}

func appendText(blocks []Block, kind BlockKind, text string) []Block {
	text = strings.TrimSpace(text)
	if text == "" {
		return blocks
	}
	return append(blocks, Block{Kind: kind, Text: text})
}

func appendBullets(blocks []Block, bullets []string) []Block {
	var items []string
	for _, b := range bullets {
		if b = strings.TrimSpace(b); b != "" {
			items = append(items, b)
		}
	}
	if len(items) == 0 {
		return blocks
	}
	return append(blocks, Block{Kind: KindBullets, Items: items})
}

func joinNonEmpty(fields []string, sep string) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, sep)
}
