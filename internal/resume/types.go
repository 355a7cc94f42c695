package resume

import (
	"fmt"
	"strings"
	"time"
)

// Category 区分时间线条目的类型。
type Category string

const (
	CategoryExperience Category = "experience"
	CategoryEducation  Category = "education"
	CategoryProject    Category = "project"
)

// Categories 按渲染顺序列出所有时间线类别。
var Categories = []Category{CategoryExperience, CategoryProject, CategoryEducation}

// ParseCategory 接受规范名称以及 URL 中使用的复数形式。
func ParseCategory(raw string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "experience", "experiences":
		return CategoryExperience, nil
	case "education", "educations":
		return CategoryEducation, nil
	case "project", "projects":
		return CategoryProject, nil
	default:
		return "", fmt.Errorf("unknown timeline category %q", raw)
	}
}

// CV 是完整的结构化简历记录。
type CV struct {
	ID            uint            `json:"id,omitempty" yaml:"id,omitempty"`
	Personal      PersonalInfo    `json:"personal_info" yaml:"personal_info" validate:"required"`
	Entries       []TimelineEntry `json:"timeline" yaml:"timeline" validate:"dive"`
	Skills        []SkillGroup    `json:"skills" yaml:"skills" validate:"dive"`
	Links         []SocialLink    `json:"links,omitempty" yaml:"links,omitempty" validate:"dive"`
	RawContent    string          `json:"raw_content,omitempty" yaml:"raw_content,omitempty" validate:"max=10000"`
	ParsedContent string          `json:"parsed_content,omitempty" yaml:"parsed_content,omitempty" validate:"omitempty,json,max=10000"`
	CreatedAt     time.Time       `json:"created_at" yaml:"-"`
	UpdatedAt     time.Time       `json:"updated_at" yaml:"-"`
}

// PersonalInfo 保存 CV 的页眉数据，每份 CV 恰好一份。
type PersonalInfo struct {
	Name     string `json:"name" yaml:"name" validate:"required,max=100"`
	Headline string `json:"headline,omitempty" yaml:"headline,omitempty" validate:"max=100"`
	Email    string `json:"email" yaml:"email" validate:"required,email,max=255"`
	Phone    string `json:"phone,omitempty" yaml:"phone,omitempty" validate:"max=20"`
	Location string `json:"location,omitempty" yaml:"location,omitempty" validate:"max=100"`
	LinkedIn string `json:"linkedin,omitempty" yaml:"linkedin,omitempty" validate:"max=255"`
	Website  string `json:"website,omitempty" yaml:"website,omitempty" validate:"max=255"`
	Summary  string `json:"summary,omitempty" yaml:"summary,omitempty" validate:"max=500"`
}

// TimelineEntry 是一条工作经历、教育或项目记录。
// Ref 在 CV 内标识该条目；技能分组通过它指向条目。
type TimelineEntry struct {
	Ref               string   `json:"ref,omitempty" yaml:"ref,omitempty" validate:"max=64"`
	Category          Category `json:"category" yaml:"category" validate:"required,oneof=experience education project"`
	Title             string   `json:"title" yaml:"title" validate:"required,max=100"`
	Organization      string   `json:"organization,omitempty" yaml:"organization,omitempty" validate:"required_unless=Category project,max=100"`
	Subtitle          string   `json:"subtitle,omitempty" yaml:"subtitle,omitempty" validate:"max=100"`
	Location          string   `json:"location,omitempty" yaml:"location,omitempty" validate:"max=100"`
	StartDate         *Date    `json:"start_date,omitempty" yaml:"start_date,omitempty"`
	EndDate           *Date    `json:"end_date,omitempty" yaml:"end_date,omitempty"`
	Duration          string   `json:"duration,omitempty" yaml:"duration,omitempty" validate:"max=20"`
	Description       string   `json:"description,omitempty" yaml:"description,omitempty" validate:"max=1000"`
	Tech              string   `json:"tech,omitempty" yaml:"tech,omitempty" validate:"max=100"`
	Bullets           []string `json:"bullets,omitempty" yaml:"bullets,omitempty"`
	GraduationYear    *int     `json:"graduation_year,omitempty" yaml:"graduation_year,omitempty" validate:"omitempty,min=1900,max=2200"`
	Grade             string   `json:"grade,omitempty" yaml:"grade,omitempty" validate:"max=10"`
	IsCurrentPosition bool     `json:"is_current_position,omitempty" yaml:"is_current_position,omitempty"`
}

// SkillGroup 是带标签的有序技能列表。EntryRefs 关联
// 使用过这些技能的时间线条目。
type SkillGroup struct {
	Category  string   `json:"category" yaml:"category" validate:"required,max=100"`
	Items     []string `json:"items" yaml:"items"`
	EntryRefs []string `json:"entry_refs,omitempty" yaml:"entry_refs,omitempty"`
}

// SocialLink 是页眉中显示的有序个人链接。
type SocialLink struct {
	Kind string `json:"kind" yaml:"kind" validate:"required,max=32"`
	URL  string `json:"url" yaml:"url" validate:"required,max=255"`
}

// HasText 表示 s 是否包含空白以外的内容。
func HasText(s string) bool {
	return strings.TrimSpace(s) != ""
}
