package database

import (
	"time"

	"gorm.io/datatypes"
)

// CV.RenderStatus 中保存的渲染状态。
const (
	RenderStatusNone      = ""
	RenderStatusPending   = "pending"
	RenderStatusCompleted = "completed"
	RenderStatusFailed    = "failed"
)

// CV 是简历聚合根，删除时级联删除所有子记录。
type CV struct {
	ID            uint           `gorm:"primaryKey"`
	RawContent    string         `gorm:"type:text"`
	ParsedContent datatypes.JSON `gorm:"type:jsonb"`
	PdfObjectKey  string         `gorm:"size:512"`
	PhotoKey      string         `gorm:"size:512"`
	RenderStatus  string         `gorm:"size:32"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	PersonalInfo PersonalInfo    `gorm:"constraint:OnDelete:CASCADE"`
	Entries      []TimelineEntry `gorm:"constraint:OnDelete:CASCADE"`
	SkillGroups  []SkillGroup    `gorm:"constraint:OnDelete:CASCADE"`
	SocialLinks  []SocialLink    `gorm:"constraint:OnDelete:CASCADE"`
}

// PersonalInfo 与 CV 一对一。
type PersonalInfo struct {
	ID       uint   `gorm:"primaryKey"`
	CVID     uint   `gorm:"uniqueIndex"`
	Name     string `gorm:"size:100;not null"`
	Headline string `gorm:"size:100"`
	Email    string `gorm:"size:255;not null"`
	Phone    string `gorm:"size:20"`
	Location string `gorm:"size:100"`
	LinkedIn string `gorm:"size:255"`
	Website  string `gorm:"size:255"`
	Summary  string `gorm:"size:500"`
}

// TimelineEntry 保存工作经历、教育和项目记录。
// Position 保留调用方给出的顺序；展示顺序在渲染时计算。
type TimelineEntry struct {
	ID                uint   `gorm:"primaryKey"`
	CVID              uint   `gorm:"uniqueIndex:idx_entry_ref"`
	Ref               string `gorm:"size:64;uniqueIndex:idx_entry_ref"`
	Position          int
	Category          string `gorm:"size:16;index"`
	Title             string `gorm:"size:100;not null"`
	Organization      string `gorm:"size:100"`
	Subtitle          string `gorm:"size:100"`
	Location          string `gorm:"size:100"`
	StartDate         *time.Time
	EndDate           *time.Time
	Duration          string `gorm:"size:20"`
	Description       string `gorm:"size:1000"`
	Tech              string `gorm:"size:100"`
	Bullets           datatypes.JSONSlice[string]
	GraduationYear    *int
	Grade             string `gorm:"size:10"`
	IsCurrentPosition bool
}

// SkillGroup 与 TimelineEntry 多对多（skill_group_entries 关联表）。
type SkillGroup struct {
	ID       uint `gorm:"primaryKey"`
	CVID     uint `gorm:"index"`
	Position int
	Category string `gorm:"size:100"`
	Items    datatypes.JSONSlice[string]
	Entries  []TimelineEntry `gorm:"many2many:skill_group_entries;constraint:OnDelete:CASCADE"`
}

// SocialLink 是有序的页眉链接。
type SocialLink struct {
	ID       uint `gorm:"primaryKey"`
	CVID     uint `gorm:"index"`
	Position int
	Kind     string `gorm:"size:32"`
	URL      string `gorm:"size:255"`
}

// AllModels 列出 AutoMigrate 需要的全部表。
func AllModels() []any {
	return []any{&CV{}, &PersonalInfo{}, &TimelineEntry{}, &SkillGroup{}, &SocialLink{}}
}
