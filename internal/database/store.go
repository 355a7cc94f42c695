package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"cvstudio/internal/resume"
)

// ErrNotFound 表示 CV id 不存在。
var ErrNotFound = errors.New("cv not found")

// Summary 是 CV 列表中的一行。
type Summary struct {
	ID           uint      `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	RenderStatus string    `json:"render_status"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RenderInfo 是 CV 的渲染记录。
type RenderInfo struct {
	PdfObjectKey string
	PhotoKey     string
	RenderStatus string
}

// Store 使用 gorm 持久化 CV 聚合。
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Create 在一个事务中插入 cv 及其所有子记录。
func (s *Store) Create(ctx context.Context, cv resume.CV) (*resume.CV, error) {
	var id uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := toModel(cv)
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("insert cv: %w", err)
		}
		id = row.ID
		return createSkillGroups(tx, row.ID, cv.Skills, row.Entries)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Get 加载 CV 及全部子记录，子记录按存储顺序排列。
func (s *Store) Get(ctx context.Context, id uint) (*resume.CV, error) {
	byPosition := func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }

	var row CV
	err := s.db.WithContext(ctx).
		Preload("PersonalInfo").
		Preload("Entries", byPosition).
		Preload("SkillGroups", byPosition).
		Preload("SkillGroups.Entries").
		Preload("SocialLinks", byPosition).
		First(&row, id).Error
	if err != nil {
		return nil, notFound(err, "load cv %d", id)
	}
	cv := fromModel(row)
	return &cv, nil
}

// List 返回一页摘要（最新的在前）以及总数。
func (s *Store) List(ctx context.Context, offset, limit int) ([]Summary, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	db := s.db.WithContext(ctx)
	var total int64
	if err := db.Model(&CV{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count cvs: %w", err)
	}

	var rows []CV
	if err := db.Preload("PersonalInfo").Order("updated_at DESC, id DESC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list cvs: %w", err)
	}

	out := make([]Summary, 0, len(rows))
	for _, r := range rows {
		out = append(out, Summary{
			ID:           r.ID,
			Name:         r.PersonalInfo.Name,
			Email:        r.PersonalInfo.Email,
			RenderStatus: r.RenderStatus,
			UpdatedAt:    r.UpdatedAt.UTC(),
		})
	}
	return out, total, nil
}

// Replace 覆盖已有 CV 的所有字段。子记录先删除再重建；
// 渲染记录保持不变。
func (s *Store) Replace(ctx context.Context, id uint, cv resume.CV) (*resume.CV, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, id); err != nil {
			return err
		}
		if err := deleteChildren(tx, id); err != nil {
			return err
		}

		row := toModel(cv)
		if err := tx.Model(&CV{ID: id}).Updates(map[string]any{
			"raw_content":    row.RawContent,
			"parsed_content": row.ParsedContent,
		}).Error; err != nil {
			return fmt.Errorf("update cv %d: %w", id, err)
		}

		row.PersonalInfo.CVID = id
		if err := tx.Create(&row.PersonalInfo).Error; err != nil {
			return fmt.Errorf("insert personal info: %w", err)
		}
		for i := range row.Entries {
			row.Entries[i].CVID = id
		}
		if len(row.Entries) > 0 {
			if err := tx.Create(&row.Entries).Error; err != nil {
				return fmt.Errorf("insert timeline entries: %w", err)
			}
		}
		for i := range row.SocialLinks {
			row.SocialLinks[i].CVID = id
		}
		if len(row.SocialLinks) > 0 {
			if err := tx.Create(&row.SocialLinks).Error; err != nil {
				return fmt.Errorf("insert social links: %w", err)
			}
		}
		return createSkillGroups(tx, id, cv.Skills, row.Entries)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete 删除 CV 及其拥有的一切。
func (s *Store) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, id); err != nil {
			return err
		}
		if err := deleteChildren(tx, id); err != nil {
			return err
		}
		if err := tx.Delete(&CV{}, id).Error; err != nil {
			return fmt.Errorf("delete cv %d: %w", id, err)
		}
		return nil
	})
}

// Timeline 按展示顺序返回 CV 的条目。category 为 nil 时
// 依次返回工作经历、项目、教育。
func (s *Store) Timeline(ctx context.Context, id uint, category *resume.Category) ([]resume.TimelineEntry, error) {
	db := s.db.WithContext(ctx)
	if err := exists(db, id); err != nil {
		return nil, err
	}

	q := db.Where("cv_id = ?", id).Order("position ASC")
	if category != nil {
		q = q.Where("category = ?", string(*category))
	}
	var rows []TimelineEntry
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load timeline of cv %d: %w", id, err)
	}

	entries := entriesFromModel(rows)
	if category != nil {
		return resume.SelectSection(entries, *category), nil
	}
	sections := resume.Partition(entries)
	out := make([]resume.TimelineEntry, 0, sections.Len())
	out = append(out, sections.Experience...)
	out = append(out, sections.Projects...)
	return append(out, sections.Education...), nil
}

// Skills 返回 CV 的技能分组。
func (s *Store) Skills(ctx context.Context, id uint) ([]resume.SkillGroup, error) {
	db := s.db.WithContext(ctx)
	if err := exists(db, id); err != nil {
		return nil, err
	}

	var groups []SkillGroup
	if err := db.Preload("Entries").Where("cv_id = ?", id).Order("position ASC").Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("load skills of cv %d: %w", id, err)
	}
	var entries []TimelineEntry
	if err := db.Select("id", "position").Where("cv_id = ?", id).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("load entry positions of cv %d: %w", id, err)
	}
	return skillsFromModel(groups, entries), nil
}

// RenderInfo 返回已存储的渲染 key 与状态。
func (s *Store) RenderInfo(ctx context.Context, id uint) (RenderInfo, error) {
	var row CV
	err := s.db.WithContext(ctx).Select("id", "pdf_object_key", "photo_key", "render_status").First(&row, id).Error
	if err != nil {
		return RenderInfo{}, notFound(err, "load render info of cv %d", id)
	}
	return RenderInfo{PdfObjectKey: row.PdfObjectKey, PhotoKey: row.PhotoKey, RenderStatus: row.RenderStatus}, nil
}

// SetPhotoKey 记录已上传照片的对象 key。
func (s *Store) SetPhotoKey(ctx context.Context, id uint, key string) error {
	return s.updateColumns(ctx, id, map[string]any{"photo_key": key})
}

// SetRenderStatus 把 CV 的渲染状态标记为 pending 或 failed。
func (s *Store) SetRenderStatus(ctx context.Context, id uint, status string) error {
	return s.updateColumns(ctx, id, map[string]any{"render_status": status})
}

// SetRenderResult 保存已生成 PDF 的 key。
func (s *Store) SetRenderResult(ctx context.Context, id uint, objectKey string) error {
	return s.updateColumns(ctx, id, map[string]any{
		"pdf_object_key": objectKey,
		"render_status":  RenderStatusCompleted,
	})
}

func (s *Store) updateColumns(ctx context.Context, id uint, values map[string]any) error {
	res := s.db.WithContext(ctx).Model(&CV{ID: id}).Updates(values)
	if res.Error != nil {
		return fmt.Errorf("update cv %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update cv %d: %w", id, ErrNotFound)
	}
	return nil
}

func createSkillGroups(tx *gorm.DB, cvID uint, groups []resume.SkillGroup, entries []TimelineEntry) error {
	rows := skillGroupModels(cvID, groups, entries)
	if len(rows) == 0 {
		return nil
	}
	// 条目已存在，只写入关联行
	if err := tx.Omit("Entries.*").Create(&rows).Error; err != nil {
		return fmt.Errorf("insert skill groups: %w", err)
	}
	return nil
}

func deleteChildren(tx *gorm.DB, id uint) error {
	if err := tx.Exec(
		"DELETE FROM skill_group_entries WHERE skill_group_id IN (SELECT id FROM skill_groups WHERE cv_id = ?)", id,
	).Error; err != nil {
		return fmt.Errorf("delete skill links of cv %d: %w", id, err)
	}
	for _, model := range []any{&SkillGroup{}, &TimelineEntry{}, &SocialLink{}, &PersonalInfo{}} {
		if err := tx.Where("cv_id = ?", id).Delete(model).Error; err != nil {
			return fmt.Errorf("delete children of cv %d: %w", id, err)
		}
	}
	return nil
}

func exists(db *gorm.DB, id uint) error {
	var count int64
	if err := db.Model(&CV{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("check cv %d: %w", id, err)
	}
	if count == 0 {
		return fmt.Errorf("cv %d: %w", id, ErrNotFound)
	}
	return nil
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = ErrNotFound
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
