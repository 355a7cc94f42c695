package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cvstudio/internal/api/middleware"
	"cvstudio/internal/database"
	"cvstudio/internal/resume"
)

var errInvalidCVID = errors.New("invalid cv id")

// CVHandler 负责简历的增删改查与只读视图。
type CVHandler struct {
	store *database.Store
}

// NewCVHandler 构造 CVHandler。
func NewCVHandler(store *database.Store) *CVHandler {
	return &CVHandler{store: store}
}

type listResponse struct {
	Items  []database.Summary `json:"items"`
	Total  int64              `json:"total"`
	Offset int                `json:"offset"`
	Limit  int                `json:"limit"`
}

// ListCVs 分页列出简历。
func (h *CVHandler) ListCVs(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	items, total, err := h.store.List(c.Request.Context(), offset, limit)
	if err != nil {
		Fail(c, middleware.LoggerFromContext(c), err, "failed to list cvs")
		return
	}
	c.JSON(http.StatusOK, listResponse{Items: items, Total: total, Offset: offset, Limit: limit})
}

// CreateCV 校验并保存一份新简历。
func (h *CVHandler) CreateCV(c *gin.Context) {
	cv, ok := bindCV(c)
	if !ok {
		return
	}

	created, err := h.store.Create(c.Request.Context(), cv)
	if err != nil {
		Fail(c, middleware.LoggerFromContext(c), err, "failed to create cv")
		return
	}
	c.JSON(http.StatusCreated, created)
}

// GetCV 返回完整简历。
func (h *CVHandler) GetCV(c *gin.Context) {
	id, ok := cvID(c)
	if !ok {
		return
	}
	cv, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		Fail(c, middleware.LoggerFromContext(c), err, "failed to query cv")
		return
	}
	c.JSON(http.StatusOK, cv)
}

// ReplaceCV 整体替换简历内容。
func (h *CVHandler) ReplaceCV(c *gin.Context) {
	id, ok := cvID(c)
	if !ok {
		return
	}
	cv, ok := bindCV(c)
	if !ok {
		return
	}

	replaced, err := h.store.Replace(c.Request.Context(), id, cv)
	if err != nil {
		Fail(c, middleware.LoggerFromContext(c), err, "failed to update cv")
		return
	}
	c.JSON(http.StatusOK, replaced)
}

// GetTimeline 按展示顺序返回条目，可按类别过滤。
func (h *CVHandler) GetTimeline(c *gin.Context) {
	id, ok := cvID(c)
	if !ok {
		return
	}

	var category *resume.Category
	if raw := c.Param("category"); raw != "" {
		parsed, err := resume.ParseCategory(raw)
		if err != nil {
			BadRequest(c, err.Error())
			return
		}
		category = &parsed
	}

	entries, err := h.store.Timeline(c.Request.Context(), id, category)
	if err != nil {
		Fail(c, middleware.LoggerFromContext(c), err, "failed to query timeline")
		return
	}
	if entries == nil {
		entries = []resume.TimelineEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"items": entries})
}

// GetSkills 返回 CV 的技能分组。
func (h *CVHandler) GetSkills(c *gin.Context) {
	id, ok := cvID(c)
	if !ok {
		return
	}
	groups, err := h.store.Skills(c.Request.Context(), id)
	if err != nil {
		Fail(c, middleware.LoggerFromContext(c), err, "failed to query skills")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": groups, "flat": nonNilStrings(resume.FlattenSkills(groups))})
}

type previewEntry struct {
	Ref          string   `json:"ref"`
	Title        string   `json:"title"`
	Organization string   `json:"organization,omitempty"`
	Subtitle     string   `json:"subtitle,omitempty"`
	Location     string   `json:"location,omitempty"`
	Period       string   `json:"period,omitempty"`
	Description  string   `json:"description,omitempty"`
	Tech         string   `json:"tech,omitempty"`
	Grade        string   `json:"grade,omitempty"`
	Bullets      []string `json:"bullets,omitempty"`
	Skills       []string `json:"skills,omitempty"`
}

type previewSection struct {
	Category resume.Category `json:"category"`
	Heading  string          `json:"heading"`
	Entries  []previewEntry  `json:"entries"`
}

type previewResponse struct {
	ID       uint                `json:"id"`
	Locale   resume.Locale       `json:"locale"`
	Personal resume.PersonalInfo `json:"personal_info"`
	Sections []previewSection    `json:"sections"`
	Skills   []resume.SkillGroup `json:"skills"`
}

// Preview 返回按展示顺序排好、日期已格式化的简历视图。
func (h *CVHandler) Preview(c *gin.Context) {
	id, ok := cvID(c)
	if !ok {
		return
	}
	loc, err := resume.ParseLocale(c.Query("locale"))
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	cv, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		Fail(c, middleware.LoggerFromContext(c), err, "failed to query cv")
		return
	}
	c.JSON(http.StatusOK, buildPreview(*cv, loc))
}

func buildPreview(cv resume.CV, loc resume.Locale) previewResponse {
	labels := resume.LabelsFor(loc)
	related := resume.RelatedSkills(cv.Skills)
	sections := resume.Partition(cv.Entries)

	out := previewResponse{
		ID:       cv.ID,
		Locale:   loc,
		Personal: cv.Personal,
		Skills:   resume.GroupedSkills(cv.Skills),
		Sections: []previewSection{},
	}
	for _, s := range []struct {
		category resume.Category
		heading  string
		entries  []resume.TimelineEntry
	}{
		{resume.CategoryExperience, labels.Experience, sections.Experience},
		{resume.CategoryProject, labels.Projects, sections.Projects},
		{resume.CategoryEducation, labels.Education, sections.Education},
	} {
		if len(s.entries) == 0 {
			continue
		}
		section := previewSection{Category: s.category, Heading: labels.Heading(s.heading)}
		for _, e := range s.entries {
			section.Entries = append(section.Entries, previewEntry{
				Ref:          e.Ref,
				Title:        e.Title,
				Organization: e.Organization,
				Subtitle:     e.Subtitle,
				Location:     e.Location,
				Period:       resume.FormatPeriod(e, loc),
				Description:  e.Description,
				Tech:         e.Tech,
				Grade:        e.Grade,
				Bullets:      e.Bullets,
				Skills:       related[e.Ref],
			})
		}
		out.Sections = append(out.Sections, section)
	}
	return out
}

func bindCV(c *gin.Context) (resume.CV, bool) {
	var cv resume.CV
	if err := c.ShouldBindJSON(&cv); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return cv, false
	}
	cv.ID = 0
	cv.Sanitize()
	if err := cv.Validate(); err != nil {
		Fail(c, middleware.LoggerFromContext(c), err, "failed to validate cv")
		return cv, false
	}
	return cv, true
}

func parseCVID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errInvalidCVID
	}
	return uint(id), nil
}

func cvID(c *gin.Context) (uint, bool) {
	id, err := parseCVID(c.Param("id"))
	if err != nil {
		BadRequest(c, err.Error())
		return 0, false
	}
	return id, true
}

func nonNilStrings(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
