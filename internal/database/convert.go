package database

import (
	"sort"

	"gorm.io/datatypes"

	"cvstudio/internal/resume"
)

func toModel(cv resume.CV) CV {
	p := cv.Personal
	row := CV{
		RawContent: cv.RawContent,
		PersonalInfo: PersonalInfo{
			Name:     p.Name,
			Headline: p.Headline,
			Email:    p.Email,
			Phone:    p.Phone,
			Location: p.Location,
			LinkedIn: p.LinkedIn,
			Website:  p.Website,
			Summary:  p.Summary,
		},
	}
	if cv.ParsedContent != "" {
		row.ParsedContent = datatypes.JSON(cv.ParsedContent)
	}

	row.Entries = make([]TimelineEntry, 0, len(cv.Entries))
	for i, e := range cv.Entries {
		ref := e.Ref
		if ref == "" {
			ref = resume.DefaultRef(i)
		}
		row.Entries = append(row.Entries, TimelineEntry{
			Ref:               ref,
			Position:          i,
			Category:          string(e.Category),
			Title:             e.Title,
			Organization:      e.Organization,
			Subtitle:          e.Subtitle,
			Location:          e.Location,
			StartDate:         e.StartDate.TimePtr(),
			EndDate:           e.EndDate.TimePtr(),
			Duration:          e.Duration,
			Description:       e.Description,
			Tech:              e.Tech,
			Bullets:           datatypes.JSONSlice[string](e.Bullets),
			GraduationYear:    e.GraduationYear,
			Grade:             e.Grade,
			IsCurrentPosition: e.IsCurrentPosition,
		})
	}

	row.SocialLinks = make([]SocialLink, 0, len(cv.Links))
	for i, l := range cv.Links {
		row.SocialLinks = append(row.SocialLinks, SocialLink{Position: i, Kind: l.Kind, URL: l.URL})
	}
	return row
}

// skillGroupModels 通过 ref 把分组绑定到已持久化的条目。
// 找不到对应条目的 ref 会被丢弃。
func skillGroupModels(cvID uint, groups []resume.SkillGroup, entries []TimelineEntry) []SkillGroup {
	byRef := make(map[string]TimelineEntry, len(entries))
	for _, e := range entries {
		byRef[e.Ref] = e
	}

	out := make([]SkillGroup, 0, len(groups))
	for i, g := range groups {
		row := SkillGroup{
			CVID:     cvID,
			Position: i,
			Category: g.Category,
			Items:    datatypes.JSONSlice[string](g.Items),
		}
		seen := make(map[string]struct{}, len(g.EntryRefs))
		for _, ref := range g.EntryRefs {
			e, ok := byRef[ref]
			if _, dup := seen[ref]; !ok || dup {
				continue
			}
			seen[ref] = struct{}{}
			row.Entries = append(row.Entries, TimelineEntry{ID: e.ID})
		}
		out = append(out, row)
	}
	return out
}

func fromModel(row CV) resume.CV {
	p := row.PersonalInfo
	cv := resume.CV{
		ID: row.ID,
		Personal: resume.PersonalInfo{
			Name:     p.Name,
			Headline: p.Headline,
			Email:    p.Email,
			Phone:    p.Phone,
			Location: p.Location,
			LinkedIn: p.LinkedIn,
			Website:  p.Website,
			Summary:  p.Summary,
		},
		RawContent:    row.RawContent,
		ParsedContent: string(row.ParsedContent),
		CreatedAt:     row.CreatedAt.UTC(),
		UpdatedAt:     row.UpdatedAt.UTC(),
	}

	cv.Entries = entriesFromModel(row.Entries)
	cv.Skills = skillsFromModel(row.SkillGroups, row.Entries)

	links := append([]SocialLink(nil), row.SocialLinks...)
	sort.SliceStable(links, func(i, j int) bool { return links[i].Position < links[j].Position })
	for _, l := range links {
		cv.Links = append(cv.Links, resume.SocialLink{Kind: l.Kind, URL: l.URL})
	}
	return cv
}

func entriesFromModel(rows []TimelineEntry) []resume.TimelineEntry {
	sorted := append([]TimelineEntry(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

	out := make([]resume.TimelineEntry, 0, len(sorted))
	for _, e := range sorted {
		out = append(out, resume.TimelineEntry{
			Ref:               e.Ref,
			Category:          resume.Category(e.Category),
			Title:             e.Title,
			Organization:      e.Organization,
			Subtitle:          e.Subtitle,
			Location:          e.Location,
			StartDate:         resume.DatePtr(e.StartDate),
			EndDate:           resume.DatePtr(e.EndDate),
			Duration:          e.Duration,
			Description:       e.Description,
			Tech:              e.Tech,
			Bullets:           stringsOrNil(e.Bullets),
			GraduationYear:    e.GraduationYear,
			Grade:             e.Grade,
			IsCurrentPosition: e.IsCurrentPosition,
		})
	}
	return out
}

// skillsFromModel 把关联行还原为 ref，按条目位置排序。
func skillsFromModel(groups []SkillGroup, entries []TimelineEntry) []resume.SkillGroup {
	position := make(map[uint]int, len(entries))
	for _, e := range entries {
		position[e.ID] = e.Position
	}

	sorted := append([]SkillGroup(nil), groups...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

	out := make([]resume.SkillGroup, 0, len(sorted))
	for _, g := range sorted {
		linked := append([]TimelineEntry(nil), g.Entries...)
		sort.SliceStable(linked, func(i, j int) bool { return position[linked[i].ID] < position[linked[j].ID] })

		var refs []string
		for _, e := range linked {
			refs = append(refs, e.Ref)
		}
		out = append(out, resume.SkillGroup{Category: g.Category, Items: stringsOrNil(g.Items), EntryRefs: refs})
	}
	return out
}

func stringsOrNil(s datatypes.JSONSlice[string]) []string {
	if len(s) == 0 {
		return nil
	}
	return []string(s)
}
