package resume

import "strings"

// AdaptedCV 是与补全 API 交换的扁平文档。
type AdaptedCV struct {
	Name       string              `json:"name"`
	Title      string              `json:"title"`
	Location   string              `json:"location"`
	Phone      string              `json:"phone"`
	Email      string              `json:"email"`
	Website    string              `json:"website"`
	LinkedIn   string              `json:"linkedin"`
	Summary    string              `json:"summary"`
	Skills     []AdaptedSkills     `json:"skills"`
	Experience []AdaptedExperience `json:"experience"`
	Projects   []AdaptedProject    `json:"projects"`
	Education  []AdaptedEducation  `json:"education"`
}

type AdaptedSkills struct {
	Category string   `json:"category"`
	Items    []string `json:"items"`
}

type AdaptedExperience struct {
	Title    string   `json:"title"`
	Company  string   `json:"company"`
	Location string   `json:"location"`
	Dates    string   `json:"dates"`
	Bullets  []string `json:"bullets"`
}

type AdaptedProject struct {
	Title   string   `json:"title"`
	Role    string   `json:"role"`
	Bullets []string `json:"bullets"`
}

type AdaptedEducation struct {
	Degree   string   `json:"degree"`
	School   string   `json:"school"`
	Location string   `json:"location"`
	Dates    string   `json:"dates"`
	Bullets  []string `json:"bullets"`
}

// ToAdapted 把 CV 投影为改写文档。各部分保持展示顺序，
// 日期用 FormatPeriod 渲染。
func ToAdapted(cv CV, loc Locale) AdaptedCV {
	p := cv.Personal
	out := AdaptedCV{
		Name:       p.Name,
		Title:      p.Headline,
		Location:   p.Location,
		Phone:      p.Phone,
		Email:      p.Email,
		Website:    p.Website,
		LinkedIn:   p.LinkedIn,
		Summary:    p.Summary,
		Skills:     []AdaptedSkills{},
		Experience: []AdaptedExperience{},
		Projects:   []AdaptedProject{},
		Education:  []AdaptedEducation{},
	}

	for _, g := range cv.Skills {
		out.Skills = append(out.Skills, AdaptedSkills{Category: g.Category, Items: nonNil(g.Items)})
	}

	sections := Partition(cv.Entries)
	for _, e := range sections.Experience {
		out.Experience = append(out.Experience, AdaptedExperience{
			Title:    e.Title,
			Company:  e.Organization,
			Location: e.Location,
			Dates:    FormatPeriod(e, loc),
			Bullets:  nonNil(e.Bullets),
		})
	}
	for _, e := range sections.Projects {
		out.Projects = append(out.Projects, AdaptedProject{
			Title:   e.Title,
			Role:    e.Subtitle,
			Bullets: nonNil(e.Bullets),
		})
	}
	for _, e := range sections.Education {
		out.Education = append(out.Education, AdaptedEducation{
			Degree:   e.Title,
			School:   e.Organization,
			Location: e.Location,
			Dates:    FormatPeriod(e, loc),
			Bullets:  nonNil(e.Bullets),
		})
	}
	return out
}

// ApplyAdapted 把改写文档合并到 base 的副本中。
//
// 改写后的条目先按职位与机构、再按位置匹配同类别的原条目。
// 匹配上的条目保留 ref、日期、描述等文档中没有的字段；
// 未匹配的条目成为新条目，其 Duration 保存改写后的日期文本。
// 类别标签保留下来的技能分组继续沿用原来的条目 ref。
func ApplyAdapted(base CV, a AdaptedCV, loc Locale) CV {
	out := base
	out.Personal = PersonalInfo{
		Name:     a.Name,
		Headline: a.Title,
		Email:    a.Email,
		Phone:    a.Phone,
		Location: a.Location,
		LinkedIn: a.LinkedIn,
		Website:  a.Website,
		Summary:  a.Summary,
	}

	sections := Partition(base.Entries)
	var entries []TimelineEntry

	exp := newMatcher(sections.Experience)
	for _, x := range a.Experience {
		e, ok := exp.take(x.Title, x.Company)
		if !ok {
			e = TimelineEntry{Category: CategoryExperience, Duration: x.Dates}
		} else if x.Dates != "" && x.Dates != FormatPeriod(e, loc) {
			e.Duration = x.Dates
			e.StartDate, e.EndDate, e.IsCurrentPosition = nil, nil, false
		}
		e.Title, e.Organization, e.Location = x.Title, x.Company, x.Location
		e.Bullets = cloneStrings(x.Bullets)
		entries = append(entries, e)
	}

	proj := newMatcher(sections.Projects)
	for _, x := range a.Projects {
		e, ok := proj.take(x.Title, "")
		if !ok {
			e = TimelineEntry{Category: CategoryProject}
		}
		e.Title, e.Subtitle = x.Title, x.Role
		e.Bullets = cloneStrings(x.Bullets)
		entries = append(entries, e)
	}

	edu := newMatcher(sections.Education)
	for _, x := range a.Education {
		e, ok := edu.take(x.Degree, x.School)
		if !ok {
			e = TimelineEntry{Category: CategoryEducation, Duration: x.Dates}
		} else if x.Dates != "" && x.Dates != FormatPeriod(e, loc) {
			e.Duration = x.Dates
			e.StartDate, e.EndDate, e.GraduationYear = nil, nil, nil
		}
		e.Title, e.Organization, e.Location = x.Degree, x.School, x.Location
		e.Bullets = cloneStrings(x.Bullets)
		entries = append(entries, e)
	}

	used := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.Ref != "" {
			used[e.Ref] = struct{}{}
		}
	}
	next := 0
	for i := range entries {
		if entries[i].Ref != "" {
			continue
		}
		for {
			ref := DefaultRef(next)
			next++
			if _, taken := used[ref]; !taken {
				entries[i].Ref = ref
				used[ref] = struct{}{}
				break
			}
		}
	}
	out.Entries = entries

	refsByCategory := make(map[string][]string, len(base.Skills))
	for _, g := range base.Skills {
		key := strings.ToLower(strings.TrimSpace(g.Category))
		refsByCategory[key] = append(refsByCategory[key], g.EntryRefs...)
	}
	out.Skills = make([]SkillGroup, 0, len(a.Skills))
	for _, s := range a.Skills {
		var refs []string
		for _, ref := range refsByCategory[strings.ToLower(strings.TrimSpace(s.Category))] {
			if _, ok := used[ref]; ok {
				refs = append(refs, ref)
			}
		}
		out.Skills = append(out.Skills, SkillGroup{Category: s.Category, Items: cloneStrings(s.Items), EntryRefs: refs})
	}
	return out
}

type matcher struct {
	entries []TimelineEntry
	taken   []bool
}

func newMatcher(entries []TimelineEntry) *matcher {
	return &matcher{entries: entries, taken: make([]bool, len(entries))}
}

// take 返回第一个职位与机构都相同且未使用的条目，
// 否则返回第一个未使用的条目。
func (m *matcher) take(title, org string) (TimelineEntry, bool) {
	for i, e := range m.entries {
		if m.taken[i] {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(e.Title), strings.TrimSpace(title)) &&
			(org == "" || strings.EqualFold(strings.TrimSpace(e.Organization), strings.TrimSpace(org))) {
			m.taken[i] = true
			return e, true
		}
	}
	for i, e := range m.entries {
		if !m.taken[i] {
			m.taken[i] = true
			return e, true
		}
	}
	return TimelineEntry{}, false
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func cloneStrings(items []string) []string {
	if items == nil {
		return nil
	}
	return append([]string(nil), items...)
}
