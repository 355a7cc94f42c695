package resume

import (
	"math"
	"sort"
)

// SelectSection 按展示顺序返回某一类别的条目。
// 不修改输入切片。排序键相同的条目保持输入顺序。
func SelectSection(entries []TimelineEntry, category Category) []TimelineEntry {
	selected := make([]TimelineEntry, 0, len(entries))
	for _, e := range entries {
		if e.Category == category {
			selected = append(selected, e)
		}
	}

	switch category {
	case CategoryEducation:
		sort.SliceStable(selected, func(i, j int) bool {
			return educationKey(selected[i]) > educationKey(selected[j])
		})
	default:
		sort.SliceStable(selected, func(i, j int) bool {
			return startsAfter(selected[i], selected[j])
		})
	}
	return selected
}

// Sections 按展示顺序保存各时间线类别。
type Sections struct {
	Experience []TimelineEntry
	Projects   []TimelineEntry
	Education  []TimelineEntry
}

// Partition 把条目拆分为三个部分。
func Partition(entries []TimelineEntry) Sections {
	return Sections{
		Experience: SelectSection(entries, CategoryExperience),
		Projects:   SelectSection(entries, CategoryProject),
		Education:  SelectSection(entries, CategoryEducation),
	}
}

// Len 是所有部分的条目总数。
func (s Sections) Len() int {
	return len(s.Experience) + len(s.Projects) + len(s.Education)
}

// startsAfter 按开始日期降序；缺少开始日期视为最小。
func startsAfter(a, b TimelineEntry) bool {
	switch {
	case a.StartDate == nil:
		return false
	case b.StartDate == nil:
		return true
	default:
		return a.StartDate.After(b.StartDate.Time)
	}
}

func educationKey(e TimelineEntry) int {
	switch {
	case e.GraduationYear != nil:
		return *e.GraduationYear
	case e.EndDate != nil:
		return e.EndDate.Year()
	case e.StartDate != nil:
		return e.StartDate.Year()
	default:
		return math.MinInt
	}
}
