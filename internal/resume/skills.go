package resume

import "strings"

// FlattenSkills 按首次出现的顺序返回所有分组中的技能，每个只出现一次。
// 空项被丢弃，比较时忽略首尾空白。
func FlattenSkills(groups []SkillGroup) []string {
	seen := make(map[string]struct{})
	var flat []string
	for _, g := range groups {
		flat = appendUnique(flat, seen, g.Items)
	}
	return flat
}

// GroupedSkills 跨分组去重，同时保留分组标签。
// 去重后没有技能的分组被丢弃。
func GroupedSkills(groups []SkillGroup) []SkillGroup {
	seen := make(map[string]struct{})
	out := make([]SkillGroup, 0, len(groups))
	for _, g := range groups {
		items := appendUnique(nil, seen, g.Items)
		if len(items) == 0 {
			continue
		}
		out = append(out, SkillGroup{Category: strings.TrimSpace(g.Category), Items: items, EntryRefs: g.EntryRefs})
	}
	return out
}

// RelatedSkills 把技能分组关联解析为条目 ref → 技能列表。
// 每个列表是所有指向该条目的分组中技能的去重并集。
func RelatedSkills(groups []SkillGroup) map[string][]string {
	related := make(map[string][]string)
	seen := make(map[string]map[string]struct{})
	for _, g := range groups {
		for _, ref := range g.EntryRefs {
			ref = strings.TrimSpace(ref)
			if ref == "" {
				continue
			}
			if seen[ref] == nil {
				seen[ref] = make(map[string]struct{})
			}
			related[ref] = appendUnique(related[ref], seen[ref], g.Items)
		}
	}
	for ref, items := range related {
		if len(items) == 0 {
			delete(related, ref)
		}
	}
	return related
}

func appendUnique(dst []string, seen map[string]struct{}, items []string) []string {
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		dst = append(dst, item)
	}
	return dst
}
