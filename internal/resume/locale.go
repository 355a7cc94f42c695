package resume

import (
	"fmt"
	"strings"
	"time"
)

// Locale 决定生成标签所用的语言。
type Locale string

const (
	LocaleEN Locale = "en"
	LocaleFR Locale = "fr"
)

// DefaultLocale 在未指定语言时使用。
const DefaultLocale = LocaleEN

// Labels 是渲染文档时使用的本地化文案。
type Labels struct {
	Present        string
	GraduatedFmt   string
	Skills         string
	Experience     string
	Projects       string
	Education      string
	Summary        string
	Links          string
	RelatedSkills  string
	Tech           string
	Grade          string
	months         [12]string
	HeadingToUpper bool
}

var labelSets = map[Locale]Labels{
	LocaleEN: {
		Present:        "Present",
		GraduatedFmt:   "Graduated %d",
		Skills:         "Skills",
		Experience:     "Experience",
		Projects:       "Projects",
		Education:      "Education",
		Summary:        "Summary",
		Links:          "Links",
		RelatedSkills:  "Skills:",
		Tech:           "Tech:",
		Grade:          "Grade:",
		HeadingToUpper: true,
		months: [12]string{
			"January", "February", "March", "April", "May", "June",
			"July", "August", "September", "October", "November", "December",
		},
	},
	LocaleFR: {
		Present:        "Actuel",
		GraduatedFmt:   "Diplômé en %d",
		Skills:         "Compétences",
		Experience:     "Expérience",
		Projects:       "Projets",
		Education:      "Formation",
		Summary:        "Profil",
		Links:          "Liens",
		RelatedSkills:  "Compétences :",
		Tech:           "Technologies :",
		Grade:          "Mention :",
		HeadingToUpper: true,
		months: [12]string{
			"janvier", "février", "mars", "avril", "mai", "juin",
			"juillet", "août", "septembre", "octobre", "novembre", "décembre",
		},
	},
}

// ParseLocale 把宽松的语言字符串（"fr-FR"、"EN"）映射到支持的语言。
func ParseLocale(raw string) (Locale, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return DefaultLocale, nil
	}
	if i := strings.IndexAny(raw, "-_"); i > 0 {
		raw = raw[:i]
	}
	loc := Locale(raw)
	if _, ok := labelSets[loc]; !ok {
		return "", fmt.Errorf("unsupported locale %q", raw)
	}
	return loc, nil
}

// LabelsFor 返回 loc 的标签集，缺省回退到英文。
func LabelsFor(loc Locale) Labels {
	if l, ok := labelSets[loc]; ok {
		return l
	}
	return labelSets[DefaultLocale]
}

// MonthYear 把日期格式化为 "Month YYYY"。
func (l Labels) MonthYear(d Date) string {
	t := d.UTC()
	return fmt.Sprintf("%s %d", l.months[t.Month()-time.January], t.Year())
}

// Graduated 格式化 year 的毕业标记。
func (l Labels) Graduated(year int) string {
	return fmt.Sprintf(l.GraduatedFmt, year)
}

// Heading 返回按展示大小写处理的章节标题。
func (l Labels) Heading(title string) string {
	if l.HeadingToUpper {
		return strings.ToUpper(title)
	}
	return title
}
