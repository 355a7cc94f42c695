package resume

import (
	"strconv"
	"strings"
)

// PeriodSeparator 连接时间段的两端。
const PeriodSeparator = " – "

// FormatPeriod 渲染条目的时间段：
//
//	有开始日期：    "{start} – {end}"，end 依次取当前标记、结束日期、
//	                时长文本，都没有则为空
//	无开始日期：    时长文本，否则毕业标记，否则 ""
//
// 当前职位总是显示当前标记并忽略 EndDate。
func FormatPeriod(e TimelineEntry, loc Locale) string {
	labels := LabelsFor(loc)
	duration := strings.TrimSpace(e.Duration)

	if e.StartDate != nil {
		start := labels.MonthYear(*e.StartDate)
		var end string
		switch {
		case e.IsCurrentPosition:
			end = labels.Present
		case e.EndDate != nil:
			end = labels.MonthYear(*e.EndDate)
		default:
			end = duration
		}
		if end == "" {
			return start
		}
		return start + PeriodSeparator + end
	}

	if duration != "" {
		return duration
	}
	if e.GraduationYear != nil {
		return labels.Graduated(*e.GraduationYear)
	}
	return ""
}

// EducationYear 是教育条目的年份行：已知毕业年份时取毕业年份，
// 否则取其日期的年份区间。
func EducationYear(e TimelineEntry) string {
	if e.GraduationYear != nil {
		return strconv.Itoa(*e.GraduationYear)
	}
	switch {
	case e.StartDate != nil && e.EndDate != nil:
		startYear, endYear := e.StartDate.Year(), e.EndDate.Year()
		if startYear == endYear {
			return strconv.Itoa(endYear)
		}
		return strconv.Itoa(startYear) + PeriodSeparator + strconv.Itoa(endYear)
	case e.EndDate != nil:
		return strconv.Itoa(e.EndDate.Year())
	case e.StartDate != nil:
		return strconv.Itoa(e.StartDate.Year())
	default:
		return strings.TrimSpace(e.Duration)
	}
}
