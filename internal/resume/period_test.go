package resume

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestFormatPeriod(t *testing.T) {
	tests := []struct {
		name  string
		entry TimelineEntry
		loc   Locale
		want  string
	}{
		{
			name:  "current position",
			entry: TimelineEntry{StartDate: NewDate(2022, time.January, 1), IsCurrentPosition: true},
			loc:   LocaleEN,
			want:  "January 2022 – Present",
		},
		{
			name:  "current position french",
			entry: TimelineEntry{StartDate: NewDate(2022, time.January, 1), IsCurrentPosition: true},
			loc:   LocaleFR,
			want:  "janvier 2022 – Actuel",
		},
		{
			name:  "start and end",
			entry: TimelineEntry{StartDate: NewDate(2019, time.March, 4), EndDate: NewDate(2021, time.November, 30)},
			loc:   LocaleEN,
			want:  "March 2019 – November 2021",
		},
		{
			name:  "start with duration fallback",
			entry: TimelineEntry{StartDate: NewDate(2019, time.March, 4), Duration: "6 months"},
			loc:   LocaleEN,
			want:  "March 2019 – 6 months",
		},
		{
			name:  "start alone",
			entry: TimelineEntry{StartDate: NewDate(2019, time.March, 4)},
			loc:   LocaleEN,
			want:  "March 2019",
		},
		{
			name:  "duration only",
			entry: TimelineEntry{Duration: "2 years", GraduationYear: intPtr(2018)},
			loc:   LocaleEN,
			want:  "2 years",
		},
		{
			name:  "graduation year only",
			entry: TimelineEntry{GraduationYear: intPtr(2018)},
			loc:   LocaleEN,
			want:  "Graduated 2018",
		},
		{
			name:  "graduation year french",
			entry: TimelineEntry{GraduationYear: intPtr(2018)},
			loc:   LocaleFR,
			want:  "Diplômé en 2018",
		},
		{
			name:  "nothing",
			entry: TimelineEntry{EndDate: NewDate(2020, time.May, 1)},
			loc:   LocaleEN,
			want:  "",
		},
		{
			name:  "unknown locale falls back to english",
			entry: TimelineEntry{StartDate: NewDate(2020, time.May, 1)},
			loc:   Locale("xx"),
			want:  "May 2020",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatPeriod(tt.entry, tt.loc))
		})
	}
}

func TestFormatPeriodCurrentIgnoresEndDate(t *testing.T) {
	end := NewDate(2023, time.August, 15)
	entry := TimelineEntry{
		StartDate:         NewDate(2021, time.February, 1),
		EndDate:           end,
		Duration:          "2 years",
		IsCurrentPosition: true,
	}

	for _, loc := range []Locale{LocaleEN, LocaleFR} {
		got := FormatPeriod(entry, loc)
		labels := LabelsFor(loc)
		assert.Contains(t, got, labels.Present)
		assert.NotContains(t, got, labels.MonthYear(*end))
		assert.NotContains(t, got, "2023")
		assert.NotContains(t, got, "2 years")
	}
}

func TestFormatPeriodDeterministic(t *testing.T) {
	entry := TimelineEntry{StartDate: NewDate(2020, time.June, 1), EndDate: NewDate(2021, time.June, 1)}
	first := FormatPeriod(entry, LocaleEN)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, FormatPeriod(entry, LocaleEN))
	}
}

func TestEducationYear(t *testing.T) {
	assert.Equal(t, "2020", EducationYear(TimelineEntry{
		GraduationYear: intPtr(2020),
		StartDate:      NewDate(2016, time.September, 1),
		EndDate:        NewDate(2021, time.May, 31),
	}))
	assert.Equal(t, "2016 – 2020", EducationYear(TimelineEntry{
		StartDate: NewDate(2016, time.September, 1),
		EndDate:   NewDate(2020, time.May, 31),
	}))
	assert.Equal(t, "2020", EducationYear(TimelineEntry{EndDate: NewDate(2020, time.May, 31)}))
	assert.Equal(t, "2016", EducationYear(TimelineEntry{StartDate: NewDate(2016, time.May, 31)}))
	assert.Equal(t, "", EducationYear(TimelineEntry{}))
}

func TestParseLocale(t *testing.T) {
	loc, err := ParseLocale("fr-FR")
	assert.NoError(t, err)
	assert.Equal(t, LocaleFR, loc)

	loc, err = ParseLocale("")
	assert.NoError(t, err)
	assert.Equal(t, LocaleEN, loc)

	_, err = ParseLocale("de")
	assert.Error(t, err)
}
