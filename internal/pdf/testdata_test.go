package pdf

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"cvstudio/internal/resume"
)

func intPtr(v int) *int { return &v }

func testCV() resume.CV {
	return resume.CV{
		ID: 7,
		Personal: resume.PersonalInfo{
			Name:     "Ada Lovelace",
			Email:    "ada@example.com",
			Phone:    "+44 20 7946 0000",
			Location: "London",
			LinkedIn: "linkedin.com/in/ada",
			Summary:  "Engineer with a taste for analytical engines.",
		},
		Entries: []resume.TimelineEntry{
			{
				Ref:          "globex",
				Category:     resume.CategoryExperience,
				Title:        "Developer",
				Organization: "Globex",
				StartDate:    resume.NewDate(2019, time.March, 1),
				EndDate:      resume.NewDate(2021, time.December, 31),
				Bullets:      []string{"Maintained the payroll system", "  "},
			},
			{
				Ref:               "acme",
				Category:          resume.CategoryExperience,
				Title:             "Backend Engineer",
				Organization:      "Acme",
				Subtitle:          "Payments team",
				Description:       "Owned the billing platform.",
				StartDate:         resume.NewDate(2022, time.January, 1),
				EndDate:           resume.NewDate(2022, time.February, 1),
				IsCurrentPosition: true,
				Bullets:           []string{"Built the billing pipeline", "", "Cut p99 latency by 40%"},
			},
			{
				Ref:            "uni",
				Category:       resume.CategoryEducation,
				Title:          "BSc Mathematics",
				Organization:   "University of London",
				StartDate:      resume.NewDate(2016, time.September, 1),
				EndDate:        resume.NewDate(2020, time.May, 31),
				GraduationYear: intPtr(2020),
				Grade:          "First",
			},
			{
				Ref:         "engine",
				Category:    resume.CategoryProject,
				Title:       "Difference Engine",
				Description: "Mechanical calculator emulator",
				Tech:        "Go",
			},
		},
		Skills: []resume.SkillGroup{
			{Category: "Languages", Items: []string{"Go", "SQL"}, EntryRefs: []string{"acme"}},
			{Category: "Infra", Items: []string{"Docker", "Go"}, EntryRefs: []string{"acme", "globex"}},
		},
		UpdatedAt: time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC),
	}
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 8), G: 90, B: uint8(y * 8), A: 200})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
