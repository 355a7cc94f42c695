package pdf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvstudio/internal/resume"
)

func mustNormalize(t *testing.T, opts Options) Options {
	t.Helper()
	opts, err := opts.normalize()
	require.NoError(t, err)
	return opts
}

func blockTexts(col Column, kind BlockKind) []string {
	var out []string
	for _, b := range col.Blocks {
		if b.Kind == kind {
			out = append(out, b.Text)
		}
	}
	return out
}

func TestBuildDocumentTwoColumn(t *testing.T) {
	doc := BuildDocument(testCV(), mustNormalize(t, Options{}), nil)

	assert.Equal(t, "Ada Lovelace", doc.Header.Name)
	assert.Equal(t, []string{
		"London  •  ada@example.com",
		"+44 20 7946 0000  •  linkedin.com/in/ada",
	}, doc.Header.Contact)
	assert.Equal(t, PageA4, doc.Page)
	assert.Equal(t, DefaultMargins, doc.Margins)

	require.Len(t, doc.Columns, 2)
	left, right := doc.Columns[0], doc.Columns[1]
	assert.Equal(t, []string{"SKILLS", "PROJECTS", "EDUCATION"}, blockTexts(left, KindHeading))
	assert.Equal(t, []string{"EXPERIENCE"}, blockTexts(right, KindHeading))

	require.Equal(t, KindChips, left.Blocks[1].Kind)
	assert.Equal(t, []string{"Go", "SQL", "Docker"}, left.Blocks[1].Items)

	assert.Equal(t, []string{
		"Backend Engineer — Acme — January 2022 – Present",
		"Developer — Globex — March 2019 – December 2021",
	}, blockTexts(right, KindTitle))
	assert.Contains(t, blockTexts(right, KindMuted), "Skills: Go, SQL, Docker")
	assert.Contains(t, blockTexts(right, KindMuted), "Skills: Docker, Go")
	assert.Contains(t, blockTexts(right, KindMuted), "Payments team")
	assert.Contains(t, blockTexts(left, KindMuted), "2020")
	assert.Contains(t, blockTexts(left, KindMuted), "Grade: First")
	assert.Contains(t, blockTexts(left, KindMuted), "Tech: Go")

	for _, b := range right.Blocks {
		if b.Kind == KindBullets {
			for _, item := range b.Items {
				assert.NotEmpty(t, strings.TrimSpace(item))
			}
		}
	}
}

func TestBuildDocumentCurrentPositionHidesEndDate(t *testing.T) {
	doc := BuildDocument(testCV(), mustNormalize(t, Options{}), nil)
	for _, title := range blockTexts(doc.Columns[1], KindTitle) {
		if strings.HasPrefix(title, "Backend Engineer") {
			assert.NotContains(t, title, "February 2022")
		}
	}
}

func TestBuildDocumentOmitsEmptySections(t *testing.T) {
	cv := testCV()
	var entries []resume.TimelineEntry
	for _, e := range cv.Entries {
		if e.Category != resume.CategoryProject {
			entries = append(entries, e)
		}
	}
	cv.Entries = entries
	cv.Skills = nil
	cv.Personal.Summary = "  "

	for _, variant := range []Variant{VariantTwoColumn, VariantSingleColumn} {
		doc := BuildDocument(cv, mustNormalize(t, Options{Variant: variant}), nil)
		headings := doc.Headings()
		assert.NotContains(t, headings, "PROJECTS", variant)
		assert.NotContains(t, headings, "SKILLS", variant)
		assert.Contains(t, headings, "EXPERIENCE", variant)
		assert.Empty(t, doc.Header.Summary)
	}
}

func TestBuildDocumentSingleColumn(t *testing.T) {
	doc := BuildDocument(testCV(), mustNormalize(t, Options{Variant: VariantSingleColumn, Locale: resume.LocaleFR}), nil)

	require.Len(t, doc.Columns, 1)
	col := doc.Columns[0]
	assert.Equal(t, []string{"EXPÉRIENCE", "PROJETS", "FORMATION", "COMPÉTENCES"}, doc.Headings())
	assert.Equal(t, []string{"Languages: Go, SQL", "Infra: Docker"}, blockTexts(col, KindText)[len(blockTexts(col, KindText))-2:])
	assert.Contains(t, blockTexts(col, KindTitle), "Backend Engineer — Acme — janvier 2022 – Actuel")
}

func TestBuildDocumentContactLinesSkipBlanks(t *testing.T) {
	cv := testCV()
	cv.Personal.Location = " "
	cv.Personal.Phone = ""
	cv.Personal.LinkedIn = ""
	cv.Personal.Website = "https://ada.dev"
	cv.Links = []resume.SocialLink{{Kind: "github", URL: "https://github.com/ada"}}

	doc := BuildDocument(cv, mustNormalize(t, Options{}), nil)
	assert.Equal(t, []string{"ada@example.com", "https://ada.dev  •  https://github.com/ada"}, doc.Header.Contact)
}

func TestOptionsNormalize(t *testing.T) {
	_, err := Options{Margins: Margins{Top: -1}}.normalize()
	assert.ErrorIs(t, err, ErrInvalidOptions)

	_, err = Options{PageSize: PageA5, Margins: UniformMargins(50)}.normalize()
	assert.ErrorIs(t, err, ErrInvalidOptions)

	_, err = Options{Variant: "three-column"}.normalize()
	assert.ErrorIs(t, err, ErrInvalidOptions)

	size, err := ParsePageSize("letter")
	require.NoError(t, err)
	assert.Equal(t, PageLetter, size)

	v, err := ParseVariant("single")
	require.NoError(t, err)
	assert.Equal(t, VariantSingleColumn, v)
}
