package database

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"cvstudio/internal/resume"
)

func newTestStore(t *testing.T) (*Store, *gorm.DB) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewStore(db), db
}

func date(y int, m time.Month) *resume.Date {
	return resume.NewDate(y, m, 1)
}

func storeCV() resume.CV {
	grad := 2019
	return resume.CV{
		Personal: resume.PersonalInfo{
			Name:     "Grace Hopper",
			Headline: "Compiler engineer",
			Email:    "grace@example.com",
			Location: "Arlington",
		},
		Entries: []resume.TimelineEntry{
			{Ref: "navy", Category: resume.CategoryExperience, Title: "Officer", Organization: "US Navy",
				StartDate: date(2015, time.March), EndDate: date(2018, time.June), Bullets: []string{"COBOL"}},
			{Ref: "univac", Category: resume.CategoryExperience, Title: "Engineer", Organization: "Remington Rand",
				StartDate: date(2019, time.January), IsCurrentPosition: true},
			{Ref: "yale", Category: resume.CategoryEducation, Title: "PhD", Organization: "Yale", GraduationYear: &grad},
			{Ref: "a0", Category: resume.CategoryProject, Title: "A-0", Tech: "Assembly"},
		},
		Skills: []resume.SkillGroup{
			{Category: "Languages", Items: []string{"COBOL", "FLOW-MATIC"}, EntryRefs: []string{"univac", "navy"}},
			{Category: "Math", Items: []string{"Calculus"}},
		},
		Links:      []resume.SocialLink{{Kind: "github", URL: "https://github.com/grace"}},
		RawContent: "raw text",
	}
}

func TestStoreCreateGetRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, storeCV())
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)

	assert.Equal(t, "Grace Hopper", got.Personal.Name)
	assert.Equal(t, "Compiler engineer", got.Personal.Headline)
	require.Len(t, got.Entries, 4)
	assert.Equal(t, []string{"navy", "univac", "yale", "a0"}, refs(got.Entries))
	assert.Equal(t, []string{"COBOL"}, got.Entries[0].Bullets)
	assert.Nil(t, got.Entries[1].Bullets)
	assert.True(t, got.Entries[1].IsCurrentPosition)
	require.NotNil(t, got.Entries[2].GraduationYear)
	assert.Equal(t, 2019, *got.Entries[2].GraduationYear)

	require.Len(t, got.Skills, 2)
	assert.Equal(t, []string{"navy", "univac"}, got.Skills[0].EntryRefs, "refs come back in entry order")
	assert.Empty(t, got.Skills[1].EntryRefs)
	assert.Equal(t, []resume.SocialLink{{Kind: "github", URL: "https://github.com/grace"}}, got.Links)
	assert.Equal(t, time.UTC, got.CreatedAt.Location())
}

func TestStoreNormalizesDatesToUTC(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()

	zone := time.FixedZone("UTC+9", 9*3600)
	cv := storeCV()
	local := resume.Date{Time: time.Date(2015, time.March, 1, 5, 0, 0, 0, zone)}
	cv.Entries[0].StartDate = &local

	created, err := store.Create(ctx, cv)
	require.NoError(t, err)

	var row TimelineEntry
	require.NoError(t, db.Where("cv_id = ? AND ref = ?", created.ID, "navy").First(&row).Error)
	require.NotNil(t, row.StartDate)
	assert.True(t, row.StartDate.Equal(local.Time))
	assert.Equal(t, 20, row.StartDate.UTC().Hour())
}

func TestStoreGetMissing(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Get(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Replace(context.Background(), 42, storeCV())
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, store.Delete(context.Background(), 42), ErrNotFound)
	assert.ErrorIs(t, store.SetPhotoKey(context.Background(), 42, "k"), ErrNotFound)
}

func TestStoreReplace(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, storeCV())
	require.NoError(t, err)
	require.NoError(t, store.SetRenderResult(ctx, created.ID, "generated-cvs/1/x.pdf"))

	next := storeCV()
	next.Personal.Name = "Rear Admiral Hopper"
	next.Entries = next.Entries[1:2]
	next.Skills = []resume.SkillGroup{{Category: "Languages", Items: []string{"COBOL"}, EntryRefs: []string{"univac"}}}
	next.Links = nil

	replaced, err := store.Replace(ctx, created.ID, next)
	require.NoError(t, err)

	assert.Equal(t, created.ID, replaced.ID)
	assert.Equal(t, "Rear Admiral Hopper", replaced.Personal.Name)
	assert.Equal(t, []string{"univac"}, refs(replaced.Entries))
	require.Len(t, replaced.Skills, 1)
	assert.Equal(t, []string{"univac"}, replaced.Skills[0].EntryRefs)
	assert.Empty(t, replaced.Links)

	var entries, infos int64
	require.NoError(t, db.Model(&TimelineEntry{}).Count(&entries).Error)
	require.NoError(t, db.Model(&PersonalInfo{}).Count(&infos).Error)
	assert.EqualValues(t, 1, entries)
	assert.EqualValues(t, 1, infos)

	info, err := store.RenderInfo(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "generated-cvs/1/x.pdf", info.PdfObjectKey)
	assert.Equal(t, RenderStatusCompleted, info.RenderStatus)
}

func TestStoreDeleteCascades(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()

	keep, err := store.Create(ctx, storeCV())
	require.NoError(t, err)
	gone, err := store.Create(ctx, storeCV())
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, gone.ID))

	_, err = store.Get(ctx, gone.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	var links int64
	require.NoError(t, db.Table("skill_group_entries").Count(&links).Error)
	assert.EqualValues(t, 2, links, "only the join rows of the kept CV remain")

	for _, model := range []any{&TimelineEntry{}, &SkillGroup{}, &SocialLink{}, &PersonalInfo{}} {
		var n int64
		require.NoError(t, db.Model(model).Where("cv_id = ?", gone.ID).Count(&n).Error)
		assert.Zero(t, n)
	}

	_, err = store.Get(ctx, keep.ID)
	assert.NoError(t, err)
}

func TestStoreTimeline(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, storeCV())
	require.NoError(t, err)

	all, err := store.Timeline(ctx, created.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"univac", "navy", "a0", "yale"}, refs(all))

	experience := resume.CategoryExperience
	exp, err := store.Timeline(ctx, created.ID, &experience)
	require.NoError(t, err)
	assert.Equal(t, []string{"univac", "navy"}, refs(exp))

	_, err = store.Timeline(ctx, created.ID+100, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreSkills(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, storeCV())
	require.NoError(t, err)

	groups, err := store.Skills(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Languages", groups[0].Category)
	assert.Equal(t, []string{"COBOL", "FLOW-MATIC"}, groups[0].Items)
	assert.Equal(t, []string{"navy", "univac"}, groups[0].EntryRefs)
}

func TestStoreList(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		cv := storeCV()
		cv.Personal.Name = fmt.Sprintf("Person %d", i)
		_, err := store.Create(ctx, cv)
		require.NoError(t, err)
	}

	page, total, err := store.List(ctx, 0, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, page, 2)

	rest, _, err := store.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}

func TestStoreDefaultRefs(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	cv := storeCV()
	for i := range cv.Entries {
		cv.Entries[i].Ref = ""
	}
	cv.Skills = nil

	created, err := store.Create(ctx, cv)
	require.NoError(t, err)
	assert.Equal(t, []string{"entry-1", "entry-2", "entry-3", "entry-4"}, refs(created.Entries))
}

func refs(entries []resume.TimelineEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Ref)
	}
	return out
}
