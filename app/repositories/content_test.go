package repositories

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmcmoto/motoportal/app/models"
	"github.com/vmcmoto/motoportal/pkg/collection"
	"github.com/vmcmoto/motoportal/pkg/testkit"
)

func at(day int) *time.Time {
	t := time.Date(2026, 3, day, 9, 0, 0, 0, time.UTC)
	return &t
}

func TestSections_DefaultVisibleAndHidden(t *testing.T) {
	repo, fb := newRepo(t)
	ctx := context.Background()

	got, err := repo.Sections(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Sections{"news": true, "regulations": true, "employees": true}, got)

	fb.HideSection(models.SectionNews)
	got, err = repo.Sections(ctx)
	require.NoError(t, err)
	assert.False(t, got[models.SectionNews])

	_, err = repo.ListNews(ctx, models.ListQuery{})
	testkit.AssertStatusError(t, err, http.StatusNotFound)
}

func TestNews_PublishedNewestFirst(t *testing.T) {
	repo, fb := newRepo(t)
	ctx := context.Background()
	old := fb.SeedNews(models.News{Title: "Winter service", Content: "Bring your bike", IsPublished: true, PublishedAt: at(1)})
	fresh := fb.SeedNews(models.News{Title: "Spring demo day", Content: "Test rides", IsPublished: true, PublishedAt: at(20)})
	draft := fb.SeedNews(models.News{Title: "Draft", IsPublished: false, PublishedAt: at(25)})

	list, err := repo.ListNews(ctx, models.ListQuery{})
	require.NoError(t, err)
	ids := collection.Map(list, func(n models.News) int64 { return n.ID })
	if diff := cmp.Diff([]int64{fresh.ID, old.ID}, ids); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}

	list, err = repo.ListNews(ctx, models.ListQuery{Search: "RIDES"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, fresh.ID, list[0].ID)

	list, err = repo.ListNews(ctx, models.ListQuery{Skip: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, old.ID, list[0].ID)

	got, err := repo.GetNews(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, "Spring demo day", got.Title)

	_, err = repo.GetNews(ctx, draft.ID)
	testkit.AssertStatusError(t, err, http.StatusNotFound)
}

func TestListQuery_ValidatedBeforeSending(t *testing.T) {
	repo, fb := newRepo(t)
	ctx := context.Background()

	_, err := repo.ListNews(ctx, models.ListQuery{Skip: -1, Limit: 500})
	testkit.AssertValidationFields(t, err, "skip", "limit")
	assert.Zero(t, fb.Calls("news.list"))

	_, err = repo.ListEmployees(ctx, models.ListQuery{Limit: 200})
	assert.NoError(t, err)
}

func TestRegulations_CategoryFilter(t *testing.T) {
	repo, fb := newRepo(t)
	ctx := context.Background()
	safety := fb.SeedRegulation(models.Regulation{News: models.News{Title: "Test ride rules", IsPublished: true, PublishedAt: at(2)}, Category: "sales"})
	fb.SeedRegulation(models.Regulation{News: models.News{Title: "Workshop hours", IsPublished: true, PublishedAt: at(3)}, Category: "service"})

	list, err := repo.ListRegulations(ctx, models.ListQuery{Category: "sales"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Test ride rules", list[0].Title)

	got, err := repo.GetRegulation(ctx, safety.ID)
	require.NoError(t, err)
	assert.Equal(t, "sales", got.Category)
}

func TestEmployees_ActiveInDisplayOrder(t *testing.T) {
	repo, fb := newRepo(t)
	ctx := context.Background()
	b := fb.SeedEmployee(models.Employee{FirstName: "Boris", LastName: "Ivanov", Position: "Sales manager", IsActive: true, SortOrder: 2})
	a := fb.SeedEmployee(models.Employee{FirstName: "Anna", LastName: "Petrova", Position: "Mechanic", IsActive: true, SortOrder: 1})
	gone := fb.SeedEmployee(models.Employee{FirstName: "Oleg", LastName: "Sidorov", Position: "Mechanic", SortOrder: 0})

	list, err := repo.ListEmployees(ctx, models.ListQuery{})
	require.NoError(t, err)
	ids := collection.Map(list, func(e models.Employee) int64 { return e.ID })
	assert.Equal(t, []int64{a.ID, b.ID}, ids)

	list, err = repo.ListEmployees(ctx, models.ListQuery{Position: "sales"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Boris Ivanov", list[0].FullName())

	_, err = repo.GetEmployee(ctx, gone.ID)
	testkit.AssertStatusError(t, err, http.StatusNotFound)
}

func TestVideos_SortedAndMissingModel(t *testing.T) {
	repo, fb := newRepo(t)
	ctx := context.Background()
	m := fb.SeedModel(models.Model{Name: "Enduro 250"})
	fb.SeedVideo(m.ID, models.Video{Title: "Walkaround", URL: "https://video.example/2", VideoType: "youtube", SortOrder: 2})
	fb.SeedVideo(m.ID, models.Video{Title: "Test ride", URL: "https://video.example/1", VideoType: "youtube", SortOrder: 1})

	list, err := repo.ListVideos(ctx, m.ID)
	require.NoError(t, err)
	titles := collection.Map(list, func(v models.Video) string { return v.Title })
	assert.Equal(t, []string{"Test ride", "Walkaround"}, titles)

	_, err = repo.ListVideos(ctx, 999)
	testkit.AssertStatusError(t, err, http.StatusNotFound)
}

func TestFilterModels_MatchesEverySpec(t *testing.T) {
	repo, fb := newRepo(t)
	ctx := context.Background()
	enduro := fb.SeedModel(models.Model{Name: "Enduro 250", IsActive: true})
	fb.SeedSpec(enduro.ID, models.Spec{Name: "Engine", Value: "250cc 4T"})
	fb.SeedSpec(enduro.ID, models.Spec{Name: "Cooling", Value: "Liquid"})
	pit := fb.SeedModel(models.Model{Name: "Pit 125", IsActive: true})
	fb.SeedSpec(pit.ID, models.Spec{Name: "Engine", Value: "125cc 4T"})
	hidden := fb.SeedModel(models.Model{Name: "Old 250"})
	fb.SeedSpec(hidden.ID, models.Spec{Name: "Engine", Value: "250cc"})

	res, err := repo.FilterModels(ctx, map[string]string{"Engine": "4t"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)

	res, err = repo.FilterModels(ctx, map[string]string{"Engine": "250", "Cooling": "liquid"})
	require.NoError(t, err)
	require.Len(t, res.Models, 1)
	assert.Equal(t, enduro.ID, res.Models[0].ID)
	assert.Equal(t, map[string]string{"Engine": "250", "Cooling": "liquid"}, res.FiltersApplied)

	res, err = repo.FilterModels(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, res.Total)
	assert.Equal(t, 2, fb.Calls("models.filter"))
}
