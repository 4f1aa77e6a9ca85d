package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"protein-atlas/models"
	"protein-atlas/search"
)

func TestMemoryOrdersNullDatesLast(t *testing.T) {
	m := NewMemory()
	m.AddArticles(
		models.Article{ID: 1, Title: "a", PubDate: day(2020, time.May, 1)},
		models.Article{ID: 2, Title: "b"},
		models.Article{ID: 3, Title: "c", PubDate: day(2020, time.May, 1)},
		models.Article{ID: 4, Title: "d", PubDate: day(2022, time.May, 1)},
	)
	ctx := context.Background()

	desc, err := m.FetchArticles(ctx, search.Predicate{}, search.Window{Sort: search.SortDesc})
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 3, 1, 2}, ids(desc))

	asc, err := m.FetchArticles(ctx, search.Predicate{}, search.Window{Sort: search.SortAsc})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 4, 2}, ids(asc))

	page, err := m.FetchArticles(ctx, search.Predicate{}, search.Window{Sort: search.SortDesc, Offset: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1}, ids(page))

	beyond, err := m.FetchArticles(ctx, search.Predicate{}, search.Window{Offset: 10, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func TestMemoryTextLevels(t *testing.T) {
	m := NewMemory()
	m.AddArticles(
		models.Article{ID: 1, Title: "Silk fibers"},
		models.Article{ID: 2, Title: "Other", FacetsApplication: pq.StringArray{"Silk textiles"}},
	)
	ctx := context.Background()

	n, err := m.CountArticles(ctx, search.Predicate{Text: &search.TextClause{Level: search.LevelCombined, Term: "silk"}})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = m.CountArticles(ctx, search.Predicate{Text: &search.TextClause{Level: search.LevelScalarOnly, Term: "silk"}})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestMemoryRejectsConfiguredLevels(t *testing.T) {
	m := NewMemory(RejectingLevels(search.LevelCombined))
	_, err := m.CountArticles(context.Background(), search.Predicate{Text: &search.TextClause{Level: search.LevelCombined, Term: "x"}})
	assert.ErrorIs(t, err, search.ErrQueryRejected)

	_, err = m.CountArticles(context.Background(), search.Predicate{Text: &search.TextClause{Level: search.LevelPerArray, Term: "x"}})
	assert.NoError(t, err)
}

func TestMemoryRejectsConfiguredTerms(t *testing.T) {
	m := NewMemory(RejectingTerms("Silk"))
	for _, lvl := range []search.TextLevel{search.LevelCombined, search.LevelPerArray, search.LevelScalarOnly} {
		_, err := m.CountArticles(context.Background(), search.Predicate{Text: &search.TextClause{Level: lvl, Term: "spider silk"}})
		assert.ErrorIs(t, err, search.ErrQueryRejected, lvl.String())
	}
	_, err := m.CountArticles(context.Background(), search.Predicate{Text: &search.TextClause{Level: search.LevelCombined, Term: "resilin"}})
	assert.NoError(t, err)
}

func TestMemoryNegativeOffsetIsEmpty(t *testing.T) {
	m := NewMemory()
	SeedDemo(m)
	got, err := m.FetchArticles(context.Background(), search.Predicate{}, search.Window{Offset: -10, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestArrayLiteral(t *testing.T) {
	assert.Equal(t, "{}", arrayLiteral([]string{}))
	assert.Equal(t, `{"Spider Silk",Resilin}`, arrayLiteral([]string{"Spider Silk", "Resilin"}))
	assert.Equal(t, `{"a\"b","c\\d","",NULLish,"null"}`, arrayLiteral([]string{`a"b`, `c\d`, "", "NULLish", "null"}))
}

func TestMemoryCombinedMatchesArrayText(t *testing.T) {
	m := NewMemory()
	m.AddArticles(models.Article{
		ID:                     1,
		Title:                  "Fibres",
		FacetsProteinFamily:    pq.StringArray{"Silk", "Resilin"},
		FacetsExpressionSystem: pq.StringArray{"E. coli"},
	})
	combined := func(term string) int64 {
		n, err := m.CountArticles(context.Background(), search.Predicate{Text: &search.TextClause{Level: search.LevelCombined, Term: term}})
		require.NoError(t, err)
		return n
	}
	perArray := func(term string) int64 {
		n, err := m.CountArticles(context.Background(), search.Predicate{Text: &search.TextClause{Level: search.LevelPerArray, Term: term}})
		require.NoError(t, err)
		return n
	}

	// Wie "col::text ILIKE": der Begriff darf über Elementgrenzen reichen
	assert.EqualValues(t, 1, combined("silk,resilin"))
	assert.EqualValues(t, 0, perArray("silk,resilin"))
	assert.EqualValues(t, 1, combined(`"e. coli"`))
	assert.EqualValues(t, 1, combined("resilin"))
	assert.EqualValues(t, 1, perArray("resilin"))
}

func TestMemoryFailNext(t *testing.T) {
	m := NewMemory()
	boom := search.Unavailable("count", errors.New("connection reset"))
	m.FailNext(1, boom)

	_, err := m.CountArticles(context.Background(), search.Predicate{})
	assert.ErrorIs(t, err, boom)
	_, err = m.CountArticles(context.Background(), search.Predicate{})
	assert.NoError(t, err)
	assert.EqualValues(t, 2, m.Calls().Counts)
}

func TestMemoryBookmarksIdempotent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.AddBookmark(ctx, "u1", 7))
	require.NoError(t, m.AddBookmark(ctx, "u1", 7))
	require.NoError(t, m.AddBookmark(ctx, "u1", 3))
	got, err := m.ListBookmarks(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 7}, got)

	removed, err := m.RemoveBookmark(ctx, "u1", 7)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = m.RemoveBookmark(ctx, "u1", 7)
	require.NoError(t, err)
	assert.False(t, removed)
	removed, err = m.RemoveBookmark(ctx, "nobody", 1)
	require.NoError(t, err)
	assert.False(t, removed)
	got, err = m.ListBookmarks(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, got)
}

func TestMemoryStats(t *testing.T) {
	m := NewMemory()
	SeedDemo(m)
	ctx := context.Background()

	total, err := m.TotalArticles(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)

	forms, err := m.FacetCounts(ctx, FacetProteinForm)
	require.NoError(t, err)
	require.NotEmpty(t, forms)
	assert.Equal(t, models.FacetCount{Name: "Hydrogel", Count: 2}, forms[0])

	types, err := m.ProteinTypeCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.FacetCount{Name: "Elastomeric protein", Count: 2}, types[0])

	rows, err := m.ClassificationCounts(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Signaling proteins", rows[0].Category)
	assert.EqualValues(t, 1, rows[0].CategoryCount)
	assert.EqualValues(t, 3, rows[1].CategoryCount)

	_, err = m.FacetCounts(ctx, Facet("title"))
	assert.Error(t, err)
}

func ids(as []models.Article) []int64 {
	out := make([]int64, len(as))
	for i, a := range as {
		out[i] = a.ID
	}
	return out
}
