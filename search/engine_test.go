package search_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"protein-atlas/models"
	"protein-atlas/repository"
	"protein-atlas/search"
)

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

// corpus: 12 Artikel, drei davon Spider Silk (2020–2023). Gleiche Daten bei
// 3/4 und 7/12 prüfen den ID-Tie-Break, Artikel 11 hat kein Datum.
func corpus() []models.Article {
	return []models.Article{
		{ID: 1, Title: "Spidroin assembly in vitro", PubDate: day(2020, time.February, 1), PublicationType: "Journal Article",
			FacetsProteinFamily:        pq.StringArray{"Spider Silk"},
			FacetsProteinCategories:    pq.StringArray{"Structural proteins"},
			FacetsProteinSubcategories: pq.StringArray{"Structural proteins: Silks"},
			Proteins:                   []models.Protein{{ID: 1, Name: "MaSp1", Type: "Spidroin"}}},
		{ID: 2, Title: "Silkworm fibroin films", PubDate: day(2020, time.June, 1), PublicationType: "Journal Article",
			FacetsProteinFamily: pq.StringArray{"Silk fibroin"},
			FacetsApplication:   pq.StringArray{"Optics"}},
		{ID: 3, Title: "Dragline silk mechanics", PubDate: day(2021, time.March, 1), PublicationType: "Review",
			FacetsProteinFamily:     pq.StringArray{"spider silk"},
			FacetsProteinCategories: pq.StringArray{"Structural proteins"}},
		{ID: 4, Title: "Resilin hydrogels", PubDate: day(2021, time.March, 1), PublicationType: "Journal Article",
			FacetsProteinFamily: pq.StringArray{"Resilin"},
			Proteins:            []models.Protein{{ID: 2, Name: "Rec1", Type: "Elastomeric protein"}}},
		{ID: 5, Title: "Calmodulin sensors", PubDate: day(2021, time.September, 1), PublicationType: "Review",
			FacetsProteinFamily:     pq.StringArray{"Calmodulin"},
			FacetsProteinCategories: pq.StringArray{"Signaling proteins"}},
		{ID: 6, Title: "Elastin networks", PubDate: day(2022, time.January, 1), PublicationType: "Journal Article",
			FacetsProteinFamily: pq.StringArray{"Elastomeric proteins"},
			Proteins:            []models.Protein{{ID: 3, Name: "ELP", Type: "Elastomeric protein"}}},
		{ID: 7, Title: "Spider silk composites", PubDate: day(2023, time.May, 1), PublicationType: "Journal Article",
			FacetsProteinFamily: pq.StringArray{"Spider Silk"},
			FacetsApplication:   pq.StringArray{"Medical sutures"}},
		{ID: 8, Title: "Collagen scaffold mechanics", PubDate: day(2022, time.June, 30), PublicationType: "Journal Article",
			FacetsProteinFamily: pq.StringArray{"Collagen"}},
		{ID: 9, Title: "Mussel adhesive proteins", PubDate: day(2022, time.July, 1),
			FacetsProteinFamily: pq.StringArray{"Mussel foot protein"}},
		{ID: 10, Title: "Keratin fibers", PubDate: day(2023, time.January, 1), PublicationType: "Systematic Review",
			FacetsProteinFamily: pq.StringArray{"Keratin"}},
		{ID: 11, Title: "Untitled preprint", PublicationType: "Preprint",
			FacetsProteinFamily: pq.StringArray{"Amyloid"}},
		{ID: 12, Title: "Reflectin photonics", PubDate: day(2023, time.May, 1), PublicationType: "Journal Article",
			FacetsProteinFamily:    pq.StringArray{"Reflectin"},
			FacetsStructuralMotifs: pq.StringArray{"Beta-sheet"}},
	}
}

var (
	allDesc = []int64{12, 7, 10, 9, 8, 6, 5, 4, 3, 2, 1, 11}
	allAsc  = []int64{1, 2, 3, 4, 5, 6, 8, 9, 10, 7, 12, 11}
)

type EngineSuite struct {
	suite.Suite
	ctx    context.Context
	repo   *repository.Memory
	engine *search.Engine
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.ctx = context.Background()
	s.use(repository.NewMemory())
}

func (s *EngineSuite) use(repo *repository.Memory) {
	repo.AddArticles(corpus()...)
	s.repo = repo
	s.engine = search.NewEngine(repo, search.Options{DefaultPageSize: 10, MaxPageSize: 100}, zap.NewNop(), nil)
}

func (s *EngineSuite) spec(p search.FilterParams) search.FilterSpec {
	spec, err := p.Spec()
	s.Require().NoError(err)
	return spec
}

func (s *EngineSuite) search(p search.FilterParams, page, size int, bookmarks ...int64) *search.Result {
	res, err := s.engine.Search(s.ctx, s.spec(p), page, size, bookmarks)
	s.Require().NoError(err)
	return res
}

func articleIDs(as []models.Article) []int64 {
	out := make([]int64, len(as))
	for i, a := range as {
		out[i] = a.ID
	}
	return out
}

func (s *EngineSuite) TestSpiderSilkFamilyPushedDown() {
	res := s.search(search.FilterParams{ProteinFamily: []string{"Spider Silk"}}, 0, 10)
	s.Equal([]int64{7, 3, 1}, articleIDs(res.Articles))
	s.EqualValues(3, res.TotalCount)
	s.True(res.CountExact)
}

func (s *EngineSuite) TestSpiderSilkFamilyRefinedInMemory() {
	s.use(repository.NewMemory(repository.WithFamilyPushdown(false)))

	res := s.search(search.FilterParams{ProteinFamily: []string{"Spider Silk"}}, 0, 20)
	s.Equal([]int64{7, 3, 1}, articleIDs(res.Articles))
	s.False(res.CountExact)

	// Nachfilter nur auf der Seite: unterfüllte Seite, Count überschätzt
	page := s.search(search.FilterParams{ProteinFamily: []string{"Spider Silk"}}, 0, 10)
	s.Equal([]int64{7, 3}, articleIDs(page.Articles))
	s.EqualValues(12, page.TotalCount)
	s.False(page.CountExact)
}

func (s *EngineSuite) TestNonexistentProteinTypeSkipsQueries() {
	res := s.search(search.FilterParams{ProteinType: []string{"nonexistent-type"}}, 0, 10)
	s.Empty(res.Articles)
	s.NotNil(res.Articles)
	s.Zero(res.TotalCount)

	calls := s.repo.Calls()
	s.EqualValues(1, calls.Resolves)
	s.Zero(calls.Counts)
	s.Zero(calls.Fetches)
}

func (s *EngineSuite) TestProteinTypeRestrictsToOwners() {
	res := s.search(search.FilterParams{ProteinType: []string{"Elastomeric protein"}}, 0, 10)
	s.Equal([]int64{6, 4}, articleIDs(res.Articles))
	s.EqualValues(2, res.TotalCount)
	s.NotEmpty(res.Articles[0].Proteins)
}

func (s *EngineSuite) TestBookmarksOnlyWithoutBookmarks() {
	res := s.search(search.FilterParams{ShowBookmarksOnly: true}, 0, 10)
	s.Empty(res.Articles)
	s.Zero(res.TotalCount)
	s.Equal(repository.CallStats{}, s.repo.Calls())
}

func (s *EngineSuite) TestBookmarksOnlyNeverReturnsOthers() {
	res := s.search(search.FilterParams{ShowBookmarksOnly: true}, 0, 10, 3, 5, 99)
	s.Equal([]int64{5, 3}, articleIDs(res.Articles))
	s.EqualValues(2, res.TotalCount)

	// ohne den Schalter werden Bookmarks ignoriert
	all := s.search(search.FilterParams{}, 0, 100, 3)
	s.EqualValues(12, all.TotalCount)
}

func (s *EngineSuite) TestPaginationCoversEveryArticleOnce() {
	for _, dir := range []search.SortDirection{search.SortDesc, search.SortAsc} {
		want := allDesc
		if dir == search.SortAsc {
			want = allAsc
		}
		for size := 1; size <= 5; size++ {
			first := s.search(search.FilterParams{SortDirection: dir}, 0, size)
			var got []int64
			for page := 0; page < first.TotalPages(); page++ {
				res := s.search(search.FilterParams{SortDirection: dir}, page, size)
				s.EqualValues(12, res.TotalCount)
				got = append(got, articleIDs(res.Articles)...)
			}
			s.Equal(want, got, "dir=%s size=%d", dir, size)
		}
	}
}

func (s *EngineSuite) TestIdempotent() {
	p := search.FilterParams{Query: "silk", ExcludeReviews: true}
	first := s.search(p, 0, 10)
	second := s.search(p, 0, 10)
	s.Equal(first, second)
}

func (s *EngineSuite) TestDateRangeEndIsInclusive() {
	res := s.search(search.FilterParams{StartDate: "2022-01-01", EndDate: "2022-06-30"}, 0, 10)
	s.Equal([]int64{8, 6}, articleIDs(res.Articles))

	res = s.search(search.FilterParams{StartDate: "2022-07-01"}, 0, 10)
	s.Equal([]int64{12, 7, 10, 9}, articleIDs(res.Articles))
}

func (s *EngineSuite) TestReviewsConflictResolvesToReviewsOnly() {
	res := s.search(search.FilterParams{ShowReviewsOnly: true, ExcludeReviews: true}, 0, 10)
	s.Equal([]int64{10, 5, 3}, articleIDs(res.Articles))
	s.EqualValues(3, res.TotalCount)

	excluded := s.search(search.FilterParams{ExcludeReviews: true}, 0, 20)
	s.EqualValues(9, excluded.TotalCount)
	s.Contains(articleIDs(excluded.Articles), int64(9))
}

func (s *EngineSuite) TestCategoryOverlap() {
	res := s.search(search.FilterParams{ProteinCategory: []string{"Signaling proteins", "Unknown"}}, 0, 10)
	s.Equal([]int64{5}, articleIDs(res.Articles))

	res = s.search(search.FilterParams{ProteinSubcategory: []string{"Structural proteins: Silks"}}, 0, 10)
	s.Equal([]int64{1}, articleIDs(res.Articles))
}

func (s *EngineSuite) TestTextSearchAcrossScalarsAndFacets() {
	res := s.search(search.FilterParams{Query: "  SILK "}, 0, 10)
	s.Equal([]int64{7, 3, 2, 1}, articleIDs(res.Articles))
	s.True(res.CountExact)
	s.Equal(search.LevelCombined, res.TextLevel)
}

func (s *EngineSuite) TestZeroCountSkipsFetch() {
	res := s.search(search.FilterParams{Query: "zzzz"}, 0, 10)
	s.Empty(res.Articles)
	s.Zero(res.TotalCount)
	s.Zero(s.repo.Calls().Fetches)
}

func (s *EngineSuite) TestRejectedCombinedStepsDownToPerArray() {
	s.use(repository.NewMemory(repository.RejectingLevels(search.LevelCombined)))

	res := s.search(search.FilterParams{Query: "silk"}, 0, 10)
	s.Equal([]int64{7, 3, 2, 1}, articleIDs(res.Articles))
	s.Equal(search.LevelPerArray, res.TextLevel)
	s.True(res.CountExact)
	s.Empty(res.Notice)
	s.Equal(search.LevelPerArray, s.engine.Level())
}

func (s *EngineSuite) TestRejectedTermKeepsCachedLevel() {
	s.use(repository.NewMemory(repository.RejectingTerms("silk")))

	res := s.search(search.FilterParams{Query: "silk"}, 0, 10)
	s.Equal(search.NoticeUnsearchable, res.Notice)
	s.Equal(search.LevelCombined, s.engine.Level())

	next := s.search(search.FilterParams{Query: "resilin"}, 0, 10)
	s.Empty(next.Notice)
	s.Equal(search.LevelCombined, next.TextLevel)
	s.Contains(articleIDs(next.Articles), int64(4))
}

func (s *EngineSuite) TestStoreFailureDuringTextSearchSurfaces() {
	s.repo.FailNext(1, search.Internal("count articles", errors.New("permission denied for table articles")))

	_, err := s.engine.Search(s.ctx, s.spec(search.FilterParams{Query: "silk"}), 0, 10, nil)
	var se *search.Error
	s.Require().ErrorAs(err, &se)
	s.Equal(search.KindInternal, se.Kind)
	s.Equal(search.LevelCombined, s.engine.Level())

	res := s.search(search.FilterParams{Query: "silk"}, 0, 10)
	s.Equal(search.LevelCombined, res.TextLevel)
	s.Empty(res.Notice)
}

func (s *EngineSuite) TestScalarOnlyCountMayOverestimate() {
	s.use(repository.NewMemory(repository.RejectingLevels(search.LevelCombined, search.LevelPerArray)))

	res := s.search(search.FilterParams{Query: "silk mechanics"}, 0, 10)
	s.Equal(search.LevelScalarOnly, res.TextLevel)
	s.Equal([]int64{3}, articleIDs(res.Articles))
	s.EqualValues(2, res.TotalCount)
	s.False(res.CountExact)
}

func (s *EngineSuite) TestUnsearchableQueryYieldsNotice() {
	res := s.search(search.FilterParams{Query: "%%% ***"}, 0, 10)
	s.Empty(res.Articles)
	s.Zero(res.TotalCount)
	s.Equal(search.NoticeUnsearchable, res.Notice)
	s.Equal(search.LevelUnsearchable, res.TextLevel)
	s.Zero(s.repo.Calls().Counts)
}

func (s *EngineSuite) TestEveryLevelRejectedYieldsNotice() {
	s.use(repository.NewMemory(repository.RejectingLevels(
		search.LevelCombined, search.LevelPerArray, search.LevelScalarOnly,
	)))

	res := s.search(search.FilterParams{Query: "silk"}, 0, 10)
	s.Empty(res.Articles)
	s.Equal(search.NoticeUnsearchable, res.Notice)

	// Suchen ohne Text bleiben unberührt
	plain := s.search(search.FilterParams{}, 0, 10)
	s.EqualValues(12, plain.TotalCount)
}

func (s *EngineSuite) TestCalibrateSelectsFirstAcceptedLevel() {
	s.use(repository.NewMemory(repository.RejectingLevels(search.LevelCombined)))

	level, err := s.engine.Calibrate(s.ctx)
	s.Require().NoError(err)
	s.Equal(search.LevelPerArray, level)

	before := s.repo.Calls()
	s.search(search.FilterParams{Query: "silk"}, 0, 10)
	after := s.repo.Calls()
	s.EqualValues(1, after.Counts-before.Counts)
	s.EqualValues(1, after.Fetches-before.Fetches)
}

func (s *EngineSuite) TestTransportFailureIsRetryable() {
	s.repo.FailNext(1, search.Unavailable("count articles", errors.New("connection reset by peer")))

	_, err := s.engine.Search(s.ctx, s.spec(search.FilterParams{}), 0, 10, nil)
	s.Require().Error(err)
	s.True(search.IsRetryable(err))
	s.NotContains(search.UserMessage(err), "connection reset")

	res, err := s.engine.Search(s.ctx, s.spec(search.FilterParams{}), 0, 10, nil)
	s.Require().NoError(err)
	s.EqualValues(12, res.TotalCount)
}

func (s *EngineSuite) TestUnknownFailureIsInternal() {
	s.repo.FailNext(1, errors.New("boom"))

	_, err := s.engine.Search(s.ctx, s.spec(search.FilterParams{}), 0, 10, nil)
	var se *search.Error
	s.Require().ErrorAs(err, &se)
	s.Equal(search.KindInternal, se.Kind)
	s.False(search.IsRetryable(err))
}

func (s *EngineSuite) TestBlankQuerySearchesEverything() {
	s.use(repository.NewMemory(repository.RejectingLevels(
		search.LevelCombined, search.LevelPerArray, search.LevelScalarOnly,
	)))

	res := s.search(search.FilterParams{Query: " \t "}, 0, 10)
	s.EqualValues(12, res.TotalCount)
	s.Empty(res.Notice)
	s.Equal("10 of 12 (exact=true, level=combined)", res.String())
}

func (s *EngineSuite) TestHugePageIsEmpty() {
	res := s.search(search.FilterParams{}, 1<<62, 10)
	s.Empty(res.Articles)
	s.NotNil(res.Articles)
	s.EqualValues(12, res.TotalCount)
	s.Equal(1<<62, res.Page)
	s.Zero(s.repo.Calls().Fetches)

	last := s.search(search.FilterParams{}, math.MaxInt/10, 10)
	s.Empty(last.Articles)
}

func (s *EngineSuite) TestPageSizeIsClamped() {
	res := s.search(search.FilterParams{}, -1, 0)
	s.Equal(0, res.Page)
	s.Equal(10, res.PageSize)
	s.Equal(2, res.TotalPages())

	res = s.search(search.FilterParams{}, 0, 1000)
	s.Equal(100, res.PageSize)
}

func TestEngineMetricsRecordDegradation(t *testing.T) {
	repo := repository.NewMemory(repository.RejectingLevels(search.LevelCombined))
	repo.AddArticles(corpus()...)
	reg := prometheus.NewRegistry()
	engine := search.NewEngine(repo, search.Options{}, zap.NewNop(), search.NewMetrics(reg))

	spec, err := search.FilterParams{Query: "silk"}.Spec()
	require.NoError(t, err)
	_, err = engine.Search(context.Background(), spec, 0, 10, nil)
	require.NoError(t, err)

	n, err := testutil.GatherAndCount(reg, "atlas_text_search_degradations_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = testutil.GatherAndCount(reg, "atlas_searches_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRetryRecoversFromTransientFailure(t *testing.T) {
	repo := repository.NewMemory()
	repo.AddArticles(corpus()...)
	engine := search.NewEngine(repo, search.Options{}, zap.NewNop(), nil)
	repo.FailNext(2, search.Unavailable("count articles", errors.New("timeout")))

	spec, err := search.FilterParams{}.Spec()
	require.NoError(t, err)
	policy := search.RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	res, err := search.Retry(context.Background(), policy, func(ctx context.Context) (*search.Result, error) {
		return engine.Search(ctx, spec, 0, 10, nil)
	})
	require.NoError(t, err)
	assert.EqualValues(t, 12, res.TotalCount)
}
