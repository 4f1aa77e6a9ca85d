package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"protein-atlas/models"
	"protein-atlas/search"
)

// Memory ist ein Repository im Arbeitsspeicher mit denselben Prädikat-Semantiken
// wie Postgres. Es dient dem Entwicklungsmodus (STORE=memory) und Tests.
type Memory struct {
	mu              sync.RWMutex
	articles        map[int64]models.Article
	proteins        []models.Protein
	classifications []models.ProteinClassification
	bookmarks       map[string]map[int64]time.Time

	familyPushdown bool
	rejected       map[search.TextLevel]bool
	rejectedTerms  []string
	failures       int
	failErr        error

	counts   atomic.Int64
	fetches  atomic.Int64
	resolves atomic.Int64
}

// MemoryOption konfiguriert ein Memory-Repository.
type MemoryOption func(*Memory)

// WithFamilyPushdown steuert, ob der Familien-Overlap im Store ausgewertet wird.
func WithFamilyPushdown(enabled bool) MemoryOption {
	return func(m *Memory) { m.familyPushdown = enabled }
}

// RejectingLevels lässt Textklauseln der angegebenen Stufen mit
// ErrQueryRejected scheitern, wie eine Grammatik, die sie nicht versteht.
func RejectingLevels(levels ...search.TextLevel) MemoryOption {
	return func(m *Memory) {
		for _, l := range levels {
			m.rejected[l] = true
		}
	}
}

// RejectingTerms lässt jede Textklausel scheitern, deren Begriff einen der
// Teilstrings enthält, wie eine Grammatik, die an einzelnen Eingaben scheitert.
func RejectingTerms(terms ...string) MemoryOption {
	return func(m *Memory) {
		for _, t := range terms {
			m.rejectedTerms = append(m.rejectedTerms, strings.ToLower(t))
		}
	}
}

// NewMemory erstellt ein leeres Repository.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		articles:       make(map[int64]models.Article),
		bookmarks:      make(map[string]map[int64]time.Time),
		rejected:       make(map[search.TextLevel]bool),
		familyPushdown: true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CallStats zählt die Aufrufe der Engine-Operationen.
type CallStats struct {
	Counts   int64
	Fetches  int64
	Resolves int64
}

func (m *Memory) Calls() CallStats {
	return CallStats{Counts: m.counts.Load(), Fetches: m.fetches.Load(), Resolves: m.resolves.Load()}
}

// FailNext lässt die nächsten n Engine-Operationen mit err scheitern.
func (m *Memory) FailNext(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = n
	m.failErr = err
}

func (m *Memory) injected() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures <= 0 {
		return nil
	}
	m.failures--
	return m.failErr
}

// AddArticles fügt Artikel samt ihrer Proteine ein. Vorhandene IDs werden
// überschrieben.
func (m *Memory) AddArticles(articles ...models.Article) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range articles {
		m.articles[a.ID] = a
		for _, p := range a.Proteins {
			p.ArticleID = a.ID
			m.proteins = append(m.proteins, p)
		}
	}
}

// AddClassifications ergänzt die Referenz-Taxonomie.
func (m *Memory) AddClassifications(cs ...models.ProteinClassification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.classifications = append(m.classifications, cs...)
}

func (m *Memory) SupportsFamilyOverlap() bool { return m.familyPushdown }

func (m *Memory) Ping(ctx context.Context) error { return ctx.Err() }

func (m *Memory) ArticleIDsByProteinType(ctx context.Context, types []string) ([]int64, error) {
	m.resolves.Add(1)
	if err := m.guard(ctx, "article ids by protein type"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []int64
	for _, p := range m.proteins {
		for _, t := range types {
			if p.Type == t {
				ids = append(ids, p.ArticleID)
				break
			}
		}
	}
	return ids, nil
}

func (m *Memory) CountArticles(ctx context.Context, p search.Predicate) (int64, error) {
	m.counts.Add(1)
	if err := m.check(ctx, "count articles", p); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.match(p))), nil
}

func (m *Memory) FetchArticles(ctx context.Context, p search.Predicate, w search.Window) ([]models.Article, error) {
	m.fetches.Add(1)
	if err := m.check(ctx, "fetch articles", p); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := m.match(p)
	sortArticles(matched, w.Sort)
	if w.Offset < 0 || w.Offset >= len(matched) {
		return []models.Article{}, nil
	}
	end := len(matched)
	if w.Limit > 0 && w.Limit < end-w.Offset {
		end = w.Offset + w.Limit
	}
	page := matched[w.Offset:end]

	out := make([]models.Article, len(page))
	for i, a := range page {
		out[i] = m.hydrated(a)
	}
	return out, nil
}

func (m *Memory) guard(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return search.Unavailable(op, err)
	}
	return m.injected()
}

func (m *Memory) check(ctx context.Context, op string, p search.Predicate) error {
	if err := m.guard(ctx, op); err != nil {
		return err
	}
	if p.Text == nil {
		return nil
	}
	if m.rejected[p.Text.Level] {
		return fmt.Errorf("%s: %w: level %s", op, search.ErrQueryRejected, p.Text.Level)
	}
	term := strings.ToLower(p.Text.Term)
	for _, t := range m.rejectedTerms {
		if strings.Contains(term, t) {
			return fmt.Errorf("%s: %w: term %q", op, search.ErrQueryRejected, p.Text.Term)
		}
	}
	return nil
}

// hydrated liefert eine Kopie mit den Proteinen aus dem Index; die übrigen
// Kind-Sammlungen werden so übernommen, wie sie eingefügt wurden.
func (m *Memory) hydrated(a models.Article) models.Article {
	a.Proteins = []models.Protein{}
	for _, p := range m.proteins {
		if p.ArticleID == a.ID {
			a.Proteins = append(a.Proteins, p)
		}
	}
	if a.Materials == nil {
		a.Materials = []models.Material{}
	}
	if a.Methods == nil {
		a.Methods = []models.Method{}
	}
	if a.AnalysisTechniques == nil {
		a.AnalysisTechniques = []models.AnalysisTechnique{}
	}
	if a.Results == nil {
		a.Results = []models.Result{}
	}
	return a
}

func (m *Memory) match(p search.Predicate) []models.Article {
	var out []models.Article
	for _, a := range m.articles {
		if matches(&a, p) {
			out = append(out, a)
		}
	}
	return out
}

func matches(a *models.Article, p search.Predicate) bool {
	if p.IDs != nil && !containsID(p.IDs, a.ID) {
		return false
	}
	if p.BookmarkIDs != nil && !containsID(p.BookmarkIDs, a.ID) {
		return false
	}
	if len(p.Categories) > 0 && !search.Overlaps(a.FacetsProteinCategories, p.Categories) {
		return false
	}
	if len(p.Subcategories) > 0 && !search.Overlaps(a.FacetsProteinSubcategories, p.Subcategories) {
		return false
	}
	if len(p.Families) > 0 && !search.OverlapsFold(a.FacetsProteinFamily, p.Families) {
		return false
	}
	switch p.Reviews {
	case search.ReviewsOnly:
		if !search.IsReview(a.PublicationType) {
			return false
		}
	case search.ReviewsExcluded:
		if search.IsReview(a.PublicationType) {
			return false
		}
	}
	if p.From != nil && (a.PubDate == nil || a.PubDate.Before(*p.From)) {
		return false
	}
	if p.Until != nil && (a.PubDate == nil || !a.PubDate.Before(*p.Until)) {
		return false
	}
	if p.Text != nil {
		switch p.Text.Level {
		case search.LevelScalarOnly:
			return search.MatchesText(a.ScalarTexts(), nil, p.Text.Term)
		case search.LevelCombined:
			return search.MatchesText(a.ScalarTexts(), arrayLiterals(a.FacetArrays()), p.Text.Term)
		default:
			return search.MatchesText(a.ScalarTexts(), a.FacetArrays(), p.Text.Term)
		}
	}
	return true
}

// arrayLiterals bildet die Facetten so ab, wie Postgres sie bei
// "col::text" ausgibt: ein String pro Array, NULL-Arrays fallen weg.
func arrayLiterals(arrays [][]string) [][]string {
	out := make([][]string, 0, len(arrays))
	for _, arr := range arrays {
		if arr == nil {
			continue
		}
		out = append(out, []string{arrayLiteral(arr)})
	}
	return out
}

// arrayLiteral entspricht der Textausgabe von text[]: Elemente werden nur
// bei Bedarf gequotet, '"' und '\' darin mit Backslash maskiert.
func arrayLiteral(arr []string) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, el := range arr {
		if i > 0 {
			b.WriteByte(',')
		}
		if !needsQuotes(el) {
			b.WriteString(el)
			continue
		}
		b.WriteByte('"')
		for _, r := range el {
			if r == '"' || r == '\\' {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		}
		b.WriteByte('"')
	}
	b.WriteByte('}')
	return b.String()
}

func needsQuotes(el string) bool {
	if el == "" || strings.EqualFold(el, "NULL") {
		return true
	}
	return strings.ContainsAny(el, "{},\"\\ \t\n\r\v\f")
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// sortArticles sortiert wie Postgres: Datum ohne Wert zuletzt, danach ID in
// derselben Richtung.
func sortArticles(as []models.Article, dir search.SortDirection) {
	desc := dir != search.SortAsc
	sort.Slice(as, func(i, j int) bool {
		a, b := as[i], as[j]
		switch {
		case a.PubDate == nil && b.PubDate == nil:
		case a.PubDate == nil:
			return false
		case b.PubDate == nil:
			return true
		case !a.PubDate.Equal(*b.PubDate):
			if desc {
				return a.PubDate.After(*b.PubDate)
			}
			return a.PubDate.Before(*b.PubDate)
		}
		if desc {
			return a.ID > b.ID
		}
		return a.ID < b.ID
	})
}

// ---- Statistiken ----

func (m *Memory) TotalArticles(ctx context.Context) (int64, error) {
	if err := m.guard(ctx, "total articles"); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.articles)), nil
}

func (m *Memory) FacetCounts(ctx context.Context, facet Facet) ([]models.FacetCount, error) {
	if !facet.valid() {
		return nil, fmt.Errorf("unknown facet %q", facet)
	}
	if err := m.guard(ctx, "facet counts"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[string]int64)
	for _, a := range m.articles {
		for _, v := range facetValues(&a, facet) {
			counts[v]++
		}
	}
	return sortedCounts(counts), nil
}

func facetValues(a *models.Article, facet Facet) []string {
	switch facet {
	case FacetProteinFamily:
		return a.FacetsProteinFamily
	case FacetExpressionSystem:
		return a.FacetsExpressionSystem
	case FacetApplication:
		return a.FacetsApplication
	case FacetProteinForm:
		return a.FacetsProteinForm
	}
	return nil
}

func (m *Memory) ProteinTypeCounts(ctx context.Context) ([]models.FacetCount, error) {
	if err := m.guard(ctx, "protein type counts"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[string]int64)
	for _, p := range m.proteins {
		if strings.TrimSpace(p.Type) != "" {
			counts[p.Type]++
		}
	}
	return sortedCounts(counts), nil
}

func (m *Memory) ClassificationCounts(ctx context.Context) ([]models.ClassificationCount, error) {
	if err := m.guard(ctx, "classification counts"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := make([]models.ClassificationCount, 0, len(m.classifications))
	for _, c := range m.classifications {
		row := models.ClassificationCount{Category: c.Category, Subcategory: c.Subcategory}
		for _, a := range m.articles {
			if search.Overlaps(a.FacetsProteinCategories, []string{c.Category}) {
				row.CategoryCount++
			}
			if search.Overlaps(a.FacetsProteinSubcategories, []string{c.Subcategory}) {
				row.SubcategoryCount++
			}
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Category != rows[j].Category {
			return rows[i].Category < rows[j].Category
		}
		return rows[i].Subcategory < rows[j].Subcategory
	})
	return rows, nil
}

func sortedCounts(counts map[string]int64) []models.FacetCount {
	out := make([]models.FacetCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, models.FacetCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// ---- Bookmarks ----

func (m *Memory) ListBookmarks(ctx context.Context, userID string) ([]int64, error) {
	if err := m.guard(ctx, "list bookmarks"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]int64, 0, len(m.bookmarks[userID]))
	for id := range m.bookmarks[userID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *Memory) AddBookmark(ctx context.Context, userID string, articleID int64) error {
	if err := m.guard(ctx, "add bookmark"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.bookmarks[userID]
	if !ok {
		set = make(map[int64]time.Time)
		m.bookmarks[userID] = set
	}
	if _, exists := set[articleID]; !exists {
		set[articleID] = time.Now()
	}
	return nil
}

func (m *Memory) RemoveBookmark(ctx context.Context, userID string, articleID int64) (bool, error) {
	if err := m.guard(ctx, "remove bookmark"); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.bookmarks[userID][articleID]
	delete(m.bookmarks[userID], articleID)
	return ok, nil
}

func (m *Memory) ArticleExists(ctx context.Context, id int64) (bool, error) {
	if err := m.guard(ctx, "article exists"); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.articles[id]
	return ok, nil
}
