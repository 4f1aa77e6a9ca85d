package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"protein-atlas/models"
	"protein-atlas/repository"
)

// DefaultProteinFamilies werden in der Seitenleiste immer angezeigt, auch
// wenn kein Artikel sie trägt.
var DefaultProteinFamilies = []string{"Elastomeric proteins", "Spider Silk", "Resilin", "Calmodulin"}

// StatsStore liefert die Aggregat-Zahlen.
type StatsStore interface {
	TotalArticles(ctx context.Context) (int64, error)
	FacetCounts(ctx context.Context, facet repository.Facet) ([]models.FacetCount, error)
	ProteinTypeCounts(ctx context.Context) ([]models.FacetCount, error)
	ClassificationCounts(ctx context.Context) ([]models.ClassificationCount, error)
}

// StatsService hält die Seitenleisten-Statistik im Cache. Refresh wird per
// Cron aufgerufen; Get lädt nach, wenn der Cache älter als ttl ist.
type StatsService struct {
	store StatsStore
	log   *zap.Logger
	ttl   time.Duration
	now   func() time.Time

	mu       sync.RWMutex
	cached   *models.ArticleStats
	loadedAt time.Time
}

func NewStatsService(store StatsStore, ttl time.Duration, log *zap.Logger) *StatsService {
	return &StatsService{store: store, log: log, ttl: ttl, now: time.Now}
}

// Get liefert die Statistik aus dem Cache oder lädt sie neu.
func (s *StatsService) Get(ctx context.Context) (*models.ArticleStats, error) {
	s.mu.RLock()
	cached, loadedAt := s.cached, s.loadedAt
	s.mu.RUnlock()
	if cached != nil && s.now().Sub(loadedAt) < s.ttl {
		return cached, nil
	}
	return s.Refresh(ctx)
}

// Refresh lädt alle Aggregate neu und ersetzt den Cache.
func (s *StatsService) Refresh(ctx context.Context) (*models.ArticleStats, error) {
	stats := &models.ArticleStats{}
	var classifications []models.ClassificationCount

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.TotalArticles, err = s.store.TotalArticles(gctx)
		return err
	})
	facet := func(f repository.Facet, dest *[]models.FacetCount) {
		g.Go(func() (err error) {
			*dest, err = s.store.FacetCounts(gctx, f)
			return err
		})
	}
	facet(repository.FacetProteinFamily, &stats.ProteinFamilies)
	facet(repository.FacetExpressionSystem, &stats.ExpressionSystems)
	facet(repository.FacetApplication, &stats.Applications)
	facet(repository.FacetProteinForm, &stats.ProteinForms)
	g.Go(func() (err error) {
		stats.ProteinTypes, err = s.store.ProteinTypeCounts(gctx)
		return err
	})
	g.Go(func() (err error) {
		classifications, err = s.store.ClassificationCounts(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Error("Loading article stats failed", zap.Error(err))
		return nil, err
	}

	stats.ProteinFamilies = withDefaults(stats.ProteinFamilies, DefaultProteinFamilies)
	stats.Categories = CategoryTree(classifications)

	s.mu.Lock()
	s.cached, s.loadedAt = stats, s.now()
	s.mu.Unlock()
	s.log.Info("Article stats refreshed",
		zap.Int64("total_articles", stats.TotalArticles),
		zap.Int("categories", len(stats.Categories)),
	)
	return stats, nil
}

// withDefaults ergänzt fehlende Standardwerte mit Anzahl 0 am Ende.
func withDefaults(counts []models.FacetCount, defaults []string) []models.FacetCount {
	out := append([]models.FacetCount{}, counts...)
	present := make(map[string]bool, len(counts))
	for _, c := range counts {
		present[c.Name] = true
	}
	for _, name := range defaults {
		if !present[name] {
			out = append(out, models.FacetCount{Name: name})
		}
	}
	return out
}

// CategoryTree gruppiert die Taxonomie-Zeilen nach Kategorie. Kategorien und
// Unterkategorien sind absteigend nach Anzahl sortiert.
func CategoryTree(rows []models.ClassificationCount) []models.CategoryStats {
	var tree []models.CategoryStats
	index := make(map[string]int)
	for _, r := range rows {
		i, ok := index[r.Category]
		if !ok {
			i = len(tree)
			index[r.Category] = i
			tree = append(tree, models.CategoryStats{Category: r.Category, Count: r.CategoryCount, Subcategories: []models.FacetCount{}})
		}
		if r.Subcategory != "" {
			tree[i].Subcategories = append(tree[i].Subcategories, models.FacetCount{Name: r.Subcategory, Count: r.SubcategoryCount})
		}
	}
	for i := range tree {
		subs := tree[i].Subcategories
		sort.SliceStable(subs, func(a, b int) bool { return subs[a].Count > subs[b].Count })
	}
	sort.SliceStable(tree, func(a, b int) bool { return tree[a].Count > tree[b].Count })
	if tree == nil {
		tree = []models.CategoryStats{}
	}
	return tree
}
