package repository

import (
	"context"
	"strings"

	"github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"protein-atlas/models"
	"protein-atlas/search"
)

// Postgres ist das Artikel-Repository auf Basis von gorm und PostgreSQL.
type Postgres struct {
	db             *gorm.DB
	log            *zap.Logger
	familyPushdown bool
}

// Open verbindet sich mit der Datenbank und migriert das Schema.
func Open(dsn string, log *zap.Logger) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, classify("open", err)
	}
	if err := db.AutoMigrate(
		&models.Article{}, &models.Protein{}, &models.Material{}, &models.Method{},
		&models.AnalysisTechnique{}, &models.Result{},
		&models.ProteinClassification{}, &models.Bookmark{},
	); err != nil {
		return nil, classify("migrate", err)
	}
	return NewPostgres(db, log), nil
}

// NewPostgres verwendet eine bestehende gorm-Verbindung.
func NewPostgres(db *gorm.DB, log *zap.Logger) *Postgres {
	if log == nil {
		log = zap.NewNop()
	}
	return &Postgres{db: db, log: log, familyPushdown: true}
}

// WithoutFamilyPushdown lässt den Familien-Overlap im Speicher auswerten.
func (r *Postgres) WithoutFamilyPushdown() *Postgres {
	cp := *r
	cp.familyPushdown = false
	return &cp
}

func (r *Postgres) SupportsFamilyOverlap() bool { return r.familyPushdown }

// Ping prüft die Verbindung.
func (r *Postgres) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return classify("ping", err)
	}
	return classify("ping", sqlDB.PingContext(ctx))
}

// ArticleIDsByProteinType liefert die IDs der Artikel, deren Proteine einen
// der Typen haben.
func (r *Postgres) ArticleIDsByProteinType(ctx context.Context, types []string) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&models.Protein{}).
		Where("type IN ?", types).
		Distinct("article_id").
		Pluck("article_id", &ids).Error
	if err != nil {
		return nil, classify("article ids by protein type", err)
	}
	return ids, nil
}

// CountArticles zählt die Artikel, die das Prädikat erfüllen.
func (r *Postgres) CountArticles(ctx context.Context, p search.Predicate) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Article{}).Scopes(Filter(p)).Count(&n).Error; err != nil {
		return 0, classify("count articles", err)
	}
	return n, nil
}

// FetchArticles lädt eine sortierte Seite und hydriert die Kind-Entitäten.
func (r *Postgres) FetchArticles(ctx context.Context, p search.Predicate, w search.Window) ([]models.Article, error) {
	var articles []models.Article
	err := r.db.WithContext(ctx).
		Model(&models.Article{}).
		Scopes(Filter(p), Ordered(w.Sort), Paginate(w.Offset, w.Limit)).
		Find(&articles).Error
	if err != nil {
		return nil, classify("fetch articles", err)
	}
	if err := r.hydrate(ctx, articles); err != nil {
		return nil, err
	}
	r.log.Debug("Articles fetched", zap.Int("count", len(articles)), zap.Int("offset", w.Offset))
	return articles, nil
}

// hydrate lädt die fünf Kind-Sammlungen parallel und hängt sie an.
func (r *Postgres) hydrate(ctx context.Context, articles []models.Article) error {
	if len(articles) == 0 {
		return nil
	}
	ids := make([]int64, len(articles))
	for i := range articles {
		ids[i] = articles[i].ID
	}

	var (
		proteins   []models.Protein
		materials  []models.Material
		methods    []models.Method
		techniques []models.AnalysisTechnique
		results    []models.Result
	)
	g, gctx := errgroup.WithContext(ctx)
	load := func(dest any) func() error {
		return func() error {
			return r.db.WithContext(gctx).Where("article_id IN ?", ids).Order("id").Find(dest).Error
		}
	}
	g.Go(load(&proteins))
	g.Go(load(&materials))
	g.Go(load(&methods))
	g.Go(load(&techniques))
	g.Go(load(&results))
	if err := g.Wait(); err != nil {
		return classify("hydrate articles", err)
	}

	index := make(map[int64]*models.Article, len(articles))
	for i := range articles {
		a := &articles[i]
		a.Proteins = []models.Protein{}
		a.Materials = []models.Material{}
		a.Methods = []models.Method{}
		a.AnalysisTechniques = []models.AnalysisTechnique{}
		a.Results = []models.Result{}
		index[a.ID] = a
	}
	for _, c := range proteins {
		if a, ok := index[c.ArticleID]; ok {
			a.Proteins = append(a.Proteins, c)
		}
	}
	for _, c := range materials {
		if a, ok := index[c.ArticleID]; ok {
			a.Materials = append(a.Materials, c)
		}
	}
	for _, c := range methods {
		if a, ok := index[c.ArticleID]; ok {
			a.Methods = append(a.Methods, c)
		}
	}
	for _, c := range techniques {
		if a, ok := index[c.ArticleID]; ok {
			a.AnalysisTechniques = append(a.AnalysisTechniques, c)
		}
	}
	for _, c := range results {
		if a, ok := index[c.ArticleID]; ok {
			a.Results = append(a.Results, c)
		}
	}
	return nil
}

// Filter übersetzt ein Prädikat in WHERE-Klauseln. Count und Fetch verwenden
// denselben Scope.
func Filter(p search.Predicate) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if p.IDs != nil {
			q = q.Where("articles.id IN ?", p.IDs)
		}
		if p.BookmarkIDs != nil {
			q = q.Where("articles.id IN ?", p.BookmarkIDs)
		}
		if len(p.Categories) > 0 {
			q = q.Where("facets_protein_categories && ?::text[]", pq.StringArray(p.Categories))
		}
		if len(p.Subcategories) > 0 {
			q = q.Where("facets_protein_subcategories && ?::text[]", pq.StringArray(p.Subcategories))
		}
		if len(p.Families) > 0 {
			q = q.Where("EXISTS (SELECT 1 FROM unnest(facets_protein_family) AS f WHERE lower(f) = ANY(?::text[]))", pq.StringArray(p.Families))
		}

		switch p.Reviews {
		case search.ReviewsOnly:
			q = q.Where("publication_type ILIKE ?", "%review%")
		case search.ReviewsExcluded:
			// Artikel ohne Publikationstyp sind keine Reviews
			q = q.Where("(publication_type IS NULL OR publication_type NOT ILIKE ?)", "%review%")
		}

		if p.From != nil {
			q = q.Where("pub_date >= ?", *p.From)
		}
		if p.Until != nil {
			q = q.Where("pub_date < ?", *p.Until)
		}

		if p.Text != nil {
			sql, args := textCondition(p.Text)
			q = q.Where(sql, args...)
		}
		return q
	}
}

// textCondition baut die Freitext-Klausel der jeweiligen Stufe.
func textCondition(t *search.TextClause) (string, []any) {
	pattern := "%" + escapeLike(t.Term) + "%"

	var conditions []string
	var args []any
	for _, col := range search.ScalarTextColumns {
		conditions = append(conditions, col+" ILIKE ?")
		args = append(args, pattern)
	}
	switch t.Level {
	case search.LevelCombined:
		for _, col := range search.FacetColumns {
			conditions = append(conditions, col+"::text ILIKE ?")
			args = append(args, pattern)
		}
	case search.LevelPerArray:
		for _, col := range search.FacetColumns {
			conditions = append(conditions, "EXISTS (SELECT 1 FROM unnest("+col+") AS e WHERE e ILIKE ?)")
			args = append(args, pattern)
		}
	}
	return "(" + strings.Join(conditions, " OR ") + ")", args
}

// escapeLike maskiert die LIKE-Metazeichen mit dem Standard-Escape '\'.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Ordered sortiert nach Publikationsdatum; Artikel ohne Datum stehen immer am
// Ende, gleiche Daten werden über die ID in derselben Richtung aufgelöst.
func Ordered(dir search.SortDirection) func(*gorm.DB) *gorm.DB {
	desc := dir != search.SortAsc
	return func(q *gorm.DB) *gorm.DB {
		return q.Order(orderExpr(desc))
	}
}

func orderExpr(desc bool) string {
	if desc {
		return "pub_date DESC NULLS LAST, articles.id DESC"
	}
	return "pub_date ASC NULLS LAST, articles.id ASC"
}

// Paginate schneidet das Fenster [offset, offset+limit) aus. Ein negativer
// Offset liefert keine Zeilen statt der ersten Seite.
func Paginate(offset, limit int) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if offset < 0 {
			return q.Where("1 = 0")
		}
		if offset > 0 {
			q = q.Offset(offset)
		}
		if limit > 0 {
			q = q.Limit(limit)
		}
		return q
	}
}
