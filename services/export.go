package services

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"protein-atlas/models"
	"protein-atlas/search"
	"protein-atlas/storage"
)

// Searcher ist der Teil der Engine, den der Export braucht.
type Searcher interface {
	Search(ctx context.Context, spec search.FilterSpec, page, pageSize int, bookmarkedIDs []int64) (*search.Result, error)
}

// ObjectStore ist das Ziel der Exporte.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}

// ExportOptions konfiguriert den Export.
type ExportOptions struct {
	Prefix   string
	Keep     int
	PageSize int
	Retry    search.RetryPolicy
}

// ExportService schreibt alle Treffer eines Filters als gzip-JSON in den Store.
type ExportService struct {
	searcher Searcher
	store    ObjectStore
	opts     ExportOptions
	log      *zap.Logger
	now      func() time.Time
}

func NewExportService(searcher Searcher, store ObjectStore, opts ExportOptions, log *zap.Logger) *ExportService {
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}
	return &ExportService{searcher: searcher, store: store, opts: opts, log: log, now: time.Now}
}

// Export ist der Inhalt einer Exportdatei.
type Export struct {
	GeneratedAt time.Time           `json:"generated_at"`
	Filter      search.FilterParams `json:"filter"`
	Description string              `json:"description,omitempty"`
	TotalCount  int64               `json:"total_count"`
	CountExact  bool                `json:"count_exact"`
	Notice      string              `json:"notice,omitempty"`
	Articles    []models.Article    `json:"articles"`
	References  []string            `json:"references"`
}

// ExportResult beschreibt eine hochgeladene Exportdatei.
type ExportResult struct {
	Key      string `json:"key"`
	Link     string `json:"link"`
	Articles int    `json:"articles"`
}

// Collect liest alle Seiten des Filters. Jede Seite wird bei transienten
// Fehlern wiederholt.
func (s *ExportService) Collect(ctx context.Context, spec search.FilterSpec, bookmarkedIDs []int64) (*Export, error) {
	out := &Export{
		GeneratedAt: s.now().UTC(),
		Filter:      spec.Params(),
		Description: spec.Description(),
		CountExact:  true,
		Articles:    []models.Article{},
	}
	for page := 0; ; page++ {
		res, err := search.Retry(ctx, s.opts.Retry, func(ctx context.Context) (*search.Result, error) {
			return s.searcher.Search(ctx, spec, page, s.opts.PageSize, bookmarkedIDs)
		})
		if err != nil {
			return nil, err
		}
		out.TotalCount = res.TotalCount
		out.CountExact = out.CountExact && res.CountExact
		out.Notice = res.Notice
		out.Articles = append(out.Articles, res.Articles...)
		if page+1 >= res.TotalPages() {
			break
		}
	}
	out.References = BuildBibliography(out.Articles)
	return out, nil
}

// Run sammelt, komprimiert und lädt den Export hoch; danach werden alte
// Exporte rotiert.
func (s *ExportService) Run(ctx context.Context, spec search.FilterSpec, bookmarkedIDs []int64) (*ExportResult, error) {
	export, err := s.Collect(ctx, spec, bookmarkedIDs)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := json.NewEncoder(gz).Encode(export); err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("compress export: %w", err)
	}

	key := fmt.Sprintf("%sarticles-%s-%s.json.gz",
		s.opts.Prefix, export.GeneratedAt.Format("2006-01-02T15-04-05Z"), uuid.NewString()[:8])
	link, err := s.store.Put(ctx, key, buf.Bytes(), "application/gzip")
	if err != nil {
		return nil, err
	}
	s.log.Info("Export uploaded",
		zap.String("key", key),
		zap.Int("articles", len(export.Articles)),
		zap.Int("bytes", buf.Len()),
	)

	if err := s.Rotate(ctx); err != nil {
		s.log.Error("Export rotation failed", zap.Error(err))
	}
	return &ExportResult{Key: key, Link: link, Articles: len(export.Articles)}, nil
}

// Rotate behält die neuesten Keep Exporte und löscht den Rest.
// Fehler beim Löschen einzelner Objekte werden nur protokolliert.
func (s *ExportService) Rotate(ctx context.Context) error {
	if s.opts.Keep <= 0 {
		return nil
	}
	objects, err := s.store.List(ctx, s.opts.Prefix)
	if err != nil {
		return err
	}
	if len(objects) <= s.opts.Keep {
		s.log.Debug("No export rotation needed", zap.Int("exports", len(objects)))
		return nil
	}
	storage.SortNewestFirst(objects)
	for _, obj := range objects[s.opts.Keep:] {
		s.log.Info("Deleting old export", zap.String("key", obj.Key))
		if err := s.store.Delete(ctx, obj.Key); err != nil {
			s.log.Error("Deleting export failed", zap.String("key", obj.Key), zap.Error(err))
		}
	}
	return nil
}
