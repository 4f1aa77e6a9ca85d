package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"protein-atlas/models"
)

// Repository ist der Artikel-Store, den die Engine konsumiert. Implementierungen
// liefern ErrQueryRejected (umschlossen), wenn die Grammatik eine Textklausel
// ablehnt, und *Error für Verfügbarkeitsfehler.
type Repository interface {
	ProteinTypeLookup
	CountArticles(ctx context.Context, p Predicate) (int64, error)
	FetchArticles(ctx context.Context, p Predicate, w Window) ([]models.Article, error)
	// SupportsFamilyOverlap meldet, ob der Store den Familien-Overlap
	// zuverlässig (case-insensitive) auswerten kann.
	SupportsFamilyOverlap() bool
}

// Options konfiguriert die Seitengrößen der Engine.
type Options struct {
	DefaultPageSize int
	MaxPageSize     int
}

// PageSizeOptions sind die Seitengrößen, die die Oberfläche anbietet.
var PageSizeOptions = []int{10, 25, 50, 100}

// Result ist der Umschlag einer Suche.
type Result struct {
	Articles   []models.Article `json:"articles"`
	TotalCount int64            `json:"total_count"`
	// CountExact ist false, wenn Nachfilter im Speicher aktiv waren und
	// TotalCount die Trefferzahl überschätzen kann.
	CountExact bool      `json:"count_exact"`
	TextLevel  TextLevel `json:"text_level"`
	Notice     string    `json:"notice,omitempty"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
}

// TotalPages liefert die Seitenzahl bei der Seitengröße des Ergebnisses.
func (r *Result) TotalPages() int {
	if r.PageSize <= 0 || r.TotalCount <= 0 {
		return 0
	}
	return int((r.TotalCount + int64(r.PageSize) - 1) / int64(r.PageSize))
}

// Engine führt Suchen gegen ein Repository aus. Sie ist für parallele Aufrufe
// sicher; der einzige geteilte Zustand ist die gecachte Stufe der Leiter.
type Engine struct {
	repo    Repository
	opts    Options
	log     *zap.Logger
	metrics *Metrics
	level   atomic.Int32
}

// NewEngine erstellt eine Engine. metrics darf nil sein.
func NewEngine(repo Repository, opts Options, log *zap.Logger, metrics *Metrics) *Engine {
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = PageSizeOptions[0]
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = PageSizeOptions[len(PageSizeOptions)-1]
	}
	if opts.DefaultPageSize > opts.MaxPageSize {
		opts.DefaultPageSize = opts.MaxPageSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{repo: repo, opts: opts, log: log, metrics: metrics}
}

// Level liefert die aktuell gecachte Stufe der Leiter.
func (e *Engine) Level() TextLevel {
	return TextLevel(e.level.Load())
}

// calibrationProbe enthält die Zeichen, an denen Grammatiken typischerweise
// scheitern.
const calibrationProbe = `probe,(x)'"%_\`

// Calibrate ermittelt einmalig die höchste Stufe, die der Store akzeptiert.
// Transportfehler brechen die Kalibrierung ab, die Stufe bleibt dann unverändert.
func (e *Engine) Calibrate(ctx context.Context) (TextLevel, error) {
	for lvl := LevelCombined; lvl < LevelUnsearchable; lvl++ {
		clause, _ := buildTextClause(calibrationProbe, lvl)
		_, err := e.repo.CountArticles(ctx, Predicate{Text: clause})
		if err == nil {
			e.level.Store(int32(lvl))
			e.metrics.setLevel(lvl)
			e.log.Info("Text search calibrated", zap.String("level", lvl.String()))
			return lvl, nil
		}
		if !errors.Is(err, ErrQueryRejected) {
			return e.Level(), wrap("calibrate", err)
		}
		e.log.Debug("Text search level rejected", zap.String("level", lvl.String()), zap.Error(err))
	}
	e.level.Store(int32(LevelUnsearchable))
	e.metrics.setLevel(LevelUnsearchable)
	e.log.Warn("Store rejects every text search level")
	return LevelUnsearchable, nil
}

// PageSize bringt eine angefragte Seitengröße in den erlaubten Bereich.
func (e *Engine) PageSize(requested int) int {
	switch {
	case requested <= 0:
		return e.opts.DefaultPageSize
	case requested > e.opts.MaxPageSize:
		return e.opts.MaxPageSize
	default:
		return requested
	}
}

// Search liefert eine Seite hydrierter Artikel und die Gesamtzahl der Treffer.
// Count und Fetch verwenden dasselbe Prädikat. bookmarkedIDs sind die
// Bookmarks des Aufrufers und werden nur bei "nur Bookmarks" ausgewertet.
func (e *Engine) Search(ctx context.Context, spec FilterSpec, page, pageSize int, bookmarkedIDs []int64) (*Result, error) {
	started := time.Now()
	if page < 0 {
		page = 0
	}
	pageSize = e.PageSize(pageSize)
	log := e.log.With(zap.Int("page", page), zap.Int("page_size", pageSize))

	res, err := e.search(ctx, log, spec, page, pageSize, bookmarkedIDs)
	if err != nil {
		e.metrics.observe("error", started)
		log.Error("Search failed", zap.Error(err))
		return nil, err
	}
	outcome := "ok"
	switch {
	case res.Notice != "":
		outcome = "unsearchable"
	case len(res.Articles) == 0:
		outcome = "empty"
	}
	e.metrics.observe(outcome, started)
	log.Debug("Search finished", zap.Stringer("result", res))
	return res, nil
}

func (e *Engine) search(ctx context.Context, log *zap.Logger, spec FilterSpec, page, pageSize int, bookmarkedIDs []int64) (*Result, error) {
	level := e.Level()
	empty := func() *Result {
		return &Result{Articles: []models.Article{}, CountExact: true, TextLevel: level, Page: page, PageSize: pageSize}
	}

	if spec.BookmarksOnly() && len(bookmarkedIDs) == 0 {
		return empty(), nil
	}

	resolved, err := resolveProteinTypes(ctx, e.repo, spec.ProteinTypes())
	if err != nil {
		return nil, wrap("resolve protein types", err)
	}
	if resolved.Empty {
		log.Debug("No article matches the protein type selection", zap.Strings("types", spec.ProteinTypes()))
		return empty(), nil
	}

	families := spec.ProteinFamilies()
	pushFamilies := len(families) > 0 && e.repo.SupportsFamilyOverlap()

	for {
		var text *TextClause
		if spec.HasText() {
			var ok bool
			if text, ok = buildTextClause(spec.Query(), level); !ok {
				r := empty()
				r.TextLevel = LevelUnsearchable
				r.Notice = NoticeUnsearchable
				log.Info("Query could not be translated", zap.String("query", spec.Query()))
				return r, nil
			}
		}

		pred := buildPredicate(predicateInput{
			spec:          spec,
			resolved:      resolved,
			bookmarkedIDs: bookmarkedIDs,
			pushFamilies:  pushFamilies,
			text:          text,
		})
		if pred.Unsatisfiable() {
			return empty(), nil
		}

		var ref refinement
		if len(families) > 0 && !pushFamilies {
			ref.families = lowerAll(families)
		}
		if text != nil && text.Level == LevelScalarOnly {
			ref.query = spec.Query()
		}

		total, err := e.repo.CountArticles(ctx, pred)
		if err != nil {
			if next, retry := e.stepDown(ctx, log, err, text); retry {
				level = next
				continue
			}
			return nil, wrap("count articles", err)
		}
		if total == 0 {
			return empty(), nil
		}

		resLevel := level
		if text == nil {
			resLevel = e.Level()
		}
		// Seiten jenseits von math.MaxInt Zeilen sind leer, ohne Fetch
		if page > (math.MaxInt-pageSize)/pageSize {
			return &Result{
				Articles:   []models.Article{},
				TotalCount: total,
				CountExact: !ref.active(),
				TextLevel:  resLevel,
				Page:       page,
				PageSize:   pageSize,
			}, nil
		}

		articles, err := e.repo.FetchArticles(ctx, pred, Window{
			Sort:   spec.Sort(),
			Offset: page * pageSize,
			Limit:  pageSize,
		})
		if err != nil {
			if next, retry := e.stepDown(ctx, log, err, text); retry {
				level = next
				continue
			}
			return nil, wrap("fetch articles", err)
		}
		if articles == nil {
			articles = []models.Article{}
		}
		return &Result{
			Articles:   refine(articles, ref),
			TotalCount: total,
			CountExact: !ref.active(),
			TextLevel:  resLevel,
			Page:       page,
			PageSize:   pageSize,
		}, nil
	}
}

// stepDown senkt die Stufe dieser Anfrage nach einer Grammatik-Ablehnung.
// Die gecachte Stufe sinkt nur, wenn auch die Kalibrierungsprobe auf der
// Stufe scheitert; eine einzelne Eingabe senkt sie nicht. Ohne Textklausel
// ist eine Ablehnung ein interner Fehler und wird nicht abgefangen.
func (e *Engine) stepDown(ctx context.Context, log *zap.Logger, err error, text *TextClause) (TextLevel, bool) {
	if text == nil || !errors.Is(err, ErrQueryRejected) {
		return 0, false
	}
	next := text.Level + 1
	e.metrics.degraded(next)
	log.Warn("Text search clause rejected, stepping down",
		zap.String("from", text.Level.String()),
		zap.String("to", next.String()),
		zap.Error(err),
	)

	if !e.rejectsProbe(ctx, text.Level) {
		return next, true
	}
	for {
		cur := e.level.Load()
		if cur >= int32(next) || e.level.CompareAndSwap(cur, int32(next)) {
			break
		}
	}
	e.metrics.setLevel(e.Level())
	log.Warn("Store rejects text search level, lowering cached level", zap.String("level", e.Level().String()))
	return next, true
}

// rejectsProbe prüft, ob der Store die Stufe unabhängig von der Eingabe
// ablehnt. Transportfehler zählen nicht als Ablehnung.
func (e *Engine) rejectsProbe(ctx context.Context, lvl TextLevel) bool {
	clause, ok := buildTextClause(calibrationProbe, lvl)
	if !ok {
		return false
	}
	_, err := e.repo.CountArticles(ctx, Predicate{Text: clause})
	return errors.Is(err, ErrQueryRejected)
}

// String für Logs.
func (r *Result) String() string {
	return fmt.Sprintf("%d of %d (exact=%t, level=%s)", len(r.Articles), r.TotalCount, r.CountExact, r.TextLevel)
}
