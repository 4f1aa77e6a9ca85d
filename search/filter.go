package search

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// SortDirection bestimmt die Sortierung nach Publikationsdatum.
type SortDirection string

const (
	SortDesc SortDirection = "desc"
	SortAsc  SortDirection = "asc"
)

// ReviewMode ist der aufgelöste Zustand der beiden Review-Schalter.
type ReviewMode int

const (
	ReviewsAny ReviewMode = iota
	ReviewsOnly
	ReviewsExcluded
)

// FilterKind benennt eine einzeln entfernbare Filterdimension.
type FilterKind string

const (
	FilterCategory      FilterKind = "category"
	FilterSubcategory   FilterKind = "subcategory"
	FilterProteinFamily FilterKind = "proteinFamily"
	FilterProteinType   FilterKind = "proteinType"
	FilterDate          FilterKind = "date"
	FilterViewOption    FilterKind = "viewOption"
)

const dateLayout = "2006-01-02"

// FilterParams ist die offene, bindbare Form eines Filters (JSON/HTTP).
// Erst Spec() erzeugt daraus einen geprüften, unveränderlichen FilterSpec.
type FilterParams struct {
	Query              string        `json:"query"`
	ProteinFamily      []string      `json:"protein_family"`
	ProteinType        []string      `json:"protein_type"`
	ProteinCategory    []string      `json:"protein_category"`
	ProteinSubcategory []string      `json:"protein_subcategory"`
	ShowBookmarksOnly  bool          `json:"show_bookmarks_only"`
	ShowReviewsOnly    bool          `json:"show_reviews_only"`
	ExcludeReviews     bool          `json:"exclude_reviews"`
	SortDirection      SortDirection `json:"sort_direction"`
	StartDate          string        `json:"start_date"`
	EndDate            string        `json:"end_date"`
}

// FilterSpec ist ein unveränderlicher Schnappschuss der Filterauswahl.
// Der Nullwert ist gültig und bedeutet "keine Einschränkung, neueste zuerst".
type FilterSpec struct {
	query          string
	families       []string
	types          []string
	categories     []string
	subcategories  []string
	bookmarksOnly  bool
	reviewsOnly    bool
	excludeReviews bool
	sort           SortDirection
	start          *time.Time
	end            *time.Time
}

// Spec prüft und normalisiert die Parameter.
func (p FilterParams) Spec() (FilterSpec, error) {
	s := FilterSpec{
		query:          p.Query,
		families:       normalizeSet(p.ProteinFamily),
		types:          normalizeSet(p.ProteinType),
		categories:     normalizeSet(p.ProteinCategory),
		subcategories:  normalizeSet(p.ProteinSubcategory),
		bookmarksOnly:  p.ShowBookmarksOnly,
		reviewsOnly:    p.ShowReviewsOnly,
		excludeReviews: p.ExcludeReviews,
	}

	switch SortDirection(strings.ToLower(string(p.SortDirection))) {
	case "", SortDesc:
		s.sort = SortDesc
	case SortAsc:
		s.sort = SortAsc
	default:
		return FilterSpec{}, Invalid("filter", fmt.Errorf("%w: sort direction %q", ErrInvalidFilter, p.SortDirection))
	}

	var err error
	if s.start, err = parseDate(p.StartDate); err != nil {
		return FilterSpec{}, Invalid("filter", fmt.Errorf("%w: start date: %v", ErrInvalidFilter, err))
	}
	if s.end, err = parseDate(p.EndDate); err != nil {
		return FilterSpec{}, Invalid("filter", fmt.Errorf("%w: end date: %v", ErrInvalidFilter, err))
	}
	if s.start != nil && s.end != nil && s.end.Before(*s.start) {
		return FilterSpec{}, Invalid("filter", fmt.Errorf("%w: end date before start date", ErrInvalidFilter))
	}
	return s, nil
}

// Params liefert die bindbare Form zurück, z.B. für Exporte.
func (s FilterSpec) Params() FilterParams {
	return FilterParams{
		Query:              s.query,
		ProteinFamily:      s.ProteinFamilies(),
		ProteinType:        s.ProteinTypes(),
		ProteinCategory:    s.Categories(),
		ProteinSubcategory: s.Subcategories(),
		ShowBookmarksOnly:  s.bookmarksOnly,
		ShowReviewsOnly:    s.reviewsOnly,
		ExcludeReviews:     s.excludeReviews,
		SortDirection:      s.Sort(),
		StartDate:          formatDate(s.start),
		EndDate:            formatDate(s.end),
	}
}

func (s FilterSpec) Query() string { return s.query }

// HasText meldet, ob eine nicht-leere Freitextsuche vorliegt.
func (s FilterSpec) HasText() bool { return strings.TrimSpace(s.query) != "" }

func (s FilterSpec) ProteinFamilies() []string { return cloneStrings(s.families) }
func (s FilterSpec) ProteinTypes() []string    { return cloneStrings(s.types) }
func (s FilterSpec) Categories() []string      { return cloneStrings(s.categories) }
func (s FilterSpec) Subcategories() []string   { return cloneStrings(s.subcategories) }
func (s FilterSpec) BookmarksOnly() bool       { return s.bookmarksOnly }

// Sort liefert die Sortierrichtung; Standard ist absteigend (neueste zuerst).
func (s FilterSpec) Sort() SortDirection {
	if s.sort == "" {
		return SortDesc
	}
	return s.sort
}

// ReviewMode löst die beiden Schalter auf. Sind beide gesetzt, gewinnt
// "nur Reviews".
func (s FilterSpec) ReviewMode() ReviewMode {
	switch {
	case s.reviewsOnly:
		return ReviewsOnly
	case s.excludeReviews:
		return ReviewsExcluded
	default:
		return ReviewsAny
	}
}

// DateRange liefert die Grenzen als halboffenes Intervall [from, until).
// until ist der Tag nach dem (inklusiven) Enddatum.
func (s FilterSpec) DateRange() (from, until *time.Time) {
	if s.start != nil {
		t := *s.start
		from = &t
	}
	if s.end != nil {
		t := s.end.AddDate(0, 0, 1)
		until = &t
	}
	return from, until
}

// Without entfernt einen einzelnen Filterwert und liefert einen neuen Spec.
// Das Entfernen einer Kategorie entfernt auch ihre Unterkategorien
// ("<Kategorie>: ...").
func (s FilterSpec) Without(kind FilterKind, value string) FilterSpec {
	out := s
	switch kind {
	case FilterCategory:
		name := value
		if i := strings.Index(value, ". "); i != -1 {
			name = value[i+2:]
		}
		out.categories = without(s.categories, func(c string) bool { return strings.Contains(c, name) })
		out.subcategories = without(s.subcategories, func(sc string) bool { return strings.HasPrefix(sc, name+": ") })
	case FilterSubcategory:
		out.subcategories = without(s.subcategories, func(sc string) bool { return sc == value })
	case FilterProteinFamily:
		out.families = without(s.families, func(f string) bool { return f == value })
	case FilterProteinType:
		out.types = without(s.types, func(t string) bool { return t == value })
	case FilterDate:
		out.start, out.end = nil, nil
	case FilterViewOption:
		switch value {
		case "showBookmarksOnly":
			out.bookmarksOnly = false
		case "showReviewsOnly":
			out.reviewsOnly = false
		case "excludeReviews":
			out.excludeReviews = false
		}
	}
	return out
}

// Cleared setzt alle Filter zurück; Suchtext und Sortierung bleiben erhalten.
func (s FilterSpec) Cleared() FilterSpec {
	return FilterSpec{query: s.query, sort: s.Sort()}
}

// WithQuery liefert eine Kopie mit neuem Suchtext.
func (s FilterSpec) WithQuery(q string) FilterSpec {
	out := s
	out.query = q
	return out
}

// Description beschreibt die Ansicht, z.B. " (reviews only)".
func (s FilterSpec) Description() string {
	switch s.ReviewMode() {
	case ReviewsOnly:
		return " (reviews only)"
	case ReviewsExcluded:
		return " (excluding reviews)"
	default:
		return ""
	}
}

func normalizeSet(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}

func without(in []string, drop func(string) bool) []string {
	var out []string
	for _, v := range in {
		if !drop(v) {
			out = append(out, v)
		}
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func parseDate(v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		rfc, rfcErr := time.Parse(time.RFC3339, v)
		if rfcErr != nil {
			return nil, err
		}
		t = rfc
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &day, nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}
