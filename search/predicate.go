package search

import (
	"strings"
	"time"
)

// Predicate ist die logische UND-Verknüpfung aller Filterdimensionen. Dasselbe
// Prädikat wird für Count und Fetch verwendet.
type Predicate struct {
	// IDs aus dem Resolver; nil bedeutet "keine Einschränkung".
	IDs []int64
	// BookmarkIDs aus der Session; nil bedeutet "keine Einschränkung".
	BookmarkIDs []int64

	Categories    []string
	Subcategories []string
	// Families sind kleingeschrieben; leer, wenn nicht in den Store verlagert.
	Families []string

	Reviews ReviewMode
	From    *time.Time
	Until   *time.Time

	Text *TextClause
}

// Window beschreibt Sortierung und Ausschnitt eines Fetch.
type Window struct {
	Sort   SortDirection
	Offset int
	Limit  int
}

// Unsatisfiable meldet, ob das Prädikat ohne Abfrage als leer erkennbar ist.
func (p Predicate) Unsatisfiable() bool {
	return (p.IDs != nil && len(p.IDs) == 0) || (p.BookmarkIDs != nil && len(p.BookmarkIDs) == 0)
}

type predicateInput struct {
	spec          FilterSpec
	resolved      Resolution
	bookmarkedIDs []int64
	pushFamilies  bool
	text          *TextClause
}

// buildPredicate setzt Spec, Resolver-Ergebnis und Bookmarks zu einem Prädikat
// zusammen.
func buildPredicate(in predicateInput) Predicate {
	p := Predicate{
		Categories:    in.spec.Categories(),
		Subcategories: in.spec.Subcategories(),
		Reviews:       in.spec.ReviewMode(),
		Text:          in.text,
	}
	if in.resolved.Restricted() {
		p.IDs = append([]int64{}, in.resolved.IDs...)
	}
	if in.spec.BookmarksOnly() {
		p.BookmarkIDs = append([]int64{}, in.bookmarkedIDs...)
	}
	if in.pushFamilies {
		p.Families = lowerAll(in.spec.ProteinFamilies())
	}
	p.From, p.Until = in.spec.DateRange()
	return p
}

func lowerAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.ToLower(v)
	}
	return out
}

// IsReview meldet, ob ein Publikationstyp ein Review ist.
func IsReview(publicationType string) bool {
	return strings.Contains(strings.ToLower(publicationType), "review")
}

// OverlapsFold meldet, ob mindestens ein Element von values (case-insensitive)
// in selection enthalten ist. selection muss kleingeschrieben sein.
func OverlapsFold(values []string, selection []string) bool {
	for _, v := range values {
		lv := strings.ToLower(v)
		for _, s := range selection {
			if lv == s {
				return true
			}
		}
	}
	return false
}

// Overlaps ist der exakte Overlap-Test (Postgres &&).
func Overlaps(values []string, selection []string) bool {
	for _, v := range values {
		for _, s := range selection {
			if v == s {
				return true
			}
		}
	}
	return false
}
