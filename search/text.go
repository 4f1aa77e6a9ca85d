package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// TextLevel ist die Stufe der Degradationsleiter der Freitextsuche.
type TextLevel int32

const (
	// LevelCombined: ein OR über skalare ILIKE-Felder und Array-zu-Text-Casts.
	LevelCombined TextLevel = iota
	// LevelPerArray: skalare Felder plus je Array-Spalte eine Element-Klausel.
	LevelPerArray
	// LevelScalarOnly: nur skalare Felder im Store, Facetten im Speicher.
	LevelScalarOnly
	// LevelUnsearchable: die Anfrage lässt sich in keine Klausel übersetzen.
	LevelUnsearchable
)

func (l TextLevel) String() string {
	switch l {
	case LevelCombined:
		return "combined"
	case LevelPerArray:
		return "per_array"
	case LevelScalarOnly:
		return "scalar_only"
	default:
		return "unsearchable"
	}
}

func (l TextLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// NoticeUnsearchable ist die einzige Meldung, die aus der Leiter nach außen dringt.
const NoticeUnsearchable = "Search could not be processed. Please try a simpler search term."

// ScalarTextColumns sind die skalaren Spalten der Freitextsuche.
var ScalarTextColumns = []string{
	"title", "abstract", "authors", "journal",
	"summary", "conclusions", "publication_type", "language",
}

// FacetColumns sind die Array-Spalten der Freitextsuche.
var FacetColumns = []string{
	"facets_protein_family", "facets_protein_form", "facets_expression_system",
	"facets_application", "facets_structural_motifs", "facets_tested_properties",
	"facets_protein_categories", "facets_protein_subcategories",
}

// TextClause ist die Freitext-Klausel eines Prädikats. Term ist bereits
// bereinigt, aber noch nicht für LIKE escaped; das ist Sache des Stores.
type TextClause struct {
	Level TextLevel
	Term  string
}

// NormalizeQuery bringt die Eingabe in NFKC-Form, entfernt Steuerzeichen und
// fasst Whitespace zusammen.
func NormalizeQuery(raw string) string {
	s := norm.NFKC.String(raw)
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			space = true
			continue
		case unicode.IsControl(r), unicode.Is(unicode.Cf, r):
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// safeToken liefert das längste Token aus Buchstaben, Ziffern und '-', '.'
// der Anfrage. Jeder Text, der die ganze Anfrage enthält, enthält auch dieses
// Token; als Store-Klausel ist es also nie enger als die Anfrage selbst.
func safeToken(q string) string {
	best := ""
	for _, tok := range strings.FieldsFunc(q, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '.')
	}) {
		tok = strings.Trim(tok, "-.")
		if len([]rune(tok)) > len([]rune(best)) {
			best = tok
		}
	}
	return best
}

// buildTextClause übersetzt die Anfrage für die gegebene Stufe. ok=false
// bedeutet: keine Klausel möglich (Stufe 3, leeres Ergebnis).
func buildTextClause(query string, level TextLevel) (clause *TextClause, ok bool) {
	q := NormalizeQuery(query)
	if q == "" {
		return nil, true
	}
	token := safeToken(q)
	if token == "" || level >= LevelUnsearchable {
		return nil, false
	}
	if level == LevelScalarOnly {
		return &TextClause{Level: LevelScalarOnly, Term: token}, true
	}
	return &TextClause{Level: level, Term: q}, true
}

// MatchesText prüft im Speicher, ob der Artikel die (normalisierte) Anfrage in
// einem skalaren Feld oder einem Facetten-Element enthält (case-insensitive).
func MatchesText(scalars []string, facets [][]string, query string) bool {
	needle := strings.ToLower(NormalizeQuery(query))
	if needle == "" {
		return true
	}
	for _, s := range scalars {
		if strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	for _, arr := range facets {
		for _, el := range arr {
			if strings.Contains(strings.ToLower(el), needle) {
				return true
			}
		}
	}
	return false
}
