package services

import (
	"fmt"
	"strings"

	"protein-atlas/models"
)

const maxAuthors = 6

// SplitAuthors zerlegt die Autorenliste eines Artikels ("A, B; C").
func SplitAuthors(authors string) []string {
	fields := strings.FieldsFunc(authors, func(r rune) bool { return r == ',' || r == ';' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// FormatReference rendert einen Artikel als kompakte Literaturangabe.
func FormatReference(a *models.Article) string {
	names := SplitAuthors(a.Authors)
	if len(names) > maxAuthors {
		names = append(names[:maxAuthors], "et al.")
	}
	authors := strings.Join(names, ", ")
	if authors == "" {
		authors = "Unknown Authors"
	}
	year := "n.d."
	if a.PubDate != nil {
		year = fmt.Sprintf("%d", a.PubDate.Year())
	}
	title := strings.TrimSuffix(strings.TrimSpace(a.Title), ".")
	if title == "" {
		title = "Untitled"
	}

	// Journal 12(3):45-67
	source := a.Journal
	if source != "" && a.Volume != "" {
		source += " " + a.Volume
		if a.Issue != "" {
			source += "(" + a.Issue + ")"
		}
		if a.Pages != "" {
			source += ":" + a.Pages
		}
	}

	var tail []string
	if a.DOI != "" {
		tail = append(tail, "doi:"+a.DOI)
	}
	if a.PubmedID != "" {
		tail = append(tail, "pmid:"+a.PubmedID)
	}
	tailStr := strings.Join(tail, " ")
	if tailStr != "" {
		tailStr = " " + tailStr
	}

	if source != "" {
		return fmt.Sprintf("%s (%s). %s. %s.%s", authors, year, title, source, tailStr)
	}
	return fmt.Sprintf("%s (%s). %s.%s", authors, year, title, tailStr)
}

// BuildBibliography nummeriert die Artikel in der gegebenen Reihenfolge.
func BuildBibliography(articles []models.Article) []string {
	refs := make([]string, len(articles))
	for i := range articles {
		refs[i] = fmt.Sprintf("[%d] %s", i+1, FormatReference(&articles[i]))
	}
	return refs
}
