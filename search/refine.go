package search

import "protein-atlas/models"

// refinement beschreibt, was nach dem Fetch im Speicher nachgefiltert wird.
type refinement struct {
	// families ist kleingeschrieben; leer, wenn der Store den Overlap erledigt.
	families []string
	// query ist gesetzt, wenn der Store nur die skalaren Felder durchsucht hat.
	query string
}

func (r refinement) active() bool {
	return len(r.families) > 0 || r.query != ""
}

// refine wendet die Nachfilter auf die bereits paginierte Seite an. Die Seite
// kann dadurch kürzer als pageSize werden.
func refine(articles []models.Article, r refinement) []models.Article {
	if !r.active() {
		return articles
	}
	out := make([]models.Article, 0, len(articles))
	for i := range articles {
		a := &articles[i]
		if len(r.families) > 0 && !OverlapsFold(a.FacetsProteinFamily, r.families) {
			continue
		}
		if r.query != "" && !MatchesText(a.ScalarTexts(), a.FacetArrays(), r.query) {
			continue
		}
		out = append(out, *a)
	}
	return out
}
