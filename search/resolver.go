package search

import (
	"context"
	"sort"
)

// Resolution ist das Ergebnis des Resolvers für Protein-Typen.
type Resolution struct {
	IDs   []int64
	Empty bool
	// restricted unterscheidet "keine Auswahl" von "Auswahl mit Treffern".
	restricted bool
}

// Restricted meldet, ob die IDs das Ergebnis einschränken.
func (r Resolution) Restricted() bool { return r.restricted }

// ProteinTypeLookup ist der Teil des Repositories, den der Resolver braucht.
type ProteinTypeLookup interface {
	ArticleIDsByProteinType(ctx context.Context, types []string) ([]int64, error)
}

// resolveProteinTypes löst die Protein-Typ-Auswahl in Artikel-IDs auf. Ohne
// Auswahl gibt es keine Einschränkung; eine Auswahl ohne Treffer ist Empty.
func resolveProteinTypes(ctx context.Context, lookup ProteinTypeLookup, types []string) (Resolution, error) {
	if len(types) == 0 {
		return Resolution{}, nil
	}
	ids, err := lookup.ArticleIDsByProteinType(ctx, types)
	if err != nil {
		return Resolution{}, err
	}
	if len(ids) == 0 {
		return Resolution{Empty: true, restricted: true}, nil
	}
	seen := make(map[int64]struct{}, len(ids))
	uniq := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}
	sort.Slice(uniq, func(i, j int) bool { return uniq[i] < uniq[j] })
	return Resolution{IDs: uniq, restricted: true}, nil
}
