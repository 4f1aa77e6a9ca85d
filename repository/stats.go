package repository

import (
	"context"
	"fmt"

	"protein-atlas/models"
)

// Facet benennt eine zählbare Facetten-Spalte.
type Facet string

const (
	FacetProteinFamily    Facet = "facets_protein_family"
	FacetExpressionSystem Facet = "facets_expression_system"
	FacetApplication      Facet = "facets_application"
	FacetProteinForm      Facet = "facets_protein_form"
)

func (f Facet) valid() bool {
	switch f {
	case FacetProteinFamily, FacetExpressionSystem, FacetApplication, FacetProteinForm:
		return true
	}
	return false
}

// TotalArticles zählt alle Artikel.
func (r *Postgres) TotalArticles(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Article{}).Count(&n).Error; err != nil {
		return 0, classify("total articles", err)
	}
	return n, nil
}

// FacetCounts zählt die Vorkommen jedes Werts einer Facette über alle Artikel.
func (r *Postgres) FacetCounts(ctx context.Context, facet Facet) ([]models.FacetCount, error) {
	if !facet.valid() {
		return nil, fmt.Errorf("unknown facet %q", facet)
	}
	var counts []models.FacetCount
	err := r.db.WithContext(ctx).Raw(
		"SELECT v AS name, count(*) AS count FROM articles, unnest(" + string(facet) + ") AS v " +
			"GROUP BY v ORDER BY count DESC, name",
	).Scan(&counts).Error
	if err != nil {
		return nil, classify("facet counts", err)
	}
	return counts, nil
}

// ProteinTypeCounts zählt die Proteine pro Typ.
func (r *Postgres) ProteinTypeCounts(ctx context.Context) ([]models.FacetCount, error) {
	var counts []models.FacetCount
	err := r.db.WithContext(ctx).
		Model(&models.Protein{}).
		Select("type AS name, count(*) AS count").
		Where("type IS NOT NULL AND type <> ''").
		Group("type").
		Order("count DESC, name").
		Scan(&counts).Error
	if err != nil {
		return nil, classify("protein type counts", err)
	}
	return counts, nil
}

// ClassificationCounts liefert jede Zeile der Taxonomie mit der Zahl der
// Artikel, deren Facetten die Kategorie bzw. Unterkategorie enthalten.
func (r *Postgres) ClassificationCounts(ctx context.Context) ([]models.ClassificationCount, error) {
	var rows []models.ClassificationCount
	err := r.db.WithContext(ctx).Raw(`
		SELECT c.category, c.subcategory,
			(SELECT count(*) FROM articles a WHERE a.facets_protein_categories @> ARRAY[c.category]) AS category_count,
			(SELECT count(*) FROM articles a WHERE a.facets_protein_subcategories @> ARRAY[c.subcategory]) AS subcategory_count
		FROM protein_classifications c
		ORDER BY c.category, c.subcategory`,
	).Scan(&rows).Error
	if err != nil {
		return nil, classify("classification counts", err)
	}
	return rows, nil
}
