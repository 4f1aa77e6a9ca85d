package models

// FacetCount ist die Anzahl der Artikel (bzw. Proteine) pro Facettenwert.
type FacetCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// ClassificationCount ist eine Zeile der Taxonomie mit den Artikelzahlen
// für Kategorie und Unterkategorie.
type ClassificationCount struct {
	Category         string `json:"category"`
	Subcategory      string `json:"subcategory"`
	CategoryCount    int64  `json:"category_count"`
	SubcategoryCount int64  `json:"subcategory_count"`
}

// CategoryStats ist ein Knoten des Kategorie-Baums für die Seitenleiste.
type CategoryStats struct {
	Category      string       `json:"category"`
	Count         int64        `json:"count"`
	Subcategories []FacetCount `json:"subcategories"`
}

// ArticleStats bündelt alle Aggregat-Zahlen der Seitenleiste.
type ArticleStats struct {
	TotalArticles     int64           `json:"total_articles"`
	ProteinFamilies   []FacetCount    `json:"protein_families"`
	ExpressionSystems []FacetCount    `json:"expression_systems"`
	Applications      []FacetCount    `json:"applications"`
	ProteinForms      []FacetCount    `json:"protein_forms"`
	ProteinTypes      []FacetCount    `json:"protein_types"`
	Categories        []CategoryStats `json:"categories"`
}
