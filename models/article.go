package models

import (
	"time"

	"github.com/lib/pq"
)

// Article repräsentiert einen annotierten wissenschaftlichen Artikel samt Facetten.
type Article struct {
	ID        int64      `json:"id" gorm:"primaryKey"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`

	PubmedID    string `json:"pubmed_id,omitempty" gorm:"column:pubmed_id;index"`
	DOI         string `json:"doi,omitempty" gorm:"column:doi;index"`
	Title       string `json:"title" gorm:"not null"`
	Abstract    string `json:"abstract,omitempty" gorm:"type:text"`
	Authors     string `json:"authors,omitempty"`
	Journal     string `json:"journal,omitempty"`
	Volume      string `json:"volume,omitempty"`
	Issue       string `json:"issue,omitempty"`
	Pages       string `json:"pages,omitempty"`
	ElocationID string `json:"elocation_id,omitempty"`

	PubDate           *time.Time `json:"pub_date,omitempty" gorm:"type:date;index"`
	Language          string     `json:"language,omitempty"`
	PublicationType   string     `json:"publication_type,omitempty" gorm:"index"`
	PublicationStatus string     `json:"publication_status,omitempty"`
	Summary           string     `json:"summary,omitempty" gorm:"type:text"`
	Conclusions       string     `json:"conclusions,omitempty" gorm:"type:text"`

	// Facetten (Postgres text[])
	FacetsProteinFamily        pq.StringArray `json:"facets_protein_family" gorm:"type:text[]"`
	FacetsProteinForm          pq.StringArray `json:"facets_protein_form" gorm:"type:text[]"`
	FacetsExpressionSystem     pq.StringArray `json:"facets_expression_system" gorm:"type:text[]"`
	FacetsApplication          pq.StringArray `json:"facets_application" gorm:"type:text[]"`
	FacetsStructuralMotifs     pq.StringArray `json:"facets_structural_motifs" gorm:"type:text[]"`
	FacetsTestedProperties     pq.StringArray `json:"facets_tested_properties" gorm:"type:text[]"`
	FacetsProteinCategories    pq.StringArray `json:"facets_protein_categories" gorm:"type:text[]"`
	FacetsProteinSubcategories pq.StringArray `json:"facets_protein_subcategories" gorm:"type:text[]"`

	// Kind-Entitäten, werden beim Fetch nachgeladen
	Proteins           []Protein           `json:"proteins" gorm:"foreignKey:ArticleID"`
	Materials          []Material          `json:"materials" gorm:"foreignKey:ArticleID"`
	Methods            []Method            `json:"methods" gorm:"foreignKey:ArticleID"`
	AnalysisTechniques []AnalysisTechnique `json:"analysis_techniques" gorm:"foreignKey:ArticleID"`
	Results            []Result            `json:"results" gorm:"foreignKey:ArticleID"`
}

// TableName gibt explizit den Tabellennamen an.
func (Article) TableName() string {
	return "articles"
}

// ScalarTexts liefert die skalaren Textfelder, die von der Freitextsuche erfasst werden.
func (a *Article) ScalarTexts() []string {
	return []string{
		a.Title, a.Abstract, a.Authors, a.Journal,
		a.Summary, a.Conclusions, a.PublicationType, a.Language,
	}
}

// FacetArrays liefert alle Facetten-Arrays in fester Reihenfolge.
func (a *Article) FacetArrays() [][]string {
	return [][]string{
		a.FacetsProteinFamily, a.FacetsProteinForm, a.FacetsExpressionSystem,
		a.FacetsApplication, a.FacetsStructuralMotifs, a.FacetsTestedProperties,
		a.FacetsProteinCategories, a.FacetsProteinSubcategories,
	}
}
