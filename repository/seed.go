package repository

import (
	"time"

	"github.com/lib/pq"

	"protein-atlas/models"
)

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

// SeedDemo füllt ein Memory-Repository mit einem kleinen Beispielkorpus für
// den Entwicklungsmodus.
func SeedDemo(m *Memory) {
	m.AddClassifications(
		models.ProteinClassification{Category: "Structural proteins", Subcategory: "Structural proteins: Silks"},
		models.ProteinClassification{Category: "Structural proteins", Subcategory: "Structural proteins: Elastomers"},
		models.ProteinClassification{Category: "Signaling proteins", Subcategory: "Signaling proteins: Calcium sensors"},
	)
	m.AddArticles(
		models.Article{
			ID: 1, Title: "Recombinant spider silk fibers with tunable toughness",
			Authors: "Andersson M, Rising A", Journal: "Nature Chemical Biology",
			PubDate: day(2023, time.March, 14), PublicationType: "Journal Article", Language: "eng",
			FacetsProteinFamily:        pq.StringArray{"Spider Silk"},
			FacetsProteinForm:          pq.StringArray{"Fiber"},
			FacetsExpressionSystem:     pq.StringArray{"E. coli"},
			FacetsApplication:          pq.StringArray{"Textiles"},
			FacetsProteinCategories:    pq.StringArray{"Structural proteins"},
			FacetsProteinSubcategories: pq.StringArray{"Structural proteins: Silks"},
			Proteins: []models.Protein{{ID: 1, Name: "MaSp1", Type: "Spidroin", ProteinFamily: "Spider Silk"}},
			Methods:  []models.Method{{ID: 1, ArticleID: 1, MethodName: "Wet spinning"}},
		},
		models.Article{
			ID: 2, Title: "Resilin-like polypeptides as elastic biomaterials: a review",
			Authors: "Li L, Kiick KL", Journal: "Biomacromolecules",
			PubDate: day(2021, time.June, 2), PublicationType: "Review", Language: "eng",
			FacetsProteinFamily:        pq.StringArray{"Resilin"},
			FacetsProteinForm:          pq.StringArray{"Hydrogel"},
			FacetsApplication:          pq.StringArray{"Tissue engineering"},
			FacetsProteinCategories:    pq.StringArray{"Structural proteins"},
			FacetsProteinSubcategories: pq.StringArray{"Structural proteins: Elastomers"},
			Proteins: []models.Protein{{ID: 2, Name: "RLP", Type: "Elastomeric protein", ProteinFamily: "Resilin"}},
		},
		models.Article{
			ID: 3, Title: "Calmodulin-driven switchable hydrogels",
			Authors: "Ehrick JD", Journal: "Nature Materials",
			PubDate: day(2020, time.November, 20), PublicationType: "Journal Article", Language: "eng",
			FacetsProteinFamily:        pq.StringArray{"Calmodulin"},
			FacetsProteinForm:          pq.StringArray{"Hydrogel"},
			FacetsExpressionSystem:     pq.StringArray{"E. coli"},
			FacetsApplication:          pq.StringArray{"Drug delivery"},
			FacetsProteinCategories:    pq.StringArray{"Signaling proteins"},
			FacetsProteinSubcategories: pq.StringArray{"Signaling proteins: Calcium sensors"},
			Proteins: []models.Protein{{ID: 3, Name: "CaM", Type: "Calcium-binding protein", ProteinFamily: "Calmodulin"}},
		},
		models.Article{
			ID: 4, Title: "Elastin-like proteins in soft robotics",
			Authors: "Urry DW", Journal: "Advanced Materials",
			PubDate: day(2022, time.January, 10), PublicationType: "Journal Article", Language: "eng",
			FacetsProteinFamily:     pq.StringArray{"Elastomeric proteins"},
			FacetsProteinForm:       pq.StringArray{"Film"},
			FacetsExpressionSystem:  pq.StringArray{"P. pastoris"},
			FacetsApplication:       pq.StringArray{"Soft robotics"},
			FacetsProteinCategories: pq.StringArray{"Structural proteins"},
			Proteins: []models.Protein{{ID: 4, Name: "ELP", Type: "Elastomeric protein", ProteinFamily: "Elastomeric proteins"}},
		},
	)
}
