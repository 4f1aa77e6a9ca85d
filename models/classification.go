package models

import "time"

// ProteinClassification ist die Referenz-Taxonomie (Kategorie, Unterkategorie).
// Die Facetten-Arrays der Artikel werden nicht gegen diese Tabelle validiert.
type ProteinClassification struct {
	ID          int64      `json:"id" gorm:"primaryKey"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	Category    string     `json:"category" gorm:"not null;index"`
	Subcategory string     `json:"subcategory" gorm:"not null"`
	Description string     `json:"description,omitempty"`
}

// TableName gibt explizit den Tabellennamen an.
func (ProteinClassification) TableName() string {
	return "protein_classifications"
}
