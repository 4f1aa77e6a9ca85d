package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// Protein gehört genau einem Artikel; Type wird für die indirekte Filterung genutzt.
type Protein struct {
	ID               int64          `json:"id" gorm:"primaryKey"`
	ArticleID        int64          `json:"article_id" gorm:"index;not null"`
	CreatedAt        *time.Time     `json:"created_at,omitempty"`
	UpdatedAt        *time.Time     `json:"updated_at,omitempty"`
	Name             string         `json:"name" gorm:"not null"`
	Description      string         `json:"description,omitempty"`
	Type             string         `json:"type,omitempty" gorm:"index"`
	ProteinFamily    string         `json:"protein_family,omitempty"`
	ProteinForm      string         `json:"protein_form,omitempty"`
	ExpressionSystem string         `json:"expression_system,omitempty"`
	DerivedFrom      string         `json:"derived_from,omitempty"`
	ProductionMethod string         `json:"production_method,omitempty"`
	RoleInStudy      string         `json:"role_in_study,omitempty"`
	ClassificationID *int64         `json:"classification_id,omitempty"`
	KeyProperties    pq.StringArray `json:"key_properties" gorm:"type:text[]"`
	Applications     pq.StringArray `json:"applications" gorm:"type:text[]"`
	StructuralMotifs pq.StringArray `json:"structural_motifs" gorm:"type:text[]"`
}

func (Protein) TableName() string { return "proteins" }

// Material gehört genau einem Artikel.
type Material struct {
	ID                    int64          `json:"id" gorm:"primaryKey"`
	ArticleID             int64          `json:"article_id" gorm:"index;not null"`
	CreatedAt             *time.Time     `json:"created_at,omitempty"`
	UpdatedAt             *time.Time     `json:"updated_at,omitempty"`
	Name                  string         `json:"name" gorm:"not null"`
	Description           string         `json:"description,omitempty"`
	Composition           string         `json:"composition,omitempty"`
	FabricationMethod     string         `json:"fabrication_method,omitempty"`
	KeyProperties         pq.StringArray `json:"key_properties" gorm:"type:text[]"`
	PotentialApplications pq.StringArray `json:"potential_applications" gorm:"type:text[]"`
}

func (Material) TableName() string { return "materials" }

type Method struct {
	ID         int64      `json:"id" gorm:"primaryKey"`
	ArticleID  int64      `json:"article_id" gorm:"index;not null"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	MethodName string     `json:"method_name" gorm:"not null"`
}

func (Method) TableName() string { return "methods" }

type AnalysisTechnique struct {
	ID        int64      `json:"id" gorm:"primaryKey"`
	ArticleID int64      `json:"article_id" gorm:"index;not null"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	Technique string     `json:"technique" gorm:"not null"`
}

func (AnalysisTechnique) TableName() string { return "analysis_techniques" }

// Result speichert Messergebnisse eines Artikels als freies JSON.
type Result struct {
	ID          int64          `json:"id" gorm:"primaryKey"`
	ArticleID   int64          `json:"article_id" gorm:"index;not null"`
	CreatedAt   *time.Time     `json:"created_at,omitempty"`
	Description string         `json:"description,omitempty"`
	Data        datatypes.JSON `json:"data,omitempty" gorm:"type:jsonb"`
}

func (Result) TableName() string { return "results" }
