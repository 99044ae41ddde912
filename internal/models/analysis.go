package models

import "github.com/google/uuid"

type AnalysisKind string

const (
	AnalysisKindSummary AnalysisKind = "summary"
	AnalysisKindChart   AnalysisKind = "chart"
	AnalysisKindPivot   AnalysisKind = "pivot"
	AnalysisKindFilter  AnalysisKind = "filter"
	AnalysisKindFormula AnalysisKind = "formula"
)

// Analysis rows are immutable once written; there is no update endpoint.
type Analysis struct {
	BaseModel
	FileID      uuid.UUID              `json:"fileID" gorm:"type:uuid;not null;index"`
	OwnerID     uuid.UUID              `json:"ownerID" gorm:"type:uuid;not null;index"`
	Kind        AnalysisKind           `json:"kind" gorm:"type:varchar(20);not null"`
	Config      map[string]interface{} `json:"config" gorm:"type:text;serializer:json"`
	Results     map[string]interface{} `json:"results" gorm:"type:text;serializer:json"`
	Name        string                 `json:"name" gorm:"type:varchar(255);not null"`
	Description string                 `json:"description" gorm:"type:text"`

	File *SpreadsheetFile `json:"file,omitempty" gorm:"foreignKey:FileID;references:ID"`
}

func (Analysis) TableName() string {
	return "analyses"
}
