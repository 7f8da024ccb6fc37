package model

import (
	"time"

	"gorm.io/datatypes"
)

// AnalysisSummary is derived from the clause set of one document.
type AnalysisSummary struct {
	DocumentID      string                       `gorm:"primaryKey;size:36" json:"document_id"`
	DocumentType    DocumentType                 `gorm:"size:64" json:"document_type"`
	OverallRisk     RiskLevel                    `gorm:"size:16;not null" json:"overall_risk"`
	Summary         string                       `gorm:"type:text" json:"summary"`
	KeyFindings     datatypes.JSONType[[]string] `json:"key_findings"`
	ClauseCount     int                          `json:"clause_count"`
	HighRiskCount   int                          `json:"high_risk_count"`
	MediumRiskCount int                          `json:"medium_risk_count"`
	LowRiskCount    int                          `json:"low_risk_count"`
	CreatedAt       time.Time                    `json:"created_at"`
}

func (s *AnalysisSummary) KeyFindingList() []string {
	return s.KeyFindings.Data()
}
