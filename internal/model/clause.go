package model

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Severity orders risk levels; unknown values rank below low.
func (r RiskLevel) Severity() int {
	switch r {
	case RiskHigh:
		return 3
	case RiskMedium:
		return 2
	case RiskLow:
		return 1
	default:
		return 0
	}
}

func (r RiskLevel) Valid() bool {
	return r.Severity() > 0
}

// Clause is a contractual provision cut from ExtractedText. The analysis
// fields stay empty until the analyzed stage commits.
type Clause struct {
	DocumentID      string                       `gorm:"primaryKey;size:36" json:"document_id"`
	ClauseID        string                       `gorm:"primaryKey;size:16" json:"clause_id"`
	Seq             int                          `gorm:"not null" json:"seq"`
	ClauseType      ClauseType                   `gorm:"size:64;not null" json:"clause_type"`
	Confidence      float64                      `json:"confidence"`
	ParagraphStart  int                          `json:"paragraph_start"`
	ParagraphEnd    int                          `json:"paragraph_end"`
	OriginalText    string                       `gorm:"type:text;not null" json:"original_text"`
	PlainLanguage   string                       `gorm:"type:text" json:"plain_language,omitempty"`
	RiskLevel       RiskLevel                    `gorm:"size:16" json:"risk_level,omitempty"`
	RiskRationale   string                       `gorm:"type:text" json:"risk_rationale,omitempty"`
	Recommendations datatypes.JSONType[[]string] `json:"recommendations"`
	Citations       datatypes.JSONType[[]string] `json:"citations"`
	CreatedAt       time.Time                    `json:"created_at"`
}

func ClauseIDFor(seq int) string {
	return fmt.Sprintf("c%d", seq)
}

func (c *Clause) RecommendationList() []string {
	return c.Recommendations.Data()
}

func (c *Clause) CitationList() []string {
	return c.Citations.Data()
}
