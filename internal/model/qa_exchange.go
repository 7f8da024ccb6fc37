package model

import (
	"time"

	"gorm.io/datatypes"
)

// QAExchange is one answered question. Rows are append-only.
type QAExchange struct {
	ID             uint                         `gorm:"primaryKey" json:"id"`
	DocumentID     string                       `gorm:"size:36;not null;index" json:"document_id"`
	Question       string                       `gorm:"type:text;not null" json:"question"`
	Answer         string                       `gorm:"type:text;not null" json:"answer"`
	Confidence     float64                      `json:"confidence"`
	Citations      datatypes.JSONType[[]string] `json:"citations"`
	ResponseTimeMS int64                        `json:"response_time_ms"`
	CreatedAt      time.Time                    `gorm:"index" json:"created_at"`
}

func (q *QAExchange) CitationList() []string {
	return q.Citations.Data()
}
