package model

import (
	"time"

	"gorm.io/datatypes"
)

type BoundingRegion struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Paragraph struct {
	Index      int             `json:"index"`
	Text       string          `json:"text"`
	Page       int             `json:"page"`
	Region     *BoundingRegion `json:"region,omitempty"`
	Confidence float64         `json:"confidence,omitempty"`
}

type Table struct {
	Page int        `json:"page"`
	Rows [][]string `json:"rows"`
}

// ExtractedText is the ordered text layout produced by extraction.
type ExtractedText struct {
	DocumentID string                          `gorm:"primaryKey;size:36" json:"document_id"`
	Paragraphs datatypes.JSONType[[]Paragraph] `json:"paragraphs"`
	Tables     datatypes.JSONType[[]Table]     `json:"tables"`
	PageCount  int                             `json:"page_count"`
	CreatedAt  time.Time                       `json:"created_at"`
}

// NewExtractedText renumbers paragraphs in order and wraps them for storage.
func NewExtractedText(documentID string, paragraphs []Paragraph, tables []Table) *ExtractedText {
	pages := 0
	for i := range paragraphs {
		paragraphs[i].Index = i
		if paragraphs[i].Page > pages {
			pages = paragraphs[i].Page
		}
	}
	for _, t := range tables {
		if t.Page > pages {
			pages = t.Page
		}
	}
	return &ExtractedText{
		DocumentID: documentID,
		Paragraphs: datatypes.NewJSONType(paragraphs),
		Tables:     datatypes.NewJSONType(tables),
		PageCount:  pages,
	}
}

func (t *ExtractedText) ParagraphList() []Paragraph {
	return t.Paragraphs.Data()
}

func (t *ExtractedText) TableList() []Table {
	return t.Tables.Data()
}
