package model

import (
	"encoding/json"
	"time"
)

const CorpusScope = "corpus"

func DocumentScope(documentID string) string {
	return "document:" + documentID
}

// EmbeddingRecord stores a chunk and its vector for retrieval.
// Embedding is stored as JSON array of float32 for portability.
type EmbeddingRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Scope     string    `gorm:"size:64;not null;index" json:"scope"`
	ChunkID   string    `gorm:"size:64;not null" json:"chunk_id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	Embedding string    `gorm:"type:mediumtext" json:"-"`
	Dimension int       `gorm:"not null" json:"dimension"`
	Citation  string    `gorm:"size:512" json:"citation,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// EmbeddingVector returns the parsed embedding slice; empty on parse error.
func (r *EmbeddingRecord) EmbeddingVector() []float32 {
	if r.Embedding == "" {
		return nil
	}
	var v []float32
	_ = json.Unmarshal([]byte(r.Embedding), &v)
	return v
}

// SetEmbedding stores the embedding as JSON and records its dimension.
func (r *EmbeddingRecord) SetEmbedding(vec []float32) {
	r.Dimension = len(vec)
	if len(vec) == 0 {
		r.Embedding = "[]"
		return
	}
	b, _ := json.Marshal(vec)
	r.Embedding = string(b)
}
