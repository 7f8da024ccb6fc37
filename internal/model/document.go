package model

import "time"

// Document is the root record of a processed file. A failed document keeps
// Stage=failed and remembers which stage failed in FailedStage.
type Document struct {
	ID           string       `gorm:"primaryKey;size:36" json:"id"`
	FileName     string       `gorm:"size:256;not null" json:"file_name"`
	MimeType     string       `gorm:"size:128;not null" json:"mime_type"`
	FileSize     int64        `gorm:"not null" json:"file_size"`
	BlobKey      string       `gorm:"size:256;not null" json:"-"`
	DocumentType DocumentType `gorm:"size:64" json:"document_type,omitempty"`
	Stage        Stage        `gorm:"size:32;not null;index" json:"stage"`
	FailedStage  Stage        `gorm:"size:32" json:"failed_stage,omitempty"`
	ErrorKind    string       `gorm:"size:64" json:"error_kind,omitempty"`
	ErrorMessage string       `gorm:"type:text" json:"error_message,omitempty"`
	FailedAt     *time.Time   `json:"failed_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

func (d *Document) Failed() bool {
	return d.Stage == StageFailed
}

// LastCompletedStage is the furthest stage whose artifacts were committed.
func (d *Document) LastCompletedStage() Stage {
	if !d.Failed() {
		return d.Stage
	}
	prev, ok := d.FailedStage.Prev()
	if !ok {
		return StageUploaded
	}
	return prev
}
