package model

import "time"

const (
	EventUploaded  = "uploaded"
	EventCompleted = "completed"
	EventFailed    = "failed"
	EventRewound   = "rewound"
	EventReindexed = "reindexed"
)

// StageEvent announces a stage change of one document.
type StageEvent struct {
	DocumentID  string    `json:"document_id"`
	Event       string    `json:"event"`
	Stage       Stage     `json:"stage"`
	FailedStage Stage     `json:"failed_stage,omitempty"`
	ErrorKind   string    `json:"error_kind,omitempty"`
	At          time.Time `json:"at"`
}
