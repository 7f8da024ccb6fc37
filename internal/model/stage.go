package model

import "fmt"

// Stage is a step of the document pipeline.
type Stage string

const (
	StageUploaded   Stage = "uploaded"
	StageExtracted  Stage = "extracted"
	StageClassified Stage = "classified"
	StageAnalyzed   Stage = "analyzed"
	StageIndexed    Stage = "indexed"
	StageReady      Stage = "ready"
	StageFailed     Stage = "failed"
)

var pipeline = []Stage{
	StageUploaded,
	StageExtracted,
	StageClassified,
	StageAnalyzed,
	StageIndexed,
	StageReady,
}

// PipelineStages returns the fixed stage order.
func PipelineStages() []Stage {
	out := make([]Stage, len(pipeline))
	copy(out, pipeline)
	return out
}

// Rank is the position of s in the pipeline order, or -1 for failed and unknown values.
func (s Stage) Rank() int {
	for i, st := range pipeline {
		if st == s {
			return i
		}
	}
	return -1
}

func (s Stage) InPipeline() bool {
	return s.Rank() >= 0
}

// Prev returns the stage that must be complete before s can be entered.
func (s Stage) Prev() (Stage, bool) {
	r := s.Rank()
	if r <= 0 {
		return "", false
	}
	return pipeline[r-1], true
}

func (s Stage) Next() (Stage, bool) {
	r := s.Rank()
	if r < 0 || r == len(pipeline)-1 {
		return "", false
	}
	return pipeline[r+1], true
}

// AtLeast reports whether s is at or beyond other in the pipeline order.
// Failed never satisfies it.
func (s Stage) AtLeast(other Stage) bool {
	r := s.Rank()
	return r >= 0 && r >= other.Rank()
}

func ParseStage(raw string) (Stage, error) {
	s := Stage(raw)
	if s == StageFailed || s.InPipeline() {
		return s, nil
	}
	return "", fmt.Errorf("unknown stage %q", raw)
}
