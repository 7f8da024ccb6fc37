package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"clausewise/internal/model"
)

type SummaryRepository struct {
	db *gorm.DB
}

func NewSummaryRepository(db *gorm.DB) *SummaryRepository {
	return &SummaryRepository{db: db}
}

func (r *SummaryRepository) GetByDocumentID(ctx context.Context, documentID string) (*model.AnalysisSummary, error) {
	var summary model.AnalysisSummary
	if err := r.db.WithContext(ctx).Where("document_id = ?", documentID).First(&summary).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: analysis summary of %s", ErrArtifactNotFound, documentID)
		}
		return nil, fmt.Errorf("get analysis summary failed: %w", err)
	}
	return &summary, nil
}

func (r *SummaryRepository) Replace(summary *model.AnalysisSummary) error {
	if err := r.DeleteByDocumentID(summary.DocumentID); err != nil {
		return err
	}
	if err := r.db.Create(summary).Error; err != nil {
		return fmt.Errorf("create analysis summary failed: %w", err)
	}
	return nil
}

func (r *SummaryRepository) DeleteByDocumentID(documentID string) error {
	if err := r.db.Where("document_id = ?", documentID).Delete(&model.AnalysisSummary{}).Error; err != nil {
		return fmt.Errorf("delete analysis summary failed: %w", err)
	}
	return nil
}
