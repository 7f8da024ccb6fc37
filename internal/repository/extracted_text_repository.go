package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"clausewise/internal/model"
)

type ExtractedTextRepository struct {
	db *gorm.DB
}

func NewExtractedTextRepository(db *gorm.DB) *ExtractedTextRepository {
	return &ExtractedTextRepository{db: db}
}

func (r *ExtractedTextRepository) GetByDocumentID(ctx context.Context, documentID string) (*model.ExtractedText, error) {
	var text model.ExtractedText
	if err := r.db.WithContext(ctx).Where("document_id = ?", documentID).First(&text).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: extracted text of %s", ErrArtifactNotFound, documentID)
		}
		return nil, fmt.Errorf("get extracted text failed: %w", err)
	}
	return &text, nil
}

func (r *ExtractedTextRepository) Replace(text *model.ExtractedText) error {
	if err := r.DeleteByDocumentID(text.DocumentID); err != nil {
		return err
	}
	if err := r.db.Create(text).Error; err != nil {
		return fmt.Errorf("create extracted text failed: %w", err)
	}
	return nil
}

func (r *ExtractedTextRepository) DeleteByDocumentID(documentID string) error {
	if err := r.db.Where("document_id = ?", documentID).Delete(&model.ExtractedText{}).Error; err != nil {
		return fmt.Errorf("delete extracted text failed: %w", err)
	}
	return nil
}
