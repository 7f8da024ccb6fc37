package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"clausewise/internal/model"
)

type ClauseRepository struct {
	db *gorm.DB
}

func NewClauseRepository(db *gorm.DB) *ClauseRepository {
	return &ClauseRepository{db: db}
}

// ListByDocumentID returns clauses in document order.
func (r *ClauseRepository) ListByDocumentID(ctx context.Context, documentID string) ([]model.Clause, error) {
	var clauses []model.Clause
	if err := r.db.WithContext(ctx).Where("document_id = ?", documentID).Order("seq ASC").Find(&clauses).Error; err != nil {
		return nil, fmt.Errorf("list clauses failed: %w", err)
	}
	return clauses, nil
}

// ReplaceForDocument swaps the whole clause set of a document.
func (r *ClauseRepository) ReplaceForDocument(documentID string, clauses []model.Clause) error {
	if err := r.DeleteByDocumentID(documentID); err != nil {
		return err
	}
	if len(clauses) == 0 {
		return nil
	}
	if err := r.db.CreateInBatches(clauses, 100).Error; err != nil {
		return fmt.Errorf("create clauses batch failed: %w", err)
	}
	return nil
}

func (r *ClauseRepository) DeleteByDocumentID(documentID string) error {
	if err := r.db.Where("document_id = ?", documentID).Delete(&model.Clause{}).Error; err != nil {
		return fmt.Errorf("delete clauses failed: %w", err)
	}
	return nil
}
