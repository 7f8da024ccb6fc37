package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"clausewise/internal/model"
)

type QARepository struct {
	db *gorm.DB
}

func NewQARepository(db *gorm.DB) *QARepository {
	return &QARepository{db: db}
}

func (r *QARepository) Create(ctx context.Context, exchange *model.QAExchange) error {
	if err := r.db.WithContext(ctx).Create(exchange).Error; err != nil {
		return fmt.Errorf("create qa exchange failed: %w", err)
	}
	return nil
}

// ListByDocumentID returns the newest exchanges first.
func (r *QARepository) ListByDocumentID(ctx context.Context, documentID string, limit int) ([]model.QAExchange, error) {
	var list []model.QAExchange
	q := r.db.WithContext(ctx).Where("document_id = ?", documentID).Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list qa exchanges failed: %w", err)
	}
	return list, nil
}
