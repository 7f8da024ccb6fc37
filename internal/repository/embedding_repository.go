package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"clausewise/internal/model"
)

type EmbeddingRepository struct {
	db *gorm.DB
}

func NewEmbeddingRepository(db *gorm.DB) *EmbeddingRepository {
	return &EmbeddingRepository{db: db}
}

// ListByScope returns every record of scope in insertion order. A single
// SELECT sees either the old or the new set, never a mix.
func (r *EmbeddingRepository) ListByScope(ctx context.Context, scope string) ([]model.EmbeddingRecord, error) {
	var records []model.EmbeddingRecord
	if err := r.db.WithContext(ctx).Where("scope = ?", scope).Order("id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list embedding records failed: %w", err)
	}
	return records, nil
}

func (r *EmbeddingRepository) ReplaceScope(scope string, records []model.EmbeddingRecord) error {
	if err := r.DeleteByScope(scope); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	for i := range records {
		records[i].ID = 0
		records[i].Scope = scope
	}
	if err := r.db.CreateInBatches(records, 100).Error; err != nil {
		return fmt.Errorf("create embedding records batch failed: %w", err)
	}
	return nil
}

func (r *EmbeddingRepository) DeleteByScope(scope string) error {
	if err := r.db.Where("scope = ?", scope).Delete(&model.EmbeddingRecord{}).Error; err != nil {
		return fmt.Errorf("delete embedding records failed: %w", err)
	}
	return nil
}
