package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"clausewise/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *model.Document) error {
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return fmt.Errorf("create document failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*model.Document, error) {
	var doc model.Document
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

// List returns documents newest first.
func (r *DocumentRepository) List(ctx context.Context, limit, offset int) ([]model.Document, error) {
	var list []model.Document
	q := r.db.WithContext(ctx).Order("created_at DESC").Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return list, nil
}

// lockForStage reads the document row for update and checks it is in the
// expected stage. expectedFailed is compared only when expected is failed.
func (r *DocumentRepository) lockForStage(id string, expected, expectedFailed model.Stage) (*model.Document, error) {
	var doc model.Document
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("lock document failed: %w", err)
	}
	if doc.Stage != expected {
		return nil, fmt.Errorf("%w: expected %s, found %s", ErrStageConflict, expected, doc.Stage)
	}
	if expected == model.StageFailed && doc.FailedStage != expectedFailed {
		return nil, fmt.Errorf("%w: expected failure at %s, found %s", ErrStageConflict, expectedFailed, doc.FailedStage)
	}
	return &doc, nil
}

func (r *DocumentRepository) setStage(id string, stage model.Stage, documentType model.DocumentType) error {
	updates := map[string]interface{}{
		"stage":         stage,
		"failed_stage":  "",
		"error_kind":    "",
		"error_message": "",
		"failed_at":     nil,
	}
	if documentType != "" {
		updates["document_type"] = documentType
	}
	if err := r.db.Model(&model.Document{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("update document stage failed: %w", err)
	}
	return nil
}

// clearDocumentType forgets the classification of a document sent back
// before the classified stage.
func (r *DocumentRepository) clearDocumentType(id string) error {
	if err := r.db.Model(&model.Document{}).Where("id = ?", id).Update("document_type", "").Error; err != nil {
		return fmt.Errorf("clear document type failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) setFailure(id string, failedStage model.Stage, kind, message string, at time.Time) error {
	updates := map[string]interface{}{
		"stage":         model.StageFailed,
		"failed_stage":  failedStage,
		"error_kind":    kind,
		"error_message": message,
		"failed_at":     at,
	}
	if err := r.db.Model(&model.Document{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("record document failure failed: %w", err)
	}
	return nil
}
