package repository

import (
	"fmt"

	"gorm.io/gorm"

	"clausewise/internal/model"
)

func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Document{},
		&model.ExtractedText{},
		&model.Clause{},
		&model.AnalysisSummary{},
		&model.EmbeddingRecord{},
		&model.QAExchange{},
	); err != nil {
		return fmt.Errorf("auto migrate tables failed: %w", err)
	}
	return nil
}
