package database

import (
	"log"

	"gorm.io/gorm"
)

// CreateConstraintIndexes создает индексы, которые автомиграция GORM
// не умеет выражать. Частичный уникальный индекс подкрепляет инвариант
// "не более одной активной привязки на актив" на стороне Postgres:
// из двух конкурентных выдач одного актива вторая завершится ошибкой
func CreateConstraintIndexes(db *gorm.DB) error {
	statements := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_associations_active_asset
			ON associations (asset_id)
			WHERE exit_date IS NULL AND deleted_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_associations_created_client
			ON associations (created_at, client_id)`,
		`CREATE INDEX IF NOT EXISTS idx_history_association_created
			ON association_history (association_id, created_at)`,
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}

	log.Println("✅ Индексы ограничений созданы")
	return nil
}
