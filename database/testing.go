package database

import (
	"backend_telearenda/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDatabase подменяет глобальное подключение тестовой базой
// SQLite в памяти. Используется в тестах HTTP обработчиков, которые
// работают через database.DB
func SetupTestDatabase() error {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return err
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Client{},
		&models.Asset{},
		&models.Association{},
		&models.AssociationHistory{},
		&models.NotificationSettings{},
		&models.NotificationLog{},
	)
	if err != nil {
		return err
	}

	DB = db
	return nil
}

// CleanupTestDatabase закрывает тестовое подключение
func CleanupTestDatabase() {
	if DB != nil {
		if sqlDB, err := DB.DB(); err == nil {
			sqlDB.Close()
		}
		DB = nil
	}
}
