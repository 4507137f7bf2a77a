package testutils

import (
	"fmt"
	"log"
	"time"

	"backend_telearenda/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB создает и настраивает тестовую базу данных в памяти
// Эта функция должна использоваться во всех тестах для обеспечения консистентности
func SetupTestDB() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// Выполняем миграции в правильном порядке
	err = db.AutoMigrate(
		// Базовые модели
		&models.User{},
		&models.Client{},
		&models.Asset{},

		// Привязки и история
		&models.Association{},
		&models.AssociationHistory{},

		// Уведомления
		&models.NotificationSettings{},
		&models.NotificationLog{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}

// CleanupTestDB очищает тестовую базу данных
func CleanupTestDB(db *gorm.DB) {
	if db != nil {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
	}
}

// CreateTestClient создает тестового клиента
func CreateTestClient(db *gorm.DB, name string) *models.Client {
	client := &models.Client{
		Name:          name,
		ContactPerson: "Иванов Иван",
		Phone:         "+79990000000",
		Email:         "client@example.com",
		IsActive:      true,
	}

	if err := db.Create(client).Error; err != nil {
		log.Printf("Failed to create test client: %v", err)
		return nil
	}

	return client
}

// CreateTestAsset создает тестовый актив указанного типа
func CreateTestAsset(db *gorm.DB, kind string) *models.Asset {
	asset := &models.Asset{
		Kind:   kind,
		Status: models.AssetStatusAvailable,
	}

	suffix := time.Now().UnixNano()
	if kind == models.AssetKindChip {
		asset.ICCID = fmt.Sprintf("89700101%d", suffix)
		asset.LineNumber = fmt.Sprintf("+7999%d", suffix%10000000)
	} else {
		asset.Manufacturer = "TP-Link"
		asset.Model = "Archer MR600"
		asset.SerialNumber = fmt.Sprintf("SN-%d", suffix)
		asset.WiFiSSID = "office-net"
		asset.WiFiPassword = "wifi-secret"
	}

	if err := db.Create(asset).Error; err != nil {
		log.Printf("Failed to create test asset: %v", err)
		return nil
	}

	return asset
}

// CreateTestUser создает тестового пользователя
func CreateTestUser(db *gorm.DB) *models.User {
	user := &models.User{
		Username:  "testuser",
		Email:     "test@example.com",
		FirstName: "Test",
		LastName:  "User",
		IsActive:  true,
	}
	if err := user.SetPassword("test-password"); err != nil {
		log.Printf("Failed to hash test password: %v", err)
		return nil
	}

	if err := db.Create(user).Error; err != nil {
		log.Printf("Failed to create test user: %v", err)
		return nil
	}

	return user
}
