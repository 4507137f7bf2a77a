package testutils

import (
	"testing"

	"backend_telearenda/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupTestDB(t *testing.T) {
	db, err := SetupTestDB()
	require.NoError(t, err, "Should setup test database without error")
	require.NotNil(t, db, "Database should not be nil")

	// Проверяем, что таблицы созданы
	var tableCount int64
	err = db.Raw("SELECT COUNT(*) FROM sqlite_master WHERE type='table'").Scan(&tableCount).Error
	require.NoError(t, err, "Should be able to query sqlite_master")
	assert.Greater(t, tableCount, int64(0), "Should have created some tables")

	// Очищаем
	CleanupTestDB(db)
}

func TestCreateTestClient(t *testing.T) {
	db, err := SetupTestDB()
	require.NoError(t, err)
	defer CleanupTestDB(db)

	client := CreateTestClient(db, "ООО Ромашка")
	require.NotNil(t, client, "Should create test client")
	assert.Equal(t, "ООО Ромашка", client.Name)
	assert.True(t, client.IsActive)
	assert.NotZero(t, client.ID, "Client ID should be generated")
}

func TestCreateTestAsset(t *testing.T) {
	db, err := SetupTestDB()
	require.NoError(t, err)
	defer CleanupTestDB(db)

	chip := CreateTestAsset(db, models.AssetKindChip)
	require.NotNil(t, chip, "Should create test chip")
	assert.Equal(t, models.AssetKindChip, chip.Kind)
	assert.Equal(t, models.AssetStatusAvailable, chip.Status)
	assert.NotEmpty(t, chip.ICCID)

	router := CreateTestAsset(db, models.AssetKindEquipment)
	require.NotNil(t, router, "Should create test equipment")
	assert.NotEmpty(t, router.SerialNumber)
	assert.NotEmpty(t, router.WiFiPassword)
}

func TestCreateTestUser(t *testing.T) {
	db, err := SetupTestDB()
	require.NoError(t, err)
	defer CleanupTestDB(db)

	user := CreateTestUser(db)
	require.NotNil(t, user, "Should create test user")
	assert.Equal(t, "testuser", user.Username)
	assert.True(t, user.IsActive)
	assert.True(t, user.CheckPassword("test-password"), "Password should verify")
}
