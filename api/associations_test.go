package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"backend_telearenda/database"
	"backend_telearenda/models"
	"backend_telearenda/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupAssociationRouter поднимает тестовую базу и маршруты привязок
func setupAssociationRouter(t *testing.T) *gin.Engine {
	require.NoError(t, database.SetupTestDatabase())
	t.Cleanup(database.CleanupTestDatabase)

	associations := services.NewAssociationService(database.DB, nil)
	store := services.NewAssociationStore(database.DB)
	grouping := services.NewGroupingService(store, nil)
	bulk := services.NewBulkService(database.DB, associations, nil, nil)
	InitAssociationAPI(associations, grouping, bulk)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/associations", GetAssociations)
	router.POST("/associations", CreateAssociation)
	router.POST("/associations/batch", CreateAssociationBatch)
	router.POST("/associations/:id/end", EndAssociation)
	router.POST("/associations/bulk/end-group", BulkEndGroup)
	router.POST("/associations/bulk/soft-delete", BulkSoftDelete)
	return router
}

func createFixtures(t *testing.T) (*models.Client, *models.Asset) {
	client := &models.Client{Name: "ООО Тест", IsActive: true}
	require.NoError(t, database.DB.Create(client).Error)

	asset := &models.Asset{
		Kind:         models.AssetKindEquipment,
		SerialNumber: "SN-API-1",
		Status:       models.AssetStatusAvailable,
	}
	require.NoError(t, database.DB.Create(asset).Error)

	return client, asset
}

func postJSON(router *gin.Engine, path string, payload interface{}) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	req, _ := http.NewRequest("POST", path, bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateAssociationAPI(t *testing.T) {
	router := setupAssociationRouter(t)
	client, asset := createFixtures(t)

	w := postJSON(router, "/associations", gin.H{
		"asset_id":  asset.ID,
		"client_id": client.ID,
		"kind":      models.AssociationKindLease,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, "success", response["status"])

	// Привязка создана в базе
	var count int64
	database.DB.Model(&models.Association{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestCreateAssociationConflict(t *testing.T) {
	router := setupAssociationRouter(t)
	client, asset := createFixtures(t)

	w := postJSON(router, "/associations", gin.H{
		"asset_id":  asset.ID,
		"client_id": client.ID,
		"kind":      models.AssociationKindLease,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	// Повторная выдача того же актива
	w = postJSON(router, "/associations", gin.H{
		"asset_id":  asset.ID,
		"client_id": client.ID,
		"kind":      models.AssociationKindLease,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, "error", response["status"])
}

func TestCreateAssociationNotFound(t *testing.T) {
	router := setupAssociationRouter(t)
	client, _ := createFixtures(t)

	w := postJSON(router, "/associations", gin.H{
		"asset_id":  99999,
		"client_id": client.ID,
		"kind":      models.AssociationKindLease,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEndAssociationAPI(t *testing.T) {
	router := setupAssociationRouter(t)
	client, asset := createFixtures(t)

	w := postJSON(router, "/associations", gin.H{
		"asset_id":  asset.ID,
		"client_id": client.ID,
		"kind":      models.AssociationKindLease,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var assoc models.Association
	require.NoError(t, database.DB.First(&assoc).Error)

	w = postJSON(router, fmt.Sprintf("/associations/%d/end", assoc.ID), gin.H{})
	assert.Equal(t, http.StatusOK, w.Code)

	var updated models.Asset
	require.NoError(t, database.DB.First(&updated, asset.ID).Error)
	assert.Equal(t, models.AssetStatusAvailable, updated.Status)

	// Повторное завершение остается успешным (идемпотентность)
	w = postJSON(router, fmt.Sprintf("/associations/%d/end", assoc.ID), gin.H{})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetAssociationsGrouped(t *testing.T) {
	router := setupAssociationRouter(t)
	client, _ := createFixtures(t)

	second := &models.Asset{
		Kind:   models.AssetKindChip,
		ICCID:  "8970010012345",
		Status: models.AssetStatusAvailable,
	}
	require.NoError(t, database.DB.Create(second).Error)

	var first models.Asset
	require.NoError(t, database.DB.Where("serial_number = ?", "SN-API-1").First(&first).Error)

	// Партия из двух активов
	w := postJSON(router, "/associations/batch", gin.H{
		"asset_ids": []uint{first.ID, second.ID},
		"client_id": client.ID,
		"kind":      models.AssociationKindLease,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	req, _ := http.NewRequest("GET", "/associations?page=1&limit=20", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Status string                           `json:"status"`
		Data   services.GroupedAssociationsView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	assert.Equal(t, "success", response.Status)
	assert.Equal(t, int64(2), response.Data.TotalCount)
	require.Len(t, response.Data.Groups, 1, "Партия должна вернуться одной группой")
	require.Len(t, response.Data.Groups[0].Companies, 1)
	assert.Equal(t, "ООО Тест", response.Data.Groups[0].Companies[0].ClientName)
	assert.Equal(t, 2, response.Data.Groups[0].Companies[0].TotalAssets)
}

func TestBulkSoftDeleteAPI(t *testing.T) {
	router := setupAssociationRouter(t)
	client, asset := createFixtures(t)

	w := postJSON(router, "/associations", gin.H{
		"asset_id":  asset.ID,
		"client_id": client.ID,
		"kind":      models.AssociationKindLease,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var assoc models.Association
	require.NoError(t, database.DB.First(&assoc).Error)

	w = postJSON(router, "/associations/bulk/soft-delete", gin.H{
		"association_ids": []uint{assoc.ID},
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data services.BulkResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 1, response.Data.Succeeded)

	// Удаленная привязка не видна в выборке
	var count int64
	database.DB.Model(&models.Association{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestBulkEndGroupNoOp(t *testing.T) {
	router := setupAssociationRouter(t)
	client, asset := createFixtures(t)

	w := postJSON(router, "/associations", gin.H{
		"asset_id":  asset.ID,
		"client_id": client.ID,
		"kind":      models.AssociationKindLease,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var assoc models.Association
	require.NoError(t, database.DB.First(&assoc).Error)

	w = postJSON(router, fmt.Sprintf("/associations/%d/end", assoc.ID), gin.H{})
	require.Equal(t, http.StatusOK, w.Code)

	// Полностью завершенная группа: завершать нечего
	w = postJSON(router, "/associations/bulk/end-group", gin.H{
		"created_at": assoc.CreatedAt,
		"client_id":  client.ID,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
