package services

import (
	"testing"

	"backend_telearenda/models"
	"backend_telearenda/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupReportService(t *testing.T) *ReportService {
	db, err := testutils.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { testutils.CleanupTestDB(db) })

	client := testutils.CreateTestClient(db, "ООО Ромашка")
	asset := testutils.CreateTestAsset(db, models.AssetKindEquipment)

	service := NewAssociationService(db, nil)
	_, err = service.Associate(asset.ID, client.ID, models.AssociationKindLease, nil, nil)
	require.NoError(t, err)

	return NewReportService(db, nil)
}

func TestGenerateAssociationsExcel(t *testing.T) {
	rs := setupReportService(t)

	data, err := rs.GenerateAssociationsExcel(AssociationFilter{})
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestGenerateAssociationsPDF(t *testing.T) {
	rs := setupReportService(t)

	data, err := rs.GenerateAssociationsPDF(AssociationFilter{})
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestPdfText(t *testing.T) {
	assert.Equal(t, "Privyazki", pdfText("Привязки"))
	assert.Equal(t, "OOO Romashka", pdfText("ООО Ромашка"))
	assert.Equal(t, "Limit trafika, GB", pdfText("Лимит трафика, ГБ"))
	assert.Equal(t, "Shchuka i ezh", pdfText("Щука и ёж"))
	assert.Equal(t, "router-42", pdfText("router-42"), "Латиница проходит без изменений")
}
