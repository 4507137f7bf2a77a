package services

import (
	"testing"

	"backend_telearenda/models"
	"backend_telearenda/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckExpiredSubscriptions(t *testing.T) {
	db, err := testutils.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { testutils.CleanupTestDB(db) })

	client := testutils.CreateTestClient(db, "ООО Ромашка")
	service := NewAssociationService(db, nil)

	expired := testutils.CreateTestAsset(db, models.AssetKindChip)
	current := testutils.CreateTestAsset(db, models.AssetKindChip)

	past := &SubscriptionInfo{
		StartDate: models.CalendarDate("2020-01-01"),
		EndDate:   models.CalendarDate("2020-12-31"),
	}
	_, err = service.Associate(expired.ID, client.ID, models.AssociationKindSubscription, past, nil)
	require.NoError(t, err)

	future := &SubscriptionInfo{
		StartDate: models.Today(),
		EndDate:   models.CalendarDate("2099-12-31"),
	}
	_, err = service.Associate(current.ID, client.ID, models.AssociationKindSubscription, future, nil)
	require.NoError(t, err)

	monitor := NewSubscriptionMonitor(db, nil, nil)
	require.NoError(t, monitor.CheckExpiredSubscriptions())

	var marked models.Asset
	require.NoError(t, db.First(&marked, expired.ID).Error)
	assert.True(t, marked.IsExpired, "Подписка с прошедшей датой окончания должна быть отмечена истекшей")

	var active models.Asset
	require.NoError(t, db.First(&active, current.ID).Error)
	assert.False(t, active.IsExpired, "Действующая подписка не должна отмечаться истекшей")

	// Повторный запуск ничего не меняет
	require.NoError(t, monitor.CheckExpiredSubscriptions())
}
