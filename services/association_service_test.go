package services

import (
	"testing"

	"backend_telearenda/database"
	"backend_telearenda/models"
	"backend_telearenda/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAssociationService(t *testing.T) (*AssociationService, *models.Client) {
	db, err := testutils.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { testutils.CleanupTestDB(db) })

	client := testutils.CreateTestClient(db, "ООО Ромашка")
	require.NotNil(t, client)

	return NewAssociationService(db, nil), client
}

func TestAssociate(t *testing.T) {
	t.Run("Успешная выдача в аренду", func(t *testing.T) {
		service, client := setupAssociationService(t)
		asset := testutils.CreateTestAsset(service.DB, models.AssetKindEquipment)

		result, err := service.Associate(asset.ID, client.ID, models.AssociationKindLease, nil, nil)
		require.NoError(t, err)
		require.NotNil(t, result.Association)

		assert.Equal(t, models.AssetStatusLeased, result.NewAssetStatus)
		assert.Equal(t, models.Today(), result.Association.EntryDate)
		assert.Nil(t, result.Association.ExitDate, "Новая привязка должна быть активной")

		// Денормализованные поля отображения заполнены при создании
		assert.Equal(t, "ООО Ромашка", result.Association.ClientName)
		assert.Equal(t, asset.SerialNumber, result.Association.AssetLabel)
		assert.Equal(t, "Оборудование", result.Association.AssetKindName)

		// Актив переведен в статус leased и закреплен за клиентом
		var updated models.Asset
		require.NoError(t, service.DB.First(&updated, asset.ID).Error)
		assert.Equal(t, models.AssetStatusLeased, updated.Status)
		require.NotNil(t, updated.ClientID)
		assert.Equal(t, client.ID, *updated.ClientID)
	})

	t.Run("Повторная выдача занятого актива отклоняется", func(t *testing.T) {
		service, client := setupAssociationService(t)
		asset := testutils.CreateTestAsset(service.DB, models.AssetKindChip)

		_, err := service.Associate(asset.ID, client.ID, models.AssociationKindLease, nil, nil)
		require.NoError(t, err)

		other := testutils.CreateTestClient(service.DB, "ООО Лютик")
		_, err = service.Associate(asset.ID, other.ID, models.AssociationKindLease, nil, nil)
		require.Error(t, err)
		assert.True(t, IsConflict(err), "Ожидался ConflictError, получено: %v", err)

		// У актива не более одной активной привязки
		var active int64
		service.DB.Model(&models.Association{}).
			Where("asset_id = ? AND exit_date IS NULL", asset.ID).Count(&active)
		assert.Equal(t, int64(1), active)
	})

	t.Run("Проигравшая конкурентная выдача получает конфликт", func(t *testing.T) {
		service, client := setupAssociationService(t)
		require.NoError(t, database.CreateConstraintIndexes(service.DB))

		asset := testutils.CreateTestAsset(service.DB, models.AssetKindChip)
		_, err := service.Associate(asset.ID, client.ID, models.AssociationKindLease, nil, nil)
		require.NoError(t, err)

		// Имитация гонки: проверка статуса пройдена, но активная
		// привязка уже записана конкурентом
		require.NoError(t, service.DB.Model(&models.Asset{}).Where("id = ?", asset.ID).
			Updates(map[string]interface{}{"status": models.AssetStatusAvailable, "client_id": nil}).Error)

		_, err = service.Associate(asset.ID, client.ID, models.AssociationKindLease, nil, nil)
		require.Error(t, err)
		assert.True(t, IsConflict(err), "Нарушение уникального индекса должно приходить как конфликт")
	})

	t.Run("Несуществующий актив", func(t *testing.T) {
		service, client := setupAssociationService(t)

		_, err := service.Associate(99999, client.ID, models.AssociationKindLease, nil, nil)
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
	})

	t.Run("Несуществующий клиент", func(t *testing.T) {
		service, _ := setupAssociationService(t)
		asset := testutils.CreateTestAsset(service.DB, models.AssetKindChip)

		_, err := service.Associate(asset.ID, 99999, models.AssociationKindLease, nil, nil)
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
	})

	t.Run("Неизвестный тип привязки", func(t *testing.T) {
		service, client := setupAssociationService(t)
		asset := testutils.CreateTestAsset(service.DB, models.AssetKindChip)

		_, err := service.Associate(asset.ID, client.ID, "rent-to-own", nil, nil)
		require.Error(t, err)
		assert.True(t, IsValidation(err))
	})

	t.Run("Подписка без дат отклоняется", func(t *testing.T) {
		service, client := setupAssociationService(t)
		asset := testutils.CreateTestAsset(service.DB, models.AssetKindChip)

		_, err := service.Associate(asset.ID, client.ID, models.AssociationKindSubscription, nil, nil)
		require.Error(t, err)
		assert.True(t, IsValidation(err))
	})

	t.Run("Подписка заполняет даты на активе", func(t *testing.T) {
		service, client := setupAssociationService(t)
		asset := testutils.CreateTestAsset(service.DB, models.AssetKindChip)

		sub := &SubscriptionInfo{
			StartDate: models.CalendarDate("2026-08-01"),
			EndDate:   models.CalendarDate("2027-08-01"),
		}
		result, err := service.Associate(asset.ID, client.ID, models.AssociationKindSubscription, sub, nil)
		require.NoError(t, err)
		assert.Equal(t, models.AssetStatusSubscribed, result.NewAssetStatus)

		var updated models.Asset
		require.NoError(t, service.DB.First(&updated, asset.ID).Error)
		require.NotNil(t, updated.SubscriptionEnd)
		assert.Equal(t, models.CalendarDate("2027-08-01"), *updated.SubscriptionEnd)
		assert.False(t, updated.IsExpired)
	})

	t.Run("Запись в историю операций", func(t *testing.T) {
		service, client := setupAssociationService(t)
		asset := testutils.CreateTestAsset(service.DB, models.AssetKindChip)

		_, err := service.Associate(asset.ID, client.ID, models.AssociationKindLease, nil, nil)
		require.NoError(t, err)

		var entries int64
		service.DB.Model(&models.AssociationHistory{}).
			Where("action = ?", "association.create").Count(&entries)
		assert.Equal(t, int64(1), entries)
	})
}

func TestEnd(t *testing.T) {
	t.Run("Завершение возвращает актив на склад", func(t *testing.T) {
		service, client := setupAssociationService(t)
		asset := testutils.CreateTestAsset(service.DB, models.AssetKindChip)

		created, err := service.Associate(asset.ID, client.ID, models.AssociationKindLease, nil, nil)
		require.NoError(t, err)

		result, err := service.End(created.Association.ID, nil)
		require.NoError(t, err)
		assert.False(t, result.AlreadyEnded)
		require.NotNil(t, result.ExitDate)
		assert.Equal(t, models.Today(), *result.ExitDate)
		assert.Equal(t, models.AssetStatusAvailable, result.NewAssetStatus)

		var updated models.Asset
		require.NoError(t, service.DB.First(&updated, asset.ID).Error)
		assert.Equal(t, models.AssetStatusAvailable, updated.Status)
		assert.Nil(t, updated.ClientID)
	})

	t.Run("Возврат оборудования помечает пароль на смену", func(t *testing.T) {
		service, client := setupAssociationService(t)
		asset := testutils.CreateTestAsset(service.DB, models.AssetKindEquipment)

		created, err := service.Associate(asset.ID, client.ID, models.AssociationKindLease, nil, nil)
		require.NoError(t, err)

		result, err := service.End(created.Association.ID, nil)
		require.NoError(t, err)
		assert.True(t, result.PasswordRotationFlagged)

		var updated models.Asset
		require.NoError(t, service.DB.First(&updated, asset.ID).Error)
		assert.True(t, updated.NeedsPasswordRotation)
	})

	t.Run("Возврат SIM-чипа не трогает пароль", func(t *testing.T) {
		service, client := setupAssociationService(t)
		asset := testutils.CreateTestAsset(service.DB, models.AssetKindChip)

		created, err := service.Associate(asset.ID, client.ID, models.AssociationKindLease, nil, nil)
		require.NoError(t, err)

		result, err := service.End(created.Association.ID, nil)
		require.NoError(t, err)
		assert.False(t, result.PasswordRotationFlagged)
	})

	t.Run("Повторное завершение - no-op", func(t *testing.T) {
		service, client := setupAssociationService(t)
		asset := testutils.CreateTestAsset(service.DB, models.AssetKindChip)

		created, err := service.Associate(asset.ID, client.ID, models.AssociationKindLease, nil, nil)
		require.NoError(t, err)

		first, err := service.End(created.Association.ID, nil)
		require.NoError(t, err)

		second, err := service.End(created.Association.ID, nil)
		require.NoError(t, err, "Повторное завершение не должно быть ошибкой")
		assert.True(t, second.AlreadyEnded)
		require.NotNil(t, second.ExitDate)
		assert.Equal(t, *first.ExitDate, *second.ExitDate, "Дата выхода не должна сдвигаться")
	})

	t.Run("Завершение несуществующей привязки", func(t *testing.T) {
		service, _ := setupAssociationService(t)

		_, err := service.End(99999, nil)
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
	})

	t.Run("После завершения актив можно выдать снова", func(t *testing.T) {
		service, client := setupAssociationService(t)
		asset := testutils.CreateTestAsset(service.DB, models.AssetKindChip)

		created, err := service.Associate(asset.ID, client.ID, models.AssociationKindLease, nil, nil)
		require.NoError(t, err)
		_, err = service.End(created.Association.ID, nil)
		require.NoError(t, err)

		other := testutils.CreateTestClient(service.DB, "ООО Лютик")
		_, err = service.Associate(asset.ID, other.ID, models.AssociationKindLoan, nil, nil)
		require.NoError(t, err)
	})
}

func TestAssociateBatch(t *testing.T) {
	t.Run("Партия получает общее время создания", func(t *testing.T) {
		service, client := setupAssociationService(t)
		first := testutils.CreateTestAsset(service.DB, models.AssetKindChip)
		second := testutils.CreateTestAsset(service.DB, models.AssetKindEquipment)

		results, err := service.AssociateBatch([]uint{first.ID, second.ID}, client.ID, models.AssociationKindLease, nil, nil)
		require.NoError(t, err)
		require.Len(t, results, 2)

		assert.Equal(t, results[0].Association.CreatedAt, results[1].Association.CreatedAt,
			"Строки одной партии должны иметь одинаковое время создания")
	})

	t.Run("Пустая партия отклоняется", func(t *testing.T) {
		service, client := setupAssociationService(t)

		_, err := service.AssociateBatch(nil, client.ID, models.AssociationKindLease, nil, nil)
		require.Error(t, err)
		assert.True(t, IsValidation(err))
	})

	t.Run("Ошибка по одному активу откатывает всю партию", func(t *testing.T) {
		service, client := setupAssociationService(t)
		free := testutils.CreateTestAsset(service.DB, models.AssetKindChip)
		busy := testutils.CreateTestAsset(service.DB, models.AssetKindChip)

		_, err := service.Associate(busy.ID, client.ID, models.AssociationKindLease, nil, nil)
		require.NoError(t, err)

		_, err = service.AssociateBatch([]uint{free.ID, busy.ID}, client.ID, models.AssociationKindLease, nil, nil)
		require.Error(t, err)
		assert.True(t, IsConflict(err))

		// Свободный актив остался нетронутым
		var updated models.Asset
		require.NoError(t, service.DB.First(&updated, free.ID).Error)
		assert.Equal(t, models.AssetStatusAvailable, updated.Status)
	})
}

func TestExtendSubscription(t *testing.T) {
	t.Run("Продление переписывает дату окончания", func(t *testing.T) {
		service, client := setupAssociationService(t)
		asset := testutils.CreateTestAsset(service.DB, models.AssetKindChip)

		sub := &SubscriptionInfo{
			StartDate: models.CalendarDate("2026-01-01"),
			EndDate:   models.CalendarDate("2026-07-01"),
		}
		_, err := service.Associate(asset.ID, client.ID, models.AssociationKindSubscription, sub, nil)
		require.NoError(t, err)

		// Имитируем истекшую подписку
		require.NoError(t, service.DB.Model(&models.Asset{}).Where("id = ?", asset.ID).
			Update("is_expired", true).Error)

		err = service.ExtendSubscription(asset.ID, models.CalendarDate("2027-01-01"), nil)
		require.NoError(t, err)

		var updated models.Asset
		require.NoError(t, service.DB.First(&updated, asset.ID).Error)
		require.NotNil(t, updated.SubscriptionEnd)
		assert.Equal(t, models.CalendarDate("2027-01-01"), *updated.SubscriptionEnd)
		assert.False(t, updated.IsExpired, "Продление должно снимать признак истечения")
	})

	t.Run("Без активной подписки продление невозможно", func(t *testing.T) {
		service, client := setupAssociationService(t)
		asset := testutils.CreateTestAsset(service.DB, models.AssetKindChip)

		_, err := service.Associate(asset.ID, client.ID, models.AssociationKindLease, nil, nil)
		require.NoError(t, err)

		err = service.ExtendSubscription(asset.ID, models.CalendarDate("2027-01-01"), nil)
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
	})

	t.Run("Дата раньше начала подписки отклоняется", func(t *testing.T) {
		service, client := setupAssociationService(t)
		asset := testutils.CreateTestAsset(service.DB, models.AssetKindChip)

		sub := &SubscriptionInfo{
			StartDate: models.CalendarDate("2026-06-01"),
			EndDate:   models.CalendarDate("2026-12-01"),
		}
		_, err := service.Associate(asset.ID, client.ID, models.AssociationKindSubscription, sub, nil)
		require.NoError(t, err)

		err = service.ExtendSubscription(asset.ID, models.CalendarDate("2026-05-01"), nil)
		require.Error(t, err)
		assert.True(t, IsValidation(err))
	})
}

func TestReturnToStock(t *testing.T) {
	t.Run("Активы без привязки пропускаются молча", func(t *testing.T) {
		service, client := setupAssociationService(t)
		leased := testutils.CreateTestAsset(service.DB, models.AssetKindChip)
		idle := testutils.CreateTestAsset(service.DB, models.AssetKindChip)

		_, err := service.Associate(leased.ID, client.ID, models.AssociationKindLease, nil, nil)
		require.NoError(t, err)

		results, err := service.ReturnToStock([]uint{leased.ID, idle.ID}, nil)
		require.NoError(t, err)
		require.Len(t, results, 1, "Свободный актив не должен попадать в результаты")
		assert.Equal(t, leased.ID, results[0].AssetID)

		var updated models.Asset
		require.NoError(t, service.DB.First(&updated, leased.ID).Error)
		assert.Equal(t, models.AssetStatusAvailable, updated.Status)
	})

	t.Run("Будущая дата выхода не мешает возврату", func(t *testing.T) {
		service, client := setupAssociationService(t)
		asset := testutils.CreateTestAsset(service.DB, models.AssetKindChip)

		created, err := service.Associate(asset.ID, client.ID, models.AssociationKindLease, nil, nil)
		require.NoError(t, err)

		// Массовое редактирование назначило дату выхода в будущем,
		// привязка при этом остается досрочно завершаемой
		future := models.CalendarDate("2099-01-01")
		require.NoError(t, service.DB.Model(&models.Association{}).
			Where("id = ?", created.Association.ID).
			Update("exit_date", future).Error)

		results, err := service.ReturnToStock([]uint{asset.ID}, nil)
		require.NoError(t, err)
		require.Len(t, results, 1, "Привязка с будущей датой выхода еще активна")
		assert.False(t, results[0].AlreadyEnded)

		var updated models.Asset
		require.NoError(t, service.DB.First(&updated, asset.ID).Error)
		assert.Equal(t, models.AssetStatusAvailable, updated.Status)

		var assoc models.Association
		require.NoError(t, service.DB.First(&assoc, created.Association.ID).Error)
		require.NotNil(t, assoc.ExitDate)
		assert.Equal(t, models.Today(), *assoc.ExitDate, "Досрочное завершение подтягивает дату выхода к сегодняшней")
	})
}
