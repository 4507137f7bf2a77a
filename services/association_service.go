package services

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"backend_telearenda/models"
)

// AssociationService управляет жизненным циклом привязок актив-клиент:
// создание, завершение, продление подписки, возврат на склад.
// Единственная точка мутации активов; между вызовами сервис не хранит
// состояния, кроме подключений к хранилищу и кэшу
type AssociationService struct {
	DB    *gorm.DB
	Store *AssociationStore
	Cache *CacheService
}

// NewAssociationService создает новый экземпляр AssociationService
func NewAssociationService(db *gorm.DB, cache *CacheService) *AssociationService {
	return &AssociationService{
		DB:    db,
		Store: NewAssociationStore(db),
		Cache: cache,
	}
}

// SubscriptionInfo параметры подписки при выдаче актива
type SubscriptionInfo struct {
	StartDate models.CalendarDate `json:"start_date"`
	EndDate   models.CalendarDate `json:"end_date"`
}

// AssociateResult результат выдачи актива клиенту
type AssociateResult struct {
	Association    *models.Association `json:"association"`
	NewAssetStatus string              `json:"new_asset_status"`
}

// EndResult результат завершения привязки
type EndResult struct {
	AssociationID           uint                 `json:"association_id"`
	AssetID                 uint                 `json:"asset_id"`
	AlreadyEnded            bool                 `json:"already_ended"`
	ExitDate                *models.CalendarDate `json:"exit_date"`
	NewAssetStatus          string               `json:"new_asset_status"`
	PasswordRotationFlagged bool                 `json:"password_rotation_flagged"`
}

// Associate выдает актив клиенту. Актив должен быть свободен: проверка
// статуса выполняется внутри транзакции непосредственно перед записью,
// а на стороне Postgres инвариант дополнительно подкреплен частичным
// уникальным индексом по активным привязкам
func (as *AssociationService) Associate(assetID, clientID uint, kind string, sub *SubscriptionInfo, userID *uint) (*AssociateResult, error) {
	return as.associateAt(assetID, clientID, kind, sub, userID, time.Now())
}

// AssociateBatch выдает несколько активов одному клиенту одной партией.
// Все строки получают одно и то же время создания, чтобы движок
// группировки собрал их в одну партию. Операция атомарна: ошибка по
// любому активу откатывает всю партию
func (as *AssociationService) AssociateBatch(assetIDs []uint, clientID uint, kind string, sub *SubscriptionInfo, userID *uint) ([]AssociateResult, error) {
	if len(assetIDs) == 0 {
		return nil, NewValidationError("не указаны активы для выдачи")
	}

	batchTime := time.Now()
	results := make([]AssociateResult, 0, len(assetIDs))

	err := as.DB.Transaction(func(tx *gorm.DB) error {
		for _, assetID := range assetIDs {
			result, err := as.associateInTx(tx, assetID, clientID, kind, sub, userID, batchTime)
			if err != nil {
				return err
			}
			results = append(results, *result)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	as.invalidateView()
	return results, nil
}

// associateAt выполняет одиночную выдачу с указанным временем создания
func (as *AssociationService) associateAt(assetID, clientID uint, kind string, sub *SubscriptionInfo, userID *uint, createdAt time.Time) (*AssociateResult, error) {
	var result *AssociateResult
	err := as.DB.Transaction(func(tx *gorm.DB) error {
		r, err := as.associateInTx(tx, assetID, clientID, kind, sub, userID, createdAt)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	as.invalidateView()
	return result, nil
}

// associateInTx содержит общую логику выдачи внутри транзакции
func (as *AssociationService) associateInTx(tx *gorm.DB, assetID, clientID uint, kind string, sub *SubscriptionInfo, userID *uint, createdAt time.Time) (*AssociateResult, error) {
	if kind != models.AssociationKindLease && kind != models.AssociationKindSubscription && kind != models.AssociationKindLoan {
		return nil, NewValidationError("неизвестный тип привязки: %s", kind)
	}

	// Ищем актив
	var asset models.Asset
	if err := tx.First(&asset, assetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("актив %d не найден", assetID)
		}
		return nil, NewStoreError(err, "ошибка поиска актива %d", assetID)
	}

	// Ищем клиента
	var client models.Client
	if err := tx.First(&client, clientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("клиент %d не найден", clientID)
		}
		return nil, NewStoreError(err, "ошибка поиска клиента %d", clientID)
	}

	// Точка контроля инварианта: не более одной активной привязки на актив
	if !asset.IsAvailable() {
		return nil, NewConflictError("актив %s уже привязан к клиенту (статус: %s)", asset.Label(), asset.Status)
	}

	// Для подписки обязательны даты действия
	if kind == models.AssociationKindSubscription {
		if sub == nil || sub.StartDate.IsZero() || sub.EndDate.IsZero() {
			return nil, NewValidationError("для подписки необходимо указать даты начала и окончания")
		}
		if !sub.EndDate.After(sub.StartDate) {
			return nil, NewValidationError("дата окончания подписки должна быть позже даты начала")
		}
	}

	// Создаем привязку с денормализованными полями отображения
	store := as.Store.WithTx(tx)
	assoc := models.Association{
		CreatedAt:     createdAt,
		AssetID:       asset.ID,
		ClientID:      client.ID,
		Kind:          kind,
		EntryDate:     models.Today(),
		ClientName:    client.Name,
		AssetLabel:    asset.Label(),
		AssetKindName: asset.KindDisplayName(),
	}
	if err := store.InsertAssociation(&assoc); err != nil {
		// Конкурентная выдача: оба вызова прошли проверку статуса,
		// частичный уникальный индекс отклонил вторую вставку
		if isUniqueViolation(err) {
			return nil, NewConflictError("актив %s уже привязан к клиенту", asset.Label())
		}
		return nil, err
	}

	// Обновляем статус актива по политике переходов
	newStatus := StatusAfterAssign(kind)
	if err := store.UpdateAssetStatus(asset.ID, newStatus, &client.ID); err != nil {
		return nil, err
	}
	if kind == models.AssociationKindSubscription {
		if err := tx.Model(&models.Asset{}).Where("id = ?", asset.ID).Updates(map[string]interface{}{
			"subscription_start": sub.StartDate,
			"subscription_end":   sub.EndDate,
			"is_expired":         false,
		}).Error; err != nil {
			return nil, NewStoreError(err, "ошибка обновления подписки актива %d", asset.ID)
		}
	}

	as.recordHistory(tx, "association.create", &assoc.ID, &asset.ID, &client.ID, userID, map[string]interface{}{
		"kind":       kind,
		"entry_date": assoc.EntryDate.String(),
	})

	return &AssociateResult{Association: &assoc, NewAssetStatus: newStatus}, nil
}

// End завершает привязку: дата выхода проставляется сегодняшним
// календарным днем, актив возвращается в статус available. Повторное
// завершение уже завершенной привязки не ошибка, а отчетный no-op:
// дата выхода повторно не изменяется
func (as *AssociationService) End(associationID uint, userID *uint) (*EndResult, error) {
	var result *EndResult
	err := as.DB.Transaction(func(tx *gorm.DB) error {
		r, err := as.endInTx(tx, associationID, userID)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.AlreadyEnded {
		as.invalidateView()
	}
	return result, nil
}

// endInTx содержит общую логику завершения внутри транзакции
func (as *AssociationService) endInTx(tx *gorm.DB, associationID uint, userID *uint) (*EndResult, error) {
	store := as.Store.WithTx(tx)
	assoc, err := store.GetAssociation(associationID)
	if err != nil {
		return nil, err
	}

	// Завершение - терминальное состояние: повторный вызов сообщает
	// об успехе без изменений
	if assoc.IsEnded() && !assoc.ExitDate.After(models.Today()) {
		return &EndResult{
			AssociationID: assoc.ID,
			AssetID:       assoc.AssetID,
			AlreadyEnded:  true,
			ExitDate:      assoc.ExitDate,
		}, nil
	}

	// Дата выхода - календарный день, не момент времени
	today := models.Today()
	if _, err := store.UpdateAssociations([]uint{assoc.ID}, map[string]interface{}{"exit_date": today}); err != nil {
		return nil, err
	}

	// Возвращаем актив на склад
	var asset models.Asset
	if err := tx.First(&asset, assoc.AssetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("актив %d не найден", assoc.AssetID)
		}
		return nil, NewStoreError(err, "ошибка поиска актива %d", assoc.AssetID)
	}

	rotationFlagged := RequiresPasswordRotation(asset.Kind, AssetEventReleased)
	if err := store.UpdateAssetStatus(asset.ID, StatusAfterRelease(), nil); err != nil {
		return nil, err
	}
	if rotationFlagged {
		if err := tx.Model(&models.Asset{}).Where("id = ?", asset.ID).
			Update("needs_password_rotation", true).Error; err != nil {
			return nil, NewStoreError(err, "ошибка отметки смены пароля актива %d", asset.ID)
		}
	}

	as.recordHistory(tx, "association.end", &assoc.ID, &asset.ID, &assoc.ClientID, userID, map[string]interface{}{
		"exit_date":         today.String(),
		"password_rotation": rotationFlagged,
	})

	return &EndResult{
		AssociationID:           assoc.ID,
		AssetID:                 asset.ID,
		ExitDate:                &today,
		NewAssetStatus:          StatusAfterRelease(),
		PasswordRotationFlagged: rotationFlagged,
	}, nil
}

// ExtendSubscription продлевает подписку актива: переписывает дату
// окончания и снимает признак истечения
func (as *AssociationService) ExtendSubscription(assetID uint, newEndDate models.CalendarDate, userID *uint) error {
	if newEndDate.IsZero() {
		return NewValidationError("не указана новая дата окончания подписки")
	}

	err := as.DB.Transaction(func(tx *gorm.DB) error {
		var asset models.Asset
		if err := tx.First(&asset, assetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewNotFoundError("актив %d не найден", assetID)
			}
			return NewStoreError(err, "ошибка поиска актива %d", assetID)
		}

		if !asset.HasActiveSubscription() {
			return NewNotFoundError("у актива %s нет активной подписки", asset.Label())
		}

		if asset.SubscriptionStart != nil && !newEndDate.After(*asset.SubscriptionStart) {
			return NewValidationError("новая дата окончания должна быть позже даты начала подписки")
		}

		asset.SubscriptionEnd = &newEndDate
		asset.IsExpired = false
		if err := tx.Save(&asset).Error; err != nil {
			return NewStoreError(err, "ошибка продления подписки актива %d", asset.ID)
		}

		as.recordHistory(tx, "association.extend", nil, &asset.ID, asset.ClientID, userID, map[string]interface{}{
			"new_end_date": newEndDate.String(),
		})
		return nil
	})
	if err != nil {
		return err
	}

	as.invalidateView()
	return nil
}

// ReturnToStock возвращает перечисленные активы на склад, завершая их
// активные привязки. Активы без активной привязки пропускаются молча:
// возврат уже свободного актива - безвредный no-op
func (as *AssociationService) ReturnToStock(assetIDs []uint, userID *uint) ([]EndResult, error) {
	results := make([]EndResult, 0, len(assetIDs))

	for _, assetID := range assetIDs {
		assoc, err := as.Store.GetActiveAssociationByAsset(assetID)
		if err != nil {
			return results, err
		}
		if assoc == nil {
			continue
		}

		result, err := as.End(assoc.ID, userID)
		if err != nil {
			return results, err
		}
		results = append(results, *result)
	}

	return results, nil
}

// recordHistory добавляет запись в историю операций. Ошибка записи
// истории не прерывает основную операцию
func (as *AssociationService) recordHistory(tx *gorm.DB, action string, associationID, assetID, clientID, userID *uint, details map[string]interface{}) {
	detailsJSON := ""
	if details != nil {
		if data, err := json.Marshal(details); err == nil {
			detailsJSON = string(data)
		}
	}

	entry := models.AssociationHistory{
		Action:        action,
		AssociationID: associationID,
		AssetID:       assetID,
		ClientID:      clientID,
		UserID:        userID,
		Details:       detailsJSON,
	}
	if err := tx.Create(&entry).Error; err != nil {
		log.Printf("Ошибка записи истории операции %s: %v", action, err)
	}
}

// invalidateView инвалидирует кэш сгруппированного представления
func (as *AssociationService) invalidateView() {
	if as.Cache == nil {
		return
	}
	if err := as.Cache.InvalidateAssociationsView(); err != nil {
		log.Printf("Ошибка инвалидации кэша представления привязок: %v", err)
	}
}
