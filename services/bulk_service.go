package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"backend_telearenda/models"
)

// BulkService выполняет групповые операции над привязками: завершение
// партии, массовое редактирование, смену типа, мягкое удаление группы.
// Ошибка по одной записи не прерывает пакет: операция проходит до конца
// и возвращает сводный результат. После любого, в том числе частичного,
// завершения кэш сгруппированного представления инвалидируется
type BulkService struct {
	DB           *gorm.DB
	Store        *AssociationStore
	Associations *AssociationService
	Cache        *CacheService
	Notifier     *NotificationService
}

// NewBulkService создает новый экземпляр BulkService
func NewBulkService(db *gorm.DB, associations *AssociationService, cache *CacheService, notifier *NotificationService) *BulkService {
	return &BulkService{
		DB:           db,
		Store:        NewAssociationStore(db),
		Associations: associations,
		Cache:        cache,
		Notifier:     notifier,
	}
}

// BulkProgress ход выполнения групповой операции
type BulkProgress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// ProgressFunc обратный вызов о ходе выполнения между записями
type ProgressFunc func(BulkProgress)

// BulkFailure ошибка по отдельной записи пакета
type BulkFailure struct {
	AssociationID uint   `json:"association_id"`
	Error         string `json:"error"`
}

// BulkResult сводный результат групповой операции
type BulkResult struct {
	OperationID string        `json:"operation_id"`
	Operation   string        `json:"operation"`
	Total       int           `json:"total"`
	Succeeded   int           `json:"succeeded"`
	Failed      int           `json:"failed"`
	Skipped     int           `json:"skipped"`
	Failures    []BulkFailure `json:"failures,omitempty"`
}

// IsPartial проверяет, завершилась ли операция частично
func (r *BulkResult) IsPartial() bool {
	return r.Failed > 0 && r.Succeeded > 0
}

// BulkEditPatch набор изменений для массового редактирования
type BulkEditPatch struct {
	ExitDate     *models.CalendarDate `json:"exit_date"`
	Notes        *string              `json:"notes"`
	WiFiSSID     *string              `json:"wifi_ssid"`
	WiFiPassword *string              `json:"wifi_password"`
	DataCapGB    *int                 `json:"data_cap_gb"`
	MonthlyPrice *decimal.Decimal     `json:"monthly_price"`
}

// IsEmpty проверяет, что изменений нет
func (p *BulkEditPatch) IsEmpty() bool {
	return p.ExitDate == nil && p.Notes == nil && p.WiFiSSID == nil &&
		p.WiFiPassword == nil && p.DataCapGB == nil && p.MonthlyPrice == nil
}

// toUpdates собирает изменения полей привязки для UPDATE по набору ID
func (p *BulkEditPatch) toUpdates() map[string]interface{} {
	updates := map[string]interface{}{}
	if p.ExitDate != nil {
		updates["exit_date"] = *p.ExitDate
	}
	if p.Notes != nil {
		updates["notes"] = *p.Notes
	}
	if p.DataCapGB != nil {
		updates["data_cap_gb"] = *p.DataCapGB
	}
	if p.MonthlyPrice != nil {
		updates["monthly_price"] = *p.MonthlyPrice
	}
	return updates
}

// EndGroup завершает все привязки группы компании, которые еще можно
// завершить: активные и с датой выхода в будущем (досрочное
// прекращение). Группа адресуется временем создания партии и клиентом:
// флаг CanEndGroup считается на том же уровне, и в партии на несколько
// клиентов завершение не задевает чужие привязки.
// Если завершать нечего - NoOpError: интерфейс предлагал действие
// на основании флага CanEndGroup, молчаливый успех скрыл бы рассинхрон
func (bs *BulkService) EndGroup(ctx context.Context, createdAt time.Time, clientID uint, userID *uint, progress ProgressFunc) (*BulkResult, error) {
	members, err := bs.Store.GetGroupAssociations(createdAt, clientID)
	if err != nil {
		return nil, err
	}

	today := models.Today()
	eligible := make([]models.Association, 0, len(members))
	for _, assoc := range members {
		if assoc.CanBeEnded(today) {
			eligible = append(eligible, assoc)
		}
	}

	if len(eligible) == 0 {
		return nil, NewNoOpError("в группе нет привязок, которые можно завершить")
	}

	result := bs.newResult("end_group", len(eligible))
	for i, assoc := range eligible {
		if err := ctx.Err(); err != nil {
			bs.cancelRemainder(result, eligible[i:], err)
			break
		}

		if _, err := bs.Associations.End(assoc.ID, userID); err != nil {
			result.Failed++
			result.Failures = append(result.Failures, BulkFailure{AssociationID: assoc.ID, Error: err.Error()})
			log.Printf("Ошибка завершения привязки %d в группе: %v", assoc.ID, err)
		} else {
			result.Succeeded++
		}

		reportProgress(progress, i+1, len(eligible))
	}

	bs.finish(result)
	return result, nil
}

// BulkEdit применяет один и тот же набор изменений ко всем перечисленным
// привязкам. Несуществующие ID попадают в список ошибок, не прерывая
// обработку остальных
func (bs *BulkService) BulkEdit(ctx context.Context, ids []uint, patch BulkEditPatch, userID *uint, progress ProgressFunc) (*BulkResult, error) {
	if len(ids) == 0 {
		return nil, NewNoOpError("не указаны привязки для редактирования")
	}
	if patch.IsEmpty() {
		return nil, NewValidationError("не указаны изменения")
	}

	// Записи разрешаются заранее одним запросом, порядок обработки
	// совпадает с порядком перечисления ID
	byID, err := bs.resolveByIDs(ids)
	if err != nil {
		return nil, err
	}

	updates := patch.toUpdates()
	result := bs.newResult("bulk_edit", len(ids))

	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			bs.cancelRemainderIDs(result, ids[i:], err)
			break
		}

		assoc, exists := byID[id]
		if !exists {
			result.Failed++
			result.Failures = append(result.Failures, BulkFailure{AssociationID: id, Error: NewNotFoundError("привязка %d не найдена", id).Error()})
			reportProgress(progress, i+1, len(ids))
			continue
		}

		if err := bs.editOne(assoc, patch, updates, userID); err != nil {
			result.Failed++
			result.Failures = append(result.Failures, BulkFailure{AssociationID: id, Error: err.Error()})
			log.Printf("Ошибка массового редактирования привязки %d: %v", id, err)
		} else {
			result.Succeeded++
		}

		reportProgress(progress, i+1, len(ids))
	}

	bs.finish(result)
	return result, nil
}

// resolveByIDs выбирает привязки пакета и раскладывает их по ID.
// Отсутствующие ID фиксируются вызывающей стороной как ошибки записей
func (bs *BulkService) resolveByIDs(ids []uint) (map[uint]*models.Association, error) {
	rows, err := bs.Store.GetAssociationsByIDs(ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]*models.Association, len(rows))
	for i := range rows {
		byID[rows[i].ID] = &rows[i]
	}
	return byID, nil
}

// editOne редактирует одну привязку пакета
func (bs *BulkService) editOne(assoc *models.Association, patch BulkEditPatch, updates map[string]interface{}, userID *uint) error {
	if patch.ExitDate != nil && patch.ExitDate.Before(assoc.EntryDate) {
		return NewValidationError("дата выхода не может быть раньше даты входа")
	}

	if len(updates) > 0 {
		if _, err := bs.Store.UpdateAssociations([]uint{assoc.ID}, updates); err != nil {
			return err
		}
	}

	// Сетевые реквизиты хранятся на активе
	if patch.WiFiSSID != nil || patch.WiFiPassword != nil {
		assetUpdates := map[string]interface{}{}
		if patch.WiFiSSID != nil {
			assetUpdates["wifi_ssid"] = *patch.WiFiSSID
		}
		if patch.WiFiPassword != nil {
			assetUpdates["wifi_password"] = *patch.WiFiPassword
			assetUpdates["needs_password_rotation"] = false
		}
		if err := bs.DB.Model(&models.Asset{}).Where("id = ?", assoc.AssetID).Updates(assetUpdates).Error; err != nil {
			return NewStoreError(err, "ошибка обновления реквизитов актива %d", assoc.AssetID)
		}
	}

	bs.Associations.recordHistory(bs.DB, "association.bulk_edit", &assoc.ID, &assoc.AssetID, &assoc.ClientID, userID, nil)
	return nil
}

// ChangeAssociationType меняет тип всем перечисленным привязкам.
// Строки, уже имеющие целевой тип, пропускаются и учитываются отдельно
func (bs *BulkService) ChangeAssociationType(ctx context.Context, ids []uint, newKind string, userID *uint, progress ProgressFunc) (*BulkResult, error) {
	if newKind != models.AssociationKindLease && newKind != models.AssociationKindSubscription && newKind != models.AssociationKindLoan {
		return nil, NewValidationError("неизвестный тип привязки: %s", newKind)
	}
	if len(ids) == 0 {
		return nil, NewNoOpError("не указаны привязки для смены типа")
	}

	byID, err := bs.resolveByIDs(ids)
	if err != nil {
		return nil, err
	}

	result := bs.newResult("change_kind", len(ids))
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			bs.cancelRemainderIDs(result, ids[i:], err)
			break
		}

		assoc, exists := byID[id]
		if !exists {
			result.Failed++
			result.Failures = append(result.Failures, BulkFailure{AssociationID: id, Error: NewNotFoundError("привязка %d не найдена", id).Error()})
			reportProgress(progress, i+1, len(ids))
			continue
		}

		if assoc.Kind == newKind {
			result.Skipped++
			reportProgress(progress, i+1, len(ids))
			continue
		}

		if _, err := bs.Store.UpdateAssociations([]uint{id}, map[string]interface{}{"kind": newKind}); err != nil {
			result.Failed++
			result.Failures = append(result.Failures, BulkFailure{AssociationID: id, Error: err.Error()})
		} else {
			result.Succeeded++
			bs.Associations.recordHistory(bs.DB, "association.change_kind", &assoc.ID, &assoc.AssetID, &assoc.ClientID, userID, map[string]interface{}{
				"old_kind": assoc.Kind,
				"new_kind": newKind,
			})
		}

		reportProgress(progress, i+1, len(ids))
	}

	bs.finish(result)
	return result, nil
}

// SoftDeleteGroup мягко удаляет перечисленные привязки: строки получают
// отметку удаления и исключаются из всех последующих выборок. Статус
// активов не меняется: удаляемая привязка считается уже завершенной
func (bs *BulkService) SoftDeleteGroup(ctx context.Context, ids []uint, userID *uint, progress ProgressFunc) (*BulkResult, error) {
	if len(ids) == 0 {
		return nil, NewNoOpError("не указаны привязки для удаления")
	}

	result := bs.newResult("soft_delete", len(ids))
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			bs.cancelRemainderIDs(result, ids[i:], err)
			break
		}

		deleted, err := bs.Store.SoftDeleteAssociations([]uint{id})
		switch {
		case err != nil:
			result.Failed++
			result.Failures = append(result.Failures, BulkFailure{AssociationID: id, Error: err.Error()})
		case deleted == 0:
			result.Failed++
			result.Failures = append(result.Failures, BulkFailure{AssociationID: id, Error: "привязка не найдена"})
		default:
			result.Succeeded++
			bs.Associations.recordHistory(bs.DB, "association.soft_delete", &id, nil, nil, userID, nil)
		}

		reportProgress(progress, i+1, len(ids))
	}

	bs.finish(result)
	return result, nil
}

// newResult создает заготовку сводного результата
func (bs *BulkService) newResult(operation string, total int) *BulkResult {
	return &BulkResult{
		OperationID: uuid.NewString(),
		Operation:   operation,
		Total:       total,
	}
}

// cancelRemainder помечает оставшиеся привязки как прерванные
func (bs *BulkService) cancelRemainder(result *BulkResult, remaining []models.Association, cause error) {
	cancelErr := NewCancelledError(cause)
	for _, assoc := range remaining {
		result.Failed++
		result.Failures = append(result.Failures, BulkFailure{AssociationID: assoc.ID, Error: cancelErr.Error()})
	}
}

// cancelRemainderIDs помечает оставшиеся ID как прерванные
func (bs *BulkService) cancelRemainderIDs(result *BulkResult, remaining []uint, cause error) {
	cancelErr := NewCancelledError(cause)
	for _, id := range remaining {
		result.Failed++
		result.Failures = append(result.Failures, BulkFailure{AssociationID: id, Error: cancelErr.Error()})
	}
}

// finish инвалидирует кэш и отправляет уведомление об итогах операции
func (bs *BulkService) finish(result *BulkResult) {
	if bs.Cache != nil {
		if err := bs.Cache.InvalidateAssociationsView(); err != nil {
			log.Printf("Ошибка инвалидации кэша после групповой операции %s: %v", result.OperationID, err)
		}
	}

	if bs.Notifier != nil {
		go bs.Notifier.SendBulkOperationResult(result)
	}
}

// reportProgress сообщает о ходе выполнения, если задан обратный вызов
func reportProgress(progress ProgressFunc, current, total int) {
	if progress != nil {
		progress(BulkProgress{Current: current, Total: total})
	}
}
