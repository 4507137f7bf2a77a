package services

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"backend_telearenda/models"
)

// NotificationService отправляет служебные уведомления об итогах
// групповых операций и истекших подписках. Отправка всегда best-effort:
// ошибки логируются и никогда не влияют на результат операции
type NotificationService struct {
	DB       *gorm.DB
	telegram *TelegramClient
	cache    *CacheService
}

// NewNotificationService создает новый экземпляр NotificationService
func NewNotificationService(db *gorm.DB, cache *CacheService) *NotificationService {
	return &NotificationService{
		DB:    db,
		cache: cache,
	}
}

// getTelegramClient получает или создает Telegram клиент
func (s *NotificationService) getTelegramClient() (*TelegramClient, error) {
	if s.telegram != nil && s.telegram.IsHealthy() {
		return s.telegram, nil
	}

	client, err := NewTelegramClient(s.DB)
	if err != nil {
		return nil, err
	}

	s.telegram = client
	return client, nil
}

// SendBulkOperationResult отправляет итоги групповой операции
func (s *NotificationService) SendBulkOperationResult(result *BulkResult) {
	var settings models.NotificationSettings
	if err := s.DB.First(&settings).Error; err != nil || !settings.NotifyBulkOperations {
		return
	}

	operationNames := map[string]string{
		"end_group":   "Завершение группы",
		"bulk_edit":   "Массовое редактирование",
		"change_kind": "Смена типа привязки",
		"soft_delete": "Удаление группы",
	}
	name, exists := operationNames[result.Operation]
	if !exists {
		name = result.Operation
	}

	message := fmt.Sprintf("<b>%s</b>\nОперация: %s\nУспешно: %d из %d",
		name, result.OperationID, result.Succeeded, result.Total)
	if result.Skipped > 0 {
		message += fmt.Sprintf("\nПропущено: %d", result.Skipped)
	}
	if result.Failed > 0 {
		message += fmt.Sprintf("\n⚠️ Ошибок: %d", result.Failed)
	}

	s.sendServiceMessage("bulk_operation", message)
}

// SendSubscriptionExpiredAlert отправляет уведомление об истекшей подписке
func (s *NotificationService) SendSubscriptionExpiredAlert(asset *models.Asset) {
	var settings models.NotificationSettings
	if err := s.DB.First(&settings).Error; err != nil || !settings.NotifyExpiredSubscriptions {
		return
	}

	message := fmt.Sprintf("⚠️ <b>Истекла подписка</b>\nАктив: %s (%s)\nДата окончания: %s",
		asset.Label(), asset.KindDisplayName(), asset.SubscriptionEnd.String())

	s.sendServiceMessage("subscription_expired", message)
}

// sendServiceMessage отправляет сообщение в служебный чат и журналирует
// результат отправки
func (s *NotificationService) sendServiceMessage(notificationType, message string) {
	entry := models.NotificationLog{
		Channel: "telegram",
		Type:    notificationType,
		Message: message,
	}

	client, err := s.getTelegramClient()
	if err == nil {
		err = client.SendServiceMessage(message)
		entry.Recipient = client.settings.TelegramChatID
	}

	if err != nil {
		entry.Status = "failed"
		entry.ErrorMsg = err.Error()
		log.Printf("Ошибка отправки уведомления %s: %v", notificationType, err)
	} else {
		entry.Status = "sent"
	}

	if err := s.DB.Create(&entry).Error; err != nil {
		log.Printf("Ошибка записи журнала уведомлений: %v", err)
	}
}
