package models

import (
	"time"
)

// NotificationSettings представляет настройки уведомлений системы
type NotificationSettings struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Telegram
	TelegramEnabled  bool   `json:"telegram_enabled" gorm:"default:false"`       // Включен ли Telegram
	TelegramBotToken string `json:"telegram_bot_token" gorm:"type:varchar(500)"` // Токен бота
	TelegramChatID   string `json:"telegram_chat_id" gorm:"type:varchar(50)"`    // Чат для служебных уведомлений

	// Какие события отправлять
	NotifyBulkOperations       bool `json:"notify_bulk_operations" gorm:"default:true"`
	NotifyExpiredSubscriptions bool `json:"notify_expired_subscriptions" gorm:"default:true"`
}

// TableName задает имя таблицы для модели NotificationSettings
func (NotificationSettings) TableName() string {
	return "notification_settings"
}

// NotificationLog представляет запись об отправленном уведомлении
type NotificationLog struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`

	Channel   string `json:"channel" gorm:"not null;type:varchar(20)"` // telegram
	Type      string `json:"type" gorm:"not null;type:varchar(50)"`    // bulk_operation, subscription_expired
	Recipient string `json:"recipient" gorm:"type:varchar(100)"`
	Message   string `json:"message" gorm:"type:text"`
	Status    string `json:"status" gorm:"default:'sent';type:varchar(20)"` // sent, failed
	ErrorMsg  string `json:"error_message" gorm:"type:varchar(500)"`
}

// TableName задает имя таблицы для модели NotificationLog
func (NotificationLog) TableName() string {
	return "notification_log"
}
