package services

import (
	"fmt"
	"log"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"gorm.io/gorm"

	"backend_telearenda/models"
)

// TelegramClient представляет клиент для работы с Telegram Bot API
type TelegramClient struct {
	bot      *tgbotapi.BotAPI
	db       *gorm.DB
	settings *models.NotificationSettings
}

// NewTelegramClient создает новый экземпляр Telegram клиента
func NewTelegramClient(db *gorm.DB) (*TelegramClient, error) {
	// Получаем настройки уведомлений
	var settings models.NotificationSettings
	if err := db.First(&settings).Error; err != nil {
		return nil, fmt.Errorf("настройки уведомлений не найдены: %w", err)
	}

	if !settings.TelegramEnabled || settings.TelegramBotToken == "" {
		return nil, fmt.Errorf("Telegram не настроен")
	}

	// Создаем Bot API клиент
	bot, err := tgbotapi.NewBotAPI(settings.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram бота: %w", err)
	}

	// В продакшене отключаем debug
	bot.Debug = false

	log.Printf("✅ Telegram бот авторизован: %s", bot.Self.UserName)

	return &TelegramClient{
		bot:      bot,
		db:       db,
		settings: &settings,
	}, nil
}

// SendMessage отправляет сообщение в чат
func (tc *TelegramClient) SendMessage(chatID string, message string) error {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("неверный chat ID: %s", chatID)
	}

	msg := tgbotapi.NewMessage(chatIDInt, message)
	msg.ParseMode = tgbotapi.ModeHTML

	if _, err := tc.bot.Send(msg); err != nil {
		return fmt.Errorf("ошибка отправки сообщения в Telegram: %w", err)
	}

	return nil
}

// SendServiceMessage отправляет сообщение в служебный чат из настроек
func (tc *TelegramClient) SendServiceMessage(message string) error {
	if tc.settings.TelegramChatID == "" {
		return fmt.Errorf("служебный чат Telegram не настроен")
	}
	return tc.SendMessage(tc.settings.TelegramChatID, message)
}

// IsHealthy проверяет работоспособность клиента
func (tc *TelegramClient) IsHealthy() bool {
	if tc.bot == nil {
		return false
	}
	_, err := tc.bot.GetMe()
	return err == nil
}
