package services

import (
	"log"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"backend_telearenda/models"
)

// SubscriptionMonitor периодически проверяет подписки активов и
// проставляет признак истечения. Признак снимается только продлением
type SubscriptionMonitor struct {
	DB       *gorm.DB
	Notifier *NotificationService
	Cache    *CacheService
	cron     *cron.Cron
}

// NewSubscriptionMonitor создает новый экземпляр SubscriptionMonitor
func NewSubscriptionMonitor(db *gorm.DB, notifier *NotificationService, cache *CacheService) *SubscriptionMonitor {
	return &SubscriptionMonitor{
		DB:       db,
		Notifier: notifier,
		Cache:    cache,
		cron:     cron.New(),
	}
}

// Start запускает ежедневную проверку подписок
func (sm *SubscriptionMonitor) Start() error {
	// Каждый день в 00:05 по серверному времени
	if _, err := sm.cron.AddFunc("5 0 * * *", func() {
		if err := sm.CheckExpiredSubscriptions(); err != nil {
			log.Printf("Ошибка проверки подписок: %v", err)
		}
	}); err != nil {
		return err
	}

	sm.cron.Start()
	log.Println("✅ Монитор подписок запущен")
	return nil
}

// Stop останавливает монитор
func (sm *SubscriptionMonitor) Stop() {
	sm.cron.Stop()
	log.Println("Монитор подписок остановлен")
}

// CheckExpiredSubscriptions находит активы с истекшими подписками,
// проставляет признак истечения и отправляет уведомления
func (sm *SubscriptionMonitor) CheckExpiredSubscriptions() error {
	today := models.Today()

	var assets []models.Asset
	if err := sm.DB.Where("status = ? AND is_expired = ? AND subscription_end IS NOT NULL",
		models.AssetStatusSubscribed, false).Find(&assets).Error; err != nil {
		return NewStoreError(err, "ошибка поиска активов с подписками")
	}

	expired := 0
	for _, asset := range assets {
		if !asset.CheckExpired(today) {
			continue
		}

		if err := sm.DB.Model(&models.Asset{}).Where("id = ?", asset.ID).
			Update("is_expired", true).Error; err != nil {
			log.Printf("Ошибка отметки истечения подписки актива %d: %v", asset.ID, err)
			continue
		}
		expired++

		if sm.Notifier != nil {
			sm.Notifier.SendSubscriptionExpiredAlert(&asset)
		}
	}

	if expired == 0 {
		return nil
	}

	log.Printf("Проверка подписок завершена: отмечено истекших %d", expired)

	if sm.Cache != nil {
		if err := sm.Cache.InvalidateAssociationsView(); err != nil {
			log.Printf("Ошибка инвалидации кэша после проверки подписок: %v", err)
		}
	}

	return nil
}
