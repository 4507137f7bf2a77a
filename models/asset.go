package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Типы активов
const (
	AssetKindChip      = "chip"      // SIM-чип
	AssetKindEquipment = "equipment" // Оборудование (роутер)
)

// Статусы активов
const (
	AssetStatusAvailable  = "available"  // Свободен, может быть выдан клиенту
	AssetStatusLeased     = "leased"     // Выдан в аренду
	AssetStatusSubscribed = "subscribed" // Выдан по подписке
	AssetStatusLoaned     = "loaned"     // Выдан во временное пользование
	AssetStatusInactive   = "inactive"   // Выведен из оборота
)

// Asset представляет физический актив: роутер или SIM-чип
type Asset struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	// Основные характеристики
	Kind         string `json:"kind" gorm:"not null;type:varchar(20);index"` // chip, equipment
	Manufacturer string `json:"manufacturer" gorm:"type:varchar(100)"`       // Производитель

	// Идентификаторы оборудования
	Model        string `json:"model" gorm:"type:varchar(100)"`                     // Модель роутера
	SerialNumber string `json:"serial_number" gorm:"uniqueIndex;type:varchar(100)"` // Серийный номер

	// Идентификаторы SIM-чипа
	ICCID      string `json:"iccid" gorm:"column:iccid;uniqueIndex;type:varchar(30)"` // ICCID чипа
	LineNumber string `json:"line_number" gorm:"type:varchar(20)"`       // Номер линии

	// Статус и текущий клиент. Инвариант: status = available <=> client_id IS NULL
	Status   string  `json:"status" gorm:"default:'available';type:varchar(20);index"`
	ClientID *uint   `json:"client_id" gorm:"index"`
	Client   *Client `json:"client,omitempty" gorm:"foreignKey:ClientID"`

	// Сетевые реквизиты (для оборудования)
	WiFiSSID     string `json:"wifi_ssid" gorm:"column:wifi_ssid;type:varchar(100)"`
	WiFiPassword string `json:"wifi_password" gorm:"column:wifi_password;type:varchar(100)"`
	// Пароль считается скомпрометированным после возврата оборудования
	// и должен быть сменен до следующей выдачи
	NeedsPasswordRotation bool `json:"needs_password_rotation" gorm:"default:false"`

	// Данные подписки (заполняются при выдаче по подписке)
	SubscriptionStart *CalendarDate `json:"subscription_start" gorm:"type:varchar(10)"`
	SubscriptionEnd   *CalendarDate `json:"subscription_end" gorm:"type:varchar(10)"`
	IsExpired         bool          `json:"is_expired" gorm:"default:false"`

	// Финансовая информация
	PurchasePrice decimal.Decimal `json:"purchase_price" gorm:"type:decimal(10,2)"`
	PurchaseDate  *time.Time      `json:"purchase_date"`

	Notes string `json:"notes" gorm:"type:text"`

	// Связи
	Associations []Association `json:"associations,omitempty" gorm:"foreignKey:AssetID"`
}

// TableName задает имя таблицы для модели Asset
func (Asset) TableName() string {
	return "assets"
}

// IsAvailable проверяет, свободен ли актив для выдачи клиенту
func (a *Asset) IsAvailable() bool {
	return a.Status == AssetStatusAvailable
}

// Label возвращает отображаемый идентификатор актива
func (a *Asset) Label() string {
	if a.Kind == AssetKindChip {
		if a.LineNumber != "" {
			return a.LineNumber
		}
		return a.ICCID
	}
	if a.SerialNumber != "" {
		return a.SerialNumber
	}
	return a.Model
}

// KindDisplayName возвращает читаемое название типа актива
func (a *Asset) KindDisplayName() string {
	kindMap := map[string]string{
		AssetKindChip:      "SIM-чип",
		AssetKindEquipment: "Оборудование",
	}
	if displayName, exists := kindMap[a.Kind]; exists {
		return displayName
	}
	return a.Kind
}

// HasActiveSubscription проверяет, действует ли подписка на актив
func (a *Asset) HasActiveSubscription() bool {
	return a.Status == AssetStatusSubscribed && a.SubscriptionEnd != nil
}

// CheckExpired вычисляет признак истечения подписки на указанную дату
func (a *Asset) CheckExpired(today CalendarDate) bool {
	if a.SubscriptionEnd == nil {
		return false
	}
	// Подписка истекла, если текущая дата >= даты окончания
	return !today.Before(*a.SubscriptionEnd)
}
