package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Типы привязок актив-клиент
const (
	AssociationKindLease        = "lease"        // Аренда
	AssociationKindSubscription = "subscription" // Подписка
	AssociationKindLoan         = "loan"         // Временное пользование
)

// Association представляет привязку актива к клиенту на период времени.
// Инвариант: у одного актива в любой момент не более одной привязки
// с незаполненной датой выхода.
type Association struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at" gorm:"index"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	// Связи
	AssetID  uint    `json:"asset_id" gorm:"not null;index"`
	Asset    *Asset  `json:"asset,omitempty" gorm:"foreignKey:AssetID"`
	ClientID uint    `json:"client_id" gorm:"not null;index"`
	Client   *Client `json:"client,omitempty" gorm:"foreignKey:ClientID"`

	// Тип привязки
	Kind string `json:"kind" gorm:"not null;type:varchar(20);index"` // lease, subscription, loan

	// Период действия. Дата выхода NULL означает активную привязку
	EntryDate CalendarDate  `json:"entry_date" gorm:"not null;type:varchar(10)"`
	ExitDate  *CalendarDate `json:"exit_date" gorm:"type:varchar(10);index"`

	// Коммерческие условия
	MonthlyPrice decimal.Decimal `json:"monthly_price" gorm:"type:decimal(10,2)"`
	DataCapGB    int             `json:"data_cap_gb"` // Лимит трафика, ГБ (0 — безлимит)

	Notes string `json:"notes" gorm:"type:text"`

	// Денормализованные поля для отображения и поиска.
	// Только проекция: логика группировки опирается на client_id
	ClientName    string `json:"client_name" gorm:"type:varchar(200)"`
	AssetLabel    string `json:"asset_label" gorm:"type:varchar(100)"`
	AssetKindName string `json:"asset_kind_name" gorm:"type:varchar(50)"`
}

// TableName задает имя таблицы для модели Association
func (Association) TableName() string {
	return "associations"
}

// IsActive проверяет, активна ли привязка (дата выхода не задана)
func (a *Association) IsActive() bool {
	return a.ExitDate == nil
}

// IsEnded проверяет, завершена ли привязка
func (a *Association) IsEnded() bool {
	return a.ExitDate != nil
}

// CanBeEnded проверяет, можно ли завершить привязку на указанную дату.
// Привязка с датой выхода в будущем тоже может быть завершена:
// это досрочное прекращение, дата выхода переносится на сегодня.
func (a *Association) CanBeEnded(today CalendarDate) bool {
	return a.ExitDate == nil || a.ExitDate.After(today)
}

// KindDisplayName возвращает читаемое название типа привязки
func (a *Association) KindDisplayName() string {
	kindMap := map[string]string{
		AssociationKindLease:        "Аренда",
		AssociationKindSubscription: "Подписка",
		AssociationKindLoan:         "Пользование",
	}
	if displayName, exists := kindMap[a.Kind]; exists {
		return displayName
	}
	return a.Kind
}

// GroupClientName возвращает имя клиента для сортировки групп,
// с подстановкой идентификатора при пустом названии
func (a *Association) GroupClientName() string {
	if a.ClientName != "" {
		return a.ClientName
	}
	return ClientFallbackName(a.ClientID)
}

// AssociationHistory представляет запись истории операций с привязками
type AssociationHistory struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`

	// Действие: association.create, association.end, association.extend,
	// association.bulk_edit, association.change_kind, association.soft_delete
	Action string `json:"action" gorm:"not null;type:varchar(50);index"`

	AssociationID *uint `json:"association_id" gorm:"index"`
	AssetID       *uint `json:"asset_id" gorm:"index"`
	ClientID      *uint `json:"client_id" gorm:"index"`
	UserID        *uint `json:"user_id" gorm:"index"`

	Details string `json:"details" gorm:"type:text"` // Дополнительные данные в JSON
}

// TableName задает имя таблицы для модели AssociationHistory
func (AssociationHistory) TableName() string {
	return "association_history"
}
