package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Client представляет клиента (компанию), которому выдаются активы
type Client struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	// Основная информация
	Name          string `json:"name" gorm:"not null;type:varchar(200);index"` // Название компании
	ContactPerson string `json:"contact_person" gorm:"type:varchar(100)"`      // Контактное лицо
	Phone         string `json:"phone" gorm:"type:varchar(20)"`
	Email         string `json:"email" gorm:"type:varchar(100)"`
	Address       string `json:"address" gorm:"type:text"`

	// Статус
	IsActive bool `json:"is_active" gorm:"default:true"`

	Notes string `json:"notes" gorm:"type:text"`

	// Связи
	Assets       []Asset       `json:"assets,omitempty" gorm:"foreignKey:ClientID"`
	Associations []Association `json:"associations,omitempty" gorm:"foreignKey:ClientID"`
}

// TableName задает имя таблицы для модели Client
func (Client) TableName() string {
	return "clients"
}

// DisplayName возвращает отображаемое имя клиента.
// Если название не заполнено, группировка не должна терять строку,
// поэтому возвращается идентификатор.
func (c *Client) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return ClientFallbackName(c.ID)
}

// ClientFallbackName возвращает подстановочное имя клиента по идентификатору
func ClientFallbackName(id uint) string {
	return fmt.Sprintf("Клиент #%d", id)
}
