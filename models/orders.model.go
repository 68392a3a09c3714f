package models

import (
	"time"

	uuid "github.com/satori/go.uuid"
)

// Статусы заказа
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusCompleted  = "completed"
	OrderStatusCancelled  = "cancelled"
)

// Модель заказа. Три nullable-флага отражают ход сделки:
// IsAgree - решение продавца, IsClientWent - покупатель пришел за товаром,
// IsClientClaimed - продавец подтвердил передачу. nil = решение еще не принято.
type Order struct {
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primary_key" json:"id"`
	UserID   uuid.UUID `gorm:"type:uuid;null;index" json:"user_id"`       // Заказчик (нулевой UUID для анонимных заказов из бота)
	SellerID uuid.UUID `gorm:"type:uuid;not null;index" json:"seller_id"` // Продавец

	ProductID uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`
	Product   Product   `gorm:"foreignKey:ProductID" json:"product"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	Total     float64   `gorm:"not null" json:"total"` // Цена * количество (+ доставка)

	// Контактные данные покупателя: из профиля либо из диалога с ботом
	FullName string `gorm:"type:varchar(255);not null" json:"full_name"`
	Phone    string `gorm:"type:varchar(20);not null" json:"phone"`
	Address  string `gorm:"type:varchar(500);not null" json:"address"`

	Status          string `gorm:"type:varchar(50);default:'pending';index" json:"status"`
	IsAgree         *bool  `gorm:"null" json:"is_agree"`
	IsClientWent    *bool  `gorm:"null" json:"is_client_went"`
	IsClientClaimed *bool  `gorm:"null" json:"is_client_claimed"`

	PickupAddress string `gorm:"type:varchar(500)" json:"pickup_address"` // Задает продавец при подтверждении
	SellerNotes   string `gorm:"type:text" json:"seller_notes"`
	BuyerNotes    string `gorm:"type:text" json:"buyer_notes"`

	// Токен вида "tg:<chat_id>" для заказов без аккаунта;
	// по нему возвращаем уведомления о смене статуса
	TgSession string `gorm:"type:varchar(100);index" json:"tg_session"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
