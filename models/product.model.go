package models

import (
	"time"

	uuid "github.com/satori/go.uuid"
)

// Модель товара
type Product struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primary_key" json:"id"`
	SellerID      uuid.UUID `gorm:"type:uuid;not null;index" json:"seller_id"` // Продавец
	Title         string    `gorm:"type:varchar(255);not null" json:"title"`
	Description   string    `gorm:"type:text" json:"description"`
	Photo         string    `gorm:"type:varchar(500)" json:"photo"` // file_id либо URL
	Price         float64   `gorm:"not null" json:"price"`          // Цена за единицу
	Stock         int       `gorm:"not null;default:0" json:"stock"`
	HasDelivery   bool      `gorm:"default:false" json:"has_delivery"`
	DeliveryPrice float64   `gorm:"default:0" json:"delivery_price"`
	OrderCount    int       `gorm:"default:0" json:"order_count"` // Сколько единиц заказано за все время
	Approved      bool      `gorm:"default:false" json:"approved"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
