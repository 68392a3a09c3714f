package models

import (
	"encoding/json"
	"time"

	"github.com/jackc/pgtype"
	uuid "github.com/satori/go.uuid"
)

// Типы уведомлений для администраторов
const (
	NotificationNewOrder          = "new_order"
	NotificationSupportMessage    = "support_message"
	NotificationSellerApplication = "seller_application"
	NotificationProductApproval   = "product_approval"
)

// Статусы уведомлений
const (
	NotificationStatusPending   = "pending"
	NotificationStatusResponded = "responded"
	NotificationStatusRejected  = "rejected"
)

// AdminNotification - событие, требующее внимания администратора.
// Data хранит типизированный payload (см. ниже) в jsonb.
type AdminNotification struct {
	ID        uuid.UUID    `gorm:"type:uuid;default:uuid_generate_v4();primary_key" json:"id"`
	Type      string       `gorm:"type:varchar(50);not null;index" json:"type"`
	Status    string       `gorm:"type:varchar(50);default:'pending';index" json:"status"`
	Content   string       `gorm:"type:text" json:"content"` // Текст обращения / сопроводительный текст
	Data      pgtype.JSONB `gorm:"type:jsonb" json:"data"`
	Response  string       `gorm:"type:text" json:"response"` // Ответ администратора
	CreatedAt time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

// Payload-типы по одному на вид уведомления, вместо нетипизированного мешка.

type NewOrderData struct {
	OrderID uuid.UUID `json:"order_id"`
}

type SupportMessageData struct {
	ChatID   int64     `json:"chat_id"` // Куда отправлять ответ администратора
	UserID   uuid.UUID `json:"user_id,omitempty"`
	Username string    `json:"username,omitempty"`
}

type SellerApplicationData struct {
	UserID uuid.UUID `json:"user_id"`
	ChatID int64     `json:"chat_id,omitempty"`
}

type ProductApprovalData struct {
	ProductID uuid.UUID `json:"product_id"`
	SellerID  uuid.UUID `json:"seller_id"`
}

// SetData сериализует payload в jsonb-колонку
func (n *AdminNotification) SetData(payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return n.Data.Set(raw)
}

// DecodeData разбирает jsonb-колонку в переданный payload-тип
func (n *AdminNotification) DecodeData(dest any) error {
	var raw []byte
	if err := n.Data.AssignTo(&raw); err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
