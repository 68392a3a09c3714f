package models

import (
	"time"

	uuid "github.com/satori/go.uuid"
)

// Модель пользователя. Покупатели и продавцы живут в одной таблице,
// продавец отличается флагом Seller.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primary_key"`
	Name      string    `gorm:"type:varchar(255);not null"`
	Phone     string    `gorm:"type:varchar(20);uniqueIndex;null"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;null"`
	Password  string    `gorm:"type:varchar(255);null"`
	Address   string    `gorm:"type:varchar(500);null"`
	Seller    bool      `gorm:"default:false"` // Является ли пользователь продавцом
	Admin     bool      `gorm:"default:false"`
	TgChatID  int64     `gorm:"index;default:0"` // Привязанный Telegram-чат (0 = не привязан)
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// UserResponse - то, что кладем в c.Locals("user") после авторизации
type UserResponse struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Phone    string    `json:"phone"`
	Email    string    `json:"email"`
	Address  string    `json:"address"`
	Seller   bool      `json:"seller"`
	Admin    bool      `json:"admin"`
	TgChatID int64     `json:"tg_chat_id"`
}

func FilterUserRecord(user *User) UserResponse {
	return UserResponse{
		ID:       user.ID,
		Name:     user.Name,
		Phone:    user.Phone,
		Email:    user.Email,
		Address:  user.Address,
		Seller:   user.Seller,
		Admin:    user.Admin,
		TgChatID: user.TgChatID,
	}
}
