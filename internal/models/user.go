package models

import "time"

type User struct {
	ID             string     `json:"id" gorm:"primaryKey;size:36"`
	Name           string     `json:"name"`
	Email          string     `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash   string     `json:"-" gorm:"not null"`
	RoleID         int        `json:"role_id" gorm:"not null"`
	Blocked        bool       `json:"blocked"`
	TelegramChatID *int64     `json:"telegram_chat_id,omitempty"`
	DeletedAt      *time.Time `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=120"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}
