package model

import "time"

type User struct {
	ID             int64     `json:"id"`
	FullName       string    `json:"full_name"`
	TelegramChatID *int64    `json:"telegram_chat_id,omitempty"` // notification channel, optional
	IsTeacher      bool      `json:"is_teacher"`
	CreatedAt      time.Time `json:"created_at"`
}
