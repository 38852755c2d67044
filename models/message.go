package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Message, bir takım sohbet mesajını temsil eder.
// DB'deki "messages" tablosunun Go karşılığı.
//
// ID kalıcı kayıt anında atanır ve global olarak artar: bir takım içinde
// id sırası gönderim sırasıdır. Kaydedilen mesaj bir daha değişmez.
type Message struct {
	ID         int64     `json:"id"`
	TeamID     string    `json:"team_id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Body       string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"` // Server tarafından atanır, UTC
}

// DefaultMaxMessageLength, config verilmediğinde kullanılan rune limiti.
const DefaultMaxMessageLength = 2000

// SendMessageRequest, sendMessage event'inin payload'ı (Client → Server).
//
// SenderName ve Timestamp client'tan gelir ama güvenilmez:
// gönderen her zaman doğrulanmış kullanıcıdır, zaman damgası server'da atanır.
type SendMessageRequest struct {
	TeamID     string `json:"team_id"`
	SenderName string `json:"sender_name,omitempty"`
	Message    string `json:"message"`
	Timestamp  any    `json:"timestamp,omitempty"`
}

// Validate, mesajı trim eder ve geçerliliğini kontrol eder.
// maxLen <= 0 ise DefaultMaxMessageLength kullanılır.
func (r *SendMessageRequest) Validate(maxLen int) error {
	if maxLen <= 0 {
		maxLen = DefaultMaxMessageLength
	}

	r.TeamID = strings.TrimSpace(r.TeamID)
	if r.TeamID == "" {
		return fmt.Errorf("team_id is required")
	}

	r.Message = strings.TrimSpace(r.Message)
	n := utf8.RuneCountInString(r.Message)
	if n < 1 {
		return fmt.Errorf("message content is required")
	}
	if n > maxLen {
		return fmt.Errorf("message content must be at most %d characters", maxLen)
	}
	return nil
}
