package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims, access token'ın payload'ı.
//
// Token kimlik sisteminde üretilir; bu servis sadece imzayı doğrular
// ve claim'lerden kullanıcıyı tanır. DisplayName boşsa Username kullanılır.
type TokenClaims struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	jwt.RegisteredClaims
}

// Name, sohbette görünen gönderen adını döner.
func (c *TokenClaims) Name() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.Username
}
