package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/akinalp/teamchat/models"
	"github.com/akinalp/teamchat/pkg"
)

// TokenService, access token doğrulama.
//
// Token'lar kimlik sisteminde aynı secret ile imzalanır. IssueAccessToken
// development ve test araçları içindir.
type TokenService interface {
	ValidateAccessToken(tokenString string) (*models.TokenClaims, error)
	IssueAccessToken(userID, username, displayName string, ttl time.Duration) (string, error)
}

type tokenService struct {
	jwtSecret []byte
}

// NewTokenService, constructor.
func NewTokenService(jwtSecret string) TokenService {
	return &tokenService{jwtSecret: []byte(jwtSecret)}
}

// ValidateAccessToken, JWT access token'ı doğrular ve claims'i döner.
// Sadece HMAC imzaları kabul edilir; user_id zorunludur.
func (s *tokenService) ValidateAccessToken(tokenString string) (*models.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: invalid token", pkg.ErrUnauthorized)
	}

	claims, ok := token.Claims.(*models.TokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token claims", pkg.ErrUnauthorized)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: token has no user_id", pkg.ErrUnauthorized)
	}

	return claims, nil
}

func (s *tokenService) IssueAccessToken(userID, username, displayName string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := models.TokenClaims{
		UserID:      userID,
		Username:    username,
		DisplayName: displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   userID,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}
