// Package middleware, HTTP request pipeline'ına eklenen ara katmanlar.
//
// Her middleware func(next http.Handler) http.Handler şeklindedir;
// hata varsa next'i çağırmaz ve request orada biter.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/akinalp/teamchat/handlers"
	"github.com/akinalp/teamchat/pkg"
	"github.com/akinalp/teamchat/ws"
)

// AuthMiddleware, JWT token doğrulama middleware'ı.
type AuthMiddleware struct {
	tokens ws.TokenValidator
}

// NewAuthMiddleware, constructor.
func NewAuthMiddleware(tokens ws.TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Require, "Authorization: Bearer <token>" zorunlu kılar.
// Geçerliyse claims context'e eklenir, değilse 401.
func (m *AuthMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "authorization header required")
			return
		}

		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "invalid authorization format, use: Bearer <token>")
			return
		}

		claims, err := m.tokens.ValidateAccessToken(tokenString)
		if err != nil {
			pkg.Error(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), handlers.ClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
