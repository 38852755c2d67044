package services

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/akinalp/teamchat/models"
	"github.com/akinalp/teamchat/pkg"
)

func TestTokenService_IssueAndValidate(t *testing.T) {
	svc := NewTokenService("test-secret")

	token, err := svc.IssueAccessToken("u1", "alice", "Alice A.", time.Minute)
	if err != nil {
		t.Fatalf("IssueAccessToken() unexpected error: %v", err)
	}

	claims, err := svc.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken() unexpected error: %v", err)
	}
	if claims.UserID != "u1" || claims.Username != "alice" || claims.Name() != "Alice A." {
		t.Errorf("claims = %+v", claims)
	}
}

func TestTokenService_Rejects(t *testing.T) {
	svc := NewTokenService("test-secret")

	otherSecret, _ := NewTokenService("other").IssueAccessToken("u1", "alice", "", time.Minute)
	expired, _ := svc.IssueAccessToken("u1", "alice", "", -time.Minute)
	noUser, _ := svc.IssueAccessToken("", "alice", "", time.Minute)
	unsigned, _ := jwt.NewWithClaims(jwt.SigningMethodNone, models.TokenClaims{UserID: "u1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", otherSecret},
		{"expired", expired},
		{"missing user id", noUser},
		{"none algorithm", unsigned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.ValidateAccessToken(tt.token); !errors.Is(err, pkg.ErrUnauthorized) {
				t.Errorf("ValidateAccessToken() error = %v, want ErrUnauthorized", err)
			}
		})
	}
}
