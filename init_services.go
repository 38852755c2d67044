// Package main. Service katmanı başlatma.
//
// Sıralama: membership → message → chat (chat ikisine ve hub'a bağımlı).
package main

import (
	"github.com/akinalp/teamchat/config"
	"github.com/akinalp/teamchat/pkg/ratelimit"
	"github.com/akinalp/teamchat/services"
	"github.com/akinalp/teamchat/ws"
)

// Services, service instance'larını tutan container struct.
type Services struct {
	Token      services.TokenService
	Membership services.MembershipService
	Message    services.MessageService
	Chat       services.ChatService
}

// RateLimiters, in-memory limiter'lar. Shutdown'da Stop edilir.
type RateLimiters struct {
	Message *ratelimit.MessageRateLimiter
	Connect *ratelimit.ConnectRateLimiter
}

func initRateLimiters(cfg *config.Config) *RateLimiters {
	return &RateLimiters{
		Message: ratelimit.NewMessageRateLimiter(cfg.RateLimit.MessageMax, cfg.RateLimit.MessageWindow, cfg.RateLimit.MessageCooldown),
		Connect: ratelimit.NewConnectRateLimiter(cfg.RateLimit.ConnectMax, cfg.RateLimit.ConnectWindow),
	}
}

func (l *RateLimiters) Stop() {
	l.Message.Stop()
	l.Connect.Stop()
}

// initServices, service'leri repository, hub ve limiter dependency'leri ile oluşturur.
func initServices(repos *Repositories, hub *ws.Hub, limiters *RateLimiters, cfg *config.Config) *Services {
	membership := services.NewMembershipService(repos.Team, cfg.Membership.CacheTTL)
	messages := services.NewMessageService(repos.Message)

	return &Services{
		Token:      services.NewTokenService(cfg.JWT.Secret),
		Membership: membership,
		Message:    messages,
		Chat: services.NewChatService(messages, membership, hub, limiters.Message, services.ChatOptions{
			AutoJoinOnSend: cfg.Chat.AutoJoinOnSend,
		}),
	}
}
