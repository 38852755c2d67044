// Package main. Handler katmanı başlatma.
//
// Handler'lar "thin"dir: HTTP parse + service call + response write.
package main

import (
	"github.com/akinalp/teamchat/config"
	"github.com/akinalp/teamchat/handlers"
	"github.com/akinalp/teamchat/ws"
)

// Handlers, handler instance'larını tutan container struct.
type Handlers struct {
	Health  *handlers.HealthHandler
	Message *handlers.MessageHandler
	Team    *handlers.TeamHandler
	WS      *ws.Handler
}

func initHandlers(svcs *Services, limiters *RateLimiters, hub *ws.Hub, cfg *config.Config) *Handlers {
	return &Handlers{
		Health:  handlers.NewHealthHandler(hub),
		Message: handlers.NewMessageHandler(svcs.Message),
		Team:    handlers.NewTeamHandler(svcs.Membership),
		WS: ws.NewHandler(hub, svcs.Chat, svcs.Token, svcs.Membership, limiters.Connect, ws.HandlerOptions{
			TypingWindow:     cfg.Chat.TypingWindow,
			JoinAllOnConnect: cfg.Chat.JoinAllOnConnect,
			MaxMessageLength: cfg.Chat.MaxMessageLength,
			AllowedOrigins:   cfg.Server.AllowedOrigins,
		}),
	}
}
