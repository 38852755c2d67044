// Package main. HTTP route registration.
//
// Middleware chain helper'ları:
//   - auth: JWT token doğrulaması
//   - authTeam: auth + takım üyelik kontrolü
package main

import (
	"net/http"

	"github.com/rs/cors"

	"github.com/akinalp/teamchat/middleware"
)

// initRoutes, endpoint'leri mux'a bağlar ve CORS ile sarılmış handler döner.
func initRoutes(h *Handlers, svcs *Services, allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()

	authMw := middleware.NewAuthMiddleware(svcs.Token)
	teamMw := middleware.NewTeamMembershipMiddleware(svcs.Membership)

	auth := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(http.HandlerFunc(handler))
	}
	authTeam := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(teamMw.Require(http.HandlerFunc(handler)))
	}

	mux.HandleFunc("GET /api/health", h.Health.Check)

	mux.Handle("GET /api/users/me/teams", auth(h.Team.Mine))
	mux.Handle("GET /api/teams/{teamId}/messages", authTeam(h.Message.List))

	// WebSocket: browser header gönderemediği için token query parametresinde,
	// doğrulama handler'ın kendisinde.
	mux.HandleFunc("GET /ws", h.WS.HandleConnection)

	return cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(mux)
}

