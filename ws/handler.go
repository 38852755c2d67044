package ws

import (
	"context"
	"log"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/akinalp/teamchat/models"
	"github.com/akinalp/teamchat/pkg"
	"github.com/akinalp/teamchat/pkg/ratelimit"
)

// TokenValidator, JWT doğrulama interface'i.
// services.TokenService tarafından implement edilir.
type TokenValidator interface {
	ValidateAccessToken(tokenString string) (*models.TokenClaims, error)
}

// MembershipLookup, kullanıcının üye olduğu takımları döner.
type MembershipLookup interface {
	TeamIDs(ctx context.Context, userID string) ([]string, error)
}

// ConnectLimiter, handshake rate limit'i. nil ise limit uygulanmaz.
type ConnectLimiter interface {
	Allow(ip string) bool
	RetryAfterSeconds(ip string) int
}

// HandlerOptions, Handler davranış ayarları.
type HandlerOptions struct {
	// TypingWindow, ready event'inde client'a bildirilen typing timeout'u.
	TypingWindow time.Duration
	// JoinAllOnConnect true ise session bağlanır bağlanmaz üye olduğu her takıma katılır.
	JoinAllOnConnect bool
	MaxMessageLength int
	// AllowedOrigins boşsa veya "*" içeriyorsa her origin kabul edilir.
	AllowedOrigins []string
}

// Handler, WebSocket bağlantı isteklerini karşılar.
type Handler struct {
	hub        *Hub
	backend    ChatBackend
	tokens     TokenValidator
	membership MembershipLookup
	limiter    ConnectLimiter
	opts       HandlerOptions
	upgrader   websocket.Upgrader
}

// NewHandler, constructor.
func NewHandler(
	hub *Hub,
	backend ChatBackend,
	tokens TokenValidator,
	membership MembershipLookup,
	limiter ConnectLimiter,
	opts HandlerOptions,
) *Handler {
	h := &Handler{
		hub:        hub,
		backend:    backend,
		tokens:     tokens,
		membership: membership,
		limiter:    limiter,
		opts:       opts,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.opts.AllowedOrigins) == 0 {
		return true
	}
	return slices.Contains(h.opts.AllowedOrigins, "*") || slices.Contains(h.opts.AllowedOrigins, origin)
}

// HandleConnection, GET /ws?token=JWT isteğini WebSocket'e yükseltir.
//
// Browser WebSocket API'si header gönderemediği için token query'den gelir.
// Upgrade'den önceki hatalar normal HTTP yanıtıdır (401, 429, 503).
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	if h.limiter != nil {
		ip := ratelimit.ExtractIP(r)
		if !h.limiter.Allow(ip) {
			w.Header().Set("Retry-After", strconv.Itoa(h.limiter.RetryAfterSeconds(ip)))
			pkg.ErrorWithMessage(w, http.StatusTooManyRequests, "too many connection attempts")
			return
		}
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "missing token")
		return
	}

	claims, err := h.tokens.ValidateAccessToken(token)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	teamIDs, err := h.membership.TeamIDs(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("[ws] membership lookup failed for user %s: %v", claims.UserID, err)
		pkg.Error(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed for user %s: %v", claims.UserID, err)
		return
	}

	client := newClient(uuid.NewString(), claims.UserID, claims.Name(), h.hub, h.backend, conn, h.opts.MaxMessageLength)
	if !h.hub.Register(client) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	h.hub.SendToSession(client, "", Event{
		Op: OpReady,
		Data: ReadyData{
			SessionID:      client.id,
			UserID:         client.userID,
			DisplayName:    client.displayName,
			TeamIDs:        teamIDs,
			TypingWindowMS: h.opts.TypingWindow.Milliseconds(),
		},
	})

	go client.WritePump()

	if h.opts.JoinAllOnConnect {
		for _, teamID := range teamIDs {
			ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
			if err := h.backend.JoinTeam(ctx, teamID, client.userID, client); err != nil {
				client.sendError(OpJoinTeam, teamID, err)
			}
			cancel()
		}
	}

	client.ReadPump(r.Context())
}
