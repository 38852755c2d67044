package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/akinalp/teamchat/models"
	"github.com/akinalp/teamchat/pkg"
)

const (
	// writeWait: tek bir frame yazımı için süre.
	writeWait = 10 * time.Second

	// pongWait: bu süre içinde heartbeat/pong gelmezse bağlantı ölü sayılır.
	// 3 heartbeat kaçırma = 30s × 3 = 90s.
	pongWait = 90 * time.Second

	// maxFrameSize: client'tan gelen tek frame'in üst sınırı.
	// 2000 rune × 4 byte + JSON zarfı.
	maxFrameSize = 16 * 1024

	sendBufferSize = 256

	// opTimeout: tek bir client isteğinin (join, send) store'da geçirebileceği süre.
	opTimeout = 10 * time.Second
)

// ChatBackend, session'ın mesaj kaydı ve oda katılımı için kullandığı interface.
// services.ChatService tarafından implement edilir.
type ChatBackend interface {
	JoinTeam(ctx context.Context, teamID, userID string, s Subscriber) error
	SendMessage(ctx context.Context, req *models.SendMessageRequest, userID, senderName string, s Subscriber) (*models.Message, error)
}

// SessionState, session yaşam döngüsü: Connected → Active → Closed.
type SessionState int

const (
	StateConnected SessionState = iota // hiçbir odaya katılmamış
	StateActive                        // en az bir odada
	StateClosed                        // terminal
)

func (s SessionState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

// Client, tek bir WebSocket bağlantısını temsil eden messaging session.
//
// Her bağlantı için iki goroutine çalışır:
//   - ReadPump: client'tan gelen event'leri okur ve işler (tek okuyucu)
//   - WritePump: send channel'ındaki frame'leri bağlantıya yazar (tek yazıcı)
//
// gorilla/websocket aynı anda birden fazla yazıcıya izin vermez. Bu yüzden
// Hub ve service'ler bağlantıya doğrudan yazmaz, frame'i Deliver ile
// buffer'lı send channel'ına bırakır.
//
// Yaşam döngüsü: Connected (hiçbir odada değil) → Active (en az bir oda) →
// Closed (terminal). Closed'a geçiş Close ile olur: send channel kapanır,
// kuyrukta kalan frame'ler yazılmaz ve sonraki teslimatlar sessizce düşer.
// Kapanmış bir session'a teslimat hata değildir.
type Client struct {
	id          string
	userID      string
	displayName string

	hub     *Hub
	backend ChatBackend
	conn    *websocket.Conn

	maxMessageLength int

	// sendMu, send channel'ının kapatılması ile Deliver arasındaki yarışı önler.
	// closed true ise send kapatılmıştır.
	sendMu sync.Mutex
	send   chan Frame
	closed bool

	activeMu   sync.Mutex
	activeTeam string
}

func newClient(id, userID, displayName string, hub *Hub, backend ChatBackend, conn *websocket.Conn, maxMessageLength int) *Client {
	return &Client{
		id:               id,
		userID:           userID,
		displayName:      displayName,
		hub:              hub,
		backend:          backend,
		conn:             conn,
		maxMessageLength: maxMessageLength,
		send:             make(chan Frame, sendBufferSize),
	}
}

func (c *Client) SessionID() string { return c.id }
func (c *Client) UserID() string    { return c.userID }

// Deliver, frame'i send buffer'a koyar, asla bloklamaz.
// Kapanmış session'a teslimat sessizce düşürülür.
func (c *Client) Deliver(f Frame) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return true
	}

	select {
	case c.send <- f:
		return true
	default:
		return false
	}
}

// Close, send channel'ını kapatır; WritePump close frame yazıp bağlantıyı kapatır.
// Birden fazla çağrı güvenli.
func (c *Client) Close() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) isClosed() bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.closed
}

// State, session'ın o anki durumunu döner.
func (c *Client) State() SessionState {
	if c.isClosed() {
		return StateClosed
	}
	if len(c.hub.JoinedTeams(c)) > 0 {
		return StateActive
	}
	return StateConnected
}

// ActiveTeam, client'ın en son seçtiği (ekranda açık) takım.
func (c *Client) ActiveTeam() string {
	c.activeMu.Lock()
	defer c.activeMu.Unlock()
	return c.activeTeam
}

// inboundEvent, client'tan gelen event. Data op'a göre ayrıca parse edilir.
type inboundEvent struct {
	Op   string          `json:"op"`
	Data json.RawMessage `json:"d"`
}

// ReadPump, bağlantıdan gelen event'leri okur ve işler.
// Bağlantı kapanana kadar bloklar; çıkarken session'ı bütün odalardan çıkarır.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.LeaveAll(c)
		c.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("[ws] failed to set read deadline for session %s: %v", c.id, err)
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] unexpected close for session %s (user %s): %v", c.id, c.userID, err)
			}
			return
		}

		var event inboundEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			log.Printf("[ws] invalid frame from session %s: %v", c.id, err)
			c.sendError("", "", fmt.Errorf("%w: invalid event frame", pkg.ErrBadRequest))
			continue
		}

		c.handleEvent(ctx, event)
	}
}

// handleEvent, gelen event'i türüne göre işler. Kapanmış session'da hiçbir şey yapmaz.
func (c *Client) handleEvent(ctx context.Context, event inboundEvent) {
	if c.isClosed() {
		return
	}

	switch event.Op {
	case OpHeartbeat:
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			log.Printf("[ws] failed to set read deadline for session %s: %v", c.id, err)
			return
		}
		c.hub.SendToSession(c, "", Event{Op: OpHeartbeatAck})

	case OpJoinTeam:
		c.handleJoinTeam(ctx, event)

	case OpLeaveTeam:
		c.handleLeaveTeam(event)

	case OpSelectTeam:
		c.handleSelectTeam(event)

	case OpSendMessage:
		c.handleSendMessage(ctx, event)

	case OpTyping:
		c.handleTyping(event)

	default:
		c.sendError(event.Op, "", fmt.Errorf("%w: unknown op %q", pkg.ErrBadRequest, event.Op))
	}
}

// decodeTeamRef, team_id taşıyan payload'ı parse eder ve trim eder.
func decodeTeamRef(data json.RawMessage) (string, error) {
	var ref TeamRef
	if len(data) > 0 {
		if err := json.Unmarshal(data, &ref); err != nil {
			return "", fmt.Errorf("%w: invalid payload", pkg.ErrValidation)
		}
	}
	teamID := strings.TrimSpace(ref.TeamID)
	if teamID == "" {
		return "", fmt.Errorf("%w: team_id is required", pkg.ErrValidation)
	}
	return teamID, nil
}

func (c *Client) handleJoinTeam(ctx context.Context, event inboundEvent) {
	teamID, err := decodeTeamRef(event.Data)
	if err != nil {
		c.sendError(OpJoinTeam, "", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.backend.JoinTeam(ctx, teamID, c.userID, c); err != nil {
		c.sendError(OpJoinTeam, teamID, err)
	}
}

func (c *Client) handleLeaveTeam(event inboundEvent) {
	teamID, err := decodeTeamRef(event.Data)
	if err != nil {
		c.sendError(OpLeaveTeam, "", err)
		return
	}

	if !c.hub.Leave(teamID, c) {
		c.sendError(OpLeaveTeam, teamID, fmt.Errorf("%w: not joined to team", pkg.ErrNotJoined))
		return
	}
	c.hub.SendToSession(c, "", Event{Op: OpLeft, Data: TeamRef{TeamID: teamID}})
}

func (c *Client) handleSelectTeam(event inboundEvent) {
	teamID, err := decodeTeamRef(event.Data)
	if err != nil {
		c.sendError(OpSelectTeam, "", err)
		return
	}

	c.activeMu.Lock()
	c.activeTeam = teamID
	c.activeMu.Unlock()
}

func (c *Client) handleSendMessage(ctx context.Context, event inboundEvent) {
	var req models.SendMessageRequest
	if err := json.Unmarshal(event.Data, &req); err != nil {
		c.sendError(OpSendMessage, "", fmt.Errorf("%w: invalid payload", pkg.ErrValidation))
		return
	}
	if err := req.Validate(c.maxMessageLength); err != nil {
		c.sendError(OpSendMessage, strings.TrimSpace(req.TeamID), fmt.Errorf("%w: %v", pkg.ErrValidation, err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	// Mesaj broadcast ile gönderene de döner; ayrıca yanıt yok.
	if _, err := c.backend.SendMessage(ctx, &req, c.userID, c.displayName, c); err != nil {
		c.sendError(OpSendMessage, req.TeamID, err)
	}
}

// handleTyping, typing bildirimini odadaki diğer session'lara iletir.
// Message store'a dokunmaz.
func (c *Client) handleTyping(event inboundEvent) {
	var notice TypingNotice
	if len(event.Data) > 0 {
		if err := json.Unmarshal(event.Data, &notice); err != nil {
			c.sendError(OpTyping, "", fmt.Errorf("%w: invalid payload", pkg.ErrValidation))
			return
		}
	}

	teamID := strings.TrimSpace(notice.TeamID)
	if teamID == "" {
		c.sendError(OpTyping, "", fmt.Errorf("%w: team_id is required", pkg.ErrValidation))
		return
	}
	if !c.hub.IsJoined(teamID, c) {
		c.sendError(OpTyping, teamID, fmt.Errorf("%w: not joined to team", pkg.ErrNotJoined))
		return
	}

	c.hub.BroadcastToTeamExcept(teamID, c.id, Event{
		Op: OpTyping,
		Data: TypingNotice{
			TeamID: teamID,
			User:   c.displayName,
			UserID: c.userID,
		},
	})
}

// sendError, hatayı sadece bu session'a iletir. Diğer session'lar etkilenmez.
func (c *Client) sendError(op, teamID string, err error) {
	if errors.Is(err, pkg.ErrStorage) {
		log.Printf("[ws] storage failure for session %s op=%s team=%s: %v", c.id, op, teamID, err)
	}

	c.hub.SendToSession(c, "", Event{
		Op: OpError,
		Data: ErrorData{
			Op:        op,
			TeamID:    teamID,
			Code:      pkg.ErrorCode(err),
			Message:   err.Error(),
			Retryable: pkg.IsRetryable(err),
		},
	})
}

// WritePump, send buffer'daki frame'leri bağlantıya yazar.
//
// Takıma bağlı bir frame ancak kuyruğa girdiği katılım hâlâ geçerliyse
// yazılır: session takımdan çıktıysa veya çıkıp yeniden katıldıysa düşer.
// Kapanmış session'ın kuyruktaki frame'leri de sessizce düşer.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for out := range c.send {
		if c.isClosed() {
			continue
		}
		if out.TeamID != "" {
			if gen, ok := c.hub.currentJoin(out.TeamID, c); !ok || gen != out.JoinGen {
				continue
			}
		}
		if err := c.writeMessage(websocket.TextMessage, out.Data); err != nil {
			c.hub.LeaveAll(c)
			c.Close()
			return
		}
	}

	_ = c.writeMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (c *Client) writeMessage(messageType int, data []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}
