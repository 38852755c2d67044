// Package client, teamchat sunucusu için Go client'ı.
//
// Session bir WebSocket bağlantısının sahibidir: Dial ile açılır, Close ile
// kapanır. Gelen event'ler önce UnreadTracker ve TypingTracker'ı günceller,
// sonra Subscribe ile kaydolan handler'lara dağıtılır.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/akinalp/teamchat/models"
	"github.com/akinalp/teamchat/ws"
)

const (
	writeWait = 10 * time.Second

	// DefaultHeartbeatInterval, server'ın 90s read deadline'ına karşı 30s.
	DefaultHeartbeatInterval = 30 * time.Second
)

// ErrClosed, kapanmış session üzerinde yapılan işlemlerde döner.
var ErrClosed = errors.New("client: session closed")

// Event, server'dan gelen ham event. Data op'a göre decode edilir.
type Event struct {
	Op   string          `json:"op"`
	Data json.RawMessage `json:"d,omitempty"`
	Seq  int64           `json:"seq,omitempty"`
}

// Decode, Data'yı v'ye çözer.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Data, v)
}

// Options, Dial ayarları.
type Options struct {
	// HeartbeatInterval <= 0 ise otomatik heartbeat gönderilmez.
	HeartbeatInterval time.Duration
	// TypingWindow sıfırsa server'ın ready'de bildirdiği değer kullanılır.
	TypingWindow time.Duration
	// Scheduler, typing zamanlayıcıları için. nil ise gerçek zaman.
	Scheduler Scheduler

	OnUnreadChange func(teamID string, count int)
	OnTypingChange func(teamID, user string, typing bool)

	Dialer *websocket.Dialer
}

// Session, client tarafı messaging session.
type Session struct {
	conn  *websocket.Conn
	ready ws.ReadyData

	Unread *UnreadTracker
	Typing *TypingTracker

	writeMu sync.Mutex

	subsMu sync.RWMutex
	subs   map[string][]*Subscription

	done      chan struct{}
	closeOnce sync.Once
	errMu     sync.Mutex
	err       error
}

// Dial, sunucuya bağlanır ve ready event'ini bekler.
// serverURL ws:// veya wss:// ile başlar ve /ws path'ini içerir.
func Dial(ctx context.Context, serverURL, token string, opts *Options) (*Session, error) {
	if opts == nil {
		opts = &Options{HeartbeatInterval: DefaultHeartbeatInterval}
	}

	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("client: invalid server url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
			return nil, &DialError{StatusCode: resp.StatusCode, Err: err}
		}
		return nil, fmt.Errorf("client: dial failed: %w", err)
	}

	ready, err := awaitReady(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, err
	}

	window := opts.TypingWindow
	if window <= 0 {
		window = time.Duration(ready.TypingWindowMS) * time.Millisecond
	}

	s := &Session{
		conn:   conn,
		ready:  ready,
		Unread: NewUnreadTracker(opts.OnUnreadChange),
		Typing: NewTypingTracker(ready.UserID, window, opts.Scheduler, opts.OnTypingChange),
		subs:   make(map[string][]*Subscription),
		done:   make(chan struct{}),
	}

	go s.readLoop()
	if opts.HeartbeatInterval > 0 {
		go s.heartbeatLoop(opts.HeartbeatInterval)
	}

	return s, nil
}

// awaitReady, ilk frame'i okur; ready değilse hata döner.
func awaitReady(ctx context.Context, conn *websocket.Conn) (ws.ReadyData, error) {
	var ready ws.ReadyData

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return ready, fmt.Errorf("client: %w", err)
	}

	var ev Event
	if err := conn.ReadJSON(&ev); err != nil {
		return ready, fmt.Errorf("client: waiting for ready: %w", err)
	}
	if ev.Op != ws.OpReady {
		return ready, fmt.Errorf("client: expected %s, got %s", ws.OpReady, ev.Op)
	}
	if err := ev.Decode(&ready); err != nil {
		return ready, fmt.Errorf("client: invalid ready payload: %w", err)
	}

	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		return ready, fmt.Errorf("client: %w", err)
	}
	return ready, nil
}

// Ready, bağlantı kurulurken server'ın gönderdiği bilgiler.
func (s *Session) Ready() ws.ReadyData { return s.ready }

// Done, session kapanınca kapanan channel.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err, session'ı kapatan hata. Close ile kapandıysa nil.
func (s *Session) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *Session) readLoop() {
	for {
		var ev Event
		if err := s.conn.ReadJSON(&ev); err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) && (ce.Code == websocket.CloseNormalClosure || ce.Code == websocket.CloseGoingAway) {
				err = nil
			}
			// Close önce çağrıldıysa shutdown no-op'tur, err kaydedilmez.
			s.shutdown(err)
			return
		}

		s.reconcile(ev)
		s.dispatch(ev)
	}
}

// reconcile, tracker'ları gelen event'e göre günceller.
func (s *Session) reconcile(ev Event) {
	switch ev.Op {
	case ws.OpJoined:
		var ref ws.TeamRef
		if ev.Decode(&ref) == nil {
			s.Unread.Join(ref.TeamID)
		}
	case ws.OpLeft:
		var ref ws.TeamRef
		if ev.Decode(&ref) == nil {
			s.Unread.Leave(ref.TeamID)
		}
	case ws.OpReceiveMessage:
		var msg models.Message
		if ev.Decode(&msg) == nil {
			s.Unread.Observe(msg.TeamID)
			s.Typing.Clear(msg.TeamID, msg.SenderID)
		}
	case ws.OpTyping:
		var notice ws.TypingNotice
		if ev.Decode(&notice) == nil {
			s.Typing.Observe(notice.TeamID, notice.UserID, notice.User)
		}
	}
}

func (s *Session) dispatch(ev Event) {
	s.subsMu.RLock()
	subs := append([]*Subscription(nil), s.subs[ev.Op]...)
	subs = append(subs, s.subs[""]...)
	s.subsMu.RUnlock()

	for _, sub := range subs {
		sub.deliver(ev)
	}
}

func (s *Session) heartbeatLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Heartbeat(); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}

// Subscription, Subscribe ile dönen handle.
//
// mu, "hâlâ aktif mi" kontrolü ile handler çağrısını tek adım yapar. Cancel
// başka bir goroutine'den çağrılırsa kontrolü geçmiş ama handler'a henüz
// girmemiş bir teslimatın bitmesini bekler; handler'ın içinden çağrılırsa
// (inHandler) beklemez, aksi halde kendi kilidini bekleyip kilitlenirdi.
type Subscription struct {
	s       *Session
	op      string
	handler func(Event)

	mu        sync.Mutex
	active    atomic.Bool
	inHandler atomic.Bool
}

// Subscribe, op için handler kaydeder. op boşsa bütün event'ler gelir.
// Handler'lar okuma goroutine'inde, sırayla çağrılır; bloklamamalıdır.
func (s *Session) Subscribe(op string, handler func(Event)) *Subscription {
	sub := &Subscription{s: s, op: op, handler: handler}
	sub.active.Store(true)

	s.subsMu.Lock()
	s.subs[op] = append(s.subs[op], sub)
	s.subsMu.Unlock()

	return sub
}

func (sub *Subscription) deliver(ev Event) {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	if !sub.active.Load() {
		return
	}
	sub.inHandler.Store(true)
	defer sub.inHandler.Store(false)
	sub.handler(ev)
}

// Cancel, Cancel döndükten sonra handler'a yeni bir event teslim edilmez.
// O anda çalışmakta olan bir handler çağrısı varsa tamamlanır. Handler'ın
// içinden çağrılabilir; tekrar çağrı no-op.
func (sub *Subscription) Cancel() {
	if !sub.active.Swap(false) {
		return
	}

	if !sub.inHandler.Load() {
		// Kontrolü geçmiş bir teslimat varsa bitmesini bekle.
		sub.mu.Lock()
		sub.mu.Unlock()
	}

	s := sub.s
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	list := s.subs[sub.op]
	for i, other := range list {
		if other == sub {
			s.subs[sub.op] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(s.subs[sub.op]) == 0 {
		delete(s.subs, sub.op)
	}
}

func (s *Session) send(op string, data any) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("client: %w", err)
	}
	if err := s.conn.WriteJSON(ws.Event{Op: op, Data: data}); err != nil {
		return fmt.Errorf("client: send %s: %w", op, err)
	}
	return nil
}

func (s *Session) JoinTeam(teamID string) error {
	return s.send(ws.OpJoinTeam, ws.TeamRef{TeamID: teamID})
}

func (s *Session) LeaveTeam(teamID string) error {
	return s.send(ws.OpLeaveTeam, ws.TeamRef{TeamID: teamID})
}

// SelectTeam, takımı aktif yapar: sayacı yerelde hemen sıfırlanır, server'a bildirilir.
func (s *Session) SelectTeam(teamID string) error {
	s.Unread.Select(teamID)
	return s.send(ws.OpSelectTeam, ws.TeamRef{TeamID: teamID})
}

// SendMessage, mesajı gönderir. Kaydedilen mesaj receiveMessage ile geri döner.
func (s *Session) SendMessage(teamID, body string) error {
	return s.send(ws.OpSendMessage, models.SendMessageRequest{
		TeamID:     teamID,
		SenderName: s.ready.DisplayName,
		Message:    body,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})
}

// SendTyping, odaya "yazıyor" bildirimi gönderir.
func (s *Session) SendTyping(teamID string) error {
	return s.send(ws.OpTyping, ws.TypingNotice{TeamID: teamID, User: s.ready.DisplayName, UserID: s.ready.UserID})
}

func (s *Session) Heartbeat() error {
	return s.send(ws.OpHeartbeat, nil)
}

// Close, bağlantıyı kapatır. Birden fazla çağrı güvenli.
func (s *Session) Close() error {
	s.writeMu.Lock()
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	s.writeMu.Unlock()

	s.shutdown(nil)
	return nil
}

func (s *Session) shutdown(err error) {
	s.closeOnce.Do(func() {
		s.errMu.Lock()
		s.err = err
		s.errMu.Unlock()

		s.Typing.Stop()
		s.conn.Close()
		close(s.done)
	})
}

// DialError, handshake HTTP yanıtla reddedildiğinde döner (401, 429, 503).
type DialError struct {
	StatusCode int
	Err        error
}

func (e *DialError) Error() string {
	return fmt.Sprintf("client: dial failed with status %d: %v", e.StatusCode, e.Err)
}

func (e *DialError) Unwrap() error { return e.Err }
