package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// Frame, session'a teslim edilen encode edilmiş event.
//
// TeamID boş değilse frame o takıma bağlıdır ve JoinGen, frame kuyruğa
// girdiği anda session'ın o takıma katılımının numarasıdır. Session takımdan
// çıkıp yeniden katılırsa numara değişir; eski katılıma ait frame'ler
// yazılmadan düşer (yeni katılımın history'si onları zaten içerir).
type Frame struct {
	TeamID  string
	JoinGen uint64
	Data    []byte
}

// Subscriber, bir odaya katılabilen session.
//
// Deliver non-blocking olmalıdır: buffer doluysa false döner ve Hub session'ı
// çıkarır. Kapanmış bir session'a teslimat sessizce yutulur (true).
type Subscriber interface {
	SessionID() string
	Deliver(f Frame) bool
	Close()
}

// EventPublisher, service katmanının oda kaydını kullandığı interface.
// Service'ler Hub'ın concrete struct'ına değil bu interface'e bağımlıdır.
type EventPublisher interface {
	Join(teamID string, s Subscriber) bool
	Leave(teamID string, s Subscriber) bool
	IsJoined(teamID string, s Subscriber) bool
	BroadcastToTeam(teamID string, event Event)
	SendToSession(s Subscriber, teamID string, event Event)
}

// Hub, takım odalarını ve bağlı session'ları tutan oda kaydıdır (room registry).
//
// Uygulamada tek bir Hub vardır; bütün session'lar ve service'ler aynı
// Hub'ı paylaşır. Oda kalıcı değildir, sadece bellekte yaşar: ilk join'de
// oluşur, son üye çıkınca silinir, bir sonraki join'de yeniden oluşur.
//
// İki map aynı mutex (mu) altında birbirinin tersidir:
//
//	rooms:    teamID → {session → katılım no}   (broadcast için)
//	sessions: session → {teamID → katılım no}   (leaveAll için)
//
// Yani s ∈ rooms[t] ⇔ t ∈ sessions[s]. Disconnect olan session LeaveAll ile
// iki map'ten birden silinir; hiçbir odada ölü bir referans kalmaz.
//
// Kilitler:
//   - mu (RWMutex): Join/Leave yazma kilidi alır, broadcast okuma kilidi
//     altında iterate eder. Join döndükten sonra başlayan her broadcast yeni
//     üyeyi görür, Leave döndükten sonra başlayan hiçbiri eski üyeye ulaşmaz.
//   - sendMu: seq numarası verme ile kuyruğa koymayı tek adım yapar. Her
//     session frame'leri artan seq sırasıyla alır; bir session'ın aldığı
//     seq'ler arasında boşluk olabilir (başka session'lara giden event'ler).
//
// Kilit sırası her zaman sendMu → mu → session'ın kendi kilidi.
// Deliver asla bloklamadığı için broadcast yavaş bir session'ı beklemez;
// buffer'ı dolan session kilitler bırakıldıktan sonra çıkarılır (evict).
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]map[Subscriber]uint64
	sessions map[Subscriber]map[string]uint64
	nextGen  uint64
	closed   bool

	sendMu sync.Mutex
	seq    int64
}

// NewHub, yeni bir Hub oluşturur.
func NewHub() *Hub {
	return &Hub{
		rooms:    make(map[string]map[Subscriber]uint64),
		sessions: make(map[Subscriber]map[string]uint64),
	}
}

// Register, session'ı Hub'a ekler. Hub kapanmışsa false döner.
func (h *Hub) Register(s Subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	if _, ok := h.sessions[s]; !ok {
		h.sessions[s] = make(map[string]uint64)
	}

	log.Printf("[ws] session registered: %s (total sessions: %d)", s.SessionID(), len(h.sessions))
	return true
}

// Join, session'ı takım odasına ekler. Idempotent.
//
// true: session odaya yeni eklendi.
// false: zaten üyeydi veya session kayıtlı değil (kapanmış).
func (h *Hub) Join(teamID string, s Subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	teams, ok := h.sessions[s]
	if !ok {
		return false
	}
	if _, joined := teams[teamID]; joined {
		return false
	}

	room, ok := h.rooms[teamID]
	if !ok {
		room = make(map[Subscriber]uint64)
		h.rooms[teamID] = room
	}
	h.nextGen++
	room[s] = h.nextGen
	teams[teamID] = h.nextGen
	return true
}

// Leave, session'ı odadan çıkarır. Oda boşalırsa silinir.
// Session odada değilse false döner.
func (h *Hub) Leave(teamID string, s Subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	teams, ok := h.sessions[s]
	if !ok {
		return false
	}
	if _, joined := teams[teamID]; !joined {
		return false
	}

	delete(teams, teamID)
	h.removeFromRoom(teamID, s)
	return true
}

// LeaveAll, session'ı bütün odalardan ve Hub'dan çıkarır, sonra kapatır.
// Disconnect ve yavaş tüketici durumlarında çağrılır; ikinci çağrı no-op'tur.
// Çıkarılan takım id'lerini döner.
func (h *Hub) LeaveAll(s Subscriber) []string {
	h.mu.Lock()
	teams, ok := h.sessions[s]
	if !ok {
		h.mu.Unlock()
		return nil
	}

	left := make([]string, 0, len(teams))
	for teamID := range teams {
		h.removeFromRoom(teamID, s)
		left = append(left, teamID)
	}
	delete(h.sessions, s)
	remaining := len(h.sessions)
	h.mu.Unlock()

	s.Close()

	log.Printf("[ws] session removed: %s (rooms left: %d, remaining sessions: %d)",
		s.SessionID(), len(left), remaining)
	return left
}

// removeFromRoom, h.mu Lock altında çağrılmalıdır.
func (h *Hub) removeFromRoom(teamID string, s Subscriber) {
	room, ok := h.rooms[teamID]
	if !ok {
		return
	}
	delete(room, s)
	if len(room) == 0 {
		delete(h.rooms, teamID)
	}
}

func (h *Hub) IsJoined(teamID string, s Subscriber) bool {
	_, ok := h.currentJoin(teamID, s)
	return ok
}

// currentJoin, session'ın takıma şu anki katılım numarasını döner.
func (h *Hub) currentJoin(teamID string, s Subscriber) (uint64, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	gen, ok := h.rooms[teamID][s]
	return gen, ok
}

// JoinedTeams, session'ın katıldığı takımları döner (sırasız).
func (h *Hub) JoinedTeams(s Subscriber) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	teams := make([]string, 0, len(h.sessions[s]))
	for teamID := range h.sessions[s] {
		teams = append(teams, teamID)
	}
	return teams
}

// TeamSize, odadaki session sayısı.
func (h *Hub) TeamSize(teamID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.rooms[teamID])
}

// SessionCount, kayıtlı session sayısı.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.sessions)
}

// BroadcastToTeam, event'i odadaki her session'a gönderir (gönderen dahil).
func (h *Hub) BroadcastToTeam(teamID string, event Event) {
	h.broadcast(teamID, "", event)
}

// BroadcastToTeamExcept, event'i belirtilen session hariç odaya gönderir.
// Typing bildiriminde gönderen kendi event'ini almaz.
func (h *Hub) BroadcastToTeamExcept(teamID, excludeSessionID string, event Event) {
	h.broadcast(teamID, excludeSessionID, event)
}

func (h *Hub) broadcast(teamID, excludeSessionID string, event Event) {
	var slow []Subscriber

	h.sendMu.Lock()
	h.mu.RLock()
	if room := h.rooms[teamID]; len(room) > 0 {
		if data, ok := h.encode(event); ok {
			for s, gen := range room {
				if excludeSessionID != "" && s.SessionID() == excludeSessionID {
					continue
				}
				if !s.Deliver(Frame{TeamID: teamID, JoinGen: gen, Data: data}) {
					slow = append(slow, s)
				}
			}
		}
	}
	h.mu.RUnlock()
	h.sendMu.Unlock()

	h.evict(slow)
}

// SendToSession, event'i tek bir session'a gönderir (history, joined, error).
//
// teamID boş değilse frame o takımın şu anki katılımına bağlanır; session
// takımda değilse frame hiç kuyruğa girmez.
func (h *Hub) SendToSession(s Subscriber, teamID string, event Event) {
	delivered := true

	h.sendMu.Lock()
	h.mu.RLock()
	gen, joined := h.rooms[teamID][s]
	if teamID == "" || joined {
		if data, ok := h.encode(event); ok {
			delivered = s.Deliver(Frame{TeamID: teamID, JoinGen: gen, Data: data})
		}
	}
	h.mu.RUnlock()
	h.sendMu.Unlock()

	if !delivered {
		h.evict([]Subscriber{s})
	}
}

// encode, event'e sıradaki seq'i verip JSON'a çevirir. sendMu altında çağrılmalıdır.
func (h *Hub) encode(event Event) ([]byte, bool) {
	h.seq++
	event.Seq = h.seq

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[ws] failed to marshal %s event: %v", event.Op, err)
		return nil, false
	}
	return data, true
}

// evict, buffer'ı dolan session'ları çıkarır. Broadcast asla yavaş bir
// session için beklemez.
func (h *Hub) evict(slow []Subscriber) {
	for _, s := range slow {
		log.Printf("[ws] send buffer full for session %s, dropping connection", s.SessionID())
		h.LeaveAll(s)
	}
}

// Shutdown, bütün session'ları kapatır ve yeni kayıtları reddeder.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	h.closed = true
	all := make([]Subscriber, 0, len(h.sessions))
	for s := range h.sessions {
		all = append(all, s)
	}
	h.mu.Unlock()

	for _, s := range all {
		h.LeaveAll(s)
	}
	log.Printf("[ws] hub shut down, closed %d sessions", len(all))
}
