// Package ws, takım odaları üzerinden gerçek zamanlı mesaj dağıtımını sağlar.
//
// Mimari:
// - Hub: takım → bağlı session seti (oda kaydı). Join/Leave/Broadcast burada.
// - Client: her WebSocket bağlantısı için bir session. Gelen event'leri
//   ChatBackend'e çevirir, Hub'dan gelen frame'leri bağlantıya yazar.
// - Handler: token doğrulama, upgrade, ready event'i.
//
// Event akışı:
// 1. Client sendMessage gönderir → ReadPump → ChatBackend.SendMessage
// 2. ChatBackend mesajı kaydeder, sonra Hub.BroadcastToTeam çağırır
// 3. Hub frame'i odadaki her session'ın send buffer'ına koyar
// 4. Her session'ın WritePump'ı frame'i WebSocket'e yazar
package ws

// Event, WebSocket üzerinden iletilen bir mesajı temsil eder.
//
// Seq: her outbound event'e Hub tarafından verilen artan sayı.
// Client → Server event'lerinde kullanılmaz.
type Event struct {
	Op   string `json:"op"`
	Data any    `json:"d,omitempty"`
	Seq  int64  `json:"seq,omitempty"`
}

// Client → Server operasyonları
const (
	OpJoinTeam    = "joinTeam"
	OpLeaveTeam   = "leaveTeam"
	OpSelectTeam  = "selectTeam"
	OpSendMessage = "sendMessage"
	OpTyping      = "typing" // her iki yönde de kullanılır
	OpHeartbeat   = "heartbeat"
)

// Server → Client operasyonları
const (
	OpReady          = "ready"
	OpJoined         = "joined"
	OpHistory        = "history"
	OpLeft           = "left"
	OpReceiveMessage = "receiveMessage"
	OpError          = "error"
	OpHeartbeatAck   = "heartbeat_ack"
)

// TeamRef, sadece takım id'si taşıyan payload (joinTeam, leaveTeam, selectTeam, joined, left).
type TeamRef struct {
	TeamID string `json:"team_id"`
}

// TypingNotice, typing payload'ı.
// Client → Server: {team_id, user}. Server → Client: user_id eklenir.
type TypingNotice struct {
	TeamID string `json:"team_id"`
	User   string `json:"user"`
	UserID string `json:"user_id,omitempty"`
}

// HistoryData, join sonrası gönderilen takım geçmişi.
type HistoryData struct {
	TeamID   string `json:"team_id"`
	Messages any    `json:"messages"`
}

// ReadyData, bağlantı kurulunca gönderilen ilk event.
type ReadyData struct {
	SessionID      string   `json:"session_id"`
	UserID         string   `json:"user_id"`
	DisplayName    string   `json:"display_name"`
	TeamIDs        []string `json:"team_ids"`
	TypingWindowMS int64    `json:"typing_window_ms"`
}

// ErrorData, sadece isteği yapan session'a giden hata event'i.
// Retryable true ise aynı istek daha sonra tekrar denenebilir (storage, rate limit).
type ErrorData struct {
	Op        string `json:"op"`
	TeamID    string `json:"team_id,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}
