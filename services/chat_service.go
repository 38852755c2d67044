package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/akinalp/teamchat/models"
	"github.com/akinalp/teamchat/pkg"
	"github.com/akinalp/teamchat/ws"
)

// ChatService, session'ların takım odalarına katılımı ve mesaj gönderimi.
//
// ws paketi (Client) bu servisi ChatBackend interface'i üzerinden çağırır;
// servis de Hub'a ws.EventPublisher üzerinden erişir. Böylece ws paketi
// service'leri import etmez, döngüsel bağımlılık oluşmaz.
//
// Mesaj gönderim akışı:
//  1. Rate limit kontrolü (kullanıcı bazlı)
//  2. Katılım kontrolü: katılmamışsa AutoJoinOnSend'e göre auto-join veya ErrNotJoined
//  3. Takım kilidi alınır
//  4. MessageService.Append ile kalıcı kayıt (id burada atanır)
//  5. Hub.BroadcastToTeam ile odaya yayın, kilit bırakılır
//
// Aynı takım için append+broadcast ve join+history aynı takım kilidi altında
// çalışır. Bu sayede bir odadaki teslimat sırası message id sırasıdır, join
// sonrası gelen history ile canlı mesajlar arasında boşluk ya da tekrar
// olmaz. Kaydı başarısız olan mesaj 5. adıma hiç ulaşmaz.
//
// Farklı takımlar birbirini beklemez; kilit takım başınadır.
type ChatService interface {
	JoinTeam(ctx context.Context, teamID, userID string, sub ws.Subscriber) error
	SendMessage(ctx context.Context, req *models.SendMessageRequest, userID, senderName string, sub ws.Subscriber) (*models.Message, error)
}

// MessageLimiter, kullanıcı bazlı mesaj rate limit'i. nil ise limit yok.
type MessageLimiter interface {
	Allow(userID string) bool
	CooldownSeconds(userID string) int
}

// ChatOptions, gönderim politikası.
type ChatOptions struct {
	// AutoJoinOnSend true ise katılmadığı (ama üyesi olduğu) takıma gönderim
	// session'ı önce odaya katar; false ise ErrNotJoined döner.
	AutoJoinOnSend bool
}

type chatService struct {
	messages   MessageService
	membership MembershipService
	hub        ws.EventPublisher
	limiter    MessageLimiter
	opts       ChatOptions

	// teamLocks: teamID → *sync.Mutex. Takım sayısı sınırlı, silinmez.
	teamLocks sync.Map
}

// NewChatService, constructor.
func NewChatService(
	messages MessageService,
	membership MembershipService,
	hub ws.EventPublisher,
	limiter MessageLimiter,
	opts ChatOptions,
) ChatService {
	return &chatService{
		messages:   messages,
		membership: membership,
		hub:        hub,
		limiter:    limiter,
		opts:       opts,
	}
}

func (s *chatService) lockTeam(teamID string) func() {
	v, _ := s.teamLocks.LoadOrStore(teamID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// JoinTeam, session'ı odaya katar ve takım geçmişini gönderir.
// Tekrar katılım oda kaydında no-op'tur, geçmiş yeniden gönderilir.
func (s *chatService) JoinTeam(ctx context.Context, teamID, userID string, sub ws.Subscriber) error {
	if err := s.requireMember(ctx, teamID, userID); err != nil {
		return err
	}

	unlock := s.lockTeam(teamID)
	defer unlock()

	return s.joinLocked(ctx, teamID, sub)
}

// joinLocked, takım kilidi altında çağrılmalıdır.
// History yüklenemezse session odadan geri çıkarılır.
func (s *chatService) joinLocked(ctx context.Context, teamID string, sub ws.Subscriber) error {
	s.hub.Join(teamID, sub)
	if !s.hub.IsJoined(teamID, sub) {
		// Session bu arada kapandı.
		return nil
	}

	history, err := s.messages.History(ctx, teamID)
	if err != nil {
		s.hub.Leave(teamID, sub)
		return err
	}

	s.hub.SendToSession(sub, teamID, ws.Event{Op: ws.OpJoined, Data: ws.TeamRef{TeamID: teamID}})
	s.hub.SendToSession(sub, teamID, ws.Event{
		Op:   ws.OpHistory,
		Data: ws.HistoryData{TeamID: teamID, Messages: history},
	})
	return nil
}

// SendMessage, mesajı kaydeder ve odaya (gönderen dahil) yayınlar.
//
// Gönderen adı doğrulanmış kullanıcıdan gelir; req.SenderName ve
// req.Timestamp kullanılmaz.
func (s *chatService) SendMessage(ctx context.Context, req *models.SendMessageRequest, userID, senderName string, sub ws.Subscriber) (*models.Message, error) {
	teamID := req.TeamID

	if s.limiter != nil && !s.limiter.Allow(userID) {
		return nil, fmt.Errorf("%w: slow down, retry in %d seconds",
			pkg.ErrRateLimited, s.limiter.CooldownSeconds(userID))
	}

	joined := s.hub.IsJoined(teamID, sub)
	if !joined {
		if !s.opts.AutoJoinOnSend {
			return nil, fmt.Errorf("%w: join the team before sending", pkg.ErrNotJoined)
		}
		if err := s.requireMember(ctx, teamID, userID); err != nil {
			return nil, err
		}
	}

	unlock := s.lockTeam(teamID)
	defer unlock()

	if !joined && !s.hub.IsJoined(teamID, sub) {
		if err := s.joinLocked(ctx, teamID, sub); err != nil {
			return nil, err
		}
	}

	msg, err := s.messages.Append(ctx, teamID, userID, senderName, req.Message)
	if err != nil {
		return nil, err
	}

	s.hub.BroadcastToTeam(teamID, ws.Event{Op: ws.OpReceiveMessage, Data: msg})
	return msg, nil
}

func (s *chatService) requireMember(ctx context.Context, teamID, userID string) error {
	ok, err := s.membership.IsMember(ctx, teamID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: not a member of team %s", pkg.ErrForbidden, teamID)
	}
	return nil
}
