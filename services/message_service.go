package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/akinalp/teamchat/models"
	"github.com/akinalp/teamchat/pkg"
	"github.com/akinalp/teamchat/repository"
)

// MessageService, message store: takım bazlı append-only mesaj kaydı.
//
// Append başarılı olmadan hiçbir mesaj yayınlanmaz; bu yüzden canlı görülen
// her mesaj restart sonrası geçmişte de vardır.
type MessageService interface {
	Append(ctx context.Context, teamID, senderID, senderName, body string) (*models.Message, error)
	History(ctx context.Context, teamID string) ([]models.Message, error)
}

type messageService struct {
	messageRepo repository.MessageRepository
	now         func() time.Time
}

// NewMessageService, constructor.
func NewMessageService(messageRepo repository.MessageRepository) MessageService {
	return &messageService{
		messageRepo: messageRepo,
		now:         time.Now,
	}
}

// Append, mesajı kaydeder; id ve UTC zaman damgası kayıt anında atanır.
// Trim sonrası boş body ErrValidation, repository hatası ErrStorage döner.
func (s *messageService) Append(ctx context.Context, teamID, senderID, senderName, body string) (*models.Message, error) {
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return nil, fmt.Errorf("%w: team_id is required", pkg.ErrValidation)
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: message content is required", pkg.ErrValidation)
	}

	msg := &models.Message{
		TeamID:     teamID,
		SenderID:   senderID,
		SenderName: senderName,
		Body:       body,
		CreatedAt:  s.now().UTC(),
	}

	if err := s.messageRepo.Create(ctx, msg); err != nil {
		log.Printf("[chat] failed to persist message for team %s: %v", teamID, err)
		return nil, fmt.Errorf("%w: failed to persist message", pkg.ErrStorage)
	}

	return msg, nil
}

// History, takımın bütün mesajlarını id sırasıyla döner. Mesaj yoksa boş slice.
func (s *messageService) History(ctx context.Context, teamID string) ([]models.Message, error) {
	messages, err := s.messageRepo.ListByTeam(ctx, teamID)
	if err != nil {
		log.Printf("[chat] failed to load history for team %s: %v", teamID, err)
		return nil, fmt.Errorf("%w: failed to load history", pkg.ErrStorage)
	}
	if messages == nil {
		messages = []models.Message{}
	}
	return messages, nil
}
