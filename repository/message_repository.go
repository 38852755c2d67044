package repository

import (
	"context"

	"github.com/akinalp/teamchat/models"
)

// MessageRepository, mesaj kalıcılığı için interface.
//
// Create, ID ve CreatedAt alanlarını kayıt anında doldurur.
// ListByTeam, takımın tüm mesajlarını artan id sırasıyla döner;
// hiç mesaj yoksa boş slice (nil değil) döner.
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	ListByTeam(ctx context.Context, teamID string) ([]models.Message, error)
}
