package repository

import (
	"context"
	"fmt"

	"github.com/akinalp/teamchat/database"
	"github.com/akinalp/teamchat/models"
)

// sqliteMessageRepo, MessageRepository interface'inin SQLite implementasyonu.
type sqliteMessageRepo struct {
	db database.TxQuerier
}

// NewSQLiteMessageRepo, constructor: interface döner.
func NewSQLiteMessageRepo(db database.TxQuerier) MessageRepository {
	return &sqliteMessageRepo{db: db}
}

// Create, mesajı ekler. id AUTOINCREMENT ile atanır: silinen satırın id'si
// tekrar kullanılmaz, böylece id sırası her zaman ekleme sırasıdır.
func (r *sqliteMessageRepo) Create(ctx context.Context, message *models.Message) error {
	query := `
		INSERT INTO messages (team_id, sender_id, sender_name, message, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		message.TeamID,
		message.SenderID,
		message.SenderName,
		message.Body,
		message.CreatedAt,
	).Scan(&message.ID)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	return nil
}

func (r *sqliteMessageRepo) ListByTeam(ctx context.Context, teamID string) ([]models.Message, error) {
	query := `
		SELECT id, team_id, sender_id, sender_name, message, created_at
		FROM messages
		WHERE team_id = ?
		ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages by team: %w", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(
			&msg.ID, &msg.TeamID, &msg.SenderID, &msg.SenderName, &msg.Body, &msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		msg.CreatedAt = msg.CreatedAt.UTC()
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}

	return messages, nil
}
