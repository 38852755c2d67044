package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/akinalp/teamchat/database"
)

// sqliteTeamRepo, TeamRepository interface'inin SQLite implementasyonu.
type sqliteTeamRepo struct {
	db *sql.DB
}

// NewSQLiteTeamRepo, constructor: interface döner.
func NewSQLiteTeamRepo(db *sql.DB) TeamRepository {
	return &sqliteTeamRepo{db: db}
}

func (r *sqliteTeamRepo) GetUserTeamIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT team_id FROM team_members WHERE user_id = ? ORDER BY team_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user teams: %w", err)
	}
	defer rows.Close()

	teamIDs := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan team id: %w", err)
		}
		teamIDs = append(teamIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating team rows: %w", err)
	}

	return teamIDs, nil
}

func (r *sqliteTeamRepo) IsMember(ctx context.Context, teamID, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM team_members WHERE team_id = ? AND user_id = ?)`,
		teamID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check team membership: %w", err)
	}
	return exists, nil
}

// ReplaceMembers, takımın üye listesini atomik olarak değiştirir (DELETE + INSERT tek transaction).
func (r *sqliteTeamRepo) ReplaceMembers(ctx context.Context, teamID string, userIDs []string) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM team_members WHERE team_id = ?`, teamID); err != nil {
			return fmt.Errorf("failed to clear team members: %w", err)
		}
		for _, userID := range userIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO team_members (team_id, user_id) VALUES (?, ?)`,
				teamID, userID,
			); err != nil {
				return fmt.Errorf("failed to add team member: %w", err)
			}
		}
		return nil
	})
}
