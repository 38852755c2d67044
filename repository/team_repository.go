package repository

import "context"

// TeamRepository, takım üyeliği lookup'ı için interface.
//
// Üyelik yönetimi dış sistemin işidir; bu servis okur.
// ReplaceMembers sadece development seed'i için vardır.
type TeamRepository interface {
	GetUserTeamIDs(ctx context.Context, userID string) ([]string, error)
	IsMember(ctx context.Context, teamID, userID string) (bool, error)
	ReplaceMembers(ctx context.Context, teamID string, userIDs []string) error
}
