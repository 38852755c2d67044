package services

import (
	"context"
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/akinalp/teamchat/pkg"
	"github.com/akinalp/teamchat/pkg/cache"
	"github.com/akinalp/teamchat/repository"
)

// MembershipService, takım üyeliği lookup'ı.
//
// Üyelik dış sistemde yönetilir; bu servis okur ve kullanıcı bazlı
// sonucu kısa süreli cache'ler. Seed sadece development bootstrap'i içindir.
type MembershipService interface {
	TeamIDs(ctx context.Context, userID string) ([]string, error)
	IsMember(ctx context.Context, teamID, userID string) (bool, error)
	Seed(ctx context.Context, memberships map[string][]string) error
	Close()
}

type membershipService struct {
	teamRepo repository.TeamRepository
	cache    *cache.TTLCache[string, []string]
}

// NewMembershipService, constructor. ttl <= 0 cache'i devre dışı bırakır.
func NewMembershipService(teamRepo repository.TeamRepository, ttl time.Duration) MembershipService {
	return &membershipService{
		teamRepo: teamRepo,
		cache:    cache.New[string, []string](ttl, time.Minute),
	}
}

func (s *membershipService) TeamIDs(ctx context.Context, userID string) ([]string, error) {
	if teams, ok := s.cache.Get(userID); ok {
		return slices.Clone(teams), nil
	}

	teams, err := s.teamRepo.GetUserTeamIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load teams: %v", pkg.ErrStorage, err)
	}

	s.cache.Set(userID, teams)
	return slices.Clone(teams), nil
}

func (s *membershipService) IsMember(ctx context.Context, teamID, userID string) (bool, error) {
	teams, err := s.TeamIDs(ctx, userID)
	if err != nil {
		return false, err
	}
	return slices.Contains(teams, teamID), nil
}

// Seed, verilen takımların üye listelerini değiştirir ve cache'i temizler.
func (s *membershipService) Seed(ctx context.Context, memberships map[string][]string) error {
	for teamID, userIDs := range memberships {
		if err := s.teamRepo.ReplaceMembers(ctx, teamID, userIDs); err != nil {
			return fmt.Errorf("%w: failed to seed team %s: %v", pkg.ErrStorage, teamID, err)
		}
		log.Printf("[chat] seeded team %s with %d members", teamID, len(userIDs))
	}
	s.cache.Clear()
	return nil
}

func (s *membershipService) Close() {
	s.cache.Close()
}
