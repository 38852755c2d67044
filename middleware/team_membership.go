package middleware

import (
	"context"
	"net/http"

	"github.com/akinalp/teamchat/handlers"
	"github.com/akinalp/teamchat/pkg"
)

// MembershipChecker, takım üyelik kontrolü.
type MembershipChecker interface {
	IsMember(ctx context.Context, teamID, userID string) (bool, error)
}

// TeamMembershipMiddleware, {teamId} path parametresindeki takıma üyelik kontrolü.
// AuthMiddleware'den SONRA çalışır.
type TeamMembershipMiddleware struct {
	membership MembershipChecker
}

// NewTeamMembershipMiddleware, constructor.
func NewTeamMembershipMiddleware(membership MembershipChecker) *TeamMembershipMiddleware {
	return &TeamMembershipMiddleware{membership: membership}
}

// Require, üye değilse 403 döner; üyeyse teamID'yi context'e ekler.
func (m *TeamMembershipMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := handlers.ClaimsFromRequest(r)
		if !ok {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
			return
		}

		teamID := r.PathValue("teamId")
		if teamID == "" {
			pkg.ErrorWithMessage(w, http.StatusBadRequest, "teamId is required")
			return
		}

		isMember, err := m.membership.IsMember(r.Context(), teamID, claims.UserID)
		if err != nil {
			pkg.Error(w, err)
			return
		}
		if !isMember {
			pkg.ErrorWithMessage(w, http.StatusForbidden, "you are not a member of this team")
			return
		}

		ctx := context.WithValue(r.Context(), handlers.TeamIDContextKey, teamID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
