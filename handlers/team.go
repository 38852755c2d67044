package handlers

import (
	"net/http"

	"github.com/akinalp/teamchat/models"
	"github.com/akinalp/teamchat/pkg"
	"github.com/akinalp/teamchat/services"
)

// TeamHandler, kullanıcının takım üyeliği endpoint'i.
type TeamHandler struct {
	membership services.MembershipService
}

// NewTeamHandler, constructor.
func NewTeamHandler(membership services.MembershipService) *TeamHandler {
	return &TeamHandler{membership: membership}
}

// Mine godoc
// GET /api/users/me/teams
func (h *TeamHandler) Mine(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromRequest(r)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	teamIDs, err := h.membership.TeamIDs(r.Context(), claims.UserID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, models.UserTeams{UserID: claims.UserID, TeamIDs: teamIDs})
}
