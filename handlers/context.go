package handlers

import (
	"net/http"

	"github.com/akinalp/teamchat/models"
)

// contextKey, context'te değer taşımak için kullanılan key tipi.
// Ayrı bir tip olması başka paketlerin key'leriyle çakışmayı önler.
type contextKey string

const (
	// ClaimsContextKey, AuthMiddleware'in eklediği *models.TokenClaims.
	ClaimsContextKey contextKey = "claims"
	// TeamIDContextKey, TeamMembershipMiddleware'in doğruladığı takım id'si.
	TeamIDContextKey contextKey = "teamID"
)

// ClaimsFromRequest, doğrulanmış token claim'lerini context'ten okur.
func ClaimsFromRequest(r *http.Request) (*models.TokenClaims, bool) {
	claims, ok := r.Context().Value(ClaimsContextKey).(*models.TokenClaims)
	return claims, ok
}
