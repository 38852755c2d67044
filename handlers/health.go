package handlers

import (
	"net/http"

	"github.com/akinalp/teamchat/pkg"
)

// SessionCounter, health yanıtındaki bağlı session sayısı için.
type SessionCounter interface {
	SessionCount() int
}

// HealthHandler, GET /api/health.
type HealthHandler struct {
	sessions SessionCounter
}

func NewHealthHandler(sessions SessionCounter) *HealthHandler {
	return &HealthHandler{sessions: sessions}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	pkg.JSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": h.sessions.SessionCount(),
	})
}
