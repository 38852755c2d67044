package handlers

import (
	"net/http"

	"github.com/akinalp/teamchat/pkg"
	"github.com/akinalp/teamchat/services"
)

// MessageHandler, takım mesaj geçmişi endpoint'i.
type MessageHandler struct {
	messageService services.MessageService
}

// NewMessageHandler, constructor.
func NewMessageHandler(messageService services.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// List godoc
// GET /api/teams/{teamId}/messages
// Takımın bütün mesajlarını id sırasıyla döner (boş takım → []).
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	teamID, _ := r.Context().Value(TeamIDContextKey).(string)
	if teamID == "" {
		teamID = r.PathValue("teamId")
	}

	messages, err := h.messageService.History(r.Context(), teamID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, messages)
}
