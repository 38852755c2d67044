package models

// UserTeams, GET /api/users/me/teams yanıtı.
type UserTeams struct {
	UserID  string   `json:"user_id"`
	TeamIDs []string `json:"team_ids"`
}
