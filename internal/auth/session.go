package auth

// SessionData represents the authenticated session context for a request
type SessionData struct {
	Username string `json:"username"`
	TokenID  string `json:"token_id"`
}
