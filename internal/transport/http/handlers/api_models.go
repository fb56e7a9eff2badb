package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tetardtek/superoauth/internal/usecase"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// LinkedAccountPayload describes one linked provider identity in API responses.
type LinkedAccountPayload struct {
	Provider    string    `json:"provider"`
	ProviderID  string    `json:"provider_id"`
	DisplayName string    `json:"display_name,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	LinkedAt    time.Time `json:"linked_at"`
}

// UserPayload describes the API view of a user account.
type UserPayload struct {
	ID             string                 `json:"id"`
	Email          *string                `json:"email,omitempty"`
	Nickname       string                 `json:"nickname"`
	EmailVerified  bool                   `json:"email_verified"`
	HasPassword    bool                   `json:"has_password"`
	LoginCount     int64                  `json:"login_count"`
	LastLoginAt    *time.Time             `json:"last_login_at,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	LinkedAccounts []LinkedAccountPayload `json:"linked_accounts"`
}

// RegisterRequest defines the account registration payload.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Nickname string `json:"nickname" binding:"required"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse describes the response returned when a session is opened.
type AuthResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int64       `json:"expires_in"`
	IsNewUser    bool        `json:"is_new_user"`
	User         UserPayload `json:"user"`
}

// TokenRefreshRequest represents the payload to refresh an access token.
type TokenRefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest carries the refresh token whose session should be revoked.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutAllResponse reports how many sessions a bulk logout removed.
type LogoutAllResponse struct {
	RevokedSessions int `json:"revoked_sessions"`
}

// OAuthStartResponse returns the provider authorization URL to redirect to
// and the state the client must echo back on the callback.
type OAuthStartResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	State            string `json:"state"`
	Provider         string `json:"provider"`
}

// OAuthCallbackRequest carries the code and state returned by a provider.
type OAuthCallbackRequest struct {
	Code  string `json:"code" binding:"required"`
	State string `json:"state" binding:"required"`
}

// PasswordChangeRequest captures a password change request body. CurrentPassword
// may be empty when the account has no password credential yet.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadyResponse describes readiness probe results with dependency checks.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// newUserPayload converts a use case DTO to the API representation.
func newUserPayload(dto usecase.UserDTO) UserPayload {
	linked := make([]LinkedAccountPayload, 0, len(dto.Linked))
	for _, account := range dto.Linked {
		linked = append(linked, LinkedAccountPayload{
			Provider:    account.Provider,
			ProviderID:  account.ProviderID,
			DisplayName: account.DisplayName,
			AvatarURL:   account.AvatarURL,
			LinkedAt:    account.LinkedAt,
		})
	}

	payload := UserPayload{
		ID:             dto.ID,
		Nickname:       dto.Nickname,
		EmailVerified:  dto.EmailVerified,
		HasPassword:    dto.HasPassword,
		LoginCount:     dto.LoginCount,
		LastLoginAt:    dto.LastLoginAt,
		CreatedAt:      dto.CreatedAt,
		LinkedAccounts: linked,
	}

	if dto.Email != "" {
		email := dto.Email
		payload.Email = &email
	}

	return payload
}

// newAuthResponse converts a use case auth result to the API representation.
func newAuthResponse(result *usecase.AuthResult) AuthResponse {
	return AuthResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    result.ExpiresIn,
		IsNewUser:    result.IsNewUser,
		User:         newUserPayload(result.User),
	}
}
