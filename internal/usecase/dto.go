package usecase

import (
	"time"

	"github.com/tetardtek/superoauth/internal/core/domain"
)

// UserDTO is the sanitized user view returned by authentication flows.
// Password hashes never leave the use case layer.
type UserDTO struct {
	ID            string
	Email         string
	Nickname      string
	EmailVerified bool
	HasPassword   bool
	LoginCount    int64
	LastLoginAt   *time.Time
	CreatedAt     time.Time
	Linked        []LinkedAccountDTO
}

// LinkedAccountDTO describes one linked provider identity.
type LinkedAccountDTO struct {
	Provider    string
	ProviderID  string
	DisplayName string
	AvatarURL   string
	LinkedAt    time.Time
}

// AuthResult bundles the token pair with the authenticated user.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
	User         UserDTO
	IsNewUser    bool
}

func toUserDTO(user *domain.User) UserDTO {
	accounts := user.LinkedAccounts()
	linked := make([]LinkedAccountDTO, 0, len(accounts))
	for _, account := range accounts {
		linked = append(linked, LinkedAccountDTO{
			Provider:    account.Provider.String(),
			ProviderID:  account.ProviderID,
			DisplayName: account.DisplayName,
			AvatarURL:   account.AvatarURL,
			LinkedAt:    account.CreatedAt,
		})
	}

	return UserDTO{
		ID:            user.ID(),
		Email:         user.Email(),
		Nickname:      user.Nickname(),
		EmailVerified: user.EmailVerified(),
		HasPassword:   user.HasPassword(),
		LoginCount:    user.LoginCount(),
		LastLoginAt:   user.LastLoginAt(),
		CreatedAt:     user.CreatedAt(),
		Linked:        linked,
	}
}
