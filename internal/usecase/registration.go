package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tetardtek/superoauth/internal/core/domain"
	"github.com/tetardtek/superoauth/internal/core/port"
	"github.com/tetardtek/superoauth/internal/infra/logger"
	"github.com/tetardtek/superoauth/internal/infra/security"
)

const (
	registrationMethodPassword = "password"
	registrationMethodOAuth    = "oauth"
)

// RegistrationService handles new account onboarding with email and password.
type RegistrationService struct {
	users    port.UserRepository
	sessions port.SessionRepository
	tokens   *security.TokenService
	events   port.EventPublisher
	log      *zap.Logger
}

// NewRegistrationService constructs a registration service.
func NewRegistrationService(
	users port.UserRepository,
	sessions port.SessionRepository,
	tokens *security.TokenService,
	events port.EventPublisher,
	log *zap.Logger,
) *RegistrationService {
	return &RegistrationService{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		events:   events,
		log:      log,
	}
}

// RegisterInput carries the registration request payload.
type RegisterInput struct {
	Email     string
	Password  string
	Nickname  string
	IP        *string
	UserAgent *string
}

// Register creates a user with an email/password credential, opens their
// first session, and returns the token pair. The email starts unverified and
// the login counter stays at zero until the first Login.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email, err := domain.NewEmail(input.Email)
	if err != nil {
		return nil, err
	}
	password, err := domain.NewPassword(input.Password)
	if err != nil {
		return nil, err
	}
	nickname, err := domain.NewNickname(input.Nickname)
	if err != nil {
		return nil, err
	}

	if security.PasswordStrength(password.String(), email.String(), nickname.String()) < security.MinPasswordScore {
		return nil, domain.NewValidationError("password", "password is too easy to guess")
	}

	taken, err := s.users.ExistsByEmail(ctx, email.String())
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return nil, ErrEmailTaken
	}

	taken, err = s.users.ExistsByNickname(ctx, nickname.String())
	if err != nil {
		return nil, fmt.Errorf("check nickname: %w", err)
	}
	if taken {
		return nil, ErrNicknameTaken
	}

	passwordHash, err := security.HashPassword(password.String())
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user, err := domain.NewUserWithEmail(uuid.NewString(), email, nickname, passwordHash, now)
	if err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	accessToken, refreshToken, err := issueSession(ctx, s.tokens, s.sessions, user, input.IP, input.UserAgent)
	if err != nil {
		return nil, err
	}

	s.publishRegistered(ctx, user, registrationMethodPassword)

	s.log.Info("user registered",
		zap.String("user_id", user.ID()),
		zap.String("email", logger.MaskEmail(user.Email())),
	)

	return &AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
		User:         toUserDTO(user),
		IsNewUser:    true,
	}, nil
}

func (s *RegistrationService) publishRegistered(ctx context.Context, user *domain.User, method string) {
	if s.events == nil {
		return
	}

	var email *string
	if user.Email() != "" {
		v := user.Email()
		email = &v
	}

	event := domain.UserRegisteredEvent{
		EventID:            uuid.NewString(),
		UserID:             user.ID(),
		Nickname:           user.Nickname(),
		Email:              email,
		RegistrationMethod: method,
		RegisteredAt:       user.CreatedAt(),
	}
	if err := s.events.PublishUserRegistered(ctx, event); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn("publish user registered event", zap.Error(err))
	}
}
