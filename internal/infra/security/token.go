package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var (
	// ErrTokenInvalid covers malformed tokens, bad signatures, and tokens
	// signed for the other token class.
	ErrTokenInvalid = errors.New("token: invalid token")
	// ErrTokenExpired indicates a structurally valid but expired token.
	ErrTokenExpired = errors.New("token: token expired")
)

// GenerateSecureToken returns a base64 URL-safe random string using the specified number of random bytes.
func GenerateSecureToken(byteLength int) (string, error) {
	if byteLength <= 0 {
		return "", fmt.Errorf("length must be positive")
	}

	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashToken calculates a SHA-256 hash of the provided value.
func HashToken(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// tokenClaims carry a type discriminator so an access token can never be
// presented where a refresh token is expected, and vice versa.
type tokenClaims struct {
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// TokenServiceConfig holds the signing material and lifetimes for both token
// classes. Access and refresh tokens are signed with distinct secrets.
type TokenServiceConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Audience      string
}

// TokenService mints and verifies the HS256 access and refresh tokens issued
// by the service.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	audience      string
}

// NewTokenService validates the configuration and builds a TokenService.
func NewTokenService(cfg TokenServiceConfig) (*TokenService, error) {
	if strings.TrimSpace(cfg.AccessSecret) == "" {
		return nil, fmt.Errorf("token: access secret is required")
	}
	if strings.TrimSpace(cfg.RefreshSecret) == "" {
		return nil, fmt.Errorf("token: refresh secret is required")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, fmt.Errorf("token: access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 {
		return nil, fmt.Errorf("token: access ttl must be positive")
	}
	if cfg.RefreshTTL <= 0 {
		return nil, fmt.Errorf("token: refresh ttl must be positive")
	}
	if strings.TrimSpace(cfg.Audience) == "" {
		return nil, fmt.Errorf("token: audience is required")
	}

	return &TokenService{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		issuer:        strings.TrimSpace(cfg.Issuer),
		audience:      strings.TrimSpace(cfg.Audience),
	}, nil
}

// AccessTTL returns the configured access token lifetime.
func (s *TokenService) AccessTTL() time.Duration {
	return s.accessTTL
}

// RefreshTTL returns the configured refresh token lifetime.
func (s *TokenService) RefreshTTL() time.Duration {
	return s.refreshTTL
}

// GenerateAccessToken mints a short-lived access token for the given user.
func (s *TokenService) GenerateAccessToken(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", fmt.Errorf("token: user id is required")
	}

	now := time.Now().UTC()
	claims := &tokenClaims{
		TokenType: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.accessSecret)
	if err != nil {
		return "", fmt.Errorf("token: sign access token: %w", err)
	}
	return signed, nil
}

// GenerateRefreshToken mints a refresh token and returns it along with its
// jti and expiry. The caller persists only the SHA-256 hash of the token.
func (s *TokenService) GenerateRefreshToken(userID string) (token string, jti string, expiresAt time.Time, err error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", "", time.Time{}, fmt.Errorf("token: user id is required")
	}

	now := time.Now().UTC()
	expiresAt = now.Add(s.refreshTTL)
	jti = uuid.NewString()
	claims := &tokenClaims{
		TokenType: tokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        jti,
		},
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.refreshSecret)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("token: sign refresh token: %w", err)
	}
	return token, jti, expiresAt, nil
}

// VerifyAccessToken validates signature, expiry, and token class, and returns
// the subject user id.
func (s *TokenService) VerifyAccessToken(token string) (string, error) {
	claims, err := s.parse(token, s.accessSecret, tokenTypeAccess)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// VerifyRefreshToken validates signature, expiry, and token class, and
// returns the subject user id and the token's jti.
func (s *TokenService) VerifyRefreshToken(token string) (userID string, jti string, err error) {
	claims, err := s.parse(token, s.refreshSecret, tokenTypeRefresh)
	if err != nil {
		return "", "", err
	}
	return claims.Subject, claims.ID, nil
}

func (s *TokenService) parse(token string, secret []byte, wantType string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithAudience(s.audience))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.TokenType != wantType {
		return nil, ErrTokenInvalid
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
