package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/tetardtek/superoauth/internal/core/domain"
	"github.com/tetardtek/superoauth/internal/repository"
)

type memoryUserRepo struct {
	mu    sync.Mutex
	users map[string]domain.UserRecord
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[string]domain.UserRecord)}
}

func (r *memoryUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID()] = user.Record()
	return nil
}

func (r *memoryUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID()]; !ok {
		return repository.ErrNotFound
	}
	r.users[user.ID()] = user.Record()
	return nil
}

func (r *memoryUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return domain.RestoreUser(rec), nil
}

func (r *memoryUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.users {
		if rec.Email == email && rec.Email != "" {
			return domain.RestoreUser(rec), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryUserRepo) GetByProvider(_ context.Context, provider domain.Provider, providerID string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.users {
		for _, account := range rec.Linked {
			if account.Provider == provider && account.ProviderID == providerID {
				return domain.RestoreUser(rec), nil
			}
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *memoryUserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.users {
		if rec.Email == email && rec.Email != "" {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryUserRepo) ExistsByNickname(_ context.Context, nickname string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.users {
		if strings.EqualFold(rec.Nickname, nickname) {
			return true, nil
		}
	}
	return false, nil
}

type memorySessionRepo struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
}

func newMemorySessionRepo() *memorySessionRepo {
	return &memorySessionRepo{sessions: make(map[string]domain.Session)}
}

func (r *memorySessionRepo) Create(_ context.Context, session domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.TokenHash] = session
	return nil
}

func (r *memorySessionRepo) GetByTokenHash(_ context.Context, tokenHash string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[tokenHash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &session, nil
}

func (r *memorySessionRepo) Rotate(_ context.Context, oldTokenHash string, next domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[oldTokenHash]; !ok {
		return repository.ErrNotFound
	}
	delete(r.sessions, oldTokenHash)
	r.sessions[next.TokenHash] = next
	return nil
}

func (r *memorySessionRepo) DeleteByTokenHash(_ context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[tokenHash]; !ok {
		return repository.ErrNotFound
	}
	delete(r.sessions, tokenHash)
	return nil
}

func (r *memorySessionRepo) DeleteByUser(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for hash, session := range r.sessions {
		if session.UserID == userID {
			delete(r.sessions, hash)
			count++
		}
	}
	return count, nil
}

func (r *memorySessionRepo) DeleteExpired(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	count := 0
	for hash, session := range r.sessions {
		if session.IsExpired(now) {
			delete(r.sessions, hash)
			count++
		}
	}
	return count, nil
}

func (r *memorySessionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

type recordingPublisher struct {
	mu         sync.Mutex
	registered []domain.UserRegisteredEvent
	logins     []domain.UserLoggedInEvent
	linked     []domain.AccountLinkedEvent
	revoked    []domain.SessionRevokedEvent
}

func (p *recordingPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.registered = append(p.registered, event)
	return nil
}

func (p *recordingPublisher) PublishUserLoggedIn(_ context.Context, event domain.UserLoggedInEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logins = append(p.logins, event)
	return nil
}

func (p *recordingPublisher) PublishAccountLinked(_ context.Context, event domain.AccountLinkedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.linked = append(p.linked, event)
	return nil
}

func (p *recordingPublisher) PublishSessionRevoked(_ context.Context, event domain.SessionRevokedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revoked = append(p.revoked, event)
	return nil
}

// stubGateway returns a canned grant and records calls.
type stubGateway struct {
	grant *domain.OAuthGrant
	err   error
}

func (g *stubGateway) GenerateAuthURL(_ context.Context, provider domain.Provider, _ string) (string, string, error) {
	if g.err != nil {
		return "", "", g.err
	}
	return "https://provider.example.com/authorize?provider=" + provider.String(), "state-token", nil
}

func (g *stubGateway) HandleCallback(context.Context, domain.Provider, string, string) (*domain.OAuthGrant, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.grant, nil
}
