// Package auth maps Telegram accounts to stable user identities.
package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/example/mcatbot/internal/database"
	"github.com/example/mcatbot/pkg/models"
)

// Identity is what the transport knows about the person talking to the bot
type Identity struct {
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
}

// Provider resolves identities to users, registering new accounts on first contact
type Provider struct {
	users       *database.UserRepository
	isAdmin     func(telegramID int64) bool
	defaultHour int

	mu    sync.RWMutex
	cache map[int64]*models.User
}

// NewProvider creates a provider. isAdmin may be nil.
func NewProvider(users *database.UserRepository, isAdmin func(int64) bool, defaultHour int) *Provider {
	if isAdmin == nil {
		isAdmin = func(int64) bool { return false }
	}
	return &Provider{
		users:       users,
		isAdmin:     isAdmin,
		defaultHour: defaultHour,
		cache:       make(map[int64]*models.User),
	}
}

// CurrentUser returns the user registered for the identity, creating it when unknown
func (p *Provider) CurrentUser(ctx context.Context, id Identity) (*models.User, error) {
	if id.TelegramID == 0 {
		return nil, fmt.Errorf("failed to resolve user: missing telegram id")
	}
	if u := p.cached(id.TelegramID); u != nil {
		return u, nil
	}

	user, err := p.users.GetByTelegramID(ctx, id.TelegramID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		user = &models.User{
			TelegramID:          id.TelegramID,
			Username:            id.Username,
			FirstName:           id.FirstName,
			LastName:            id.LastName,
			IsAdmin:             p.isAdmin(id.TelegramID),
			NotificationEnabled: true,
			NotificationHour:    p.defaultHour,
		}
		if err := p.users.Create(ctx, user); err != nil {
			return nil, err
		}
	}
	p.store(user)
	return user, nil
}

// Lookup returns the user of a Telegram account, or nil when it never contacted the bot
func (p *Provider) Lookup(ctx context.Context, telegramID int64) (*models.User, error) {
	if u := p.cached(telegramID); u != nil {
		return u, nil
	}
	user, err := p.users.GetByTelegramID(ctx, telegramID)
	if err != nil || user == nil {
		return nil, err
	}
	p.store(user)
	return user, nil
}

// Forget drops the cached copy so the next call rereads the store
func (p *Provider) Forget(telegramID int64) {
	p.mu.Lock()
	delete(p.cache, telegramID)
	p.mu.Unlock()
}

// IsAdmin reports whether the account may use admin commands
func (p *Provider) IsAdmin(telegramID int64) bool {
	return p.isAdmin(telegramID)
}

func (p *Provider) cached(telegramID int64) *models.User {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cache[telegramID]
}

func (p *Provider) store(u *models.User) {
	p.mu.Lock()
	p.cache[u.TelegramID] = u
	p.mu.Unlock()
}
