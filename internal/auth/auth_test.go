package auth

import (
	"context"
	"testing"

	"github.com/example/mcatbot/internal/database"
)

func newTestProvider(t *testing.T) (*Provider, *database.UserRepository) {
	t.Helper()
	db, err := database.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	users := database.NewUserRepository(db)
	return NewProvider(users, func(id int64) bool { return id == 1 }, 9), users
}

func TestCurrentUserRegistersOnce(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	first, err := p.CurrentUser(ctx, Identity{TelegramID: 100, Username: "ana"})
	if err != nil {
		t.Fatal(err)
	}
	if first.ID == "" || first.NotificationHour != 9 || !first.NotificationEnabled {
		t.Errorf("unexpected new user: %+v", first)
	}

	p.Forget(100)
	second, err := p.CurrentUser(ctx, Identity{TelegramID: 100, Username: "ana"})
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Errorf("identity not stable: %s != %s", second.ID, first.ID)
	}
}

func TestCurrentUserAdmin(t *testing.T) {
	p, _ := newTestProvider(t)
	u, err := p.CurrentUser(context.Background(), Identity{TelegramID: 1})
	if err != nil {
		t.Fatal(err)
	}
	if !u.IsAdmin {
		t.Error("expected admin flag for configured account")
	}
}

func TestLookup(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	u, err := p.Lookup(ctx, 555)
	if err != nil || u != nil {
		t.Fatalf("expected no user, got %+v, %v", u, err)
	}
	if _, err := p.CurrentUser(ctx, Identity{TelegramID: 555}); err != nil {
		t.Fatal(err)
	}
	p.Forget(555)
	u, err = p.Lookup(ctx, 555)
	if err != nil || u == nil {
		t.Errorf("expected registered user, got %+v, %v", u, err)
	}
}

func TestCurrentUserRequiresTelegramID(t *testing.T) {
	p, _ := newTestProvider(t)
	if _, err := p.CurrentUser(context.Background(), Identity{}); err == nil {
		t.Error("expected error for missing telegram id")
	}
}
