package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"loyalty/internal/server/config"
	"loyalty/internal/server/repository/sqlite"
	sm "loyalty/internal/shared/models"
)

func newServices(t *testing.T, name string) *Services {
	t.Helper()
	repo, err := sqlite.New("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return NewServices(repo, config.Config{JWTSecret: "test"}, nil)
}

func TestAuthRegisterLogin(t *testing.T) {
	svcs := newServices(t, "svc_auth_login")
	ctx := context.Background()
	reg, err := svcs.Auth.Register(ctx, sm.RegisterRequest{Username: "alice", Password: "pass", EmailAddress: "a@x"})
	if err != nil || reg.AccessToken == "" || reg.TokenType != "bearer" {
		t.Fatalf("register: %+v %v", reg, err)
	}
	if _, err := svcs.Auth.Register(ctx, sm.RegisterRequest{Username: "alice", Password: "x"}); !errors.Is(err, ErrConflict) || err.Error() != "Username already exists" {
		t.Fatalf("duplicate register: %v", err)
	}
	if _, err := svcs.Auth.Register(ctx, sm.RegisterRequest{Username: " ", Password: "x"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank username: %v", err)
	}

	tok, err := svcs.Auth.Login(ctx, "alice", "pass")
	if err != nil || tok.AccessToken == "" {
		t.Fatalf("login failed: %v", err)
	}
	if tok.AccessToken == reg.AccessToken {
		t.Fatalf("tokens must be unique per issue")
	}
	if _, err := svcs.Auth.Login(ctx, "alice", "wrong"); !errors.Is(err, ErrUnauthenticated) || err.Error() != "Invalid credentials" {
		t.Fatalf("wrong password: %v", err)
	}
	if _, err := svcs.Auth.Login(ctx, "nobody", "pass"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("unknown user: %v", err)
	}

	u, err := svcs.Auth.Authenticate(ctx, tok.AccessToken)
	if err != nil || u.Username != "alice" || u.IsBusinessOwner {
		t.Fatalf("authenticate: %+v %v", u, err)
	}
}

func TestLogoutRevokesOnlyThatToken(t *testing.T) {
	svcs := newServices(t, "svc_logout")
	ctx := context.Background()
	first, err := svcs.Auth.Register(ctx, sm.RegisterRequest{Username: "bob", Password: "pw"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := svcs.Auth.Login(ctx, "bob", "pw")
	if err != nil {
		t.Fatal(err)
	}
	if err := svcs.Auth.Logout(ctx, first.AccessToken); err != nil {
		t.Fatal(err)
	}
	if _, err := svcs.Auth.Authenticate(ctx, first.AccessToken); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("revoked token accepted: %v", err)
	}
	if _, err := svcs.Auth.Authenticate(ctx, second.AccessToken); err != nil {
		t.Fatalf("other token rejected: %v", err)
	}
	if err := svcs.Auth.Logout(ctx, "garbage"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("garbage logout: %v", err)
	}
}

func TestTokenExpiry(t *testing.T) {
	svcs := newServices(t, "svc_expiry")
	ctx := context.Background()
	tok, err := svcs.Auth.Register(ctx, sm.RegisterRequest{Username: "carol", Password: "pw"})
	if err != nil {
		t.Fatal(err)
	}
	svcs.Auth.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := svcs.Auth.Authenticate(ctx, tok.AccessToken); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expired token accepted: %v", err)
	}

	if err := svcs.Auth.repo.RevokeToken(ctx, "old", time.Now()); err != nil {
		t.Fatal(err)
	}
	if n, err := svcs.Auth.PurgeRevoked(ctx); err != nil || n != 1 {
		t.Fatalf("purge: %d %v", n, err)
	}
}
