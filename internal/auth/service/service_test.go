package service

import (
	"context"
	"errors"
	"testing"
	"time"

	authdomain "github.com/smallbiznis/invoicenexus/internal/auth/domain"
	"github.com/smallbiznis/invoicenexus/internal/auth/repository"
	"github.com/smallbiznis/invoicenexus/internal/clock"
	"github.com/smallbiznis/invoicenexus/internal/gateway/gatewaytest"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (authdomain.Service, *clock.FakeClock) {
	t.Helper()

	repo, sessionRepo := repository.New(gatewaytest.NewDB(t))
	fake := clock.NewFakeClock(gatewaytest.Epoch)
	svc := New(Params{
		Log:         zap.NewNop(),
		Repo:        repo,
		SessionRepo: sessionRepo,
		GenID:       gatewaytest.NewNode(t),
		Clock:       fake,
	})
	return svc, fake
}

func createUser(t *testing.T, svc authdomain.Service, email string) *authdomain.User {
	t.Helper()

	user, err := svc.CreateUser(context.Background(), authdomain.CreateUserRequest{
		Email:    email,
		Password: "correct-password",
	})
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func login(t *testing.T, svc authdomain.Service, email string) *authdomain.LoginResult {
	t.Helper()

	result, err := svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    email,
		Password: "correct-password",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return result
}

func TestCreateUserNormalizesEmail(t *testing.T) {
	svc, _ := newTestService(t)

	user := createUser(t, svc, "  Alice@Example.com ")
	if user.Email != "alice@example.com" {
		t.Fatalf("expected lowercased email, got %q", user.Email)
	}
	if user.DisplayName != "alice" {
		t.Fatalf("expected display name from email, got %q", user.DisplayName)
	}
	if user.PasswordHash == "correct-password" {
		t.Fatal("password stored in clear text")
	}
}

func TestCreateUserRejectsDuplicateAndWeakPassword(t *testing.T) {
	svc, _ := newTestService(t)
	createUser(t, svc, "alice@example.com")

	_, err := svc.CreateUser(context.Background(), authdomain.CreateUserRequest{
		Email:    "ALICE@example.com",
		Password: "another-password",
	})
	if !errors.Is(err, authdomain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}

	_, err = svc.CreateUser(context.Background(), authdomain.CreateUserRequest{
		Email:    "bob@example.com",
		Password: "short",
	})
	if !errors.Is(err, authdomain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestService(t)
	createUser(t, svc, "alice@example.com")

	_, err := svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong-password",
	})
	if !errors.Is(err, authdomain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	_, err = svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "nobody@example.com",
		Password: "correct-password",
	})
	if !errors.Is(err, authdomain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestLoginAuthenticateLogout(t *testing.T) {
	svc, _ := newTestService(t)
	user := createUser(t, svc, "alice@example.com")
	result := login(t, svc, "alice@example.com")

	if result.RawToken == "" || result.SessionID == "" {
		t.Fatalf("expected token and session id, got %+v", result)
	}
	if !result.ExpiresAt.Equal(gatewaytest.Epoch.Add(7 * 24 * time.Hour)) {
		t.Fatalf("unexpected expiry %s", result.ExpiresAt)
	}

	session, err := svc.Authenticate(context.Background(), result.RawToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if session.UserID != user.ID {
		t.Fatalf("expected session for %s, got %s", user.ID, session.UserID)
	}
	if session.TokenHash != HashToken(result.RawToken) {
		t.Fatal("expected hashed token to be stored")
	}

	current, err := svc.CurrentUser(context.Background(), session.UserID)
	if err != nil || current.Email != "alice@example.com" {
		t.Fatalf("current user: %v %+v", err, current)
	}

	if err := svc.Logout(context.Background(), result.RawToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), result.RawToken); !errors.Is(err, authdomain.ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked, got %v", err)
	}
}

func TestAuthenticateExpiredAndUnknown(t *testing.T) {
	svc, fake := newTestService(t)
	createUser(t, svc, "alice@example.com")
	result := login(t, svc, "alice@example.com")

	fake.Advance(7*24*time.Hour + time.Second)
	if _, err := svc.Authenticate(context.Background(), result.RawToken); !errors.Is(err, authdomain.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "unknown"); !errors.Is(err, authdomain.ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "  "); !errors.Is(err, authdomain.ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession for blank token, got %v", err)
	}
}
