package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/fitcore/fitness-gatekeeper/internal/domain"
	"github.com/fitcore/fitness-gatekeeper/internal/repository/memory"
	apperrors "github.com/fitcore/fitness-gatekeeper/pkg/util/errorutil"
)

const secret = "test-secret"

func newTestApp(handlers ...fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				return c.SendStatus(fiberErr.Code)
			}
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		},
	})
	handlers = append(handlers, func(c *fiber.Ctx) error { return c.SendStatus(http.StatusNoContent) })
	app.Get("/", handlers...)
	return app
}

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager(secret, 5)
	userID := uuid.NewString()
	token, expiresAt, err := tm.GenerateToken(userID, "a@example.com", RoleAdmin)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatal("token already expired")
	}
	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.Subject != userID || claims.Email != "a@example.com" || claims.Role != RoleAdmin {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestParseTokenRejects(t *testing.T) {
	tm := NewTokenManager(secret, 5)

	t.Run("wrong secret", func(t *testing.T) {
		token, _, _ := NewTokenManager("other", 5).GenerateToken(uuid.NewString(), "", "")
		if _, err := tm.ParseToken(token); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("expired", func(t *testing.T) {
		claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}}
		token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		if _, err := tm.ParseToken(token); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("non uuid subject", func(t *testing.T) {
		token, _, _ := tm.GenerateToken("alice", "", "")
		if _, err := tm.ParseToken(token); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestAuthMiddleware(t *testing.T) {
	tm := NewTokenManager(secret, 5)
	store := memory.New()
	mw := NewAuthMiddleware(tm, store.Repositories().Profiles)

	userID := uuid.NewString()
	userToken, _, _ := tm.GenerateToken(userID, "u@example.com", "")
	adminToken, _, _ := tm.GenerateToken(uuid.NewString(), "admin@example.com", RoleAdmin)

	cases := []struct {
		name   string
		header string
		admin  bool
		want   int
	}{
		{"missing header", "", false, http.StatusUnauthorized},
		{"not bearer", "Basic abc", false, http.StatusUnauthorized},
		{"garbage token", "Bearer abc", false, http.StatusUnauthorized},
		{"user", "Bearer " + userToken, false, http.StatusNoContent},
		{"user on admin route", "Bearer " + userToken, true, http.StatusForbidden},
		{"admin", "Bearer " + adminToken, true, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handlers := []fiber.Handler{mw.Handle, RequireUser()}
			if tc.admin {
				handlers = append(handlers, RequireAdmin())
			}
			app := newTestApp(handlers...)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, resp.StatusCode)
			}
		})
	}

	p, ok := store.Profile(userID)
	if !ok || p.SubscriptionTier != domain.TierFree || p.Email != "u@example.com" {
		t.Fatalf("expected profile created on first request, got %+v (%v)", p, ok)
	}
}

func TestRequireOperatorKey(t *testing.T) {
	hash, err := HashSecret("op-key", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashSecret: %v", err)
	}

	cases := []struct {
		name string
		hash string
		key  string
		want int
	}{
		{"valid", hash, "op-key", http.StatusNoContent},
		{"wrong", hash, "nope", http.StatusUnauthorized},
		{"missing", hash, "", http.StatusUnauthorized},
		{"unconfigured", "", "op-key", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(RequireOperatorKey(tc.hash))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.key != "" {
				req.Header.Set(OperatorKeyHeader, tc.key)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, resp.StatusCode)
			}
		})
	}
}
