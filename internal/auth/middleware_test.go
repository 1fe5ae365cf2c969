package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAPIKey(t *testing.T) {
	handler := RequireAPIKey("secret")(okHandler())

	cases := []struct {
		name   string
		key    string
		status int
	}{
		{"valid key", "secret", http.StatusOK},
		{"missing key", "", http.StatusUnauthorized},
		{"wrong key", "wrong", http.StatusUnauthorized},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/match/candidates", nil)
			if c.key != "" {
				req.Header.Set(APIKeyHeader, c.key)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != c.status {
				t.Errorf("expected %d, got %d", c.status, rec.Code)
			}
		})
	}
}

func TestRequireAPIKey_DisabledWhenUnconfigured(t *testing.T) {
	handler := RequireAPIKey("")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("empty configured key should disable the check, got %d", rec.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	manager := NewJWTManager(DefaultJWTConfig("test-secret"))
	handler := RequireAdmin(manager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok || !claims.IsAdmin() {
			t.Error("admin claims should be in the request context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	token, err := manager.GenerateToken("ops@example.com")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/profiles/x", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("valid admin token rejected with %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/profiles/x", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing token should be unauthorized, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/profiles/x", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("garbage token should be unauthorized, got %d", rec.Code)
	}
}

func TestRequireAdmin_ExpiredToken(t *testing.T) {
	cfg := DefaultJWTConfig("test-secret")
	cfg.Expiry = -time.Minute
	manager := NewJWTManager(cfg)

	token, err := manager.GenerateToken("ops@example.com")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	handler := RequireAdmin(NewJWTManager(DefaultJWTConfig("test-secret")))(okHandler())

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/profiles/x", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expired token should be unauthorized, got %d", rec.Code)
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	manager := NewJWTManager(DefaultJWTConfig("secret-a"))
	token, err := manager.GenerateToken("ops")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	other := NewJWTManager(DefaultJWTConfig("secret-b"))
	if _, err := other.ValidateToken(token); err == nil {
		t.Error("token signed with a different secret should not validate")
	}
}
