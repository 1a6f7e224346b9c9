package routes_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vanaiyalini/TaskTrail/internal/config"
	"github.com/Vanaiyalini/TaskTrail/internal/database"
	"github.com/Vanaiyalini/TaskTrail/internal/routes"
	"github.com/Vanaiyalini/TaskTrail/internal/services"
	"github.com/Vanaiyalini/TaskTrail/testutil"
)

func TestAuthMiddleware_ValidToken(t *testing.T) {
	env := testutil.SetupTestRouter(t)
	token, err := testutil.LoginAndGetToken(t, env.Router, testutil.NormalUserEmail, testutil.NormalUserPassword)
	require.NoError(t, err)

	resp := testutil.DoJSON(t, env.Router, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), testutil.NormalUserEmail)
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	env := testutil.SetupTestRouter(t)

	expiredIssuer, err := services.NewJWTService(testutil.TestJWTSecret, time.Hour,
		services.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }))
	require.NoError(t, err)
	expired, err := expiredIssuer.GenerateToken(env.NormalUser.ID)
	require.NoError(t, err)

	otherSecret, err := services.NewJWTService("another-secret", time.Hour)
	require.NoError(t, err)
	forged, err := otherSecret.GenerateToken(env.NormalUser.ID)
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"id":  env.NormalUser.ID,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name    string
		header  string
		code    string
		message string
	}{
		{"no header", "", "unauthenticated", "Not authorized, no token provided"},
		{"wrong scheme", "Basic abc", "unauthenticated", "Not authorized, no token provided"},
		{"empty bearer", "Bearer ", "unauthenticated", "Not authorized, no token provided"},
		{"malformed", "Bearer invalid.jwt.token", "invalid_token", "Not authorized, invalid token"},
		{"wrong signature", "Bearer " + forged, "invalid_token", "Not authorized, invalid token"},
		{"alg none", "Bearer " + noneToken, "invalid_token", "Not authorized, invalid token"},
		{"expired", "Bearer " + expired, "token_expired", "Token expired. Please login again."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp := httptest.NewRecorder()
			env.Router.ServeHTTP(resp, req)

			assert.Equal(t, http.StatusUnauthorized, resp.Code)
			code, message := testutil.DecodeError(t, resp)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.message, message)
		})
	}
}

func TestAuthMiddleware_StaleIdentity(t *testing.T) {
	env := testutil.SetupTestRouter(t)
	token, err := testutil.LoginAndGetToken(t, env.Router, testutil.NormalUserEmail, testutil.NormalUserPassword)
	require.NoError(t, err)

	env.Users.Delete(env.NormalUser.ID)

	resp := testutil.DoJSON(t, env.Router, http.MethodGet, "/api/tasks", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	code, message := testutil.DecodeError(t, resp)
	assert.Equal(t, "stale_identity", code)
	assert.Equal(t, "User no longer exists", message)
}

func TestRequestID(t *testing.T) {
	env := testutil.SetupTestRouter(t)

	resp := testutil.DoJSON(t, env.Router, http.MethodGet, "/api/health", "", nil)
	assert.NotEmpty(t, resp.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "client-supplied")
	rec := httptest.NewRecorder()
	env.Router.ServeHTTP(rec, req)
	assert.Equal(t, "client-supplied", rec.Header().Get("X-Request-ID"))
}

func TestCORS_AllowedOrigin(t *testing.T) {
	env := testutil.SetupTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/tasks", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	env.Router.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_SpacedOriginList(t *testing.T) {
	jwtService, err := services.NewJWTService(testutil.TestJWTSecret, time.Hour)
	require.NoError(t, err)
	cfg := config.Config{
		ClientURLs: []string{"http://localhost:3000", " http://localhost:5173", ""},
		DB:         config.DBConfig{Driver: config.DriverMemory},
		Auth:       config.AuthConfig{JWTSecret: testutil.TestJWTSecret, JWTExpire: "1h"},
	}

	var router http.Handler
	require.NotPanics(t, func() {
		router = routes.SetupRouter(cfg, database.NewMemoryStore(), jwtService, slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/tasks", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSecurityHeaders(t *testing.T) {
	env := testutil.SetupTestRouter(t)

	for _, path := range []string{"/api/health", "/api/tasks", "/api/nowhere"} {
		t.Run(path, func(t *testing.T) {
			resp := testutil.DoJSON(t, env.Router, http.MethodGet, path, "", nil)
			assert.Equal(t, "nosniff", resp.Header().Get("X-Content-Type-Options"))
			assert.Equal(t, "DENY", resp.Header().Get("X-Frame-Options"))
			assert.Equal(t, "no-referrer", resp.Header().Get("Referrer-Policy"))
			assert.NotEmpty(t, resp.Header().Get("Content-Security-Policy"))
		})
	}
}
