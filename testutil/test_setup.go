// Package testutil はハンドラーテスト用のルーターとヘルパーを提供します。
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/Vanaiyalini/TaskTrail/internal/config"
	"github.com/Vanaiyalini/TaskTrail/internal/database"
	"github.com/Vanaiyalini/TaskTrail/internal/models"
	"github.com/Vanaiyalini/TaskTrail/internal/repositories"
	"github.com/Vanaiyalini/TaskTrail/internal/routes"
	"github.com/Vanaiyalini/TaskTrail/internal/services"
)

const (
	TestJWTSecret = "test-secret"

	NormalUserEmail    = "normal_user@example.com"
	NormalUserPassword = "password123"
	OtherUserEmail     = "other_user@example.com"
	OtherUserPassword  = "password456"
)

// TestEnv はテスト用のルーターとストアをまとめます。
type TestEnv struct {
	Router     *gin.Engine
	Store      *database.Store
	Users      *repositories.MemoryUserRepo
	JWTService *services.JWTService
	NormalUser *models.User
	OtherUser  *models.User
}

var (
	hashOnce   sync.Once
	seedHashes map[string]string
)

// seedHash はbcryptのコストが高いため、シード用のハッシュを一度だけ計算します。
func seedHash(t *testing.T, password string) string {
	t.Helper()
	hashOnce.Do(func() {
		seedHashes = make(map[string]string)
		for _, p := range []string{NormalUserPassword, OtherUserPassword} {
			h, err := repositories.HashPassword(p)
			if err != nil {
				panic(err)
			}
			seedHashes[p] = h
		}
	})
	h, ok := seedHashes[password]
	require.True(t, ok, "no seed hash for password")
	return h
}

// SetupTestRouter はメモリストアを使うテスト用のGinルーターをセットアップし、テストユーザーを投入します。
func SetupTestRouter(t *testing.T) *TestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := database.NewMemoryStore()
	users, ok := store.Users.(*repositories.MemoryUserRepo)
	require.True(t, ok)

	jwtService, err := services.NewJWTService(TestJWTSecret, time.Hour)
	require.NoError(t, err)

	cfg := config.Config{
		Env:        "test",
		ClientURLs: []string{"http://localhost:3000"},
		DB:         config.DBConfig{Driver: config.DriverMemory},
		Auth:       config.AuthConfig{JWTSecret: TestJWTSecret, JWTExpire: "1h"},
	}

	env := &TestEnv{
		Router:     routes.SetupRouter(cfg, store, jwtService, log),
		Store:      store,
		Users:      users,
		JWTService: jwtService,
	}
	env.NormalUser = CreateTestUser(t, users, "Normal User", NormalUserEmail, NormalUserPassword)
	env.OtherUser = CreateTestUser(t, users, "Other User", OtherUserEmail, OtherUserPassword)
	return env
}

// CreateTestUser はリポジトリに直接ユーザーを作成します。
func CreateTestUser(t *testing.T, userRepo repositories.UserRepository, name, email, password string) *models.User {
	t.Helper()
	createdUser, err := userRepo.Create(context.Background(), &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: seedHash(t, password),
	})
	require.NoError(t, err)
	require.NotEmpty(t, createdUser.ID)
	return createdUser
}

// DoJSON はJSONリクエストを送り、レスポンスを返します。token が空の場合Authorizationヘッダーを付けません。
func DoJSON(t *testing.T, router http.Handler, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

// CreateTestTask はAPI経由でタスクを作成します。
func CreateTestTask(t *testing.T, router http.Handler, token, title, urgency string) *models.Task {
	t.Helper()
	payload := map[string]any{"title": title}
	if urgency != "" {
		payload["urgency"] = urgency
	}
	resp := DoJSON(t, router, http.MethodPost, "/api/tasks", token, payload)
	require.Equal(t, http.StatusCreated, resp.Code, "タスク作成に失敗しました: %s", resp.Body.String())

	var created struct {
		Success bool         `json:"success"`
		Task    *models.Task `json:"task"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	require.True(t, created.Success)
	require.NotNil(t, created.Task)
	return created.Task
}

// LoginAndGetToken はログインしてトークンを返します。
func LoginAndGetToken(t *testing.T, router http.Handler, email, password string) (string, error) {
	t.Helper()
	resp := DoJSON(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if resp.Code != http.StatusOK {
		return "", fmt.Errorf("login failed with status %d: %s", resp.Code, resp.Body.String())
	}

	var loginRes map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &loginRes); err != nil {
		return "", fmt.Errorf("failed to unmarshal login response: %w", err)
	}
	token, ok := loginRes["token"].(string)
	if !ok {
		return "", errors.New("token not found or not a string in login response")
	}
	return token, nil
}

// DecodeError はエラーレスポンスのcodeとerrorを返します。
func DecodeError(t *testing.T, resp *httptest.ResponseRecorder) (code, message string) {
	t.Helper()
	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		Code    string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body), resp.Body.String())
	require.False(t, body.Success)
	return body.Code, body.Error
}
