package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vanaiyalini/TaskTrail/internal/models"
	"github.com/Vanaiyalini/TaskTrail/testutil"
)

type taskResponse struct {
	Success bool         `json:"success"`
	Task    *models.Task `json:"task"`
}

func decodeTask(t *testing.T, body []byte) *models.Task {
	t.Helper()
	var res taskResponse
	require.NoError(t, json.Unmarshal(body, &res))
	require.True(t, res.Success)
	require.NotNil(t, res.Task)
	return res.Task
}

func decodeTasks(t *testing.T, body []byte) []models.Task {
	t.Helper()
	var tasks []models.Task
	require.NoError(t, json.Unmarshal(body, &tasks))
	return tasks
}

func loginBoth(t *testing.T, env *testutil.TestEnv) (normal, other string) {
	t.Helper()
	normal, err := testutil.LoginAndGetToken(t, env.Router, testutil.NormalUserEmail, testutil.NormalUserPassword)
	require.NoError(t, err)
	other, err = testutil.LoginAndGetToken(t, env.Router, testutil.OtherUserEmail, testutil.OtherUserPassword)
	require.NoError(t, err)
	return normal, other
}

func TestCreateTask_Success(t *testing.T) {
	env := testutil.SetupTestRouter(t)
	token, _ := loginBoth(t, env)

	resp := testutil.DoJSON(t, env.Router, http.MethodPost, "/api/tasks", token, map[string]any{
		"title":       "  Write report ",
		"description": " quarterly ",
		"user":        env.OtherUser.ID,
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	created := decodeTask(t, resp.Body.Bytes())
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Write report", created.Title)
	assert.Equal(t, "quarterly", created.Description)
	assert.Equal(t, models.UrgencyMedium, created.Urgency, "urgency defaults to medium")
	assert.False(t, created.Completed)
	assert.Equal(t, env.NormalUser.ID, created.UserID, "owner comes from the token, not the body")
	assert.False(t, created.CreatedAt.IsZero())
	assert.False(t, created.UpdatedAt.IsZero())
}

func TestCreateTask_Validation(t *testing.T) {
	env := testutil.SetupTestRouter(t)
	token, _ := loginBoth(t, env)

	tests := []struct {
		name    string
		payload map[string]any
	}{
		{"missing title", map[string]any{"description": "x"}},
		{"whitespace title", map[string]any{"title": "   "}},
		{"unknown urgency", map[string]any{"title": "x", "urgency": "urgent"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := testutil.DoJSON(t, env.Router, http.MethodPost, "/api/tasks", token, tt.payload)
			assert.Equal(t, http.StatusBadRequest, resp.Code)
			code, _ := testutil.DecodeError(t, resp)
			assert.Equal(t, "validation_error", code)
		})
	}

	list := testutil.DoJSON(t, env.Router, http.MethodGet, "/api/tasks", token, nil)
	assert.Empty(t, decodeTasks(t, list.Body.Bytes()), "rejected tasks must not be stored")
}

func TestCreateTask_Unauthenticated(t *testing.T) {
	env := testutil.SetupTestRouter(t)

	resp := testutil.DoJSON(t, env.Router, http.MethodPost, "/api/tasks", "", map[string]any{"title": "x"})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	code, message := testutil.DecodeError(t, resp)
	assert.Equal(t, "unauthenticated", code)
	assert.Equal(t, "Not authorized, no token provided", message)
}

func TestGetTasks_OwnerScopedAndSorted(t *testing.T) {
	env := testutil.SetupTestRouter(t)
	normal, other := loginBoth(t, env)

	first := testutil.CreateTestTask(t, env.Router, normal, "first", "low")
	second := testutil.CreateTestTask(t, env.Router, normal, "second", "high")
	testutil.CreateTestTask(t, env.Router, other, "someone else's", "high")

	resp := testutil.DoJSON(t, env.Router, http.MethodGet, "/api/tasks", normal, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	tasks := decodeTasks(t, resp.Body.Bytes())

	require.Len(t, tasks, 2)
	assert.Equal(t, second.ID, tasks[0].ID, "newest first")
	assert.Equal(t, first.ID, tasks[1].ID)
	for _, task := range tasks {
		assert.Equal(t, env.NormalUser.ID, task.UserID)
	}
}

func TestGetTasks_EmptyIsArray(t *testing.T) {
	env := testutil.SetupTestRouter(t)
	token, _ := loginBoth(t, env)

	resp := testutil.DoJSON(t, env.Router, http.MethodGet, "/api/tasks", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, "[]", resp.Body.String())
}

func TestGetTasks_Filters(t *testing.T) {
	env := testutil.SetupTestRouter(t)
	token, _ := loginBoth(t, env)

	low := testutil.CreateTestTask(t, env.Router, token, "low", "low")
	high := testutil.CreateTestTask(t, env.Router, token, "high", "high")
	done := testutil.DoJSON(t, env.Router, http.MethodPut, "/api/tasks/"+high.ID, token, map[string]any{"completed": true})
	require.Equal(t, http.StatusOK, done.Code)

	tests := []struct {
		name   string
		query  string
		status int
		ids    []string
	}{
		{"urgency", "?urgency=low", http.StatusOK, []string{low.ID}},
		{"urgency is case sensitive", "?urgency=HIGH", http.StatusBadRequest, nil},
		{"completed", "?completed=true", http.StatusOK, []string{high.ID}},
		{"not completed", "?completed=false", http.StatusOK, []string{low.ID}},
		{"combined", "?urgency=high&completed=false", http.StatusOK, []string{}},
		{"empty values ignored", "?urgency=&completed=", http.StatusOK, []string{high.ID, low.ID}},
		{"unknown urgency", "?urgency=urgent", http.StatusBadRequest, nil},
		{"non-boolean completed", "?completed=maybe", http.StatusBadRequest, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := testutil.DoJSON(t, env.Router, http.MethodGet, "/api/tasks"+tt.query, token, nil)
			require.Equal(t, tt.status, resp.Code, resp.Body.String())
			if tt.status != http.StatusOK {
				code, _ := testutil.DecodeError(t, resp)
				assert.Equal(t, "validation_error", code)
				return
			}
			ids := make([]string, 0)
			for _, task := range decodeTasks(t, resp.Body.Bytes()) {
				ids = append(ids, task.ID)
			}
			assert.Equal(t, tt.ids, ids)
		})
	}
}

func TestGetTaskByID(t *testing.T) {
	env := testutil.SetupTestRouter(t)
	normal, other := loginBoth(t, env)
	task := testutil.CreateTestTask(t, env.Router, normal, "mine", "")

	t.Run("owner", func(t *testing.T) {
		resp := testutil.DoJSON(t, env.Router, http.MethodGet, "/api/tasks/"+task.ID, normal, nil)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, task.ID, decodeTask(t, resp.Body.Bytes()).ID)
	})
	t.Run("non-owner", func(t *testing.T) {
		resp := testutil.DoJSON(t, env.Router, http.MethodGet, "/api/tasks/"+task.ID, other, nil)
		assert.Equal(t, http.StatusForbidden, resp.Code)
	})
	t.Run("malformed id", func(t *testing.T) {
		resp := testutil.DoJSON(t, env.Router, http.MethodGet, "/api/tasks/not-an-id", normal, nil)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		code, _ := testutil.DecodeError(t, resp)
		assert.Equal(t, "invalid_id", code)
	})
	t.Run("missing", func(t *testing.T) {
		resp := testutil.DoJSON(t, env.Router, http.MethodGet, "/api/tasks/"+uuid.NewString(), normal, nil)
		assert.Equal(t, http.StatusNotFound, resp.Code)
		code, message := testutil.DecodeError(t, resp)
		assert.Equal(t, "not_found", code)
		assert.Equal(t, "Task not found", message)
	})
}

func TestUpdateTask_PartialUpdate(t *testing.T) {
	env := testutil.SetupTestRouter(t)
	token, _ := loginBoth(t, env)
	task := testutil.CreateTestTask(t, env.Router, token, "original", "low")

	t.Run("whitespace title is ignored", func(t *testing.T) {
		resp := testutil.DoJSON(t, env.Router, http.MethodPut, "/api/tasks/"+task.ID, token, map[string]any{"title": "   "})
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "original", decodeTask(t, resp.Body.Bytes()).Title)
	})

	t.Run("ill-typed fields are ignored", func(t *testing.T) {
		resp := testutil.DoJSON(t, env.Router, http.MethodPut, "/api/tasks/"+task.ID, token, map[string]any{
			"completed": "yes",
			"title":     42,
			"urgency":   "urgent",
		})
		require.Equal(t, http.StatusOK, resp.Code)
		updated := decodeTask(t, resp.Body.Bytes())
		assert.False(t, updated.Completed)
		assert.Equal(t, "original", updated.Title)
		assert.Equal(t, models.UrgencyLow, updated.Urgency)
	})

	t.Run("valid fields are applied", func(t *testing.T) {
		resp := testutil.DoJSON(t, env.Router, http.MethodPut, "/api/tasks/"+task.ID, token, map[string]any{
			"title":       " renamed ",
			"description": "details",
			"urgency":     "high",
			"completed":   true,
		})
		require.Equal(t, http.StatusOK, resp.Code)
		updated := decodeTask(t, resp.Body.Bytes())
		assert.Equal(t, "renamed", updated.Title)
		assert.Equal(t, "details", updated.Description)
		assert.Equal(t, models.UrgencyHigh, updated.Urgency)
		assert.True(t, updated.Completed)
		assert.Equal(t, task.CreatedAt.UTC(), updated.CreatedAt.UTC())
		assert.Equal(t, env.NormalUser.ID, updated.UserID)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		resp := testutil.DoJSON(t, env.Router, http.MethodPut, "/api/tasks/"+task.ID, token, []int{1, 2})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})
}

func TestUpdateTask_NonOwnerForbidden(t *testing.T) {
	env := testutil.SetupTestRouter(t)
	normal, other := loginBoth(t, env)
	task := testutil.CreateTestTask(t, env.Router, normal, "mine", "low")

	resp := testutil.DoJSON(t, env.Router, http.MethodPut, "/api/tasks/"+task.ID, other, map[string]any{"title": "hijacked", "completed": true})
	assert.Equal(t, http.StatusForbidden, resp.Code)
	code, _ := testutil.DecodeError(t, resp)
	assert.Equal(t, "forbidden", code)

	check := testutil.DoJSON(t, env.Router, http.MethodGet, "/api/tasks/"+task.ID, normal, nil)
	require.Equal(t, http.StatusOK, check.Code)
	unchanged := decodeTask(t, check.Body.Bytes())
	assert.Equal(t, "mine", unchanged.Title)
	assert.False(t, unchanged.Completed)
}

func TestDeleteTask(t *testing.T) {
	env := testutil.SetupTestRouter(t)
	normal, other := loginBoth(t, env)
	task := testutil.CreateTestTask(t, env.Router, normal, "to delete", "")

	resp := testutil.DoJSON(t, env.Router, http.MethodDelete, "/api/tasks/"+task.ID, other, nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = testutil.DoJSON(t, env.Router, http.MethodDelete, "/api/tasks/"+task.ID, normal, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"success":true,"message":"Task removed"}`, resp.Body.String())

	resp = testutil.DoJSON(t, env.Router, http.MethodDelete, "/api/tasks/"+task.ID, normal, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestTaskLifecycle(t *testing.T) {
	env := testutil.SetupTestRouter(t)

	reg := testutil.DoJSON(t, env.Router, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name":     "Scenario",
		"email":    "scenario@example.com",
		"password": "scenario-pass",
	})
	require.Equal(t, http.StatusCreated, reg.Code, reg.Body.String())

	token, err := testutil.LoginAndGetToken(t, env.Router, "scenario@example.com", "scenario-pass")
	require.NoError(t, err)

	task := testutil.CreateTestTask(t, env.Router, token, "Buy milk", "")
	assert.Equal(t, models.UrgencyMedium, task.Urgency)
	assert.False(t, task.Completed)

	list := testutil.DoJSON(t, env.Router, http.MethodGet, "/api/tasks", token, nil)
	require.Equal(t, http.StatusOK, list.Code)
	tasks := decodeTasks(t, list.Body.Bytes())
	require.Len(t, tasks, 1)
	assert.Equal(t, "Buy milk", tasks[0].Title)
	assert.Equal(t, models.UrgencyMedium, tasks[0].Urgency)
	assert.False(t, tasks[0].Completed)

	upd := testutil.DoJSON(t, env.Router, http.MethodPut, "/api/tasks/"+task.ID, token, map[string]any{"completed": true})
	require.Equal(t, http.StatusOK, upd.Code)
	assert.True(t, decodeTask(t, upd.Body.Bytes()).Completed)

	del := testutil.DoJSON(t, env.Router, http.MethodDelete, "/api/tasks/"+task.ID, token, nil)
	require.Equal(t, http.StatusOK, del.Code)

	list = testutil.DoJSON(t, env.Router, http.MethodGet, "/api/tasks", token, nil)
	require.Equal(t, http.StatusOK, list.Code)
	assert.Empty(t, decodeTasks(t, list.Body.Bytes()))
}

func TestHealth(t *testing.T) {
	env := testutil.SetupTestRouter(t)

	resp := testutil.DoJSON(t, env.Router, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"status":"OK"`)

	resp = testutil.DoJSON(t, env.Router, http.MethodGet, "/api/health/db", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"status":"OK"`)
}
