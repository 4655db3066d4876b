package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"task-assigner/internal/audit"
	"task-assigner/internal/auth"
	"task-assigner/internal/config"
	"task-assigner/internal/models"
	"task-assigner/internal/tasks"
	"task-assigner/internal/testutil"
	"task-assigner/internal/users"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "Admin123!"
)

type testEnv struct {
	router http.Handler
	users  *users.Store
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.SessionSecret = "test-session-secret"
	cfg.JWTSecret = "test-jwt-secret"

	log := testutil.DiscardLogger()
	db := testutil.OpenDB(t)

	store := users.New(db)
	store.HashCost = bcrypt.MinCost
	require.NoError(t, store.EnsureAdmin(context.Background(), log, "Admin", adminEmail, adminPassword))

	resolver := auth.NewResolver(store, auth.NewTokens(cfg.JWTSecret, cfg.CredentialTTL))
	engine := tasks.NewEngine(db, store, audit.New(db), tasks.DefaultPolicy(), log)

	r := NewRouter(cfg, Deps{DB: db, Users: store, Resolver: resolver, Engine: engine}, log)
	return &testEnv{router: r, users: store}
}

func doRequest(t *testing.T, r http.Handler, method, path string, body any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (env *testEnv) signup(t *testing.T, name, email string, role models.UserRole) uint {
	t.Helper()
	w := doRequest(t, env.router, http.MethodPost, "/api/auth/signup", map[string]any{
		"name": name, "email": email, "password": "pass1234", "role": role,
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	user := decode(t, w)["user"].(map[string]any)
	assert.EqualValues(t, models.ApprovalPending, user["isApproved"])
	return uint(user["id"].(float64))
}

func (env *testEnv) login(t *testing.T, email, password string) []*http.Cookie {
	t.Helper()
	w := doRequest(t, env.router, http.MethodPost, "/api/auth/login", map[string]any{
		"email": email, "password": password,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, decode(t, w)["token"])
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies
}

func taskOf(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	task, ok := decode(t, w)["task"].(map[string]any)
	require.True(t, ok, w.Body.String())
	return task
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	env := setupTestEnv(t)
	r := env.router

	empID := env.signup(t, "Emp", "emp@example.com", models.RoleEmployee)
	mgrID := env.signup(t, "Mgr", "mgr@example.com", models.RoleManager)
	otherID := env.signup(t, "Other", "other@example.com", models.RoleManager)

	// unapproved users cannot log in and get no cookie
	w := doRequest(t, r, http.MethodPost, "/api/auth/login", map[string]any{
		"email": "emp@example.com", "password": "pass1234",
	}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Set-Cookie"))

	admin := env.login(t, adminEmail, adminPassword)

	w = doRequest(t, r, http.MethodGet, "/api/auth/pending-users?role=manager", nil, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode(t, w)["users"], 2)

	for _, id := range []uint{empID, mgrID, otherID, empID} {
		w = doRequest(t, r, http.MethodPost, fmt.Sprintf("/api/auth/approve/%d", id), nil, admin)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	emp := env.login(t, "emp@example.com", "pass1234")
	mgr := env.login(t, "mgr@example.com", "pass1234")
	other := env.login(t, "other@example.com", "pass1234")

	w = doRequest(t, r, http.MethodPost, "/api/task/create", map[string]any{
		"title": "Fix login", "description": "500 on bad password", "tag": "bug",
	}, emp)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	task := taskOf(t, w)
	assert.Equal(t, "pending", task["status"])
	assert.Nil(t, task["assignedToId"])
	taskPath := func(action string) string {
		return fmt.Sprintf("/api/task/%s/%v", action, task["id"])
	}

	w = doRequest(t, r, http.MethodPut, taskPath("update"), map[string]any{"status": "completed"}, emp)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, r, http.MethodPost, taskPath("assign"), map[string]any{"managerId": mgrID}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "assigned", taskOf(t, w)["status"])

	w = doRequest(t, r, http.MethodPost, taskPath("accept"), nil, other)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(t, r, http.MethodPost, taskPath("accept"), nil, mgr)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "in_progress", taskOf(t, w)["status"])

	w = doRequest(t, r, http.MethodGet, "/api/task/manager-tasks?status=in_progress", nil, mgr)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode(t, w)["tasks"], 1)

	w = doRequest(t, r, http.MethodPost, taskPath("complete"), nil, mgr)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "completed", taskOf(t, w)["status"])

	w = doRequest(t, r, http.MethodGet, taskPath("logs"), nil, emp)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Logs []models.TaskLog `json:"logs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	var got []models.TaskAction
	for _, l := range body.Logs {
		got = append(got, l.Action)
	}
	assert.Equal(t, []models.TaskAction{
		models.ActionCreated, models.ActionAssigned, models.ActionAccepted, models.ActionCompleted,
	}, got)

	w = doRequest(t, r, http.MethodGet, taskPath("logs"), nil, other)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(t, r, http.MethodGet, "/api/task/admin-tasks?status=bogus", nil, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRoleGates(t *testing.T) {
	env := setupTestEnv(t)
	r := env.router

	w := doRequest(t, r, http.MethodPost, "/api/task/create", map[string]any{"title": "x", "tag": "bug"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"not authenticated"}`, w.Body.String())

	admin := env.login(t, adminEmail, adminPassword)

	w = doRequest(t, r, http.MethodPost, "/api/task/create", map[string]any{"title": "x", "tag": "bug"}, admin)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(t, r, http.MethodGet, "/api/task/all-managers", nil, admin)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, r, http.MethodPost, "/api/auth/signup", map[string]any{
		"name": "Eve", "email": "eve@example.com", "password": "pass1234", "role": "admin",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, r, http.MethodPost, "/api/auth/approve/abc", nil, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, r, http.MethodPost, "/api/auth/approve/999", nil, admin)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDuplicateSignup(t *testing.T) {
	env := setupTestEnv(t)
	env.signup(t, "Emp", "emp@example.com", models.RoleEmployee)

	w := doRequest(t, env.router, http.MethodPost, "/api/auth/signup", map[string]any{
		"name": "Emp2", "email": "EMP@example.com", "password": "pass1234", "role": "employee",
	}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDeclinedUserLosesSession(t *testing.T) {
	env := setupTestEnv(t)
	r := env.router

	id := env.signup(t, "Mgr", "mgr@example.com", models.RoleManager)
	admin := env.login(t, adminEmail, adminPassword)
	w := doRequest(t, r, http.MethodPost, fmt.Sprintf("/api/auth/approve/%d", id), nil, admin)
	require.Equal(t, http.StatusOK, w.Code)

	mgr := env.login(t, "mgr@example.com", "pass1234")
	w = doRequest(t, r, http.MethodGet, "/api/auth/checkAuth", nil, mgr)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, r, http.MethodPost, fmt.Sprintf("/api/auth/decline/%d", id), nil, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doRequest(t, r, http.MethodGet, "/api/auth/checkAuth", nil, mgr)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// a revoked user can still clear their own cookie
	w = doRequest(t, r, http.MethodPost, "/api/auth/logout", nil, mgr)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestLogoutExpiresCookie(t *testing.T) {
	env := setupTestEnv(t)
	admin := env.login(t, adminEmail, adminPassword)

	w := doRequest(t, env.router, http.MethodPost, "/api/auth/logout", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, sessionName, cookies[0].Name)
	assert.Less(t, cookies[0].MaxAge, 0)
	assert.True(t, cookies[0].Expires.Before(time.Now()))
}

func TestHealthAndNotFound(t *testing.T) {
	env := setupTestEnv(t)

	w := doRequest(t, env.router, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = doRequest(t, env.router, http.MethodGet, "/api/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Not Found"}`, w.Body.String())
}
