package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/habit-tracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/users/register", HandleRegister(svc))
	r.POST("/users/login", HandleLogin(svc))
	r.POST("/users/refresh", HandleRefresh(svc))

	authed := r.Group("/users", RequireAuth(svc))
	authed.GET("/profile", HandleProfile)
	authed.PATCH("/update", HandleUpdateProfile(svc))
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandlers_RegisterLoginProfile(t *testing.T) {
	svc, _, _ := newTestService(t)
	r := newTestRouter(svc)

	w := doJSON(t, r, http.MethodPost, "/users/register", "", map[string]string{
		"email":    "alice@example.com",
		"username": "alice",
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "password")

	w = doJSON(t, r, http.MethodPost, "/users/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var pair TokenPair
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pair))

	w = doJSON(t, r, http.MethodGet, "/users/profile", pair.Access, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var profile UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	assert.Equal(t, "alice", profile.Username)

	w = doJSON(t, r, http.MethodPost, "/users/refresh", "", map[string]string{"refresh": pair.Refresh})
	require.Equal(t, http.StatusOK, w.Code)
	var refreshed accessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &refreshed))
	assert.NotEmpty(t, refreshed.Access)

	w = doJSON(t, r, http.MethodPatch, "/users/update", pair.Access, map[string]string{"city": "Samara"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	require.NotNil(t, profile.City)
	assert.Equal(t, "Samara", *profile.City)
}

func TestRequireAuth_Rejects(t *testing.T) {
	svc, _, _ := newTestService(t)
	r := newTestRouter(svc)

	tests := []struct {
		name  string
		token string
	}{
		{"no token", ""},
		{"garbage token", "not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodGet, "/users/profile", tt.token, nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), `"code":"unauthorized"`)
		})
	}
}

func TestHandleLogin_BadCredentials(t *testing.T) {
	svc, _, _ := newTestService(t)
	r := newTestRouter(svc)

	w := doJSON(t, r, http.MethodPost, "/users/login", "", map[string]string{
		"email":    "ghost@example.com",
		"password": "whatever-pass",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_credentials")
}

func TestHandlers_RejectInvalidBodies(t *testing.T) {
	svc, _, _ := newTestService(t)
	r := newTestRouter(svc)

	w := doJSON(t, r, http.MethodPost, "/users/register", "", map[string]string{
		"email": "alice@example.com", "username": "alice", "password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	w = doJSON(t, r, http.MethodPost, "/users/login", "", map[string]string{
		"email": "alice@example.com", "password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var pair TokenPair
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pair))

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   map[string]string
	}{
		{"register without email", http.MethodPost, "/users/register", "", map[string]string{"username": "bob", "password": "long-enough"}},
		{"register with bad email", http.MethodPost, "/users/register", "", map[string]string{"email": "not-an-email", "username": "bob", "password": "long-enough"}},
		{"register with short password", http.MethodPost, "/users/register", "", map[string]string{"email": "bob@example.com", "username": "bob", "password": "short"}},
		{"register without username", http.MethodPost, "/users/register", "", map[string]string{"email": "bob@example.com", "password": "long-enough"}},
		{"login without password", http.MethodPost, "/users/login", "", map[string]string{"email": "alice@example.com"}},
		{"refresh without token", http.MethodPost, "/users/refresh", "", map[string]string{}},
		{"update with bad email", http.MethodPatch, "/users/update", pair.Access, map[string]string{"email": "nope"}},
		{"update with short password", http.MethodPatch, "/users/update", pair.Access, map[string]string{"password": "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), `"code":"invalid_body"`)
		})
	}

	var count int64
	require.NoError(t, svc.db.Model(&models.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	_, err := svc.Login(context.Background(), "alice@example.com", "correct-horse")
	assert.NoError(t, err, "rejected update must not change the password")
}
