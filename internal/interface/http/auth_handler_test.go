package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bunny/boardhole/config"
	"github.com/bunny/boardhole/internal/application"
	"github.com/bunny/boardhole/internal/domain/entity"
	"github.com/bunny/boardhole/internal/infrastructure/memory"
	"github.com/bunny/boardhole/pkg/helpers"
)

type authEnv struct {
	svc    *application.Service
	tokens *application.MemoryTokenStore
	router *gin.Engine
}

func newAuthEnv(t *testing.T, requireVerification bool) *authEnv {
	t.Helper()
	cfg := &config.Config{
		AppName:                  "board-hole",
		VerifyEmailURL:           "http://localhost:8080/verify-email",
		ChangeEmailURL:           "http://localhost:8080/verify-email/change",
		RequireEmailVerification: requireVerification,
	}
	tokens := application.NewMemoryTokenStore()
	svc := application.NewService(memory.NewUserRepository(), tokens, nil, quietLogger(), cfg, nil, "")
	h := NewAuthHandler(svc, nil, quietLogger(), helpers.NewCookieManager("localhost", false))

	r := gin.New()
	api := r.Group("/api")
	api.POST("/auth/signup", h.Signup)
	api.POST("/auth/login", h.Login)
	api.POST("/auth/logout", h.Logout)
	api.POST("/auth/verify/confirm", h.ConfirmVerification)
	api.POST("/auth/email/confirm", h.ConfirmEmailChange)
	return &authEnv{svc: svc, tokens: tokens, router: r}
}

func (e *authEnv) postJSON(path string, payload any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(b)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func validSignup(username string) map[string]string {
	return map[string]string{
		"username": username,
		"email":    username + "@boardhole.test",
		"name":     "Test " + username,
		"password": "Secret123!",
	}
}

func TestSignupCreated(t *testing.T) {
	env := newAuthEnv(t, false)

	w := env.postJSON("/api/auth/signup", validSignup("bob"))
	require.Equal(t, http.StatusCreated, w.Code)

	var got entity.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "bob", got.Username)
	assert.True(t, got.EmailVerified)
	assert.Equal(t, []entity.Role{entity.RoleUser}, got.Roles)
	assert.NotContains(t, w.Body.String(), "Secret123!")
}

func TestSignupDuplicateUsernameConflict(t *testing.T) {
	env := newAuthEnv(t, false)

	require.Equal(t, http.StatusCreated, env.postJSON("/api/auth/signup", validSignup("bob")).Code)

	payload := validSignup("bob")
	payload["email"] = "someone-else@boardhole.test"
	w := env.postJSON("/api/auth/signup", payload)
	assertProblem(t, w, http.StatusConflict, "conflict", "CONFLICT", "/api/auth/signup")
}

func TestSignupValidation(t *testing.T) {
	env := newAuthEnv(t, false)

	tests := []struct {
		name   string
		mutate func(map[string]string)
		badKey string
	}{
		{"username too short", func(m map[string]string) { m["username"] = "ab" }, "username"},
		{"username not alphanumeric", func(m map[string]string) { m["username"] = "bob!" }, "username"},
		{"bad email", func(m map[string]string) { m["email"] = "nope" }, "email"},
		{"empty name", func(m map[string]string) { m["name"] = "" }, "name"},
		{"blank name", func(m map[string]string) { m["name"] = "   " }, "name"},
		{"name too long", func(m map[string]string) { m["name"] = strings.Repeat("a", 101) }, "name"},
		{"weak password", func(m map[string]string) { m["password"] = "weakpass" }, "password"},
		{"short password", func(m map[string]string) { m["password"] = "A1!" }, "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := validSignup("bob")
			tt.mutate(payload)
			w := env.postJSON("/api/auth/signup", payload)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			body := decodeProblem(t, w)
			assert.Equal(t, "VALIDATION_ERROR", body["code"])
			errs, _ := body["errors"].(map[string]any)
			assert.Contains(t, errs, tt.badKey)
		})
	}
}

func TestSignupMalformedJSON(t *testing.T) {
	env := newAuthEnv(t, false)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginInvalidCredentials(t *testing.T) {
	env := newAuthEnv(t, false)
	require.Equal(t, http.StatusCreated, env.postJSON("/api/auth/signup", validSignup("bob")).Code)

	w := env.postJSON("/api/auth/login", map[string]string{"username": "bob", "password": "Wrong123!"})
	assertProblem(t, w, http.StatusUnauthorized, "unauthorized", "UNAUTHORIZED", "/api/auth/login")

	w = env.postJSON("/api/auth/login", map[string]string{"username": "ghost", "password": "Secret123!"})
	assertProblem(t, w, http.StatusUnauthorized, "unauthorized", "UNAUTHORIZED", "/api/auth/login")
}

func TestLogoutWithoutSession(t *testing.T) {
	env := newAuthEnv(t, false)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// cookie is cleared regardless
	found := false
	for _, ck := range w.Result().Cookies() {
		if ck.Name == helpers.SessionCookieName {
			found = true
			assert.Empty(t, ck.Value)
		}
	}
	assert.True(t, found)
}

func TestVerifyConfirmFlow(t *testing.T) {
	env := newAuthEnv(t, true)

	w := env.postJSON("/api/auth/signup", validSignup("bob"))
	require.Equal(t, http.StatusCreated, w.Code)
	var created entity.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.False(t, created.EmailVerified)

	token := ""
	for _, k := range env.tokens.Keys() {
		token = strings.TrimPrefix(k, "email:verify:token:")
	}
	require.NotEmpty(t, token)

	w = env.postJSON("/api/auth/verify/confirm", map[string]string{"token": token})
	require.Equal(t, http.StatusOK, w.Code)
	var verified entity.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &verified))
	assert.True(t, verified.EmailVerified)

	// token is single-use
	w = env.postJSON("/api/auth/verify/confirm", map[string]string{"token": token})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerifyConfirmBadToken(t *testing.T) {
	env := newAuthEnv(t, true)

	w := env.postJSON("/api/auth/verify/confirm", map[string]string{"token": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeProblem(t, w)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])

	w = env.postJSON("/api/auth/verify/confirm", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEmailConfirmFlow(t *testing.T) {
	env := newAuthEnv(t, false)

	w := env.postJSON("/api/auth/signup", validSignup("bob"))
	require.Equal(t, http.StatusCreated, w.Code)
	var created entity.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	require.NoError(t, env.svc.RequestEmailChange(context.Background(), created.ID, "new@boardhole.test"))

	token := ""
	for _, k := range env.tokens.Keys() {
		if strings.HasPrefix(k, "email:change:token:") {
			token = strings.TrimPrefix(k, "email:change:token:")
		}
	}
	require.NotEmpty(t, token)

	w = env.postJSON("/api/auth/email/confirm", map[string]string{"token": token})
	require.Equal(t, http.StatusOK, w.Code)
	var changed entity.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &changed))
	assert.Equal(t, "new@boardhole.test", changed.Email)
}
