package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bunny/boardhole/config"
	"github.com/bunny/boardhole/internal/application"
	"github.com/bunny/boardhole/internal/domain/entity"
	"github.com/bunny/boardhole/internal/infrastructure/memory"
	"github.com/bunny/boardhole/pkg/helpers"
	"github.com/bunny/boardhole/pkg/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	validation.Init()
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type testEnv struct {
	svc    *application.Service
	router *gin.Engine

	// principal injected in place of the auth middleware; nil simulates a
	// request without a valid session
	principal *application.Principal
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := &config.Config{
		AppName:                  "board-hole",
		VerifyEmailURL:           "http://localhost:8080/verify-email",
		ChangeEmailURL:           "http://localhost:8080/verify-email/change",
		RequireEmailVerification: false,
	}
	svc := application.NewService(memory.NewUserRepository(), application.NewMemoryTokenStore(), nil, quietLogger(), cfg, nil, "")

	env := &testEnv{svc: svc}
	h := NewUserHandler(svc, nil, quietLogger(), helpers.NewCookieManager("localhost", false))

	r := gin.New()
	r.UseRawPath = true
	r.NoRoute(NoRoute)
	api := r.Group("/api")
	api.Use(func(c *gin.Context) {
		if env.principal != nil {
			c.Set("principal", env.principal)
		}
		c.Next()
	})
	api.GET("/users", h.List)
	api.GET("/users/me", h.Me)
	api.GET("/users/search", h.Search)
	api.GET("/users/:id", h.Get)
	api.PUT("/users/:id", h.Update)
	api.DELETE("/users/:id", h.Delete)
	api.PATCH("/users/:id/password", h.ChangePassword)
	api.POST("/users/:id/email", h.RequestEmailChange)
	env.router = r
	return env
}

func (e *testEnv) addUser(t *testing.T, username string) *entity.User {
	t.Helper()
	u, err := e.svc.Signup(context.Background(), application.SignupInput{
		Username: username,
		Email:    username + "@boardhole.test",
		Name:     "Test " + username,
		Password: "Secret123!",
	})
	require.NoError(t, err)
	return u
}

func (e *testEnv) loginAs(u *entity.User) {
	e.principal = &application.Principal{ID: u.ID, Username: u.Username, Roles: u.Roles}
}

func (e *testEnv) loginAsAdmin(u *entity.User) {
	e.principal = &application.Principal{ID: u.ID, Username: u.Username, Roles: []entity.Role{entity.RoleAdmin, entity.RoleUser}}
}

func (e *testEnv) do(method, path string, form url.Values) *httptest.ResponseRecorder {
	var body io.Reader
	var contentType string
	if form != nil {
		body = strings.NewReader(form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func assertProblem(t *testing.T, w *httptest.ResponseRecorder, status int, kind, code, instance string) {
	t.Helper()
	assert.Equal(t, status, w.Code)
	body := decodeProblem(t, w)
	assert.Equal(t, "urn:problem-type:"+kind, body["type"])
	assert.Equal(t, code, body["code"])
	assert.Equal(t, float64(status), body["status"])
	assert.Equal(t, instance, body["instance"])
	assert.NotEmpty(t, body["title"])
}

func TestGetUserAnonymous(t *testing.T) {
	env := newTestEnv(t)
	u := env.addUser(t, "bob")

	w := env.do(http.MethodGet, fmt.Sprintf("/api/users/%d", u.ID), nil)
	assertProblem(t, w, http.StatusUnauthorized, "unauthorized", "UNAUTHORIZED", fmt.Sprintf("/api/users/%d", u.ID))
}

func TestGetUserSelf(t *testing.T) {
	env := newTestEnv(t)
	u := env.addUser(t, "bob")
	env.loginAs(u)

	w := env.do(http.MethodGet, fmt.Sprintf("/api/users/%d", u.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got entity.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "bob", got.Username)
}

func TestGetUserForbiddenHidesExistence(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser(t, "alice")
	bob := env.addUser(t, "bob")
	env.loginAs(alice)

	// existing target
	w := env.do(http.MethodGet, fmt.Sprintf("/api/users/%d", bob.ID), nil)
	assertProblem(t, w, http.StatusForbidden, "forbidden", "FORBIDDEN", fmt.Sprintf("/api/users/%d", bob.ID))

	// missing target: same answer
	w = env.do(http.MethodGet, "/api/users/99999", nil)
	assertProblem(t, w, http.StatusForbidden, "forbidden", "FORBIDDEN", "/api/users/99999")
}

func TestGetUserAdminSeesNotFound(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(t, "admin")
	env.loginAsAdmin(admin)

	w := env.do(http.MethodGet, "/api/users/99999", nil)
	assertProblem(t, w, http.StatusNotFound, "not-found", "NOT_FOUND", "/api/users/99999")
}

func TestMalformedIDIsBadRequest(t *testing.T) {
	env := newTestEnv(t)
	u := env.addUser(t, "bob")
	env.loginAs(u)

	for _, raw := range []string{"abc", "12abc", "-1", "0", "1.5"} {
		w := env.do(http.MethodGet, "/api/users/"+raw, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, "id %q", raw)
		body := decodeProblem(t, w)
		assert.Equal(t, "VALIDATION_ERROR", body["code"])
	}
}

func TestTraversalIDSegmentIsBadRequest(t *testing.T) {
	env := newTestEnv(t)
	u := env.addUser(t, "bob")
	env.loginAs(u)

	// Encoded forms stay a single :id segment and fail id parsing; the
	// literal form matches no route and lands on the catch-all.
	for _, path := range []string{
		"/api/users/%2e%2e%2f%2e%2e%2f",
		"/api/users/..%2F..%2Fetc%2Fpasswd",
		"/api/users/../../../etc/passwd",
	} {
		w := env.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, "path %q", path)
		body := decodeProblem(t, w)
		assert.Equal(t, "VALIDATION_ERROR", body["code"], "path %q", path)
	}
}

func TestUnknownRouteGetsProblemBody(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/nothing-here", nil)
	assertProblem(t, w, http.StatusNotFound, "not-found", "NOT_FOUND", "/api/nothing-here")
}

func TestListAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	u := env.addUser(t, "bob")

	w := env.do(http.MethodGet, "/api/users", nil)
	assertProblem(t, w, http.StatusUnauthorized, "unauthorized", "UNAUTHORIZED", "/api/users")

	env.loginAs(u)
	w = env.do(http.MethodGet, "/api/users", nil)
	assertProblem(t, w, http.StatusForbidden, "forbidden", "FORBIDDEN", "/api/users")

	env.loginAsAdmin(u)
	w = env.do(http.MethodGet, "/api/users", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestListEchoesClampedPageable(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(t, "admin")
	env.loginAsAdmin(admin)

	w := env.do(http.MethodGet, "/api/users?page=-3&size=100000", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page struct {
		Content  []json.RawMessage `json:"content"`
		Pageable struct {
			PageNumber int `json:"pageNumber"`
			PageSize   int `json:"pageSize"`
		} `json:"pageable"`
		TotalElements int64 `json:"totalElements"`
		TotalPages    int64 `json:"totalPages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 0, page.Pageable.PageNumber)
	assert.Equal(t, application.MaxPageSize, page.Pageable.PageSize)
	assert.Equal(t, int64(1), page.TotalElements)
	assert.Len(t, page.Content, 1)
}

func TestListFarOutPageIsEmpty(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(t, "admin")
	env.loginAsAdmin(admin)

	w := env.do(http.MethodGet, "/api/users?page=92233720368547759&size=100", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page struct {
		Content       []json.RawMessage `json:"content"`
		TotalElements int64             `json:"totalElements"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Empty(t, page.Content)
	assert.Equal(t, int64(1), page.TotalElements)
}

func TestUpdateNameRoundtrip(t *testing.T) {
	env := newTestEnv(t)
	u := env.addUser(t, "bob")
	env.loginAs(u)

	raw := `<b>bold</b> & "quoted"`
	w := env.do(http.MethodPut, fmt.Sprintf("/api/users/%d", u.ID), url.Values{"name": {raw}})
	require.Equal(t, http.StatusOK, w.Code)

	var got entity.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, raw, got.Name)
}

func TestUpdateNameTooLong(t *testing.T) {
	env := newTestEnv(t)
	u := env.addUser(t, "bob")
	env.loginAs(u)

	long := strings.Repeat("a", 101)
	w := env.do(http.MethodPut, fmt.Sprintf("/api/users/%d", u.ID), url.Values{"name": {long}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeProblem(t, w)
	errs, ok := body["errors"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, errs, "name")
}

func TestUpdateNameBlank(t *testing.T) {
	env := newTestEnv(t)
	u := env.addUser(t, "bob")
	env.loginAs(u)

	w := env.do(http.MethodPut, fmt.Sprintf("/api/users/%d", u.ID), url.Values{"name": {"   "}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeProblem(t, w)
	errs, ok := body["errors"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, errs, "name")
}

func TestDeleteThenRepeat(t *testing.T) {
	env := newTestEnv(t)
	u := env.addUser(t, "bob")
	env.loginAs(u)

	path := fmt.Sprintf("/api/users/%d", u.ID)
	w := env.do(http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	w = env.do(http.MethodDelete, path, nil)
	assertProblem(t, w, http.StatusNotFound, "not-found", "NOT_FOUND", path)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	u := env.addUser(t, "bob")
	env.loginAs(u)
	path := fmt.Sprintf("/api/users/%d/password", u.ID)

	// wrong current password is a credential failure, not validation
	w := env.do(http.MethodPatch, path, url.Values{
		"currentPassword": {"Wrong123!"},
		"newPassword":     {"Another123!"},
		"confirmPassword": {"Another123!"},
	})
	assertProblem(t, w, http.StatusUnauthorized, "unauthorized", "UNAUTHORIZED", path)

	// mismatched confirmation fails validation before any credential check
	w = env.do(http.MethodPatch, path, url.Values{
		"currentPassword": {"Secret123!"},
		"newPassword":     {"Another123!"},
		"confirmPassword": {"Different123!"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeProblem(t, w)
	errs, _ := body["errors"].(map[string]any)
	assert.Contains(t, errs, "confirmPassword")

	// weak new password fails complexity
	w = env.do(http.MethodPatch, path, url.Values{
		"currentPassword": {"Secret123!"},
		"newPassword":     {"weakpass"},
		"confirmPassword": {"weakpass"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// success
	w = env.do(http.MethodPatch, path, url.Values{
		"currentPassword": {"Secret123!"},
		"newPassword":     {"Another123!"},
		"confirmPassword": {"Another123!"},
	})
	assert.Equal(t, http.StatusNoContent, w.Code)

	_, err := env.svc.Authenticate(context.Background(), "bob", "Another123!")
	assert.NoError(t, err)
}

func TestRequestEmailChangeAccepted(t *testing.T) {
	env := newTestEnv(t)
	u := env.addUser(t, "bob")
	env.loginAs(u)

	path := fmt.Sprintf("/api/users/%d/email", u.ID)
	w := env.do(http.MethodPost, path, url.Values{"email": {"new@boardhole.test"}})
	assert.Equal(t, http.StatusAccepted, w.Code)

	// stored address unchanged until the token is confirmed
	got, err := env.svc.Get(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob@boardhole.test", got.Email)

	w = env.do(http.MethodPost, path, url.Values{"email": {"not-an-email"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	u := env.addUser(t, "bob")

	w := env.do(http.MethodGet, "/api/users/me", nil)
	assertProblem(t, w, http.StatusUnauthorized, "unauthorized", "UNAUTHORIZED", "/api/users/me")

	env.loginAs(u)
	w = env.do(http.MethodGet, "/api/users/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got entity.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, u.ID, got.ID)
}

func TestSearchWithoutElasticsearch(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(t, "admin")
	env.loginAsAdmin(admin)

	w := env.do(http.MethodGet, "/api/users/search?q=bob", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Results []json.RawMessage `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Empty(t, body.Results)
}
