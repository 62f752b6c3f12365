package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/bunny/boardhole/internal/application"
	"github.com/bunny/boardhole/internal/interface/middleware"
	"github.com/bunny/boardhole/pkg/helpers"
	"github.com/bunny/boardhole/pkg/problem"
	"github.com/bunny/boardhole/pkg/validation"
)

type UserHandler struct {
	Svc      *application.Service
	Sessions *application.SessionManager
	Logger   *logrus.Logger
	Cookies  *helpers.CookieManager
}

func NewUserHandler(svc *application.Service, sessions *application.SessionManager, logger *logrus.Logger, cookies *helpers.CookieManager) *UserHandler {
	return &UserHandler{Svc: svc, Sessions: sessions, Logger: logger, Cookies: cookies}
}

type updateUserRequest struct {
	Name string `form:"name" binding:"required,notblank,max=100"`
}

type changePasswordRequest struct {
	CurrentPassword string `form:"currentPassword" binding:"required"`
	NewPassword     string `form:"newPassword" binding:"required,pwd"`
	ConfirmPassword string `form:"confirmPassword" binding:"required,eqfield=NewPassword"`
}

type changeEmailRequest struct {
	Email string `form:"email" binding:"required,email"`
}

// pathID parses the :id segment. Any value that is not a positive integer is
// a 400, checked after authentication but before any role decision.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		problem.Write(c, problem.Validation(c, map[string]string{"id": "must be a positive integer"}))
		return 0, false
	}
	return id, true
}

// authorize maps an access decision onto the response. Forbidden is decided
// from the principal and target id alone, so a non-owner gets 403 whether or
// not the target exists.
func authorize(c *gin.Context, d application.Decision) bool {
	switch d {
	case application.Allow:
		return true
	case application.Unauthenticated:
		problem.Write(c, problem.Unauthorized(c))
	default:
		problem.Write(c, problem.Forbidden(c))
	}
	return false
}

func queryInt(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func (h *UserHandler) List(c *gin.Context) {
	p := middleware.PrincipalFrom(c)
	if !authorize(c, application.DecideUserList(p)) {
		return
	}
	page, err := h.Svc.List(c.Request.Context(),
		queryInt(c, "page", 0),
		queryInt(c, "size", application.DefaultPageSize),
		c.Query("search"))
	if err != nil {
		h.Logger.WithError(err).Error("user list failed")
		problem.Write(c, problem.Internal(c))
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *UserHandler) Search(c *gin.Context) {
	p := middleware.PrincipalFrom(c)
	if !authorize(c, application.DecideUserList(p)) {
		return
	}
	hits, err := h.Svc.SearchUsers(c.Request.Context(), c.Query("q"), queryInt(c, "size", 10))
	if err != nil {
		h.Logger.WithError(err).Error("user search failed")
		problem.Write(c, problem.Internal(c))
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": hits})
}

func (h *UserHandler) Me(c *gin.Context) {
	p := middleware.PrincipalFrom(c)
	if p == nil {
		problem.Write(c, problem.Unauthorized(c))
		return
	}
	u, err := h.Svc.Get(c.Request.Context(), p.ID)
	if err != nil {
		if errors.Is(err, application.ErrNotFound) {
			problem.Write(c, problem.NotFound(c))
			return
		}
		h.Logger.WithError(err).Error("profile lookup failed")
		problem.Write(c, problem.Internal(c))
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *UserHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p := middleware.PrincipalFrom(c)
	if !authorize(c, application.DecideUserAccess(p, id)) {
		return
	}
	u, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, application.ErrNotFound) {
			problem.Write(c, problem.NotFound(c))
			return
		}
		h.Logger.WithError(err).Error("user lookup failed")
		problem.Write(c, problem.Internal(c))
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *UserHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p := middleware.PrincipalFrom(c)
	if !authorize(c, application.DecideUserAccess(p, id)) {
		return
	}
	var req updateUserRequest
	if err := c.ShouldBind(&req); err != nil {
		problem.Write(c, problem.Validation(c, validation.ToDetails(err)))
		return
	}
	u, err := h.Svc.Update(c.Request.Context(), id, req.Name)
	if err != nil {
		if errors.Is(err, application.ErrNotFound) {
			problem.Write(c, problem.NotFound(c))
			return
		}
		h.Logger.WithError(err).Error("user update failed")
		problem.Write(c, problem.Internal(c))
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p := middleware.PrincipalFrom(c)
	if !authorize(c, application.DecideUserAccess(p, id)) {
		return
	}
	if err := h.Svc.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, application.ErrNotFound) {
			problem.Write(c, problem.NotFound(c))
			return
		}
		h.Logger.WithError(err).Error("user delete failed")
		problem.Write(c, problem.Internal(c))
		return
	}
	if h.Sessions != nil {
		if err := h.Sessions.Revoke(c.Request.Context(), id); err != nil {
			h.Logger.WithError(err).Warn("session revoke failed")
		}
	}
	if p != nil && p.ID == id {
		h.Cookies.Clear(c)
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) ChangePassword(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p := middleware.PrincipalFrom(c)
	if !authorize(c, application.DecideUserAccess(p, id)) {
		return
	}
	var req changePasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		problem.Write(c, problem.Validation(c, validation.ToDetails(err)))
		return
	}
	err := h.Svc.ChangePassword(c.Request.Context(), id, req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, application.ErrInvalidCredentials):
			problem.Write(c, problem.Unauthorized(c))
		case errors.Is(err, application.ErrNotFound):
			problem.Write(c, problem.NotFound(c))
		default:
			h.Logger.WithError(err).Error("password change failed")
			problem.Write(c, problem.Internal(c))
		}
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) RequestEmailChange(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p := middleware.PrincipalFrom(c)
	if !authorize(c, application.DecideUserAccess(p, id)) {
		return
	}
	var req changeEmailRequest
	if err := c.ShouldBind(&req); err != nil {
		problem.Write(c, problem.Validation(c, validation.ToDetails(err)))
		return
	}
	if err := h.Svc.RequestEmailChange(c.Request.Context(), id, req.Email); err != nil {
		if errors.Is(err, application.ErrNotFound) {
			problem.Write(c, problem.NotFound(c))
			return
		}
		h.Logger.WithError(err).Error("email change request failed")
		problem.Write(c, problem.Internal(c))
		return
	}
	c.Status(http.StatusAccepted)
}
