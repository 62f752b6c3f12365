package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/bunny/boardhole/internal/application"
	"github.com/bunny/boardhole/pkg/helpers"
	"github.com/bunny/boardhole/pkg/problem"
	"github.com/bunny/boardhole/pkg/validation"
)

type AuthHandler struct {
	Svc      *application.Service
	Sessions *application.SessionManager
	Logger   *logrus.Logger
	Cookies  *helpers.CookieManager
}

func NewAuthHandler(svc *application.Service, sessions *application.SessionManager, logger *logrus.Logger, cookies *helpers.CookieManager) *AuthHandler {
	return &AuthHandler{Svc: svc, Sessions: sessions, Logger: logger, Cookies: cookies}
}

type signupRequest struct {
	Username string `json:"username" binding:"required,alphanum,min=3,max=20"`
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required,notblank,max=100"`
	Password string `json:"password" binding:"required,pwd"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenRequest struct {
	Token string `json:"token" binding:"required"`
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		problem.Write(c, problem.Validation(c, validation.ToDetails(err)))
		return
	}
	u, err := h.Svc.Signup(c.Request.Context(), application.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, application.ErrUsernameTaken) {
			problem.Write(c, problem.Conflict(c))
			return
		}
		h.Logger.WithError(err).Error("signup failed")
		problem.Write(c, problem.Internal(c))
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		problem.Write(c, problem.Validation(c, validation.ToDetails(err)))
		return
	}
	u, err := h.Svc.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		problem.Write(c, problem.Unauthorized(c))
		return
	}
	token, exp, err := h.Sessions.Issue(c.Request.Context(), u)
	if err != nil {
		h.Logger.WithError(err).Error("session issue failed")
		problem.Write(c, problem.Internal(c))
		return
	}
	h.Cookies.SetSession(c, token, exp)
	c.JSON(http.StatusOK, u)
}

// Logout revokes the Redis session when the cookie still resolves, then
// clears the cookie either way.
func (h *AuthHandler) Logout(c *gin.Context) {
	if token, err := c.Cookie(helpers.SessionCookieName); err == nil && token != "" {
		if p, err := h.Sessions.Resolve(c.Request.Context(), token); err == nil {
			if err := h.Sessions.Revoke(c.Request.Context(), p.ID); err != nil {
				h.Logger.WithError(err).Warn("session revoke failed")
			}
		}
	}
	h.Cookies.Clear(c)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *AuthHandler) ConfirmVerification(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		problem.Write(c, problem.Validation(c, validation.ToDetails(err)))
		return
	}
	u, err := h.Svc.ConfirmVerification(c.Request.Context(), req.Token)
	if err != nil {
		if errors.Is(err, application.ErrInvalidToken) {
			problem.Write(c, problem.Validation(c, map[string]string{"token": "invalid or expired token"}))
			return
		}
		h.Logger.WithError(err).Error("email verification failed")
		problem.Write(c, problem.Internal(c))
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *AuthHandler) ConfirmEmailChange(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		problem.Write(c, problem.Validation(c, validation.ToDetails(err)))
		return
	}
	u, err := h.Svc.ConfirmEmailChange(c.Request.Context(), req.Token)
	if err != nil {
		if errors.Is(err, application.ErrInvalidToken) {
			problem.Write(c, problem.Validation(c, map[string]string{"token": "invalid or expired token"}))
			return
		}
		h.Logger.WithError(err).Error("email change confirmation failed")
		problem.Write(c, problem.Internal(c))
		return
	}
	c.JSON(http.StatusOK, u)
}
