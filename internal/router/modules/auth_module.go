package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bunny/boardhole/internal/application"
	"github.com/bunny/boardhole/internal/container"
	handlers "github.com/bunny/boardhole/internal/interface/http"
	"github.com/bunny/boardhole/internal/interface/middleware"
)

// AuthModule wires the account lifecycle endpoints.
// Public: POST /api/auth/signup, /api/auth/login, /api/auth/verify/confirm,
// /api/auth/email/confirm. Logout is public as well; it is a no-op without a
// valid session cookie.
type AuthModule struct {
	Handler  *handlers.AuthHandler
	Sessions *application.SessionManager
}

func NewAuthModule(h *handlers.AuthHandler, sessions *application.SessionManager) *AuthModule {
	return &AuthModule{Handler: h, Sessions: sessions}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	signupLimiter := middleware.RateLimit(container.GetRedis(), 5, time.Minute, middleware.KeyByIPAndPath(), middleware.AllowPrivateIP())
	loginLimiter := middleware.RateLimit(container.GetRedis(), 10, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())
	confirmLimiter := middleware.RateLimit(container.GetRedis(), 30, time.Minute, middleware.KeyByIPAndPath(), middleware.AllowPrivateIP())

	rg.POST("/auth/signup", signupLimiter, m.Handler.Signup)
	rg.POST("/auth/login", loginLimiter, m.Handler.Login)
	rg.POST("/auth/logout", m.Handler.Logout)
	rg.POST("/auth/verify/confirm", confirmLimiter, m.Handler.ConfirmVerification)
	rg.POST("/auth/email/confirm", confirmLimiter, m.Handler.ConfirmEmailChange)
}
