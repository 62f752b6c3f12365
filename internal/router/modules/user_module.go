package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bunny/boardhole/internal/application"
	"github.com/bunny/boardhole/internal/container"
	handlers "github.com/bunny/boardhole/internal/interface/http"
	"github.com/bunny/boardhole/internal/interface/middleware"
)

// UserModule wires the user resource endpoints. Everything here requires an
// authenticated session; role checks happen inside the handlers so that a
// missing session is always 401 and an insufficient role is always 403.
type UserModule struct {
	Handler  *handlers.UserHandler
	Sessions *application.SessionManager
}

func NewUserModule(h *handlers.UserHandler, sessions *application.SessionManager) *UserModule {
	return &UserModule{Handler: h, Sessions: sessions}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.Sessions))
	auth.Use(
		middleware.RateLimit(container.GetRedis(), 300, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP()),
		middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByPrincipal(), middleware.AllowPrivateIP()),
	)
	{
		auth.GET("/users", m.Handler.List)
		auth.GET("/users/search", m.Handler.Search)
		auth.GET("/users/me", m.Handler.Me)
		auth.GET("/users/:id", m.Handler.Get)
		auth.PUT("/users/:id", m.Handler.Update)
		auth.DELETE("/users/:id", m.Handler.Delete)
		auth.PATCH("/users/:id/password", m.Handler.ChangePassword)
		auth.POST("/users/:id/email", m.Handler.RequestEmailChange)
	}
}
