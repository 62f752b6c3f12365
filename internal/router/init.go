package router

import (
	"github.com/bunny/boardhole/internal/application"
	"github.com/bunny/boardhole/internal/container"
	pginfra "github.com/bunny/boardhole/internal/infrastructure/postgres"
	handlers "github.com/bunny/boardhole/internal/interface/http"
	"github.com/bunny/boardhole/internal/router/modules"
)

func buildService() *application.Service {
	cfg := container.GetConfig()
	return application.NewService(
		pginfra.NewUserRepository(container.GetPGPool()),
		application.NewRedisTokenStore(container.GetRedis()),
		container.GetDispatcher(),
		container.GetLogger(),
		cfg,
		container.GetES(),
		cfg.ESUsersIndex,
	)
}

// InitModules initializes all application modules and registers them with the
// router registry. Called once during startup.
func InitModules(r *Registry) {
	svc := buildService()
	sessions := container.GetSessions()
	logger := container.GetLogger()
	cookies := container.GetCookies()

	authHandler := handlers.NewAuthHandler(svc, sessions, logger, cookies)
	userHandler := handlers.NewUserHandler(svc, sessions, logger, cookies)

	r.Add(modules.NewAuthModule(authHandler, sessions))
	r.Add(modules.NewUserModule(userHandler, sessions))
}
