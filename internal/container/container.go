package container

import (
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/bunny/boardhole/config"
	"github.com/bunny/boardhole/internal/application"
	"github.com/bunny/boardhole/pkg/helpers"
	"github.com/bunny/boardhole/pkg/mailer"
)

// app-level container to share constructed components across packages
// Router can auto-wire modules from these singletons.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	redisClient *redis.Client
	esClient    *elasticsearch.Client

	sessionMgr *application.SessionManager
	cookieMgr  *helpers.CookieManager
	dispatcher mailer.Dispatcher
)

func SetConfig(c *config.Config)    { cfg = c }
func GetConfig() *config.Config     { return cfg }
func SetLogger(l *logrus.Logger)    { logger = l }
func GetLogger() *logrus.Logger     { return logger }
func SetPGPool(p *pgxpool.Pool)     { pgPool = p }
func GetPGPool() *pgxpool.Pool      { return pgPool }
func SetRedis(r *redis.Client)      { redisClient = r }
func GetRedis() *redis.Client       { return redisClient }
func SetES(c *elasticsearch.Client) { esClient = c }
func GetES() *elasticsearch.Client  { return esClient }

func SetSessions(m *application.SessionManager) { sessionMgr = m }
func GetSessions() *application.SessionManager  { return sessionMgr }
func SetCookies(m *helpers.CookieManager)       { cookieMgr = m }
func GetCookies() *helpers.CookieManager        { return cookieMgr }
func SetDispatcher(d mailer.Dispatcher)         { dispatcher = d }
func GetDispatcher() mailer.Dispatcher          { return dispatcher }
