package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"webrecorder/api/internal/config"
	"webrecorder/api/internal/mail"
	"webrecorder/api/internal/middleware"
	"webrecorder/api/internal/models"
	"webrecorder/api/internal/repository"
	"webrecorder/api/internal/security"
	"webrecorder/api/internal/service"
)

type HandlerSet struct {
	log      zerolog.Logger
	cfg      *config.AppConfig
	cache    *redis.Client
	accounts *service.AccountService
	sessions *service.SessionService
}

func NewHandlerSet(log zerolog.Logger, cache *redis.Client, sender mail.Sender, vault *security.PasswordVault, cfg *config.AppConfig) (HandlerSet, error) {
	accountRepo := repository.NewAccountRepository(cache, cfg.Accounts.ReservedNames, models.Collection{
		ID:    cfg.Accounts.DefaultCollID,
		Title: cfg.Accounts.DefaultCollTitle,
		Desc:  cfg.Accounts.DefaultCollDesc,
	})
	sessionRepo := repository.NewSessionRepository(cache)
	pendingRepo := repository.NewRegistrationRepository(cache)

	sessions, err := service.NewSessionService(accountRepo, sessionRepo, vault, cfg, log)
	if err != nil {
		return HandlerSet{}, err
	}
	registration := service.NewRegistrationService(accountRepo, pendingRepo, sessions, vault, sender, cfg, log)
	accounts := service.NewAccountService(accountRepo, sessions, registration, service.NewQuotaLedger(accountRepo), vault, log)

	return HandlerSet{
		log:      log,
		cfg:      cfg,
		cache:    cache,
		accounts: accounts,
		sessions: sessions,
	}, nil
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	v1.Use(middleware.Session(h.cfg.Security.CookieName, h.sessions))
	{
		v1.GET("/temp-users/:id", h.TempUserInfo)

		v1.POST("/userreg", h.RegisterUser)
		v1.POST("/userval", h.ValidateRegistration)
		v1.GET("/username_check", h.UsernameCheck)

		v1.POST("/login", h.Login)
		v1.GET("/logout", h.Logout)
		v1.GET("/load_auth", h.LoadAuth)
		v1.POST("/updatepassword", h.UpdatePassword)

		v1.GET("/users/:name", h.UserInfo)
		v1.POST("/users/:name/desc", h.UpdateDescription)
		v1.DELETE("/users/:name", h.DeleteUser)
	}

	admin := v1.Group("/admin")
	admin.Use(middleware.RequireRole(models.UserRoleAdmin))
	admin.GET("/users", h.AdminListUsers)
}
