package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/studmisto/opsbot/internal/config"
	"github.com/studmisto/opsbot/internal/db"
	"github.com/studmisto/opsbot/internal/http/handlers"
	"github.com/studmisto/opsbot/internal/http/middleware"
	"github.com/studmisto/opsbot/internal/service"
)

func Router(cfg config.Config, store *db.Store, svc *service.Service, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	h := &handlers.Handler{
		Store:   store,
		Service: svc,
		Logger:  logger,
	}

	r.GET("/healthz", h.Healthz)

	hook := r.Group("")
	hook.Use(middleware.WebhookSecret(cfg.WebhookSecret))
	{
		hook.POST("/", h.Webhook)
	}

	return r
}
