package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	tg "github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"

	"github.com/studmisto/opsbot/internal/db"
	"github.com/studmisto/opsbot/internal/service"
)

type Handler struct {
	Store   *db.Store
	Service *service.Service
	Logger  zerolog.Logger
}

// Webhook accepts one Telegram update and returns once the service has
// issued every synchronous side effect for it.
func (h *Handler) Webhook(c *gin.Context) {
	var upd tg.Update
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{
			"code":    "BAD_UPDATE",
			"message": err.Error(),
		}})
		return
	}

	h.Service.HandleUpdate(c.Request.Context(), &upd)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
