package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kiliankoe/partyhouse/internal/auth"
	"github.com/kiliankoe/partyhouse/internal/cards"
	"github.com/kiliankoe/partyhouse/internal/game"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	Catalog *cards.Catalog
	Rooms   *game.RoomManager
	Auth    *auth.Issuer // nil disables /auth/temp-login
}

type loginReq struct {
	Username string `json:"username" binding:"required,max=32"`
}

// Register mounts the REST endpoints on r.
func (h *Handlers) Register(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC(), "rooms": h.Rooms.Count()})
	})

	r.GET("/cards", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"cards": gin.H{
			"default":  h.Catalog.Default,
			"non_star": h.Catalog.NonStar,
			"star":     h.Catalog.Star,
		}})
	})
	r.GET("/cards/:id", func(c *gin.Context) {
		card, err := h.Catalog.ByID(c.Param("id"))
		if errors.Is(err, cards.ErrCardNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "card_not_found"})
			return
		}
		c.JSON(http.StatusOK, card)
	})

	r.GET("/api/rooms/:id", func(c *gin.Context) {
		room, err := h.Rooms.Get(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": game.ErrorCode(err)})
			return
		}
		c.JSON(http.StatusOK, room.Snapshot())
	})

	r.POST("/auth/temp-login", func(c *gin.Context) {
		if h.Auth == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "auth_disabled"})
			return
		}
		var req loginReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
			return
		}
		token, err := h.Auth.Issue(req.Username)
		if err != nil {
			log.Error().Err(err).Msg("issue token")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"accessToken": token, "username": req.Username})
	})
}
