package api

import (
	"net/http"

	"kindred-sheets/backend/internal/service"
	"kindred-sheets/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// CharacterHandler exposes read-only character listings
type CharacterHandler struct {
	characters *service.CharacterService
	logger     *logger.Logger
}

// NewCharacterHandler creates a new character handler
func NewCharacterHandler(characters *service.CharacterService, logger *logger.Logger) *CharacterHandler {
	return &CharacterHandler{characters: characters, logger: logger}
}

// List returns the characters the user owns and those shared with them
func (h *CharacterHandler) List(c *gin.Context) {
	userID := c.MustGet("userId").(uint)

	owned, err := h.characters.ListOwned(userID)
	if err != nil {
		h.logger.Error("Failed to list owned characters", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list characters"})
		return
	}

	shared, err := h.characters.ListSharedWith(userID)
	if err != nil {
		h.logger.Error("Failed to list shared characters", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list characters"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"owned":  owned,
		"shared": shared,
	})
}
