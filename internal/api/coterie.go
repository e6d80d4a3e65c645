package api

import (
	"errors"
	"net/http"

	"kindred-sheets/backend/internal/chat"
	"kindred-sheets/backend/internal/service"
	"kindred-sheets/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// CoterieHandler exposes the read-only coterie surface used by the sheet
// UI, including live session presence.
type CoterieHandler struct {
	coteries *service.CoterieService
	chat     *chat.Server
	logger   *logger.Logger
}

// NewCoterieHandler creates a new coterie handler
func NewCoterieHandler(coteries *service.CoterieService, chatServer *chat.Server, logger *logger.Logger) *CoterieHandler {
	return &CoterieHandler{
		coteries: coteries,
		chat:     chatServer,
		logger:   logger,
	}
}

// List returns the coteries visible to the authenticated user
func (h *CoterieHandler) List(c *gin.Context) {
	userID := c.MustGet("userId").(uint)

	coteries, err := h.coteries.ListForUser(userID)
	if err != nil {
		h.logger.Error("Failed to list coteries", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list coteries"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"coteries": coteries})
}

// Get returns one coterie the user has access to
func (h *CoterieHandler) Get(c *gin.Context) {
	userID := c.MustGet("userId").(uint)
	coterieID := c.Param("id")

	if err := h.coteries.AuthorizeSessionAccess(c.Request.Context(), coterieID, userID); err != nil {
		h.respondAccessError(c, err)
		return
	}

	coterie, err := h.coteries.GetCoterie(coterieID)
	if err != nil {
		h.respondAccessError(c, err)
		return
	}

	count, err := h.coteries.MemberCount(coterieID)
	if err != nil {
		h.logger.Error("Failed to count coterie members", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load coterie"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":      coterie.ID,
		"name":    coterie.Name,
		"concept": coterie.Concept,
		"ownerId": coterie.OwnerID,
		"members": count,
	})
}

// Presence reports whether the coterie's chat session is live and who is in
// it. Sessions are ephemeral; an absent session simply means nobody is
// connected right now.
func (h *CoterieHandler) Presence(c *gin.Context) {
	userID := c.MustGet("userId").(uint)
	coterieID := c.Param("id")

	if err := h.coteries.AuthorizeSessionAccess(c.Request.Context(), coterieID, userID); err != nil {
		h.respondAccessError(c, err)
		return
	}

	sess, ok := h.chat.Registry().Lookup(chat.SessionCoterie, coterieID)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"active": false, "participants": []any{}})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"active":       true,
		"participants": h.chat.Registry().Roster(sess),
	})
}

func (h *CoterieHandler) respondAccessError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCoterieNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Coterie not found"})
	case errors.Is(err, service.ErrCoterieAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have access to this coterie"})
	default:
		h.logger.Error("Coterie access check failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify access"})
	}
}
