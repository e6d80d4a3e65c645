package service

import (
	"context"
	"errors"
	"strconv"

	"kindred-sheets/backend/internal/chat"
)

// ChatAccessAdapter adapts the CoterieService to the chat.CoterieAuthorizer
// interface, translating between wire-level string user ids and database ids.
type ChatAccessAdapter struct {
	coteries *CoterieService
}

// NewChatAccessAdapter creates a new adapter for the CoterieService
func NewChatAccessAdapter(coteries *CoterieService) *ChatAccessAdapter {
	return &ChatAccessAdapter{coteries: coteries}
}

// AuthorizeSessionAccess implements chat.CoterieAuthorizer
func (a *ChatAccessAdapter) AuthorizeSessionAccess(ctx context.Context, coterieID string, userID string) error {
	id, err := strconv.ParseUint(userID, 10, 64)
	if err != nil {
		return chat.ErrAccessDenied
	}

	err = a.coteries.AuthorizeSessionAccess(ctx, coterieID, uint(id))
	switch {
	case errors.Is(err, ErrCoterieNotFound):
		return chat.ErrGroupNotFound
	case errors.Is(err, ErrCoterieAccessDenied):
		return chat.ErrAccessDenied
	}
	return err
}
