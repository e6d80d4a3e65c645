package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kindred-sheets/backend/internal/models"
	"kindred-sheets/backend/pkg/cache"

	"gorm.io/gorm"
)

var (
	ErrCoterieNotFound     = errors.New("coterie not found")
	ErrCoterieAccessDenied = errors.New("coterie access denied")
)

// CoterieService exposes the membership read queries the chat layer needs
// to gate coterie sessions, plus the small read surface for the sheet UI.
type CoterieService struct {
	db    *gorm.DB
	cache *cache.Cache
}

// NewCoterieService creates a new coterie service
func NewCoterieService(db *gorm.DB, c *cache.Cache) *CoterieService {
	return &CoterieService{db: db, cache: c}
}

// GetCoterie retrieves a coterie by ID
func (s *CoterieService) GetCoterie(id string) (*models.Coterie, error) {
	var coterie models.Coterie
	result := s.db.First(&coterie, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrCoterieNotFound
		}
		return nil, result.Error
	}
	return &coterie, nil
}

// MemberCount returns the number of characters registered in a coterie
func (s *CoterieService) MemberCount(id string) (int64, error) {
	var count int64
	err := s.db.Model(&models.CoterieMember{}).Where("coterie_id = ?", id).Count(&count).Error
	return count, err
}

// ListForUser returns coteries the user can see: owned, or containing a
// character the user owns or holds a share on.
func (s *CoterieService) ListForUser(userID uint) ([]models.CoterieResponse, error) {
	var coteries []models.Coterie
	err := s.db.
		Distinct("coteries.*").
		Joins("LEFT JOIN coterie_members cm ON cm.coterie_id = coteries.id").
		Joins("LEFT JOIN characters ch ON ch.id = cm.character_id").
		Joins("LEFT JOIN character_shares cs ON cs.character_id = cm.character_id").
		Where("coteries.owner_id = ? OR ch.owner_id = ? OR cs.shared_with_id = ?", userID, userID, userID).
		Find(&coteries).Error
	if err != nil {
		return nil, err
	}

	responses := make([]models.CoterieResponse, 0, len(coteries))
	for _, c := range coteries {
		count, err := s.MemberCount(c.ID)
		if err != nil {
			return nil, err
		}
		responses = append(responses, models.CoterieResponse{
			ID:      c.ID,
			Name:    c.Name,
			Concept: c.Concept,
			OwnerID: c.OwnerID,
			Members: int(count),
		})
	}
	return responses, nil
}

// AuthorizeSessionAccess decides whether a user may join the chat session of
// a coterie. Access is allowed iff the user owns the coterie, owns a member
// character, or holds a share on a member character. Positive decisions are
// cached briefly; denials and lookups for missing coteries are not.
func (s *CoterieService) AuthorizeSessionAccess(ctx context.Context, coterieID string, userID uint) error {
	cacheKey := fmt.Sprintf("coterie-access:%s:%d", coterieID, userID)
	if s.cache != nil {
		if _, found := s.cache.Get(cacheKey); found {
			return nil
		}
	}

	var coterie models.Coterie
	result := s.db.WithContext(ctx).First(&coterie, "id = ?", coterieID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return ErrCoterieNotFound
		}
		return result.Error
	}

	allowed := coterie.OwnerID == userID
	if !allowed {
		var count int64
		err := s.db.WithContext(ctx).
			Model(&models.CoterieMember{}).
			Joins("JOIN characters ch ON ch.id = coterie_members.character_id").
			Where("coterie_members.coterie_id = ? AND ch.owner_id = ?", coterieID, userID).
			Count(&count).Error
		if err != nil {
			return err
		}
		allowed = count > 0
	}
	if !allowed {
		var count int64
		err := s.db.WithContext(ctx).
			Model(&models.CoterieMember{}).
			Joins("JOIN character_shares cs ON cs.character_id = coterie_members.character_id").
			Where("coterie_members.coterie_id = ? AND cs.shared_with_id = ?", coterieID, userID).
			Count(&count).Error
		if err != nil {
			return err
		}
		allowed = count > 0
	}

	if !allowed {
		return ErrCoterieAccessDenied
	}

	if s.cache != nil {
		s.cache.SetWithExpiration(cacheKey, true, time.Minute)
	}
	return nil
}
