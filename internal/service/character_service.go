package service

import (
	"errors"

	"kindred-sheets/backend/internal/models"

	"gorm.io/gorm"
)

var ErrCharacterNotFound = errors.New("character not found")

// CharacterService handles character sheet read operations
type CharacterService struct {
	db *gorm.DB
}

// NewCharacterService creates a new character service
func NewCharacterService(db *gorm.DB) *CharacterService {
	return &CharacterService{db: db}
}

// GetCharacter retrieves a character by ID
func (s *CharacterService) GetCharacter(id uint) (*models.Character, error) {
	var character models.Character
	result := s.db.First(&character, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrCharacterNotFound
		}
		return nil, result.Error
	}
	return &character, nil
}

// ListOwned returns all characters owned by a user
func (s *CharacterService) ListOwned(userID uint) ([]models.Character, error) {
	var characters []models.Character
	err := s.db.Where("owner_id = ?", userID).Find(&characters).Error
	if characters == nil {
		characters = []models.Character{}
	}
	return characters, err
}

// ListSharedWith returns all characters shared with a user
func (s *CharacterService) ListSharedWith(userID uint) ([]models.Character, error) {
	var characters []models.Character
	err := s.db.
		Joins("JOIN character_shares cs ON cs.character_id = characters.id").
		Where("cs.shared_with_id = ?", userID).
		Find(&characters).Error
	if characters == nil {
		characters = []models.Character{}
	}
	return characters, err
}
