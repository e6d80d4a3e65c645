package models

import "time"

// Character represents a Vampire: the Masquerade character sheet.
// Sheet attributes live in a JSON document; the relational columns are
// only what membership and sharing queries need.
type Character struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OwnerID   uint      `gorm:"index" json:"owner_id"`
	Name      string    `json:"name"`
	Clan      string    `json:"clan,omitempty"`
	Sheet     string    `gorm:"type:jsonb" json:"sheet,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CharacterShare grants another user read access to a character.
// Shares also extend coterie session access: a user holding a share on a
// coterie member character may join that coterie's chat session.
type CharacterShare struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CharacterID  uint      `gorm:"index" json:"character_id"`
	OwnerID      uint      `json:"owner_id"`
	SharedWithID uint      `gorm:"index" json:"shared_with_id"`
	CreatedAt    time.Time `json:"created_at"`
}
