package models

import "time"

// Coterie is a persistent group of characters with a single owner.
// Its string ID doubles as the groupId on the chat wire protocol.
type Coterie struct {
	ID        string    `gorm:"primaryKey;size:100" json:"id"`
	OwnerID   uint      `gorm:"index" json:"owner_id"`
	Name      string    `json:"name"`
	Concept   string    `json:"concept,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CoterieMember registers a character as a member of a coterie
type CoterieMember struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CoterieID   string    `gorm:"index;size:100" json:"coterie_id"`
	CharacterID uint      `gorm:"index" json:"character_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// CoterieResponse is the read shape returned by the REST surface
type CoterieResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Concept string `json:"concept,omitempty"`
	OwnerID uint   `json:"owner_id"`
	Members int    `json:"members"`
}
