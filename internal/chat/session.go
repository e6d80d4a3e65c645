package chat

import "time"

// SessionType distinguishes ad hoc rooms from coterie-bound ones
type SessionType string

const (
	// SessionTemporary is an ad hoc, id-addressed session
	SessionTemporary SessionType = "temporary"
	// SessionCoterie is bound 1:1 to a persistent coterie
	SessionCoterie SessionType = "coterie"
)

// Participant is one user's live presence within a session
type Participant struct {
	UserID        string
	UserName      string
	CharacterName string
	Conn          Conn
}

// Session is the unit of chat isolation. All mutation happens under the
// registry lock; a session holds no lock of its own.
type Session struct {
	ID           string
	Type         SessionType
	GroupID      string // set for coterie sessions
	CreatedAt    time.Time
	LastActivity time.Time

	participants map[string]*Participant
	order        []string // join order, for stable roster listings
}

func newSession(id string, typ SessionType, groupID string) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		Type:         typ,
		GroupID:      groupID,
		CreatedAt:    now,
		LastActivity: now,
		participants: make(map[string]*Participant),
	}
}

// addParticipant inserts or replaces the entry for the participant's user
// id. A rejoin replaces in place, keeping the original roster position.
func (s *Session) addParticipant(p *Participant) {
	if _, exists := s.participants[p.UserID]; !exists {
		s.order = append(s.order, p.UserID)
	}
	s.participants[p.UserID] = p
}

func (s *Session) removeParticipant(userID string) bool {
	if _, exists := s.participants[userID]; !exists {
		return false
	}
	delete(s.participants, userID)
	for i, id := range s.order {
		if id == userID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *Session) participant(userID string) (*Participant, bool) {
	p, ok := s.participants[userID]
	return p, ok
}

func (s *Session) size() int {
	return len(s.participants)
}

func (s *Session) touch() {
	s.LastActivity = time.Now()
}

// roster returns a join-ordered snapshot of the participants
func (s *Session) roster() []ParticipantInfo {
	infos := make([]ParticipantInfo, 0, len(s.order))
	for _, id := range s.order {
		p := s.participants[id]
		infos = append(infos, ParticipantInfo{
			UserID:        p.UserID,
			UserName:      p.UserName,
			CharacterName: p.CharacterName,
		})
	}
	return infos
}
