package collab

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// PresenceManager tracks who is in a room along with their cursor and
// selection, keyed by user id.
type PresenceManager struct {
	mu   sync.RWMutex
	byID map[string]PresencePayload
}

func NewPresenceManager() *PresenceManager {
	return &PresenceManager{byID: make(map[string]PresencePayload)}
}

func (pm *PresenceManager) Update(userID string, p *PresencePayload) {
	if p == nil {
		return
	}
	pm.mu.Lock()
	pm.byID[userID] = *p
	pm.mu.Unlock()
}

func (pm *PresenceManager) Remove(userID string) {
	pm.mu.Lock()
	delete(pm.byID, userID)
	pm.mu.Unlock()
}

// StateMessage builds a presence.state message with every tracked presence,
// or nil when the room is empty.
func (pm *PresenceManager) StateMessage() *Message {
	pm.mu.RLock()
	presences := make(map[string]*PresencePayload, len(pm.byID))
	for id, p := range pm.byID {
		cp := p
		presences[id] = &cp
	}
	pm.mu.RUnlock()

	if len(presences) == 0 {
		return nil
	}

	payload, err := json.Marshal(PresenceStatePayload{Presences: presences})
	if err != nil {
		slog.Error("marshal presence state", "error", err)
		return nil
	}
	return &Message{Type: TypePresenceState, Payload: payload}
}
