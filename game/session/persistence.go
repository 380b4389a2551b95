package session

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wricardo/mcp-training/seadrive/game/engine"
	"github.com/wricardo/mcp-training/seadrive/game/service"
)

// SessionPersistence defines the interface for persisting sessions.
// Save reads the session under its lock, so callers must not hold it.
type SessionPersistence interface {
	// Save persists a session to storage
	Save(session *service.Session) error

	// Load retrieves a session from storage by ID
	Load(id string) (*service.Session, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// PersistedSessionData represents the stored form of a session
type PersistedSessionData struct {
	ID             string               `json:"id"`
	ConfigName     string               `json:"config_name"`
	CreatedAt      time.Time            `json:"created_at"`
	LastAccessedAt time.Time            `json:"last_accessed_at"`
	State          engine.State         `json:"state"`
	Saved          *engine.SavedSession `json:"saved_session,omitempty"`
}

// capture snapshots a session under its lock
func capture(session *service.Session) (*PersistedSessionData, error) {
	if session == nil {
		return nil, fmt.Errorf("session cannot be nil")
	}

	session.Lock()
	defer session.Unlock()

	data := &PersistedSessionData{
		ID:             session.ID,
		ConfigName:     session.ConfigID,
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessedAt,
		State:          session.Vehicle.Snapshot(),
	}
	if session.Saved != nil {
		saved := *session.Saved
		data.Saved = &saved
	}
	return data, nil
}

// revive rebuilds a session from stored data and its scenario
func revive(data *PersistedSessionData, configs service.ConfigManager, log zerolog.Logger) (*service.Session, error) {
	config, err := configs.LoadConfig(data.ConfigName)
	if err != nil {
		return nil, fmt.Errorf("failed to load config '%s': %w", data.ConfigName, err)
	}

	session, err := service.NewSession(data.ID, data.ConfigName, config, configs.BaseDir(), log)
	if err != nil {
		return nil, err
	}
	if err := session.Vehicle.Restore(data.State); err != nil {
		return nil, fmt.Errorf("failed to restore vehicle state: %w", err)
	}
	session.Saved = data.Saved
	session.CreatedAt = data.CreatedAt
	session.LastAccessedAt = data.LastAccessedAt
	return session, nil
}
