package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/wricardo/mcp-training/seadrive/game/engine"
	"github.com/wricardo/mcp-training/seadrive/game/service"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

// Manager handles simulation session lifecycle
type Manager struct {
	sessions    map[string]*service.Session
	persistence SessionPersistence
	baseDir     string
	log         zerolog.Logger
	mu          sync.RWMutex
}

// Option configures a Manager
type Option func(*Manager)

// WithPersistence stores sessions through p
func WithPersistence(p SessionPersistence) Option {
	return func(m *Manager) {
		m.persistence = p
	}
}

// WithBaseDir resolves relative topology paths against dir
func WithBaseDir(dir string) Option {
	return func(m *Manager) {
		m.baseDir = dir
	}
}

// WithLogger sets the manager logger
func WithLogger(log zerolog.Logger) Option {
	return func(m *Manager) {
		m.log = log
	}
}

// NewManager creates a new session manager
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[string]*service.Session),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewManagerWithPersistence creates a new session manager with persistence
func NewManagerWithPersistence(persistence SessionPersistence, opts ...Option) *Manager {
	return NewManager(append([]Option{WithPersistence(persistence)}, opts...)...)
}

// Create creates a new session with the given ID and configuration
func (m *Manager) Create(id, configID string, config *engine.SimConfig) (*service.Session, error) {
	if id == "" {
		id = m.generateSessionID()
	} else if !validSessionID(id) {
		return nil, ErrInvalidSessionID
	}

	m.mu.Lock()
	if m.sessionExists(id) {
		m.mu.Unlock()
		return nil, ErrSessionAlreadyExists
	}

	session, err := service.NewSession(id, configID, config, m.baseDir, m.log)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	m.sessions[strings.ToLower(id)] = session
	m.mu.Unlock()

	if m.persistence != nil {
		if err := m.persistence.Save(session); err != nil {
			// Log error but don't fail the creation
			m.log.Warn().Err(err).Str("session", id).Msg("failed to persist new session")
		}
	}

	return session, nil
}

// Get retrieves a session by ID (case-insensitive), falling back to persistence
func (m *Manager) Get(id string) (*service.Session, error) {
	m.mu.RLock()
	session, exists := m.sessions[strings.ToLower(id)]
	m.mu.RUnlock()

	if exists {
		return session, nil
	}

	if m.persistence != nil && m.persistence.Exists(id) {
		loaded, err := m.persistence.Load(id)
		if err != nil {
			return nil, fmt.Errorf("failed to load persisted session: %w", err)
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		// Another caller may have loaded it meanwhile
		if session, exists := m.sessions[strings.ToLower(id)]; exists {
			loaded.Close()
			return session, nil
		}
		m.sessions[strings.ToLower(id)] = loaded
		return loaded, nil
	}

	return nil, ErrSessionNotFound
}

// GetOrCreate gets an existing session or creates a new one
func (m *Manager) GetOrCreate(id, configID string, config *engine.SimConfig) (*service.Session, error) {
	session, err := m.Get(id)
	if err == nil {
		return session, nil
	}

	if errors.Is(err, ErrSessionNotFound) {
		return m.Create(id, configID, config)
	}

	return nil, err
}

// List returns all active sessions
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}

	return result
}

// Delete stops and removes a session from memory and persistence
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	lowerID := strings.ToLower(id)
	session, inMemory := m.sessions[lowerID]
	delete(m.sessions, lowerID)
	m.mu.Unlock()

	if inMemory {
		session.Close()
	}

	if m.persistence != nil && m.persistence.Exists(id) {
		if err := m.persistence.Delete(id); err != nil {
			return fmt.Errorf("failed to delete persisted session: %w", err)
		}
		return nil
	}

	if !inMemory {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteFromMemory stops a session and drops it from memory only
func (m *Manager) DeleteFromMemory(id string) error {
	m.mu.Lock()
	lowerID := strings.ToLower(id)
	session, exists := m.sessions[lowerID]
	delete(m.sessions, lowerID)
	m.mu.Unlock()

	if !exists {
		return ErrSessionNotFound
	}
	session.Close()
	return nil
}

// UpdateLastAccessed updates the last accessed time for a session
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.RLock()
	session, exists := m.sessions[strings.ToLower(id)]
	m.mu.RUnlock()

	if !exists {
		return ErrSessionNotFound
	}
	session.Touch()
	return nil
}

// Save saves a specific session to persistence
func (m *Manager) Save(id string) error {
	if m.persistence == nil {
		return nil
	}

	m.mu.RLock()
	session, exists := m.sessions[strings.ToLower(id)]
	m.mu.RUnlock()

	if !exists {
		return ErrSessionNotFound
	}
	return m.persistence.Save(session)
}

// CleanupExpiredSessions stops and removes sessions that haven't been
// accessed in the given duration. Running sessions are kept.
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	m.mu.Lock()
	var expired []*service.Session
	for id, session := range m.sessions {
		if session.Running() || !session.LastAccessed().Before(cutoff) {
			continue
		}
		delete(m.sessions, id)
		expired = append(expired, session)
	}
	m.mu.Unlock()

	for _, session := range expired {
		session.Close()
		m.log.Debug().Str("session", session.ID).Msg("expired session removed")
	}
	return len(expired)
}

// Count returns the number of active sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// generateSessionID generates a random 4-character session ID
func (m *Manager) generateSessionID() string {
	for {
		bytes := make([]byte, 2)
		rand.Read(bytes)
		id := hex.EncodeToString(bytes)

		m.mu.RLock()
		taken := m.sessionExists(id)
		m.mu.RUnlock()
		if !taken {
			return id
		}
	}
}

// sessionExists checks if a session exists (case-insensitive). Caller holds the lock.
func (m *Manager) sessionExists(id string) bool {
	_, exists := m.sessions[strings.ToLower(id)]
	return exists
}

// validSessionID accepts ids that are safe to use as file names
func validSessionID(id string) bool {
	if len(id) > 64 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// LoadPersistedSessions loads all persisted sessions into memory
func (m *Manager) LoadPersistedSessions() error {
	if m.persistence == nil {
		return nil
	}

	sessionIDs, err := m.persistence.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list persisted sessions: %w", err)
	}

	loadedCount := 0
	for _, id := range sessionIDs {
		m.mu.RLock()
		loaded := m.sessionExists(id)
		m.mu.RUnlock()
		if loaded {
			continue
		}

		session, err := m.persistence.Load(id)
		if err != nil {
			m.log.Warn().Err(err).Str("session", id).Msg("failed to load persisted session")
			continue
		}

		m.mu.Lock()
		m.sessions[strings.ToLower(id)] = session
		m.mu.Unlock()
		loadedCount++
	}

	if loadedCount > 0 {
		m.log.Info().Int("count", loadedCount).Msg("loaded persisted sessions from storage")
	}

	return nil
}

// SaveAllSessions saves all in-memory sessions to persistence
func (m *Manager) SaveAllSessions() error {
	if m.persistence == nil {
		return nil
	}

	sessions := m.List()
	errorCount := 0
	for _, session := range sessions {
		if err := m.persistence.Save(session); err != nil {
			m.log.Warn().Err(err).Str("session", session.ID).Msg("failed to save session")
			errorCount++
		}
	}

	if errorCount > 0 {
		return fmt.Errorf("failed to save %d sessions", errorCount)
	}

	return nil
}
