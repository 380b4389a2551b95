// Package session provides session management for Sea Drive.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - Persistence to JSON files or to SQLite through gorm
//   - Expiry of idle sessions
//
// Core Types:
//
// Manager owns the in-memory sessions and falls back to its
// SessionPersistence when a session is not loaded. FilePersistence writes
// one JSON file per session. SQLPersistence keeps one row per session plus
// a bounded log of vehicle snapshots keyed by UUID.
//
// Session Identifiers:
//
// Generated IDs are 4 hex characters from crypto/rand. Lookups are
// case-insensitive.
//
// Usage:
//
//	store, err := session.NewSQLPersistence("sessions.db", configMgr, log)
//	if err != nil {
//		log.Fatal().Err(err).Send()
//	}
//	manager := session.NewManagerWithPersistence(store, session.WithBaseDir("configs"))
//
//	sess, err := manager.Create("", "harbour", config)
//
// Deleting or expiring a session stops its realtime runner first.
package session
