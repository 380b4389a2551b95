package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wricardo/mcp-training/seadrive/game/engine"
	"github.com/wricardo/mcp-training/seadrive/game/service"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MaxSnapshots is how many snapshots are kept per session
const MaxSnapshots = 20

// sessionRow is the latest stored form of a session
type sessionRow struct {
	ID             string `gorm:"primaryKey;size:64"`
	ConfigName     string `gorm:"size:128"`
	CreatedAt      time.Time
	LastAccessedAt time.Time
	Data           datatypes.JSON
}

func (sessionRow) TableName() string { return "sessions" }

// snapshotRow is one entry of the append-only snapshot log
type snapshotRow struct {
	ID        string `gorm:"primaryKey;size:36"`
	SessionID string `gorm:"index;size:64"`
	Tick      uint64
	CreatedAt int64 `gorm:"index"` // unix nanoseconds
	State     datatypes.JSON
}

func (snapshotRow) TableName() string { return "session_snapshots" }

// SnapshotInfo describes a stored snapshot
type SnapshotInfo struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Tick      uint64          `json:"tick"`
	Position  engine.Position `json:"position"`
	CreatedAt time.Time       `json:"created_at"`
}

// SQLPersistence implements SessionPersistence on SQLite through gorm.
// Every Save also appends the vehicle state to a per-session snapshot log.
type SQLPersistence struct {
	db            *gorm.DB
	configManager service.ConfigManager
	log           zerolog.Logger
}

// NewSQLPersistence opens (or creates) the database at path. An empty path
// uses a private in-memory database.
func NewSQLPersistence(path string, configManager service.ConfigManager, log zerolog.Logger) (*SQLPersistence, error) {
	dsn := path
	if dsn == "" {
		dsn = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}

	if err := db.AutoMigrate(&sessionRow{}, &snapshotRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate session tables: %w", err)
	}

	if path == "" {
		log.Info().Msg("Using in-memory SQLite session store")
	} else {
		log.Info().Str("path", path).Msg("Using SQLite session store")
	}

	return &SQLPersistence{
		db:            db,
		configManager: configManager,
		log:           log,
	}, nil
}

// Save upserts the session row and appends a snapshot
func (sp *SQLPersistence) Save(session *service.Session) error {
	data, err := capture(session)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}
	state, err := json.Marshal(data.State)
	if err != nil {
		return fmt.Errorf("failed to marshal vehicle state: %w", err)
	}

	id := strings.ToLower(data.ID)
	return sp.db.Transaction(func(tx *gorm.DB) error {
		row := sessionRow{
			ID:             id,
			ConfigName:     data.ConfigName,
			CreatedAt:      data.CreatedAt,
			LastAccessedAt: data.LastAccessedAt,
			Data:           datatypes.JSON(payload),
		}
		if err := tx.Save(&row).Error; err != nil {
			return fmt.Errorf("failed to save session row: %w", err)
		}

		snap := snapshotRow{
			ID:        uuid.NewString(),
			SessionID: id,
			Tick:      data.State.Tick,
			CreatedAt: time.Now().UnixNano(),
			State:     datatypes.JSON(state),
		}
		if err := tx.Create(&snap).Error; err != nil {
			return fmt.Errorf("failed to append snapshot: %w", err)
		}

		keep := tx.Model(&snapshotRow{}).Select("id").
			Where("session_id = ?", id).
			Order("created_at desc").
			Limit(MaxSnapshots)
		if err := tx.Where("session_id = ? AND id NOT IN (?)", id, keep).Delete(&snapshotRow{}).Error; err != nil {
			return fmt.Errorf("failed to trim snapshots: %w", err)
		}
		return nil
	})
}

// Load retrieves a session by ID
func (sp *SQLPersistence) Load(id string) (*service.Session, error) {
	var row sessionRow
	if err := sp.db.First(&row, "id = ?", strings.ToLower(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read session row: %w", err)
	}

	var data PersistedSessionData
	if err := json.Unmarshal(row.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session data: %w", err)
	}
	return revive(&data, sp.configManager, sp.log)
}

// Delete removes a session and its snapshots
func (sp *SQLPersistence) Delete(id string) error {
	id = strings.ToLower(id)
	return sp.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&sessionRow{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete session row: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrSessionNotFound
		}
		if err := tx.Delete(&snapshotRow{}, "session_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete snapshots: %w", err)
		}
		return nil
	})
}

// ListAll returns all persisted session IDs
func (sp *SQLPersistence) ListAll() ([]string, error) {
	var ids []string
	if err := sp.db.Model(&sessionRow{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return ids, nil
}

// Exists checks if a session row exists
func (sp *SQLPersistence) Exists(id string) bool {
	var count int64
	if err := sp.db.Model(&sessionRow{}).Where("id = ?", strings.ToLower(id)).Count(&count).Error; err != nil {
		sp.log.Warn().Err(err).Str("session", id).Msg("failed to check session row")
		return false
	}
	return count > 0
}

// Snapshots lists the stored snapshots of a session, newest first
func (sp *SQLPersistence) Snapshots(id string) ([]SnapshotInfo, error) {
	var rows []snapshotRow
	err := sp.db.Where("session_id = ?", strings.ToLower(id)).
		Order("created_at desc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	infos := make([]SnapshotInfo, 0, len(rows))
	for _, row := range rows {
		var state engine.State
		if err := json.Unmarshal(row.State, &state); err != nil {
			return nil, fmt.Errorf("failed to unmarshal snapshot %s: %w", row.ID, err)
		}
		infos = append(infos, SnapshotInfo{
			ID:        row.ID,
			SessionID: row.SessionID,
			Tick:      row.Tick,
			Position:  state.Position,
			CreatedAt: time.Unix(0, row.CreatedAt),
		})
	}
	return infos, nil
}

// LoadSnapshot returns the vehicle state stored under snapshotID
func (sp *SQLPersistence) LoadSnapshot(snapshotID string) (*engine.State, error) {
	if _, err := uuid.Parse(snapshotID); err != nil {
		return nil, fmt.Errorf("invalid snapshot id '%s': %w", snapshotID, err)
	}

	var row snapshotRow
	if err := sp.db.First(&row, "id = ?", snapshotID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("snapshot %s not found", snapshotID)
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var state engine.State
	if err := json.Unmarshal(row.State, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &state, nil
}

// Close releases the database
func (sp *SQLPersistence) Close() error {
	sqlDB, err := sp.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
