package checkpoint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/soulweave/rose/workflow"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SqliteStore persists checkpoints in an embedded SQLite database, one row
// per session with the state as a JSON column.
type SqliteStore struct {
	db *gorm.DB
}

type checkpointRecord struct {
	SessionID string `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	State datatypes.JSONType[workflow.State]
}

func (checkpointRecord) TableName() string {
	return "checkpoints"
}

var _ Store = (*SqliteStore)(nil)

func NewSqliteStore(dbPath string) (*SqliteStore, error) {
	if dbPath == "" {
		return nil, errors.New("checkpoint sqlite path is not configured")
	}
	if dbPath != ":memory:" {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
				return nil, errors.Wrapf(err, "failed to create checkpoint directory at %s", dbPath)
			}
		}
	}

	db, err := gorm.Open(
		sqlite.Open(fmt.Sprintf("file:%s?cache=shared&mode=rwc&_journal_mode=WAL&_foreign_keys=on", dbPath)),
		&gorm.Config{},
	)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open sqlite database at %s", dbPath)
	}

	if err := db.AutoMigrate(&checkpointRecord{}); err != nil {
		return nil, errors.Wrapf(err, "failed to migrate checkpoints table")
	}

	return &SqliteStore{db: db}, nil
}

func (s *SqliteStore) Load(ctx context.Context, sessionID string) (*workflow.State, error) {
	tx := s.db.WithContext(ctx)

	var record checkpointRecord
	if r := tx.Find(&record, "session_id = ?", sessionID); r.Error != nil {
		return nil, errors.Wrapf(r.Error, "failed to load checkpoint for %s", sessionID)
	} else if r.RowsAffected == 0 {
		return nil, nil
	}

	state := record.State.Data()
	return &state, nil
}

func (s *SqliteStore) Save(ctx context.Context, state *workflow.State) error {
	if state == nil || state.SessionID == "" {
		return errors.New("checkpoint state requires a session id")
	}

	tx := s.db.WithContext(ctx)

	record := checkpointRecord{
		SessionID: state.SessionID,
		State:     datatypes.NewJSONType(*state),
	}
	if err := tx.Save(&record).Error; err != nil {
		return errors.Wrapf(err, "failed to save checkpoint for %s", state.SessionID)
	}

	return nil
}

func (s *SqliteStore) Delete(ctx context.Context, sessionID string) error {
	tx := s.db.WithContext(ctx)

	if err := tx.Delete(&checkpointRecord{}, "session_id = ?", sessionID).Error; err != nil {
		return errors.Wrapf(err, "failed to delete checkpoint for %s", sessionID)
	}

	return nil
}

func (s *SqliteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.Wrapf(err, "failed to get db")
	}
	return errors.WithStack(sqlDB.Close())
}
