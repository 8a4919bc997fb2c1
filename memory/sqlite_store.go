//go:build !without_sqlite

package memory

import (
	"context"
	"fmt"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SqliteStore implements Store using SQLite with the sqlite-vec extension.
// It is the default embedded backend when no Qdrant endpoint is configured.
type SqliteStore struct {
	db     *gorm.DB
	vecDim int
}

type sqliteMemoryRecord struct {
	ID        string `gorm:"primaryKey"`
	CreatedAt time.Time

	Text      string
	SessionID string
}

func (sqliteMemoryRecord) TableName() string {
	return "memories"
}

var _ Store = (*SqliteStore)(nil)

func NewSqliteStore(dbPath string, dimension int) (*SqliteStore, error) {
	sqlite_vec.Auto()

	db, err := gorm.Open(
		sqlite.Open(fmt.Sprintf("file:%s?cache=shared&mode=rwc&_journal_mode=WAL&_foreign_keys=on", dbPath)),
		&gorm.Config{},
	)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open sqlite database")
	}

	store := &SqliteStore{
		db:     db,
		vecDim: dimension,
	}

	if err := db.AutoMigrate(&sqliteMemoryRecord{}); err != nil {
		return nil, errors.Wrapf(err, "failed to migrate memories table")
	}

	if err := store.createVectorTable(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SqliteStore) createVectorTable() error {
	var sqliteVersion, vecVersion string
	err := s.db.Raw("SELECT sqlite_version(), vec_version()").Row().Scan(&sqliteVersion, &vecVersion)
	if err != nil {
		return errors.Wrapf(err, "sqlite-vec extension not properly loaded")
	}

	createTableSQL := fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS memory_vectors USING vec0(
			memory_id TEXT PRIMARY KEY,
			embedding float[%d] distance_metric=cosine
		);
	`, s.vecDim)

	if err := s.db.Exec(createTableSQL).Error; err != nil {
		return errors.Wrapf(err, "failed to create memory_vectors table")
	}

	return nil
}

func (s *SqliteStore) Upsert(ctx context.Context, memory *Memory) error {
	if memory.ID == "" {
		return errors.New("memory id is empty")
	}

	tx := s.db.WithContext(ctx)
	return tx.Transaction(func(tx *gorm.DB) error {
		record := sqliteMemoryRecord{
			ID:        memory.ID,
			CreatedAt: memory.CreatedAt,
			Text:      memory.Text,
			SessionID: memory.SessionID,
		}

		if err := tx.Save(&record).Error; err != nil {
			return errors.Wrapf(err, "failed to save memory record")
		}

		if len(memory.Embedding) == 0 {
			return nil
		}

		if err := tx.Exec("DELETE FROM memory_vectors WHERE memory_id = ?", memory.ID).Error; err != nil {
			return errors.Wrapf(err, "failed to delete existing vector")
		}

		serialized, err := sqlite_vec.SerializeFloat32(memory.Embedding)
		if err != nil {
			return errors.Wrapf(err, "failed to serialize embedding")
		}

		if err := tx.Exec("INSERT INTO memory_vectors (memory_id, embedding) VALUES (?, ?)", memory.ID, serialized).Error; err != nil {
			return errors.Wrapf(err, "failed to insert memory vector")
		}

		return nil
	})
}

func (s *SqliteStore) Search(ctx context.Context, queryEmbedding []float32, limit int) ([]ScoredMemory, error) {
	if len(queryEmbedding) == 0 {
		return nil, errors.New("query embedding is empty")
	}

	serialized, err := sqlite_vec.SerializeFloat32(queryEmbedding)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to serialize query embedding")
	}

	rows, err := s.db.WithContext(ctx).Raw(`
		SELECT memory_id, distance
		FROM memory_vectors
		WHERE embedding MATCH ?
		ORDER BY distance
		LIMIT ?
	`, serialized, limit).Rows()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to execute search query")
	}
	defer rows.Close()

	var ids []string
	distanceMap := make(map[string]float64)
	for rows.Next() {
		var id string
		var distance float64
		if err := rows.Scan(&id, &distance); err != nil {
			return nil, errors.Wrapf(err, "failed to scan result row")
		}
		ids = append(ids, id)
		distanceMap[id] = distance
	}

	if len(ids) == 0 {
		return []ScoredMemory{}, nil
	}

	var records []sqliteMemoryRecord
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&records).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to fetch memory records")
	}

	byID := make(map[string]sqliteMemoryRecord, len(records))
	for _, record := range records {
		byID[record.ID] = record
	}

	// Preserve distance order from the vector query.
	results := make([]ScoredMemory, 0, len(ids))
	for _, id := range ids {
		record, ok := byID[id]
		if !ok {
			continue
		}

		results = append(results, ScoredMemory{
			Memory: &Memory{
				ID:        record.ID,
				Text:      record.Text,
				SessionID: record.SessionID,
				CreatedAt: record.CreatedAt,
			},
			// Cosine distance to similarity.
			Score: 1.0 - distanceMap[id],
		})
	}

	return results, nil
}

func (s *SqliteStore) Delete(ctx context.Context, id string) error {
	tx := s.db.WithContext(ctx)
	return tx.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM memory_vectors WHERE memory_id = ?", id).Error; err != nil {
			return errors.Wrapf(err, "failed to delete memory vector")
		}
		if err := tx.Delete(&sqliteMemoryRecord{}, "id = ?", id).Error; err != nil {
			return errors.Wrapf(err, "failed to delete memory record")
		}
		return nil
	})
}

func (s *SqliteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.Wrapf(err, "failed to get db")
	}
	return errors.WithStack(sqlDB.Close())
}
