// Package history records completed downloads in a local sqlite database.
// It is an archive of what was downloaded, not resume state: interrupted
// transfers leave nothing behind and are not recorded.
package history

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"moul.io/zapgorm2"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// A Record is one completed download.
type Record struct {
	ID        int64 `gorm:"primaryKey"`
	CreatedAt time.Time
	Host      string
	VideoID   string
	Title     string
	FileURL   string
	Filename  string
	Kind      string
	Height    int
	SizeBytes int64
}

func (Record) TableName() string {
	return "history"
}

type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

// Open opens (creating if necessary) the history database at path and brings
// its schema up to date.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.L()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0775); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}
	gormLogger := zapgorm2.New(logger.Named("gorm"))
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := migrateSchema(sqlDB, logger); err != nil {
		return nil, err
	}
	return &Store{db: db, log: logger.Named("history")}, nil
}

func migrateSchema(db *sql.DB, logger *zap.Logger) error {
	fs, err := iofs.New(embedMigrations, "migrations")
	if err != nil {
		return err
	}
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", fs, "sqlite3", driver)
	if err != nil {
		return err
	}
	err = m.Up()
	switch err {
	case nil:
		logger.Debug("history schema migration complete")
	case migrate.ErrNoChange:
		logger.Debug("no history schema migration required")
	default:
		return err
	}
	return nil
}

// Add records one completed download.
func (s *Store) Add(ctx context.Context, record Record) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	return s.db.WithContext(ctx).Create(&record).Error
}

// List returns the most recent records, newest first. A limit <= 0 means all.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	var records []Record
	q := s.db.WithContext(ctx).Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
