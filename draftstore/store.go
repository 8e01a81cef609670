// Package draftstore keeps sketch drafts in a local SQL database through
// gorm. SQLite is the default; Postgres is used when configured and
// reachable.
package draftstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/eyedentify/sketchpad"
	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// draftRow is one stored draft. State holds the draft JSON: the sketch
// state plus its timestamp.
type draftRow struct {
	Key     string         `gorm:"column:draft_key;primaryKey;size:128"`
	State   datatypes.JSON `gorm:"not null"`
	SavedAt time.Time      `gorm:"index"`
}

func (draftRow) TableName() string { return "sketch_drafts" }

// PostgresConfig holds Postgres connection settings.
type PostgresConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

func (c PostgresConfig) dsn() string {
	return fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		c.Host, c.Port, c.Username, c.Password, c.Database)
}

// Config selects the backend. Driver is "sqlite" (default) or "postgres".
// Path is the SQLite file; empty means in-memory. SQLite at Path is also
// the fallback when Postgres cannot be reached.
type Config struct {
	Driver   string
	Path     string
	Postgres PostgresConfig
}

// DraftInfo describes a stored draft without its state.
type DraftInfo struct {
	Key     string
	SavedAt time.Time
}

// Store implements sketchpad.DraftStore.
type Store struct {
	db    *gorm.DB
	sqlDB *sql.DB
	local bool
	log   zerolog.Logger
}

var _ sketchpad.DraftStore = (*Store)(nil)

// Open connects to the configured database, falling back to SQLite if
// Postgres fails, and migrates the drafts table.
func Open(cfg Config, log zerolog.Logger) (*Store, error) {
	var (
		db  *gorm.DB
		err error
	)
	if cfg.Driver == "postgres" {
		db, err = openPostgres(cfg.Postgres)
		if err == nil {
			err = ping(db)
		}
		if err != nil {
			log.Error().Err(err).Msg("Failed to connect to Postgres, using SQLite drafts")
			db = nil
		}
	}
	if db == nil {
		db, err = openSqlite(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite drafts: %w", err)
		}
		if err := ping(db); err != nil {
			return nil, fmt.Errorf("failed to validate SQLite drafts: %w", err)
		}
	}

	s, err := New(db, log)
	if err != nil {
		return nil, err
	}
	if s.local {
		log.Info().Str("path", cfg.Path).Msg("Using local SQLite drafts")
	} else {
		log.Info().Str("host", cfg.Postgres.Host).Msg("Connected to Postgres drafts")
	}
	return s, nil
}

// New wraps an open gorm connection and migrates the drafts table.
func New(db *gorm.DB, log zerolog.Logger) (*Store, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err := db.AutoMigrate(&draftRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate sketch_drafts: %w", err)
	}
	return &Store{db: db, sqlDB: sqlDB, local: db.Dialector.Name() != "postgres", log: log}, nil
}

func openPostgres(c PostgresConfig) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  c.dsn(),
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
}

func openSqlite(path string) (*gorm.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000;",
		"PRAGMA synchronous = NORMAL;",
	}
	if path != "" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL;")
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}
	return db, nil
}

func ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Local reports whether drafts are kept in SQLite.
func (s *Store) Local() bool { return s.local }

// SaveDraft writes d under key, replacing any earlier draft.
func (s *Store) SaveDraft(ctx context.Context, key string, d sketchpad.Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode draft %s: %w", key, err)
	}
	row := draftRow{Key: key, State: datatypes.JSON(data), SavedAt: d.Timestamp.UTC()}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("save draft %s: %w", key, err)
	}
	s.log.Debug().Str("key", key).Int("bytes", len(data)).Msg("Draft saved")
	return nil
}

// LoadDraft returns the draft stored under key or sketchpad.ErrDraftNotFound.
func (s *Store) LoadDraft(ctx context.Context, key string) (sketchpad.Draft, error) {
	var row draftRow
	err := s.db.WithContext(ctx).Where("draft_key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sketchpad.Draft{}, fmt.Errorf("load draft %s: %w", key, sketchpad.ErrDraftNotFound)
	}
	if err != nil {
		return sketchpad.Draft{}, fmt.Errorf("load draft %s: %w", key, err)
	}
	var d sketchpad.Draft
	if err := json.Unmarshal(row.State, &d); err != nil {
		return sketchpad.Draft{}, fmt.Errorf("decode draft %s: %w", key, err)
	}
	if d.Timestamp.IsZero() {
		d.Timestamp = row.SavedAt
	}
	return d, nil
}

// DeleteDraft removes the draft under key. Deleting a missing draft is not
// an error.
func (s *Store) DeleteDraft(ctx context.Context, key string) error {
	err := s.db.WithContext(ctx).Where("draft_key = ?", key).Delete(&draftRow{}).Error
	if err != nil {
		return fmt.Errorf("delete draft %s: %w", key, err)
	}
	return nil
}

// List returns every stored draft, newest first.
func (s *Store) List(ctx context.Context) ([]DraftInfo, error) {
	var rows []draftRow
	err := s.db.WithContext(ctx).
		Select("draft_key", "saved_at").
		Order("saved_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	out := make([]DraftInfo, len(rows))
	for i, r := range rows {
		out[i] = DraftInfo{Key: r.Key, SavedAt: r.SavedAt}
	}
	return out, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.sqlDB.Close()
}
