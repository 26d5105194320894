// internal/database/db.go
package database

import (
	"errors"
	"fmt"
	stdlog "log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"bishop-bot/internal/logging"
	"bishop-bot/internal/models"

	"github.com/glebarez/sqlite"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultPath is used when Open is given an empty path.
var DefaultPath = filepath.Join("data", "bishop.db")

// ErrNotFound is returned by lookups that must distinguish a missing row.
var ErrNotFound = errors.New("database: not found")

// Store owns the bot's single SQLite file.
//
// The key/value, guild settings and transcript accessors never return errors:
// failures are logged and the caller gets the zero answer (absent, empty map,
// empty slice or false). Only Open reports failure.
type Store struct {
	db   *gorm.DB
	path string
	log  *log.Entry
	now  func() time.Time

	closeOnce sync.Once
}

// Open creates the parent directory, opens the database file and makes sure
// the schema exists. It is safe to call on every startup.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath
	}
	entry := logging.Component("database")

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("database: create directory %s: %w", dir, err)
		}
	}

	gormDB, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.New(
			stdlog.New(os.Stderr, "\r\n", stdlog.LstdFlags),
			logger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  logger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("database: open %s: %w", path, err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("database: sql handle: %w", err)
	}

	// One writer at a time; connections are checked out per statement.
	sqlDB.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
	} {
		if err := gormDB.Exec(pragma).Error; err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("database: %s: %w", pragma, err)
		}
	}

	if err := gormDB.AutoMigrate(
		&models.BotData{},
		&models.GuildSettings{},
		&models.Transcript{},
		&models.Character{},
	); err != nil {
		sqlDB.Close()
		entry.WithError(err).Error("schema initialization failed")
		return nil, fmt.Errorf("database: migrate: %w", err)
	}

	entry.WithField("path", path).Info("database initialized")
	return &Store{
		db:   gormDB,
		path: path,
		log:  entry,
		now:  time.Now,
	}, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close releases the connection pool. Extra calls are no-ops.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	var err error
	s.closeOnce.Do(func() {
		sqlDB, dbErr := s.db.DB()
		if dbErr != nil {
			err = dbErr
			return
		}
		err = sqlDB.Close()
	})
	return err
}

// Backup writes a consistent copy of the database to dest.
func (s *Store) Backup(dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("database: backup directory: %w", err)
	}
	if _, err := os.Stat(dest); err == nil {
		return fmt.Errorf("database: backup target %s already exists", dest)
	}
	if err := s.db.Exec("VACUUM INTO ?", dest).Error; err != nil {
		return fmt.Errorf("database: backup to %s: %w", dest, err)
	}
	s.log.WithField("dest", dest).Info("database backed up")
	return nil
}
