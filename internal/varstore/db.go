package varstore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// VariableRecord is the persisted form of one variable. Values are stored
// as their exact decimal tokens; see [Value.Number].
type VariableRecord struct {
	ID        uint   `gorm:"primarykey"`
	Name      string `gorm:"uniqueIndex;size:255"`
	Kind      string
	Value     string
	UpdatedAt time.Time
}

// DB persists variable values to SQLite so a restarted store resumes from
// the last written values instead of zeros.
type DB struct {
	db     *gorm.DB
	logger *slog.Logger
}

// OpenDB opens (creating if necessary) the SQLite database at path and runs
// the schema migration.
func OpenDB(path string, log *slog.Logger) (*DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// sqlite permits one writer at a time; a single pooled connection keeps
	// concurrent persists from tripping over busy errors
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&VariableRecord{}); err != nil {
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	return &DB{db: db, logger: log}, nil
}

// SaveValue upserts the current value of a variable by name.
//
// Persists run concurrently on the server's per-connection goroutines, so
// the write must be one atomic ON CONFLICT statement.
func (d *DB) SaveValue(name string, v Value) error {
	rec := VariableRecord{
		Name:  name,
		Kind:  string(v.Kind()),
		Value: string(v.Number()),
	}
	err := d.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"kind", "value", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("saving record for %q: %w", name, err)
	}
	return nil
}

// LoadInto seeds a registry's declared variables from the last persisted
// values. Records for undeclared names or with a changed kind are skipped
// with a warning; the registry's declarations win.
//
// Returns the number of variables restored.
func (d *DB) LoadInto(reg *Registry) (int, error) {
	var records []VariableRecord
	if err := d.db.Find(&records).Error; err != nil {
		return 0, fmt.Errorf("loading records: %w", err)
	}

	restored := 0
	for _, rec := range records {
		h, err := reg.FindByName(rec.Name)
		if err != nil {
			d.logger.Warn("persisted variable is no longer declared", "name", rec.Name)
			continue
		}

		v, err := ParseValue(Kind(rec.Kind), json.Number(rec.Value))
		if err != nil {
			d.logger.Warn("persisted value is unreadable", "name", rec.Name, "error", err)
			continue
		}

		if err := reg.Set(h, v); err != nil {
			d.logger.Warn("persisted value no longer fits declaration",
				"name", rec.Name, "kind", rec.Kind, "error", err)
			continue
		}
		restored++
	}

	return restored, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
