// Package store persists the catalog and sampled ephemerides through
// GORM, on SQLite by default with optional Postgres.
package store

import (
	"context"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/stellarworks/universe-simulator/internal/config"
	"github.com/stellarworks/universe-simulator/internal/logging"
	"github.com/stellarworks/universe-simulator/model"
)

// Manager handles the database connection and catalog persistence.
type Manager struct {
	db  *gorm.DB
	log logging.Logger
}

// Open establishes a database connection according to cfg. A failed
// Postgres connection falls back to local SQLite so the server always
// comes up with working persistence.
func Open(ctx context.Context, cfg config.DatabaseConfig, log logging.Logger) (*Manager, error) {
	if log == nil {
		log = logging.Noop()
	}
	m := &Manager{log: log}

	var err error
	switch cfg.Driver {
	case "postgres":
		m.db, err = openPostgres(cfg)
		if err != nil {
			log.Warn(ctx, "postgres connection failed, falling back to sqlite",
				logging.String("error", err.Error()))
			m.db, err = openSqlite(cfg.Path)
		}
	default:
		m.db, err = openSqlite(cfg.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return nil, fmt.Errorf("access sql interface: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info(ctx, "database connected", logging.String("dialect", m.db.Dialector.Name()))

	if cfg.AutoMigrate {
		if err := m.Migrate(); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func openPostgres(cfg config.DatabaseConfig) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.PostgresDSN(),
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        1000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
}

func openSqlite(path string) (*gorm.DB, error) {
	if path == "" {
		path = "file::memory:?cache=shared"
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		CreateBatchSize:        1000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		"PRAGMA user_version = 1;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA cache_size = -32000;",
		"PRAGMA temp_store = MEMORY;",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}
	return db, nil
}

// Migrate creates or updates the schema.
func (m *Manager) Migrate() error {
	if err := m.db.AutoMigrate(&ObjectRow{}, &EphemerisRow{}); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (m *Manager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveObjects upserts the given objects. Existing rows are fully
// replaced, so the store mirrors the in-memory catalog after each sync.
func (m *Manager) SaveObjects(objs []model.CelestialObject) error {
	if len(objs) == 0 {
		return nil
	}
	rows := make([]ObjectRow, 0, len(objs))
	for _, obj := range objs {
		rows = append(rows, rowFromObject(obj))
	}

	err := m.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("save objects: %w", err)
	}
	return nil
}

// LoadObjects returns every persisted object.
func (m *Manager) LoadObjects() ([]model.CelestialObject, error) {
	var rows []ObjectRow
	if err := m.db.Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load objects: %w", err)
	}
	objs := make([]model.CelestialObject, 0, len(rows))
	for _, row := range rows {
		objs = append(objs, row.toObject())
	}
	return objs, nil
}

// DeleteObject removes one object and its ephemeris history.
func (m *Manager) DeleteObject(id string) error {
	if err := m.db.Delete(&ObjectRow{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete object %s: %w", id, err)
	}
	if err := m.db.Delete(&EphemerisRow{}, "object_id = ?", id).Error; err != nil {
		return fmt.Errorf("delete ephemeris for %s: %w", id, err)
	}
	return nil
}

// CountObjects reports how many objects are persisted.
func (m *Manager) CountObjects() (int64, error) {
	var n int64
	if err := m.db.Model(&ObjectRow{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count objects: %w", err)
	}
	return n, nil
}

// AppendEphemeris stores a batch of sampled positions.
func (m *Manager) AppendEphemeris(recs []model.EphemerisRecord) error {
	if len(recs) == 0 {
		return nil
	}
	rows := make([]EphemerisRow, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, rowFromEphemeris(rec))
	}
	if err := m.db.Create(&rows).Error; err != nil {
		return fmt.Errorf("append ephemeris: %w", err)
	}
	return nil
}

// EphemerisRange returns samples for one object between two Julian
// dates, oldest first. limit <= 0 means no limit.
func (m *Manager) EphemerisRange(objectID string, fromJD, toJD float64, limit int) ([]model.EphemerisRecord, error) {
	q := m.db.
		Where("object_id = ? AND julian_date >= ? AND julian_date <= ?", objectID, fromJD, toJD).
		Order("julian_date")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []EphemerisRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("ephemeris range for %s: %w", objectID, err)
	}
	recs := make([]model.EphemerisRecord, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, row.toEphemeris())
	}
	return recs, nil
}
