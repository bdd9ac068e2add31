package calibration

import (
	"database/sql"

	"github.com/englishfox90/pfrsentinel/internal/errors"
	"github.com/englishfox90/pfrsentinel/internal/logger"
)

const (
	SchemaVersion = 1

	// A few hot columns are broken out for querying; the full record
	// rides along as JSON so the schema does not chase the record shape.
	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS calibration_records (
	       id            INTEGER PRIMARY KEY AUTOINCREMENT,
	       timestamp     INTEGER NOT NULL,
	       session       TEXT NOT NULL DEFAULT '',
	       period        TEXT NOT NULL DEFAULT '',
	       denom         INTEGER NOT NULL,
	       exposure_sec  REAL NOT NULL,
	       gain          INTEGER NOT NULL,
	       median_lum    REAL NOT NULL,
	       corner_ratio  REAL NOT NULL,
	       is_dark_scene INTEGER NOT NULL CHECK (is_dark_scene IN (0, 1)),
	       payload       TEXT NOT NULL
	   );
	   CREATE INDEX IF NOT EXISTS idx_calibration_records_timestamp
	       ON calibration_records (timestamp);`

	insertRecordSQL = `
    INSERT INTO calibration_records (
        timestamp, session, period,
        denom, exposure_sec, gain,
        median_lum, corner_ratio, is_dark_scene,
        payload
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
)

// InitSchema creates the schema at the current version.
func InitSchema(db *sql.DB, log logger.Logger) error {
	errFactory := errors.New()

	tx, err := db.Begin()
	if err != nil {
		return errFactory.Wrap(errors.ErrSchemaInit, err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				log.Debug().Err(err).Msg("Failed to rollback transaction")
			}
		}
	}()

	if _, err := tx.Exec(createTablesSQL); err != nil {
		return errFactory.Wrap(errors.ErrSchemaInit, err)
	}

	if _, err := tx.Exec(`
        INSERT INTO schema_versions (version, applied_at)
        VALUES (?, datetime('now'))
    `, SchemaVersion); err != nil {
		return errFactory.WithData(errors.ErrSchemaInit, struct {
			Error string
			Phase string
		}{
			Error: err.Error(),
			Phase: "record_version",
		})
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(errors.ErrSchemaInit, err)
	}
	committed = true

	log.Info().
		Int("version", SchemaVersion).
		Msg("Calibration schema initialized")

	return nil
}

// GetSchemaVersion returns the stored schema version, 0 for a fresh
// database.
func GetSchemaVersion(db *sql.DB) (int, error) {
	errFactory := errors.New()

	exists, err := tableExists(db, "schema_versions")
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}

	var version int
	err = db.QueryRow(`
        SELECT version
        FROM schema_versions
        ORDER BY version DESC
        LIMIT 1
    `).Scan(&version)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errFactory.Wrap(errors.ErrSchemaInit, err)
	}

	return version, nil
}

func tableExists(db *sql.DB, tableName string) (bool, error) {
	var exists bool
	err := db.QueryRow(`
        SELECT EXISTS (
            SELECT 1 FROM sqlite_master
            WHERE type='table' AND name=?
        )
    `, tableName).Scan(&exists)
	if err != nil {
		return false, errors.New().WithData(errors.ErrSchemaInit, struct {
			Phase string
			Table string
			Error string
		}{
			Phase: "check_table_exists",
			Table: tableName,
			Error: err.Error(),
		})
	}

	return exists, nil
}

// ValidateAndUpdateSchema checks the stored version and rebuilds the
// schema when it is missing or stale. Stale schemas are dropped rather
// than migrated; calibration data is a rolling observation log, not a
// system of record.
func ValidateAndUpdateSchema(db *sql.DB, log logger.Logger) error {
	version, err := GetSchemaVersion(db)
	if err != nil {
		return err
	}

	if version == SchemaVersion {
		log.Debug().Int("version", version).Msg("Schema version is current")
		return nil
	}

	if version != 0 {
		log.Warn().
			Int("stored", version).
			Int("current", SchemaVersion).
			Msg("Schema version mismatch, rebuilding calibration tables")
		if err := dropTables(db); err != nil {
			return err
		}
	}

	return InitSchema(db, log)
}

func dropTables(db *sql.DB) error {
	errFactory := errors.New()

	for _, table := range []string{"calibration_records", "schema_versions"} {
		if _, err := db.Exec("DROP TABLE IF EXISTS " + table); err != nil {
			return errFactory.WithData(errors.ErrSchemaInit, struct {
				Phase string
				Table string
				Error string
			}{
				Phase: "drop_table",
				Table: table,
				Error: err.Error(),
			})
		}
	}

	return nil
}
