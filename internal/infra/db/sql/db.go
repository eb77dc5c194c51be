package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"staybook/internal/domain/shared/faults"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"

	exclusionConstraint = "bookings_no_confirmed_overlap"
	exclusionViolation  = "exclusion_violation"
)

var ErrUnknownDialect = errors.New("sqlstore: unknown dialect")

// Open connects gorm to postgres or sqlite. SQLite gets a single connection: it has one
// writer anyway, and an in-memory database lives only as long as its connection.
func Open(dialect, dsn string, logger *slog.Logger) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: newGormLogger(logger), NowFunc: func() time.Time { return time.Now().UTC() }}
	var (
		db  *gorm.DB
		err error
	)
	switch dialect {
	case DialectPostgres:
		db, err = gorm.Open(postgres.Open(dsn), cfg)
	case DialectSQLite:
		db, err = gorm.Open(sqlite.Open(dsn), cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDialect, dialect)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", dialect, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if dialect == DialectSQLite {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
		if err := db.Exec("PRAGMA busy_timeout = 5000").Error; err != nil {
			return nil, fmt.Errorf("sqlstore: sqlite pragma: %w", err)
		}
	} else {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	}
	return db, nil
}

func newGormLogger(logger *slog.Logger) gormlogger.Interface {
	if logger == nil {
		return gormlogger.Discard
	}
	return gormlogger.New(slog.NewLogLogger(logger.Handler(), slog.LevelWarn), gormlogger.Config{
		SlowThreshold:             500 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

// Migrate creates the schema and the rule that two confirmed bookings of one apartment
// never share a night: an exclusion constraint on postgres, triggers on sqlite.
func Migrate(ctx context.Context, db *gorm.DB) error {
	db = db.WithContext(ctx)
	if db.Dialector.Name() == DialectPostgres {
		if err := db.Exec("CREATE EXTENSION IF NOT EXISTS btree_gist").Error; err != nil {
			return fmt.Errorf("sqlstore: btree_gist: %w", err)
		}
	}
	if err := db.AutoMigrate(allModels()...); err != nil {
		return fmt.Errorf("sqlstore: automigrate: %w", err)
	}
	for _, stmt := range exclusionDDL(db.Dialector.Name()) {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("sqlstore: exclusion rule: %w", err)
		}
	}
	return nil
}

func exclusionDDL(dialect string) []string {
	switch dialect {
	case DialectPostgres:
		return []string{`DO $$
BEGIN
	IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = '` + exclusionConstraint + `') THEN
		ALTER TABLE bookings ADD CONSTRAINT ` + exclusionConstraint + `
			EXCLUDE USING gist (apartment_id WITH =, daterange(start_date, end_date, '[)') WITH &&)
			WHERE (status = 'confirmed');
	END IF;
END $$`}
	case DialectSQLite:
		check := `BEGIN
	SELECT RAISE(ABORT, '` + exclusionViolation + `')
	WHERE EXISTS (
		SELECT 1 FROM bookings
		WHERE apartment_id = NEW.apartment_id AND status = 'confirmed' AND id <> NEW.id
			AND start_date < NEW.end_date AND NEW.start_date < end_date
	);
END`
		return []string{
			`CREATE TRIGGER IF NOT EXISTS ` + exclusionConstraint + `_insert BEFORE INSERT ON bookings
WHEN NEW.status = 'confirmed'
` + check,
			`CREATE TRIGGER IF NOT EXISTS ` + exclusionConstraint + `_update BEFORE UPDATE ON bookings
WHEN NEW.status = 'confirmed'
` + check,
		}
	default:
		return nil
	}
}

// translate maps driver errors onto the fault taxonomy.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if faults.KindOf(err) != nil {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23P01":
			return faults.Conflict("booking: confirmed stays overlap")
		case "23505":
			return faults.Conflict("sqlstore: duplicate " + pgErr.ConstraintName)
		case "40001", "40P01":
			return faults.Conflict("sqlstore: concurrent transaction, retry")
		}
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, exclusionViolation):
		return faults.Conflict("booking: confirmed stays overlap")
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return faults.Conflict("sqlstore: duplicate key")
	}
	return faults.Upstream("sqlstore", err)
}
