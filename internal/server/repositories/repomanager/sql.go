package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/migrations"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// SQLRepositoryManager vends SQL-backed repositories for one dialect.
type SQLRepositoryManager struct {
	dialect dbx.Dialect
	now     func() time.Time
}

type Option func(*SQLRepositoryManager)

// WithClock sets the clock repositories use for timestamps and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *SQLRepositoryManager) { m.now = now }
}

// NewRepositoryManager returns a manager for the given database/sql driver
// name ("pgx" or "sqlite").
func NewRepositoryManager(driver string, opts ...Option) (*SQLRepositoryManager, error) {
	d, err := dbx.DialectFor(driver)
	if err != nil {
		return nil, err
	}
	m := &SQLRepositoryManager{dialect: d, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *SQLRepositoryManager) Dialect() dbx.Dialect {
	return m.dialect
}

func (m *SQLRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLRepository(db, m.dialect, m.now)
}

func (m *SQLRepositoryManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return refreshtokens.NewSQLRepository(db, m.dialect, m.now)
}

// gooseUp is a seam for testing the goose provider.
var gooseUp = func(ctx context.Context, db *sql.DB, dialect goose.Dialect, fsys fs.FS) error {
	p, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return err
	}
	_, err = p.Up(ctx)
	return err
}

// RunMigrations applies the embedded migrations of the manager's dialect.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrations.FS, m.dialect.String())
	if err != nil {
		return err
	}
	dialect := goose.DialectPostgres
	if m.dialect == dbx.SQLite {
		dialect = goose.DialectSQLite3
	}
	if err := gooseUp(ctx, db, dialect, fsys); err != nil {
		return fmt.Errorf("run migrations: %w", dbx.Classify(err))
	}
	return nil
}

// Open opens and pings a database handle. SQLite handles are limited to a
// single connection so writers queue in the pool instead of failing with
// SQLITE_BUSY.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	d, err := dbx.DialectFor(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d, err)
	}
	if d == dbx.SQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", d, dbx.Classify(err))
	}
	return db, nil
}

var _ RepositoryManager = (*SQLRepositoryManager)(nil)
