package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/KaramelBytes/edaprompt-cli/internal/errs"
)

const (
	myDefaultMaxOpenConns    = 4
	myDefaultMaxIdleConns    = 2
	myDefaultConnMaxLifetime = 30 * time.Minute

	myErrDuplicateEntry  = 1062
	myErrAccessDenied    = 1045
	myErrUnknownDatabase = 1049
)

const mySchema = `CREATE TABLE IF NOT EXISTS edaprompt_sessions (
	name       VARCHAR(255) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL PRIMARY KEY,
	doc        JSON NOT NULL,
	created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
	updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)
)`

// mysqlBackend mirrors the postgres layout on MySQL 5.7+ JSON columns and
// locks rows with SELECT ... FOR UPDATE during mutations.
type mysqlBackend struct {
	db *sql.DB
}

// normalizeMySQLDSN parses a go-sql-driver DSN and forces parseTime.
func normalizeMySQLDSN(dsn string) (string, error) {
	cfg, err := gomysql.ParseDSN(dsn)
	if err != nil {
		return "", errs.Wrap(errs.ErrKindInvalidInput, "invalid mysql dsn", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

// NewMySQLStore opens a pool with a go-sql-driver DSN
// (user:pass@tcp(host:3306)/db) and ensures the sessions table exists.
func NewMySQLStore(ctx context.Context, dsn string, opts ...Option) (Store, error) {
	if err := requireDSN("mysql", dsn); err != nil {
		return nil, err
	}
	norm, err := normalizeMySQLDSN(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", norm)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindStorage, "open mysql", err)
	}
	db.SetMaxOpenConns(myDefaultMaxOpenConns)
	db.SetMaxIdleConns(myDefaultMaxIdleConns)
	db.SetConnMaxLifetime(myDefaultConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, myMapError(err, "")
	}
	if _, err := db.ExecContext(ctx, mySchema); err != nil {
		db.Close()
		return nil, myMapError(err, "")
	}
	return newDocStore(&mysqlBackend{db: db}, opts...), nil
}

// myMapError converts MySQL driver errors into errs kinds.
func myMapError(err error, name string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(name)
	}
	var myErr *gomysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case myErrDuplicateEntry:
			return duplicate(name)
		case myErrAccessDenied, myErrUnknownDatabase:
			return errs.Wrap(errs.ErrKindStorage, fmt.Sprintf("connection error: %s", myErr.Message), err)
		}
		return errs.Wrap(errs.ErrKindStorage, fmt.Sprintf("mysql: %s", myErr.Message), err)
	}
	return errs.Wrap(errs.ErrKindStorage, "mysql", err)
}

func (m *mysqlBackend) insert(ctx context.Context, name string, doc []byte) error {
	_, err := m.db.ExecContext(ctx, `INSERT INTO edaprompt_sessions (name, doc) VALUES (?, ?)`, name, string(doc))
	return myMapError(err, name)
}

func (m *mysqlBackend) load(ctx context.Context, name string) ([]byte, error) {
	var doc []byte
	if err := m.db.QueryRowContext(ctx, `SELECT doc FROM edaprompt_sessions WHERE name = ?`, name).Scan(&doc); err != nil {
		return nil, myMapError(err, name)
	}
	return doc, nil
}

func (m *mysqlBackend) list(ctx context.Context) ([][]byte, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT doc FROM edaprompt_sessions ORDER BY name`)
	if err != nil {
		return nil, myMapError(err, "")
	}
	defer rows.Close()
	var out [][]byte
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, myMapError(err, "")
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, myMapError(err, "")
	}
	return out, nil
}

func (m *mysqlBackend) remove(ctx context.Context, name string) error {
	res, err := m.db.ExecContext(ctx, `DELETE FROM edaprompt_sessions WHERE name = ?`, name)
	if err != nil {
		return myMapError(err, name)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound(name)
	}
	return nil
}

func (m *mysqlBackend) update(ctx context.Context, name string, fn func([]byte) ([]byte, error)) ([]byte, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, myMapError(err, name)
	}
	defer func() { _ = tx.Rollback() }()

	var doc []byte
	if err := tx.QueryRowContext(ctx, `SELECT doc FROM edaprompt_sessions WHERE name = ? FOR UPDATE`, name).Scan(&doc); err != nil {
		return nil, myMapError(err, name)
	}
	next, err := fn(doc)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE edaprompt_sessions SET doc = ?, updated_at = CURRENT_TIMESTAMP(6) WHERE name = ?`,
		string(next), name); err != nil {
		return nil, myMapError(err, name)
	}
	if err := tx.Commit(); err != nil {
		return nil, myMapError(err, name)
	}
	return next, nil
}

func (m *mysqlBackend) close() error { return m.db.Close() }
