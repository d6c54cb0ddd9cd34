package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/KaramelBytes/edaprompt-cli/internal/errs"
)

const (
	pgDefaultMaxConns    = 4
	pgDefaultIdleTimeout = 5 * time.Minute

	pgErrUniqueViolation   = "23505"
	pgErrConnectionFailure = "08006"
)

const pgSchema = `CREATE TABLE IF NOT EXISTS edaprompt_sessions (
	name       TEXT PRIMARY KEY,
	doc        JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// postgresBackend stores each session as a JSONB document; mutations take a
// row lock inside a transaction.
type postgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects with a pgx connection string or URL and ensures
// the sessions table exists.
func NewPostgresStore(ctx context.Context, dsn string, opts ...Option) (Store, error) {
	if err := requireDSN("postgres", dsn); err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid postgres dsn", err)
	}
	if poolCfg.MaxConns == 0 || poolCfg.MaxConns > pgDefaultMaxConns {
		poolCfg.MaxConns = pgDefaultMaxConns
	}
	poolCfg.MaxConnIdleTime = pgDefaultIdleTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, pgMapError(err, "")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, pgMapError(err, "")
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, pgMapError(err, "")
	}
	return newDocStore(&postgresBackend{pool: pool}, opts...), nil
}

// pgMapError converts pgx errors into errs kinds. name is used for messages.
func pgMapError(err error, name string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound(name)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			return duplicate(name)
		case pgErrConnectionFailure:
			return errs.Wrap(errs.ErrKindStorage, "database connection failed", err)
		}
		return errs.Wrap(errs.ErrKindStorage, fmt.Sprintf("postgres: %s", pgErr.Message), err)
	}
	return errs.Wrap(errs.ErrKindStorage, "postgres", err)
}

func (p *postgresBackend) insert(ctx context.Context, name string, doc []byte) error {
	tag, err := p.pool.Exec(ctx,
		`INSERT INTO edaprompt_sessions (name, doc) VALUES ($1, $2::jsonb) ON CONFLICT (name) DO NOTHING`,
		name, string(doc))
	if err != nil {
		return pgMapError(err, name)
	}
	if tag.RowsAffected() == 0 {
		return duplicate(name)
	}
	return nil
}

func (p *postgresBackend) load(ctx context.Context, name string) ([]byte, error) {
	var doc []byte
	err := p.pool.QueryRow(ctx, `SELECT doc FROM edaprompt_sessions WHERE name = $1`, name).Scan(&doc)
	if err != nil {
		return nil, pgMapError(err, name)
	}
	return doc, nil
}

func (p *postgresBackend) list(ctx context.Context) ([][]byte, error) {
	rows, err := p.pool.Query(ctx, `SELECT doc FROM edaprompt_sessions ORDER BY name`)
	if err != nil {
		return nil, pgMapError(err, "")
	}
	defer rows.Close()
	var out [][]byte
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, pgMapError(err, "")
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, pgMapError(err, "")
	}
	return out, nil
}

func (p *postgresBackend) remove(ctx context.Context, name string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM edaprompt_sessions WHERE name = $1`, name)
	if err != nil {
		return pgMapError(err, name)
	}
	if tag.RowsAffected() == 0 {
		return notFound(name)
	}
	return nil
}

func (p *postgresBackend) update(ctx context.Context, name string, fn func([]byte) ([]byte, error)) ([]byte, error) {
	var next []byte
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		var doc []byte
		if err := tx.QueryRow(ctx,
			`SELECT doc FROM edaprompt_sessions WHERE name = $1 FOR UPDATE`, name).Scan(&doc); err != nil {
			return pgMapError(err, name)
		}
		var err error
		if next, err = fn(doc); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE edaprompt_sessions SET doc = $2::jsonb, updated_at = now() WHERE name = $1`,
			name, string(next)); err != nil {
			return pgMapError(err, name)
		}
		return nil
	})
	if err != nil {
		var e *errs.Error
		if errors.As(err, &e) {
			return nil, err
		}
		return nil, pgMapError(err, name)
	}
	return next, nil
}

func (p *postgresBackend) close() error {
	p.pool.Close()
	return nil
}
