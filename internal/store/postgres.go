package store

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clementcyberknight/db-stress-test/internal/config"
	"github.com/clementcyberknight/db-stress-test/internal/engine"
	"github.com/clementcyberknight/db-stress-test/internal/logging"
	"github.com/clementcyberknight/db-stress-test/internal/payload"
)

// PostgreSQL error codes that signal the server's connection capacity.
const (
	pgTooManyConnections     = "53300"
	pgConfigurationLimit     = "53400"
	pgInsufficientResources  = "53000"
	pgConnectionFailure      = "08006"
	pgCannotConnect          = "08001"
	pgConnectionRejected     = "08004"
	pgQueryCanceled          = "57014"
	pgAdminShutdown          = "57P01"
)

type postgresBuilder struct {
	cfg        *config.StoreConfig
	logger     *logging.Logger
	insertStmt string
	selectStmt string
}

func newPostgresBuilder(cfg *config.StoreConfig, logger *logging.Logger) *postgresBuilder {
	return &postgresBuilder{
		cfg:    cfg,
		logger: logger,
		insertStmt: fmt.Sprintf(
			"INSERT INTO %s (id, name, email, payload, created_at) VALUES ($1, $2, $3, $4, $5)",
			cfg.TableName),
		selectStmt: fmt.Sprintf(
			"SELECT id, name, email, payload FROM %s WHERE id = $1",
			cfg.TableName),
	}
}

// EnsureSchema creates the target table if it does not exist. Runs on a
// dedicated connection outside any stage pool.
func (b *postgresBuilder) EnsureSchema(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, b.cfg.PostgresURL)
	if err != nil {
		return fmt.Errorf("failed to connect for provisioning: %w", err)
	}
	defer conn.Close(ctx)

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`, b.cfg.TableName)

	if _, err := conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create table %s: %w", b.cfg.TableName, err)
	}

	b.logger.Debug("Schema ensured", "table", b.cfg.TableName)
	return nil
}

// Build constructs a stage-scoped pgx pool whose MaxConns equals the stage
// concurrency, so the server is probed at exactly that connection count.
func (b *postgresBuilder) Build(ctx context.Context, concurrency int) (engine.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(b.cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres URL: %w", err)
	}
	poolCfg.MaxConns = int32(concurrency)
	poolCfg.MinConns = 0
	poolCfg.ConnConfig.ConnectTimeout = b.cfg.AcquireTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, b.cfg.AcquireTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres unreachable: %w", err)
	}

	return &postgresPool{
		pool:           pool,
		builder:        b,
		acquireTimeout: b.cfg.AcquireTimeout,
	}, nil
}

// Classify maps pgx driver errors onto the engine's failure taxonomy.
func (b *postgresBuilder) Classify(err error) engine.FailureCategory {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgTooManyConnections, pgConfigurationLimit, pgInsufficientResources,
			pgConnectionFailure, pgCannotConnect, pgConnectionRejected, pgAdminShutdown:
			return engine.FailureResourceExhaustion
		case pgQueryCanceled:
			return engine.FailureTimeout
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return engine.FailureTimeout
	}

	return engine.FailureOther
}

func (b *postgresBuilder) Close() error {
	return nil // stage pools own all postgres resources
}

type postgresPool struct {
	pool           *pgxpool.Pool
	builder        *postgresBuilder
	acquireTimeout time.Duration
}

func (p *postgresPool) Acquire(ctx context.Context) (engine.Conn, error) {
	acqCtx, cancel := context.WithTimeout(ctx, p.acquireTimeout)
	defer cancel()

	conn, err := p.pool.Acquire(acqCtx)
	if err != nil {
		return nil, err
	}
	return &postgresConn{conn: conn, builder: p.builder}, nil
}

func (p *postgresPool) Close() {
	p.pool.Close()
}

type postgresConn struct {
	conn    *pgxpool.Conn
	builder *postgresBuilder
	release sync.Once
}

func (c *postgresConn) WriteRecord(ctx context.Context, rec payload.Record) error {
	_, err := c.conn.Exec(ctx, c.builder.insertStmt,
		rec.ID, rec.Name, rec.Email, rec.Payload, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert failed: %w", err)
	}
	return nil
}

func (c *postgresConn) ReadRecord(ctx context.Context, id string) error {
	var got payload.Record
	err := c.conn.QueryRow(ctx, c.builder.selectStmt, id).
		Scan(&got.ID, &got.Name, &got.Email, &got.Payload)
	if err != nil {
		return fmt.Errorf("select failed: %w", err)
	}
	return nil
}

func (c *postgresConn) Release() {
	c.release.Do(c.conn.Release)
}
