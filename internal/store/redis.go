package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/go-redis/redis/v8"

	"github.com/clementcyberknight/db-stress-test/internal/config"
	"github.com/clementcyberknight/db-stress-test/internal/engine"
	"github.com/clementcyberknight/db-stress-test/internal/logging"
	"github.com/clementcyberknight/db-stress-test/internal/payload"
)

type redisBuilder struct {
	cfg    *config.StoreConfig
	logger *logging.Logger
}

func newRedisBuilder(cfg *config.StoreConfig, logger *logging.Logger) *redisBuilder {
	return &redisBuilder{cfg: cfg, logger: logger}
}

// EnsureSchema verifies the server is reachable. Redis is schema-less, so a
// ping is the whole provisioning step.
func (b *redisBuilder) EnsureSchema(ctx context.Context) error {
	client := redis.NewClient(&redis.Options{
		Addr:     b.cfg.RedisAddr,
		Password: b.cfg.RedisPassword,
		DB:       b.cfg.RedisDB,
	})
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis unreachable: %w", err)
	}
	return nil
}

// Build constructs a stage-scoped client whose connection pool is capped at
// the stage concurrency. PoolTimeout bounds acquisition so a saturated pool
// fails fast instead of queueing.
func (b *redisBuilder) Build(ctx context.Context, concurrency int) (engine.Pool, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         b.cfg.RedisAddr,
		Password:     b.cfg.RedisPassword,
		DB:           b.cfg.RedisDB,
		PoolSize:     concurrency,
		MinIdleConns: 0,
		PoolTimeout:  b.cfg.AcquireTimeout,
		DialTimeout:  b.cfg.AcquireTimeout,
		ReadTimeout:  b.cfg.OperationTimeout,
		WriteTimeout: b.cfg.OperationTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, b.cfg.AcquireTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis unreachable: %w", err)
	}

	return &redisPool{client: client, builder: b}, nil
}

// Classify maps go-redis errors onto the engine's failure taxonomy. The
// driver does not export its pool-timeout sentinel, so it is matched by
// message.
func (b *redisBuilder) Classify(err error) engine.FailureCategory {
	if err == nil {
		return engine.FailureOther
	}

	msg := err.Error()
	if strings.Contains(msg, "connection pool timeout") ||
		strings.Contains(msg, "max number of clients reached") {
		return engine.FailureResourceExhaustion
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return engine.FailureTimeout
	}

	return engine.FailureOther
}

func (b *redisBuilder) Close() error {
	return nil // stage pools own all redis resources
}

type redisPool struct {
	client  *redis.Client
	builder *redisBuilder
}

// Acquire pins a dedicated connection from the client's pool and verifies it
// with a ping, so acquisition failures surface here rather than on the first
// operation.
func (p *redisPool) Acquire(ctx context.Context) (engine.Conn, error) {
	acqCtx, cancel := context.WithTimeout(ctx, p.builder.cfg.AcquireTimeout)
	defer cancel()

	conn := p.client.Conn(acqCtx)
	if err := conn.Ping(acqCtx).Err(); err != nil {
		conn.Close()
		return nil, err
	}
	return &redisConn{conn: conn, prefix: p.builder.cfg.TableName}, nil
}

func (p *redisPool) Close() {
	p.client.Close()
}

type redisConn struct {
	conn    *redis.Conn
	prefix  string
	release sync.Once
}

func (c *redisConn) key(id string) string {
	return c.prefix + ":" + id
}

func (c *redisConn) WriteRecord(ctx context.Context, rec payload.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	if err := c.conn.Set(ctx, c.key(rec.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("set failed: %w", err)
	}
	return nil
}

func (c *redisConn) ReadRecord(ctx context.Context, id string) error {
	if err := c.conn.Get(ctx, c.key(id)).Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("record %s not found", id)
		}
		return fmt.Errorf("get failed: %w", err)
	}
	return nil
}

func (c *redisConn) Release() {
	c.release.Do(func() { c.conn.Close() })
}
