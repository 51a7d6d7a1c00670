package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/clementcyberknight/db-stress-test/internal/config"
	"github.com/clementcyberknight/db-stress-test/internal/engine"
	"github.com/clementcyberknight/db-stress-test/internal/logging"
	"github.com/clementcyberknight/db-stress-test/internal/payload"
)

// badgerBuilder is the embedded baseline backend: no network, so engine
// behavior can be measured (and tested) hermetically. One badger instance is
// shared across stages; the per-stage handle limit is enforced by a bounded
// token pool with the same fail-fast acquire semantics as the networked
// backends.
type badgerBuilder struct {
	cfg    *config.StoreConfig
	logger *logging.Logger

	mu sync.Mutex
	db *badger.DB
}

func newBadgerBuilder(cfg *config.StoreConfig, logger *logging.Logger) *badgerBuilder {
	return &badgerBuilder{cfg: cfg, logger: logger}
}

func (b *badgerBuilder) open() (*badger.DB, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db != nil {
		return b.db, nil
	}

	opts := badger.DefaultOptions(b.cfg.BadgerPath).
		WithInMemory(b.cfg.BadgerInMemory).
		WithLogger(nil)
	if b.cfg.BadgerInMemory {
		opts.Dir = ""
		opts.ValueDir = ""
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	b.db = db
	return db, nil
}

// EnsureSchema opens the database. Badger has no schema beyond that.
func (b *badgerBuilder) EnsureSchema(ctx context.Context) error {
	_, err := b.open()
	return err
}

func (b *badgerBuilder) Build(ctx context.Context, concurrency int) (engine.Pool, error) {
	db, err := b.open()
	if err != nil {
		return nil, err
	}

	tokens := make(chan struct{}, concurrency)
	for i := 0; i < concurrency; i++ {
		tokens <- struct{}{}
	}

	return &badgerPool{
		db:             db,
		tokens:         tokens,
		prefix:         b.cfg.TableName,
		acquireTimeout: b.cfg.AcquireTimeout,
	}, nil
}

func (b *badgerBuilder) Classify(err error) engine.FailureCategory {
	switch {
	case errors.Is(err, badger.ErrBlockedWrites), errors.Is(err, badger.ErrDBClosed):
		return engine.FailureResourceExhaustion
	default:
		return engine.FailureOther
	}
}

func (b *badgerBuilder) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

type badgerPool struct {
	db             *badger.DB
	tokens         chan struct{}
	prefix         string
	acquireTimeout time.Duration
}

func (p *badgerPool) Acquire(ctx context.Context) (engine.Conn, error) {
	timer := time.NewTimer(p.acquireTimeout)
	defer timer.Stop()

	select {
	case <-p.tokens:
		return &badgerConn{pool: p}, nil
	case <-timer.C:
		return nil, fmt.Errorf("badger handle acquire: %w", context.DeadlineExceeded)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *badgerPool) Close() {
	// Tokens are stage-local; the shared database is closed by the builder.
}

type badgerConn struct {
	pool    *badgerPool
	release sync.Once
}

func (c *badgerConn) key(id string) []byte {
	return []byte(c.pool.prefix + ":" + id)
}

func (c *badgerConn) WriteRecord(ctx context.Context, rec payload.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	err = c.pool.db.Update(func(txn *badger.Txn) error {
		return txn.Set(c.key(rec.ID), data)
	})
	if err != nil {
		return fmt.Errorf("set failed: %w", err)
	}
	return nil
}

func (c *badgerConn) ReadRecord(ctx context.Context, id string) error {
	err := c.pool.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(c.key(id))
		if err != nil {
			return err
		}
		return item.Value(func([]byte) error { return nil })
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("record %s not found", id)
		}
		return fmt.Errorf("get failed: %w", err)
	}
	return nil
}

func (c *badgerConn) Release() {
	c.release.Do(func() {
		c.pool.tokens <- struct{}{}
	})
}
