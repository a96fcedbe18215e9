package stores

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/caching/interfaces"
)

const badgerKeyPrefix = "fastcache:"

// BadgerConfig configures the badger-backed fast cache.
type BadgerConfig struct {
	// Path is the database directory. Empty selects in-memory mode.
	Path string
	// TTL applies to every stored key. Zero disables expiry.
	TTL time.Duration
	// Logger receives badger's internal messages. Nil silences them.
	Logger *slog.Logger
}

// BadgerStore is a FastCache on top of badger
type BadgerStore struct {
	db  *badger.DB
	ttl time.Duration
}

var _ interfaces.FastCache = (*BadgerStore)(nil)

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// OpenBadgerStore opens badger on disk, or in memory when cfg.Path is empty
func OpenBadgerStore(cfg BadgerConfig) (*BadgerStore, error) {
	var opts badger.Options
	if cfg.Path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create badger directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger fast cache: %w", err)
	}
	return &BadgerStore{db: db, ttl: cfg.TTL}, nil
}

func (b *BadgerStore) Fetch(key string) ([]byte, bool) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerKeyPrefix + key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, false
	}
	return value, true
}

func (b *BadgerStore) Store(key string, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(badgerKeyPrefix+key), value)
		if b.ttl > 0 {
			entry = entry.WithTTL(b.ttl)
		}
		return txn.SetEntry(entry)
	})
}

func (b *BadgerStore) Delete(key string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(badgerKeyPrefix + key))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	return err
}

func (b *BadgerStore) Clear() error {
	return b.db.DropPrefix([]byte(badgerKeyPrefix))
}

// Close releases the database
func (b *BadgerStore) Close() error {
	return b.db.Close()
}
