package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v3"

	"github.com/yndnr/statesnap/internal/core/domain"
)

var recordKeyPrefix = []byte("rec/")

// CatalogConfig configures a Catalog.
type CatalogConfig struct {
	// Dir is the badger directory. Ignored when InMemory is set.
	Dir string

	InMemory bool

	// ReadOnly opens an existing catalog for reading, e.g. from the CLI.
	ReadOnly bool

	Logger *slog.Logger
}

// Catalog keeps the history of successful exports in a badger database.
// Records are keyed by their ULID, so key order is creation order.
type Catalog struct {
	db     *badger.DB
	logger *slog.Logger
}

// OpenCatalog opens (or creates) the catalog database.
func OpenCatalog(cfg CatalogConfig) (*Catalog, error) {
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, domain.ErrConfiguration.WithDetails("catalog dir is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	opts := badger.DefaultOptions(cfg.Dir)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else if cfg.ReadOnly {
		opts = opts.WithReadOnly(true)
	}
	opts.Logger = &badgerLogger{logger: cfg.Logger}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("catalog: open db: %w", err)
	}

	cfg.Logger.Debug("snapshot catalog opened", "dir", cfg.Dir, "in_memory", cfg.InMemory)
	return &Catalog{db: db, logger: cfg.Logger}, nil
}

func recordKey(id string) []byte {
	return append(append([]byte{}, recordKeyPrefix...), id...)
}

// Put stores rec under its ID.
func (c *Catalog) Put(rec *Record) error {
	if rec == nil || rec.ID == "" {
		return domain.ErrConfiguration.WithDetails("record id is required")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("catalog: marshal record: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(rec.ID), data)
	})
}

// Get returns the record with the given id or domain.ErrNotFound.
func (c *Catalog) Get(id string) (*Record, error) {
	var rec Record
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return domain.ErrNotFound.WithDetails("record " + id)
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns the records of the series prefix, oldest first. An empty
// prefix lists every series.
func (c *Catalog) List(prefix string) ([]*Record, error) {
	var out []*Record
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = recordKeyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			rec, err := decodeRecord(it.Item())
			if err != nil {
				return err
			}
			if prefix == "" || rec.Prefix == prefix {
				out = append(out, rec)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Latest returns the newest record of the series prefix or domain.ErrNotFound.
func (c *Catalog) Latest(prefix string) (*Record, error) {
	var found *Record
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = recordKeyPrefix
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(append(recordKey(""), 0xff)); it.Valid(); it.Next() {
			rec, err := decodeRecord(it.Item())
			if err != nil {
				return err
			}
			if prefix == "" || rec.Prefix == prefix {
				found = rec
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, domain.ErrNotFound.WithDetails("no records for " + prefix)
	}
	return found, nil
}

// Delete removes the record with the given id. Missing ids are not an error.
func (c *Catalog) Delete(id string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(recordKey(id))
	})
}

// Close closes the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

func decodeRecord(item *badger.Item) (*Record, error) {
	var rec Record
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	}); err != nil {
		return nil, fmt.Errorf("catalog: decode %s: %w", item.Key(), err)
	}
	return &rec, nil
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
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
