// Package store persists learner state in BadgerDB: the phonetic-unit
// codebook, the classifier centroids, the pattern collection, and the
// training example records. Audio recordings live in a blob store,
// referenced by key from the example records.
package store

import (
	"context"
	"errors"
	"fmt"
	"log"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/haivivi/vocab/pkg/classify"
	"github.com/haivivi/vocab/pkg/codebook"
	"github.com/haivivi/vocab/pkg/lookup"
	"github.com/haivivi/vocab/pkg/pattern"
)

// Sentinel errors.
var (
	// ErrNotFound is returned when the requested state has never been
	// saved.
	ErrNotFound = errors.New("store: not found")
)

// Key prefixes. Single-writer layout, one learner per database.
var (
	keyCodebook   = []byte("snapshot:codebook")
	keyClassifier = []byte("snapshot:classifier")
	keyPatterns   = []byte("snapshot:patterns")
	examplePrefix = []byte("example:")
)

// Options configures the store.
type Options struct {
	// Dir is the directory for data files. Required unless InMemory.
	Dir string

	// InMemory runs the engine without disk persistence, for tests.
	InMemory bool

	// Logger overrides badger's logger. Defaults to a quiet logger
	// that only surfaces warnings and errors.
	Logger badger.Logger
}

// Store is a BadgerDB-backed state store.
type Store struct {
	db *badger.DB
}

// Open opens or creates the store.
func Open(opts Options) (*Store, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("store: Options.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	if opts.Logger != nil {
		dbOpts = dbOpts.WithLogger(opts.Logger)
	} else {
		dbOpts = dbOpts.WithLogger(quietLogger{})
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) put(key, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (s *Store) get(key []byte) ([]byte, error) {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return val, err
}

// SaveCodebook persists the quantizer snapshot.
func (s *Store) SaveCodebook(_ context.Context, snap codebook.Snapshot) error {
	data, err := codebook.EncodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("store: encode codebook: %w", err)
	}
	return s.put(keyCodebook, data)
}

// LoadCodebook returns the persisted quantizer snapshot.
func (s *Store) LoadCodebook(_ context.Context) (codebook.Snapshot, error) {
	data, err := s.get(keyCodebook)
	if err != nil {
		return codebook.Snapshot{}, err
	}
	return codebook.DecodeSnapshot(data)
}

// SaveClassifier persists the classifier snapshot.
func (s *Store) SaveClassifier(_ context.Context, snap classify.Snapshot) error {
	data, err := classify.EncodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("store: encode classifier: %w", err)
	}
	return s.put(keyClassifier, data)
}

// LoadClassifier returns the persisted classifier snapshot.
func (s *Store) LoadClassifier(_ context.Context) (classify.Snapshot, error) {
	data, err := s.get(keyClassifier)
	if err != nil {
		return classify.Snapshot{}, err
	}
	return classify.DecodeSnapshot(data)
}

// SavePatterns persists the pattern collection snapshot.
func (s *Store) SavePatterns(_ context.Context, snap *pattern.Snapshot) error {
	data, err := pattern.EncodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("store: encode patterns: %w", err)
	}
	return s.put(keyPatterns, data)
}

// LoadPatterns returns the persisted pattern collection snapshot.
func (s *Store) LoadPatterns(_ context.Context) (*pattern.Snapshot, error) {
	data, err := s.get(keyPatterns)
	if err != nil {
		return nil, err
	}
	return pattern.DecodeSnapshot(data)
}

// PutExample persists one training example record.
func (s *Store) PutExample(_ context.Context, ex *lookup.Example) error {
	if ex.ID == "" {
		return errors.New("store: example missing id")
	}
	data, err := lookup.EncodeExample(ex)
	if err != nil {
		return fmt.Errorf("store: encode example: %w", err)
	}
	return s.put(exampleKey(ex.ID), data)
}

// GetExample returns one training example record by id.
func (s *Store) GetExample(_ context.Context, id string) (*lookup.Example, error) {
	data, err := s.get(exampleKey(id))
	if err != nil {
		return nil, err
	}
	return lookup.DecodeExample(data)
}

// DeleteExample removes a training example record. Missing ids are
// not an error.
func (s *Store) DeleteExample(_ context.Context, id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(exampleKey(id))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	return err
}

// Examples returns every stored training example record.
func (s *Store) Examples(_ context.Context) ([]*lookup.Example, error) {
	var out []*lookup.Example
	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = examplePrefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()
		for it.Seek(examplePrefix); it.ValidForPrefix(examplePrefix); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			ex, err := lookup.DecodeExample(val)
			if err != nil {
				return err
			}
			out = append(out, ex)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func exampleKey(id string) []byte {
	return append(append([]byte(nil), examplePrefix...), id...)
}

// quietLogger suppresses badger's info and debug chatter.
type quietLogger struct{}

func (quietLogger) Errorf(f string, v ...interface{})   { log.Printf("[store] ERROR: "+f, v...) }
func (quietLogger) Warningf(f string, v ...interface{}) { log.Printf("[store] WARN: "+f, v...) }
func (quietLogger) Infof(string, ...interface{})        {}
func (quietLogger) Debugf(string, ...interface{})       {}
