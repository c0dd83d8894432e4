package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// Key layout:
//
//	r:<16 hex digits of start time, unix nanos>:<id>  -> Record JSON
//	i:<id>                                           -> r: key
//	m:__schema__                                     -> Schema JSON
const (
	prefixRecord = "r:"
	prefixID     = "i:"
	schemaKey    = "m:__schema__"
)

// CurrentSchemaVersion is written to new stores.
const CurrentSchemaVersion = 1

// Errors returned by Get.
var (
	ErrNotFound  = errors.New("history record not found")
	ErrAmbiguous = errors.New("history id prefix is ambiguous")
)

// ErrSchemaTooNew is returned by Open for stores written by a newer release.
var ErrSchemaTooNew = errors.New("history store schema is newer than supported")

// Schema describes the on-disk layout version.
type Schema struct {
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is a Badger-backed run history.
type Store struct {
	db *badger.DB
}

// Open opens or creates the store in dir.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("history directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening history store: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Schema returns the stored schema, or nil for a store that has none.
func (s *Store) Schema() (*Schema, error) {
	var schema *Schema
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(schemaKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			schema = &Schema{}
			return json.Unmarshal(val, schema)
		})
	})
	return schema, err
}

func (s *Store) ensureSchema() error {
	schema, err := s.Schema()
	if err != nil {
		return fmt.Errorf("reading history schema: %w", err)
	}
	if schema != nil {
		if schema.Version > CurrentSchemaVersion {
			return fmt.Errorf("%w: %d > %d", ErrSchemaTooNew, schema.Version, CurrentSchemaVersion)
		}
		return nil
	}

	data, err := json.Marshal(Schema{Version: CurrentSchemaVersion, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(schemaKey), data)
	})
}

func recordKey(started time.Time, id string) []byte {
	return fmt.Appendf(nil, "%s%016x:%s", prefixRecord, uint64(started.UnixNano()), id)
}

// Add stores rec, assigning an ID when it has none.
func (s *Store) Add(rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Started.IsZero() {
		rec.Started = time.Now().UTC()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding history record: %w", err)
	}
	key := recordKey(rec.Started, rec.ID)

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, data); err != nil {
			return err
		}
		return txn.Set([]byte(prefixID+rec.ID), key)
	})
}

// List returns records newest first. limit <= 0 returns all of them.
func (s *Store) List(limit int) ([]Record, error) {
	records := []Record{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(prefixRecord)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts at the last key <= seek.
		for it.Seek([]byte(prefixRecord + "\xff")); it.Valid(); it.Next() {
			if limit > 0 && len(records) >= limit {
				break
			}
			var rec Record
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("decoding %s: %w", it.Item().Key(), err)
			}
			records = append(records, rec)
		}
		return nil
	})
	return records, err
}

// Get returns the record with the given ID or unique ID prefix.
func (s *Store) Get(id string) (*Record, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrNotFound)
	}

	var rec *Record
	err := s.db.View(func(txn *badger.Txn) error {
		key, err := resolveID(txn, id)
		if err != nil {
			return err
		}
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			rec = &Record{}
			return json.Unmarshal(val, rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// resolveID maps an ID or ID prefix to its record key.
func resolveID(txn *badger.Txn, id string) ([]byte, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefixID + id)
	it := txn.NewIterator(opts)
	defer it.Close()

	var (
		key     []byte
		matches int
	)
	for it.Rewind(); it.Valid(); it.Next() {
		matches++
		if matches > 1 {
			return nil, fmt.Errorf("%w: %s", ErrAmbiguous, id)
		}
		v, err := it.Item().ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		key = v
		if strings.TrimPrefix(string(it.Item().Key()), prefixID) == id {
			return key, nil
		}
	}
	if matches == 0 {
		return nil, badger.ErrKeyNotFound
	}
	return key, nil
}

// Cleanup deletes records that started before now minus retention and
// returns how many were removed.
func (s *Store) Cleanup(retention time.Duration) (int, error) {
	cutoff := recordKey(time.Now().Add(-retention), "")

	var stale []Record
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixRecord)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			if string(item.Key()) >= string(cutoff) {
				break
			}
			var rec Record
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &rec) }); err != nil {
				return err
			}
			stale = append(stale, rec)
		}
		return nil
	})
	if err != nil || len(stale) == 0 {
		return 0, err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, rec := range stale {
		if err := wb.Delete(recordKey(rec.Started, rec.ID)); err != nil {
			return 0, err
		}
		if err := wb.Delete([]byte(prefixID + rec.ID)); err != nil {
			return 0, err
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("deleting history records: %w", err)
	}
	return len(stale), nil
}
