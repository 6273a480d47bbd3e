// Package history records completed studies in a Badger database so past
// runs can be listed and inspected after their results directory has been
// overwritten.
package history

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/jamesainslie/casweep/pkg/casweep/report"
	"github.com/jamesainslie/casweep/pkg/casweep/types"
)

var (
	// ErrNotFound is returned when no record matches an ID.
	ErrNotFound = errors.New("study not found")

	// ErrAmbiguousID is returned when an ID prefix matches several records.
	ErrAmbiguousID = errors.New("ambiguous study id")
)

// keyPrefix namespaces study records. Keys are
// study/<20-digit unix nanos>/<uuid> so iteration order is chronological.
var keyPrefix = []byte("study/")

// Record is one completed study.
type Record struct {
	ID          string          `json:"id"`
	Timestamp   time.Time       `json:"timestamp"`
	Input       string          `json:"input"`
	Model       string          `json:"model"`
	Calculator  string          `json:"calculator"`
	ResultsDir  string          `json:"results_dir"`
	Variables   types.Variables `json:"variables"`
	Summary     report.Summary  `json:"summary"`
	Elapsed     time.Duration   `json:"elapsed"`
	ResultsSize int64           `json:"results_size"`
	Table       *types.Table    `json:"table,omitempty"`
}

func (r *Record) key() []byte {
	return []byte(fmt.Sprintf("%s%020d/%s", keyPrefix, r.Timestamp.UnixNano(), r.ID))
}

// Store wraps Badger for history operations.
type Store struct {
	db  *badger.DB
	ttl time.Duration
}

// Open opens or creates the store at path. Records expire after
// retentionDays; zero or less keeps them until Cleanup or Delete.
func Open(path string, retentionDays int) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening history at %s: %w", path, err)
	}

	s := &Store{db: db}
	if retentionDays > 0 {
		s.ttl = time.Duration(retentionDays) * 24 * time.Hour
	}
	return s, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores rec, assigning an ID and timestamp when unset.
func (s *Store) Save(rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(rec.key(), value)
		if s.ttl > 0 {
			e = e.WithTTL(s.ttl)
		}
		return txn.SetEntry(e)
	})
}

// List returns records newest first. A limit of zero or less returns all.
func (s *Store) List(limit int) ([]Record, error) {
	records := []Record{}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = keyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte{}, keyPrefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(keyPrefix); it.Next() {
			var rec Record
			if err := it.Item().Value(decodeInto(&rec)); err != nil {
				return err
			}
			records = append(records, rec)
			if limit > 0 && len(records) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Get returns the record whose ID equals id or, failing that, the single
// record whose ID starts with id.
func (s *Store) Get(id string) (*Record, error) {
	var rec Record
	err := s.db.View(func(txn *badger.Txn) error {
		key, err := resolve(txn, id)
		if err != nil {
			return err
		}
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(decodeInto(&rec))
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Delete removes the record matching id (full or unique prefix).
func (s *Store) Delete(id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key, err := resolve(txn, id)
		if err != nil {
			return err
		}
		return txn.Delete(key)
	})
}

// Cleanup removes records older than retentionDays and returns how many
// were removed. A retention of zero or less removes nothing.
func (s *Store) Cleanup(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	limit := []byte(fmt.Sprintf("%s%020d", keyPrefix, cutoff.UnixNano()))

	removed := 0
	err := s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		var stale [][]byte
		for it.Seek(keyPrefix); it.ValidForPrefix(keyPrefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			if bytes.Compare(key, limit) >= 0 {
				break
			}
			stale = append(stale, key)
		}
		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}

// resolve finds the key of the record matching id.
func resolve(txn *badger.Txn, id string) ([]byte, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("study id cannot be empty")
	}

	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = keyPrefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var matches [][]byte
	for it.Seek(keyPrefix); it.ValidForPrefix(keyPrefix); it.Next() {
		key := it.Item().KeyCopy(nil)
		recID := string(key[bytes.LastIndexByte(key, '/')+1:])
		if recID == id {
			return key, nil
		}
		if strings.HasPrefix(recID, id) {
			matches = append(matches, key)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case 1:
		return matches[0], nil
	}
	return nil, fmt.Errorf("%w: %s matches %d studies", ErrAmbiguousID, id, len(matches))
}

func decodeInto(rec *Record) func([]byte) error {
	return func(val []byte) error {
		return json.Unmarshal(val, rec)
	}
}

// DirSize returns the total size of the regular files under dir.
func DirSize(dir string) (int64, error) {
	if _, err := os.Stat(dir); err != nil {
		return 0, err
	}

	var total atomic.Int64
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		total.Add(info.Size())
		return nil
	})
	if err != nil && !errors.Is(err, fastwalk.ErrSkipFiles) {
		return 0, err
	}
	return total.Load(), nil
}
