package book

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/corvid/vellum/internal/board"
)

const (
	keyFingerprint = "book/fingerprint"
	entryKeyPrefix = "book/entry/"
)

// Cache wraps a Badger database that caches a decoded Polyglot book between
// runs, keyed by Zobrist position hash. Re-parsing a multi-megabyte .bin
// file on every process start is wasted work once the book hasn't changed;
// the cache lets repeat starts skip straight to Badger reads.
type Cache struct {
	db *badger.DB
}

// OpenCache opens (or creates) the book cache database in dir.
func OpenCache(dir string) (*Cache, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Cache{db: db}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// fingerprint derives a staleness marker for a book file from its
// modification time and size, matching §6.5's `(mtime_unix_nano, size)`
// layout.
func fingerprint(filename string) ([]byte, error) {
	info, err := os.Stat(filename)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(info.ModTime().UnixNano()))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(info.Size()))
	return buf, nil
}

// entryKey formats the Badger key for a position's book entries.
func entryKey(zobristKey uint64) []byte {
	buf := make([]byte, len(entryKeyPrefix)+8)
	copy(buf, entryKeyPrefix)
	binary.BigEndian.PutUint64(buf[len(entryKeyPrefix):], zobristKey)
	return buf
}

// encodeEntries packs a position's book entries into 4-byte (move, weight)
// records.
func encodeEntries(entries []BookEntry) []byte {
	buf := make([]byte, 4*len(entries))
	for i, e := range entries {
		binary.BigEndian.PutUint16(buf[i*4:], encodePolyglotMove(e.Move))
		binary.BigEndian.PutUint16(buf[i*4+2:], e.Weight)
	}
	return buf
}

func decodeEntries(data []byte) []BookEntry {
	n := len(data) / 4
	entries := make([]BookEntry, 0, n)
	for i := 0; i < n; i++ {
		moveData := binary.BigEndian.Uint16(data[i*4:])
		weight := binary.BigEndian.Uint16(data[i*4+2:])
		if move := decodePolyglotMove(moveData); move != board.NoMove {
			entries = append(entries, BookEntry{Move: move, Weight: weight})
		}
	}
	return entries
}

// LoadPolyglotCached loads filename through the cache: if the cache holds a
// fingerprint matching the file's current (mtime, size), entries are read
// back from Badger; otherwise the file is parsed once via LoadPolyglot and
// the decoded entries are written into the cache for next time.
func (c *Cache) LoadPolyglotCached(filename string) (*Book, error) {
	want, err := fingerprint(filename)
	if err != nil {
		return nil, err
	}

	if got, err := c.readFingerprint(); err == nil && bytesEqual(got, want) {
		bk, err := c.loadFromCache()
		if err == nil {
			return bk, nil
		}
		// Fall through to a fresh parse on any cache read failure.
	}

	bk, err := LoadPolyglot(filename)
	if err != nil {
		return nil, err
	}

	if err := c.store(want, bk); err != nil {
		return nil, fmt.Errorf("caching book entries: %w", err)
	}

	return bk, nil
}

func (c *Cache) readFingerprint() ([]byte, error) {
	var fp []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyFingerprint))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			fp = append([]byte(nil), val...)
			return nil
		})
	})
	return fp, err
}

func (c *Cache) loadFromCache() (*Book, error) {
	bk := New()

	err := c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(entryKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := item.Key()
			zobristKey := binary.BigEndian.Uint64(key[len(entryKeyPrefix):])

			err := item.Value(func(val []byte) error {
				entries := decodeEntries(val)
				if len(entries) > 0 {
					bk.entries[zobristKey] = entries
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return bk, nil
}

func (c *Cache) store(fp []byte, bk *Book) error {
	return c.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(keyFingerprint), fp); err != nil {
			return err
		}
		for zobristKey, entries := range bk.entries {
			if err := txn.Set(entryKey(zobristKey), encodeEntries(entries)); err != nil {
				return err
			}
		}
		return nil
	})
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
