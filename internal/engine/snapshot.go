package engine

import (
	"encoding/binary"

	"github.com/dgraph-io/badger/v4"
	"github.com/klauspost/compress/zstd"

	"github.com/corvid/vellum/internal/board"
)

const (
	snapshotKey = "tt/snapshot"

	// snapshotRecordSize is 24 bytes per §6.5: key(8) + move(2) + score(4) +
	// depth(1) + flag(1), padded out to a round size.
	snapshotRecordSize = 24

	// maxSnapshotEntries caps how many of the table's highest-depth entries
	// are persisted, keeping the snapshot file bounded regardless of hash size.
	maxSnapshotEntries = 1 << 16
)

// SaveSnapshot serializes the transposition table's highest-depth entries,
// deepest first, into db under snapshotKey, zstd-compressed. Skipping or
// failing it never affects search results. Entries that LoadSnapshot puts
// back into the table do not reach a search: Searcher.Reset clears the
// table at the start of every FindBestMove.
func SaveSnapshot(tt *TranspositionTable, db *badger.DB) error {
	candidates := make([]TTEntry, 0, maxSnapshotEntries)
	for _, e := range tt.entries {
		if e.Depth > 0 {
			candidates = append(candidates, e)
		}
	}

	sortByDepthDesc(candidates)
	if len(candidates) > maxSnapshotEntries {
		candidates = candidates[:maxSnapshotEntries]
	}

	buf := make([]byte, 0, len(candidates)*snapshotRecordSize)
	for _, e := range candidates {
		var rec [snapshotRecordSize]byte
		binary.LittleEndian.PutUint64(rec[0:8], e.Key)
		binary.LittleEndian.PutUint16(rec[8:10], uint16(e.BestMove))
		binary.LittleEndian.PutUint32(rec[10:14], uint32(e.Score))
		rec[14] = byte(e.Depth)
		rec[15] = byte(e.Flag)
		buf = append(buf, rec[:]...)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return err
	}
	defer enc.Close()
	compressed := enc.EncodeAll(buf, nil)

	return db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(snapshotKey), compressed)
	})
}

// LoadSnapshot decompresses and restores a previously saved snapshot into
// tt. It is a no-op (returning nil) when no snapshot exists.
func LoadSnapshot(tt *TranspositionTable, db *badger.DB) error {
	var compressed []byte

	err := db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(snapshotKey))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			compressed = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil || compressed == nil {
		return err
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return err
	}
	defer dec.Close()

	buf, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return err
	}

	for off := 0; off+snapshotRecordSize <= len(buf); off += snapshotRecordSize {
		rec := buf[off : off+snapshotRecordSize]
		key := binary.LittleEndian.Uint64(rec[0:8])
		move := board.Move(binary.LittleEndian.Uint16(rec[8:10]))
		score := int32(binary.LittleEndian.Uint32(rec[10:14]))
		depth := int8(rec[14])
		flag := TTFlag(rec[15])

		tt.Store(key, int(depth), int(score), flag, move)
	}

	return nil
}

// sortByDepthDesc orders entries by stored depth, deepest first, using a
// plain insertion sort: snapshot lists are bounded and this runs once at
// quit, so there's no need for sort.Slice's overhead here.
func sortByDepthDesc(entries []TTEntry) {
	for i := 1; i < len(entries); i++ {
		e := entries[i]
		j := i - 1
		for j >= 0 && entries[j].Depth < e.Depth {
			entries[j+1] = entries[j]
			j--
		}
		entries[j+1] = e
	}
}
