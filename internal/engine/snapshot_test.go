package engine

import (
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger/v4"

	"github.com/corvid/vellum/internal/board"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()

	opts := badger.DefaultOptions(filepath.Join(t.TempDir(), "snapshot-test"))
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSnapshotSaveLoadRoundTrip(t *testing.T) {
	tt := NewTranspositionTable(1)
	move := board.NewMove(board.E2, board.E4)
	tt.Store(0x1234, 6, 123, TTExact, move)
	tt.Store(0x5678, 4, -50, TTLowerBound, board.NoMove)

	db := openTestDB(t)
	if err := SaveSnapshot(tt, db); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	fresh := NewTranspositionTable(1)
	if err := LoadSnapshot(fresh, db); err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}

	entry, found := fresh.Probe(0x1234)
	if !found {
		t.Fatal("expected entry 0x1234 to survive the round trip")
	}
	if entry.BestMove != move || int(entry.Score) != 123 || int(entry.Depth) != 6 || entry.Flag != TTExact {
		t.Errorf("entry mismatch after round trip: %+v", entry)
	}
}

func TestLoadSnapshotMissingKeyIsNoop(t *testing.T) {
	db := openTestDB(t)
	tt := NewTranspositionTable(1)

	if err := LoadSnapshot(tt, db); err != nil {
		t.Fatalf("LoadSnapshot on empty database should not error: %v", err)
	}
	if tt.occupiedCount() != 0 {
		t.Errorf("expected empty table, got %d entries", tt.occupiedCount())
	}
}
