package book

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/corvid/vellum/internal/board"
)

func writeTestBook(t *testing.T, dir string) string {
	t.Helper()

	pos := board.NewPosition()
	key := pos.PolyglotHash()

	// e2e4 in Polyglot encoding, weight 100, zero learn field.
	e2e4 := uint16(4 | (3 << 3) | (4 << 6) | (1 << 9))

	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, key)
	binary.Write(&buf, binary.BigEndian, e2e4)
	binary.Write(&buf, binary.BigEndian, uint16(100))
	binary.Write(&buf, binary.BigEndian, uint32(0))

	path := filepath.Join(dir, "test.bin")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("failed to write book file: %v", err)
	}

	return path
}

func TestLoadPolyglotCachedMissThenHit(t *testing.T) {
	tmpDir := t.TempDir()
	bookPath := writeTestBook(t, tmpDir)

	cache, err := OpenCache(filepath.Join(tmpDir, "cache"))
	if err != nil {
		t.Fatalf("OpenCache failed: %v", err)
	}
	defer cache.Close()

	bk, err := cache.LoadPolyglotCached(bookPath)
	if err != nil {
		t.Fatalf("LoadPolyglotCached (cold) failed: %v", err)
	}
	if bk.Size() != 1 {
		t.Fatalf("expected 1 position, got %d", bk.Size())
	}

	pos := board.NewPosition()
	move, found := bk.Probe(pos)
	if !found {
		t.Fatal("expected to find e2e4 in loaded book")
	}
	if move.From() != board.E2 || move.To() != board.E4 {
		t.Errorf("expected e2e4, got %s", move.String())
	}

	// Second load should hit the cache (fingerprint unchanged) and produce
	// an equivalent book without re-parsing the .bin file.
	bk2, err := cache.LoadPolyglotCached(bookPath)
	if err != nil {
		t.Fatalf("LoadPolyglotCached (warm) failed: %v", err)
	}
	if bk2.Size() != 1 {
		t.Fatalf("expected 1 position from cache, got %d", bk2.Size())
	}

	move2, found := bk2.Probe(pos)
	if !found || move2.From() != board.E2 || move2.To() != board.E4 {
		t.Errorf("expected e2e4 from cached load, got found=%v move=%s", found, move2.String())
	}
}

func TestEncodeDecodePolyglotMoveRoundTrip(t *testing.T) {
	moves := []board.Move{
		board.NewMove(board.E2, board.E4),
		board.NewMove(board.G1, board.F3),
		board.NewPromotion(board.A7, board.A8, board.Queen),
	}

	for _, m := range moves {
		encoded := encodePolyglotMove(m)
		decoded := decodePolyglotMove(encoded)
		if decoded.From() != m.From() || decoded.To() != m.To() {
			t.Errorf("round-trip mismatch for %s: got %s", m.String(), decoded.String())
		}
	}
}
