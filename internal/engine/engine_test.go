package engine

import (
	"testing"

	"github.com/corvid/vellum/internal/board"
)

func TestSearchBasic(t *testing.T) {
	pos := board.NewPosition()
	eng := NewEngine(16)
	eng.SetDifficulty(Easy)

	move := eng.Search(pos)
	if move == board.NoMove {
		t.Error("Search returned NoMove for starting position")
	}
	t.Logf("Best move: %s", move.String())
}

func TestSearchFindsMateInOne(t *testing.T) {
	pos, err := board.ParseFEN("6k1/8/6K1/8/8/8/8/R7 w - - 0 1")
	if err != nil {
		t.Fatalf("FEN parse failed: %v", err)
	}

	eng := NewEngine(4)
	move := eng.SearchWithClock(pos, 4, 5.0, 0)
	if move == board.NoMove {
		t.Fatal("expected a move, got NoMove")
	}
	if move.String() != "a1a8" {
		t.Errorf("expected mating move a1a8, got %s", move.String())
	}
	t.Logf("mate-in-one move: %s", move.String())
}

func TestPawnHashTable(t *testing.T) {
	pt := NewPawnTable(1) // 1MB

	pos := board.NewPosition()

	if _, found := pt.Probe(pos.PawnKey); found {
		t.Error("Expected cache miss on first probe")
	}

	pt.Store(pos.PawnKey, -15)

	score, found := pt.Probe(pos.PawnKey)
	if !found {
		t.Error("Expected cache hit after store")
	}
	if score != -15 {
		t.Errorf("Wrong value: got %d, want -15", score)
	}

	oldKey := pos.PawnKey
	move := board.NewMove(board.E2, board.E4)
	undo := pos.MakeMove(move)
	if pos.PawnKey == oldKey {
		t.Error("PawnKey should change when pawn moves")
	}

	pos.UnmakeMove(move, undo)
	if pos.PawnKey != oldKey {
		t.Error("PawnKey should be restored on unmake")
	}

	t.Logf("PawnKey: %016x", pos.PawnKey)
}
