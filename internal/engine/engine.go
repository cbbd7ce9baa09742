package engine

import (
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/corvid/vellum/internal/board"
)

// SearchInfo contains information about a search. SearchWithLimits reports
// it once, after the search has finished, with only Nodes, PV and HashFull
// filled in.
type SearchInfo struct {
	Depth    int
	Score    int
	Nodes    uint64
	Time     time.Duration
	PV       []board.Move
	HashFull int // permille of hash table used
}

// SearchLimits specifies constraints on the search, as translated from a
// UCI `go` command. Exactly one of MoveTime or TimeRemaining should be set;
// when both are zero a generous default budget is used.
type SearchLimits struct {
	Depth         int           // maximum depth (0 = no limit)
	Nodes         uint64        // maximum nodes (informational; not enforced mid-search)
	MoveTime      time.Duration // fixed time for this move (0 = use clock)
	TimeRemaining time.Duration // side-to-move's remaining clock time
	Increment     time.Duration // side-to-move's increment per move
	Infinite      bool          // search until stopped
}

// Difficulty is a convenience preset mapping to depth/time limits, for
// callers that don't speak UCI clocks directly.
type Difficulty int

const (
	Easy Difficulty = iota
	Medium
	Hard
)

var DifficultySettings = map[Difficulty]SearchLimits{
	Easy:   {Depth: 3, MoveTime: 500 * time.Millisecond},
	Medium: {Depth: 5, MoveTime: 2 * time.Second},
	Hard:   {Depth: 7, MoveTime: 5 * time.Second},
}

// Engine is the chess AI engine: a transposition table plus a searcher.
type Engine struct {
	searcher   *Searcher
	tt         *TranspositionTable
	difficulty Difficulty

	OnInfo func(SearchInfo)
}

// NewEngine creates a new chess engine with the given transposition table
// size in MB.
func NewEngine(ttSizeMB int) *Engine {
	tt := NewTranspositionTable(ttSizeMB)
	return &Engine{
		searcher:   NewSearcher(tt),
		tt:         tt,
		difficulty: Medium,
	}
}

// SetDifficulty sets the engine difficulty.
func (e *Engine) SetDifficulty(d Difficulty) {
	e.difficulty = d
}

// Search finds the best move for the given position using the engine's
// configured difficulty.
func (e *Engine) Search(pos *board.Position) board.Move {
	return e.SearchWithLimits(pos, DifficultySettings[e.difficulty])
}

// SetRootHistory supplies game history (prior to pos) for repetition
// detection during the next search.
func (e *Engine) SetRootHistory(hashes []uint64) {
	e.searcher.SetRootHistory(hashes)
}

// SearchWithLimits finds the best move under UCI-style limits, adapting
// them to findBestMove's (max_depth, time_remaining_s, increment_s)
// contract. Iterative deepening always runs a full window at every depth;
// no aspiration windows are used.
func (e *Engine) SearchWithLimits(pos *board.Position, limits SearchLimits) board.Move {
	maxDepth := MaxPly
	if limits.Depth > 0 {
		maxDepth = limits.Depth
	}

	var remainingSec, incrementSec float64
	switch {
	case limits.Infinite:
		remainingSec = float64(time.Hour / time.Second)
	case limits.MoveTime > 0:
		remainingSec = limits.MoveTime.Seconds()
	case limits.TimeRemaining > 0:
		remainingSec = limits.TimeRemaining.Seconds()
		incrementSec = limits.Increment.Seconds()
	default:
		// No clock information: fall back to a generous fixed budget so the
		// searcher still terminates in bounded time.
		remainingSec = 2.0
	}

	move := e.searcher.FindBestMove(pos, maxDepth, remainingSec, incrementSec)

	if e.OnInfo != nil {
		e.OnInfo(SearchInfo{
			Nodes:    e.searcher.Nodes(),
			PV:       e.searcher.GetPV(),
			HashFull: e.tt.HashFull(),
		})
	}

	return move
}

// SearchWithClock finds the best move using findBestMove's exact contract:
// the side-to-move's remaining clock and increment, in seconds.
func (e *Engine) SearchWithClock(pos *board.Position, maxDepth int, timeRemainingSec, incrementSec float64) board.Move {
	return e.searcher.FindBestMove(pos, maxDepth, timeRemainingSec, incrementSec)
}

// Stop stops the current search.
func (e *Engine) Stop() {
	e.searcher.Stop()
}

// Clear clears the transposition table and move-ordering state.
func (e *Engine) Clear() {
	e.tt.Clear()
	e.searcher.orderer.Clear()
}

// Perft performs a perft test (for debugging move generation).
func (e *Engine) Perft(pos *board.Position, depth int) uint64 {
	if depth == 0 {
		return 1
	}

	moves := pos.GenerateLegalMoves()
	if depth == 1 {
		return uint64(moves.Len())
	}

	var nodes uint64
	for i := 0; i < moves.Len(); i++ {
		move := moves.Get(i)
		undo := pos.MakeMove(move)
		nodes += e.Perft(pos, depth-1)
		pos.UnmakeMove(move, undo)
	}

	return nodes
}

// SaveSnapshot persists the engine's transposition table to db, per §4.9.
func (e *Engine) SaveSnapshot(db *badger.DB) error {
	return SaveSnapshot(e.tt, db)
}

// LoadSnapshot restores a previously saved transposition table from db into
// the engine, returning the number of entries restored.
func (e *Engine) LoadSnapshot(db *badger.DB) (int, error) {
	before := e.tt.occupiedCount()
	if err := LoadSnapshot(e.tt, db); err != nil {
		return 0, err
	}
	return e.tt.occupiedCount() - before, nil
}

// Evaluate returns the static evaluation of a position.
func (e *Engine) Evaluate(pos *board.Position) int {
	legal := pos.GenerateLegalMoves()
	return Evaluate(pos, 0, legal)
}

// ScoreToString converts a score to a human-readable string.
func ScoreToString(score int) string {
	if score > MATE-1000 {
		mateIn := (MATE - score + 1) / 2
		return "Mate in " + itoa(mateIn)
	}
	if score < -MATE+1000 {
		mateIn := (MATE + score + 1) / 2
		return "Mated in " + itoa(mateIn)
	}

	sign := ""
	if score < 0 {
		sign = "-"
		score = -score
	}
	pawns := score / 100
	centipawns := score % 100

	return sign + itoa(pawns) + "." + itoa(centipawns)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	if n < 0 {
		return "-" + itoa(-n)
	}
	s := ""
	for n > 0 {
		s = string('0'+byte(n%10)) + s
		n /= 10
	}
	return s
}
