package engine

import (
	"time"

	"github.com/corvid/vellum/internal/board"
)

// Search constants.
const (
	MATE     = 69000
	MaxPly   = 128
	Infinity = MATE + 1000
)

// PVTable stores the principal variation discovered at each ply.
type PVTable struct {
	length [MaxPly]int
	moves  [MaxPly][MaxPly]board.Move
}

// SearchContext is shared by reference through a single findBestMove
// invocation: it carries the deadline and the cooperative cancellation flag.
type SearchContext struct {
	startTime   time.Time
	timeForMove time.Duration
	timedOut    bool
}

func (c *SearchContext) expired() bool {
	if c.timedOut {
		return true
	}
	if time.Since(c.startTime) > c.timeForMove {
		c.timedOut = true
	}
	return c.timedOut
}

// Searcher holds all per-search mutable state: the position being searched,
// move ordering tables, the shared transposition and pawn-hash tables, and
// the ancestor-position history used for repetition detection. It performs
// one call stack's worth of work; there is no worker pool.
type Searcher struct {
	pos *board.Position

	orderer   *MoveOrderer
	tt        *TranspositionTable
	pawnTable *PawnTable

	nodes uint64
	pv    PVTable

	// ancestorHashes holds the Zobrist hash of every position (game history
	// plus search-tree ancestors) strictly above the node currently being
	// examined; it excludes the current node's own hash.
	ancestorHashes []uint64
	rootHashes     []uint64

	ctx *SearchContext

	stopped bool
}

// NewSearcher creates a searcher sharing the given transposition table.
func NewSearcher(tt *TranspositionTable) *Searcher {
	return &Searcher{
		orderer:   NewMoveOrderer(),
		tt:        tt,
		pawnTable: NewPawnTable(1),
	}
}

// Reset clears per-search counters and move-ordering state ahead of a new
// findBestMove invocation, per §4.7 step 1 and §5's table-clearing rule.
func (s *Searcher) Reset() {
	s.nodes = 0
	s.orderer.Clear()
	s.tt.Clear()
	s.stopped = false
}

// Stop requests cooperative cancellation of an in-progress search.
func (s *Searcher) Stop() {
	s.stopped = true
}

// Nodes returns the number of nodes visited by the most recent search.
func (s *Searcher) Nodes() uint64 {
	return s.nodes
}

// SetRootHistory supplies the game's position-hash history (prior to the
// current search root) used for repetition detection.
func (s *Searcher) SetRootHistory(hashes []uint64) {
	s.rootHashes = make([]uint64, len(hashes))
	copy(s.rootHashes, hashes)
}

// GetPV returns the principal variation discovered by the last search.
func (s *Searcher) GetPV() []board.Move {
	pv := make([]board.Move, s.pv.length[0])
	copy(pv, s.pv.moves[0][:s.pv.length[0]])
	return pv
}

// FindBestMove implements findBestMove(position, max_depth, time_remaining_s,
// increment_s) → Move exactly per §4.7: it clears state, computes the time
// budget, and iteratively deepens with a full search window at every depth.
func (s *Searcher) FindBestMove(pos *board.Position, maxDepth int, timeRemainingSec, incrementSec float64) board.Move {
	s.Reset()
	s.pos = pos

	timeForMove := computeTimeForMove(timeRemainingSec, incrementSec, pos.FullMoveNumber)
	s.ctx = &SearchContext{startTime: time.Now(), timeForMove: timeForMove}

	s.ancestorHashes = make([]uint64, len(s.rootHashes))
	copy(s.ancestorHashes, s.rootHashes)

	legalRoot := pos.GenerateLegalMoves()
	if legalRoot.Len() == 0 {
		return board.NoMove
	}

	best := legalRoot.Get(0)

	for depth := 1; depth <= maxDepth; depth++ {
		move, _ := s.negamaxRoot(depth, -MATE, MATE)

		if !s.ctx.timedOut && move != board.NoMove && isLegalRootMove(legalRoot, move) {
			best = move
		}

		if s.ctx.timedOut || s.stopped {
			break
		}

		if time.Since(s.ctx.startTime) > (timeForMove*9)/10 {
			break
		}
	}

	return best
}

func isLegalRootMove(legal *board.MoveList, move board.Move) bool {
	for i := 0; i < legal.Len(); i++ {
		if legal.Get(i) == move {
			return true
		}
	}
	return false
}

// negamaxRoot implements §4.6: like negamax but with no null-move pruning,
// explicit best-move tracking, and first-move adoption even on failure to
// raise alpha.
func (s *Searcher) negamaxRoot(depth, alpha, beta int) (board.Move, int) {
	s.pv.length[0] = 0
	alphaOrig := alpha

	if s.ctx.expired() || s.stopped {
		s.ctx.timedOut = true
		return board.NoMove, 0
	}
	s.nodes++

	moves := s.pos.GenerateLegalMoves()

	var ttMove board.Move
	if entry, found := s.tt.Probe(s.pos.Hash); found {
		ttMove = entry.BestMove
		if int(entry.Depth) >= depth {
			value := AdjustScoreFromTT(int(entry.Score), 0)
			switch entry.Flag {
			case TTExact:
				return entry.BestMove, value
			case TTLowerBound:
				if value > alpha {
					alpha = value
				}
			case TTUpperBound:
				if value < beta {
					beta = value
				}
			}
			if alpha >= beta {
				return entry.BestMove, value
			}
		}
	}

	if s.isRepetition(1) || s.pos.IsInsufficientMaterial() || s.isHalfMoveDraw() {
		if moves.Len() > 0 {
			return moves.Get(0), 0
		}
		return board.NoMove, 0
	}

	if moves.Len() == 0 {
		if s.pos.InCheck() {
			return board.NoMove, -MATE
		}
		return board.NoMove, 0
	}

	inCheck := s.pos.InCheck()
	scores := s.orderer.ScoreMoves(s.pos, moves, 0, ttMove)

	var bestMove board.Move
	bestScore := -Infinity
	first := true

	for i := 0; i < moves.Len(); i++ {
		PickMove(moves, scores, i)
		move := moves.Get(i)

		isCapture := move.IsCapture(s.pos)
		isPromotion := move.IsPromotion()

		parentHash := s.pos.Hash
		undo := s.pos.MakeMove(move)
		givesCheck := s.pos.InCheck()
		s.ancestorHashes = append(s.ancestorHashes, parentHash)

		quiet := !isCapture && !isPromotion && !givesCheck && !inCheck
		reduction := 0
		if depth >= 3 && i > 0 && quiet {
			reduction = 1
		}

		var score int
		if reduction > 0 {
			score = -s.negamax(depth-1-reduction, 1, -alpha-1, -alpha, move)
			if score > alpha && !s.ctx.timedOut {
				score = -s.negamax(depth-1, 1, -beta, -alpha, move)
			}
		} else {
			score = -s.negamax(depth-1, 1, -beta, -alpha, move)
		}

		s.ancestorHashes = s.ancestorHashes[:len(s.ancestorHashes)-1]
		s.pos.UnmakeMove(move, undo)

		if s.ctx.timedOut {
			if first {
				bestMove = move
				bestScore = score
			}
			break
		}

		if first || score > bestScore {
			bestScore = score
			bestMove = move
			first = false

			if score > alpha {
				alpha = score
				s.pv.moves[0][0] = move
				for j := 1; j < s.pv.length[1]; j++ {
					s.pv.moves[0][j] = s.pv.moves[1][j]
				}
				s.pv.length[0] = s.pv.length[1]
			}
		}

		if alpha >= beta {
			if !isCapture && !isPromotion {
				s.orderer.UpdateKillers(move, 0)
				s.orderer.UpdateHistory(move, depth)
			}
			break
		}
	}

	if s.ctx.timedOut {
		return bestMove, bestScore
	}

	flag := TTExact
	if bestScore <= alphaOrig {
		flag = TTUpperBound
	} else if bestScore >= beta {
		flag = TTLowerBound
	}
	s.tt.Store(s.pos.Hash, depth, AdjustScoreToTT(bestScore, 0), flag, bestMove)

	return bestMove, bestScore
}

// negamax implements §4.5's procedure, in order.
func (s *Searcher) negamax(depth, ply int, alpha, beta int, prevMove board.Move) int {
	// 1. Time check.
	if s.ctx.expired() || s.stopped {
		s.ctx.timedOut = true
		return 0
	}
	s.nodes++
	s.pv.length[ply] = ply

	alphaOrig := alpha

	// 2. Generate legal moves once.
	moves := s.pos.GenerateLegalMoves()

	// 3. TT probe.
	var ttMove board.Move
	if entry, found := s.tt.Probe(s.pos.Hash); found {
		ttMove = entry.BestMove
		if int(entry.Depth) >= depth {
			value := AdjustScoreFromTT(int(entry.Score), ply)
			switch entry.Flag {
			case TTExact:
				return value
			case TTLowerBound:
				if value > alpha {
					alpha = value
				}
			case TTUpperBound:
				if value < beta {
					beta = value
				}
			}
			if alpha >= beta {
				return value
			}
		}
	}

	// 4. Terminal draws.
	if s.isRepetition(1) || s.pos.IsInsufficientMaterial() || s.isHalfMoveDraw() {
		return 0
	}

	// 5. Terminal mate/stalemate.
	if moves.Len() == 0 {
		if s.pos.InCheck() {
			return -(MATE - ply)
		}
		return 0
	}

	// 6. Leaf: drop into quiescence.
	if depth <= 0 {
		return s.quiescence(alpha, beta, ply+1)
	}

	inCheck := s.pos.InCheck()

	// 7. Null-move pruning.
	if depth >= 3 && !inCheck && nonPawnMaterial(s.pos, s.pos.SideToMove) >= 2*RookValue {
		nullUndo := s.pos.MakeNullMove()
		nullScore := -s.negamax(depth-3, ply+1, -beta, -beta+1, board.NoMove)
		s.pos.UnmakeNullMove(nullUndo)

		if s.ctx.timedOut {
			return 0
		}
		if nullScore >= beta {
			return beta
		}
	}

	// 8. Iterate moves in order, with the TT move hinted.
	scores := s.orderer.ScoreMoves(s.pos, moves, ply, ttMove)

	bestScore := -Infinity
	bestMove := board.NoMove

	for i := 0; i < moves.Len(); i++ {
		PickMove(moves, scores, i)
		move := moves.Get(i)

		isCapture := move.IsCapture(s.pos)
		isPromotion := move.IsPromotion()

		parentHash := s.pos.Hash
		undo := s.pos.MakeMove(move)
		givesCheck := s.pos.InCheck()
		s.ancestorHashes = append(s.ancestorHashes, parentHash)

		quiet := !isCapture && !isPromotion && !givesCheck && !inCheck
		reduction := 0
		if depth >= 3 && i > 0 && quiet {
			reduction = 1
		}

		var score int
		if reduction > 0 {
			score = -s.negamax(depth-1-reduction, ply+1, -alpha-1, -alpha, move)
			if score > alpha && !s.ctx.timedOut {
				score = -s.negamax(depth-1, ply+1, -beta, -alpha, move)
			}
		} else {
			score = -s.negamax(depth-1, ply+1, -beta, -alpha, move)
		}

		s.ancestorHashes = s.ancestorHashes[:len(s.ancestorHashes)-1]
		s.pos.UnmakeMove(move, undo)

		if s.ctx.timedOut {
			break
		}

		if score > bestScore {
			bestScore = score
			bestMove = move

			if score > alpha {
				alpha = score
				s.pv.moves[ply][ply] = move
				for j := ply + 1; j < s.pv.length[ply+1]; j++ {
					s.pv.moves[ply][j] = s.pv.moves[ply+1][j]
				}
				s.pv.length[ply] = s.pv.length[ply+1]
			}
		}

		// 9. Quiet-move heuristics on cutoff.
		if alpha >= beta {
			if !isCapture && !isPromotion {
				s.orderer.UpdateKillers(move, ply)
				s.orderer.UpdateHistory(move, depth)
			}
			break
		}
	}

	if s.ctx.timedOut {
		return 0
	}

	// 10. TT store.
	flag := TTExact
	if bestScore <= alphaOrig {
		flag = TTUpperBound
	} else if bestScore >= beta {
		flag = TTLowerBound
	}
	s.tt.Store(s.pos.Hash, depth, AdjustScoreToTT(bestScore, ply), flag, bestMove)

	// 11. Return best_score.
	return bestScore
}

// quiescence implements §4.4's capture-only search. It consults neither the
// transposition table nor null-move pruning, and has no explicit depth
// limit beyond captures eventually running out.
func (s *Searcher) quiescence(alpha, beta, ply int) int {
	s.nodes++

	moves := s.pos.GenerateLegalMoves()
	standPat := EvaluateWithPawnTable(s.pos, ply, moves, s.pawnTable)

	if standPat >= beta {
		return standPat
	}
	if standPat > alpha {
		alpha = standPat
	}

	for i := 0; i < moves.Len(); i++ {
		move := moves.Get(i)
		if !move.IsCapture(s.pos) {
			continue
		}

		undo := s.pos.MakeMove(move)
		score := -s.quiescence(-beta, -alpha, ply+1)
		s.pos.UnmakeMove(move, undo)

		if score >= beta {
			return score
		}
		if score > standPat {
			standPat = score
		}
		if score > alpha {
			alpha = score
		}
	}

	return standPat
}

// isRepetition reports whether the current position has occurred at least
// minOccurrences times among its ancestors (game history plus search-tree
// ancestors), excluding the current occurrence itself.
func (s *Searcher) isRepetition(minOccurrences int) bool {
	h := s.pos.Hash
	count := 0
	for _, past := range s.ancestorHashes {
		if past == h {
			count++
			if count >= minOccurrences {
				return true
			}
		}
	}
	return false
}

func (s *Searcher) isHalfMoveDraw() bool {
	return s.pos.HalfMoveClock >= 100
}
