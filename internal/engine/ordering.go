package engine

import (
	"github.com/corvid/vellum/internal/board"
)

// Move ordering category scores. Categories never overlap: a move gets
// exactly one of these bases, plus a per-category tie-breaker.
const (
	hashMoveScore   = 1000000
	captureBase     = 900000
	killerScore1    = 800000
	killerScore2    = 799000
	quietBase       = 1000
)

// ScoreMoves assigns an ordering score to every move in the list.
func (mo *MoveOrderer) ScoreMoves(pos *board.Position, moves *board.MoveList, ply int, ttMove board.Move) []int {
	scores := make([]int, moves.Len())
	for i := 0; i < moves.Len(); i++ {
		scores[i] = mo.scoreMove(pos, moves.Get(i), ply, ttMove)
	}
	return scores
}

// scoreMove returns the ordering score for a single move.
func (mo *MoveOrderer) scoreMove(pos *board.Position, m board.Move, ply int, ttMove board.Move) int {
	if m == ttMove {
		return hashMoveScore
	}

	if m.IsCapture(pos) {
		attackerPiece := pos.PieceAt(m.From())
		if attackerPiece == board.NoPiece {
			return captureBase
		}
		attacker := attackerPiece.Type()

		var victim board.PieceType
		if m.IsEnPassant() {
			victim = board.Pawn
		} else {
			capturedPiece := pos.PieceAt(m.To())
			if capturedPiece == board.NoPiece {
				return captureBase
			}
			victim = capturedPiece.Type()
		}

		return captureBase + 10*pieceValues[victim] - pieceValues[attacker]
	}

	if m == mo.killers[ply][0] {
		return killerScore1
	}
	if m == mo.killers[ply][1] {
		return killerScore2
	}

	return quietBase + mo.history[m.From()][m.To()]
}

// MoveOrderer holds the killer-move table and history heuristic for a search.
type MoveOrderer struct {
	killers [MaxPly][2]board.Move
	history [64][64]int
}

// NewMoveOrderer creates a new move orderer.
func NewMoveOrderer() *MoveOrderer {
	return &MoveOrderer{}
}

// Clear resets the move orderer at the start of a new search.
func (mo *MoveOrderer) Clear() {
	for i := range mo.killers {
		mo.killers[i][0] = board.NoMove
		mo.killers[i][1] = board.NoMove
	}
	for i := range mo.history {
		for j := range mo.history[i] {
			mo.history[i][j] = 0
		}
	}
}

// PickMove selects the best remaining move from index onward and swaps it
// into place, allowing the search loop to sort lazily as it consumes moves.
func PickMove(moves *board.MoveList, scores []int, index int) {
	best := index
	for j := index + 1; j < moves.Len(); j++ {
		if scores[j] > scores[best] {
			best = j
		}
	}
	if best != index {
		moves.Swap(index, best)
		scores[index], scores[best] = scores[best], scores[index]
	}
}

// UpdateKillers records a quiet move that caused a beta cutoff at ply.
func (mo *MoveOrderer) UpdateKillers(m board.Move, ply int) {
	if ply >= MaxPly {
		return
	}
	if mo.killers[ply][0] == m {
		return
	}
	mo.killers[ply][1] = mo.killers[ply][0]
	mo.killers[ply][0] = m
}

// UpdateHistory bumps the history score for a quiet move that caused a
// beta cutoff, by depth squared.
func (mo *MoveOrderer) UpdateHistory(m board.Move, depth int) {
	mo.history[m.From()][m.To()] += depth * depth
}
