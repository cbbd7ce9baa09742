// Package engine implements the chess search and evaluation kernel.
package engine

import (
	"github.com/corvid/vellum/internal/board"
)

// Material values. The king contributes 0; its value is implicit in mate detection.
const (
	PawnValue   = 100
	KnightValue = 320
	BishopValue = 330
	RookValue   = 500
	QueenValue  = 900
	KingValue   = 0
)

var pieceValues = [7]int{PawnValue, KnightValue, BishopValue, RookValue, QueenValue, KingValue, 0}

const (
	bishopPairBonus      = 30
	kingShieldMissing    = 15
	kingOpenFilePenalty  = 20
	kingSemiOpenPenalty  = 10
	doubledPawnPenalty   = 12
	isolatedPawnPenalty  = 15
	passedPawnBonus      = 20
	mobilityWeight       = 5
)

// Piece-square tables, White's perspective; mirrored for Black via Square.Mirror().

var pawnPST = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	50, 50, 50, 50, 50, 50, 50, 50,
	10, 10, 20, 30, 30, 20, 10, 10,
	5, 5, 10, 25, 25, 10, 5, 5,
	0, 0, 0, 20, 20, 0, 0, 0,
	5, -5, -10, 0, 0, -10, -5, 5,
	5, 10, 10, -20, -20, 10, 10, 5,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var knightPST = [64]int{
	-50, -40, -30, -30, -30, -30, -40, -50,
	-40, -20, 0, 0, 0, 0, -20, -40,
	-30, 0, 10, 15, 15, 10, 0, -30,
	-30, 5, 15, 20, 20, 15, 5, -30,
	-30, 0, 15, 20, 20, 15, 0, -30,
	-30, 5, 10, 15, 15, 10, 5, -30,
	-40, -20, 0, 5, 5, 0, -20, -40,
	-50, -40, -30, -30, -30, -30, -40, -50,
}

var bishopPST = [64]int{
	-20, -10, -10, -10, -10, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 10, 10, 5, 0, -10,
	-10, 5, 5, 10, 10, 5, 5, -10,
	-10, 0, 10, 10, 10, 10, 0, -10,
	-10, 10, 10, 10, 10, 10, 10, -10,
	-10, 5, 0, 0, 0, 0, 5, -10,
	-20, -10, -10, -10, -10, -10, -10, -20,
}

var rookPST = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	5, 10, 10, 10, 10, 10, 10, 5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	0, 0, 0, 5, 5, 0, 0, 0,
}

var queenPST = [64]int{
	-20, -10, -10, -5, -5, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 5, 5, 5, 0, -10,
	-5, 0, 5, 5, 5, 5, 0, -5,
	0, 0, 5, 5, 5, 5, 0, -5,
	-10, 5, 5, 5, 5, 5, 0, -10,
	-10, 0, 5, 0, 0, 0, 0, -10,
	-20, -10, -10, -5, -5, -10, -10, -20,
}

var kingPST = [64]int{
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-20, -30, -30, -40, -40, -30, -30, -20,
	-10, -20, -20, -20, -20, -20, -20, -10,
	20, 20, 0, 0, 0, 0, 20, 20,
	20, 30, 10, 0, 0, 10, 30, 20,
}

var psts = [...][64]int{pawnPST, knightPST, bishopPST, rookPST, queenPST, kingPST}

// Evaluate scores a position from the side-to-move's perspective.
//
// legalMoves is the move list already generated by the caller for this
// position (negamax generates it once and passes it down); it is never
// regenerated here. An empty legalMoves signals checkmate or stalemate.
func Evaluate(pos *board.Position, ply int, legalMoves *board.MoveList) int {
	return evaluate(pos, ply, legalMoves, nil)
}

// EvaluateWithPawnTable is like Evaluate but caches the pawn-structure term.
func EvaluateWithPawnTable(pos *board.Position, ply int, legalMoves *board.MoveList, pawnTable *PawnTable) int {
	return evaluate(pos, ply, legalMoves, pawnTable)
}

func evaluate(pos *board.Position, ply int, legalMoves *board.MoveList, pawnTable *PawnTable) int {
	if legalMoves.Len() == 0 {
		if pos.InCheck() {
			return -(MATE - ply)
		}
		return 0
	}

	var s int

	for c := board.White; c <= board.Black; c++ {
		sign := 1
		if c == board.Black {
			sign = -1
		}

		for pt := board.Pawn; pt <= board.King; pt++ {
			bb := pos.Pieces[c][pt]
			for bb != 0 {
				sq := bb.PopLSB()
				s += sign * pieceValues[pt]

				pstSq := sq
				if c == board.Black {
					pstSq = sq.Mirror()
				}
				s += sign * psts[pt][pstSq]
			}
		}

		if pos.Pieces[c][board.Bishop].PopCount() >= 2 {
			s += sign * bishopPairBonus
		}
	}

	s -= kingSafetyPenalty(pos, board.White)
	s += kingSafetyPenalty(pos, board.Black)

	s += pawnStructureScore(pos, pawnTable)

	if pos.SideToMove == board.White {
		s += mobilityWeight * legalMoves.Len()
	} else {
		s -= mobilityWeight * legalMoves.Len()
	}

	if pos.SideToMove == board.Black {
		return -s
	}
	return s
}

// kingSafetyPenalty returns the safety penalty for color's own king, to be
// subtracted from that color's contribution to the white-frame score.
func kingSafetyPenalty(pos *board.Position, color board.Color) int {
	kingSq := pos.KingSquare[color]
	kingFile := int(kingSq.File())

	frontRank := int(kingSq.Rank()) + 1
	if color == board.Black {
		frontRank = int(kingSq.Rank()) - 1
	}

	ownPawns := pos.Pieces[color][board.Pawn]
	enemyPawns := pos.Pieces[color.Other()][board.Pawn]

	penalty := 0
	for f := kingFile - 1; f <= kingFile+1; f++ {
		if f < 0 || f > 7 {
			continue
		}

		fileMask := board.FileMask[f]
		hasOwn := ownPawns&fileMask != 0
		hasEnemy := enemyPawns&fileMask != 0

		if frontRank >= 0 && frontRank <= 7 && !ownPawns.IsSet(board.NewSquare(f, frontRank)) {
			penalty += kingShieldMissing
		}

		if !hasOwn && !hasEnemy {
			penalty += kingOpenFilePenalty
		} else if !hasOwn {
			penalty += kingSemiOpenPenalty
		}
	}

	return penalty
}

// pawnStructureScore returns the combined doubled/isolated/passed pawn term,
// already signed in white's frame, optionally served from pawnTable.
func pawnStructureScore(pos *board.Position, pawnTable *PawnTable) int {
	if pawnTable != nil {
		if score, found := pawnTable.Probe(pos.PawnKey); found {
			return score
		}
	}

	score := computePawnStructureScore(pos)

	if pawnTable != nil {
		pawnTable.Store(pos.PawnKey, score)
	}

	return score
}

func computePawnStructureScore(pos *board.Position) int {
	var score int

	for color := board.White; color <= board.Black; color++ {
		sign := 1
		if color == board.Black {
			sign = -1
		}

		pawns := pos.Pieces[color][board.Pawn]

		for f := 0; f < 8; f++ {
			n := (pawns & board.FileMask[f]).PopCount()
			if n > 1 {
				score += sign * doubledPawnPenalty * (n - 1) * -1
			}
		}

		isolated := 0
		for temp := pawns; temp != 0; {
			sq := temp.PopLSB()
			file := sq.File()

			var adjacent board.Bitboard
			if file > 0 {
				adjacent |= board.FileMask[file-1]
			}
			if file < 7 {
				adjacent |= board.FileMask[file+1]
			}

			if pawns&adjacent == 0 {
				isolated++
			}
		}
		score += sign * isolatedPawnPenalty * isolated * -1

		passed := 0
		for temp := pawns; temp != 0; {
			sq := temp.PopLSB()
			if isPassedPawn(pos, sq, color) {
				passed++
			}
		}
		score += sign * passedPawnBonus * passed
	}

	return score
}

// isPassedPawn reports whether sq has no opposing pawn on its file or an
// adjacent file on any rank ahead of it, from color's direction of advance.
func isPassedPawn(pos *board.Position, sq board.Square, color board.Color) bool {
	file := sq.File()
	enemyPawns := pos.Pieces[color.Other()][board.Pawn]

	fileMask := board.FileMask[file]
	if file > 0 {
		fileMask |= board.FileMask[file-1]
	}
	if file < 7 {
		fileMask |= board.FileMask[file+1]
	}

	var frontMask board.Bitboard
	if color == board.White {
		frontMask = board.SquareBB(sq).NorthFill() &^ board.SquareBB(sq)
	} else {
		frontMask = board.SquareBB(sq).SouthFill() &^ board.SquareBB(sq)
	}

	return (enemyPawns & fileMask & frontMask) == 0
}

// nonPawnMaterial returns the material value of color's knights, bishops,
// rooks, and queens — used to guard null-move pruning against zugzwang.
func nonPawnMaterial(pos *board.Position, color board.Color) int {
	return pos.Pieces[color][board.Knight].PopCount()*KnightValue +
		pos.Pieces[color][board.Bishop].PopCount()*BishopValue +
		pos.Pieces[color][board.Rook].PopCount()*RookValue +
		pos.Pieces[color][board.Queen].PopCount()*QueenValue
}
