package engine

import (
	"time"

	"github.com/corvid/vellum/internal/board"
)

// UCILimits contains UCI time control parameters as received from the
// `go` command.
type UCILimits struct {
	Time      [2]time.Duration // wtime, btime
	Inc       [2]time.Duration // winc, binc
	MovesToGo int
	MoveTime  time.Duration
	Depth     int
	Nodes     uint64
	Infinite  bool
	Ponder    bool
}

// clamp restricts v to [lo, hi].
func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// computeTimeForMove implements §4.7 step 2 exactly:
//
//	moves_to_go   = clamp(60 - fullmove_number, 1, 40)
//	reserve       = 1.0s
//	time_for_move = max(0.05, min((time_remaining - reserve)/moves_to_go + 0.5*increment, 0.5*time_remaining))
func computeTimeForMove(timeRemainingSec, incrementSec float64, fullMoveNumber int) time.Duration {
	movesToGo := clamp(60-fullMoveNumber, 1, 40)
	const reserve = 1.0

	budget := (timeRemainingSec-reserve)/float64(movesToGo) + 0.5*incrementSec
	ceiling := 0.5 * timeRemainingSec
	if budget > ceiling {
		budget = ceiling
	}
	if budget < 0.05 {
		budget = 0.05
	}

	return time.Duration(budget * float64(time.Second))
}

// timeRemainingAndIncrement extracts the side-to-move's clock values (in
// seconds) from a parsed set of UCI go-command limits. When limits specify
// a fixed movetime instead of a clock, the remaining budget degenerates to
// that single value with no increment.
func timeRemainingAndIncrement(limits UCILimits, us board.Color) (remainingSec, incrementSec float64) {
	if limits.MoveTime > 0 {
		return limits.MoveTime.Seconds(), 0
	}
	return limits.Time[us].Seconds(), limits.Inc[us].Seconds()
}
