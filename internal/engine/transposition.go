package engine

import (
	"github.com/corvid/vellum/internal/board"
)

// TTFlag indicates which kind of bound a transposition table entry stores.
type TTFlag uint8

const (
	TTExact      TTFlag = iota // Exact score
	TTLowerBound               // Failed high (beta cutoff): score is a lower bound
	TTUpperBound               // Failed low: score is an upper bound
)

// mateThreshold is the score magnitude above which a value is treated as a
// mate score and needs ply-distance normalization when stored or read back.
const mateThreshold = MATE - 1000

// TTEntry represents an entry in the transposition table.
type TTEntry struct {
	Key      uint64
	BestMove board.Move
	Score    int32
	Depth    int8
	Flag     TTFlag
}

// TranspositionTable caches search results keyed by position hash. The
// search is single-threaded, so the table needs no internal locking.
type TranspositionTable struct {
	entries []TTEntry
	size    uint64
	mask    uint64

	hits   uint64
	probes uint64
}

// NewTranspositionTable creates a transposition table with the given size in MB.
func NewTranspositionTable(sizeMB int) *TranspositionTable {
	const entrySize = 24
	numEntries := (uint64(sizeMB) * 1024 * 1024) / entrySize
	numEntries = roundDownToPowerOf2(numEntries)
	if numEntries == 0 {
		numEntries = 1
	}

	return &TranspositionTable{
		entries: make([]TTEntry, numEntries),
		size:    numEntries,
		mask:    numEntries - 1,
	}
}

func roundDownToPowerOf2(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return (n + 1) >> 1
}

// Probe looks up hash in the table.
func (tt *TranspositionTable) Probe(hash uint64) (TTEntry, bool) {
	tt.probes++

	entry := tt.entries[hash&tt.mask]
	if entry.Key == hash && entry.Depth > 0 {
		tt.hits++
		return entry, true
	}

	return TTEntry{}, false
}

// Store records a search result, unconditionally overwriting whatever
// previously occupied the slot.
func (tt *TranspositionTable) Store(hash uint64, depth int, score int, flag TTFlag, bestMove board.Move) {
	entry := &tt.entries[hash&tt.mask]
	entry.Key = hash
	entry.BestMove = bestMove
	entry.Score = int32(score)
	entry.Depth = int8(depth)
	entry.Flag = flag
}

// NewSearch resets the hit-rate counters for a fresh search.
func (tt *TranspositionTable) NewSearch() {
	tt.hits = 0
	tt.probes = 0
}

// Clear empties the table, as required at the start of findBestMoveIterative
// and on ucinewgame.
func (tt *TranspositionTable) Clear() {
	for i := range tt.entries {
		tt.entries[i] = TTEntry{}
	}
	tt.hits = 0
	tt.probes = 0
}

// HashFull returns the permille of the table that is occupied, sampled from
// the first 1000 entries.
func (tt *TranspositionTable) HashFull() int {
	sampleSize := 1000
	if uint64(sampleSize) > tt.size {
		sampleSize = int(tt.size)
	}

	used := 0
	for i := 0; i < sampleSize; i++ {
		if tt.entries[i].Depth > 0 {
			used++
		}
	}

	return (used * 1000) / sampleSize
}

// occupiedCount returns the exact number of occupied slots, by full scan.
// Unlike HashFull it is not sampled; only used around snapshot loads, which
// already touch every entry once.
func (tt *TranspositionTable) occupiedCount() int {
	n := 0
	for i := range tt.entries {
		if tt.entries[i].Depth > 0 {
			n++
		}
	}
	return n
}

// HitRate returns the probe hit rate as a percentage.
func (tt *TranspositionTable) HitRate() float64 {
	if tt.probes == 0 {
		return 0
	}
	return float64(tt.hits) / float64(tt.probes) * 100
}

// Size returns the number of entries in the table.
func (tt *TranspositionTable) Size() uint64 {
	return tt.size
}

// AdjustScoreFromTT converts a stored score back to ply-from-root distance
// when reading an entry at ply.
func AdjustScoreFromTT(score int, ply int) int {
	if score > mateThreshold {
		return score - ply
	}
	if score < -mateThreshold {
		return score + ply
	}
	return score
}

// AdjustScoreToTT converts a score to ply-independent form before storing it.
func AdjustScoreToTT(score int, ply int) int {
	if score > mateThreshold {
		return score + ply
	}
	if score < -mateThreshold {
		return score - ply
	}
	return score
}
