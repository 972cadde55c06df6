package engine

import (
	"sync/atomic"

	. "github.com/chessduel/duel/pkg/common"
)

const (
	boundLower = 1 << iota
	boundUpper
)

const boundExact = boundLower | boundUpper

func roundPowerOfTwo(size int) int {
	var x = 1
	for (x << 1) <= size {
		x <<= 1
	}
	return x
}

// 16 bytes
type transEntry struct {
	gate  int32
	key32 uint32
	move  Move
	score int16
	depth int8
	bound uint8
}

// transTable is shared by concurrent searches; an entry that is busy is
// skipped rather than waited for.
type transTable struct {
	megabytes int
	entries   []transEntry
	mask      uint32
}

func newTransTable(megabytes int) *transTable {
	var size = roundPowerOfTwo(1024 * 1024 * megabytes / 16)
	return &transTable{
		megabytes: megabytes,
		entries:   make([]transEntry, size),
		mask:      uint32(size - 1),
	}
}

func (tt *transTable) Size() int {
	return tt.megabytes
}

func (tt *transTable) Clear() {
	for i := range tt.entries {
		var entry = &tt.entries[i]
		if atomic.CompareAndSwapInt32(&entry.gate, 0, 1) {
			entry.key32, entry.move, entry.score, entry.depth, entry.bound = 0, MoveEmpty, 0, 0, 0
			atomic.StoreInt32(&entry.gate, 0)
		}
	}
}

func (tt *transTable) Read(key uint64) (depth, score, bound int, move Move, ok bool) {
	var entry = &tt.entries[uint32(key)&tt.mask]
	if atomic.CompareAndSwapInt32(&entry.gate, 0, 1) {
		if entry.key32 == uint32(key>>32) && entry.bound != 0 {
			score = int(entry.score)
			move = entry.move
			depth = int(entry.depth)
			bound = int(entry.bound)
			ok = true
		}
		atomic.StoreInt32(&entry.gate, 0)
	}
	return
}

func (tt *transTable) Update(key uint64, depth, score, bound int, move Move) {
	var entry = &tt.entries[uint32(key)&tt.mask]
	if atomic.CompareAndSwapInt32(&entry.gate, 0, 1) {
		if entry.key32 != uint32(key>>32) ||
			depth >= int(entry.depth)-3 || bound == boundExact {
			entry.key32 = uint32(key >> 32)
			entry.score = int16(score)
			entry.depth = int8(depth)
			entry.bound = uint8(bound)
			entry.move = move
		}
		atomic.StoreInt32(&entry.gate, 0)
	}
}
