package scanner

import "github.com/goodnatureofminers/shielded-bridge-watcher/pkg/safe"

// ComputeRange returns the inclusive heights to scan next. ok is false when the
// cursor has reached the tip; no blocks should be requested then.
func ComputeRange(cursor, tip, window uint64) (from, to uint64, ok bool) {
	if cursor >= tip {
		return 0, 0, false
	}
	to = safe.SaturatingAdd(cursor, window)
	if to > tip {
		to = tip
	}
	return cursor, to, true
}

// Confirmations is the depth of height below tip, zero for heights above it.
func Confirmations(tip, height uint64) uint32 {
	return safe.ClampUint32(safe.SaturatingSub(tip, height))
}

func initialCursor(tip, startHeight, startOffset uint64) uint64 {
	if startHeight > 0 {
		return startHeight
	}
	return safe.SaturatingSub(tip, startOffset)
}
