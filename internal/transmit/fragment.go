// Package transmit delivers an encoded print payload to a write channel
// that only accepts small writes. It splits the payload into bounded chunks
// and schedules one write per chunk, either on fixed timer offsets or
// through a single worker that awaits each write.
package transmit

import "iter"

// DefaultMaxChunkSize is the largest write the receipt printer's GATT
// characteristic accepts.
const DefaultMaxChunkSize = 125

// Chunk is a contiguous piece of a payload tagged with its position.
// Data aliases the payload; it must not be modified.
type Chunk struct {
	Index int
	Data  []byte
}

// Fragment splits payload into chunks of at most maxSize bytes. Every chunk
// except the last is exactly maxSize long. The sequence is lazy and can be
// ranged over more than once. An empty payload, or a maxSize <= 0, yields
// nothing.
func Fragment(payload []byte, maxSize int) iter.Seq[Chunk] {
	return func(yield func(Chunk) bool) {
		if maxSize <= 0 {
			return
		}
		for i, off := 0, 0; off < len(payload); i, off = i+1, off+maxSize {
			end := min(off+maxSize, len(payload))
			// Cap the slice so an append by a consumer can't clobber the next chunk.
			if !yield(Chunk{Index: i, Data: payload[off:end:end]}) {
				return
			}
		}
	}
}

// Count returns the number of chunks Fragment yields for a payload of n bytes.
func Count(n, maxSize int) int {
	if n <= 0 || maxSize <= 0 {
		return 0
	}
	return (n + maxSize - 1) / maxSize
}
