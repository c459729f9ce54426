package dma

import (
	"errors"
	"sync/atomic"
)

var (
	ErrNoChunk     = errors.New("dma: no completed chunk available")
	ErrBadGeometry = errors.New("dma: chunk count must be a power of two >= 2")
)

// Ring is the ping-pong arena for one channel: a fixed byte array split
// into a power-of-two number of chunks. It is a single-producer,
// single-consumer ring of chunk indices. The completion interrupt is the
// producer and only touches reload and the atomic counters; the main loop
// is the consumer and only touches read.
type Ring struct {
	arena      []byte
	chunkBytes int
	mask       uint32

	// ISR side: index of the chunk the DMA will enter after the current one.
	reload uint32

	// Consumer side: next chunk to hand out.
	read uint32

	available atomic.Int32
	overrun   atomic.Bool
	completed atomic.Uint32
}

// NewRing allocates chunks*chunkBytes bytes.
func NewRing(chunks, chunkBytes int) (*Ring, error) {
	if chunks < 2 || chunks&(chunks-1) != 0 || chunkBytes <= 0 {
		return nil, ErrBadGeometry
	}
	r := &Ring{
		arena:      make([]byte, chunks*chunkBytes),
		chunkBytes: chunkBytes,
		mask:       uint32(chunks - 1),
	}
	r.Reset()
	return r, nil
}

// Len is the number of chunks, N.
func (r *Ring) Len() int {
	return int(r.mask) + 1
}

// ChunkBytes is the size of one chunk.
func (r *Ring) ChunkBytes() int {
	return r.chunkBytes
}

// Chunk returns the i-th chunk of the arena.
func (r *Ring) Chunk(i int) []byte {
	off := (uint32(i) & r.mask) * uint32(r.chunkBytes)
	return r.arena[off : off+uint32(r.chunkBytes) : off+uint32(r.chunkBytes)]
}

// Reset rewinds both cursors for a fresh transfer: the DMA starts in
// chunk 0 with chunk 1 as its reload target. The channel must be stopped.
func (r *Ring) Reset() {
	r.reload = 1
	r.read = 0
	r.available.Store(0)
	r.overrun.Store(false)
	r.completed.Store(0)
}

// Complete is the interrupt-side bookkeeping for one finished chunk. It
// returns the destination the DMA should reload into after the chunk it
// has just started.
func (r *Ring) Complete() []byte {
	r.reload = (r.reload + 1) & r.mask
	next := r.Chunk(int(r.reload))
	if r.available.Add(1) > int32(r.mask)+1 {
		r.overrun.Store(true)
	}
	r.completed.Add(1)
	return next
}

// Available is the number of completed chunks not yet consumed.
func (r *Ring) Available() int {
	return int(r.available.Load())
}

// Consume hands out the oldest completed chunk. The slice stays valid
// only until the DMA wraps around to it again; treat it as read-only.
func (r *Ring) Consume() ([]byte, error) {
	if r.available.Load() <= 0 {
		return nil, ErrNoChunk
	}
	chunk := r.Chunk(int(r.read))
	r.read = (r.read + 1) & r.mask
	r.available.Add(-1)
	return chunk, nil
}

// Overrun reports whether the producer lapped the consumer.
func (r *Ring) Overrun() bool {
	return r.overrun.Load()
}

// ClearOverrun drops the overrun flag.
func (r *Ring) ClearOverrun() {
	r.overrun.Store(false)
}

// Completed is the number of chunks finished since Reset.
func (r *Ring) Completed() uint32 {
	return r.completed.Load()
}
