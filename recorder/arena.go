package recorder

import (
	"errors"
	"sync/atomic"
	"unsafe"

	"magpie/audio"
)

var ErrArenaBusy = errors.New("recorder: arena claimed by another owner")

// Owner tags who holds the arena: a pipeline variant and the channel it
// is working on.
type Owner int32

// NoOwner marks a free arena.
const NoOwner Owner = -1

// OwnerOf builds the tag for pipeline p working on ch.
func OwnerOf(p Pipeline, ch audio.Channel) Owner {
	return Owner(int32(p)<<1 | int32(ch))
}

// Pipeline returns the variant part of the tag.
func (o Owner) Pipeline() Pipeline {
	return Pipeline(o >> 1)
}

// Arena is the processing memory reused across sessions and channels.
// One word-aligned pool backs both views: the head reserved by the plan
// holds each decimated channel's 32-bit workspace and the rest is the
// byte region chunks are packed into. Reconfiguring is refused while a
// session has it claimed.
type Arena struct {
	words []audio.Sample32
	pool  []byte // words viewed as bytes
	work  [audio.NumChannels][]audio.Sample32
	pack  []byte
	owner atomic.Int32
}

// NewArena allocates for chunks of chunkSamples samples.
func NewArena(chunkSamples int) *Arena {
	words := make([]audio.Sample32, PoolBytes(chunkSamples)/audio.Sample32Bytes)
	a := &Arena{
		words: words,
		pool:  unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(words))), len(words)*audio.Sample32Bytes),
	}
	a.owner.Store(int32(NoOwner))
	return a
}

// Configure lays out p's regions. Channel workspaces are carved from the
// first p.ReserveBytes of the pool in channel order and the packing region
// follows, so a pack holds exactly p.ChunksPerPack chunks. Channels the
// reservation does not cover get no workspace.
func (a *Arena) Configure(p Plan) error {
	if a.Owner() != NoOwner {
		return ErrArenaBusy
	}
	if p.PoolBytes > len(a.pool) || p.ReserveBytes%audio.Sample32Bytes != 0 {
		return ErrBadChunk
	}
	reserve := a.words[:p.ReserveBytes/audio.Sample32Bytes]
	for ch := range a.work {
		lo, hi := ch*p.ChunkSamples, (ch+1)*p.ChunkSamples
		if hi > len(reserve) {
			a.work[ch] = nil
			continue
		}
		a.work[ch] = reserve[lo:hi:hi]
	}
	a.pack = a.pool[p.ReserveBytes : p.ReserveBytes+p.PackBytes()]
	return nil
}

// Claim takes the arena for o.
func (a *Arena) Claim(o Owner) error {
	if !a.owner.CompareAndSwap(int32(NoOwner), int32(o)) {
		return ErrArenaBusy
	}
	return nil
}

// Release frees the arena if o holds it.
func (a *Arena) Release(o Owner) {
	a.owner.CompareAndSwap(int32(o), int32(NoOwner))
}

// Owner returns the current holder.
func (a *Arena) Owner() Owner {
	return Owner(a.owner.Load())
}

// Work is ch's 32-bit workspace inside the reserved head of the pool,
// or nil if the last Configure reserved none for ch.
func (a *Arena) Work(ch audio.Channel) []audio.Sample32 {
	return a.work[ch]
}

// Pack is the packing region laid out by the last Configure.
func (a *Arena) Pack() []byte {
	return a.pack
}
