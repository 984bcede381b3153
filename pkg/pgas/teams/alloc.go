package teams

import (
	"sync/atomic"

	"github.com/jabolina/go-pgas/pkg/pgas/types"
)

// Allocator hands out symmetric address ranges for team pSync pools.
// Team (re)creation in a PGAS runtime is a collective operation: every
// member calls split/create in the same program order, so an
// allocator advancing a simple monotonic counter by the same amount
// on every PE naturally produces the same logical address on every
// PE without any coordination round trip — the "symmetric heap" for
// pSyncs is just a convention every PE's program text already
// upholds. Region ids are allocated the same way, newest-last to
// match memory.Map's high-to-low scan order.
type Allocator struct {
	addr   uint64
	region int64
}

// NewAllocator starts symmetric allocation above base, leaving room
// below it for the globals/text region.
func NewAllocator(base uintptr) *Allocator {
	return &Allocator{addr: uint64(base), region: int64(types.GlobalRegion) + 1}
}

// Alloc reserves n bytes and returns their base address.
func (a *Allocator) Alloc(n int) uintptr {
	base := atomic.AddUint64(&a.addr, uint64(n)) - uint64(n)
	return uintptr(base)
}

// NextRegion reserves the next region id.
func (a *Allocator) NextRegion() types.RegionID {
	id := atomic.AddInt64(&a.region, 1) - 1
	return types.RegionID(id)
}
