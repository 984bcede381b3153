// Package lock implements the MCS distributed lock (spec.md §4.6,
// component L): a fair, scalable mutual-exclusion lock over symmetric
// memory built from one compare-and-swap on a shared tail pointer plus
// a per-PE queue node, so contending PEs spin on their own cache line
// instead of a single hot word.
package lock

import (
	"context"
	"encoding/binary"

	pgascontext "github.com/jabolina/go-pgas/pkg/pgas/context"
	"github.com/jabolina/go-pgas/pkg/pgas/transport"
	"github.com/jabolina/go-pgas/pkg/pgas/types"
)

// noPE encodes "no predecessor/successor" in the wire format: a PE id
// is stored as id+1 so 0 is free to mean "none".
const noPE = 0

// Handle is an MCS lock instance: a tail pointer living at a single
// owner PE, and a per-PE queue node (locked flag + next pointer) at
// the same symmetric offset on every PE.
type Handle struct {
	ctx         *pgascontext.Context
	tail        uintptr
	coordinator types.PE
	qnodeLocked uintptr
	qnodeNext   uintptr
}

// ownerPE picks the PE that holds the canonical tail word for a lock
// at addr: (addr>>3) mod n when addr is 8-byte aligned, else the
// fixed fallback PE n-1.
func ownerPE(addr uintptr, n int) types.PE {
	if n <= 0 {
		return 0
	}
	if addr%8 == 0 {
		return types.PE((addr >> 3) % uintptr(n))
	}
	return types.PE(n - 1)
}

// New builds a lock handle. tail must name a symmetric int64 word,
// initialized to 0 (unlocked, no tail) before any PE calls Acquire,
// on every PE; n is the size of the PE group sharing this lock, used
// to derive the owner PE from tail's address. qnodeLocked and
// qnodeNext must each name a symmetric int64 word present at the same
// offset on every PE.
func New(ctx *pgascontext.Context, tail uintptr, n int, qnodeLocked, qnodeNext uintptr) *Handle {
	return &Handle{ctx: ctx, tail: tail, coordinator: ownerPE(tail, n), qnodeLocked: qnodeLocked, qnodeNext: qnodeNext}
}

func readI64(ctx context.Context, c *pgascontext.Context, addr uintptr, pe types.PE) (int64, *types.Fault) {
	buf := make([]byte, 8)
	if fault := c.Get(ctx, buf, addr, pe); fault != nil {
		return 0, fault
	}
	return int64(binary.LittleEndian.Uint64(buf)), nil
}

func writeI64(ctx context.Context, c *pgascontext.Context, addr uintptr, pe types.PE, val int64) *types.Fault {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(val))
	return c.Put(ctx, addr, buf, pe)
}

// Acquire blocks until self holds the lock.
func (h *Handle) Acquire(ctx context.Context, self types.PE) *types.Fault {
	if fault := writeI64(ctx, h.ctx, h.qnodeNext, self, noPE); fault != nil {
		return fault
	}
	if fault := writeI64(ctx, h.ctx, h.qnodeLocked, self, 1); fault != nil {
		return fault
	}

	prior, fault := h.ctx.Atomic(ctx, transport.AtomicSwap, h.tail, uint64(self+1), 0, h.coordinator)
	if fault != nil {
		return fault
	}
	if prior == noPE {
		// No predecessor: the lock was free, we now own it.
		return nil
	}

	predecessor := types.PE(prior - 1)
	if fault := writeI64(ctx, h.ctx, h.qnodeNext, predecessor, int64(self)+1); fault != nil {
		return fault
	}
	for {
		v, fault := readI64(ctx, h.ctx, h.qnodeLocked, self)
		if fault != nil {
			return fault
		}
		if v == 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return types.NewFaultf(types.TransportFailure, "lock", "acquire cancelled: %v", err)
		}
		h.ctx.Transport().Progress()
	}
}

// TryAcquire is test_lock: the request phase only. It attempts the
// tail compare-and-swap exactly once and returns immediately, never
// enqueuing and never spinning. ok is true if self now holds the
// lock.
func (h *Handle) TryAcquire(ctx context.Context, self types.PE) (ok bool, fault *types.Fault) {
	if fault := writeI64(ctx, h.ctx, h.qnodeNext, self, noPE); fault != nil {
		return false, fault
	}
	if fault := writeI64(ctx, h.ctx, h.qnodeLocked, self, 1); fault != nil {
		return false, fault
	}
	prior, fault := h.ctx.Atomic(ctx, transport.AtomicCompareSwap, h.tail, uint64(self)+1, 0, h.coordinator)
	if fault != nil {
		return false, fault
	}
	if prior != 0 {
		return false, nil
	}
	return true, nil
}

// Release gives the lock up. self must currently hold it.
func (h *Handle) Release(ctx context.Context, self types.PE) *types.Fault {
	next, fault := readI64(ctx, h.ctx, h.qnodeNext, self)
	if fault != nil {
		return fault
	}
	if next == noPE {
		prior, fault := h.ctx.Atomic(ctx, transport.AtomicCompareSwap, h.tail, 0, uint64(self)+1, h.coordinator)
		if fault != nil {
			return fault
		}
		if prior == uint64(self)+1 {
			// No one arrived while we checked; tail reset, done.
			return nil
		}
		// A successor is mid-enqueue: wait for its next pointer to land.
		for {
			next, fault = readI64(ctx, h.ctx, h.qnodeNext, self)
			if fault != nil {
				return fault
			}
			if next != noPE {
				break
			}
			if err := ctx.Err(); err != nil {
				return types.NewFaultf(types.TransportFailure, "lock", "release cancelled: %v", err)
			}
			h.ctx.Transport().Progress()
		}
	}

	successor := types.PE(next - 1)
	return writeI64(ctx, h.ctx, h.qnodeLocked, successor, 0)
}
