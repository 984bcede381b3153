// Package transport defines the one-sided transport capability
// (spec.md §1, component A): put/get/atomics, fence, quiet, progress,
// endpoints and remote keys. spec.md treats the wire transport as an
// opaque, out-of-scope capability; this package gives that capability
// a concrete shape plus two implementations so the rest of the core
// is actually runnable: ReltTransport (grounded in the teacher's
// core/transport.go, layering a request/reply protocol over
// github.com/jabolina/relt reliable broadcast groups) and LoopTransport
// (an in-process loopback used by tests and single-process PE sets,
// grounded in the teacher's test/testing.go harness).
package transport

import (
	"context"
	"time"

	"github.com/jabolina/go-pgas/pkg/pgas/types"
)

// AtomicOp enumerates the atomic memory operations from spec.md §4.2.
// Fetch-returning variants report the prior value; non-fetch variants
// return 0 but still observe Compare for compare_swap.
type AtomicOp int

const (
	AtomicAdd AtomicOp = iota
	AtomicFetchAdd
	AtomicInc
	AtomicFetchInc
	AtomicCompareSwap
	AtomicSet
	AtomicFetch
	AtomicSwap
	AtomicAnd
	AtomicFetchAnd
	AtomicOr
	AtomicFetchOr
	AtomicXor
	AtomicFetchXor
)

// Fetching reports whether op returns the prior/observed value.
func (op AtomicOp) Fetching() bool {
	switch op {
	case AtomicFetchAdd, AtomicFetchInc, AtomicCompareSwap, AtomicFetch, AtomicSwap,
		AtomicFetchAnd, AtomicFetchOr, AtomicFetchXor:
		return true
	default:
		return false
	}
}

// Transport is the one-sided capability the context layer (component
// D) drives. Every method targets an already-translated remote
// address (see memory.Map.Translate) plus the remote key for that
// region on that PE.
type Transport interface {
	// Put writes src into the region at raddr on pe and blocks until
	// the local buffer can be reused (spec.md §4.2, "put").
	Put(ctx context.Context, pe types.PE, raddr uintptr, rkey types.RemoteKey, src []byte) error
	// PutNbi is the non-blocking variant: it may return before the
	// local buffer is safe to reuse; Quiet or Fence must be used to
	// order against it.
	PutNbi(ctx context.Context, pe types.PE, raddr uintptr, rkey types.RemoteKey, src []byte) error
	// Get reads nbytes from raddr on pe into dst and blocks until the
	// data has arrived (spec.md §4.2, "get").
	Get(ctx context.Context, pe types.PE, dst []byte, raddr uintptr, rkey types.RemoteKey) error
	// GetNbi is the non-blocking variant.
	GetNbi(ctx context.Context, pe types.PE, dst []byte, raddr uintptr, rkey types.RemoteKey) error
	// PutSignal combines a put with a remote atomic write/increment on
	// a second address, eliminating a separate fence+atomic pair
	// (spec.md §4.5.2, "k-nomial-signal"; spec.md §6, "put_signal").
	PutSignal(ctx context.Context, pe types.PE, raddr uintptr, rkey types.RemoteKey, src []byte, sigAddr uintptr, sigRkey types.RemoteKey, sigVal uint64, sigAdd bool) error
	PutSignalNbi(ctx context.Context, pe types.PE, raddr uintptr, rkey types.RemoteKey, src []byte, sigAddr uintptr, sigRkey types.RemoteKey, sigVal uint64, sigAdd bool) error
	// Atomic executes op against addr on pe. operand is the value
	// (add amount, set value, swap value, bitwise operand); compare is
	// only consulted for AtomicCompareSwap.
	Atomic(ctx context.Context, pe types.PE, op AtomicOp, addr uintptr, rkey types.RemoteKey, operand, compare uint64) (prior uint64, err error)
	AtomicNbi(ctx context.Context, pe types.PE, op AtomicOp, addr uintptr, rkey types.RemoteKey, operand, compare uint64) error
	// Fence preserves program order: operations to the same target
	// issued after Fence returns are ordered after operations issued
	// before it, on this context/endpoint pair (spec.md §4.2).
	Fence(ctx context.Context, pe types.PE) error
	// Quiet blocks until all prior operations issued by this PE have
	// completed remotely (spec.md §4.2).
	Quiet(ctx context.Context) error
	// FenceTest and QuietTest are the non-blocking "satisfied?" probes.
	FenceTest(pe types.PE) bool
	QuietTest() bool
	// SessionStart/SessionStop bracket a burst of operations as a hint
	// to the transport (spec.md §4.2).
	SessionStart()
	SessionStop()
	// Progress pumps the transport's completion queue; every blocking
	// wait in the core must call this to guarantee forward movement
	// (spec.md §4.8).
	Progress()
	// Close releases the transport's resources.
	Close() error
}

// LocalStore is the byte-addressable backing store an incoming
// request is serviced against. The symmetric heap allocator itself is
// out of scope (spec.md §1); LocalStore is the minimal seam the
// transport needs to actually read/write/atomically-update local
// memory on behalf of a remote peer. Generalizes the teacher's
// types.Storage (Set/Get by key) to a byte-range store keyed by
// address.
type LocalStore interface {
	Read(addr uintptr, n int) []byte
	Write(addr uintptr, data []byte)
	// Atomic applies op at addr using width bytes (4 or 8) and returns
	// the prior value, atomically with respect to every other
	// LocalStore call.
	Atomic(addr uintptr, width int, op AtomicOp, operand, compare uint64) (prior uint64)
}

// defaultRequestTimeout bounds a single RMA round trip's wait for a
// reply before treating the transport as failed. Collective-level
// waits use Progress()-driven polling instead of this timeout; it only
// guards the request/reply exchange itself.
const defaultRequestTimeout = 5 * time.Second
