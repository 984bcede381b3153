package pgas

import (
	"context"

	"github.com/jabolina/go-pgas/pkg/pgas/collectives/reduce"
	"github.com/jabolina/go-pgas/pkg/pgas/lock"
	"github.com/jabolina/go-pgas/pkg/pgas/ptp"
	"github.com/jabolina/go-pgas/pkg/pgas/teams"
	"github.com/jabolina/go-pgas/pkg/pgas/types"
)

// Barrier synchronizes every member of team using the named algorithm
// (empty string picks the class default), per spec.md §4.5.1.
func (rt *Runtime) Barrier(ctx context.Context, team *teams.Team, algorithm string) *types.Fault {
	fn, fault := rt.registry.Barrier(algorithm)
	if fault != nil {
		return fault
	}
	return rt.Guard(fn(ctx, team))
}

// BarrierAll is Barrier over the world team.
func (rt *Runtime) BarrierAll(ctx context.Context, algorithm string) *types.Fault {
	return rt.Barrier(ctx, rt.world, algorithm)
}

// Broadcast sends nbytes from srcSym on root to dstSym on every member
// of team (spec.md §4.5.2); root's own dstSym gets a local copy of its
// srcSym once the algorithm has run.
func (rt *Runtime) Broadcast(ctx context.Context, team *teams.Team, dstSym, srcSym uintptr, nbytes, root int, algorithm string) *types.Fault {
	fn, fault := rt.registry.Broadcast(algorithm)
	if fault != nil {
		return fault
	}
	if fault := fn(ctx, team, dstSym, srcSym, nbytes, root); fault != nil {
		return fault
	}
	if int(team.Rank()) != root {
		return nil
	}
	buf := make([]byte, nbytes)
	if fault := team.Context().Get(ctx, buf, srcSym, team.Self()); fault != nil {
		return fault
	}
	return team.Context().Put(ctx, dstSym, buf, team.Self())
}

// Collect gathers each member's srcSym contribution (lengths given by
// sizes, in team-local rank order) into dstSym on every member
// (spec.md §4.5.3).
func (rt *Runtime) Collect(ctx context.Context, team *teams.Team, dstSym, srcSym uintptr, sizes []int, algorithm string) *types.Fault {
	fn, fault := rt.registry.Collect(algorithm)
	if fault != nil {
		return fault
	}
	return fn(ctx, team, dstSym, srcSym, sizes)
}

// FCollect is Collect with every member contributing the same length,
// spec.md §4.5.3's fcollect.
func (rt *Runtime) FCollect(ctx context.Context, team *teams.Team, dstSym, srcSym uintptr, elemBytes int, algorithm string) *types.Fault {
	sizes := make([]int, team.Size())
	for i := range sizes {
		sizes[i] = elemBytes
	}
	return rt.Collect(ctx, team, dstSym, srcSym, sizes, algorithm)
}

// AllToAll exchanges one elemSize-byte block per member (spec.md
// §4.5.4).
func (rt *Runtime) AllToAll(ctx context.Context, team *teams.Team, dstSym, srcSym uintptr, elemSize int, algorithm string) *types.Fault {
	fn, fault := rt.registry.AllToAll(algorithm)
	if fault != nil {
		return fault
	}
	return fn(ctx, team, dstSym, srcSym, elemSize)
}

// AllToAllS is AllToAll with strided source/destination layouts.
func (rt *Runtime) AllToAllS(ctx context.Context, team *teams.Team, dstSym, srcSym uintptr, elemSize, dstStride, srcStride int, algorithm string) *types.Fault {
	fn, fault := rt.registry.AllToAllS(algorithm)
	if fault != nil {
		return fault
	}
	return fn(ctx, team, dstSym, srcSym, elemSize, dstStride, srcStride)
}

// Reduce combines nelems elements of kind across team via op (spec.md
// §4.5.5).
func (rt *Runtime) Reduce(ctx context.Context, team *teams.Team, dstSym, srcSym uintptr, nelems int, kind types.ElemKind, op types.ReductionOp, algorithm string) *types.Fault {
	if !reduce.ValidOp(kind, op) {
		return rt.Guard(types.NewFaultf(types.AlgorithmUnsupported, "reduce", "op %s is not defined over kind %d", op, kind))
	}
	fn, fault := rt.registry.Reduce(algorithm)
	if fault != nil {
		return fault
	}
	return rt.Guard(fn(ctx, team, dstSym, srcSym, nelems, kind, op))
}

// Lock builds an MCS lock handle over team's default context, per
// spec.md §4.6. tail must name a symmetric word, initialized to 0
// before any PE calls Acquire; qnodeLocked/qnodeNext must each name a
// symmetric word present at the same offset on every member. The
// owner PE that holds tail's canonical state is derived from tail's
// address and team's size, never supplied by the caller.
func (rt *Runtime) Lock(team *teams.Team, tail uintptr, qnodeLocked, qnodeNext uintptr) *lock.Handle {
	return lock.New(team.Context(), tail, team.Size(), qnodeLocked, qnodeNext)
}

// TryLock is set_lock's non-blocking sibling, test_lock (spec.md
// §4.6): it attempts to acquire h once and returns immediately
// instead of spinning.
func (rt *Runtime) TryLock(ctx context.Context, h *lock.Handle) (bool, *types.Fault) {
	return h.TryAcquire(ctx, rt.MyPE())
}

// Test is the point-to-point non-blocking completion check (spec.md
// §4.7).
func (rt *Runtime) Test(ctx context.Context, addr uintptr, cmp types.CompareOp, value int64) (bool, *types.Fault) {
	return ptp.Test(ctx, rt.world.Context(), rt.MyPE(), addr, cmp, value)
}

// WaitUntil blocks until the value at addr satisfies cmp against
// value.
func (rt *Runtime) WaitUntil(ctx context.Context, addr uintptr, cmp types.CompareOp, value int64) *types.Fault {
	return ptp.WaitUntil(ctx, rt.world.Context(), rt.MyPE(), addr, cmp, value)
}

// WaitUntilAny blocks until at least one of conds holds, returning its
// index.
func (rt *Runtime) WaitUntilAny(ctx context.Context, conds []ptp.Condition) (int, *types.Fault) {
	return ptp.WaitUntilAny(ctx, rt.world.Context(), rt.MyPE(), conds)
}

// WaitUntilAll blocks until every condition in conds holds.
func (rt *Runtime) WaitUntilAll(ctx context.Context, conds []ptp.Condition) *types.Fault {
	return ptp.WaitUntilAll(ctx, rt.world.Context(), rt.MyPE(), conds)
}

// SignalWaitUntil blocks until the signal word at sig satisfies cmp
// against value and returns the observed value, spec.md §4.7's
// signal_wait_until.
func (rt *Runtime) SignalWaitUntil(ctx context.Context, sig uintptr, cmp types.CompareOp, value int64) (int64, *types.Fault) {
	return ptp.SignalWaitUntil(ctx, rt.world.Context(), rt.MyPE(), sig, cmp, value)
}
