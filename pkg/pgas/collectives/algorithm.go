// Package collectives is the collectives registry (spec.md §4.4,
// component F): a per-class table of interchangeable named
// algorithms, populated at init from the barrier/broadcast/collect/
// alltoall/reduce subpackages (spec.md §4.5, components G-K). Each
// subpackage only depends on teams and context, never on this
// package, so registry.go is the single place that wires algorithm
// name to implementation.
package collectives

import (
	"context"
	"sync"

	"github.com/jabolina/go-pgas/pkg/pgas/teams"
	"github.com/jabolina/go-pgas/pkg/pgas/types"
)

// BarrierFunc synchronizes every member of team.
type BarrierFunc func(ctx context.Context, team *teams.Team) *types.Fault

// BroadcastFunc sends nbytes from srcSym on root to dstSym on every
// other member of team. srcSym and dstSym are symmetric addresses
// (spec.md §4.5.2): every member's caller supplies the same offset
// into its own slice of the symmetric heap.
type BroadcastFunc func(ctx context.Context, team *teams.Team, dstSym, srcSym uintptr, nbytes int, root int) *types.Fault

// CollectFunc gathers srcSym from every member into dstSym on every
// member, laid out contiguously in team-local rank order. sizes holds
// each member's contribution length in bytes (all equal for
// fcollect, arbitrary for collect).
type CollectFunc func(ctx context.Context, team *teams.Team, dstSym, srcSym uintptr, sizes []int) *types.Fault

// AllToAllFunc exchanges elemSize-byte blocks: srcSym holds one
// contiguous block per member (in team-local rank order), dstSym
// receives one block from each member in that same order.
type AllToAllFunc func(ctx context.Context, team *teams.Team, dstSym, srcSym uintptr, elemSize int) *types.Fault

// AllToAllSFunc is AllToAllFunc with strided source/destination
// layouts (spec.md §4.5's alltoalls); strides are in elemSize units.
type AllToAllSFunc func(ctx context.Context, team *teams.Team, dstSym, srcSym uintptr, elemSize, dstStride, srcStride int) *types.Fault

// ReduceFunc combines nelems elements of kind across team members via
// op, reading from srcSym and leaving the result in dstSym on every
// member.
type ReduceFunc func(ctx context.Context, team *teams.Team, dstSym, srcSym uintptr, nelems int, kind types.ElemKind, op types.ReductionOp) *types.Fault

// Registry is a per-class table of named algorithms. The zero value
// is not usable; build one with NewRegistry or use Default.
type Registry struct {
	mu sync.RWMutex

	barrier   map[string]BarrierFunc
	broadcast map[string]BroadcastFunc
	collect   map[string]CollectFunc
	alltoall  map[string]AllToAllFunc
	alltoalls map[string]AllToAllSFunc
	reduce    map[string]ReduceFunc

	defaults map[types.CollectiveClass]string
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		barrier:   map[string]BarrierFunc{},
		broadcast: map[string]BroadcastFunc{},
		collect:   map[string]CollectFunc{},
		alltoall:  map[string]AllToAllFunc{},
		alltoalls: map[string]AllToAllSFunc{},
		reduce:    map[string]ReduceFunc{},
		defaults:  map[types.CollectiveClass]string{},
	}
}

func (r *Registry) RegisterBarrier(name string, fn BarrierFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.barrier[name] = fn
}

func (r *Registry) RegisterBroadcast(name string, fn BroadcastFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcast[name] = fn
}

func (r *Registry) RegisterCollect(name string, fn CollectFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collect[name] = fn
}

func (r *Registry) RegisterAllToAll(name string, fn AllToAllFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alltoall[name] = fn
}

func (r *Registry) RegisterAllToAllS(name string, fn AllToAllSFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alltoalls[name] = fn
}

func (r *Registry) RegisterReduce(name string, fn ReduceFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reduce[name] = fn
}

// SetDefault names the algorithm used when a caller asks for "" in
// the given class.
func (r *Registry) SetDefault(class types.CollectiveClass, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaults[class] = name
}

func (r *Registry) resolve(class types.CollectiveClass, name string) string {
	if name != "" {
		return name
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaults[class]
}

func (r *Registry) Barrier(name string) (BarrierFunc, *types.Fault) {
	name = r.resolve(types.ClassBarrier, name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.barrier[name]
	if !ok {
		return nil, unsupported(types.ClassBarrier, name)
	}
	return fn, nil
}

func (r *Registry) Broadcast(name string) (BroadcastFunc, *types.Fault) {
	name = r.resolve(types.ClassBroadcast, name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.broadcast[name]
	if !ok {
		return nil, unsupported(types.ClassBroadcast, name)
	}
	return fn, nil
}

func (r *Registry) Collect(name string) (CollectFunc, *types.Fault) {
	name = r.resolve(types.ClassCollect, name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.collect[name]
	if !ok {
		return nil, unsupported(types.ClassCollect, name)
	}
	return fn, nil
}

func (r *Registry) AllToAll(name string) (AllToAllFunc, *types.Fault) {
	name = r.resolve(types.ClassAllToAll, name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.alltoall[name]
	if !ok {
		return nil, unsupported(types.ClassAllToAll, name)
	}
	return fn, nil
}

func (r *Registry) AllToAllS(name string) (AllToAllSFunc, *types.Fault) {
	name = r.resolve(types.ClassAllToAll, name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.alltoalls[name]
	if !ok {
		return nil, unsupported(types.ClassAllToAll, name)
	}
	return fn, nil
}

func (r *Registry) Reduce(name string) (ReduceFunc, *types.Fault) {
	name = r.resolve(types.ClassReduce, name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.reduce[name]
	if !ok {
		return nil, unsupported(types.ClassReduce, name)
	}
	return fn, nil
}

func unsupported(class types.CollectiveClass, name string) *types.Fault {
	return types.NewFaultf(types.AlgorithmUnsupported, "collectives", "no %s algorithm named %q", class, name)
}
