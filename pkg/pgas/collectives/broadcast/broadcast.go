// Package broadcast implements the broadcast algorithm family
// (spec.md §4.5.2, component H): distributing nbytes from a root's
// symmetric source to every other member's symmetric destination.
package broadcast

import (
	"context"

	"github.com/jabolina/go-pgas/pkg/pgas/collectives/pwait"
	"github.com/jabolina/go-pgas/pkg/pgas/teams"
	"github.com/jabolina/go-pgas/pkg/pgas/types"
)

const (
	Linear         = "linear"
	CompleteTree   = "tree"
	Binomial       = "binomial"
	KNomial        = "k-nomial"
	KNomialSignal  = "k-nomial-signal"
	ScatterCollect = "scatter-collect"
)

// DoLinear has root Put the full payload directly to every other
// member, then release each one via its own pSync slot.
func DoLinear(ctx context.Context, team *teams.Team, dstSym, srcSym uintptr, nbytes int, root int) *types.Fault {
	n := team.Size()
	if n <= 1 {
		return nil
	}
	self := team.Self()
	release := team.PSyncAddr(types.ClassBroadcast)

	if int(team.Rank()) == root {
		buf := make([]byte, nbytes)
		if fault := team.Context().Get(ctx, buf, srcSym, self); fault != nil {
			return fault
		}
		for j := 0; j < n; j++ {
			if j == root {
				continue
			}
			pe, _ := team.WorldPE(j)
			if fault := team.Context().Put(ctx, dstSym, buf, pe); fault != nil {
				return fault
			}
		}
		if fault := team.Context().Quiet(ctx); fault != nil {
			return fault
		}
		for j := 0; j < n; j++ {
			if j == root {
				continue
			}
			pe, _ := team.WorldPE(j)
			if fault := pwait.Write(ctx, team, pe, release, 1); fault != nil {
				return fault
			}
		}
		return nil
	}

	if fault := pwait.SpinUntilEqual(ctx, team, self, release, 1); fault != nil {
		return fault
	}
	return pwait.Write(ctx, team, self, release, 0)
}

// DoCompleteTree fans data out a binary tree rooted at root: each
// member waits for its own copy to land (via its parent's Put), then
// forwards it on to its up-to-two children.
func DoCompleteTree(ctx context.Context, team *teams.Team, dstSym, srcSym uintptr, nbytes int, root int) *types.Fault {
	n := team.Size()
	if n <= 1 {
		return nil
	}
	r := int(team.Rank())
	self := team.Self()
	release := team.PSyncAddr(types.ClassBroadcast)
	rel := (r - root + n) % n

	buf := make([]byte, nbytes)
	if rel == 0 {
		if fault := team.Context().Get(ctx, buf, srcSym, self); fault != nil {
			return fault
		}
	} else {
		if fault := pwait.SpinUntilEqual(ctx, team, self, release, 1); fault != nil {
			return fault
		}
		if fault := team.Context().Get(ctx, buf, dstSym, self); fault != nil {
			return fault
		}
		if fault := pwait.Write(ctx, team, self, release, 0); fault != nil {
			return fault
		}
	}

	send := func(childRel int) *types.Fault {
		if childRel >= n {
			return nil
		}
		childR := (childRel + root) % n
		pe, ok := team.WorldPE(childR)
		if !ok {
			return nil
		}
		if fault := team.Context().Put(ctx, dstSym, buf, pe); fault != nil {
			return fault
		}
		if fault := team.Context().Quiet(ctx); fault != nil {
			return fault
		}
		return pwait.Write(ctx, team, pe, release, 1)
	}
	if fault := send(2*rel + 1); fault != nil {
		return fault
	}
	return send(2*rel + 2)
}

// DoBinomial is the classic recursive-halving binomial broadcast: a
// member first waits on the lowest set bit of its relative rank to
// learn who its sender is, receives once, then forwards to
// rel+mask for every remaining power of two below that bit, so every
// member is reached after at most ceil(log2 n) hops.
func DoBinomial(ctx context.Context, team *teams.Team, dstSym, srcSym uintptr, nbytes int, root int) *types.Fault {
	n := team.Size()
	if n <= 1 {
		return nil
	}
	r := int(team.Rank())
	self := team.Self()
	release := team.PSyncAddr(types.ClassBroadcast)
	rel := (r - root + n) % n

	buf := make([]byte, nbytes)
	if rel == 0 {
		if fault := team.Context().Get(ctx, buf, srcSym, self); fault != nil {
			return fault
		}
	}

	mask := 1
	for mask < n {
		if rel&mask != 0 {
			if fault := pwait.SpinUntilEqual(ctx, team, self, release, 1); fault != nil {
				return fault
			}
			if fault := team.Context().Get(ctx, buf, dstSym, self); fault != nil {
				return fault
			}
			if fault := pwait.Write(ctx, team, self, release, 0); fault != nil {
				return fault
			}
			break
		}
		mask <<= 1
	}

	for mask >>= 1; mask > 0; mask >>= 1 {
		childRel := rel + mask
		if childRel >= n {
			continue
		}
		childR := (childRel + root) % n
		pe, ok := team.WorldPE(childR)
		if !ok {
			continue
		}
		if fault := team.Context().Put(ctx, dstSym, buf, pe); fault != nil {
			return fault
		}
		if fault := team.Context().Quiet(ctx); fault != nil {
			return fault
		}
		if fault := pwait.Write(ctx, team, pe, release, 1); fault != nil {
			return fault
		}
	}
	return nil
}

// DoKNomial is DoKNomialSignal's topology with a plain Put followed by
// a quiet and a separate poke, for transports where a combined
// put-signal primitive isn't worth the complexity.
func DoKNomial(k int) func(context.Context, *teams.Team, uintptr, uintptr, int, int) *types.Fault {
	if k < 2 {
		k = 2
	}
	return func(ctx context.Context, team *teams.Team, dstSym, srcSym uintptr, nbytes int, root int) *types.Fault {
		n := team.Size()
		if n <= 1 {
			return nil
		}
		r := int(team.Rank())
		self := team.Self()
		release := team.PSyncAddr(types.ClassBroadcast)
		rel := (r - root + n) % n

		buf := make([]byte, nbytes)
		if rel == 0 {
			if fault := team.Context().Get(ctx, buf, srcSym, self); fault != nil {
				return fault
			}
		} else {
			if fault := pwait.SpinUntilEqual(ctx, team, self, release, 1); fault != nil {
				return fault
			}
			if fault := team.Context().Get(ctx, buf, dstSym, self); fault != nil {
				return fault
			}
			if fault := pwait.Write(ctx, team, self, release, 0); fault != nil {
				return fault
			}
		}

		for c := 1; c <= k; c++ {
			child := rel*k + c
			if child >= n {
				break
			}
			childR := (child + root) % n
			pe, ok := team.WorldPE(childR)
			if !ok {
				continue
			}
			if fault := team.Context().Put(ctx, dstSym, buf, pe); fault != nil {
				return fault
			}
			if fault := team.Context().Quiet(ctx); fault != nil {
				return fault
			}
			if fault := pwait.Write(ctx, team, pe, release, 1); fault != nil {
				return fault
			}
		}
		return nil
	}
}

// DoKNomialSignal is DoCompleteTree generalized to a radix-k tree,
// using PutSignal so each hop's data write and arrival flag land in
// one wire round trip instead of two.
func DoKNomialSignal(k int) func(context.Context, *teams.Team, uintptr, uintptr, int, int) *types.Fault {
	if k < 2 {
		k = 2
	}
	return func(ctx context.Context, team *teams.Team, dstSym, srcSym uintptr, nbytes int, root int) *types.Fault {
		n := team.Size()
		if n <= 1 {
			return nil
		}
		r := int(team.Rank())
		self := team.Self()
		release := team.PSyncAddr(types.ClassBroadcast)
		rel := (r - root + n) % n

		buf := make([]byte, nbytes)
		if rel == 0 {
			if fault := team.Context().Get(ctx, buf, srcSym, self); fault != nil {
				return fault
			}
		} else {
			if fault := pwait.SpinUntilEqual(ctx, team, self, release, 1); fault != nil {
				return fault
			}
			if fault := team.Context().Get(ctx, buf, dstSym, self); fault != nil {
				return fault
			}
			if fault := pwait.Write(ctx, team, self, release, 0); fault != nil {
				return fault
			}
		}

		for c := 1; c <= k; c++ {
			child := rel*k + c
			if child >= n {
				break
			}
			childR := (child + root) % n
			pe, ok := team.WorldPE(childR)
			if !ok {
				continue
			}
			if fault := team.Context().PutSignal(ctx, dstSym, buf, release, 1, false, pe); fault != nil {
				return fault
			}
		}
		return nil
	}
}

func chunkRange(idx, n, nbytes, chunk int) (int, int) {
	lo := idx * chunk
	if lo > nbytes {
		lo = nbytes
	}
	hi := lo + chunk
	if hi > nbytes {
		hi = nbytes
	}
	return lo, hi
}

// DoScatterCollect splits the payload into n roughly-equal chunks,
// has root scatter one chunk directly to each member, then runs a
// ring all-gather so every member ends up with the full payload —
// the scatter-then-allgather shape used for large broadcasts where a
// single root fanning out the whole payload would saturate its
// outbound bandwidth.
func DoScatterCollect(ctx context.Context, team *teams.Team, dstSym, srcSym uintptr, nbytes int, root int) *types.Fault {
	n := team.Size()
	if n <= 1 {
		return nil
	}
	r := int(team.Rank())
	self := team.Self()
	base := team.PSyncAddr(types.ClassBroadcast)
	chunk := (nbytes + n - 1) / n
	rel := (r - root + n) % n

	if rel == 0 {
		full := make([]byte, nbytes)
		if fault := team.Context().Get(ctx, full, srcSym, self); fault != nil {
			return fault
		}
		for j := 0; j < n; j++ {
			lo, hi := chunkRange(j, n, nbytes, chunk)
			if lo >= hi {
				continue
			}
			pe, _ := team.WorldPE((j + root) % n)
			if fault := team.Context().Put(ctx, dstSym+uintptr(lo), full[lo:hi], pe); fault != nil {
				return fault
			}
		}
		if fault := team.Context().Quiet(ctx); fault != nil {
			return fault
		}
		for j := 0; j < n; j++ {
			if j == 0 {
				continue
			}
			pe, _ := team.WorldPE((j + root) % n)
			if fault := pwait.Write(ctx, team, pe, base, 1); fault != nil {
				return fault
			}
		}
	} else {
		if fault := pwait.SpinUntilEqual(ctx, team, self, base, 1); fault != nil {
			return fault
		}
		if fault := pwait.Write(ctx, team, self, base, 0); fault != nil {
			return fault
		}
	}

	have := rel
	for step := 1; step < n; step++ {
		lo, hi := chunkRange(have, n, nbytes, chunk)
		nextRel := (rel + 1) % n
		nextPE, _ := team.WorldPE((nextRel + root) % n)
		slot := base + uintptr(step%8)*8

		if hi > lo {
			buf := make([]byte, hi-lo)
			if fault := team.Context().Get(ctx, buf, dstSym+uintptr(lo), self); fault != nil {
				return fault
			}
			if fault := team.Context().Put(ctx, dstSym+uintptr(lo), buf, nextPE); fault != nil {
				return fault
			}
			if fault := team.Context().Quiet(ctx); fault != nil {
				return fault
			}
		}
		if fault := pwait.Write(ctx, team, nextPE, slot, int64(step)); fault != nil {
			return fault
		}
		if fault := pwait.SpinUntilEqual(ctx, team, self, slot, int64(step)); fault != nil {
			return fault
		}
		if fault := pwait.Write(ctx, team, self, slot, 0); fault != nil {
			return fault
		}
		have = (have - 1 + n) % n
	}
	return nil
}
