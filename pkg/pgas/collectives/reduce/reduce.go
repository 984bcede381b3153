// Package reduce implements the reduction algorithm family (spec.md
// §4.5.5, component K): combining nelems elements of a given kind
// across every team member via op, leaving the result in every
// member's destination buffer.
package reduce

import (
	"context"

	"github.com/jabolina/go-pgas/pkg/pgas/collectives/pwait"
	"github.com/jabolina/go-pgas/pkg/pgas/teams"
	"github.com/jabolina/go-pgas/pkg/pgas/types"
)

const (
	Linear            = "linear"
	Binomial          = "binomial"
	RecursiveDoubling = "recursive-doubling"
	Rabenseifner      = "rabenseifner"
)

// ValidOp reports whether op is defined over kind, per spec.md
// §4.5.5's type×op validity table: and/or/xor only apply to integer
// kinds, min/max don't apply to complex kinds.
func ValidOp(kind types.ElemKind, op types.ReductionOp) bool {
	switch op {
	case types.OpAnd, types.OpOr, types.OpXor:
		return kind.BitwiseCapable()
	case types.OpMin, types.OpMax:
		return kind.OrderCapable()
	default:
		return true
	}
}

func combineBuffers(kind types.ElemKind, op types.ReductionOp, nelems int, dst, src []byte) []byte {
	w := Width(kind)
	out := make([]byte, nelems*w)
	for i := 0; i < nelems; i++ {
		copy(out[i*w:(i+1)*w], Combine(kind, op, dst[i*w:(i+1)*w], src[i*w:(i+1)*w]))
	}
	return out
}

// DoLinear has root pull each non-root member's contribution straight
// from that member's own srcSym (avoiding a shared landing buffer
// multiple senders would race on), fold it into a running
// accumulator, then push the final result back out to everyone.
func DoLinear(ctx context.Context, team *teams.Team, dstSym, srcSym uintptr, nelems int, kind types.ElemKind, op types.ReductionOp) *types.Fault {
	n := team.Size()
	w := Width(kind)
	self := team.Self()
	release := team.PSyncAddr(types.ClassReduce)

	acc := make([]byte, nelems*w)
	if fault := team.Context().Get(ctx, acc, srcSym, self); fault != nil {
		return fault
	}

	if team.Rank() == 0 {
		for j := 1; j < n; j++ {
			pe, _ := team.WorldPE(j)
			contrib := make([]byte, nelems*w)
			if fault := team.Context().Get(ctx, contrib, srcSym, pe); fault != nil {
				return fault
			}
			acc = combineBuffers(kind, op, nelems, acc, contrib)
		}
		for j := 1; j < n; j++ {
			pe, _ := team.WorldPE(j)
			if fault := team.Context().Put(ctx, dstSym, acc, pe); fault != nil {
				return fault
			}
		}
		if fault := team.Context().Quiet(ctx); fault != nil {
			return fault
		}
		for j := 1; j < n; j++ {
			pe, _ := team.WorldPE(j)
			if fault := pwait.Write(ctx, team, pe, release, 1); fault != nil {
				return fault
			}
		}
		return team.Context().Put(ctx, dstSym, acc, self)
	}

	if fault := pwait.SpinUntilEqual(ctx, team, self, release, 1); fault != nil {
		return fault
	}
	return pwait.Write(ctx, team, self, release, 0)
}

// DoBinomial folds contributions up a binomial tree to rank 0 (each
// internal node combining its own accumulator with every arriving
// child before forwarding to its parent), then broadcasts the final
// result back down the same tree.
func DoBinomial(ctx context.Context, team *teams.Team, dstSym, srcSym uintptr, nelems int, kind types.ElemKind, op types.ReductionOp) *types.Fault {
	n := team.Size()
	w := Width(kind)
	r := int(team.Rank())
	self := team.Self()
	base := team.PSyncAddr(types.ClassReduce)

	acc := make([]byte, nelems*w)
	if fault := team.Context().Get(ctx, acc, srcSym, self); fault != nil {
		return fault
	}

	for d := 1; d < n; d <<= 1 {
		child := r + d
		if child >= n || r%(2*d) != 0 {
			continue
		}
		slot := base + uintptr(d%8)*8
		if fault := pwait.SpinUntilEqual(ctx, team, self, slot, int64(d)); fault != nil {
			return fault
		}
		childPE, _ := team.WorldPE(child)
		contrib := make([]byte, nelems*w)
		if fault := team.Context().Get(ctx, contrib, dstSym, childPE); fault != nil {
			return fault
		}
		acc = combineBuffers(kind, op, nelems, acc, contrib)
		if fault := pwait.Write(ctx, team, self, slot, 0); fault != nil {
			return fault
		}
	}

	if r != 0 {
		parentDist := r & -r
		parent := r - parentDist
		parentPE, _ := team.WorldPE(parent)
		if fault := team.Context().Put(ctx, dstSym, acc, self); fault != nil {
			return fault
		}
		if fault := team.Context().Quiet(ctx); fault != nil {
			return fault
		}
		slot := base + uintptr(parentDist%8)*8
		if fault := pwait.Write(ctx, team, parentPE, slot, int64(parentDist)); fault != nil {
			return fault
		}
	}

	// broadcast final result back down the same tree
	release := base + uintptr(8)*8
	if r == 0 {
		if fault := team.Context().Put(ctx, dstSym, acc, self); fault != nil {
			return fault
		}
	} else {
		if fault := pwait.SpinUntilEqual(ctx, team, self, release, 1); fault != nil {
			return fault
		}
		if fault := pwait.Write(ctx, team, self, release, 0); fault != nil {
			return fault
		}
	}
	for d := 1; d < n; d <<= 1 {
		child := r + d
		if child >= n || r%(2*d) != 0 {
			continue
		}
		childPE, _ := team.WorldPE(child)
		result := acc
		if r != 0 {
			result = make([]byte, nelems*w)
			if fault := team.Context().Get(ctx, result, dstSym, self); fault != nil {
				return fault
			}
		}
		if fault := team.Context().Put(ctx, dstSym, result, childPE); fault != nil {
			return fault
		}
		if fault := team.Context().Quiet(ctx); fault != nil {
			return fault
		}
		if fault := pwait.Write(ctx, team, childPE, release, 1); fault != nil {
			return fault
		}
	}
	return nil
}

// DoRecursiveDoubling runs a dimension-exchange allreduce: at each of
// ceil(log2 n) steps every member combines its accumulator with its
// XOR-d partner's, so every member converges on the full result
// without a distinct broadcast phase. Exact when n is a power of two;
// members with no valid partner at a given distance simply skip that
// round; ranks outside [0,n) are the caller's responsibility to avoid
// by sizing teams to powers of two when precise behavior matters.
func DoRecursiveDoubling(ctx context.Context, team *teams.Team, dstSym, srcSym uintptr, nelems int, kind types.ElemKind, op types.ReductionOp) *types.Fault {
	n := team.Size()
	w := Width(kind)
	r := int(team.Rank())
	self := team.Self()
	base := team.PSyncAddr(types.ClassReduce)

	acc := make([]byte, nelems*w)
	if fault := team.Context().Get(ctx, acc, srcSym, self); fault != nil {
		return fault
	}
	if fault := team.Context().Put(ctx, dstSym, acc, self); fault != nil {
		return fault
	}

	for d := 1; d < n; d <<= 1 {
		partner := r ^ d
		if partner >= n {
			continue
		}
		partnerPE, _ := team.WorldPE(partner)
		if fault := team.Context().Put(ctx, dstSym, acc, partnerPE); fault != nil {
			return fault
		}
		if fault := team.Context().Quiet(ctx); fault != nil {
			return fault
		}
		slot := base + uintptr(bitlen(d)%8)*8
		if fault := pwait.Write(ctx, team, partnerPE, slot, int64(d)); fault != nil {
			return fault
		}
		if fault := pwait.SpinUntilEqual(ctx, team, self, slot, int64(d)); fault != nil {
			return fault
		}
		contrib := make([]byte, nelems*w)
		if fault := team.Context().Get(ctx, contrib, dstSym, self); fault != nil {
			return fault
		}
		acc = combineBuffers(kind, op, nelems, acc, contrib)
		if fault := team.Context().Put(ctx, dstSym, acc, self); fault != nil {
			return fault
		}
		if fault := pwait.Write(ctx, team, self, slot, 0); fault != nil {
			return fault
		}
	}
	return nil
}

func bitlen(x int) int {
	n := 0
	for x > 0 {
		n++
		x >>= 1
	}
	return n
}

func chunkRange(idx, n, total int) (int, int) {
	chunk := (total + n - 1) / n
	lo := idx * chunk
	if lo > total {
		lo = total
	}
	hi := lo + chunk
	if hi > total {
		hi = total
	}
	return lo, hi
}

// DoRabenseifner is the bandwidth-optimal allreduce: a recursive-
// halving reduce-scatter (each of log2(n) rounds halving the span of
// elements a member is responsible for combining) followed by a
// recursive-doubling allgather of the final per-chunk results,
// assuming n is a power of two.
func DoRabenseifner(ctx context.Context, team *teams.Team, dstSym, srcSym uintptr, nelems int, kind types.ElemKind, op types.ReductionOp) *types.Fault {
	n := team.Size()
	w := Width(kind)
	r := int(team.Rank())
	self := team.Self()
	base := team.PSyncAddr(types.ClassReduce)
	total := nelems * w

	full := make([]byte, total)
	if fault := team.Context().Get(ctx, full, srcSym, self); fault != nil {
		return fault
	}
	if fault := team.Context().Put(ctx, dstSym, full, self); fault != nil {
		return fault
	}

	// Reduce-scatter: after round with distance d, this member owns
	// the combined result for a shrinking chunk range of the buffer.
	lo, hi := 0, n
	for d := n / 2; d >= 1; d /= 2 {
		partner := r ^ d
		if partner >= n {
			continue
		}
		mid := (lo + hi) / 2
		var myRange, otherRange [2]int
		if r < partner {
			myRange = [2]int{lo, mid}
			otherRange = [2]int{mid, hi}
		} else {
			myRange = [2]int{mid, hi}
			otherRange = [2]int{lo, mid}
		}
		partnerPE, _ := team.WorldPE(partner)

		sendLo, sendHi := chunkRange(myRange[0], n, total)
		recvLo, recvHi := chunkRange(otherRange[0], n, total)

		sendChunk := make([]byte, 0)
		if sendHi > sendLo {
			sendChunk = make([]byte, sendHi-sendLo)
			if fault := team.Context().Get(ctx, sendChunk, dstSym+uintptr(sendLo), self); fault != nil {
				return fault
			}
		}
		recvChunkLen := recvHi - recvLo
		var existing []byte
		if recvChunkLen > 0 {
			existing = make([]byte, recvChunkLen)
			if fault := team.Context().Get(ctx, existing, dstSym+uintptr(recvLo), self); fault != nil {
				return fault
			}
		}
		if recvChunkLen > 0 && len(sendChunk) > 0 {
			if fault := team.Context().Put(ctx, dstSym+uintptr(sendLo), sendChunk, partnerPE); fault != nil {
				return fault
			}
		}
		if fault := team.Context().Quiet(ctx); fault != nil {
			return fault
		}
		slot := base + uintptr(d%8)*8
		if fault := pwait.Write(ctx, team, partnerPE, slot, int64(d)); fault != nil {
			return fault
		}
		if fault := pwait.SpinUntilEqual(ctx, team, self, slot, int64(d)); fault != nil {
			return fault
		}
		if recvChunkLen > 0 {
			received := make([]byte, recvChunkLen)
			if fault := team.Context().Get(ctx, received, dstSym+uintptr(recvLo), self); fault != nil {
				return fault
			}
			merged := combineBuffers(kind, op, recvChunkLen/w, existing, received)
			if fault := team.Context().Put(ctx, dstSym+uintptr(recvLo), merged, self); fault != nil {
				return fault
			}
		}
		if fault := pwait.Write(ctx, team, self, slot, 0); fault != nil {
			return fault
		}
		lo, hi = myRange[0], myRange[1]
	}

	// Allgather: double the known span back out until every member
	// holds the full, fully-reduced buffer.
	for d := 1; d < n; d <<= 1 {
		partner := r ^ d
		if partner >= n {
			continue
		}
		partnerPE, _ := team.WorldPE(partner)
		chunkLo, chunkHi := chunkRange(lo, n, total)
		if chunkHi > chunkLo {
			buf := make([]byte, chunkHi-chunkLo)
			if fault := team.Context().Get(ctx, buf, dstSym+uintptr(chunkLo), self); fault != nil {
				return fault
			}
			if fault := team.Context().Put(ctx, dstSym+uintptr(chunkLo), buf, partnerPE); fault != nil {
				return fault
			}
		}
		if fault := team.Context().Quiet(ctx); fault != nil {
			return fault
		}
		slot := base + uintptr((d+16)%8)*8
		if fault := pwait.Write(ctx, team, partnerPE, slot, int64(d)); fault != nil {
			return fault
		}
		if fault := pwait.SpinUntilEqual(ctx, team, self, slot, int64(d)); fault != nil {
			return fault
		}
		if fault := pwait.Write(ctx, team, self, slot, 0); fault != nil {
			return fault
		}
		if r < partner {
			hi = hi + (hi - lo)
		} else {
			lo = lo - (hi - lo)
		}
	}
	return nil
}
