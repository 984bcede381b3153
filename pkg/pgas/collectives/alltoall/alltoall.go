// Package alltoall implements the all-to-all/alltoalls algorithm
// family (spec.md §4.5.4, component J): every member exchanges one
// elemSize-byte block with every other member, each combined with one
// of three completion-signaling styles (barrier, counter, or
// per-block signal).
package alltoall

import (
	"context"

	"github.com/jabolina/go-pgas/pkg/pgas/collectives/pwait"
	"github.com/jabolina/go-pgas/pkg/pgas/teams"
	"github.com/jabolina/go-pgas/pkg/pgas/types"
)

const (
	ShiftExchangeBarrier = "shift-exchange-barrier"
	ShiftExchangeCounter = "shift-exchange-counter"
	ShiftExchangeSignal  = "shift-exchange-signal"
	XorPairwiseBarrier   = "xor-pairwise-barrier"
	XorPairwiseCounter   = "xor-pairwise-counter"
	XorPairwiseSignal    = "xor-pairwise-signal"
	ColorPairwiseBarrier = "color-pairwise-barrier"
	ColorPairwiseCounter = "color-pairwise-counter"
	ColorPairwiseSignal  = "color-pairwise-signal"
)

func blockOf(sym uintptr, rank, elemSize int) uintptr { return sym + uintptr(rank*elemSize) }

func exchangeOne(ctx context.Context, team *teams.Team, dstSym, srcSym uintptr, elemSize, r, partner int) *types.Fault {
	self := team.Self()
	partnerPE, ok := team.WorldPE(partner)
	if !ok {
		return nil
	}
	mine := make([]byte, elemSize)
	if fault := team.Context().Get(ctx, mine, blockOf(srcSym, partner, elemSize), self); fault != nil {
		return fault
	}
	return team.Context().Put(ctx, blockOf(dstSym, r, elemSize), mine, partnerPE)
}

// DoShiftExchangeBarrier has every member r exchange with r+d (mod n)
// for every distance d in [1,n), each round gated by a full team
// barrier so no member's destination buffer is overwritten mid-round.
func DoShiftExchangeBarrier(barrier func(context.Context, *teams.Team) *types.Fault) func(context.Context, *teams.Team, uintptr, uintptr, int) *types.Fault {
	return func(ctx context.Context, team *teams.Team, dstSym, srcSym uintptr, elemSize int) *types.Fault {
		n := team.Size()
		if n == 0 {
			return nil
		}
		r := int(team.Rank())
		self := team.Self()
		own := make([]byte, elemSize)
		if fault := team.Context().Get(ctx, own, blockOf(srcSym, r, elemSize), self); fault != nil {
			return fault
		}
		if fault := team.Context().Put(ctx, blockOf(dstSym, r, elemSize), own, self); fault != nil {
			return fault
		}
		for d := 1; d < n; d++ {
			partner := (r + d) % n
			if fault := exchangeOne(ctx, team, dstSym, srcSym, elemSize, r, partner); fault != nil {
				return fault
			}
			if fault := team.Context().Quiet(ctx); fault != nil {
				return fault
			}
			if fault := barrier(ctx, team); fault != nil {
				return fault
			}
		}
		return nil
	}
}

// DoShiftExchangeCounter is DoShiftExchangeBarrier with a per-round
// arrival counter instead of a full barrier: cheaper when members
// don't otherwise need round-to-round ordering.
func DoShiftExchangeCounter(ctx context.Context, team *teams.Team, dstSym, srcSym uintptr, elemSize int) *types.Fault {
	n := team.Size()
	if n == 0 {
		return nil
	}
	r := int(team.Rank())
	self := team.Self()
	base := team.PSyncAddr(types.ClassAllToAll)

	own := make([]byte, elemSize)
	if fault := team.Context().Get(ctx, own, blockOf(srcSym, r, elemSize), self); fault != nil {
		return fault
	}
	if fault := team.Context().Put(ctx, blockOf(dstSym, r, elemSize), own, self); fault != nil {
		return fault
	}

	for d := 1; d < n; d++ {
		partner := (r + d) % n
		if fault := exchangeOne(ctx, team, dstSym, srcSym, elemSize, r, partner); fault != nil {
			return fault
		}
		if fault := team.Context().Quiet(ctx); fault != nil {
			return fault
		}
		slot := base + uintptr(d%8)*8
		for j := 0; j < n; j++ {
			pe, _ := team.WorldPE(j)
			if _, fault := pwait.FetchAdd(ctx, team, pe, slot, 1); fault != nil {
				return fault
			}
		}
		if fault := pwait.SpinUntilEqual(ctx, team, self, slot, int64(n)); fault != nil {
			return fault
		}
		if fault := pwait.Write(ctx, team, self, slot, 0); fault != nil {
			return fault
		}
	}
	return nil
}

// DoShiftExchangeSignal is DoShiftExchangeBarrier/Counter's shift
// schedule with each exchange landing via PutSignal instead of a
// barrier or counter round.
func DoShiftExchangeSignal(ctx context.Context, team *teams.Team, dstSym, srcSym uintptr, elemSize int) *types.Fault {
	n := team.Size()
	if n == 0 {
		return nil
	}
	r := int(team.Rank())
	self := team.Self()
	base := team.PSyncAddr(types.ClassAllToAll)

	own := make([]byte, elemSize)
	if fault := team.Context().Get(ctx, own, blockOf(srcSym, r, elemSize), self); fault != nil {
		return fault
	}
	if fault := team.Context().Put(ctx, blockOf(dstSym, r, elemSize), own, self); fault != nil {
		return fault
	}

	for d := 1; d < n; d++ {
		partner := (r + d) % n
		partnerPE, ok := team.WorldPE(partner)
		if !ok {
			continue
		}
		mine := make([]byte, elemSize)
		if fault := team.Context().Get(ctx, mine, blockOf(srcSym, partner, elemSize), self); fault != nil {
			return fault
		}
		slot := base + uintptr(d%8)*8
		if fault := team.Context().PutSignal(ctx, blockOf(dstSym, r, elemSize), mine, slot, 1, false, partnerPE); fault != nil {
			return fault
		}
		if fault := pwait.SpinUntilEqual(ctx, team, self, slot, 1); fault != nil {
			return fault
		}
		if fault := pwait.Write(ctx, team, self, slot, 0); fault != nil {
			return fault
		}
	}
	return nil
}

// DoXorPairwiseBarrier is DoXorPairwiseSignal's XOR pairing schedule
// gated by a full team barrier between rounds instead of a signal.
func DoXorPairwiseBarrier(barrier func(context.Context, *teams.Team) *types.Fault) func(context.Context, *teams.Team, uintptr, uintptr, int) *types.Fault {
	return func(ctx context.Context, team *teams.Team, dstSym, srcSym uintptr, elemSize int) *types.Fault {
		n := team.Size()
		if n == 0 {
			return nil
		}
		r := int(team.Rank())
		self := team.Self()
		own := make([]byte, elemSize)
		if fault := team.Context().Get(ctx, own, blockOf(srcSym, r, elemSize), self); fault != nil {
			return fault
		}
		if fault := team.Context().Put(ctx, blockOf(dstSym, r, elemSize), own, self); fault != nil {
			return fault
		}
		for d := 1; d < n; d++ {
			partner := r ^ d
			if partner < n {
				if fault := exchangeOne(ctx, team, dstSym, srcSym, elemSize, r, partner); fault != nil {
					return fault
				}
				if fault := team.Context().Quiet(ctx); fault != nil {
					return fault
				}
			}
			if fault := barrier(ctx, team); fault != nil {
				return fault
			}
		}
		return nil
	}
}

// DoXorPairwiseCounter is DoXorPairwiseSignal's XOR pairing schedule
// gated by a per-round arrival counter instead of a signal.
func DoXorPairwiseCounter(ctx context.Context, team *teams.Team, dstSym, srcSym uintptr, elemSize int) *types.Fault {
	n := team.Size()
	if n == 0 {
		return nil
	}
	r := int(team.Rank())
	self := team.Self()
	base := team.PSyncAddr(types.ClassAllToAll)

	own := make([]byte, elemSize)
	if fault := team.Context().Get(ctx, own, blockOf(srcSym, r, elemSize), self); fault != nil {
		return fault
	}
	if fault := team.Context().Put(ctx, blockOf(dstSym, r, elemSize), own, self); fault != nil {
		return fault
	}

	for d := 1; d < n; d++ {
		partner := r ^ d
		if partner < n {
			if fault := exchangeOne(ctx, team, dstSym, srcSym, elemSize, r, partner); fault != nil {
				return fault
			}
			if fault := team.Context().Quiet(ctx); fault != nil {
				return fault
			}
		}
		slot := base + uintptr(d%8)*8
		for j := 0; j < n; j++ {
			pe, _ := team.WorldPE(j)
			if _, fault := pwait.FetchAdd(ctx, team, pe, slot, 1); fault != nil {
				return fault
			}
		}
		if fault := pwait.SpinUntilEqual(ctx, team, self, slot, int64(n)); fault != nil {
			return fault
		}
		if fault := pwait.Write(ctx, team, self, slot, 0); fault != nil {
			return fault
		}
	}
	return nil
}

// DoXorPairwiseSignal pairs r with r^d at each of the n-1 non-zero
// values of d (valid when n is a power of two), each exchange landing
// via PutSignal so a round needs only one message per direction.
func DoXorPairwiseSignal(ctx context.Context, team *teams.Team, dstSym, srcSym uintptr, elemSize int) *types.Fault {
	n := team.Size()
	if n == 0 {
		return nil
	}
	r := int(team.Rank())
	self := team.Self()
	base := team.PSyncAddr(types.ClassAllToAll)

	own := make([]byte, elemSize)
	if fault := team.Context().Get(ctx, own, blockOf(srcSym, r, elemSize), self); fault != nil {
		return fault
	}
	if fault := team.Context().Put(ctx, blockOf(dstSym, r, elemSize), own, self); fault != nil {
		return fault
	}

	for d := 1; d < n; d++ {
		partner := r ^ d
		if partner >= n {
			continue
		}
		partnerPE, _ := team.WorldPE(partner)
		mine := make([]byte, elemSize)
		if fault := team.Context().Get(ctx, mine, blockOf(srcSym, partner, elemSize), self); fault != nil {
			return fault
		}
		slot := base + uintptr(d%8)*8
		if fault := team.Context().PutSignal(ctx, blockOf(dstSym, r, elemSize), mine, slot, 1, false, partnerPE); fault != nil {
			return fault
		}
		if fault := pwait.SpinUntilEqual(ctx, team, self, slot, 1); fault != nil {
			return fault
		}
		if fault := pwait.Write(ctx, team, self, slot, 0); fault != nil {
			return fault
		}
	}
	return nil
}

// pairRounds builds the classic round-robin pairing schedule used by
// the color-pairwise algorithms: n-1 rounds (n rounds, one idle, if n
// is odd), each round a perfect matching over [0,n).
func pairRounds(n int) [][]int {
	if n%2 != 0 {
		n++
	}
	rounds := make([][]int, n-1)
	arr := make([]int, n)
	for i := range arr {
		arr[i] = i
	}
	for rnd := 0; rnd < n-1; rnd++ {
		pairs := make([]int, len(arr))
		copy(pairs, arr)
		rounds[rnd] = pairs
		// rotate all but the first element
		last := arr[len(arr)-1]
		copy(arr[2:], arr[1:len(arr)-1])
		arr[1] = last
	}
	return rounds
}

func partnerInRound(round []int, r int) int {
	n := len(round)
	pos := -1
	for i, v := range round {
		if v == r {
			pos = i
			break
		}
	}
	if pos < 0 {
		return -1
	}
	partnerPos := n - 1 - pos
	if partnerPos >= n {
		return -1
	}
	return round[partnerPos]
}

// DoColorPairwiseBarrier uses the round-robin pairing schedule (each
// round a perfect matching, "colored" so no PE appears twice) instead
// of a fixed shift, gated by a full barrier between rounds.
func DoColorPairwiseBarrier(barrier func(context.Context, *teams.Team) *types.Fault) func(context.Context, *teams.Team, uintptr, uintptr, int) *types.Fault {
	return func(ctx context.Context, team *teams.Team, dstSym, srcSym uintptr, elemSize int) *types.Fault {
		n := team.Size()
		if n == 0 {
			return nil
		}
		r := int(team.Rank())
		self := team.Self()
		own := make([]byte, elemSize)
		if fault := team.Context().Get(ctx, own, blockOf(srcSym, r, elemSize), self); fault != nil {
			return fault
		}
		if fault := team.Context().Put(ctx, blockOf(dstSym, r, elemSize), own, self); fault != nil {
			return fault
		}
		for _, round := range pairRounds(n) {
			partner := partnerInRound(round, r)
			if partner >= 0 && partner != r && partner < n {
				if fault := exchangeOne(ctx, team, dstSym, srcSym, elemSize, r, partner); fault != nil {
					return fault
				}
				if fault := team.Context().Quiet(ctx); fault != nil {
					return fault
				}
			}
			if fault := barrier(ctx, team); fault != nil {
				return fault
			}
		}
		return nil
	}
}

// DoColorPairwiseCounter is DoColorPairwiseBarrier with a per-round
// arrival counter instead of a full barrier.
func DoColorPairwiseCounter(ctx context.Context, team *teams.Team, dstSym, srcSym uintptr, elemSize int) *types.Fault {
	n := team.Size()
	if n == 0 {
		return nil
	}
	r := int(team.Rank())
	self := team.Self()
	base := team.PSyncAddr(types.ClassAllToAll)

	own := make([]byte, elemSize)
	if fault := team.Context().Get(ctx, own, blockOf(srcSym, r, elemSize), self); fault != nil {
		return fault
	}
	if fault := team.Context().Put(ctx, blockOf(dstSym, r, elemSize), own, self); fault != nil {
		return fault
	}

	for i, round := range pairRounds(n) {
		partner := partnerInRound(round, r)
		if partner >= 0 && partner != r && partner < n {
			if fault := exchangeOne(ctx, team, dstSym, srcSym, elemSize, r, partner); fault != nil {
				return fault
			}
			if fault := team.Context().Quiet(ctx); fault != nil {
				return fault
			}
		}
		slot := base + uintptr(i%8)*8
		for j := 0; j < n; j++ {
			pe, _ := team.WorldPE(j)
			if _, fault := pwait.FetchAdd(ctx, team, pe, slot, 1); fault != nil {
				return fault
			}
		}
		if fault := pwait.SpinUntilEqual(ctx, team, self, slot, int64(n)); fault != nil {
			return fault
		}
		if fault := pwait.Write(ctx, team, self, slot, 0); fault != nil {
			return fault
		}
	}
	return nil
}

// DoColorPairwiseSignal uses the same round-robin coloring schedule as
// DoColorPairwiseBarrier/Counter, but each round's exchange lands via
// PutSignal instead of a barrier or counter.
func DoColorPairwiseSignal(ctx context.Context, team *teams.Team, dstSym, srcSym uintptr, elemSize int) *types.Fault {
	n := team.Size()
	if n == 0 {
		return nil
	}
	r := int(team.Rank())
	self := team.Self()
	base := team.PSyncAddr(types.ClassAllToAll)

	own := make([]byte, elemSize)
	if fault := team.Context().Get(ctx, own, blockOf(srcSym, r, elemSize), self); fault != nil {
		return fault
	}
	if fault := team.Context().Put(ctx, blockOf(dstSym, r, elemSize), own, self); fault != nil {
		return fault
	}

	for i, round := range pairRounds(n) {
		partner := partnerInRound(round, r)
		slot := base + uintptr(i%8)*8
		if partner >= 0 && partner != r && partner < n {
			partnerPE, _ := team.WorldPE(partner)
			mine := make([]byte, elemSize)
			if fault := team.Context().Get(ctx, mine, blockOf(srcSym, partner, elemSize), self); fault != nil {
				return fault
			}
			if fault := team.Context().PutSignal(ctx, blockOf(dstSym, r, elemSize), mine, slot, 1, false, partnerPE); fault != nil {
				return fault
			}
			if fault := pwait.SpinUntilEqual(ctx, team, self, slot, 1); fault != nil {
				return fault
			}
			if fault := pwait.Write(ctx, team, self, slot, 0); fault != nil {
				return fault
			}
		}
	}
	return nil
}
