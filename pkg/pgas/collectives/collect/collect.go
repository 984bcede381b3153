// Package collect implements the collect/fcollect algorithm family
// (spec.md §4.5.3, component I): gathering every member's
// contribution into every member's destination buffer, concatenated
// in team-local rank order.
package collect

import (
	"context"

	"github.com/jabolina/go-pgas/pkg/pgas/collectives/pwait"
	"github.com/jabolina/go-pgas/pkg/pgas/teams"
	"github.com/jabolina/go-pgas/pkg/pgas/types"
)

const (
	Linear            = "linear"
	Ring              = "ring"
	Bruck             = "bruck"
	RecursiveDoubling = "recursive-doubling"
	NeighborExchange  = "neighbor-exchange"
)

func offsets(sizes []int) ([]int, int) {
	off := make([]int, len(sizes)+1)
	for i, s := range sizes {
		off[i+1] = off[i] + s
	}
	return off, off[len(sizes)]
}

// DoLinear has every member Put its own contribution directly into
// every other member's destination buffer, synchronized by a single
// arrival counter.
func DoLinear(ctx context.Context, team *teams.Team, dstSym, srcSym uintptr, sizes []int) *types.Fault {
	n := team.Size()
	if n == 0 {
		return nil
	}
	r := int(team.Rank())
	self := team.Self()
	off, total := offsets(sizes)
	counter := team.PSyncAddr(types.ClassCollect)
	_ = total

	mine := make([]byte, sizes[r])
	if fault := team.Context().Get(ctx, mine, srcSym, self); fault != nil {
		return fault
	}
	if fault := team.Context().Put(ctx, dstSym+uintptr(off[r]), mine, self); fault != nil {
		return fault
	}
	for j := 0; j < n; j++ {
		if j == r {
			continue
		}
		pe, _ := team.WorldPE(j)
		if fault := team.Context().Put(ctx, dstSym+uintptr(off[r]), mine, pe); fault != nil {
			return fault
		}
	}
	if fault := team.Context().Quiet(ctx); fault != nil {
		return fault
	}
	for j := 0; j < n; j++ {
		pe, _ := team.WorldPE(j)
		if _, fault := pwait.FetchAdd(ctx, team, pe, counter, 1); fault != nil {
			return fault
		}
	}
	if fault := pwait.SpinUntilEqual(ctx, team, self, counter, int64(n)); fault != nil {
		return fault
	}
	return pwait.Write(ctx, team, self, counter, 0)
}

// DoRing passes each member's chunk around the ring n-1 times so every
// member ends up holding every chunk, the classic bandwidth-optimal
// allgather shape.
func DoRing(ctx context.Context, team *teams.Team, dstSym, srcSym uintptr, sizes []int) *types.Fault {
	n := team.Size()
	if n == 0 {
		return nil
	}
	r := int(team.Rank())
	self := team.Self()
	off, _ := offsets(sizes)
	base := team.PSyncAddr(types.ClassCollect)

	mine := make([]byte, sizes[r])
	if fault := team.Context().Get(ctx, mine, srcSym, self); fault != nil {
		return fault
	}
	if fault := team.Context().Put(ctx, dstSym+uintptr(off[r]), mine, self); fault != nil {
		return fault
	}
	if n == 1 {
		return nil
	}

	have := r
	nextPE, _ := team.WorldPE((r + 1) % n)
	for step := 1; step < n; step++ {
		chunk := make([]byte, sizes[have])
		if fault := team.Context().Get(ctx, chunk, dstSym+uintptr(off[have]), self); fault != nil {
			return fault
		}
		if fault := team.Context().Put(ctx, dstSym+uintptr(off[have]), chunk, nextPE); fault != nil {
			return fault
		}
		if fault := team.Context().Quiet(ctx); fault != nil {
			return fault
		}
		slot := base + uintptr(step%8)*8
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

// DoBruck runs the Bruck algorithm: ceil(log2 n) phases, each one
// doubling the contiguous block of known chunks a member holds and
// forwarding it to the member at distance -2^phase, finishing with a
// single local rotation to put every chunk at its final rank-ordered
// offset.
func DoBruck(ctx context.Context, team *teams.Team, dstSym, srcSym uintptr, sizes []int) *types.Fault {
	n := team.Size()
	if n == 0 {
		return nil
	}
	r := int(team.Rank())
	self := team.Self()
	off, total := offsets(sizes)
	base := team.PSyncAddr(types.ClassCollect)

	mine := make([]byte, sizes[r])
	if fault := team.Context().Get(ctx, mine, srcSym, self); fault != nil {
		return fault
	}
	// Stage 0: place our own chunk at relative offset 0 (logical
	// position r in a buffer rotated so chunk r sits first).
	scratch := make([]byte, total)
	copy(scratch[0:sizes[r]], mine)
	have := 1 // number of logically-contiguous chunks starting at relative index 0, i.e. ranks r, r+1, ..., r+have-1 (mod n)

	phase := 0
	for (1 << phase) < n {
		dist := 1 << phase
		dstRank := (r - dist + n) % n
		srcRank := (r + dist) % n
		dstPE, _ := team.WorldPE(dstRank)

		heldLen, destHeld, sendLen, recvLen := 0, 0, 0, 0
		for i := 0; i < have; i++ {
			heldLen += sizes[(r+i)%n]
			destHeld += sizes[(dstRank+i)%n]
		}
		for i := 0; i < have && i < n-have; i++ {
			sendLen += sizes[(r+i)%n]
			recvLen += sizes[(srcRank+i)%n]
		}
		if fault := team.Context().Put(ctx, dstSym+uintptr(destHeld), scratch[:sendLen], dstPE); fault != nil {
			return fault
		}
		if fault := team.Context().Quiet(ctx); fault != nil {
			return fault
		}
		slot := base + uintptr(phase%8)*8
		if fault := pwait.Write(ctx, team, dstPE, slot, int64(phase+1)); fault != nil {
			return fault
		}
		if fault := pwait.SpinUntilEqual(ctx, team, self, slot, int64(phase+1)); fault != nil {
			return fault
		}
		if fault := pwait.Write(ctx, team, self, slot, 0); fault != nil {
			return fault
		}

		recvd := make([]byte, recvLen)
		if fault := team.Context().Get(ctx, recvd, dstSym+uintptr(heldLen), self); fault != nil {
			return fault
		}
		copy(scratch[heldLen:heldLen+len(recvd)], recvd)
		have *= 2
		if have > n {
			have = n
		}
		phase++
	}

	// Local rotation: scratch holds chunks r, r+1, ..., r+n-1 (mod n)
	// back to back; write each into its rank-ordered slot in dstSym.
	pos := 0
	for i := 0; i < n; i++ {
		rank := (r + i) % n
		chunkLen := sizes[rank]
		if fault := team.Context().Put(ctx, dstSym+uintptr(off[rank]), scratch[pos:pos+chunkLen], self); fault != nil {
			return fault
		}
		pos += chunkLen
	}
	return nil
}

// DoRecursiveDoubling merges progressively larger known prefixes with
// the XOR partner at each of log2(n) steps, same shape as the
// barrier/reduce recursive-doubling algorithms. It needs n to be a
// power of two and returns an AlgorithmUnsupported fault otherwise.
func DoRecursiveDoubling(ctx context.Context, team *teams.Team, dstSym, srcSym uintptr, sizes []int) *types.Fault {
	n := team.Size()
	if n == 0 {
		return nil
	}
	if n&(n-1) != 0 {
		return types.NewFaultf(types.AlgorithmUnsupported, "collect", "recursive-doubling needs a power-of-two team size, got %d", n)
	}
	r := int(team.Rank())
	self := team.Self()
	off, _ := offsets(sizes)
	base := team.PSyncAddr(types.ClassCollect)

	mine := make([]byte, sizes[r])
	if fault := team.Context().Get(ctx, mine, srcSym, self); fault != nil {
		return fault
	}
	if fault := team.Context().Put(ctx, dstSym+uintptr(off[r]), mine, self); fault != nil {
		return fault
	}

	known := map[int]bool{r: true}
	for d := 1; d < n; d <<= 1 {
		partner := r ^ d
		if partner >= n {
			continue
		}
		partnerPE, _ := team.WorldPE(partner)

		sendRanks := make([]int, 0, len(known))
		for k := range known {
			sendRanks = append(sendRanks, k)
		}
		for _, k := range sendRanks {
			chunk := make([]byte, sizes[k])
			if fault := team.Context().Get(ctx, chunk, dstSym+uintptr(off[k]), self); fault != nil {
				return fault
			}
			if fault := team.Context().Put(ctx, dstSym+uintptr(off[k]), chunk, partnerPE); fault != nil {
				return fault
			}
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
		if fault := pwait.Write(ctx, team, self, slot, 0); fault != nil {
			return fault
		}
		// The partner executes this same exchange symmetrically, so
		// every rank we just sent also arrived from the partner's
		// side under the same distance: our known set and its image
		// under XOR d merge into the new known set.
		for _, k := range sendRanks {
			known[k^d] = true
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

// DoNeighborExchange pairs each member with its immediate ring
// neighbor first, then doubles the traded block's span each round
// (left neighbor and right neighbor alternating), a shape distinct
// from recursive doubling's XOR partner selection.
func DoNeighborExchange(ctx context.Context, team *teams.Team, dstSym, srcSym uintptr, sizes []int) *types.Fault {
	n := team.Size()
	if n == 0 {
		return nil
	}
	r := int(team.Rank())
	self := team.Self()
	off, _ := offsets(sizes)
	base := team.PSyncAddr(types.ClassCollect)

	mine := make([]byte, sizes[r])
	if fault := team.Context().Get(ctx, mine, srcSym, self); fault != nil {
		return fault
	}
	if fault := team.Context().Put(ctx, dstSym+uintptr(off[r]), mine, self); fault != nil {
		return fault
	}

	span := 1
	lo, hi := r, r // [lo,hi] inclusive range of ranks (mod n) we currently hold, growing each round
	for span < n {
		rightPE, _ := team.WorldPE((hi + 1) % n)
		leftPE, _ := team.WorldPE((lo - 1 + n) % n)

		sendLen := 0
		for i := 0; i < span; i++ {
			sendLen += sizes[(lo+i)%n]
		}
		buf := make([]byte, sendLen)
		pos := 0
		for i := 0; i < span; i++ {
			rank := (lo + i) % n
			if fault := team.Context().Get(ctx, buf[pos:pos+sizes[rank]], dstSym+uintptr(off[rank]), self); fault != nil {
				return fault
			}
			pos += sizes[rank]
		}

		if fault := team.Context().Put(ctx, dstSym+uintptr(off[lo%n]), buf, rightPE); fault != nil {
			return fault
		}
		if fault := team.Context().Put(ctx, dstSym+uintptr(off[lo%n]), buf, leftPE); fault != nil {
			return fault
		}
		if fault := team.Context().Quiet(ctx); fault != nil {
			return fault
		}

		slot := base + uintptr(span%8)*8
		if fault := pwait.Write(ctx, team, rightPE, slot, int64(span)); fault != nil {
			return fault
		}
		if fault := pwait.Write(ctx, team, leftPE, slot, int64(span)); fault != nil {
			return fault
		}
		if fault := pwait.SpinUntilAtLeast(ctx, team, self, slot, int64(span)); fault != nil {
			return fault
		}
		if fault := pwait.Write(ctx, team, self, slot, 0); fault != nil {
			return fault
		}

		lo = (lo - span + n) % n
		hi = (hi + span) % n
		span *= 2
	}
	return nil
}
