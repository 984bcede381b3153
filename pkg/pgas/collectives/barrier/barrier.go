// Package barrier implements the sync/barrier algorithm family
// (spec.md §4.5.1, component G): named, interchangeable
// synchronization algorithms over a team's pSync pool. Each algorithm
// takes a *teams.Team and nothing else — the registry
// (pkg/pgas/collectives) is the only thing that knows these names.
package barrier

import (
	"context"

	"github.com/jabolina/go-pgas/pkg/pgas/collectives/pwait"
	"github.com/jabolina/go-pgas/pkg/pgas/teams"
	"github.com/jabolina/go-pgas/pkg/pgas/types"
)

const (
	Linear        = "linear"
	CompleteTree  = "tree"
	Binomial      = "binomial"
	KNomial       = "k-nomial"
	Dissemination = "dissemination"
)

// DoLinear is the central-counter barrier: every non-root member
// fetch-adds into the root's counter slot, the root spins until every
// member has arrived, then writes a release flag into each member's
// own slot.
func DoLinear(ctx context.Context, team *teams.Team) *types.Fault {
	n := team.Size()
	if n <= 1 {
		return nil
	}
	base := team.PSyncAddr(types.ClassBarrier)
	counter, release := base, base+8
	self := team.Self()

	if team.Rank() == 0 {
		if fault := pwait.SpinUntilEqual(ctx, team, self, counter, int64(n-1)); fault != nil {
			return fault
		}
		for j := 1; j < n; j++ {
			pe, _ := team.WorldPE(j)
			if fault := pwait.Write(ctx, team, pe, release, 1); fault != nil {
				return fault
			}
		}
		return pwait.Write(ctx, team, self, counter, 0)
	}

	root, _ := team.WorldPE(0)
	if _, fault := pwait.FetchAdd(ctx, team, root, counter, 1); fault != nil {
		return fault
	}
	if fault := pwait.SpinUntilEqual(ctx, team, self, release, 1); fault != nil {
		return fault
	}
	return pwait.Write(ctx, team, self, release, 0)
}

// DoCompleteTree is a binary-tree fan-in/fan-out barrier: each member
// waits for its up-to-two children to arrive, notifies its parent,
// then waits for the parent's release and forwards it to its
// children.
func DoCompleteTree(ctx context.Context, team *teams.Team) *types.Fault {
	n := team.Size()
	if n <= 1 {
		return nil
	}
	r := int(team.Rank())
	self := team.Self()
	base := team.PSyncAddr(types.ClassBarrier)
	arrived0, arrived1, release := base, base+8, base+16

	left, right := 2*r+1, 2*r+2
	if left < n {
		if fault := pwait.SpinUntilEqual(ctx, team, self, arrived0, 1); fault != nil {
			return fault
		}
	}
	if right < n {
		if fault := pwait.SpinUntilEqual(ctx, team, self, arrived1, 1); fault != nil {
			return fault
		}
	}

	if r != 0 {
		parent := (r - 1) / 2
		parentPE, _ := team.WorldPE(parent)
		slot := arrived0
		if (r-1)%2 != 0 {
			slot = arrived1
		}
		if fault := pwait.Write(ctx, team, parentPE, slot, 1); fault != nil {
			return fault
		}
		if fault := pwait.SpinUntilEqual(ctx, team, self, release, 1); fault != nil {
			return fault
		}
	}

	if left < n {
		if fault := pwait.Write(ctx, team, mustWorld(team, left), release, 1); fault != nil {
			return fault
		}
	}
	if right < n {
		if fault := pwait.Write(ctx, team, mustWorld(team, right), release, 1); fault != nil {
			return fault
		}
	}

	if left < n {
		if fault := pwait.Write(ctx, team, self, arrived0, 0); fault != nil {
			return fault
		}
	}
	if right < n {
		if fault := pwait.Write(ctx, team, self, arrived1, 0); fault != nil {
			return fault
		}
	}
	return pwait.Write(ctx, team, self, release, 0)
}

// DoBinomial runs a binomial-tree barrier: log2(n) rounds, round i
// having rank r receive from r+2^i (if present) and, once it has
// received every lower round, send to r-2^i.
func DoBinomial(ctx context.Context, team *teams.Team) *types.Fault {
	n := team.Size()
	if n <= 1 {
		return nil
	}
	r := int(team.Rank())
	self := team.Self()
	base := team.PSyncAddr(types.ClassBarrier)

	for d := 1; d < n; d <<= 1 {
		partner := r ^ d
		if partner >= n {
			continue
		}
		slot := base + uintptr(d%8)*8
		if r < partner {
			if fault := pwait.SpinUntilEqual(ctx, team, self, slot, int64(d)); fault != nil {
				return fault
			}
		} else {
			peerPE := mustWorld(team, partner)
			if fault := pwait.Write(ctx, team, peerPE, slot, int64(d)); fault != nil {
				return fault
			}
		}
	}
	for d := 1; d < n; d <<= 1 {
		slot := base + uintptr(d%8)*8
		if fault := pwait.Write(ctx, team, self, slot, 0); fault != nil {
			return fault
		}
	}
	return nil
}

// DoKNomial generalizes DoBinomial to radix k: each round a rank
// exchanges with up to k-1 partners instead of 1. Degenerates to
// DoBinomial when k==2.
func DoKNomial(k int) func(context.Context, *teams.Team) *types.Fault {
	if k < 2 {
		k = 2
	}
	return func(ctx context.Context, team *teams.Team) *types.Fault {
		n := team.Size()
		if n <= 1 {
			return nil
		}
		r := int(team.Rank())
		self := team.Self()
		base := team.PSyncAddr(types.ClassBarrier)

		round := 0
		for step := 1; step < n; step *= k {
			slot := base + uintptr(round%8)*8
			for j := 1; j < k; j++ {
				partner := r ^ (j * step)
				if partner < 0 || partner >= n || partner/step == r/step {
					continue
				}
				if partner > r {
					if fault := pwait.SpinUntilEqual(ctx, team, self, slot, int64(j)); fault != nil {
						return fault
					}
				} else {
					peerPE := mustWorld(team, partner)
					if fault := pwait.Write(ctx, team, peerPE, slot, int64(j)); fault != nil {
						return fault
					}
				}
			}
			round++
		}
		for i := 0; i < round; i++ {
			slot := base + uintptr(i%8)*8
			if fault := pwait.Write(ctx, team, self, slot, 0); fault != nil {
				return fault
			}
		}
		return nil
	}
}

// DoDissemination runs the fully distributed dissemination barrier
// (Hensgen/Finkel/Manber): ceil(log2 n) rounds, round i having every
// rank signal rank (r+2^i) mod n and wait on (r-2^i) mod n. A signal
// is an atomic increment that the receiver consumes with an atomic
// decrement, so a signal that arrives early from the next barrier is
// kept rather than erased.
func DoDissemination(ctx context.Context, team *teams.Team) *types.Fault {
	n := team.Size()
	if n <= 1 {
		return nil
	}
	r := int(team.Rank())
	self := team.Self()
	base := team.PSyncAddr(types.ClassBarrier)

	rounds := 0
	for (1 << rounds) < n {
		rounds++
	}

	for i := 0; i < rounds; i++ {
		slot := base + uintptr(i%8)*8
		dst := (r + (1 << i)) % n
		dstPE := mustWorld(team, dst)
		if _, fault := pwait.FetchAdd(ctx, team, dstPE, slot, 1); fault != nil {
			return fault
		}
		if fault := pwait.SpinUntilAtLeast(ctx, team, self, slot, 1); fault != nil {
			return fault
		}
		if _, fault := pwait.FetchAdd(ctx, team, self, slot, -1); fault != nil {
			return fault
		}
	}
	return nil
}

func mustWorld(team *teams.Team, local int) types.PE {
	pe, ok := team.WorldPE(local)
	if !ok {
		panic("barrier: local rank out of range")
	}
	return pe
}
