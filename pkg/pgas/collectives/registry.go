package collectives

import (
	"context"

	"github.com/jabolina/go-pgas/pkg/pgas/collectives/alltoall"
	"github.com/jabolina/go-pgas/pkg/pgas/collectives/barrier"
	"github.com/jabolina/go-pgas/pkg/pgas/collectives/broadcast"
	"github.com/jabolina/go-pgas/pkg/pgas/collectives/collect"
	"github.com/jabolina/go-pgas/pkg/pgas/collectives/reduce"
	"github.com/jabolina/go-pgas/pkg/pgas/teams"
	"github.com/jabolina/go-pgas/pkg/pgas/types"
)

// Default builds the registry every process starts with, wiring in
// every algorithm the barrier/broadcast/collect/alltoall/reduce
// subpackages export (spec.md §4.5) and setting a default algorithm
// for each class. Algorithms that need a barrier callback (the
// barrier-synchronized shift-exchange, xor-pairwise and color-pairwise
// all-to-all variants) resolve the registry's default barrier on every
// call, so a config-driven override of the barrier algorithm also
// changes what all-to-all waits on between rounds.
func Default() *Registry {
	r := NewRegistry()

	r.RegisterBarrier(barrier.Linear, barrier.DoLinear)
	r.RegisterBarrier(barrier.CompleteTree, barrier.DoCompleteTree)
	r.RegisterBarrier(barrier.Binomial, barrier.DoBinomial)
	r.RegisterBarrier(barrier.KNomial+"-4", barrier.DoKNomial(4))
	r.RegisterBarrier(barrier.KNomial+"-8", barrier.DoKNomial(8))
	r.RegisterBarrier(barrier.Dissemination, barrier.DoDissemination)
	r.SetDefault(types.ClassBarrier, barrier.Dissemination)

	r.RegisterBroadcast(broadcast.Linear, broadcast.DoLinear)
	r.RegisterBroadcast(broadcast.CompleteTree, broadcast.DoCompleteTree)
	r.RegisterBroadcast(broadcast.Binomial, broadcast.DoBinomial)
	r.RegisterBroadcast(broadcast.KNomial+"-4", broadcast.DoKNomial(4))
	r.RegisterBroadcast(broadcast.KNomial+"-8", broadcast.DoKNomial(8))
	r.RegisterBroadcast(broadcast.KNomialSignal+"-4", broadcast.DoKNomialSignal(4))
	r.RegisterBroadcast(broadcast.KNomialSignal+"-8", broadcast.DoKNomialSignal(8))
	r.RegisterBroadcast(broadcast.ScatterCollect, broadcast.DoScatterCollect)
	r.SetDefault(types.ClassBroadcast, broadcast.CompleteTree)

	r.RegisterCollect(collect.Linear, collect.DoLinear)
	r.RegisterCollect(collect.Ring, collect.DoRing)
	r.RegisterCollect(collect.Bruck, collect.DoBruck)
	r.RegisterCollect(collect.RecursiveDoubling, collect.DoRecursiveDoubling)
	r.RegisterCollect(collect.NeighborExchange, collect.DoNeighborExchange)
	r.SetDefault(types.ClassCollect, collect.Ring)

	barrierFn := func(ctx context.Context, team *teams.Team) *types.Fault {
		fn, fault := r.Barrier("")
		if fault != nil {
			return fault
		}
		return fn(ctx, team)
	}
	r.RegisterAllToAll(alltoall.ShiftExchangeBarrier, alltoall.DoShiftExchangeBarrier(barrierFn))
	r.RegisterAllToAll(alltoall.ShiftExchangeCounter, alltoall.DoShiftExchangeCounter)
	r.RegisterAllToAll(alltoall.ShiftExchangeSignal, alltoall.DoShiftExchangeSignal)
	r.RegisterAllToAll(alltoall.XorPairwiseBarrier, alltoall.DoXorPairwiseBarrier(barrierFn))
	r.RegisterAllToAll(alltoall.XorPairwiseCounter, alltoall.DoXorPairwiseCounter)
	r.RegisterAllToAll(alltoall.XorPairwiseSignal, alltoall.DoXorPairwiseSignal)
	r.RegisterAllToAll(alltoall.ColorPairwiseBarrier, alltoall.DoColorPairwiseBarrier(barrierFn))
	r.RegisterAllToAll(alltoall.ColorPairwiseCounter, alltoall.DoColorPairwiseCounter)
	r.RegisterAllToAll(alltoall.ColorPairwiseSignal, alltoall.DoColorPairwiseSignal)
	r.SetDefault(types.ClassAllToAll, alltoall.ShiftExchangeCounter)

	r.RegisterAllToAllS(alltoall.StridedShiftExchange, alltoall.DoStridedShiftExchange)

	r.RegisterReduce(reduce.Linear, reduce.DoLinear)
	r.RegisterReduce(reduce.Binomial, reduce.DoBinomial)
	r.RegisterReduce(reduce.RecursiveDoubling, reduce.DoRecursiveDoubling)
	r.RegisterReduce(reduce.Rabenseifner, reduce.DoRabenseifner)
	r.SetDefault(types.ClassReduce, reduce.Binomial)

	return r
}
