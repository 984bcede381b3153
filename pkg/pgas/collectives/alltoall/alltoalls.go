package alltoall

import (
	"context"

	"github.com/jabolina/go-pgas/pkg/pgas/collectives/pwait"
	"github.com/jabolina/go-pgas/pkg/pgas/teams"
	"github.com/jabolina/go-pgas/pkg/pgas/types"
)

// StridedShiftExchange is alltoalls: the strided counterpart of
// all-to-all (spec.md §4.5.4), shifting through every partner while
// reading/writing elemSize blocks at dstStride/srcStride element
// spacing instead of contiguously.
const StridedShiftExchange = "strided-shift-exchange"

func stridedBlockOf(sym uintptr, rank, elemSize, stride int) uintptr {
	return sym + uintptr(rank*stride*elemSize)
}

// DoStridedShiftExchange is the strided variant of
// DoShiftExchangeCounter.
func DoStridedShiftExchange(ctx context.Context, team *teams.Team, dstSym, srcSym uintptr, elemSize, dstStride, srcStride int) *types.Fault {
	n := team.Size()
	if n == 0 {
		return nil
	}
	r := int(team.Rank())
	self := team.Self()
	base := team.PSyncAddr(types.ClassAllToAll)

	own := make([]byte, elemSize)
	if fault := team.Context().Get(ctx, own, stridedBlockOf(srcSym, r, elemSize, srcStride), self); fault != nil {
		return fault
	}
	if fault := team.Context().Put(ctx, stridedBlockOf(dstSym, r, elemSize, dstStride), own, self); fault != nil {
		return fault
	}

	for d := 1; d < n; d++ {
		partner := (r + d) % n
		partnerPE, ok := team.WorldPE(partner)
		if !ok {
			continue
		}
		mine := make([]byte, elemSize)
		if fault := team.Context().Get(ctx, mine, stridedBlockOf(srcSym, partner, elemSize, srcStride), self); fault != nil {
			return fault
		}
		if fault := team.Context().Put(ctx, stridedBlockOf(dstSym, r, elemSize, dstStride), mine, partnerPE); fault != nil {
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
