// Package pwait holds the small pSync spin-wait helpers every
// collective algorithm in pkg/pgas/collectives/* builds on: reading
// and writing an int64 slot at a symmetric pSync address through a
// team's context, and resetting a slot back to the free sentinel once
// a round completes (spec.md §4.3's pSync pool, §4.5's algorithm
// families).
package pwait

import (
	"context"
	"encoding/binary"

	"github.com/jabolina/go-pgas/pkg/pgas/teams"
	"github.com/jabolina/go-pgas/pkg/pgas/transport"
	"github.com/jabolina/go-pgas/pkg/pgas/types"
)

// Read loads the int64 at addr on the local PE (pe is always the
// caller's own world id: pSync reads never need to cross the wire
// since every transport routes a self-targeted Get through the local
// store directly).
func Read(ctx context.Context, team *teams.Team, self types.PE, addr uintptr) (int64, *types.Fault) {
	buf := make([]byte, 8)
	if fault := team.Context().Get(ctx, buf, addr, self); fault != nil {
		return 0, fault
	}
	return int64(binary.LittleEndian.Uint64(buf)), nil
}

// Write stores val at addr on pe.
func Write(ctx context.Context, team *teams.Team, pe types.PE, addr uintptr, val int64) *types.Fault {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(val))
	return team.Context().Put(ctx, addr, buf, pe)
}

// FetchAdd atomically adds delta to the int64 at addr on pe and
// returns the prior value.
func FetchAdd(ctx context.Context, team *teams.Team, pe types.PE, addr uintptr, delta int64) (int64, *types.Fault) {
	prior, fault := team.Context().Atomic(ctx, transport.AtomicFetchAdd, addr, uint64(delta), 0, pe)
	return int64(prior), fault
}

// SpinUntilEqual blocks until the int64 at addr on self equals want,
// yielding between polls.
func SpinUntilEqual(ctx context.Context, team *teams.Team, self types.PE, addr uintptr, want int64) *types.Fault {
	for {
		v, fault := Read(ctx, team, self, addr)
		if fault != nil {
			return fault
		}
		if v == want {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return types.NewFaultf(types.TransportFailure, "pwait", "spin cancelled: %v", err)
		}
		team.Context().Transport().Progress()
	}
}

// SpinUntilAtLeast blocks until the int64 at addr on self is >= want.
func SpinUntilAtLeast(ctx context.Context, team *teams.Team, self types.PE, addr uintptr, want int64) *types.Fault {
	for {
		v, fault := Read(ctx, team, self, addr)
		if fault != nil {
			return fault
		}
		if v >= want {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return types.NewFaultf(types.TransportFailure, "pwait", "spin cancelled: %v", err)
		}
		team.Context().Transport().Progress()
	}
}

// Reset writes the free sentinel (types.PSyncFree) to addr on pe.
func Reset(ctx context.Context, team *teams.Team, pe types.PE, addr uintptr) *types.Fault {
	return Write(ctx, team, pe, addr, types.PSyncFree)
}
