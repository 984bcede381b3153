package teams

import (
	"testing"

	"github.com/jabolina/go-pgas/pkg/pgas/memory"
	"github.com/jabolina/go-pgas/pkg/pgas/transport"
	"github.com/jabolina/go-pgas/pkg/pgas/types"
)

func worldAt(self types.PE, nranks int) *Team {
	mem := memory.New(self)
	net := transport.NewNetwork()
	trans := transport.NewLoopTransport(net, self, transport.NewMapStore())
	alloc := NewAllocator(0x20000)
	return NewWorld(self, nranks, mem, trans, alloc)
}

func TestSplitStrided_Membership(t *testing.T) {
	// world of 8, strided split start=1 stride=2 size=3 -> {1,3,5}
	world := worldAt(3, 8)
	mem := memory.New(3)
	trans := transport.NewLoopTransport(transport.NewNetwork(), 3, transport.NewMapStore())
	alloc := NewAllocator(0x30000)

	team, fault := SplitStrided(world, 1, 2, 3, mem, trans, alloc)
	if fault != nil {
		t.Fatalf("split failed: %v", fault)
	}
	if team.Rank() != 1 {
		t.Fatalf("pe 3 expected rank 1 in {1,3,5}, got %v", team.Rank())
	}
	if team.Size() != 3 {
		t.Fatalf("expected size 3, got %d", team.Size())
	}
	for j, want := range []types.PE{1, 3, 5} {
		pe, ok := team.WorldPE(j)
		if !ok || pe != want {
			t.Fatalf("local %d: got %v ok=%v, want %v", j, pe, ok, want)
		}
	}
}

func TestSplitStrided_NotMember(t *testing.T) {
	world := worldAt(2, 8)
	mem := memory.New(2)
	trans := transport.NewLoopTransport(transport.NewNetwork(), 2, transport.NewMapStore())
	alloc := NewAllocator(0x40000)

	team, fault := SplitStrided(world, 1, 2, 3, mem, trans, alloc)
	if fault != nil {
		t.Fatalf("split failed: %v", fault)
	}
	if team.Member() {
		t.Fatalf("pe 2 should not be a member of {1,3,5}")
	}
	if team.Rank() != types.InvalidPE {
		t.Fatalf("expected InvalidPE, got %v", team.Rank())
	}
}

func TestSplitStrided_InvalidArgs(t *testing.T) {
	world := worldAt(0, 4)
	mem := memory.New(0)
	trans := transport.NewLoopTransport(transport.NewNetwork(), 0, transport.NewMapStore())
	alloc := NewAllocator(0x50000)

	if _, fault := SplitStrided(world, 0, 0, 2, mem, trans, alloc); fault == nil {
		t.Fatalf("expected failure for stride=0")
	}
}

func TestSplit2D_RowsAndColumns(t *testing.T) {
	// world of 7 PEs, xrange=3 -> rows {0,1,2},{3,4,5},{6}; columns {0,3,6},{1,4},{2,5}
	const n = 7
	const xrange = 3

	for pe := 0; pe < n; pe++ {
		world := worldAt(types.PE(pe), n)
		mem := memory.New(types.PE(pe))
		trans := transport.NewLoopTransport(transport.NewNetwork(), types.PE(pe), transport.NewMapStore())
		alloc := NewAllocator(uintptr(0x60000 + pe*0x1000))

		xTeam, yTeam, fault := Split2D(world, xrange, mem, trans, alloc)
		if fault != nil {
			t.Fatalf("pe %d: split2d failed: %v", pe, fault)
		}

		wantRow := pe / xrange
		wantRowSize := xrange
		if wantRow == n/xrange {
			wantRowSize = n % xrange
		}
		if xTeam.Size() != wantRowSize {
			t.Fatalf("pe %d: row size got %d want %d", pe, xTeam.Size(), wantRowSize)
		}
		if int(xTeam.Rank()) != pe%xrange {
			t.Fatalf("pe %d: row rank got %v want %d", pe, xTeam.Rank(), pe%xrange)
		}

		wantColSize := n/xrange + boolToInt(pe%xrange < n%xrange)
		if yTeam.Size() != wantColSize {
			t.Fatalf("pe %d: col size got %d want %d", pe, yTeam.Size(), wantColSize)
		}
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func TestSplit2D_InvalidXRange(t *testing.T) {
	world := worldAt(0, 4)
	mem := memory.New(0)
	trans := transport.NewLoopTransport(transport.NewNetwork(), 0, transport.NewMapStore())
	alloc := NewAllocator(0x70000)

	if _, _, fault := Split2D(world, 0, mem, trans, alloc); fault == nil {
		t.Fatalf("expected failure for xrange=0")
	}
}

func TestSplit2D_XRangeClampedToSize(t *testing.T) {
	world := worldAt(2, 4)
	mem := memory.New(2)
	trans := transport.NewLoopTransport(transport.NewNetwork(), 2, transport.NewMapStore())
	alloc := NewAllocator(0x80000)

	xTeam, yTeam, fault := Split2D(world, 100, mem, trans, alloc)
	if fault != nil {
		t.Fatalf("split2d failed: %v", fault)
	}
	if xTeam.Size() != 4 {
		t.Fatalf("expected row to absorb all 4 members when xrange clamps, got %d", xTeam.Size())
	}
	if yTeam.Size() != 1 {
		t.Fatalf("expected singleton column when xrange clamps, got %d", yTeam.Size())
	}
}

func TestTranslatePE(t *testing.T) {
	world := worldAt(4, 8)
	mem := memory.New(4)
	trans := transport.NewLoopTransport(transport.NewNetwork(), 4, transport.NewMapStore())
	alloc := NewAllocator(0x90000)

	team, fault := SplitStrided(world, 0, 2, 4, mem, trans, alloc) // {0,2,4,6}
	if fault != nil {
		t.Fatalf("split failed: %v", fault)
	}

	if got := TranslatePE(world, 4, team); got != 2 {
		t.Fatalf("world-local 4 -> team-local, got %v want 2", got)
	}
	if got := TranslatePE(world, 5, team); got != types.InvalidPE {
		t.Fatalf("world-local 5 is not in team, expected InvalidPE, got %v", got)
	}
}

func TestDestroy_PredefinedIsFatal(t *testing.T) {
	world := worldAt(0, 4)
	fault := world.Destroy()
	if fault == nil || fault.Kind != types.TeamDestroyPredefined {
		t.Fatalf("expected TeamDestroyPredefined, got %v", fault)
	}
	if !fault.Kind.Fatal() {
		t.Fatalf("TeamDestroyPredefined must be a fatal kind")
	}
}

func TestDestroy_DerivedTeamFreesRegion(t *testing.T) {
	world := worldAt(0, 4)
	mem := memory.New(0)
	trans := transport.NewLoopTransport(transport.NewNetwork(), 0, transport.NewMapStore())
	alloc := NewAllocator(0xa0000)

	team, fault := SplitStrided(world, 0, 1, 4, mem, trans, alloc)
	if fault != nil {
		t.Fatalf("split failed: %v", fault)
	}
	if fault := team.Destroy(); fault != nil {
		t.Fatalf("destroy failed: %v", fault)
	}
	if _, ok := mem.Region(team.region); ok {
		t.Fatalf("destroyed team's region should be unregistered")
	}
}
