package memory

import (
	"testing"

	"github.com/jabolina/go-pgas/pkg/pgas/types"
)

func newHeap(id types.RegionID, base, extent uintptr, self types.PE, peers []types.PE) *types.Region {
	r := &types.Region{
		ID:         id,
		Base:       base,
		Extent:     extent,
		RemoteKeys: make(map[types.PE]types.RemoteKey),
		PeerBase:   make(map[types.PE]uintptr),
	}
	for i, pe := range peers {
		r.PeerBase[pe] = base + uintptr(i)*extent
		r.RemoteKeys[pe] = types.RemoteKey{byte(pe)}
	}
	return r
}

func TestMap_RegionOf_ScansNewestFirst(t *testing.T) {
	m := New(0)
	m.Register(newHeap(types.GlobalRegion, 0x1000, 0x100, 0, nil))
	m.Register(newHeap(1, 0x2000, 0x100, 0, nil))
	m.Register(newHeap(2, 0x3000, 0x100, 0, nil))

	id, ok := m.RegionOf(0x2050)
	if !ok || id != 1 {
		t.Fatalf("expected region 1, got %d ok=%v", id, ok)
	}

	if _, ok := m.RegionOf(0xdead); ok {
		t.Fatalf("expected non-symmetric address to miss")
	}
}

func TestMap_Translate_RoundTrip(t *testing.T) {
	peers := []types.PE{0, 1, 2}
	m0 := New(0)
	m0.Register(newHeap(1, 0x4000, 0x100, 0, peers))

	for _, q := range peers {
		remote := m0.Translate(0x4010, q)
		mq := New(q)
		hq := newHeap(1, 0x4000, 0x100, q, peers)
		hq.Base = hq.PeerBase[q]
		mq.Register(hq)
		back := mq.Translate(remote, 0)
		if back != 0x4010 {
			t.Fatalf("round trip through pe %d failed: got %#x", q, back)
		}
	}
}

func TestMap_Translate_NonSymmetricFails(t *testing.T) {
	m := New(0)
	m.Register(newHeap(1, 0x4000, 0x100, 0, []types.PE{0, 1}))
	if addr := m.Translate(0xbad, 1); addr != 0 {
		t.Fatalf("expected 0 for non-symmetric address, got %#x", addr)
	}
}

func TestMap_GlobalAddress(t *testing.T) {
	m := New(0)
	m.Register(newHeap(types.GlobalRegion, 0x1000, 0x100, 0, nil))
	m.Register(newHeap(1, 0x2000, 0x100, 0, nil))

	if !m.GlobalAddress(0x1050) {
		t.Fatalf("expected 0x1050 to be global")
	}
	if m.GlobalAddress(0x2050) {
		t.Fatalf("expected 0x2050 to not be global")
	}
}

func TestMap_UnregisterRemovesFromScan(t *testing.T) {
	m := New(0)
	m.Register(newHeap(1, 0x4000, 0x100, 0, nil))
	m.Unregister(1)
	if _, ok := m.RegionOf(0x4010); ok {
		t.Fatalf("expected region 1 to be gone")
	}
}
