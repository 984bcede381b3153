package collectives_test

import (
	gocontext "context"
	"encoding/binary"
	"sync"
	"testing"

	"github.com/jabolina/go-pgas/pkg/pgas/collectives/alltoall"
	"github.com/jabolina/go-pgas/pkg/pgas/collectives/barrier"
	"github.com/jabolina/go-pgas/pkg/pgas/collectives/broadcast"
	"github.com/jabolina/go-pgas/pkg/pgas/collectives/reduce"
	"github.com/jabolina/go-pgas/pkg/pgas/memory"
	"github.com/jabolina/go-pgas/pkg/pgas/teams"
	"github.com/jabolina/go-pgas/pkg/pgas/transport"
	"github.com/jabolina/go-pgas/pkg/pgas/types"
)

// cluster builds n simulated PEs sharing one loopback network, each
// with its own memory map, transport, and world team, plus a single
// application-heap region (id 1) symmetric across all of them for
// collectives to read/write through.
func cluster(t *testing.T, n int) []*teams.Team {
	t.Helper()
	net := transport.NewNetwork()
	alloc := teams.NewAllocator(0x100000)
	worlds := make([]*teams.Team, n)

	for pe := 0; pe < n; pe++ {
		mem := memory.New(types.PE(pe))
		trans := transport.NewLoopTransport(net, types.PE(pe), transport.NewMapStore())

		peerBase := map[types.PE]uintptr{}
		for j := 0; j < n; j++ {
			peerBase[types.PE(j)] = 0x1000
		}
		mem.Register(&types.Region{ID: 1, Base: 0x1000, Extent: 0x1000, RemoteKeys: map[types.PE]types.RemoteKey{}, PeerBase: peerBase})

		worlds[pe] = teams.NewWorld(types.PE(pe), n, mem, trans, alloc)
	}
	return worlds
}

func runAll(n int, fn func(i int) *types.Fault) []*types.Fault {
	var wg sync.WaitGroup
	faults := make([]*types.Fault, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			faults[i] = fn(i)
		}(i)
	}
	wg.Wait()
	return faults
}

func TestBarrier_Linear(t *testing.T) {
	const n = 4
	worlds := cluster(t, n)
	faults := runAll(n, func(i int) *types.Fault {
		return barrier.DoLinear(gocontext.Background(), worlds[i])
	})
	for i, f := range faults {
		if f != nil {
			t.Fatalf("pe %d: %v", i, f)
		}
	}
}

func TestBarrier_Dissemination(t *testing.T) {
	const n = 5
	worlds := cluster(t, n)
	faults := runAll(n, func(i int) *types.Fault {
		return barrier.DoDissemination(gocontext.Background(), worlds[i])
	})
	for i, f := range faults {
		if f != nil {
			t.Fatalf("pe %d: %v", i, f)
		}
	}
}

func TestBroadcast_Linear(t *testing.T) {
	const n = 4
	const root = 1
	worlds := cluster(t, n)

	payload := []byte{9, 8, 7, 6}
	if f := worlds[root].Context().Put(gocontext.Background(), 0x1100, payload, types.PE(root)); f != nil {
		t.Fatalf("seed payload: %v", f)
	}

	faults := runAll(n, func(i int) *types.Fault {
		return broadcast.DoLinear(gocontext.Background(), worlds[i], 0x1200, 0x1100, len(payload), root)
	})
	for i, f := range faults {
		if f != nil {
			t.Fatalf("pe %d: %v", i, f)
		}
	}

	for i := 0; i < n; i++ {
		if i == root {
			continue
		}
		out := make([]byte, len(payload))
		if f := worlds[i].Context().Get(gocontext.Background(), out, 0x1200, types.PE(i)); f != nil {
			t.Fatalf("pe %d readback: %v", i, f)
		}
		for b := range payload {
			if out[b] != payload[b] {
				t.Fatalf("pe %d byte %d: got %d want %d", i, b, out[b], payload[b])
			}
		}
	}
}

func TestBroadcast_Binomial(t *testing.T) {
	const n = 6
	const root = 2
	worlds := cluster(t, n)

	payload := []byte{1, 2, 3, 4, 5}
	if f := worlds[root].Context().Put(gocontext.Background(), 0x1100, payload, types.PE(root)); f != nil {
		t.Fatalf("seed payload: %v", f)
	}

	faults := runAll(n, func(i int) *types.Fault {
		return broadcast.DoBinomial(gocontext.Background(), worlds[i], 0x1200, 0x1100, len(payload), root)
	})
	for i, f := range faults {
		if f != nil {
			t.Fatalf("pe %d: %v", i, f)
		}
	}

	for i := 0; i < n; i++ {
		if i == root {
			continue
		}
		out := make([]byte, len(payload))
		if f := worlds[i].Context().Get(gocontext.Background(), out, 0x1200, types.PE(i)); f != nil {
			t.Fatalf("pe %d readback: %v", i, f)
		}
		for b := range payload {
			if out[b] != payload[b] {
				t.Fatalf("pe %d byte %d: got %d want %d", i, b, out[b], payload[b])
			}
		}
	}
}

func TestAllToAll_XorPairwiseBarrier(t *testing.T) {
	const n = 4
	const elemSize = 4
	worlds := cluster(t, n)

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			buf := make([]byte, elemSize)
			binary.LittleEndian.PutUint32(buf, uint32(i*100+j))
			if f := worlds[i].Context().Put(gocontext.Background(), 0x1500+uintptr(j*elemSize), buf, types.PE(i)); f != nil {
				t.Fatalf("pe %d seed %d: %v", i, j, f)
			}
		}
	}

	fn := alltoall.DoXorPairwiseBarrier(barrier.DoDissemination)
	faults := runAll(n, func(i int) *types.Fault {
		return fn(gocontext.Background(), worlds[i], 0x1600, 0x1500, elemSize)
	})
	for i, f := range faults {
		if f != nil {
			t.Fatalf("pe %d: %v", i, f)
		}
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out := make([]byte, elemSize)
			if f := worlds[i].Context().Get(gocontext.Background(), out, 0x1600+uintptr(j*elemSize), types.PE(i)); f != nil {
				t.Fatalf("pe %d readback %d: %v", i, j, f)
			}
			want := uint32(j*100 + i)
			if got := binary.LittleEndian.Uint32(out); got != want {
				t.Fatalf("pe %d block %d: got %d want %d", i, j, got, want)
			}
		}
	}
}

func TestReduce_ValidOp(t *testing.T) {
	cases := []struct {
		kind types.ElemKind
		op   types.ReductionOp
		want bool
	}{
		{types.KindInt32, types.OpAnd, true},
		{types.KindFloat32, types.OpAnd, false},
		{types.KindFloat64, types.OpXor, false},
		{types.KindFloat64, types.OpMin, true},
		{types.KindComplex64, types.OpMax, false},
		{types.KindComplex128, types.OpSum, true},
	}
	for _, c := range cases {
		if got := reduce.ValidOp(c.kind, c.op); got != c.want {
			t.Errorf("ValidOp(%v, %v) = %v, want %v", c.kind, c.op, got, c.want)
		}
	}
}

func TestReduce_LinearSum(t *testing.T) {
	const n = 4
	worlds := cluster(t, n)

	for i := 0; i < n; i++ {
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(i+1)) // 1,2,3,4
		if f := worlds[i].Context().Put(gocontext.Background(), 0x1300, buf, types.PE(i)); f != nil {
			t.Fatalf("pe %d seed: %v", i, f)
		}
	}

	faults := runAll(n, func(i int) *types.Fault {
		return reduce.DoLinear(gocontext.Background(), worlds[i], 0x1400, 0x1300, 1, types.KindUint32, types.OpSum)
	})
	for i, f := range faults {
		if f != nil {
			t.Fatalf("pe %d: %v", i, f)
		}
	}

	for i := 0; i < n; i++ {
		out := make([]byte, 4)
		if f := worlds[i].Context().Get(gocontext.Background(), out, 0x1400, types.PE(i)); f != nil {
			t.Fatalf("pe %d readback: %v", i, f)
		}
		if got := binary.LittleEndian.Uint32(out); got != 10 {
			t.Fatalf("pe %d: sum got %d want 10", i, got)
		}
	}
}
