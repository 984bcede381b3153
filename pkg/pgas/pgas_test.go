package pgas

import (
	"context"
	"sync"
	"testing"

	"github.com/jabolina/go-pgas/pkg/pgas/bootstrap"
	"github.com/jabolina/go-pgas/pkg/pgas/collectives/barrier"
	"github.com/jabolina/go-pgas/pkg/pgas/config"
	"github.com/jabolina/go-pgas/pkg/pgas/transport"
	"github.com/jabolina/go-pgas/pkg/pgas/types"
)

func buildRuntimes(t *testing.T, n int) []*Runtime {
	t.Helper()
	net := transport.NewNetwork()
	group := bootstrap.NewLocalGroup(n, nil)

	var mu sync.Mutex
	var wg sync.WaitGroup
	rts := make([]*Runtime, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			boot := bootstrap.NewLocal(types.PE(i), group)
			trans := transport.NewLoopTransport(net, types.PE(i), transport.NewMapStore())
			cfg := &config.Config{HeapSize: 1 << 16, Algorithm: map[types.CollectiveClass]string{
				types.ClassBarrier: barrier.Linear,
			}}
			rt, fault := Init(boot, trans, cfg)
			if fault != nil {
				t.Errorf("pe %d init: %v", i, fault)
				return
			}
			mu.Lock()
			rts[i] = rt
			mu.Unlock()
		}(i)
	}
	wg.Wait()
	for i, rt := range rts {
		if rt == nil {
			t.Fatalf("pe %d never initialized", i)
		}
	}
	return rts
}

func TestInitFinalize_Lifecycle(t *testing.T) {
	const n = 3
	rts := buildRuntimes(t, n)

	for i, rt := range rts {
		if got := rt.MyPE(); got != types.PE(i) {
			t.Fatalf("pe %d: MyPE() = %v", i, got)
		}
		if got := rt.NPes(); got != n {
			t.Fatalf("pe %d: NPes() = %d, want %d", i, got, n)
		}
	}

	var wg sync.WaitGroup
	wg.Add(n)
	for _, rt := range rts {
		go func(rt *Runtime) {
			defer wg.Done()
			if fault := rt.Finalize(); fault != nil {
				t.Errorf("finalize: %v", fault)
			}
			if !rt.finalized {
				t.Errorf("finalized flag not set")
			}
		}(rt)
	}
	wg.Wait()
}

func TestBarrierAllAndRMA(t *testing.T) {
	const n = 4
	rts := buildRuntimes(t, n)
	defer func() {
		var wg sync.WaitGroup
		wg.Add(n)
		for _, rt := range rts {
			go func(rt *Runtime) { defer wg.Done(); rt.Finalize() }(rt)
		}
		wg.Wait()
	}()

	ctx := context.Background()
	var wg sync.WaitGroup
	wg.Add(n)
	for _, rt := range rts {
		go func(rt *Runtime) {
			defer wg.Done()
			if fault := rt.BarrierAll(ctx, ""); fault != nil {
				t.Errorf("pe %v barrier: %v", rt.MyPE(), fault)
				return
			}

			addr, fault := rt.SymmetricAlloc(8)
			if fault != nil {
				t.Errorf("pe %v alloc: %v", rt.MyPE(), fault)
				return
			}
			if rt.MyPE() == 0 {
				if fault := rt.PutInt64(ctx, addr, 99, 0); fault != nil {
					t.Errorf("seed: %v", fault)
					return
				}
			}
			if fault := rt.BarrierAll(ctx, ""); fault != nil {
				t.Errorf("pe %v barrier: %v", rt.MyPE(), fault)
				return
			}
			v, fault := rt.GetInt64(ctx, addr, 0)
			if fault != nil {
				t.Errorf("get: %v", fault)
				return
			}
			if v != 99 {
				t.Errorf("pe %v saw %d, want 99", rt.MyPE(), v)
			}
		}(rt)
	}
	wg.Wait()
}

func TestReduceSum(t *testing.T) {
	const n = 4
	rts := buildRuntimes(t, n)
	defer func() {
		var wg sync.WaitGroup
		wg.Add(n)
		for _, rt := range rts {
			go func(rt *Runtime) { defer wg.Done(); rt.Finalize() }(rt)
		}
		wg.Wait()
	}()

	ctx := context.Background()
	var wg sync.WaitGroup
	wg.Add(n)
	for _, rt := range rts {
		go func(rt *Runtime) {
			defer wg.Done()
			src, fault := rt.SymmetricAlloc(4)
			if fault != nil {
				t.Errorf("alloc: %v", fault)
				return
			}
			dst, fault := rt.SymmetricAlloc(4)
			if fault != nil {
				t.Errorf("alloc: %v", fault)
				return
			}
			if fault := rt.PutInt32(ctx, src, int32(rt.MyPE())+1, rt.MyPE()); fault != nil {
				t.Errorf("seed: %v", fault)
				return
			}
			if fault := rt.BarrierAll(ctx, ""); fault != nil {
				t.Errorf("barrier: %v", fault)
				return
			}
			if fault := rt.Reduce(ctx, rt.World(), dst, src, 1, types.KindInt32, types.OpSum, ""); fault != nil {
				t.Errorf("reduce: %v", fault)
				return
			}
			sum, fault := rt.GetInt32(ctx, dst, rt.MyPE())
			if fault != nil {
				t.Errorf("get: %v", fault)
				return
			}
			if sum != n*(n+1)/2 {
				t.Errorf("pe %v sum = %d, want %d", rt.MyPE(), sum, n*(n+1)/2)
			}
		}(rt)
	}
	wg.Wait()
}
