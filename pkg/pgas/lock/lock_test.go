package lock

import (
	gocontext "context"
	"sync"
	"sync/atomic"
	"testing"

	pgascontext "github.com/jabolina/go-pgas/pkg/pgas/context"
	"github.com/jabolina/go-pgas/pkg/pgas/memory"
	"github.com/jabolina/go-pgas/pkg/pgas/transport"
	"github.com/jabolina/go-pgas/pkg/pgas/types"
)

func TestLock_MutualExclusion(t *testing.T) {
	const n = 5
	const roundsPer = 20

	net := transport.NewNetwork()
	ctxs := make([]*pgascontext.Context, n)
	for pe := 0; pe < n; pe++ {
		mem := memory.New(types.PE(pe))
		trans := transport.NewLoopTransport(net, types.PE(pe), transport.NewMapStore())
		peerBase := map[types.PE]uintptr{}
		for j := 0; j < n; j++ {
			peerBase[types.PE(j)] = 0x2000
		}
		mem.Register(&types.Region{ID: 1, Base: 0x2000, Extent: 0x100, RemoteKeys: map[types.PE]types.RemoteKey{}, PeerBase: peerBase})
		ctxs[pe] = pgascontext.New(mem, trans, pgascontext.Ordered, false)
	}

	var critical int32
	var violations int32
	var wg sync.WaitGroup
	wg.Add(n)
	for pe := 0; pe < n; pe++ {
		go func(pe int) {
			defer wg.Done()
			h := New(ctxs[pe], 0x2000, n, 0x2008, 0x2010)
			ctx := gocontext.Background()
			for i := 0; i < roundsPer; i++ {
				if fault := h.Acquire(ctx, types.PE(pe)); fault != nil {
					t.Errorf("pe %d acquire: %v", pe, fault)
					return
				}
				if !atomic.CompareAndSwapInt32(&critical, 0, 1) {
					atomic.AddInt32(&violations, 1)
				}
				atomic.StoreInt32(&critical, 0)
				if fault := h.Release(ctx, types.PE(pe)); fault != nil {
					t.Errorf("pe %d release: %v", pe, fault)
					return
				}
			}
		}(pe)
	}
	wg.Wait()

	if violations != 0 {
		t.Fatalf("observed %d mutual-exclusion violations", violations)
	}
}

func TestLock_TryAcquireNonBlocking(t *testing.T) {
	const n = 2

	net := transport.NewNetwork()
	ctxs := make([]*pgascontext.Context, n)
	for pe := 0; pe < n; pe++ {
		mem := memory.New(types.PE(pe))
		trans := transport.NewLoopTransport(net, types.PE(pe), transport.NewMapStore())
		peerBase := map[types.PE]uintptr{}
		for j := 0; j < n; j++ {
			peerBase[types.PE(j)] = 0x3000
		}
		mem.Register(&types.Region{ID: 1, Base: 0x3000, Extent: 0x100, RemoteKeys: map[types.PE]types.RemoteKey{}, PeerBase: peerBase})
		ctxs[pe] = pgascontext.New(mem, trans, pgascontext.Ordered, false)
	}

	ctx := gocontext.Background()
	h0 := New(ctxs[0], 0x3000, n, 0x3008, 0x3010)
	h1 := New(ctxs[1], 0x3000, n, 0x3008, 0x3010)

	ok, fault := h0.TryAcquire(ctx, 0)
	if fault != nil {
		t.Fatalf("pe 0 try-acquire: %v", fault)
	}
	if !ok {
		t.Fatal("pe 0 expected to win an uncontended test_lock")
	}

	ok, fault = h1.TryAcquire(ctx, 1)
	if fault != nil {
		t.Fatalf("pe 1 try-acquire: %v", fault)
	}
	if ok {
		t.Fatal("pe 1 expected test_lock to fail while pe 0 holds the lock")
	}

	if fault := h0.Release(ctx, 0); fault != nil {
		t.Fatalf("pe 0 release: %v", fault)
	}

	ok, fault = h1.TryAcquire(ctx, 1)
	if fault != nil {
		t.Fatalf("pe 1 try-acquire after release: %v", fault)
	}
	if !ok {
		t.Fatal("pe 1 expected to win test_lock after pe 0 released")
	}
	if fault := h1.Release(ctx, 1); fault != nil {
		t.Fatalf("pe 1 release: %v", fault)
	}
}
