package context

import (
	gocontext "context"
	"testing"

	"github.com/jabolina/go-pgas/pkg/pgas/memory"
	"github.com/jabolina/go-pgas/pkg/pgas/transport"
	"github.com/jabolina/go-pgas/pkg/pgas/types"
)

func twoPEHeap(net *transport.Network) (*Context, *Context) {
	store0 := transport.NewMapStore()
	store1 := transport.NewMapStore()
	t0 := transport.NewLoopTransport(net, 0, store0)
	t1 := transport.NewLoopTransport(net, 1, store1)

	m0 := memory.New(0)
	m1 := memory.New(1)
	r0 := &types.Region{ID: 1, Base: 0x1000, Extent: 0x100, RemoteKeys: map[types.PE]types.RemoteKey{}, PeerBase: map[types.PE]uintptr{0: 0x1000, 1: 0x1000}}
	r1 := &types.Region{ID: 1, Base: 0x1000, Extent: 0x100, RemoteKeys: map[types.PE]types.RemoteKey{}, PeerBase: map[types.PE]uintptr{0: 0x1000, 1: 0x1000}}
	m0.Register(r0)
	m1.Register(r1)

	return New(m0, t0, Ordered, false), New(m1, t1, Ordered, false)
}

func TestContext_PutGet(t *testing.T) {
	net := transport.NewNetwork()
	c0, c1 := twoPEHeap(net)
	_ = c1

	ctx := gocontext.Background()
	payload := []byte{1, 2, 3, 4}
	if fault := c0.Put(ctx, 0x1010, payload, 1); fault != nil {
		t.Fatalf("put failed: %v", fault)
	}

	out := make([]byte, 4)
	if fault := c0.Get(ctx, out, 0x1010, 1); fault != nil {
		t.Fatalf("get failed: %v", fault)
	}
	for i := range payload {
		if out[i] != payload[i] {
			t.Fatalf("byte %d: got %d want %d", i, out[i], payload[i])
		}
	}
}

func TestContext_NotSymmetric(t *testing.T) {
	net := transport.NewNetwork()
	c0, _ := twoPEHeap(net)
	ctx := gocontext.Background()
	if fault := c0.Put(ctx, 0xdead, []byte{1}, 1); fault == nil || fault.Kind != types.NotSymmetric {
		t.Fatalf("expected NotSymmetric, got %v", fault)
	}
}

func TestContext_Atomic(t *testing.T) {
	net := transport.NewNetwork()
	c0, _ := twoPEHeap(net)
	ctx := gocontext.Background()

	prior, fault := c0.Atomic(ctx, transport.AtomicFetchAdd, 0x1020, 5, 0, 1)
	if fault != nil {
		t.Fatalf("atomic failed: %v", fault)
	}
	if prior != 0 {
		t.Fatalf("expected prior 0, got %d", prior)
	}

	prior, fault = c0.Atomic(ctx, transport.AtomicFetchAdd, 0x1020, 5, 0, 1)
	if fault != nil {
		t.Fatalf("atomic failed: %v", fault)
	}
	if prior != 5 {
		t.Fatalf("expected prior 5, got %d", prior)
	}
}

func TestContext_QuietDrainsNbi(t *testing.T) {
	net := transport.NewNetwork()
	c0, _ := twoPEHeap(net)
	ctx := gocontext.Background()

	for i := 0; i < 50; i++ {
		if fault := c0.PutNbi(ctx, 0x1030, []byte{byte(i)}, 1); fault != nil {
			t.Fatalf("put_nbi failed: %v", fault)
		}
	}
	if fault := c0.Quiet(ctx); fault != nil {
		t.Fatalf("quiet failed: %v", fault)
	}
}
