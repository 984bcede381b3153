package ptp

import (
	gocontext "context"
	"encoding/binary"
	"testing"
	"time"

	pgascontext "github.com/jabolina/go-pgas/pkg/pgas/context"
	"github.com/jabolina/go-pgas/pkg/pgas/memory"
	"github.com/jabolina/go-pgas/pkg/pgas/transport"
	"github.com/jabolina/go-pgas/pkg/pgas/types"
)

func newCtx(t *testing.T) *pgascontext.Context {
	t.Helper()
	net := transport.NewNetwork()
	trans := transport.NewLoopTransport(net, 0, transport.NewMapStore())
	mem := memory.New(0)
	mem.Register(&types.Region{ID: 1, Base: 0x3000, Extent: 0x100, RemoteKeys: map[types.PE]types.RemoteKey{}, PeerBase: map[types.PE]uintptr{0: 0x3000}})
	return pgascontext.New(mem, trans, pgascontext.Ordered, false)
}

func writeI64(t *testing.T, c *pgascontext.Context, addr uintptr, val int64) {
	t.Helper()
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(val))
	if fault := c.Put(gocontext.Background(), addr, buf, 0); fault != nil {
		t.Fatalf("seed write: %v", fault)
	}
}

func TestTest_SatisfiesImmediately(t *testing.T) {
	c := newCtx(t)
	writeI64(t, c, 0x3000, 42)
	ok, fault := Test(gocontext.Background(), c, 0, 0x3000, types.CmpEQ, 42)
	if fault != nil {
		t.Fatalf("test: %v", fault)
	}
	if !ok {
		t.Fatalf("expected condition to hold")
	}
}

func TestWaitUntil_BlocksThenUnblocks(t *testing.T) {
	c := newCtx(t)
	writeI64(t, c, 0x3008, 0)

	done := make(chan *types.Fault, 1)
	go func() {
		done <- WaitUntil(gocontext.Background(), c, 0, 0x3008, types.CmpGE, 10)
	}()

	select {
	case <-done:
		t.Fatalf("wait_until returned before condition was satisfied")
	case <-time.After(20 * time.Millisecond):
	}

	writeI64(t, c, 0x3008, 10)
	select {
	case fault := <-done:
		if fault != nil {
			t.Fatalf("wait_until: %v", fault)
		}
	case <-time.After(time.Second):
		t.Fatalf("wait_until never unblocked")
	}
}

func TestWaitUntilAny(t *testing.T) {
	c := newCtx(t)
	writeI64(t, c, 0x3010, 0)
	writeI64(t, c, 0x3018, 0)

	conds := []Condition{
		{Addr: 0x3010, Cmp: types.CmpEQ, Value: 1},
		{Addr: 0x3018, Cmp: types.CmpEQ, Value: 1},
	}

	done := make(chan int, 1)
	go func() {
		i, fault := WaitUntilAny(gocontext.Background(), c, 0, conds)
		if fault != nil {
			t.Errorf("wait_until_any: %v", fault)
		}
		done <- i
	}()

	time.Sleep(10 * time.Millisecond)
	writeI64(t, c, 0x3018, 1)

	select {
	case i := <-done:
		if i != 1 {
			t.Fatalf("expected index 1 to be the satisfied condition, got %d", i)
		}
	case <-time.After(time.Second):
		t.Fatalf("wait_until_any never unblocked")
	}
}
