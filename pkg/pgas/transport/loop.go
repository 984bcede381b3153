package transport

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jabolina/go-pgas/pkg/pgas/types"
)

// Network is a registry of in-process transports sharing a single PE
// set, the loopback analogue of the teacher's UnityCluster: instead of
// wiring real sockets, every PE's transport can reach every other
// PE's LocalStore directly. Used by tests and by single-process
// simulation of a PE set.
type Network struct {
	mu    sync.RWMutex
	peers map[types.PE]*LoopTransport
}

// NewNetwork builds an empty registry.
func NewNetwork() *Network {
	return &Network{peers: make(map[types.PE]*LoopTransport)}
}

func (n *Network) register(pe types.PE, t *LoopTransport) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.peers[pe] = t
}

func (n *Network) get(pe types.PE) (*LoopTransport, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	t, ok := n.peers[pe]
	return t, ok
}

// LoopTransport is the in-process Transport implementation. Pending
// (non-blocking) operations are tracked with a WaitGroup the way the
// teacher's test.TestInvoker tracks spawned goroutines, so Quiet can
// actually wait for them.
type LoopTransport struct {
	self    types.PE
	net     *Network
	store   LocalStore
	pending sync.WaitGroup
	seq     uint64
	closed  int32
}

// NewLoopTransport builds a transport for pe and registers it on net.
func NewLoopTransport(net *Network, pe types.PE, store LocalStore) *LoopTransport {
	t := &LoopTransport{self: pe, net: net, store: store}
	net.register(pe, t)
	return t
}

func (t *LoopTransport) nextUID() string {
	id := atomic.AddUint64(&t.seq, 1)
	return fmt.Sprintf("%d-%d", t.self, id)
}

func (t *LoopTransport) target(pe types.PE) (*LoopTransport, error) {
	peer, ok := t.net.get(pe)
	if !ok {
		return nil, types.NewFaultf(types.PeOutOfRange, "transport", "no such pe %d", pe)
	}
	return peer, nil
}

func (t *LoopTransport) doPut(pe types.PE, raddr uintptr, src []byte) error {
	peer, err := t.target(pe)
	if err != nil {
		return err
	}
	serviceRequest(peer.store, &request{UID: t.nextUID(), Kind: reqPut, From: t.self, Addr: raddr, Data: append([]byte(nil), src...)})
	return nil
}

func (t *LoopTransport) Put(_ context.Context, pe types.PE, raddr uintptr, _ types.RemoteKey, src []byte) error {
	return t.doPut(pe, raddr, src)
}

func (t *LoopTransport) PutNbi(_ context.Context, pe types.PE, raddr uintptr, _ types.RemoteKey, src []byte) error {
	t.pending.Add(1)
	cp := append([]byte(nil), src...)
	go func() {
		defer t.pending.Done()
		_ = t.doPut(pe, raddr, cp)
	}()
	return nil
}

func (t *LoopTransport) doGet(pe types.PE, raddr uintptr, n int) ([]byte, error) {
	peer, err := t.target(pe)
	if err != nil {
		return nil, err
	}
	res := serviceRequest(peer.store, &request{UID: t.nextUID(), Kind: reqGet, From: t.self, Addr: raddr, Width: n})
	return res.Data, nil
}

func (t *LoopTransport) Get(_ context.Context, pe types.PE, dst []byte, raddr uintptr, _ types.RemoteKey) error {
	data, err := t.doGet(pe, raddr, len(dst))
	if err != nil {
		return err
	}
	copy(dst, data)
	return nil
}

func (t *LoopTransport) GetNbi(ctx context.Context, pe types.PE, dst []byte, raddr uintptr, rkey types.RemoteKey) error {
	// Non-blocking get still must land before Quiet returns, but the
	// in-process store access is cheap enough to run synchronously,
	// so the data has landed before GetNbi returns, matching the
	// blocking variant's observable result without a real async fabric.
	return t.Get(ctx, pe, dst, raddr, rkey)
}

func (t *LoopTransport) doAtomic(pe types.PE, op AtomicOp, addr uintptr, operand, compare uint64, width int) (uint64, error) {
	peer, err := t.target(pe)
	if err != nil {
		return 0, err
	}
	res := serviceRequest(peer.store, &request{UID: t.nextUID(), Kind: reqAtomic, From: t.self, Addr: addr, Op: op, Operand: operand, Compare: compare, Width: width})
	return res.Prior, nil
}

func (t *LoopTransport) Atomic(_ context.Context, pe types.PE, op AtomicOp, addr uintptr, _ types.RemoteKey, operand, compare uint64) (uint64, error) {
	return t.doAtomic(pe, op, addr, operand, compare, 8)
}

func (t *LoopTransport) AtomicNbi(_ context.Context, pe types.PE, op AtomicOp, addr uintptr, _ types.RemoteKey, operand, compare uint64) error {
	t.pending.Add(1)
	go func() {
		defer t.pending.Done()
		_, _ = t.doAtomic(pe, op, addr, operand, compare, 8)
	}()
	return nil
}

func (t *LoopTransport) PutSignal(_ context.Context, pe types.PE, raddr uintptr, _ types.RemoteKey, src []byte, sigAddr uintptr, _ types.RemoteKey, sigVal uint64, sigAdd bool) error {
	peer, err := t.target(pe)
	if err != nil {
		return err
	}
	serviceRequest(peer.store, &request{
		UID: t.nextUID(), Kind: reqPutSignal, From: t.self,
		Addr: raddr, Data: append([]byte(nil), src...),
		SigAddr: sigAddr, SigVal: sigVal, SigAdd: sigAdd,
	})
	return nil
}

func (t *LoopTransport) PutSignalNbi(ctx context.Context, pe types.PE, raddr uintptr, rkey types.RemoteKey, src []byte, sigAddr uintptr, sigRkey types.RemoteKey, sigVal uint64, sigAdd bool) error {
	t.pending.Add(1)
	go func() {
		defer t.pending.Done()
		_ = t.PutSignal(ctx, pe, raddr, rkey, src, sigAddr, sigRkey, sigVal, sigAdd)
	}()
	return nil
}

func (t *LoopTransport) Fence(context.Context, types.PE) error {
	t.pending.Wait()
	return nil
}

func (t *LoopTransport) Quiet(context.Context) error {
	t.pending.Wait()
	return nil
}

func (t *LoopTransport) FenceTest(types.PE) bool { return true }
func (t *LoopTransport) QuietTest() bool {
	done := make(chan struct{})
	go func() {
		t.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	default:
		return false
	}
}

func (t *LoopTransport) SessionStart() {}
func (t *LoopTransport) SessionStop()  {}
func (t *LoopTransport) Progress()     {}

func (t *LoopTransport) Close() error {
	atomic.StoreInt32(&t.closed, 1)
	return nil
}

var _ Transport = (*LoopTransport)(nil)
