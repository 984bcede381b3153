package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jabolina/relt/pkg/relt"
	"github.com/prometheus/common/log"

	"github.com/jabolina/go-pgas/pkg/pgas/types"
)

// envelope is the wire frame carried over a relt broadcast: either a
// request bound for the target's mailbox or a response bound for the
// requester's own mailbox. Generalizes the teacher's plain
// types.Message (one concrete payload per frame) into a tagged union,
// since a single relt group here carries both RMA requests and
// replies.
type envelope struct {
	IsResponse bool
	Req        *request
	Res        *response
}

// mailbox names the relt group a PE listens on. Every PE's group is
// its own mailbox: requests and replies addressed to it land there,
// exactly as the teacher's core/transport.go binds one relt.Exchange
// per partition name.
func mailbox(pe types.PE) relt.GroupAddress {
	return relt.GroupAddress(fmt.Sprintf("pgas-pe-%d", pe))
}

// ReltTransport is the production Transport, layering one-sided
// put/get/atomics as a request/reply protocol over relt's reliable
// group broadcast. Grounded directly on the teacher's
// core/transport.go (ReliableTransport: relt.NewRelt + apply/poll/
// consume) and core/peer.go's observer map (Command's
// map[UID]observer correlating a reply to its waiting caller).
type ReltTransport struct {
	self  types.PE
	log   types.Logger
	relt  *relt.Relt
	store LocalStore

	mu      sync.Mutex
	pending map[string]chan *response

	ctx    context.Context
	cancel context.CancelFunc

	wg sync.WaitGroup
}

// NewReltTransport builds and starts a transport for pe. name should
// be unique per PE the way the teacher's peer.Name is unique per peer.
func NewReltTransport(pe types.PE, name string, store LocalStore, logger types.Logger) (*ReltTransport, error) {
	conf := relt.DefaultReltConfiguration()
	conf.Name = name
	conf.Exchange = mailbox(pe)
	r, err := relt.NewRelt(*conf)
	if err != nil {
		return nil, types.NewFaultf(types.TransportFailure, "transport", "failed starting relt for %s: %v", name, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &ReltTransport{
		self:    pe,
		log:     logger,
		relt:    r,
		store:   store,
		pending: make(map[string]chan *response),
		ctx:     ctx,
		cancel:  cancel,
	}
	t.wg.Add(1)
	go t.poll()
	return t, nil
}

// send broadcasts an envelope to dst's mailbox, matching the teacher's
// ReliableTransport.apply (json.Marshal + relt.Send{Address, Data}).
func (t *ReltTransport) send(dst types.PE, e *envelope) error {
	data, err := json.Marshal(e)
	if err != nil {
		log.Errorf("failed marshalling envelope %#v. %v", e, err)
		return types.NewFaultf(types.TransportFailure, "transport", "marshal: %v", err)
	}
	m := relt.Send{Address: mailbox(dst), Data: data}
	if err := t.relt.Broadcast(t.ctx, m); err != nil {
		return types.NewFaultf(types.TransportFailure, "transport", "broadcast to %v: %v", dst, err)
	}
	return nil
}

// roundTrip sends req to pe and blocks for the correlated response,
// the same shape as the teacher's Peer.Command observer wait but with
// a bounded timeout instead of an open channel, since an RMA op must
// not hang a collective forever on a dead peer.
func (t *ReltTransport) roundTrip(ctx context.Context, pe types.PE, req *request) (*response, error) {
	ch := make(chan *response, 1)
	t.mu.Lock()
	t.pending[req.UID] = ch
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		delete(t.pending, req.UID)
		t.mu.Unlock()
	}()

	req.ProtocolVersion = WireProtocolVersion
	if err := t.send(pe, &envelope{Req: req}); err != nil {
		return nil, err
	}

	timeout, cancel := context.WithTimeout(ctx, defaultRequestTimeout)
	defer cancel()
	select {
	case res := <-ch:
		if !res.Success {
			return res, types.NewFaultf(types.TransportFailure, "transport", "remote op failed: %s", res.Err)
		}
		return res, nil
	case <-timeout.Done():
		return nil, types.NewFaultf(types.TransportFailure, "transport", "timed out waiting for pe %v", pe)
	}
}

func (t *ReltTransport) poll() {
	defer t.wg.Done()
	listener, err := t.relt.Consume()
	if err != nil {
		t.log.Errorf("failed starting relt consumer for %v: %v", t.self, err)
		return
	}
	for {
		select {
		case <-t.ctx.Done():
			return
		case recv, ok := <-listener:
			if !ok {
				return
			}
			t.handle(relt.Recv{Data: recv.Data, Error: recv.Error})
		}
	}
}

// handle mirrors the teacher's ReliableTransport.consume: unmarshal,
// then either service an inbound request (replying to its sender) or
// resolve a pending round trip.
func (t *ReltTransport) handle(recv relt.Recv) {
	if recv.Error != nil {
		t.log.Errorf("failed consuming message: %v", recv.Error)
		return
	}
	if recv.Data == nil {
		return
	}
	var e envelope
	if err := json.Unmarshal(recv.Data, &e); err != nil {
		t.log.Errorf("failed unmarshalling envelope: %v", err)
		return
	}
	if e.IsResponse {
		t.mu.Lock()
		ch, ok := t.pending[e.Res.UID]
		t.mu.Unlock()
		if ok {
			select {
			case ch <- e.Res:
			case <-time.After(250 * time.Millisecond):
			}
		}
		return
	}

	var res *response
	if !compatibleProtocol(e.Req.ProtocolVersion) {
		t.log.Errorf("rejecting request %s from pe %v: incompatible protocol version %q (require >= %s)",
			e.Req.UID, e.Req.From, e.Req.ProtocolVersion, minSupportedProtocolVersion)
		res = &response{UID: e.Req.UID, Success: false, Err: "incompatible protocol version " + e.Req.ProtocolVersion}
	} else {
		res = serviceRequest(t.store, e.Req)
	}
	_ = t.send(e.Req.From, &envelope{IsResponse: true, Res: res})
}

func (t *ReltTransport) Put(ctx context.Context, pe types.PE, raddr uintptr, _ types.RemoteKey, src []byte) error {
	_, err := t.roundTrip(ctx, pe, &request{UID: t.uid(), Kind: reqPut, From: t.self, Addr: raddr, Data: src})
	return err
}

func (t *ReltTransport) PutNbi(ctx context.Context, pe types.PE, raddr uintptr, rkey types.RemoteKey, src []byte) error {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		_ = t.Put(ctx, pe, raddr, rkey, src)
	}()
	return nil
}

func (t *ReltTransport) Get(ctx context.Context, pe types.PE, dst []byte, raddr uintptr, _ types.RemoteKey) error {
	res, err := t.roundTrip(ctx, pe, &request{UID: t.uid(), Kind: reqGet, From: t.self, Addr: raddr, Width: len(dst)})
	if err != nil {
		return err
	}
	copy(dst, res.Data)
	return nil
}

func (t *ReltTransport) GetNbi(ctx context.Context, pe types.PE, dst []byte, raddr uintptr, rkey types.RemoteKey) error {
	return t.Get(ctx, pe, dst, raddr, rkey)
}

func (t *ReltTransport) Atomic(ctx context.Context, pe types.PE, op AtomicOp, addr uintptr, _ types.RemoteKey, operand, compare uint64) (uint64, error) {
	res, err := t.roundTrip(ctx, pe, &request{UID: t.uid(), Kind: reqAtomic, From: t.self, Addr: addr, Op: op, Operand: operand, Compare: compare, Width: 8})
	if err != nil {
		return 0, err
	}
	return res.Prior, nil
}

func (t *ReltTransport) AtomicNbi(ctx context.Context, pe types.PE, op AtomicOp, addr uintptr, rkey types.RemoteKey, operand, compare uint64) error {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		_, _ = t.Atomic(ctx, pe, op, addr, rkey, operand, compare)
	}()
	return nil
}

func (t *ReltTransport) PutSignal(ctx context.Context, pe types.PE, raddr uintptr, _ types.RemoteKey, src []byte, sigAddr uintptr, _ types.RemoteKey, sigVal uint64, sigAdd bool) error {
	_, err := t.roundTrip(ctx, pe, &request{
		UID: t.uid(), Kind: reqPutSignal, From: t.self, Addr: raddr, Data: src,
		SigAddr: sigAddr, SigVal: sigVal, SigAdd: sigAdd,
	})
	return err
}

func (t *ReltTransport) PutSignalNbi(ctx context.Context, pe types.PE, raddr uintptr, rkey types.RemoteKey, src []byte, sigAddr uintptr, sigRkey types.RemoteKey, sigVal uint64, sigAdd bool) error {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		_ = t.PutSignal(ctx, pe, raddr, rkey, src, sigAddr, sigRkey, sigVal, sigAdd)
	}()
	return nil
}

func (t *ReltTransport) Fence(context.Context, types.PE) error { return nil }

func (t *ReltTransport) Quiet(context.Context) error {
	t.wg.Wait()
	return nil
}

func (t *ReltTransport) FenceTest(types.PE) bool { return true }
func (t *ReltTransport) QuietTest() bool         { return true }
func (t *ReltTransport) SessionStart()           {}
func (t *ReltTransport) SessionStop()            {}
func (t *ReltTransport) Progress()               {}

func (t *ReltTransport) Close() error {
	t.cancel()
	t.wg.Wait()
	if err := t.relt.Close(); err != nil {
		t.log.Errorf("failed stopping transport. %v", err)
		return err
	}
	return nil
}

var uidCounter uint64

func (t *ReltTransport) uid() string {
	uidCounter++
	return fmt.Sprintf("%d-%d-%d", t.self, time.Now().UnixNano(), uidCounter)
}

var _ Transport = (*ReltTransport)(nil)
