package transport

import "github.com/jabolina/go-pgas/pkg/pgas/types"

// reqKind tags a wire request the way the teacher's types.Message tags
// a GMCast/Compute/Gather request.
type reqKind int

const (
	reqPut reqKind = iota
	reqGet
	reqAtomic
	reqPutSignal
)

// request is the envelope carried over the transport, whether that is
// an in-process call (LoopTransport) or a relt-broadcast, JSON-encoded
// message (ReltTransport). Generalizes the teacher's types.Message
// envelope (UID + header + payload) to an RMA request.
type request struct {
	UID      string
	Kind     reqKind
	From     types.PE
	Addr     uintptr
	Data     []byte
	Op       AtomicOp
	Operand  uint64
	Compare  uint64
	Width    int
	SigAddr  uintptr
	SigVal   uint64
	SigAdd   bool

	// ProtocolVersion is stamped by the sender and checked by the
	// receiver before servicing the request (ReltTransport only;
	// LoopTransport never crosses a real wire and leaves it empty).
	// Generalizes the teacher's RPCHeader.ProtocolVersion / checkRPCHeader.
	ProtocolVersion string
}

// response answers a request. Generalizes the teacher's
// GMCastResponse/ComputeResponse pattern (RPCHeader + Success +
// payload) down to what an RMA reply needs.
type response struct {
	UID     string
	Data    []byte
	Prior   uint64
	Success bool
	Err     string
}

// serviceRequest applies req against store, the way a real RDMA NIC
// would service an incoming one-sided operation against local memory.
// Shared by LoopTransport and ReltTransport so both implementations
// agree on RMA semantics; only the wire differs.
func serviceRequest(store LocalStore, req *request) *response {
	res := &response{UID: req.UID, Success: true}
	switch req.Kind {
	case reqPut:
		store.Write(req.Addr, req.Data)
	case reqGet:
		res.Data = store.Read(req.Addr, req.Width)
	case reqAtomic:
		res.Prior = store.Atomic(req.Addr, widthOf(req.Width), req.Op, req.Operand, req.Compare)
	case reqPutSignal:
		store.Write(req.Addr, req.Data)
		if req.SigAdd {
			store.Atomic(req.SigAddr, 8, AtomicAdd, req.SigVal, 0)
		} else {
			store.Atomic(req.SigAddr, 8, AtomicSet, req.SigVal, 0)
		}
	}
	return res
}

func widthOf(n int) int {
	if n == 4 {
		return 4
	}
	return 8
}
