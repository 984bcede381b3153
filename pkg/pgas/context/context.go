// Package context implements the communication-context layer
// (spec.md §4.2, component D): an ordered channel to every PE with
// fence/quiet, built on top of the transport capability (component A)
// and the symmetric memory map (component C) that resolves a local
// symmetric address to a remote one before any one-sided call leaves
// the process.
package context

import (
	"context"
	"sync"

	"github.com/jabolina/go-pgas/pkg/pgas/memory"
	"github.com/jabolina/go-pgas/pkg/pgas/transport"
	"github.com/jabolina/go-pgas/pkg/pgas/types"
)

// Ordering is a context's ordering attribute (spec.md §3, "Context").
type Ordering int

const (
	Ordered Ordering = iota
	Unordered
)

// Context is a logical channel for one-sided operations. Default
// contexts are unordered=false (ordered) and shared; teams may create
// additional contexts (private or shared) per spec.md §4.3.
type Context struct {
	mem      *memory.Map
	trans    transport.Transport
	ordering Ordering
	private  bool

	mu       sync.Mutex
	sessions int
}

// New builds a context over the given memory map and transport.
func New(mem *memory.Map, trans transport.Transport, ordering Ordering, private bool) *Context {
	return &Context{mem: mem, trans: trans, ordering: ordering, private: private}
}

func (c *Context) resolve(sym uintptr, pe types.PE) (raddr uintptr, rkey types.RemoteKey, fault *types.Fault) {
	region, ok := c.mem.RegionOf(sym)
	if !ok {
		return 0, nil, types.NewFaultf(types.NotSymmetric, "context", "address %#x is not symmetric", sym)
	}
	raddr = c.mem.Translate(sym, pe)
	if raddr == 0 && sym != 0 {
		return 0, nil, types.NewFaultf(types.NotSymmetric, "context", "address %#x has no mapping on pe %v", sym, pe)
	}
	rkey = c.mem.RemoteKey(region, pe)
	return raddr, rkey, nil
}

// Put writes nbytes from src into dstSym on pe (spec.md §4.2).
func (c *Context) Put(ctx context.Context, dstSym uintptr, src []byte, pe types.PE) *types.Fault {
	raddr, rkey, fault := c.resolve(dstSym, pe)
	if fault != nil {
		return fault
	}
	if err := c.trans.Put(ctx, pe, raddr, rkey, src); err != nil {
		return wrap(err)
	}
	return nil
}

// PutNbi is Put's non-blocking variant.
func (c *Context) PutNbi(ctx context.Context, dstSym uintptr, src []byte, pe types.PE) *types.Fault {
	raddr, rkey, fault := c.resolve(dstSym, pe)
	if fault != nil {
		return fault
	}
	if err := c.trans.PutNbi(ctx, pe, raddr, rkey, src); err != nil {
		return wrap(err)
	}
	return nil
}

// Get reads len(dst) bytes from srcSym on pe into dst.
func (c *Context) Get(ctx context.Context, dst []byte, srcSym uintptr, pe types.PE) *types.Fault {
	raddr, rkey, fault := c.resolve(srcSym, pe)
	if fault != nil {
		return fault
	}
	if err := c.trans.Get(ctx, pe, dst, raddr, rkey); err != nil {
		return wrap(err)
	}
	return nil
}

// GetNbi is Get's non-blocking variant.
func (c *Context) GetNbi(ctx context.Context, dst []byte, srcSym uintptr, pe types.PE) *types.Fault {
	raddr, rkey, fault := c.resolve(srcSym, pe)
	if fault != nil {
		return fault
	}
	if err := c.trans.GetNbi(ctx, pe, dst, raddr, rkey); err != nil {
		return wrap(err)
	}
	return nil
}

// IPut is the strided put: nelems elements of elemSize bytes each,
// spaced dstStride elements apart at the destination and srcStride
// elements apart in src.
func (c *Context) IPut(ctx context.Context, dstSym uintptr, src []byte, dstStride, srcStride, elemSize, nelems int, pe types.PE) *types.Fault {
	for i := 0; i < nelems; i++ {
		chunk := src[i*srcStride*elemSize : i*srcStride*elemSize+elemSize]
		if fault := c.Put(ctx, dstSym+uintptr(i*dstStride*elemSize), chunk, pe); fault != nil {
			return fault
		}
	}
	return nil
}

// IGet is the strided get, the mirror of IPut.
func (c *Context) IGet(ctx context.Context, dst []byte, srcSym uintptr, dstStride, srcStride, elemSize, nelems int, pe types.PE) *types.Fault {
	for i := 0; i < nelems; i++ {
		chunk := dst[i*dstStride*elemSize : i*dstStride*elemSize+elemSize]
		if fault := c.Get(ctx, chunk, srcSym+uintptr(i*srcStride*elemSize), pe); fault != nil {
			return fault
		}
	}
	return nil
}

// PutSignal combines Put with a remote signal update, per spec.md
// §4.5.2's k-nomial-tree-signal broadcast and §6's put_signal.
func (c *Context) PutSignal(ctx context.Context, dstSym uintptr, src []byte, sigSym uintptr, sigVal uint64, sigAdd bool, pe types.PE) *types.Fault {
	raddr, rkey, fault := c.resolve(dstSym, pe)
	if fault != nil {
		return fault
	}
	sigAddr, sigRkey, fault := c.resolve(sigSym, pe)
	if fault != nil {
		return fault
	}
	if err := c.trans.PutSignal(ctx, pe, raddr, rkey, src, sigAddr, sigRkey, sigVal, sigAdd); err != nil {
		return wrap(err)
	}
	return nil
}

// Atomic executes op at addrSym on pe.
func (c *Context) Atomic(ctx context.Context, op transport.AtomicOp, addrSym uintptr, operand, compare uint64, pe types.PE) (uint64, *types.Fault) {
	raddr, rkey, fault := c.resolve(addrSym, pe)
	if fault != nil {
		return 0, fault
	}
	prior, err := c.trans.Atomic(ctx, pe, op, raddr, rkey, operand, compare)
	if err != nil {
		return 0, wrap(err)
	}
	if !op.Fetching() {
		return 0, nil
	}
	return prior, nil
}

// AtomicNbi is Atomic's non-blocking variant, valid for non-fetching
// ops (add/inc/set/and/or/xor) where the caller does not need the
// prior value.
func (c *Context) AtomicNbi(ctx context.Context, op transport.AtomicOp, addrSym uintptr, operand, compare uint64, pe types.PE) *types.Fault {
	raddr, rkey, fault := c.resolve(addrSym, pe)
	if fault != nil {
		return fault
	}
	if err := c.trans.AtomicNbi(ctx, pe, op, raddr, rkey, operand, compare); err != nil {
		return wrap(err)
	}
	return nil
}

// Fence orders subsequent operations to the same target after earlier
// ones issued on this context (spec.md §4.2).
func (c *Context) Fence(ctx context.Context, pe types.PE) *types.Fault {
	if err := c.trans.Fence(ctx, pe); err != nil {
		return wrap(err)
	}
	return nil
}

// Quiet blocks until all prior operations on this context have
// completed remotely.
func (c *Context) Quiet(ctx context.Context) *types.Fault {
	if err := c.trans.Quiet(ctx); err != nil {
		return wrap(err)
	}
	return nil
}

func (c *Context) FenceTest(pe types.PE) bool { return c.trans.FenceTest(pe) }
func (c *Context) QuietTest() bool            { return c.trans.QuietTest() }

// SessionStart/SessionStop bracket a burst of operations, tracked so
// nested sessions (a collective algorithm calling session_start while
// already inside one started by its caller) only start/stop the
// transport's hint once.
func (c *Context) SessionStart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessions == 0 {
		c.trans.SessionStart()
	}
	c.sessions++
}

func (c *Context) SessionStop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions--
	if c.sessions <= 0 {
		c.sessions = 0
		c.trans.SessionStop()
	}
}

func (c *Context) Ordering() Ordering { return c.ordering }
func (c *Context) Private() bool      { return c.private }

func (c *Context) Transport() transport.Transport { return c.trans }
func (c *Context) Memory() *memory.Map            { return c.mem }

func wrap(err error) *types.Fault {
	if f, ok := err.(*types.Fault); ok {
		return f
	}
	return types.NewFaultf(types.TransportFailure, "context", "%v", err)
}
