package pgas

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/jabolina/go-pgas/pkg/pgas/transport"
	"github.com/jabolina/go-pgas/pkg/pgas/types"
)

// Put writes raw bytes to dstSym on pe over the world team's default
// context (spec.md §4.2).
func (rt *Runtime) Put(ctx context.Context, dstSym uintptr, src []byte, pe types.PE) *types.Fault {
	return rt.Guard(rt.world.Context().Put(ctx, dstSym, src, pe))
}

// PutNbi is Put's non-blocking variant.
func (rt *Runtime) PutNbi(ctx context.Context, dstSym uintptr, src []byte, pe types.PE) *types.Fault {
	return rt.world.Context().PutNbi(ctx, dstSym, src, pe)
}

// Get reads len(dst) raw bytes from srcSym on pe.
func (rt *Runtime) Get(ctx context.Context, dst []byte, srcSym uintptr, pe types.PE) *types.Fault {
	return rt.Guard(rt.world.Context().Get(ctx, dst, srcSym, pe))
}

// GetNbi is Get's non-blocking variant.
func (rt *Runtime) GetNbi(ctx context.Context, dst []byte, srcSym uintptr, pe types.PE) *types.Fault {
	return rt.world.Context().GetNbi(ctx, dst, srcSym, pe)
}

// IPut is the strided put (spec.md §4.2).
func (rt *Runtime) IPut(ctx context.Context, dstSym uintptr, src []byte, dstStride, srcStride, elemSize, nelems int, pe types.PE) *types.Fault {
	return rt.world.Context().IPut(ctx, dstSym, src, dstStride, srcStride, elemSize, nelems, pe)
}

// IGet is the strided get.
func (rt *Runtime) IGet(ctx context.Context, dst []byte, srcSym uintptr, dstStride, srcStride, elemSize, nelems int, pe types.PE) *types.Fault {
	return rt.world.Context().IGet(ctx, dst, srcSym, dstStride, srcStride, elemSize, nelems, pe)
}

// Fence orders this PE's subsequent operations to pe after its
// earlier ones.
func (rt *Runtime) Fence(ctx context.Context, pe types.PE) *types.Fault {
	return rt.world.Context().Fence(ctx, pe)
}

// Quiet blocks until every prior operation issued on the world
// context has completed remotely.
func (rt *Runtime) Quiet(ctx context.Context) *types.Fault {
	return rt.world.Context().Quiet(ctx)
}

func encodeWidth(kind types.ElemKind, v uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	if width(kind) == 4 {
		return buf[:4]
	}
	return buf
}

func width(kind types.ElemKind) int {
	switch kind {
	case types.KindInt32, types.KindUint32, types.KindFloat32:
		return 4
	default:
		return 8
	}
}

func decodeWidth(kind types.ElemKind, buf []byte) uint64 {
	if width(kind) == 4 {
		return uint64(binary.LittleEndian.Uint32(buf))
	}
	return binary.LittleEndian.Uint64(buf)
}

// PutInt32/PutInt64/PutUint64/PutFloat64 are the
// typed single-element put family spec.md §6 names per element kind
// (e.g. shmem_int_p), generalized here into one bit-width dispatch
// instead of one hand-written function per C type.
func (rt *Runtime) PutInt32(ctx context.Context, dstSym uintptr, value int32, pe types.PE) *types.Fault {
	return rt.Put(ctx, dstSym, encodeWidth(types.KindInt32, uint64(uint32(value))), pe)
}

func (rt *Runtime) PutUint64(ctx context.Context, dstSym uintptr, value uint64, pe types.PE) *types.Fault {
	return rt.Put(ctx, dstSym, encodeWidth(types.KindUint64, value), pe)
}

func (rt *Runtime) PutInt64(ctx context.Context, dstSym uintptr, value int64, pe types.PE) *types.Fault {
	return rt.Put(ctx, dstSym, encodeWidth(types.KindInt64, uint64(value)), pe)
}

func (rt *Runtime) PutFloat64(ctx context.Context, dstSym uintptr, value float64, pe types.PE) *types.Fault {
	return rt.Put(ctx, dstSym, encodeWidth(types.KindFloat64, math.Float64bits(value)), pe)
}

func (rt *Runtime) GetInt32(ctx context.Context, srcSym uintptr, pe types.PE) (int32, *types.Fault) {
	buf := make([]byte, 4)
	if fault := rt.Get(ctx, buf, srcSym, pe); fault != nil {
		return 0, fault
	}
	return int32(decodeWidth(types.KindInt32, buf)), nil
}

func (rt *Runtime) GetInt64(ctx context.Context, srcSym uintptr, pe types.PE) (int64, *types.Fault) {
	buf := make([]byte, 8)
	if fault := rt.Get(ctx, buf, srcSym, pe); fault != nil {
		return 0, fault
	}
	return int64(decodeWidth(types.KindInt64, buf)), nil
}

func (rt *Runtime) GetUint64(ctx context.Context, srcSym uintptr, pe types.PE) (uint64, *types.Fault) {
	buf := make([]byte, 8)
	if fault := rt.Get(ctx, buf, srcSym, pe); fault != nil {
		return 0, fault
	}
	return decodeWidth(types.KindUint64, buf), nil
}

func (rt *Runtime) GetFloat64(ctx context.Context, srcSym uintptr, pe types.PE) (float64, *types.Fault) {
	buf := make([]byte, 8)
	if fault := rt.Get(ctx, buf, srcSym, pe); fault != nil {
		return 0, fault
	}
	return math.Float64frombits(decodeWidth(types.KindFloat64, buf)), nil
}

// Atomic performs op, fetching or non-fetching
// (spec.md §4.2's AMO family), returning the prior value for fetching
// ops and 0 otherwise.
func (rt *Runtime) Atomic(ctx context.Context, op transport.AtomicOp, addrSym uintptr, operand, compare uint64, pe types.PE) (uint64, *types.Fault) {
	return rt.world.Context().Atomic(ctx, op, addrSym, operand, compare, pe)
}

// AtomicNbi is Atomic's non-blocking variant for non-fetching ops.
func (rt *Runtime) AtomicNbi(ctx context.Context, op transport.AtomicOp, addrSym uintptr, operand, compare uint64, pe types.PE) *types.Fault {
	return rt.world.Context().AtomicNbi(ctx, op, addrSym, operand, compare, pe)
}

// FetchAdd is the common case of Atomic(AtomicFetchAdd, ...).
func (rt *Runtime) FetchAdd(ctx context.Context, addrSym uintptr, delta int64, pe types.PE) (int64, *types.Fault) {
	prior, fault := rt.Atomic(ctx, transport.AtomicFetchAdd, addrSym, uint64(delta), 0, pe)
	return int64(prior), fault
}

// CompareSwap is the common case of Atomic(AtomicCompareSwap, ...).
func (rt *Runtime) CompareSwap(ctx context.Context, addrSym uintptr, compare, value uint64, pe types.PE) (uint64, *types.Fault) {
	return rt.Atomic(ctx, transport.AtomicCompareSwap, addrSym, value, compare, pe)
}
