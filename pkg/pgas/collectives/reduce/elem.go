package reduce

import (
	"encoding/binary"
	"math"

	"github.com/jabolina/go-pgas/pkg/pgas/types"
)

// Width returns the wire width in bytes of one element of kind.
func Width(kind types.ElemKind) int {
	switch kind {
	case types.KindInt32, types.KindUint32, types.KindFloat32:
		return 4
	case types.KindInt64, types.KindUint64, types.KindFloat64, types.KindComplex64:
		return 8
	case types.KindComplex128:
		return 16
	default:
		return 8
	}
}

// Combine applies op to the elements at a and b (both Width(kind)
// bytes) and returns the result, used to fold one more contribution
// into a running accumulator. Callers must reject non-sensical
// combinations (and/or/xor on a float or complex kind, min/max on a
// complex kind) with ValidOp before reaching Combine; Combine itself
// assumes a valid pairing and falls back to sum for any op it doesn't
// recognize for kind.
func Combine(kind types.ElemKind, op types.ReductionOp, a, b []byte) []byte {
	switch kind {
	case types.KindInt32:
		return encodeI64(combineI64(op, int64(int32(binary.LittleEndian.Uint32(a))), int64(int32(binary.LittleEndian.Uint32(b)))), 4)
	case types.KindUint32:
		return encodeU64(combineU64(op, uint64(binary.LittleEndian.Uint32(a)), uint64(binary.LittleEndian.Uint32(b))), 4)
	case types.KindInt64:
		return encodeI64(combineI64(op, int64(binary.LittleEndian.Uint64(a)), int64(binary.LittleEndian.Uint64(b))), 8)
	case types.KindUint64:
		return encodeU64(combineU64(op, binary.LittleEndian.Uint64(a), binary.LittleEndian.Uint64(b)), 8)
	case types.KindFloat32:
		av := math.Float32frombits(binary.LittleEndian.Uint32(a))
		bv := math.Float32frombits(binary.LittleEndian.Uint32(b))
		out := make([]byte, 4)
		binary.LittleEndian.PutUint32(out, math.Float32bits(combineF32(op, av, bv)))
		return out
	case types.KindFloat64:
		av := math.Float64frombits(binary.LittleEndian.Uint64(a))
		bv := math.Float64frombits(binary.LittleEndian.Uint64(b))
		out := make([]byte, 8)
		binary.LittleEndian.PutUint64(out, math.Float64bits(combineF64(op, av, bv)))
		return out
	case types.KindComplex64:
		ar, ai := math.Float32frombits(binary.LittleEndian.Uint32(a[0:4])), math.Float32frombits(binary.LittleEndian.Uint32(a[4:8]))
		br, bi := math.Float32frombits(binary.LittleEndian.Uint32(b[0:4])), math.Float32frombits(binary.LittleEndian.Uint32(b[4:8]))
		ac, bc := complex(ar, ai), complex(br, bi)
		rc := combineC64(op, ac, bc)
		out := make([]byte, 8)
		binary.LittleEndian.PutUint32(out[0:4], math.Float32bits(real(rc)))
		binary.LittleEndian.PutUint32(out[4:8], math.Float32bits(imag(rc)))
		return out
	case types.KindComplex128:
		ar, ai := math.Float64frombits(binary.LittleEndian.Uint64(a[0:8])), math.Float64frombits(binary.LittleEndian.Uint64(a[8:16]))
		br, bi := math.Float64frombits(binary.LittleEndian.Uint64(b[0:8])), math.Float64frombits(binary.LittleEndian.Uint64(b[8:16]))
		ac, bc := complex(ar, ai), complex(br, bi)
		rc := combineC128(op, ac, bc)
		out := make([]byte, 16)
		binary.LittleEndian.PutUint64(out[0:8], math.Float64bits(real(rc)))
		binary.LittleEndian.PutUint64(out[8:16], math.Float64bits(imag(rc)))
		return out
	default:
		return append([]byte(nil), a...)
	}
}

func encodeI64(v int64, width int) []byte {
	out := make([]byte, width)
	switch width {
	case 4:
		binary.LittleEndian.PutUint32(out, uint32(int32(v)))
	default:
		binary.LittleEndian.PutUint64(out, uint64(v))
	}
	return out
}

func encodeU64(v uint64, width int) []byte {
	out := make([]byte, width)
	switch width {
	case 4:
		binary.LittleEndian.PutUint32(out, uint32(v))
	default:
		binary.LittleEndian.PutUint64(out, v)
	}
	return out
}

func combineI64(op types.ReductionOp, a, b int64) int64 {
	switch op {
	case types.OpAnd:
		return a & b
	case types.OpOr:
		return a | b
	case types.OpXor:
		return a ^ b
	case types.OpMin:
		if a < b {
			return a
		}
		return b
	case types.OpMax:
		if a > b {
			return a
		}
		return b
	case types.OpProd:
		return a * b
	default: // OpSum
		return a + b
	}
}

func combineU64(op types.ReductionOp, a, b uint64) uint64 {
	switch op {
	case types.OpAnd:
		return a & b
	case types.OpOr:
		return a | b
	case types.OpXor:
		return a ^ b
	case types.OpMin:
		if a < b {
			return a
		}
		return b
	case types.OpMax:
		if a > b {
			return a
		}
		return b
	case types.OpProd:
		return a * b
	default:
		return a + b
	}
}

func combineF32(op types.ReductionOp, a, b float32) float32 {
	switch op {
	case types.OpMin:
		if a < b {
			return a
		}
		return b
	case types.OpMax:
		if a > b {
			return a
		}
		return b
	case types.OpProd:
		return a * b
	default:
		return a + b
	}
}

func combineF64(op types.ReductionOp, a, b float64) float64 {
	switch op {
	case types.OpMin:
		if a < b {
			return a
		}
		return b
	case types.OpMax:
		if a > b {
			return a
		}
		return b
	case types.OpProd:
		return a * b
	default:
		return a + b
	}
}

func combineC64(op types.ReductionOp, a, b complex64) complex64 {
	if op == types.OpProd {
		return a * b
	}
	return a + b
}

func combineC128(op types.ReductionOp, a, b complex128) complex128 {
	if op == types.OpProd {
		return a * b
	}
	return a + b
}
