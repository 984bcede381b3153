// Package ptp implements the point-to-point completion family
// (spec.md §4.7, component M): wait_until/test over a local symmetric
// address and a comparison operator, plus the all/any/some vector
// variants for waiting on several addresses at once.
package ptp

import (
	"context"

	pgascontext "github.com/jabolina/go-pgas/pkg/pgas/context"
	"github.com/jabolina/go-pgas/pkg/pgas/types"
)

func read(ctx context.Context, c *pgascontext.Context, self types.PE, addr uintptr) (int64, *types.Fault) {
	buf := make([]byte, 8)
	if fault := c.Get(ctx, buf, addr, self); fault != nil {
		return 0, fault
	}
	var v int64
	for i := 7; i >= 0; i-- {
		v = v<<8 | int64(buf[i])
	}
	return v, nil
}

// Test is the non-blocking check: does the value at addr already
// satisfy cmp against value.
func Test(ctx context.Context, c *pgascontext.Context, self types.PE, addr uintptr, cmp types.CompareOp, value int64) (bool, *types.Fault) {
	observed, fault := read(ctx, c, self, addr)
	if fault != nil {
		return false, fault
	}
	return cmp.Satisfies(observed, value), nil
}

// WaitUntil blocks until the value at addr satisfies cmp against
// value, or ctx is cancelled.
func WaitUntil(ctx context.Context, c *pgascontext.Context, self types.PE, addr uintptr, cmp types.CompareOp, value int64) *types.Fault {
	for {
		ok, fault := Test(ctx, c, self, addr, cmp, value)
		if fault != nil {
			return fault
		}
		if ok {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return types.NewFaultf(types.TransportFailure, "ptp", "wait_until cancelled: %v", err)
		}
		c.Transport().Progress()
	}
}

// SignalWaitUntil blocks until the int64 signal at sig satisfies cmp
// against value, or ctx is cancelled, and returns the observed value.
// It is otherwise identical to WaitUntil, scoped to a signal word
// written by PutSignal.
func SignalWaitUntil(ctx context.Context, c *pgascontext.Context, self types.PE, sig uintptr, cmp types.CompareOp, value int64) (int64, *types.Fault) {
	for {
		observed, fault := read(ctx, c, self, sig)
		if fault != nil {
			return 0, fault
		}
		if cmp.Satisfies(observed, value) {
			return observed, nil
		}
		if err := ctx.Err(); err != nil {
			return 0, types.NewFaultf(types.TransportFailure, "ptp", "signal_wait_until cancelled: %v", err)
		}
		c.Transport().Progress()
	}
}

// Condition is one address/comparator/value triple, used by the
// vector wait_until/test variants.
type Condition struct {
	Addr  uintptr
	Cmp   types.CompareOp
	Value int64
}

// TestAll reports whether every condition currently holds.
func TestAll(ctx context.Context, c *pgascontext.Context, self types.PE, conds []Condition) (bool, *types.Fault) {
	for _, cond := range conds {
		ok, fault := Test(ctx, c, self, cond.Addr, cond.Cmp, cond.Value)
		if fault != nil {
			return false, fault
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// TestAny reports whether at least one condition currently holds, and
// if so, its index.
func TestAny(ctx context.Context, c *pgascontext.Context, self types.PE, conds []Condition) (int, bool, *types.Fault) {
	for i, cond := range conds {
		ok, fault := Test(ctx, c, self, cond.Addr, cond.Cmp, cond.Value)
		if fault != nil {
			return -1, false, fault
		}
		if ok {
			return i, true, nil
		}
	}
	return -1, false, nil
}

// TestSome reports the indices of every condition currently holding.
func TestSome(ctx context.Context, c *pgascontext.Context, self types.PE, conds []Condition) ([]int, *types.Fault) {
	var out []int
	for i, cond := range conds {
		ok, fault := Test(ctx, c, self, cond.Addr, cond.Cmp, cond.Value)
		if fault != nil {
			return nil, fault
		}
		if ok {
			out = append(out, i)
		}
	}
	return out, nil
}

// WaitUntilAll blocks until every condition holds.
func WaitUntilAll(ctx context.Context, c *pgascontext.Context, self types.PE, conds []Condition) *types.Fault {
	for {
		ok, fault := TestAll(ctx, c, self, conds)
		if fault != nil {
			return fault
		}
		if ok {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return types.NewFaultf(types.TransportFailure, "ptp", "wait_until_all cancelled: %v", err)
		}
		c.Transport().Progress()
	}
}

// WaitUntilAny blocks until at least one condition holds, returning
// its index.
func WaitUntilAny(ctx context.Context, c *pgascontext.Context, self types.PE, conds []Condition) (int, *types.Fault) {
	for {
		i, ok, fault := TestAny(ctx, c, self, conds)
		if fault != nil {
			return -1, fault
		}
		if ok {
			return i, nil
		}
		if err := ctx.Err(); err != nil {
			return -1, types.NewFaultf(types.TransportFailure, "ptp", "wait_until_any cancelled: %v", err)
		}
		c.Transport().Progress()
	}
}

// WaitUntilSome blocks until at least one condition holds, returning
// the indices of every condition that holds at that point.
func WaitUntilSome(ctx context.Context, c *pgascontext.Context, self types.PE, conds []Condition) ([]int, *types.Fault) {
	for {
		some, fault := TestSome(ctx, c, self, conds)
		if fault != nil {
			return nil, fault
		}
		if len(some) > 0 {
			return some, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, types.NewFaultf(types.TransportFailure, "ptp", "wait_until_some cancelled: %v", err)
		}
		c.Transport().Progress()
	}
}
