package test

import (
	"context"
	"testing"

	"github.com/jabolina/go-pgas/pkg/pgas"
)

func TestCluster_BootstrapAndShutdown(t *testing.T) {
	cluster := NewCluster(t, 3, 1<<16)
	cluster.Off()
}

func TestCluster_BarrierAndBroadcast(t *testing.T) {
	cluster := NewCluster(t, 4, 1<<16)
	defer cluster.Off()

	ctx := context.Background()
	done := make(chan struct{}, cluster.Size())
	for _, rt := range cluster.Runtimes {
		go func(rt *pgas.Runtime) {
			defer func() { done <- struct{}{} }()
			if fault := rt.BarrierAll(ctx, ""); fault != nil {
				t.Errorf("pe %v barrier: %v", rt.MyPE(), fault)
				return
			}

			src, fault := rt.SymmetricAlloc(8)
			if fault != nil {
				t.Errorf("pe %v alloc: %v", rt.MyPE(), fault)
				return
			}
			if rt.MyPE() == 0 {
				if fault := rt.PutInt64(ctx, src, 7, 0); fault != nil {
					t.Errorf("seed: %v", fault)
					return
				}
			}
			if fault := rt.BarrierAll(ctx, ""); fault != nil {
				t.Errorf("pe %v barrier: %v", rt.MyPE(), fault)
				return
			}

			dst, fault := rt.SymmetricAlloc(8)
			if fault != nil {
				t.Errorf("pe %v alloc: %v", rt.MyPE(), fault)
				return
			}
			if fault := rt.Broadcast(ctx, rt.World(), dst, src, 8, 0, ""); fault != nil {
				t.Errorf("pe %v broadcast: %v", rt.MyPE(), fault)
				return
			}
			v, fault := rt.GetInt64(ctx, dst, rt.MyPE())
			if fault != nil {
				t.Errorf("pe %v get: %v", rt.MyPE(), fault)
				return
			}
			if v != 7 {
				t.Errorf("pe %v saw broadcast value %d, want 7", rt.MyPE(), v)
			}
		}(rt)
	}
	for range cluster.Runtimes {
		<-done
	}
}

func TestCluster_AllToAll(t *testing.T) {
	cluster := NewCluster(t, 4, 1<<16)
	defer cluster.Off()

	n := cluster.Size()
	ctx := context.Background()
	done := make(chan struct{}, n)
	for _, rt := range cluster.Runtimes {
		go func(rt *pgas.Runtime) {
			defer func() { done <- struct{}{} }()
			src, fault := rt.SymmetricAlloc(4 * n)
			if fault != nil {
				t.Errorf("pe %v alloc: %v", rt.MyPE(), fault)
				return
			}
			dst, fault := rt.SymmetricAlloc(4 * n)
			if fault != nil {
				t.Errorf("pe %v alloc: %v", rt.MyPE(), fault)
				return
			}
			for j := 0; j < n; j++ {
				if fault := rt.PutInt32(ctx, src+uintptr(4*j), int32(rt.MyPE())*100+int32(j), rt.MyPE()); fault != nil {
					t.Errorf("seed: %v", fault)
					return
				}
			}
			if fault := rt.BarrierAll(ctx, ""); fault != nil {
				t.Errorf("pe %v barrier: %v", rt.MyPE(), fault)
				return
			}
			if fault := rt.AllToAll(ctx, rt.World(), dst, src, 4, ""); fault != nil {
				t.Errorf("pe %v alltoall: %v", rt.MyPE(), fault)
				return
			}
			for j := 0; j < n; j++ {
				v, fault := rt.GetInt32(ctx, dst+uintptr(4*j), rt.MyPE())
				if fault != nil {
					t.Errorf("pe %v get: %v", rt.MyPE(), fault)
					return
				}
				want := int32(j)*100 + int32(rt.MyPE())
				if v != want {
					t.Errorf("pe %v block %d = %d, want %d", rt.MyPE(), j, v, want)
				}
			}
		}(rt)
	}
	for range cluster.Runtimes {
		<-done
	}
}
