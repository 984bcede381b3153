// Package fuzzy stress-tests the runtime with concurrent collectives
// hammering a shared cluster and checks for goroutine leaks on
// shutdown, generalizing the teacher's Test_SequentialCommands/
// Test_ConcurrentCommands (repeated commands against a Unity cluster,
// goleak.VerifyNone after teardown) to repeated barrier/reduce rounds
// against a PE cluster.
package fuzzy

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/jabolina/go-pgas/pkg/pgas"
	"github.com/jabolina/go-pgas/pkg/pgas/types"
	pgastest "github.com/jabolina/go-pgas/test"
)

// Test_SequentialBarrierRounds drives the same barrier repeatedly, one
// round completing fully before the next starts, the way the
// teacher's sequential test issued one alphabet letter at a time and
// waited for the whole cluster to agree before sending the next.
func Test_SequentialBarrierRounds(t *testing.T) {
	cluster := pgastest.NewCluster(t, 3, 1<<16)
	defer func() {
		if !pgastest.WaitOrTimeout(cluster.Off, 30*time.Second) {
			t.Error("failed shutdown cluster")
		}
		goleak.VerifyNone(t)
	}()

	ctx := context.Background()
	for round := 0; round < 20; round++ {
		var wg sync.WaitGroup
		wg.Add(cluster.Size())
		for _, rt := range cluster.Runtimes {
			go func(rt *pgas.Runtime) {
				defer wg.Done()
				if fault := rt.BarrierAll(ctx, ""); fault != nil {
					t.Errorf("round %d pe %v barrier: %v", round, rt.MyPE(), fault)
				}
			}(rt)
		}
		wg.Wait()
	}
}

// Test_ConcurrentReduceRounds fires many concurrent reduce rounds
// across independent symmetric addresses, generalizing the teacher's
// concurrent-commands test (many simultaneous writes against one
// cluster) into many simultaneous collectives against one runtime
// set, each round synchronized by its own barrier so rounds never
// interleave on the same pSync pool.
func Test_ConcurrentReduceRounds(t *testing.T) {
	const rounds = 10
	cluster := pgastest.NewCluster(t, 4, 1<<20)
	defer func() {
		if !pgastest.WaitOrTimeout(cluster.Off, 30*time.Second) {
			t.Error("failed shutdown cluster")
		}
		goleak.VerifyNone(t)
	}()

	n := cluster.Size()
	ctx := context.Background()
	var wg sync.WaitGroup
	wg.Add(n)
	for _, rt := range cluster.Runtimes {
		go func(rt *pgas.Runtime) {
			defer wg.Done()
			for round := 0; round < rounds; round++ {
				src, fault := rt.SymmetricAlloc(4)
				if fault != nil {
					t.Errorf("pe %v alloc: %v", rt.MyPE(), fault)
					return
				}
				dst, fault := rt.SymmetricAlloc(4)
				if fault != nil {
					t.Errorf("pe %v alloc: %v", rt.MyPE(), fault)
					return
				}
				if fault := rt.PutInt32(ctx, src, int32(rt.MyPE())+1, rt.MyPE()); fault != nil {
					t.Errorf("round %d pe %v seed: %v", round, rt.MyPE(), fault)
					return
				}
				if fault := rt.BarrierAll(ctx, ""); fault != nil {
					t.Errorf("round %d pe %v barrier: %v", round, rt.MyPE(), fault)
					return
				}
				if fault := rt.Reduce(ctx, rt.World(), dst, src, 1, types.KindInt32, types.OpSum, ""); fault != nil {
					t.Errorf("round %d pe %v reduce: %v", round, rt.MyPE(), fault)
					return
				}
				sum, fault := rt.GetInt32(ctx, dst, rt.MyPE())
				if fault != nil {
					t.Errorf("round %d pe %v get: %v", round, rt.MyPE(), fault)
					return
				}
				if want := int32(n * (n + 1) / 2); sum != want {
					t.Errorf("round %d pe %v sum = %d, want %d", round, rt.MyPE(), sum, want)
				}
			}
		}(rt)
	}
	wg.Wait()
}
