// Package test is the integration-test harness shared across the
// repository's test/ and fuzzy/ packages: a set of simulated PEs
// sharing one loopback network and bootstrap group, each with its own
// initialized *pgas.Runtime. Generalizes the teacher's
// CreateCluster/UnityCluster helper (one mcast.Unity per partition,
// built and torn down together) into one PGAS process per member.
package test

import (
	"sync"
	"testing"

	"github.com/jabolina/go-pgas/pkg/pgas"
	"github.com/jabolina/go-pgas/pkg/pgas/bootstrap"
	"github.com/jabolina/go-pgas/pkg/pgas/config"
	"github.com/jabolina/go-pgas/pkg/pgas/transport"
	"github.com/jabolina/go-pgas/pkg/pgas/types"
)

// Cluster is a set of simulated PEs, one *pgas.Runtime per member, all
// sharing a single in-process transport.Network and bootstrap.Group.
type Cluster struct {
	T        *testing.T
	Runtimes []*pgas.Runtime
}

// NewCluster builds and initializes n PEs concurrently, the way the
// teacher's CreateCluster spins up clusterSize peers before handing
// the cluster back to the test. heapBytes sizes each PE's symmetric
// heap (see pgas.Runtime.SymmetricAlloc).
func NewCluster(t *testing.T, n int, heapBytes uint64) *Cluster {
	t.Helper()
	net := transport.NewNetwork()
	group := bootstrap.NewLocalGroup(n, nil)

	var mu sync.Mutex
	var wg sync.WaitGroup
	runtimes := make([]*pgas.Runtime, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			boot := bootstrap.NewLocal(types.PE(i), group)
			trans := transport.NewLoopTransport(net, types.PE(i), transport.NewMapStore())
			cfg := &config.Config{HeapSize: heapBytes, Algorithm: map[types.CollectiveClass]string{}}
			rt, fault := pgas.Init(boot, trans, cfg)
			if fault != nil {
				t.Errorf("pe %d init: %v", i, fault)
				return
			}
			mu.Lock()
			runtimes[i] = rt
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	for i, rt := range runtimes {
		if rt == nil {
			t.Fatalf("pe %d never initialized", i)
		}
	}
	return &Cluster{T: t, Runtimes: runtimes}
}

// Size returns the number of PEs in the cluster.
func (c *Cluster) Size() int { return len(c.Runtimes) }

// Off finalizes every PE concurrently, mirroring UnityCluster.Off's
// parallel shutdown of every peer in the cluster.
func (c *Cluster) Off() {
	var wg sync.WaitGroup
	wg.Add(len(c.Runtimes))
	for _, rt := range c.Runtimes {
		go func(rt *pgas.Runtime) {
			defer wg.Done()
			if fault := rt.Finalize(); fault != nil {
				c.T.Errorf("finalize pe %v: %v", rt.MyPE(), fault)
			}
		}(rt)
	}
	wg.Wait()
}
