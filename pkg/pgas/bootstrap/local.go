package bootstrap

import (
	"sync"

	"github.com/jabolina/go-pgas/pkg/pgas/types"
)

// Group is the shared state backing a Local PE set: a barrier
// generation counter and a KV store, analogous to the teacher's
// UnityCluster driving several peers through one in-process harness.
type Group struct {
	mu      sync.Mutex
	cond    *sync.Cond
	arrived int
	gen     int
	n       int
	nodes   []int

	kvMu sync.Mutex
	kv   map[string][]byte
	kvCv *sync.Cond

	aborted    bool
	abortCh    chan struct{}
	abortOnce  sync.Once
	abortCode  int
}

// NewLocalGroup builds the shared state for n PEs, all reported as
// colocated on a single node unless nodes is supplied (nodes[i] is
// PE i's node index).
func NewLocalGroup(n int, nodes []int) *Group {
	if nodes == nil {
		nodes = make([]int, n)
	}
	g := &Group{n: n, nodes: nodes, kv: make(map[string][]byte), abortCh: make(chan struct{})}
	g.cond = sync.NewCond(&g.mu)
	g.kvCv = sync.NewCond(&g.kvMu)
	return g
}

// Local is the in-process Bootstrap implementation, one instance per
// simulated PE, all sharing a *Group. Grounded in the teacher's
// test.TestInvoker/UnityCluster pattern: no real network, just
// synchronization primitives standing in for the out-of-band channel.
type Local struct {
	rank types.PE
	g    *Group
}

// NewLocal builds the Bootstrap for PE rank within g.
func NewLocal(rank types.PE, g *Group) *Local {
	return &Local{rank: rank, g: g}
}

func (l *Local) Rank() types.PE { return l.rank }
func (l *Local) NRanks() int    { return l.g.n }

func (l *Local) Peers() []string {
	out := make([]string, l.g.n)
	for i := range out {
		out[i] = types.PE(i).String()
	}
	return out
}

func (l *Local) NNodes() int {
	seen := make(map[int]bool)
	for _, n := range l.g.nodes {
		seen[n] = true
	}
	return len(seen)
}

func (l *Local) NodeOf(pe types.PE) int {
	if int(pe) < 0 || int(pe) >= len(l.g.nodes) {
		return 0
	}
	return l.g.nodes[pe]
}

// Barrier blocks until every PE in the group has called Barrier,
// using a generation counter so a PE calling Barrier twice in a row
// (a second collective starting before a slow peer left the first)
// still waits for its own generation rather than racing ahead.
func (l *Local) Barrier() {
	g := l.g
	g.mu.Lock()
	defer g.mu.Unlock()
	gen := g.gen
	g.arrived++
	if g.arrived == g.n {
		g.arrived = 0
		g.gen++
		g.cond.Broadcast()
		return
	}
	for g.gen == gen {
		g.cond.Wait()
	}
}

func (l *Local) KVPublish(key string, value []byte) {
	g := l.g
	g.kvMu.Lock()
	defer g.kvMu.Unlock()
	g.kv[key] = append([]byte(nil), value...)
	g.kvCv.Broadcast()
}

func (l *Local) KVExchange(key string) []byte {
	g := l.g
	g.kvMu.Lock()
	defer g.kvMu.Unlock()
	for {
		if v, ok := g.kv[key]; ok {
			return append([]byte(nil), v...)
		}
		g.kvCv.Wait()
	}
}

func (l *Local) Abort(_ string, status int) {
	l.g.abortOnce.Do(func() {
		l.g.mu.Lock()
		l.g.aborted = true
		l.g.abortCode = status
		l.g.mu.Unlock()
		close(l.g.abortCh)
	})
}

// Aborted reports whether any PE in the group called Abort, and with
// what status; used by tests asserting on fatal-path behavior without
// actually calling os.Exit.
func (l *Local) Aborted() (bool, int) {
	l.g.mu.Lock()
	defer l.g.mu.Unlock()
	return l.g.aborted, l.g.abortCode
}

func (l *Local) Shutdown() {}

var _ Bootstrap = (*Local)(nil)
