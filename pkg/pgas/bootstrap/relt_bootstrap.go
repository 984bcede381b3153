package bootstrap

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jabolina/relt/pkg/relt"

	"github.com/jabolina/go-pgas/pkg/pgas/types"
)

// bootstrapGroup is the relt group every PE in the job joins for
// out-of-band coordination, independent of the per-PE mailboxes the
// transport capability uses.
const bootstrapGroup relt.GroupAddress = "pgas-bootstrap"

type wireKind int

const (
	wireBarrier wireKind = iota
	wireKV
)

type wireMsg struct {
	Kind wireKind
	From types.PE
	Gen  int
	Key  string
	Val  []byte
}

// ReltBootstrap is the production Bootstrap, using relt's reliable
// group broadcast for the out-of-band barrier and key-value exchange,
// grounded in the same relt.NewRelt/Broadcast/Consume shape the
// teacher's core/transport.go uses for the data path.
type ReltBootstrap struct {
	rank   types.PE
	nranks int
	peers  []string
	nodes  []int

	relt *relt.Relt
	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu      sync.Mutex
	cond    *sync.Cond
	arrived map[types.PE]bool
	gen     int
	kv      map[string][]byte
}

// NewReltBootstrap joins the bootstrap group and starts its consumer.
// peers and nodes describe the static launch-time PE set, the way a
// process-management service's rank/nranks/peers/nnodes query would
// (spec.md §6).
func NewReltBootstrap(rank types.PE, name string, peers []string, nodes []int) (*ReltBootstrap, error) {
	conf := relt.DefaultReltConfiguration()
	conf.Name = name
	conf.Exchange = bootstrapGroup
	r, err := relt.NewRelt(*conf)
	if err != nil {
		return nil, types.NewFaultf(types.TransportFailure, "bootstrap", "failed joining bootstrap group: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &ReltBootstrap{
		rank: rank, nranks: len(peers), peers: peers, nodes: nodes,
		relt: r, ctx: ctx, stop: cancel,
		arrived: make(map[types.PE]bool),
		kv:      make(map[string][]byte),
	}
	b.cond = sync.NewCond(&b.mu)
	b.wg.Add(1)
	go b.poll()
	return b, nil
}

func (b *ReltBootstrap) poll() {
	defer b.wg.Done()
	listener, err := b.relt.Consume()
	if err != nil {
		return
	}
	for {
		select {
		case <-b.ctx.Done():
			return
		case recv, ok := <-listener:
			if !ok {
				return
			}
			if recv.Error != nil || recv.Data == nil {
				continue
			}
			var msg wireMsg
			if err := json.Unmarshal(recv.Data, &msg); err != nil {
				continue
			}
			b.apply(msg)
		}
	}
}

func (b *ReltBootstrap) apply(msg wireMsg) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch msg.Kind {
	case wireBarrier:
		if msg.Gen == b.gen {
			b.arrived[msg.From] = true
			if len(b.arrived) == b.nranks {
				b.arrived = make(map[types.PE]bool)
				b.gen++
				b.cond.Broadcast()
			}
		}
	case wireKV:
		b.kv[msg.Key] = msg.Val
		b.cond.Broadcast()
	}
}

func (b *ReltBootstrap) publish(msg wireMsg) {
	data, _ := json.Marshal(msg)
	_ = b.relt.Broadcast(b.ctx, relt.Send{Address: bootstrapGroup, Data: data})
}

func (b *ReltBootstrap) Rank() types.PE    { return b.rank }
func (b *ReltBootstrap) NRanks() int       { return b.nranks }
func (b *ReltBootstrap) Peers() []string   { return b.peers }
func (b *ReltBootstrap) NNodes() int {
	seen := make(map[int]bool)
	for _, n := range b.nodes {
		seen[n] = true
	}
	return len(seen)
}
func (b *ReltBootstrap) NodeOf(pe types.PE) int {
	if int(pe) < 0 || int(pe) >= len(b.nodes) {
		return 0
	}
	return b.nodes[pe]
}

func (b *ReltBootstrap) Barrier() {
	b.mu.Lock()
	gen := b.gen
	b.mu.Unlock()

	b.publish(wireMsg{Kind: wireBarrier, From: b.rank, Gen: gen})

	b.mu.Lock()
	defer b.mu.Unlock()
	for b.gen == gen {
		b.cond.Wait()
	}
}

func (b *ReltBootstrap) KVPublish(key string, value []byte) {
	b.publish(wireMsg{Kind: wireKV, Key: key, Val: value})
}

func (b *ReltBootstrap) KVExchange(key string) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	for {
		if v, ok := b.kv[key]; ok {
			return v
		}
		b.cond.Wait()
	}
}

// Abort prints message and status to stdout and shuts down this PE's
// bootstrap. It sends nothing to the other PEs and does not exit the
// process.
func (b *ReltBootstrap) Abort(message string, status int) {
	fmt.Printf("[rank_%d] global_exit: %s (status %d)\n", b.rank, message, status)
	b.Shutdown()
}

func (b *ReltBootstrap) Shutdown() {
	b.stop()
	b.wg.Wait()
	_ = b.relt.Close()
}

var _ Bootstrap = (*ReltBootstrap)(nil)
