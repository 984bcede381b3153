// Package bootstrap implements the process-management capability
// (spec.md §1, component B): rank/nranks discovery, peer lists, an
// out-of-band barrier, and key-value exchange consumed once at
// Init/InitThread before the transport capability is usable.
package bootstrap

import "github.com/jabolina/go-pgas/pkg/pgas/types"

// Bootstrap is the capability spec.md §6 requires:
// init/finalize/abort/barrier/kv_publish/kv_exchange.
type Bootstrap interface {
	// Rank returns this process's global PE id.
	Rank() types.PE
	// NRanks returns the total PE count.
	NRanks() int
	// Peers returns the addressing information for every PE, indexed
	// by rank, in launch order. The format of each string is left to
	// the implementation (e.g. host:port strings for the relt-backed
	// bootstrap); callers only need len() and indexing.
	Peers() []string
	// NNodes returns the number of distinct physical nodes the PE set
	// spans, used to build the "shared" predefined team.
	NNodes() int
	// NodeOf returns the physical-node index of pe, used to build the
	// "shared" predefined team membership (PEs with equal NodeOf are
	// colocated).
	NodeOf(pe types.PE) int
	// Barrier blocks every PE until all have called it (out-of-band,
	// independent of any symmetric-memory pSync).
	Barrier()
	// KVPublish exposes a key/value pair for later KVExchange by any
	// other PE, used to bootstrap remote keys and heap bases before
	// the transport capability is fully wired.
	KVPublish(key string, value []byte)
	// KVExchange retrieves the value published under key by any PE,
	// blocking until it is available.
	KVExchange(key string) []byte
	// Abort asks every PE to terminate with the given status
	// (spec.md §6, "global_exit").
	Abort(message string, status int)
	// Shutdown releases the bootstrap's resources without aborting.
	Shutdown()
}
