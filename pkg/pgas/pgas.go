// Package pgas is the root of the library: process lifecycle
// (Init/InitThread/Finalize), the predefined teams, and the typed
// public entry points over RMA/AMO, the collectives registry, the MCS
// lock and point-to-point completion (spec.md §6, component N plus
// the typed facade over component O). Generalizes the teacher's root
// package, which held the single mcast.Unity entry point construction;
// here the equivalent construction is Init/InitThread building a
// *Runtime that every other call is a method on.
package pgas

import (
	"sync"

	"github.com/jabolina/go-pgas/pkg/pgas/bootstrap"
	pgascontext "github.com/jabolina/go-pgas/pkg/pgas/context"
	"github.com/jabolina/go-pgas/pkg/pgas/collectives"
	"github.com/jabolina/go-pgas/pkg/pgas/config"
	"github.com/jabolina/go-pgas/pkg/pgas/definition"
	"github.com/jabolina/go-pgas/pkg/pgas/memory"
	"github.com/jabolina/go-pgas/pkg/pgas/teams"
	"github.com/jabolina/go-pgas/pkg/pgas/transport"
	"github.com/jabolina/go-pgas/pkg/pgas/types"
)

// ThreadLevel mirrors OpenSHMEM's shmem_init_thread levels (spec.md
// §6): how much concurrent host-thread access to the library the
// caller promises to restrict itself to.
type ThreadLevel int

const (
	ThreadSingle ThreadLevel = iota
	ThreadFunneled
	ThreadSerialized
	ThreadMultiple
)

func (l ThreadLevel) String() string {
	switch l {
	case ThreadSingle:
		return "single"
	case ThreadFunneled:
		return "funneled"
	case ThreadSerialized:
		return "serialized"
	case ThreadMultiple:
		return "multiple"
	default:
		return "unknown-thread-level"
	}
}

// teamAllocBase and appHeapBase partition the symmetric address space
// this process hands out: team pSync pools grow up from
// teamAllocBase (via teams.Allocator), the convenience application
// heap (see Runtime.SymmetricAlloc) grows up from appHeapBase. Both
// bases are the same fixed constant on every PE, the same
// aligned-address convention teams.newTeam already relies on, so no
// out-of-band exchange is needed to keep them symmetric.
const (
	teamAllocBase uintptr = 0x00010000
	appHeapBase   uintptr = 0x01000000
)

// Runtime is one initialized PGAS process. The zero value is not
// usable; build one with Init or InitThread.
type Runtime struct {
	mu sync.Mutex

	boot   bootstrap.Bootstrap
	trans  transport.Transport
	mem    *memory.Map
	logger types.Logger
	cfg    *config.Config

	alloc    *teams.Allocator
	world    *teams.Team
	shared   *teams.Team
	registry *collectives.Registry

	thread    ThreadLevel
	heapRegID types.RegionID
	heapNext  uintptr
	heapLimit uintptr

	sink *definition.Sink

	finalized bool
}

var (
	globalMu sync.Mutex
	current  *Runtime
)

// InitThread initializes the process at the given requested thread
// level, reporting the level actually provided. This implementation
// always provides ThreadMultiple (every call here is already
// goroutine-safe), matching the teacher's "pick the strongest
// supported level and report it honestly" stance rather than
// silently downgrading.
func InitThread(requested ThreadLevel, boot bootstrap.Bootstrap, trans transport.Transport, cfg *config.Config) (ThreadLevel, *Runtime, *types.Fault) {
	globalMu.Lock()
	defer globalMu.Unlock()
	if current != nil {
		return ThreadSingle, nil, types.NewFaultf(types.NotInitialized, "pgas", "InitThread called while already initialized")
	}

	registry := collectives.Default()

	if cfg == nil {
		var fault *types.Fault
		cfg, fault = config.FromEnv(registry)
		if fault != nil {
			return ThreadSingle, nil, fault
		}
	}
	for class, name := range cfg.Algorithm {
		registry.SetDefault(class, name)
	}

	self := boot.Rank()
	nranks := boot.NRanks()
	logger := definition.NewDefaultLogger(int(self))
	logger.ToggleDebug(cfg.Debug)

	mem := memory.New(self)
	mem.Register(&types.Region{ID: types.GlobalRegion, Base: 0, Extent: 0, RemoteKeys: map[types.PE]types.RemoteKey{}, PeerBase: map[types.PE]uintptr{}})

	alloc := teams.NewAllocator(teamAllocBase)
	world := teams.NewWorld(self, nranks, mem, trans, alloc)
	shared := teams.NewShared(world, self, boot.NodeOf, mem, trans, alloc)

	rt := &Runtime{
		boot: boot, trans: trans, mem: mem, logger: logger, cfg: cfg,
		alloc: alloc, world: world, shared: shared,
		registry: registry,
		thread:   ThreadMultiple,
	}
	rt.sink = definition.NewSink(int(self), logger, func(status int) { boot.Abort("fatal error", status) })

	if cfg.Info && self == 0 {
		if err := config.PrintInfo(cfg, int(self), nranks, config.Stdout()); err != nil {
			logger.Warnf("failed printing SHMEM_INFO: %v", err)
		}
	}
	if cfg.PrintVersion && self == 0 {
		config.PrintVersion(config.Stdout())
	}

	peerBase := make(map[types.PE]uintptr, nranks)
	for i := 0; i < nranks; i++ {
		peerBase[types.PE(i)] = appHeapBase
	}
	rt.heapRegID = alloc.NextRegion()
	rt.heapNext = appHeapBase
	rt.heapLimit = appHeapBase + uintptr(cfg.HeapSize)
	mem.Register(&types.Region{
		ID: rt.heapRegID, Base: appHeapBase, Extent: uintptr(cfg.HeapSize),
		RemoteKeys: map[types.PE]types.RemoteKey{}, PeerBase: peerBase,
	})

	// Every PE reaches this point having registered the same regions
	// in the same order, so the out-of-band barrier only needs to
	// guarantee the transport on the far side is actually listening
	// before any one-sided call targets it.
	boot.Barrier()

	current = rt
	return rt.thread, rt, nil
}

// Init is InitThread with the strongest thread level requested, the
// common case for a process that does not itself spawn goroutines
// calling into pgas concurrently with a known-safe pattern.
func Init(boot bootstrap.Bootstrap, trans transport.Transport, cfg *config.Config) (*Runtime, *types.Fault) {
	_, rt, fault := InitThread(ThreadMultiple, boot, trans, cfg)
	return rt, fault
}

// Initialized reports whether the process-wide Runtime is live.
func Initialized() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return current != nil && !current.finalized
}

// Finalized reports whether Finalize has already run.
func Finalized() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return current != nil && current.finalized
}

// Finalize tears down the process-wide Runtime: one collective
// out-of-band barrier so no PE closes its transport while a peer
// still has an in-flight one-sided operation targeting it, then
// releases the bootstrap and transport.
func Finalize() *types.Fault {
	globalMu.Lock()
	rt := current
	globalMu.Unlock()
	if rt == nil {
		return types.NewFaultf(types.NotInitialized, "pgas", "Finalize called before Init/InitThread")
	}
	return rt.Finalize()
}

// Finalize is the instance method Finalize() delegates to, exported
// so a caller holding a *Runtime directly (as every test in this repo
// does, to avoid sharing global state between cases) need not go
// through the package-level singleton.
func (rt *Runtime) Finalize() *types.Fault {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.finalized {
		return nil
	}
	rt.boot.Barrier()
	if err := rt.trans.Close(); err != nil {
		rt.logger.Warnf("finalize: transport close: %v", err)
	}
	rt.boot.Shutdown()
	rt.finalized = true

	globalMu.Lock()
	if current == rt {
		current = nil
	}
	globalMu.Unlock()
	return nil
}

// MyPE returns the process-wide Runtime's calling PE id.
func MyPE() types.PE {
	globalMu.Lock()
	rt := current
	globalMu.Unlock()
	if rt == nil {
		return types.InvalidPE
	}
	return rt.MyPE()
}

// NPes returns the process-wide Runtime's total PE count.
func NPes() int {
	globalMu.Lock()
	rt := current
	globalMu.Unlock()
	if rt == nil {
		return 0
	}
	return rt.NPes()
}

// GlobalExit aborts the process-wide Runtime per spec.md §6.
func GlobalExit(message string, status int) {
	globalMu.Lock()
	rt := current
	globalMu.Unlock()
	if rt != nil {
		rt.GlobalExit(message, status)
	}
}

// GlobalExit logs message and passes it with status to the
// bootstrap's Abort (spec.md §6's global_exit). It returns once Abort
// returns; it does not exit the process itself.
func (rt *Runtime) GlobalExit(message string, status int) {
	rt.logger.Errorf("global_exit: %s (status %d)", message, status)
	rt.boot.Abort(message, status)
}

// Guard routes fault through the fatal-error sink if its kind is
// fatal (spec.md §7): the sink logs "[rank_R][file:line][fn]
// [ERROR] ..." and calls the bootstrap's Abort. Guard then returns
// fault unchanged, as it does for a recoverable fault or nil, so the
// caller's normal error path still runs.
func (rt *Runtime) Guard(fault *types.Fault) *types.Fault {
	rt.sink.Guard(fault)
	return fault
}

// MyPE returns the calling PE's world id.
func (rt *Runtime) MyPE() types.PE { return rt.world.Rank() }

// NPes returns the total PE count.
func (rt *Runtime) NPes() int { return rt.world.Size() }

// World returns the predefined world team.
func (rt *Runtime) World() *teams.Team { return rt.world }

// Shared returns the predefined shared (node-local) team.
func (rt *Runtime) Shared() *teams.Team { return rt.shared }

// Registry returns the collectives algorithm table, so a caller can
// register an additional algorithm or override a class default before
// running a collective.
func (rt *Runtime) Registry() *collectives.Registry { return rt.registry }

// Logger returns the process's logger.
func (rt *Runtime) Logger() types.Logger { return rt.logger }

// Mem returns the symmetric memory map, for callers that need to
// register their own regions rather than use SymmetricAlloc.
func (rt *Runtime) Mem() *memory.Map { return rt.mem }

// SplitStrided derives a new team from parent via spec.md §4.3's
// strided split.
func (rt *Runtime) SplitStrided(parent *teams.Team, start, stride, size int) (*teams.Team, *types.Fault) {
	return teams.SplitStrided(parent, start, stride, size, rt.mem, rt.trans, rt.alloc)
}

// Split2D derives row/column teams from parent via spec.md §4.3's 2-D
// split.
func (rt *Runtime) Split2D(parent *teams.Team, xrange int) (x, y *teams.Team, fault *types.Fault) {
	return teams.Split2D(parent, xrange, rt.mem, rt.trans, rt.alloc)
}

// CreateCtx derives an additional context over team, private if
// requested (spec.md §4.3).
func (rt *Runtime) CreateCtx(team *teams.Team, ordering pgascontext.Ordering, private bool) *pgascontext.Context {
	return team.CreateCtx(rt.trans, ordering, private)
}

// SymmetricAlloc bump-allocates nbytes from the process-wide
// application heap and returns its symmetric address. This sits
// outside spec.md's stated scope (the heap allocator is explicitly a
// separate, out-of-scope capability), but RMA and the collectives
// registry both operate on symmetric addresses that have to come from
// somewhere, so Runtime offers this minimal convenience the way the
// test harness in this repo hand-builds its own heap region. Like
// team creation, this must be called collectively (every PE in the
// same allocation order) since the bump offset is not exchanged.
func (rt *Runtime) SymmetricAlloc(nbytes int) (uintptr, *types.Fault) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	addr := rt.heapNext
	next := addr + uintptr(nbytes)
	if next > rt.heapLimit {
		return 0, types.NewFaultf(types.AllocFailure, "pgas", "symmetric heap exhausted: %d bytes requested, %d remaining", nbytes, rt.heapLimit-addr)
	}
	rt.heapNext = next
	return addr, nil
}
