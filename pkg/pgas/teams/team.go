// Package teams implements the team capability (spec.md §4.3,
// component E): PE subgroups with their own rank/size numbering, a
// pSync pool per collective class, and the translate_pe mapping
// between a team's local numbering and any other team's. Team
// construction is collective — every member calls split/create in the
// same program order — so symmetric pSync storage can be handed out
// by a plain monotonic Allocator (see alloc.go) instead of requiring
// an out-of-band address exchange.
//
// Teams deliberately know nothing about the collectives registry
// (component F): collectives.Barrier and friends take a *Team and
// read its pSync slots, member list and context through the
// exported accessors below. That keeps the dependency one-directional
// (collectives -> teams) instead of circular.
package teams

import (
	"sync"

	"github.com/jabolina/go-pgas/pkg/pgas/context"
	"github.com/jabolina/go-pgas/pkg/pgas/memory"
	"github.com/jabolina/go-pgas/pkg/pgas/transport"
	"github.com/jabolina/go-pgas/pkg/pgas/types"
)

// classCount is the number of types.CollectiveClass values; the
// pSync pool reserves one PSyncSize array per class.
const classCount = 5

// Team is a PE subgroup: a local rank/size numbering over a subset of
// world, a forward map from team-local rank to world PE and its
// reverse, and a symmetric pSync pool for the collective algorithms
// that run over it.
type Team struct {
	mu sync.RWMutex

	name   types.TeamName // non-empty only for predefined teams
	parent *Team

	rank   int // team-local rank of the calling PE, or -1 if not a member
	nranks int

	fwd map[int]types.PE // team-local rank -> world PE
	rev map[types.PE]int // world PE -> team-local rank

	cfg types.TeamConfig

	mem    *memory.Map
	region types.RegionID
	base   uintptr

	ctx       *context.Context
	ctxts     []*context.Context
	destroyed bool
}

// Rank returns the calling PE's team-local rank, or types.InvalidPE if
// it is not a member of this team.
func (t *Team) Rank() types.PE {
	if t.rank < 0 {
		return types.InvalidPE
	}
	return types.PE(t.rank)
}

// Size returns the team's member count.
func (t *Team) Size() int { return t.nranks }

// Member reports whether the calling PE belongs to this team.
func (t *Team) Member() bool { return t.rank >= 0 }

// Self returns the calling PE's world id, the address every transport
// call and pSync read/write targets. Panics if called on a PE that is
// not a member, since no algorithm should run over a team it is not
// in.
func (t *Team) Self() types.PE {
	t.mu.RLock()
	defer t.mu.RUnlock()
	pe, ok := t.fwd[t.rank]
	if !ok {
		panic("teams: Self called on a non-member PE")
	}
	return pe
}

// Name returns the team's name for predefined teams, or "" otherwise.
func (t *Team) Name() types.TeamName { return t.name }

// Parent returns the team this one was split from, or nil for a
// predefined team.
func (t *Team) Parent() *Team { return t.parent }

// WorldPE maps a team-local rank to its world PE, reporting false if
// local is out of range.
func (t *Team) WorldPE(local int) (types.PE, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	pe, ok := t.fwd[local]
	return pe, ok
}

// LocalRank maps a world PE to its team-local rank, reporting false if
// the PE is not a member.
func (t *Team) LocalRank(pe types.PE) (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	local, ok := t.rev[pe]
	return local, ok
}

// Context is the team's default communication context, used by the
// collectives registry to issue puts/gets/atomics against pSync and
// application buffers.
func (t *Team) Context() *context.Context { return t.ctx }

// PSyncAddr returns the symmetric address of class's pSync array,
// classCount*types.PSyncSize int64 slots wide per team.
func (t *Team) PSyncAddr(class types.CollectiveClass) uintptr {
	return t.base + uintptr(class)*uintptr(types.PSyncSize)*8
}

// TranslatePE maps srcPE's rank in srcTeam to its rank in dstTeam,
// returning types.InvalidPE if srcPE is not a member of srcTeam or has
// no corresponding member in dstTeam (spec.md §4.3 translate_pe).
func TranslatePE(srcTeam *Team, srcLocal int, dstTeam *Team) types.PE {
	world, ok := srcTeam.WorldPE(srcLocal)
	if !ok {
		return types.InvalidPE
	}
	dstLocal, ok := dstTeam.LocalRank(world)
	if !ok {
		return types.InvalidPE
	}
	return types.PE(dstLocal)
}

// CreateCtx derives a new context over this team's member set, private
// if requested (spec.md §4.2/§4.3). The context is tracked so Destroy
// can free it along with the team, unless the caller keeps a separate
// reference after the team is destroyed, which is then the caller's
// responsibility.
func (t *Team) CreateCtx(trans transport.Transport, ordering context.Ordering, private bool) *context.Context {
	c := context.New(t.mem, trans, ordering, private)
	t.mu.Lock()
	t.ctxts = append(t.ctxts, c)
	t.mu.Unlock()
	return c
}

// Destroy releases the team's pSync region and derived contexts.
// Predefined teams (world, shared) cannot be destroyed: that is a
// fatal misuse per spec.md §7 (types.TeamDestroyPredefined).
func (t *Team) Destroy() *types.Fault {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.name != "" {
		return types.NewFaultf(types.TeamDestroyPredefined, "teams", "team %q is predefined and cannot be destroyed", t.name)
	}
	if t.destroyed {
		return nil
	}
	t.mem.Unregister(t.region)
	t.ctxts = nil
	t.destroyed = true
	return nil
}

func newTeam(mem *memory.Map, trans transport.Transport, alloc *Allocator, name types.TeamName, parent *Team, rank, nranks int, fwd map[int]types.PE, rev map[types.PE]int) *Team {
	t := &Team{
		name: name, parent: parent,
		rank: rank, nranks: nranks,
		fwd: fwd, rev: rev,
		cfg: types.TeamConfig{NumContexts: 1},
		mem: mem,
	}
	t.region = alloc.NextRegion()
	t.base = alloc.Alloc(classCount * types.PSyncSize * 8)

	peerBase := make(map[types.PE]uintptr, nranks)
	for _, pe := range fwd {
		peerBase[pe] = t.base
	}
	mem.Register(&types.Region{
		ID:         t.region,
		Base:       t.base,
		Extent:     uintptr(classCount * types.PSyncSize * 8),
		RemoteKeys: map[types.PE]types.RemoteKey{},
		PeerBase:   peerBase,
	})

	t.ctx = context.New(mem, trans, context.Ordered, false)
	t.ctxts = []*context.Context{t.ctx}
	return t
}
