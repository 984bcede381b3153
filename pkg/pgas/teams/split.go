package teams

import (
	"github.com/jabolina/go-pgas/pkg/pgas/memory"
	"github.com/jabolina/go-pgas/pkg/pgas/transport"
	"github.com/jabolina/go-pgas/pkg/pgas/types"
)

// NewWorld builds the predefined "world" team: every PE in the job,
// team-local rank equal to world PE id.
func NewWorld(self types.PE, nranks int, mem *memory.Map, trans transport.Transport, alloc *Allocator) *Team {
	fwd := make(map[int]types.PE, nranks)
	rev := make(map[types.PE]int, nranks)
	for i := 0; i < nranks; i++ {
		fwd[i] = types.PE(i)
		rev[types.PE(i)] = i
	}
	return newTeam(mem, trans, alloc, types.TeamWorld, nil, int(self), nranks, fwd, rev)
}

// NewShared builds the predefined "shared" team: the subset of world
// colocated with the calling PE on the same node, ordered by world PE
// id (spec.md §4.3).
func NewShared(world *Team, self types.PE, nodeOf func(types.PE) int, mem *memory.Map, trans transport.Transport, alloc *Allocator) *Team {
	myNode := nodeOf(self)
	fwd := make(map[int]types.PE)
	rev := make(map[types.PE]int)
	rank := -1
	j := 0
	for i := 0; i < world.nranks; i++ {
		pe := types.PE(i)
		if nodeOf(pe) != myNode {
			continue
		}
		fwd[j] = pe
		rev[pe] = j
		if pe == self {
			rank = j
		}
		j++
	}
	return newTeam(mem, trans, alloc, types.TeamShared, world, rank, j, fwd, rev)
}

// SplitStrided builds a team from every start+i*stride member of
// parent, i in [0,size), per spec.md §4.3's strided split. The
// calling PE's new rank is its position in that sequence, or
// types.InvalidPE if it is not selected.
func SplitStrided(parent *Team, start, stride, size int, mem *memory.Map, trans transport.Transport, alloc *Allocator) (*Team, *types.Fault) {
	if stride <= 0 || size <= 0 || start < 0 {
		return nil, types.NewFaultf(types.AlgorithmUnsupported, "teams", "invalid strided split start=%d stride=%d size=%d", start, stride, size)
	}

	fwd := make(map[int]types.PE, size)
	rev := make(map[types.PE]int, size)
	rank := -1
	for j := 0; j < size; j++ {
		parentLocal := start + j*stride
		if parentLocal < 0 || parentLocal >= parent.nranks {
			continue
		}
		world, ok := parent.WorldPE(parentLocal)
		if !ok {
			continue
		}
		fwd[j] = world
		rev[world] = j
		if parentLocal == parent.rank {
			rank = j
		}
	}
	return newTeam(mem, trans, alloc, "", parent, rank, size, fwd, rev), nil
}

// Split2D lays parent's members out row-major with xrange columns and
// returns the caller's row team (x-axis) and column team (y-axis), per
// spec.md §4.3. xrange is clamped down to parent.Size() if larger; a
// non-positive xrange is rejected.
func Split2D(parent *Team, xrange int, mem *memory.Map, trans transport.Transport, alloc *Allocator) (xTeam, yTeam *Team, fault *types.Fault) {
	if xrange <= 0 {
		return nil, nil, types.NewFaultf(types.AlgorithmUnsupported, "teams", "invalid 2d split xrange=%d", xrange)
	}
	n := parent.nranks
	if xrange > n {
		xrange = n
	}

	myRow, myCol := -1, -1
	if parent.rank >= 0 {
		myRow = parent.rank / xrange
		myCol = parent.rank % xrange
	}

	// x-axis team: the caller's row.
	xFwd := make(map[int]types.PE)
	xRev := make(map[types.PE]int)
	xRank := -1
	if myRow >= 0 {
		rowStart := myRow * xrange
		j := 0
		for p := rowStart; p < n && p < rowStart+xrange; p++ {
			world, ok := parent.WorldPE(p)
			if !ok {
				continue
			}
			xFwd[j] = world
			xRev[world] = j
			if p == parent.rank {
				xRank = j
			}
			j++
		}
		xTeam = newTeam(mem, trans, alloc, "", parent, xRank, len(xFwd), xFwd, xRev)
	}

	// y-axis team: every parent-local rank congruent to myCol mod xrange.
	yFwd := make(map[int]types.PE)
	yRev := make(map[types.PE]int)
	yRank := -1
	if myCol >= 0 {
		j := 0
		for p := myCol; p < n; p += xrange {
			world, ok := parent.WorldPE(p)
			if !ok {
				continue
			}
			yFwd[j] = world
			yRev[world] = j
			if p == parent.rank {
				yRank = j
			}
			j++
		}
		yTeam = newTeam(mem, trans, alloc, "", parent, yRank, len(yFwd), yFwd, yRev)
	}

	return xTeam, yTeam, nil
}
