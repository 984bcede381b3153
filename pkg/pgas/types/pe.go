package types

import "fmt"

// PE identifies a processing element by its index inside some team.
// The "world" team uses global ids; every other team's ids are local
// to that team and must be translated via teams.TranslatePE before being
// compared across teams.
type PE int

// InvalidPE is returned wherever a PE lookup misses, e.g. a caller that
// is not a member of the team it is asking about.
const InvalidPE PE = -1

func (p PE) String() string {
	if p == InvalidPE {
		return "invalid-pe"
	}
	return fmt.Sprintf("pe-%d", int(p))
}

// RegionID names one symmetric heap. Region 0 is the globals/text
// region; regions 1..K-1 are user-allocated heaps, most recently
// created first when scanned for containment (see memory.Map).
type RegionID int

// GlobalRegion is region 0: globals and text, identical virtual
// addresses across PEs under aligned-address builds.
const GlobalRegion RegionID = 0
