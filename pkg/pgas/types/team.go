package types

// PSyncFree is the sentinel value every pSync slot must hold on entry
// to, and after the successful exit of, any collective that uses it
// (spec.md §3, "pSync" invariant).
const PSyncFree int64 = 0

// PSyncSize is the fixed capacity of a team's per-class pSync array.
// Dissemination barrier needs ceil(log2(N)) slots for the largest team
// this runtime supports in-process; bruck-family collect algorithms
// need one slot per round too. 64 rounds covers N up to 2^64.
const PSyncSize = 64

// TeamConfig holds the recognized team configuration options from
// spec.md §3 ("cfg").
type TeamConfig struct {
	// NumContexts is a hint for how many contexts the team may spawn.
	NumContexts int
}

// TeamName identifies one of the predefined teams, or "" for a
// user-created team.
type TeamName string

const (
	TeamWorld       TeamName = "world"
	TeamShared      TeamName = "shared"
	TeamNameInvalid TeamName = "invalid"
)
