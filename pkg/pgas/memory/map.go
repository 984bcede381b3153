// Package memory implements the symmetric memory map (spec.md §4.1,
// component C): the per-PE table of memory regions and the
// region-relative address translation every one-sided operation needs
// before it can hand an address to the transport capability.
package memory

import (
	"sync"

	"github.com/jabolina/go-pgas/pkg/pgas/types"
)

// Map is the symmetric memory map for one PE. It is safe for
// concurrent use: region registration happens at heap-allocation time
// and lookups happen on every RMA/AMO call, so reads must not block on
// writes from an unrelated allocation.
type Map struct {
	mu sync.RWMutex
	// order holds region ids from oldest to newest heap; RegionOf scans
	// it high-to-low so the newest (likeliest hot-path) heap is checked
	// first, per spec.md §4.1's stated rationale.
	order   []types.RegionID
	regions map[types.RegionID]*types.Region
	local   types.PE
}

// New builds an empty map for the given local PE rank.
func New(local types.PE) *Map {
	return &Map{
		regions: make(map[types.RegionID]*types.Region),
		local:   local,
	}
}

// Register adds or replaces a region. Regions are expected to be
// registered in creation order (region 0 first); RegionOf relies on
// that order to scan newest-first.
func (m *Map) Register(r *types.Region) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.regions[r.ID]; !exists {
		m.order = append(m.order, r.ID)
	}
	m.regions[r.ID] = r
}

// Unregister removes a region, e.g. when a user heap is freed.
// GlobalRegion can never be unregistered.
func (m *Map) Unregister(id types.RegionID) {
	if id == types.GlobalRegion {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.regions, id)
	for i, rid := range m.order {
		if rid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// RegionOf returns the region containing local, scanning regions
// high-to-low (newest heap first), or false if local is not symmetric.
func (m *Map) RegionOf(local uintptr) (types.RegionID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.order) - 1; i >= 0; i-- {
		r := m.regions[m.order[i]]
		if r.Contains(local) {
			return r.ID, true
		}
	}
	return 0, false
}

// GlobalAddress reports whether addr lies in region 0.
func (m *Map) GlobalAddress(addr uintptr) bool {
	id, ok := m.RegionOf(addr)
	return ok && id == types.GlobalRegion
}

// Translate returns the address equivalent to local on targetPE, or 0
// if local is not symmetric on the caller. For region 0 under
// aligned-address builds (no PeerBase entries recorded) the address is
// identity; otherwise translation is base-relative per spec.md §3:
//
//	base_r[target] + (local - base_r[caller])
func (m *Map) Translate(local uintptr, target types.PE) uintptr {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.regionOfLocked(local)
	if !ok {
		return 0
	}
	r := m.regions[id]
	if id == types.GlobalRegion && len(r.PeerBase) == 0 {
		return local
	}
	targetBase, ok := r.PeerBase[target]
	if !ok {
		return 0
	}
	return targetBase + (local - r.Base)
}

func (m *Map) regionOfLocked(local uintptr) (types.RegionID, bool) {
	for i := len(m.order) - 1; i >= 0; i-- {
		r := m.regions[m.order[i]]
		if r.Contains(local) {
			return r.ID, true
		}
	}
	return 0, false
}

// RemoteKey returns the remote-access credential for region on target,
// or nil if unknown.
func (m *Map) RemoteKey(region types.RegionID, target types.PE) types.RemoteKey {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.regions[region]
	if !ok {
		return nil
	}
	return r.RemoteKeys[target]
}

// Region returns the region descriptor for id, if registered.
func (m *Map) Region(id types.RegionID) (*types.Region, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.regions[id]
	return r, ok
}
