// README: Zone resolution: which active zones contain a point, and which one wins.
package zone

import (
	"slices"
	"strings"

	"chauffeur/internal/types"
)

// Resolver answers point-in-zone queries over one immutable zone snapshot.
//
// When several zones contain a point, Resolve picks one by:
//  1. the organization's precedence list (codes listed earlier win),
//  2. the smallest area,
//  3. the zone code, ascending.
//
// Load order of the snapshot never matters.
type Resolver struct {
	zones []Zone
	rank  map[string]int
}

func NewResolver(zones []Zone, precedence []string) *Resolver {
	rank := make(map[string]int, len(precedence))
	for i, code := range precedence {
		code = strings.TrimSpace(code)
		if _, ok := rank[code]; !ok && code != "" {
			rank[code] = i
		}
	}
	active := make([]Zone, 0, len(zones))
	for _, z := range zones {
		if z.Active {
			active = append(active, z)
		}
	}
	r := &Resolver{zones: active, rank: rank}
	slices.SortStableFunc(r.zones, r.compare)
	return r
}

// Match returns every active zone containing p, best first. An empty result
// means the point is unzoned; that is not an error.
func (r *Resolver) Match(p types.Point) []Zone {
	var out []Zone
	for _, z := range r.zones {
		if z.Contains(p) {
			out = append(out, z)
		}
	}
	return out
}

// Resolve returns the winning zone for p.
func (r *Resolver) Resolve(p types.Point) (Zone, bool) {
	for _, z := range r.zones {
		if z.Contains(p) {
			return z, true
		}
	}
	return Zone{}, false
}

func (r *Resolver) compare(a, b Zone) int {
	ra, okA := r.rank[a.Code]
	rb, okB := r.rank[b.Code]
	switch {
	case okA && okB && ra != rb:
		if ra < rb {
			return -1
		}
		return 1
	case okA && !okB:
		return -1
	case !okA && okB:
		return 1
	}

	aa, ab := a.AreaKm2(), b.AreaKm2()
	if aa < ab {
		return -1
	}
	if aa > ab {
		return 1
	}
	return strings.Compare(a.Code, b.Code)
}

// IDs is a small helper for membership checks on match lists.
func IDs(zones []Zone) []types.ID {
	ids := make([]types.ID, len(zones))
	for i, z := range zones {
		ids[i] = z.ID
	}
	return ids
}
