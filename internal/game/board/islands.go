package board

import (
	"sort"

	"github.com/eriantys/eriantys-server-go/internal/game/students"
)

// IslandGroup is one or more merged atomic islands.
type IslandGroup struct {
	// ID is the id of the atomic island the group grew from. It stays stable across merges.
	ID       int
	Islands  []int
	Students students.Counts
	Owner    Team
	NoEntry  int
}

// Size returns the number of atomic islands, which is also the tower count of the group.
func (g *IslandGroup) Size() int {
	return len(g.Islands)
}

// Archipelago is the circular ring of island groups plus mother nature.
type Archipelago struct {
	Groups []IslandGroup
	// MotherNature holds the id of the group the pawn stands on.
	MotherNature int
}

// NewArchipelago creates n single-island groups with ids 0..n-1.
func NewArchipelago(n int) Archipelago {
	groups := make([]IslandGroup, n)
	for i := range groups {
		groups[i] = IslandGroup{ID: i, Islands: []int{i}}
	}
	return Archipelago{Groups: groups}
}

// Clone returns a deep copy.
func (a Archipelago) Clone() Archipelago {
	groups := make([]IslandGroup, len(a.Groups))
	for i, g := range a.Groups {
		g.Islands = append([]int(nil), g.Islands...)
		groups[i] = g
	}
	return Archipelago{Groups: groups, MotherNature: a.MotherNature}
}

// Len returns the number of groups.
func (a *Archipelago) Len() int {
	return len(a.Groups)
}

// Index returns the ring position of the group id, or -1.
func (a *Archipelago) Index(id int) int {
	for i := range a.Groups {
		if a.Groups[i].ID == id {
			return i
		}
	}
	return -1
}

// Group returns the group with the given id.
func (a *Archipelago) Group(id int) (*IslandGroup, bool) {
	idx := a.Index(id)
	if idx < 0 {
		return nil, false
	}
	return &a.Groups[idx], true
}

// Next returns the id of the group clockwise after id.
func (a *Archipelago) Next(id int) int {
	idx := a.Index(id)
	return a.Groups[(idx+1)%len(a.Groups)].ID
}

// Prev returns the id of the group counter-clockwise before id.
func (a *Archipelago) Prev(id int) int {
	idx := a.Index(id)
	return a.Groups[(idx-1+len(a.Groups))%len(a.Groups)].ID
}

// MoveMotherNature advances the pawn clockwise by steps groups, wrapping
// around the ring, and returns the id of the landing group.
func (a *Archipelago) MoveMotherNature(steps int) int {
	idx := a.Index(a.MotherNature)
	a.MotherNature = a.Groups[(idx+steps)%len(a.Groups)].ID
	return a.MotherNature
}

// Opposite returns the id of the group halfway around the ring from id.
func (a *Archipelago) Opposite(id int) int {
	idx := a.Index(id)
	return a.Groups[(idx+len(a.Groups)/2)%len(a.Groups)].ID
}

// MergeAround joins the group with its neighbours while they share its owner.
// Groups without an owner never merge. It returns the ids absorbed into id.
func (a *Archipelago) MergeAround(id int) []int {
	var absorbed []int
	for {
		g, ok := a.Group(id)
		if !ok || g.Owner == TeamNone || len(a.Groups) < 2 {
			return absorbed
		}
		neighbour := -1
		for _, nid := range []int{a.Next(id), a.Prev(id)} {
			if nid == id {
				continue
			}
			if n, _ := a.Group(nid); n.Owner == g.Owner {
				neighbour = nid
				break
			}
		}
		if neighbour < 0 {
			return absorbed
		}
		a.absorb(id, neighbour)
		absorbed = append(absorbed, neighbour)
	}
}

// absorb merges the group src into dst and removes src from the ring.
func (a *Archipelago) absorb(dst, src int) {
	si := a.Index(src)
	s := a.Groups[si]
	d, _ := a.Group(dst)
	d.Islands = append(d.Islands, s.Islands...)
	sort.Ints(d.Islands)
	d.Students.Merge(s.Students)
	d.NoEntry += s.NoEntry

	a.Groups = append(a.Groups[:si], a.Groups[si+1:]...)
	if a.MotherNature == src {
		a.MotherNature = dst
	}
}

// StudentCount returns the students on every island.
func (a *Archipelago) StudentCount() int {
	total := 0
	for _, g := range a.Groups {
		total += g.Students.Total()
	}
	return total
}
