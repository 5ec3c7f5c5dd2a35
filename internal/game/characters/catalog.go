// Package characters is the closed catalog of character cards available in
// expert matches.
package characters

import (
	"fmt"
	"sort"

	"github.com/eriantys/eriantys-server-go/internal/game/rules"
	"github.com/eriantys/eriantys-server-go/internal/game/selection"
)

// ID identifies a character card.
type ID int

const (
	Priest ID = iota + 1
	Innkeeper
	FlagBearer
	Postman
	Herbalist
	Centaur
	Juggler
	Knight
	Fungalmancer
	Minstrel
	Dame
	Thief
)

// PerMatch is the number of character cards drawn for an expert match.
const PerMatch = 3

// Activation applies a card's effect. sel has already been checked against
// the card's requirements.
type Activation func(ctx Context, card *Card, sel selection.State) error

// Spec is the static description of a character card.
type Spec struct {
	ID              ID
	Name            string
	Cost            int
	Requirements    selection.Requirements
	InitialStudents int
	InitialNoEntry  int
	Activate        Activation
}

var (
	one     = selection.Bounds{Min: 1, Max: 1}
	upTo3   = selection.Bounds{Min: 1, Max: 3}
	upTo2   = selection.Bounds{Min: 1, Max: 2}
	catalog = map[ID]Spec{
		Priest: {
			ID: Priest, Name: "Priest", Cost: 1,
			Requirements:    selection.Requirements{OnCard: one, Islands: one},
			InitialStudents: 4,
			Activate:        activatePriest,
		},
		Innkeeper: {
			ID: Innkeeper, Name: "Innkeeper", Cost: 2,
			Activate: activateInnkeeper,
		},
		FlagBearer: {
			ID: FlagBearer, Name: "FlagBearer", Cost: 3,
			Requirements: selection.Requirements{Islands: one},
			Activate:     activateFlagBearer,
		},
		Postman: {
			ID: Postman, Name: "Postman", Cost: 1,
			Activate: activatePostman,
		},
		Herbalist: {
			ID: Herbalist, Name: "Herbalist", Cost: 2,
			Requirements:   selection.Requirements{Islands: one},
			InitialNoEntry: 4,
			Activate:       activateHerbalist,
		},
		Centaur: {
			ID: Centaur, Name: "Centaur", Cost: 3,
			Activate: activateCentaur,
		},
		Juggler: {
			ID: Juggler, Name: "Juggler", Cost: 1,
			Requirements:    selection.Requirements{Entrance: upTo3, OnCard: upTo3, Paired: true},
			InitialStudents: 6,
			Activate:        activateJuggler,
		},
		Knight: {
			ID: Knight, Name: "Knight", Cost: 2,
			Activate: activateKnight,
		},
		Fungalmancer: {
			ID: Fungalmancer, Name: "Fungalmancer", Cost: 3,
			Requirements: selection.Requirements{Colors: one},
			Activate:     activateFungalmancer,
		},
		Minstrel: {
			ID: Minstrel, Name: "Minstrel", Cost: 1,
			Requirements: selection.Requirements{Entrance: upTo2, Colors: upTo2, Paired: true},
			Activate:     activateMinstrel,
		},
		Dame: {
			ID: Dame, Name: "Dame", Cost: 2,
			Requirements:    selection.Requirements{OnCard: one},
			InitialStudents: 4,
			Activate:        activateDame,
		},
		Thief: {
			ID: Thief, Name: "Thief", Cost: 3,
			Requirements: selection.Requirements{Colors: one},
			Activate:     activateThief,
		},
	}
)

func (id ID) String() string {
	if spec, ok := catalog[id]; ok {
		return spec.Name
	}
	return fmt.Sprintf("CHARACTER_%d", int(id))
}

// Lookup returns the spec of a character card.
func Lookup(id ID) (Spec, bool) {
	spec, ok := catalog[id]
	return spec, ok
}

// IDs returns every catalog id in ascending order.
func IDs() []ID {
	ids := make([]ID, 0, len(catalog))
	for id := range catalog {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// invalidf is shorthand for selection problems found during activation.
func invalidf(format string, args ...any) error {
	return rules.Violationf(rules.InvalidSelection, format, args...)
}
