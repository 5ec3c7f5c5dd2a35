// Package selection accumulates the transient choices a player makes during
// an action turn: the pending entrance student and character card targets.
package selection

import (
	"github.com/eriantys/eriantys-server-go/internal/game/rules"
	"github.com/eriantys/eriantys-server-go/internal/game/students"
)

// Bounds is an inclusive count range. The zero value allows nothing.
type Bounds struct {
	Min int
	Max int
}

// Contains reports whether n lies within the bounds.
func (b Bounds) Contains(n int) bool {
	return n >= b.Min && n <= b.Max
}

// Requirements declares what a character card needs selected before activation.
type Requirements struct {
	Entrance Bounds
	Colors   Bounds
	Islands  Bounds
	OnCard   Bounds
	// Paired requires as many entrance students as colours or card students.
	Paired bool
}

// State is the selection of the current player.
type State struct {
	Pending    int
	HasPending bool

	EntranceSlots []int
	Colors        []students.Color
	Islands       []int
	CardStudents  []int
}

// Reset clears every selection.
func (s *State) Reset() {
	*s = State{}
}

// Clone returns a deep copy.
func (s State) Clone() State {
	c := s
	c.EntranceSlots = append([]int(nil), s.EntranceSlots...)
	c.Colors = append([]students.Color(nil), s.Colors...)
	c.Islands = append([]int(nil), s.Islands...)
	c.CardStudents = append([]int(nil), s.CardStudents...)
	return c
}

// SelectStudent marks an entrance slot as the pending student.
func (s *State) SelectStudent(slot, entranceLen int) error {
	if s.HasPending {
		return rules.Violationf(rules.InvalidSelection, "student %d is already selected", s.Pending)
	}
	if slot < 0 || slot >= entranceLen {
		return rules.Violationf(rules.InvalidSelection, "entrance slot %d out of range [0,%d)", slot, entranceLen)
	}
	s.Pending = slot
	s.HasPending = true
	return nil
}

// Deselect drops the pending student.
func (s *State) Deselect() error {
	if !s.HasPending {
		return rules.Violationf(rules.InvalidSelection, "no student selected")
	}
	s.Pending = 0
	s.HasPending = false
	return nil
}

// TakePending consumes the pending slot.
func (s *State) TakePending() (int, error) {
	if !s.HasPending {
		return 0, rules.Violationf(rules.InvalidSelection, "no student selected")
	}
	slot := s.Pending
	s.Pending = 0
	s.HasPending = false
	return slot, nil
}

// SetEntrance replaces the selected entrance slots.
func (s *State) SetEntrance(slots []int, req Requirements, entranceLen int) error {
	if len(slots) > req.Entrance.Max {
		return rules.Violationf(rules.InvalidSelection, "at most %d entrance students, got %d", req.Entrance.Max, len(slots))
	}
	if err := distinctInRange(slots, entranceLen, "entrance slot"); err != nil {
		return err
	}
	s.EntranceSlots = append([]int(nil), slots...)
	return nil
}

// SetColors replaces the selected colours. Colours may repeat.
func (s *State) SetColors(colors []students.Color, req Requirements) error {
	if len(colors) > req.Colors.Max {
		return rules.Violationf(rules.InvalidSelection, "at most %d colours, got %d", req.Colors.Max, len(colors))
	}
	for _, c := range colors {
		if !c.Valid() {
			return rules.Violationf(rules.InvalidSelection, "invalid colour %d", int(c))
		}
	}
	s.Colors = append([]students.Color(nil), colors...)
	return nil
}

// SetIsland selects an island group. exists reports whether the id is on the board.
func (s *State) SetIsland(id int, req Requirements, exists bool) error {
	if req.Islands.Max == 0 {
		return rules.Violationf(rules.InvalidSelection, "this card takes no island")
	}
	if !exists {
		return rules.Violationf(rules.InvalidSelection, "island %d does not exist", id)
	}
	if len(s.Islands) >= req.Islands.Max {
		s.Islands = s.Islands[1:]
	}
	s.Islands = append(s.Islands, id)
	return nil
}

// SetCardStudents replaces the selected card-resident positions.
func (s *State) SetCardStudents(positions []int, req Requirements, onCard int) error {
	if len(positions) > req.OnCard.Max {
		return rules.Violationf(rules.InvalidSelection, "at most %d card students, got %d", req.OnCard.Max, len(positions))
	}
	if err := distinctInRange(positions, onCard, "card position"); err != nil {
		return err
	}
	s.CardStudents = append([]int(nil), positions...)
	return nil
}

// Satisfies checks the minimum counts and pairing before activation.
func (s *State) Satisfies(req Requirements) error {
	checks := []struct {
		name string
		n    int
		b    Bounds
	}{
		{"entrance students", len(s.EntranceSlots), req.Entrance},
		{"colours", len(s.Colors), req.Colors},
		{"islands", len(s.Islands), req.Islands},
		{"card students", len(s.CardStudents), req.OnCard},
	}
	for _, c := range checks {
		if !c.b.Contains(c.n) {
			return rules.Violationf(rules.InvalidSelection, "need %d..%d %s, got %d", c.b.Min, c.b.Max, c.name, c.n)
		}
	}
	if req.Paired {
		other := len(s.Colors) + len(s.CardStudents)
		if len(s.EntranceSlots) != other {
			return rules.Violationf(rules.InvalidSelection, "need as many entrance students as exchanged students, got %d and %d", len(s.EntranceSlots), other)
		}
	}
	return nil
}

func distinctInRange(values []int, limit int, what string) error {
	seen := make(map[int]bool, len(values))
	for _, v := range values {
		if v < 0 || v >= limit {
			return rules.Violationf(rules.InvalidSelection, "%s %d out of range [0,%d)", what, v, limit)
		}
		if seen[v] {
			return rules.Violationf(rules.InvalidSelection, "%s %d selected twice", what, v)
		}
		seen[v] = true
	}
	return nil
}
