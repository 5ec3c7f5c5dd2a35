package board

import (
	"math/rand/v2"

	"github.com/eriantys/eriantys-server-go/internal/game/students"
)

// Bag is the finite supply students are drawn from.
type Bag struct {
	Students students.Counts
}

// NewBag creates a bag holding n students of every colour.
func NewBag(n int) Bag {
	return Bag{Students: students.Of(n)}
}

// Empty reports whether no student is left.
func (b Bag) Empty() bool {
	return b.Students.Total() == 0
}

// Len returns the number of students left.
func (b Bag) Len() int {
	return b.Students.Total()
}

// Draw takes one student uniformly at random.
func (b *Bag) Draw(rng *rand.Rand) (students.Color, bool) {
	total := b.Students.Total()
	if total == 0 {
		return 0, false
	}
	pick := rng.IntN(total)
	for _, c := range students.AllColors() {
		if pick < b.Students[c] {
			b.Students[c]--
			return c, true
		}
		pick -= b.Students[c]
	}
	return 0, false
}

// DrawN takes up to n students; fewer are returned when the bag runs out.
func (b *Bag) DrawN(rng *rand.Rand, n int) []students.Color {
	out := make([]students.Color, 0, n)
	for i := 0; i < n; i++ {
		c, ok := b.Draw(rng)
		if !ok {
			break
		}
		out = append(out, c)
	}
	return out
}

// Return puts students back into the bag.
func (b *Bag) Return(c students.Color, n int) {
	b.Students.Add(c, n)
}
