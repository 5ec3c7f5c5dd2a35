package board

import "github.com/eriantys/eriantys-server-go/internal/game/students"

// Cloud is refilled at the start of every round and emptied by one player.
type Cloud struct {
	ID       int
	Students students.Counts
	Taken    bool
}

// Fill replaces the cloud's content and makes it available again.
func (c *Cloud) Fill(drawn []students.Color) {
	c.Students = students.FromSlice(drawn)
	c.Taken = false
}

// Take empties the cloud and returns its content.
func (c *Cloud) Take() students.Counts {
	out := c.Students
	c.Students = students.Counts{}
	c.Taken = true
	return out
}
