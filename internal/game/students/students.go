package students

import (
	"fmt"
	"strings"
)

// Color identifies a student (piece) colour.
type Color int

const (
	Yellow Color = iota
	Blue
	Green
	Red
	Pink
)

// NumColors is the number of distinct student colours.
const NumColors = 5

// PerColor is the number of students of each colour in a full set.
const PerColor = 26

var colorNames = map[Color]string{
	Yellow: "YELLOW",
	Blue:   "BLUE",
	Green:  "GREEN",
	Red:    "RED",
	Pink:   "PINK",
}

func (c Color) String() string {
	if name, ok := colorNames[c]; ok {
		return name
	}
	return fmt.Sprintf("COLOR_%d", int(c))
}

// Valid reports whether c is one of the five colours.
func (c Color) Valid() bool {
	return c >= Yellow && c <= Pink
}

// ParseColor converts a colour name (case-insensitive) to a Color.
func ParseColor(name string) (Color, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for c, n := range colorNames {
		if n == upper {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown colour %q", name)
}

// MarshalText encodes the colour by name.
func (c Color) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid colour %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText decodes a colour name.
func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// AllColors returns the colours in canonical order.
func AllColors() []Color {
	return []Color{Yellow, Blue, Green, Red, Pink}
}

// Counts is a per-colour multiset of students.
type Counts [NumColors]int

// Of returns a multiset holding n students of every colour.
func Of(n int) Counts {
	var c Counts
	for i := range c {
		c[i] = n
	}
	return c
}

// Add adds amount students of the colour. Non-positive amounts are ignored.
func (c *Counts) Add(color Color, amount int) {
	if amount > 0 {
		c[color] += amount
	}
}

// Remove takes amount students of the colour and reports whether enough were present.
// Nothing is removed when the multiset holds fewer than amount.
func (c *Counts) Remove(color Color, amount int) bool {
	if amount <= 0 {
		return true
	}
	if c[color] < amount {
		return false
	}
	c[color] -= amount
	return true
}

// Count returns the number of students of the colour.
func (c Counts) Count(color Color) int {
	return c[color]
}

// Total returns the number of students across all colours.
func (c Counts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Merge adds every student of other into c.
func (c *Counts) Merge(other Counts) {
	for i, n := range other {
		c[i] += n
	}
}

// FromSlice counts the colours of a slice of students.
func FromSlice(colors []Color) Counts {
	var c Counts
	for _, color := range colors {
		c[color]++
	}
	return c
}

// Colors expands the multiset into a slice in colour order.
func (c Counts) Colors() []Color {
	out := make([]Color, 0, c.Total())
	for _, color := range AllColors() {
		for i := 0; i < c[color]; i++ {
			out = append(out, color)
		}
	}
	return out
}

func (c Counts) String() string {
	parts := make([]string, 0, NumColors)
	for _, color := range AllColors() {
		parts = append(parts, fmt.Sprintf("%s=%d", color, c[color]))
	}
	return strings.Join(parts, " ")
}
