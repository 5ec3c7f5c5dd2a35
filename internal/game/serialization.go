package game

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/eriantys/eriantys-server-go/internal/game/students"
)

// ChecksumVersion identifies the canonical representation hashed by Checksum.
const ChecksumVersion = 1

// Checksum computes a SHA-256 over a canonical rendering of the match.
// Two matches with equal checksums hold the same pieces in the same places,
// so clients and replays can detect divergence.
func (m *Match) Checksum() string {
	sum := sha256.Sum256([]byte(m.canonical()))
	return hex.EncodeToString(sum[:])
}

// VerifyChecksum reports whether the match hashes to expected.
func (m *Match) VerifyChecksum(expected string) bool {
	return m.Checksum() == expected
}

// canonical renders every rule-relevant field in a fixed order. Slices whose
// order carries meaning (entrances, island ring, turn order) are kept as is.
func (m *Match) canonical() string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "MATCH:%s|%d|%t|%d|%s|%s|%d|%d|%t\n",
		m.ID,
		ChecksumVersion,
		m.Expert,
		m.Turn.Round(),
		m.Turn.CurrentPhase(),
		m.Turn.CurrentStep(),
		m.CurrentSeat(),
		m.StudentsMoved,
		m.LastRound,
	)
	fmt.Fprintf(&buf, "ORDER:%s|%s\n", joinInts(m.Turn.PlanningOrder()), joinInts(m.Turn.ActionOrder()))
	fmt.Fprintf(&buf, "BAG:%s\n", m.Bag.Students)
	fmt.Fprintf(&buf, "BANK:%d\n", m.Bank.Coins)
	fmt.Fprintf(&buf, "PROFESSORS:%s\n", joinInts(m.Professors[:]))

	for _, p := range m.Players {
		fmt.Fprintf(&buf, "PLAYER:%d|%d|%s|%t|%s|%d|%d|%d\n",
			p.Seat,
			p.UserID,
			p.Team,
			p.Leader,
			p.Wizard,
			p.Towers,
			p.Purse.Coins,
			p.Played.Priority,
		)
		fmt.Fprintf(&buf, "  ENTRANCE:%s\n", joinColors(p.Entrance))
		fmt.Fprintf(&buf, "  TABLES:%s\n", p.Tables)
		hand := make([]int, len(p.Hand))
		for i, a := range p.Hand {
			hand[i] = a.Priority
		}
		fmt.Fprintf(&buf, "  HAND:%s\n", joinInts(hand))
		fmt.Fprintf(&buf, "  AWARDED:%s\n", joinInts(p.CoinsAwarded[:]))
	}

	fmt.Fprintf(&buf, "MOTHER_NATURE:%d\n", m.Islands.MotherNature)
	for _, g := range m.Islands.Groups {
		fmt.Fprintf(&buf, "ISLAND:%d|%s|%s|%d|%s\n", g.ID, joinInts(g.Islands), g.Owner, g.NoEntry, g.Students)
	}

	for _, c := range m.Clouds {
		fmt.Fprintf(&buf, "CLOUD:%d|%t|%s\n", c.ID, c.Taken, c.Students)
	}

	for _, card := range m.Characters {
		fmt.Fprintf(&buf, "CHARACTER:%s|%d|%t|%d|%s\n", card.ID, card.Cost, card.Activated, card.NoEntry, joinColors(card.Students))
	}

	if m.Outcome != nil {
		fmt.Fprintf(&buf, "OUTCOME:%s|%t\n", m.Outcome.WinnerName(), m.Outcome.Interrupted)
	}

	return buf.String()
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ",")
}

func joinColors(colors []students.Color) string {
	parts := make([]string, len(colors))
	for i, c := range colors {
		parts[i] = c.String()
	}
	return strings.Join(parts, ",")
}
