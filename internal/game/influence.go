package game

import (
	"sort"
	"strconv"
	"strings"

	"github.com/eriantys/eriantys-server-go/internal/game/board"
	"github.com/eriantys/eriantys-server-go/internal/game/rules"
	"github.com/eriantys/eriantys-server-go/internal/game/students"
)

// InfluenceContext carries the modifiers active for one influence resolution.
type InfluenceContext struct {
	// Acting is the team of the player resolving, which receives Bonus.
	Acting       board.Team
	Bonus        int
	IgnoreTowers bool
	IgnoreColor  bool
	IgnoredColor students.Color
}

// influenceContext snapshots the turn effects for the acting seat.
func (m *Match) influenceContext(seat int) InfluenceContext {
	e := m.Effects
	return InfluenceContext{
		Acting:       m.Players[seat].Team,
		Bonus:        e.InfluenceBonus,
		IgnoreTowers: e.IgnoreTowers,
		IgnoreColor:  e.IgnoreColor,
		IgnoredColor: e.IgnoredColor,
	}
}

// Influence computes every team's influence on a group.
func (m *Match) Influence(g *board.IslandGroup, ctx InfluenceContext) map[board.Team]int {
	out := make(map[board.Team]int)
	for _, t := range m.teams() {
		out[t] = 0
	}
	for _, c := range students.AllColors() {
		if ctx.IgnoreColor && c == ctx.IgnoredColor {
			continue
		}
		holder := m.Professors[c]
		if holder == noProfessor {
			continue
		}
		out[m.Players[holder].Team] += g.Students.Count(c)
	}
	if !ctx.IgnoreTowers && g.Owner != board.TeamNone {
		out[g.Owner] += g.Size()
	}
	if ctx.Acting != board.TeamNone {
		out[ctx.Acting] += ctx.Bonus
	}
	return out
}

// resolveIsland settles control of a group. Only a strictly highest
// influence changes the controller; towers move between team leaders and
// neighbours with the same controller merge.
func (m *Match) resolveIsland(seat, id int) []rules.Event {
	g, ok := m.Islands.Group(id)
	if !ok {
		return nil
	}
	influence := m.Influence(g, m.influenceContext(seat))

	best, top, tied := board.TeamNone, -1, false
	for _, t := range m.teams() {
		switch n := influence[t]; {
		case n > top:
			best, top, tied = t, n, false
		case n == top:
			tied = true
		}
	}
	if tied || top <= 0 || best == g.Owner {
		return nil
	}

	size := g.Size()
	if prev := m.leader(g.Owner); prev != nil {
		prev.Towers += size
	}
	next := m.leader(best)
	placed := min(size, next.Towers)
	next.Towers -= placed
	g.Owner = best

	events := []rules.Event{rules.NewEventWithAmount(rules.EventIslandConquered, seat, best.String()+":"+strconv.Itoa(id), placed)}
	if absorbed := m.Islands.MergeAround(id); len(absorbed) > 0 {
		ids := make([]string, len(absorbed))
		for i, a := range absorbed {
			ids[i] = strconv.Itoa(a)
		}
		evt := rules.NewEventWithAmount(rules.EventIslandsMerged, seat, strconv.Itoa(id), len(absorbed))
		evt.Metadata["absorbed"] = strings.Join(ids, ",")
		events = append(events, evt)
	}
	return events
}

// afterTableGain updates the colour's professor and pays threshold coins
// once a student reached seat's table.
func (m *Match) afterTableGain(seat int, c students.Color) []rules.Event {
	events := m.updateProfessor(seat, c)
	if evt, ok := m.grantCoin(seat, c); ok {
		events = append(events, evt)
	}
	return events
}

// updateProfessor hands the professor of c to whoever has strictly more
// students than the holder. The acting seat wins ties under the Innkeeper.
func (m *Match) updateProfessor(acting int, c students.Color) []rules.Event {
	holder := m.Professors[c]
	best := 0
	if holder != noProfessor {
		best = m.Players[holder].Tables.Count(c)
	}
	next := holder
	for _, p := range m.Players {
		if p.Seat == holder {
			continue
		}
		n := p.Tables.Count(c)
		tie := m.Effects.ProfessorTies && p.Seat == acting && n == best && n > 0
		if n > best || tie {
			next, best = p.Seat, n
		}
	}
	if next == holder {
		return nil
	}
	m.Professors[c] = next
	return []rules.Event{rules.NewEvent(rules.EventProfessorChanged, next, c.String())}
}

// updateProfessors recomputes every colour.
func (m *Match) updateProfessors(acting int) []rules.Event {
	var events []rules.Event
	for _, c := range students.AllColors() {
		events = append(events, m.updateProfessor(acting, c)...)
	}
	return events
}

// grantCoin pays one coin for every threshold of the table not paid yet.
// A threshold counts once per match even if the table later shrinks.
func (m *Match) grantCoin(seat int, c students.Color) (rules.Event, bool) {
	if !m.Expert {
		return rules.Event{}, false
	}
	p := m.Players[seat]
	n := p.Tables.Count(c)
	due := 0
	for i, threshold := range board.CoinThresholds {
		if n >= threshold && p.CoinsAwarded[c] <= i {
			p.CoinsAwarded[c] = i + 1
			due++
		}
	}
	if due == 0 {
		return rules.Event{}, false
	}
	due = min(due, m.Bank.Coins)
	if due == 0 {
		return rules.Event{}, false
	}
	if err := m.Bank.Transfer(&p.Purse, due); err != nil {
		return rules.Event{}, false
	}
	return rules.NewEventWithAmount(rules.EventCoinGranted, seat, c.String(), due), true
}

// checkInstantEnd ends the match when a leader placed every tower or the
// archipelago shrank to the end threshold.
func (m *Match) checkInstantEnd() []rules.Event {
	if m.Over() {
		return nil
	}
	for _, t := range m.teams() {
		if m.leader(t).Towers > 0 {
			continue
		}
		var others []board.Team
		for _, o := range m.teams() {
			if o != t {
				others = append(others, o)
			}
		}
		return m.finish(m.rank(others), t.String()+" placed every tower")
	}
	if m.Islands.Len() <= board.EndGroupThreshold {
		return m.finish(m.rank(m.teams()), "only "+strconv.Itoa(m.Islands.Len())+" island groups left")
	}
	return nil
}

// rank orders teams by fewest towers left, then most professors. The best
// two being equal on both is a draw.
func (m *Match) rank(teams []board.Team) Outcome {
	type standing struct {
		team       board.Team
		towers     int
		professors int
	}
	table := make([]standing, len(teams))
	for i, t := range teams {
		table[i] = standing{team: t, towers: m.leader(t).Towers, professors: m.professorsOf(t)}
	}
	sort.SliceStable(table, func(i, j int) bool {
		if table[i].towers != table[j].towers {
			return table[i].towers < table[j].towers
		}
		return table[i].professors > table[j].professors
	})
	if len(table) > 1 && table[0].towers == table[1].towers && table[0].professors == table[1].professors {
		return Outcome{Draw: true}
	}
	return Outcome{Winner: table[0].team}
}

func (m *Match) professorsOf(t board.Team) int {
	n := 0
	for _, holder := range m.Professors {
		if holder != noProfessor && m.Players[holder].Team == t {
			n++
		}
	}
	return n
}

// finish records the outcome and drops any half-made choice.
func (m *Match) finish(o Outcome, reason string) []rules.Event {
	o.Reason = reason
	m.Outcome = &o
	m.Selection.Reset()
	m.ActiveCard = -1
	m.Turn.Bump()

	evt := rules.NewEvent(rules.EventMatchEnded, -1, o.Winner.String())
	if o.Draw {
		evt.Target = "DRAW"
	}
	evt.Amount = m.Turn.Round()
	evt.Payload = o
	evt.Metadata["reason"] = reason
	names := make([]string, len(m.Players))
	for i, p := range m.Players {
		names[i] = p.Nickname
	}
	evt.Metadata["players"] = strings.Join(names, ",")
	evt.Metadata["expert"] = strconv.FormatBool(m.Expert)
	return []rules.Event{evt}
}
