package game

import (
	"encoding/json"

	"github.com/eriantys/eriantys-server-go/internal/game/board"
	"github.com/eriantys/eriantys-server-go/internal/game/students"
	"github.com/eriantys/eriantys-server-go/internal/protocol"
)

// MatchView is the public board sent to clients with BOARD_UPDATED pushes.
type MatchView struct {
	Status       protocol.Status `json:"status"`
	Expert       bool            `json:"expert"`
	Players      []PlayerView    `json:"players"`
	Islands      []IslandView    `json:"islands"`
	MotherNature int             `json:"motherNature"`
	Clouds       []CloudView     `json:"clouds"`
	// Professors maps a colour to the user holding its professor.
	Professors map[string]int  `json:"professors"`
	Characters []CharacterView `json:"characters,omitempty"`
	Bag        int             `json:"bag"`
	Bank       int             `json:"bank,omitempty"`
	LastRound  bool            `json:"lastRound,omitempty"`
}

type PlayerView struct {
	UserID   int              `json:"userId"`
	Nickname string           `json:"nickname"`
	Team     string           `json:"team"`
	Wizard   string           `json:"wizard"`
	Leader   bool             `json:"leader"`
	Entrance []students.Color `json:"entrance"`
	Tables   map[string]int   `json:"tables"`
	Towers   int              `json:"towers"`
	Hand     []int            `json:"hand"`
	Played   int              `json:"played,omitempty"`
	Coins    int              `json:"coins,omitempty"`
}

type IslandView struct {
	ID       int            `json:"id"`
	Islands  []int          `json:"islands"`
	Students map[string]int `json:"students"`
	Owner    string         `json:"owner,omitempty"`
	NoEntry  int            `json:"noEntry,omitempty"`
}

type CloudView struct {
	ID       int            `json:"id"`
	Students map[string]int `json:"students"`
	Taken    bool           `json:"taken,omitempty"`
}

type CharacterView struct {
	ID       int              `json:"id"`
	Name     string           `json:"name"`
	Cost     int              `json:"cost"`
	Students []students.Color `json:"students,omitempty"`
	NoEntry  int              `json:"noEntry,omitempty"`
}

// View builds the public board.
func (m *Match) View() MatchView {
	v := MatchView{
		Status:       m.Status(),
		Expert:       m.Expert,
		MotherNature: m.Islands.MotherNature,
		Professors:   make(map[string]int),
		Bag:          m.Bag.Len(),
		Bank:         m.Bank.Coins,
		LastRound:    m.LastRound,
	}
	for _, p := range m.Players {
		hand := make([]int, len(p.Hand))
		for i, a := range p.Hand {
			hand[i] = a.Priority
		}
		v.Players = append(v.Players, PlayerView{
			UserID:   p.UserID,
			Nickname: p.Nickname,
			Team:     p.Team.String(),
			Wizard:   p.Wizard.String(),
			Leader:   p.Leader,
			Entrance: append([]students.Color(nil), p.Entrance...),
			Tables:   countsView(p.Tables),
			Towers:   p.Towers,
			Hand:     hand,
			Played:   p.Played.Priority,
			Coins:    p.Purse.Coins,
		})
	}
	for _, g := range m.Islands.Groups {
		iv := IslandView{
			ID:       g.ID,
			Islands:  append([]int(nil), g.Islands...),
			Students: countsView(g.Students),
			NoEntry:  g.NoEntry,
		}
		if g.Owner != board.TeamNone {
			iv.Owner = g.Owner.String()
		}
		v.Islands = append(v.Islands, iv)
	}
	for _, c := range m.Clouds {
		v.Clouds = append(v.Clouds, CloudView{ID: c.ID, Students: countsView(c.Students), Taken: c.Taken})
	}
	for c, holder := range m.Professors {
		if holder != noProfessor {
			v.Professors[students.Color(c).String()] = m.Players[holder].UserID
		}
	}
	for _, card := range m.Characters {
		v.Characters = append(v.Characters, CharacterView{
			ID:       int(card.ID),
			Name:     card.Spec().Name,
			Cost:     card.Cost,
			Students: append([]students.Color(nil), card.Students...),
			NoEntry:  card.NoEntry,
		})
	}
	return v
}

// ViewJSON encodes View for a push.
func (m *Match) ViewJSON() (json.RawMessage, error) {
	return json.Marshal(m.View())
}

func countsView(c students.Counts) map[string]int {
	out := make(map[string]int, students.NumColors)
	for _, color := range students.AllColors() {
		out[color.String()] = c.Count(color)
	}
	return out
}
