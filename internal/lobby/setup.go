package lobby

import (
	"sync"

	"github.com/eriantys/eriantys-server-go/internal/game/board"
	"github.com/eriantys/eriantys-server-go/internal/game/rules"
)

// Setup holds the team and wizard choices of one lobby. The two pools are
// guarded by separate locks so players picking a wizard never wait on
// players picking a team.
type Setup struct {
	players        int
	playersPerTeam int

	teamMu sync.Mutex
	teams  map[int]board.Team

	wizardMu sync.Mutex
	wizards  map[int]board.Wizard
}

// NewSetup creates the pools for a match of the given size.
func NewSetup(players int) *Setup {
	perTeam := 1
	if params, err := board.ParamsFor(players); err == nil {
		perTeam = params.PlayersPerTeam
	}
	return &Setup{
		players:        players,
		playersPerTeam: perTeam,
		teams:          make(map[int]board.Team),
		wizards:        make(map[int]board.Wizard),
	}
}

// SelectTeam gives the user a team, replacing an earlier pick.
func (s *Setup) SelectTeam(userID int, team board.Team) error {
	s.teamMu.Lock()
	defer s.teamMu.Unlock()

	if !teamInPlay(team, s.players) {
		return rules.Violationf(rules.InvalidSelection, "team %s is not played with %d players", team, s.players)
	}
	if s.teams[userID] == team {
		return nil
	}
	if s.membersLocked(team) >= s.playersPerTeam {
		return rules.Violationf(rules.ResourceExhausted, "team %s is full", team)
	}
	s.teams[userID] = team
	return nil
}

// SelectWizard gives the user a wizard, replacing an earlier pick.
func (s *Setup) SelectWizard(userID int, wizard board.Wizard) error {
	s.wizardMu.Lock()
	defer s.wizardMu.Unlock()

	if wizard == board.WizardNone {
		return rules.Violationf(rules.InvalidSelection, "no wizard chosen")
	}
	for other, w := range s.wizards {
		if w == wizard && other != userID {
			return rules.Violationf(rules.ResourceExhausted, "wizard %s is taken", wizard)
		}
	}
	s.wizards[userID] = wizard
	return nil
}

// Release frees the picks of a user who left.
func (s *Setup) Release(userID int) {
	s.teamMu.Lock()
	delete(s.teams, userID)
	s.teamMu.Unlock()

	s.wizardMu.Lock()
	delete(s.wizards, userID)
	s.wizardMu.Unlock()
}

// Team returns the user's team, TeamNone when not chosen.
func (s *Setup) Team(userID int) board.Team {
	s.teamMu.Lock()
	defer s.teamMu.Unlock()
	return s.teams[userID]
}

// Wizard returns the user's wizard, WizardNone when not chosen.
func (s *Setup) Wizard(userID int) board.Wizard {
	s.wizardMu.Lock()
	defer s.wizardMu.Unlock()
	return s.wizards[userID]
}

// AvailableTeams lists the teams that still have room.
func (s *Setup) AvailableTeams() []board.Team {
	s.teamMu.Lock()
	defer s.teamMu.Unlock()

	var out []board.Team
	for _, t := range board.TeamsFor(s.players) {
		if s.membersLocked(t) < s.playersPerTeam {
			out = append(out, t)
		}
	}
	return out
}

// AvailableWizards lists the wizards nobody picked.
func (s *Setup) AvailableWizards() []board.Wizard {
	s.wizardMu.Lock()
	defer s.wizardMu.Unlock()
	return s.freeWizardsLocked()
}

// assignWizards gives every listed user without a wizard the first free one.
func (s *Setup) assignWizards(users []int) {
	s.wizardMu.Lock()
	defer s.wizardMu.Unlock()

	for _, id := range users {
		if s.wizards[id] != board.WizardNone {
			continue
		}
		if free := s.freeWizardsLocked(); len(free) > 0 {
			s.wizards[id] = free[0]
		}
	}
}

func (s *Setup) freeWizardsLocked() []board.Wizard {
	taken := make(map[board.Wizard]bool, len(s.wizards))
	for _, w := range s.wizards {
		taken[w] = true
	}
	var out []board.Wizard
	for _, w := range board.AllWizards() {
		if !taken[w] {
			out = append(out, w)
		}
	}
	return out
}

func (s *Setup) membersLocked(team board.Team) int {
	n := 0
	for _, t := range s.teams {
		if t == team {
			n++
		}
	}
	return n
}

func teamInPlay(team board.Team, players int) bool {
	for _, t := range board.TeamsFor(players) {
		if t == team {
			return true
		}
	}
	return false
}
