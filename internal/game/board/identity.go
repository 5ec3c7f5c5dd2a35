package board

import (
	"fmt"
	"strings"
)

// Team is a tower colour. In four-player matches two players share a team.
type Team int

const (
	TeamNone Team = iota
	TeamWhite
	TeamBlack
	TeamGrey
)

var teamNames = map[Team]string{
	TeamNone:  "NONE",
	TeamWhite: "WHITE",
	TeamBlack: "BLACK",
	TeamGrey:  "GREY",
}

func (t Team) String() string {
	if name, ok := teamNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TEAM_%d", int(t))
}

// ParseTeam converts a team name (case-insensitive) to a Team.
func ParseTeam(name string) (Team, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for t, n := range teamNames {
		if t != TeamNone && n == upper {
			return t, nil
		}
	}
	return TeamNone, fmt.Errorf("unknown team %q", name)
}

// TeamsFor returns the teams available for a player count.
func TeamsFor(players int) []Team {
	if players == 3 {
		return []Team{TeamWhite, TeamBlack, TeamGrey}
	}
	return []Team{TeamWhite, TeamBlack}
}

// Wizard is the cosmetic deck a player picks before the match.
type Wizard int

const (
	WizardNone Wizard = iota
	WizardKing
	WizardPixie
	WizardSorcerer
	WizardWizard
)

var wizardNames = map[Wizard]string{
	WizardNone:     "NONE",
	WizardKing:     "KING",
	WizardPixie:    "PIXIE",
	WizardSorcerer: "SORCERER",
	WizardWizard:   "WIZARD",
}

func (w Wizard) String() string {
	if name, ok := wizardNames[w]; ok {
		return name
	}
	return fmt.Sprintf("WIZARD_%d", int(w))
}

// ParseWizard converts a wizard name (case-insensitive) to a Wizard.
func ParseWizard(name string) (Wizard, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for w, n := range wizardNames {
		if w != WizardNone && n == upper {
			return w, nil
		}
	}
	return WizardNone, fmt.Errorf("unknown wizard %q", name)
}

// AllWizards returns the wizards in canonical order.
func AllWizards() []Wizard {
	return []Wizard{WizardKing, WizardPixie, WizardSorcerer, WizardWizard}
}
