package board

import "fmt"

const (
	// NumIslands is the number of atomic islands at setup.
	NumIslands = 12
	// TableCapacity is the most students a single colour table holds.
	TableCapacity = 10
	// EndGroupThreshold ends the match once this few island groups remain.
	EndGroupThreshold = 3
	// DeckSize is the number of assistant cards per player.
	DeckSize = 10
	// SetupStudentsPerColor is drawn per colour to seed the islands.
	SetupStudentsPerColor = 2
)

// CoinThresholds are the table counts that pay a coin in expert matches.
var CoinThresholds = []int{3, 6, 9}

// Params holds the values that depend on the number of players.
type Params struct {
	Players         int
	EntranceSize    int
	TowersPerTeam   int
	Clouds          int
	CloudSize       int
	StudentsPerTurn int
	PlayersPerTeam  int
}

// ParamsFor returns the match parameters for 2, 3 or 4 players.
func ParamsFor(players int) (Params, error) {
	switch players {
	case 2:
		return Params{Players: 2, EntranceSize: 7, TowersPerTeam: 8, Clouds: 2, CloudSize: 3, StudentsPerTurn: 3, PlayersPerTeam: 1}, nil
	case 3:
		return Params{Players: 3, EntranceSize: 9, TowersPerTeam: 6, Clouds: 3, CloudSize: 4, StudentsPerTurn: 4, PlayersPerTeam: 1}, nil
	case 4:
		return Params{Players: 4, EntranceSize: 7, TowersPerTeam: 8, Clouds: 4, CloudSize: 3, StudentsPerTurn: 3, PlayersPerTeam: 2}, nil
	default:
		return Params{}, fmt.Errorf("unsupported player count %d", players)
	}
}
