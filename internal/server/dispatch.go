package server

import (
	"encoding/json"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/eriantys/eriantys-server-go/internal/game"
	"github.com/eriantys/eriantys-server-go/internal/game/board"
	"github.com/eriantys/eriantys-server-go/internal/game/rules"
	"github.com/eriantys/eriantys-server-go/internal/game/selection"
	"github.com/eriantys/eriantys-server-go/internal/lobby"
	"github.com/eriantys/eriantys-server-go/internal/protocol"
)

// Dispatch answers one command. Setup commands go to the lobby manager,
// everything else to the match the user plays in.
func (s *Server) Dispatch(cmd protocol.Command) protocol.Reply {
	var reply protocol.Reply
	var err error
	if cmd.Kind.IsLobbyCommand() {
		reply, err = s.dispatchLobby(cmd)
	} else {
		reply, err = s.dispatchMatch(cmd)
	}
	reply.RequestID = cmd.RequestID
	if err != nil {
		reply.Result = protocol.ResultErr
		reply.ErrorKind = string(rules.KindOf(err))
		reply.ErrorMessage = err.Error()
		s.logger.Debug("command rejected",
			zap.Int("user_id", cmd.UserID),
			zap.String("command", string(cmd.Kind)),
			zap.Error(err),
		)
		return reply
	}
	reply.Result = protocol.ResultOK
	return reply
}

func (s *Server) dispatchMatch(cmd protocol.Command) (protocol.Reply, error) {
	matchID, ok := s.engine.MatchOf(cmd.UserID)
	if !ok {
		return protocol.Reply{}, rules.Violationf(rules.UnknownMatch, "user %d is not playing", cmd.UserID)
	}

	res, status, err := s.engine.Process(matchID, cmd.UserID, cmd)
	reply := protocol.Reply{}
	if status.MatchID != "" {
		reply.Status = &status
	}
	if err != nil {
		return reply, err
	}
	reply.Requirements = requirementsReply(res.Requirements)
	return reply, nil
}

func requirementsReply(r *selection.Requirements) *protocol.Requirements {
	if r == nil {
		return nil
	}
	return &protocol.Requirements{
		Entrance: protocol.Bounds{Min: r.Entrance.Min, Max: r.Entrance.Max},
		Colors:   protocol.Bounds{Min: r.Colors.Min, Max: r.Colors.Max},
		Islands:  protocol.Bounds{Min: r.Islands.Min, Max: r.Islands.Max},
		OnCard:   protocol.Bounds{Min: r.OnCard.Min, Max: r.OnCard.Max},
	}
}

func (s *Server) dispatchLobby(cmd protocol.Command) (protocol.Reply, error) {
	if cmd.Kind == protocol.CommandJoinLobby {
		return s.joinLobby(cmd)
	}
	if cmd.Kind == protocol.CommandStartGame {
		return s.startGame(cmd)
	}

	l, ok := s.lobbies.LobbyOf(cmd.UserID)
	if !ok {
		return protocol.Reply{}, rules.Violationf(rules.IllegalPhase, "user %d is not in a lobby", cmd.UserID)
	}
	reply := protocol.Reply{LobbyID: l.ID}

	var err error
	switch cmd.Kind {
	case protocol.CommandLeaveLobby:
		err = s.lobbies.Leave(cmd.UserID)
	case protocol.CommandSelectTeam:
		var team board.Team
		if team, err = board.ParseTeam(cmd.Team); err != nil {
			err = rules.Violationf(rules.InvalidSelection, "%v", err)
			break
		}
		err = l.Setup.SelectTeam(cmd.UserID, team)
	case protocol.CommandSelectWizard:
		var wizard board.Wizard
		if wizard, err = board.ParseWizard(cmd.Wizard); err != nil {
			err = rules.Violationf(rules.InvalidSelection, "%v", err)
			break
		}
		err = l.Setup.SelectWizard(cmd.UserID, wizard)
	case protocol.CommandReady:
		err = l.SetReady(cmd.UserID, true)
	case protocol.CommandNotReady:
		err = l.SetReady(cmd.UserID, false)
	}
	if err != nil {
		return reply, err
	}
	s.pushLobby(l)
	return reply, nil
}

func (s *Server) joinLobby(cmd protocol.Command) (protocol.Reply, error) {
	if _, playing := s.engine.MatchOf(cmd.UserID); playing {
		return protocol.Reply{}, rules.Violationf(rules.IllegalPhase, "user %d is already playing", cmd.UserID)
	}
	rule, err := lobby.ParseGameRule(cmd.GameRule)
	if err != nil {
		return protocol.Reply{}, err
	}
	l, err := s.lobbies.Join(cmd.UserID, rule)
	if err != nil {
		return protocol.Reply{}, err
	}
	s.pushLobby(l)
	return protocol.Reply{LobbyID: l.ID}, nil
}

// startGame turns the host's lobby into a match. GAME_STARTED reaches the
// event channels before the reply is written.
func (s *Server) startGame(cmd protocol.Command) (protocol.Reply, error) {
	l, seats, err := s.lobbies.Start(cmd.UserID)
	if err != nil {
		return protocol.Reply{}, err
	}
	reply := protocol.Reply{LobbyID: l.ID}

	matchID, err := s.engine.Create(seats, game.Options{Expert: l.Rule.Expert(), Seed: s.seed()})
	if err != nil {
		return reply, rules.Violationf(rules.IllegalPhase, "%v", err)
	}
	l.SetMatch(matchID)
	s.pushLobby(l)

	status, err := s.engine.Status(matchID)
	if err != nil {
		return reply, err
	}
	reply.Status = &status
	return reply, nil
}

func (s *Server) pushLobby(l *lobby.Lobby) {
	snap, err := json.Marshal(s.lobbies.Snapshot(l))
	if err != nil {
		s.logger.Error("failed to encode lobby", zap.String("lobby_id", l.ID), zap.Error(err))
		return
	}
	s.hub.Send(l.Players(), protocol.Push{Kind: protocol.PushLobbyUpdated, Lobby: snap})
}

func randomSeed() [2]uint64 {
	return [2]uint64{rand.Uint64(), rand.Uint64()}
}
