package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/eriantys/eriantys-server-go/internal/config"
	"github.com/eriantys/eriantys-server-go/internal/game"
	"github.com/eriantys/eriantys-server-go/internal/game/rules"
	"github.com/eriantys/eriantys-server-go/internal/heartbeat"
	"github.com/eriantys/eriantys-server-go/internal/lobby"
	"github.com/eriantys/eriantys-server-go/internal/protocol"
)

// Server serves the login endpoint and the command, event and heartbeat
// websocket channels.
type Server struct {
	cfg      *config.Config
	logger   *zap.Logger
	engine   *game.Engine
	lobbies  *lobby.Manager
	hub      *Hub
	upgrader websocket.Upgrader
	policy   game.DisconnectPolicy
	seed     func() [2]uint64

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a server and installs its hub as the engine's push sink.
func New(cfg *config.Config, engine *game.Engine, lobbies *lobby.Manager, logger *zap.Logger) *Server {
	ws := cfg.Server.WebSocket
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:     cfg,
		logger:  logger,
		engine:  engine,
		lobbies: lobbies,
		hub:     NewHub(ws.SendQueueSize, ws.WriteTimeout, logger),
		policy:  game.EndOnDisconnect,
		seed:    randomSeed,
		ctx:     ctx,
		cancel:  cancel,
	}
	if cfg.Match.DisconnectPolicy == config.DisconnectPolicySuspend {
		s.policy = game.SuspendOnDisconnect
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  ws.ReadBufferSize,
		WriteBufferSize: ws.WriteBufferSize,
		CheckOrigin:     originChecker(ws.AllowedOrigins),
	}
	engine.SetNotificationHandler(s.hub.Notify)
	go s.hub.Run()
	return s
}

// Stop closes every event channel and ends the heartbeat responders.
func (s *Server) Stop() {
	s.cancel()
	s.hub.Stop()
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

// NewHTTPHandler returns the routes wrapped in recovery, access logging and CORS.
func NewHTTPHandler(s *Server) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/ws/command", s.handleCommands)
	mux.HandleFunc("/ws/events", s.handleEvents)
	mux.HandleFunc("/ws/heartbeat", s.handleHeartbeat)

	stdLog := zap.NewStdLog(s.logger)
	var h http.Handler = mux
	h = handlers.CORS(
		handlers.AllowedOrigins(s.cfg.Server.WebSocket.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(h)
	h = handlers.CombinedLoggingHandler(stdLog.Writer(), h)
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(stdLog), handlers.PrintRecoveryStack(true))(h)
	return h
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()

	var req protocol.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, protocol.LoginResponse{Error: "malformed login request"})
		return
	}
	id, err := s.lobbies.Register(req.Nickname)
	if err != nil {
		status := http.StatusBadRequest
		if rules.KindOf(err) == rules.ResourceExhausted {
			status = http.StatusConflict
		}
		writeJSON(w, status, protocol.LoginResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, protocol.LoginResponse{UserID: id})
}

// userFromRequest reads the userId query parameter of a registered user.
func (s *Server) userFromRequest(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.URL.Query().Get("userId"))
	if err != nil || !s.lobbies.Registered(id) {
		http.Error(w, "unknown user", http.StatusUnauthorized)
		return 0, false
	}
	return id, true
}

func (s *Server) upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, int, bool) {
	userID, ok := s.userFromRequest(w, r)
	if !ok {
		return nil, 0, false
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.String("path", r.URL.Path), zap.Error(err))
		return nil, 0, false
	}
	return conn, userID, true
}

// handleCommands answers commands one at a time, in order.
func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	conn, userID, ok := s.upgrade(w, r)
	if !ok {
		return
	}
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.logger.Debug("command channel closed", zap.Int("user_id", userID), zap.Error(err))
			return
		}

		var reply protocol.Reply
		cmd, err := protocol.DecodeCommand(data)
		if err != nil {
			reply = protocol.Reply{
				Result:       protocol.ResultErr,
				ErrorKind:    string(rules.InvalidSelection),
				ErrorMessage: err.Error(),
			}
		} else {
			cmd.UserID = userID
			reply = s.Dispatch(cmd)
		}

		if t := s.cfg.Server.WebSocket.WriteTimeout; t > 0 {
			_ = conn.SetWriteDeadline(time.Now().Add(t))
		}
		if err := conn.WriteJSON(reply); err != nil {
			s.logger.Debug("reply write failed", zap.Int("user_id", userID), zap.Error(err))
			return
		}
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, userID, ok := s.upgrade(w, r)
	if !ok {
		return
	}
	s.hub.Attach(userID, conn)
}

// handleHeartbeat echoes probes. A user coming back resumes their match;
// a lost heartbeat disconnects them and, unless a suspended match waits for
// them, frees their nickname.
func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	conn, userID, ok := s.upgrade(w, r)
	if !ok {
		return
	}
	defer conn.Close()

	s.reconnected(userID)
	err := heartbeat.Respond(s.ctx, conn, s.cfg.Heartbeat.Timeout)
	if errors.Is(err, heartbeat.ErrStopped) {
		return
	}
	s.logger.Info("heartbeat lost", zap.Int("user_id", userID), zap.Error(err))
	s.disconnected(userID)
}

func (s *Server) reconnected(userID int) {
	matchID, ok := s.engine.MatchOf(userID)
	if !ok {
		return
	}
	if err := s.engine.Resume(matchID, userID); err != nil {
		s.logger.Warn("failed to resume match", zap.String("match_id", matchID), zap.Int("user_id", userID), zap.Error(err))
	}
}

func (s *Server) disconnected(userID int) {
	if l, ok := s.lobbies.LobbyOf(userID); ok {
		if err := s.lobbies.Leave(userID); err == nil {
			s.pushLobby(l)
		}
	}
	if matchID, ok := s.engine.MatchOf(userID); ok {
		if err := s.engine.Disconnect(matchID, userID, s.policy); err != nil {
			s.logger.Warn("failed to disconnect player", zap.String("match_id", matchID), zap.Int("user_id", userID), zap.Error(err))
		}
	}
	// Only a suspended match keeps the user around for a reconnect.
	if _, playing := s.engine.MatchOf(userID); !playing {
		s.lobbies.Unregister(userID)
		s.logger.Info("user logged out", zap.Int("user_id", userID))
	}
}
