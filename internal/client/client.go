// Package client connects a player to the server over the command, event
// and heartbeat channels and keeps the connection-state mirror in step
// with what the server reports.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/eriantys/eriantys-server-go/internal/connstate"
	"github.com/eriantys/eriantys-server-go/internal/game/rules"
	"github.com/eriantys/eriantys-server-go/internal/heartbeat"
	"github.com/eriantys/eriantys-server-go/internal/protocol"
)

// ErrClosed is returned by Send after the client was closed or failed.
var ErrClosed = errors.New("client closed")

// Options tunes a client. Zero values fall back to the heartbeat defaults.
type Options struct {
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	// PushBuffer bounds the Pushes channel; pushes beyond it are dropped.
	PushBuffer int
}

// Client is one logged-in player.
type Client struct {
	baseURL *url.URL
	userID  int
	logger  *zap.Logger
	mirror  *connstate.Mirror

	command *websocket.Conn
	events  *websocket.Conn
	beat    *websocket.Conn
	pinger  *heartbeat.Pinger

	sendMu sync.Mutex
	nextID int64

	pushes    chan protocol.Push
	closeOnce sync.Once
	closed    chan struct{}
	wg        sync.WaitGroup
}

// Login registers the nickname and opens the three channels.
func Login(ctx context.Context, serverURL, nickname string, opts Options, logger *zap.Logger) (*Client, error) {
	base, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	userID, err := register(ctx, base, nickname)
	if err != nil {
		return nil, err
	}
	c, err := connect(ctx, base, userID, opts, logger)
	if err != nil {
		return nil, err
	}
	c.logger.Info("logged in", zap.String("nickname", nickname))
	return c, nil
}

// Reconnect opens the three channels again for a user whose connection
// failed while a suspended match waited for them. The mirror starts in the
// lobby and follows the MATCH_RESUMED push once every player is back.
func Reconnect(ctx context.Context, serverURL string, userID int, opts Options, logger *zap.Logger) (*Client, error) {
	base, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	c, err := connect(ctx, base, userID, opts, logger)
	if err != nil {
		return nil, fmt.Errorf("reconnect user %d: %w", userID, err)
	}
	c.logger.Info("reconnected")
	return c, nil
}

// connect dials events first so no push is lost, and heartbeat last since
// the server resumes a suspended match when it sees the heartbeat again.
func connect(ctx context.Context, base *url.URL, userID int, opts Options, logger *zap.Logger) (*Client, error) {
	if opts.PushBuffer <= 0 {
		opts.PushBuffer = 64
	}
	c := &Client{
		baseURL: base,
		userID:  userID,
		logger:  logger.With(zap.Int("user_id", userID)),
		mirror:  connstate.NewMirror(userID),
		pushes:  make(chan protocol.Push, opts.PushBuffer),
		closed:  make(chan struct{}),
	}

	var err error
	if c.events, err = c.dial(ctx, "/ws/events"); err != nil {
		return nil, err
	}
	var hello protocol.Push
	if err := c.events.ReadJSON(&hello); err != nil || hello.Kind != protocol.PushConnected {
		c.events.Close()
		return nil, fmt.Errorf("event channel handshake failed: %v", err)
	}
	if c.command, err = c.dial(ctx, "/ws/command"); err != nil {
		c.events.Close()
		return nil, err
	}
	if c.beat, err = c.dial(ctx, "/ws/heartbeat"); err != nil {
		c.events.Close()
		c.command.Close()
		return nil, err
	}

	c.pinger = heartbeat.NewPinger(c.beat, opts.HeartbeatInterval, opts.HeartbeatTimeout, c.logger, c.fail)

	c.wg.Add(2)
	go c.readEvents()
	go c.runPinger()
	return c, nil
}

func register(ctx context.Context, base *url.URL, nickname string) (int, error) {
	body, err := json.Marshal(protocol.LoginRequest{Nickname: nickname})
	if err != nil {
		return 0, fmt.Errorf("encode login: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base.JoinPath("/login").String(), bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()

	var out protocol.LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode login response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("login refused: %s", out.Error)
	}
	return out.UserID, nil
}

func (c *Client) dial(ctx context.Context, path string) (*websocket.Conn, error) {
	u := *c.baseURL
	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	u.RawQuery = url.Values{"userId": {strconv.Itoa(c.userID)}}.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", path, err)
	}
	return conn, nil
}

// UserID returns the id assigned at login.
func (c *Client) UserID() int {
	return c.userID
}

// State returns the mirrored connection state.
func (c *Client) State() connstate.State {
	return c.mirror.State()
}

// Allowed lists the commands that may be sent now.
func (c *Client) Allowed() []protocol.CommandKind {
	return c.State().AllowedCommands()
}

// Pushes delivers every push after the mirror has seen it.
func (c *Client) Pushes() <-chan protocol.Push {
	return c.pushes
}

// Failed is closed once the connection failed.
func (c *Client) Failed() <-chan struct{} {
	return c.pinger.Failed()
}

// Send sends a command the current state allows and waits for its reply.
// Sends are serialized. Replies to earlier, abandoned requests are skipped.
func (c *Client) Send(ctx context.Context, cmd protocol.Command) (protocol.Reply, error) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	// The state already reflects the replies to every earlier Send.
	if state := c.State(); !state.Allows(cmd.Kind) {
		return protocol.Reply{}, rules.Violationf(rules.IllegalPhase, "%s is not allowed in %s", cmd.Kind, state)
	}
	select {
	case <-c.closed:
		return protocol.Reply{}, ErrClosed
	default:
	}

	c.nextID++
	cmd.RequestID = c.nextID
	cmd.UserID = c.userID

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}
	_ = c.command.SetWriteDeadline(deadline)
	_ = c.command.SetReadDeadline(deadline)

	if err := c.command.WriteJSON(cmd); err != nil {
		c.onTransportFailure(err)
		return protocol.Reply{}, fmt.Errorf("send %s: %w", cmd.Kind, err)
	}
	for {
		var reply protocol.Reply
		if err := c.command.ReadJSON(&reply); err != nil {
			c.onTransportFailure(err)
			return protocol.Reply{}, fmt.Errorf("await reply to %s: %w", cmd.Kind, err)
		}
		if reply.RequestID != cmd.RequestID {
			c.logger.Debug("discarding stale reply", zap.Int64("request_id", reply.RequestID))
			continue
		}
		c.mirror.OnReply(cmd.Kind, reply)
		return reply, nil
	}
}

func (c *Client) readEvents() {
	defer c.wg.Done()
	defer close(c.pushes)

	for {
		var push protocol.Push
		if err := c.events.ReadJSON(&push); err != nil {
			c.onTransportFailure(err)
			return
		}
		c.mirror.OnPush(push)
		select {
		case c.pushes <- push:
		default:
			c.logger.Warn("push buffer full, dropping", zap.String("kind", string(push.Kind)))
		}
	}
}

func (c *Client) runPinger() {
	defer c.wg.Done()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-c.closed:
			cancel()
		case <-ctx.Done():
		}
	}()
	_ = c.pinger.Run(ctx)
}

// onTransportFailure reports a broken channel. The pinger makes sure the
// failure is handled once, whichever channel noticed it first.
func (c *Client) onTransportFailure(err error) {
	select {
	case <-c.closed:
		return
	default:
	}
	c.pinger.Fail(fmt.Errorf("transport: %w", rules.Violationf(rules.TransportFailure, "%v", err)))
}

// fail ends the session: the mirror moves to GameOver and every channel closes.
func (c *Client) fail(error) {
	select {
	case <-c.closed:
		return
	default:
	}
	c.mirror.Fail()
	c.shutdown()
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.events.Close()
		c.command.Close()
		c.beat.Close()
	})
}

// Close disconnects. The mirror keeps its last state.
func (c *Client) Close() error {
	c.shutdown()
	c.wg.Wait()
	c.logger.Info("logged out")
	return nil
}
