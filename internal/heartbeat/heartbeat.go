// Package heartbeat probes connection liveness over a dedicated channel.
// The client side sends numbered probes and waits for their echo; the
// server side echoes and notices when probes stop arriving.
package heartbeat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eriantys/eriantys-server-go/internal/game/rules"
	"github.com/eriantys/eriantys-server-go/internal/protocol"
)

const (
	DefaultInterval = time.Second
	DefaultTimeout  = 5 * time.Second
)

// Conn is the part of a websocket connection a heartbeat needs.
// *websocket.Conn satisfies it.
type Conn interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
	SetReadDeadline(t time.Time) error
}

// ErrStopped is returned by Run when its context is cancelled.
var ErrStopped = errors.New("heartbeat stopped")

// Pinger sends a probe every interval and expects the same sequence back
// within timeout. The first timeout, mismatch or transport error fails the
// pinger; the failure is reported exactly once.
type Pinger struct {
	conn     Conn
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
	onFail   func(error)

	once   sync.Once
	failed chan struct{}
	err    error
}

// NewPinger creates a pinger. onFail may be nil.
func NewPinger(conn Conn, interval, timeout time.Duration, logger *zap.Logger, onFail func(error)) *Pinger {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Pinger{
		conn:     conn,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
		onFail:   onFail,
		failed:   make(chan struct{}),
	}
}

// Run probes until the context ends or the connection fails.
func (p *Pinger) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var seq int64
	for {
		seq++
		if err := p.probe(seq); err != nil {
			p.fail(err)
			return err
		}

		select {
		case <-ctx.Done():
			return ErrStopped
		case <-p.failed:
			return p.Err()
		case <-ticker.C:
		}
	}
}

func (p *Pinger) probe(seq int64) error {
	if err := p.conn.WriteJSON(protocol.Heartbeat{Sequence: seq}); err != nil {
		return transportFailure("send probe %d: %v", seq, err)
	}
	if err := p.conn.SetReadDeadline(time.Now().Add(p.timeout)); err != nil {
		return transportFailure("set deadline: %v", err)
	}

	var echo protocol.Heartbeat
	if err := p.conn.ReadJSON(&echo); err != nil {
		return transportFailure("no echo for probe %d within %s: %v", seq, p.timeout, err)
	}
	if echo.Sequence != seq {
		return transportFailure("probe %d answered with sequence %d", seq, echo.Sequence)
	}
	return nil
}

// Fail marks the connection failed from outside, e.g. when the command
// channel broke. Only the first failure counts.
func (p *Pinger) Fail(err error) {
	p.fail(err)
}

func (p *Pinger) fail(err error) {
	p.once.Do(func() {
		p.err = err
		p.logger.Warn("heartbeat failed", zap.Error(err))
		if p.onFail != nil {
			p.onFail(err)
		}
		// Failed closes only after onFail has run.
		close(p.failed)
	})
}

// Failed is closed once the connection failed.
func (p *Pinger) Failed() <-chan struct{} {
	return p.failed
}

// Err returns the failure, or nil while the connection is healthy.
func (p *Pinger) Err() error {
	select {
	case <-p.failed:
		return p.err
	default:
		return nil
	}
}

// Respond echoes every probe received on conn. It returns when no probe
// arrived within timeout or the connection broke; the error is a
// TransportFailure violation either way.
func Respond(ctx context.Context, conn Conn, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	for {
		if ctx.Err() != nil {
			return ErrStopped
		}
		if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return transportFailure("set deadline: %v", err)
		}
		var probe protocol.Heartbeat
		if err := conn.ReadJSON(&probe); err != nil {
			return transportFailure("no probe within %s: %v", timeout, err)
		}
		if err := conn.WriteJSON(probe); err != nil {
			return transportFailure("echo probe %d: %v", probe.Sequence, err)
		}
	}
}

func transportFailure(format string, args ...any) error {
	return fmt.Errorf("heartbeat: %w", rules.Violationf(rules.TransportFailure, format, args...))
}
