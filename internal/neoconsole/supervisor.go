package neoconsole

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mumez/neobridge/core/logx"
	"github.com/mumez/neobridge/core/reconnect"
	"github.com/mumez/neobridge/internal/metrics"
)

// ErrUnavailable reports that no healthy session could be obtained
// within the caller's deadline.
var ErrUnavailable = errors.New("neoconsole: session unavailable")

// console is the slice of Session the supervisor depends on; tests
// substitute fakes.
type console interface {
	Roundtrip(ctx context.Context, cmd Command) (string, error)
	Alive() bool
	Close() error
}

// Supervisor owns the single console session: lazy connect on first
// use, liveness check before reuse, invalidate on failure, reconnect on
// the next call. All access is serialized; the console has no request
// framing beyond line order, so one command owns the session from write
// through read.
type Supervisor struct {
	addr        string
	dialTimeout time.Duration
	dial        func(ctx context.Context) (console, error)

	mu   sync.Mutex
	sess console
}

// NewSupervisor creates a Supervisor for the given listener address.
// No connection is made until the first Do call.
func NewSupervisor(addr string, dialTimeout time.Duration) *Supervisor {
	s := &Supervisor{addr: addr, dialTimeout: dialTimeout}
	s.dial = func(ctx context.Context) (console, error) {
		return Dial(ctx, addr, dialTimeout)
	}
	return s
}

// Do executes one command against a healthy session, holding the
// session lock for the full round-trip. A round-trip failure invalidates
// the session; the next call reconnects.
func (s *Supervisor) Do(ctx context.Context, cmd Command) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.ensureLocked(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	raw, err := sess.Roundtrip(ctx, cmd)
	if err != nil {
		// Unknown stream position; force a fresh connection next time.
		s.invalidateLocked()
		return "", err
	}
	return raw, nil
}

// ensureLocked returns the current session when it is still live, or
// dials a new one with backoff until the context deadline. Callers hold
// s.mu.
func (s *Supervisor) ensureLocked(ctx context.Context) (console, error) {
	if s.sess != nil {
		if s.sess.Alive() {
			return s.sess, nil
		}
		logx.Log.Info().Str("addr", s.addr).Msg("neoconsole session stale, reconnecting")
		s.invalidateLocked()
	}
	attempt := 0
	for {
		sess, err := s.dial(ctx)
		if err == nil {
			s.sess = sess
			metrics.SessionConnect()
			return sess, nil
		}
		logx.Log.Warn().Err(err).Int("attempt", attempt).Str("addr", s.addr).Msg("neoconsole connect failed")
		select {
		case <-ctx.Done():
			return nil, err
		case <-time.After(reconnect.Delay(attempt)):
		}
		attempt++
	}
}

func (s *Supervisor) invalidateLocked() {
	if s.sess != nil {
		_ = s.sess.Close()
		s.sess = nil
	}
}

// Connected reports whether a session is currently held. Intended for
// status reporting; the answer may be stale by the time it is used.
func (s *Supervisor) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess != nil
}

// Shutdown closes the current session if any. The supervisor remains
// usable; a later call simply reconnects.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidateLocked()
}
