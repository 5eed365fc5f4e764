package neoconsole

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net"
	"time"

	"github.com/mumez/neobridge/core/logx"
)

// ErrIncomplete reports that the console closed or stalled before a
// prompt terminated the reply.
var ErrIncomplete = errors.New("neoconsole: incomplete response, prompt not seen")

// Session is one live connection to the NeoConsole listener. It is not
// safe for concurrent use; the Supervisor serializes access.
type Session struct {
	conn     net.Conn
	r        *bufio.Reader
	lastUsed time.Time
}

// Dial connects to the console listener and drains the greeting up to
// the first prompt so the session starts at a known point.
func Dial(ctx context.Context, addr string, timeout time.Duration) (*Session, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	s := &Session{conn: conn, r: bufio.NewReader(conn), lastUsed: time.Now()}
	if _, err := s.readToPrompt(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	logx.Log.Debug().Str("addr", addr).Msg("neoconsole session established")
	return s, nil
}

// Roundtrip writes one framed command and reads the raw reply up to the
// next prompt. Any error leaves the session unusable.
func (s *Session) Roundtrip(ctx context.Context, cmd Command) (string, error) {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(30 * time.Second)
	}
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return "", err
	}
	if _, err := s.conn.Write(cmd.Encode()); err != nil {
		return "", err
	}
	raw, err := s.readToPrompt(ctx)
	if err != nil {
		return "", err
	}
	s.lastUsed = time.Now()
	return raw, nil
}

// readToPrompt accumulates output until the prompt appears at the tail
// of the stream or the context deadline passes.
func (s *Session) readToPrompt(ctx context.Context) (string, error) {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(30 * time.Second)
	}
	if err := s.conn.SetReadDeadline(deadline); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
				return buf.String(), ErrIncomplete
			}
			// Peer close mid-reply.
			return buf.String(), err
		}
		buf.WriteByte(b)
		if promptAtTail(buf.Bytes()) {
			s.drainPromptResidue()
			return buf.String(), nil
		}
	}
}

// drainPromptResidue consumes whitespace the console sends after its
// prompt. The prompt is "pharo> " with a trailing space; leaving that
// byte buffered would make a later liveness probe mistake it for
// unsolicited data.
func (s *Session) drainPromptResidue() {
	for s.r.Buffered() > 0 {
		b, err := s.r.Peek(1)
		if err != nil || (b[0] != ' ' && b[0] != '\t') {
			return
		}
		_, _ = s.r.ReadByte()
	}
}

// promptAtTail reports whether the stream currently ends with the
// console prompt, tolerating the trailing space the console sends.
func promptAtTail(b []byte) bool {
	t := bytes.TrimRight(b, " \t")
	return bytes.HasSuffix(t, []byte(Prompt))
}

// Alive probes connection liveness without consuming a request: a
// zero-deadline read that times out means the peer is still there, while
// EOF or buffered stray data mean the session is stale.
func (s *Session) Alive() bool {
	if s.conn == nil {
		return false
	}
	// Prompt whitespace delivered in a late segment is not stray data.
	s.drainPromptResidue()
	if s.r.Buffered() > 0 {
		return false
	}
	if err := s.conn.SetReadDeadline(time.Now()); err != nil {
		return false
	}
	one := make([]byte, 1)
	_, err := s.conn.Read(one)
	_ = s.conn.SetReadDeadline(time.Time{})
	switch {
	case err == nil:
		// Unsolicited data outside a request; response matching is gone.
		return false
	case isTimeout(err):
		return true
	default:
		return false
	}
}

// LastUsed reports when the session last completed a round-trip.
func (s *Session) LastUsed() time.Time { return s.lastUsed }

// Close sends a best-effort quit and tears down the connection.
func (s *Session) Close() error {
	if s.conn == nil {
		return nil
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(time.Second))
	_, _ = s.conn.Write(Command{Keyword: "quit"}.Encode())
	return s.conn.Close()
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
