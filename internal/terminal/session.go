package terminal

import (
	"bytes"
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-errors/errors"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ErrNotOpen is returned by Input when the socket is not open. The input is dropped.
var ErrNotOpen = errors.New("terminal socket is not open")

// State is the lifecycle of a session's socket.
type State int

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "errored"
	}
}

// Options configures a Session.
type Options struct {
	// URL is the terminal endpoint; ContainerID is appended as a path segment.
	URL         string
	ContainerID string

	// Rows and Cols size the screen until the first Resize.
	Rows, Cols int

	// Geometry converts Resize arguments to rows and columns.
	Geometry Geometry

	HandshakeTimeout time.Duration

	// OnOutput is called after inbound bytes reach the screen.
	OnOutput func()

	// OnState is called on every state transition with the cause, if any.
	OnState func(State, error)
}

// Session is one terminal attached to one container over one websocket.
// There is no reconnect; a new Session is needed after close or error.
type Session struct {
	opts   Options
	screen *Screen
	url    string

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	state   State
	err     error
	conn    *websocket.Conn
	closing bool

	// writeMu serializes writes on conn.
	writeMu sync.Mutex
}

// Endpoint builds the websocket URL for a container.
func Endpoint(base, containerID string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", errors.WrapPrefix(err, "terminal url", 0)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", errors.Errorf("terminal url %q: unsupported scheme %q", base, u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + url.PathEscape(containerID)
	return u.String(), nil
}

// Dial creates a session and starts connecting immediately. It returns
// without waiting for the handshake; the session starts in StateConnecting.
func Dial(ctx context.Context, opts Options) *Session {
	if opts.HandshakeTimeout == 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		opts:   opts,
		screen: NewScreen(opts.Rows, opts.Cols),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		state:  StateConnecting,
	}

	endpoint, err := Endpoint(opts.URL, opts.ContainerID)
	if err != nil {
		s.fail(err)
		close(s.done)
		return s
	}
	s.url = endpoint

	go s.run()
	return s
}

// Screen returns the emulator the session renders into.
func (s *Session) Screen() *Screen {
	return s.screen
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error that moved the session to StateErrored, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// ContainerID returns the container the session is bound to.
func (s *Session) ContainerID() string {
	return s.opts.ContainerID
}

// Done is closed once the session has stopped reading.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) run() {
	defer close(s.done)

	dialer := websocket.Dialer{HandshakeTimeout: s.opts.HandshakeTimeout}
	conn, _, err := dialer.DialContext(s.ctx, s.url, nil)
	if err != nil {
		if s.ctx.Err() != nil {
			s.setState(StateClosed, nil)
			return
		}
		log.Warn().Err(err).Str("url", s.url).Msg("terminal dial failed")
		s.fail(errors.WrapPrefix(err, "dial "+s.url, 0))
		return
	}

	s.mu.Lock()
	if s.closing || s.state != StateConnecting {
		// Closed while the handshake was in progress.
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.conn = conn
	s.mu.Unlock()

	log.Info().Str("container", s.opts.ContainerID).Msg("terminal connected")
	s.setState(StateOpen, nil)
	s.readLoop(conn)
}

func (s *Session) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.handleReadError(err)
			return
		}
		s.screen.Write(data)
		if s.opts.OnOutput != nil {
			s.opts.OnOutput()
		}
	}
}

func (s *Session) handleReadError(err error) {
	s.mu.Lock()
	closing := s.closing
	s.mu.Unlock()
	if closing {
		return
	}

	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		log.Info().Str("container", s.opts.ContainerID).Msg("terminal closed by remote")
		s.setState(StateClosed, nil)
		return
	}
	log.Warn().Err(err).Str("container", s.opts.ContainerID).Msg("terminal connection lost")
	s.fail(errors.WrapPrefix(err, "terminal read", 0))
}

// Input handles bytes typed by the user. A clear-screen control clears the
// local screen immediately in any state. The bytes are then sent verbatim if
// the socket is open and dropped otherwise.
func (s *Session) Input(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if bytes.IndexByte(data, ClearScreen) >= 0 {
		s.screen.Clear()
		if s.opts.OnOutput != nil {
			s.opts.OnOutput()
		}
	}

	s.mu.Lock()
	state, conn := s.state, s.conn
	s.mu.Unlock()

	if state != StateOpen || conn == nil {
		log.Debug().Str("state", state.String()).Int("bytes", len(data)).Msg("terminal input dropped")
		return ErrNotOpen
	}

	s.writeMu.Lock()
	err := conn.WriteMessage(websocket.BinaryMessage, data)
	s.writeMu.Unlock()
	if err != nil {
		log.Warn().Err(err).Msg("terminal write failed")
		s.fail(errors.WrapPrefix(err, "terminal write", 0))
		return err
	}
	return nil
}

// Resize fits the screen to an area of width x height in Geometry units.
// It is applied on every call without debouncing and reports the new size
// and whether it changed. The size is local to the emulator; the wire
// carries only raw bytes.
func (s *Session) Resize(width, height int) (rows, cols int, changed bool) {
	rows, cols = s.opts.Geometry.Fit(width, height)
	changed = s.screen.Resize(rows, cols)
	if changed {
		log.Debug().Int("rows", rows).Int("cols", cols).Msg("terminal resized")
	}
	return rows, cols, changed
}

// Close closes the socket and disposes the screen. Unsent data is not flushed.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return nil
	}
	s.closing = true
	conn := s.conn
	s.mu.Unlock()

	s.setState(StateClosed, nil)
	s.cancel()

	var err error
	if conn != nil {
		err = conn.Close()
	}
	s.screen.Dispose()
	<-s.done
	return err
}

func (s *Session) fail(err error) {
	s.setState(StateErrored, err)
}

func (s *Session) setState(state State, err error) {
	s.mu.Lock()
	if s.state == state || s.state == StateClosed || (s.state == StateErrored && state != StateClosed) {
		s.mu.Unlock()
		return
	}
	s.state = state
	if err != nil {
		s.err = err
	}
	s.mu.Unlock()

	if s.opts.OnState != nil {
		s.opts.OnState(state, err)
	}
}
