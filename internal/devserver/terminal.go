package devserver

import (
	"net/http"
	"os"
	"os/exec"
	"sync"

	"github.com/creack/pty"
	"github.com/go-errors/errors"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	defaultRows = 24
	defaultCols = 80
)

// shellConn is one shell process bridged to one websocket.
type shellConn struct {
	id        string
	container string
	conn      *websocket.Conn
	cmd       *exec.Cmd
	pty       *os.File

	// writeMu serializes writes on conn.
	writeMu sync.Mutex

	closeOnce sync.Once
	done      chan struct{}
}

// startShell starts command in a pty rooted at dir.
func startShell(shell, dir string, conn *websocket.Conn, container string) (*shellConn, error) {
	cmd := exec.Command(shell)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "TERM=xterm-256color", "DEVBOX_CONTAINER="+container)

	f, err := pty.Start(cmd)
	if err != nil {
		return nil, errors.WrapPrefix(err, "start pty", 0)
	}
	pty.Setsize(f, &pty.Winsize{Rows: defaultRows, Cols: defaultCols})

	return &shellConn{
		id:        uuid.New().String(),
		container: container,
		conn:      conn,
		cmd:       cmd,
		pty:       f,
		done:      make(chan struct{}),
	}, nil
}

// pumpOutput copies pty output to the socket until either side fails.
func (c *shellConn) pumpOutput() {
	buf := make([]byte, 32*1024)
	for {
		n, err := c.pty.Read(buf)
		if n > 0 {
			c.writeMu.Lock()
			werr := c.conn.WriteMessage(websocket.BinaryMessage, buf[:n])
			c.writeMu.Unlock()
			if werr != nil {
				c.close()
				return
			}
		}
		if err != nil {
			// Shell exited; tell the client with a normal close.
			c.writeMu.Lock()
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shell exited"))
			c.writeMu.Unlock()
			c.close()
			return
		}
	}
}

// pumpInput copies socket frames to the pty verbatim.
func (c *shellConn) pumpInput() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.close()
			return
		}
		if _, err := c.pty.Write(data); err != nil {
			c.close()
			return
		}
	}
}

func (c *shellConn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
		c.pty.Close()
		if c.cmd.Process != nil {
			c.cmd.Process.Kill()
			c.cmd.Wait()
		}
		log.Info().Str("terminal", c.id).Str("container", c.container).Msg("terminal closed")
	})
}

// terminals tracks open shells so shutdown can close them.
type terminals struct {
	mu    sync.Mutex
	conns map[string]*shellConn
}

func newTerminals() *terminals {
	return &terminals{conns: make(map[string]*shellConn)}
}

func (t *terminals) add(c *shellConn) {
	t.mu.Lock()
	t.conns[c.id] = c
	t.mu.Unlock()
}

func (t *terminals) remove(id string) {
	t.mu.Lock()
	delete(t.conns, id)
	t.mu.Unlock()
}

func (t *terminals) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns)
}

func (t *terminals) closeAll() {
	t.mu.Lock()
	conns := make([]*shellConn, 0, len(t.conns))
	for _, c := range t.conns {
		conns = append(conns, c)
	}
	t.mu.Unlock()
	for _, c := range conns {
		c.close()
	}
}

func (s *Server) handleTerminal(w http.ResponseWriter, r *http.Request) {
	container := mux.Vars(r)["id"]
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("terminal upgrade failed")
		return
	}

	sc, err := startShell(s.shell, s.fs.Root(), conn, container)
	if err != nil {
		log.Error().Err(err).Str("shell", s.shell).Msg("terminal start failed")
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "shell failed to start"))
		conn.Close()
		return
	}
	s.terms.add(sc)
	defer s.terms.remove(sc.id)
	log.Info().Str("terminal", sc.id).Str("container", container).Str("shell", s.shell).Msg("terminal opened")

	go sc.pumpOutput()
	sc.pumpInput()
	<-sc.done
}
