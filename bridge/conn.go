// Package bridge implements the IPC core of the decision-support bridge:
// the line transport to the decision server, the session client, the
// change gate, and the host-driven poll loop.
//
// The whole pipeline is single-threaded and cooperative: Tick runs inside
// the host's update callback, one exchange at a time, and blocks for at
// most the configured transport timeouts. The host must not re-enter Tick
// while a prior Tick is still running; that scheduling guarantee is a
// precondition, not something the bridge enforces with locks.
package bridge

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

// Transport is one line-delimited message channel to the decision server.
// Each SendLine/ReceiveLine moves exactly one message.
type Transport interface {
	Connect() error
	SendLine(line string) error
	ReceiveLine() (string, error)
	Close() error
	Connected() bool
}

// Conn is the TCP transport. It holds at most one live socket; any failure
// other than a receive timeout releases it, so a retried Connect always
// starts from a clean slate.
//
// Timeouts are two-tier: connecting fails fast because the peer is commonly
// absent, while an established session tolerates peer-side thinking time.
type Conn struct {
	addr           string
	connectTimeout time.Duration
	ioTimeout      time.Duration

	conn net.Conn
	r    *bufio.Reader

	// pending holds bytes of a line that arrived before a receive deadline
	// expired. The next ReceiveLine on the same connection rejoins them
	// with the rest of the line.
	pending string
}

func NewConn(host string, port int, connectTimeout, ioTimeout time.Duration) *Conn {
	return &Conn{
		addr:           net.JoinHostPort(host, strconv.Itoa(port)),
		connectTimeout: connectTimeout,
		ioTimeout:      ioTimeout,
	}
}

func (c *Conn) Connected() bool { return c.conn != nil }

func (c *Conn) Connect() error {
	if c.conn != nil {
		return nil
	}
	conn, err := net.DialTimeout("tcp", c.addr, c.connectTimeout)
	if err != nil {
		// No live handle is kept; an immediate retry is safe.
		return fmt.Errorf("connect %s: %w", c.addr, err)
	}
	c.conn = conn
	c.r = bufio.NewReader(conn)
	return nil
}

// SendLine writes line plus exactly one terminator. Any write failure,
// partial writes included, forces Disconnected: the caller must reconnect
// and resend the whole exchange, there is no partial-retry.
func (c *Conn) SendLine(line string) error {
	if c.conn == nil {
		return ErrNotConnected
	}
	if strings.ContainsRune(line, '\n') {
		return errors.New("message contains an unescaped newline")
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.ioTimeout)); err != nil {
		c.drop()
		return err
	}
	if _, err := c.conn.Write([]byte(line + "\n")); err != nil {
		c.drop()
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

// ReceiveLine reads up to and including the next terminator and returns the
// line without it. A deadline expiry returns ErrTimeout and keeps the
// connection (and any buffered partial input) so the caller may retry on
// the same socket; every other failure forces Disconnected.
func (c *Conn) ReceiveLine() (string, error) {
	if c.conn == nil {
		return "", ErrNotConnected
	}
	if err := c.conn.SetReadDeadline(time.Now().Add(c.ioTimeout)); err != nil {
		c.drop()
		return "", err
	}
	line, err := c.r.ReadString('\n')
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			// ReadString hands back whatever it consumed before the
			// deadline; stash it so the retry returns the whole line.
			c.pending += line
			return "", ErrTimeout
		}
		c.drop()
		if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
			return "", ErrClosed
		}
		return "", fmt.Errorf("receive: %w", err)
	}
	line = c.pending + line
	c.pending = ""
	return strings.TrimRight(line, "\r\n"), nil
}

// Close is idempotent and safe on a never-opened transport.
func (c *Conn) Close() error {
	c.drop()
	return nil
}

func (c *Conn) drop() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
		c.r = nil
	}
	c.pending = ""
}
