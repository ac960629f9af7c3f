package wireproto

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/btcsuite/btclog"
)

// maxFrameBytes bounds a single newline-delimited frame, guarding against a
// peer that never sends '\n' from growing bufio.Scanner's buffer without
// limit.
const maxFrameBytes = 1 << 20

// Conn is a duplex newline-framed JSON connection, grounded on lnd's
// lnwire.Message read/write loop (brontide.Conn wrapping a framed
// transport) but adapted to line-delimited JSON rather than a fixed binary
// header.
type Conn struct {
	rw  io.ReadWriter
	log btclog.Logger

	writeMu sync.Mutex

	corr *Correlator

	incoming chan Frame
	closeMu  sync.Mutex
	closed   bool
	closeCh  chan struct{}

	// lastIncomingID tracks the last REQUEST id accepted from the peer,
	// enforcing spec §4.3's per-sender monotonically-increasing ordering
	// rule. haveLastIncoming distinguishes "no REQUEST seen yet" from a
	// legitimate id of 0.
	haveLastIncoming bool
	lastIncomingID   uint64
}

// NewConn wraps rw (typically a net.Conn) as a wireproto.Conn.
func NewConn(rw io.ReadWriter, log btclog.Logger) *Conn {
	return &Conn{
		rw:       rw,
		log:      log,
		corr:     NewCorrelator(),
		incoming: make(chan Frame, 32),
		closeCh:  make(chan struct{}),
	}
}

// Incoming returns the channel of REQUEST frames received from the peer.
// RESPONSE frames are consumed internally by Correlator and never appear
// here.
func (c *Conn) Incoming() <-chan Frame { return c.incoming }

// ReadLoop blocks reading newline-delimited frames from rw until ctx is
// canceled, the peer closes the connection, a malformed frame arrives, or a
// REQUEST frame's id fails to strictly increase over the peer's last one.
// REQUEST frames are published on Incoming(); RESPONSE frames are routed to
// their waiting caller via the Correlator. It returns ErrMalformedFrame
// (scenario E6), ErrOutOfOrderRequest, or the underlying read error.
func (c *Conn) ReadLoop(ctx context.Context) error {
	defer c.teardown()

	scanner := bufio.NewScanner(c.rw)
	scanner.Buffer(make([]byte, 4096), maxFrameBytes)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var frame Frame
		if err := json.Unmarshal(line, &frame); err != nil {
			c.log.Errorf("malformed frame, closing connection: %v", err)
			return fmt.Errorf("%w", ErrMalformedFrame)
		}

		switch frame.Type {
		case FrameResponse:
			if !c.corr.Resolve(frame) {
				c.log.Warnf("response %d has no outstanding request, dropping", frame.ID)
			}
		case FrameRequest:
			if c.haveLastIncoming && frame.ID <= c.lastIncomingID {
				c.log.Errorf("request id %d not greater than last seen %d, closing connection",
					frame.ID, c.lastIncomingID)
				return fmt.Errorf("%w: got %d after %d", ErrOutOfOrderRequest, frame.ID, c.lastIncomingID)
			}
			c.haveLastIncoming = true
			c.lastIncomingID = frame.ID

			select {
			case c.incoming <- frame:
			case <-ctx.Done():
				return ctx.Err()
			}
		default:
			c.log.Warnf("frame %d has unrecognized type %q, dropping", frame.ID, frame.Type)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read frame: %w", err)
	}
	return io.EOF
}

// Send writes frame terminated by a newline. Safe for concurrent use.
func (c *Conn) Send(frame Frame) error {
	b, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	b = append(b, '\n')

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.rw.Write(b); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Request sends a REQUEST frame and blocks until the correlated RESPONSE
// arrives, ctx is canceled, or the connection is torn down.
func (c *Conn) Request(ctx context.Context, frame Frame) (Frame, error) {
	waiter := c.corr.Await(frame.ID)
	if err := c.Send(frame); err != nil {
		return Frame{}, err
	}

	select {
	case resp, ok := <-waiter:
		if !ok {
			return Frame{}, fmt.Errorf("wireproto: connection closed awaiting response to %d", frame.ID)
		}
		return resp, nil
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case <-c.closeCh:
		return Frame{}, fmt.Errorf("wireproto: connection closed awaiting response to %d", frame.ID)
	}
}

// NextRequestID returns a fresh monotonically increasing request id for
// this connection.
func (c *Conn) NextRequestID() uint64 { return c.corr.NextID() }

func (c *Conn) teardown() {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.closeCh)
	close(c.incoming)
	c.corr.CloseAll()
}
