package wireproto

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/stretchr/testify/require"
)

// pipeConn feeds ReadLoop from an io.Pipe so a test can write successive
// frames without standing up a real net.Conn.
type pipeConn struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func newPipeConn() (*Conn, *pipeConn) {
	r, w := io.Pipe()
	pc := &pipeConn{r: r, w: w}
	return NewConn(pc, btclog.Disabled), pc
}

func (p *pipeConn) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *pipeConn) Write(b []byte) (int, error) { return p.w.Write(b) }

func writeLine(t *testing.T, pc *pipeConn, id uint64) {
	t.Helper()
	frame, err := NewSwapRequest(id, "rfc003", "bitcoin", "ethereum", "bitcoin", "ether", RequestBody{
		SecretHash: "aa",
	})
	require.NoError(t, err)
	b, err := json.Marshal(frame)
	require.NoError(t, err)
	_, werr := pc.w.Write(append(b, '\n'))
	require.NoError(t, werr)
}

func TestReadLoopAcceptsIncreasingRequestIDs(t *testing.T) {
	c, pc := newPipeConn()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.ReadLoop(ctx) }()

	writeLine(t, pc, 1)
	writeLine(t, pc, 2)

	for i := 0; i < 2; i++ {
		select {
		case <-c.Incoming():
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for frame %d", i)
		}
	}

	pc.w.Close()
	select {
	case err := <-done:
		require.ErrorIs(t, err, io.EOF)
	case <-time.After(time.Second):
		t.Fatal("ReadLoop did not exit on EOF")
	}
}

func TestReadLoopClosesOnOutOfOrderRequestID(t *testing.T) {
	c, pc := newPipeConn()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.ReadLoop(ctx) }()

	writeLine(t, pc, 5)
	select {
	case <-c.Incoming():
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for first frame")
	}

	writeLine(t, pc, 5) // not strictly greater than 5: must close.

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrOutOfOrderRequest)
	case <-time.After(time.Second):
		t.Fatal("ReadLoop did not close on out-of-order request id")
	}

	_, ok := <-c.Incoming()
	require.False(t, ok, "Incoming should be closed after teardown")
}
