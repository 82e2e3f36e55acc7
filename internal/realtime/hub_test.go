package realtime

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu     sync.Mutex
	msgs   [][]byte
	closed bool
	block  chan struct{}
	err    error
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, data)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) received() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Message, 0, len(f.msgs))
	for _, b := range f.msgs {
		var m Message
		_ = json.Unmarshal(b, &m)
		out = append(out, m)
	}
	return out
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, time.Second, 5*time.Millisecond)
}

func TestHub_RoomsAndUsers(t *testing.T) {
	h := NewHub(8, zerolog.Nop())
	a, b, c := &fakeConn{}, &fakeConn{}, &fakeConn{}
	ca := h.Register(a, "alice", "general")
	h.Register(b, "bob", "general")
	h.Register(c, "alice", "")

	st := h.Stats()
	assert.Equal(t, 3, st.ActiveConnections)
	assert.Equal(t, 2, st.UserConnections)
	assert.Equal(t, map[string]int{"general": 2}, st.Rooms)

	assert.Equal(t, 2, h.BroadcastRoom("general", Message{Type: "chat_message", Data: "hi"}))
	assert.Equal(t, 2, h.SendToUser("alice", Message{Type: "notification"}))
	assert.Equal(t, 0, h.SendToUser("nobody", Message{Type: "notification"}))
	assert.Equal(t, 3, h.Broadcast(Message{Type: "ping"}))

	eventually(t, func() bool { return len(a.received()) == 3 })
	eventually(t, func() bool { return len(b.received()) == 2 })
	eventually(t, func() bool { return len(c.received()) == 2 })
	assert.Equal(t, "chat_message", a.received()[0].Type)
	assert.False(t, a.received()[0].Timestamp.IsZero())

	h.Unregister(ca)
	h.Unregister(ca)
	assert.True(t, a.isClosed())
	st = h.Stats()
	assert.Equal(t, 2, st.ActiveConnections)
	assert.Equal(t, map[string]int{"general": 1}, st.Rooms)
	assert.False(t, h.Send(ca, Message{Type: "late"}))
	<-ca.Done()
}

func TestHub_DropsSlowClient(t *testing.T) {
	h := NewHub(1, zerolog.Nop())
	slow := &fakeConn{block: make(chan struct{})}
	fast := &fakeConn{}
	h.Register(slow, "s", "")
	h.Register(fast, "f", "")

	// first message is picked up by the writer, which then blocks; second fills the queue
	h.Broadcast(Message{Type: "1"})
	eventually(t, func() bool { return len(fast.received()) == 1 })
	time.Sleep(10 * time.Millisecond)
	h.Broadcast(Message{Type: "2"})
	eventually(t, func() bool { return len(fast.received()) == 2 })

	sent := h.Broadcast(Message{Type: "3"})
	assert.Equal(t, 1, sent)
	assert.Equal(t, 1, h.Stats().ActiveConnections)
	assert.True(t, slow.isClosed())
	close(slow.block)
}

func TestHub_WriteErrorUnregisters(t *testing.T) {
	h := NewHub(4, zerolog.Nop())
	bad := &fakeConn{err: errors.New("broken pipe")}
	h.Register(bad, "u", "r")

	h.SendToUser("u", Message{Type: "x"})
	eventually(t, func() bool { return h.Stats().ActiveConnections == 0 })
	assert.Empty(t, h.Stats().Rooms)
}

func TestNotifier(t *testing.T) {
	h := NewHub(4, zerolog.Nop())
	conn := &fakeConn{}
	h.Register(conn, "u1", "")
	n := NewNotifier(h)

	assert.Equal(t, 1, n.NotifyUser("u1", "Hello", "world", ""))
	assert.Equal(t, 1, n.NotifyAll("All", "hands", "warning"))
	eventually(t, func() bool { return len(conn.received()) == 2 })

	first := conn.received()[0]
	assert.Equal(t, "notification", first.Type)
	data := first.Data.(map[string]any)
	assert.Equal(t, "Hello", data["title"])
	assert.Equal(t, "info", data["type"])

	h.Close()
	assert.Equal(t, 0, h.Stats().ActiveConnections)
}

func TestWriteEvent(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	require.NoError(t, WriteEvent(w, Event{Name: "stock-update", Data: map[string]any{"symbol": "AAPL"}}))
	require.NoError(t, WriteEvent(w, Event{ID: 2, Data: "tick"}))

	assert.Equal(t, "event: stock-update\ndata: {\"symbol\":\"AAPL\"}\n\nid: 2\ndata: \"tick\"\n\n", buf.String())
}

// gatedConn parks inside WriteMessage until the test opens the gate and
// records any write that starts after the connection was handed back.
type gatedConn struct {
	entered  chan struct{}
	gate     chan struct{}
	mu       sync.Mutex
	released bool
	late     int
	writes   int
}

func (g *gatedConn) WriteMessage(int, []byte) error {
	g.mu.Lock()
	if g.released {
		g.late++
	}
	g.writes++
	g.mu.Unlock()
	g.entered <- struct{}{}
	<-g.gate
	return nil
}

func (g *gatedConn) Close() error { return nil }

func (g *gatedConn) release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.released = true
}

func TestHub_LeaveWaitsForWriter(t *testing.T) {
	h := NewHub(8, zerolog.Nop())
	conn := &gatedConn{entered: make(chan struct{}, 4), gate: make(chan struct{})}
	c := h.Register(conn, "alice", "")

	require.True(t, h.Send(c, Message{Type: "echo", Data: 1}))
	require.True(t, h.Send(c, Message{Type: "echo", Data: 2}))
	<-conn.entered

	left := make(chan struct{})
	go func() {
		h.Leave(c)
		conn.release()
		close(left)
	}()

	select {
	case <-left:
		t.Fatal("Leave returned while a write was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(conn.gate)
	select {
	case <-left:
	case <-time.After(time.Second):
		t.Fatal("Leave did not return after the write finished")
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()
	assert.Zero(t, conn.late)
	assert.Equal(t, 1, conn.writes, "queued frames are dropped once the client leaves")
	assert.Zero(t, h.Stats().ActiveConnections)
}

func TestHub_LeaveAfterWriteFailure(t *testing.T) {
	h := NewHub(8, zerolog.Nop())
	conn := &fakeConn{err: errors.New("broken pipe")}
	c := h.Register(conn, "", "")

	h.Send(c, Message{Type: "echo"})
	done := make(chan struct{})
	go func() {
		h.Leave(c)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Leave blocked on a client whose writer already stopped")
	}
	assert.True(t, conn.isClosed())
}
