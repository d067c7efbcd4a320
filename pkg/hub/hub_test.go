package hub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/websocket/v2"
)

type frame struct {
	mt   int
	data []byte
}

// fakeConn is an in-memory websocket connection
type fakeConn struct {
	in  chan frame
	out chan frame

	mu     sync.Mutex
	closed bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{in: make(chan frame, 8), out: make(chan frame, 64)}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	fr, ok := <-f.in
	if !ok {
		return 0, nil, errors.New("closed")
	}
	return fr.mt, fr.data, nil
}

func (f *fakeConn) WriteMessage(mt int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("closed")
	}
	f.out <- frame{mt, data}
	return nil
}

func (f *fakeConn) SetReadLimit(int64)                {}
func (f *fakeConn) SetReadDeadline(time.Time) error   { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error  { return nil }
func (f *fakeConn) SetPongHandler(func(string) error) {}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) expect(t *testing.T) frame {
	t.Helper()
	select {
	case fr := <-f.out:
		return fr
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a frame")
		return frame{}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func startHub(t *testing.T, h *Hub) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	waitFor(t, h.IsRunning)
	t.Cleanup(cancel)
	return cancel
}

func TestHub_BroadcastReachesClients(t *testing.T) {
	h := New("pose")
	startHub(t, h)

	a, b := newFakeConn(), newFakeConn()
	go NewClient(h, a).Run()
	go NewClient(h, b).Run()
	waitFor(t, func() bool { return h.ClientCount() == 2 })

	if err := h.BroadcastJSON(map[string]int{"seq": 1}); err != nil {
		t.Fatal(err)
	}
	h.BroadcastBinary([]byte{1, 2, 3})

	for _, c := range []*fakeConn{a, b} {
		if fr := c.expect(t); fr.mt != websocket.TextMessage || string(fr.data) != `{"seq":1}` {
			t.Errorf("unexpected text frame %d %q", fr.mt, fr.data)
		}
		if fr := c.expect(t); fr.mt != websocket.BinaryMessage || len(fr.data) != 3 {
			t.Errorf("unexpected binary frame %d %v", fr.mt, fr.data)
		}
	}
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	h := New("pose")
	startHub(t, h)

	c := newFakeConn()
	go NewClient(h, c).Run()
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	close(c.in)
	waitFor(t, func() bool { return h.ClientCount() == 0 })
}

func TestHub_HandlerReplyGoesToSender(t *testing.T) {
	h := New("control")
	var (
		mu  sync.Mutex
		got []string
	)
	h.OnMessage(func(id string, data []byte) []byte {
		mu.Lock()
		got = append(got, string(data))
		mu.Unlock()
		return []byte(`{"ok":true}`)
	})
	startHub(t, h)

	sender, other := newFakeConn(), newFakeConn()
	go NewClient(h, sender).Run()
	go NewClient(h, other).Run()
	waitFor(t, func() bool { return h.ClientCount() == 2 })

	sender.in <- frame{websocket.TextMessage, []byte(`{"type":"key"}`)}
	sender.in <- frame{websocket.BinaryMessage, []byte{0xff}}

	if fr := sender.expect(t); string(fr.data) != `{"ok":true}` {
		t.Errorf("unexpected reply %q", fr.data)
	}

	mu.Lock()
	n := len(got)
	mu.Unlock()
	if n != 1 {
		t.Errorf("expected only the text message to reach the handler, got %d", n)
	}

	select {
	case fr := <-other.out:
		t.Errorf("reply leaked to another client: %q", fr.data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_StopClosesClients(t *testing.T) {
	h := New("frames")
	cancel := startHub(t, h)

	c := newFakeConn()
	go NewClient(h, c).Run()
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	cancel()
	waitFor(t, func() bool { return !h.IsRunning() })

	if fr := c.expect(t); fr.mt != websocket.CloseMessage {
		t.Errorf("expected close frame, got %d", fr.mt)
	}
	if h.ClientCount() != 0 {
		t.Errorf("expected no clients after stop, got %d", h.ClientCount())
	}
}

func TestHub_BroadcastWithoutRunDrops(t *testing.T) {
	h := New("pose")
	for i := 0; i < 300; i++ {
		h.BroadcastBinary([]byte{byte(i)})
	}
	if h.Dropped() != 300-256 {
		t.Errorf("dropped = %d, want %d", h.Dropped(), 300-256)
	}
}

func TestClient_IDsAreUnique(t *testing.T) {
	h := New("pose")
	startHub(t, h)

	a := NewClient(h, newFakeConn())
	b := NewClient(h, newFakeConn())
	if a.ID() == "" || a.ID() == b.ID() {
		t.Errorf("expected distinct ids, got %q and %q", a.ID(), b.ID())
	}
}
