package signaling

import (
	"encoding/json"
	"sync"
	"testing"
)

// fakeConn records every frame sent to it.
type fakeConn struct {
	id string

	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Send(frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrConnClosed
	}
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// envelopes decodes everything received so far.
func (f *fakeConn) envelopes(t *testing.T) []Envelope {
	t.Helper()

	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]Envelope, 0, len(f.frames))
	for _, frame := range f.frames {
		var env Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			t.Fatalf("%s received invalid frame %q: %v", f.id, frame, err)
		}
		out = append(out, env)
	}
	return out
}

// ofType returns the received envelopes of type mt.
func (f *fakeConn) ofType(t *testing.T, mt MessageType) []Envelope {
	t.Helper()

	var out []Envelope
	for _, env := range f.envelopes(t) {
		if env.Type == mt {
			out = append(out, env)
		}
	}
	return out
}

// reset forgets everything received so far.
func (f *fakeConn) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = nil
}

// onlyOne asserts conn received exactly one envelope in total, of type mt,
// and decodes its data into dst.
func onlyOne(t *testing.T, conn *fakeConn, mt MessageType, dst any) {
	t.Helper()

	envs := conn.envelopes(t)
	if len(envs) != 1 || envs[0].Type != mt {
		t.Fatalf("%s: want exactly one %q, got %s", conn.id, mt, describe(envs))
	}
	if dst != nil {
		if err := json.Unmarshal(envs[0].Data, dst); err != nil {
			t.Fatalf("%s: decode %q data: %v", conn.id, mt, err)
		}
	}
}

// silent asserts conn received nothing.
func silent(t *testing.T, conns ...*fakeConn) {
	t.Helper()

	for _, c := range conns {
		if envs := c.envelopes(t); len(envs) != 0 {
			t.Fatalf("%s: want no messages, got %s", c.id, describe(envs))
		}
	}
}

func describe(envs []Envelope) string {
	b, _ := json.Marshal(envs)
	return string(b)
}

// deliver encodes data as an envelope of type mt and feeds it to m from conn.
func deliver(t *testing.T, m *Manager, conn Conn, mt MessageType, data any) {
	t.Helper()

	frame, err := Encode(mt, data)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	m.HandleMessage(conn, frame)
}

func resetAll(conns ...*fakeConn) {
	for _, c := range conns {
		c.reset()
	}
}
