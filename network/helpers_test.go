package network

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"trench_war_server/logic"
)

type fakeTransport struct {
	id     string
	sendCh chan []byte

	mu   sync.Mutex
	fail bool
}

func newFakeTransport(id string) *fakeTransport {
	return &fakeTransport{id: id, sendCh: make(chan []byte, 1024)}
}

func (f *fakeTransport) ID() string { return f.id }

func (f *fakeTransport) Send(b []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("transport closed")
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	select {
	case f.sendCh <- cp:
	default:
	}
	return nil
}

func (f *fakeTransport) setFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

type wireMsg struct {
	Type     string          `json:"type"`
	Code     string          `json:"code"`
	PlayerID string          `json:"playerId"`
	Side     logic.Side      `json:"side"`
	Message  string          `json:"message"`
	State    json.RawMessage `json:"state"`
	X        float64         `json:"x"`
	Y        float64         `json:"y"`
}

type wireState struct {
	Players map[string]logic.Player `json:"players"`
	Tick    int                     `json:"tick"`
	Started bool                    `json:"started"`
}

// expect reads from f until a message of kind arrives, skipping others.
func expect(t *testing.T, f *fakeTransport, kind string) wireMsg {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case b := <-f.sendCh:
			var m wireMsg
			require.NoError(t, json.Unmarshal(b, &m))
			if m.Type == kind {
				return m
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s on %s", kind, f.id)
		}
	}
}

// drain returns the kinds of every message currently queued on f.
func drain(t *testing.T, f *fakeTransport) []string {
	t.Helper()
	var kinds []string
	for {
		select {
		case b := <-f.sendCh:
			var m wireMsg
			require.NoError(t, json.Unmarshal(b, &m))
			kinds = append(kinds, m.Type)
		default:
			return kinds
		}
	}
}

func decodeState(t *testing.T, raw json.RawMessage) wireState {
	t.Helper()
	var st wireState
	require.NoError(t, json.Unmarshal(raw, &st))
	return st
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// sequentialCodes hands out TEST2, TEST3, ... so codes are predictable.
func sequentialCodes() func() (string, error) {
	var mu sync.Mutex
	n := 1
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("TEST%d", n), nil
	}
}

type recordingSink struct {
	mu      sync.Mutex
	players []logic.Player
}

func (s *recordingSink) Record(p logic.Player) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players = append(s.players, p)
}

func (s *recordingSink) recorded() []logic.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]logic.Player(nil), s.players...)
}

type testHub struct {
	handler  *Handler
	registry *Registry
	dir      *Directory
	clock    *fakeClock
	sink     *recordingSink
}

func newTestHub(t *testing.T, cfgs ...RegistryCfg) *testHub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	clock := newFakeClock()
	sink := &recordingSink{}
	dir := NewDirectory()

	all := append([]RegistryCfg{
		WithCodeGenerator(sequentialCodes()),
		WithRegistryClock(clock.Now),
		RecordOnRemove(sink),
	}, cfgs...)
	reg, err := NewRegistry(ctx, logic.DefaultGameConfig(), dir, all...)
	require.NoError(t, err)

	h, err := NewHandler(reg, dir, WithResultSink(sink), WithHandlerClock(clock.Now))
	require.NoError(t, err)

	t.Cleanup(func() {
		reg.Close()
		cancel()
	})
	return &testHub{handler: h, registry: reg, dir: dir, clock: clock, sink: sink}
}

func (th *testHub) send(t *testing.T, f *fakeTransport, msg string) {
	t.Helper()
	th.handler.HandleMessage(f, []byte(msg))
}
