package player

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pixil98/go-testutil"

	"gridhunter/internal/announce"
	"gridhunter/internal/game"
	"gridhunter/internal/protocol"
	"gridhunter/internal/storage"
)

// memStore implements game.Store without touching the filesystem.
type memStore struct{}

func (memStore) Load() *storage.Snapshot      { return storage.DefaultSnapshot() }
func (memStore) Save(*storage.Snapshot) error { return nil }

// nullPublisher implements game.Publisher and drops everything.
type nullPublisher struct{}

func (nullPublisher) Broadcast(string, any) error        { return nil }
func (nullPublisher) ToPlayer(string, string, any) error { return nil }

// nullSubscriber implements Subscriber with subscriptions that never fire.
type nullSubscriber struct{}

func (nullSubscriber) Subscribe(string, func([]byte)) (func(), error) {
	return func() {}, nil
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	ann, err := announce.NewAnnouncer(announce.Config{})
	if err != nil {
		t.Fatalf("unexpected error creating announcer: %v", err)
	}

	world, err := game.NewWorld(game.Config{Width: 5, Height: 5}, memStore{}, nullPublisher{}, ann)
	if err != nil {
		t.Fatalf("unexpected error creating world: %v", err)
	}

	return NewManager(world, nullSubscriber{}, ann)
}

// newSessionServer serves one RunSession per connection and reports each
// session's return value on done. All connections share one origin so
// duplicate usernames read as reconnects.
func newSessionServer(t *testing.T, ctx context.Context, m *Manager, done chan error) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrading connection: %v", err)
			return
		}
		defer conn.Close()
		done <- m.RunSession(ctx, conn, "10.0.0.1")
	}))
}

func dialSession(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing %s: %v", url, err)
	}
	return conn
}

func writeClientEvent(t *testing.T, conn *websocket.Conn, event string, payload any) {
	t.Helper()

	data, err := protocol.Encode(event, payload)
	if err != nil {
		t.Fatalf("encoding %s frame: %v", event, err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("writing %s frame: %v", event, err)
	}
}

func readServerEvent(t *testing.T, conn *websocket.Conn) protocol.Envelope {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatalf("setting read deadline: %v", err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("reading server event: %v", err)
	}
	env, err := protocol.DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("decoding server event: %v", err)
	}
	return env
}

func TestRunSession_JoinHandshake(t *testing.T) {
	m := newTestManager(t)
	done := make(chan error, 1)
	srv := newSessionServer(t, context.Background(), m, done)
	defer srv.Close()

	conn := dialSession(t, srv)
	defer conn.Close()

	writeClientEvent(t, conn, protocol.MsgJoin, protocol.JoinRequest{Username: "Alice"})

	env := readServerEvent(t, conn)
	testutil.AssertEqual(t, "first event", env.T, protocol.MsgStateSnapshot)

	snap, err := protocol.DecodePayload[protocol.StateSnapshot](env)
	if err != nil {
		t.Fatalf("decoding snapshot: %v", err)
	}
	testutil.AssertEqual(t, "username", snap.Player.Username, "Alice")
	testutil.AssertEqual(t, "restored", snap.Restored, false)
	testutil.AssertEqual(t, "map rows", len(snap.Map), 5)

	// A clean client close ends the session without error.
	deadline := time.Now().Add(time.Second)
	if err := conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline); err != nil {
		t.Fatalf("writing close frame: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected session error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("session did not end after close")
	}
}

func TestRunSession_RejectedJoin(t *testing.T) {
	m := newTestManager(t)
	done := make(chan error, 1)
	srv := newSessionServer(t, context.Background(), m, done)
	defer srv.Close()

	conn := dialSession(t, srv)
	defer conn.Close()

	writeClientEvent(t, conn, protocol.MsgJoin, protocol.JoinRequest{Username: "no!good"})

	env := readServerEvent(t, conn)
	testutil.AssertEqual(t, "event", env.T, protocol.MsgLoginError)

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected session error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("session did not end after rejected join")
	}
}

func TestRunSession_TakeoverNotice(t *testing.T) {
	m := newTestManager(t)
	done := make(chan error, 2)
	srv := newSessionServer(t, context.Background(), m, done)
	defer srv.Close()

	first := dialSession(t, srv)
	defer first.Close()
	writeClientEvent(t, first, protocol.MsgJoin, protocol.JoinRequest{Username: "Alice"})
	readServerEvent(t, first) // snapshot

	// Same origin, same username: the second connection supersedes the
	// first.
	second := dialSession(t, srv)
	defer second.Close()
	writeClientEvent(t, second, protocol.MsgJoin, protocol.JoinRequest{Username: "Alice"})
	readServerEvent(t, second) // snapshot

	env := readServerEvent(t, first)
	testutil.AssertEqual(t, "event", env.T, protocol.MsgAnnouncement)
	notice, err := protocol.DecodePayload[protocol.Announcement](env)
	if err != nil {
		t.Fatalf("decoding announcement: %v", err)
	}
	if !strings.Contains(notice.Message, "taken over") {
		t.Errorf("unexpected takeover notice %q", notice.Message)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected session error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("evicted session did not end")
	}
}

func TestRunSession_ReaderStopsAfterSessionEnds(t *testing.T) {
	m := newTestManager(t)

	before := runtime.NumGoroutine()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	hold := make(chan struct{})

	// This handler keeps the server-side connection open after the session
	// returns, so a frame arriving late must be released by the session's
	// own teardown rather than by the connection closing.
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrading connection: %v", err)
			return
		}
		done <- m.RunSession(ctx, conn, "10.0.0.1")
		<-hold
		conn.Close()
	}))

	conn := dialSession(t, srv)
	writeClientEvent(t, conn, protocol.MsgJoin, protocol.JoinRequest{Username: "Alice"})
	readServerEvent(t, conn) // snapshot

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("session did not end after cancel")
	}

	// Frames that arrive after the loop has exited must not strand the
	// read goroutine on its channel send.
	writeClientEvent(t, conn, protocol.MsgMove, protocol.MoveRequest{X: 1, Y: 1})
	writeClientEvent(t, conn, protocol.MsgMove, protocol.MoveRequest{X: 1, Y: 2})
	time.Sleep(100 * time.Millisecond)

	close(hold)
	conn.Close()
	srv.Close()

	deadline := time.Now().Add(3 * time.Second)
	for runtime.NumGoroutine() > before && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := runtime.NumGoroutine(); got > before {
		t.Errorf("%d goroutines still running after session end, started with %d", got, before)
	}
}

func TestEvictionNotice(t *testing.T) {
	tests := map[string]struct {
		reason game.EvictionReason
		exp    string
	}{
		"takeover": {
			reason: game.EvictedTakeover,
			exp:    "Another connection has taken over your session.",
		},
		"account deleted": {
			reason: game.EvictedAccountDeleted,
			exp:    "Your account has been deleted.",
		},
		"world reset": {
			reason: game.EvictedReset,
			exp:    "The world has been reset. Please rejoin.",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, "notice", evictionNotice(tt.reason), tt.exp)
		})
	}
}
