package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap/zaptest"

	"github.com/womp-app/womp/internal/eventbus"
	"github.com/womp-app/womp/internal/womperr"
)

type echoDispatcher struct{}

func (echoDispatcher) Call(_ context.Context, command string, args json.RawMessage) (any, error) {
	switch command {
	case "ping":
		return "pong", nil
	case "echo":
		var v map[string]any
		if err := json.Unmarshal(args, &v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("no profile %q: %w", command, womperr.ErrNotFound)
	}
}

func startServer(t *testing.T) (*Server, *eventbus.Bus) {
	t.Helper()
	bus := eventbus.New()
	s := NewServer("", echoDispatcher{}, bus, zaptest.NewLogger(t))
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})
	return s, bus
}

func endpoint(s *Server, token, window string) string {
	q := url.Values{}
	q.Set(TokenParam, token)
	q.Set("window", window)
	return s.URL() + "?" + q.Encode()
}

func dial(t *testing.T, s *Server, window string) *websocket.Conn {
	t.Helper()
	want := s.ClientCount() + 1
	ws, _, err := websocket.DefaultDialer.Dial(endpoint(s, s.Token(), window), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { ws.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for s.ClientCount() < want {
		if time.Now().After(deadline) {
			t.Fatal("connection was not registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return ws
}

func readJSON(t *testing.T, ws *websocket.Conn, out any) {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := ws.ReadJSON(out); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
}

func TestServer_RequestReply(t *testing.T) {
	s, _ := startServer(t)
	ws := dial(t, s, "main")

	if err := ws.WriteJSON(Request{ID: "1", Command: "echo", Args: json.RawMessage(`{"a":1}`)}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var r Reply
	readJSON(t, ws, &r)
	if r.ID != "1" || !r.OK {
		t.Fatalf("reply = %+v", r)
	}
	data, _ := r.Data.(map[string]any)
	if data["a"] != float64(1) {
		t.Fatalf("data = %#v", r.Data)
	}
}

func TestServer_ErrorReplyCarriesCode(t *testing.T) {
	s, _ := startServer(t)
	ws := dial(t, s, "main")

	if err := ws.WriteJSON(Request{ID: "7", Command: "missing"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var r Reply
	readJSON(t, ws, &r)
	if r.OK || r.ID != "7" {
		t.Fatalf("reply = %+v", r)
	}
	if r.Code != womperr.CodeNotFound {
		t.Fatalf("code = %q, want %q", r.Code, womperr.CodeNotFound)
	}
}

func TestServer_PushesOnlyAddressedEvents(t *testing.T) {
	s, bus := startServer(t)
	main := dial(t, s, eventbus.WindowMain)
	dialog := dial(t, s, eventbus.WindowDialog)

	bus.Emit(eventbus.WindowDialog, eventbus.EventDialogType, "new-profile")
	bus.Emit("", eventbus.EventGeneric, eventbus.PayloadProfilesUpdated)

	var p Push
	readJSON(t, dialog, &p)
	if p.Event != eventbus.EventDialogType || string(p.Payload) != `"new-profile"` {
		t.Fatalf("dialog push = %+v", p)
	}
	readJSON(t, dialog, &p)
	if p.Event != eventbus.EventGeneric {
		t.Fatalf("dialog second push = %+v", p)
	}

	readJSON(t, main, &p)
	if p.Event != eventbus.EventGeneric || string(p.Payload) != `"profiles_updated"` {
		t.Fatalf("main push = %+v", p)
	}
}

func TestListen_ReceivesPushes(t *testing.T) {
	s, bus := startServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan Push, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- Listen(ctx, s.URL(), s.Token(), eventbus.WindowMain, func(p Push) { got <- p })
	}()

	deadline := time.Now().Add(2 * time.Second)
	for s.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("listener did not connect")
		}
		time.Sleep(5 * time.Millisecond)
	}
	bus.Emit(eventbus.WindowMain, eventbus.EventSystemColors, []string{"rgb(0, 0, 0)"})

	select {
	case p := <-got:
		if p.Event != eventbus.EventSystemColors {
			t.Fatalf("push = %+v", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no push received")
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Listen returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Listen did not return after cancel")
	}
}

func TestOriginAllowed(t *testing.T) {
	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost:1420", true},
		{"http://127.0.0.1:5173", true},
		{"http://[::1]:8080", true},
		{"https://tauri.localhost", true},
		{"tauri://localhost", true},
		{"null", false},
		{"file://", false},
		{"chrome-extension://abc", false},
		{"moz-extension://abc", false},
		{"data:text/html,hi", false},
		{"tauri://evil.example", false},
		{"http://localhost@evil.example", false},
		{"https://example.com", false},
		{"http://evil.localhost.example", false},
	}
	for _, tt := range tests {
		if got := originAllowed(tt.origin); got != tt.want {
			t.Errorf("originAllowed(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}

func TestServer_RejectsMissingOrWrongToken(t *testing.T) {
	s, _ := startServer(t)

	for _, token := range []string{"", "not-the-token"} {
		ws, resp, err := websocket.DefaultDialer.Dial(endpoint(s, token, "main"), nil)
		if err == nil {
			ws.Close()
			t.Fatalf("token %q: dial succeeded", token)
		}
		if resp == nil || resp.StatusCode != http.StatusForbidden {
			t.Fatalf("token %q: response = %v, want 403", token, resp)
		}
	}
	if n := s.ClientCount(); n != 0 {
		t.Fatalf("ClientCount = %d, want 0", n)
	}
}

func TestServer_RejectsForeignOriginWithToken(t *testing.T) {
	s, _ := startServer(t)

	for _, origin := range []string{"null", "https://example.com", "chrome-extension://abc"} {
		header := http.Header{"Origin": []string{origin}}
		ws, resp, err := websocket.DefaultDialer.Dial(endpoint(s, s.Token(), "main"), header)
		if err == nil {
			ws.Close()
			t.Fatalf("origin %q: dial succeeded", origin)
		}
		if resp == nil || resp.StatusCode != http.StatusForbidden {
			t.Fatalf("origin %q: response = %v, want 403", origin, resp)
		}
	}

	header := http.Header{"Origin": []string{"tauri://localhost"}}
	ws, _, err := websocket.DefaultDialer.Dial(endpoint(s, s.Token(), "main"), header)
	if err != nil {
		t.Fatalf("app origin rejected: %v", err)
	}
	ws.Close()
}

func TestNewServer_TokensDiffer(t *testing.T) {
	a := NewServer("", echoDispatcher{}, eventbus.New(), nil)
	b := NewServer("", echoDispatcher{}, eventbus.New(), nil)
	if a.Token() == "" || a.Token() == b.Token() {
		t.Fatalf("tokens = %q, %q", a.Token(), b.Token())
	}
}

func TestTokenFile_OwnerOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "bridge.token")

	if _, err := ReadTokenFile(path); !errors.Is(err, womperr.ErrNotFound) {
		t.Fatalf("missing file err = %v, want ErrNotFound", err)
	}
	if err := WriteTokenFile(path, "secret"); err != nil {
		t.Fatalf("WriteTokenFile: %v", err)
	}
	got, err := ReadTokenFile(path)
	if err != nil || got != "secret" {
		t.Fatalf("ReadTokenFile = %q, %v", got, err)
	}
	if runtime.GOOS == "windows" {
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Fatalf("mode = %o, want 600", perm)
	}
}

func TestAddrFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "bridge.addr")

	if _, err := ReadAddrFile(path); !errors.Is(err, womperr.ErrNotFound) {
		t.Fatalf("missing file err = %v, want ErrNotFound", err)
	}
	if err := WriteAddrFile(path, "ws://127.0.0.1:4000/ws"); err != nil {
		t.Fatalf("WriteAddrFile: %v", err)
	}
	got, err := ReadAddrFile(path)
	if err != nil {
		t.Fatalf("ReadAddrFile: %v", err)
	}
	if got != "ws://127.0.0.1:4000/ws" {
		t.Fatalf("addr = %q", got)
	}
}
