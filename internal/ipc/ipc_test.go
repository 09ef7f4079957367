package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/womp-app/womp/internal/womperr"
)

type echoDispatcher struct{}

func (echoDispatcher) Call(_ context.Context, command string, args json.RawMessage) (any, error) {
	switch command {
	case CommandPing:
		return "pong", nil
	case CommandCloneProfile:
		var a ProfileNameArgs
		if err := DecodeArgs(args, &a); err != nil {
			return nil, err
		}
		return a.ProfileName + "_clone", nil
	case CommandDeleteProfile:
		return nil, fmt.Errorf("%w: profile %q", womperr.ErrNotFound, "ghost")
	default:
		return nil, ErrUnknownCommand
	}
}

func startServer(t *testing.T) *Client {
	t.Helper()
	// Unix socket paths are length limited; keep them short.
	dir, err := os.MkdirTemp("", "womp-ipc")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	path := filepath.Join(dir, "s.sock")
	srv := NewServer(path, echoDispatcher{}, zaptest.NewLogger(t))
	if err := srv.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(srv.Stop)

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat socket: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Fatalf("expected socket mode 0600, got %o", perm)
	}
	return NewClientAt(path)
}

func TestClientServerRoundTrip(t *testing.T) {
	c := startServer(t)
	ctx := context.Background()

	if err := c.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	var name string
	if err := c.Call(ctx, CommandCloneProfile, ProfileNameArgs{ProfileName: "home"}, &name); err != nil {
		t.Fatalf("clone: %v", err)
	}
	if name != "home_clone" {
		t.Fatalf("expected home_clone, got %q", name)
	}
}

func TestClientErrorsKeepSentinel(t *testing.T) {
	c := startServer(t)
	ctx := context.Background()

	err := c.Call(ctx, CommandDeleteProfile, ProfileNameArgs{ProfileName: "ghost"}, nil)
	if !errors.Is(err, womperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound across the wire, got %v", err)
	}
	var remote *RemoteError
	if !errors.As(err, &remote) || remote.Code != womperr.CodeNotFound {
		t.Fatalf("expected remote error with code, got %#v", err)
	}

	err = c.Call(ctx, "bogus", nil, nil)
	if !errors.Is(err, womperr.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for unknown command, got %v", err)
	}
}

func TestHandle_MalformedRequest(t *testing.T) {
	srv := NewServer(filepath.Join(t.TempDir(), "unused.sock"), echoDispatcher{}, nil)
	for _, line := range []string{"not json\n", "{}\n"} {
		resp := srv.Handle([]byte(line))
		if resp.Status != StatusError || resp.Code != womperr.CodeInvalidArgument {
			t.Fatalf("%q: unexpected response %+v", line, resp)
		}
	}
}

func TestClient_NoDaemon(t *testing.T) {
	c := NewClientAt(filepath.Join(t.TempDir(), "missing.sock"))
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected connection error")
	}
}
