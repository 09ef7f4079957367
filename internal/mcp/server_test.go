package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap/zaptest"

	"github.com/womp-app/womp/internal/ipc"
	"github.com/womp-app/womp/internal/womperr"
)

type call struct {
	command string
	args    string
}

type fakeCaller struct {
	mu      sync.Mutex
	calls   []call
	results map[string]any
	errs    map[string]error
}

func (f *fakeCaller) Call(_ context.Context, command string, args any, out any) error {
	b, _ := json.Marshal(args)
	f.mu.Lock()
	f.calls = append(f.calls, call{command: command, args: string(b)})
	f.mu.Unlock()

	if err := f.errs[command]; err != nil {
		return err
	}
	data, _ := json.Marshal(f.results[command])
	return json.Unmarshal(data, out)
}

func connect(t *testing.T, caller Caller) *mcpsdk.ClientSession {
	t.Helper()
	ctx := context.Background()
	s := NewServer(caller, zaptest.NewLogger(t))

	ct, st := mcpsdk.NewInMemoryTransports()
	if _, err := s.Connect(ctx, st); err != nil {
		t.Fatalf("server connect: %v", err)
	}
	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test", Version: "0"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { cs.Close() })
	return cs
}

func resultText(t *testing.T, res *mcpsdk.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("content = %#v", res.Content)
	}
	tc, ok := res.Content[0].(*mcpsdk.TextContent)
	if !ok {
		t.Fatalf("content[0] = %T", res.Content[0])
	}
	return tc.Text
}

func TestTools_OnePerCommand(t *testing.T) {
	cs := connect(t, &fakeCaller{})
	res, err := cs.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	var got []string
	for _, tool := range res.Tools {
		got = append(got, tool.Name)
	}
	sort.Strings(got)

	want := []string{
		ipc.CommandApplyDisplayLayout, ipc.CommandChangeTheme, ipc.CommandCloneProfile,
		ipc.CommandDeleteProfile, ipc.CommandEmitToWindow, ipc.CommandGetActiveProfile,
		ipc.CommandGetConfigDir, ipc.CommandGetGlobalConfig, ipc.CommandGetProfileDir,
		ipc.CommandGetProfiles, ipc.CommandGetProfilesDir, ipc.CommandGetSystemColors,
		ipc.CommandNextProfile, ipc.CommandOpenProfileDir, ipc.CommandPing,
		ipc.CommandPreviousProfile, ipc.CommandQuit, ipc.CommandReadDisplayConfig,
		ipc.CommandRenameProfile, ipc.CommandSaveCurrentDisplayLayout,
		ipc.CommandSetColorEventsEnabled, ipc.CommandSetGlobalConfig,
		ipc.CommandTurnOffAllDisplays, ipc.CommandWriteDisplayConfig,
	}
	sort.Strings(want)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("tools =\n%v\nwant\n%v", got, want)
	}
}

func TestTools_ForwardArgsAndResult(t *testing.T) {
	caller := &fakeCaller{results: map[string]any{
		ipc.CommandApplyDisplayLayout: ipc.ApplyResult{Profile: "work", Warnings: []string{"wallpaper: not supported"}},
	}}
	cs := connect(t, caller)

	res, err := cs.CallTool(context.Background(), &mcpsdk.CallToolParams{
		Name:      ipc.CommandApplyDisplayLayout,
		Arguments: map[string]any{"profileName": "work"},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}

	var out ipc.ApplyResult
	if err := json.Unmarshal([]byte(resultText(t, res)), &out); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if out.Profile != "work" || len(out.Warnings) != 1 {
		t.Fatalf("result = %+v", out)
	}

	if len(caller.calls) != 1 {
		t.Fatalf("calls = %+v", caller.calls)
	}
	c := caller.calls[0]
	if c.command != ipc.CommandApplyDisplayLayout || c.args != `{"profileName":"work"}` {
		t.Fatalf("forwarded %+v", c)
	}
}

func TestTools_NullResultIsOK(t *testing.T) {
	cs := connect(t, &fakeCaller{})
	res, err := cs.CallTool(context.Background(), &mcpsdk.CallToolParams{
		Name:      ipc.CommandTurnOffAllDisplays,
		Arguments: map[string]any{},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if res.IsError || resultText(t, res) != "ok" {
		t.Fatalf("result = %+v", res)
	}
}

func TestTools_DaemonErrorIsToolError(t *testing.T) {
	caller := &fakeCaller{errs: map[string]error{
		ipc.CommandDeleteProfile: fmt.Errorf("profile %q: %w", "ghost", womperr.ErrNotFound),
	}}
	cs := connect(t, caller)

	res, err := cs.CallTool(context.Background(), &mcpsdk.CallToolParams{
		Name:      ipc.CommandDeleteProfile,
		Arguments: map[string]any{"profileName": "ghost"},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected a tool error")
	}
	if text := resultText(t, res); !strings.Contains(text, "not found") {
		t.Fatalf("error text = %q", text)
	}
}
