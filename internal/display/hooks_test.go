package display

import (
	"context"
	"errors"
	"reflect"
	"runtime"
	"testing"

	"github.com/womp-app/womp/internal/profile"
	"github.com/womp-app/womp/internal/womperr"
)

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		in      string
		want    []string
		wantErr bool
	}{
		{in: "", want: nil},
		{in: "  --flag  value ", want: []string{"--flag", "value"}},
		{in: `"two words" 'and more'`, want: []string{"two words", "and more"}},
		{in: `a\ b`, want: []string{"a b"}},
		{in: `C:\Tools\run.exe -x`, want: []string{`C:\Tools\run.exe`, "-x"}},
		{in: `say "it\"s"`, want: []string{"say", `it"s`}},
		{in: `""`, want: []string{""}},
		{in: `"open`, wantErr: true},
	}
	for _, tt := range tests {
		got, err := SplitArgs(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("SplitArgs(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("SplitArgs(%q): %v", tt.in, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("SplitArgs(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestExecHookRunner_LaunchFailure(t *testing.T) {
	_, err := ExecHookRunner{}.Run(context.Background(), profile.RunCommand{Target: "/definitely/not/here"})
	if !errors.Is(err, womperr.ErrCommandLaunchFailed) {
		t.Fatalf("expected ErrCommandLaunchFailed, got %v", err)
	}
}

func TestExecHookRunner_ExitCode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	code, err := ExecHookRunner{}.Run(context.Background(), profile.RunCommand{Target: "sh", Args: `-c "exit 4"`})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if code != 4 {
		t.Fatalf("expected exit 4, got %d", code)
	}
}
