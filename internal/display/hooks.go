package display

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/womp-app/womp/internal/profile"
	"github.com/womp-app/womp/internal/womperr"
)

// HookRunner runs a profile's before/after command to completion. A launch
// failure is returned as an error wrapping womperr.ErrCommandLaunchFailed;
// a command that ran and exited non-zero is reported through the exit code.
type HookRunner interface {
	Run(ctx context.Context, cmd profile.RunCommand) (exitCode int, err error)
}

// ExecHookRunner starts hooks as child processes.
type ExecHookRunner struct {
	// Timeout bounds a single hook; zero means DefaultHookTimeout.
	Timeout time.Duration
}

// DefaultHookTimeout keeps a hung hook from wedging the apply lock.
const DefaultHookTimeout = time.Minute

func (r ExecHookRunner) Run(ctx context.Context, cmd profile.RunCommand) (int, error) {
	args, err := SplitArgs(cmd.Args)
	if err != nil {
		return -1, fmt.Errorf("%w: %s: %v", womperr.ErrCommandLaunchFailed, cmd.Target, err)
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultHookTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := exec.CommandContext(ctx, cmd.Target, args...)
	if err := c.Start(); err != nil {
		return -1, fmt.Errorf("%w: %s: %v", womperr.ErrCommandLaunchFailed, cmd.Target, err)
	}

	if err := c.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, fmt.Errorf("hook %s: %w", cmd.Target, err)
	}
	return 0, nil
}

// SplitArgs splits a hook argument string on whitespace, honoring single
// and double quotes. A backslash escapes a following quote, backslash or
// space and is literal otherwise, so Windows paths survive unquoted.
func SplitArgs(s string) ([]string, error) {
	var out []string
	var buf []rune
	inSingle := false
	inDouble := false
	started := false

	flush := func() {
		if !started {
			return
		}
		out = append(out, string(buf))
		buf = buf[:0]
		started = false
	}

	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\\' && !inSingle && i+1 < len(runes) {
			switch next := runes[i+1]; next {
			case '"', '\'', '\\', ' ':
				buf = append(buf, next)
				started = true
				i++
				continue
			}
		}
		if !inDouble && r == '\'' {
			inSingle = !inSingle
			started = true
			continue
		}
		if !inSingle && r == '"' {
			inDouble = !inDouble
			started = true
			continue
		}
		if !inSingle && !inDouble {
			if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
				flush()
				continue
			}
		}
		buf = append(buf, r)
		started = true
	}

	if inSingle || inDouble {
		return nil, fmt.Errorf("unterminated quote in arguments")
	}

	flush()
	return out, nil
}
