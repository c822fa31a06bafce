package adbexec

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

// Result is what a finished tool invocation produced.
type Result struct {
	// Output is the standard output of the process, every line terminated
	// by "\n".
	Output string
	// ExitCode of the process, -1 if it could not be determined.
	ExitCode int
}

// Runner starts an external program, waits for its standard output to be
// exhausted and returns it.
// This exist mostly for easier mocking.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// ExecRunner runs programs on the host with os/exec.
type ExecRunner struct{}

// Run spawns name with args and reads its standard output line by line until
// EOF. A failure to start the process or to read its output is returned as
// an error. A non-zero exit status is not: it is reported in Result.ExitCode.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{ExitCode: -1}, errors.Wrapf(err, "error creating pipe for %s", commandLine(name, args))
	}
	if err := cmd.Start(); err != nil {
		return Result{ExitCode: -1}, errors.Wrapf(err, "error starting %s", commandLine(name, args))
	}

	b := &strings.Builder{}
	readErr := readLines(bufio.NewReader(stdout), b)
	if readErr != nil {
		// Unblock the child before waiting for it. Kill fails only if the
		// process has already exited, which is what we want anyway.
		_ = cmd.Process.Kill()
	}

	waitErr := cmd.Wait()
	if readErr != nil {
		return Result{Output: b.String(), ExitCode: -1},
			errors.Wrapf(readErr, "error reading output of %s", commandLine(name, args))
	}
	if waitErr != nil {
		if ctx.Err() != nil {
			return Result{Output: b.String(), ExitCode: -1},
				errors.Wrapf(ctx.Err(), "%s", commandLine(name, args))
		}
		if _, ok := waitErr.(*exec.ExitError); !ok {
			return Result{Output: b.String(), ExitCode: -1},
				errors.Wrapf(waitErr, "error waiting for %s", commandLine(name, args))
		}
	}
	return Result{Output: b.String(), ExitCode: cmd.ProcessState.ExitCode()}, nil
}

// readLines copies r into b line by line until EOF. Every line, including an
// unterminated last one, is written with a "\n" terminator; a trailing "\r"
// is dropped. Lines may be of any length.
func readLines(r *bufio.Reader, b *strings.Builder) error {
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
			b.WriteString(line)
			b.WriteByte('\n')
		}
		if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
	}
}

func commandLine(name string, args []string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}
