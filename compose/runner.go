// Package compose assembles generated segments into the final vertical
// video: concatenation, caption burn-in, and the animated stats overlay.
// All media work happens in isolated ffmpeg/ffprobe subprocesses; the only
// state crossing the boundary is file paths.
package compose

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// CommandLog captures one external command invocation.
type CommandLog struct {
	Command  string   `json:"command"`
	Args     []string `json:"args"`
	ExitCode int      `json:"exitCode"`
	Stdout   string   `json:"stdout"`
	Stderr   string   `json:"stderr"`
}

// StageError is a typed subprocess failure: which composition stage died,
// and the captured diagnostics. Never a silent non-zero exit.
type StageError struct {
	Stage   string     `json:"stage"`
	Message string     `json:"message"`
	Log     CommandLog `json:"commandLog"`
	Err     error      `json:"-"`
}

func (e *StageError) Error() string {
	if e.Log.Command == "" {
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: %s (cmd=%s exit=%d stderr=%s)",
		e.Stage, e.Message, e.Log.Command, e.Log.ExitCode, truncate(e.Log.Stderr, 400))
}

func (e *StageError) Unwrap() error { return e.Err }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// CommandResult is one process execution response.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner abstracts process execution for testability.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (CommandResult, error)
}

// execRunner executes commands via os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (CommandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := CommandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: 0,
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}
	return result, nil
}

// stageError builds a StageError from a failed command run.
func stageError(stage, message, name string, args []string, res CommandResult, err error) *StageError {
	return &StageError{
		Stage:   stage,
		Message: message,
		Log: CommandLog{
			Command:  name,
			Args:     args,
			ExitCode: res.ExitCode,
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
		},
		Err: err,
	}
}
