package training

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// DefaultTimeout bounds a single training run
const DefaultTimeout = 10 * time.Minute

// Runner executes one training run and returns its combined output
type Runner interface {
	Run(ctx context.Context) (string, error)
}

// RunnerFunc adapts a function into a Runner
type RunnerFunc func(ctx context.Context) (string, error)

func (f RunnerFunc) Run(ctx context.Context) (string, error) {
	return f(ctx)
}

// CommandRunner runs an external command, e.g. "python3 train.py"
type CommandRunner struct {
	Command []string
	Dir     string
	Timeout time.Duration
}

// NewCommandRunner splits command on whitespace
func NewCommandRunner(command string, timeout time.Duration) *CommandRunner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &CommandRunner{
		Command: strings.Fields(command),
		Timeout: timeout,
	}
}

func (r *CommandRunner) Run(ctx context.Context) (string, error) {
	if len(r.Command) == 0 {
		return "", goerrors.New("training command is not configured", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, r.Command[0], r.Command[1:]...)
	cmd.Dir = r.Dir
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		if goerrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return out.String(), goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "training command timed out").
				WithMetadata(map[string]any{
					"timeout": timeout.String(),
				})
		}
		return out.String(), goerrors.Wrap(err, goerrors.CategoryOperation, "training command failed")
	}

	return out.String(), nil
}
