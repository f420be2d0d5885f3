package gitx

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandError carries the combined output and exit code of a failed git
// invocation, for classification by Classify.
type CommandError struct {
	Args     []string
	ExitCode int
	Output   string
	Err      error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("git %s: %v: %s", strings.Join(e.Args, " "), e.Err, strings.TrimSpace(e.Output))
}

func (e *CommandError) Unwrap() error { return e.Err }

// Run is injectable in tests.
var Run = func(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		code := -1
		if ee, ok := err.(*exec.ExitError); ok {
			code = ee.ExitCode()
		}
		return out, &CommandError{Args: args, ExitCode: code, Output: string(out), Err: err}
	}
	return out, nil
}

// ClassifyError turns any error coming out of Run into a Failure.
func ClassifyError(err error, branch string) *Failure {
	if f, ok := err.(*Failure); ok {
		return f
	}
	if ce, ok := err.(*CommandError); ok {
		return Classify(ce.ExitCode, ce.Output, branch)
	}
	return Classify(-1, err.Error(), branch)
}
