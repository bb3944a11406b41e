package services

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os/exec"
	"time"
)

// JobResult reports the terminal state of one external job invocation.
// Err is set only when the job could not be launched (or was cut off by the
// deadline); a job that started and exited non-zero reports through ExitCode.
type JobResult struct {
	ExitCode int
	Output   string
	Err      error
}

// Failed reports whether the job reached any failing terminal state.
func (r JobResult) Failed() bool {
	return r.Err != nil || r.ExitCode != 0
}

// JobRunner launches external scan scripts and waits for them to exit.
// It is one-shot fire-and-observe: no retries, no payload beyond the exit
// status. The scripts write their result artifacts to fixed paths under the
// working directory that callers already know.
type JobRunner struct {
	bin     string
	workDir string
	timeout time.Duration
}

// NewJobRunner creates a runner that executes bin from workDir, bounding
// every invocation by timeout.
func NewJobRunner(bin, workDir string, timeout time.Duration) *JobRunner {
	return &JobRunner{
		bin:     bin,
		workDir: workDir,
		timeout: timeout,
	}
}

// Run executes a script and blocks until it exits or the deadline expires.
// Callers that need concurrency launch Run in their own goroutines; the
// runner itself never retries and never panics past its boundary.
func (r *JobRunner) Run(ctx context.Context, script string, args ...string) JobResult {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmdArgs := append([]string{script}, args...)
	cmd := exec.CommandContext(ctx, r.bin, cmdArgs...)
	cmd.Dir = r.workDir

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	if err == nil {
		return JobResult{ExitCode: 0, Output: output.String()}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		log.Printf("Job %s exited with code %d", script, exitErr.ExitCode())
		return JobResult{ExitCode: exitErr.ExitCode(), Output: output.String()}
	}

	// Launch failure or deadline expiry
	if ctx.Err() != nil {
		err = ctx.Err()
	}
	log.Printf("Job %s failed to run: %v", script, err)
	return JobResult{ExitCode: -1, Output: output.String(), Err: err}
}
