// Package ffmpeg runs the external encoder for the two invocations a slicing
// run needs: the duration probe and the stream-copy cut.
package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/heyjunin/VideoSlicer/pkg/logger"
)

// DefaultBinary is used when no encoder path is configured.
const DefaultBinary = "ffmpeg"

// RunResult is what a finished encoder process left behind.
type RunResult struct {
	ExitCode int
	Stderr   []byte
}

// Runner starts a process and waits for it to exit. A non-zero exit status
// is reported in RunResult, not as an error; the error is reserved for
// processes that could not be started or were killed through ctx.
type Runner interface {
	Run(ctx context.Context, binary string, args []string) (RunResult, error)
}

// ExecRunner runs commands with os/exec, logging each stderr line at debug level.
type ExecRunner struct {
	Logger logger.Logger
}

// NewExecRunner returns an ExecRunner using the default logger.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Logger: logger.NewLogger()}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, binary string, args []string) (RunResult, error) {
	log := r.Logger
	if log == nil {
		log = logger.Nop()
	}

	log.Debug("Executing FFmpeg command", "ffmpeg", map[string]interface{}{
		"command": binary + " " + strings.Join(args, " "),
	})

	cmd := exec.CommandContext(ctx, binary, args...)
	detach(cmd)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return RunResult{ExitCode: -1}, err
	}
	if err := cmd.Start(); err != nil {
		return RunResult{ExitCode: -1}, err
	}

	// The pipe must be drained before Wait.
	var buf bytes.Buffer
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(scanLines)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
		log.Debug(line, "ffmpeg", nil)
	}
	if err := scanner.Err(); err != nil {
		log.Warn("Stopped reading FFmpeg output", "ffmpeg", map[string]interface{}{
			"error": err.Error(),
		})
		_, _ = io.Copy(io.Discard, stderr)
	}

	res := RunResult{Stderr: buf.Bytes()}
	err = cmd.Wait()
	if err != nil && ctx.Err() != nil {
		res.ExitCode = -1
		return res, ctx.Err()
	}

	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	if err != nil {
		res.ExitCode = -1
		return res, err
	}
	return res, nil
}

// scanLines is bufio.ScanLines that also ends a line at '\r', which ffmpeg
// uses to redraw its stats line.
func scanLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// Available reports whether binary answers to -version.
func Available(ctx context.Context, runner Runner, binary string) error {
	res, err := runner.Run(ctx, binary, []string{"-version"})
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return &exitStatusError{code: res.ExitCode}
	}
	return nil
}

type exitStatusError struct {
	code int
}

func (e *exitStatusError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}
