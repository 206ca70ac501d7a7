package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/heyjunin/VideoSlicer/pkg/errors"
	"github.com/heyjunin/VideoSlicer/pkg/logger"
	"github.com/heyjunin/VideoSlicer/pkg/planner"
)

// ExecResult describes one finished cut.
type ExecResult struct {
	Output   string
	ExitCode int
	Stderr   []byte
}

// ExecutorOptions configures an Executor.
type ExecutorOptions struct {
	Binary string
	// ExtraParams are inserted right before the output path.
	ExtraParams []string
	// AllowOverwrite passes -y; otherwise -n makes the encoder refuse to
	// replace an existing segment file.
	AllowOverwrite bool
}

// Executor cuts one planned segment at a time with stream copy.
type Executor struct {
	options ExecutorOptions
	runner  Runner
	logger  logger.Logger
}

// NewExecutor creates an Executor.
func NewExecutor(options ExecutorOptions, runner Runner, log logger.Logger) *Executor {
	if options.Binary == "" {
		options.Binary = DefaultBinary
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Executor{options: options, runner: runner, logger: log}
}

// CutArgs builds `-i <input> -ss <start> -to <end> -c copy [extra] (-y|-n) <output>`.
func (e *Executor) CutArgs(input string, seg planner.Segment) []string {
	args := []string{
		"-i", input,
		"-ss", formatSeconds(seg.Start),
		"-to", formatSeconds(seg.End),
		"-c", "copy",
	}
	args = append(args, e.options.ExtraParams...)
	if e.options.AllowOverwrite {
		args = append(args, "-y")
	} else {
		args = append(args, "-n")
	}
	return append(args, seg.Path)
}

// Cut runs the encoder for seg and blocks until it exits. Cancelling ctx
// kills the encoder; callers that want a running cut to finish regardless
// pass a context that is never cancelled.
//
// A non-zero exit status, or an exit without a non-empty output file, is
// returned as a ProcessError alongside the ExecResult.
func (e *Executor) Cut(ctx context.Context, input string, seg planner.Segment) (ExecResult, error) {
	e.logger.Debug("Cutting segment", "executor", map[string]interface{}{
		"index":  seg.Index,
		"start":  seg.Start,
		"end":    seg.End,
		"output": seg.Path,
	})

	res, err := e.runner.Run(ctx, e.options.Binary, e.CutArgs(input, seg))
	result := ExecResult{Output: seg.Path, ExitCode: res.ExitCode, Stderr: res.Stderr}
	if err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		return result, errors.Wrap(err, errors.ProcessError, "Failed to start FFmpeg", errors.ErrSegmentStartFailed)
	}

	if res.ExitCode != 0 {
		return result, errors.New(errors.ProcessError, "FFmpeg command failed",
			fmt.Sprintf("segment %d exited with status %d: %s", seg.Index, res.ExitCode, lastLine(res.Stderr)),
			errors.ErrSegmentFailed)
	}

	info, statErr := os.Stat(seg.Path)
	if statErr != nil || info.Size() == 0 {
		return result, errors.New(errors.ProcessError, "Segment file was not written",
			seg.Path, errors.ErrOutputMissing)
	}
	return result, nil
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func lastLine(b []byte) string {
	end := len(b)
	for end > 0 && (b[end-1] == '\n' || b[end-1] == '\r') {
		end--
	}
	start := end
	for start > 0 && b[start-1] != '\n' {
		start--
	}
	return string(b[start:end])
}
