// Package slicer drives a complete cutting run: it probes the duration,
// plans the segments, cuts them one after another and reports progress.
package slicer

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/heyjunin/VideoSlicer/pkg/errors"
	"github.com/heyjunin/VideoSlicer/pkg/ffmpeg"
	"github.com/heyjunin/VideoSlicer/pkg/logger"
	"github.com/heyjunin/VideoSlicer/pkg/planner"
	"github.com/heyjunin/VideoSlicer/pkg/progress"
)

const (
	progressStep   = "slicing"
	successMessage = "Video successfully cut into segments and saved."
)

// Slicer runs the Probing → Planning → Running pipeline for one video.
type Slicer struct {
	options  Options
	progRep  progress.Reporter
	logger   logger.Logger
	runner   ffmpeg.Runner
	prober   *ffmpeg.Prober
	executor *ffmpeg.Executor

	mu    sync.Mutex
	state State
}

// New creates a Slicer that runs the real encoder and logs through the global logger.
func New(options Options, progressReporter progress.Reporter) (*Slicer, error) {
	return NewWithDeps(options, progressReporter, logger.NewLogger(), nil)
}

// NewWithDeps creates a Slicer with custom dependencies. Nil dependencies
// are replaced with defaults (no-op reporter and logger, os/exec runner).
func NewWithDeps(options Options, progressReporter progress.Reporter, log logger.Logger, runner ffmpeg.Runner) (*Slicer, error) {
	if err := ValidateOptions(&options); err != nil {
		return nil, err
	}
	if progressReporter == nil {
		progressReporter = progress.Nop()
	}
	if log == nil {
		log = logger.Nop()
	}
	if runner == nil {
		runner = &ffmpeg.ExecRunner{Logger: log}
	}

	return &Slicer{
		options: options,
		progRep: progressReporter,
		logger:  log,
		runner:  runner,
		prober:  ffmpeg.NewProber(options.FFmpegBinary, runner, log),
		executor: ffmpeg.NewExecutor(ffmpeg.ExecutorOptions{
			Binary:         options.FFmpegBinary,
			ExtraParams:    options.FFmpegExtraParams,
			AllowOverwrite: options.AllowOverwrite,
		}, runner, log),
		state: StateIdle,
	}, nil
}

// State returns the state of the current or last run.
func (s *Slicer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Plan probes the input and returns the segment plan without cutting
// anything. A video without a usable duration is an error.
func (s *Slicer) Plan(ctx context.Context) (*planner.Plan, error) {
	return s.prepare(ctx, func(State) {})
}

// Run cuts the video. ctx is the cancellation token: it is checked before
// each segment starts and again after each one finishes. Unless HardCancel
// is set, a segment that is already being cut always runs to completion; if
// its encoder dies anyway after ctx is done, the partial file is removed and
// the run ends cancelled.
//
// The returned Result is never nil. The error is nil only when the run
// completed; a cancelled run returns a CancelledError.
func (s *Slicer) Run(ctx context.Context) (*Result, error) {
	res := &Result{State: StateIdle, Written: []string{}}
	s.transition(res, StateIdle)

	if ctx.Err() != nil {
		return s.cancel(res)
	}

	plan, err := s.prepare(ctx, func(st State) { s.transition(res, st) })
	res.Plan = plan
	if err != nil {
		if ctx.Err() != nil {
			return s.cancel(res)
		}
		return s.fail(res, err)
	}

	if err := os.MkdirAll(plan.Folder, 0755); err != nil {
		return s.fail(res, errors.Wrap(err, errors.IOError, "Failed to create output directory", errors.ErrOutputDirectoryCreationFailed))
	}

	s.transition(res, StateRunning)
	total := plan.Total()
	s.progRep.Start(int64(total))
	s.logger.Info("Slicing video", "slicer", map[string]interface{}{
		"input":          s.options.InputPath,
		"folder":         plan.Folder,
		"total_slices":   total,
		"segment_length": plan.SegmentLength,
	})

	for _, seg := range plan.Segments {
		if ctx.Err() != nil {
			return s.cancel(res)
		}

		cutCtx := context.WithoutCancel(ctx)
		if s.options.HardCancel {
			cutCtx = ctx
		}
		if _, err := s.executor.Cut(cutCtx, s.options.InputPath, seg); err != nil {
			if ctx.Err() != nil {
				s.discardPartial(seg.Path)
				return s.cancel(res)
			}
			return s.fail(res, err)
		}

		res.Written = append(res.Written, seg.Path)
		res.Percent = progress.Percent(int64(seg.Index), int64(total))
		status := fmt.Sprintf("Processing slice %d of %d...", seg.Index, total)
		s.progRep.Update(int64(seg.Index), progressStep, status)
		s.logger.Info("Segment written", "slicer", map[string]interface{}{
			"index":   seg.Index,
			"total":   total,
			"output":  seg.Path,
			"percent": res.Percent,
		})

		if ctx.Err() != nil {
			return s.cancel(res)
		}
	}

	s.transition(res, StateCompleted)
	res.Message = successMessage
	s.progRep.Complete()
	s.logger.Info(successMessage, "slicer", map[string]interface{}{
		"folder":   plan.Folder,
		"segments": len(res.Written),
	})
	return res, nil
}

// prepare runs the Probing and Planning steps.
func (s *Slicer) prepare(ctx context.Context, onState func(State)) (*planner.Plan, error) {
	if info, err := os.Stat(s.options.InputPath); err != nil {
		return nil, errors.Wrap(err, errors.ValidationError, "Input file does not exist", errors.ErrInputNotFound)
	} else if info.IsDir() {
		return nil, errors.New(errors.ValidationError, "Input is a directory", s.options.InputPath, errors.ErrInputNotFound)
	}

	if err := ffmpeg.Available(ctx, s.runner, s.options.FFmpegBinary); err != nil {
		return nil, errors.Wrap(err, errors.SystemError, "FFmpeg is not available", errors.ErrFFmpegUnavailable)
	}

	onState(StateProbing)
	probe, err := s.prober.Probe(ctx, s.options.InputPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.ProbeError, "Failed to run FFmpeg probe", errors.ErrProbeFailed)
	}

	onState(StatePlanning)
	plan, err := planner.New(s.options.BaseName, probe.Duration, s.options.SegmentLength, s.options.OutputDir)
	if err != nil {
		return nil, err
	}

	if plan.Empty() {
		if !probe.Found {
			return plan, errors.New(errors.ProbeError, "No duration found in FFmpeg output", s.options.InputPath, errors.ErrDurationNotFound)
		}
		return plan, errors.New(errors.ProbeError, "No segments to cut",
			fmt.Sprintf("duration %.2fs", probe.Duration), errors.ErrNoSegments)
	}

	s.logger.Info("Segments planned", "planner", map[string]interface{}{
		"duration":     plan.Duration,
		"total_slices": plan.Total(),
	})
	return plan, nil
}

func (s *Slicer) transition(res *Result, to State) {
	s.mu.Lock()
	from := s.state
	s.state = to
	s.mu.Unlock()

	res.State = to
	if from != to {
		s.logger.Debug("State changed", "slicer", map[string]interface{}{
			"from": string(from),
			"to":   string(to),
		})
	}
}

func (s *Slicer) fail(res *Result, err error) (*Result, error) {
	se, ok := errors.As(err)
	if !ok {
		se = errors.Wrap(err, errors.SystemError, "Unexpected error", 0)
	}

	s.transition(res, StateFailed)
	res.Message = se.UserMessage()
	s.progRep.Abort(progress.StatusFailed, res.Message)
	s.logger.Error("Slicing failed", "slicer", map[string]interface{}{
		"error":   se.Error(),
		"code":    se.Code,
		"written": len(res.Written),
	})
	return res, se
}

func (s *Slicer) cancel(res *Result) (*Result, error) {
	total := 0
	if res.Plan != nil {
		total = res.Plan.Total()
	}
	err := errors.New(errors.CancelledError, "Cutting process cancelled",
		fmt.Sprintf("%d of %d segments written", len(res.Written), total), errors.ErrCancelledByUser)

	s.transition(res, StateCancelled)
	res.Message = errors.GetErrorMessage(errors.ErrCancelledByUser)
	s.progRep.Abort(progress.StatusCancelled, res.Message)
	s.logger.Warn("Slicing cancelled", "slicer", map[string]interface{}{
		"written": len(res.Written),
		"total":   total,
	})
	return res, err
}

// discardPartial removes the file of a segment whose encoder was killed.
func (s *Slicer) discardPartial(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("Failed to remove partial segment", "slicer", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
	}
}
