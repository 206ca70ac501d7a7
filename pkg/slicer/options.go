package slicer

import (
	"fmt"

	"github.com/heyjunin/VideoSlicer/pkg/errors"
	"github.com/heyjunin/VideoSlicer/pkg/ffmpeg"
	"github.com/heyjunin/VideoSlicer/pkg/source"
)

// Segment length bounds accepted from the user.
const (
	MinSegmentLength     = 1
	MaxSegmentLength     = 600
	DefaultSegmentLength = 30
)

// Options contains settings for one slicing run.
type Options struct {
	// InputPath is the local video to cut.
	InputPath string
	// BaseName names the output folder and files. Defaults to the input
	// filename without extension.
	BaseName string
	// SegmentLength in seconds, between MinSegmentLength and MaxSegmentLength.
	SegmentLength int
	// OutputDir receives the "<base>_<length>" folder.
	OutputDir string

	FFmpegBinary      string
	FFmpegExtraParams []string
	// AllowOverwrite replaces segment files left by an earlier run.
	AllowOverwrite bool
	// HardCancel kills the running encoder on cancellation instead of
	// letting the current segment finish.
	HardCancel bool
}

// ValidateOptions fills defaults and checks the user-supplied values.
func ValidateOptions(opts *Options) error {
	if opts.FFmpegBinary == "" {
		opts.FFmpegBinary = ffmpeg.DefaultBinary
	}
	if opts.InputPath == "" {
		return errors.New(errors.ValidationError, "Input path is required", "", errors.ErrMissingInput)
	}
	if opts.OutputDir == "" {
		return errors.New(errors.ValidationError, "Output directory is required", "", errors.ErrMissingOutputDir)
	}
	if opts.SegmentLength < MinSegmentLength || opts.SegmentLength > MaxSegmentLength {
		return errors.New(errors.ValidationError, "Segment length out of range",
			fmt.Sprintf("got %d, want %d-%d", opts.SegmentLength, MinSegmentLength, MaxSegmentLength),
			errors.ErrInvalidSegmentLength)
	}
	if opts.BaseName == "" {
		opts.BaseName = source.BaseName(opts.InputPath)
	}
	return nil
}
