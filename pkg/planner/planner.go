// Package planner splits a video duration into contiguous fixed-length segments
// and names the file each one is written to.
package planner

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/heyjunin/VideoSlicer/pkg/errors"
)

// Extension of every segment file.
const Extension = ".mp4"

// Segment is one planned time range and its output file.
type Segment struct {
	// Index is 1-based.
	Index int     `json:"index" yaml:"index"`
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
	Path  string  `json:"path" yaml:"path"`
}

// Duration returns End - Start.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Plan is the ordered list of segments for one video.
type Plan struct {
	BaseName      string    `json:"base_name" yaml:"base_name"`
	SegmentLength int       `json:"segment_length" yaml:"segment_length"`
	Duration      float64   `json:"duration" yaml:"duration"`
	Folder        string    `json:"folder" yaml:"folder"`
	Segments      []Segment `json:"segments" yaml:"segments"`
}

// TotalSlices returns the number of segments of length L needed for D
// seconds: floor(D/L), plus one for any remainder.
func TotalSlices(duration float64, length int) int {
	if duration <= 0 || length < 1 {
		return 0
	}
	l := float64(length)
	n := int(math.Floor(duration / l))
	if math.Mod(duration, l) != 0 {
		n++
	}
	return n
}

// FolderName returns "<base>_<length>".
func FolderName(baseName string, length int) string {
	return fmt.Sprintf("%s_%d", baseName, length)
}

// FileName returns "<base>_<length>_<index>.mp4" with the index padded to two digits.
func FileName(baseName string, length, index int) string {
	return fmt.Sprintf("%s_%d_%02d%s", baseName, length, index, Extension)
}

// New plans the segments of a duration-second video cut into length-second
// pieces, to be written under outputDir/<base>_<length>. A zero duration
// gives a plan without segments; deciding what that means is up to the caller.
func New(baseName string, duration float64, length int, outputDir string) (*Plan, error) {
	if length < 1 {
		return nil, errors.New(errors.ValidationError, "Segment length must be at least 1 second",
			fmt.Sprintf("length=%d", length), errors.ErrInvalidSegmentLength)
	}
	if duration < 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return nil, errors.New(errors.ValidationError, "Invalid duration",
			fmt.Sprintf("duration=%v", duration), errors.ErrInvalidDuration)
	}

	folder := filepath.Join(outputDir, FolderName(baseName, length))
	plan := &Plan{
		BaseName:      baseName,
		SegmentLength: length,
		Duration:      duration,
		Folder:        folder,
		Segments:      make([]Segment, 0, TotalSlices(duration, length)),
	}

	l := float64(length)
	for i := 1; ; i++ {
		start := float64(i-1) * l
		if start >= duration {
			break
		}
		plan.Segments = append(plan.Segments, Segment{
			Index: i,
			Start: start,
			End:   math.Min(start+l, duration),
			Path:  filepath.Join(folder, FileName(baseName, length, i)),
		})
	}
	return plan, nil
}

// Total returns the number of planned segments.
func (p *Plan) Total() int {
	return len(p.Segments)
}

// Empty reports whether the plan has nothing to cut.
func (p *Plan) Empty() bool {
	return len(p.Segments) == 0
}
