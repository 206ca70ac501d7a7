package ffmpeg

import (
	"bufio"
	"context"
	"strconv"
	"strings"

	"github.com/heyjunin/VideoSlicer/pkg/logger"
)

const durationMarker = "Duration:"

// ProbeResult is the outcome of a duration probe. Found is false when the
// encoder printed no usable duration line, in which case Duration is 0.
type ProbeResult struct {
	Duration float64 `json:"duration" yaml:"duration"`
	Found    bool    `json:"found" yaml:"found"`
	Line     string  `json:"line,omitempty" yaml:"line,omitempty"`
	ExitCode int     `json:"exit_code" yaml:"exit_code"`
}

// Prober reads a video's duration from the encoder's diagnostic output.
type Prober struct {
	Binary string
	Runner Runner
	Logger logger.Logger
}

// NewProber creates a Prober for binary (DefaultBinary when empty).
func NewProber(binary string, runner Runner, log logger.Logger) *Prober {
	if binary == "" {
		binary = DefaultBinary
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Prober{Binary: binary, Runner: runner, Logger: log}
}

// Probe runs `<binary> -i <path>`. Without an output file the encoder exits
// with an error status; that is expected and ignored. The returned error is
// only set when the encoder could not be run at all.
func (p *Prober) Probe(ctx context.Context, path string) (ProbeResult, error) {
	res, err := p.Runner.Run(ctx, p.Binary, []string{"-i", path})
	if err != nil {
		return ProbeResult{}, err
	}

	duration, line, ok := ParseDuration(string(res.Stderr))
	result := ProbeResult{
		Duration: duration,
		Found:    ok,
		Line:     line,
		ExitCode: res.ExitCode,
	}

	if ok {
		p.Logger.Info("Video duration probed", "probe", map[string]interface{}{
			"input":    path,
			"duration": duration,
		})
	} else {
		p.Logger.Warn("No duration found in encoder output", "probe", map[string]interface{}{
			"input":     path,
			"exit_code": res.ExitCode,
		})
	}
	return result, nil
}

// ParseDuration finds the first line of encoder output whose "Duration:"
// marker is followed by an `HH:MM:SS.ms` value and converts it into seconds.
// It returns the matched line as well. Lines whose value does not parse are
// skipped; if none parses (e.g. "Duration: N/A"), it returns 0, the first
// such line and false.
func ParseDuration(output string) (float64, string, bool) {
	var unparsed string
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		idx := strings.Index(line, durationMarker)
		if idx < 0 {
			continue
		}

		value := line[idx+len(durationMarker):]
		if comma := strings.Index(value, ","); comma >= 0 {
			value = value[:comma]
		}
		seconds, ok := parseClock(strings.TrimSpace(value))
		if !ok {
			// e.g. "Duration:" inside the input file name
			if unparsed == "" {
				unparsed = strings.TrimSpace(line)
			}
			continue
		}
		return seconds, strings.TrimSpace(line), true
	}
	return 0, unparsed, false
}

// parseClock converts "hours:minutes:seconds.fraction" to seconds.
func parseClock(s string) (float64, bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, false
	}

	var fields [3]float64
	for i, part := range parts {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil || v < 0 {
			return 0, false
		}
		fields[i] = v
	}
	return fields[0]*3600 + fields[1]*60 + fields[2], true
}
