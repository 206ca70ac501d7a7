package progress

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sync"
	"time"

	"github.com/heyjunin/VideoSlicer/pkg/logger"
	"github.com/schollz/progressbar/v3"
)

// Event statuses.
const (
	StatusInitialized = "initialized"
	StatusStarted     = "started"
	StatusProcessing  = "processing"
	StatusCompleted   = "completed"
	StatusCancelled   = "cancelled"
	StatusFailed      = "failed"
)

// ProgressEvent is a single progress notification, often serialized to JSON.
type ProgressEvent struct {
	// Status is one of the Status* constants.
	Status string `json:"status"`
	// Percentage is round(current/total*100), 0 to 100.
	Percentage int `json:"percentage"`
	// Current is the number of finished units (slices or bytes).
	Current int64 `json:"current"`
	// Total is the number of expected units.
	Total int64 `json:"total"`
	// Step names the phase, e.g. "slicing" or "downloading".
	Step string `json:"step"`
	// Stage is the human-readable status line for the current unit.
	Stage string `json:"stage"`
	// Message carries the terminal message on completion, cancellation or failure.
	Message string `json:"message,omitempty"`
	// Timestamp marks when the event occurred in RFC3339 format.
	Timestamp string `json:"timestamp"`
}

// Reporter is the callback contract between a slicing run and whatever
// presents it to the user.
type Reporter interface {
	// Start announces the total number of units (e.g. slices to be created).
	Start(total int64)
	// Update sets the number of finished units and the status line.
	Update(current int64, step, stage string)
	// Complete marks the operation as successfully finished.
	Complete()
	// Abort ends the operation with StatusCancelled or StatusFailed and a message.
	Abort(status, message string)
	// Updates returns a channel of events, closed once the operation ends.
	Updates() <-chan ProgressEvent
}

// Percent returns round(current/total*100), clamped to 0..100. A zero total yields 0.
func Percent(current, total int64) int {
	if total <= 0 {
		return 0
	}
	p := int(math.Round(float64(current) / float64(total) * 100))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

type reporterOptions struct {
	progressFilePath   string
	progressFileFormat string // "text" or "json"
	description        string
	showBytes          bool
	writer             io.Writer
}

// ReporterOption configures a DefaultReporter.
type ReporterOption func(*reporterOptions)

// WithProgressFile sets a file that is overwritten with the current progress
// on every event, so an external UI can poll it. Empty disables the file.
func WithProgressFile(path string) ReporterOption {
	return func(opts *reporterOptions) {
		opts.progressFilePath = path
	}
}

// WithProgressFileFormat selects "text" (percentage only) or "json" (the whole event).
func WithProgressFileFormat(format string) ReporterOption {
	return func(opts *reporterOptions) {
		if format == "json" || format == "text" {
			opts.progressFileFormat = format
		} else {
			logger.Warn("Invalid progress file format specified, defaulting to 'text'", "progress", map[string]interface{}{
				"format": format,
			})
			opts.progressFileFormat = "text"
		}
	}
}

// WithDescription sets the description text for the console progress bar.
func WithDescription(desc string) ReporterOption {
	return func(opts *reporterOptions) {
		opts.description = desc
	}
}

// WithShowBytes renders the bar in bytes, used while downloading.
func WithShowBytes(show bool) ReporterOption {
	return func(opts *reporterOptions) {
		opts.showBytes = show
	}
}

// WithWriter sets where the console bar is drawn. Defaults to stderr.
func WithWriter(w io.Writer) ReporterOption {
	return func(opts *reporterOptions) {
		opts.writer = w
	}
}

// DefaultReporter draws a github.com/schollz/progressbar/v3 bar and publishes
// every event on its Updates channel.
type DefaultReporter struct {
	Total     int64
	Current   int64
	Started   time.Time
	Bar       *progressbar.ProgressBar
	Event     ProgressEvent
	opts      reporterOptions
	updatesCh chan ProgressEvent
	closed    bool
	mu        sync.Mutex
}

// NewReporter creates a new DefaultReporter.
func NewReporter(opts ...ReporterOption) *DefaultReporter {
	options := reporterOptions{
		description:        "Slicing...",
		progressFileFormat: "text",
		writer:             os.Stderr,
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &DefaultReporter{
		opts: options,
		Event: ProgressEvent{
			Status:    StatusInitialized,
			Timestamp: time.Now().Format(time.RFC3339),
		},
		updatesCh: make(chan ProgressEvent, 16),
	}
}

// Start resets the counters and draws an empty bar of the given size.
func (r *DefaultReporter) Start(total int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Total = total
	r.Current = 0
	r.Started = time.Now()
	r.Event.Status = StatusStarted
	r.Event.Percentage = 0
	r.Event.Current = 0
	r.Event.Total = total
	r.Event.Timestamp = time.Now().Format(time.RFC3339)

	barOpts := []progressbar.Option{
		progressbar.OptionSetDescription(r.opts.description),
		progressbar.OptionSetWriter(r.opts.writer),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	}
	if r.opts.showBytes {
		barOpts = append(barOpts, progressbar.OptionShowBytes(true))
	}
	r.Bar = progressbar.NewOptions64(total, barOpts...)

	r.publishLocked()
}

// Update records current finished units and the status line.
func (r *DefaultReporter) Update(current int64, step, stage string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateLocked(current, step, stage)
}

func (r *DefaultReporter) updateLocked(current int64, step, stage string) {
	if r.Bar == nil {
		return
	}
	if current > r.Total {
		current = r.Total
	}
	r.Current = current

	r.Event.Percentage = Percent(current, r.Total)
	r.Event.Current = current
	r.Event.Step = step
	r.Event.Stage = stage
	r.Event.Status = StatusProcessing
	r.Event.Timestamp = time.Now().Format(time.RFC3339)

	r.Bar.Describe(stage)
	_ = r.Bar.Set64(current)

	r.publishLocked()
}

// Complete finishes the bar at 100% and closes the Updates channel.
func (r *DefaultReporter) Complete() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	if r.Bar != nil {
		_ = r.Bar.Finish()
	}
	r.Current = r.Total
	r.Event.Current = r.Total
	r.Event.Percentage = 100
	r.Event.Status = StatusCompleted
	r.Event.Timestamp = time.Now().Format(time.RFC3339)

	r.finishLocked()
}

// Abort ends reporting with a cancelled or failed status and closes the
// Updates channel. The bar is left where it stopped.
func (r *DefaultReporter) Abort(status, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	if status != StatusCancelled {
		status = StatusFailed
	}
	if r.Bar != nil {
		_ = r.Bar.Exit()
	}
	r.Event.Status = status
	r.Event.Message = message
	r.Event.Timestamp = time.Now().Format(time.RFC3339)

	r.finishLocked()
}

// Updates returns the channel of progress events.
func (r *DefaultReporter) Updates() <-chan ProgressEvent {
	return r.updatesCh
}

// JSON returns the latest event as a JSON string.
func (r *DefaultReporter) JSON() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, err := json.Marshal(r.Event)
	if err != nil {
		return "", fmt.Errorf("failed to marshal progress event: %w", err)
	}
	return string(data), nil
}

func (r *DefaultReporter) finishLocked() {
	r.publishLocked()
	r.Bar = nil
	r.closed = true
	close(r.updatesCh)
}

// publishLocked sends the current event without blocking and rewrites the
// progress file. Requires r.mu.
func (r *DefaultReporter) publishLocked() {
	if r.closed {
		return
	}
	select {
	case r.updatesCh <- r.Event:
	default:
	}
	r.writeProgressFileLocked()
}

func (r *DefaultReporter) writeProgressFileLocked() {
	if r.opts.progressFilePath == "" {
		return
	}

	var content []byte
	switch r.opts.progressFileFormat {
	case "json":
		data, err := json.MarshalIndent(r.Event, "", "  ")
		if err != nil {
			logger.Warn("Failed to marshal progress event to JSON", "progress", map[string]interface{}{
				"path":  r.opts.progressFilePath,
				"error": err.Error(),
			})
			return
		}
		content = data
	default:
		content = []byte(fmt.Sprintf("%d", r.Event.Percentage))
	}

	if err := os.WriteFile(r.opts.progressFilePath, content, 0644); err != nil {
		logger.Warn("Failed to write progress file", "progress", map[string]interface{}{
			"path":   r.opts.progressFilePath,
			"format": r.opts.progressFileFormat,
			"error":  err.Error(),
		})
	}
}

type nopReporter struct{}

// Nop returns a Reporter that ignores every call.
func Nop() Reporter {
	return nopReporter{}
}

func (nopReporter) Start(int64)                   {}
func (nopReporter) Update(int64, string, string)  {}
func (nopReporter) Complete()                     {}
func (nopReporter) Abort(string, string)          {}
func (nopReporter) Updates() <-chan ProgressEvent { return closedUpdates }

var closedUpdates = func() chan ProgressEvent {
	ch := make(chan ProgressEvent)
	close(ch)
	return ch
}()
