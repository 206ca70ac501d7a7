package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/heyjunin/VideoSlicer/pkg/errors"
	"github.com/heyjunin/VideoSlicer/pkg/ffmpeg"
	"github.com/heyjunin/VideoSlicer/pkg/logger"
	"github.com/heyjunin/VideoSlicer/pkg/progress"
	"github.com/heyjunin/VideoSlicer/pkg/slicer"
	"github.com/heyjunin/VideoSlicer/pkg/source"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Exit codes.
const (
	exitOK        = 0
	exitFailure   = 1
	exitCancelled = 130
)

var (
	// Input options
	inputPath      string
	originalName   string
	downloadDir    string
	keepDownload   bool
	allowOverwrite bool

	// Slicing options
	segmentLength int
	outputDir     string
	hardCancel    bool

	// Output options
	progressFile   string
	progressFormat string
	planFormat     string
	printEvent     bool

	// Advanced options
	ffmpegBinary      string
	ffmpegExtraParams []string
	logLevel          string
	prettyLogs        bool
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdin, os.Stdout))
}

func execute(args []string, stdin io.Reader, stdout io.Writer) int {
	code := exitOK
	rootCmd := newRootCmd(stdin, stdout, &code)
	rootCmd.SetArgs(args)

	if err := rootCmd.Execute(); err != nil {
		if se, ok := errors.As(err); ok {
			fmt.Fprintln(os.Stderr, se.UserMessage())
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		if code == exitOK {
			code = exitFailure
		}
	}
	return code
}

func newRootCmd(stdin io.Reader, stdout io.Writer, code *int) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "slicer",
		Short: "🔪 Slicer - cut a video into fixed-length clips",
		Long: `🔪 Slicer - cuts a video into fixed-length segments with FFmpeg stream copy.
Segments are saved as <output>/<name>_<length>/<name>_<length>_NN.mp4.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init(logLevel, prettyLogs)
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&prettyLogs, "pretty", false, "Human-readable logs instead of JSON")
	rootCmd.PersistentFlags().StringVar(&ffmpegBinary, "ffmpeg", ffmpeg.DefaultBinary, "Path to ffmpeg binary")

	cutCmd := &cobra.Command{
		Use:   "cut",
		Short: "Cut the input video into segments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCut(cmd.Context(), stdin, stdout, code)
		},
	}
	addInputFlags(cutCmd)
	addSliceFlags(cutCmd)
	cutCmd.Flags().BoolVar(&hardCancel, "hard-cancel", false, "Kill the running segment on interrupt instead of letting it finish")
	cutCmd.Flags().StringArrayVar(&ffmpegExtraParams, "ffmpeg-param", []string{}, "Extra parameters to pass to ffmpeg when cutting")
	cutCmd.Flags().StringVar(&progressFile, "progress-file", "", "Write progress to this file on every update")
	cutCmd.Flags().StringVar(&progressFormat, "progress-format", "text", "Progress file format: 'text' or 'json'")
	cutCmd.Flags().BoolVar(&printEvent, "json", false, "Print the final progress event as JSON to stdout")

	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Probe the input and print the segment plan without cutting",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd.Context(), stdin, stdout)
		},
	}
	addInputFlags(planCmd)
	addSliceFlags(planCmd)
	planCmd.Flags().StringVar(&planFormat, "format", "yaml", "Output format: 'yaml' or 'json'")

	probeCmd := &cobra.Command{
		Use:   "probe",
		Short: "Print the duration FFmpeg reports for the input",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(cmd.Context(), stdout)
		},
	}
	probeCmd.Flags().StringVarP(&inputPath, "input", "i", "", "Input file path (required)")
	probeCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(cutCmd, planCmd, probeCmd)
	return rootCmd
}

func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "Input file path, URL, or '-' for stdin (required)")
	cmd.Flags().StringVar(&originalName, "name", "", "Original file name; names the output and is required with '-i -'")
	cmd.Flags().StringVar(&downloadDir, "download-dir", "downloads", "Directory for downloaded or uploaded inputs")
	cmd.Flags().BoolVar(&keepDownload, "keep-download", false, "Keep downloaded or uploaded inputs after the run")
	cmd.Flags().BoolVar(&allowOverwrite, "overwrite", false, "Allow overwriting existing files")
	cmd.MarkFlagRequired("input")
}

func addSliceFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&segmentLength, "length", "l", slicer.DefaultSegmentLength,
		fmt.Sprintf("Segment length in seconds (%d-%d)", slicer.MinSegmentLength, slicer.MaxSegmentLength))
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Folder to save the clips in (required)")
	cmd.MarkFlagRequired("output")
}

// withSignals cancels the returned context on SIGINT/SIGTERM.
func withSignals(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-signalChan:
			logger.Info("Received signal, cancelling", "main", map[string]interface{}{
				"signal":      sig.String(),
				"hard_cancel": hardCancel,
			})
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(signalChan)
		cancel()
	}
}

// resolveInput stages the input and returns it with a cleanup func.
func resolveInput(ctx context.Context, stdin io.Reader) (*source.Source, func(), error) {
	opts := source.Options{
		Input:          inputPath,
		Name:           originalName,
		StagingDir:     downloadDir,
		AllowOverwrite: allowOverwrite,
	}
	if inputPath == "-" {
		opts.Reader = stdin
	}
	if source.IsRemote(inputPath) {
		opts.Progress = progress.NewReporter(
			progress.WithDescription("Downloading..."),
			progress.WithShowBytes(true),
		)
	}

	src, err := source.Resolve(ctx, opts)
	if err != nil {
		return nil, func() {}, err
	}

	cleanup := func() {
		if keepDownload {
			return
		}
		if err := src.Cleanup(); err != nil {
			logger.Warn("Failed to remove staged input", "main", map[string]interface{}{
				"path":  src.Path,
				"error": err.Error(),
			})
		}
	}
	return src, cleanup, nil
}

func slicerOptions(src *source.Source) slicer.Options {
	return slicer.Options{
		InputPath:         src.Path,
		BaseName:          src.BaseName,
		SegmentLength:     segmentLength,
		OutputDir:         outputDir,
		FFmpegBinary:      ffmpegBinary,
		FFmpegExtraParams: ffmpegExtraParams,
		AllowOverwrite:    allowOverwrite,
		HardCancel:        hardCancel,
	}
}

func runCut(parent context.Context, stdin io.Reader, stdout io.Writer, code *int) error {
	ctx, cancel := withSignals(parent)
	defer cancel()

	src, cleanup, err := resolveInput(ctx, stdin)
	if err != nil {
		return err
	}
	defer cleanup()

	reporter := progress.NewReporter(
		progress.WithProgressFile(progressFile),
		progress.WithProgressFileFormat(progressFormat),
	)

	s, err := slicer.New(slicerOptions(src), reporter)
	if err != nil {
		return err
	}

	logger.Info("Starting slicer", "main", map[string]interface{}{
		"input":          src.Path,
		"output":         outputDir,
		"segment_length": segmentLength,
	})

	res, err := s.Run(ctx)
	if printEvent {
		event, jerr := reporter.JSON()
		if jerr != nil {
			return jerr
		}
		fmt.Fprintln(stdout, event)
	}
	if res.Plan != nil && res.Plan.Total() > 0 {
		fmt.Fprintf(os.Stderr, "\nSlices created: %d of %d\n", len(res.Written), res.Plan.Total())
	}

	switch {
	case errors.IsCancelled(err):
		*code = exitCancelled
		fmt.Fprintln(os.Stderr, res.Message)
		return nil
	case err != nil:
		*code = exitFailure
		return fmt.Errorf("an error occurred: %s", res.Message)
	}

	absPath, _ := filepath.Abs(res.Plan.Folder)
	logger.Info("Slicing completed successfully", "main", map[string]interface{}{
		"folder":   absPath,
		"segments": len(res.Written),
	})
	fmt.Fprintln(os.Stderr, res.Message)
	return nil
}

func runPlan(parent context.Context, stdin io.Reader, stdout io.Writer) error {
	ctx, cancel := withSignals(parent)
	defer cancel()

	src, cleanup, err := resolveInput(ctx, stdin)
	if err != nil {
		return err
	}
	defer cleanup()

	s, err := slicer.New(slicerOptions(src), nil)
	if err != nil {
		return err
	}
	plan, err := s.Plan(ctx)
	if err != nil {
		return err
	}

	switch planFormat {
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	case "yaml":
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		if err := enc.Encode(plan); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown plan format %q (want yaml or json)", planFormat)
	}
}

func runProbe(parent context.Context, stdout io.Writer) error {
	ctx, cancel := withSignals(parent)
	defer cancel()

	prober := ffmpeg.NewProber(ffmpegBinary, ffmpeg.NewExecRunner(), logger.NewLogger())
	res, err := prober.Probe(ctx, inputPath)
	if err != nil {
		return errors.Wrap(err, errors.ProbeError, "Failed to run FFmpeg probe", errors.ErrProbeFailed)
	}
	if !res.Found {
		return errors.New(errors.ProbeError, "No duration found in FFmpeg output", inputPath, errors.ErrDurationNotFound)
	}

	fmt.Fprintf(stdout, "%.3f\n", res.Duration)
	return nil
}
