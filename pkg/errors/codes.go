package errors

// Error codes, grouped per component.
const (
	// ValidationError (1000-1099)
	ErrMissingInput         = 1000
	ErrMissingOutputDir     = 1001
	ErrInvalidSegmentLength = 1002
	ErrInputNotFound        = 1003
	ErrInvalidInputURL      = 1004
	ErrMissingOriginalName  = 1005
	ErrInvalidDuration      = 1006

	// ProbeError (1100-1199)
	ErrProbeFailed      = 1100
	ErrDurationNotFound = 1101
	ErrNoSegments       = 1102

	// ProcessError (1200-1299)
	ErrSegmentStartFailed = 1200
	ErrSegmentFailed      = 1201
	ErrOutputMissing      = 1202

	// IOError (1300-1399)
	ErrOutputDirectoryCreationFailed = 1300
	ErrStagingFailed                 = 1301

	// DownloadError (1400-1499)
	ErrDownloadFailed = 1400
	ErrDownloadStatus = 1401

	// SystemError (1500-1599)
	ErrFFmpegUnavailable = 1500

	// CancelledError (1600-1699)
	ErrCancelledByUser = 1600
)
