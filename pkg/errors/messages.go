package errors

const unknownMessage = "Unknown error."

// ErrorMessages holds the standardized user-facing message for each code.
var ErrorMessages = map[int]string{
	ErrMissingInput:         "No input video was given. Choose a file to slice.",
	ErrMissingOutputDir:     "No output folder was given. Choose where to save the clips.",
	ErrInvalidSegmentLength: "Segment length must be between 1 and 600 seconds.",
	ErrInputNotFound:        "The input video could not be found. Check the path and try again.",
	ErrInvalidInputURL:      "The input URL is not valid.",
	ErrMissingOriginalName:  "Uploaded videos need their original file name.",
	ErrInvalidDuration:      "The video duration is invalid.",

	ErrProbeFailed:      "FFmpeg could not be run to read the video duration.",
	ErrDurationNotFound: "Could not read the video duration. The file may not be a video.",
	ErrNoSegments:       "The video has no playable length, so no clips were created.",

	ErrSegmentStartFailed: "FFmpeg could not be started for a segment.",
	ErrSegmentFailed:      "FFmpeg failed while cutting a segment. Cutting stopped.",
	ErrOutputMissing:      "FFmpeg finished but the segment file was not written.",

	ErrOutputDirectoryCreationFailed: "Failed to create the output folder. Check the path and permissions.",
	ErrStagingFailed:                 "Failed to save the uploaded video.",

	ErrDownloadFailed: "Failed to download the input video.",
	ErrDownloadStatus: "The server refused to send the input video.",

	ErrFFmpegUnavailable: "FFmpeg is not available. Install it or pass its path with --ffmpeg.",

	ErrCancelledByUser: "Cutting process cancelled.",
}

// GetErrorMessage returns the standardized message for a code.
func GetErrorMessage(code int) string {
	if msg, ok := ErrorMessages[code]; ok {
		return msg
	}
	return unknownMessage
}
