package analyses

import "errors"

var (
	ErrNoImage         = errors.New("no image uploaded")
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrTooLarge        = errors.New("image too large")
	// ErrUpstream wraps any failure of the model call.
	ErrUpstream = errors.New("model call failed")
)

// User-facing messages. Upstream details never leave the server logs.
const (
	MessageNoImage         = "No image uploaded"
	MessageUnsupportedType = "Invalid file type. Upload PNG/JPG/JPEG/WEBP."
	MessageTooLarge        = "File too large. Max 5MB."
	MessageLimitReached    = "You've used all your fumble checks for today. Come back tomorrow."
	MessageAnalysisFailed  = "Analysis failed"
)
