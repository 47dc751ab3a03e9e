package analyses

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
)

// DefaultMaxUploadBytes caps a screenshot at 5 MiB.
const DefaultMaxUploadBytes = 5 << 20

// allowedContentTypes maps accepted declared types to the type sent upstream.
var allowedContentTypes = map[string]string{
	"image/png":  "image/png",
	"image/jpeg": "image/jpeg",
	"image/jpg":  "image/jpeg",
	"image/webp": "image/webp",
}

// Screenshot is one validated upload. It lives only for the request.
type Screenshot struct {
	Data     []byte
	MIMEType string
	FileName string
	// ClientKey identifies the caller for quotas (client IP, chat ID).
	ClientKey string
}

// NormalizeContentType resolves the declared type of an upload, sniffing the
// bytes when nothing useful was declared.
func NormalizeContentType(declared string, head []byte) (string, error) {
	declared = strings.TrimSpace(declared)
	if declared != "" {
		if parsed, _, err := mime.ParseMediaType(declared); err == nil {
			declared = parsed
		}
		declared = strings.ToLower(declared)
	}
	if declared == "" || declared == "application/octet-stream" {
		if len(head) == 0 {
			return "", ErrUnsupportedType
		}
		declared = http.DetectContentType(head)
	}
	if canonical, ok := allowedContentTypes[declared]; ok {
		return canonical, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedType, declared)
}

// ReadScreenshot reads at most maxBytes from r and validates type and size.
// size is the length announced by the transport, or -1 when unknown.
func ReadScreenshot(r io.Reader, declaredType string, size, maxBytes int64) (Screenshot, error) {
	if r == nil {
		return Screenshot{}, ErrNoImage
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if size > maxBytes {
		return Screenshot{}, ErrTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return Screenshot{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return Screenshot{}, ErrNoImage
	}
	if int64(len(data)) > maxBytes {
		return Screenshot{}, ErrTooLarge
	}
	mimeType, err := NormalizeContentType(declaredType, data)
	if err != nil {
		return Screenshot{}, err
	}
	return Screenshot{Data: data, MIMEType: mimeType}, nil
}

func (s Screenshot) validate(maxBytes int64) error {
	if len(s.Data) == 0 {
		return ErrNoImage
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if int64(len(s.Data)) > maxBytes {
		return ErrTooLarge
	}
	if _, ok := allowedContentTypes[s.MIMEType]; !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, s.MIMEType)
	}
	return nil
}
