package analyses

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"fumble-backend/internal/shared/metrics"
	"fumble-backend/internal/shared/server/middleware"
	"fumble-backend/internal/shared/server/respond"
	"fumble-backend/internal/shared/util"
	"fumble-backend/internal/usage"
)

// FormField is the multipart field carrying the screenshot.
const FormField = "image"

// Room for multipart boundaries and part headers on top of the file itself.
const multipartOverhead = 64 << 10

// Handler wires HTTP handlers to the analyses service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches analysis routes to the router.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/analyze", h.analyze)
}

func (h *Handler) analyze(c *gin.Context) {
	maxBytes := h.Svc.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+multipartOverhead)

	fileHeader, err := c.FormFile(FormField)
	if err != nil {
		metrics.IncUploadRejected()
		if isBodyTooLarge(err) {
			writeError(c, ErrTooLarge)
			return
		}
		writeError(c, ErrNoImage)
		return
	}
	if fileHeader.Size > maxBytes {
		metrics.IncUploadRejected()
		writeError(c, ErrTooLarge)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		metrics.IncUploadRejected()
		writeError(c, ErrNoImage)
		return
	}
	defer file.Close()

	shot, err := ReadScreenshot(file, fileHeader.Header.Get("Content-Type"), fileHeader.Size, maxBytes)
	if err != nil {
		metrics.IncUploadRejected()
		writeError(c, err)
		return
	}
	if name, err := util.SanitizeFileName(fileHeader.Filename); err == nil {
		shot.FileName = name
	}
	shot.ClientKey = c.ClientIP()

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	res, rep, err := h.Svc.AnalyzeReport(ctx, shot)
	if err != nil {
		writeError(c, err)
		return
	}

	middleware.AnnotateVerdict(c, string(res.Outcome), rep.Fallback)
	respond.OK(c, res)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNoImage):
		respond.Error(c, http.StatusBadRequest, "validation_error", MessageNoImage, nil)
	case errors.Is(err, ErrUnsupportedType):
		respond.Error(c, http.StatusBadRequest, "validation_error", MessageUnsupportedType, nil)
	case errors.Is(err, ErrTooLarge):
		respond.Error(c, http.StatusRequestEntityTooLarge, "validation_error", MessageTooLarge, nil)
	case errors.Is(err, usage.ErrLimitReached):
		respond.Error(c, http.StatusTooManyRequests, "limit_reached", MessageLimitReached, []map[string]string{
			{"field": "usage", "issue": "limit_reached"},
		})
	default:
		respond.Error(c, http.StatusInternalServerError, "analysis_failed", MessageAnalysisFailed, nil)
	}
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}
