package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/woundrisk/internal/apperr"
	"github.com/example/woundrisk/internal/auth"
	"github.com/example/woundrisk/internal/logging"
	"github.com/example/woundrisk/internal/risk"
	"github.com/example/woundrisk/internal/usecase"
)

// MaxUploadSize is the default limit for uploaded images.
const MaxUploadSize = 5 << 20

// formOverhead leaves room for multipart framing and the symptom fields.
const formOverhead = 64 << 10

// AssessmentIDHeader carries the id of a new assessment.
const AssessmentIDHeader = "X-Assessment-ID"

// FileField is the multipart field holding the image.
const FileField = "file"

var allowedMIMETypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
	"image/bmp":  true,
	"image/tiff": true,
}

// Options tunes the HTTP boundary.
type Options struct {
	MaxUploadSize int64
	Logger        *zap.Logger
}

type handler struct {
	uc            *usecase.AssessmentUseCase
	maxUploadSize int64
	logger        *zap.Logger
}

// RegisterRoutes wires the HTTP handlers to the Gin router.
func RegisterRoutes(router *gin.Engine, uc *usecase.AssessmentUseCase, authn *auth.Authenticator, opts ...Options) {
	h := &handler{uc: uc, maxUploadSize: MaxUploadSize, logger: zap.NewNop()}
	for _, o := range opts {
		if o.MaxUploadSize > 0 {
			h.maxUploadSize = o.MaxUploadSize
		}
		if o.Logger != nil {
			h.logger = o.Logger.Named("http")
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/ready", h.ready)
	router.POST("/assess", authn.Optional(), h.assess)
	router.GET("/assessments/:id", authn.Required(), h.getAssessment)
	router.GET("/metrics/summary", authn.Required(), h.metricsSummary)
	router.POST("/admin/weights/reload", authn.Required(), h.reloadWeights)
}

func (h *handler) ready(c *gin.Context) {
	if h.uc == nil || !h.uc.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (h *handler) assess(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize+formOverhead)

	file, err := c.FormFile(FileField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}

	if !allowedMIMETypes[mediaType(file.Header.Get("Content-Type"))] {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "unsupported file type"})
		return
	}
	if file.Size > h.maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	symptoms, err := parseSymptoms(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to open image"})
		return
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, h.maxUploadSize+1))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read image"})
		return
	}
	if int64(len(data)) > h.maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	subject, _ := auth.GetSubject(c.Request.Context())
	assessmentID, result, err := h.uc.Assess(c.Request.Context(), subject, data, symptoms)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"error": apperr.PublicMessage(err)})
		return
	}

	c.Header(AssessmentIDHeader, assessmentID)
	c.JSON(http.StatusOK, result)
}

func (h *handler) getAssessment(c *gin.Context) {
	subject, _ := auth.GetSubject(c.Request.Context())
	stored, err := h.uc.GetAssessment(c.Request.Context(), subject, c.Param("id"))
	switch {
	case errors.Is(err, usecase.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "assessment not found"})
		return
	case errors.Is(err, usecase.ErrStorageDisabled):
		c.JSON(http.StatusNotImplemented, gin.H{"error": "assessment history is disabled"})
		return
	case err != nil:
		op, _ := logging.OperationOf(err)
		h.logger.Error("failed to load assessment", zap.String("operation", op), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, stored)
}

func (h *handler) metricsSummary(c *gin.Context) {
	summary, err := h.uc.GetMetricsSummary(c.Request.Context())
	switch {
	case errors.Is(err, usecase.ErrStorageDisabled):
		c.JSON(http.StatusNotImplemented, gin.H{"error": "assessment history is disabled"})
		return
	case err != nil:
		op, _ := logging.OperationOf(err)
		h.logger.Error("failed to aggregate metrics", zap.String("operation", op), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *handler) reloadWeights(c *gin.Context) {
	cfg, err := h.uc.ReloadWeights()
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "weight reload failed", "detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "reloaded",
		"source":  cfg.Source(),
		"signals": cfg.Names(),
		"missing": cfg.Missing(),
	})
}

func mediaType(header string) string {
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return strings.ToLower(mt)
}

// parseSymptoms reads the reported_* form fields. Missing fields are false.
func parseSymptoms(c *gin.Context) (risk.Symptoms, error) {
	flags := make(map[string]bool, 5)
	for _, name := range risk.SymptomSignalNames() {
		raw, ok := c.GetPostForm(name)
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		value, err := parseBool(raw)
		if err != nil {
			return risk.Symptoms{}, errors.New("invalid value for " + name)
		}
		flags[name] = value
	}
	return risk.SymptomsFromFlags(flags), nil
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "on", "y":
		return true, nil
	case "no", "off", "n":
		return false, nil
	}
	return strconv.ParseBool(strings.TrimSpace(raw))
}
