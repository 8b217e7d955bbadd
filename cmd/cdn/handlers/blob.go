package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lyzr/cdn/cmd/cdn/service"
	"github.com/lyzr/cdn/common/logger"
	"github.com/lyzr/cdn/common/models"
)

const cacheControl = "public, max-age=31536000, immutable"

// BlobService is the pipeline as seen by the handler
type BlobService interface {
	GetBlob(ctx context.Context, req models.BlobRequest) (*models.Rendition, error)
}

// ErrorResponse is the JSON body of every failed blob request
type ErrorResponse struct {
	Error  string  `json:"error"`
	Reason *string `json:"reason"`
}

// BlobHandler serves transformed blobs
type BlobHandler struct {
	blobs BlobService
	log   *logger.Logger
}

// NewBlobHandler creates a new blob handler
func NewBlobHandler(blobs BlobService, log *logger.Logger) *BlobHandler {
	return &BlobHandler{
		blobs: blobs,
		log:   log,
	}
}

// GetBlob returns a blob rendered with a preset in a format
// GET /:preset/:actor/:cid/:format
func (h *BlobHandler) GetBlob(c echo.Context) error {
	req, err := ParseBlobRequest(c.Param("preset"), c.Param("actor"), c.Param("cid"), c.Param("format"))
	if err != nil {
		return writeError(c, service.NewInvalidRequest(err))
	}

	rendition, err := h.blobs.GetBlob(c.Request().Context(), req)
	if err != nil {
		var perr *service.PipelineError
		if errors.As(err, &perr) {
			return writeError(c, perr)
		}
		// the client went away; nothing useful can be written
		h.log.WithContext(c.Request().Context()).Debug("blob request abandoned", "error", err)
		return err
	}

	header := c.Response().Header()
	header.Set("Cache-Control", cacheControl)
	if rendition.CacheHit {
		header.Set("X-Cache", "HIT")
	} else {
		header.Set("X-Cache", "MISS")
	}

	return c.Blob(http.StatusOK, rendition.MIMEType, rendition.Data)
}

// ParseBlobRequest validates the four path segments
func ParseBlobRequest(preset, actor, content, format string) (models.BlobRequest, error) {
	p, err := models.ParsePreset(preset)
	if err != nil {
		return models.BlobRequest{}, err
	}
	f, err := models.ParseFormat(format)
	if err != nil {
		return models.BlobRequest{}, err
	}
	a, err := models.ParseActorID(actor)
	if err != nil {
		return models.BlobRequest{}, err
	}
	cid, err := models.ParseContentID(content)
	if err != nil {
		return models.BlobRequest{}, err
	}

	return models.BlobRequest{Preset: p, Actor: a, Content: cid, Format: f}, nil
}

func writeError(c echo.Context, err *service.PipelineError) error {
	return c.JSON(err.StatusCode(), ErrorResponse{
		Error:  string(err.Kind),
		Reason: err.Reason(),
	})
}
