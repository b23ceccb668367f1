package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/facecheck-dev/facecheck/internal/domain"
	"github.com/facecheck-dev/facecheck/internal/registry"
)

var validImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// FaceService interface for the service
type FaceService interface {
	List(ctx context.Context) ([]domain.ImageInfo, error)
	Image(ctx context.Context, filename string) ([]byte, error)
	Recognize(ctx context.Context, image []byte, threshold *float64) (*domain.RecognizeResult, error)
	Upload(ctx context.Context, filename string, image []byte, overwrite bool) (*domain.UploadResult, error)
	Compare(ctx context.Context, a, b string, threshold *float64) (*domain.CompareResult, error)
	Reload(ctx context.Context) (int, error)
	Delete(ctx context.Context, filename string) error
	Registry(ctx context.Context, limit int) []registry.Entry
}

// FaceHandler handles gallery and recognition requests
type FaceHandler struct {
	service      FaceService
	logger       *slog.Logger
	maxImageSize int64
}

// NewFaceHandler creates a new FaceHandler instance
func NewFaceHandler(service FaceService, logger *slog.Logger, maxImageSize int64) *FaceHandler {
	return &FaceHandler{
		service:      service,
		logger:       logger,
		maxImageSize: maxImageSize,
	}
}

// ListResponse response for the image listing endpoint
type ListResponse struct {
	Images []domain.ImageInfo `json:"images"`
}

// MatchResponse is one per-face recognition result. Distance is null when the
// gallery is empty and no distance exists.
type MatchResponse struct {
	Matched   bool     `json:"matched"`
	Filename  string   `json:"filename,omitempty"`
	Distance  *float64 `json:"distance"`
	Threshold float64  `json:"threshold"`
}

// RecognizeResponse response for the recognize endpoint
type RecognizeResponse struct {
	FacesDetected int             `json:"faces_detected"`
	Results       []MatchResponse `json:"results"`
}

// UploadResponse response for the upload endpoint
type UploadResponse struct {
	Filename string `json:"filename"`
	Saved    bool   `json:"saved"`
	Faces    int    `json:"faces"`
}

// CompareRequest request body for the compare endpoint
type CompareRequest struct {
	A         string   `json:"a"`
	B         string   `json:"b"`
	Threshold *float64 `json:"threshold,omitempty"`
}

// ReloadResponse response for the reload endpoint
type ReloadResponse struct {
	Loaded int `json:"loaded"`
}

// DeleteResponse response for the delete endpoint
type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}

// RegistryResponse response for the registry endpoint
type RegistryResponse struct {
	Items []registry.Entry `json:"items"`
}

// List GET /images - list gallery images with face counts
func (h *FaceHandler) List(c *fiber.Ctx) error {
	images, err := h.service.List(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(ListResponse{Images: images})
}

// Serve GET /images/:filename - serve raw image bytes
func (h *FaceHandler) Serve(c *fiber.Ctx) error {
	filename, err := pathFilename(c)
	if err != nil {
		return err
	}

	data, err := h.service.Image(c.Context(), filename)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, http.DetectContentType(data))
	return c.Send(data)
}

// Recognize POST /recognize - match an uploaded probe against the gallery
func (h *FaceHandler) Recognize(c *fiber.Ctx) error {
	imageBytes, err := h.extractImage(c, "image")
	if err != nil {
		return err
	}

	threshold, err := formThreshold(c)
	if err != nil {
		return err
	}

	result, err := h.service.Recognize(c.Context(), imageBytes, threshold)
	if err != nil {
		return err
	}

	resp := RecognizeResponse{
		FacesDetected: result.FacesDetected,
		Results:       make([]MatchResponse, 0, len(result.Results)),
	}
	for _, r := range result.Results {
		m := MatchResponse{
			Matched:   r.Matched,
			Filename:  r.Owner,
			Threshold: r.Threshold,
		}
		if !math.IsInf(r.Distance, 1) {
			d := r.Distance
			m.Distance = &d
		}
		resp.Results = append(resp.Results, m)
	}

	return c.JSON(resp)
}

// Upload POST /upload - store a new gallery image
func (h *FaceHandler) Upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return domain.ErrValidationFailed.WithError(errors.New("no file provided; use form field 'file'"))
	}

	imageBytes, err := h.readImageFile(c, "file")
	if err != nil {
		return err
	}

	overwrite := strings.EqualFold(c.FormValue("overwrite"), "true")
	filename := filepath.Base(file.Filename)

	result, err := h.service.Upload(c.Context(), filename, imageBytes, overwrite)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(UploadResponse{
		Filename: result.Filename,
		Saved:    true,
		Faces:    result.Faces,
	})
}

// Compare POST /compare - measure distance between two stored images
func (h *FaceHandler) Compare(c *fiber.Ctx) error {
	var req CompareRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}
	if req.A == "" || req.B == "" {
		return domain.ErrValidationFailed.WithMessage("provide 'a' and 'b' filenames")
	}

	result, err := h.service.Compare(c.Context(), req.A, req.B, req.Threshold)
	if err != nil {
		return err
	}

	return c.JSON(result)
}

// Reload POST /reload - rebuild the face index from disk
func (h *FaceHandler) Reload(c *fiber.Ctx) error {
	loaded, err := h.service.Reload(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(ReloadResponse{Loaded: loaded})
}

// Delete DELETE /images/:filename - remove an image from the gallery
func (h *FaceHandler) Delete(c *fiber.Ctx) error {
	filename, err := pathFilename(c)
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Context(), filename); err != nil {
		return err
	}

	return c.JSON(DeleteResponse{Deleted: true})
}

// Registry GET /registry - recent recognition outcomes
func (h *FaceHandler) Registry(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	return c.JSON(RegistryResponse{Items: h.service.Registry(c.Context(), limit)})
}

// extractImage reads and validates a probe image from the multipart form
func (h *FaceHandler) extractImage(c *fiber.Ctx, field string) ([]byte, error) {
	if _, err := c.FormFile(field); err != nil {
		return nil, domain.ErrValidationFailed.WithError(errors.New("no image provided; use form field '" + field + "'"))
	}
	return h.readImageFile(c, field)
}

// readImageFile reads the named multipart file after size and content-type
// checks
func (h *FaceHandler) readImageFile(c *fiber.Ctx, field string) ([]byte, error) {
	file, err := c.FormFile(field)
	if err != nil {
		return nil, domain.ErrValidationFailed.WithError(err)
	}

	if file.Size > h.maxImageSize || file.Size == 0 {
		return nil, domain.ErrInvalidImage
	}

	contentType := file.Header.Get("Content-Type")
	if contentType != "" && !validImageTypes[contentType] {
		return nil, domain.ErrInvalidImage
	}

	f, err := file.Open()
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}
	defer func() {
		_ = f.Close()
	}()

	imageBytes, err := io.ReadAll(f)
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}

	return imageBytes, nil
}

func pathFilename(c *fiber.Ctx) (string, error) {
	raw := strings.TrimSpace(c.Params("filename"))
	if raw == "" {
		return "", domain.ErrValidationFailed.WithMessage("filename is required")
	}
	// Fiber keeps path params URL-encoded.
	if decoded, err := url.QueryUnescape(raw); err == nil {
		raw = decoded
	}
	return raw, nil
}

func formThreshold(c *fiber.Ctx) (*float64, error) {
	raw := strings.TrimSpace(c.FormValue("threshold"))
	if raw == "" {
		return nil, nil
	}
	t, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, domain.ErrInvalidThreshold.WithError(err)
	}
	return &t, nil
}
