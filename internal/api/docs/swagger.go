package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// ImageInfoData is one gallery listing entry
type ImageInfoData struct {
	Filename string `json:"filename" example:"alice.jpg"`
	Faces    *int   `json:"faces" example:"1"`
}

// ListImagesResponse lists the gallery
type ListImagesResponse struct {
	Images []ImageInfoData `json:"images"`
}

// MatchData is one per-face recognition result
type MatchData struct {
	Matched   bool     `json:"matched" example:"true"`
	Filename  string   `json:"filename,omitempty" example:"alice.jpg"`
	Distance  *float64 `json:"distance" example:"0.41"`
	Threshold float64  `json:"threshold" example:"0.6"`
}

// RecognizeResponse is the recognition outcome for a probe image
type RecognizeResponse struct {
	FacesDetected int         `json:"faces_detected" example:"1"`
	Results       []MatchData `json:"results"`
}

// UploadResponse reports a stored gallery image
type UploadResponse struct {
	Filename string `json:"filename" example:"alice.jpg"`
	Saved    bool   `json:"saved" example:"true"`
	Faces    int    `json:"faces" example:"1"`
}

// CompareRequest names two gallery images to compare
type CompareRequest struct {
	A         string   `json:"a" example:"alice.jpg"`
	B         string   `json:"b" example:"bob.jpg"`
	Threshold *float64 `json:"threshold,omitempty" example:"0.6"`
}

// CompareResponse is the two-image comparison outcome
type CompareResponse struct {
	A         string  `json:"a" example:"alice.jpg"`
	B         string  `json:"b" example:"bob.jpg"`
	Matched   bool    `json:"matched" example:"false"`
	Distance  float64 `json:"distance" example:"0.83"`
	Threshold float64 `json:"threshold" example:"0.6"`
}

// ReloadResponse reports a completed index rebuild
type ReloadResponse struct {
	Loaded int `json:"loaded" example:"42"`
}

// DeleteResponse reports a removed gallery image
type DeleteResponse struct {
	Deleted bool `json:"deleted" example:"true"`
}

// RegistryEntryData is one recognition log entry
type RegistryEntryData struct {
	TS       string   `json:"ts" example:"2024-01-01T00:00:00Z"`
	Name     *string  `json:"name" example:"alice.jpg"`
	Status   string   `json:"status" example:"ok"`
	Distance *float64 `json:"distance" example:"0.41"`
}

// RegistryResponse lists recent recognition log entries
type RegistryResponse struct {
	Items []RegistryEntryData `json:"items"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"NOT_FOUND"`
	Message string `json:"message" example:"Image not found in gallery"`
}

// NewSwagger creates and configures the Swagger documentation
func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "FaceCheck API",
		Version:     "v0.1.0",
		Description: "Face verification service: match probe images against a managed gallery within a configurable distance threshold",
		Host:        "localhost:8080",
		Path:        "/",
	})

	endpoints := []*endpoint.EndPoint{
		// GET /images - List gallery
		endpoint.New(
			endpoint.GET,
			"/images",
			endpoint.WithTags("Gallery"),
			endpoint.WithSummary("List gallery images"),
			endpoint.WithDescription("Returns every stored image with its cached face count (null when the image has not been embedded yet)"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ListImagesResponse{}, "200", "Gallery listing"),
			}),
		),

		// GET /images/{filename} - Serve image
		endpoint.New(
			endpoint.GET,
			"/images/{filename}",
			endpoint.WithTags("Gallery"),
			endpoint.WithSummary("Serve a gallery image"),
			endpoint.WithParams(
				parameter.StrParam("filename", parameter.Path, parameter.WithDescription("Gallery filename")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(struct{}{}, "200", "Raw image bytes"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "NOT_FOUND", Message: "Image not found in gallery"}, "404", "Not Found"),
			}),
		),

		// DELETE /images/{filename} - Delete image
		endpoint.New(
			endpoint.DELETE,
			"/images/{filename}",
			endpoint.WithTags("Gallery"),
			endpoint.WithSummary("Delete a gallery image"),
			endpoint.WithParams(
				parameter.StrParam("filename", parameter.Path, parameter.WithDescription("Gallery filename")),
			),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(DeleteResponse{}, "200", "Image deleted"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "NOT_FOUND", Message: "Image not found in gallery"}, "404", "Not Found"),
				response.New(ErrorResponse{Code: "STORAGE_ERROR", Message: "Durable storage operation failed"}, "500", "Internal Server Error"),
			}),
		),

		// POST /upload - Upload image
		endpoint.New(
			endpoint.POST,
			"/upload",
			endpoint.WithTags("Gallery"),
			endpoint.WithSummary("Upload a gallery image"),
			endpoint.WithDescription("Stores the image durably and extends the face index. Fails with IMAGE_EXISTS unless overwrite=true is passed."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(UploadResponse{}, "201", "Image stored"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Request validation failed"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "INVALID_IMAGE", Message: "Invalid image format or corrupted file"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "IMAGE_EXISTS", Message: "An image with this filename already exists"}, "409", "Conflict"),
				response.New(ErrorResponse{Code: "STORAGE_ERROR", Message: "Durable storage operation failed"}, "500", "Internal Server Error"),
			}),
		),

		// POST /recognize - Recognize probe
		endpoint.New(
			endpoint.POST,
			"/recognize",
			endpoint.WithTags("Recognition"),
			endpoint.WithSummary("Recognize faces in a probe image"),
			endpoint.WithDescription("Embeds the probe and returns the closest gallery match per detected face. The optional threshold form field overrides the configured default."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(RecognizeResponse{}, "200", "Recognition completed"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "INVALID_IMAGE", Message: "Invalid image format or corrupted file"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "INVALID_THRESHOLD", Message: "Threshold must be a non-negative number"}, "422", "Unprocessable Entity"),
			}),
		),

		// POST /compare - Compare two stored images
		endpoint.New(
			endpoint.POST,
			"/compare",
			endpoint.WithTags("Recognition"),
			endpoint.WithSummary("Compare two gallery images"),
			endpoint.WithDescription("Computes the embedding distance between the first face of each named image, bypassing the index"),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(CompareResponse{}, "200", "Comparison completed"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "NOT_FOUND", Message: "Image not found in gallery"}, "404", "Not Found"),
				response.New(ErrorResponse{Code: "NO_FACE_DETECTED", Message: "No face detected in the image"}, "422", "Unprocessable Entity"),
			}),
		),

		// POST /reload - Rebuild index
		endpoint.New(
			endpoint.POST,
			"/reload",
			endpoint.WithTags("Recognition"),
			endpoint.WithSummary("Rebuild the face index from disk"),
			endpoint.WithDescription("Scans the gallery and atomically replaces the in-memory index. On failure the previous index keeps serving."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ReloadResponse{}, "200", "Index rebuilt"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "STORAGE_ERROR", Message: "Durable storage operation failed"}, "500", "Internal Server Error"),
			}),
		),

		// GET /registry - Recognition log
		endpoint.New(
			endpoint.GET,
			"/registry",
			endpoint.WithTags("Recognition"),
			endpoint.WithSummary("Recent recognition outcomes"),
			endpoint.WithParams(
				parameter.IntParam("limit", parameter.Query, parameter.WithDescription("Maximum entries to return (default 50)")),
			),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(RegistryResponse{}, "200", "Recognition log"),
			}),
		),
	}

	sw.AddEndpoints(endpoints)
	return sw
}
