package security

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/oshokin/home-security/internal/codec"
	domain "github.com/oshokin/home-security/internal/domain/security"
	"github.com/oshokin/home-security/internal/logger"
)

// Service abstracts the business operations the transport layer depends on.
type Service interface {
	Config(ctx context.Context) (domain.Config, error)
	SaveConfig(ctx context.Context, cfg domain.Config) (domain.Config, error)
	PerformCheck(ctx context.Context, image []byte) error
	AnnotatedImage(ctx context.Context) ([]byte, error)
	Arm(ctx context.Context) (domain.Config, error)
	Silence(ctx context.Context) (domain.Config, error)
	Disarm(ctx context.Context) (domain.Config, error)
	Deactivate(ctx context.Context) (domain.Config, error)
}

// maxBodyBytes caps request bodies; camera frames are well below it.
const maxBodyBytes = 32 << 20

// imagePart is the multipart field carrying the image in a security check.
const imagePart = "image"

// Problem is the error document returned for every failed request.
type Problem struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

// AnnotatedImage is the body of GET /annotated-image.
type AnnotatedImage struct {
	Base64EncodedImage string `json:"base64EncodedImage"`
}

// API holds dependencies for HTTP handlers.
type API struct {
	// service provides the business logic for alarm operations.
	service Service
}

// New creates the REST API over the service.
func New(service Service) *API {
	return &API{
		service: service,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Put("/update/security-config", a.handleUpdateConfig)
	r.Get("/security-config", a.handleGetConfig)
	r.Post("/security-check", a.handleSecurityCheck)
	r.Get("/annotated-image", a.handleAnnotatedImage)
	r.Put("/arm-alarm", a.handleTransition(a.service.Arm))
	r.Put("/silence-alarm", a.handleTransition(a.service.Silence))
	r.Put("/disarm-alarm", a.handleTransition(a.service.Disarm))
	r.Put("/deactivate-alarm", a.handleTransition(a.service.Deactivate))
}

// NewRouter builds a router with the API routes and the base middleware stack.
func (a *API) NewRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(accessLog)

	a.RegisterRoutes(r)

	return r
}

func (a *API) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := a.service.Config(r.Context())
	if err != nil {
		writeError(w, r, err)

		return
	}

	writeConfig(w, r, http.StatusOK, cfg)
}

func (a *API) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeProblem(w, r, http.StatusBadRequest, err.Error())

		return
	}

	cfg, err := codec.UnmarshalJSON(data)
	if err != nil {
		writeProblem(w, r, http.StatusBadRequest, err.Error())

		return
	}

	saved, err := a.service.SaveConfig(r.Context(), cfg)
	if err != nil {
		writeError(w, r, err)

		return
	}

	writeConfig(w, r, http.StatusCreated, saved)
}

func (a *API) handleSecurityCheck(w http.ResponseWriter, r *http.Request) {
	image, err := readImage(w, r)
	if err != nil {
		writeProblem(w, r, http.StatusBadRequest, err.Error())

		return
	}

	if err = a.service.PerformCheck(r.Context(), image); err != nil {
		writeError(w, r, err)

		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (a *API) handleAnnotatedImage(w http.ResponseWriter, r *http.Request) {
	data, err := a.service.AnnotatedImage(r.Context())
	if err != nil {
		writeError(w, r, err)

		return
	}

	writeJSON(w, r, http.StatusOK, AnnotatedImage{
		Base64EncodedImage: base64.StdEncoding.EncodeToString(data),
	})
}

func (a *API) handleTransition(operation func(context.Context) (domain.Config, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg, err := operation(r.Context())
		if err != nil {
			writeError(w, r, err)

			return
		}

		writeConfig(w, r, http.StatusOK, cfg)
	}
}

var (
	errEmptyImage       = errors.New("image is required")
	errMissingImagePart = errors.New(`multipart request has no "image" part`)
)

// readImage accepts either a multipart form with an "image" part holding the
// raw bytes or a body holding the base64 encoded image.
func readImage(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		r.Body = body

		return readMultipartImage(r)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}

	encoded := strings.TrimSpace(string(data))
	if encoded == "" {
		return nil, errEmptyImage
	}

	image, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode base64 image: %w", err)
	}

	return image, nil
}

func readMultipartImage(r *http.Request) ([]byte, error) {
	reader, err := r.MultipartReader()
	if err != nil {
		return nil, err
	}

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, errMissingImagePart
		}

		if err != nil {
			return nil, err
		}

		if part.FormName() != imagePart {
			_ = part.Close()

			continue
		}

		image, err := io.ReadAll(part)
		_ = part.Close()

		if err != nil {
			return nil, err
		}

		if len(image) == 0 {
			return nil, errEmptyImage
		}

		return image, nil
	}
}

func writeConfig(w http.ResponseWriter, r *http.Request, status int, cfg domain.Config) {
	data, err := codec.MarshalJSON(cfg)
	if err != nil {
		writeError(w, r, err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.WarnKV(r.Context(), "Failed to write response", "error", err)
	}
}

// writeError maps a classified domain error to a problem document.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusOf(err)

	if status >= http.StatusInternalServerError {
		logger.ErrorKV(r.Context(), "Request failed",
			"path", r.URL.Path,
			"kind", domain.KindOf(err).String(),
			"error", err,
		)
	}

	writeProblem(w, r, status, err.Error())
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)

	problem := Problem{
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	}

	if err := json.NewEncoder(w).Encode(problem); err != nil {
		logger.WarnKV(r.Context(), "Failed to write problem", "error", err)
	}
}

// StatusOf returns the HTTP status for a domain error.
func StatusOf(err error) int {
	switch domain.KindOf(err) {
	case domain.KindInvalidTransition:
		return http.StatusConflict
	case domain.KindInvalidConfig:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
