package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	appaudio "github.com/wildvox/wildvox/internal/application/audio"
	"github.com/wildvox/wildvox/internal/domain/artifacts"
	"github.com/wildvox/wildvox/internal/logger"
	"github.com/wildvox/wildvox/internal/middleware"
	"github.com/wildvox/wildvox/internal/pipeline"
)

// maxMultipartMemory caps the in-memory part of multipart parsing; the rest
// spills to temp files.
const maxMultipartMemory = 32 << 20

type Router struct {
	audioSvc *appaudio.Service
	sched    *pipeline.Scheduler
	orch     *pipeline.Orchestrator
	log      *logger.Logger
}

// Deps carries everything the router needs wired in from main.
type Deps struct {
	AudioSvc *appaudio.Service
	Sched    *pipeline.Scheduler
	Orch     *pipeline.Orchestrator
	Log      *logger.Logger
	AuthKeys map[string]string
	Health   map[string]middleware.HealthChecker
}

func NewRouter(d Deps) http.Handler {
	r := &Router{audioSvc: d.AudioSvc, sched: d.Sched, orch: d.Orch, log: d.Log}
	mux := chi.NewRouter()

	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
	mux.Use(middleware.LoggingMiddleware(d.Log.Entry))
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(middleware.APIKeyAuth(d.AuthKeys))
	mux.Use(middleware.RateLimitMiddleware(60, 1))

	mux.Get("/health", middleware.HealthHandler(d.Health))
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/v1", func(rt chi.Router) {
		rt.Post("/audio/upload", r.wrap(r.handleUpload))
		rt.Get("/audio/formats", r.wrap(r.handleFormats))
		rt.Get("/audio/latest", r.wrap(r.handleLatest))
		rt.Get("/species", r.wrap(r.handleSpecies))
		rt.Post("/analysis/trigger/{artifactID}", r.wrap(r.handleTrigger))
		rt.Post("/analysis/cancel/{artifactID}", r.wrap(r.handleCancel))
		rt.Get("/analysis/result/{artifactID}", r.wrap(r.handleResult))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// badRequest marks a validation failure so wrap maps it to 400.
type badRequest struct{ err error }

func (b badRequest) Error() string { return b.err.Error() }
func (b badRequest) Unwrap() error { return b.err }

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			var br badRequest
			switch {
			case errors.Is(err, artifacts.ErrNotFound):
				http.Error(w, "not found", http.StatusNotFound)
			case errors.Is(err, artifacts.ErrUnsupportedFormat),
				errors.Is(err, artifacts.ErrUnsupportedSpecies):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, artifacts.ErrFileTooLarge):
				http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
			case errors.Is(err, artifacts.ErrStorageUnavailable):
				http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
			case errors.As(err, &br):
				http.Error(w, err.Error(), http.StatusBadRequest)
			default:
				r.log.WithRequest(req).WithError(err).Error("handler error")
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// POST /v1/audio/upload
// multipart form: file (required), species (required), format?, location?, recorded_at? (RFC3339)
func (r *Router) handleUpload(w http.ResponseWriter, req *http.Request) error {
	if err := req.ParseMultipartForm(maxMultipartMemory); err != nil {
		return badRequest{fmt.Errorf("invalid multipart form: %w", err)}
	}
	file, header, err := req.FormFile("file")
	if err != nil {
		return badRequest{fmt.Errorf("file field is required")}
	}
	defer file.Close()

	species := middleware.SanitizeString(req.FormValue("species"))
	if err := middleware.ValidateSpecies(species, r.audioSvc.SupportedSpecies()); err != nil {
		return badRequest{err}
	}
	filename := middleware.SanitizeString(header.Filename)
	if err := middleware.ValidateFilename(filename); err != nil {
		return badRequest{err}
	}

	// format dari field, fallback ke ekstensi filename
	format := strings.ToLower(req.FormValue("format"))
	if format == "" {
		if i := strings.LastIndex(filename, "."); i >= 0 {
			format = strings.ToLower(filename[i+1:])
		}
	}
	if err := middleware.ValidateFormat(format); err != nil {
		return badRequest{err}
	}

	var recordedAt time.Time
	if v := req.FormValue("recorded_at"); v != "" {
		recordedAt, err = time.Parse(time.RFC3339, v)
		if err != nil {
			return badRequest{fmt.Errorf("recorded_at must be RFC3339: %w", err)}
		}
	}

	payload, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}

	res, err := r.audioSvc.Upload(req.Context(), appaudio.UploadCommand{
		OwnerID:    middleware.GetOwnerFromContext(req.Context()),
		Species:    species,
		Format:     format,
		Filename:   filename,
		Location:   middleware.SanitizeString(req.FormValue("location")),
		RecordedAt: recordedAt,
		Payload:    payload,
	})
	if err != nil {
		return err
	}

	middleware.IncrementUploads()
	return writeJSON(w, http.StatusCreated, res)
}

// POST /v1/analysis/trigger/{artifactID}
func (r *Router) handleTrigger(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "artifactID")
	if err := middleware.ValidateArtifactID(id); err != nil {
		return badRequest{err}
	}

	owner := middleware.GetOwnerFromContext(req.Context())
	if _, err := r.audioSvc.Get(req.Context(), owner, artifacts.ArtifactID(id)); err != nil {
		return err
	}

	h, created, err := r.sched.Submit(req.Context(), artifacts.ArtifactID(id))
	if err != nil {
		return err
	}
	if created {
		middleware.IncrementJobs()
	}

	return writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":      h.JobID,
		"artifact_id": h.ArtifactID,
		"created":     created,
	})
}

// POST /v1/analysis/cancel/{artifactID}
func (r *Router) handleCancel(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "artifactID")
	if err := middleware.ValidateArtifactID(id); err != nil {
		return badRequest{err}
	}

	owner := middleware.GetOwnerFromContext(req.Context())
	if _, err := r.audioSvc.Get(req.Context(), owner, artifacts.ArtifactID(id)); err != nil {
		return err
	}

	cancelled := r.sched.Cancel(req.Context(), artifacts.ArtifactID(id))
	if !cancelled {
		return writeJSON(w, http.StatusConflict, map[string]any{
			"artifact_id": id,
			"cancelled":   false,
			"reason":      "no active job",
		})
	}
	return writeJSON(w, http.StatusAccepted, map[string]any{
		"artifact_id": id,
		"cancelled":   true,
	})
}

// GET /v1/analysis/result/{artifactID}
// 200 with the result view once the job is terminal; 202 while still running
// or when no job has been triggered yet.
func (r *Router) handleResult(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "artifactID")
	if err := middleware.ValidateArtifactID(id); err != nil {
		return badRequest{err}
	}

	owner := middleware.GetOwnerFromContext(req.Context())
	if _, err := r.audioSvc.Get(req.Context(), owner, artifacts.ArtifactID(id)); err != nil {
		return err
	}

	view, err := r.orch.GetResult(req.Context(), artifacts.ArtifactID(id))
	if err != nil {
		return err
	}
	if view == nil {
		return writeJSON(w, http.StatusAccepted, map[string]any{
			"artifact_id": id,
			"status":      "not_triggered",
		})
	}
	if !view.Ready() {
		return writeJSON(w, http.StatusAccepted, view)
	}
	return writeJSON(w, http.StatusOK, view)
}

// GET /v1/audio/latest?limit=
func (r *Router) handleLatest(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	limit = middleware.ValidateLimit(limit)

	owner := middleware.GetOwnerFromContext(req.Context())
	list, err := r.audioSvc.Latest(req.Context(), owner, limit)
	if err != nil {
		return err
	}
	if list == nil {
		list = []*artifacts.AudioArtifact{}
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/species
func (r *Router) handleSpecies(w http.ResponseWriter, req *http.Request) error {
	return writeJSON(w, http.StatusOK, map[string]any{
		"species": r.audioSvc.SupportedSpecies(),
	})
}

// GET /v1/audio/formats
func (r *Router) handleFormats(w http.ResponseWriter, req *http.Request) error {
	return writeJSON(w, http.StatusOK, map[string]any{
		"formats":        r.audioSvc.SupportedFormats(),
		"max_size_bytes": r.audioSvc.MaxSizeBytes,
	})
}
