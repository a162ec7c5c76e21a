// Package httpapi is the thin admin surface over the runtime manager:
// listing, removing, importing and exporting projects, plus health,
// status and metrics endpoints.
package httpapi

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
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"solverd/internal/bundle"
	"solverd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Projects() []types.ProjectInfo
	Project(name string) (types.ProjectInfo, error)
	Remove(name string) error
	Import(data []byte) (types.ImportResponse, error)
	Export(name string, opts bundle.ExportOptions) ([]byte, error)
	Status() types.StatusResponse
	Ready() bool
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			MaxAge:         300,
		}))
	}
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	h := handlers{svc: svc}
	r.Route("/projects", func(r chi.Router) {
		r.Get("/", h.listProjects)
		r.Post("/import", h.importProject)
		r.Get("/{name}", h.getProject)
		r.Delete("/{name}", h.removeProject)
		r.Get("/{name}/export", h.exportProject)
	})
	r.Get("/status", h.status)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

type handlers struct{ svc Service }

// listProjects godoc
// @Summary  List projects
// @Tags     projects
// @Produce  json
// @Success  200 {object} types.ProjectsResponse
// @Router   /projects [get]
func (h handlers) listProjects(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, types.ProjectsResponse{Projects: h.svc.Projects()})
}

// getProject godoc
// @Summary  Describe a project
// @Tags     projects
// @Produce  json
// @Param    name path string true "project name"
// @Success  200 {object} types.ProjectInfo
// @Failure  404 {object} types.ErrorResponse
// @Router   /projects/{name} [get]
func (h handlers) getProject(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.Project(chi.URLParam(r, "name"))
	if err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, info)
}

// removeProject godoc
// @Summary  Unregister a project and release its sessions
// @Tags     projects
// @Param    name path string true "project name"
// @Success  204
// @Failure  404 {object} types.ErrorResponse
// @Router   /projects/{name} [delete]
func (h handlers) removeProject(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	name := chi.URLParam(r, "name")
	if err := h.svc.Remove(name); err != nil {
		status := statusFor(err)
		writeJSONError(w, status, err.Error())
		logEnd(r, "remove", name, status, start, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
	logEnd(r, "remove", name, http.StatusNoContent, start, nil)
}

// importProject godoc
// @Summary  Import a project bundle
// @Tags     projects
// @Accept   application/octet-stream
// @Produce  json
// @Success  201 {object} types.ImportResponse
// @Failure  400 {object} types.ErrorResponse
// @Failure  403 {object} types.ErrorResponse
// @Failure  409 {object} types.ErrorResponse
// @Failure  410 {object} types.ErrorResponse
// @Failure  413 {object} types.ErrorResponse
// @Failure  429 {object} types.ErrorResponse
// @Router   /projects/import [post]
func (h handlers) importProject(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if l := importLimiter; l != nil && !l.Allow() {
		rejectImport(rejectRate)
		writeJSONError(w, http.StatusTooManyRequests, "too many imports")
		logEnd(r, "import", "", http.StatusTooManyRequests, start, errors.New("rate limited"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			rejectImport(rejectTooLarge)
			writeJSONError(w, http.StatusRequestEntityTooLarge, "bundle too large")
			logEnd(r, "import", "", http.StatusRequestEntityTooLarge, start, err)
			return
		}
		writeJSONError(w, http.StatusBadRequest, "could not read body")
		logEnd(r, "import", "", http.StatusBadRequest, start, err)
		return
	}
	if len(data) == 0 {
		rejectImport(rejectEmpty)
		writeJSONError(w, http.StatusBadRequest, "empty body")
		return
	}
	importBytes.Observe(float64(len(data)))
	res, err := h.svc.Import(data)
	if err != nil {
		status := statusFor(err)
		writeJSONError(w, status, err.Error())
		logEnd(r, "import", "", status, start, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(res)
	logEnd(r, "import", res.Project, http.StatusCreated, start, nil)
}

// exportProject godoc
// @Summary  Export a project as an encrypted bundle
// @Tags     projects
// @Produce  application/octet-stream
// @Param    name     path  string true  "project name"
// @Param    ttl      query string false "lifetime, seconds or a Go duration such as 72h"
// @Param    rotating query bool   false "use the time-windowed key"
// @Success  200
// @Failure  404 {object} types.ErrorResponse
// @Failure  409 {object} types.ErrorResponse
// @Router   /projects/{name}/export [get]
func (h handlers) exportProject(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	name := chi.URLParam(r, "name")
	opts, err := exportOptions(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	data, err := h.svc.Export(name, opts)
	if err != nil {
		status := statusFor(err)
		writeJSONError(w, status, err.Error())
		logEnd(r, "export", name, status, start, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".crypto"))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
	logEnd(r, "export", name, http.StatusOK, start, nil)
}

func exportOptions(r *http.Request) (bundle.ExportOptions, error) {
	var opts bundle.ExportOptions
	q := r.URL.Query()
	if v := strings.TrimSpace(q.Get("ttl")); v != "" {
		ttl, err := ParseTTL(v)
		if err != nil {
			return opts, err
		}
		opts.TTL = ttl
	}
	if v := q.Get("rotating"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("invalid rotating value %q", v)
		}
		opts.Rotating = b
	}
	return opts, nil
}

// ParseTTL accepts plain seconds ("3600", "1.5") or a Go duration ("72h").
func ParseTTL(s string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("invalid ttl %q", s)
		}
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid ttl %q", s)
	}
	return d, nil
}

// status godoc
// @Summary  Runtime status
// @Tags     runtime
// @Produce  json
// @Success  200 {object} types.StatusResponse
// @Router   /status [get]
func (h handlers) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.Status())
}
