// Package http provides the REST surface over a schema registry.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/artpar/objectschema/adapters/metrics"
	"github.com/artpar/objectschema/core/deps"
	"github.com/artpar/objectschema/core/registry"
	"github.com/artpar/objectschema/core/schema"
	"github.com/artpar/objectschema/core/validation"
	"github.com/artpar/objectschema/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 10 << 20

// ErrorResponseBody is the body of every non-validation error response.
type ErrorResponseBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes an error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// VersionResponse represents the version endpoint response.
type VersionResponse struct {
	Version string `json:"version"`
	Service string `json:"service"`
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status string `json:"status"`
}

// SchemaResponse summarizes a registered schema.
type SchemaResponse struct {
	Namespace   string    `json:"namespace"`
	Version     string    `json:"version"`
	Description string    `json:"description"`
	Types       []string  `json:"types"`
	Digest      string    `json:"digest"`
	UpdatedOn   time.Time `json:"updatedOn"`
}

// TypeResponse is a single type definition.
type TypeResponse struct {
	Ref        schema.TypeRef `json:"ref"`
	Properties []string       `json:"properties"`
	Definition schema.TypeDef `json:"definition"`
}

// DependenciesResponse lists the type references of a type.
type DependenciesResponse struct {
	Ref          schema.TypeRef   `json:"ref"`
	Dependencies []schema.TypeRef `json:"dependencies"`
	Unresolved   []schema.TypeRef `json:"unresolved"`
}

// ValidateRequest asks for value to be checked against a registered type.
type ValidateRequest struct {
	Namespace string `json:"namespace"`
	Version   string `json:"version"`
	Type      string `json:"type"`
	Value     any    `json:"value"`
}

// ValidateResponse is the outcome of a validation.
type ValidateResponse struct {
	Valid  bool            `json:"valid"`
	Errors []ViolationBody `json:"errors,omitempty"`
}

// ViolationBody describes one failed constraint.
type ViolationBody struct {
	Path       string `json:"path"`
	Constraint string `json:"constraint"`
	Message    string `json:"message"`
	Value      any    `json:"value,omitempty"`
}

// Handler serves the registry over HTTP.
type Handler struct {
	registry *registry.Registry
	logger   zerolog.Logger
	version  string
	opts     []schema.Option
}

// NewHandler creates a handler for reg.
func NewHandler(reg *registry.Registry, logger zerolog.Logger) *Handler {
	return &Handler{registry: reg, logger: logger, version: "dev"}
}

// SetVersion sets the version reported by /version.
func (h *Handler) SetVersion(v string) {
	h.version = v
}

// SetSchemaOptions sets the options used to build schemas posted to /schemas.
func (h *Handler) SetSchemaOptions(opts ...schema.Option) {
	h.opts = opts
}

// Health returns a simple liveness check.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Version returns the service version.
func (h *Handler) Version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: h.version, Service: "objectschema"})
}

// ListSchemas returns every registered schema, by namespace then version.
func (h *Handler) ListSchemas(w http.ResponseWriter, r *http.Request) {
	infos, err := h.registry.List()
	if errors.Is(err, registry.ErrNotSupported) {
		writeError(w, http.StatusNotImplemented, "not_supported", err.Error())
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("list schemas failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list schemas")
		return
	}

	resp := make([]SchemaResponse, 0, len(infos))
	for _, info := range infos {
		resp = append(resp, toSchemaResponse(info))
	}
	writeJSON(w, http.StatusOK, resp)
}

// RegisterSchema registers a schema document posted as JSON.
func (h *Handler) RegisterSchema(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "failed to read request body")
		return
	}

	sch, err := schema.ParseJSON(body, h.opts...)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_schema", err.Error())
		return
	}
	if err := h.registry.RegisterSchema(sch); err != nil {
		h.logger.Error().Err(err).Str("schema", sch.Key()).Msg("register schema failed")
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	info, err := registry.Describe(sch)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	if refs := deps.ExtractSchema(sch); len(refs) > 0 {
		if missing, err := deps.Unresolved(h.registry.Store(), refs); err == nil && len(missing) > 0 {
			h.logger.Warn().Str("schema", sch.Key()).Int("unresolved", len(missing)).Msg("schema references unregistered types")
		}
	}

	w.Header().Set("ETag", strconv.Quote(info.Digest))
	writeJSON(w, http.StatusCreated, toSchemaResponse(info))
}

// GetSchema returns a registered schema document. It honors If-None-Match
// against the document digest.
func (h *Handler) GetSchema(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	namespace, version := q.Get("namespace"), q.Get("version")
	latest := version == "" || version == "latest"
	if !schema.ValidNamespace(namespace) || !latest && !schema.ValidVersion(version) {
		writeError(w, http.StatusBadRequest, "invalid_lookup_key", "namespace and version are required")
		return
	}

	var (
		sch *schema.ObjectSchema
		err error
	)
	if latest {
		sch, err = h.registry.Latest(namespace)
		version = "latest"
	} else {
		sch, err = h.registry.Schema(namespace, version)
	}
	if errors.Is(err, registry.ErrNotSupported) {
		writeError(w, http.StatusNotImplemented, "not_supported", err.Error())
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("get schema failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load schema")
		return
	}
	if sch == nil {
		writeError(w, http.StatusNotFound, "not_found", "schema "+schema.SchemaKey(namespace, version)+" is not registered")
		return
	}

	digest, err := schema.Digest(sch)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	etag := strconv.Quote(digest)
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	if strings.Contains(r.Header.Get("Accept"), "yaml") {
		data, err := schema.MarshalYAML(sch)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
		return
	}
	writeJSON(w, http.StatusOK, sch.Definition())
}

// RemoveSchema unregisters one schema version.
func (h *Handler) RemoveSchema(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	namespace, version := q.Get("namespace"), q.Get("version")
	if !schema.ValidNamespace(namespace) || !schema.ValidVersion(version) {
		writeError(w, http.StatusBadRequest, "invalid_lookup_key", "namespace and version are required")
		return
	}

	removed, err := h.registry.RemoveSchema(namespace, version)
	if errors.Is(err, registry.ErrNotSupported) {
		writeError(w, http.StatusNotImplemented, "not_supported", err.Error())
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("remove schema failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to remove schema")
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "not_found", "schema "+schema.SchemaKey(namespace, version)+" is not registered")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetType returns one type definition.
func (h *Handler) GetType(w http.ResponseWriter, r *http.Request) {
	ref, t, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, TypeResponse{Ref: ref, Properties: t.PropertyNames(), Definition: t.Definition()})
}

// GetDependencies lists the types a type references, and which of them are
// not registered.
func (h *Handler) GetDependencies(w http.ResponseWriter, r *http.Request) {
	ref, t, ok := h.lookup(w, r)
	if !ok {
		return
	}

	refs := deps.Extract(t)
	missing, err := deps.Unresolved(h.registry.Store(), refs)
	if err != nil {
		h.logger.Error().Err(err).Msg("resolve dependencies failed")
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, DependenciesResponse{
		Ref:          ref,
		Dependencies: nonNil(refs),
		Unresolved:   nonNil(missing),
	})
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (schema.TypeRef, *schema.Type, bool) {
	q := r.URL.Query()
	ref := schema.TypeRef{Namespace: q.Get("namespace"), Version: q.Get("version"), Type: q.Get("type")}

	t, err := h.registry.GetSchemaType(ref)
	if errors.Is(err, registry.ErrInvalidLookupKey) {
		writeError(w, http.StatusBadRequest, "invalid_lookup_key", err.Error())
		return ref, nil, false
	}
	if err != nil {
		h.logger.Error().Err(err).Str("ref", ref.String()).Msg("type lookup failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "type lookup failed")
		return ref, nil, false
	}
	if t == nil {
		writeError(w, http.StatusNotFound, "not_found", "type "+ref.String()+" is not registered")
		return ref, nil, false
	}
	return ref, t, true
}

// Validate checks a value against a registered type.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body: "+err.Error())
		return
	}

	ref := schema.TypeRef{Namespace: req.Namespace, Version: req.Version, Type: req.Type}
	err := h.registry.Validate(ref, req.Value)

	var ve *validation.ValidationError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, ValidateResponse{Valid: true})
	case errors.As(err, &ve):
		resp := ValidateResponse{Errors: make([]ViolationBody, 0, len(ve.Violations))}
		for _, v := range ve.Violations {
			resp.Errors = append(resp.Errors, ViolationBody{
				Path:       v.Path,
				Constraint: v.Constraint,
				Message:    v.Message,
				Value:      v.Value,
			})
		}
		writeJSON(w, http.StatusUnprocessableEntity, resp)
	case errors.Is(err, registry.ErrInvalidLookupKey):
		writeError(w, http.StatusBadRequest, "invalid_lookup_key", err.Error())
	case errors.Is(err, registry.ErrTypeNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		h.logger.Error().Err(err).Str("ref", ref.String()).Msg("validation failed")
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func toSchemaResponse(info ports.SchemaInfo) SchemaResponse {
	return SchemaResponse{
		Namespace:   info.Namespace,
		Version:     info.Version,
		Description: info.Description,
		Types:       nonNil(info.Types),
		Digest:      info.Digest,
		UpdatedOn:   info.UpdatedOn,
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponseBody{Error: ErrorDetail{Code: code, Message: message}})
}

// RouterConfig holds optional configuration for the router.
type RouterConfig struct {
	Metrics        *metrics.Collector
	MetricsHandler http.Handler // defaults to promhttp.Handler()
	MetricsPath    string       // empty disables the metrics endpoint
	Timeout        time.Duration
}

// NewRouter creates the main HTTP router.
func NewRouter(h *Handler, logger zerolog.Logger) chi.Router {
	return NewRouterWithConfig(h, logger, RouterConfig{})
}

// NewRouterWithConfig creates the main HTTP router with optional config.
func NewRouterWithConfig(h *Handler, logger zerolog.Logger, cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(logger, cfg.MetricsPath))
	r.Use(middleware.Recoverer)
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	r.Use(middleware.Timeout(timeout))

	if cfg.Metrics != nil {
		r.Use(NewMetricsMiddleware(cfg.Metrics, cfg.MetricsPath))
	}

	r.Get("/health", h.Health)
	r.Get("/version", h.Version)

	if cfg.MetricsPath != "" {
		handler := cfg.MetricsHandler
		if handler == nil {
			handler = promhttp.Handler()
		}
		r.Handle(cfg.MetricsPath, handler)
	}

	r.Route("/schemas", func(r chi.Router) {
		r.Get("/", h.ListSchemas)
		r.Post("/", h.RegisterSchema)
		r.Get("/document", h.GetSchema)
		r.Delete("/document", h.RemoveSchema)
	})
	r.Route("/types", func(r chi.Router) {
		r.Get("/", h.GetType)
		r.Get("/dependencies", h.GetDependencies)
	})
	r.Post("/validate", h.Validate)

	return r
}

// NewMetricsMiddleware creates middleware that records request metrics.
func NewMetricsMiddleware(m *metrics.Collector, metricsPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip metrics for internal endpoints
			if skipInstrumentation(r.URL.Path, metricsPath) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			m.ObserveRequest(r.Method, route, statusLabel(ww.Status()), time.Since(start))
		})
	}
}

// statusLabel returns a string label for the status code.
func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "other"
	}
}

func skipInstrumentation(path, metricsPath string) bool {
	return strings.HasPrefix(path, "/health") || (metricsPath != "" && path == metricsPath)
}

// NewLoggingMiddleware creates middleware that logs HTTP requests.
func NewLoggingMiddleware(logger zerolog.Logger, metricsPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			// Skip logging for health checks and metrics
			if skipInstrumentation(r.URL.Path, metricsPath) {
				return
			}

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}

// Addr formats a listen address.
func Addr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
