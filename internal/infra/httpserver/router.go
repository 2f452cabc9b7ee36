package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/ideaforge-app/ideaforge-api/internal/application/analyze"
	domai "github.com/ideaforge-app/ideaforge-api/internal/domain/ai"
	"github.com/ideaforge-app/ideaforge-api/internal/domain/analysis"
	"github.com/ideaforge-app/ideaforge-api/internal/domain/keys"
	"github.com/ideaforge-app/ideaforge-api/internal/middleware"
)

// Local-dev origins are always allowed in addition to the configured list.
var devOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

type Config struct {
	AllowedOrigins []string
	Debug          bool
	Checkers       map[string]middleware.HealthChecker
	RateCapacity   int // analyze requests per burst; 0 disables rate limiting
	RateRefill     int // tokens per second
	Log            *zap.Logger
}

type Router struct {
	svc   *analyze.Service
	debug bool
	log   *zap.Logger
}

func NewRouter(svc *analyze.Service, cfg Config) http.Handler {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	r := &Router{svc: svc, debug: cfg.Debug, log: log}

	mux := chi.NewRouter()

	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: append(append([]string{}, cfg.AllowedOrigins...), devOrigins...),
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	mux.Use(middleware.Logging(log))
	mux.Use(middleware.MetricsMiddleware)

	mux.Get("/health", middleware.HealthHandler(cfg.Checkers))
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Post("/login", r.wrap(r.handleLogin))
	mux.Get("/analyses", r.wrap(r.handleHistory))
	mux.Delete("/analyses", r.wrap(r.handleDelete))

	if cfg.RateCapacity > 0 {
		mux.With(middleware.RateLimitMiddleware(cfg.RateCapacity, cfg.RateRefill)).
			Post("/analyze", r.wrap(r.handleAnalyze))
	} else {
		mux.Post("/analyze", r.wrap(r.handleAnalyze))
	}

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// wrap owns the error-to-status mapping at the boundary. No stack traces or
// internal detail reach the client unless Debug is set.
func (rt *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}

		var vErr *analyze.ValidationError
		var pErr *analysis.ParseError

		switch {
		case errors.As(err, &vErr):
			rt.writeError(w, http.StatusBadRequest, vErr.Msg, nil)
		case errors.Is(err, keys.ErrInvalidKey):
			rt.writeError(w, http.StatusUnauthorized, "invalid key", nil)
		case errors.Is(err, analysis.ErrForbidden):
			rt.writeError(w, http.StatusForbidden, "analysis belongs to another key", nil)
		case errors.Is(err, analysis.ErrNotFound):
			rt.writeError(w, http.StatusNotFound, "analysis not found", nil)
		case errors.As(err, &pErr):
			middleware.IncrementParseFailures()
			rt.log.Error("model output unparsable", zap.Error(err))
			rt.writeError(w, http.StatusInternalServerError, "analysis generation returned malformed output", err)
		case errors.Is(err, domai.ErrUpstream), errors.Is(err, domai.ErrEmptyResponse):
			middleware.IncrementUpstreamFailures()
			rt.log.Error("generation endpoint failed", zap.Error(err))
			rt.writeError(w, http.StatusInternalServerError, "analysis generation failed", err)
		default:
			rt.log.Error("request failed", zap.Error(err))
			rt.writeError(w, http.StatusInternalServerError, "internal server error", err)
		}
	}
}

func (rt *Router) writeError(w http.ResponseWriter, status int, msg string, cause error) {
	body := map[string]any{"error": msg}
	if rt.debug && cause != nil {
		body["detail"] = cause.Error()
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// POST /login
// Body: {"key": "<code>"}
func (rt *Router) handleLogin(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return &analyze.ValidationError{Msg: "invalid request body"}
	}

	key, err := rt.svc.Login(req.Context(), body.Key)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, map[string]any{"valid": true, "keyId": key.ID})
	return nil
}

// POST /analyze
// Body: {"key": "<code>", "idea": "<text>"}
// Responds with the normalized display payload.
func (rt *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Key  string `json:"key"`
		Idea string `json:"idea"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return &analyze.ValidationError{Msg: "invalid request body"}
	}
	if err := middleware.ValidateKeyCode(body.Key); err != nil {
		return &analyze.ValidationError{Msg: err.Error()}
	}
	body.Idea = middleware.SanitizeString(body.Idea)
	if err := middleware.ValidateIdea(body.Idea); err != nil {
		return &analyze.ValidationError{Msg: err.Error()}
	}

	middleware.IncrementAnalyses()
	rec, err := rt.svc.Analyze(req.Context(), body.Key, body.Idea)
	if err != nil {
		middleware.IncrementAnalysesFailed()
		return err
	}

	writeJSON(w, http.StatusOK, rec.Data)
	return nil
}

// GET /analyses?key=<code>&limit=<n>
func (rt *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	code := req.URL.Query().Get("key")
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := rt.svc.History(req.Context(), code, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, list)
	return nil
}

// DELETE /analyses?key=<code>&id=<record id>
func (rt *Router) handleDelete(w http.ResponseWriter, req *http.Request) error {
	code := req.URL.Query().Get("key")
	id := req.URL.Query().Get("id")

	if err := rt.svc.Delete(req.Context(), code, analysis.RecordID(id)); err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
	return nil
}
