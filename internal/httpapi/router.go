package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/spigell/donation-matcher/internal/match"
)

const (
	defaultMaxBodyBytes = 1 << 20
	// ErrorKindHeader carries the pipeline error kind of failed requests.
	ErrorKindHeader = "X-Match-Error"
)

// Matcher is the part of match.Service the handlers need.
type Matcher interface {
	GetBest(ctx context.Context, payload []byte) (*match.BestMatch, error)
}

type Handler struct {
	matcher      Matcher
	logger       *zap.Logger
	maxBodyBytes int64
}

func NewHandler(matcher Matcher, logger *zap.Logger, maxBodyBytes int64) *Handler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{matcher: matcher, logger: logger, maxBodyBytes: maxBodyBytes}
}

// Router builds the chi router with all endpoints and middlewares.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, accessLog(h.logger), middleware.Recoverer)
	r.Post("/match/getBest", h.getBest)
	r.Get("/health", h.health)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func (h *Handler) getBest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, match.KindValidation, "request body is too large")
			return
		}
		writeError(w, http.StatusBadRequest, match.KindValidation, "reading request body: "+err.Error())
		return
	}

	best, err := h.matcher.GetBest(r.Context(), body)
	if err != nil {
		kind := match.KindOf(err)
		status := http.StatusInternalServerError
		if kind == match.KindValidation {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, kind, match.ErrorBody(err))
		return
	}

	writeJSON(w, http.StatusOK, "", best)
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, "", true)
}

func writeError(w http.ResponseWriter, status int, kind match.Kind, message string) {
	writeJSON(w, status, kind, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, kind match.Kind, v any) {
	w.Header().Set("Content-Type", "application/json")
	if kind != "" {
		w.Header().Set(ErrorKindHeader, string(kind))
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func accessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
