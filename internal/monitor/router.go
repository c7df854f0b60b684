package monitor

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/scry-feeder/internal/domain"
	"github.com/phrazzld/scry-feeder/internal/redact"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type handler struct {
	monitor *Monitor
	logger  *slog.Logger
}

// NewRouter serves the monitor views as JSON:
//
//	GET /healthz
//	GET /status
//	GET /gaps
//	GET /history?type=vocabulary|grammar&limit=N
//	GET /config
func NewRouter(m *Monitor, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{monitor: m, logger: logger.With(slog.String("component", "monitor_http"))}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.health)
	r.Get("/status", h.status)
	r.Get("/gaps", h.gaps)
	r.Get("/history", h.history)
	r.Get("/config", h.config)

	return r
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, r, http.StatusOK, h.monitor.Status())
}

func (h *handler) gaps(w http.ResponseWriter, r *http.Request) {
	report, err := h.monitor.Gaps(r.Context())
	if errors.Is(err, ErrNoAnalyzer) {
		h.respondError(w, r, http.StatusServiceUnavailable, err)
		return
	}
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, report)
}

func (h *handler) history(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var kind domain.ContentType
	if raw := query.Get("type"); raw != "" {
		parsed, err := domain.ParseContentType(raw)
		if err != nil {
			h.respondError(w, r, http.StatusBadRequest, err)
			return
		}
		kind = parsed
	}

	limit := DefaultHistoryLimit
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.respondError(w, r, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}

	h.respondJSON(w, r, http.StatusOK, h.monitor.History(kind, limit))
}

func (h *handler) config(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, r, http.StatusOK, h.monitor.Config())
}

func (h *handler) respondJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to encode JSON response",
			slog.String("path", r.URL.Path),
			slog.String("error", redact.Error(err)))
	}
}

// respondError writes a redacted error body. 5xx responses are logged at error level.
func (h *handler) respondError(w http.ResponseWriter, r *http.Request, status int, err error) {
	requestID := middleware.GetReqID(r.Context())
	message := redact.Error(err)

	level := slog.LevelDebug
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "request failed",
		slog.Int("status_code", status),
		slog.String("path", r.URL.Path),
		slog.String("request_id", requestID),
		slog.String("error", message))

	h.respondJSON(w, r, status, ErrorResponse{Error: message, RequestID: requestID})
}
