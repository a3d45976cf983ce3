package handler

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/darkodi/shorturl/internal/errors"
	"github.com/darkodi/shorturl/internal/idgen"
	"github.com/darkodi/shorturl/internal/logger"
	"github.com/darkodi/shorturl/internal/model"
	"github.com/darkodi/shorturl/internal/service"
)

const healthTimeout = 2 * time.Second

// ReservedIDs are fixed route segments that must never be handed out as ids
var ReservedIDs = []string{"health", "getShortUrl"}

// URLHandler handles HTTP requests for URL operations
type URLHandler struct {
	service *service.URLService
	log     *logger.Logger
}

// NewURLHandler creates a new handler instance
func NewURLHandler(svc *service.URLService, log *logger.Logger) *URLHandler {
	return &URLHandler{
		service: svc,
		log:     log,
	}
}

// ============ HANDLERS ============

// HandleShorten creates (or returns the existing) short URL
// POST /getShortUrl
func (h *URLHandler) HandleShorten(w http.ResponseWriter, r *http.Request) {
	var req model.ShortenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.InvalidJSON(err.Error()).WriteJSON(w)
		return
	}

	shortURL, err := h.service.Shorten(r.Context(), req.LongURL)
	if err != nil {
		switch {
		case stderrors.Is(err, service.ErrInvalidURL):
			errors.InvalidURL(err.Error()).WriteJSON(w)
		case stderrors.Is(err, service.ErrPersistence):
			errors.DatabaseError(err.Error()).WriteJSON(w)
		default:
			errors.Internal(err.Error()).WriteJSON(w)
		}
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(shortURL))
}

// HandleRedirect redirects to the original URL and counts the visit
// GET /{id}
func (h *URLHandler) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	// Ids outside the generator's alphabet can never exist
	if !idgen.IsValid(id) {
		errors.URLNotFound(id).WriteJSON(w)
		return
	}

	originalURL, err := h.service.Resolve(r.Context(), id)
	if err != nil {
		h.writeLookupError(w, id, err)
		return
	}

	// Temporary so clients come back and every visit is counted
	http.Redirect(w, r, originalURL, http.StatusTemporaryRedirect)
}

// HandleStats returns the url and visit count for an id
// GET /{id}/stats
func (h *URLHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if !idgen.IsValid(id) {
		errors.URLNotFound(id).WriteJSON(w)
		return
	}

	stats, err := h.service.Stats(r.Context(), id)
	if err != nil {
		h.writeLookupError(w, id, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// HandleHealth returns service health status
// GET /health
func (h *URLHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := h.service.Ping(ctx); err != nil {
		h.log.Warn("health check failed", "error", err.Error())
		errors.Unavailable(err.Error()).WriteJSON(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "healthy"}`))
}

func (h *URLHandler) writeLookupError(w http.ResponseWriter, id string, err error) {
	switch {
	case stderrors.Is(err, service.ErrURLNotFound):
		errors.URLNotFound(id).WriteJSON(w)
	case stderrors.Is(err, service.ErrPersistence):
		errors.DatabaseError(err.Error()).WriteJSON(w)
	default:
		errors.Internal("").WriteJSON(w)
	}
}

// ============ ROUTER SETUP ============

// SetupRoutes configures all HTTP routes
func (h *URLHandler) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /getShortUrl", h.HandleShorten)
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("GET /{id}", h.HandleRedirect)
	mux.HandleFunc("GET /{id}/stats", h.HandleStats)

	return mux
}
