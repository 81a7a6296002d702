package leaderboard

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ftwrp/companion/internal/platform/httpx"
)

// Handler serves the public ranking boards.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the leaderboard endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.overview)
	r.Get("/{kind}", h.board)
}

func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.service.Overview(r.Context(), h.limit(r))
	if err != nil {
		h.logger.Error("load leaderboard overview", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, overview)
}

func (h *Handler) board(w http.ResponseWriter, r *http.Request) {
	kind := Kind(chi.URLParam(r, "kind"))
	if !ValidKind(kind) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown leaderboard")
		return
	}
	board, err := h.service.Board(r.Context(), kind, h.limit(r))
	if err != nil {
		h.logger.Error("load leaderboard", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, board)
}

func (h *Handler) limit(r *http.Request) int {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return limit
}
