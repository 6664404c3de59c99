package api

import (
	"errors"
	"net/http"

	"github.com/okian/admstats/internal/domain/view"
	"github.com/okian/admstats/pkg/logger"
)

// MainPageHandler serves the dashboard statistics.
type MainPageHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewMainPageHandler creates a new main page handler.
func NewMainPageHandler(deps Dependencies, log logger.Logger) *MainPageHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &MainPageHandler{deps: deps, logger: log}
}

// HandleMainPage handles GET /main_page requests.
func (h *MainPageHandler) HandleMainPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
		return
	}

	page, err := h.deps.MainPage(r.Context())
	switch {
	case errors.Is(err, view.ErrNoSnapshot):
		w.Header().Set("Retry-After", "60")
		writeError(w, http.StatusServiceUnavailable, "not_ready", ErrNotReady)
		return
	case err != nil:
		// Engine errors carry applicant IDs and raw labels; keep them in the log.
		h.logger.Error(r.Context(), "main page failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", ErrInternal)
		return
	}
	writeJSON(w, http.StatusOK, page)
}
