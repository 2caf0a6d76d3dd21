package license

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/promptforge/marketplace-api/internal/middleware"
	"github.com/promptforge/marketplace-api/internal/pkg/errorhandler"
	"github.com/promptforge/marketplace-api/internal/pkg/response"
)

type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// Mine lists the caller's licenses
// GET /licenses
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	items, err := h.store.ListByBuyer(r.Context(), userID)
	if err != nil {
		errorhandler.InternalError(r.Context(), w, err)
		return
	}
	response.OK(w, items)
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/", h.Mine)
	return r
}
