package earnings

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/promptforge/marketplace-api/internal/middleware"
	"github.com/promptforge/marketplace-api/internal/pkg/errorhandler"
	"github.com/promptforge/marketplace-api/internal/pkg/response"
	"github.com/promptforge/marketplace-api/internal/pkg/validator"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Summary returns the seller's earnings
// GET /sellers/{id}/earnings
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := h.seller(w, r)
	if !ok {
		return
	}

	summary, err := h.service.Summarize(r.Context(), sellerID)
	if err != nil {
		errorhandler.InternalError(r.Context(), w, err)
		return
	}

	response.OK(w, summary)
}

// Statement exports a CSV statement and returns its download link
// POST /sellers/{id}/statements
func (h *Handler) Statement(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := h.seller(w, r)
	if !ok {
		return
	}

	var req StatementRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		errorhandler.ValidationFailed(r.Context(), w, errs)
		return
	}

	stmt, err := h.service.ExportStatement(r.Context(), sellerID, req.From, req.To)
	switch {
	case errors.Is(err, ErrInvalidPeriod):
		response.Unprocessable(w, "INVALID_PERIOD", "period must be at most one year and from must precede to")
	case errors.Is(err, ErrStorageUnavailable):
		response.ServiceUnavailable(w, err.Error())
	case err != nil:
		errorhandler.InternalError(r.Context(), w, err)
	default:
		response.Created(w, stmt)
	}
}

func (h *Handler) seller(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	sellerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid seller id")
		return uuid.Nil, false
	}
	if !middleware.CanAccessUser(r.Context(), sellerID) {
		response.Forbidden(w, "cannot access another seller's earnings")
		return uuid.Nil, false
	}
	return sellerID, true
}
