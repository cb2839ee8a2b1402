package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/common"
)

// Handler exposes the checkout session HTTP surface.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

// Routes mounts the checkout endpoints on the router.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/checkout/{orderId}", func(r chi.Router) {
		r.Post("/session", h.Open)
		r.Get("/session", h.View)
		r.Delete("/session", h.Cancel)
		r.Post("/tenders", h.AddTender)
		r.Delete("/tenders/{tenderId}", h.RemoveTender)
		r.Put("/tenders/{tenderId}/reference", h.SetReference)
		r.Post("/confirm", h.Confirm)
		r.Delete("/confirm", h.CancelConfirm)
		r.Post("/submit", h.Submit)
	})
}

type addTenderRequest struct {
	Method string `json:"method" validate:"required"`
	Amount int64  `json:"amount" validate:"required,gt=0"`
}

type setReferenceRequest struct {
	Reference string `json:"reference" validate:"required"`
}

// Open starts a checkout session for the order.
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}
	out, err := h.Svc.Open(r.Context(), orderID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": out})
}

// View returns the current session state.
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}
	out, err := h.Svc.View(r.Context(), orderID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// Cancel abandons the session.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Cancel(r.Context(), orderID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddTender applies a payment to the session.
func (h *Handler) AddTender(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}
	var payload addTenderRequest
	if !h.decode(w, r, &payload) {
		return
	}
	out, err := h.Svc.AddTender(r.Context(), orderID, payload.Method, payload.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// RemoveTender removes a payment by id.
func (h *Handler) RemoveTender(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}
	tenderID, err := uuid.Parse(chi.URLParam(r, "tenderId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid tender id", nil)
		return
	}
	out, err := h.Svc.RemoveTender(r.Context(), orderID, tenderID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// SetReference attaches a transaction reference to a tender.
func (h *Handler) SetReference(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}
	tenderID, err := uuid.Parse(chi.URLParam(r, "tenderId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid tender id", nil)
		return
	}
	var payload setReferenceRequest
	if !h.decode(w, r, &payload) {
		return
	}
	out, err := h.Svc.SetReference(r.Context(), orderID, tenderID, payload.Reference)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// Confirm acknowledges a multi-tender breakdown.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}
	out, err := h.Svc.Confirm(r.Context(), orderID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// CancelConfirm withdraws a prior confirmation.
func (h *Handler) CancelConfirm(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}
	out, err := h.Svc.CancelConfirm(r.Context(), orderID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// Submit finalises the checkout.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}
	out, err := h.Svc.Submit(r.Context(), orderID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

func (h *Handler) orderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "orderId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(dst); err != nil {
			common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "invalid payload", map[string]any{"error": err.Error()})
			return false
		}
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if err == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unknown error", nil)
		return
	}
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusBadRequest
		}
		code := appErr.Code
		if code == "" {
			code = "BAD_REQUEST"
		}
		common.JSONError(w, status, code, appErr.Message, appErr.Details)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
}
