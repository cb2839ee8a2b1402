package methods

import (
	"errors"
	"net/http"

	"github.com/noah-isme/backend-pos/internal/common"
)

// Handler exposes the payment-method listing endpoint.
type Handler struct {
	Catalog *Catalog
}

type methodView struct {
	Kind              string `json:"kind"`
	Label             string `json:"label"`
	RequiresReference bool   `json:"requiresReference"`
	Deferred          bool   `json:"deferred"`
}

// List returns the enabled tender methods in display order.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Catalog == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "method catalog not configured", nil)
		return
	}
	listed, err := h.Catalog.Available(r.Context())
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			common.JSONError(w, http.StatusServiceUnavailable, "METHODS_UNAVAILABLE", "payment methods are temporarily unavailable", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
		return
	}
	out := make([]methodView, 0, len(listed))
	for _, m := range listed {
		out = append(out, methodView{
			Kind:              string(m.Kind),
			Label:             m.Label,
			RequiresReference: m.Kind.RequiresReference(),
			Deferred:          m.Kind.Deferred(),
		})
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}
