package checkout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/pricing"
	"github.com/noah-isme/backend-pos/internal/store"
)

func newTestRouter(svc *Service) http.Handler {
	h := &Handler{Svc: svc, Validate: validator.New()}
	r := chi.NewRouter()
	r.Route("/api/v1", h.Routes)
	return r
}

func decodeData(t *testing.T, body string) map[string]any {
	t.Helper()
	var out struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	return out.Data
}

func TestHandlerCheckoutFlow(t *testing.T) {
	order := openOrder(pricing.Line{Qty: 1, UnitPrice: 150_000, Subtotal: 150_000})
	svc, _, _, _ := newTestService(order)
	router := newTestRouter(svc)
	base := "/api/v1/checkout/" + order.ID.String()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, base+"/session", nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	data := decodeData(t, rec.Body.String())
	require.Equal(t, "empty", data["state"])

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, base+"/tenders",
		strings.NewReader(`{"method":"CASH","amount":200000}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	data = decodeData(t, rec.Body.String())
	require.Equal(t, "satisfied", data["state"])
	require.Equal(t, float64(50_000), data["change"])

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, base+"/submit", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	data = decodeData(t, rec.Body.String())
	require.Equal(t, store.OrderStatusPaid, data["status"])
}

func TestHandlerValidatesTenderPayload(t *testing.T) {
	order := openOrder(pricing.Line{Qty: 1, UnitPrice: 150_000, Subtotal: 150_000})
	svc, _, _, _ := newTestService(order)
	_, err := svc.Open(context.Background(), order.ID)
	require.NoError(t, err)
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost,
		"/api/v1/checkout/"+order.ID.String()+"/tenders",
		strings.NewReader(`{"method":"CASH","amount":-5}`)))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandlerRejectsBadOrderID(t *testing.T) {
	svc, _, _, _ := newTestService()
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/checkout/not-a-uuid/session", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerSessionNotFound(t *testing.T) {
	order := openOrder(pricing.Line{Qty: 1, UnitPrice: 150_000, Subtotal: 150_000})
	svc, _, _, _ := newTestService(order)
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/api/v1/checkout/"+order.ID.String()+"/session", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
