package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/balance-table/internal/api"
	"github.com/eugenenazirov/balance-table/internal/balance"
	"github.com/eugenenazirov/balance-table/internal/cache"
	"github.com/eugenenazirov/balance-table/internal/storage"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()

	logger := zaptest.NewLogger(t)
	bounds := balance.Bounds{Low: 0, High: 15}
	store := storage.NewMemoryStorage()
	solver := balance.New(balance.WithBounds(bounds), balance.WithWorkers(2), balance.WithLogger(logger))
	handler := api.NewHandler(solver, store, bounds,
		api.WithCache(cache.NewMemoryCache(time.Minute)),
		api.WithHandlerLogger(logger),
	)
	return api.NewRouter(handler, logger)
}

func performRequest(t *testing.T, handler http.Handler, method, target string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

type lookup struct {
	Target       int   `json:"target"`
	Sum          int   `json:"sum"`
	Interpolated bool  `json:"interpolated"`
	Left         []int `json:"left"`
	Right        []int `json:"right"`
	Cached       bool  `json:"cached"`
}

func decodeLookup(t *testing.T, rec *httptest.ResponseRecorder) lookup {
	t.Helper()
	var resp lookup
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func total(units []int) int {
	s := 0
	for _, u := range units {
		s += u
	}
	return s
}

func TestIntegrationFlow(t *testing.T) {
	handler := newRouter(t)

	rec := performRequest(t, handler, http.MethodGet, "/api/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from health, got %d", rec.Code)
	}

	updatePayload := map[string]any{"inventory": []balance.Denomination{
		{Value: 2, Count: 1},
		{Value: 3, Count: 2},
		{Value: 6, Count: 2},
	}}
	payload, _ := json.Marshal(updatePayload)
	rec = performRequest(t, handler, http.MethodPut, "/api/inventory", payload, map[string]string{"Content-Type": "application/json"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from inventory update, got %d", rec.Code)
	}

	rec = performRequest(t, handler, http.MethodGet, "/api/lookup?target=7", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from lookup, got %d", rec.Code)
	}
	first := decodeLookup(t, rec)
	if first.Sum != 7 || first.Interpolated || first.Cached {
		t.Fatalf("unexpected first lookup %+v", first)
	}
	if total(first.Right)-total(first.Left) != 7 {
		t.Fatalf("placement does not balance: %+v", first)
	}

	rec = performRequest(t, handler, http.MethodGet, "/api/lookup?target=100", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from lookup, got %d", rec.Code)
	}
	far := decodeLookup(t, rec)
	if far.Sum != 16 || !far.Interpolated || !far.Cached {
		t.Fatalf("expected cached overshoot row 16, got %+v", far)
	}

	// A new inventory must not be answered from the previous table.
	payload, _ = json.Marshal(map[string]any{"inventory": []balance.Denomination{{Value: 5, Count: 1}}})
	rec = performRequest(t, handler, http.MethodPut, "/api/inventory", payload, map[string]string{"Content-Type": "application/json"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from inventory update, got %d", rec.Code)
	}
	rec = performRequest(t, handler, http.MethodGet, "/api/lookup?target=4", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from lookup, got %d", rec.Code)
	}
	after := decodeLookup(t, rec)
	if after.Sum != 5 || !after.Interpolated || after.Cached {
		t.Fatalf("unexpected lookup after update %+v", after)
	}
}
