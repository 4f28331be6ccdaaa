package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/eugenenazirov/balance-table/internal/balance"
	"github.com/eugenenazirov/balance-table/internal/cache"
	"github.com/eugenenazirov/balance-table/internal/storage"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// Handler wires solver, storage and cache dependencies into HTTP handlers.
type Handler struct {
	solver  balance.Solver
	storage storage.Storage
	bounds  balance.Bounds
	cache   cache.Cache
	logger  *zap.Logger

	// inflight collapses concurrent solves of the same inventory and range.
	inflight singleflight.Group

	clock func() time.Time

	mu                 sync.RWMutex
	inventoryUpdatedAt time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithCache stores solved tables so unchanged inventories are solved once.
func WithCache(c cache.Cache) HandlerOption {
	return func(h *Handler) {
		h.cache = c
	}
}

// WithHandlerLogger sets the logger used for cache failures.
func WithHandlerLogger(logger *zap.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHandler constructs a Handler. bounds must match the range solver was built with.
func NewHandler(solver balance.Solver, store storage.Storage, bounds balance.Bounds, opts ...HandlerOption) *Handler {
	h := &Handler{
		solver:  solver,
		storage: store,
		bounds:  bounds,
		logger:  zap.NewNop(),
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.inventoryUpdatedAt = h.clock()
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetInventory(w http.ResponseWriter, r *http.Request) {
	_ = r
	inv, err := h.storage.GetInventory()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.inventoryResponse(inv, ""))
}

func (h *Handler) handlePutInventory(w http.ResponseWriter, r *http.Request) {
	var req inventoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	// An empty list is a valid inventory that only balances at zero; a
	// missing field is not.
	if req.Inventory == nil {
		writeError(w, http.StatusBadRequest, "Invalid inventory", "inventory field is required")
		return
	}

	if err := h.storage.SetInventory(*req.Inventory); err != nil {
		if errors.Is(err, storage.ErrInvalidInventory) {
			writeError(w, http.StatusBadRequest, "Invalid inventory", err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}

	h.markInventoryUpdated()

	inv, err := h.storage.GetInventory()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.inventoryResponse(inv, "Inventory updated successfully"))
}

func (h *Handler) handleLookup(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("target"))
	target, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "target must be an integer")
		return
	}

	start := time.Now()
	table, cached, err := h.table(r.Context())
	if err != nil {
		writeSolveError(w, err)
		return
	}

	match, ok := table.Match(target)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "No achievable sum", "the inventory cannot reach any mass near the configured range")
		return
	}

	resp := lookupResponse{
		Target:            target,
		Sum:               match.Row.Sum,
		Interpolated:      match.Interpolated,
		Left:              match.Row.Left,
		Right:             match.Row.Right,
		Cached:            cached,
		CalculationTimeMs: time.Since(start).Milliseconds(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleTable(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	table, cached, err := h.table(r.Context())
	if err != nil {
		writeSolveError(w, err)
		return
	}

	resp := tableResponse{
		MinTarget:         h.bounds.Low,
		MaxTarget:         h.bounds.High,
		Rows:              table.Rows(),
		Cached:            cached,
		CalculationTimeMs: time.Since(start).Milliseconds(),
	}
	writeJSON(w, http.StatusOK, resp)
}

type solvedTable struct {
	table  *balance.Table
	cached bool
}

// table returns the solved table for the current inventory. Concurrent
// requests for the same key share one cache lookup and at most one solve;
// they also share the context of the request that started it.
func (h *Handler) table(ctx context.Context) (*balance.Table, bool, error) {
	inv, err := h.storage.GetInventory()
	if err != nil {
		return nil, false, err
	}

	key := cache.Key(inv, h.bounds)
	v, err, shared := h.inflight.Do(key, func() (any, error) {
		return h.solve(ctx, key, inv)
	})
	if err != nil {
		return nil, false, err
	}
	if shared {
		h.logger.Debug("joined in-flight solve", zap.String("key", key))
	}
	res := v.(solvedTable)
	return res.table, res.cached, nil
}

// solve consults the cache before running the solver. Cache failures are
// logged and treated as misses.
func (h *Handler) solve(ctx context.Context, key string, inv []balance.Denomination) (solvedTable, error) {
	if h.cache != nil {
		table, ok, err := h.cache.Get(ctx, key)
		if err != nil {
			h.logger.Warn("table cache lookup failed", zap.String("key", key), zap.Error(err))
		}
		if ok {
			return solvedTable{table: table, cached: true}, nil
		}
	}

	table, err := h.solver.Solve(ctx, inv)
	if err != nil {
		return solvedTable{}, err
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, key, table); err != nil {
			h.logger.Warn("table cache store failed", zap.String("key", key), zap.Error(err))
		}
	}
	return solvedTable{table: table}, nil
}

func (h *Handler) inventoryResponse(inv []balance.Denomination, message string) inventoryResponse {
	return inventoryResponse{
		Inventory:    inv,
		Combinations: balance.CombinationCount(inv),
		UpdatedAt:    h.currentInventoryUpdatedAt(),
		Message:      message,
	}
}

func (h *Handler) currentInventoryUpdatedAt() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.inventoryUpdatedAt
}

func (h *Handler) markInventoryUpdated() {
	h.mu.Lock()
	h.inventoryUpdatedAt = h.clock()
	h.mu.Unlock()
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type inventoryRequest struct {
	Inventory *[]balance.Denomination `json:"inventory"`
}

type inventoryResponse struct {
	Inventory    []balance.Denomination `json:"inventory"`
	Combinations uint64                 `json:"combinations"`
	UpdatedAt    time.Time              `json:"updatedAt"`
	Message      string                 `json:"message,omitempty"`
}

type lookupResponse struct {
	Target            int   `json:"target"`
	Sum               int   `json:"sum"`
	Interpolated      bool  `json:"interpolated"`
	Left              []int `json:"left"`
	Right             []int `json:"right"`
	Cached            bool  `json:"cached"`
	CalculationTimeMs int64 `json:"calculationTimeMs"`
}

type tableResponse struct {
	MinTarget         int           `json:"minTarget"`
	MaxTarget         int           `json:"maxTarget"`
	Rows              []balance.Row `json:"rows"`
	Cached            bool          `json:"cached"`
	CalculationTimeMs int64         `json:"calculationTimeMs"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeSolveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, balance.ErrIntractableInventory):
		writeError(w, http.StatusUnprocessableEntity, "Inventory too large", err.Error(),
			"Reduce the number of denominations or units per denomination")
	case errors.Is(err, balance.ErrInvalidInventory):
		writeError(w, http.StatusBadRequest, "Invalid inventory", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "Calculation aborted", err.Error())
	default:
		writeInternalError(w, err)
	}
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
