package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/boardheat/internal/contracts"
	"github.com/wonny/boardheat/pkg/logger"
	"github.com/wonny/boardheat/pkg/redis"
)

// SignalReader is the read path over committed stock signals
type SignalReader interface {
	RunState
	StockSignal(ctx context.Context, code string, date time.Time) (*contracts.StockBoardSignal, error)
	StockSignals(ctx context.Context, date time.Time, codes []string) ([]contracts.StockBoardSignal, error)
}

// SignalHandler handles per-stock signal endpoints
// ⭐ SSOT: 종목 시그널 API 핸들러는 이 구조체에서만
type SignalHandler struct {
	store    SignalReader
	cache    *redis.Cache
	maxCodes int
	logger   *logger.Logger
}

// NewSignalHandler creates a new signal handler
func NewSignalHandler(store SignalReader, cache *redis.Cache, maxCodes int, log *logger.Logger) *SignalHandler {
	return &SignalHandler{
		store:    store,
		cache:    cache,
		maxCodes: maxCodes,
		logger:   log,
	}
}

// GetSignal returns one stock's signal
// GET /api/stocks/{code}/signal?date=YYYY-MM-DD
func (h *SignalHandler) GetSignal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := strings.TrimSpace(mux.Vars(r)["code"])
	if code == "" {
		respondError(w, http.StatusBadRequest, "stock code is required")
		return
	}

	date, err := resolveDate(ctx, r.URL.Query().Get("date"), h.store, contracts.TableStockSignal)
	if err != nil {
		respondError(w, dateStatus(err), err.Error())
		return
	}
	dateKey := contracts.FormatDate(date)

	var sig contracts.StockBoardSignal
	err = h.cache.GetOrSet(ctx, redis.StockSignalKey(code, dateKey), &sig, func() (interface{}, error) {
		return h.store.StockSignal(ctx, code, date)
	})
	if err != nil {
		status := lookupStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.WithError(err).WithFields(map[string]interface{}{
				"code": code,
				"date": dateKey,
			}).Error("Failed to get stock signal")
		}
		respondError(w, status, fmt.Sprintf("signal for %s on %s unavailable", code, dateKey))
		return
	}

	respondJSON(w, http.StatusOK, sig)
}

// BatchRequest is the body of the batch lookup
type BatchRequest struct {
	Date  string   `json:"date"`
	Codes []string `json:"codes"`
}

// BatchResponse returns found signals in request order plus the codes without a row
type BatchResponse struct {
	Date    string                       `json:"date"`
	Signals []contracts.StockBoardSignal `json:"signals"`
	Missing []string                     `json:"missing"`
}

// GetSignals returns signals for many stocks in one round trip
// POST /api/stocks/signals {"date": "2026-01-08", "codes": ["005930", ...]}
func (h *SignalHandler) GetSignals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req BatchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	codes := normalizeCodes(req.Codes)
	if len(codes) == 0 {
		respondError(w, http.StatusBadRequest, "codes must not be empty")
		return
	}
	if len(codes) > h.maxCodes {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("at most %d codes per request", h.maxCodes))
		return
	}

	date, err := resolveDate(ctx, req.Date, h.store, contracts.TableStockSignal)
	if err != nil {
		respondError(w, dateStatus(err), err.Error())
		return
	}
	dateKey := contracts.FormatDate(date)

	signals, err := h.store.StockSignals(ctx, date, codes)
	if err != nil {
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"date":  dateKey,
			"codes": len(codes),
		}).Error("Failed to get stock signals")
		respondError(w, http.StatusInternalServerError, "failed to load signals")
		return
	}

	found := make(map[string]bool, len(signals))
	for _, s := range signals {
		found[s.StockCode] = true
	}
	missing := make([]string, 0)
	for _, c := range codes {
		if !found[c] {
			missing = append(missing, c)
		}
	}

	respondJSON(w, http.StatusOK, BatchResponse{
		Date:    dateKey,
		Signals: signals,
		Missing: missing,
	})
}

// normalizeCodes trims, drops blanks and de-duplicates while keeping order
func normalizeCodes(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, c := range in {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
