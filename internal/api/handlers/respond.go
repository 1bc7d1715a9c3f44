package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/wonny/boardheat/internal/contracts"
)

// RunState reports the latest fully computed date per derived table
type RunState interface {
	LastComputed(ctx context.Context, table string) (time.Time, bool, error)
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// lookupStatus maps sentinel errors to 404, everything else to 500
func lookupStatus(err error) int {
	if errors.Is(err, contracts.ErrNotFound) || errors.Is(err, contracts.ErrNoData) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

var errNoComputedDate = fmt.Errorf("no computed date: %w", contracts.ErrNoData)

// resolveDate reads ?date=YYYY-MM-DD, defaulting to the table's last computed date
func resolveDate(ctx context.Context, raw string, state RunState, table string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw != "" {
		return contracts.ParseTradeDate(raw)
	}
	if state == nil {
		return time.Time{}, errNoComputedDate
	}
	last, ok, err := state.LastComputed(ctx, table)
	if err != nil {
		return time.Time{}, fmt.Errorf("read run state: %w", err)
	}
	if !ok {
		return time.Time{}, errNoComputedDate
	}
	return last, nil
}

// dateStatus: 형식 오류는 400, 계산된 날짜 없음은 404
func dateStatus(err error) int {
	if errors.Is(err, contracts.ErrNoData) {
		return http.StatusNotFound
	}
	var perr *time.ParseError
	if errors.As(err, &perr) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
