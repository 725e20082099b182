// Package api exposes the chart pipeline over plain HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/0xc0d3d00d/klinechart/internal/domain"
	"github.com/0xc0d3d00d/klinechart/internal/kline"
)

const indexMessage = "Stock K-Line Chart API is running. Call /api/kline?symbol=STOCK_CODE to get chart."

const (
	msgMissingSymbol = "Missing required parameter: symbol"
	msgInternal      = "internal server error"
)

// Charter renders the chart of one symbol.
type Charter interface {
	Chart(ctx context.Context, symbol string) ([]byte, error)
}

type Handler struct {
	charter Charter
}

func NewHandler(charter Charter) *Handler {
	return &Handler{charter: charter}
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.index)
	mux.HandleFunc("GET /api/kline", h.kline)
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(indexMessage))
}

func (h *Handler) kline(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, errorBody{Error: msgMissingSymbol})
		return
	}

	img, err := h.charter.Chart(r.Context(), symbol)
	if err != nil {
		h.fail(w, r, symbol, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	w.WriteHeader(http.StatusOK)
	w.Write(img)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, symbol string, err error) {
	ctx := r.Context()
	stage := kline.StageOf(err)
	switch {
	case errors.Is(err, domain.ErrMissingParameter):
		writeError(w, http.StatusBadRequest, errorBody{Error: msgMissingSymbol})
	case errors.Is(err, domain.ErrNotFound):
		slog.InfoContext(ctx, "no chart data", "symbol", symbol, "stage", stage, "error", err)
		writeError(w, http.StatusNotFound, errorBody{Error: notFoundMessage(symbol, err)})
	default:
		slog.ErrorContext(ctx, "failed to build chart", "symbol", symbol, "stage", stage, "error", err)
		writeError(w, http.StatusInternalServerError, errorBody{Error: msgInternal, Stage: string(stage)})
	}
}

func notFoundMessage(symbol string, err error) string {
	if errors.Is(err, domain.ErrEmptyAfterCleaning) {
		return fmt.Sprintf("No valid price data for %s after cleaning.", symbol)
	}
	return fmt.Sprintf("Unable to fetch data for %s. Check the symbol or the date range.", symbol)
}

type errorBody struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

func writeError(w http.ResponseWriter, status int, body errorBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to write error body", "error", err)
	}
}
