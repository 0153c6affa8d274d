package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prudhvinik1/dbsync/internal/models"
	"github.com/prudhvinik1/dbsync/internal/telemetry"
)

// ReceivedResponse is the body returned for an accepted batch.
const ReceivedResponse = "Data received successfully!"

const maxBatchBytes = 10 << 20

// ReceiveHandler consumes batches pushed by peers.
type ReceiveHandler interface {
	HandleBatch(ctx context.Context, rows []*models.Row) error
}

// LoggingReceiveHandler acknowledges batches without persisting them.
type LoggingReceiveHandler struct {
	metrics *telemetry.ReceiveMetrics
}

func NewLoggingReceiveHandler(metrics *telemetry.ReceiveMetrics) *LoggingReceiveHandler {
	return &LoggingReceiveHandler{metrics: metrics}
}

func (h *LoggingReceiveHandler) HandleBatch(ctx context.Context, rows []*models.Row) error {
	slog.Info("Received sync batch", "rows", len(rows))
	for _, row := range rows {
		slog.Debug("Received row", "id", row.ID, "status", row.CompletionStatus)
	}
	h.metrics.RecordRowsReceived(ctx, len(rows))
	return nil
}

func receiveSyncHandler(handler ReceiveHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := decodeBatch(w, r)
		if err != nil {
			slog.Debug("Rejected sync batch", "error", err)
			writeErrorResponse(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := handler.HandleBatch(r.Context(), rows); err != nil {
			slog.Error("Failed to handle sync batch", "rows", len(rows), "error", err)
			writeErrorResponse(w, "failed to handle batch", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(ReceivedResponse))
	}
}

func decodeBatch(w http.ResponseWriter, r *http.Request) ([]*models.Row, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBatchBytes))
	var rows []*models.Row
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("invalid sync batch: %w", err)
	}
	// The body holds exactly one JSON value.
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("invalid sync batch: unexpected data after the array")
	}

	for i, row := range rows {
		if row == nil {
			return nil, fmt.Errorf("invalid sync batch: row %d is null", i)
		}
		if !row.CompletionStatus.Valid() {
			return nil, fmt.Errorf("invalid sync batch: row %d has unknown completionStatus %d", i, row.CompletionStatus)
		}
	}
	if rows == nil {
		return nil, errors.New("invalid sync batch: expected a JSON array")
	}
	return rows, nil
}

// pathHandler accepts a required param query parameter and returns an empty body.
func pathHandler(w http.ResponseWriter, r *http.Request) {
	if !r.URL.Query().Has("param") {
		writeErrorResponse(w, "param is required", http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
}
