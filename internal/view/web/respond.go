package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jask/notebook/internal/compute"
	"github.com/jask/notebook/internal/database/repository"
	"github.com/jask/notebook/internal/presenter"
	"github.com/jask/notebook/internal/worksheet"
)

const maxBodyBytes = 1 << 20

func setHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	setHeaders(w)
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, err error) {
	response := struct {
		Error     string `json:"error"`
		Status    int    `json:"status"`
		Message   string `json:"message"`
		Timestamp string `json:"timestamp"`
	}{
		Error:     http.StatusText(status),
		Status:    status,
		Message:   http.StatusText(status),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err != nil {
		response.Message = err.Error()
	}
	respondJSON(w, status, response)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, worksheet.ErrCellNotFound),
		errors.Is(err, repository.ErrWorksheetNotFound):
		return http.StatusNotFound
	case errors.Is(err, worksheet.ErrPositionOutOfRange),
		errors.Is(err, worksheet.ErrDuplicateCell):
		return http.StatusBadRequest
	case errors.Is(err, presenter.ErrCellBusy):
		return http.StatusConflict
	case errors.Is(err, presenter.ErrStorageDisabled),
		errors.Is(err, compute.ErrQueueFull),
		errors.Is(err, compute.ErrServiceClosed),
		errors.Is(err, errLoopStopped):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any, allowEOF bool) (int, error) {
	if r.Body == nil {
		if allowEOF {
			return 0, nil
		}
		return http.StatusBadRequest, fmt.Errorf("request body required")
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if allowEOF && errors.Is(err, io.EOF) {
			return 0, nil
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return http.StatusRequestEntityTooLarge, fmt.Errorf("request body too large (max %d bytes)", maxBodyBytes)
		}
		return http.StatusBadRequest, err
	}
	return 0, nil
}
