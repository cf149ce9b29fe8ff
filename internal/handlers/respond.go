// Package handlers exposes the maintenance and vehicle services over HTTP.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/car-maintenance/internal/apperr"
	"github.com/ukydev/car-maintenance/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("Failed to encode response")
	}
}

// writeError maps an error kind onto an HTTP status. Internal details are logged, not returned.
func writeError(w http.ResponseWriter, r *http.Request, logger log.FieldLogger, err error) {
	status := apperr.HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.WithError(err).WithFields(log.Fields{"method": r.Method, "path": r.URL.Path}).Error("Request failed")
		msg = "Internal server error"
	}
	http.Error(w, msg, status)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.InvalidArgument("invalid JSON: %v", err)
	}
	return nil
}

// decodeOptionalJSON is decodeJSON that accepts an empty body.
func decodeOptionalJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return apperr.InvalidArgument("invalid JSON: %v", err)
	}
	return nil
}

// parseTaskTypes splits a comma separated list, ignoring blanks.
func parseTaskTypes(raw string) []models.TaskType {
	var out []models.TaskType
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, models.TaskType(s))
		}
	}
	return out
}
