package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/qoox/smartcsv/modules/content/presentation/controllers/dtos"
	"github.com/qoox/smartcsv/modules/content/services"
	"github.com/qoox/smartcsv/pkg/serrors"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		panic(err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, code, message string, meta ...map[string]string) {
	payload := &dtos.APIError{
		Code:    code,
		Message: message,
	}
	if len(meta) > 0 && meta[0] != nil {
		payload.Meta = meta[0]
	}
	writeJSON(w, status, payload)
}

// writeServiceError maps service error codes onto HTTP statuses. Anything
// without a code is treated as an internal failure.
func writeServiceError(w http.ResponseWriter, err error) {
	var base *serrors.BaseError
	if errors.As(err, &base) {
		writeJSONError(w, statusForCode(base.Code), base.Code, base.Message)
		return
	}
	writeJSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
}

func statusForCode(code string) int {
	switch code {
	case services.CodeNoData:
		return http.StatusNotFound
	case services.CodeValidationError:
		return http.StatusBadRequest
	case services.CodeFormatError:
		return http.StatusUnprocessableEntity
	case services.CodeIOError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
