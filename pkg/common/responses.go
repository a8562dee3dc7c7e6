package common

import (
	"encoding/json"
	"net/http"

	pkgerrors "tra-backend/pkg/errors"
)

// ErrorResponse is the JSON body returned for failed requests
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// RespondJSON writes a JSON response with the given status
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// RespondError maps an error onto an HTTP response. Application errors carry
// their own status; anything else is an internal error.
func RespondError(w http.ResponseWriter, err error) {
	if appErr := pkgerrors.GetAppError(err); appErr != nil {
		RespondJSON(w, appErr.HTTPStatus, ErrorResponse{
			Error:   string(appErr.Type),
			Message: appErr.Message,
			Details: appErr.Details,
		})
		return
	}
	RespondJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   string(pkgerrors.ErrorTypeInternal),
		Message: "internal server error",
	})
}
