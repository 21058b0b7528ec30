package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "asamblea/pkg/domain-errors"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

// respondError maps a domain error to its HTTP status and a stable error
// envelope. Uncoded errors become opaque 500s so internals never leak.
func respondError(w http.ResponseWriter, log *slog.Logger, err error) {
	code := dErrors.CodeOf(err)
	status := dErrors.ToHTTPStatus(code)
	message := "internal error"
	var de *dErrors.Error
	if status < http.StatusInternalServerError && errors.As(err, &de) {
		message = de.Message
	} else {
		log.Error("request failed", "error", err)
	}
	respond(w, status, errorBody{Error: errorDetail{Code: string(code), Message: message}})
}

func decode(r *http.Request, into any) error {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}
