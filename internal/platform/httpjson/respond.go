// Package httpjson holds the JSON request/response helpers shared by all
// handlers: one decode path, one error shape.
package httpjson

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "publink/pkg/domain-errors"
)

// ErrorResponse is the wire shape of every error the API returns.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Write renders v as JSON with the given status.
func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError maps a domain error to its HTTP status and renders the error
// shape. Uncoded errors become opaque 500s; internal detail never leaks to
// the client.
func WriteError(w http.ResponseWriter, err error) {
	var de *dErrors.Error
	if !errors.As(err, &de) {
		Write(w, http.StatusInternalServerError, ErrorResponse{
			Error: ErrorBody{Code: string(dErrors.CodeInternal), Message: "internal error"},
		})
		return
	}
	Write(w, dErrors.ToHTTPStatus(de.Code), ErrorResponse{
		Error: ErrorBody{Code: string(de.Code), Message: de.Message},
	})
}

// Decode parses the request body into v, rejecting unknown fields.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}
