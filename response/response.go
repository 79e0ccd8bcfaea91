package response

import (
	"encoding/json"
	"net/http"
)

type errorBody struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// WriteJSON encodes v as the response body with the given status code
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteResponse writes v as a 200 JSON response
func WriteResponse(w http.ResponseWriter, r *http.Request, v interface{}) {
	WriteJSON(w, http.StatusOK, v)
}

// WriteError writes e using its status code
func WriteError(w http.ResponseWriter, r *http.Request, e *Error) {
	WriteJSON(w, e.StatusCode, errorBody{
		Error:   e.Message,
		Details: e.Messages,
	})
}

// MethodNotAllowed is meant for chi's MethodNotAllowed hook
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, ErrMethodNotAllowed())
}

// NotFound is meant for chi's NotFound hook
func NotFound(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, ErrNotFound())
}
