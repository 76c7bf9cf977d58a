package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
)

// maxRequestBody bounds JSON bodies on the REST routes. Battle states travel
// over the websocket, so REST bodies are small.
const maxRequestBody = 64 << 10

// writeJSON writes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Int("status", status).Msg("Error encoding response")
	}
}

// writeError writes an error in the same shape decision sessions use, so
// clients parse one error format for both transports.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ServerMessage{Type: MsgError, Error: msg})
}

// decodeJSON decodes exactly one JSON value from the request body into v,
// rejecting unknown fields, trailing data and bodies over maxRequestBody.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return fmt.Errorf("request body over %d bytes", tooBig.Limit)
		}
		return fmt.Errorf("decode request body: %w", err)
	}
	if dec.More() {
		return errors.New("request body holds more than one JSON value")
	}
	return nil
}
