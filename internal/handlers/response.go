package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

type Payload struct {
	Key     string
	Payload any
}

func toPayload(key string, pl any) Payload {
	return Payload{Key: key, Payload: pl}
}

func toJSON(storage map[string]any, payload Payload) {
	storage[payload.Key] = payload.Payload
}

func responseWithJSON(w http.ResponseWriter, code int, payload ...Payload) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	storage := make(map[string]any, len(payload))
	for _, pl := range payload {
		toJSON(storage, pl)
	}
	_ = json.NewEncoder(w).Encode(storage)
}

// responseWithData - успешный ответ в общей обёртке
func responseWithData(w http.ResponseWriter, code int, data any) {
	responseWithJSON(w, code,
		toPayload("status", "success"),
		toPayload("data", data),
		toPayload("timestamp", time.Now().UTC()),
	)
}

func responseWithError(w http.ResponseWriter, code int, errCode, message string) {
	responseWithJSON(w, code,
		toPayload("error", errCode),
		toPayload("message", message),
	)
}
