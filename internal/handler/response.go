package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"docvault/internal/domain"
)

// writeError переводит ошибку сервиса в HTTP-статус по сторожевым
// ошибкам домена
func writeError(w http.ResponseWriter, err error) {
	log.Printf("request failed: %v", err)

	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrUnauthorized):
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	case errors.Is(err, domain.ErrConflict):
		http.Error(w, "Conflict", http.StatusConflict)
	case errors.Is(err, domain.ErrInvalidInput):
		http.Error(w, "Invalid request", http.StatusBadRequest)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
