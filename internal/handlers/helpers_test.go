package handlers_test

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func chiRouterWithID(h http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/v1/tasks/{id}", h)
	return r
}
