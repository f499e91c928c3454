package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// profiler serves /debug/pprof and /debug/vars behind basic auth. Config
// refuses to enable it without credentials.
func profiler(user, pass string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.BasicAuth("toko-billing-debug", map[string]string{user: pass}))
	r.Mount("/", middleware.Profiler())
	return r
}
