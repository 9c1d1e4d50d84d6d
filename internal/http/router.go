package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/gatescan/terminal/internal/auth"
	"github.com/gatescan/terminal/internal/gateway"
	"github.com/gatescan/terminal/internal/http/handlers"
	"github.com/gatescan/terminal/internal/middleware"
	"github.com/gatescan/terminal/internal/repo"
)

// NewRouter creates the gateway HTTP router. Login is public; scan, verify
// and reject require a bearer token.
func NewRouter(gateHandler *handlers.GateHandler, jwtService *auth.JWTService, users repo.GateUserRepo) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	r.Route(gateway.BasePath, func(r chi.Router) {
		r.Post("/login", gateHandler.HandleLogin)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(jwtService, users))
			r.Post("/scan", gateHandler.HandleScan)
			r.Post("/verify", gateHandler.HandleVerify)
			r.Post("/reject", gateHandler.HandleReject)
		})
	})

	return r
}
