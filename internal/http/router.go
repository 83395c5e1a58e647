package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewRouter mounts the storefront surface.
func NewRouter(sessions *SessionHandler, cart *CartHandler, checkout *CheckoutHandler, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Get("/session", sessions.Current)
		r.Post("/login", sessions.Login)
		r.Post("/register", sessions.Register)
		r.Post("/logout", sessions.Logout)
		r.Put("/profile", sessions.UpdateProfile)
		r.Post("/change-password", sessions.ChangePassword)
		r.Post("/reset-password", sessions.ResetPassword)
	})

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", cart.Get)
		r.Post("/refresh", cart.Refresh)
		r.Post("/items", cart.AddItem)
		r.Put("/items/{itemID}", cart.UpdateItem)
		r.Delete("/items/{itemID}", cart.RemoveItem)
		r.Delete("/", cart.Clear)
		r.Put("/shipping", cart.SetShipping)
	})

	r.Route("/checkout", func(r chi.Router) {
		r.Get("/", checkout.State)
		r.Get("/addresses", checkout.ListAddresses)
		r.Post("/addresses", checkout.CreateAddress)
		r.Put("/addresses/{addressID}", checkout.UpdateAddress)
		r.Delete("/addresses/{addressID}", checkout.DeleteAddress)
		r.Post("/addresses/{addressID}/default", checkout.SetDefaultAddress)
		r.Post("/select-address", checkout.SelectAddress)
		r.Post("/confirm", checkout.Confirm)
		r.Post("/back", checkout.Back)
		r.Post("/submit", checkout.Submit)
		r.Post("/reset", checkout.Reset)
	})

	r.Get("/payment/callback", checkout.Callback)

	return otelhttp.NewHandler(r, "storefront")
}
