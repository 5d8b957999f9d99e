// Package handler implements the storefront JSON API on top of the catalog,
// cart and newsletter domain packages.
package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/newsletter"
)

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// ImageBaseURL is prepended to relative image paths in responses.
	// When empty, image paths are returned as stored.
	ImageBaseURL string
	// Pricing is applied to cart summaries.
	Pricing cart.Pricing
	// SessionTTL is the lifetime of the cart session cookie.
	SessionTTL time.Duration
	// SecureCookie marks the session cookie as HTTPS-only.
	SecureCookie bool
}

// Handler serves the storefront API. All dependencies are created once at
// application start.
type Handler struct {
	browser    *catalog.Browser
	sessions   *cart.Sessions
	newsletter *newsletter.Service

	imageBaseURL string
	pricing      cart.Pricing
	sessionTTL   time.Duration
	secureCookie bool
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg HandlerConfig,
	browser *catalog.Browser,
	sessions *cart.Sessions,
	subscriptions *newsletter.Service,
) *Handler {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * 24 * time.Hour
	}
	return &Handler{
		browser:      browser,
		sessions:     sessions,
		newsletter:   subscriptions,
		imageBaseURL: cfg.ImageBaseURL,
		pricing:      cfg.Pricing,
		sessionTTL:   cfg.SessionTTL,
		secureCookie: cfg.SecureCookie,
	}
}

// Register mounts the API routes on r.
func (h *Handler) Register(r *mux.Router) {
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/products", h.ListProducts).Methods(http.MethodGet)
	api.HandleFunc("/products/featured", h.FeaturedProducts).Methods(http.MethodGet)
	api.HandleFunc("/products/{id}", h.GetProduct).Methods(http.MethodGet)
	api.HandleFunc("/categories", h.ListCategories).Methods(http.MethodGet)
	api.HandleFunc("/collections", h.ListCollections).Methods(http.MethodGet)
	api.HandleFunc("/collections/{slug}/products", h.CollectionProducts).Methods(http.MethodGet)
	api.HandleFunc("/blog", h.ListPosts).Methods(http.MethodGet)

	api.HandleFunc("/newsletter", h.Subscribe).Methods(http.MethodPost)

	api.HandleFunc("/cart", h.GetCart).Methods(http.MethodGet)
	api.HandleFunc("/cart", h.ClearCart).Methods(http.MethodDelete)
	api.HandleFunc("/cart/session", h.EndSession).Methods(http.MethodDelete)
	api.HandleFunc("/cart/items", h.AddCartItem).Methods(http.MethodPost)
	api.HandleFunc("/cart/items/{lineId}", h.UpdateCartItem).Methods(http.MethodPatch)
	api.HandleFunc("/cart/items/{lineId}", h.RemoveCartItem).Methods(http.MethodDelete)

	api.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	api.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
}
