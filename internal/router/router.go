package router

import (
	"net/http"

	"kitchen-orders/internal/handler"
	"kitchen-orders/internal/metrics"
	"kitchen-orders/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers mounted by New.
type Handlers struct {
	Orders     *handler.OrderHandler
	Products   *handler.ProductHandler
	Categories *handler.CategoryHandler
	Finance    *handler.FinanceHandler
	Clients    *handler.ClientHandler
	Events     *handler.EventsHandler
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, apiKey string, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Middleware order: RequestID -> Recovery -> Logging -> CORS -> APIKeyAuth
	r.Use(
		middleware.RequestID,
		middleware.Recovery(logger),
		middleware.Logging(logger),
		middleware.CORS,
		middleware.APIKeyAuth(apiKey, logger),
	)

	// Health check endpoint (no authentication required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/events", h.Events.Stream)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.Orders.List)
			r.Post("/", h.Orders.Create)
			r.Get("/{id}", h.Orders.GetByID)
			r.Put("/{id}", h.Orders.Update)
			r.Delete("/{id}", h.Orders.Delete)
			r.Post("/{id}/products", h.Orders.AddProduct)
			r.Patch("/{id}/products/{productId}", h.Orders.UpdateProductQuantity)
			r.Delete("/{id}/products/{productId}", h.Orders.DeleteProduct)
			r.Post("/{id}/payment", h.Orders.RecordPayment)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.Products.GetAll)
			r.Post("/", h.Products.Create)
			r.Get("/count", h.Products.Count)
			r.Get("/{id}", h.Products.GetByID)
			r.Patch("/{id}", h.Products.Update)
			r.Delete("/{id}", h.Products.Delete)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.Categories.GetAll)
			r.Post("/", h.Categories.Create)
			r.Get("/{id}", h.Categories.GetByID)
			r.Patch("/{id}", h.Categories.Update)
			r.Delete("/{id}", h.Categories.Delete)
			r.Get("/{id}/products", h.Products.GetByCategory)
		})

		r.Get("/clients/{phone}", h.Clients.GetByPhone)

		r.Route("/finances", func(r chi.Router) {
			r.Get("/today", h.Finance.Today)
			r.Get("/monthly", h.Finance.Monthly)
		})
	})

	return r
}
