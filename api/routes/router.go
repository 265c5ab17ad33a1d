package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lukechats/retail-backend/api/controllers"
	"github.com/lukechats/retail-backend/api/middleware"
	"github.com/lukechats/retail-backend/internal/assistant"
	"github.com/lukechats/retail-backend/internal/cart"
	"github.com/lukechats/retail-backend/internal/catalog"
	"github.com/lukechats/retail-backend/pkg/config"
	"github.com/lukechats/retail-backend/pkg/db"
	"github.com/lukechats/retail-backend/pkg/logger"
)

// Deps carries everything the router wires together. RedisPinger stays nil
// when the event sink is not configured.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DBPinger    db.Pinger
	RedisPinger db.Pinger
	Catalog     catalog.Service
	Cart        cart.Service
	Assistant   *assistant.Service
	Registry    *prometheus.Registry
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(deps.Logger),
		middleware.RequestID(deps.Logger),
		middleware.Logging(deps.Logger),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(deps.Config))
		r.Get("/ready", controllers.HealthReady(deps.Config, deps.Logger, deps.DBPinger, deps.RedisPinger))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CustomerContext(deps.Logger))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductsList(deps.Catalog, deps.Logger))
			r.Get("/{id}", controllers.ProductsGet(deps.Catalog, deps.Logger))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(deps.Cart, deps.Logger))
			r.Delete("/", controllers.CartClear(deps.Cart, deps.Logger))
			r.Post("/items", controllers.CartAddItem(deps.Cart, deps.Logger))
			r.Delete("/items/{sku}", controllers.CartRemoveItem(deps.Cart, deps.Logger))
		})

		r.Route("/chat", func(r chi.Router) {
			r.Post("/", controllers.Chat(deps.Assistant, deps.Logger))
			r.Post("/policy", controllers.ChatPolicy(deps.Assistant, deps.Logger))
		})
	})

	return r
}
