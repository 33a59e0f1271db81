package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wishlane/wishlane-backend/api/controllers"
	"github.com/wishlane/wishlane-backend/api/middleware"
	"github.com/wishlane/wishlane-backend/internal/enrich"
	"github.com/wishlane/wishlane-backend/internal/wishes"
	"github.com/wishlane/wishlane-backend/pkg/config"
	"github.com/wishlane/wishlane-backend/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	wishesService wishes.Service,
	dispatcher enrich.Dispatcher,
	registry *prometheus.Registry,
	readiness map[string]controllers.Pinger,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	// Locally persisted images are served straight from the uploads dir. In
	// production the durable photo store hosts them instead.
	uploadsFS := http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.Uploads.Dir)))
	r.Get("/uploads/*", uploadsFS.ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/collections", func(r chi.Router) {
			r.Post("/", controllers.CollectionCreate(wishesService, logg))
			r.Route("/{collectionId}", func(r chi.Router) {
				r.Get("/items", controllers.CollectionItems(wishesService, logg))
				r.Post("/wishes", controllers.WishCreate(wishesService, dispatcher, cfg.Uploads.Dir, logg))
			})
		})

		r.Get("/items/{itemId}", controllers.WishGet(wishesService, logg))
	})

	return r
}
