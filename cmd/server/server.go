package main

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Simplici0/recipecost/internal/catalog"
	"github.com/Simplici0/recipecost/internal/costing"
	"github.com/Simplici0/recipecost/internal/logger"
	"github.com/Simplici0/recipecost/internal/metrics"
	"github.com/Simplici0/recipecost/internal/recipes"
)

type server struct {
	db          *sql.DB
	logg        *logger.Logger
	registry    *prometheus.Registry
	httpMetrics *metrics.HTTPMetrics
	ingredients *catalog.Store
	recipes     *recipes.Store
	engine      *costing.Engine
}

func newServer(database *sql.DB, logg *logger.Logger) *server {
	if logg == nil {
		logg = logger.Nop()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(database, "recipecost"),
	)

	recipeStore := recipes.NewStore(database, logg)
	return &server{
		db:          database,
		logg:        logg,
		registry:    registry,
		httpMetrics: metrics.NewHTTPMetrics(registry),
		ingredients: catalog.NewStore(database, logg),
		recipes:     recipeStore,
		engine:      costing.NewEngine(recipeStore, metrics.NewCostMetrics(registry), logg),
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		requestID(s.logg),
		requestLogging(s.logg, s.httpMetrics),
		recoverer(s.logg),
	)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/ingredients", func(r chi.Router) {
		r.Get("/", s.handleIngredientsList)
		r.Put("/", s.handleIngredientUpsert)
		r.Get("/names", s.handleIngredientNames)
		r.Get("/resolve", s.handleIngredientResolve)
		r.Get("/by-name/{name}", s.handleIngredientByName)
		r.Delete("/{id}", s.handleIngredientDelete)
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/", s.handleProductsList)
		r.Put("/", s.handleProductUpsert)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleProductDetail)
			r.Delete("/", s.handleProductDelete)
			r.Put("/sale-price", s.handleSalePrice)
			r.Get("/cost", s.handleProductCost)
			r.Post("/items", s.handleFixedLineAdd)
			r.Delete("/items/{lineID}", s.handleFixedLineRemove)
			r.Post("/slot-lines", s.handleSlotLineAdd)
			r.Delete("/slot-lines/{lineID}", s.handleSlotLineRemove)
			r.Get("/slots", s.handleSlotsList)
			r.Put("/slots/{slot}", s.handleSlotBind)
		})
	})

	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}
	writeSuccess(w, map[string]string{"status": "ok"})
}
