package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/joho/godotenv/autoload"

	"istanbul-explorer/internal/admin"
	"istanbul-explorer/internal/domain"
	"istanbul-explorer/internal/enhance"
	"istanbul-explorer/internal/images"
	"istanbul-explorer/internal/infrastructure/repository"
	"istanbul-explorer/internal/publish"
	"istanbul-explorer/internal/scraper"
	"istanbul-explorer/internal/staging"
	"istanbul-explorer/pkg/config"
	"istanbul-explorer/pkg/database"
	"istanbul-explorer/pkg/events"
	"istanbul-explorer/pkg/health"
	"istanbul-explorer/pkg/logging"
	"istanbul-explorer/pkg/metrics"
)

func main() {
	cfg := config.Load()

	log := logging.New(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: os.Stdout,
	})

	db, err := database.NewWithConfig(cfg.DatabaseURL, cfg)
	if err != nil {
		log.Error("database connect failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var repo domain.Repository = repository.NewSQLRepository(db)
	var uowFactory domain.UnitOfWorkFactory = repository.NewSQLUnitOfWorkFactory(db)

	eventStore, err := events.NewSQLEventStore(db)
	if err != nil {
		log.Error("event store init failed", "error", err)
		os.Exit(1)
	}

	// Enhancer chain in fallback order; the template engine terminates it
	// and never fails, so enhancement as a whole cannot hard-fail.
	templates, err := enhance.LoadTemplates(cfg.TemplateDir)
	if err != nil {
		log.Error("template load failed", "error", err)
		os.Exit(1)
	}
	var enhancers []enhance.Enhancer
	if cfg.OpenAIAPIKey != "" {
		enhancers = append(enhancers, enhance.NewOpenAIEnhancer(cfg.OpenAIAPIKey, cfg.OpenAIModel))
	}
	if cfg.AnthropicAPIKey != "" {
		enhancers = append(enhancers, enhance.NewAnthropicEnhancer(cfg.AnthropicAPIKey, cfg.AnthropicModel))
	}
	enhancers = append(enhancers, enhance.NewTemplateEnhancer(templates))
	chain := enhance.NewChain(log, enhancers...)

	var contentScraper scraper.ContentScraper
	if fc, ferr := scraper.NewFirecrawlScraper(cfg.FirecrawlAPIKey, cfg.ScrapeTimeout, log); ferr != nil {
		log.Warn("firecrawl not configured, enrichment disabled", "error", ferr)
	} else {
		contentScraper = fc
	}

	var places scraper.PlaceRefresher
	if cfg.GooglePlacesAPIKey != "" {
		pc, perr := scraper.NewPlacesClient(cfg.GooglePlacesAPIKey, log)
		if perr != nil {
			log.Warn("places client init failed", "error", perr)
		} else {
			places = pc
		}
	}

	searcher := images.NewFallbackSearcher(
		images.NewUnsplashClient(cfg.UnsplashAccessKey),
		images.NewPexelsClient(cfg.PexelsAPIKey),
	)

	pipeline := publish.NewPipeline(repo, uowFactory, cfg.FeaturedThreshold, log)
	svc := staging.NewService(staging.Deps{
		Repo:            repo,
		Pipeline:        pipeline,
		Enhancer:        chain,
		Scraper:         contentScraper,
		Places:          places,
		Searcher:        searcher,
		Events:          eventStore,
		Log:             log,
		ConfidenceDelta: cfg.ConfidenceDelta,
	})

	router := mux.NewRouter()
	admin.RegisterRoutes(router, svc)
	router.HandleFunc("/health", health.Handler(
		health.DBChecker{DB: db.Conn()},
		health.ProviderChecker{Provider: "openai", APIKey: cfg.OpenAIAPIKey},
		health.ProviderChecker{Provider: "anthropic", APIKey: cfg.AnthropicAPIKey},
		health.ProviderChecker{Provider: "firecrawl", APIKey: cfg.FirecrawlAPIKey},
	)).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // batch operations await providers sequentially
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}
