// README: Entry point; loads config, wires the pricing engine with its adapters and serves the HTTP API.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"chauffeur/internal/config"
	httptransport "chauffeur/internal/http"
	"chauffeur/internal/infra"
	"chauffeur/internal/maps"
	"chauffeur/internal/modules/fuel"
	"chauffeur/internal/modules/pricing"
	"chauffeur/internal/modules/vehicle"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Firebase.ProjectID == "" {
		log.Fatal("PRICING_FIREBASE_PROJECT_ID is required")
	}
	verifier, err := infra.NewFirebaseVerifier(ctx, infra.FirebaseOptions{
		ProjectID:       cfg.Firebase.ProjectID,
		CredentialsFile: cfg.Firebase.CredentialsFile,
		CheckRevoked:    cfg.Firebase.CheckRevoked,
	})
	if err != nil {
		log.Fatalf("firebase init: %v", err)
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN, cfg.DB.MaxConns)
	if err != nil {
		log.Fatal(err)
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	defer redisClient.Close()

	httpClient := infra.NewRetryClient(cfg.Engine.HTTPTimeout).WithBackoff(cfg.Engine.HTTPRetries, 200*time.Millisecond)

	// Without a key every leg falls back to haversine estimates.
	var router maps.Router
	if cfg.Maps.APIKey != "" {
		routes, err := maps.NewRouteService(cfg.Maps.APIKey, cfg.Maps.Language, cfg.Maps.Region)
		if err != nil {
			log.Fatalf("maps init: %v", err)
		}
		router = routes
	} else {
		log.Printf("GOOGLE_MAPS_API_KEY not set, routing uses haversine estimates")
	}
	tolls := maps.NewTollService(httpClient, cfg.Maps.RoutesEndpoint, cfg.Maps.APIKey, redisClient, cfg.Maps.TollCacheTTL)

	fuelProvider := fuel.NewProvider(httpClient, fuel.NewCache(redisClient, cfg.Fuel.CacheTTL), fuel.Config{
		Endpoint:     cfg.Fuel.Endpoint,
		APIKey:       cfg.Fuel.APIKey,
		Freshness:    cfg.Fuel.Freshness,
		DefaultPrice: cfg.Fuel.DefaultPrice,
	})

	engine := pricing.NewEngine(router, fuelProvider, tolls, pricing.EngineConfig{
		AdapterTimeout: cfg.Engine.AdapterTimeout,
		Selector: vehicle.SelectorConfig{
			MaxApproachKm:  cfg.Engine.MaxApproachKm,
			MaxCandidates:  cfg.Engine.MaxCandidates,
			MaxConcurrency: cfg.Engine.RoutingConcurrency,
		},
	})
	pricingSvc := pricing.NewService(pricing.NewStore(dbPool), engine)

	handler := httptransport.NewServer(httptransport.ServerDeps{
		Pricing:  pricingSvc,
		Verifier: verifier,
		Ready:    dbPool.Ping,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler.Routes()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("http shutdown: %v", err)
		}
	}()

	log.Printf("pricing api listening on %s", cfg.HTTP.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
