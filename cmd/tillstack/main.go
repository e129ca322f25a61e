package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tillstack/tillstack/pkg/api"
	"github.com/tillstack/tillstack/pkg/audit"
	"github.com/tillstack/tillstack/pkg/auth"
	"github.com/tillstack/tillstack/pkg/authz"
	"github.com/tillstack/tillstack/pkg/config"
	"github.com/tillstack/tillstack/pkg/guard"
	"github.com/tillstack/tillstack/pkg/httputil"
	"github.com/tillstack/tillstack/pkg/middleware"
	"github.com/tillstack/tillstack/pkg/observability"
	"github.com/tillstack/tillstack/pkg/ownership"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(observability.ParseLogLevel(cfg.Observability.LogLevel), os.Stdout)

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	// The registry is built once and validated eagerly. A broken table is a
	// configuration error and must stop the process here, never at request
	// time.
	var policy *authz.PolicyFile
	if cfg.Authz.PolicyFile != "" {
		policy, err = authz.LoadPolicyFile(cfg.Authz.PolicyFile)
		if err != nil {
			log.Fatalf("Failed to load policy file: %v", err)
		}
	}
	registry, err := authz.NewRegistry(policy)
	if err != nil {
		log.Fatalf("Failed to build permission registry: %v", err)
	}
	engine := authz.NewEngine(registry)
	pathPolicy := authz.NewPathPolicy(policy)

	auditLog := audit.NewLogrusLogger(os.Stdout)
	defer auditLog.Close()

	rosterClient := ownership.NewHTTPRosterClient(cfg.Roster.BaseURL, cfg.Roster.Timeout)
	owners := ownership.NewResolver(rosterClient, engine, cfg.Roster.CacheTTL, logger, metrics)
	methodGuard := guard.New(engine, owners, auditLog)

	gatekeeper := middleware.NewGatekeeper(engine, pathPolicy, auditLog, logger, metrics)
	authMiddleware := auth.NewMiddleware(auth.HeaderAuthenticator{})

	router := mux.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.AuditContext(auditLog))
	router.Use(authMiddleware.Handler)
	router.Use(gatekeeper.Handler)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_ = httputil.WriteMessage(w, "ok")
	}).Methods("GET")

	if metrics != nil {
		router.Handle("/metrics", metrics.Handler()).Methods("GET")
	}

	api.NewIntrospectionHandlers(engine, methodGuard).RegisterRoutes(router)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Infof("tillstack authorization service listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Infof("Received signal %s, starting graceful shutdown", sig)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
	}
}
