// Package main is the entry point for the storefront API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/storefront-core/internal/assistant"
	"github.com/capitalize-ai/storefront-core/internal/backend"
	"github.com/capitalize-ai/storefront-core/internal/bus"
	"github.com/capitalize-ai/storefront-core/internal/cart"
	"github.com/capitalize-ai/storefront-core/internal/config"
	"github.com/capitalize-ai/storefront-core/internal/handler"
	"github.com/capitalize-ai/storefront-core/internal/llm"
	"github.com/capitalize-ai/storefront-core/internal/markup"
	natsclient "github.com/capitalize-ai/storefront-core/internal/nats"
	"github.com/capitalize-ai/storefront-core/internal/service"
	"github.com/capitalize-ai/storefront-core/pkg/logger"
	"github.com/capitalize-ai/storefront-core/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting storefront API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "storefront-core", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Connect to NATS only when a component needs it
	var natsClient *natsclient.Client
	if cfg.Bus == "nats" || cfg.CartStorage == "nats" {
		natsClient, err = natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Fatal("failed to connect to NATS", zap.Error(err))
		}
		defer natsClient.Close()
	}

	storage, closeStorage, err := openCartStorage(ctx, cfg, natsClient)
	if err != nil {
		log.Fatal("failed to open cart storage", zap.String("backend", cfg.CartStorage), zap.Error(err))
	}
	defer closeStorage()

	var eventBus bus.Bus = bus.NewLocalBus()
	if cfg.Bus == "nats" {
		eventBus = natsclient.NewBus(natsClient, log)
	}

	// Storefront backend
	backendClient, err := backend.New(cfg.BackendURL, cfg.BackendTimeout)
	if err != nil {
		log.Fatal("failed to create backend client", zap.Error(err))
	}

	assistantClient, err := newAssistant(cfg, backendClient, log)
	if err != nil {
		log.Fatal("failed to create assistant", zap.String("provider", cfg.AssistantProvider), zap.Error(err))
	}

	// Initialize services
	cartSvc := service.NewCartService(storage, cfg.CartStorageKey, cfg.DefaultImage, log)
	evictCtx, stopEviction := context.WithCancel(ctx)
	defer stopEviction()
	go cartSvc.RunEviction(evictCtx, cfg.CartIdleTTL/2, cfg.CartIdleTTL)
	chatSvc := service.NewChatService(
		assistantClient,
		eventBus,
		cartSvc,
		markup.New(cfg.ImageBasePath, cfg.DefaultImage),
		service.SessionTiming{
			GreetingDelay:  cfg.GreetingDelay,
			NotifyDelay:    cfg.NotifyDelay,
			NotifyCooldown: cfg.NotifyCooldown,
		},
		log,
	)
	defer chatSvc.Shutdown()

	// Initialize handlers
	router := handler.NewRouter(handler.RouterConfig{
		JWTSecret:         cfg.JWTSecret,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
	}, handler.Handlers{
		Health:  handler.NewHealthHandler(natsClient),
		Cart:    handler.NewCartHandler(cartSvc, log),
		Chat:    handler.NewChatHandler(chatSvc, log),
		Catalog: handler.NewCatalogHandler(backendClient, cfg.ImageBasePath, cfg.DefaultImage, log),
		Widget:  handler.NewWidgetHandler(chatSvc, backendClient, cfg.SearchDebounce, log),
	}, log)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

// newLogger returns a colored console logger in development and JSON
// otherwise.
func newLogger(cfg *config.Config) (*logger.Logger, error) {
	if cfg.Environment == "development" {
		return logger.NewDevelopment()
	}
	return logger.NewWithOptions(logger.Options{
		Level: cfg.LogLevel,
		File:  cfg.LogFile,
	})
}

// openCartStorage selects the cart persistence backend.
func openCartStorage(ctx context.Context, cfg *config.Config, natsClient *natsclient.Client) (cart.Storage, func(), error) {
	noop := func() {}

	switch cfg.CartStorage {
	case "memory":
		return cart.NewMemoryStorage(), noop, nil
	case "sqlite":
		s, err := cart.OpenSQLite(ctx, cfg.CartSQLitePath)
		if err != nil {
			return nil, noop, err
		}
		return s, func() { s.Close() }, nil
	case "nats":
		s, err := natsclient.EnsureCartBucket(ctx, natsClient, cfg.NATSBucket)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	case "file", "":
		s, err := cart.NewFileStorage(cfg.CartFileDir)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown cart storage %q", cfg.CartStorage)
	}
}

// newAssistant selects who answers chat messages: the storefront backend's
// /chat endpoint or an LLM provider called directly.
func newAssistant(cfg *config.Config, backendClient *backend.Client, log *logger.Logger) (assistant.Client, error) {
	switch cfg.AssistantProvider {
	case "backend", "":
		return backendClient, nil
	case string(llm.ProviderAnthropic):
		client, err := llm.NewClient(llm.ProviderAnthropic, cfg.AnthropicAPIKey)
		if err != nil {
			return nil, err
		}
		return assistant.NewLLM(client, cfg.AssistantModel, log), nil
	case string(llm.ProviderOpenAI):
		client, err := llm.NewClient(llm.ProviderOpenAI, cfg.OpenAIAPIKey)
		if err != nil {
			return nil, err
		}
		return assistant.NewLLM(client, cfg.AssistantModel, log), nil
	default:
		return nil, fmt.Errorf("unknown assistant provider %q", cfg.AssistantProvider)
	}
}
