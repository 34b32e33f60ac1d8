package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/nestling-app/nestling-api/internal/config"
	"github.com/nestling-app/nestling-api/internal/database"
	"github.com/nestling-app/nestling-api/internal/handlers"
	"github.com/nestling-app/nestling-api/internal/logger"
	"github.com/nestling-app/nestling-api/internal/middleware"
	"github.com/nestling-app/nestling-api/internal/prompt"
	"github.com/nestling-app/nestling-api/internal/queue"
	"github.com/nestling-app/nestling-api/internal/services/chat"
	"github.com/nestling-app/nestling-api/internal/services/insight"
	"github.com/nestling-app/nestling-api/internal/services/llm"
	"github.com/nestling-app/nestling-api/internal/services/speech"
	"github.com/nestling-app/nestling-api/internal/telemetry"
	"github.com/nestling-app/nestling-api/internal/timeutil"
	"github.com/nestling-app/nestling-api/internal/tracing"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	timeutil.SetDefaultZone(cfg.DefaultTimezone)

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = zapLogger.Sync()
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.String("default_provider", cfg.DefaultProvider),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	ctx := context.Background()

	// OpenTelemetry if enabled
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(ctx, "nestling-api", cfg.OTELEndpoint)
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_database")

	redisLimiter, err := middleware.NewRedisRateLimiter(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	defer func() {
		if err := redisLimiter.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_redis")

	// RabbitMQ is optional: without it runs are simply not exported.
	var jobQueue queue.JobQueue
	var reporter tracing.Reporter = tracing.NopReporter{}
	if cfg.RabbitMQURL != "" {
		jobQueue = connectRabbitMQ(cfg.RabbitMQURL, zapLogger)
		defer func() {
			if err := jobQueue.Close(); err != nil {
				zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
			}
		}()
		reporter = tracing.NewQueueReporter(jobQueue, cfg.TraceProject)
	} else {
		zapLogger.Info("trace_export_disabled")
	}

	// Repositories
	profileRepo := database.NewProfileRepository(db)
	eventRepo := database.NewEventRepository(db)
	chatRepo := database.NewChatRepository(db)
	corsConfigRepo := database.NewCorsConfigRepository(db)
	ratelimitConfigRepo := database.NewRatelimitConfigRepository(db)

	// Model providers
	if !cfg.HasProviderKey() {
		zapLogger.Warn("no_provider_keys_configured_model_features_will_fail")
	}
	router := llm.NewRouter(cfg.DefaultProvider, reporter, zapLogger)
	if cfg.OpenAIKey != "" {
		router.Register(llm.NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, zapLogger, debugMode))
	}
	if cfg.AnthropicKey != "" {
		router.Register(llm.NewAnthropicProvider(cfg.AnthropicKey, cfg.AnthropicModel, zapLogger, debugMode))
	}
	if cfg.GoogleKey != "" {
		google, err := llm.NewGoogleProvider(ctx, cfg.GoogleKey, cfg.GoogleModel, zapLogger, debugMode)
		if err != nil {
			zapLogger.Warn("failed_to_create_google_provider", zap.Error(err))
		} else {
			router.Register(google)
		}
	}

	// Services
	renderer := prompt.NewRenderer()
	chatEngine := chat.NewEngine(chatRepo, profileRepo, eventRepo, renderer, router, zapLogger)
	insightService := insight.NewService(profileRepo, eventRepo, renderer, router, zapLogger)

	var speechService *speech.Service
	if cfg.OpenAIKey != "" {
		speechService = speech.NewService(cfg.OpenAIKey, cfg.TranscriptionModel, cfg.EvaluationModel, zapLogger, debugMode)
	} else {
		zapLogger.Warn("transcription_disabled_no_openai_key")
	}

	// Handlers
	profileHandler := handlers.NewProfileHandler(profileRepo)
	eventHandler := handlers.NewEventHandler(eventRepo)
	chatHandler := handlers.NewChatHandler(chatEngine, zapLogger)
	insightHandler := handlers.NewInsightHandler(insightService, zapLogger)
	healthChecker := handlers.NewHealthChecker(db, jobQueue)

	r := mux.NewRouter()

	// Middleware. gorilla/mux runs these in registration order, so the
	// outermost concerns register first.
	if cfg.OTELEnabled {
		r.Use(otelmux.Middleware("nestling-api"))
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))

	corsReloader := middleware.NewCORSReloader(corsConfigRepo, cfg.FrontendURL, zapLogger, 1*time.Minute)
	r.Use(corsReloader.Middleware())

	rateLimitReloader := middleware.NewRateLimitReloader(redisLimiter.Client(), ratelimitConfigRepo, "", zapLogger, 1*time.Minute)
	rateLimitMW := rateLimitReloader.Middleware()

	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(middleware.DefaultRequestTimeout))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Logging(zapLogger))

	// Health check is unmetered.
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")

	openAPIHandler := handlers.NewOpenAPIHandler(cfg.OpenAPISpecPath)
	openAPIHandler.RegisterRoutes(r)

	apiRouter := r.PathPrefix("/api/v1").Subrouter()

	profilesRouter := apiRouter.PathPrefix("/profiles").Subrouter()
	profilesRouter.Use(rateLimitMW)
	profilesRouter.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	profileHandler.RegisterRoutes(profilesRouter)
	eventHandler.RegisterProfileRoutes(profilesRouter)
	chatHandler.RegisterProfileRoutes(profilesRouter)
	insightHandler.RegisterRoutes(profilesRouter)

	eventsRouter := apiRouter.PathPrefix("/events").Subrouter()
	eventsRouter.Use(rateLimitMW)
	eventsRouter.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	eventHandler.RegisterEventRoutes(eventsRouter)

	chatsRouter := apiRouter.PathPrefix("/chats").Subrouter()
	chatsRouter.Use(rateLimitMW)
	chatsRouter.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	chatHandler.RegisterChatRoutes(chatsRouter)

	// Audio payloads arrive base64-encoded in JSON and need a larger cap.
	if speechService != nil {
		transcriptionHandler := handlers.NewTranscriptionHandler(speechService, zapLogger)
		transcriptionsRouter := apiRouter.PathPrefix("/transcriptions").Subrouter()
		transcriptionsRouter.Use(rateLimitMW)
		transcriptionsRouter.Use(middleware.MaxRequestSize(middleware.AudioMaxRequestSize))
		transcriptionHandler.RegisterRoutes(transcriptionsRouter)
	}

	// Catch-all OPTIONS handler so preflight requests succeed on every route.
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// CORS and rate limit hot-reload loops
	reloadCtx, reloadCancel := context.WithCancel(context.Background())
	defer reloadCancel()
	go corsReloader.Start(reloadCtx)
	go rateLimitReloader.Start(reloadCtx)

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	reloadCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Fatal("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

// connectRabbitMQ retries with exponential backoff to ride out broker
// startup delays.
func connectRabbitMQ(amqpURL string, zapLogger *zap.Logger) queue.JobQueue {
	const maxRetries = 10
	const initialDelay = 2 * time.Second

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		jobQueue, err := queue.NewRabbitMQQueue(amqpURL)
		if err == nil {
			zapLogger.Info("connected_to_rabbitmq")
			return jobQueue
		}

		lastErr = err
		delay := initialDelay * time.Duration(1<<uint(attempt))
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)
		time.Sleep(delay)
	}

	zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries",
		zap.Int("max_retries", maxRetries),
		zap.Error(lastErr),
	)
	return nil
}
