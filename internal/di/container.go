package di

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ventia/api/internal/agents"
	"github.com/ventia/api/internal/handlers"
	"github.com/ventia/api/internal/platform/auth"
	"github.com/ventia/api/internal/platform/config"
	"github.com/ventia/api/internal/platform/idempotency"
	"github.com/ventia/api/internal/platform/llm"
	"github.com/ventia/api/internal/platform/observability"
	"github.com/ventia/api/internal/platform/redisx"
	platformsqlite "github.com/ventia/api/internal/platform/sqlite"
	"github.com/ventia/api/internal/platform/tts"
	"github.com/ventia/api/internal/repositories"
	sqliterepo "github.com/ventia/api/internal/repositories/sqlite"
	"github.com/ventia/api/internal/services"
)

// Services bundles the service-layer contracts that handlers and agents rely
// upon. Concrete implementations are assembled in NewContainer.
type Services struct {
	Sessions    services.SessionService
	Transcripts services.TranscriptService
	Catalog     services.CatalogService
	Orders      services.OrderService
	Comparison  services.ComparisonService
	Knowledge   services.KnowledgeService
	Users       services.UserService
	Scripts     services.ScriptService
}

// Container wires repositories, services, agents, and the HTTP router for
// runtime use.
type Container struct {
	Config       config.Config
	Logger       *zap.Logger
	Registry     repositories.Registry
	Services     Services
	Orchestrator *agents.Orchestrator
	Router       http.Handler

	redis *redis.Client
}

// NewContainer constructs the runtime dependencies from configuration.
func NewContainer(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		return nil, errors.New("di: logger is required")
	}
	clock := time.Now

	db, err := platformsqlite.Open(platformsqlite.Options{
		Path:        cfg.Database.Path,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("di: open database: %w", err)
	}
	if err := platformsqlite.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("di: migrate database: %w", err)
	}

	var redisClient *redis.Client
	if !cfg.Session.MemoryFallback {
		redisClient, err = redisx.New(ctx, redisx.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("di: connect redis: %w", err)
		}
	} else {
		logger.Warn("session memory fallback enabled, conversation state will not survive restarts")
	}

	registry, err := sqliterepo.NewRegistry(sqliterepo.RegistryDeps{
		DB:    db,
		Redis: redisClient,
		Clock: clock,
	})
	if err != nil {
		closeClients(db.Close, redisClient)
		return nil, fmt.Errorf("di: build registry: %w", err)
	}

	metrics, err := observability.NewMetrics()
	if err != nil {
		closeClients(registry.Close, redisClient)
		return nil, fmt.Errorf("di: build metrics: %w", err)
	}

	tokens, err := auth.NewTokenIssuer(auth.TokenIssuerDeps{
		Secret: cfg.Security.JWTSecret,
		TTL:    cfg.Security.TokenTTL,
		Clock:  clock,
	})
	if err != nil {
		closeClients(registry.Close, redisClient)
		return nil, fmt.Errorf("di: build token issuer: %w", err)
	}

	var llmClient llm.Client = llm.Disabled{}
	if cfg.AI.OpenAIAPIKey != "" {
		client, err := llm.NewOpenAIClient(llm.OpenAIDeps{
			APIKey: cfg.AI.OpenAIAPIKey,
			Model:  cfg.AI.Model,
		})
		if err != nil {
			closeClients(registry.Close, redisClient)
			return nil, fmt.Errorf("di: build llm client: %w", err)
		}
		llmClient = client
	} else {
		logger.Warn("no OpenAI key configured, classification and pitches fall back to keyword heuristics")
	}

	var synthesizer tts.Synthesizer = tts.Disabled{}
	if cfg.TTS.ElevenLabsAPIKey != "" && cfg.TTS.VoiceID != "" {
		client, err := tts.NewElevenLabsClient(tts.ElevenLabsDeps{
			APIKey:  cfg.TTS.ElevenLabsAPIKey,
			VoiceID: cfg.TTS.VoiceID,
			Timeout: cfg.TTS.Timeout,
		})
		if err != nil {
			closeClients(registry.Close, redisClient)
			return nil, fmt.Errorf("di: build tts client: %w", err)
		}
		synthesizer = client
	}

	svc, err := buildServices(cfg, registry, redisClient, clock, metrics, tokens, llmClient, synthesizer, logger)
	if err != nil {
		closeClients(registry.Close, redisClient)
		return nil, err
	}

	orchestrator, err := buildOrchestrator(cfg, svc, llmClient, clock, metrics, logger)
	if err != nil {
		closeClients(registry.Close, redisClient)
		return nil, err
	}

	router, err := buildRouter(cfg, svc, registry, redisClient, orchestrator, tokens, synthesizer, clock, logger)
	if err != nil {
		closeClients(registry.Close, redisClient)
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Logger:       logger,
		Registry:     registry,
		Services:     svc,
		Orchestrator: orchestrator,
		Router:       router,
		redis:        redisClient,
	}, nil
}

// Close releases the database handle and the redis connection.
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.Registry != nil {
		if err := c.Registry.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close registry: %w", err))
		}
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}

func closeClients(closeFn func() error, redisClient *redis.Client) {
	if closeFn != nil {
		_ = closeFn()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
}

func buildServices(
	cfg config.Config,
	registry repositories.Registry,
	redisClient *redis.Client,
	clock func() time.Time,
	metrics *observability.Metrics,
	tokens *auth.TokenIssuer,
	llmClient llm.Client,
	synthesizer tts.Synthesizer,
	logger *zap.Logger,
) (Services, error) {
	var svc Services

	if redisClient != nil {
		sessions, err := services.NewRedisSessionService(services.RedisSessionDeps{
			Client: redisClient,
			TTL:    cfg.Session.TTL,
			Clock:  clock,
		})
		if err != nil {
			return Services{}, fmt.Errorf("di: build session service: %w", err)
		}
		svc.Sessions = sessions
	} else {
		svc.Sessions = services.NewMemorySessionService(cfg.Session.TTL, clock)
	}

	transcripts, err := services.NewTranscriptService(services.TranscriptServiceDeps{
		Transcripts: registry.Transcripts(),
		Clock:       clock,
	})
	if err != nil {
		return Services{}, fmt.Errorf("di: build transcript service: %w", err)
	}
	svc.Transcripts = transcripts

	catalog, err := services.NewCatalogService(services.CatalogServiceDeps{
		Products: registry.Products(),
	})
	if err != nil {
		return Services{}, fmt.Errorf("di: build catalog service: %w", err)
	}
	svc.Catalog = catalog

	orders, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:  registry.Orders(),
		Metrics: metrics,
		Clock:   clock,
	})
	if err != nil {
		return Services{}, fmt.Errorf("di: build order service: %w", err)
	}
	svc.Orders = orders

	comparison, err := services.NewComparisonService(services.ComparisonServiceDeps{Clock: clock})
	if err != nil {
		return Services{}, fmt.Errorf("di: build comparison service: %w", err)
	}
	svc.Comparison = comparison

	knowledge, err := services.NewKnowledgeService(services.KnowledgeServiceDeps{
		Path:   cfg.Knowledge.CSVPath,
		Logger: logger.Named("knowledge"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("di: build knowledge service: %w", err)
	}
	svc.Knowledge = knowledge

	users, err := services.NewUserService(services.UserServiceDeps{
		Users:  registry.Users(),
		Tokens: tokens,
		Clock:  clock,
	})
	if err != nil {
		return Services{}, fmt.Errorf("di: build user service: %w", err)
	}
	svc.Users = users

	scripts, err := services.NewScriptService(services.ScriptServiceDeps{
		Sessions:    svc.Sessions,
		Transcripts: svc.Transcripts,
		Catalog:     svc.Catalog,
		Comparison:  svc.Comparison,
		Orders:      svc.Orders,
		LLM:         llmClient,
		TTS:         synthesizer,
		Timeout:     cfg.AI.GenerateTimeout,
		Logger:      logger.Named("scripts"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("di: build script service: %w", err)
	}
	svc.Scripts = scripts

	return svc, nil
}

func buildOrchestrator(
	cfg config.Config,
	svc Services,
	llmClient llm.Client,
	clock func() time.Time,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*agents.Orchestrator, error) {
	classifier, err := agents.NewClassifier(agents.ClassifierDeps{
		LLM:     llmClient,
		Timeout: cfg.AI.ClassifyTimeout,
		Logger:  logger.Named("classifier"),
	})
	if err != nil {
		return nil, fmt.Errorf("di: build classifier: %w", err)
	}

	retriever, err := agents.NewRetriever(agents.RetrieverDeps{
		Catalog:   svc.Catalog,
		Knowledge: svc.Knowledge,
	})
	if err != nil {
		return nil, fmt.Errorf("di: build retriever agent: %w", err)
	}

	sales, err := agents.NewSales(agents.SalesDeps{
		LLM:       llmClient,
		Knowledge: svc.Knowledge,
		Scripts:   svc.Scripts,
		Timeout:   cfg.AI.GenerateTimeout,
		Logger:    logger.Named("sales"),
	})
	if err != nil {
		return nil, fmt.Errorf("di: build sales agent: %w", err)
	}

	checkout, err := agents.NewCheckout(agents.CheckoutDeps{Orders: svc.Orders})
	if err != nil {
		return nil, fmt.Errorf("di: build checkout agent: %w", err)
	}

	orchestrator, err := agents.NewOrchestrator(agents.OrchestratorDeps{
		Sessions:    svc.Sessions,
		Transcripts: svc.Transcripts,
		Classifier:  classifier,
		Agents:      []agents.Agent{retriever, sales, checkout},
		Metrics:     metrics,
		Clock:       clock,
		Logger:      logger.Named("orchestrator"),
	})
	if err != nil {
		return nil, fmt.Errorf("di: build orchestrator: %w", err)
	}
	return orchestrator, nil
}

func buildRouter(
	cfg config.Config,
	svc Services,
	registry repositories.Registry,
	redisClient *redis.Client,
	orchestrator *agents.Orchestrator,
	tokens *auth.TokenIssuer,
	synthesizer tts.Synthesizer,
	clock func() time.Time,
	logger *zap.Logger,
) (http.Handler, error) {
	authHandlers, err := handlers.NewAuthHandlers(handlers.AuthHandlersDeps{Users: svc.Users, Clock: clock})
	if err != nil {
		return nil, fmt.Errorf("di: build auth handlers: %w", err)
	}
	chatHandlers, err := handlers.NewChatHandlers(handlers.ChatHandlersDeps{
		Engine:      orchestrator,
		Transcripts: svc.Transcripts,
		TTS:         synthesizer,
		Clock:       clock,
	})
	if err != nil {
		return nil, fmt.Errorf("di: build chat handlers: %w", err)
	}
	scriptHandlers, err := handlers.NewScriptHandlers(handlers.ScriptHandlersDeps{Scripts: svc.Scripts, Clock: clock})
	if err != nil {
		return nil, fmt.Errorf("di: build script handlers: %w", err)
	}
	productHandlers, err := handlers.NewProductHandlers(handlers.ProductHandlersDeps{Catalog: svc.Catalog, Clock: clock})
	if err != nil {
		return nil, fmt.Errorf("di: build product handlers: %w", err)
	}

	var idemStore idempotency.Store
	if redisClient != nil {
		store, err := idempotency.NewRedisStore(redisClient)
		if err != nil {
			return nil, fmt.Errorf("di: build idempotency store: %w", err)
		}
		idemStore = store
	} else {
		idemStore = idempotency.NewMemoryStore()
	}
	idemMiddleware := idempotency.Middleware(idemStore,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
		idempotency.WithLogger(observability.NewPrintfAdapter(logger.Named("idempotency"))),
		idempotency.WithClock(clock),
	)

	orderHandlers, err := handlers.NewOrderHandlers(handlers.OrderHandlersDeps{
		Orders:      svc.Orders,
		Idempotency: idemMiddleware,
	})
	if err != nil {
		return nil, fmt.Errorf("di: build order handlers: %w", err)
	}

	healthHandlers := handlers.NewHealthHandlers(handlers.HealthHandlersDeps{
		Health: registry.Health(),
		Clock:  clock,
	})

	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(logger),
			observability.TraceMiddleware(),
			observability.RequestLoggerMiddleware(),
			observability.RecoveryMiddleware(logger),
			auth.Middleware(tokens),
		),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithAuthRoutes(authHandlers.Routes),
		handlers.WithChatRoutes(chatHandlers.Routes),
		handlers.WithScriptRoutes(scriptHandlers.Routes),
		handlers.WithProductRoutes(productHandlers.Routes),
		handlers.WithOrderRoutes(orderHandlers.Routes),
	)
	return router, nil
}
