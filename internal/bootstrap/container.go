package bootstrap

import (
	"context"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"trusio/internal/adapters/ai"
	chclient "trusio/internal/adapters/clickhouse"
	"trusio/internal/adapters/config"
	errnoop "trusio/internal/adapters/errors/noop"
	"trusio/internal/adapters/errors/sentry"
	"trusio/internal/adapters/kafka"
	pgclient "trusio/internal/adapters/postgres"
	redisclient "trusio/internal/adapters/redis"
	"trusio/internal/agents"
	"trusio/internal/api"
	"trusio/internal/api/health"
	"trusio/internal/domain/budget"
	"trusio/internal/domain/conversation"
	"trusio/internal/domain/memory"
	"trusio/internal/domain/session"
	"trusio/internal/domain/toolstats"
	chrepo "trusio/internal/repository/clickhouse"
	pgrepo "trusio/internal/repository/postgres"
	redisrepo "trusio/internal/repository/redis"
	"trusio/internal/tools"
	"trusio/internal/tools/budgettool"
	"trusio/internal/tools/memorytool"
	"trusio/pkg/errors"
	"trusio/pkg/logger"
)

// Container holds the application's dependencies in initialization order.
type Container struct {
	Config       *config.Config
	Log          *logger.Logger
	ErrorTracker errors.Tracker

	// Infrastructure
	PG    *pgclient.Client
	CH    *chclient.Client
	Redis *redisclient.Client

	// Repositories
	Repos *Repositories

	// Domain services
	Conversation *conversation.Service
	Memory       *memory.Service

	// Runtime
	Provider     ai.Provider
	ToolRegistry *tools.Registry
	ToolExecutor *tools.Executor
	Catalog      *agents.Catalog
	Router       *agents.Router
	Cache        *agents.ContextCache
	Lifecycle    *agents.Lifecycle
	Runner       *agents.Runner
	Handoffs     *agents.HandoffCoordinator
	Orchestrator *agents.Orchestrator

	// Transport
	Producer   *kafka.Producer
	HTTPServer *api.Server

	WG      *sync.WaitGroup
	Context context.Context
	Cancel  context.CancelFunc
}

// Repositories groups the persistence implementations.
type Repositories struct {
	Budget       budget.Repository
	Conversation conversation.Repository
	Memory       memory.Repository
	Session      session.Repository
	ToolUsage    toolstats.Repository
}

// NewContainer creates an empty container.
func NewContainer() *Container {
	ctx, cancel := context.WithCancel(context.Background())
	return &Container{
		Repos:   &Repositories{},
		WG:      &sync.WaitGroup{},
		Context: ctx,
		Cancel:  cancel,
	}
}

// MustInit wires everything in dependency order, fail-fast.
func (c *Container) MustInit() {
	c.MustInitConfig()
	c.MustInitInfrastructure()
	c.MustInitRepositories()
	c.MustInitServices()
	c.MustInitRuntime()
	c.MustInitApplication()
}

// MustInitConfig loads configuration and initializes logging.
func (c *Container) MustInitConfig() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	c.Config = cfg

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	c.Log = logger.Get()
	c.Log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	c.ErrorTracker = provideErrorTracker(cfg, c.Log)
	logger.SetErrorTracker(c.ErrorTracker)
}

// MustInitInfrastructure connects the data stores.
func (c *Container) MustInitInfrastructure() {
	var err error

	c.Log.Info("Connecting to PostgreSQL...")
	c.PG, err = pgclient.NewClient(c.Config.Postgres)
	if err != nil {
		c.Log.Fatalf("failed to connect postgres: %v", err)
	}
	c.Log.Info("✓ PostgreSQL connected")

	c.Log.Info("Connecting to Redis...")
	c.Redis, err = redisclient.NewClient(c.Config.Redis)
	if err != nil {
		c.Log.Fatalf("failed to connect redis: %v", err)
	}
	c.Log.Info("✓ Redis connected")

	if c.Config.ClickHouse.Enabled {
		c.Log.Info("Connecting to ClickHouse...")
		c.CH, err = chclient.NewClient(c.Config.ClickHouse)
		if err != nil {
			c.Log.Fatalf("failed to connect clickhouse: %v", err)
		}
		c.Log.Info("✓ ClickHouse connected")
	} else {
		c.Log.Info("ClickHouse disabled, tool usage analytics off")
	}

	if c.Config.Kafka.Enabled {
		c.Producer = kafka.NewProducer(kafka.ProducerConfig{Brokers: c.Config.Kafka.Brokers})
		c.Log.Info("✓ Kafka producer configured")
	} else {
		c.Log.Info("Kafka disabled, event publishing off")
	}
}

// MustInitRepositories builds the persistence layer.
func (c *Container) MustInitRepositories() {
	db := c.PG.DB()
	c.Repos.Budget = pgrepo.NewBudgetRepository(db)
	c.Repos.Conversation = pgrepo.NewConversationRepository(db)
	c.Repos.Memory = pgrepo.NewMemoryRepository(db)
	c.Repos.Session = redisrepo.NewSessionRepository(c.Redis.Client())
	if c.CH != nil {
		c.Repos.ToolUsage = chrepo.NewToolUsageRepository(c.CH.Conn())
	}
	c.Log.Info("✓ Repositories initialized")
}

// MustInitServices builds the domain services.
func (c *Container) MustInitServices() {
	c.Conversation = conversation.NewService(c.Repos.Conversation)
	c.Memory = memory.NewService(c.Repos.Memory, memory.Options{
		MaxInsights:  c.Config.Memory.MaxInsights,
		FocusWindow:  c.Config.Memory.FocusWindow,
		HistoryLimit: c.Config.Memory.HistoryLimit,
	})
	if c.Producer != nil {
		c.Memory.SetPublisher(c.Producer)
	}
	c.Log.Info("✓ Domain services initialized")
}

// MustInitRuntime wires the tool catalog, the agent catalog, and the
// orchestration runtime, then freezes both catalogs.
func (c *Container) MustInitRuntime() {
	cfg := c.Config.Agents

	c.Provider = provideAIProvider(c.Config, c.Log)

	c.ToolRegistry = tools.NewRegistry()
	if err := budgettool.RegisterAll(c.ToolRegistry, c.Repos.Budget); err != nil {
		c.Log.Fatalf("failed to register budget tools: %v", err)
	}
	if err := memorytool.RegisterAll(c.ToolRegistry, c.Memory); err != nil {
		c.Log.Fatalf("failed to register memory tools: %v", err)
	}
	c.ToolRegistry.Freeze()
	c.ToolExecutor = tools.NewExecutor(c.ToolRegistry, cfg.ToolTimeout, c.Repos.ToolUsage)
	c.Log.Infof("✓ Tool catalog frozen with %d tools", len(c.ToolRegistry.Names()))

	c.Catalog = agents.NewCatalog()
	for _, def := range agents.Builtin() {
		if err := c.Catalog.Register(def); err != nil {
			c.Log.Fatalf("failed to register agent: %v", err)
		}
	}
	if err := c.Catalog.Freeze(c.ToolRegistry); err != nil {
		c.Log.Fatalf("agent catalog validation failed: %v", err)
	}

	c.Router = agents.NewRouter(c.Catalog, agents.DefaultRules(), cfg.DefaultAgent, cfg.RouterMinConfidence)
	if err := c.Router.Validate(); err != nil {
		c.Log.Fatalf("router validation failed: %v", err)
	}

	c.Cache = agents.NewContextCache(c.Repos.Budget, c.Conversation, c.Memory, agents.ContextCacheOptions{
		Size:        cfg.ContextCacheSize,
		TTL:         cfg.ContextTTL,
		HistorySize: cfg.ContextHistorySize,
		Sweep:       cfg.ContextSweep,
	})
	c.Lifecycle = agents.NewLifecycle(cfg.ExecutionTimeout, cfg.LifecycleSweep)
	c.Runner = agents.NewRunner(c.Provider, c.ToolExecutor, c.Cache, c.Lifecycle, cfg.MaxTurns)

	var publisher agents.EventPublisher
	if c.Producer != nil {
		publisher = c.Producer
	}
	c.Handoffs = agents.NewHandoffCoordinator(
		c.Catalog, c.Runner, c.Conversation, c.Repos.Session, publisher,
		cfg.MaxHandoffDepth, cfg.HandoffCarryTurns, c.Config.Redis.SessionTTL,
	)

	c.Orchestrator = agents.NewOrchestrator(agents.OrchestratorDeps{
		Catalog:         c.Catalog,
		Registry:        c.ToolRegistry,
		Executor:        c.ToolExecutor,
		Router:          c.Router,
		Cache:           c.Cache,
		Handoffs:        c.Handoffs,
		Lifecycle:       c.Lifecycle,
		Runner:          c.Runner,
		Conv:            c.Conversation,
		Sessions:        c.Repos.Session,
		Publisher:       publisher,
		SessionTTL:      c.Config.Redis.SessionTTL,
		EscalationAgent: cfg.EscalationAgent,
	})
	c.Log.Info("✓ Orchestration runtime initialized")
}

// MustInitApplication builds the HTTP surface.
func (c *Container) MustInitApplication() {
	chConn := driverConnOrNil(c.CH)
	healthHandler := health.New(c.PG.DB(), chConn, c.Redis.Client(),
		c.Config.App.Name, c.Config.Server.Version)

	c.HTTPServer = api.NewServer(api.ServerConfig{
		Port:        c.Config.Server.Port,
		ServiceName: c.Config.App.Name,
		Version:     c.Config.Server.Version,
	}, api.NewHandlers(c.Orchestrator), healthHandler)
}

// Start launches the background loops and the HTTP server.
func (c *Container) Start() error {
	c.Cache.StartSweep()
	c.Lifecycle.Start()

	c.WG.Add(1)
	go func() {
		defer c.WG.Done()
		if err := c.HTTPServer.Start(); err != nil {
			c.Log.Errorf("http server: %v", err)
			c.Cancel()
		}
	}()

	c.Log.Info("All systems started")
	return nil
}

// Shutdown stops everything in reverse order, draining in-flight work.
func (c *Container) Shutdown(timeout time.Duration) {
	c.Log.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := c.HTTPServer.Shutdown(ctx); err != nil {
		c.Log.Warnf("http shutdown: %v", err)
	}

	c.Lifecycle.Stop()
	c.Cache.Stop()
	c.Cancel()
	c.WG.Wait()

	if c.Producer != nil {
		if err := c.Producer.Close(); err != nil {
			c.Log.Warnf("kafka close: %v", err)
		}
	}
	if c.CH != nil {
		if err := c.CH.Close(); err != nil {
			c.Log.Warnf("clickhouse close: %v", err)
		}
	}
	if err := c.Redis.Close(); err != nil {
		c.Log.Warnf("redis close: %v", err)
	}
	if err := c.PG.Close(); err != nil {
		c.Log.Warnf("postgres close: %v", err)
	}

	if err := c.ErrorTracker.Flush(ctx); err != nil {
		c.Log.Warnf("error tracker flush: %v", err)
	}
	c.Log.Info("Shutdown complete")
}

func driverConnOrNil(client *chclient.Client) driver.Conn {
	if client == nil {
		return nil
	}
	return client.Conn()
}

func provideErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return errnoop.New()
	}
	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return errnoop.New()
	}
	log.Info("✓ Error tracking initialized (Sentry)")
	return tracker
}

func provideAIProvider(cfg *config.Config, log *logger.Logger) ai.Provider {
	if cfg.AI.Provider == "static" || cfg.AI.OpenAIKey == "" {
		log.Warn("Using static AI provider; set OPENAI_API_KEY for live responses")
		return ai.NewStaticProvider("")
	}
	provider, err := ai.NewOpenAIProvider(ai.OpenAIConfig{
		APIKey:        cfg.AI.OpenAIKey,
		Model:         cfg.AI.Model,
		Timeout:       cfg.AI.Timeout,
		RatePerMinute: cfg.AI.RatePerMinute,
		RateBurst:     cfg.AI.RateBurst,
	})
	if err != nil {
		log.Fatalf("failed to init openai provider: %v", err)
	}
	log.Infof("✓ AI provider ready (%s)", provider.Name())
	return provider
}
