package bootstrap

import (
	"context"
	"log"
	"time"

	"blueprint-research-be/internal/config"
	"blueprint-research-be/internal/controller"
	"blueprint-research-be/internal/pkg/logger"
	"blueprint-research-be/internal/repository/memory"
	"blueprint-research-be/internal/repository/shared"
	"blueprint-research-be/internal/repository/unitofwork"
	"blueprint-research-be/internal/service"
	"blueprint-research-be/pkg/llm/factory"
	"blueprint-research-be/pkg/llm/gateway"
	"blueprint-research-be/pkg/llm/structured"
	"blueprint-research-be/pkg/metrics"
	pktNats "blueprint-research-be/pkg/nats"
	"blueprint-research-be/pkg/pipeline"
	"blueprint-research-be/pkg/prompt"
	"blueprint-research-be/pkg/scraper"
	"blueprint-research-be/pkg/search"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const inflightTTL = 30 * time.Minute

type Container struct {
	// Controllers
	ResearchController controller.IResearchController
	JourneyController  controller.IJourneyController
	HealthController   controller.IHealthController
	LogController      controller.ILogController

	// Background Services (Exposed for main.go to run)
	ChoiceLogService    service.IChoiceLogService
	JourneyAuditService service.IJourneyAuditService

	Logger   *logger.ZapLogger
	Registry *prometheus.Registry

	natsPub *pktNats.Publisher
	natsSub *pktNats.Subscriber
	rdb     *redis.Client
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	llmLogger := logger.NewIsolatedLogger(cfg.App.LlmLogFilePath)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(registry)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. LLM Gateway
	providerIDs := append(append([]string{}, cfg.Llm.FallbackChain...), cfg.Llm.VisionChain...)
	providers, err := factory.NewChain(context.Background(), providerIDs, factory.Credentials{
		GeminiAPIKey:    cfg.Keys.Gemini,
		OpenAIAPIKey:    cfg.Keys.OpenAI,
		AnthropicAPIKey: cfg.Keys.Anthropic,
		OllamaBaseURL:   cfg.Llm.OllamaBaseURL,
	})
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM providers: %v", err)
	}
	sysLogger.Info("BOOTSTRAP", "LLM chain ready", map[string]interface{}{
		"chain":        cfg.Llm.FallbackChain,
		"vision_chain": cfg.Llm.VisionChain,
	})

	llmGateway := gateway.NewGateway(
		gateway.Config{
			Chain:       cfg.Llm.FallbackChain,
			VisionChain: cfg.Llm.VisionChain,
			Persona:     prompt.Persona,
			Temperature: cfg.Llm.Temperature,
			MaxTokens:   cfg.Llm.MaxTokens,
			CallTimeout: cfg.Llm.CallTimeout,
		},
		providers,
		memory.NewCooldownRepository(cfg.Llm.Cooldown),
		service.NewLlmStateService(uowFactory),
		llmLogger,
		m,
	)
	validator := structured.NewValidator(llmGateway, llmLogger)

	// 4. External Data
	searcher := search.NewSearcher(search.Config{
		TavilyAPIKey: cfg.Keys.Tavily,
		SerperAPIKey: cfg.Keys.Serper,
	}, sysLogger)
	pageScraper := scraper.NewScraper(scraper.Config{
		JinaAPIKey: cfg.Keys.Jina,
	}, sysLogger)

	// 5. Services
	journeyService := service.NewJourneyService(uowFactory)
	cacheService := service.NewCacheService(uowFactory)
	choiceLogService := service.NewChoiceLogService(pubSub, uowFactory, sysLogger)

	orchestrator := pipeline.NewOrchestrator(
		journeyService,
		cacheService,
		searcher,
		pageScraper,
		validator,
		sysLogger,
		m,
	)
	orchestrator.SetChoiceRecorder(choiceLogService)

	// 6. Infrastructure
	c := &Container{
		ChoiceLogService: choiceLogService,
		Logger:           sysLogger,
		Registry:         registry,
	}

	var inflight service.InflightGuard = memory.NewInflightRepository()
	if cfg.App.DedupBackend == "redis" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{
				Addr: cfg.App.RedisURL,
			}
		}
		c.rdb = redis.NewClient(opt)
		if _, err := c.rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
		inflight = shared.NewInflightRepository(c.rdb, inflightTTL)
	}

	// A nil *Publisher must not end up inside the interface.
	var publisher service.EventPublisher
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			c.natsPub = natsPub
			publisher = natsPub
		}
		natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		} else {
			c.natsSub = natsSub
			c.JourneyAuditService = service.NewJourneyAuditService(natsSub, sysLogger)
		}
	}

	researchService := service.NewResearchService(
		orchestrator,
		journeyService,
		inflight,
		publisher,
		sysLogger,
		m,
	)

	// 7. Controllers
	c.ResearchController = controller.NewResearchController(researchService, sysLogger)
	c.JourneyController = controller.NewJourneyController(journeyService)
	c.HealthController = controller.NewHealthController()
	c.LogController = controller.NewLogController(sysLogger)

	return c
}

// Close releases the broker connections and flushes the logs.
func (c *Container) Close() {
	if c.natsSub != nil {
		c.natsSub.Close()
	}
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	if c.rdb != nil {
		if err := c.rdb.Close(); err != nil {
			log.Printf("[WARN] Failed to close Redis client: %v", err)
		}
	}
	_ = c.Logger.Sync()
}
