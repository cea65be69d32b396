package http

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"StoreSupport/internal/config"
	jwtMiddleware "StoreSupport/internal/middleware/jwt"
	conversationService "StoreSupport/internal/modules/conversation/application/service"
	"StoreSupport/internal/modules/conversation/domain/escalation"
	"StoreSupport/internal/modules/conversation/infrastructure/llm"
	conversationPersistence "StoreSupport/internal/modules/conversation/infrastructure/persistence"
	"StoreSupport/internal/modules/conversation/infrastructure/pipeline"
	conversationHandler "StoreSupport/internal/modules/conversation/interface/http"
	helpdeskService "StoreSupport/internal/modules/helpdesk/application/service"
	"StoreSupport/internal/modules/helpdesk/infrastructure/cache"
	"StoreSupport/internal/modules/helpdesk/infrastructure/client"
	"StoreSupport/internal/modules/helpdesk/infrastructure/mq"
	"StoreSupport/internal/modules/helpdesk/infrastructure/mq/kafka"
	helpdeskPersistence "StoreSupport/internal/modules/helpdesk/infrastructure/persistence"
	"StoreSupport/internal/modules/helpdesk/infrastructure/queue"
	helpdeskHandler "StoreSupport/internal/modules/helpdesk/interface/http"
	"StoreSupport/internal/modules/helpdesk/interface/scheduler"
	storefrontService "StoreSupport/internal/modules/storefront/application/service"
	storefrontPersistence "StoreSupport/internal/modules/storefront/infrastructure/persistence"
	"StoreSupport/internal/modules/storefront/infrastructure/tools"
	storefrontHandler "StoreSupport/internal/modules/storefront/interface/http"
	"StoreSupport/internal/modules/storefront/interface/mcpserver"
	"StoreSupport/pkg/metrics"
	"StoreSupport/pkg/redis"
	"StoreSupport/pkg/ssl"
	"StoreSupport/pkg/util"
	"StoreSupport/pkg/ws"
	"StoreSupport/pkg/zlog"

	cors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Server HTTP 路由与后台任务（outbox relay、副作用消费、调查调度）
type Server struct {
	GE *gin.Engine

	relay     *queue.OutboxRelay
	worker    *queue.SideEffectWorker
	surveys   *scheduler.SurveyScheduler
	publisher mq.Publisher
	consumer  mq.Consumer

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Deps struct {
	Conf   *config.Config
	DB     *gorm.DB
	Redis  *redis.Client
	Models *llm.Models
	Clock  util.Clock
}

func NewServer(deps Deps) (*Server, error) {
	conf := deps.Conf
	if conf == nil || deps.DB == nil || deps.Models == nil {
		return nil, errors.New("config, db and models are required")
	}
	if deps.Clock == nil {
		deps.Clock = util.SystemClock()
	}
	db := deps.DB

	GE := gin.New()
	GE.Use(gin.Recovery(), metrics.GinMiddleware())
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", conf.HelpdeskConfig.SignatureHeader}
	GE.Use(cors.New(corsConfig))
	if conf.MainConfig.ForceTLS {
		GE.Use(ssl.TlsHandler(conf.MainConfig.Host, conf.MainConfig.Port))
	}

	wsHub := ws.NewHub()

	// storefront
	orgRepo := storefrontPersistence.NewOrganizationRepository(db)
	customerRepo := storefrontPersistence.NewCustomerRepository(db)
	orderRepo := storefrontPersistence.NewOrderRepository(db)
	cartRepo := storefrontPersistence.NewCartRepository(db)
	catalogRepo := storefrontPersistence.NewCatalogRepository(db)
	knowledgeRepo := storefrontPersistence.NewKnowledgeRepository(db)

	contextSvc := storefrontService.NewContextService(storefrontService.ContextRepos{
		Orgs:      orgRepo,
		Customers: customerRepo,
		Orders:    orderRepo,
		Carts:     cartRepo,
		Catalog:   catalogRepo,
		Knowledge: knowledgeRepo,
	}, conf.ContextConfig, deps.Clock)
	enrichSvc := storefrontService.NewEnrichService(customerRepo, orderRepo, conf.ContextConfig, deps.Clock)
	agentViewSvc := storefrontService.NewAgentViewService(contextSvc, customerRepo, catalogRepo, deps.Clock)
	registry := tools.NewRegistry(tools.Deps{Orders: orderRepo, Orgs: orgRepo, Catalog: catalogRepo})

	// helpdesk
	accountRepo := helpdeskPersistence.NewAccountMappingRepository(db)
	mirrorRepo := helpdeskPersistence.NewMirrorRepository(db)
	outboxRepo := helpdeskPersistence.NewOutboxRepository(db)
	surveyRepo := helpdeskPersistence.NewSurveyRepository(db)
	uow := helpdeskPersistence.NewHelpdeskUnitOfWork(db)
	helpdeskClient := client.NewClient(conf.HelpdeskConfig)

	s := &Server{GE: GE}
	if err := s.initBus(conf.KafkaConfig); err != nil {
		return nil, err
	}
	s.relay = queue.NewOutboxRelay(outboxRepo, s.publisher, conf.KafkaConfig.EventTopic, 100, time.Second)

	// conversation
	sessionRepo := conversationPersistence.NewSessionRepository(db)
	sessionSvc := conversationService.NewSessionService(sessionRepo, deps.Clock)
	evaluator := escalation.NewEvaluator(escalation.DefaultRules(conf.ConfidenceConfig.Threshold, conf.EscalationConfig)...)
	pipe, err := pipeline.NewDialoguePipeline(pipeline.DialogueDeps{
		Sessions:  sessionRepo,
		Context:   contextSvc,
		Tools:     registry,
		Models:    deps.Models,
		Scorer:    escalation.NewScorer(conf.ConfidenceConfig),
		Evaluator: evaluator,
		Clock:     deps.Clock,
	}, conf.AIConfig.Dialogue)
	if err != nil {
		return nil, fmt.Errorf("build dialogue pipeline: %w", err)
	}

	handoffSvc := helpdeskService.NewHandoffService(outboxRepo, s.relay, wsHub, conf.EscalationConfig.NotifyOnEscalation)
	chatSvc := conversationService.NewChatService(pipe, conf.AIConfig.Dialogue, handoffSvc)

	reconciler := helpdeskService.NewReconcilerService(helpdeskService.ReconcilerDeps{
		Accounts: accountRepo,
		UoW:      uow,
		Sessions: sessionSvc,
		Dedup:    cache.NewWebhookDedup(deps.Redis),
		Relay:    s.relay,
		Clock:    deps.Clock,
	}, conf.HelpdeskConfig)
	sideEffects := helpdeskService.NewSideEffectService(helpdeskService.SideEffectDeps{
		Accounts:  accountRepo,
		Mirrors:   mirrorRepo,
		Surveys:   surveyRepo,
		Customers: customerRepo,
		Enrich:    enrichSvc,
		Sessions:  sessionSvc,
		Client:    helpdeskClient,
		Notifier:  wsHub,
		Clock:     deps.Clock,
	}, conf.HelpdeskConfig)
	s.worker = queue.NewSideEffectWorker(s.consumer, outboxRepo, sideEffects)
	s.surveys = scheduler.NewSurveyScheduler(helpdeskService.NewSurveyService(surveyRepo, mirrorRepo, helpdeskClient, deps.Clock), conf.HelpdeskConfig.SurveyCron)

	chatH := conversationHandler.NewChatHandler(chatSvc)
	transcriptH := conversationHandler.NewTranscriptHandler(sessionSvc)
	wsH := conversationHandler.NewWsHandler(wsHub, conf.JwtConfig.Key)
	webhookH := helpdeskHandler.NewWebhookHandler(reconciler, conf.HelpdeskConfig.SignatureHeader)
	agentH := storefrontHandler.NewAgentContextHandler(agentViewSvc, helpdeskService.NewAccountService(accountRepo))

	GE.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
	GE.GET("/metrics", metrics.Handler())
	GE.POST("/support/chat", chatH.Chat)
	GE.POST("/webhooks/helpdesk", webhookH.Receive)
	GE.GET("/support/agent/ws", wsH.Connect)

	authed := GE.Group("/support/agent")
	authed.Use(jwtMiddleware.Auth(conf.JwtConfig.Key))
	authed.GET("/context", agentH.Context)
	authed.GET("/sessions/:token/messages", transcriptH.Messages)
	if conf.MCPConfig.Enabled {
		toolServer := mcpserver.NewToolServer(mcpserver.ServerConfig{Name: conf.MCPConfig.Name, Version: conf.MCPConfig.Version}, registry, contextSvc)
		mcpHTTP := toolServer.HTTPHandler()
		authed.Any("/mcp", func(c *gin.Context) {
			c.Request = c.Request.WithContext(mcpserver.WithOrg(c.Request.Context(), c.GetString(jwtMiddleware.CtxOrgID)))
			mcpHTTP.ServeHTTP(c.Writer, c.Request)
		})
	}

	return s, nil
}

// initBus 配置了 brokers 时走 Kafka，否则使用进程内总线
func (s *Server) initBus(kc config.KafkaConfig) error {
	if len(kc.Brokers) == 0 {
		bus := mq.NewLocalBus(256)
		s.publisher, s.consumer = bus, bus
		zlog.Info("kafka 未配置，副作用事件使用进程内投递")
		return nil
	}
	if err := kafka.EnsureTopic(kafka.TopicAdminConfig{Brokers: kc.Brokers, ClientID: kc.ClientID}, kc.EventTopic, 3, 1); err != nil {
		zlog.Warn("ensure kafka topic failed", zap.String("topic", kc.EventTopic), zap.Error(err))
	}
	pub, err := kafka.NewSaramaPublisher(kafka.PublisherConfig{Brokers: kc.Brokers, ClientID: kc.ClientID})
	if err != nil {
		return fmt.Errorf("kafka publisher: %w", err)
	}
	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:  kc.Brokers,
		GroupID:  kc.ConsumerGroupID,
		Topics:   []string{kc.EventTopic},
		ClientID: kc.ClientID,
	})
	if err != nil {
		_ = pub.Close()
		return fmt.Errorf("kafka consumer: %w", err)
	}
	s.publisher, s.consumer = pub, consumer
	return nil
}

// StartBackground 启动 relay、消费者与调查调度
func (s *Server) StartBackground() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		if err := s.relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			zlog.Error("outbox relay stopped", zap.Error(err))
		}
	}()
	go func() {
		defer s.wg.Done()
		if err := s.worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			zlog.Error("side effect worker stopped", zap.Error(err))
		}
	}()
	return s.surveys.Start()
}

func (s *Server) Shutdown() {
	if s.surveys != nil {
		s.surveys.Stop()
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.consumer != nil {
		_ = s.consumer.Close()
	}
	s.wg.Wait()
	if s.publisher != nil {
		_ = s.publisher.Close()
	}
}
