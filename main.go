package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"comms-service/internal/config"
	"comms-service/internal/db"
	"comms-service/internal/dispatcher"
	"comms-service/internal/handlers"
	"comms-service/internal/middleware"
	"comms-service/internal/observability"
	"comms-service/internal/officehours"
	"comms-service/internal/policy"
	"comms-service/internal/rabbitmq"
	"comms-service/internal/repositories"
	"comms-service/internal/safety"
	"comms-service/internal/telemetry"
	"comms-service/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Environment)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	shutdownTracing, err := telemetry.SetupTracing(context.Background(), "comms-service", cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatal("failed to set up tracing", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	database, err := db.Connect(cfg.DBDSN, logger)
	if err != nil {
		logger.Fatal("failed to connect to db", zap.Error(err))
	}
	defer database.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AuditExchange, logger)
	defer publisher.Close()
	logger.Info("event publisher ready", zap.String("mode", rabbitmq.Mode(publisher)))

	dirRepo := repositories.NewDirectoryRepo(database)
	convRepo := repositories.NewConversationRepo(database)
	msgRepo := repositories.NewMessageRepo(database)
	childMsgRepo := repositories.NewChildMessageRepo(database)
	hoursRepo := repositories.NewOfficeHoursRepo(database)

	gate := officehours.NewGate(hoursRepo)
	engine := policy.NewEngine(dirRepo, gate)
	filter := safety.NewFilter(cfg.SafetyThreshold)

	hub := ws.NewHub(logger)

	disp := dispatcher.New(engine, filter, convRepo, msgRepo, childMsgRepo, dirRepo, publisher, hub, logger, dispatcher.Config{
		ModerationRoutingKey:  cfg.ModerationRoutingKey,
		MirrorRetryRoutingKey: cfg.MirrorRetryRoutingKey,
		MirrorTimeout:         cfg.MirrorTimeout,
	})

	audit := telemetry.NewAuditEmitter(publisher, cfg.AuditRoutingKey, "comms-service", cfg.Environment, logger)

	messageHandler := handlers.NewMessageHandler(disp, dirRepo, audit, cfg.MaxMessageLength)
	conversationHandler := handlers.NewConversationHandler(convRepo, msgRepo)
	transparencyHandler := handlers.NewTransparencyHandler(childMsgRepo, dirRepo, audit)
	officeHoursHandler := handlers.NewOfficeHoursHandler(hoursRepo)

	conversationWS := ws.NewConversationWebSocketHandler(hub, convRepo, publisher, []byte(cfg.JWTSecret))

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("comms-service"))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := middleware.Auth([]byte(cfg.JWTSecret))

	router.POST("/messages", auth, messageHandler.Send)
	router.POST("/messages/precheck", auth, messageHandler.Precheck)

	router.GET("/conversations", auth, conversationHandler.List)
	router.GET("/conversations/:conversation_id/messages", auth, conversationHandler.GetMessages)
	router.POST("/conversations/:conversation_id/archive", auth, conversationHandler.Archive)

	router.GET("/children/:child_id/messages", auth, transparencyHandler.ListChildMessages)
	router.POST("/child-messages/:child_message_id/acknowledge", auth, transparencyHandler.Acknowledge)

	router.PUT("/teachers/:teacher_id/office-hours", auth, officeHoursHandler.Replace)
	router.GET("/teachers/:teacher_id/office-hours", auth, officeHoursHandler.Get)

	router.GET("/ws/conversations/:conversation_id", conversationWS.Handle)

	handlers.RegisterDebugRoutes(router, audit, cfg.DebugEndpoints)

	logger.Info("starting comms service", zap.String("port", cfg.Port), zap.String("env", cfg.Environment))
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func newLogger(environment string) (*zap.Logger, error) {
	if environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
