package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/leapstack-ai/sop-copilot-backend/internal/ai"
	chatbiz "github.com/leapstack-ai/sop-copilot-backend/internal/chat/biz"
	chatdata "github.com/leapstack-ai/sop-copilot-backend/internal/chat/data"
	"github.com/leapstack-ai/sop-copilot-backend/internal/chat/engine"
	chatservice "github.com/leapstack-ai/sop-copilot-backend/internal/chat/service"
	"github.com/leapstack-ai/sop-copilot-backend/internal/conf"
	"github.com/leapstack-ai/sop-copilot-backend/internal/data"
	docbiz "github.com/leapstack-ai/sop-copilot-backend/internal/document/biz"
	docdata "github.com/leapstack-ai/sop-copilot-backend/internal/document/data"
	docservice "github.com/leapstack-ai/sop-copilot-backend/internal/document/service"
	"github.com/leapstack-ai/sop-copilot-backend/internal/pkg/logger"
	"github.com/leapstack-ai/sop-copilot-backend/internal/server"
	sopbiz "github.com/leapstack-ai/sop-copilot-backend/internal/sop/biz"
	sopdata "github.com/leapstack-ai/sop-copilot-backend/internal/sop/data"
	sopservice "github.com/leapstack-ai/sop-copilot-backend/internal/sop/service"

	"go.uber.org/zap"
)

var (
	configFile = flag.String("config", "config.yaml", "config file path")
)

func main() {
	flag.Parse()

	// Load configuration
	config, err := conf.LoadConfig(*configFile)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger with config
	logConfig := &logger.Config{
		Level:            config.Log.Level,
		Format:           config.Log.Format,
		Output:           config.Log.Output,
		EnableCaller:     config.Log.EnableCaller,
		EnableStacktrace: config.Log.EnableStacktrace,
		File: logger.FileConfig{
			Filename:   config.Log.File.Filename,
			MaxSize:    config.Log.File.MaxSize,
			MaxAge:     config.Log.File.MaxAge,
			MaxBackups: config.Log.File.MaxBackups,
			Compress:   config.Log.File.Compress,
		},
	}

	log, err := logger.New(logConfig)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	// Initialize global logger
	if err := logger.InitGlobal(logConfig); err != nil {
		log.Fatal("failed to initialize global logger", zap.Error(err))
	}

	log.Info("config loaded successfully")

	// Initialize data layer
	d, cleanup, err := data.NewData(config, log.Logger)
	if err != nil {
		log.Fatal("failed to initialize data layer", zap.Error(err))
	}
	defer cleanup()

	// Initialize completion source
	source, err := ai.NewOpenAISource(config.AI.APIKey, config.AI.BaseURL)
	if err != nil {
		log.Fatal("failed to initialize completion source", zap.Error(err))
	}

	// Initialize repositories
	chatRepo := chatdata.NewChatRepo(d.DB)
	messageRepo := chatdata.NewMessageRepo(d.DB)
	sopRepo := sopdata.NewSOPRepo(d.DB)
	runRepo := sopdata.NewRunRepo(d.DB)
	documentRepo := docdata.NewDocumentRepo(d.DB)

	// Initialize use cases
	chatUseCase := chatbiz.NewChatUseCase(chatRepo, log.Logger)
	messageUseCase := chatbiz.NewMessageUseCase(messageRepo, chatRepo, log.Logger)
	sopUseCase := sopbiz.NewSOPUseCase(sopRepo)
	runUseCase := sopbiz.NewRunUseCase(runRepo, sopRepo)
	documentUseCase := docbiz.NewDocumentUseCase(documentRepo)
	stepDecider := sopbiz.NewStepDecider(source, config.AI.DecisionModel, log.Logger)

	// Seed built-in SOPs
	if err := sopUseCase.SeedBuiltins(context.Background()); err != nil {
		log.Fatal("failed to seed built-in SOPs", zap.Error(err))
	}

	// Initialize streaming engine
	dispatcher, err := engine.NewDispatcher(documentUseCase, sopUseCase, log.Logger)
	if err != nil {
		log.Fatal("failed to initialize tool dispatcher", zap.Error(err))
	}
	streamEngine := engine.NewEngine(source, dispatcher, log.Logger)

	turnUseCase := chatbiz.NewTurnUseCase(
		chatRepo,
		messageRepo,
		streamEngine,
		dispatcher,
		runUseCase,
		stepDecider,
		source,
		config.AI.Model,
		config.AI.TitleModel,
		log.Logger,
	)

	// Initialize services
	chatService := chatservice.NewChatService(chatUseCase, messageUseCase, turnUseCase, log.Logger)
	sopService := sopservice.NewSOPService(sopUseCase, runUseCase, log.Logger)
	documentService := docservice.NewDocumentService(documentUseCase, log.Logger)

	// Initialize server
	httpServer := server.NewHTTPServer(config, log, chatService, sopService, documentService)

	go func() {
		if err := httpServer.Start(); err != nil {
			log.Fatal("failed to start HTTP server", zap.Error(err))
		}
	}()

	log.Info("server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Stop(ctx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}
