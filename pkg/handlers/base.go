package handlers

import (
	"casewatch/pkg/analysis"
	"casewatch/pkg/command"
	"casewatch/pkg/config"
	"casewatch/pkg/dispatcher"
	"casewatch/pkg/logger"
	"casewatch/pkg/metrics"
	"casewatch/pkg/scheduler"
)

// HandlerService holds the shared dependencies for all HTTP handlers
type HandlerService struct {
	config     *config.Config
	manager    *scheduler.Manager
	store      *metrics.Store
	executor   *command.Executor
	dispatcher *dispatcher.Dispatcher
	engine     *analysis.RecommendationEngine
}

// NewHandlerService creates a new handler service
func NewHandlerService(cfg *config.Config, manager *scheduler.Manager, store *metrics.Store, disp *dispatcher.Dispatcher) *HandlerService {
	logger.Info("Initializing handler service")

	return &HandlerService{
		config:     cfg,
		manager:    manager,
		store:      store,
		executor:   command.NewExecutor(cfg, manager, store),
		dispatcher: disp,
		engine:     analysis.NewRecommendationEngine(),
	}
}
