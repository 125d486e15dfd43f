package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"crudforge/src/apidocs"
	"crudforge/src/directors"
	"crudforge/src/repository"
	"crudforge/src/schema"
	"crudforge/src/settings"
	"crudforge/src/storage"

	"github.com/gin-contrib/gzip"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const initializeTimeout = 30 * time.Second

// Server wires the loaded entity schemas to a running HTTP CRUD API.
type Server struct {
	config       *settings.Arguments
	store        *storage.MongoStore
	engine       *gin.Engine
	httpServer   *http.Server
	manager      *directors.ServiceManager
	repositories []repository.DocumentRepository
	docs         *apidocs.Definition
	logger       *zap.SugaredLogger
}

// InitServer builds the router, one repository/service/controller chain
// per entity, and the documentation endpoint.
func InitServer(config *settings.Arguments, store *storage.MongoStore, entities []*schema.EntityDefinition, logger *zap.SugaredLogger) (*Server, error) {
	if len(entities) == 0 {
		return nil, fmt.Errorf("no entities to serve")
	}

	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	desugared := logger.Desugar()
	engine.Use(ginzap.Ginzap(desugared, time.RFC3339, true))
	engine.Use(ginzap.RecoveryWithZap(desugared, true))
	engine.Use(CORSMiddleware(config.AllowedOrigin))
	engine.Use(ErrorHandler(logger))
	engine.NoRoute(NoRouteHandler())

	manager := directors.NewServiceManager(logger)
	server := &Server{
		config:  config,
		store:   store,
		engine:  engine,
		manager: manager,
		docs:    apidocs.Generate(entities, config.Version),
		logger:  logger,
	}

	api := engine.Group("/api", gzip.Gzip(gzip.DefaultCompression))
	api.GET("/docs", server.docsHandler)
	engine.GET("/health", server.healthHandler)

	for _, entity := range entities {
		repo := repository.NewMongoRepository(entity, store, logger)
		service := directors.NewEntityService(repo, logger)
		manager.Register(service)
		server.repositories = append(server.repositories, repo)

		controller := newEntityController(service, logger)
		controller.register(api.Group("/" + entity.Plural))

		logger.Infow("Registered entity routes",
			"entity", entity.Name,
			"basePath", entity.BasePath())
	}

	return server, nil
}

// Start initializes every repository (collections and unique indexes) and
// begins serving. Initialization is idempotent, so restarting against an
// existing database is safe.
func (s *Server) Start() error {
	ctx, cancel := context.WithTimeout(context.Background(), initializeTimeout)
	defer cancel()

	for _, repo := range s.repositories {
		if err := repo.Initialize(ctx); err != nil {
			return fmt.Errorf("error initializing repository for '%s': %w", repo.Entity().Name, err)
		}
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.engine,
	}

	s.logger.Infow("crudforge server listening", "addr", addr)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorw("HTTP server stopped unexpectedly", "error", err)
		}
	}()

	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down HTTP server: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

// Engine exposes the router for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) docsHandler(c *gin.Context) {
	data, err := s.docs.JSON()
	if err != nil {
		c.Error(err)
		return
	}
	c.Data(http.StatusOK, "application/json", data)
}

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		s.logger.Errorw("Health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, map[string]interface{}{"status": "down"})
		return
	}
	c.JSON(http.StatusOK, map[string]interface{}{"status": "up"})
}
