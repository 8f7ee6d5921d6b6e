// Package api exposes the discovery pipeline over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/eventscout-hub/event-discovery/common"
	"github.com/eventscout-hub/event-discovery/model"
	"github.com/eventscout-hub/event-discovery/orchestrator"
	"github.com/eventscout-hub/event-discovery/progress"
	"github.com/eventscout-hub/event-discovery/state"
)

const (
	readTimeout     = 15 * time.Second
	writeTimeout    = 90 * time.Second
	idleTimeout     = 60 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Server is the HTTP front of the discovery service.
type Server struct {
	engine *gin.Engine
	server *http.Server

	orch    *orchestrator.Orchestrator
	store   state.Store
	tracker *progress.Tracker
}

// NewServer wires the routes and returns a server listening on addr once
// Start is called.
func NewServer(addr string, orch *orchestrator.Orchestrator, store state.Store, tracker *progress.Tracker) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:  engine,
		orch:    orch,
		store:   store,
		tracker: tracker,
		server: &http.Server{
			Addr:         addr,
			Handler:      engine,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			IdleTimeout:  idleTimeout,
		},
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/health", s.health)

	group := s.engine.Group("/api")
	group.POST("/discover", s.discover)
	group.GET("/discover/progress", s.discoverProgress)
	group.GET("/events", s.listEvents)
	group.DELETE("/events", s.clearEvents)
}

// Engine exposes the router for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start blocks until the server is shut down.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and waits for background discovery
// continuations before returning.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	err := s.server.Shutdown(shutdownCtx)
	s.orch.WaitBackground()
	return err
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "event-discovery",
	})
}

func (s *Server) discover(c *gin.Context) {
	var req model.DiscoveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.City == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "city is required"})
		return
	}
	if len(req.Interests) == 0 {
		req.Interests = []string{model.DefaultInterest}
	}

	resp, err := s.orch.Run(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, common.ErrConfigMissing) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service not configured"})
			return
		}
		log.Error().Err(err).Str("city", req.City).Msg("Discovery run failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "discovery failed"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) discoverProgress(c *gin.Context) {
	c.JSON(http.StatusOK, s.tracker.Snapshot())
}

func (s *Server) listEvents(c *gin.Context) {
	events, err := s.store.ListEvents(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list events")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list events"})
		return
	}
	if events == nil {
		events = []model.ExtractedEvent{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}

func (s *Server) clearEvents(c *gin.Context) {
	if err := s.store.ClearEvents(c.Request.Context()); err != nil {
		log.Error().Err(err).Msg("Failed to clear events")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear events"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}
