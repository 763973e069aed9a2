// Package server exposes the extraction pipeline over HTTP (gin) and an
// optional grpc.health.v1 endpoint.
package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/pdftoxl/internal/common"
	"github.com/joseph-ayodele/pdftoxl/internal/export"
	"github.com/joseph-ayodele/pdftoxl/internal/pipeline"
	"github.com/joseph-ayodele/pdftoxl/internal/templates"
)

const welcomeMessage = "Welcome to the PDF Extraction API!"

// extractPaths all serve the same multi-file extraction.
var extractPaths = []string{
	"/extract/",
	"/extract",
	"/generate-excel-multi/",
	"/generate-excel-multi",
}

// Server is the HTTP surface of the service.
type Server struct {
	router    *gin.Engine
	batch     *pipeline.Batch
	export    *export.Service
	catalog   *templates.Catalog
	logger    *slog.Logger
	origins   map[string]bool
	anyOrigin bool
	maxUpload int64
}

func New(cfg common.ServerConfig, batch *pipeline.Batch, exp *export.Service, catalog *templates.Catalog, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if catalog == nil {
		catalog = templates.Default()
	}
	if exp == nil {
		exp = export.NewService(logger)
	}
	s := &Server{
		router:    gin.New(),
		batch:     batch,
		export:    exp,
		catalog:   catalog,
		logger:    logger,
		origins:   make(map[string]bool, len(cfg.CORSOrigins)),
		maxUpload: cfg.MaxUploadBytes(),
	}
	for _, o := range cfg.CORSOrigins {
		if o == "*" {
			s.anyOrigin = true
		}
		s.origins[o] = true
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery(), s.requestID(), s.logRequests(), s.cors())

	s.router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": welcomeMessage})
	})
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	for _, p := range extractPaths {
		s.router.POST(p, s.extract)
	}
}

// Handler returns the router for use in an http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}
