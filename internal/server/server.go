// Package server exposes the upload/interpret/process/download surface over
// HTTP. Everything stateful lives behind the file store and the dispatcher;
// handlers only translate between wire payloads and core calls.
package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"voicepdf/internal/apperrors"
	"voicepdf/internal/cleanup"
	"voicepdf/internal/config"
	"voicepdf/internal/dispatch"
	"voicepdf/internal/filestore"
	"voicepdf/internal/models"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

type Server struct {
	store      *filestore.Store
	dispatcher *dispatch.Dispatcher
	scheduler  *cleanup.Scheduler
	settings   *config.Settings
	logger     *slog.Logger
}

func New(store *filestore.Store, dispatcher *dispatch.Dispatcher, scheduler *cleanup.Scheduler, settings *config.Settings, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:      store,
		dispatcher: dispatcher,
		scheduler:  scheduler,
		settings:   settings,
		logger:     logger,
	}
}

// Router assembles the gin engine with middleware and all routes.
func (s *Server) Router() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = s.settings.CORSOrigins
	corsCfg.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	engine.Use(cors.New(corsCfg))

	engine.Use(RateLimitMiddleware(RateLimitConfig{
		RequestsPerMinute: s.settings.RateLimitPerMinute,
		Burst:             s.settings.RateLimitBurst,
	}))

	engine.MaxMultipartMemory = s.settings.MaxUploadBytes

	api := engine.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.POST("/upload", s.handleUpload)
		api.POST("/interpret", s.handleInterpret)
		api.POST("/process", s.handleProcess)
		api.GET("/download/:handle", s.handleDownload)
		api.DELETE("/file/:handle", s.handleDelete)
	}
	return engine
}

// respondError maps the error taxonomy to HTTP statuses with a single
// human-readable message. Unexpected errors stay opaque.
func (s *Server) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := err.Error()

	switch {
	case apperrors.IsNotFound(err):
		status = http.StatusNotFound
	case apperrors.IsUnrecognized(err):
		status = http.StatusUnprocessableEntity
	case apperrors.IsInvalidParameters(err):
		status = http.StatusBadRequest
	case apperrors.IsValidation(err):
		status = http.StatusBadRequest
		if apperrors.IsPayloadTooLarge(err) {
			status = http.StatusRequestEntityTooLarge
		}
	case apperrors.IsProcessing(err):
		status = http.StatusBadGateway
	case apperrors.IsStorage(err):
		status = http.StatusInternalServerError
	default:
		message = "an unexpected error occurred, please try again"
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, models.ErrorResponse{Error: message})
}
