package api

import (
	"context"
	"errors"
	"net/http"

	"FxDesk/internal/domain/models"
	"FxDesk/internal/usecase"
	xhttp "FxDesk/pkg/http"
	"FxDesk/pkg/http/middleware"
	"FxDesk/pkg/logger"
	"FxDesk/pkg/queue"
	"FxDesk/pkg/util"

	"github.com/labstack/echo/v4"
)

// Analyzer is the analysis surface the handlers need.
type Analyzer interface {
	Info() models.Info
	APIConfigured() bool
	Analyze(ctx context.Context, req models.AnalyzeRequest, origin string) (models.FinalResult, error)
	Stream(ctx context.Context, req models.AnalyzeRequest, origin string, events chan<- models.StreamEvent) (models.FinalResult, error)
}

// Jobs submits and looks up asynchronous analyses.
type Jobs interface {
	Submit(ctx context.Context, req models.AnalyzeRequest) (models.JobState, error)
	Get(ctx context.Context, id string) (models.JobState, error)
}

// AnalysisHandler serves the health, info, analysis, streaming and job
// endpoints. jobs may be nil when the job queue is disabled.
type AnalysisHandler struct {
	log     *logger.Logger
	svc     Analyzer
	jobs    Jobs
	limiter middleware.Allower
	version string
}

func NewAnalysisHandler(log *logger.Logger, svc Analyzer, jobs Jobs, limiter middleware.Allower, version string) *AnalysisHandler {
	return &AnalysisHandler{
		log:     log,
		svc:     svc,
		jobs:    jobs,
		limiter: limiter,
		version: version,
	}
}

func (h *AnalysisHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Root)
	e.GET("/health", h.Health)
	e.GET("/info", h.Info)

	g := e.Group("/analyze", middleware.RateLimit(h.limiter))
	g.POST("", h.Analyze)
	g.POST("/stream", h.Stream)
	g.GET("/stream", h.Stream)
	g.GET("/ws", h.WebSocket)
	g.POST("/jobs", h.SubmitJob)
	g.GET("/jobs/:id", h.GetJob)
}

type healthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	APIConfigured bool   `json:"api_configured"`
}

func (h *AnalysisHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{
		Status:        "healthy",
		Version:       h.version,
		APIConfigured: h.svc.APIConfigured(),
	})
}

func (h *AnalysisHandler) Info(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Info())
}

func (h *AnalysisHandler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"name":    "FxDesk",
		"version": h.version,
		"endpoints": map[string]string{
			"health":  "/health",
			"info":    "/info",
			"analyze": "/analyze (POST)",
			"stream":  "/analyze/stream (POST or GET)",
			"ws":      "/analyze/ws (GET)",
			"jobs":    "/analyze/jobs (POST), /analyze/jobs/:id (GET)",
			"metrics": "/metrics",
		},
	})
}

// toAppError maps domain errors to HTTP errors.
func toAppError(err error) *xhttp.AppError {
	switch {
	case errors.Is(err, util.ErrUnknownInstrument):
		return xhttp.UnprocessableError("query", "could not identify an instrument in the query").WithError(err)
	case errors.Is(err, usecase.ErrInvalidRunOptions):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.Is(err, usecase.ErrJobNotFound):
		return xhttp.NotFoundError("job not found").WithError(err)
	case errors.Is(err, queue.ErrQueueFull), errors.Is(err, queue.ErrNotRunning):
		return xhttp.ServiceUnavailableError("job queue unavailable").WithError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.ServiceUnavailableError("analysis timed out").WithError(err)
	default:
		return xhttp.InternalError("analysis failed").WithError(err)
	}
}

func (h *AnalysisHandler) fail(c echo.Context, op string, err error) error {
	appErr := toAppError(err)
	if appErr.Status >= http.StatusInternalServerError {
		h.log.Error(op+" failed", logger.Error(err))
	} else {
		h.log.Debug(op+" rejected", logger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}
