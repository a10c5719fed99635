package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/po-digitizer/internal/async"
	"github.com/joseph-ayodele/po-digitizer/internal/common"
	"github.com/joseph-ayodele/po-digitizer/internal/core"
	"github.com/joseph-ayodele/po-digitizer/internal/entity"
	"github.com/joseph-ayodele/po-digitizer/internal/export"
	"github.com/joseph-ayodele/po-digitizer/internal/ingest"
	"github.com/joseph-ayodele/po-digitizer/internal/repository"
)

// DocumentProcessor structures documents synchronously.
type DocumentProcessor interface {
	ProcessFile(ctx context.Context, path string, langs []string) (*core.Outcome, error)
	ProcessInput(ctx context.Context, in entity.OCRInput) (*core.Outcome, error)
}

// Deps are the collaborators behind the HTTP surface. Queue, Results,
// Ingestor and DB may be nil; the routes that need them answer 503.
type Deps struct {
	Processor DocumentProcessor
	Queue     async.Queue
	Results   repository.ResultRepository
	Exporter  *export.Service
	Ingestor  ingest.Ingestor
	DB        *repository.DB
}

type Options struct {
	UploadDir      string
	MaxUploadBytes int64
	RequestTimeout time.Duration
}

type Server struct {
	deps   Deps
	opts   Options
	logger *slog.Logger
}

func New(deps Deps, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.UploadDir == "" {
		opts.UploadDir = "./tmp/uploads"
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 20 << 20
	}
	if deps.Exporter == nil {
		deps.Exporter = export.NewService(deps.Results, logger)
	}
	return &Server{deps: deps, opts: opts, logger: logger}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestContext())
	router.MaxMultipartMemory = s.opts.MaxUploadBytes

	router.GET("/health", s.Health)

	api := router.Group("/api/v1")
	{
		api.POST("/documents/structure", s.StructureDocument)

		results := api.Group("/results")
		{
			results.GET("", s.ListResults)
			results.GET("/:id", s.GetResult)
			results.GET("/:id/xlsx", s.ExportResult)
			results.GET("/:id/corrections", s.ListCorrections)
			results.POST("/:id/corrections", s.SaveCorrection)
		}

		api.POST("/ingest", s.Ingest)
		api.GET("/jobs/:id", s.GetJob)
	}
	return router
}

// requestContext tags the request context with an id and a scoped logger.
func (s *Server) requestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header("X-Request-ID", reqID)

		ctx := common.WithRequestID(c.Request.Context(), reqID)
		ctx = common.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()
		s.logger.Info("http.request",
			"request_id", reqID,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
}

func (s *Server) log(c *gin.Context) *slog.Logger {
	return common.LoggerFromContext(c.Request.Context(), s.logger)
}

func writeError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(common.HTTPStatus(err), gin.H{
		"error": common.Message(err),
		"code":  common.CodeOf(err).String(),
	})
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeError(c, common.InvalidArgumentError("id must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}

func unavailable(c *gin.Context, what string) {
	writeError(c, common.UnavailableError(what+" is not configured"))
}

func (s *Server) Health(c *gin.Context) {
	body := gin.H{"status": "healthy", "service": "po-digitizer"}
	if s.deps.DB != nil {
		if err := PingDB(c.Request.Context(), s.deps.DB, s.log(c), 2*time.Second); err != nil {
			body["status"] = "degraded"
			body["database"] = "unreachable"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		body["database"] = "ok"
	}
	c.JSON(http.StatusOK, body)
}
