package server

import (
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"taskboard/internal/apperr"
	"taskboard/internal/storage/sqlite"
)

// Options tunes the HTTP middleware.
type Options struct {
	// RateLimit is the sustained requests per second allowed per client.
	// Zero disables limiting.
	RateLimit float64
	RateBurst int
}

// Server provides HTTP handlers for the taskboard backend.
type Server struct {
	engine *gin.Engine
	store  *sqlite.Store
	logger *slog.Logger
}

// New constructs the HTTP server with routes and middleware configured.
func New(store *sqlite.Store, logger *slog.Logger, opts Options) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	registerJSONFieldNames()
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(requestLogger(logger))
	if opts.RateLimit > 0 {
		router.Use(newRateLimiter(opts.RateLimit, opts.RateBurst).middleware())
	}

	srv := &Server{
		engine: router,
		store:  store,
		logger: logger,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API handlers together.
func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)

		projects := api.Group("/projects")
		{
			projects.GET("", s.handleListProjects)
			projects.POST("", s.handleCreateProject)
			projects.GET(":id", s.handleGetProject)
			projects.PUT(":id", s.handleUpdateProject)
			projects.DELETE(":id", s.handleDeleteProject)

			projects.GET(":id/statuses", s.handleListStatuses)
			projects.POST(":id/statuses", s.handleCreateStatus)
			projects.PUT(":id/statuses/order", s.handleReorderStatuses)

			projects.GET(":id/sprints", s.handleListSprints)
			projects.POST(":id/sprints", s.handleCreateSprint)
			projects.PUT(":id/sprints/order", s.handleReorderSprints)

			projects.GET(":id/items", s.handleListItems)
			projects.POST(":id/items", s.handleCreateItem)
			projects.PUT(":id/items/order", s.handleReorderItems)
			projects.GET(":id/backlog", s.handleListBacklog)
		}

		statuses := api.Group("/statuses")
		{
			statuses.PUT(":id", s.handleUpdateStatus)
			statuses.DELETE(":id", s.handleDeleteStatus)
		}

		sprints := api.Group("/sprints")
		{
			sprints.GET(":id", s.handleGetSprint)
			sprints.PUT(":id", s.handleUpdateSprint)
			sprints.DELETE(":id", s.handleDeleteSprint)
			sprints.POST(":id/start", s.handleStartSprint)
			sprints.POST(":id/complete", s.handleCompleteSprint)
			sprints.GET(":id/items", s.handleListSprintItems)
		}

		items := api.Group("/items")
		{
			items.GET(":id", s.handleGetItem)
			items.PUT(":id", s.handleUpdateItem)
			items.DELETE(":id", s.handleDeleteItem)
			items.PUT(":id/position", s.handlePlaceItem)
			items.PUT(":id/sprint", s.handleMoveItem)
		}
	}
}

// handleHealth reports readiness, including database reachability.
func (s *Server) handleHealth(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		s.respondError(c, apperr.Wrap(err, apperr.CodeInternal, "database unavailable"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// parseID converts a path parameter to int64 with error handling.
func (s *Server) parseID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		s.respondError(c, apperr.Invalid(name, "invalid identifier %q", raw))
		return 0, false
	}
	return id, true
}

// bindJSON decodes the request body into req and answers 400 on failure.
func (s *Server) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		s.respondError(c, bindingError(err))
		return false
	}
	return true
}

func bindingError(err error) *apperr.Error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := apperr.New(apperr.CodeInvalid, "request validation failed")
		for _, fe := range verrs {
			out.WithField(fe.Field(), "failed on "+fe.Tag())
		}
		return out
	}
	return apperr.Wrap(err, apperr.CodeInvalid, "malformed request body")
}

var fieldNamesOnce sync.Once

// registerJSONFieldNames makes binding errors report json field names.
func registerJSONFieldNames() {
	fieldNamesOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

var statusByCode = map[apperr.Code]int{
	apperr.CodeInvalid:      http.StatusBadRequest,
	apperr.CodeNotFound:     http.StatusNotFound,
	apperr.CodeConflict:     http.StatusConflict,
	apperr.CodeInvalidState: http.StatusUnprocessableEntity,
}

// respondError logs the error and writes the JSON error envelope with the
// status matching its code.
func (s *Server) respondError(c *gin.Context, err error) {
	code := apperr.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}

	attrs := []any{
		slog.String("path", c.FullPath()),
		slog.String("request_id", c.GetString(requestIDKey)),
		slog.String("error", err.Error()),
	}
	body := gin.H{"code": code}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", attrs...)
		body["message"] = "internal server error"
	} else {
		s.logger.Debug("request rejected", attrs...)
		var ae *apperr.Error
		if errors.As(err, &ae) {
			body["message"] = ae.Message
		}
		if fields := apperr.FieldsOf(err); len(fields) > 0 {
			body["fields"] = fields
		}
	}
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}

// respondSuccess wraps a payload in a JSON envelope for consistency.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}
