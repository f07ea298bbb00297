package admin

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/danmuck/regsync/internal/ident"
	"github.com/danmuck/regsync/internal/logging"
	"github.com/danmuck/regsync/internal/observability"
	"github.com/danmuck/regsync/internal/session"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 5 * time.Second

// Options configures the inspection server.
type Options struct {
	ID          string
	CorsOrigins []string
}

// Server is a read-only HTTP view over a session manager.
type Server struct {
	id       string
	manager  *session.Manager
	router   *gin.Engine
	appeared time.Time
	logger   zerolog.Logger
}

func New(manager *session.Manager, opts Options) *Server {
	observability.RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)

	id := strings.TrimSpace(opts.ID)
	if id == "" {
		id = "regsync"
	}
	logger := logging.Logger("admin")

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestMiddleware(id, logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(opts.CorsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		id:       id,
		manager:  manager,
		router:   r,
		appeared: time.Now(),
		logger:   logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":         "ok",
			"uptime":         time.Since(s.appeared).String(),
			"component":      "regsync-admin",
			"id":             s.id,
			"session_active": s.manager.Active(),
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/registries", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"registries": s.manager.Infos(),
		})
	})

	// Registry paths may contain '/', so the path segment is a catch-all.
	s.router.GET("/registries/:namespace/*path", func(c *gin.Context) {
		key, err := ident.New(c.Param("namespace"), strings.TrimPrefix(c.Param("path"), "/"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		reg, ok := s.manager.Get(key)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "registry not found", "registry": key.String()})
			return
		}
		c.JSON(http.StatusOK, reg.Info())
	})
}

// Serve runs the server on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("admin listening")

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		s.logger.Info().Msg("admin stopped")
		return nil
	}
}

// ListenAndServe binds addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", strings.TrimSpace(addr))
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		if origin = strings.TrimSpace(origin); origin != "" {
			out = append(out, origin)
		}
	}
	if len(out) == 0 {
		return []string{"http://localhost:3000"}
	}
	return out
}
