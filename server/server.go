package server

import (
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"chart_interpreter/history"
	"chart_interpreter/report"
	"chart_interpreter/session"
)

//go:embed web/dist
var embeddedStatic embed.FS

const analyzeTimeout = 3 * time.Minute

// Options configures optional server behavior.
type Options struct {
	PDF           report.PDFOptions
	RatePerMinute int
	RateBurst     int
	Logger        *zap.Logger
	Registry      *prometheus.Registry
	Now           func() time.Time
}

type Server struct {
	analyzer session.Analyzer
	history  *history.Store
	store    *sessionStore
	pdf      report.PDFOptions
	limiter  *rate.Limiter
	metrics  *metrics
	registry *prometheus.Registry
	log      *zap.Logger
	now      func() time.Time
	static   fs.FS
	staticFS http.Handler
}

type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session.Session
}

func newStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*session.Session)}
}

func (s *sessionStore) set(id string, sess *session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = sess
}

func (s *sessionStore) get(id string) (*session.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func New(analyzer session.Analyzer, store *history.Store, opts Options) (*Server, error) {
	if analyzer == nil {
		return nil, errors.New("analyzer required")
	}
	if store == nil {
		return nil, errors.New("history store required")
	}

	sub, err := fs.Sub(embeddedStatic, "web/dist")
	if err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	limit := rate.Inf
	if opts.RatePerMinute > 0 {
		limit = rate.Limit(float64(opts.RatePerMinute) / 60)
	}
	burst := opts.RateBurst
	if burst <= 0 {
		burst = 1
	}

	return &Server{
		analyzer: analyzer,
		history:  store,
		store:    newStore(),
		pdf:      opts.PDF,
		limiter:  rate.NewLimiter(limit, burst),
		metrics:  newMetrics(reg),
		registry: reg,
		log:      log,
		now:      now,
		static:   sub,
		staticFS: http.FileServer(http.FS(sub)),
	}, nil
}

func (s *Server) Routes() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.logMiddleware())

	api := r.Group("/api")
	api.POST("/sessions", s.handleSessionCreate)
	api.GET("/sessions/:id", s.withSession(s.handleSessionGet))
	api.POST("/sessions/:id/analyze", s.rateLimit(), s.withSession(s.handleAnalyze))
	api.POST("/sessions/:id/drafts", s.withSession(s.handleSaveDraft))
	api.POST("/sessions/:id/retry", s.withSession(s.handleRetry))
	api.POST("/sessions/:id/select/:rid", s.withSession(s.handleSelect))
	api.GET("/sessions/:id/export.html", s.withSession(s.handleExportHTML))
	api.GET("/sessions/:id/export.pdf", s.withSession(s.handleExportPDF))

	api.GET("/history", s.handleHistoryList)
	api.DELETE("/history", s.handleHistoryClear)
	api.DELETE("/history/:rid", s.handleHistoryDelete)

	api.POST("/render", s.handleRender)

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	r.NoRoute(s.staticHandler())
	return r
}

func (s *Server) staticHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		upath := c.Request.URL.Path
		if strings.HasPrefix(upath, "/api/") {
			writeError(c, http.StatusNotFound, "not found")
			return
		}
		// fall back to index.html for SPA-ish behavior
		if name := strings.TrimPrefix(upath, "/"); name != "" {
			if _, err := fs.Stat(s.static, name); err != nil {
				c.Request.URL.Path = "/"
			}
		}
		s.staticFS.ServeHTTP(c.Writer, c.Request)
	}
}

func (s *Server) logMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Allow() {
			writeError(c, http.StatusTooManyRequests, "請求過於頻繁，請稍後再試。")
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) withSession(h func(*gin.Context, *session.Session)) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := s.store.get(c.Param("id"))
		if !ok {
			writeError(c, http.StatusNotFound, "session not found")
			return
		}
		h(c, sess)
	}
}

func newSessionID() string {
	return uuid.NewString()
}

func writeError(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}
