// Package http exposes the dashboard over a JSON API: venue and show
// selection, reconciled breakdowns, and the live payment ledger.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"marquee/internal/cache"
	"marquee/internal/core"
	applog "marquee/internal/log"
	"marquee/internal/session"
)

const (
	breakdownCacheSize = 128
	breakdownCacheTTL  = 5 * time.Minute
	cacheCleanupEvery  = time.Minute
)

type Server struct {
	http.Server

	session     *session.Session
	rateLimiter *rateLimiter
	metrics     securityMetrics
	logger      *applog.Logger

	// Reconciled breakdowns keyed by "venue|show_date".
	breakdownCache *cache.LRUCache[core.RevenueBreakdown]
	cacheManager   *cache.Manager

	shutdownOnce sync.Once
}

func NewServer(port string, sess *session.Session, logger *applog.Logger) *Server {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	}

	s := &Server{
		session:        sess,
		rateLimiter:    newRateLimiter(),
		logger:         logger,
		breakdownCache: cache.NewLRUCache[core.RevenueBreakdown](breakdownCacheSize, breakdownCacheTTL),
		cacheManager:   cache.NewManager(),
	}
	s.cacheManager.Register(s.breakdownCache)
	s.cacheManager.StartCleanup(cacheCleanupEvery)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.securityHeaders)
	r.Use(s.requestLogging)
	r.Use(s.rateLimit)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Get("/venues", s.handleVenues)
		r.Get("/shows", s.handleShows)
		r.Get("/show-breakdown", s.handleShowBreakdown)
		r.Get("/recent", s.handleRecent)
		r.Post("/resume", s.handleResume)

		r.Route("/performers", func(r chi.Router) {
			r.Get("/", s.handlePerformers)
			r.Post("/", s.handleAddPerformer)
			r.Post("/flush", s.handleFlush)
			r.Patch("/{index}", s.handleUpdatePerformer)
			r.Delete("/{index}", s.handleRemovePerformer)
			r.Get("/{index}/payment-link", s.handlePaymentLink)
		})
	})

	s.Server = http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

// InvalidateShow drops the cached breakdown of one show. Wired to the
// ledger's saved hook so a refresh after a save never serves stale data.
func (s *Server) InvalidateShow(venue, showDate string) {
	s.breakdownCache.Delete(venue + "|" + showDate)
}

// InvalidateVenue drops every cached breakdown for a venue.
func (s *Server) InvalidateVenue(venue string) {
	s.breakdownCache.DeleteByPrefix(venue + "|")
}

// Shutdown stops background loops and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		s.cacheManager.Stop()
	})
	return s.Server.Shutdown(ctx)
}

func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)

		if detectSuspiciousRequest(r, &s.metrics) {
			s.logger.WarnContext(r.Context(), "Suspicious request",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
		}

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		s.logger.InfoContext(r.Context(), "HTTP request completed",
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, sw.status,
			applog.FieldDuration, time.Since(start).Milliseconds(),
			applog.FieldClientIP, clientIP)
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := extractClientIP(r)
		if !s.rateLimiter.allow(clientIP, &s.metrics) {
			respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
