// Package http serves the subscription dashboard: an htmx front end on
// a plain net/http mux, with server-rendered partials for the KPI
// overview, the subscription table, and the analytics charts.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"subtrack/internal/cache"
	"subtrack/internal/core"
	applog "subtrack/internal/log"
	"subtrack/internal/middleware/ratelimit"
	"subtrack/internal/middleware/security"
	"subtrack/internal/middleware/trace"
	"subtrack/internal/rates"
	"subtrack/internal/service"
	"subtrack/internal/store"
	"subtrack/web"
)

// RateStatus reports the state of the exchange rate feed for the
// header badge and the readiness probe.
type RateStatus interface {
	Status() rates.Snapshot
}

// Options carries the server dependencies. Addr and Logger are the
// only fields with usable zero-value defaults.
type Options struct {
	Addr          string
	Store         store.SubscriptionStore
	Subscriptions *service.SubscriptionService
	Summaries     *service.SummaryService
	History       *service.HistoryService
	Rates         RateStatus
	Catalog       *core.Catalog
	BaseCurrency  string
	Logger        *applog.Logger
}

// appMetrics holds the counters exposed on /metrics.
type appMetrics struct {
	totalCreated int64
	totalDeleted int64
	totalRenewed int64
	totalImports int64
	totalExports int64
	cacheHits    int64
	cacheMisses  int64
	started      time.Time
}

type Server struct {
	http.Server
	templates *template.Template
	logger    *applog.Logger

	store        store.SubscriptionStore
	subs         *service.SubscriptionService
	summaries    *service.SummaryService
	history      *service.HistoryService
	rates        RateStatus
	catalog      *core.Catalog
	baseCurrency string

	tracer   *trace.Middleware
	headers  *security.HeadersMiddleware
	detector *security.Detector
	limiter  *ratelimit.Limiter

	summaryCache *cache.LRUCache[core.DashboardSummary]
	costedCache  *cache.LRUCache[[]core.CostedSubscription]
	cacheManager *cache.Manager

	appMetrics   *appMetrics
	shutdownOnce sync.Once
}

// NewServer wires routes, templates, middleware, and caches and
// returns a server ready for ListenAndServe.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.Config{Component: applog.ComponentHTTP})
	}

	s := &Server{
		logger:       logger,
		store:        opts.Store,
		subs:         opts.Subscriptions,
		summaries:    opts.Summaries,
		history:      opts.History,
		rates:        opts.Rates,
		catalog:      opts.Catalog,
		baseCurrency: opts.BaseCurrency,
		detector:     security.NewDetector(),
		limiter:      ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		summaryCache: cache.NewLRUCache[core.DashboardSummary](16, 5*time.Minute),
		costedCache:  cache.NewLRUCache[[]core.CostedSubscription](16, 5*time.Minute),
		cacheManager: cache.NewManager(),
		appMetrics:   &appMetrics{started: time.Now()},
	}
	s.headers = security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP)

	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.Register(s.costedCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	// Parse embedded templates at startup.
	t, err := template.ParseFS(web.Templates, "templates/*.html")
	if err != nil {
		logger.Warn("failed parsing templates", "error", err)
	}
	s.templates = t

	mux := http.NewServeMux()

	// Static assets from the embedded FS.
	if sub, err := fs.Sub(web.Static, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)

	mux.HandleFunc("/subscriptions", s.handleCreateSubscription)
	mux.HandleFunc("/subscriptions/update", s.handleUpdateSubscription)
	mux.HandleFunc("/subscriptions/delete", s.handleDeleteSubscription)
	mux.HandleFunc("/subscriptions/renew", s.handleRenewSubscription)

	// UI partials
	mux.HandleFunc("/ui/overview", s.handleOverview)
	mux.HandleFunc("/ui/subscriptions", s.handleSubscriptionTable)
	mux.HandleFunc("/ui/analytics", s.handleAnalytics)
	mux.HandleFunc("/ui/upcoming", s.handleUpcoming)
	mux.HandleFunc("/ui/rate-status", s.handleRateStatus)

	mux.HandleFunc("/export", s.handleExport)
	mux.HandleFunc("/import", s.handleImport)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// middleware is the outer chain: tracing first so every later log
// line carries the request ID, then suspicious-request flagging,
// security headers, and rate limiting on mutations.
func (s *Server) middleware(next http.Handler) http.Handler {
	h := s.limitMutations(next)
	h = s.headers.Middleware(h)
	h = s.flagSuspicious(h)
	return s.tracer.Middleware(h)
}

// flagSuspicious counts and logs probe-looking requests without
// blocking them.
func (s *Server) flagSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			s.logger.WarnContext(r.Context(), "suspicious request",
				applog.FieldClientIP, s.detector.ExtractClientIP(r),
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
		}
		next.ServeHTTP(w, r)
	})
}

// limitMutations applies the per-client rate limit to state-changing
// methods only; partial refreshes stay unthrottled.
func (s *Server) limitMutations(next http.Handler) http.Handler {
	limited := s.limiter.Middleware(s.detector.ExtractClientIP, nil)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead:
			next.ServeHTTP(w, r)
		default:
			limited.ServeHTTP(w, r)
		}
	})
}

// Shutdown drains in-flight requests and stops the cache and rate
// limiter housekeeping goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// cacheKey buckets cached dashboard data by calendar day, so a date
// rollover naturally refreshes days-left values.
func (s *Server) cacheKey() string {
	return core.Today().String()
}

// invalidate drops the cached summary and table data after a mutation.
func (s *Server) invalidate() {
	key := s.cacheKey()
	s.summaryCache.Delete(key)
	s.costedCache.Delete(key)
}

// getCosted returns the monthly-normalized subscription list, cached
// for the current day.
func (s *Server) getCosted(ctx context.Context) ([]core.CostedSubscription, error) {
	key := s.cacheKey()
	if costed, found := s.costedCache.Get(key); found {
		atomic.AddInt64(&s.appMetrics.cacheHits, 1)
		result := make([]core.CostedSubscription, len(costed))
		copy(result, costed)
		return result, nil
	}
	atomic.AddInt64(&s.appMetrics.cacheMisses, 1)

	cctx, cancel := context.WithTimeout(ctx, 7*time.Second)
	defer cancel()
	subs, err := s.subs.List(cctx)
	if err != nil {
		return nil, err
	}
	costed := s.summaries.Cost(cctx, subs, core.Today())
	s.costedCache.Set(key, costed)
	return costed, nil
}

// getSummary returns the KPI summary, cached for the current day.
func (s *Server) getSummary(ctx context.Context) (core.DashboardSummary, error) {
	key := s.cacheKey()
	if summary, found := s.summaryCache.Get(key); found {
		atomic.AddInt64(&s.appMetrics.cacheHits, 1)
		return summary, nil
	}
	atomic.AddInt64(&s.appMetrics.cacheMisses, 1)

	costed, err := s.getCosted(ctx)
	if err != nil {
		return core.DashboardSummary{}, err
	}
	summary := s.summaries.Build(costed)
	s.summaryCache.Set(key, summary)
	return summary, nil
}

// categoryOptions returns the category names for the add form.
func (s *Server) categoryOptions() []string {
	if s.catalog == nil {
		return core.DefaultCategories
	}
	return s.catalog.Categories()
}

// currencyOptions lists the base currency first, then the rest of the
// supported codes.
func (s *Server) currencyOptions() []string {
	options := []string{s.baseCurrency}
	for _, code := range rates.SupportedCurrencies {
		if code != s.baseCurrency {
			options = append(options, code)
		}
	}
	return options
}

// cycleOptions returns the billing cycle names for the add form.
func cycleOptions() []string {
	cycles := core.Cycles()
	names := make([]string, 0, len(cycles))
	for _, c := range cycles {
		names = append(names, c.String())
	}
	return names
}
