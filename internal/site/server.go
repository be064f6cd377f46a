package site

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/lo"
	"golang.org/x/sync/singleflight"

	"freegle/internal/config"
	"freegle/internal/core"
)

const defaultRenderTimeout = 5 * time.Second

var (
	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "freegle_site_page_cache_lookups_total",
		Help: "Page cache lookups, by result.",
	}, []string{"result"})
)

// Server serves pages according to the route rules, the assets and the CSP report endpoint.
type Server struct {
	Logger    *slog.Logger
	Config    *config.Config
	Public    *config.Public
	Cache     core.PageCache
	Publisher core.ReportPublisher
	Messages  core.MessageAPI

	server      *http.Server
	site        *Config
	rules       *Rules
	renderer    *Renderer
	prerendered map[string]bool
	group       singleflight.Group

	// Prerendered pages live here for the life of the process, the page cache may evict them.
	mu    sync.RWMutex
	built map[string]*core.Page
}

func (s *Server) Init(_ context.Context) error {
	s.Logger = s.Logger.With("component", "site.Server")

	site, err := LoadConfig(s.Config.SiteConfig)
	if err != nil {
		return err
	}

	s.site = site
	s.rules = NewRules(site.Routes)
	s.renderer = NewRenderer(s.Logger, site.Head, s.Public, MessageResolver(s.Messages, s.Public.UserSite))
	s.prerendered = lo.Associate(s.prerenderRoutes(), func(route string) (string, bool) {
		return route, true
	})

	s.server = &http.Server{
		Handler:           s.Handler(),
		Addr:              s.Config.SiteAddr,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return nil
}

func (s *Server) Run(ctx context.Context) error {
	if err := s.Prerender(ctx); err != nil {
		return err
	}

	s.Logger.Info("Starting site server", "addr", s.server.Addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		s.server.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Handler is the router of the site, the CSP header is set on every response it writes.
func (s *Server) Handler() http.Handler {
	cdn := s.Public.CDNURL()

	r := chi.NewMux()
	r.Use(
		s.site.CSP.Middleware(),
		withLogger(s.Logger),
		logRequests(s.Logger),
		recoverPanics(s.Logger),
		ruleHeaders(s.rules, cdn),
	)

	r.Method(http.MethodPost, "/csp-report", NewReportHandler(s.Logger, s.Publisher, s.Config.ReportsPerMin))

	assets := http.StripPrefix("/_nuxt/", http.FileServer(http.Dir(s.Config.AssetsDir)))
	r.Handle("/_nuxt/*", assets)
	if cdn != "" {
		r.Handle(cdn+"/_nuxt/*", http.StripPrefix(cdn, assets))
	}

	r.Method(http.MethodGet, "/*", http.HandlerFunc(s.servePage))
	r.Method(http.MethodHead, "/*", http.HandlerFunc(s.servePage))

	return r
}

// Prerender renders every prerendered route into the cache.
func (s *Server) Prerender(ctx context.Context) error {
	routes := lo.Keys(s.prerendered)
	s.Logger.Info("Prerendering", "routes", len(routes))

	built := make(map[string]*core.Page, len(routes))
	for _, route := range routes {
		page, err := s.render(ctx, route, ModePrerender, 0)
		if err != nil {
			return err
		}
		built[route] = page
	}

	s.mu.Lock()
	s.built = built
	s.mu.Unlock()

	return nil
}

func (s *Server) prerenderedPage(path string) *core.Page {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.built[path]
}

func (s *Server) prerenderRoutes() []string {
	routes := lo.Uniq(append(append(s.rules.Prerendered(), s.site.Prerender.Routes...), s.Config.PrerenderExtra...))

	return lo.Reject(routes, func(route string, _ int) bool {
		return lo.SomeBy(s.site.Prerender.Ignore, func(prefix string) bool {
			return strings.HasPrefix(route, prefix)
		})
	})
}

// Mode is the rendering mode of path.
func (s *Server) Mode(path string) (Mode, time.Duration) {
	path = normalizePath(path)
	if s.prerendered[path] {
		return ModePrerender, 0
	}

	rule := s.rules.Match(path)
	return rule.Mode(), rule.TTL()
}

func (s *Server) servePage(w http.ResponseWriter, r *http.Request) {
	path := normalizePath(r.URL.Path)
	mode, ttl := s.Mode(path)

	page, hit, err := s.page(r.Context(), path, mode, ttl)
	if err != nil {
		loggerFrom(r.Context(), s.Logger).Error("failed to render page", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("X-Render-Mode", string(mode))

	switch {
	case mode == ModeISR:
		h.Set("Cache-Control", "public, max-age=0, s-maxage="+strconv.Itoa(int(ttl.Seconds())))
	case mode == ModeClient || mode == ModeSSR:
		h.Set("Cache-Control", "no-cache")
	}

	if mode.Cached() {
		h.Set("X-Cache", lo.Ternary(hit, "HIT", "MISS"))
	}

	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		w.Write(page.Body) //nolint:errcheck
	}
}

// page returns the cached page or renders it. Concurrent misses for one path share a render.
func (s *Server) page(ctx context.Context, path string, mode Mode, ttl time.Duration) (*core.Page, bool, error) {
	if !mode.Cached() {
		page, err := s.renderPage(ctx, path, mode, ttl)
		return page, false, err
	}

	if mode == ModePrerender {
		if page := s.prerenderedPage(path); page != nil {
			cacheLookups.WithLabelValues("hit").Inc()
			return page, true, nil
		}
	}

	page, ok, err := s.Cache.Get(ctx, path)
	switch {
	case err != nil:
		cacheLookups.WithLabelValues("error").Inc()
		loggerFrom(ctx, s.Logger).Warn("page cache lookup failed", "error", err)
	case ok:
		cacheLookups.WithLabelValues("hit").Inc()
		return page, true, nil
	default:
		cacheLookups.WithLabelValues("miss").Inc()
	}

	res, err, _ := s.group.Do(path, func() (any, error) {
		return s.render(context.WithoutCancel(ctx), path, mode, ttl)
	})
	if err != nil {
		return nil, false, err
	}
	return res.(*core.Page), false, nil
}

// render renders path and stores it in the cache.
func (s *Server) render(ctx context.Context, path string, mode Mode, ttl time.Duration) (*core.Page, error) {
	page, err := s.renderPage(ctx, path, mode, ttl)
	if err != nil {
		return nil, err
	}

	if err := s.Cache.Put(ctx, path, page); err != nil {
		loggerFrom(ctx, s.Logger).Warn("failed to cache page", "path", path, "error", err)
	}
	return page, nil
}

func (s *Server) renderPage(ctx context.Context, path string, mode Mode, ttl time.Duration) (*core.Page, error) {
	timeout := s.Config.RenderTimeout
	if timeout <= 0 {
		timeout = defaultRenderTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := s.renderer.Render(ctx, path, mode)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	page := &core.Page{Body: body, Mode: string(mode), RenderedAt: now}
	if ttl > 0 {
		page.ExpiresAt = now.Add(ttl)
	}
	return page, nil
}
