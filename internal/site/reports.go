package site

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"freegle/internal/core"
)

const (
	maxReportSize = 64 << 10

	// Clients tracked by the report limiter, the least recently seen are forgotten.
	maxReportClients = 4096
)

var (
	cspReports = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "freegle_site_csp_reports_total",
		Help: "CSP violation reports received, by outcome.",
	}, []string{"result"})
)

// ReportHandler receives CSP violation reports in both the legacy application/csp-report format and
// the Reporting API application/reports+json format.
type ReportHandler struct {
	logger    *slog.Logger
	publisher core.ReportPublisher
	limiters  *lru.Cache[string, *rate.Limiter]
	perMinute int
	now       func() time.Time
}

// NewReportHandler accepts up to perMinute reports per minute from each client.
func NewReportHandler(logger *slog.Logger, publisher core.ReportPublisher, perMinute int) *ReportHandler {
	limiters, _ := lru.New[string, *rate.Limiter](maxReportClients)

	return &ReportHandler{
		logger:    logger,
		publisher: publisher,
		limiters:  limiters,
		perMinute: max(perMinute, 1),
		now:       time.Now,
	}
}

func (h *ReportHandler) limiter(client string) *rate.Limiter {
	limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(h.perMinute)), h.perMinute)
	if prev, ok, _ := h.limiters.PeekOrAdd(client, limiter); ok {
		return prev
	}
	return limiter
}

// clientIP is the address the request came from, without the port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (h *ReportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.limiter(clientIP(r)).Allow() {
		cspReports.WithLabelValues("throttled").Inc()
		w.WriteHeader(http.StatusTooManyRequests)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxReportSize))
	if err != nil {
		cspReports.WithLabelValues("invalid").Inc()
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		return
	}

	if !gjson.ValidBytes(body) {
		cspReports.WithLabelValues("invalid").Inc()
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	reports := ParseReports(body, r.UserAgent(), h.now())
	if len(reports) == 0 {
		cspReports.WithLabelValues("invalid").Inc()
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	for _, report := range reports {
		h.logger.Warn("CSP violation",
			"document", report.DocumentURI,
			"directive", report.EffectiveDirective,
			"blocked", report.BlockedURI,
		)

		// The browser does not care whether the report was stored.
		ctx := context.WithoutCancel(r.Context())
		if err := h.publisher.Publish(ctx, report); err != nil {
			cspReports.WithLabelValues("failed").Inc()
			h.logger.Error("failed to publish CSP report", "id", report.ID, "error", err)
			continue
		}
		cspReports.WithLabelValues("accepted").Inc()
	}

	w.WriteHeader(http.StatusNoContent)
}

// ParseReports extracts the CSP violations of a report body. Non-CSP reports are skipped.
func ParseReports(body []byte, userAgent string, now time.Time) []*core.CSPReport {
	root := gjson.ParseBytes(body)

	if root.IsArray() {
		var reports []*core.CSPReport
		root.ForEach(func(_, entry gjson.Result) bool {
			if entry.Get("type").String() != "csp-violation" {
				return true
			}

			ua := entry.Get("user_agent").String()
			if ua == "" {
				ua = userAgent
			}

			b := entry.Get("body")
			reports = append(reports, &core.CSPReport{
				ID:                 uuid.NewString(),
				DocumentURI:        b.Get("documentURL").String(),
				Referrer:           b.Get("referrer").String(),
				ViolatedDirective:  b.Get("effectiveDirective").String(),
				EffectiveDirective: b.Get("effectiveDirective").String(),
				BlockedURI:         b.Get("blockedURL").String(),
				SourceFile:         b.Get("sourceFile").String(),
				LineNumber:         int(b.Get("lineNumber").Int()),
				ColumnNumber:       int(b.Get("columnNumber").Int()),
				Disposition:        b.Get("disposition").String(),
				UserAgent:          ua,
				ReceivedAt:         now,
			})
			return true
		})
		return reports
	}

	b := root.Get("csp-report")
	if !b.IsObject() {
		return nil
	}

	effective := b.Get("effective-directive").String()
	if effective == "" {
		effective = b.Get("violated-directive").String()
	}

	return []*core.CSPReport{{
		ID:                 uuid.NewString(),
		DocumentURI:        b.Get("document-uri").String(),
		Referrer:           b.Get("referrer").String(),
		ViolatedDirective:  b.Get("violated-directive").String(),
		EffectiveDirective: effective,
		BlockedURI:         b.Get("blocked-uri").String(),
		SourceFile:         b.Get("source-file").String(),
		LineNumber:         int(b.Get("line-number").Int()),
		ColumnNumber:       int(b.Get("column-number").Int()),
		Disposition:        b.Get("disposition").String(),
		UserAgent:          userAgent,
		ReceivedAt:         now,
	}}
}

// LogPublisher only logs reports. It is used when no NATS server is configured.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p *LogPublisher) Init(_ context.Context) error {
	p.Logger = p.Logger.With("component", "site.LogPublisher")
	return nil
}

func (p *LogPublisher) Publish(_ context.Context, report *core.CSPReport) error {
	p.Logger.Info("CSP report", "id", report.ID, "document", report.DocumentURI, "directive", report.EffectiveDirective)
	return nil
}
